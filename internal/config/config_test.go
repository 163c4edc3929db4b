package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, 1536, cfg.VectorSize())
	assert.Equal(t, "kb_openai_1536", cfg.CollectionName())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "claude" }},
		{"missing qdrant host", func(c *Config) { c.Qdrant.Host = "" }},
		{"bad qdrant port", func(c *Config) { c.Qdrant.Port = 99999 }},
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"overlap exceeds chunk size", func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"min score out of range", func(c *Config) { c.Retrieval.MinScore = 1.5 }},
		{"negative rate limit", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }},
		{"zero ocr workers", func(c *Config) { c.OCR.MaxWorkers = 0 }},
		{"zero ingest workers", func(c *Config) { c.Ingest.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestCollectionNameTracksProvider(t *testing.T) {
	cfg := DefaultConfig()
	openaiCollection := cfg.CollectionName()

	cfg.Provider = ProviderGemini
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 768, cfg.VectorSize())
	assert.Equal(t, "kb_gemini_768", cfg.CollectionName())
	assert.NotEqual(t, openaiCollection, cfg.CollectionName())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
provider: gemini
qdrant:
  host: qdrant.internal
  port: 6334
chunking:
  chunk_size: 300
  overlap: 30
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 300, cfg.Chunking.ChunkSize)
	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\n"), 0o600))

	t.Setenv("RAGD_PROVIDER", "gemini")
	t.Setenv("RAGD_QDRANT_HOST", "remote.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "remote.example.com", cfg.Qdrant.Host)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Chunking, cfg.Chunking)
}

func TestTransformEnvKey(t *testing.T) {
	assert.Equal(t, "qdrant.host", transformEnvKey("RAGD_QDRANT_HOST"))
	assert.Equal(t, "openai.api_key", transformEnvKey("RAGD_OPENAI_API_KEY"))
	assert.Equal(t, "provider", transformEnvKey("RAGD_PROVIDER"))
}
