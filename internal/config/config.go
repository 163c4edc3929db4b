// Package config provides configuration loading for ragd.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ragd/internal/logging"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Provider names selectable via the single provider switch.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the root configuration for ragd.
type Config struct {
	// Provider selects the embedding/generation provider: "openai" or "gemini".
	Provider string `koanf:"provider"`

	OpenAI    OpenAIConfig    `koanf:"openai"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Cache     CacheConfig     `koanf:"cache"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	OCR       OCRConfig       `koanf:"ocr"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Logging   logging.Config  `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey         string  `koanf:"api_key"`
	Model          string  `koanf:"model"`
	EmbeddingModel string  `koanf:"embedding_model"`
	MaxTokens      int     `koanf:"max_tokens"`
	Temperature    float64 `koanf:"temperature"`
	// VectorSize is the embedding dimensionality. text-embedding-3-small: 1536.
	VectorSize int `koanf:"vector_size"`
}

// GeminiConfig holds Google AI provider settings.
type GeminiConfig struct {
	APIKey         string  `koanf:"api_key"`
	Model          string  `koanf:"model"`
	EmbeddingModel string  `koanf:"embedding_model"`
	MaxTokens      int     `koanf:"max_tokens"`
	Temperature    float64 `koanf:"temperature"`
	// VectorSize is the embedding dimensionality. text-embedding-004: 768.
	VectorSize int `koanf:"vector_size"`
}

// RateLimitConfig throttles outbound provider API calls.
type RateLimitConfig struct {
	// RequestsPerSecond caps provider calls. Zero disables throttling.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	// Burst is the number of calls allowed to exceed the sustained rate.
	Burst int `koanf:"burst"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host string `koanf:"host"`
	// Port is the gRPC port (6334), not the HTTP REST port (6333).
	Port   int  `koanf:"port"`
	UseTLS bool `koanf:"use_tls"`
	APIKey string `koanf:"api_key"`
	// CollectionPrefix is prefixed to the derived collection name.
	CollectionPrefix string `koanf:"collection_prefix"`
}

// CacheConfig holds embedding cache settings (NATS JetStream KV).
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Bucket  string `koanf:"bucket"`
	// TTL is the bucket-level expiry for cached embeddings.
	TTL time.Duration `koanf:"ttl"`
}

// ChunkingConfig holds text chunking settings.
type ChunkingConfig struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int `koanf:"chunk_size"`
	// Overlap is the cross-chunk overlap in tokens.
	Overlap int `koanf:"overlap"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK     int     `koanf:"top_k"`
	MinScore float32 `koanf:"min_score"`
}

// OCRConfig holds OCR extraction settings.
type OCRConfig struct {
	// Languages are Tesseract language codes, e.g. ["eng", "ind"].
	Languages  []string `koanf:"languages"`
	MaxWorkers int      `koanf:"max_workers"`
	// DPI used when rasterizing PDF pages for OCR.
	DPI               int           `koanf:"dpi"`
	PageTimeout       time.Duration `koanf:"page_timeout"`
	BatchTimeout      time.Duration `koanf:"batch_timeout"`
	ProgressEveryPage int           `koanf:"progress_every_pages"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	// DatabasePath is the sqlite file holding document/chunk status.
	DatabasePath string `koanf:"database_path"`
	// Workers is the number of concurrent background ingestions.
	Workers int `koanf:"workers"`
	// QueueDepth bounds the pending ingestion queue.
	QueueDepth int `koanf:"queue_depth"`
	// ScannedTextThreshold is the native-text length below which a PDF is
	// treated as scanned and sent through OCR.
	ScannedTextThreshold int `koanf:"scanned_text_threshold"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	// Endpoint is the OTLP gRPC endpoint, e.g. "localhost:4317".
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			MaxTokens:      500,
			Temperature:    0.7,
			VectorSize:     1536,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-1.5-flash",
			EmbeddingModel: "text-embedding-004",
			MaxTokens:      500,
			Temperature:    0.7,
			VectorSize:     768,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50.0 / 60.0,
			Burst:             5,
		},
		Qdrant: QdrantConfig{
			Host:             "localhost",
			Port:             6334,
			CollectionPrefix: "kb",
		},
		Cache: CacheConfig{
			Enabled: true,
			URL:     "nats://localhost:4222",
			Bucket:  "ragd_embeddings",
			TTL:     time.Hour,
		},
		Chunking: ChunkingConfig{
			ChunkSize: 500,
			Overlap:   50,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0.7,
		},
		OCR: OCRConfig{
			Languages:         []string{"eng", "ind"},
			MaxWorkers:        4,
			DPI:               150,
			PageTimeout:       30 * time.Second,
			BatchTimeout:      2 * time.Minute,
			ProgressEveryPage: 1,
		},
		Ingest: IngestConfig{
			DatabasePath:         "ragd.db",
			Workers:              2,
			QueueDepth:           64,
			ScannedTextThreshold: 100,
		},
		Logging: logging.DefaultConfig(),
		Telemetry: TelemetryConfig{
			ServiceName: "ragd",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: rate limit must be non-negative", ErrInvalidConfig)
	}
	if c.Qdrant.Host == "" {
		return fmt.Errorf("%w: qdrant host required", ErrInvalidConfig)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: invalid qdrant port %d", ErrInvalidConfig, c.Qdrant.Port)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, chunk_size)", ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("%w: min_score must be in [0, 1]", ErrInvalidConfig)
	}
	if c.OCR.MaxWorkers <= 0 {
		return fmt.Errorf("%w: ocr max_workers must be positive", ErrInvalidConfig)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: ingest workers must be positive", ErrInvalidConfig)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

// VectorSize returns the embedding dimensionality of the active provider.
func (c *Config) VectorSize() int {
	if c.Provider == ProviderGemini {
		return c.Gemini.VectorSize
	}
	return c.OpenAI.VectorSize
}

// CollectionName derives the active collection name from provider identity
// and vector size. Switching providers changes the dimensionality and
// therefore the collection, so configurations coexist without migration.
func (c *Config) CollectionName() string {
	return fmt.Sprintf("%s_%s_%d",
		strings.ToLower(c.Qdrant.CollectionPrefix),
		strings.ToLower(c.Provider),
		c.VectorSize())
}
