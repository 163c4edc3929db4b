package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

func TestOpenAIConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  OpenAIConfig
		wantErr bool
	}{
		{
			name:    "valid",
			config:  OpenAIConfig{APIKey: "sk-test", Model: "text-embedding-3-small", VectorSize: 1536},
			wantErr: false,
		},
		{
			name:    "missing api key",
			config:  OpenAIConfig{Model: "text-embedding-3-small", VectorSize: 1536},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  OpenAIConfig{APIKey: "sk-test", VectorSize: 1536},
			wantErr: true,
		},
		{
			name:    "zero vector size",
			config:  OpenAIConfig{APIKey: "sk-test", Model: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGoogleAIConfigValidate(t *testing.T) {
	valid := GoogleAIConfig{APIKey: "key", Model: "text-embedding-004", VectorSize: 768}
	assert.NoError(t, valid.Validate())

	missing := GoogleAIConfig{Model: "m", VectorSize: 768}
	assert.ErrorIs(t, missing.Validate(), ErrInvalidConfig)
}

func TestNewProviderOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OpenAI.APIKey = "sk-test"

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", provider.Name())
	assert.Equal(t, 1536, provider.Dimension())
	assert.Equal(t, "text-embedding-3-small", provider.Model())
}

func TestNewProviderUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider = "mystery"

	_, err := NewProvider(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
