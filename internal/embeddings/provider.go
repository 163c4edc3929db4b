package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")
)

// Provider generates embedding vectors for text.
//
// Provider errors propagate to the caller unmodified; there is no fallback
// vector, since an embedding of the wrong dimensionality would corrupt the
// vector index.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The output
	// preserves input order regardless of internal batching strategy.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimensionality of the active model.
	Dimension() int

	// Name identifies the provider for cache key namespacing.
	Name() string

	// Model returns the active embedding model name.
	Model() string
}

// NewProvider creates the embedding provider selected by the configuration
// switch. The choice is made once at startup, not re-resolved per call.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.EmbeddingModel,
			VectorSize: cfg.OpenAI.VectorSize,
		})
	case config.ProviderGemini:
		return NewGoogleAI(ctx, GoogleAIConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.EmbeddingModel,
			VectorSize: cfg.Gemini.VectorSize,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
