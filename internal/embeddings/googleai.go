package embeddings

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleAIConfig holds configuration for the Google AI embedding provider.
type GoogleAIConfig struct {
	APIKey string
	// Model is the embedding model, e.g. "text-embedding-004".
	Model string
	// VectorSize is the model's output dimensionality.
	VectorSize int
}

// Validate validates the configuration.
func (c GoogleAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// GoogleAI generates embeddings via the Google AI (Gemini) API.
type GoogleAI struct {
	llm    *googleai.GoogleAI
	config GoogleAIConfig
}

// NewGoogleAI creates a Google AI embedding provider.
func NewGoogleAI(ctx context.Context, cfg GoogleAIConfig) (*GoogleAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating googleai client: %w", err)
	}

	return &GoogleAI{llm: llm, config: cfg}, nil
}

// Embed generates an embedding for a single text.
func (p *GoogleAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (p *GoogleAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vectors, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("googleai embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("googleai embedding: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// Dimension returns the embedding dimensionality.
func (p *GoogleAI) Dimension() int { return p.config.VectorSize }

// Name identifies the provider.
func (p *GoogleAI) Name() string { return "gemini" }

// Model returns the active embedding model.
func (p *GoogleAI) Model() string { return p.config.Model }

var _ Provider = (*GoogleAI)(nil)
