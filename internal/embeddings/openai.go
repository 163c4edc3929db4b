package embeddings

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds configuration for the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey string
	// Model is the embedding model, e.g. "text-embedding-3-small".
	Model string
	// VectorSize is the model's output dimensionality.
	VectorSize int
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
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

// OpenAI generates embeddings via the OpenAI API.
type OpenAI struct {
	llm    *openai.LLM
	config OpenAIConfig
}

// NewOpenAI creates an OpenAI embedding provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAI{llm: llm, config: cfg}, nil
}

// Embed generates an embedding for a single text.
func (p *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (p *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vectors, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// Dimension returns the embedding dimensionality.
func (p *OpenAI) Dimension() int { return p.config.VectorSize }

// Name identifies the provider.
func (p *OpenAI) Name() string { return "openai" }

// Model returns the active embedding model.
func (p *OpenAI) Model() string { return p.config.Model }

var _ Provider = (*OpenAI)(nil)
