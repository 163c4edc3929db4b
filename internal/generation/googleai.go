package generation

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GoogleAIConfig holds configuration for the Google AI chat provider.
type GoogleAIConfig struct {
	APIKey string
	// Model is the chat model, e.g. "gemini-1.5-flash".
	Model       string
	MaxTokens   int
	Temperature float64
}

// Validate validates the configuration.
func (c GoogleAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: api key required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidConfig)
	}
	return nil
}

// GoogleAI generates chat completions via the Gemini API. Gemini has no
// system role, so the system message is folded into the first user turn.
type GoogleAI struct {
	llm    *googleai.GoogleAI
	config GoogleAIConfig
}

// NewGoogleAI creates a Google AI generation provider.
func NewGoogleAI(ctx context.Context, cfg GoogleAIConfig) (*GoogleAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating googleai client: %w", err)
	}

	return &GoogleAI{llm: llm, config: cfg}, nil
}

// Generate produces a completion for the message sequence.
func (p *GoogleAI) Generate(ctx context.Context, messages []Message) (*Result, error) {
	return p.generate(ctx, messages, nil)
}

// GenerateStream produces a completion, invoking fn per chunk.
func (p *GoogleAI) GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error) {
	return p.generate(ctx, messages, fn)
}

func (p *GoogleAI) generate(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	folded := FoldSystemMessage(messages)
	content := toContent(folded)
	opts := []llms.CallOption{
		llms.WithTemperature(p.config.Temperature),
		llms.WithMaxTokens(p.config.MaxTokens),
	}
	if fn != nil {
		opts = append(opts, llms.WithStreamingFunc(fn))
	}

	resp, err := p.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, fmt.Errorf("googleai generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	result := &Result{Text: choice.Content, Model: p.config.Model}
	fillTokenCounts(result, choice.GenerationInfo, folded)
	return result, nil
}

// Name identifies the provider.
func (p *GoogleAI) Name() string { return "gemini" }

// Model returns the active chat model.
func (p *GoogleAI) Model() string { return p.config.Model }

// FoldSystemMessage merges a leading system message into the first user turn,
// for providers without a native system role. Input is not mutated.
func FoldSystemMessage(messages []Message) []Message {
	if len(messages) == 0 || messages[0].Role != RoleSystem {
		return messages
	}

	system := messages[0].Content
	rest := messages[1:]
	out := make([]Message, 0, len(rest))
	merged := false
	for _, m := range rest {
		if !merged && m.Role == RoleUser {
			m = Message{Role: RoleUser, Content: system + "\n\n" + m.Content}
			merged = true
		}
		out = append(out, m)
	}
	if !merged {
		out = append([]Message{{Role: RoleUser, Content: system}}, out...)
	}
	return out
}

var _ Provider = (*GoogleAI)(nil)
