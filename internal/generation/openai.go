package generation

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig holds configuration for the OpenAI chat provider.
type OpenAIConfig struct {
	APIKey string
	// Model is the chat model, e.g. "gpt-4o-mini".
	Model       string
	MaxTokens   int
	Temperature float64
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
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

// OpenAI generates chat completions via the OpenAI API. System messages pass
// through with their native role.
type OpenAI struct {
	llm    *openai.LLM
	config OpenAIConfig
}

// NewOpenAI creates an OpenAI generation provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAI{llm: llm, config: cfg}, nil
}

// Generate produces a completion for the message sequence.
func (p *OpenAI) Generate(ctx context.Context, messages []Message) (*Result, error) {
	return p.generate(ctx, messages, nil)
}

// GenerateStream produces a completion, invoking fn per chunk.
func (p *OpenAI) GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error) {
	return p.generate(ctx, messages, fn)
}

func (p *OpenAI) generate(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyMessages
	}

	content := toContent(messages)
	opts := []llms.CallOption{
		llms.WithTemperature(p.config.Temperature),
		llms.WithMaxTokens(p.config.MaxTokens),
	}
	if fn != nil {
		opts = append(opts, llms.WithStreamingFunc(fn))
	}

	resp, err := p.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, fmt.Errorf("openai generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	result := &Result{Text: choice.Content, Model: p.config.Model}
	fillTokenCounts(result, choice.GenerationInfo, messages)
	return result, nil
}

// Name identifies the provider.
func (p *OpenAI) Name() string { return "openai" }

// Model returns the active chat model.
func (p *OpenAI) Model() string { return p.config.Model }

// toContent converts messages into langchaingo content, preserving roles.
func toContent(messages []Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(toChatMessageType(m.Role), m.Content))
	}
	return content
}

func toChatMessageType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// fillTokenCounts populates token counts from provider usage metadata,
// falling back to estimates when the provider reports none.
func fillTokenCounts(result *Result, info map[string]any, messages []Message) {
	result.PromptTokens = intFromInfo(info, "PromptTokens")
	result.CompletionTokens = intFromInfo(info, "CompletionTokens")
	result.TotalTokens = intFromInfo(info, "TotalTokens")

	if result.PromptTokens == 0 {
		result.PromptTokens = estimateMessageTokens(messages)
	}
	if result.CompletionTokens == 0 {
		result.CompletionTokens = estimateTokens(result.Text)
	}
	if result.TotalTokens == 0 {
		result.TotalTokens = result.PromptTokens + result.CompletionTokens
	}
}

func intFromInfo(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

var _ Provider = (*OpenAI)(nil)
