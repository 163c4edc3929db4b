package generation

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

var (
	// ErrEmptyMessages indicates a generate call with no messages.
	ErrEmptyMessages = errors.New("no messages to generate from")

	// ErrEmptyResponse indicates the provider returned no choices.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid generation configuration")
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string
	Content string
}

// Result is a completed generation with token accounting. Token counts come
// from provider usage metadata when available, otherwise from a 4 chars/token
// estimate.
type Result struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamFunc receives response chunks as they arrive.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Provider generates chat completions.
type Provider interface {
	// Generate produces a completion for the message sequence.
	Generate(ctx context.Context, messages []Message) (*Result, error)

	// GenerateStream produces a completion, invoking fn per chunk. The
	// returned Result carries the full accumulated text.
	GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error)

	// Name identifies the provider.
	Name() string

	// Model returns the active chat model name.
	Model() string
}

// NewProvider creates the generation provider selected by the configuration
// switch. The choice is made once at startup, not re-resolved per call.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		})
	case config.ProviderGemini:
		return NewGoogleAI(ctx, GoogleAIConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Temperature: cfg.Gemini.Temperature,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// estimateTokens approximates a token count at 4 characters per token.
func estimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// estimateMessageTokens approximates the prompt token count for a message
// sequence, including a small per-message framing overhead.
func estimateMessageTokens(messages []Message) int {
	total := 2
	for _, m := range messages {
		total += 4 + estimateTokens(m.Content)
	}
	return total
}
