package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OpenAIConfig
		wantErr bool
	}{
		{"valid", OpenAIConfig{APIKey: "sk-x", Model: "gpt-4o-mini", MaxTokens: 500}, false},
		{"missing key", OpenAIConfig{Model: "gpt-4o-mini", MaxTokens: 500}, true},
		{"missing model", OpenAIConfig{APIKey: "sk-x", MaxTokens: 500}, true},
		{"zero max tokens", OpenAIConfig{APIKey: "sk-x", Model: "gpt-4o-mini"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFoldSystemMessage(t *testing.T) {
	t.Run("system folded into first user turn", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleSystem, Content: "You are helpful."},
			{Role: RoleUser, Content: "Hi"},
			{Role: RoleAssistant, Content: "Hello"},
			{Role: RoleUser, Content: "What are your hours?"},
		}

		folded := FoldSystemMessage(msgs)
		require.Len(t, folded, 3)
		assert.Equal(t, RoleUser, folded[0].Role)
		assert.Equal(t, "You are helpful.\n\nHi", folded[0].Content)
		assert.Equal(t, "What are your hours?", folded[2].Content)
	})

	t.Run("no system message passes through", func(t *testing.T) {
		msgs := []Message{{Role: RoleUser, Content: "Hi"}}
		assert.Equal(t, msgs, FoldSystemMessage(msgs))
	})

	t.Run("system without user becomes user turn", func(t *testing.T) {
		folded := FoldSystemMessage([]Message{{Role: RoleSystem, Content: "Rules"}})
		require.Len(t, folded, 1)
		assert.Equal(t, RoleUser, folded[0].Role)
		assert.Equal(t, "Rules", folded[0].Content)
	})

	t.Run("input not mutated", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleSystem, Content: "S"},
			{Role: RoleUser, Content: "U"},
		}
		FoldSystemMessage(msgs)
		assert.Equal(t, "U", msgs[1].Content)
	})
}

func TestFillTokenCounts(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: strings.Repeat("a", 40)}}

	t.Run("provider usage preferred", func(t *testing.T) {
		result := &Result{Text: "hello"}
		fillTokenCounts(result, map[string]any{
			"PromptTokens":     20,
			"CompletionTokens": 7,
			"TotalTokens":      27,
		}, msgs)
		assert.Equal(t, 20, result.PromptTokens)
		assert.Equal(t, 7, result.CompletionTokens)
		assert.Equal(t, 27, result.TotalTokens)
	})

	t.Run("estimator fallback", func(t *testing.T) {
		result := &Result{Text: strings.Repeat("b", 20)}
		fillTokenCounts(result, nil, msgs)
		// 40 chars / 4 + framing overhead.
		assert.Equal(t, 16, result.PromptTokens)
		assert.Equal(t, 5, result.CompletionTokens)
		assert.Equal(t, 21, result.TotalTokens)
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}

func TestFormatForChannelShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, FormatForChannel("hello", 4000))
	assert.Nil(t, FormatForChannel("   ", 4000))
}

func TestFormatForChannelSplitsAtParagraphs(t *testing.T) {
	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	p3 := strings.Repeat("c", 60)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks := FormatForChannel(text, 130)
	require.Len(t, chunks, 2)
	assert.Equal(t, p1+"\n\n"+p2, chunks[0])
	assert.Equal(t, p3, chunks[1])
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 130)
	}
}

func TestFormatForChannelSentenceFallback(t *testing.T) {
	sentences := make([]string, 6)
	for i := range sentences {
		sentences[i] = strings.Repeat("x", 50) + "."
	}
	// One long paragraph with no blank lines.
	text := strings.Join(sentences, " ")

	chunks := FormatForChannel(text, 120)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 120)
		// Splits happen at sentence boundaries.
		assert.True(t, strings.HasSuffix(c, "."), "chunk should end at a sentence boundary: %q", c)
	}
	assert.Equal(t, strings.Count(text, "."), strings.Count(strings.Join(chunks, " "), "."))
}

func TestFormatForChannelHardCutsGiantSentence(t *testing.T) {
	text := strings.Repeat("y", 300)
	chunks := FormatForChannel(text, 100)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}
