package chunker

import "unicode/utf8"

// TokenCounter reports the token count of a text for a specific model.
//
// Providers with native tokenizers can supply their own implementation;
// Estimator is the fallback when none is available.
type TokenCounter interface {
	Count(text string) int
}

// charsPerToken is the rough character-to-token ratio used when no
// provider tokenizer is available.
const charsPerToken = 4

// Estimator approximates token counts at four characters per token.
type Estimator struct{}

// Count returns the estimated token count, rounding up so short texts
// never count as zero tokens.
func (Estimator) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}
