package chunker

import "strings"

// sentenceDelimiter is the split heuristic. It is deliberately simple and
// known to be fragile around abbreviations and non-Latin punctuation; the
// overlap seeding compensates for most boundary damage.
const sentenceDelimiter = ". "

// Chunker splits text into token-bounded chunks with character-approximated
// overlap.
type Chunker struct {
	chunkSize int
	overlap   int
	counter   TokenCounter
}

// New creates a Chunker. chunkSize and overlap are measured in tokens;
// counter may be nil, in which case the four-chars-per-token Estimator is
// used.
func New(chunkSize, overlap int, counter TokenCounter) *Chunker {
	if counter == nil {
		counter = Estimator{}
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		counter:   counter,
	}
}

// Split breaks text into chunks. Empty or whitespace-only input yields nil.
//
// Sentences are packed greedily until adding the next one would exceed the
// chunk size. A sentence that alone exceeds the budget is kept whole rather
// than split mid-sentence, trading strict size bounds for coherence.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	currentTokens := 0

	for _, sentence := range sentences {
		sentenceTokens := c.counter.Count(sentence)

		if currentTokens > 0 && currentTokens+sentenceTokens > c.chunkSize {
			closed := strings.TrimSpace(current.String())
			if closed != "" {
				chunks = append(chunks, closed)
			}
			current.Reset()

			// Seed the next chunk with the tail of the previous one,
			// approximating token overlap by trailing characters.
			if c.overlap > 0 {
				current.WriteString(overlapTail(closed, c.overlap*charsPerToken))
			}
			currentTokens = c.counter.Count(current.String())
		}

		current.WriteString(sentence)
		currentTokens += sentenceTokens
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// splitSentences applies the delimiter heuristic, restoring the terminator
// on each fragment and dropping empties.
func splitSentences(text string) []string {
	parts := strings.Split(text, sentenceDelimiter)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasSuffix(part, ".") && !strings.HasSuffix(part, "!") && !strings.HasSuffix(part, "?") {
			part += "."
		}
		sentences = append(sentences, part+" ")
	}
	return sentences
}

// overlapTail returns at most n trailing characters of s, extended left to
// the previous word boundary so the seed does not begin mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s + " "
	}
	tail := string(runes[len(runes)-n:])
	if i := strings.IndexByte(tail, ' '); i >= 0 && i+1 < len(tail) {
		tail = tail[i+1:]
	}
	return tail + " "
}
