package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorCount(t *testing.T) {
	e := Estimator{}
	assert.Equal(t, 0, e.Count(""))
	assert.Equal(t, 1, e.Count("abc"))
	assert.Equal(t, 1, e.Count("abcd"))
	assert.Equal(t, 2, e.Count("abcde"))
}

func TestSplitEmptyInput(t *testing.T) {
	c := New(100, 10, nil)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitSingleShortText(t *testing.T) {
	c := New(100, 0, nil)
	chunks := c.Split("The store opens at nine. We close at five.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "opens at nine")
	assert.Contains(t, chunks[0], "close at five")
}

func TestSplitRespectsTokenBudget(t *testing.T) {
	// 40 sentences of ~10 tokens each against a 25-token budget.
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Sentence number %d has a fixed size here. ", i)
	}

	const chunkSize = 25
	c := New(chunkSize, 0, nil)
	chunks := c.Split(sb.String())
	require.Greater(t, len(chunks), 1)

	counter := Estimator{}
	for i, chunk := range chunks {
		assert.LessOrEqual(t, counter.Count(chunk), chunkSize, "chunk %d over budget", i)
	}
}

func TestSplitKeepsOversizedSentenceWhole(t *testing.T) {
	long := "This single sentence is far longer than the whole chunk budget allows and must still be kept in one piece"
	text := "Short one. " + long + ". Short two."

	c := New(10, 0, nil)
	chunks := c.Split(text)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, "kept in one piece") {
			found = true
			assert.Contains(t, chunk, "far longer than the whole chunk budget")
		}
	}
	assert.True(t, found, "oversized sentence must survive intact")
}

func TestSplitReconstructsSentenceSequence(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Fact %d is recorded in the knowledge base. ", i)
	}
	original := sb.String()

	c := New(20, 0, nil)
	chunks := c.Split(original)
	require.NotEmpty(t, chunks)

	// With zero overlap, concatenating the chunks preserves the original
	// sentence sequence.
	joined := strings.Join(chunks, " ")
	for i := 0; i < 30; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Fact %d is recorded", i))
	}
	assert.Equal(t, 30, strings.Count(joined, "recorded in the knowledge base"))
}

func TestSplitOverlapSeedsNextChunk(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Sentence number %d carries some payload text. ", i)
	}

	c := New(20, 5, nil)
	chunks := c.Split(sb.String())
	require.Greater(t, len(chunks), 1)

	// Every chunk after the first starts with text from the end of its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		seed := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], seed, "chunk %d not seeded from predecessor", i)
	}
}

func TestSplitNewlinesCollapsed(t *testing.T) {
	c := New(100, 0, nil)
	chunks := c.Split("First line. \nSecond line. \nThird line.")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0], "\n")
}

type fixedCounter struct{ n int }

func (f fixedCounter) Count(string) int { return f.n }

func TestSplitCustomCounter(t *testing.T) {
	// Every sentence counts as 7 tokens: budget of 14 packs exactly two.
	c := New(14, 0, fixedCounter{n: 7})
	chunks := c.Split("One. Two. Three. Four. Five. Six.")
	require.Len(t, chunks, 3)
}
