package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedDisabledReturnsInner(t *testing.T) {
	inner := &fakeProvider{name: "openai", model: "m"}
	assert.Same(t, inner, NewRateLimited(inner, 0, 0))
}

func TestRateLimitedDelegatesWithinBudget(t *testing.T) {
	inner := &fakeProvider{name: "openai", model: "m"}
	limited := NewRateLimited(inner, 100, 10)

	vectors, err := limited.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 2, limited.Dimension())
}

func TestRateLimitedCancelledContext(t *testing.T) {
	inner := &fakeProvider{name: "openai", model: "m"}
	limited := NewRateLimited(inner, 100, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limited.Embed(ctx, "text")
	require.Error(t, err)
	assert.Equal(t, 0, inner.calls)
}
