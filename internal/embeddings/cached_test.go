package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns deterministic vectors and counts provider calls.
type fakeProvider struct {
	mu         sync.Mutex
	calls      int
	batchSizes []int
	name       string
	model      string
	failWith   error
	dropLast   bool
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.failWith != nil {
		return nil, f.failWith
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), float32(i)}
	}
	if f.dropLast && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, nil
}

func (f *fakeProvider) Dimension() int { return 2 }
func (f *fakeProvider) Name() string   { return f.name }
func (f *fakeProvider) Model() string  { return f.model }

// mapStore is an in-memory cache.Store for tests.
type mapStore struct {
	mu   sync.Mutex
	data map[string][]float32
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string][]float32)} }

func (s *mapStore) Get(_ context.Context, key string) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *mapStore) Put(_ context.Context, key string, vector []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = vector
}

func TestCachedEmbedSingleProviderCall(t *testing.T) {
	provider := &fakeProvider{name: "openai", model: "test-model"}
	cached := NewCached(provider, newMapStore(), nil)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	second, err := cached.Embed(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls, "second call must be served from cache")
}

func TestCachedProviderNamespacing(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()

	openaiProvider := &fakeProvider{name: "openai", model: "a"}
	geminiProvider := &fakeProvider{name: "gemini", model: "b"}

	_, err := NewCached(openaiProvider, store, nil).Embed(ctx, "same text")
	require.NoError(t, err)

	_, err = NewCached(geminiProvider, store, nil).Embed(ctx, "same text")
	require.NoError(t, err)

	// The second configuration must not see the first one's cache entry.
	assert.Equal(t, 1, openaiProvider.calls)
	assert.Equal(t, 1, geminiProvider.calls)
}

func TestCachedEmbedBatchPreservesOrder(t *testing.T) {
	provider := &fakeProvider{name: "openai", model: "m"}
	store := newMapStore()
	cached := NewCached(provider, store, nil)
	ctx := context.Background()

	texts := []string{"a", "bb", "ccc", "dddd"}

	// Warm the cache for two of the four texts.
	_, err := cached.Embed(ctx, "bb")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "dddd")
	require.NoError(t, err)

	vectors, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Position i corresponds to texts[i]: the fake encodes len(text) in
	// the first component.
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestCachedEmbedBatchGroupsMisses(t *testing.T) {
	provider := &fakeProvider{name: "openai", model: "m"}
	cached := NewCached(provider, newMapStore(), nil)

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = fmt.Sprintf("text number %d", i)
	}

	_, err := cached.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	// 250 misses split into provider batches of at most 100.
	assert.Equal(t, 3, provider.calls)
	assert.Equal(t, []int{100, 100, 50}, provider.batchSizes)
}

func TestCachedEmbedBatchAllHitsSkipProvider(t *testing.T) {
	provider := &fakeProvider{name: "openai", model: "m"}
	cached := NewCached(provider, newMapStore(), nil)
	ctx := context.Background()

	texts := []string{"x", "y"}
	_, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	callsAfterWarm := provider.calls

	_, err = cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	assert.Equal(t, callsAfterWarm, provider.calls)
}

func TestCachedErrorPropagatesUnmodified(t *testing.T) {
	providerErr := errors.New("rate limited")
	provider := &fakeProvider{name: "openai", model: "m", failWith: providerErr}
	cached := NewCached(provider, newMapStore(), nil)

	_, err := cached.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, providerErr)

	_, err = cached.EmbedBatch(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, providerErr)
}

func TestCachedShortProviderResponseRejected(t *testing.T) {
	provider := &fakeProvider{name: "openai", model: "m", dropLast: true}
	cached := NewCached(provider, newMapStore(), nil)

	vectors, err := cached.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	assert.Error(t, err)
	assert.Nil(t, vectors)
}

func TestCachedEmptyBatchRejected(t *testing.T) {
	cached := NewCached(&fakeProvider{name: "p", model: "m"}, newMapStore(), nil)
	_, err := cached.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNilStoreDegradesToNoop(t *testing.T) {
	provider := &fakeProvider{name: "p", model: "m"}
	cached := NewCached(provider, nil, nil)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "text")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "noop cache never hits")
}
