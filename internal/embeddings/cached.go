package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ragd/internal/cache"
)

// maxProviderBatch bounds the number of texts per provider batch call.
const maxProviderBatch = 100

// Cached decorates a Provider with the content-addressed embedding cache.
//
// Every call consults the cache first; misses are grouped into
// provider-native batch calls of at most maxProviderBatch texts, minimizing
// round-trips. The cache is advisory and never fails a request.
type Cached struct {
	inner   Provider
	store   cache.Store
	metrics *Metrics
}

// NewCached wraps provider with the given cache store. metrics may be nil.
func NewCached(provider Provider, store cache.Store, metrics *Metrics) *Cached {
	if store == nil {
		store = cache.Noop{}
	}
	return &Cached{inner: provider, store: store, metrics: metrics}
}

// Embed returns the cached vector for text, generating and caching it on
// miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(c.inner.Name(), c.inner.Model(), text)
	if vector, ok := c.store.Get(ctx, key); ok {
		c.metrics.recordCache(ctx, true)
		return vector, nil
	}
	c.metrics.recordCache(ctx, false)

	start := time.Now()
	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		c.metrics.recordError(ctx, "embed")
		return nil, err
	}
	c.metrics.recordGeneration(ctx, "embed", 1, time.Since(start))

	c.store.Put(ctx, key, vector)
	return vector, nil
}

// EmbedBatch returns embeddings for texts in input order. Cached vectors are
// reused; only misses reach the provider, batched in groups.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int

	for i, text := range texts {
		keys[i] = cache.Key(c.inner.Name(), c.inner.Model(), text)
		if vector, ok := c.store.Get(ctx, keys[i]); ok {
			c.metrics.recordCache(ctx, true)
			vectors[i] = vector
			continue
		}
		c.metrics.recordCache(ctx, false)
		missIdx = append(missIdx, i)
	}

	for lo := 0; lo < len(missIdx); lo += maxProviderBatch {
		hi := lo + maxProviderBatch
		if hi > len(missIdx) {
			hi = len(missIdx)
		}
		batch := missIdx[lo:hi]

		missing := make([]string, len(batch))
		for j, i := range batch {
			missing[j] = texts[i]
		}

		start := time.Now()
		generated, err := c.inner.EmbedBatch(ctx, missing)
		if err != nil {
			c.metrics.recordError(ctx, "embed_batch")
			return nil, err
		}
		if len(generated) != len(missing) {
			c.metrics.recordError(ctx, "embed_batch")
			return nil, fmt.Errorf("provider %s returned %d vectors for %d texts",
				c.inner.Name(), len(generated), len(missing))
		}
		c.metrics.recordGeneration(ctx, "embed_batch", len(missing), time.Since(start))

		for j, i := range batch {
			vectors[i] = generated[j]
			c.store.Put(ctx, keys[i], generated[j])
		}
	}

	return vectors, nil
}

// Dimension returns the inner provider's dimensionality.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Name returns the inner provider's identity.
func (c *Cached) Name() string { return c.inner.Name() }

// Model returns the inner provider's model.
func (c *Cached) Model() string { return c.inner.Model() }

var _ Provider = (*Cached)(nil)
