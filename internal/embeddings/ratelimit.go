package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the inner provider to stay within API
// quotas. Place it under the cache decorator so hits skip the limiter.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited wraps provider with a limiter allowing rps sustained calls
// per second and the given burst. rps <= 0 disables throttling and returns
// provider unchanged.
func NewRateLimited(provider Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return provider
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		inner:   provider,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for limiter capacity, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch waits for limiter capacity, then delegates. One batch call
// consumes one token regardless of size.
func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.inner.EmbedBatch(ctx, texts)
}

// Dimension returns the inner provider's dimensionality.
func (r *RateLimited) Dimension() int { return r.inner.Dimension() }

// Name returns the inner provider's identity.
func (r *RateLimited) Name() string { return r.inner.Name() }

// Model returns the inner provider's model.
func (r *RateLimited) Model() string { return r.inner.Model() }

var _ Provider = (*RateLimited)(nil)
