package generation

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the inner provider to stay within API
// quotas.
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

// Generate waits for limiter capacity, then delegates.
func (r *RateLimited) Generate(ctx context.Context, messages []Message) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generation rate limit: %w", err)
	}
	return r.inner.Generate(ctx, messages)
}

// GenerateStream waits for limiter capacity, then delegates.
func (r *RateLimited) GenerateStream(ctx context.Context, messages []Message, fn StreamFunc) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("generation rate limit: %w", err)
	}
	return r.inner.GenerateStream(ctx, messages, fn)
}

// Name returns the inner provider's identity.
func (r *RateLimited) Name() string { return r.inner.Name() }

// Model returns the inner provider's model.
func (r *RateLimited) Model() string { return r.inner.Model() }

var _ Provider = (*RateLimited)(nil)
