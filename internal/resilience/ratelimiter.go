package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a token-bucket RateLimiter. Invalid values
// are sanitized rather than left to produce a limiter that never admits a
// request.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func (c RateLimiterConfig) sanitize() RateLimiterConfig {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = int(c.RequestsPerSecond * 2)
		if c.Burst <= 0 {
			c.Burst = 1
		}
	}
	return c
}

// RateLimiter wraps golang.org/x/time/rate.Limiter, the same dependency
// goadesign-goa-ai's adaptive provider-rate-limiter middleware builds on,
// replacing internal/ratelimit's hand-rolled Bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config = config.sanitize()
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)}
}

// Allow reports whether a single request may proceed right now, consuming a
// token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// WaitN blocks until n tokens are available or ctx is cancelled.
func (r *RateLimiter) WaitN(ctx context.Context, n int) error {
	return r.limiter.WaitN(ctx, n)
}

// SetLimit adjusts the refill rate in place (used by adaptive callers that
// widen or narrow the budget in response to observed throttling).
func (r *RateLimiter) SetLimit(requestsPerSecond float64) {
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// SetBurst adjusts the bucket's burst capacity in place.
func (r *RateLimiter) SetBurst(burst int) {
	r.limiter.SetBurst(burst)
}
