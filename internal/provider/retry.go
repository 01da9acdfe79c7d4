package provider

import (
	"context"
	"time"
)

// RetryingProvider wraps an InferenceProvider with linear backoff retry on
// transient failures, mirroring internal/agent/providers.BaseProvider's
// Retry helper.
type RetryingProvider struct {
	InferenceProvider
	MaxRetries  int
	RetryDelay  time.Duration
	IsRetryable func(error) bool
}

// NewRetryingProvider wraps p with sane retry defaults, matching
// NewBaseProvider's (3 retries, 1s delay) fallback when given non-positive
// values.
func NewRetryingProvider(p InferenceProvider, maxRetries int, retryDelay time.Duration, isRetryable func(error) bool) *RetryingProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &RetryingProvider{InferenceProvider: p, MaxRetries: maxRetries, RetryDelay: retryDelay, IsRetryable: isRetryable}
}

func (r *RetryingProvider) Generate(ctx context.Context, req Request) (Response, error) {
	var resp Response
	err := r.retry(ctx, func() error {
		var err error
		resp, err = r.InferenceProvider.Generate(ctx, req)
		return err
	})
	return resp, err
}

func (r *RetryingProvider) retry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if r.IsRetryable == nil || !r.IsRetryable(err) {
			return err
		}
		if attempt >= r.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.RetryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}
