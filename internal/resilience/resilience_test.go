package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	policy := Policy{Kind: BackoffImmediate, MaxAttempts: 5, ShouldRetry: func(error) bool { return true }}
	result, err := Retry(context.Background(), policy, func(attempt int) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Value)
	assert.Equal(t, 3, result.Attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := Policy{Kind: BackoffImmediate, MaxAttempts: 2}
	_, err := Retry(context.Background(), policy, func(attempt int) (string, error) {
		return "", errors.New("always fails")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxAttemptsExhausted)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	policy := Policy{Kind: BackoffImmediate, MaxAttempts: 5, ShouldRetry: func(error) bool { return false }}
	_, err := Retry(context.Background(), policy, func(attempt int) (string, error) {
		calls++
		return "", errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicySanitizesInvalidValues(t *testing.T) {
	p := Policy{MaxAttempts: 0, InitialDelay: -1, MaxDelay: 0, Factor: 0}.sanitize()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Greater(t, p.InitialDelay, time.Duration(0))
	assert.Greater(t, p.MaxDelay, time.Duration(0))
	assert.Greater(t, p.Factor, 1.0)
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.False(t, cb.Allow())
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreakerHalfOpenThenCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: 5 * time.Millisecond})
	cb.RecordFailure()
	assert.Equal(t, Open, cb.State())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, HalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: 5 * time.Millisecond})
	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, HalfOpen, cb.State())
	cb.RecordFailure()
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreakerExecuteReturnsErrCircuitOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	cb.RecordFailure()
	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestRateLimiterSanitizesZeroConfig(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	assert.True(t, rl.Allow())
}

func TestFallbackChainReturnsFirstSuccess(t *testing.T) {
	chain := NewFallbackChain(nil,
		func(ctx context.Context) (string, error) { return "", errors.New("fail1") },
		func(ctx context.Context) (string, error) { return "second", nil },
	)
	val, err := chain.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", val)
}

func TestFallbackChainAllFailReturnsError(t *testing.T) {
	chain := NewFallbackChain(nil,
		func(ctx context.Context) (string, error) { return "", errors.New("fail1") },
		func(ctx context.Context) (string, error) { return "", errors.New("fail2") },
	)
	_, err := chain.Run(context.Background())
	require.Error(t, err)
}

func TestClassifyBucketsKnownPatterns(t *testing.T) {
	assert.Equal(t, ClassRateLimit, Classify(errors.New("429 too many requests")))
	assert.Equal(t, ClassAuth, Classify(errors.New("401 unauthorized")))
	assert.True(t, IsRetryable(errors.New("503 server error")))
	assert.True(t, ShouldFailover(errors.New("invalid api key")))
}
