// Package resilience composes retry policies, a circuit breaker, a token-
// bucket rate limiter, and fallback chains around any failable operation.
//
// Grounded on internal/backoff (generic RetryWithBackoff/BackoffPolicy),
// internal/agent/failover.go (ProviderState circuit-breaker fields and
// classify-then-decide retry shape), and internal/ratelimit (hand-rolled
// token bucket, replaced here by golang.org/x/time/rate — the same library
// goadesign-goa-ai's adaptive rate limiter middleware wraps).
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrMaxAttemptsExhausted is returned when Retry exhausts all attempts
// without a successful call.
var ErrMaxAttemptsExhausted = errors.New("resilience: max retry attempts exhausted")

// BackoffKind selects the delay shape between retry attempts.
type BackoffKind int

const (
	BackoffFixed BackoffKind = iota
	BackoffLinear
	BackoffExponential
	BackoffDecorrelatedJitter
	BackoffImmediate
	BackoffCustom
)

// Policy configures a Retry call. InitialDelay/MaxDelay/Factor drive the
// built-in BackoffKinds; CustomFn drives BackoffCustom. Jitter adds up to
// Jitter*delay of uniform random noise (except for DecorrelatedJitter, which
// is jittered by construction).
type Policy struct {
	Kind         BackoffKind
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	Jitter       float64
	CustomFn     func(attempt int) time.Duration
	ShouldRetry  func(error) bool
}

// DefaultPolicy mirrors internal/backoff.DefaultPolicy's constants
// (100ms initial, 30s max, factor 2, 10% jitter), generalized to this
// package's Policy shape.
func DefaultPolicy() Policy {
	return Policy{
		Kind:         BackoffExponential,
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		Jitter:       0.1,
		ShouldRetry:  func(error) bool { return true },
	}
}

// sanitize clamps invalid configuration to safe defaults rather than letting
// a zero/negative value produce a zero-delay busy loop or an infinite retry.
func (p Policy) sanitize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Factor <= 1 {
		p.Factor = 2
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = func(error) bool { return true }
	}
	return p
}

// Delay computes the delay before the given attempt (1-indexed, the delay
// taken *after* that attempt fails and before the next one).
func (p Policy) Delay(attempt int, prevDelay time.Duration) time.Duration {
	p = p.sanitize()
	switch p.Kind {
	case BackoffImmediate:
		return 0
	case BackoffFixed:
		return p.InitialDelay
	case BackoffLinear:
		d := time.Duration(int64(p.InitialDelay) * int64(attempt))
		return clampJitter(d, p.MaxDelay, p.Jitter)
	case BackoffExponential:
		d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Factor, float64(attempt-1)))
		return clampJitter(d, p.MaxDelay, p.Jitter)
	case BackoffDecorrelatedJitter:
		base := prevDelay
		if base <= 0 {
			base = p.InitialDelay
		}
		upper := int64(float64(base) * p.Factor * 3)
		if upper <= int64(p.InitialDelay) {
			upper = int64(p.InitialDelay) + 1
		}
		d := time.Duration(int64(p.InitialDelay) + rand.Int63n(upper-int64(p.InitialDelay)+1))
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
		return d
	case BackoffCustom:
		if p.CustomFn != nil {
			return p.CustomFn(attempt)
		}
		return p.InitialDelay
	default:
		return p.InitialDelay
	}
}

func clampJitter(d, max time.Duration, jitter float64) time.Duration {
	if d > max {
		d = max
	}
	if jitter > 0 {
		spread := float64(d) * jitter
		d = d + time.Duration(rand.Float64()*2*spread-spread)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// Result carries the outcome of a Retry call, matching backoff.RetryResult's
// shape (value, attempt count, last error) but without requiring generics at
// the call site for non-generic callers.
type Result[T any] struct {
	Value     T
	Attempts  int
	LastError error
}

// Retry runs fn, retrying according to policy until it succeeds, the
// context is cancelled, or attempts are exhausted.
func Retry[T any](ctx context.Context, policy Policy, fn func(attempt int) (T, error)) (Result[T], error) {
	policy = policy.sanitize()
	var result Result[T]
	var prevDelay time.Duration

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result.Attempts = attempt
		if err := ctx.Err(); err != nil {
			return result, err
		}

		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			return result, nil
		}
		result.LastError = err

		if !policy.ShouldRetry(err) {
			return result, err
		}
		if attempt >= policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt, prevDelay)
		prevDelay = delay
		if delay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return result, ErrMaxAttemptsExhausted
}
