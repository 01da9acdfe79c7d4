package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState is one of the three states a CircuitBreaker can occupy.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned by Execute when the breaker is Open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// CircuitBreakerConfig configures state transition thresholds. Invalid
// values (zero or negative) are sanitized to conservative defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip Closed -> Open
	SuccessThreshold int           // consecutive successes to close HalfOpen -> Closed
	ResetTimeout     time.Duration // Open -> HalfOpen after this elapses
}

func (c CircuitBreakerConfig) sanitize() CircuitBreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	return c
}

// CircuitBreaker implements the Closed -> Open -> HalfOpen -> Closed/Open
// state machine described for the resilience layer, generalized from
// internal/agent/failover.go's per-provider ProviderState/IsAvailable pair
// into a standalone, reusable primitive.
type CircuitBreaker struct {
	mu               sync.Mutex
	config           CircuitBreakerConfig
	state            CircuitState
	consecutiveFails int
	consecutiveOK    int
	openedAt         time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config.sanitize(), state: Closed}
}

// State returns the breaker's current state, advancing Open -> HalfOpen if
// the reset timeout has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

func (b *CircuitBreaker) maybeHalfOpen() {
	if b.state == Open && time.Since(b.openedAt) >= b.config.ResetTimeout {
		b.state = HalfOpen
		b.consecutiveOK = 0
	}
}

// Allow reports whether a call should be let through right now.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state != Open
}

// RecordSuccess reports a successful call outcome.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	switch b.state {
	case HalfOpen:
		b.consecutiveOK++
		if b.consecutiveOK >= b.config.SuccessThreshold {
			b.state = Closed
			b.consecutiveOK = 0
		}
	case Open:
		// Should not normally happen (Allow gates calls), but a success
		// always means the breaker can reset.
		b.state = Closed
	}
}

// RecordFailure reports a failed call outcome.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.trip()
	case Closed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.config.FailureThreshold {
			b.trip()
		}
	}
}

func (b *CircuitBreaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.consecutiveFails = 0
	b.consecutiveOK = 0
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}
