// Package breaker provides in-memory circuit breakers that gate calls to
// failing dependencies. Breaker state is intentionally ephemeral: a process
// restart resets every breaker to closed.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// ErrOpen is returned by Execute when the breaker rejects a call without
// invoking the wrapped function.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a circuit breaker.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// closed breaker.
	FailureThreshold int
	// SuccessThreshold is the consecutive-success count that closes a
	// half-open breaker.
	SuccessThreshold int
	// Timeout is how long an open breaker rejects calls before allowing
	// a trial call (half-open).
	Timeout time.Duration
}

// DefaultConfig matches the defaults used for outbound webhook delivery.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Stats is a read-only snapshot of breaker counters.
type Stats struct {
	Name         string    `json:"name"`
	State        State     `json:"state"`
	FailureCount int       `json:"failure_count"`
	SuccessCount int       `json:"success_count"`
	NextAttempt  time.Time `json:"next_attempt"`
}

// CircuitBreaker wraps a potentially-failing call. Safe for concurrent use.
type CircuitBreaker struct {
	name   string
	config Config
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	nextAttempt  time.Time
	now          func() time.Time
}

// New creates a closed circuit breaker.
func New(name string, config Config, logger *slog.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}

	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultConfig().SuccessThreshold
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
		logger: logger.With("module", "circuit_breaker", "breaker", name),
	}
}

// Execute runs fn through the breaker. While open it rejects immediately
// with ErrOpen; the open-to-half-open transition happens lazily on the first
// Execute call after the timeout elapses.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(ctx); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(ctx, err)

	return err
}

func (cb *CircuitBreaker) beforeCall(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			return fmt.Errorf("%w: %s", ErrOpen, cb.name)
		}

		cb.state = StateHalfOpen
		cb.successCount = 0
		cb.logger.InfoContext(ctx, "Circuit breaker transitioning to half-open")
	}

	return nil
}

func (cb *CircuitBreaker) afterCall(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure(ctx)

		return
	}

	cb.onSuccess(ctx)
}

func (cb *CircuitBreaker) onSuccess(ctx context.Context) {
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
			cb.logger.InfoContext(ctx, "Circuit breaker closed")
		}
	case StateOpen:
		// Unreachable: open calls are rejected in beforeCall.
	}
}

func (cb *CircuitBreaker) onFailure(ctx context.Context) {
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.trip(ctx)
		}
	case StateHalfOpen:
		cb.trip(ctx)
	case StateOpen:
	}
}

func (cb *CircuitBreaker) trip(ctx context.Context) {
	cb.state = StateOpen
	cb.successCount = 0
	cb.nextAttempt = cb.now().Add(cb.config.Timeout)
	cb.logger.WarnContext(ctx, "Circuit breaker opened",
		"failure_count", cb.failureCount,
		"next_attempt", cb.nextAttempt)
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
		NextAttempt:  cb.nextAttempt,
	}
}

// Reset forces the breaker closed with zero counters. Intended for operator
// intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.nextAttempt = time.Time{}
}
