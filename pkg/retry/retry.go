// Package retry executes operations with bounded retry attempts and backoff.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// Config controls retry behaviour for a single Do call.
type Config struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration
	// BackoffMultiplier grows the delay after each failed attempt.
	// Values below 1 are treated as 1 (constant delay).
	BackoffMultiplier float64
	// RetryableErrors, when non-empty, restricts retries to errors whose
	// message contains one of the listed substrings. Non-matching errors
	// are returned immediately without consuming further attempts.
	RetryableErrors []string
	// Name labels the operation in logs.
	Name string
}

// Operation is the retried unit of work. It may be invoked more than once;
// callers must ensure idempotency or side-effect tolerance.
type Operation func(ctx context.Context) error

// Do runs op, retrying per cfg until it succeeds, exhausts MaxAttempts, the
// error is non-retryable, or ctx is cancelled. The last error is returned.
func Do(ctx context.Context, logger *slog.Logger, cfg Config, op Operation) error {
	return run(ctx, logger, cfg, op, false)
}

// DoWithJitter behaves like Do but adds a uniform random component in
// [0, currentDelay) to every wait so callers retrying in lockstep
// desynchronize.
func DoWithJitter(ctx context.Context, logger *slog.Logger, cfg Config, op Operation) error {
	return run(ctx, logger, cfg, op, true)
}

func run(ctx context.Context, logger *slog.Logger, cfg Config, op Operation, jitter bool) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	multiplier := cfg.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := cfg.InitialDelay

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr, cfg.RetryableErrors) {
			logger.DebugContext(ctx, "Error is not retryable, giving up",
				"operation", cfg.Name, "error", lastErr)

			return lastErr
		}

		if attempt == attempts {
			break
		}

		wait := delay
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		if jitter && wait > 0 {
			wait += time.Duration(rand.Int64N(int64(wait)))
			if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
				wait = cfg.MaxDelay
			}
		}

		logger.DebugContext(ctx, "Operation failed, retrying",
			"operation", cfg.Name,
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", wait,
			"error", lastErr)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * multiplier)
	}

	logger.WarnContext(ctx, "Operation failed after all attempts",
		"operation", cfg.Name, "attempts", attempts, "error", lastErr)

	return lastErr
}

func isRetryable(err error, retryable []string) bool {
	if len(retryable) == 0 {
		return true
	}

	message := err.Error()
	for _, substr := range retryable {
		if strings.Contains(message, substr) {
			return true
		}
	}

	return false
}
