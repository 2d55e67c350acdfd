package retry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := Do(context.Background(), testLogger(), Config{MaxAttempts: 3}, func(ctx context.Context) error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0

	err := Do(context.Background(), testLogger(), Config{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient failure")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	opErr := errors.New("still broken")

	err := Do(context.Background(), testLogger(), Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func(ctx context.Context) error {
		calls++

		return opErr
	})

	require.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls)
}

func TestDoNonRetryableReturnsImmediately(t *testing.T) {
	calls := 0

	err := Do(context.Background(), testLogger(), Config{
		MaxAttempts:     5,
		InitialDelay:    time.Millisecond,
		RetryableErrors: []string{"timeout", "connection refused"},
	}, func(ctx context.Context) error {
		calls++

		return errors.New("invalid credentials")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable error must not consume retries")
}

func TestDoRetryableSubstringMatch(t *testing.T) {
	calls := 0

	err := Do(context.Background(), testLogger(), Config{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		RetryableErrors: []string{"timeout"},
	}, func(ctx context.Context) error {
		calls++

		return errors.New("dial tcp: i/o timeout")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, testLogger(), Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		cancel()

		return errors.New("failing")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithJitterRespectsMaxDelay(t *testing.T) {
	cfg := Config{
		MaxAttempts:       4,
		InitialDelay:      2 * time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 10,
	}

	start := time.Now()

	err := DoWithJitter(context.Background(), testLogger(), cfg, func(ctx context.Context) error {
		return errors.New("failing")
	})

	elapsed := time.Since(start)

	require.Error(t, err)
	// Three waits, each capped at MaxDelay even after jitter.
	assert.Less(t, elapsed, 3*cfg.MaxDelay+100*time.Millisecond)
}

func TestDoWithJitterVariesDelays(t *testing.T) {
	cfg := Config{
		MaxAttempts:  9,
		InitialDelay: 10 * time.Millisecond,
	}

	var calls []time.Time

	err := DoWithJitter(context.Background(), testLogger(), cfg, func(ctx context.Context) error {
		calls = append(calls, time.Now())

		return errors.New("failing")
	})

	require.Error(t, err)
	require.Len(t, calls, cfg.MaxAttempts)

	minGap := time.Hour
	maxGap := time.Duration(0)

	for i := 1; i < len(calls); i++ {
		gap := calls[i].Sub(calls[i-1])
		assert.GreaterOrEqual(t, gap, cfg.InitialDelay, "jitter only adds to the base delay")

		if gap < minGap {
			minGap = gap
		}

		if gap > maxGap {
			maxGap = gap
		}
	}

	// Eight uniform draws from a 10ms jitter window landing within 2ms of
	// each other is vanishingly unlikely.
	assert.Greater(t, maxGap-minGap, 2*time.Millisecond, "jittered waits must not all be equal")
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0

	err := Do(context.Background(), testLogger(), Config{}, func(ctx context.Context) error {
		calls++

		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
