package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) (*Pool, *MemoryQueue) {
	t.Helper()

	q := NewMemoryQueue()
	pool := NewPool(q, slog.New(slog.DiscardHandler))
	pool.pollInterval = 10 * time.Millisecond

	return pool, q
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("condition not met within timeout")
}

func TestPoolRunsRegisteredHandler(t *testing.T) {
	pool, q := newTestPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu        sync.Mutex
		processed []string
	)

	pool.Register(QueueEmail, JobTypeSendEmail, func(_ context.Context, job *Job) error {
		mu.Lock()
		defer mu.Unlock()

		processed = append(processed, job.ID)

		return nil
	})

	job, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, map[string]any{"to": "a@clinic.test"}, nil)
	require.NoError(t, err)

	pool.Start(ctx)

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(processed) == 1
	})

	mu.Lock()
	assert.Equal(t, []string{job.ID}, processed)
	mu.Unlock()

	cancel()
	pool.Wait()
}

func TestPoolRetriesFailingHandler(t *testing.T) {
	pool, q := newTestPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		attempts int
	)

	pool.Register(QueueEmail, JobTypeSendEmail, func(context.Context, *Job) error {
		mu.Lock()
		defer mu.Unlock()

		attempts++

		return errors.New("smtp unavailable")
	})

	// Exhaust quickly: one allowed attempt, then the job archives as failed.
	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, &Options{Attempts: 1})
	require.NoError(t, err)

	pool.Start(ctx)

	waitFor(t, 2*time.Second, func() bool {
		failed, err := q.FailedJobs(ctx, QueueEmail, 10)

		return err == nil && len(failed) == 1
	})

	failed, err := q.FailedJobs(ctx, QueueEmail, 10)
	require.NoError(t, err)
	assert.Equal(t, "smtp unavailable", failed[0].LastError)

	mu.Lock()
	assert.Equal(t, 1, attempts)
	mu.Unlock()

	cancel()
	pool.Wait()
}

func TestPoolArchivesUnroutableJob(t *testing.T) {
	pool, q := newTestPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Register(QueueEmail, JobTypeSendEmail, func(context.Context, *Job) error {
		return nil
	})

	_, err := q.Enqueue(ctx, QueueEmail, "email.unknown", nil, nil)
	require.NoError(t, err)

	pool.Start(ctx)

	waitFor(t, 2*time.Second, func() bool {
		failed, err := q.FailedJobs(ctx, QueueEmail, 10)

		return err == nil && len(failed) == 1
	})

	failed, err := q.FailedJobs(ctx, QueueEmail, 10)
	require.NoError(t, err)
	assert.Contains(t, failed[0].LastError, "no handler registered")

	cancel()
	pool.Wait()
}

func TestPoolRecoversHandlerPanic(t *testing.T) {
	pool, q := newTestPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool.Register(QueueEmail, JobTypeSendEmail, func(context.Context, *Job) error {
		panic("boom")
	})

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, &Options{Attempts: 1})
	require.NoError(t, err)

	pool.Start(ctx)

	waitFor(t, 2*time.Second, func() bool {
		failed, err := q.FailedJobs(ctx, QueueEmail, 10)

		return err == nil && len(failed) == 1
	})

	failed, err := q.FailedJobs(ctx, QueueEmail, 10)
	require.NoError(t, err)
	assert.Contains(t, failed[0].LastError, "panicked")

	cancel()
	pool.Wait()
}
