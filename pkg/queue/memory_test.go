package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, map[string]any{"to": "a@clinic.test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxAttempts, "email queue default attempts")

	got, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, JobStatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempts)

	empty, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, empty, "empty queue returns nil, nil")
}

func TestMemoryQueuePriorityOrdering(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	low, err := q.Enqueue(ctx, QueueReminders, JobTypeSendReminder, nil, &Options{Priority: 10})
	require.NoError(t, err)

	high, err := q.Enqueue(ctx, QueueReminders, JobTypeSendReminder, nil, &Options{Priority: 1})
	require.NoError(t, err)

	first, err := q.Dequeue(ctx, QueueReminders)
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID, "lower priority value dequeues first")

	second, err := q.Dequeue(ctx, QueueReminders)
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)
}

func TestMemoryQueueDelayedJobNotEligible(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, &Options{Delay: time.Hour})
	require.NoError(t, err)

	got, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, got, "delayed job must not be dequeued before run_at")
}

func TestMemoryQueueFailReschedulesWithBackoff(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, nil)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, q.Fail(ctx, job, errors.New("smtp unavailable")))

	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, "smtp unavailable", job.LastError)
	// Email queue backoff starts at 2s.
	assert.True(t, job.RunAt.After(before.Add(time.Second)))

	got, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, got, "rescheduled job is not yet eligible")
}

func TestMemoryQueueFailExhaustedArchives(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, &Options{Attempts: 1})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job, errors.New("permanent failure")))
	assert.Equal(t, JobStatusFailed, job.Status)
	require.NotNil(t, job.CompletedAt)

	failed, err := q.FailedJobs(ctx, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)
	assert.Equal(t, "permanent failure", failed[0].LastError)
}

func TestMemoryQueueCompleteArchives(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, nil)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, QueueEmail)
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, job))
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestMemoryQueueTrimCountCap(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	// Reports retention keeps 50 completed jobs.
	for i := 0; i < 60; i++ {
		_, err := q.Enqueue(ctx, QueueReports, JobTypeGenerateReport, nil, nil)
		require.NoError(t, err)

		job, err := q.Dequeue(ctx, QueueReports)
		require.NoError(t, err)
		require.NoError(t, q.Complete(ctx, job))
	}

	require.NoError(t, q.Trim(ctx, QueueReports))
	assert.LessOrEqual(t, len(q.completed[QueueReports]), 50)
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Close())

	_, err := q.Enqueue(ctx, QueueEmail, JobTypeSendEmail, nil, nil)
	require.ErrorIs(t, err, ErrQueueClosed)

	_, err = q.Dequeue(ctx, QueueEmail)
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestBackoffDelayForAttempt(t *testing.T) {
	backoff := BackoffConfig{InitialDelay: 2 * time.Second, Multiplier: 2}

	assert.Equal(t, 2*time.Second, backoff.DelayForAttempt(1))
	assert.Equal(t, 4*time.Second, backoff.DelayForAttempt(2))
	assert.Equal(t, 8*time.Second, backoff.DelayForAttempt(3))
}

func TestResolveOptionsAppliesDefaults(t *testing.T) {
	resolved := ResolveOptions(QueueWebhooks, nil)
	assert.Equal(t, 5, resolved.Attempts)
	assert.Equal(t, 3*time.Second, resolved.Backoff.InitialDelay)

	overridden := ResolveOptions(QueueWebhooks, &Options{Attempts: 1, Delay: time.Minute})
	assert.Equal(t, 1, overridden.Attempts)
	assert.Equal(t, time.Minute, overridden.Delay)
	assert.Equal(t, 3*time.Second, overridden.Backoff.InitialDelay, "unset fields keep defaults")
}
