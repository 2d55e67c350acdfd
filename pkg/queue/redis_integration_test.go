//go:build integration

package queue_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vetsuite/vetflow/pkg/queue"
)

func setupRedisQueue(t *testing.T) (*queue.RedisQueue, context.Context) {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	q, err := queue.NewRedisQueue(ctx, redisURL, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = q.Close()
		_ = container.Terminate(ctx)
	})

	return q, ctx
}

func TestRedisQueueLifecycle(t *testing.T) {
	q, ctx := setupRedisQueue(t)

	job, err := q.Enqueue(ctx, queue.QueueEmail, queue.JobTypeSendEmail,
		map[string]any{"to": "owner@clinic.test"}, nil)
	require.NoError(t, err)

	got, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, queue.JobStatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "owner@clinic.test", got.Payload["to"])

	empty, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, empty, "claimed job must not be dequeued twice")

	require.NoError(t, q.Complete(ctx, got))
}

func TestRedisQueuePriorityOrdering(t *testing.T) {
	q, ctx := setupRedisQueue(t)

	low, err := q.Enqueue(ctx, queue.QueueReminders, queue.JobTypeSendReminder, nil,
		&queue.Options{Priority: 10})
	require.NoError(t, err)

	high, err := q.Enqueue(ctx, queue.QueueReminders, queue.JobTypeSendReminder, nil,
		&queue.Options{Priority: 1})
	require.NoError(t, err)

	first, err := q.Dequeue(ctx, queue.QueueReminders)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, high.ID, first.ID, "lower priority value dequeues first")

	second, err := q.Dequeue(ctx, queue.QueueReminders)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, low.ID, second.ID)
}

func TestRedisQueueDelayedJob(t *testing.T) {
	q, ctx := setupRedisQueue(t)

	_, err := q.Enqueue(ctx, queue.QueueEmail, queue.JobTypeSendEmail, nil,
		&queue.Options{Delay: 500 * time.Millisecond})
	require.NoError(t, err)

	got, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, got, "delayed job is not yet eligible")

	time.Sleep(600 * time.Millisecond)

	got, err = q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestRedisQueueFailAndArchive(t *testing.T) {
	q, ctx := setupRedisQueue(t)

	_, err := q.Enqueue(ctx, queue.QueueEmail, queue.JobTypeSendEmail, nil,
		&queue.Options{Attempts: 1})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, q.Fail(ctx, job, errors.New("smtp unavailable")))

	failed, err := q.FailedJobs(ctx, queue.QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "smtp unavailable", failed[0].LastError)
	assert.Equal(t, queue.JobStatusFailed, failed[0].Status)

	require.NoError(t, q.Trim(ctx, queue.QueueEmail))

	failed, err = q.FailedJobs(ctx, queue.QueueEmail, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 1, "recent failures survive trimming")
}

func TestRedisQueueFailReschedulesWithBackoff(t *testing.T) {
	q, ctx := setupRedisQueue(t)

	_, err := q.Enqueue(ctx, queue.QueueEmail, queue.JobTypeSendEmail, nil, nil)
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, q.Fail(ctx, job, errors.New("smtp unavailable")))

	got, err := q.Dequeue(ctx, queue.QueueEmail)
	require.NoError(t, err)
	assert.Nil(t, got, "rescheduled job waits out its backoff")
}
