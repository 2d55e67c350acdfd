package queue

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned once Close has been called.
var ErrQueueClosed = errors.New("queue is closed")

// Queue stores jobs and hands them to workers. Dequeue returns (nil, nil)
// when no job is eligible so pollers can back off without treating an empty
// queue as an error.
type Queue interface {
	// Enqueue adds a job to the named queue, applying queue defaults for
	// unset options, and returns the stored job.
	Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, opts *Options) (*Job, error)

	// Dequeue claims the next eligible job. Eligibility requires run_at to
	// have passed; among eligible jobs, lower priority values win.
	Dequeue(ctx context.Context, queueName string) (*Job, error)

	// Complete archives a successfully processed job.
	Complete(ctx context.Context, job *Job) error

	// Fail either reschedules the job with backoff or, once attempts are
	// exhausted, archives it as failed.
	Fail(ctx context.Context, job *Job, jobErr error) error

	// FailedJobs returns archived failed jobs for inspection, newest first.
	FailedJobs(ctx context.Context, queueName string, limit int) ([]*Job, error)

	// Trim applies the queue's retention policy to archived jobs.
	Trim(ctx context.Context, queueName string) error

	Close() error
}
