package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for development and tests.
type MemoryQueue struct {
	mu        sync.Mutex
	pending   map[string][]*Job
	completed map[string][]*Job
	failed    map[string][]*Job
	closed    bool
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		pending:   make(map[string][]*Job),
		completed: make(map[string][]*Job),
		failed:    make(map[string][]*Job),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, opts *Options) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	job := NewJob(queueName, jobType, payload, opts)
	q.push(job)

	return job, nil
}

// push inserts the job keeping pending sorted by priority then run_at.
func (q *MemoryQueue) push(job *Job) {
	jobs := append(q.pending[job.Queue], job)
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority < jobs[j].Priority
		}

		return jobs[i].RunAt.Before(jobs[j].RunAt)
	})
	q.pending[job.Queue] = jobs
}

func (q *MemoryQueue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	now := time.Now().UTC()
	jobs := q.pending[queueName]

	for i, job := range jobs {
		if job.RunAt.After(now) {
			continue
		}

		q.pending[queueName] = append(jobs[:i:i], jobs[i+1:]...)
		job.Status = JobStatusRunning
		job.Attempts++

		return job, nil
	}

	return nil, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	q.completed[job.Queue] = append([]*Job{job}, q.completed[job.Queue]...)

	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, job *Job, jobErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.LastError = jobErr.Error()

	if job.Attempts < job.MaxAttempts {
		job.Status = JobStatusPending
		job.RunAt = time.Now().UTC().Add(job.Backoff.DelayForAttempt(job.Attempts))
		q.push(job)

		return nil
	}

	now := time.Now().UTC()
	job.Status = JobStatusFailed
	job.CompletedAt = &now
	q.failed[job.Queue] = append([]*Job{job}, q.failed[job.Queue]...)

	return nil
}

func (q *MemoryQueue) FailedJobs(ctx context.Context, queueName string, limit int) ([]*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := q.failed[queueName]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}

	out := make([]*Job, len(jobs))
	copy(out, jobs)

	return out, nil
}

func (q *MemoryQueue) Trim(ctx context.Context, queueName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	retention := DefaultsFor(queueName).Retention
	q.completed[queueName] = trimJobs(q.completed[queueName], retention.KeepCompleted, retention.CompletedAge)
	q.failed[queueName] = trimJobs(q.failed[queueName], retention.KeepFailed, retention.FailedAge)

	return nil
}

// trimJobs enforces both a count cap and an age cap on a newest-first slice.
func trimJobs(jobs []*Job, keep int, maxAge time.Duration) []*Job {
	if keep > 0 && len(jobs) > keep {
		jobs = jobs[:keep]
	}

	if maxAge <= 0 {
		return jobs
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	kept := jobs[:0]

	for _, job := range jobs {
		if job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			kept = append(kept, job)
		}
	}

	return kept
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true

	return nil
}
