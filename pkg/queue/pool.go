package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one job attempt. A returned error triggers the queue's
// retry policy.
type Handler func(ctx context.Context, job *Job) error

// Pool polls queues and runs registered handlers, with per-queue
// concurrency taken from the queue defaults.
type Pool struct {
	queue        Queue
	logger       *slog.Logger
	pollInterval time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
	queues   map[string]int

	wg sync.WaitGroup
}

// NewPool creates a pool over the given queue backend.
func NewPool(q Queue, logger *slog.Logger) *Pool {
	return &Pool{
		queue:        q,
		logger:       logger.With("module", "worker_pool"),
		pollInterval: 500 * time.Millisecond,
		handlers:     make(map[string]Handler),
		queues:       make(map[string]int),
	}
}

// Register binds a handler to a job type and ensures the job's home queue is
// polled.
func (p *Pool) Register(queueName, jobType string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers[jobType] = handler

	if _, ok := p.queues[queueName]; !ok {
		p.queues[queueName] = DefaultsFor(queueName).Concurrency
	}
}

// Start launches the polling workers. It returns immediately; workers stop
// when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for queueName, concurrency := range p.queues {
		for i := 0; i < concurrency; i++ {
			p.wg.Add(1)

			go p.worker(ctx, queueName, i)
		}

		p.logger.Info("Queue workers started",
			"queue", queueName, "concurrency", concurrency)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, queueName string, id int) {
	defer p.wg.Done()

	logger := p.logger.With("queue", queueName, "worker", id)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := p.queue.Dequeue(ctx, queueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			logger.Error("Failed to dequeue job", "error", err)

			continue
		}

		if job == nil {
			continue
		}

		p.process(ctx, logger, job)
	}
}

func (p *Pool) process(ctx context.Context, logger *slog.Logger, job *Job) {
	p.mu.RLock()
	handler, ok := p.handlers[job.Type]
	p.mu.RUnlock()

	logger = logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempts)

	if !ok {
		// No retry: an unknown type will not become known on the next
		// attempt.
		job.Attempts = job.MaxAttempts

		err := p.queue.Fail(ctx, job, fmt.Errorf("no handler registered for job type %q", job.Type))
		if err != nil {
			logger.Error("Failed to archive unroutable job", "error", err)
		}

		logger.Warn("No handler registered for job type")

		return
	}

	err := p.runHandler(ctx, handler, job)
	if err != nil {
		logger.Warn("Job handler failed", "error", err)

		failErr := p.queue.Fail(ctx, job, err)
		if failErr != nil {
			logger.Error("Failed to record job failure", "error", failErr)
		}

		return
	}

	err = p.queue.Complete(ctx, job)
	if err != nil {
		logger.Error("Failed to record job completion", "error", err)

		return
	}

	logger.Debug("Job completed")
}

// runHandler isolates handler panics so one bad job cannot kill a worker.
func (p *Pool) runHandler(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	return handler(ctx, job)
}
