// Package queue provides named, persistent job queues with priority, delay,
// and retry policies. The queue layer owns retry counting and backoff;
// handlers signal failure by returning an error.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Queue names used across the system.
const (
	QueueEmail         = "email"
	QueueReports       = "reports"
	QueueReminders     = "reminders"
	QueueNotifications = "notifications"
	QueueWebhooks      = "webhooks"
	QueueWorkflows     = "workflows"
)

// Job types dispatched by the built-in handlers.
const (
	JobTypeSendEmail        = "email.send"
	JobTypeSendNotification = "notification.send"
	JobTypeSendReminder     = "reminder.send"
	JobTypeGenerateReport   = "report.generate"
	JobTypeDeliverWebhook   = "webhook.deliver"
	JobTypeExecuteWorkflow  = "workflow.execute"
)

// BackoffConfig grows the retry delay exponentially: attempt n waits
// InitialDelay * Multiplier^(n-1).
type BackoffConfig struct {
	InitialDelay time.Duration `json:"initial_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// DelayForAttempt returns the backoff before retry attempt n (1-indexed).
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := b.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
	}

	return delay
}

// Job is one unit of asynchronous work. Consumed exactly once per attempt by
// a worker; removed or archived after terminal completion or exhausted
// retries.
type Job struct {
	ID          string         `json:"id"`
	Queue       string         `json:"queue"`
	Type        string         `json:"type"`
	Payload     map[string]any `json:"payload"`
	Priority    int            `json:"priority"`
	RunAt       time.Time      `json:"run_at"`
	Attempts    int            `json:"attempts"`
	MaxAttempts int            `json:"max_attempts"`
	Backoff     BackoffConfig  `json:"backoff"`
	Status      JobStatus      `json:"status"`
	LastError   string         `json:"last_error,omitempty"`
	Progress    float64        `json:"progress,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewJob builds a pending job from options, applying the queue's defaults
// where opts leaves fields unset.
func NewJob(queueName, jobType string, payload map[string]any, opts *Options) *Job {
	now := time.Now().UTC()
	resolved := ResolveOptions(queueName, opts)

	return &Job{
		ID:          uuid.New().String(),
		Queue:       queueName,
		Type:        jobType,
		Payload:     payload,
		Priority:    resolved.Priority,
		RunAt:       now.Add(resolved.Delay),
		MaxAttempts: resolved.Attempts,
		Backoff:     resolved.Backoff,
		Status:      JobStatusPending,
		CreatedAt:   now,
	}
}
