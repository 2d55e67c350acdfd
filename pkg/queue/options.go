package queue

import "time"

// Options controls how a job is enqueued. Zero fields fall back to the
// queue's defaults.
type Options struct {
	// Priority orders eligible jobs: lower values are processed first.
	Priority int
	// Delay postpones the job's eligibility.
	Delay time.Duration
	// Attempts is the maximum delivery attempts including the first.
	Attempts int
	// Backoff spaces retries out.
	Backoff BackoffConfig
}

// RetentionPolicy trims terminal jobs. Completed jobs are pruned
// aggressively; failed jobs are retained longer for diagnosis.
type RetentionPolicy struct {
	KeepCompleted int
	CompletedAge  time.Duration
	KeepFailed    int
	FailedAge     time.Duration
}

// QueueDefaults bundles per-queue job options, retention, and worker
// concurrency.
type QueueDefaults struct {
	Options     Options
	Retention   RetentionPolicy
	Concurrency int
}

// defaults maps every known queue to its policy. Lightweight queues get
// higher concurrency than resource-heavy report generation.
var defaults = map[string]QueueDefaults{
	QueueEmail: {
		Options:     Options{Attempts: 3, Backoff: BackoffConfig{InitialDelay: 2 * time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 5,
	},
	QueueReports: {
		Options:     Options{Attempts: 2, Backoff: BackoffConfig{InitialDelay: 10 * time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 50, CompletedAge: time.Hour, KeepFailed: 500, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 1,
	},
	QueueReminders: {
		Options:     Options{Attempts: 3, Backoff: BackoffConfig{InitialDelay: 5 * time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 10,
	},
	QueueNotifications: {
		Options:     Options{Attempts: 3, Backoff: BackoffConfig{InitialDelay: time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 10,
	},
	QueueWebhooks: {
		Options:     Options{Attempts: 5, Backoff: BackoffConfig{InitialDelay: 3 * time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 5,
	},
	QueueWorkflows: {
		Options:     Options{Attempts: 3, Backoff: BackoffConfig{InitialDelay: 5 * time.Second, Multiplier: 2}},
		Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
		Concurrency: 5,
	},
}

var fallbackDefaults = QueueDefaults{
	Options:     Options{Attempts: 3, Backoff: BackoffConfig{InitialDelay: 5 * time.Second, Multiplier: 2}},
	Retention:   RetentionPolicy{KeepCompleted: 100, CompletedAge: time.Hour, KeepFailed: 1000, FailedAge: 7 * 24 * time.Hour},
	Concurrency: 2,
}

// DefaultsFor returns the policy bundle for a queue.
func DefaultsFor(queueName string) QueueDefaults {
	if d, ok := defaults[queueName]; ok {
		return d
	}

	return fallbackDefaults
}

// QueueNames lists every queue with explicit defaults.
func QueueNames() []string {
	return []string{
		QueueEmail,
		QueueReports,
		QueueReminders,
		QueueNotifications,
		QueueWebhooks,
		QueueWorkflows,
	}
}

// ResolveOptions overlays opts on the queue's defaults.
func ResolveOptions(queueName string, opts *Options) Options {
	resolved := DefaultsFor(queueName).Options

	if opts == nil {
		return resolved
	}

	if opts.Priority != 0 {
		resolved.Priority = opts.Priority
	}

	if opts.Delay > 0 {
		resolved.Delay = opts.Delay
	}

	if opts.Attempts > 0 {
		resolved.Attempts = opts.Attempts
	}

	if opts.Backoff.InitialDelay > 0 {
		resolved.Backoff = opts.Backoff
	}

	return resolved
}
