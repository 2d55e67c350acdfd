package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "vetflow:queue:"

// RedisQueue implements Queue on Redis. Eligible jobs live in a sorted set
// scored by run_at (with priority as a small score nudge), archived jobs in
// capped lists.
type RedisQueue struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisQueue connects to Redis and verifies connectivity.
func NewRedisQueue(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{
		client: client,
		logger: logger.With("module", "queue"),
	}, nil
}

func scheduledKey(queueName string) string { return keyPrefix + queueName + ":scheduled" }
func jobKey(jobID string) string           { return keyPrefix + "job:" + jobID }
func completedKey(queueName string) string { return keyPrefix + queueName + ":completed" }
func failedKey(queueName string) string    { return keyPrefix + queueName + ":failed" }

// score orders jobs by eligibility time; priority shifts jobs by one
// millisecond per unit so lower priorities sort earlier among peers.
func score(job *Job) float64 {
	return float64(job.RunAt.UnixMilli()) + float64(job.Priority)
}

func (q *RedisQueue) storeJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, 0)
	pipe.ZAdd(ctx, scheduledKey(job.Queue), redis.Z{Score: score(job), Member: job.ID})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}

	return nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, queueName, jobType string, payload map[string]any, opts *Options) (*Job, error) {
	job := NewJob(queueName, jobType, payload, opts)

	err := q.storeJob(ctx, job)
	if err != nil {
		return nil, err
	}

	q.logger.DebugContext(ctx, "Job enqueued",
		"job_id", job.ID, "queue", queueName, "type", jobType)

	return job, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	now := float64(time.Now().UTC().UnixMilli())

	ids, err := q.client.ZRangeByScore(ctx, scheduledKey(queueName), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: 8,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to poll queue %s: %w", queueName, err)
	}

	for _, id := range ids {
		// ZRem is the claim: exactly one concurrent worker removes the
		// member, the rest move on.
		removed, err := q.client.ZRem(ctx, scheduledKey(queueName), id).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", id, err)
		}

		if removed == 0 {
			continue
		}

		data, err := q.client.Get(ctx, jobKey(id)).Bytes()
		if err != nil {
			q.logger.WarnContext(ctx, "Claimed job has no payload, dropping",
				"job_id", id, "queue", queueName)

			continue
		}

		var job Job

		err = json.Unmarshal(data, &job)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
		}

		job.Status = JobStatusRunning
		job.Attempts++

		return &job, nil
	}

	return nil, nil
}

func (q *RedisQueue) archive(ctx context.Context, job *Job, key string) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.Del(ctx, jobKey(job.ID))

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to archive job %s: %w", job.ID, err)
	}

	return nil
}

func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	now := time.Now().UTC()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now

	return q.archive(ctx, job, completedKey(job.Queue))
}

func (q *RedisQueue) Fail(ctx context.Context, job *Job, jobErr error) error {
	job.LastError = jobErr.Error()

	if job.Attempts < job.MaxAttempts {
		job.Status = JobStatusPending
		job.RunAt = time.Now().UTC().Add(job.Backoff.DelayForAttempt(job.Attempts))

		q.logger.InfoContext(ctx, "Job rescheduled",
			"job_id", job.ID, "queue", job.Queue,
			"attempt", job.Attempts, "max_attempts", job.MaxAttempts,
			"run_at", job.RunAt)

		return q.storeJob(ctx, job)
	}

	now := time.Now().UTC()
	job.Status = JobStatusFailed
	job.CompletedAt = &now

	q.logger.WarnContext(ctx, "Job failed permanently",
		"job_id", job.ID, "queue", job.Queue, "error", job.LastError)

	return q.archive(ctx, job, failedKey(job.Queue))
}

func (q *RedisQueue) FailedJobs(ctx context.Context, queueName string, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}

	entries, err := q.client.LRange(ctx, failedKey(queueName), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs for %s: %w", queueName, err)
	}

	jobs := make([]*Job, 0, len(entries))

	for _, entry := range entries {
		var job Job

		err = json.Unmarshal([]byte(entry), &job)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed job: %w", err)
		}

		jobs = append(jobs, &job)
	}

	return jobs, nil
}

func (q *RedisQueue) Trim(ctx context.Context, queueName string) error {
	retention := DefaultsFor(queueName).Retention

	err := q.trimList(ctx, completedKey(queueName), retention.KeepCompleted, retention.CompletedAge)
	if err != nil {
		return err
	}

	return q.trimList(ctx, failedKey(queueName), retention.KeepFailed, retention.FailedAge)
}

// trimList caps a newest-first archive list by count, then pops entries off
// the tail while they are older than the age limit.
func (q *RedisQueue) trimList(ctx context.Context, key string, keep int, maxAge time.Duration) error {
	if keep > 0 {
		err := q.client.LTrim(ctx, key, 0, int64(keep-1)).Err()
		if err != nil {
			return fmt.Errorf("failed to trim %s: %w", key, err)
		}
	}

	if maxAge <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().Add(-maxAge)

	for {
		entry, err := q.client.LIndex(ctx, key, -1).Result()
		if err == redis.Nil {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", key, err)
		}

		var job Job

		err = json.Unmarshal([]byte(entry), &job)
		if err != nil || job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			return nil
		}

		err = q.client.RPop(ctx, key).Err()
		if err != nil {
			return fmt.Errorf("failed to trim %s: %w", key, err)
		}
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
