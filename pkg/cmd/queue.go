package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vetsuite/vetflow/pkg/queue"
)

// NewQueue picks the job queue backend from the queue URL: redis URLs get
// the Redis backend, an empty or "memory" URL the in-process one.
func NewQueue(ctx context.Context, logger *slog.Logger, queueURL string) queue.Queue {
	if strings.HasPrefix(queueURL, "redis://") || strings.HasPrefix(queueURL, "rediss://") {
		q, err := queue.NewRedisQueue(ctx, queueURL, logger)
		if err != nil {
			panic(err)
		}

		return q
	}

	return queue.NewMemoryQueue()
}
