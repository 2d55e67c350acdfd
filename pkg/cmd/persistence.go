// Package cmd provides the shared initialization helpers the vetflow
// binaries use to build their dependency graphs from configuration.
package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/persistence/file"
	"github.com/vetsuite/vetflow/pkg/persistence/postgresql"
	"github.com/vetsuite/vetflow/pkg/retry"
)

// NewPersistence picks the storage backend from the database URL scheme:
// postgres URLs get the PostgreSQL backend, everything else is treated as a
// file path for the file backend. The postgres connection is retried so the
// binaries survive starting before the database container is ready.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		var p *postgresql.Persistence

		err := retry.Do(ctx, logger, retry.Config{
			MaxAttempts:       5,
			InitialDelay:      time.Second,
			MaxDelay:          10 * time.Second,
			BackoffMultiplier: 2,
			Name:              "postgres_connect",
		}, func(ctx context.Context) error {
			var connErr error

			p, connErr = postgresql.NewPersistence(ctx, logger, databaseURL)

			return connErr
		})
		if err != nil {
			panic(err)
		}

		return p
	}

	return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
}
