// Package main provides the vetflow scheduler: it fires schedule-triggered
// workflow templates on their cron expressions and runs daily retention
// cleanup over terminal executions and archived jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/vetsuite/vetflow/pkg/cmd"
	"github.com/vetsuite/vetflow/pkg/log"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/trigger"
)

const retentionCronSpec = "0 3 * * *"

func main() {
	command := &cli.Command{
		Name:                  "vetflow-scheduler",
		Usage:                 "Run scheduled workflows and retention cleanup",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-url",
				Usage:   "Job queue URL (redis:// or memory)",
				Value:   "memory",
				Sources: cli.EnvVars("QUEUE_URL"),
			},
			&cli.IntFlag{
				Name:    "retention-days",
				Usage:   "Days to keep terminal executions before cleanup",
				Value:   30,
				Sources: cli.EnvVars("RETENTION_DAYS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("vetflow-scheduler")
			logger.InfoContext(ctx, "Initializing Vetflow Scheduler")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(context.Background())
				if err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			jobQueue := cmd.NewQueue(ctx, logger, command.String("queue-url"))
			defer func() {
				err := jobQueue.Close()
				if err != nil {
					logger.Error("Failed to close queue", "error", err)
				}
			}()

			retention := time.Duration(command.Int("retention-days")) * 24 * time.Hour

			maintenance := cron.New()

			_, err := maintenance.AddFunc(retentionCronSpec, func() {
				cleanupCtx := context.Background()

				cutoff := time.Now().UTC().Add(-retention)

				deleted, err := persistence.ExecutionRepository().
					DeleteTerminalOlderThan(cleanupCtx, cutoff)
				if err != nil {
					logger.Error("Failed to clean up terminal executions", "error", err)
				} else if deleted > 0 {
					logger.Info("Terminal executions cleaned up", "deleted", deleted)
				}

				for _, queueName := range queue.QueueNames() {
					err := jobQueue.Trim(cleanupCtx, queueName)
					if err != nil {
						logger.Error("Failed to trim queue archive",
							"queue", queueName, "error", err)
					}
				}
			})
			if err != nil {
				return err
			}

			maintenance.Start()
			defer maintenance.Stop()

			scheduler := trigger.NewScheduler(persistence, jobQueue, logger)
			scheduler.Start(ctx)

			logger.Info("Scheduler stopped")

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
