// Package main provides the vetflow worker: it subscribes to domain events,
// matches them to workflow templates, and processes the job queues.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/vetsuite/vetflow/pkg/cmd"
	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/log"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/registry"
	"github.com/vetsuite/vetflow/pkg/trigger"
	"github.com/vetsuite/vetflow/pkg/webhooks"
)

func main() {
	command := &cli.Command{
		Name:                  "vetflow-worker",
		Usage:                 "Process domain events and run workflow executions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
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
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("vetflow-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Vetflow Worker")

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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "vetflow-worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			actionRegistry := registry.NewDefaultRegistry(logger, registry.Deps{Queue: jobQueue})
			eng := engine.New(persistence, actionRegistry, eventBus, logger)

			trigger.NewService(persistence, jobQueue, logger).Bind(eventBus)
			webhooks.NewDispatcher(persistence, jobQueue, logger).Bind(eventBus)

			pool := queue.NewPool(jobQueue, logger)
			pool.Register(queue.QueueWorkflows, queue.JobTypeExecuteWorkflow,
				trigger.NewExecuteJobHandler(persistence, eng, logger))
			pool.Register(queue.QueueWebhooks, queue.JobTypeDeliverWebhook,
				webhooks.NewDeliverer(logger).Handler())

			pool.Start(ctx)

			err := eventBus.Subscribe(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Event subscription ended", "error", err)
			}

			<-ctx.Done()
			pool.Wait()
			logger.Info("Worker stopped")

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
