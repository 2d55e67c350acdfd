// Package main provides the vetflow API server.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/vetsuite/vetflow/pkg/cmd"
	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/log"
	"github.com/vetsuite/vetflow/pkg/registry"
	"github.com/vetsuite/vetflow/pkg/services"
	"github.com/vetsuite/vetflow/pkg/web"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "vetflow-api",
		Usage:                 "Manage workflow templates, executions, and webhook subscriptions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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

			logger := log.WithModule("vetflow-api")
			logger.InfoContext(ctx, "Initializing Vetflow API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			jobQueue := cmd.NewQueue(ctx, logger, command.String("queue-url"))
			defer func() {
				err := jobQueue.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close queue", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "vetflow-api", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			actionRegistry := registry.NewDefaultRegistry(logger, registry.Deps{Queue: jobQueue})
			eng := engine.New(persistence, actionRegistry, eventBus, logger)

			templateService := services.NewTemplateService(persistence.TemplateRepository(), actionRegistry, logger)
			executionService := services.NewExecutionService(persistence, eng, jobQueue, logger)
			webhookService := services.NewWebhookService(persistence.WebhookRepository(), logger)

			api := web.NewAPI(persistence, templateService, executionService, webhookService, jobQueue)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
