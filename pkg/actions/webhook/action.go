// Package webhook implements the webhook action. The action does not call
// the endpoint inline; it enqueues a signed delivery job so retries and
// circuit breaking happen in the delivery worker.
package webhook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/template"
)

// Action queues one webhook delivery per execution step.
type Action struct {
	raw   map[string]any
	queue queue.Queue
}

func NewAction(config map[string]any, q queue.Queue) (*Action, error) {
	var webhookConfig models.WebhookConfig

	err := models.DecodeConfig(config, &webhookConfig)
	if err != nil {
		return nil, err
	}

	if q == nil {
		return nil, fmt.Errorf("webhook action requires a job queue")
	}

	return &Action{raw: config, queue: q}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "webhook_action")

	rendered, err := template.RenderConfig(a.raw, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render webhook config: %w", err)
	}

	var webhookConfig models.WebhookConfig

	err = models.DecodeConfig(rendered, &webhookConfig)
	if err != nil {
		return nil, err
	}

	event := webhookConfig.Event
	if event == "" {
		event = "workflow.action"
	}

	data := webhookConfig.Data
	if data == nil {
		data = executionCtx.Scope()
	}

	job, err := a.queue.Enqueue(ctx, queue.QueueWebhooks, queue.JobTypeDeliverWebhook, map[string]any{
		"url":          webhookConfig.URL,
		"secret":       webhookConfig.Secret,
		"event":        event,
		"data":         data,
		"execution_id": executionCtx.ExecutionID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue webhook delivery: %w", err)
	}

	logger.InfoContext(ctx, "Webhook delivery queued",
		"execution_id", executionCtx.ExecutionID,
		"url", webhookConfig.URL, "job_id", job.ID)

	return map[string]any{
		"webhookQueued": true,
		"url":           webhookConfig.URL,
		"jobId":         job.ID,
	}, nil
}
