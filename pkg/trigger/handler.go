package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// NewExecuteJobHandler returns the workflows-queue handler. Two payload
// shapes are accepted: an "execution_id" for executions already created (the
// manual API path), or a "template_id" plus trigger data for the event and
// schedule paths, where the handler creates the execution itself. Running
// through the queue gives the trigger path retry and failure archiving for
// free.
func NewExecuteJobHandler(p persistence.Persistence, eng *engine.Engine, logger *slog.Logger) queue.Handler {
	logger = logger.With("module", "workflow_job_handler")

	return func(ctx context.Context, job *queue.Job) error {
		if executionID, ok := job.Payload["execution_id"].(string); ok && executionID != "" {
			return eng.ProcessExecution(ctx, executionID)
		}

		templateID, _ := job.Payload["template_id"].(string)
		if templateID == "" {
			return fmt.Errorf("workflow job %s has neither execution_id nor template_id", job.ID)
		}

		template, err := p.TemplateRepository().GetByID(ctx, templateID)
		if err != nil {
			return fmt.Errorf("failed to load template %s: %w", templateID, err)
		}

		triggerData, _ := job.Payload["trigger_data"].(map[string]any)

		triggerType := models.TriggerTypeEvent
		if t, ok := job.Payload["trigger_type"].(string); ok && t != "" {
			triggerType = models.TriggerType(t)
		}

		execution, err := eng.StartExecution(ctx, template, triggerType, triggerData)
		if err != nil {
			if engine.IsTemplateInactive(err) {
				// Deactivated between match and processing; nothing to retry.
				logger.InfoContext(ctx, "Template deactivated, dropping job",
					"template_id", templateID, "job_id", job.ID)

				return nil
			}

			return err
		}

		return eng.ProcessExecution(ctx, execution.ID)
	}
}
