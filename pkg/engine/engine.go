// Package engine runs workflow executions: it snapshots templates into
// executions, walks the action list in parallel groups, and drives the
// execution state machine to a terminal status.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vetsuite/vetflow/pkg/eventbus"
	"github.com/vetsuite/vetflow/pkg/events"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/registry"
)

// Engine owns execution lifecycles. It is safe for concurrent use; the
// pending-only processing guard in ProcessExecution makes duplicate job
// deliveries no-ops.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// New creates an engine over the given storage, action registry, and event
// publisher.
func New(p persistence.Persistence, r *registry.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		registry:    r,
		publisher:   publisher,
		logger:      logger.With("module", "engine"),
	}
}

// StartExecution creates a pending execution from a template: the action
// list is snapshotted into steps so later template edits cannot affect runs
// already started. The template's usage counter is bumped once per start.
func (e *Engine) StartExecution(ctx context.Context, template *models.WorkflowTemplate, triggerType models.TriggerType, triggerData map[string]any) (*models.WorkflowExecution, error) {
	if !template.IsActive {
		return nil, ErrTemplateInactive
	}

	if len(template.Actions) == 0 {
		return nil, ErrNoActions
	}

	templateID := template.ID
	execution := &models.WorkflowExecution{
		ID:           uuid.New().String(),
		TemplateID:   &templateID,
		WorkflowName: template.Name,
		TriggerType:  triggerType,
		TriggerData:  triggerData,
		Status:       models.ExecutionStatusPending,
		Variables:    map[string]any{},
		StartedAt:    time.Now().UTC(),
	}

	err := e.createExecution(ctx, execution, template.Actions)
	if err != nil {
		return nil, err
	}

	err = e.persistence.TemplateRepository().IncrementUsageCount(ctx, template.ID)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to increment template usage count",
			"template_id", template.ID, "error", err)
	}

	e.publishLifecycle(ctx, events.ExecutionStarted, execution, 0)
	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID, "template_id", template.ID,
		"workflow_name", template.Name)

	return execution, nil
}

// StartAdHoc creates a pending execution from a raw action list with no
// backing template.
func (e *Engine) StartAdHoc(ctx context.Context, name string, actions []models.Action, triggerData map[string]any) (*models.WorkflowExecution, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}

	execution := &models.WorkflowExecution{
		ID:           uuid.New().String(),
		WorkflowName: name,
		TriggerType:  models.TriggerTypeManual,
		TriggerData:  triggerData,
		Status:       models.ExecutionStatusPending,
		Variables:    map[string]any{},
		StartedAt:    time.Now().UTC(),
	}

	err := e.createExecution(ctx, execution, actions)
	if err != nil {
		return nil, err
	}

	e.publishLifecycle(ctx, events.ExecutionStarted, execution, 0)

	return execution, nil
}

func (e *Engine) createExecution(ctx context.Context, execution *models.WorkflowExecution, actions []models.Action) error {
	err := e.persistence.ExecutionRepository().Create(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	steps := make([]*models.ExecutionStep, 0, len(actions))
	for i, action := range actions {
		steps = append(steps, &models.ExecutionStep{
			// The ordinal prefix keeps lexical step order equal to template
			// order in every storage backend.
			ID:           fmt.Sprintf("%04d-%s", i, action.ID),
			ExecutionID:  execution.ID,
			ActionID:     action.ID,
			ActionType:   action.Type,
			ActionName:   action.Name,
			ActionConfig: action.Config,
			Status:       models.StepStatusPending,
		})
	}

	err = e.persistence.StepRepository().CreateBatch(ctx, steps)
	if err != nil {
		return fmt.Errorf("failed to create execution steps: %w", err)
	}

	return nil
}

// ProcessExecution runs a pending execution to a terminal status. Only
// pending executions are processed: any other current status makes the call
// a no-op, which is what makes duplicate queue deliveries safe.
func (e *Engine) ProcessExecution(ctx context.Context, executionID string) error {
	repo := e.persistence.ExecutionRepository()

	err := repo.UpdateStatus(ctx, executionID, models.ExecutionStatusPending, models.ExecutionStatusRunning, "", nil)
	if persistence.IsExecutionStatusConflict(err) {
		e.logger.InfoContext(ctx, "Execution not pending, skipping",
			"execution_id", executionID)

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to claim execution %s: %w", executionID, err)
	}

	execution, err := repo.GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	runErr := e.runSteps(ctx, execution)
	if runErr != nil {
		e.finish(ctx, execution, models.ExecutionStatusFailed, runErr.Error())

		return nil
	}

	e.finish(ctx, execution, models.ExecutionStatusCompleted, "")

	return nil
}

// finish moves a running execution to its terminal status and publishes the
// matching lifecycle event. Losing the conditional write here means someone
// cancelled the execution mid-flight; the cancel outcome wins.
func (e *Engine) finish(ctx context.Context, execution *models.WorkflowExecution, status models.ExecutionStatus, errorMessage string) {
	now := time.Now().UTC()

	err := e.persistence.ExecutionRepository().UpdateStatus(ctx,
		execution.ID, models.ExecutionStatusRunning, status, errorMessage, &now)
	if persistence.IsExecutionStatusConflict(err) {
		e.logger.InfoContext(ctx, "Execution no longer running, keeping stored status",
			"execution_id", execution.ID)

		return
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to finalize execution",
			"execution_id", execution.ID, "status", status, "error", err)

		return
	}

	execution.Status = status
	execution.Error = errorMessage
	execution.CompletedAt = &now

	duration := now.Sub(execution.StartedAt).Milliseconds()

	switch status {
	case models.ExecutionStatusCompleted:
		e.publishLifecycle(ctx, events.ExecutionCompleted, execution, duration)
		e.logger.InfoContext(ctx, "Execution completed",
			"execution_id", execution.ID, "duration_ms", duration)
	case models.ExecutionStatusFailed:
		e.publishLifecycle(ctx, events.ExecutionFailed, execution, duration)
		e.logger.WarnContext(ctx, "Execution failed",
			"execution_id", execution.ID, "error", errorMessage)
	}
}

// CancelExecution cancels a pending or running execution and skips its
// still-pending steps. Cancelling a terminal execution fails with a status
// conflict.
func (e *Engine) CancelExecution(ctx context.Context, executionID string) error {
	repo := e.persistence.ExecutionRepository()
	now := time.Now().UTC()

	err := repo.UpdateStatus(ctx, executionID, models.ExecutionStatusPending, models.ExecutionStatusCancelled, "", &now)
	if persistence.IsExecutionStatusConflict(err) {
		err = repo.UpdateStatus(ctx, executionID, models.ExecutionStatusRunning, models.ExecutionStatusCancelled, "", &now)
	}

	if err != nil {
		return err
	}

	skipped, err := e.persistence.StepRepository().MarkPendingSkipped(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to skip pending steps for %s: %w", executionID, err)
	}

	execution, err := repo.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	e.publishLifecycle(ctx, events.ExecutionCancelled, execution, 0)
	e.logger.InfoContext(ctx, "Execution cancelled",
		"execution_id", executionID, "skipped_steps", skipped)

	return nil
}

func (e *Engine) publishLifecycle(ctx context.Context, name string, execution *models.WorkflowExecution, durationMs int64) {
	if e.publisher == nil {
		return
	}

	data := events.ExecutionEventData{
		ExecutionID:  execution.ID,
		WorkflowName: execution.WorkflowName,
		Status:       string(execution.Status),
		Error:        execution.Error,
		DurationMs:   durationMs,
	}

	if execution.TemplateID != nil {
		data.TemplateID = *execution.TemplateID
	}

	err := e.publisher.Publish(ctx, execution.ID, events.NewDomainEvent(name, data.Map()))
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"execution_id", execution.ID, "event", name, "error", err)
	}
}
