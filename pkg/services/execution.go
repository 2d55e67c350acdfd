package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// ExecutionDetail is an execution joined with its steps for the API.
type ExecutionDetail struct {
	Execution *models.WorkflowExecution `json:"execution"`
	Steps     []*models.ExecutionStep   `json:"steps"`
}

// ExecutionService manages execution lifecycles for the API. Manual starts
// go through the workflows queue like every other trigger path.
type ExecutionService struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	queue       queue.Queue
	logger      *slog.Logger
}

func NewExecutionService(p persistence.Persistence, eng *engine.Engine, q queue.Queue, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		persistence: p,
		engine:      eng,
		queue:       q,
		logger:      logger.With("module", "execution_service"),
	}
}

// Execute starts a template manually: the execution is created immediately
// (so the caller gets its id) and processing is queued.
func (s *ExecutionService) Execute(ctx context.Context, templateID string, triggerData map[string]any) (*models.WorkflowExecution, error) {
	template, err := s.persistence.TemplateRepository().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	execution, err := s.engine.StartExecution(ctx, template, models.TriggerTypeManual, triggerData)
	if err != nil {
		return nil, err
	}

	_, err = s.queue.Enqueue(ctx, queue.QueueWorkflows, queue.JobTypeExecuteWorkflow, map[string]any{
		"execution_id": execution.ID,
	}, nil)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// Get returns the execution with its steps.
func (s *ExecutionService) Get(ctx context.Context, id string) (*ExecutionDetail, error) {
	execution, err := s.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := s.persistence.StepRepository().ListByExecution(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExecutionDetail{Execution: execution, Steps: steps}, nil
}

func (s *ExecutionService) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.WorkflowExecution, error) {
	return s.persistence.ExecutionRepository().List(ctx, opts)
}

func (s *ExecutionService) Cancel(ctx context.Context, id string) error {
	return s.engine.CancelExecution(ctx, id)
}

func (s *ExecutionService) Stats(ctx context.Context) (*models.ExecutionStats, error) {
	return s.persistence.ExecutionRepository().Stats(ctx)
}

// CleanupTerminal removes terminal executions older than the retention
// window. Run daily by the scheduler.
func (s *ExecutionService) CleanupTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	deleted, err := s.persistence.ExecutionRepository().DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "Terminal executions cleaned up",
			"deleted", deleted, "cutoff", cutoff)
	}

	return deleted, nil
}
