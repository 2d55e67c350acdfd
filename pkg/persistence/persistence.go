// Package persistence provides the data storage abstraction for workflow
// templates, executions, steps, and webhook subscriptions.
package persistence

import (
	"context"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
)

// ListTemplatesOptions filters and paginates template listings. Results are
// always ordered by usage count descending so popular templates surface
// first.
type ListTemplatesOptions struct {
	Category    string
	TriggerType *models.TriggerType
	IsActive    *bool
	Limit       int
	Offset      int
}

// ListTemplatesResult is one page of templates.
type ListTemplatesResult struct {
	Templates   []*models.WorkflowTemplate
	TotalCount  int64
	HasNextPage bool
}

type TemplateRepository interface {
	Save(ctx context.Context, template *models.WorkflowTemplate) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	List(ctx context.Context, opts ListTemplatesOptions) (*ListTemplatesResult, error)
	// ListActiveByTriggerType returns every active template with the given
	// trigger type. Event matching happens in-process at the trigger
	// service; there is no event-name filter at the storage layer.
	ListActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowTemplate, error)
	// IncrementUsageCount atomically bumps the usage counter. Called once
	// per execution start, never decremented.
	IncrementUsageCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ListExecutionsOptions filters and paginates execution listings, newest
// first.
type ListExecutionsOptions struct {
	TemplateID string
	Status     *models.ExecutionStatus
	Limit      int
	Offset     int
}

type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context, opts ListExecutionsOptions) ([]*models.WorkflowExecution, error)
	// UpdateStatus transitions an execution's status only when its current
	// status matches expected, returning ErrExecutionStatusConflict
	// otherwise. This conditional write is the optimistic-concurrency guard
	// against two workers racing to process the same execution.
	UpdateStatus(ctx context.Context, id string, expected, next models.ExecutionStatus, errorMessage string, completedAt *time.Time) error
	SaveVariables(ctx context.Context, id string, variables map[string]any) error
	SetCurrentAction(ctx context.Context, id string, actionID string) error
	Stats(ctx context.Context) (*models.ExecutionStats, error)
	// DeleteTerminalOlderThan removes terminal executions (and their steps)
	// whose completion predates cutoff. Used by the retention job.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type StepRepository interface {
	CreateBatch(ctx context.Context, steps []*models.ExecutionStep) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.ExecutionStep, error)
	UpdateStatus(ctx context.Context, step *models.ExecutionStep) error
	// MarkPendingSkipped bulk-transitions an execution's still-pending
	// steps to skipped. Running and terminal steps are left untouched.
	MarkPendingSkipped(ctx context.Context, executionID string) (int64, error)
}

type WebhookRepository interface {
	Save(ctx context.Context, subscription *models.WebhookSubscription) error
	GetByID(ctx context.Context, id string) (*models.WebhookSubscription, error)
	ListActive(ctx context.Context) ([]*models.WebhookSubscription, error)
	List(ctx context.Context) ([]*models.WebhookSubscription, error)
	Delete(ctx context.Context, id string) error
}

type Persistence interface {
	TemplateRepository() TemplateRepository
	ExecutionRepository() ExecutionRepository
	StepRepository() StepRepository
	WebhookRepository() WebhookRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
