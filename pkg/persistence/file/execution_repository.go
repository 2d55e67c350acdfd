package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// ExecutionRepository stores executions as JSON documents under
// <root>/executions.
type ExecutionRepository struct {
	root string
	mu   *sync.RWMutex
}

func (r *ExecutionRepository) dir() string {
	return filepath.Join(r.root, "executions")
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.path(execution.ID), execution)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getLocked(id)
}

func (r *ExecutionRepository) getLocked(id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	found, err := readJSON(r.path(id), &execution)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrExecutionNotFound
	}

	return &execution, nil
}

func (r *ExecutionRepository) List(_ context.Context, opts persistence.ListExecutionsOptions) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, err
	}

	executions := make([]*models.WorkflowExecution, 0, len(paths))

	for _, path := range paths {
		var execution models.WorkflowExecution

		found, err := readJSON(path, &execution)
		if err != nil {
			return nil, err
		}

		if !found {
			continue
		}

		if opts.TemplateID != "" && (execution.TemplateID == nil || *execution.TemplateID != opts.TemplateID) {
			continue
		}

		if opts.Status != nil && execution.Status != *opts.Status {
			continue
		}

		executions = append(executions, &execution)
	}

	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	offset := opts.Offset
	if offset > len(executions) {
		offset = len(executions)
	}

	end := offset + limit
	if end > len(executions) {
		end = len(executions)
	}

	return executions[offset:end], nil
}

func (r *ExecutionRepository) UpdateStatus(_ context.Context, id string, expected, next models.ExecutionStatus, errorMessage string, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.getLocked(id)
	if err != nil {
		return err
	}

	if execution.Status != expected {
		return persistence.ErrExecutionStatusConflict
	}

	execution.Status = next
	if errorMessage != "" {
		execution.Error = errorMessage
	}

	if completedAt != nil {
		execution.CompletedAt = completedAt
	}

	return writeJSON(r.path(id), execution)
}

func (r *ExecutionRepository) SaveVariables(_ context.Context, id string, variables map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.getLocked(id)
	if err != nil {
		return err
	}

	execution.Variables = variables

	return writeJSON(r.path(id), execution)
}

func (r *ExecutionRepository) SetCurrentAction(_ context.Context, id string, actionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.getLocked(id)
	if err != nil {
		return err
	}

	execution.CurrentActionID = actionID

	return writeJSON(r.path(id), execution)
}

func (r *ExecutionRepository) Stats(_ context.Context) (*models.ExecutionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths, err := listJSONFiles(r.dir())
	if err != nil {
		return nil, err
	}

	stats := &models.ExecutionStats{}

	for _, path := range paths {
		var execution models.WorkflowExecution

		found, err := readJSON(path, &execution)
		if err != nil {
			return nil, err
		}

		if !found {
			continue
		}

		stats.Total++

		switch execution.Status {
		case models.ExecutionStatusPending:
			stats.Pending++
		case models.ExecutionStatusRunning:
			stats.Running++
		case models.ExecutionStatusCompleted:
			stats.Completed++
		case models.ExecutionStatusFailed:
			stats.Failed++
		case models.ExecutionStatusCancelled:
			stats.Cancelled++
		}
	}

	return stats, nil
}

func (r *ExecutionRepository) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := listJSONFiles(r.dir())
	if err != nil {
		return 0, err
	}

	var deleted int64

	for _, path := range paths {
		var execution models.WorkflowExecution

		found, err := readJSON(path, &execution)
		if err != nil {
			return deleted, err
		}

		if !found || !execution.Status.IsTerminal() {
			continue
		}

		if execution.CompletedAt == nil || execution.CompletedAt.After(cutoff) {
			continue
		}

		err = os.Remove(path)
		if err != nil {
			return deleted, err
		}

		// Steps live under <root>/steps/<executionID>; drop them with the owner.
		_ = os.RemoveAll(filepath.Join(r.root, "steps", execution.ID))

		deleted++
	}

	return deleted, nil
}
