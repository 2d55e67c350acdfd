package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// ExecutionRepository implements persistence.ExecutionRepository on PostgreSQL.
type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerData, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	variables, err := json.Marshal(execution.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions
			(id, template_id, workflow_name, trigger_type, trigger_data,
			 status, variables, current_action_id, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		execution.ID, execution.TemplateID, execution.WorkflowName,
		execution.TriggerType, triggerData, execution.Status, variables,
		execution.CurrentActionID, execution.Error, execution.StartedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution %s: %w", execution.ID, err)
	}

	return nil
}

const executionColumns = `
	id, template_id, workflow_name, trigger_type, trigger_data,
	status, variables, current_action_id, error, started_at, completed_at`

func scanExecution(row interface{ Scan(...any) error }) (*models.WorkflowExecution, error) {
	var (
		execution   models.WorkflowExecution
		triggerData []byte
		variables   []byte
	)

	err := row.Scan(
		&execution.ID, &execution.TemplateID, &execution.WorkflowName,
		&execution.TriggerType, &triggerData, &execution.Status, &variables,
		&execution.CurrentActionID, &execution.Error, &execution.StartedAt,
		&execution.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(triggerData, &execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
	}

	err = json.Unmarshal(variables, &execution.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+executionColumns+" FROM workflow_executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) List(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.WorkflowExecution, error) {
	where := "WHERE 1=1"
	args := []any{}

	if opts.TemplateID != "" {
		args = append(args, opts.TemplateID)
		where += fmt.Sprintf(" AND template_id = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	args = append(args, limit, opts.Offset)
	query := fmt.Sprintf(
		"SELECT"+executionColumns+" FROM workflow_executions %s ORDER BY started_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	executions := make([]*models.WorkflowExecution, 0, limit)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

// UpdateStatus is a conditional write: the transition only happens when the
// stored status still matches expected. A zero-row update means another
// worker won the race.
func (r *ExecutionRepository) UpdateStatus(ctx context.Context, id string, expected, next models.ExecutionStatus, errorMessage string, completedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $1,
			error = CASE WHEN $2 <> '' THEN $2 ELSE error END,
			completed_at = COALESCE($3, completed_at)
		WHERE id = $4 AND status = $5
	`, next, errorMessage, completedAt, id, expected)
	if err != nil {
		return fmt.Errorf("failed to update execution %s status: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		_, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}

		return persistence.ErrExecutionStatusConflict
	}

	return nil
}

func (r *ExecutionRepository) SaveVariables(ctx context.Context, id string, variables map[string]any) error {
	data, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE workflow_executions SET variables = $1 WHERE id = $2", data, id)
	if err != nil {
		return fmt.Errorf("failed to save variables for %s: %w", id, err)
	}

	return nil
}

func (r *ExecutionRepository) SetCurrentAction(ctx context.Context, id string, actionID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE workflow_executions SET current_action_id = $1 WHERE id = $2", actionID, id)
	if err != nil {
		return fmt.Errorf("failed to set current action for %s: %w", id, err)
	}

	return nil
}

func (r *ExecutionRepository) Stats(ctx context.Context) (*models.ExecutionStats, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM workflow_executions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query execution stats: %w", err)
	}
	defer rows.Close()

	stats := &models.ExecutionStats{}

	for rows.Next() {
		var (
			status models.ExecutionStatus
			count  int64
		)

		err = rows.Scan(&status, &count)
		if err != nil {
			return nil, err
		}

		stats.Total += count

		switch status {
		case models.ExecutionStatusPending:
			stats.Pending = count
		case models.ExecutionStatusRunning:
			stats.Running = count
		case models.ExecutionStatusCompleted:
			stats.Completed = count
		case models.ExecutionStatusFailed:
			stats.Failed = count
		case models.ExecutionStatusCancelled:
			stats.Cancelled = count
		}
	}

	return stats, rows.Err()
}

func (r *ExecutionRepository) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM workflow_executions
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND completed_at IS NOT NULL
		  AND completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal executions: %w", err)
	}

	return result.RowsAffected()
}
