package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vetsuite/vetflow/pkg/models"
)

// StepRepository implements persistence.StepRepository on PostgreSQL.
type StepRepository struct {
	db *sql.DB
}

func (r *StepRepository) CreateBatch(ctx context.Context, steps []*models.ExecutionStep) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, step := range steps {
		config, err := json.Marshal(step.ActionConfig)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to marshal action config: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO execution_steps
				(id, execution_id, action_id, action_type, action_name,
				 action_config, status, error, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			step.ID, step.ExecutionID, step.ActionID, step.ActionType,
			step.ActionName, config, step.Status, step.Error,
			step.StartedAt, step.CompletedAt,
		)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to insert step %s: %w", step.ID, err)
		}
	}

	return tx.Commit()
}

func (r *StepRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.ExecutionStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, action_id, action_type, action_name,
			   action_config, status, output, error, started_at, completed_at
		FROM execution_steps
		WHERE execution_id = $1
		ORDER BY id ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps for %s: %w", executionID, err)
	}
	defer rows.Close()

	var steps []*models.ExecutionStep

	for rows.Next() {
		var (
			step   models.ExecutionStep
			config []byte
			output []byte
		)

		err = rows.Scan(
			&step.ID, &step.ExecutionID, &step.ActionID, &step.ActionType,
			&step.ActionName, &config, &step.Status, &output, &step.Error,
			&step.StartedAt, &step.CompletedAt,
		)
		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(config, &step.ActionConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
		}

		if output != nil {
			err = json.Unmarshal(output, &step.Output)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal step output: %w", err)
			}
		}

		steps = append(steps, &step)
	}

	return steps, rows.Err()
}

func (r *StepRepository) UpdateStatus(ctx context.Context, step *models.ExecutionStep) error {
	var output []byte

	if step.Output != nil {
		var err error

		output, err = json.Marshal(step.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal step output: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE execution_steps
		SET status = $1, output = $2, error = $3, started_at = $4, completed_at = $5
		WHERE execution_id = $6 AND id = $7
	`, step.Status, output, step.Error, step.StartedAt, step.CompletedAt, step.ExecutionID, step.ID)
	if err != nil {
		return fmt.Errorf("failed to update step %s: %w", step.ID, err)
	}

	return nil
}

func (r *StepRepository) MarkPendingSkipped(ctx context.Context, executionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE execution_steps
		SET status = $1
		WHERE execution_id = $2 AND status = $3
	`, models.StepStatusSkipped, executionID, models.StepStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to skip pending steps for %s: %w", executionID, err)
	}

	return result.RowsAffected()
}
