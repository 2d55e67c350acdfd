package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
)

// TemplateRepository implements persistence.TemplateRepository on PostgreSQL.
type TemplateRepository struct {
	db *sql.DB
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.WorkflowTemplate) error {
	triggerConfig, err := json.Marshal(template.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	actions, err := json.Marshal(template.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_templates
			(id, name, description, category, trigger_type, trigger_config,
			 actions, is_active, is_public, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			actions = EXCLUDED.actions,
			is_active = EXCLUDED.is_active,
			is_public = EXCLUDED.is_public,
			updated_at = EXCLUDED.updated_at
	`,
		template.ID, template.Name, template.Description, template.Category,
		template.TriggerType, triggerConfig, actions, template.IsActive,
		template.IsPublic, template.UsageCount, template.CreatedAt, template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

const templateColumns = `
	id, name, description, category, trigger_type, trigger_config,
	actions, is_active, is_public, usage_count, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*models.WorkflowTemplate, error) {
	var (
		template      models.WorkflowTemplate
		triggerConfig []byte
		actions       []byte
	)

	err := row.Scan(
		&template.ID, &template.Name, &template.Description, &template.Category,
		&template.TriggerType, &triggerConfig, &actions, &template.IsActive,
		&template.IsPublic, &template.UsageCount, &template.CreatedAt, &template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(triggerConfig, &template.TriggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	err = json.Unmarshal(actions, &template.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &template, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+templateColumns+" FROM workflow_templates WHERE id = $1", id)

	template, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrTemplateNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}

	return template, nil
}

func (r *TemplateRepository) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.ListTemplatesResult, error) {
	where := "WHERE 1=1"
	args := []any{}

	if opts.Category != "" {
		args = append(args, opts.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}

	if opts.TriggerType != nil {
		args = append(args, *opts.TriggerType)
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if opts.IsActive != nil {
		args = append(args, *opts.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	var total int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_templates "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	args = append(args, limit, opts.Offset)
	query := fmt.Sprintf(
		"SELECT"+templateColumns+" FROM workflow_templates %s ORDER BY usage_count DESC, name ASC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*models.WorkflowTemplate, 0, limit)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}

	return &persistence.ListTemplatesResult{
		Templates:   templates,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(templates)) < total,
	}, nil
}

func (r *TemplateRepository) ListActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT"+templateColumns+" FROM workflow_templates WHERE is_active AND trigger_type = $1",
		triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list active templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.WorkflowTemplate

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}

		templates = append(templates, template)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) IncrementUsageCount(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE workflow_templates SET usage_count = usage_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment usage count for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrTemplateNotFound
	}

	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrTemplateNotFound
	}

	return nil
}
