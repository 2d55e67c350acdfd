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

// WebhookRepository implements persistence.WebhookRepository on PostgreSQL.
type WebhookRepository struct {
	db *sql.DB
}

func (r *WebhookRepository) Save(ctx context.Context, subscription *models.WebhookSubscription) error {
	events, err := json.Marshal(subscription.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook events: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions
			(id, name, url, secret, events, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			secret = EXCLUDED.secret,
			events = EXCLUDED.events,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`,
		subscription.ID, subscription.Name, subscription.URL, subscription.Secret,
		events, subscription.IsActive, subscription.CreatedAt, subscription.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook subscription %s: %w", subscription.ID, err)
	}

	return nil
}

func scanWebhook(row interface{ Scan(...any) error }) (*models.WebhookSubscription, error) {
	var (
		subscription models.WebhookSubscription
		events       []byte
	)

	err := row.Scan(
		&subscription.ID, &subscription.Name, &subscription.URL,
		&subscription.Secret, &events, &subscription.IsActive,
		&subscription.CreatedAt, &subscription.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(events, &subscription.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook events: %w", err)
	}

	return &subscription, nil
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.WebhookSubscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions WHERE id = $1
	`, id)

	subscription, err := scanWebhook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWebhookNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get webhook subscription %s: %w", id, err)
	}

	return subscription, nil
}

func (r *WebhookRepository) list(ctx context.Context, query string) ([]*models.WebhookSubscription, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []*models.WebhookSubscription

	for rows.Next() {
		subscription, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}

		subscriptions = append(subscriptions, subscription)
	}

	return subscriptions, rows.Err()
}

func (r *WebhookRepository) List(ctx context.Context) ([]*models.WebhookSubscription, error) {
	return r.list(ctx, `
		SELECT id, name, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions ORDER BY created_at ASC
	`)
}

func (r *WebhookRepository) ListActive(ctx context.Context) ([]*models.WebhookSubscription, error) {
	return r.list(ctx, `
		SELECT id, name, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions WHERE is_active ORDER BY created_at ASC
	`)
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM webhook_subscriptions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook subscription %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrWebhookNotFound
	}

	return nil
}
