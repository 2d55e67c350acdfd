// Package postgresql provides PostgreSQL persistence for workflow templates,
// executions, steps, and webhook subscriptions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	templateRepo  *TemplateRepository
	executionRepo *ExecutionRepository
	stepRepo      *StepRepository
	webhookRepo   *WebhookRepository
}

// NewPersistence connects, runs migrations, and returns a ready persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		templateRepo:  &TemplateRepository{db: database},
		executionRepo: &ExecutionRepository{db: database},
		stepRepo:      &StepRepository{db: database},
		webhookRepo:   &WebhookRepository{db: database},
	}, nil
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) StepRepository() persistence.StepRepository {
	return p.stepRepo
}

func (p *Persistence) WebhookRepository() persistence.WebhookRepository {
	return p.webhookRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
