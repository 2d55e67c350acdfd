package recordmutation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/retry"
	"github.com/vetsuite/vetflow/pkg/template"
)

// storeRetry covers transient record-store failures within one step attempt.
// Anything still failing after this falls through to the step failure path.
var storeRetry = retry.Config{
	MaxAttempts:       3,
	InitialDelay:      200 * time.Millisecond,
	MaxDelay:          2 * time.Second,
	BackoffMultiplier: 2,
	Name:              "record_store",
}

// Action creates or updates one record in the practice-management store.
// The mode is fixed at construction by the owning factory.
type Action struct {
	raw    map[string]any
	create bool
	store  RecordStore
}

func NewAction(config map[string]any, store RecordStore, create bool) (*Action, error) {
	var recordConfig models.RecordConfig

	err := models.DecodeConfig(config, &recordConfig)
	if err != nil {
		return nil, err
	}

	if store == nil {
		store = NewMemoryStore()
	}

	return &Action{raw: config, create: create, store: store}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "record_mutation_action")

	rendered, err := template.RenderConfig(a.raw, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render record config: %w", err)
	}

	var recordConfig models.RecordConfig

	err = models.DecodeConfig(rendered, &recordConfig)
	if err != nil {
		return nil, err
	}

	if a.create {
		var id string

		err = retry.DoWithJitter(ctx, logger, storeRetry, func(ctx context.Context) error {
			var createErr error

			id, createErr = a.store.Create(ctx, recordConfig.Resource, recordConfig.Fields)

			return createErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s record: %w", recordConfig.Resource, err)
		}

		logger.InfoContext(ctx, "Record created",
			"execution_id", executionCtx.ExecutionID,
			"resource", recordConfig.Resource, "record_id", id)

		return map[string]any{
			"recordCreated": true,
			"recordId":      id,
			"resource":      recordConfig.Resource,
		}, nil
	}

	err = retry.DoWithJitter(ctx, logger, storeRetry, func(ctx context.Context) error {
		return a.store.Update(ctx, recordConfig.Resource, recordConfig.RecordID, recordConfig.Fields)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w",
			recordConfig.Resource, recordConfig.RecordID, err)
	}

	logger.InfoContext(ctx, "Record updated",
		"execution_id", executionCtx.ExecutionID,
		"resource", recordConfig.Resource, "record_id", recordConfig.RecordID)

	return map[string]any{
		"recordUpdated": true,
		"recordId":      recordConfig.RecordID,
		"resource":      recordConfig.Resource,
	}, nil
}
