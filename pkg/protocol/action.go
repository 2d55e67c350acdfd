// Package protocol defines the contracts action handlers implement.
package protocol

import (
	"context"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/models"
)

// Action executes one configured action against the current execution
// context and returns the output map merged into execution variables once
// the action's parallel group resolves.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds Action instances from raw step configs.
type ActionFactory interface {
	// Create instantiates an action from its config map. The config has
	// already passed schema validation.
	Create(config map[string]any) (Action, error)

	// ID returns the action type this factory serves.
	ID() models.ActionType

	// Schema returns the JSON schema the config is validated against.
	Schema() map[string]any
}
