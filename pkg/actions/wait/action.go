// Package wait implements the wait action: a cancellable pause between
// workflow steps.
package wait

import (
	"context"
	"log/slog"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// Action pauses the execution for the configured duration. Cancelling the
// context ends the wait early with the context's error.
type Action struct {
	duration time.Duration
}

func NewAction(config map[string]any) (*Action, error) {
	var waitConfig models.WaitConfig

	err := models.DecodeConfig(config, &waitConfig)
	if err != nil {
		return nil, err
	}

	return &Action{duration: waitConfig.Duration()}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "wait_action")
	logger.DebugContext(ctx, "Waiting",
		"execution_id", executionCtx.ExecutionID, "duration", a.duration)

	timer := time.NewTimer(a.duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return map[string]any{
		"waited":     true,
		"durationMs": a.duration.Milliseconds(),
	}, nil
}

// Factory builds wait actions.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionWait
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"durationMs"},
		"properties": map[string]any{
			"durationMs": map[string]any{"type": "number", "minimum": 0},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
