// Package condition implements the condition action: it evaluates a
// condition list against the execution's data and records the outcome.
// A false outcome is a successful step, not a failure.
package condition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/protocol"
)

// Action evaluates the configured conditions.
type Action struct {
	config models.ConditionConfig
}

func NewAction(config map[string]any) (*Action, error) {
	var conditionConfig models.ConditionConfig

	err := models.DecodeConfig(config, &conditionConfig)
	if err != nil {
		return nil, err
	}

	return &Action{config: conditionConfig}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "condition_action")

	scope := models.EvaluationScope(executionCtx.Variables, executionCtx.TriggerData)

	met, err := models.EvaluateConditions(a.config.Conditions, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate conditions: %w", err)
	}

	logger.DebugContext(ctx, "Conditions evaluated",
		"execution_id", executionCtx.ExecutionID, "condition_met", met)

	return map[string]any{
		"conditionMet": met,
	}, nil
}

// Factory builds condition actions.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *Factory) ID() models.ActionType {
	return models.ActionCondition
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"conditions"},
		"properties": map[string]any{
			"conditions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"field", "operator"},
					"properties": map[string]any{
						"field":           map[string]any{"type": "string", "minLength": 1},
						"operator":        map[string]any{"type": "string"},
						"value":           map[string]any{},
						"logicalOperator": map[string]any{"type": "string", "enum": []string{"AND", "OR"}},
					},
				},
			},
			"isParallel": map[string]any{"type": "boolean"},
		},
	}
}
