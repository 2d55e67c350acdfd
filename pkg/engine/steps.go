package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
)

// actionTimeout returns the per-dispatch timeout for an action type. Waits
// pace themselves and conditions are pure computation, so neither is bounded.
func actionTimeout(actionType models.ActionType) time.Duration {
	switch actionType {
	case models.ActionWait, models.ActionCondition:
		return 0
	default:
		return 30 * time.Second
	}
}

// stepResult pairs one group member with its outcome.
type stepResult struct {
	step   *models.ExecutionStep
	output map[string]any
	err    error
}

// runSteps walks the execution's steps in parallel groups. Contiguous steps
// flagged isParallel form one group; every other step is a group of one. A
// group's members run concurrently and all of them finish before their
// outputs are merged into the execution variables, in template order. The
// first group with a failed member aborts the run after the merge.
func (e *Engine) runSteps(ctx context.Context, execution *models.WorkflowExecution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("execution panicked: %v", r)
		}
	}()

	steps, err := e.persistence.StepRepository().ListByExecution(ctx, execution.ID)
	if err != nil {
		return fmt.Errorf("failed to load execution steps: %w", err)
	}

	for _, group := range groupSteps(steps) {
		// A cancel that landed between groups wins; stop doing work.
		current, err := e.persistence.ExecutionRepository().GetByID(ctx, execution.ID)
		if err != nil {
			return fmt.Errorf("failed to reload execution: %w", err)
		}

		if current.Status != models.ExecutionStatusRunning {
			return nil
		}

		groupErr := e.runGroup(ctx, execution, group)
		if groupErr != nil {
			return groupErr
		}
	}

	return nil
}

// groupSteps splits the ordered step list into dispatch groups.
func groupSteps(steps []*models.ExecutionStep) [][]*models.ExecutionStep {
	var groups [][]*models.ExecutionStep

	i := 0
	for i < len(steps) {
		if !isParallelStep(steps[i]) {
			groups = append(groups, steps[i:i+1])
			i++

			continue
		}

		j := i
		for j < len(steps) && isParallelStep(steps[j]) {
			j++
		}

		groups = append(groups, steps[i:j])
		i = j
	}

	return groups
}

func isParallelStep(step *models.ExecutionStep) bool {
	parallel, _ := step.ActionConfig["isParallel"].(bool)

	return parallel
}

// runGroup dispatches every member concurrently, waits for all of them,
// merges successful outputs into the execution variables, and reports the
// group's failures as one error.
func (e *Engine) runGroup(ctx context.Context, execution *models.WorkflowExecution, group []*models.ExecutionStep) error {
	err := e.persistence.ExecutionRepository().SetCurrentAction(ctx, execution.ID, group[0].ActionID)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to set current action",
			"execution_id", execution.ID, "error", err)
	}

	results := make([]stepResult, len(group))

	var wg sync.WaitGroup

	for i, step := range group {
		wg.Add(1)

		go func(i int, step *models.ExecutionStep) {
			defer wg.Done()

			output, err := e.runStep(ctx, execution, step)
			results[i] = stepResult{step: step, output: output, err: err}
		}(i, step)
	}

	wg.Wait()

	var failures []string

	for _, result := range results {
		if result.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", result.step.ActionName, result.err))

			continue
		}

		for key, value := range result.output {
			execution.Variables[key] = value
		}
	}

	err = e.persistence.ExecutionRepository().SaveVariables(ctx, execution.ID, execution.Variables)
	if err != nil {
		return fmt.Errorf("failed to save execution variables: %w", err)
	}

	if len(failures) > 0 {
		return fmt.Errorf("action failed: %s", strings.Join(failures, "; "))
	}

	return nil
}

// runStep executes one step and persists its status transitions. Every
// failure path lands the step in failed with the error recorded; the caller
// decides what a failure means for the execution.
func (e *Engine) runStep(ctx context.Context, execution *models.WorkflowExecution, step *models.ExecutionStep) (map[string]any, error) {
	now := time.Now().UTC()
	step.Status = models.StepStatusRunning
	step.StartedAt = &now

	err := e.persistence.StepRepository().UpdateStatus(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("failed to mark step running: %w", err)
	}

	output, execErr := e.dispatch(ctx, execution, step)

	done := time.Now().UTC()
	step.CompletedAt = &done

	if execErr != nil {
		step.Status = models.StepStatusFailed
		step.Error = execErr.Error()
	} else {
		step.Status = models.StepStatusSuccess
		step.Output = output
	}

	err = e.persistence.StepRepository().UpdateStatus(ctx, step)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist step result",
			"execution_id", execution.ID, "step_id", step.ID, "error", err)
	}

	return output, execErr
}

// dispatch instantiates the step's handler and executes it under the
// per-type timeout. Handlers see a copy of the variables so concurrent group
// members cannot race on the shared map.
func (e *Engine) dispatch(ctx context.Context, execution *models.WorkflowExecution, step *models.ExecutionStep) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()

	action, err := e.registry.CreateAction(step.ActionType, step.ActionConfig)
	if err != nil {
		return nil, err
	}

	if timeout := actionTimeout(step.ActionType); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	executionCtx := models.ExecutionContext{
		ExecutionID:  execution.ID,
		WorkflowName: execution.WorkflowName,
		Variables:    copyMap(execution.Variables),
		TriggerData:  execution.TriggerData,
	}

	logger := e.logger.With(slog.String("action_id", step.ActionID))

	return action.Execute(ctx, executionCtx, logger)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
