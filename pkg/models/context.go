package models

// ExecutionContext is the read view handlers get of a running execution.
// Variables accumulate step outputs; TriggerData is the immutable payload
// the execution was started with.
type ExecutionContext struct {
	ExecutionID  string
	WorkflowName string
	Variables    map[string]any
	TriggerData  map[string]any
}

// Scope returns the merged lookup map used for templating and condition
// evaluation. Variables shadow trigger data on key collisions.
func (c ExecutionContext) Scope() map[string]any {
	return EvaluationScope(c.Variables, c.TriggerData)
}
