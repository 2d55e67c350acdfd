package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
// Only pending executions may transition to running; running executions
// become terminal exactly once.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status is final.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// StepStatus is the lifecycle state of one execution step.
type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusRunning StepStatus = "running"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// WorkflowExecution is one run instance of a template (or an ad-hoc action
// list) against a specific trigger payload.
type WorkflowExecution struct {
	ID              string          `json:"id"`
	TemplateID      *string         `json:"template_id,omitempty"`
	WorkflowName    string          `json:"workflow_name"`
	TriggerType     TriggerType     `json:"trigger_type"`
	TriggerData     map[string]any  `json:"trigger_data,omitempty"`
	Status          ExecutionStatus `json:"status"`
	Variables       map[string]any  `json:"variables,omitempty"`
	CurrentActionID string          `json:"current_action_id,omitempty"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// ExecutionStep is one action's run state inside an execution. ActionConfig
// is a snapshot taken at execution creation and never mutated afterwards.
type ExecutionStep struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	ActionID     string         `json:"action_id"`
	ActionType   ActionType     `json:"action_type"`
	ActionName   string         `json:"action_name"`
	ActionConfig map[string]any `json:"action_config"`
	Status       StepStatus     `json:"status"`
	Output       map[string]any `json:"output,omitempty"`
	Error        string         `json:"error,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// ExecutionStats aggregates execution counts by status for the admin API.
type ExecutionStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
