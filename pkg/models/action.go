package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType identifies the handler an action dispatches to.
type ActionType string

const (
	ActionSendEmail        ActionType = "send_email"
	ActionSendNotification ActionType = "send_notification"
	ActionUpdateRecord     ActionType = "update_record"
	ActionCreateRecord     ActionType = "create_record"
	ActionWebhook          ActionType = "webhook"
	ActionWait             ActionType = "wait"
	ActionCondition        ActionType = "condition"
)

// ActionTypes lists every registered action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionSendEmail,
		ActionSendNotification,
		ActionUpdateRecord,
		ActionCreateRecord,
		ActionWebhook,
		ActionWait,
		ActionCondition,
	}
}

// Action is one typed unit of work within a workflow template. OnSuccess and
// OnFailure are stored and validated but execution always follows template
// order through the parallel-grouping algorithm.
type Action struct {
	ID        string         `json:"id"     validate:"required"`
	Type      ActionType     `json:"type"   validate:"required"`
	Name      string         `json:"name"   validate:"required"`
	Config    map[string]any `json:"config"`
	OnSuccess *string        `json:"on_success,omitempty"`
	OnFailure *string        `json:"on_failure,omitempty"`
}

// IsParallel reports whether the action is flagged for parallel grouping.
func (a Action) IsParallel() bool {
	parallel, _ := a.Config["isParallel"].(bool)

	return parallel
}

// Typed views over the opaque per-action config maps. Each handler decodes
// the variant it owns at dispatch time; unknown keys are ignored.

type EmailConfig struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

type NotificationConfig struct {
	Recipient string `json:"recipient"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Channel   string `json:"channel,omitempty"`
}

type RecordConfig struct {
	Resource string         `json:"resource"`
	RecordID string         `json:"recordId,omitempty"`
	Fields   map[string]any `json:"fields"`
}

type WebhookConfig struct {
	URL    string         `json:"url"`
	Event  string         `json:"event,omitempty"`
	Secret string         `json:"secret,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

type WaitConfig struct {
	DurationMs int64 `json:"durationMs"`
}

// Duration returns the configured wait as a time.Duration.
func (c WaitConfig) Duration() time.Duration {
	return time.Duration(c.DurationMs) * time.Millisecond
}

type ConditionConfig struct {
	Conditions []Condition `json:"conditions"`
}

// DecodeConfig converts an opaque action config map into the typed config
// struct for its action type via a JSON round trip.
func DecodeConfig(config map[string]any, out any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("failed to decode action config: %w", err)
	}

	return nil
}
