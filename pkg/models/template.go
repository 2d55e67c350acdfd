// Package models defines the core domain models for workflow automation.
package models

import "time"

// TriggerType identifies how a workflow template is started.
type TriggerType string

const (
	TriggerTypeEvent    TriggerType = "event"    // Started by a domain event
	TriggerTypeSchedule TriggerType = "schedule" // Started by the cron scheduler
	TriggerTypeManual   TriggerType = "manual"   // Started via the admin API
)

// WorkflowTemplate is a reusable, named definition of a trigger plus an
// ordered action list. Templates are versionless: updates mutate in place
// and re-validate the action list.
type WorkflowTemplate struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"          validate:"required,min=3"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	TriggerType   TriggerType    `json:"trigger_type"  validate:"required,oneof=event schedule manual"`
	TriggerConfig map[string]any `json:"trigger_config"`
	Actions       []Action       `json:"actions"       validate:"required,min=1,dive"`
	IsActive      bool           `json:"is_active"`
	IsPublic      bool           `json:"is_public"`
	UsageCount    int64          `json:"usage_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// EventName returns the domain event name an event-triggered template
// listens for, or "" when the template is not event-triggered or the
// trigger config is incomplete.
func (t *WorkflowTemplate) EventName() string {
	if t.TriggerType != TriggerTypeEvent {
		return ""
	}

	name, _ := t.TriggerConfig["event"].(string)

	return name
}
