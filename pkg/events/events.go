// Package events defines the domain event envelope and the workflow
// execution lifecycle events published by the engine.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Topic is the bus topic all vetflow events travel on.
const Topic = "vetflow.events"

const EventMetadataKey = "key"
const EventNameMetadataKey = "event_name"

// Domain event names emitted by the practice-management business operations.
// The catalogue is open: any "resource.verb" name may appear; these constants
// cover the events referenced by built-in workflows and tests.
const (
	PatientCreated       = "patient.created"
	PatientUpdated       = "patient.updated"
	AppointmentScheduled = "appointment.scheduled"
	AppointmentCompleted = "appointment.completed"
	AppointmentCancelled = "appointment.cancelled"
	InvoiceCreated       = "invoice.created"
	InvoicePaid          = "invoice.paid"
	LabResultReady       = "lab_result.ready"
	InventoryLowStock    = "inventory.low_stock"
)

// Execution lifecycle event names published by the workflow engine itself.
const (
	ExecutionStarted   = "workflow.execution.started"
	ExecutionCompleted = "workflow.execution.completed"
	ExecutionFailed    = "workflow.execution.failed"
	ExecutionCancelled = "workflow.execution.cancelled"
)

// DomainEvent is the wire envelope for every event on the bus.
type DomainEvent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data,omitempty"`
	Source    string         `json:"source,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewDomainEvent builds an envelope with a fresh id and UTC timestamp.
func NewDomainEvent(name string, data map[string]any) DomainEvent {
	return DomainEvent{
		ID:        uuid.New().String(),
		Name:      name,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ExecutionEventData is the payload for engine lifecycle events.
type ExecutionEventData struct {
	ExecutionID  string `json:"execution_id"`
	TemplateID   string `json:"template_id,omitempty"`
	WorkflowName string `json:"workflow_name"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms,omitempty"`
}

// Map converts the lifecycle payload to the generic envelope data map.
func (d ExecutionEventData) Map() map[string]any {
	m := map[string]any{
		"execution_id":  d.ExecutionID,
		"workflow_name": d.WorkflowName,
		"status":        d.Status,
	}

	if d.TemplateID != "" {
		m["template_id"] = d.TemplateID
	}

	if d.Error != "" {
		m["error"] = d.Error
	}

	if d.DurationMs > 0 {
		m["duration_ms"] = d.DurationMs
	}

	return m
}
