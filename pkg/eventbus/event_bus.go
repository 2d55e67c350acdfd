// Package eventbus provides the in-process publish/subscribe channel domain
// events travel on. Handlers' errors are logged by implementations and never
// propagate back to the emitter; delivery is at-least-once.
package eventbus

import (
	"context"

	"github.com/vetsuite/vetflow/pkg/events"
)

// EventHandler reacts to one delivered domain event.
type EventHandler func(ctx context.Context, event events.DomainEvent) error

type EventPublisher interface {
	Publish(ctx context.Context, key string, event events.DomainEvent) error
}

type EventSubscriber interface {
	// Handle registers a handler for one event name.
	Handle(eventName string, handler EventHandler)
	// HandleAll registers a handler invoked for every event regardless of
	// name. The workflow trigger service and webhook dispatcher use this.
	HandleAll(handler EventHandler)
	// Subscribe starts delivering events to registered handlers.
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
