package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/vetsuite/vetflow/pkg/events"
)

// WatermillEventBus adapts a watermill publisher/subscriber pair to the
// EventBus interface. The same type serves the gochannel transport in
// development and tests and the kafka transport in production.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "event_bus"),
		handlers:   make(map[string][]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, key string, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventNameMetadataKey, event.Name)

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Handle(eventName string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventName] = append(eb.handlers[eventName], handler)
}

func (eb *WatermillEventBus) HandleAll(handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allHandlers = append(eb.allHandlers, handler)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
			msg.Ack()
		}
	}()

	return nil
}

// dispatch fans one message out to name-specific and catch-all handlers.
// Handler errors are logged and swallowed so one listener can never poison
// delivery to the others or to the emitter.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	var event events.DomainEvent

	err := json.Unmarshal(msg.Payload, &event)
	if err != nil {
		eb.logger.ErrorContext(ctx, "Failed to unmarshal event payload",
			"message_id", msg.UUID, "error", err)

		return
	}

	if event.Name == "" {
		event.Name = msg.Metadata.Get(events.EventNameMetadataKey)
	}

	eb.mu.RLock()
	named := make([]EventHandler, len(eb.handlers[event.Name]))
	copy(named, eb.handlers[event.Name])
	all := make([]EventHandler, len(eb.allHandlers))
	copy(all, eb.allHandlers)
	eb.mu.RUnlock()

	for _, handler := range named {
		if err := handler(ctx, event); err != nil {
			eb.logger.ErrorContext(ctx, "Event handler failed",
				"event", event.Name, "event_id", event.ID, "error", err)
		}
	}

	for _, handler := range all {
		if err := handler(ctx, event); err != nil {
			eb.logger.ErrorContext(ctx, "Catch-all event handler failed",
				"event", event.Name, "event_id", event.ID, "error", err)
		}
	}
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
