// Package webhooks fans domain events out to external HTTP endpoints. The
// dispatcher turns bus events into queued delivery jobs; the deliverer signs
// and posts them with per-endpoint circuit breaking.
package webhooks

import (
	"context"
	"log/slog"

	"github.com/vetsuite/vetflow/pkg/eventbus"
	"github.com/vetsuite/vetflow/pkg/events"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// Dispatcher enqueues one delivery job per active matching subscription for
// every event on the bus.
type Dispatcher struct {
	persistence persistence.Persistence
	queue       queue.Queue
	logger      *slog.Logger
}

func NewDispatcher(p persistence.Persistence, q queue.Queue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence: p,
		queue:       q,
		logger:      logger.With("module", "webhook_dispatcher"),
	}
}

// Bind registers the dispatcher on the bus as a catch-all subscriber.
func (d *Dispatcher) Bind(bus eventbus.EventSubscriber) {
	bus.HandleAll(d.HandleEvent)
}

func (d *Dispatcher) HandleEvent(ctx context.Context, event events.DomainEvent) error {
	subscriptions, err := d.persistence.WebhookRepository().ListActive(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to load webhook subscriptions",
			"event", event.Name, "error", err)

		return err
	}

	for _, subscription := range subscriptions {
		if !subscription.Matches(event.Name) {
			continue
		}

		_, err := d.queue.Enqueue(ctx, queue.QueueWebhooks, queue.JobTypeDeliverWebhook, map[string]any{
			"url":        subscription.URL,
			"secret":     subscription.Secret,
			"event":      event.Name,
			"data":       event.Data,
			"webhook_id": subscription.ID,
		}, nil)
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to enqueue webhook delivery",
				"webhook_id", subscription.ID, "event", event.Name, "error", err)

			continue
		}

		d.logger.DebugContext(ctx, "Webhook delivery queued",
			"webhook_id", subscription.ID, "event", event.Name)
	}

	return nil
}
