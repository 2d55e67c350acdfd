// Package trigger connects domain events to workflow executions: every event
// on the bus is matched against active event-triggered templates and each
// match becomes a queued workflow.execute job.
package trigger

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vetsuite/vetflow/pkg/eventbus"
	"github.com/vetsuite/vetflow/pkg/events"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
)

// Service matches domain events to workflow templates.
type Service struct {
	persistence persistence.Persistence
	queue       queue.Queue
	logger      *slog.Logger
}

func NewService(p persistence.Persistence, q queue.Queue, logger *slog.Logger) *Service {
	return &Service{
		persistence: p,
		queue:       q,
		logger:      logger.With("module", "trigger"),
	}
}

// Bind registers the service on the bus as a catch-all subscriber.
func (s *Service) Bind(bus eventbus.EventSubscriber) {
	bus.HandleAll(s.HandleEvent)
}

// HandleEvent enqueues one workflow.execute job per active template whose
// trigger listens for the event. Matches are enqueued concurrently and
// independently: one enqueue failure never blocks the others. Engine
// lifecycle events are ignored so workflows cannot trigger themselves
// transitively.
func (s *Service) HandleEvent(ctx context.Context, event events.DomainEvent) error {
	if strings.HasPrefix(event.Name, "workflow.execution.") {
		return nil
	}

	templates, err := s.persistence.TemplateRepository().
		ListActiveByTriggerType(ctx, models.TriggerTypeEvent)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load event templates",
			"event", event.Name, "error", err)

		return err
	}

	var matched []*models.WorkflowTemplate

	for _, template := range templates {
		if template.EventName() == event.Name {
			matched = append(matched, template)
		}
	}

	if len(matched) == 0 {
		return nil
	}

	s.logger.InfoContext(ctx, "Event matched workflow templates",
		"event", event.Name, "matches", len(matched))

	group := new(errgroup.Group)

	for _, template := range matched {
		group.Go(func() error {
			_, err := s.queue.Enqueue(ctx, queue.QueueWorkflows, queue.JobTypeExecuteWorkflow, map[string]any{
				"template_id":  template.ID,
				"event":        event.Name,
				"trigger_data": event.Data,
			}, nil)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to enqueue workflow job",
					"template_id", template.ID, "event", event.Name, "error", err)

				return err
			}

			return nil
		})
	}

	// Errors were already logged per template; the handler never fails the
	// bus delivery over a partial fan-out.
	_ = group.Wait()

	return nil
}
