package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
)

const schedulerSyncInterval = time.Minute

// Scheduler runs schedule-triggered templates. It keeps one cron entry per
// active template and resyncs against storage every minute so template edits
// take effect without a restart.
type Scheduler struct {
	persistence persistence.Persistence
	queue       queue.Queue
	logger      *slog.Logger
	cron        *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
}

func NewScheduler(p persistence.Persistence, q queue.Queue, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence: p,
		queue:       q,
		logger:      logger.With("module", "scheduler"),
		cron:        cron.New(),
		entries:     make(map[string]cron.EntryID),
		specs:       make(map[string]string),
	}
}

// Start begins the cron loop and the template resync loop. It returns once
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.sync(ctx)
	s.cron.Start()

	ticker := time.NewTicker(schedulerSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stop := s.cron.Stop()
			<-stop.Done()

			return
		case <-ticker.C:
			s.sync(ctx)
		}
	}
}

// sync reconciles cron entries with the active schedule-triggered templates.
func (s *Scheduler) sync(ctx context.Context) {
	templates, err := s.persistence.TemplateRepository().
		ListActiveByTriggerType(ctx, models.TriggerTypeSchedule)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load schedule templates", "error", err)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(templates))

	for _, template := range templates {
		spec, _ := template.TriggerConfig["cron"].(string)
		if spec == "" {
			continue
		}

		seen[template.ID] = true

		if existing, ok := s.entries[template.ID]; ok {
			if s.specs[template.ID] == spec {
				continue
			}

			s.cron.Remove(existing)
		}

		entryID, err := s.cron.AddFunc(spec, s.fire(template.ID, template.Name))
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping template with invalid cron spec",
				"template_id", template.ID, "cron", spec, "error", err)

			continue
		}

		s.entries[template.ID] = entryID
		s.specs[template.ID] = spec
		s.logger.InfoContext(ctx, "Schedule registered",
			"template_id", template.ID, "name", template.Name, "cron", spec)
	}

	for templateID, entryID := range s.entries {
		if !seen[templateID] {
			s.cron.Remove(entryID)
			delete(s.entries, templateID)
			delete(s.specs, templateID)
			s.logger.InfoContext(context.Background(), "Schedule removed",
				"template_id", templateID)
		}
	}
}

// fire enqueues one workflow.execute job for the template.
func (s *Scheduler) fire(templateID, name string) func() {
	return func() {
		ctx := context.Background()

		_, err := s.queue.Enqueue(ctx, queue.QueueWorkflows, queue.JobTypeExecuteWorkflow, map[string]any{
			"template_id":  templateID,
			"trigger_type": string(models.TriggerTypeSchedule),
			"trigger_data": map[string]any{
				"scheduled_at": time.Now().UTC().Format(time.RFC3339),
			},
		}, nil)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to enqueue scheduled workflow",
				"template_id", templateID, "error", err)

			return
		}

		s.logger.InfoContext(ctx, "Scheduled workflow enqueued",
			"template_id", templateID, "name", name)
	}
}
