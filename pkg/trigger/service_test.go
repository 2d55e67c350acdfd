package trigger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/events"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/persistence/file"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/registry"
)

func newTestService(t *testing.T) (*Service, persistence.Persistence, *queue.MemoryQueue) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	p := file.NewPersistence(t.TempDir())
	q := queue.NewMemoryQueue()

	return NewService(p, q, logger), p, q
}

func emailTemplate(id, event string) *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:          id,
		Name:        "Welcome email " + id,
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": event,
		},
		Actions: []models.Action{{
			ID:   "a1",
			Type: models.ActionSendEmail,
			Name: "welcome email",
			Config: map[string]any{
				"to":      "{{.trigger.ownerEmail}}",
				"subject": "Welcome to the clinic",
			},
		}},
		IsActive: true,
	}
}

func TestHandleEventEnqueuesMatchingTemplates(t *testing.T) {
	service, p, q := newTestService(t)
	ctx := context.Background()

	require.NoError(t, p.TemplateRepository().Save(ctx, emailTemplate("t1", "patient.created")))
	require.NoError(t, p.TemplateRepository().Save(ctx, emailTemplate("t2", "patient.created")))
	require.NoError(t, p.TemplateRepository().Save(ctx, emailTemplate("t3", "invoice.paid")))

	inactive := emailTemplate("t4", "patient.created")
	inactive.IsActive = false
	require.NoError(t, p.TemplateRepository().Save(ctx, inactive))

	event := events.NewDomainEvent(events.PatientCreated, map[string]any{"patientId": "p-1"})
	require.NoError(t, service.HandleEvent(ctx, event))

	var jobs []*queue.Job

	for {
		job, err := q.Dequeue(ctx, queue.QueueWorkflows)
		require.NoError(t, err)

		if job == nil {
			break
		}

		jobs = append(jobs, job)
	}

	require.Len(t, jobs, 2, "only active templates listening for the event match")

	templateIDs := []string{
		jobs[0].Payload["template_id"].(string),
		jobs[1].Payload["template_id"].(string),
	}
	assert.ElementsMatch(t, []string{"t1", "t2"}, templateIDs)
}

func TestHandleEventIgnoresLifecycleEvents(t *testing.T) {
	service, p, q := newTestService(t)
	ctx := context.Background()

	require.NoError(t, p.TemplateRepository().Save(ctx,
		emailTemplate("t1", "workflow.execution.completed")))

	event := events.NewDomainEvent(events.ExecutionCompleted, nil)
	require.NoError(t, service.HandleEvent(ctx, event))

	job, err := q.Dequeue(ctx, queue.QueueWorkflows)
	require.NoError(t, err)
	assert.Nil(t, job, "engine lifecycle events never trigger workflows")
}

// TestEventToCompletedExecution runs the whole trigger path: domain event in,
// matched template, queued job, execution processed to completion.
func TestEventToCompletedExecution(t *testing.T) {
	service, p, q := newTestService(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	require.NoError(t, p.TemplateRepository().Save(ctx, emailTemplate("t1", "patient.created")))

	reg := registry.NewDefaultRegistry(logger, registry.Deps{Queue: q})
	eng := engine.New(p, reg, nil, logger)
	handler := NewExecuteJobHandler(p, eng, logger)

	event := events.NewDomainEvent(events.PatientCreated, map[string]any{
		"patientId":  "p-1",
		"ownerEmail": "owner@clinic.test",
	})
	require.NoError(t, service.HandleEvent(ctx, event))

	job, err := q.Dequeue(ctx, queue.QueueWorkflows)
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, handler(ctx, job))

	executions, err := p.ExecutionRepository().List(ctx, persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, executions, 1)

	execution := executions[0]
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, models.TriggerTypeEvent, execution.TriggerType)
	assert.Equal(t, true, execution.Variables["emailSent"])
	assert.Equal(t, "owner@clinic.test", execution.Variables["emailTo"], "trigger data is templated into configs")
}

func TestExecuteJobHandlerProcessesExistingExecution(t *testing.T) {
	_, p, q := newTestService(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	template := emailTemplate("t1", "patient.created")
	require.NoError(t, p.TemplateRepository().Save(ctx, template))

	reg := registry.NewDefaultRegistry(logger, registry.Deps{Queue: q})
	eng := engine.New(p, reg, nil, logger)

	execution, err := eng.StartExecution(ctx, template, models.TriggerTypeManual,
		map[string]any{"ownerEmail": "manual@clinic.test"})
	require.NoError(t, err)

	handler := NewExecuteJobHandler(p, eng, logger)
	require.NoError(t, handler(ctx, &queue.Job{
		ID:      "job-1",
		Payload: map[string]any{"execution_id": execution.ID},
	}))

	final, err := p.ExecutionRepository().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
}
