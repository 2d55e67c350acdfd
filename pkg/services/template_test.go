package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/persistence/file"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/registry"
)

func newTemplateService(t *testing.T) *TemplateService {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	p := file.NewPersistence(t.TempDir())
	reg := registry.NewDefaultRegistry(logger, registry.Deps{Queue: queue.NewMemoryQueue()})

	return NewTemplateService(p.TemplateRepository(), reg, logger)
}

func validTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		Name:        "Vaccination reminder",
		Category:    "reminders",
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": "appointment.completed",
		},
		Actions: []models.Action{{
			ID:   "a1",
			Type: models.ActionSendEmail,
			Name: "reminder email",
			Config: map[string]any{
				"to":      "owner@clinic.test",
				"subject": "Vaccination due",
			},
		}},
		IsActive: true,
	}
}

func TestCreateValidTemplate(t *testing.T) {
	service := newTemplateService(t)

	created, err := service.Create(context.Background(), validTemplate())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Zero(t, created.UsageCount)
}

func TestCreateTemplateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.WorkflowTemplate)
		wantErr string
	}{
		{
			"short name",
			func(tmpl *models.WorkflowTemplate) { tmpl.Name = "ab" },
			"Name",
		},
		{
			"no actions",
			func(tmpl *models.WorkflowTemplate) { tmpl.Actions = nil },
			"Actions",
		},
		{
			"duplicate action ids",
			func(tmpl *models.WorkflowTemplate) {
				tmpl.Actions = append(tmpl.Actions, tmpl.Actions[0])
			},
			"duplicate action id",
		},
		{
			"unknown action type",
			func(tmpl *models.WorkflowTemplate) { tmpl.Actions[0].Type = "launch_rocket" },
			"unknown action type",
		},
		{
			"schema-invalid config",
			func(tmpl *models.WorkflowTemplate) {
				tmpl.Actions[0].Config = map[string]any{"subject": "no recipient"}
			},
			"action \"a1\"",
		},
		{
			"event trigger without event name",
			func(tmpl *models.WorkflowTemplate) { tmpl.TriggerConfig = map[string]any{} },
			"trigger_config.event",
		},
		{
			"unknown branch reference",
			func(tmpl *models.WorkflowTemplate) {
				missing := "nope"
				tmpl.Actions[0].OnFailure = &missing
			},
			"references unknown action id",
		},
		{
			"schedule trigger without cron",
			func(tmpl *models.WorkflowTemplate) {
				tmpl.TriggerType = models.TriggerTypeSchedule
				tmpl.TriggerConfig = map[string]any{}
			},
			"trigger_config.cron",
		},
		{
			"schedule trigger with bad cron",
			func(tmpl *models.WorkflowTemplate) {
				tmpl.TriggerType = models.TriggerTypeSchedule
				tmpl.TriggerConfig = map[string]any{"cron": "not a cron"}
			},
			"invalid cron expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTemplateService(t)
			tmpl := validTemplate()
			tt.mutate(tmpl)

			_, err := service.Create(context.Background(), tmpl)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateScheduleTemplate(t *testing.T) {
	service := newTemplateService(t)

	tmpl := validTemplate()
	tmpl.TriggerType = models.TriggerTypeSchedule
	tmpl.TriggerConfig = map[string]any{"cron": "0 8 * * 1"}

	_, err := service.Create(context.Background(), tmpl)
	require.NoError(t, err)
}

func TestUpdatePreservesUsageAndCreatedAt(t *testing.T) {
	service := newTemplateService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, validTemplate())
	require.NoError(t, err)

	update := validTemplate()
	update.ID = created.ID
	update.Name = "Vaccination reminder v2"
	update.UsageCount = 999

	updated, err := service.Update(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Zero(t, updated.UsageCount, "usage count cannot be set through updates")
	assert.Equal(t, "Vaccination reminder v2", updated.Name)
}

func TestUpdateMissingTemplate(t *testing.T) {
	service := newTemplateService(t)

	tmpl := validTemplate()
	tmpl.ID = "does-not-exist"

	_, err := service.Update(context.Background(), tmpl)
	require.True(t, persistence.IsTemplateNotFound(err))
}
