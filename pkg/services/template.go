package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/registry"
)

// TemplateService manages workflow template lifecycles. Every save path runs
// the full validation: struct tags, action list shape, and per-action config
// schemas.
type TemplateService struct {
	repo      persistence.TemplateRepository
	registry  *registry.Registry
	validator *validator.Validate
	logger    *slog.Logger
}

func NewTemplateService(repo persistence.TemplateRepository, r *registry.Registry, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		repo:      repo,
		registry:  r,
		validator: validator.New(),
		logger:    logger.With("module", "template_service"),
	}
}

func (s *TemplateService) Create(ctx context.Context, template *models.WorkflowTemplate) (*models.WorkflowTemplate, error) {
	if template.ID == "" {
		template.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	template.UsageCount = 0

	err := s.Validate(template)
	if err != nil {
		return nil, err
	}

	err = s.repo.Save(ctx, template)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Template created",
		"template_id", template.ID, "name", template.Name)

	return template, nil
}

func (s *TemplateService) Update(ctx context.Context, template *models.WorkflowTemplate) (*models.WorkflowTemplate, error) {
	existing, err := s.repo.GetByID(ctx, template.ID)
	if err != nil {
		return nil, err
	}

	template.CreatedAt = existing.CreatedAt
	template.UsageCount = existing.UsageCount
	template.UpdatedAt = time.Now().UTC()

	err = s.Validate(template)
	if err != nil {
		return nil, err
	}

	err = s.repo.Save(ctx, template)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Template updated", "template_id", template.ID)

	return template, nil
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TemplateService) List(ctx context.Context, opts persistence.ListTemplatesOptions) (*persistence.ListTemplatesResult, error) {
	return s.repo.List(ctx, opts)
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Template deleted", "template_id", id)

	return nil
}

// Validate checks the whole template: struct tags, action id uniqueness,
// registered action types, schema-valid configs, branch references, and the
// trigger config required by the trigger type.
func (s *TemplateService) Validate(template *models.WorkflowTemplate) error {
	err := s.validator.Struct(template)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	ids := make(map[string]bool, len(template.Actions))

	for _, action := range template.Actions {
		if ids[action.ID] {
			return fmt.Errorf("%w: duplicate action id %q", ErrValidation, action.ID)
		}

		ids[action.ID] = true

		if !s.registry.IsRegistered(action.Type) {
			return fmt.Errorf("%w: unknown action type %q", ErrValidation, action.Type)
		}

		err = s.registry.ValidateConfig(action.Type, action.Config)
		if err != nil {
			return fmt.Errorf("%w: action %q: %s", ErrValidation, action.ID, err.Error())
		}
	}

	for _, action := range template.Actions {
		for _, ref := range []*string{action.OnSuccess, action.OnFailure} {
			if ref != nil && *ref != "" && !ids[*ref] {
				return fmt.Errorf("%w: action %q references unknown action id %q",
					ErrValidation, action.ID, *ref)
			}
		}
	}

	switch template.TriggerType {
	case models.TriggerTypeEvent:
		if template.EventName() == "" {
			return fmt.Errorf("%w: event trigger requires trigger_config.event", ErrValidation)
		}
	case models.TriggerTypeSchedule:
		expr, _ := template.TriggerConfig["cron"].(string)
		if expr == "" {
			return fmt.Errorf("%w: schedule trigger requires trigger_config.cron", ErrValidation)
		}

		_, err = cron.ParseStandard(expr)
		if err != nil {
			return fmt.Errorf("%w: invalid cron expression %q: %s", ErrValidation, expr, err.Error())
		}
	}

	return nil
}
