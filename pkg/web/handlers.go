// Package web provides the REST API over templates, executions, webhook
// subscriptions, and the failed-job archive.
package web

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/vetsuite/vetflow/pkg/engine"
	"github.com/vetsuite/vetflow/pkg/models"
	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/services"
)

// APIHandlers bundles the handler dependencies.
type APIHandlers struct {
	templates  *services.TemplateService
	executions *services.ExecutionService
	webhooks   *services.WebhookService
	queue      queue.Queue
}

func NewAPIHandlers(
	templates *services.TemplateService,
	executions *services.ExecutionService,
	webhooks *services.WebhookService,
	q queue.Queue,
) *APIHandlers {
	return &APIHandlers{
		templates:  templates,
		executions: executions,
		webhooks:   webhooks,
		queue:      q,
	}
}

// --- templates ---

func (h *APIHandlers) ListTemplates(c fiber.Ctx) error {
	opts, err := parseListTemplatesOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.templates.List(c.Context(), *opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates":     result.Templates,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	})
}

func parseListTemplatesOptions(c fiber.Ctx) (*persistence.ListTemplatesOptions, error) {
	opts := &persistence.ListTemplatesOptions{
		Category: c.Query("category"),
	}

	if triggerType := c.Query("trigger_type"); triggerType != "" {
		t := models.TriggerType(triggerType)
		opts.TriggerType = &t
	}

	if isActive := c.Query("is_active"); isActive != "" {
		active, err := strconv.ParseBool(isActive)
		if err != nil {
			return nil, err
		}

		opts.IsActive = &active
	}

	var err error

	opts.Limit, opts.Offset, err = parsePagination(c)
	if err != nil {
		return nil, err
	}

	return opts, nil
}

func parsePagination(c fiber.Ctx) (int, int, error) {
	limit, offset := 0, 0

	if limitStr := c.Query("limit"); limitStr != "" {
		var err error

		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		var err error

		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return limit, offset, nil
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var template models.WorkflowTemplate

	err := c.Bind().Body(&template)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	created, err := h.templates.Create(c.Context(), &template)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	template, err := h.templates.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	var template models.WorkflowTemplate

	err := c.Bind().Body(&template)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	template.ID = c.Params("id")

	updated, err := h.templates.Update(c.Context(), &template)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	err := h.templates.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteTemplate starts a manual execution of a template. The body is the
// trigger data handed to the execution.
func (h *APIHandlers) ExecuteTemplate(c fiber.Ctx) error {
	triggerData := map[string]any{}

	if len(c.Body()) > 0 {
		err := c.Bind().Body(&triggerData)
		if err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	execution, err := h.executions.Execute(c.Context(), c.Params("id"), triggerData)
	if err != nil {
		if engine.IsTemplateInactive(err) || engine.IsNoActions(err) {
			return unprocessable(c, err.Error())
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

// --- executions ---

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	opts := persistence.ListExecutionsOptions{
		TemplateID: c.Query("template_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ExecutionStatus(statusStr)
		opts.Status = &status
	}

	var err error

	opts.Limit, opts.Offset, err = parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	executions, err := h.executions.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	detail, err := h.executions.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(detail)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	err := h.executions.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ExecutionStats(c fiber.Ctx) error {
	stats, err := h.executions.Stats(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

// --- webhooks ---

func (h *APIHandlers) ListWebhooks(c fiber.Ctx) error {
	subscriptions, err := h.webhooks.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"webhooks": subscriptions})
}

func (h *APIHandlers) CreateWebhook(c fiber.Ctx) error {
	var subscription models.WebhookSubscription

	err := c.Bind().Body(&subscription)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	created, err := h.webhooks.Create(c.Context(), &subscription)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWebhook(c fiber.Ctx) error {
	subscription, err := h.webhooks.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(subscription)
}

func (h *APIHandlers) UpdateWebhook(c fiber.Ctx) error {
	var subscription models.WebhookSubscription

	err := c.Bind().Body(&subscription)
	if err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	subscription.ID = c.Params("id")

	updated, err := h.webhooks.Update(c.Context(), &subscription)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWebhook(c fiber.Ctx) error {
	err := h.webhooks.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// --- jobs ---

// FailedJobs exposes the failed-job archive for operator inspection.
func (h *APIHandlers) FailedJobs(c fiber.Ctx) error {
	queueName := c.Query("queue")
	if queueName == "" {
		return badRequest(c, "queue query parameter is required")
	}

	limit := 50

	if limitStr := c.Query("limit"); limitStr != "" {
		var err error

		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}
	}

	jobs, err := h.queue.FailedJobs(c.Context(), queueName, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"jobs": jobs})
}
