package web

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/vetsuite/vetflow/pkg/persistence"
	"github.com/vetsuite/vetflow/pkg/queue"
	"github.com/vetsuite/vetflow/pkg/services"
)

// API wires the fiber application.
type API struct {
	persistence persistence.Persistence
	handlers    *APIHandlers
}

func NewAPI(
	p persistence.Persistence,
	templates *services.TemplateService,
	executions *services.ExecutionService,
	webhooks *services.WebhookService,
	q queue.Queue,
) *API {
	return &API{
		persistence: p,
		handlers:    NewAPIHandlers(templates, executions, webhooks, q),
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Vetflow API")
	})

	app.Get("/health", a.healthCheck)

	t := app.Group("/templates")
	t.Get("/", a.handlers.ListTemplates)
	t.Post("/", a.handlers.CreateTemplate)
	t.Get("/:id", a.handlers.GetTemplate)
	t.Put("/:id", a.handlers.UpdateTemplate)
	t.Delete("/:id", a.handlers.DeleteTemplate)
	t.Post("/:id/execute", a.handlers.ExecuteTemplate)

	e := app.Group("/executions")
	e.Get("/", a.handlers.ListExecutions)
	e.Get("/stats", a.handlers.ExecutionStats)
	e.Get("/:id", a.handlers.GetExecution)
	e.Post("/:id/cancel", a.handlers.CancelExecution)

	w := app.Group("/webhooks")
	w.Get("/", a.handlers.ListWebhooks)
	w.Post("/", a.handlers.CreateWebhook)
	w.Get("/:id", a.handlers.GetWebhook)
	w.Put("/:id", a.handlers.UpdateWebhook)
	w.Delete("/:id", a.handlers.DeleteWebhook)

	app.Get("/jobs/failed", a.handlers.FailedJobs)

	return app
}

func (a *API) healthCheck(c fiber.Ctx) error {
	err := a.persistence.HealthCheck(c.Context())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
