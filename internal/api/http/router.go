package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/blueriver/escalation-service/internal/api/http/handlers"
	"github.com/blueriver/escalation-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Escalations    *handlers.EscalationsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Patch("/:id/classification", cfg.Tickets.Reclassify)
	tickets.Post("/:id/escalate", cfg.AuthMiddleware.Handle, cfg.Escalations.Escalate)

	escalations := app.Group("/escalations")
	escalations.Post("/run", cfg.Escalations.RunNow)
	escalations.Get("/recent", cfg.Escalations.Recent)
}
