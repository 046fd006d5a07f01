package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Statuses       *handlers.StatusesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/received", cfg.Tickets.ListReceived)
	tickets.Get("/archived", cfg.Tickets.ListArchived)
	tickets.Get("/code/:customId", cfg.Tickets.GetByCode)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/accept", cfg.Tickets.Accept)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/approve", cfg.Tickets.Approve)
	tickets.Post("/:id/reject", cfg.Tickets.Reject)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
	tickets.Post("/:id/request-correction", cfg.Tickets.RequestCorrection)
	tickets.Post("/:id/send-to-next", cfg.Tickets.SendToNext)
	tickets.Post("/:id/actions/:actionId", cfg.Tickets.ExecuteAction)
	tickets.Patch("/:id/assignees", cfg.Tickets.UpdateAssignee)
	tickets.Patch("/:id/reviewer", cfg.Tickets.UpdateReviewer)
	tickets.Post("/:id/files", cfg.Tickets.AddFiles)

	api.Get("/departments/:id/tickets", cfg.Tickets.ListByDepartment)
	api.Get("/users/:id/tickets", cfg.Tickets.ListByTargetUser)

	api.Get("/statuses", cfg.Statuses.ListStatuses)
	api.Post("/statuses", cfg.Statuses.CreateStatus)
	api.Post("/statuses/seed", cfg.Statuses.SeedStatuses)
	api.Get("/status-actions", cfg.Statuses.ListActions)
	api.Post("/status-actions", cfg.Statuses.CreateAction)
	api.Delete("/status-actions/:id", cfg.Statuses.DeleteAction)

	api.Get("/notifications", cfg.Notifications.ListNotifications)
}
