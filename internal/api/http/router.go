package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-service/internal/api/http/handlers"
	"github.com/spec-kit/notification-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Notifications  *handlers.NotificationsHandler
	Events         *handlers.EventsHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireTenant())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread", cfg.Notifications.ListUnread)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	eventsGroup := app.Group("/events", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleService))
	eventsGroup.Post("/logs", cfg.Events.PublishLog)
	eventsGroup.Post("/tickets", cfg.Events.PublishTicket)

	app.Get("/ws/notifications", cfg.AuthMiddleware.Handle, cfg.WS.Upgrade, websocket.New(cfg.WS.Serve))
}
