package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-service/internal/api/dto"
	"github.com/spec-kit/notification-service/internal/auth"
	"github.com/spec-kit/notification-service/internal/domain"
	"github.com/spec-kit/notification-service/internal/service"
	apperrors "github.com/spec-kit/notification-service/pkg/util"
)

// NotificationsHandler serves the recipient-facing query API. Tenant and
// recipient always come from the verified token, never from parameters.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notifications, err := h.service.ListByRecipient(c.UserContext(), principal.Tenant, principal.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toResponses(notifications)})
}

// ListUnread GET /notifications/unread.
func (h *NotificationsHandler) ListUnread(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notifications, err := h.service.ListUnread(c.UserContext(), principal.Tenant, principal.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": toResponses(notifications)})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id := c.Params("id")
	if id == "" {
		return apperrors.NewValidationError("notification id required", nil)
	}
	if err := h.service.MarkRead(c.UserContext(), principal.Tenant, principal.Email, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "read": true}})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	updated, err := h.service.MarkAllRead(c.UserContext(), principal.Tenant, principal.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MarkAllReadResponse{Updated: updated}})
}

func toResponses(notifications []domain.Notification) []dto.NotificationResponse {
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, dto.FromNotification(&notifications[i]))
	}
	return items
}
