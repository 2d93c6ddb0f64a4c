package dto

import (
	"time"

	"github.com/spec-kit/notification-service/internal/domain"
)

// NotificationResponse is the wire form of a persisted notification.
type NotificationResponse struct {
	ID             string            `json:"id"`
	Subject        string            `json:"subject"`
	Message        string            `json:"message"`
	SourceType     domain.SourceType `json:"source_type"`
	SourceID       string            `json:"source_id"`
	ActionType     *string           `json:"action_type,omitempty"`
	Tenant         string            `json:"tenant"`
	SenderEmail    string            `json:"sender_email,omitempty"`
	RecipientEmail string            `json:"recipient_email"`
	Read           bool              `json:"read"`
	CreatedAt      time.Time         `json:"created_at"`
}

// FromNotification maps the domain record to its response form.
func FromNotification(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		Subject:        n.Subject,
		Message:        n.Message,
		SourceType:     n.SourceType,
		SourceID:       n.SourceID,
		ActionType:     n.ActionType,
		Tenant:         n.Tenant,
		SenderEmail:    n.SenderEmail,
		RecipientEmail: n.RecipientEmail,
		Read:           n.Read,
		CreatedAt:      n.CreatedAt,
	}
}

// MarkAllReadResponse reports how many records a bulk flip touched.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// EventAcceptedResponse acknowledges an intake publish.
type EventAcceptedResponse struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}
