package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/notification-service/internal/api/dto"
	"github.com/spec-kit/notification-service/internal/events"
	"github.com/spec-kit/notification-service/internal/stream"
	apperrors "github.com/spec-kit/notification-service/pkg/util"
)

// EventsHandler is the intake boundary sibling services publish through.
// A publish failure is surfaced as 502 so the originator can log and
// continue; its own business write must never depend on this call.
type EventsHandler struct {
	producer     *stream.Producer
	logStream    string
	ticketStream string
}

// NewEventsHandler constructs handler.
func NewEventsHandler(producer *stream.Producer, logStream, ticketStream string) *EventsHandler {
	return &EventsHandler{producer: producer, logStream: logStream, ticketStream: ticketStream}
}

// PublishLog POST /events/logs.
func (h *EventsHandler) PublishLog(c *fiber.Ctx) error {
	return h.publish(c, h.logStream, events.TypeLog)
}

// PublishTicket POST /events/tickets.
func (h *EventsHandler) PublishTicket(c *fiber.Ctx) error {
	return h.publish(c, h.ticketStream, events.TypeComment, events.TypeSolution)
}

func (h *EventsHandler) publish(c *fiber.Ctx, streamName string, accepted ...events.Type) error {
	ev, err := events.Decode(c.Body())
	if err != nil {
		var vErr *events.ValidationError
		if errors.As(err, &vErr) {
			return apperrors.NewValidationError(vErr.Error(), map[string]any{"field": vErr.Field})
		}
		if errors.Is(err, events.ErrUnknownType) {
			return apperrors.NewValidationError("unknown event type", nil)
		}
		return apperrors.NewValidationError("invalid event payload", nil)
	}

	if !kindAccepted(ev.Kind(), accepted) {
		return apperrors.NewValidationError("event type not accepted on this topic", map[string]any{
			"event_type": string(ev.Kind()),
		})
	}

	if err := h.producer.Publish(c.UserContext(), streamName, ev); err != nil {
		return apperrors.NewUpstreamUnavailable("event publish failed", err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.EventAcceptedResponse{Status: "accepted", EventType: string(ev.Kind())},
	})
}

func kindAccepted(kind events.Type, accepted []events.Type) bool {
	for _, t := range accepted {
		if kind == t {
			return true
		}
	}
	return false
}
