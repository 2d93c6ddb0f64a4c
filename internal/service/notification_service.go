package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/domain"
	"github.com/spec-kit/notification-service/internal/events"
	"github.com/spec-kit/notification-service/internal/observability"
	"github.com/spec-kit/notification-service/internal/repository"
	apperrors "github.com/spec-kit/notification-service/pkg/util"
)

// Subject and message are capped before persistence.
const maxFieldLen = 200

// Directory resolves the manager recipients of a tenant.
type Directory interface {
	ManagersForTenant(ctx context.Context, tenant string) []string
}

// Pusher delivers a persisted notification to live sessions.
type Pusher interface {
	Push(ctx context.Context, recipientEmail string, notification *domain.Notification) error
}

// NotificationService maps domain events to persisted notifications, pushes
// them best-effort, and serves the tenant-scoped query operations.
type NotificationService struct {
	repo      repository.NotificationRepository
	directory Directory
	pusher    Pusher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(repo repository.NotificationRepository, dir Directory, pusher Pusher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		repo:      repo,
		directory: dir,
		pusher:    pusher,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleTicketEvent dispatches a comment/solution event by concrete variant.
// Unknown variants are logged and dropped.
func (s *NotificationService) HandleTicketEvent(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	case *events.CommentEvent:
		return s.handleComment(ctx, e)
	case *events.SolutionEvent:
		return s.handleSolution(ctx, e)
	default:
		s.logger.Warn("unexpected variant on ticket stream; dropping",
			zap.String("event_type", string(ev.Kind())))
		return nil
	}
}

func (s *NotificationService) handleComment(ctx context.Context, ev *events.CommentEvent) error {
	notification := &domain.Notification{
		Subject:        truncate("Comment Added by "+ev.AuthorName, maxFieldLen),
		Message:        truncate(ev.Content, maxFieldLen),
		SourceType:     domain.SourceTypeComment,
		SourceID:       sourceRef(ev.Envelope),
		Tenant:         ev.Tenant,
		SenderEmail:    ev.SenderEmail,
		RecipientEmail: ev.RecipientEmail,
	}
	return s.persistAndPush(ctx, notification)
}

func (s *NotificationService) handleSolution(ctx context.Context, ev *events.SolutionEvent) error {
	notification := &domain.Notification{
		Subject:        truncate("Solution Added by "+ev.AuthorName, maxFieldLen),
		Message:        truncate(ev.Content, maxFieldLen),
		SourceType:     domain.SourceTypeSolution,
		SourceID:       sourceRef(ev.Envelope),
		Tenant:         ev.Tenant,
		SenderEmail:    ev.SenderEmail,
		RecipientEmail: ev.RecipientEmail,
	}
	if ev.Status != "" {
		status := ev.Status
		notification.ActionType = &status
	}
	return s.persistAndPush(ctx, notification)
}

// HandleLogEvent fans one log event out to every resolved manager of the
// tenant. Each recipient is persisted and pushed independently so one
// recipient's failure never blocks another's; an error is returned only when
// every recipient failed, which lets the consumer retry a down store.
func (s *NotificationService) HandleLogEvent(ctx context.Context, ev events.Event) error {
	logEvent, ok := ev.(*events.LogEvent)
	if !ok {
		s.logger.Warn("unexpected variant on log stream; dropping",
			zap.String("event_type", string(ev.Kind())))
		return nil
	}

	recipients := s.directory.ManagersForTenant(ctx, logEvent.Tenant)

	var failed int
	var lastErr error
	for _, recipient := range recipients {
		notification := &domain.Notification{
			Subject:        truncate(logSubject(logEvent), maxFieldLen),
			Message:        truncate(logMessage(logEvent), maxFieldLen),
			SourceType:     domain.SourceTypeLog,
			SourceID:       logEvent.SourceID,
			Tenant:         logEvent.Tenant,
			SenderEmail:    logEvent.SenderEmail,
			RecipientEmail: recipient,
		}
		if logEvent.Severity != "" {
			severity := logEvent.Severity
			notification.ActionType = &severity
		}
		if err := s.persistAndPush(ctx, notification); err != nil {
			failed++
			lastErr = err
			s.logger.Error("log notification failed for recipient",
				zap.String("tenant", logEvent.Tenant),
				zap.String("recipient", recipient),
				zap.String("source_id", logEvent.SourceID),
				zap.Error(err))
		}
	}

	if failed > 0 && failed == len(recipients) {
		return fmt.Errorf("all %d recipients failed: %w", failed, lastErr)
	}
	return nil
}

// persistAndPush persists the notification and then attempts a best-effort
// push. A push failure is logged and swallowed; the persisted record stands.
func (s *NotificationService) persistAndPush(ctx context.Context, notification *domain.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	s.metrics.RecordPipeline(string(notification.SourceType), observability.OutcomePersisted)

	if err := s.pusher.Push(ctx, notification.RecipientEmail, notification); err != nil {
		s.logger.Warn("push failed; notification persisted",
			zap.String("notification_id", notification.ID),
			zap.String("recipient", notification.RecipientEmail),
			zap.Error(err))
		s.metrics.RecordPipeline(string(notification.SourceType), observability.OutcomePushFailed)
		return nil
	}
	s.metrics.RecordPipeline(string(notification.SourceType), observability.OutcomePushed)
	return nil
}

// ListByRecipient returns all notifications for the recipient within the tenant.
func (s *NotificationService) ListByRecipient(ctx context.Context, tenant, email string) ([]domain.Notification, error) {
	return s.repo.ListByRecipient(ctx, tenant, email)
}

// ListUnread returns unread notifications for the recipient within the tenant.
func (s *NotificationService) ListUnread(ctx context.Context, tenant, email string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, tenant, email)
}

// MarkRead flips one notification to read. Idempotent; NotFound when the id
// does not exist within the caller's scope.
func (s *NotificationService) MarkRead(ctx context.Context, tenant, email, id string) error {
	if err := s.repo.MarkRead(ctx, tenant, email, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return err
	}
	return nil
}

// MarkAllRead flips every unread notification of the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, tenant, email string) (int64, error) {
	return s.repo.MarkAllRead(ctx, tenant, email)
}

// sourceRef resolves the entity a ticket notification references: the parent
// ticket when present, otherwise the triggering entity itself.
func sourceRef(env events.Envelope) string {
	if env.RelatedEntityID != "" {
		return env.RelatedEntityID
	}
	return env.SourceID
}

func logSubject(ev *events.LogEvent) string {
	if ev.Severity != "" {
		return "New " + ev.Severity + " Log Recorded"
	}
	return "New Log Recorded"
}

func logMessage(ev *events.LogEvent) string {
	if ev.Summary != "" {
		return ev.Summary
	}
	return fmt.Sprintf("A new log entry %s was recorded for tenant %s", ev.SourceID, ev.Tenant)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
