package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/notification-service/internal/domain"
)

// NotificationRepository encapsulates notification persistence. Every read
// and mutation is scoped by tenant and recipient; no unscoped query exists.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, tenant, email string) ([]domain.Notification, error)
	ListUnread(ctx context.Context, tenant, email string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, tenant, email, id string) error
	MarkAllRead(ctx context.Context, tenant, email string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (subject, message, source_type, source_id, action_type, tenant, sender_email, recipient_email, read, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, NOW()))
        RETURNING id, created_at`

	var createdAt *time.Time
	if !notification.CreatedAt.IsZero() {
		createdAt = &notification.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		notification.Subject,
		notification.Message,
		notification.SourceType,
		notification.SourceID,
		notification.ActionType,
		notification.Tenant,
		notification.SenderEmail,
		notification.RecipientEmail,
		notification.Read,
		createdAt,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, tenant, email string) ([]domain.Notification, error) {
	const query = `
        SELECT id, subject, message, source_type, source_id, action_type, tenant, sender_email, recipient_email, read, created_at
        FROM notifications
        WHERE tenant=$1 AND recipient_email=$2
        ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, tenant, email)
}

func (r *notificationRepository) ListUnread(ctx context.Context, tenant, email string) ([]domain.Notification, error) {
	const query = `
        SELECT id, subject, message, source_type, source_id, action_type, tenant, sender_email, recipient_email, read, created_at
        FROM notifications
        WHERE tenant=$1 AND recipient_email=$2 AND read=FALSE
        ORDER BY created_at DESC`
	return r.fetchMany(ctx, query, tenant, email)
}

func (r *notificationRepository) MarkRead(ctx context.Context, tenant, email, id string) error {
	const query = `
        UPDATE notifications SET read=TRUE
        WHERE id=$1 AND tenant=$2 AND recipient_email=$3`
	cmd, err := r.pool.Exec(ctx, query, id, tenant, email)
	if err != nil {
		return err
	}
	// already-read rows still count as affected, so zero rows means the id
	// does not exist within this tenant/recipient scope
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, tenant, email string) (int64, error) {
	const query = `
        UPDATE notifications SET read=TRUE
        WHERE tenant=$1 AND recipient_email=$2 AND read=FALSE`
	cmd, err := r.pool.Exec(ctx, query, tenant, email)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) fetchMany(ctx context.Context, query, tenant, email string) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, query, tenant, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.Subject,
			&n.Message,
			&n.SourceType,
			&n.SourceID,
			&n.ActionType,
			&n.Tenant,
			&n.SenderEmail,
			&n.RecipientEmail,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
