package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/domain"
)

// Pusher delivers a persisted notification to live client sessions.
// Fire-and-forget: an absent subscriber is not an error.
type Pusher interface {
	Push(ctx context.Context, recipientEmail string, notification *domain.Notification) error
}

// UserChannel derives the per-user channel deterministically from the email.
func UserChannel(prefix, email string) string {
	return prefix + ":user:" + strings.ToLower(strings.TrimSpace(email))
}

// BroadcastChannel names the global channel every session may subscribe to.
func BroadcastChannel(prefix string) string {
	return prefix + ":broadcast"
}

// RedisPusher publishes notifications over Redis Pub/Sub.
type RedisPusher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisPusher builds the pusher.
func NewRedisPusher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPusher {
	return &RedisPusher{client: client, prefix: prefix, logger: logger}
}

// Push publishes the notification to the recipient's channel and to the
// broadcast channel. Each publish is attempted independently; a transport
// error is returned for the caller to log and swallow, never to unwind the
// persisted record.
func (p *RedisPusher) Push(ctx context.Context, recipientEmail string, notification *domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	userErr := p.client.Publish(ctx, UserChannel(p.prefix, recipientEmail), payload).Err()
	broadcastErr := p.client.Publish(ctx, BroadcastChannel(p.prefix), payload).Err()
	if userErr != nil || broadcastErr != nil {
		return errors.Join(userErr, broadcastErr)
	}

	p.logger.Debug("notification pushed",
		zap.String("recipient", recipientEmail),
		zap.String("notification_id", notification.ID))
	return nil
}
