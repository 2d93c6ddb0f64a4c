package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/events"
)

// Message field names on the wire.
const (
	fieldEventType = "event_type"
	fieldPayload   = "payload"
)

// Producer publishes events onto a named stream and blocks for the broker
// acknowledgment. Failures are logged with full context and returned; callers
// are expected to log and continue rather than fail the triggering business
// write.
type Producer struct {
	client *redis.Client
	logger *zap.Logger
}

// NewProducer builds a producer over the shared Redis client.
func NewProducer(client *redis.Client, logger *zap.Logger) *Producer {
	return &Producer{client: client, logger: logger}
}

// Publish appends the event to the stream and waits for its assigned id.
func (p *Producer) Publish(ctx context.Context, streamName string, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	meta := ev.Meta()
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			fieldEventType: string(ev.Kind()),
			fieldPayload:   payload,
		},
	}).Result()
	if err != nil {
		p.logger.Error("event publish failed",
			zap.String("stream", streamName),
			zap.String("event_type", string(ev.Kind())),
			zap.String("tenant", meta.Tenant),
			zap.String("source_id", meta.SourceID),
			zap.Error(err))
		return fmt.Errorf("publish to %s: %w", streamName, err)
	}

	p.logger.Debug("event published",
		zap.String("stream", streamName),
		zap.String("event_type", string(ev.Kind())),
		zap.String("message_id", id))
	return nil
}
