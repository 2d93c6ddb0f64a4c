package stream

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/config"
	"github.com/spec-kit/notification-service/internal/events"
	"github.com/spec-kit/notification-service/internal/observability"
)

// Handler processes one decoded event. A returned error is retried with
// fixed backoff unless it is structural.
type Handler func(ctx context.Context, ev events.Event) error

// Consumer reads one stream through a consumer group and drives each message
// to a terminal state: acked on success, acked and dropped on structural
// rejection, or acked after retry exhaustion with its broker coordinates
// logged for manual replay. Messages are processed strictly sequentially.
type Consumer struct {
	client      *redis.Client
	stream      string
	group       string
	name        string
	handler     Handler
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	backoff     time.Duration
	readBlock   time.Duration
	batchSize   int64
}

// NewConsumer builds a consumer for one stream/group pair.
func NewConsumer(client *redis.Client, cfg config.StreamConfig, streamName, group string, handler Handler, logger *zap.Logger, metrics *observability.Metrics) *Consumer {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	batch := int64(cfg.ReadBatchSize)
	if batch <= 0 {
		batch = 16
	}
	name := cfg.ConsumerName
	if name == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "consumer"
		}
		name = host + "-" + uuid.NewString()[:8]
	}
	return &Consumer{
		client:      client,
		stream:      streamName,
		group:       group,
		name:        name,
		handler:     handler,
		logger:      logger,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		backoff:     cfg.RetryBackoff(),
		readBlock:   cfg.ReadBlock(),
		batchSize:   batch,
	}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("consumer started",
		zap.String("stream", c.stream),
		zap.String("group", c.group),
		zap.String("consumer", c.name))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    c.batchSize,
			Block:    c.readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("stream read failed",
				zap.String("stream", c.stream),
				zap.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}

		for _, res := range results {
			for _, msg := range res.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.metrics.RecordPipeline(c.stream, observability.OutcomeConsumed)

	payload, ok := msg.Values[fieldPayload].(string)
	if !ok {
		c.reject(msg, errors.New("message has no payload field"))
		c.ack(ctx, msg)
		return
	}

	ev, err := events.Decode([]byte(payload))
	if err != nil {
		if errors.Is(err, events.ErrUnknownType) {
			c.logger.Warn("unknown event variant; dropping",
				zap.String("stream", c.stream),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			c.metrics.RecordPipeline(c.stream, observability.OutcomeRejected)
		} else {
			c.reject(msg, err)
		}
		c.ack(ctx, msg)
		return
	}

	if err := c.handleWithRetry(ctx, ev); err != nil {
		var vErr *events.ValidationError
		if errors.As(err, &vErr) {
			c.reject(msg, err)
		} else {
			// terminal: keep the broker coordinates so the message can be
			// replayed manually
			c.logger.Error("message dead after retry exhaustion",
				zap.String("stream", c.stream),
				zap.String("group", c.group),
				zap.String("consumer", c.name),
				zap.String("message_id", msg.ID),
				zap.Int("attempts", c.maxAttempts),
				zap.Error(err))
			c.metrics.RecordPipeline(c.stream, observability.OutcomeDead)
		}
	}
	c.ack(ctx, msg)
}

// handleWithRetry runs the handler up to maxAttempts times with a fixed
// backoff between attempts. Structural errors are never retried.
func (c *Consumer) handleWithRetry(ctx context.Context, ev events.Event) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = c.handler(ctx, ev)
		if err == nil {
			return nil
		}
		var vErr *events.ValidationError
		if errors.As(err, &vErr) {
			return err
		}
		if attempt < c.maxAttempts {
			c.logger.Warn("handler failed; retrying",
				zap.String("stream", c.stream),
				zap.String("event_type", string(ev.Kind())),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", c.backoff),
				zap.Error(err))
			c.metrics.RecordPipeline(c.stream, observability.OutcomeRetried)
			if !sleepCtx(ctx, c.backoff) {
				return err
			}
		}
	}
	return err
}

func (c *Consumer) reject(msg redis.XMessage, err error) {
	c.logger.Warn("message rejected",
		zap.String("stream", c.stream),
		zap.String("message_id", msg.ID),
		zap.Error(err))
	c.metrics.RecordPipeline(c.stream, observability.OutcomeRejected)
}

func (c *Consumer) ack(ctx context.Context, msg redis.XMessage) {
	if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		c.logger.Warn("ack failed",
			zap.String("stream", c.stream),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

// sleepCtx waits for d unless the context ends first; it reports whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
