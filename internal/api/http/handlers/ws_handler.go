package handlers

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/auth"
	"github.com/spec-kit/notification-service/internal/push"
)

const wsWriteWait = 10 * time.Second

// WSHandler bridges the real-time channels to websocket sessions: each
// connection is subscribed to its own user channel plus the broadcast
// channel, and forwarded every payload until it disconnects.
type WSHandler struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(client *redis.Client, prefix string, logger *zap.Logger) *WSHandler {
	return &WSHandler{client: client, prefix: prefix, logger: logger}
}

// Upgrade gates the route to websocket upgrade requests.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve runs one websocket session.
func (h *WSHandler) Serve(conn *websocket.Conn) {
	defer conn.Close()

	principal, ok := auth.PrincipalFromLocals(conn.Locals(auth.LocalsKey()))
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.client.Subscribe(ctx,
		push.UserChannel(h.prefix, principal.Email),
		push.BroadcastChannel(h.prefix))
	defer sub.Close()

	// drain reads so client disconnects are noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	messages := sub.Channel()
	for {
		select {
		case <-done:
			return
		case msg, open := <-messages:
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Debug("websocket write failed; closing session",
					zap.String("recipient", principal.Email),
					zap.Error(err))
				return
			}
		}
	}
}
