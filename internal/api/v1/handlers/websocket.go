package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/logger"
	"github.com/deepcritic/deepcritic/internal/notify"
)

// WebSocketHandler bridges websocket connections to the notification hub.
type WebSocketHandler struct {
	hub *notify.Hub
}

// NewWebSocketHandler creates a new websocket handler instance
func NewWebSocketHandler(hub *notify.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// UpgradeRequired rejects plain HTTP requests on the websocket route.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type inboundMessage struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}

// Handle returns the websocket handler. Each connection is registered with
// the hub for its lifetime; closing the connection drops its subscription.
func (h *WebSocketHandler) Handle() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client := h.hub.Register(conn)
		defer h.hub.Unregister(client)

		logger.Debug("websocket client connected")
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				logger.Debugf("websocket client disconnected: %v", err)
				return
			}
			if msg.Type == notify.MessageSubscribe && msg.JobID != "" {
				h.hub.Subscribe(client, msg.JobID)
			}
		}
	})
}
