package ws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/templeconnect/backend/pkg/config"
)

// Client is one websocket connection attached to a conversation.
type Client struct {
	conn           *websocket.Conn
	hub            *Hub
	conversationID uuid.UUID
	userID         uuid.UUID
	send           chan []byte
	cfg            config.ChatConfig
}

// NewClient wraps an upgraded connection. The caller registers it with the
// hub and then calls Run.
func NewClient(conn *websocket.Conn, hub *Hub, conversationID, userID uuid.UUID, cfg config.ChatConfig) *Client {
	return &Client{
		conn:           conn,
		hub:            hub,
		conversationID: conversationID,
		userID:         userID,
		send:           make(chan []byte, cfg.SendBuffer),
		cfg:            cfg,
	}
}

// Run pumps frames until the connection drops or the context is cancelled.
// It blocks; the caller owns the goroutine.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	// Clients only receive; inbound frames besides pongs are drained and
	// dropped. Sends go through the REST endpoint so they hit the database.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (c *Client) writePump() {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// The hub evicted us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
