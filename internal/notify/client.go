package notify

import (
	"sync"

	"github.com/deepcritic/deepcritic/internal/logger"
)

// sendBuffer is the per-client outbound queue depth. A client that falls
// this far behind starts losing updates rather than blocking publishers.
const sendBuffer = 16

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client is one registered connection. Outbound messages pass through a
// buffered channel drained by a single writer goroutine, which preserves
// delivery order per client and keeps publishers from blocking on slow or
// dead connections.
type Client struct {
	hub  *Hub
	conn Conn
	send chan interface{}
	once sync.Once

	// closed marks the send channel as gone. Guarded by hub.mu, like every
	// other piece of client bookkeeping.
	closed bool
}

// enqueue hands a message to the writer without blocking. Messages to a
// client whose buffer is full are dropped; delivery is best effort. The
// caller must hold the hub lock, which is what makes the closed check safe.
func (c *Client) enqueue(msg interface{}) {
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		logger.Debug("dropping update for slow websocket client")
	}
}

// writePump drains the send channel onto the connection. On the first write
// error the client is unregistered and the connection closed; the hub never
// retries delivery.
func (c *Client) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			logger.Debugf("websocket write failed, dropping client: %v", err)
			c.hub.Unregister(c)
			return
		}
	}
}

// close shuts down the writer exactly once.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
