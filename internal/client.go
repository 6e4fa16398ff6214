package internal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrClientClosed = errors.New("client connection closed")

// Client wraps one websocket connection. The connection's lifetime is owned
// by the transport read loop; the registry and room rosters hold weak
// references that are purged on close.
type Client struct {
	Id   string
	Conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{Id: id, Conn: conn}
}

// SafeWriteJSON serializes writes to the underlying connection. gorilla
// connections do not tolerate concurrent writers, and broadcasts run
// concurrently with per-client replies.
func (c *Client) SafeWriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.Conn == nil {
		return ErrClientClosed
	}
	return c.Conn.WriteJSON(v)
}

// Close marks the client closed and closes the connection. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// Open reports whether the connection is still usable. Broadcasts skip
// closed clients silently.
func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.Conn != nil
}
