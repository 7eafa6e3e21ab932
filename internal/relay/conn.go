package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write mutex. gorilla/websocket
// allows at most one concurrent writer, and a session has several
// (receiver relay, barge-in clears, keep-alive pings).
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *Conn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) Ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *Conn) SetPongHandler(h func(string) error) {
	c.ws.SetPongHandler(h)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// keepAlive pings the connection at a fixed interval and treats a missing
// pong as connection loss via the read deadline. The deadline expiring
// fails the blocked reader on this connection, which ends the session.
func keepAlive(ctx context.Context, c *Conn, interval, timeout time.Duration) error {
	deadline := interval + timeout

	if err := c.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}
	c.SetPongHandler(func(string) error {
		// after cancellation the deadline is used to unblock the reader,
		// a late pong must not push it out again
		if ctx.Err() != nil {
			return nil
		}
		return c.SetReadDeadline(time.Now().Add(deadline))
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Ping(timeout); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("keepalive ping: %w", err)
			}
		}
	}
}
