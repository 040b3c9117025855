package relay

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds every outbound write so a stalled peer cannot pin a
// forwarding goroutine forever.
const writeTimeout = 10 * time.Second

// Conn wraps a WebSocket connection with the state the router needs: an
// open/closed flag and timeout-bounded writes. Writes may happen from any
// connection goroutine (a CLI goroutine forwards into the browser's Conn);
// websocket.Conn serializes concurrent writers internally.
type Conn struct {
	ws     *websocket.Conn
	closed atomic.Bool
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Open reports whether the transport is still usable. It flips false when
// the connection's read loop exits.
func (c *Conn) Open() bool {
	return !c.closed.Load()
}

func (c *Conn) markClosed() {
	c.closed.Store(true)
}

// write sends a raw frame, bounded by writeTimeout.
func (c *Conn) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// writeJSON marshals v and sends it as a single text frame.
func (c *Conn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(ctx, data)
}
