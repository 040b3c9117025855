// Package client implements the CLI side of the relay protocol: open a
// connection, send one envelope, wait for the correlated reply, close.
// Every drawing command is a one-shot exchange through Do; Ping and
// BrowserConnected cover the two control queries.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/drawbridge-sh/drawbridge/internal/protocol"
	"github.com/rs/xid"
)

// maxReplyBytes bounds a single reply frame; scene exports can be large.
const maxReplyBytes = 10 << 20

// Config holds parameters for a relay exchange.
type Config struct {
	// URL is the relay WebSocket endpoint, e.g. ws://127.0.0.1:8787/ws.
	URL    string
	Logger *slog.Logger
}

// Response is a correlated reply from the browser. Raw preserves the
// exact frame so operation-specific result fields the Envelope struct
// does not model are not lost.
type Response struct {
	Envelope protocol.Envelope
	Raw      []byte
}

// Failed reports whether the reply carries success=false.
func (r *Response) Failed() bool {
	return r.Envelope.Success != nil && !*r.Envelope.Success
}

// Do sends one command envelope with a fresh correlation id and waits for
// the reply carrying the same id. A command-level failure (success=false)
// is not an error; inspect the Response. The caller bounds the exchange
// through ctx.
func Do(ctx context.Context, cfg Config, typ string, params json.RawMessage) (*Response, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ws, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.CloseNow() }()

	id := xid.New().String()
	req := protocol.Envelope{Type: typ, ID: id, Params: params}
	if err := writeJSON(ctx, ws, req); err != nil {
		return nil, fmt.Errorf("send %s: %w", typ, err)
	}
	cfg.Logger.Debug("command sent", "type", typ, "id", id)

	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			cfg.Logger.Debug("skipping unparseable frame", "error", err)
			continue
		}
		if env.ID != id {
			continue
		}
		_ = ws.Close(websocket.StatusNormalClosure, "done")
		return &Response{Envelope: env, Raw: raw}, nil
	}
}

// Ping sends a ping and waits for the pong. It succeeds whether or not a
// browser is registered; it only proves the relay is alive.
func Ping(ctx context.Context, cfg Config) error {
	ws, err := dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ws.CloseNow() }()

	if err := writeJSON(ctx, ws, protocol.Envelope{Type: protocol.TypePing}); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			return fmt.Errorf("read pong: %w", err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Type == protocol.TypePong {
			_ = ws.Close(websocket.StatusNormalClosure, "done")
			return nil
		}
	}
}

// BrowserConnected asks the relay whether a browser is currently
// registered and open.
func BrowserConnected(ctx context.Context, cfg Config) (bool, error) {
	ws, err := dial(ctx, cfg)
	if err != nil {
		return false, err
	}
	defer func() { _ = ws.CloseNow() }()

	if err := writeJSON(ctx, ws, protocol.Envelope{Type: protocol.TypeIsBrowserConnected}); err != nil {
		return false, fmt.Errorf("send isBrowserConnected: %w", err)
	}
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			return false, fmt.Errorf("read browserStatus: %w", err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Type == protocol.TypeBrowserStatus {
			_ = ws.Close(websocket.StatusNormalClosure, "done")
			return env.Connected != nil && *env.Connected, nil
		}
	}
}

func dial(ctx context.Context, cfg Config) (*websocket.Conn, error) {
	ws, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	ws.SetReadLimit(maxReplyBytes)
	return ws, nil
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
