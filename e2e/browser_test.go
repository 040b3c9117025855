package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/coder/websocket"
	"github.com/drawbridge-sh/drawbridge/internal/protocol"
)

// canvasBrowser is a scripted stand-in for the browser canvas page: it
// registers with browserConnect and answers forwarded drawing commands
// the way the embedded UI does.
type canvasBrowser struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

func startCanvasBrowser(t *testing.T, url string) *canvasBrowser {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		cancel()
		t.Fatalf("browser dial: %v", err)
	}

	if err := writeJSON(ctx, ws, protocol.Envelope{Type: protocol.TypeBrowserConnect}); err != nil {
		cancel()
		t.Fatalf("browserConnect: %v", err)
	}

	b := &canvasBrowser{ws: ws, cancel: cancel, done: make(chan struct{})}
	go b.loop(ctx)
	t.Cleanup(b.stop)
	return b
}

func (b *canvasBrowser) loop(ctx context.Context) {
	defer close(b.done)
	nextElement := 1
	elements := make(map[string]json.RawMessage)

	for {
		_, data, err := b.ws.Read(ctx)
		if err != nil {
			return
		}
		var cmd protocol.Envelope
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.ID == "" {
			continue
		}

		var reply map[string]any
		switch cmd.Type {
		case "addShape":
			id := fmt.Sprintf("el-%d", nextElement)
			nextElement++
			elements[id] = cmd.Params
			reply = map[string]any{"id": cmd.ID, "success": true, "elementId": id}
		case "removeShape":
			var params struct {
				ElementID string `json:"elementId"`
			}
			_ = json.Unmarshal(cmd.Params, &params)
			if _, ok := elements[params.ElementID]; !ok {
				reply = map[string]any{"id": cmd.ID, "success": false, "error": "no such element: " + params.ElementID}
				break
			}
			delete(elements, params.ElementID)
			reply = map[string]any{"id": cmd.ID, "success": true}
		case "clearCanvas":
			elements = make(map[string]json.RawMessage)
			reply = map[string]any{"id": cmd.ID, "success": true}
		case "getScene":
			reply = map[string]any{"id": cmd.ID, "success": true, "elements": elements}
		default:
			reply = map[string]any{"id": cmd.ID, "success": false, "error": "unknown command: " + cmd.Type}
		}

		if err := writeJSON(ctx, b.ws, reply); err != nil {
			return
		}
	}
}

func (b *canvasBrowser) stop() {
	_ = b.ws.Close(websocket.StatusNormalClosure, "bye")
	b.cancel()
	<-b.done
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
