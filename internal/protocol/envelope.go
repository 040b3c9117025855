// Package protocol defines the wire format for the drawbridge relay.
//
// Every message on the relay WebSocket is a single UTF-8 JSON text frame
// encoding one envelope. The relay routes on the type tag and correlation
// id only; command parameters and response result fields are opaque to it
// and pass through verbatim.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Message type tags the relay recognizes structurally. Any other type is
// treated as a generic canvas command and forwarded to the browser.
const (
	TypeBrowserConnect     = "browserConnect"
	TypePing               = "ping"
	TypePong               = "pong"
	TypeIsBrowserConnected = "isBrowserConnected"
	TypeBrowserStatus      = "browserStatus"
)

// NoBrowserError is the failure message returned for commands that arrive
// while no browser is registered.
const NoBrowserError = "Browser not connected. Please open the canvas in your browser."

// DuplicateIDError is the failure message returned when a command reuses a
// correlation id that is still in flight. Ids are caller-generated and
// assumed unique; a collision is refused rather than overwritten.
const DuplicateIDError = "duplicate request id"

// Header is the routed subset of an envelope. The relay decodes only these
// two fields; command and response frames are forwarded as raw bytes so
// that operation-specific fields survive untouched.
//
// Browser response envelopes may carry an id with no type; control
// messages carry a type with no id. Which fields are required depends on
// the routing branch, so Header validates neither.
type Header struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ParseHeader decodes the routing fields of a raw envelope. It fails only
// when the payload is not a JSON object.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("decode envelope: %w", err)
	}
	return h, nil
}

// Envelope is the generic wire unit as the end parties see it. The CLI
// client uses it to build requests and decode replies. Response envelopes
// from the browser additionally carry operation-specific result fields
// that only the requester interprets; keep the raw frame around if those
// are needed.
type Envelope struct {
	Type      string          `json:"type,omitempty"`
	ID        string          `json:"id,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`
	Connected *bool           `json:"connected,omitempty"`
}

// Pong is the reply to a ping control message.
type Pong struct {
	Type string `json:"type"`
}

// NewPong builds a pong reply.
func NewPong() Pong {
	return Pong{Type: TypePong}
}

// BrowserStatus is the reply to an isBrowserConnected query.
type BrowserStatus struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
}

// NewBrowserStatus builds a browserStatus reply.
func NewBrowserStatus(connected bool) BrowserStatus {
	return BrowserStatus{Type: TypeBrowserStatus, Connected: connected}
}

// Failure is a synchronous error reply produced by the relay itself, sent
// on the originating connection when a command cannot be forwarded.
type Failure struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewFailure builds a failure reply carrying the request's correlation id.
func NewFailure(id, msg string) Failure {
	return Failure{ID: id, Success: false, Error: msg}
}
