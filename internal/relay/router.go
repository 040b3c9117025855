package relay

import (
	"context"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/drawbridge-sh/drawbridge/internal/metrics"
	"github.com/drawbridge-sh/drawbridge/internal/protocol"
)

// Router is the protocol state machine. It is the single entry point for
// every inbound envelope and the only component that touches both the
// browser registry and the pending request table. For each envelope it
// dispatches, in order of precedence: identity registration, liveness
// check, correlated response forwarding, command forwarding.
type Router struct {
	registry *Registry
	pending  *Table
	idle     *IdleTimer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates a Router over the given shared state. idle and metrics
// may be nil (no idle shutdown, no recording); logger may be nil.
func NewRouter(registry *Registry, pending *Table, idle *IdleTimer, logger *slog.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		pending:  pending,
		idle:     idle,
		logger:   logger,
		metrics:  m,
	}
}

// HandleConn reads envelopes from one connection until its transport
// closes or ctx is cancelled, routing each in turn. On close, a browser
// registration held by this connection is cleared; pending entries that
// name it as the waiter are deliberately left in place (the browser may
// still answer, and the forward will then drop silently).
func (r *Router) HandleConn(ctx context.Context, ws *websocket.Conn) {
	c := newConn(ws)
	defer func() {
		c.markClosed()
		if r.registry.ClearIf(c) {
			r.logger.Info("browser disconnected")
			r.metrics.SetBrowserConnected(false)
		}
	}()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		r.route(ctx, c, data)
	}
}

// touch reschedules the idle shutdown deadline. Administrative branches
// (ping, isBrowserConnected) never call it.
func (r *Router) touch() {
	if r.idle != nil {
		r.idle.Touch()
	}
	r.metrics.IdleReset()
}

// route dispatches a single raw envelope from the given connection.
// Malformed envelopes are discarded; a bad message never closes the
// connection it arrived on.
func (r *Router) route(ctx context.Context, from *Conn, data []byte) {
	hdr, err := protocol.ParseHeader(data)
	if err != nil {
		r.logger.Debug("discarding malformed envelope", "error", err)
		r.metrics.EnvelopeRouted(metrics.BranchMalformed)
		return
	}

	switch hdr.Type {
	case protocol.TypeBrowserConnect:
		r.registry.Register(from)
		r.logger.Info("browser connected")
		r.metrics.EnvelopeRouted(metrics.BranchBrowserConnect)
		r.metrics.SetBrowserConnected(true)
		r.touch()
		return

	case protocol.TypePing:
		if err := from.writeJSON(ctx, protocol.NewPong()); err != nil {
			r.logger.Debug("pong write failed", "error", err)
		}
		r.metrics.EnvelopeRouted(metrics.BranchPing)
		return

	case protocol.TypeIsBrowserConnected:
		browser := r.registry.Current()
		connected := browser != nil && browser.Open()
		if err := from.writeJSON(ctx, protocol.NewBrowserStatus(connected)); err != nil {
			r.logger.Debug("browserStatus write failed", "error", err)
		}
		r.metrics.EnvelopeRouted(metrics.BranchBrowserStatus)
		return
	}

	// Correlated response: an envelope whose id matches an in-flight
	// request, arriving from the browser. Forwarded verbatim to the
	// waiting CLI connection.
	if hdr.ID != "" {
		if waiter, ok := r.pending.Take(hdr.ID); ok {
			r.metrics.PendingRemoved()
			r.metrics.EnvelopeRouted(metrics.BranchResponse)
			r.touch()
			if !waiter.Open() {
				// The CLI gave up and disconnected; its answer is garbage.
				r.logger.Debug("dropping response for closed connection", "id", hdr.ID)
				r.metrics.OrphanedResponse()
				return
			}
			if err := waiter.write(ctx, data); err != nil {
				r.logger.Debug("response forward failed", "id", hdr.ID, "error", err)
				r.metrics.OrphanedResponse()
			}
			return
		}
	}

	// Fresh command: requires both a type and an id.
	if hdr.Type == "" || hdr.ID == "" {
		r.logger.Debug("discarding incomplete envelope", "type", hdr.Type, "id", hdr.ID)
		r.metrics.EnvelopeRouted(metrics.BranchMalformed)
		return
	}
	r.touch()

	browser := r.registry.Current()
	if browser == nil || !browser.Open() {
		r.metrics.EnvelopeRouted(metrics.BranchNoBrowser)
		if err := from.writeJSON(ctx, protocol.NewFailure(hdr.ID, protocol.NoBrowserError)); err != nil {
			r.logger.Debug("failure reply write failed", "id", hdr.ID, "error", err)
		}
		return
	}

	if !r.pending.Insert(hdr.ID, from) {
		r.logger.Warn("duplicate correlation id", "id", hdr.ID, "type", hdr.Type)
		r.metrics.EnvelopeRouted(metrics.BranchDuplicateID)
		if err := from.writeJSON(ctx, protocol.NewFailure(hdr.ID, protocol.DuplicateIDError)); err != nil {
			r.logger.Debug("failure reply write failed", "id", hdr.ID, "error", err)
		}
		return
	}
	r.metrics.PendingInserted()
	r.metrics.EnvelopeRouted(metrics.BranchCommand)

	if err := browser.write(ctx, data); err != nil {
		// The forward never reached the browser; withdraw the entry and
		// fail the caller rather than leaving it waiting.
		r.logger.Warn("command forward failed", "id", hdr.ID, "error", err)
		if _, ok := r.pending.Take(hdr.ID); ok {
			r.metrics.PendingRemoved()
		}
		if err := from.writeJSON(ctx, protocol.NewFailure(hdr.ID, protocol.NoBrowserError)); err != nil {
			r.logger.Debug("failure reply write failed", "id", hdr.ID, "error", err)
		}
	}
}
