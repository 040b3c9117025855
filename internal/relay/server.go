// Package relay implements the drawbridge relay core: the WebSocket
// endpoint the CLI and the browser both connect to, the single-slot
// browser registry, the pending request table keyed by correlation id,
// and the idle shutdown timer.
//
// The relay never interprets command parameters or response results; it
// classifies envelopes by type tag and correlation id and forwards the
// raw frames between the two sides.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/drawbridge-sh/drawbridge/internal/metrics"
)

// DefaultIdleTimeout is how long the relay stays up without qualifying
// traffic before shutting itself down.
const DefaultIdleTimeout = 2 * time.Hour

// maxEnvelopeBytes bounds a single envelope frame. Scene imports can be
// large; this is far above anything the canvas produces.
const maxEnvelopeBytes = 10 << 20

// Config holds relay server configuration.
type Config struct {
	// IdleTimeout is the idle shutdown duration. Zero means
	// DefaultIdleTimeout.
	IdleTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics // optional; nil disables metrics

	// UI, if set, serves every path other than /ws and /healthz
	// (the browser canvas bundle).
	UI http.Handler
}

// Server is the drawbridge relay process: one HTTP listener carrying the
// /ws envelope endpoint, a /healthz probe, and optionally the canvas UI.
type Server struct {
	cfg      Config
	registry *Registry
	pending  *Table
	idle     *IdleTimer
	router   *Router
	idleCh   chan struct{}
}

// New creates a Server. The idle countdown starts immediately: a relay
// that is launched and never spoken to exits after IdleTimeout.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	s := &Server{
		cfg:      cfg,
		registry: &Registry{},
		pending:  NewTable(),
		idleCh:   make(chan struct{}),
	}
	s.idle = NewIdleTimer(cfg.IdleTimeout, func() { close(s.idleCh) })
	s.router = NewRouter(s.registry, s.pending, s.idle, cfg.Logger, cfg.Metrics)
	return s
}

// Handler returns the HTTP handler backing the server. Exposed so tests
// can mount it on httptest without the Serve lifecycle.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.UI != nil {
		mux.Handle("/", s.cfg.UI)
	}
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.cfg.Logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = ws.CloseNow() }()
	ws.SetReadLimit(maxEnvelopeBytes)

	s.cfg.Metrics.ConnectionOpened()
	defer s.cfg.Metrics.ConnectionClosed()

	s.router.HandleConn(r.Context(), ws)
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// Serve accepts connections on ln until ctx is cancelled or the idle
// timer fires. Connection contexts derive from the serve context, so
// shutdown unblocks every in-flight read; the listener stops accepting
// first, then open connections are closed.
//
// Returns nil after an idle shutdown (a deliberate, clean exit) and
// ctx.Err() when cancelled from outside.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.idle.Stop()

	go func() {
		select {
		case <-serveCtx.Done():
		case <-s.idleCh:
			s.cfg.Logger.Info("idle timeout reached, shutting down", "idleTimeout", s.cfg.IdleTimeout)
			cancel()
		}
	}()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return serveCtx },
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-serveCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		close(shutdownDone)
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return ctx.Err()
}
