// Package metrics provides Prometheus metrics for drawbridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "drawbridge"

// Routing branch labels for envelopes_total. Each inbound envelope is
// counted exactly once, under the branch the router dispatched it to.
const (
	BranchBrowserConnect = "browser_connect"
	BranchPing           = "ping"
	BranchBrowserStatus  = "browser_status"
	BranchResponse       = "response"
	BranchCommand        = "command"
	BranchNoBrowser      = "no_browser"
	BranchDuplicateID    = "duplicate_id"
	BranchMalformed      = "malformed"
)

// Metrics holds all Prometheus metrics for drawbridge. All methods are
// safe to call on a nil receiver, which disables recording.
type Metrics struct {
	Registry *prometheus.Registry

	envelopesTotal    *prometheus.CounterVec
	orphanedResponses prometheus.Counter
	pendingRequests   prometheus.Gauge
	browserConnected  prometheus.Gauge
	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	idleResets        prometheus.Counter
}

// New creates a new Metrics instance with a custom Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		envelopesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_total",
			Help:      "Total envelopes received, by routing branch.",
		}, []string{"branch"}),

		orphanedResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_responses_total",
			Help:      "Browser responses dropped because the requesting CLI connection had closed.",
		}),

		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Commands forwarded to the browser and still awaiting a response.",
		}),

		browserConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_connected",
			Help:      "Whether a browser is currently registered (1) or not (0).",
		}),

		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of currently open WebSocket connections.",
		}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total WebSocket connections accepted.",
		}),

		idleResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_resets_total",
			Help:      "Times qualifying traffic rescheduled the idle shutdown deadline.",
		}),
	}

	reg.MustRegister(
		m.envelopesTotal,
		m.orphanedResponses,
		m.pendingRequests,
		m.browserConnected,
		m.activeConnections,
		m.connectionsTotal,
		m.idleResets,
	)

	return m
}

// EnvelopeRouted counts one envelope under its routing branch.
func (m *Metrics) EnvelopeRouted(branch string) {
	if m == nil {
		return
	}
	m.envelopesTotal.WithLabelValues(branch).Inc()
}

// OrphanedResponse records a browser response dropped because its
// requester was gone.
func (m *Metrics) OrphanedResponse() {
	if m == nil {
		return
	}
	m.orphanedResponses.Inc()
}

// PendingInserted increments the in-flight request gauge.
func (m *Metrics) PendingInserted() {
	if m == nil {
		return
	}
	m.pendingRequests.Inc()
}

// PendingRemoved decrements the in-flight request gauge.
func (m *Metrics) PendingRemoved() {
	if m == nil {
		return
	}
	m.pendingRequests.Dec()
}

// SetBrowserConnected sets the browser registration gauge.
func (m *Metrics) SetBrowserConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.browserConnected.Set(1)
	} else {
		m.browserConnected.Set(0)
	}
}

// ConnectionOpened records a newly accepted WebSocket connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.activeConnections.Inc()
}

// ConnectionClosed records a WebSocket connection teardown.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

// IdleReset records a reschedule of the idle shutdown deadline.
func (m *Metrics) IdleReset() {
	if m == nil {
		return
	}
	m.idleResets.Inc()
}
