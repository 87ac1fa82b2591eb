// Package mcpmetrics exposes Prometheus counters and gauges for an
// endpoint's request/notification traffic, registered against a private
// registry and served over HTTP with promhttp — the same
// custom-registry-plus-promhttp.HandlerFor shape this corpus's own metrics
// endpoint uses.
package mcpmetrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metoro-io/mcp-golang/internal/protocol"
)

// Recorder counts protocol-level events. The zero value is not usable;
// build one with New.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	inFlight           prometheus.Gauge
	pendingOutbound    prometheus.Gauge
}

var _ protocol.Metrics = (*Recorder)(nil)

// New builds a Recorder registered against a fresh, private registry so
// that multiple Endpoints in one process don't collide on metric names.
func New(namespace string) *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Inbound JSON-RPC requests dispatched, by method.",
		}, []string{"method"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Inbound JSON-RPC notifications dispatched, by method.",
		}, []string{"method"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Handler errors returned to callers, by JSON-RPC error code.",
		}, []string{"code"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Inbound requests currently being handled.",
		}),
		pendingOutbound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_outbound_requests",
			Help:      "Outbound requests awaiting a response.",
		}),
	}

	registry.MustRegister(
		r.requestsTotal,
		r.notificationsTotal,
		r.errorsTotal,
		r.inFlight,
		r.pendingOutbound,
	)
	return r
}

// RequestStarted records the start of an inbound request's handling and
// returns a func to call on completion.
func (r *Recorder) RequestStarted(method string) func() {
	r.requestsTotal.WithLabelValues(method).Inc()
	r.inFlight.Inc()
	return r.inFlight.Dec
}

// NotificationDispatched records an inbound notification dispatch.
func (r *Recorder) NotificationDispatched(method string) {
	r.notificationsTotal.WithLabelValues(method).Inc()
}

// HandlerError records a handler error keyed by its JSON-RPC error code.
func (r *Recorder) HandlerError(code int) {
	r.errorsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// PendingOutboundSet reports the current size of the outbound pending-
// request table.
func (r *Recorder) PendingOutboundSet(n int) {
	r.pendingOutbound.Set(float64(n))
}

// Handler serves this Recorder's registry in Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
