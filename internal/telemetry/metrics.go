package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the HTTP server and the auth core.
// Initialize once at server startup. All record methods are safe on a nil receiver
// so components can run without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	loginsTotal          *prometheus.CounterVec
	tokenRejectionsTotal *prometheus.CounterVec
	revocationsTotal     *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_auth_logins_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		tokenRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_auth_token_rejections_total",
			Help: "Bearer tokens rejected by the auth gate, by reason.",
		}, []string{"reason"}),
		revocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_auth_revocations_total",
			Help: "Tokens revoked, by revocation backend.",
		}, []string{"backend"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.loginsTotal,
		m.tokenRejectionsTotal,
		m.revocationsTotal,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count, latency and in-flight requests. The route label is
// the chi route pattern, so ids in paths do not explode label cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		labels := prometheus.Labels{"method": r.Method, "route": route, "status": strconv.Itoa(status)}
		m.httpRequestsTotal.With(labels).Inc()
		m.httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// RecordLogin counts an authentication attempt (method: password, google, signup).
func (m *Metrics) RecordLogin(method, outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordTokenRejection counts a bearer token refused by the auth gate.
func (m *Metrics) RecordTokenRejection(reason string) {
	if m == nil {
		return
	}
	m.tokenRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordRevocation counts a revoked token.
func (m *Metrics) RecordRevocation(backend string) {
	if m == nil {
		return
	}
	m.revocationsTotal.WithLabelValues(backend).Inc()
}

// Outcome label values for RecordLogin.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDisabled = "disabled"
	OutcomeError    = "error"
)
