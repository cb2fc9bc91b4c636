// Package metrics exposes Prometheus metrics for assessments, the advisory
// path and the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cradlecare/cradlecare-hub/internal/application/assessment"
	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
	"github.com/cradlecare/cradlecare-hub/pkg/circuitbreaker"
)

const namespace = "cradlecare"

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	assessments     *prometheus.CounterVec
	failures        *prometheus.CounterVec
	advisoryLatency *prometheus.HistogramVec
	advisoryCache   *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed growth assessments by classification and advisory source.",
		}, []string{"primary_factor", "severity", "generated_by"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_failures_total",
			Help:      "Rejected or failed assessments by error kind.",
		}, []string{"kind"}),
		advisoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisory_latency_seconds",
			Help:      "Advisory generator latency, including calls that fell back.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		}, []string{"generated_by"}),
		advisoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_cache_total",
			Help:      "Advisory cache lookups by outcome.",
		}, []string{"outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assessments,
		m.failures,
		m.advisoryLatency,
		m.advisoryCache,
		m.breakerState,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAssessment implements assessment.Observer.
func (m *Metrics) ObserveAssessment(o *assessment.Outcome) {
	a := o.Assessment
	m.assessments.WithLabelValues(
		string(a.Classification.PrimaryFactor),
		string(a.Classification.Severity),
		string(a.GeneratedBy),
	).Inc()

	if o.AdvisoryLatency > 0 {
		m.advisoryLatency.WithLabelValues(string(a.GeneratedBy)).Observe(o.AdvisoryLatency.Seconds())
	}
}

// ObserveFailure counts a failed assessment by error kind.
func (m *Metrics) ObserveFailure(err error) {
	m.failures.WithLabelValues(FailureKind(err)).Inc()
}

// FailureKind maps an assessment error to a metric label.
func FailureKind(err error) string {
	switch {
	case shared.IsValidation(err):
		return "input"
	case errors.Is(err, growth.ErrData):
		return "data"
	case errors.Is(err, growth.ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// ObserveAdvisoryCache counts a cache lookup outcome.
func (m *Metrics) ObserveAdvisoryCache(outcome string) {
	m.advisoryCache.WithLabelValues(outcome).Inc()
}

// ObserveBreakerState records a circuit breaker transition. Its signature
// matches the circuitbreaker state change callback.
func (m *Metrics) ObserveBreakerState(name string, _, to circuitbreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var _ assessment.Observer = (*Metrics)(nil)
