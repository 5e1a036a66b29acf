// Package metrics exposes Prometheus metrics for the dashboard service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for KeyHub. Instances carry
// their own registry, so tests can create as many as they like.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	KeyValidationsTotal *prometheus.CounterVec
	SummariesTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		KeyValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyhub_key_validations_total",
				Help: "Total number of API key validation attempts",
			},
			[]string{"outcome"},
		),
		SummariesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyhub_summaries_total",
				Help: "Total number of repository summarization requests",
			},
			[]string{"source"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.KeyValidationsTotal,
		m.SummariesTotal,
	)

	return m
}

// Validation outcomes for KeyValidationsTotal
const (
	OutcomeValid     = "valid"
	OutcomeInvalid   = "invalid"
	OutcomeOverLimit = "over_limit"
)

// Summary sources for SummariesTotal
const (
	SourceCache  = "cache"
	SourceGitHub = "github"
)

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
