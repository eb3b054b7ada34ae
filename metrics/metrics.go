// Package metrics provides Prometheus metrics for the coach gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway. Each instance owns
// its registry so tests can build several without colliding.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SafetyBlocks     *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	RateLimitTracked prometheus.Gauge
}

// New creates and registers all gateway metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_requests_total",
				Help: "Total number of gateway requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coach_request_duration_seconds",
				Help:    "Duration of gateway requests in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route"},
		),
		SafetyBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_safety_blocks_total",
				Help: "Messages answered with a canned safety response",
			},
			[]string{"class"},
		),
		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_rate_limited_total",
				Help: "Requests rejected by the per-caller rate limiter",
			},
			[]string{"route"},
		),
		ProviderErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coach_provider_errors_total",
				Help: "Failed model provider calls",
			},
			[]string{"provider"},
		),
		RateLimitTracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "coach_rate_limit_callers",
				Help: "Callers currently tracked by the rate limiter",
			},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records a handled request with its status code.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSafetyBlock counts a blocked message by class.
func (m *Metrics) RecordSafetyBlock(class string) {
	m.SafetyBlocks.WithLabelValues(class).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited(route string) {
	m.RateLimited.WithLabelValues(route).Inc()
}

// RecordProviderError counts a failed provider call.
func (m *Metrics) RecordProviderError(provider string) {
	m.ProviderErrors.WithLabelValues(provider).Inc()
}

// SetRateLimitTracked reports how many callers the limiter is tracking.
func (m *Metrics) SetRateLimitTracked(n int) {
	m.RateLimitTracked.Set(float64(n))
}
