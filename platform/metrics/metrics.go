// Package metrics owns the Prometheus registry exposed on /metrics.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zipcode_map"

// Outcome labels shared by the lookup counters and the upstream histogram.
const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
)

// SourceOther labels lookups for countries outside the catalogue.
const SourceOther = "other"

// Metrics groups the collectors registered by the application.
type Metrics struct {
	registry         *prometheus.Registry
	lookups          *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	pageSessions     prometheus.Gauge
}

// New creates a private registry with Go and process collectors plus the
// application collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Zip code lookups submitted, by outcome and country.",
		}, []string{"outcome", "source"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of calls to the geocoding API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		pageSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_sessions",
			Help:      "Open browser page sessions.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.lookups,
		m.upstreamDuration,
		m.pageSessions,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CountLookup increments the lookup counter. Callers bound source to a fixed
// set of codes. Nil receivers are ignored.
func (m *Metrics) CountLookup(outcome, source string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome, source).Inc()
}

// ObserveUpstream records how long a geocoding call took.
func (m *Metrics) ObserveUpstream(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// SetPageSessions records the number of live page sessions.
func (m *Metrics) SetPageSessions(n int) {
	if m == nil {
		return
	}
	m.pageSessions.Set(float64(n))
}
