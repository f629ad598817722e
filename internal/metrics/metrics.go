// Package metrics exposes Prometheus collectors for sessions and recorded
// events. All methods are safe on a nil *Metrics so components can run
// without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lure"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	sessions       *prometheus.CounterVec
	activeSessions *prometheus.GaugeVec
	events         *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	tools          *prometheus.CounterVec
	appendSeconds  prometheus.Histogram
	forwarded      *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Accepted connections per emulated service.",
		}, []string{"service"}),
		activeSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently open per emulated service.",
		}, []string{"service"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recorded_total",
			Help:      "Events durably appended to the store.",
		}, []string{"service", "classification"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events that could not be recorded.",
		}, []string{"service", "reason"}),
		tools: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tools_detected_total",
			Help:      "Interactions fingerprinted as a known tool.",
		}, []string{"tool"}),
		appendSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_append_seconds",
			Help:      "Latency of durable event appends.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		forwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_forwarded_total",
			Help:      "Events handed to the forwarding sink, by result.",
		}, []string{"result"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted counts an accepted connection and marks it active.
func (m *Metrics) SessionStarted(service string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(service).Inc()
	m.activeSessions.WithLabelValues(service).Inc()
}

// SessionEnded marks a session as no longer active.
func (m *Metrics) SessionEnded(service string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(service).Dec()
}

// EventRecorded counts a durably appended event.
func (m *Metrics) EventRecorded(service, classification string, took time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(service, classification).Inc()
	m.appendSeconds.Observe(took.Seconds())
}

// EventDropped counts an event that was not recorded.
func (m *Metrics) EventDropped(service, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(service, reason).Inc()
}

// ToolDetected counts a fingerprinted interaction.
func (m *Metrics) ToolDetected(tool string) {
	if m == nil || tool == "" {
		return
	}
	m.tools.WithLabelValues(tool).Inc()
}

// Forwarded counts a forwarding outcome such as "published" or "dropped".
func (m *Metrics) Forwarded(result string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(result).Inc()
}
