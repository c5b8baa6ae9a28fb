// Package metrics exposes prometheus counters for the membership engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staffgate"

// Metrics holds the engine collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	Events          *prometheus.CounterVec
	EventDuration   *prometheus.HistogramVec
	Denials         *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	Finalizations   *prometheus.CounterVec
	Inconsistencies prometheus.Counter
}

// New registers the engine collectors on reg. A nil reg gets a fresh
// registry with the go and process collectors attached.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by graph, shape and result.",
		}, []string{"graph", "kind", "result"}),
		EventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"graph"}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denials_total",
			Help:      "Events refused by the access gate.",
		}, []string{"reason"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Workflow errors by kind.",
		}, []string{"kind"}),
		Finalizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalizations_total",
			Help:      "Committed membership decisions.",
		}, []string{"decision"}),
		Inconsistencies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_inconsistencies_total",
			Help:      "Decisions persisted whose notification could not be delivered.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveEvent records one handled event.
func (m *Metrics) ObserveEvent(graph, kind, result string, d time.Duration) {
	if m == nil {
		return
	}
	if graph == "" {
		graph = "none"
	}
	m.Events.WithLabelValues(graph, kind, result).Inc()
	m.EventDuration.WithLabelValues(graph).Observe(d.Seconds())
}

// Denied records a refusal by the access gate.
func (m *Metrics) Denied(reason string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(reason).Inc()
}

// Failed records a workflow error.
func (m *Metrics) Failed(kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

// Finalized records a committed decision.
func (m *Metrics) Finalized(decision string) {
	if m == nil {
		return
	}
	m.Finalizations.WithLabelValues(decision).Inc()
}

// Inconsistent records a decision that was stored but not announced.
func (m *Metrics) Inconsistent() {
	if m == nil {
		return
	}
	m.Inconsistencies.Inc()
}
