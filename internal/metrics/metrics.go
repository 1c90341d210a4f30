// Package metrics exposes Prometheus instrumentation for the session
// lifecycle and turn activity, fed by the event bus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echomail-ai/echomail/internal/event"
)

// Metrics holds the registered collectors and the bus subscriptions
// that drive them.
type Metrics struct {
	registry *prometheus.Registry

	// ActiveSessions tracks the number of live sessions in the registry.
	ActiveSessions prometheus.Gauge

	// SessionsTotal counts session teardowns by cause.
	// Labels: cause (evicted|removed|swept)
	SessionsTotal *prometheus.CounterVec

	// TurnsTotal counts completed turns by outcome.
	// Labels: status (completed|failed)
	TurnsTotal *prometheus.CounterVec

	// ToolCallsTotal counts tool executions across all turns.
	ToolCallsTotal prometheus.Counter

	unsubs []func()
}

// New creates the collectors on a fresh registry and subscribes them to
// the global event bus.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	m := &Metrics{
		registry: registry,
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "echomail_active_sessions",
			Help: "Number of live sessions in the registry",
		}),
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "echomail_sessions_ended_total",
			Help: "Total sessions torn down, by cause",
		}, []string{"cause"}),
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "echomail_turns_total",
			Help: "Total conversation turns, by outcome",
		}, []string{"status"}),
		ToolCallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "echomail_tool_calls_total",
			Help: "Total tool executions across all turns",
		}),
	}
	m.subscribe()
	return m
}

func (m *Metrics) subscribe() {
	m.unsubs = append(m.unsubs,
		event.Subscribe(event.SessionCreated, func(e event.Event) {
			m.ActiveSessions.Inc()
		}),
		event.Subscribe(event.SessionEvicted, func(e event.Event) {
			m.ActiveSessions.Dec()
			m.SessionsTotal.WithLabelValues("evicted").Inc()
		}),
		event.Subscribe(event.SessionRemoved, func(e event.Event) {
			m.ActiveSessions.Dec()
			m.SessionsTotal.WithLabelValues("removed").Inc()
		}),
		event.Subscribe(event.SessionSwept, func(e event.Event) {
			m.ActiveSessions.Dec()
			m.SessionsTotal.WithLabelValues("swept").Inc()
		}),
		event.Subscribe(event.TurnCompleted, func(e event.Event) {
			m.TurnsTotal.WithLabelValues("completed").Inc()
			if data, ok := e.Data.(event.TurnCompletedData); ok {
				m.ToolCallsTotal.Add(float64(data.ToolCalls))
			}
		}),
		event.Subscribe(event.TurnFailed, func(e event.Event) {
			m.TurnsTotal.WithLabelValues("failed").Inc()
		}),
	)
}

// Handler returns the /metrics endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Close drops the bus subscriptions.
func (m *Metrics) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}
