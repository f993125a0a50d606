// Package metrics exposes Prometheus instrumentation for the chat hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	ConnectionsTotal   prometheus.Counter
	MessagesTotal      prometheus.Counter
	EvictionsTotal     prometheus.Counter
	DroppedLeavesTotal prometheus.Counter
	ActiveUsers        prometheus.Gauge
}

// New builds the metric set on its own registry so independent hub instances
// (and parallel tests) never collide on registration.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "connections_total",
			Help:      "Connections admitted since start.",
		}),
		MessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_total",
			Help:      "Chat messages broadcast since start.",
		}),
		EvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "evictions_total",
			Help:      "Members evicted after a failed delivery.",
		}),
		DroppedLeavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "dropped_leave_announcements_total",
			Help:      "Leave announcements dropped because the queue was full.",
		}),
		ActiveUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "active_users",
			Help:      "Currently connected members.",
		}),
	}
	m.reg.MustRegister(
		m.ConnectionsTotal,
		m.MessagesTotal,
		m.EvictionsTotal,
		m.DroppedLeavesTotal,
		m.ActiveUsers,
	)
	return m
}

// Handler serves the /metrics endpoint for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
