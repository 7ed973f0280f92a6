package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftchat_connections_active",
		Help: "Currently open client connections.",
	})

	MessagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftchat_messages_routed_total",
		Help: "Messages dispatched, by routing scope.",
	}, []string{"scope"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftchat_events_dropped_total",
		Help: "Client events and deliveries dropped.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
