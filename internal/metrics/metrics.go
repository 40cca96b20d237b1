package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_connections_active",
			Help: "Authenticated websocket connections currently open",
		},
	)

	ConnectionsRefused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_connections_refused_total",
			Help: "Connections refused at handshake",
		},
		[]string{"reason"},
	)

	// Room metrics
	PrivateRoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_private_rooms_created_total",
			Help: "Private rooms created by get-or-create",
		},
	)

	// Message metrics
	MessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_messages_published_total",
			Help: "Messages durably appended to a room log",
		},
	)

	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_broadcast_deliveries_total",
			Help: "Per-subscriber broadcast outcomes",
		},
		[]string{"outcome"}, // "delivered" or "dropped"
	)

	// Error metrics
	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_event_errors_total",
			Help: "Errors reported to clients, by error type",
		},
		[]string{"type"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
