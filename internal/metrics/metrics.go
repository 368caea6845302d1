package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ledger metrics
	LedgerCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_ledger_commands_total",
			Help: "Total ledger commands by outcome",
		},
		[]string{"command", "result"},
	)

	LedgerCommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parlor_ledger_command_duration_seconds",
			Help:    "Ledger command duration in seconds, lock wait included",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"command"},
	)

	RevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_revenue_total",
			Help: "Billed amount of closed sessions",
		},
		[]string{"category"},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_sessions_closed_total",
			Help: "Total closed sessions",
		},
		[]string{"category"},
	)

	// Broadcast metrics
	BroadcastSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parlor_broadcast_subscribers",
			Help: "Currently connected event subscribers",
		},
	)

	BroadcastEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_broadcast_events_total",
			Help: "Events published to the hub",
		},
		[]string{"type"},
	)

	BroadcastPruned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_broadcast_pruned_total",
			Help: "Subscribers removed by the hub",
		},
		[]string{"reason"},
	)

	// Side effect metrics
	LightRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_light_requests_total",
			Help: "Table light requests by outcome",
		},
		[]string{"result"},
	)

	PushNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parlor_push_notifications_total",
			Help: "Web push notifications by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		LedgerCommandsTotal,
		LedgerCommandDuration,
		RevenueTotal,
		SessionsClosed,
		BroadcastSubscribers,
		BroadcastEvents,
		BroadcastPruned,
		LightRequests,
		PushNotifications,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
