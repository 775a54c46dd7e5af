package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sore_booking_transitions_total",
			Help: "Total number of booking status transitions",
		},
		[]string{"from", "to"},
	)

	BookingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sore_bookings_created_total",
			Help: "Total number of bookings created",
		},
	)

	InvalidTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sore_invalid_transitions_total",
			Help: "Total number of rejected booking transition attempts",
		},
	)

	EscrowLockedCents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sore_escrow_locked_cents",
			Help: "Total cents currently held in escrow",
		},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sore_ledger_settlements_total",
			Help: "Total number of ledger settlements",
		},
		[]string{"kind"},
	)

	SettlementRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sore_ledger_settlement_retries_total",
			Help: "Total number of retried ledger settlement attempts",
		},
	)

	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sore_sweep_runs_total",
			Help: "Total number of auto-resolution sweep runs",
		},
	)

	SweepResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sore_sweep_resolutions_total",
			Help: "Total number of bookings auto-resolved by the sweep",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sore_notifications_total",
			Help: "Total number of notifications processed",
		},
		[]string{"event", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sore_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransition(from, to string) {
	BookingTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordInvalidTransition() {
	InvalidTransitionsTotal.Inc()
}

func RecordSettlement(kind string) {
	SettlementsTotal.WithLabelValues(kind).Inc()
}

func RecordSweepResolution(outcome string) {
	SweepResolutionsTotal.WithLabelValues(outcome).Inc()
}

func RecordNotification(event, status string) {
	NotificationsTotal.WithLabelValues(event, status).Inc()
}
