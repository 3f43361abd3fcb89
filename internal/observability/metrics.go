package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synaplink_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_holds_created_total",
			Help: "Holds successfully created",
		},
	)

	HoldConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_hold_conflicts_total",
			Help: "Hold attempts rejected because a cabin was not free",
		},
	)

	ReservationsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_reservations_confirmed_total",
			Help: "Holds promoted to confirmed reservations",
		},
	)

	ReservationsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_reservations_cancelled_total",
			Help: "Reservations cancelled by their owner",
		},
	)

	HoldsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_holds_expired_total",
			Help: "Stale holds reclaimed by the expiry sweep",
		},
	)

	ReservationsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_reservations_completed_total",
			Help: "Confirmed reservations completed by the sweep",
		},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synaplink_sweep_seconds",
			Help:    "Duration of background sweep passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synaplink_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
