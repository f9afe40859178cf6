package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntakeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Total number of intake requests by outcome",
		},
		[]string{"outcome"},
	)

	IntakeRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_rejected_total",
			Help: "Total number of rejected intake requests by reason",
		},
		[]string{"reason"},
	)

	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_attempts_total",
			Help: "Total number of notification send attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	NotificationExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_exhausted_total",
			Help: "Total number of notifications that exhausted their retry budget",
		},
		[]string{"kind"},
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_duration_seconds",
			Help: "Wall-clock duration of a notification dispatch including retries",
		},
		[]string{"kind"},
	)

	FailureRecordsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "failure_records_open",
			Help: "Number of unresolved failed notification records",
		},
	)
)
