package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, recorded by the server middleware.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openbench_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openbench_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "openbench_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Run engine metrics, recorded by the supervisor and cancellation path.
var (
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "openbench_runs_started_total",
			Help: "Total number of run processes spawned",
		},
	)

	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openbench_runs_finished_total",
			Help: "Total number of runs reaching a terminal status",
		},
		[]string{"status"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "openbench_runs_active",
			Help: "Number of run processes currently registered",
		},
	)

	CancelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openbench_cancel_requests_total",
			Help: "Cancellation requests by outcome (canceled or noop)",
		},
		[]string{"outcome"},
	)
)
