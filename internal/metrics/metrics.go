package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeypot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "honeypot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Engine metrics
	TurnsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeypot_turns_total",
			Help: "Total conversational turns handled",
		},
	)

	TrapsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeypot_traps_fired_total",
			Help: "Total honey-traps injected into replies",
		},
		[]string{"category"}, // card, name, address, email, none
	)

	TurnRisk = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "honeypot_turn_risk",
			Help:    "Risk score reported per turn",
			Buckets: []float64{40, 50, 60, 70, 80, 90, 99},
		},
	)

	OracleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeypot_oracle_failures_total",
			Help: "Oracle calls recovered with the sentinel verdict",
		},
		[]string{"reason"}, // invoke, timeout, empty, malformed
	)

	ReportsCompiled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeypot_reports_compiled_total",
			Help: "Total evidence reports compiled",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeypot_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "honeypot_store_latency_seconds",
			Help:    "Session store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"backend", "op"},
	)
)
