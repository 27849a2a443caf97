package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mml_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_transfers_total",
			Help: "Transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	RiskScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mml_risk_score",
			Help:    "Distribution of risk scores by action",
			Buckets: []float64{0, 20, 40, 60, 70, 80, 90, 100},
		},
		[]string{"action"},
	)

	IdempotencyReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_idempotency_replays_total",
			Help: "Idempotent replays by source",
		},
		[]string{"source"},
	)

	HoldResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_hold_resolutions_total",
			Help: "Resolved holds by decision",
		},
		[]string{"decision"},
	)

	ChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_challenges_total",
			Help: "Step-up challenge events by result",
		},
		[]string{"result"},
	)

	DispatchQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mml_dispatch_queue_length",
			Help: "Current length of the outbound event queue",
		},
	)

	DispatchedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mml_dispatched_events_total",
			Help: "Outbound event handler runs by handler and status",
		},
		[]string{"handler", "status"},
	)

	DroppedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mml_dropped_events_total",
			Help: "Outbound events dropped because the queue was full",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransfer(outcome string) {
	TransfersTotal.WithLabelValues(outcome).Inc()
}

func RecordRiskScore(action string, score int) {
	RiskScores.WithLabelValues(action).Observe(float64(score))
}

func RecordReplay(source string) {
	IdempotencyReplaysTotal.WithLabelValues(source).Inc()
}

func RecordHoldResolution(decision string) {
	HoldResolutionsTotal.WithLabelValues(decision).Inc()
}

func RecordChallenge(result string) {
	ChallengesTotal.WithLabelValues(result).Inc()
}

func RecordDispatch(handler, status string) {
	DispatchedEventsTotal.WithLabelValues(handler, status).Inc()
}

func RecordDroppedEvent() {
	DroppedEventsTotal.Inc()
}
