package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts finished HTTP requests by route and status class.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esupchat_http_requests_total",
		Help: "Finished HTTP requests.",
	}, []string{"route", "status"})

	// RequestDuration observes HTTP request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "esupchat_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// OrchestrationRounds observes how many model rounds each turn needed.
	OrchestrationRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "esupchat_orchestration_rounds",
		Help:    "Completion rounds consumed per user turn.",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	// CompletionLatency observes single completion-call latency.
	CompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "esupchat_completion_duration_seconds",
		Help:    "Latency of individual completion service calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// ToolErrors counts tool invocations that produced an error payload.
	ToolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esupchat_tool_errors_total",
		Help: "Tool invocations resolved with an error payload.",
	}, []string{"tool"})

	// PersistenceFailures counts turns whose results could not be stored.
	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esupchat_persistence_failures_total",
		Help: "Completed turns whose messages failed to persist.",
	})
)
