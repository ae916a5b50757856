package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esupchat_store_ops_total",
		Help: "Store operations by name and result.",
	}, []string{"op", "result"})

	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "esupchat_store_op_duration_seconds",
		Help:    "Store operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func observe(op string, start time.Time) {
	opsTotal.WithLabelValues(op, "ok").Inc()
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// observeErr records a failed operation and returns err unchanged so call
// sites can wrap the return in one expression.
func observeErr(op string, start time.Time, err error) error {
	opsTotal.WithLabelValues(op, "error").Inc()
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}
