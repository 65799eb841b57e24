// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	preferenceOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_preference_ops_total",
		Help: "Preference store operations by backend, operation and result",
	}, []string{"backend", "op", "result"})

	preferenceOpSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playwatch_preference_op_duration_seconds",
		Help:    "Preference store operation latency",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"backend", "op"})
)

// ObservePreferenceOp records one store operation.
func ObservePreferenceOp(backend, op string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if backend == "" {
		backend = labelUnknown
	}
	preferenceOpsTotal.WithLabelValues(backend, op, result).Inc()
	preferenceOpSeconds.WithLabelValues(backend, op).Observe(took.Seconds())
}
