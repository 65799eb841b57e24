// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics registers the Prometheus collectors for sessions,
// playback health, preference storage and the player bridge.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sampleReasonUnavailable = "unavailable"
	sampleReasonInvalid     = "invalid"
	sampleReasonError       = "error"

	qualitySourceUser    = "user"
	qualitySourceSystem  = "system"
	qualitySourceInitial = "initial"

	outcomeEnded   = "ended"
	outcomeErrored = "errored"
	outcomeClosed  = "closed"

	labelUnknown = "unknown"
)

var (
	stallBeginTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playwatch_stall_begin_total",
		Help: "Detected playback stalls (edge-triggered)",
	})

	stallDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playwatch_stall_duration_seconds",
		Help:    "Duration of recovered playback stalls measured from sample timestamps",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 20, 30, 60, 120},
	})

	sampleFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_sample_failure_total",
		Help: "Skipped stall detector ticks by reason",
	}, []string{"reason"})

	qualityChangeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_quality_changes_total",
		Help: "Quality level changes by level and source",
	}, []string{"level", "source"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playwatch_sessions_active",
		Help: "Currently registered playback sessions",
	})

	sessionOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_session_outcome_total",
		Help: "Finished playback sessions by outcome",
	}, []string{"outcome"})

	bufferedAheadSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playwatch_buffered_ahead_seconds",
		Help:    "Buffered media ahead of the playhead reported by progress events",
		Buckets: []float64{0, 1, 2, 5, 10, 15, 20, 25, 30, 45, 60, 120},
	})
)

// IncStallBegin records a stall transition.
func IncStallBegin() {
	stallBeginTotal.Inc()
}

// ObserveStallDuration records how long a recovered stall lasted.
func ObserveStallDuration(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	stallDurationSeconds.Observe(seconds)
}

// IncSampleFailure records a skipped tick.
func IncSampleFailure(reason string) {
	switch reason {
	case sampleReasonUnavailable, sampleReasonInvalid, sampleReasonError:
	default:
		reason = labelUnknown
	}
	sampleFailureTotal.WithLabelValues(reason).Inc()
}

// IncQualityChange records a quality level change. Levels are validated
// against the configured table before they get here.
func IncQualityChange(level int, source string) {
	qualityChangeTotal.WithLabelValues(strconv.Itoa(level), normalizeQualitySource(source)).Inc()
}

func normalizeQualitySource(source string) string {
	switch s := strings.ToLower(strings.TrimSpace(source)); s {
	case qualitySourceUser, qualitySourceSystem, qualitySourceInitial:
		return s
	default:
		return labelUnknown
	}
}

// IncSessionsActive and DecSessionsActive track registry membership.
func IncSessionsActive() { sessionsActive.Inc() }
func DecSessionsActive() { sessionsActive.Dec() }

// IncSessionOutcome records how a session finished.
func IncSessionOutcome(outcome string) {
	switch outcome {
	case outcomeEnded, outcomeErrored, outcomeClosed:
	default:
		outcome = labelUnknown
	}
	sessionOutcomeTotal.WithLabelValues(outcome).Inc()
}

// ObserveBufferedAhead records a progress report.
func ObserveBufferedAhead(seconds float64) {
	if seconds < 0 {
		return
	}
	bufferedAheadSeconds.Observe(seconds)
}
