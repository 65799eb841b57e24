// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(metric); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func getHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := h.Write(metric); err != nil {
		t.Fatalf("write histogram metric: %v", err)
	}
	return metric.GetHistogram().GetSampleCount()
}

func TestSampleFailure_ReasonAllowlist(t *testing.T) {
	before := getCounterVecValue(t, sampleFailureTotal, "unknown")
	IncSampleFailure("disk_on_fire")
	after := getCounterVecValue(t, sampleFailureTotal, "unknown")
	if after != before+1 {
		t.Fatalf("expected unknown reason +1, got before=%v after=%v", before, after)
	}

	before = getCounterVecValue(t, sampleFailureTotal, "unavailable")
	IncSampleFailure("unavailable")
	after = getCounterVecValue(t, sampleFailureTotal, "unavailable")
	if after != before+1 {
		t.Fatalf("expected unavailable +1, got before=%v after=%v", before, after)
	}
}

func TestQualityChange_SourceNormalization(t *testing.T) {
	before := getCounterVecValue(t, qualityChangeTotal, "720", "user")
	IncQualityChange(720, " User ")
	after := getCounterVecValue(t, qualityChangeTotal, "720", "user")
	if after != before+1 {
		t.Fatalf("expected 720/user +1, got before=%v after=%v", before, after)
	}

	before = getCounterVecValue(t, qualityChangeTotal, "480", "unknown")
	IncQualityChange(480, "abr-magic")
	after = getCounterVecValue(t, qualityChangeTotal, "480", "unknown")
	if after != before+1 {
		t.Fatalf("expected 480/unknown +1, got before=%v after=%v", before, after)
	}
}

func TestStallDuration_ClampsNegative(t *testing.T) {
	before := getHistogramCount(t, stallDurationSeconds)
	ObserveStallDuration(-3)
	ObserveStallDuration(1.5)
	if got := getHistogramCount(t, stallDurationSeconds); got != before+2 {
		t.Fatalf("expected two samples, got %d", got-before)
	}
}

func TestSessionOutcome_Allowlist(t *testing.T) {
	before := getCounterVecValue(t, sessionOutcomeTotal, "unknown")
	IncSessionOutcome("exploded")
	if after := getCounterVecValue(t, sessionOutcomeTotal, "unknown"); after != before+1 {
		t.Fatalf("expected unknown outcome +1, got before=%v after=%v", before, after)
	}
}

func TestPreferenceOp_ResultLabel(t *testing.T) {
	before := getCounterVecValue(t, preferenceOpsTotal, "redis", "get", "error")
	ObservePreferenceOp("redis", "get", errors.New("down"), time.Millisecond)
	if after := getCounterVecValue(t, preferenceOpsTotal, "redis", "get", "error"); after != before+1 {
		t.Fatalf("expected redis/get/error +1, got before=%v after=%v", before, after)
	}
}

func TestBridgeMessage_UnknownTypeCollapses(t *testing.T) {
	before := getCounterVecValue(t, bridgeMessagesTotal, "in", "unknown")
	IncBridgeMessage("in", "seek")
	if after := getCounterVecValue(t, bridgeMessagesTotal, "in", "unknown"); after != before+1 {
		t.Fatalf("expected in/unknown +1, got before=%v after=%v", before, after)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	SetCircuitBreakerState(BreakerPreferences, "open")
	metric := &dto.Metric{}
	if err := breakerState.WithLabelValues(BreakerPreferences, "open").Write(metric); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 1 {
		t.Fatalf("open gauge = %v, want 1", got)
	}
	if err := breakerState.WithLabelValues(BreakerPreferences, "closed").Write(metric); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if got := metric.GetGauge().GetValue(); got != 0 {
		t.Fatalf("closed gauge = %v, want 0", got)
	}

	before := getCounterVecValue(t, breakerTrips, BreakerPreferences, TripThresholdExceeded)
	RecordCircuitBreakerTrip(BreakerPreferences, TripThresholdExceeded)
	if got := getCounterVecValue(t, breakerTrips, BreakerPreferences, TripThresholdExceeded); got != before+1 {
		t.Fatalf("trips = %v, want %v", got, before+1)
	}
}

func TestCircuitBreakerMetrics_LabelsCollapse(t *testing.T) {
	before := getCounterVecValue(t, breakerTrips, breakerOther, labelUnknown)
	RecordCircuitBreakerTrip("adhoc-breaker", "cosmic_rays")
	if got := getCounterVecValue(t, breakerTrips, breakerOther, labelUnknown); got != before+1 {
		t.Fatalf("other/unknown trips = %v, want %v", got, before+1)
	}

	rejected := getCounterVecValue(t, breakerRejections, BreakerPreferences)
	IncCircuitBreakerRejection(BreakerPreferences)
	IncCircuitBreakerRejection(BreakerPreferences)
	if got := getCounterVecValue(t, breakerRejections, BreakerPreferences); got != rejected+2 {
		t.Fatalf("rejections = %v, want %v", got, rejected+2)
	}
}
