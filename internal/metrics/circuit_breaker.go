// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker components. Names outside this list are reported as "other" so
// ad hoc breakers cannot grow label cardinality.
const (
	BreakerPreferences = "preferences"

	breakerOther = "other"
)

// Trip reasons.
const (
	TripThresholdExceeded = "threshold_exceeded"
	TripHalfOpenFailure   = "half_open_failure"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playwatch_circuit_breaker_state",
		Help: "Guarded dependency breaker state; the active state is 1",
	}, []string{"component", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_circuit_breaker_trips_total",
		Help: "Breaker transitions to open, by reason",
	}, []string{"component", "reason"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playwatch_circuit_breaker_rejections_total",
		Help: "Calls refused without reaching the dependency because the breaker was open",
	}, []string{"component"})
)

var breakerStates = [...]string{"closed", "half-open", "open"}

func breakerComponent(component string) string {
	switch component {
	case BreakerPreferences:
		return component
	default:
		return breakerOther
	}
}

// SetCircuitBreakerState marks state as the active one for component.
func SetCircuitBreakerState(component, state string) {
	component = breakerComponent(component)
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(component, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a transition to open.
func RecordCircuitBreakerTrip(component, reason string) {
	switch reason {
	case TripThresholdExceeded, TripHalfOpenFailure:
	default:
		reason = labelUnknown
	}
	breakerTrips.WithLabelValues(breakerComponent(component), reason).Inc()
}

// IncCircuitBreakerRejection counts a call short-circuited by an open breaker.
func IncCircuitBreakerRejection(component string) {
	breakerRejections.WithLabelValues(breakerComponent(component)).Inc()
}
