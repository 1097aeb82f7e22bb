// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// breakerStates are the label values of statusfeed_circuit_breaker_state.
var breakerStates = [...]string{"closed", "half-open", "open"}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statusfeed_circuit_breaker_state",
		Help: "1 for the breaker's current state, 0 for the others",
	}, []string{"component", "state"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_circuit_breaker_transitions_total",
		Help: "Breaker state changes",
	}, []string{"component", "to"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_circuit_breaker_trips_total",
		Help: "Transitions to open, by cause",
	}, []string{"component", "reason"}) // reason=threshold_exceeded|half_open_failure
)

// SetCircuitBreakerState marks state as the only active one for component
// and counts the transition.
func SetCircuitBreakerState(component, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(component, s).Set(v)
	}
	breakerTransitions.WithLabelValues(component, state).Inc()
}

func RecordCircuitBreakerTrip(component, reason string) {
	breakerTrips.WithLabelValues(component, reason).Inc()
}
