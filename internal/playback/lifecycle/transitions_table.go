// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

// Transition is a single allowed edge in the lifecycle state machine.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

var transitionsTable = []Transition{
	{From: StateUninitialized, To: StateReady, Event: EvReady},
	{From: StateReady, To: StateMonitoring, Event: EvMonitorStarted},

	// The only cycle.
	{From: StateMonitoring, To: StateStalled, Event: EvStallBegin},
	{From: StateStalled, To: StateMonitoring, Event: EvStallEnd},

	{From: StateMonitoring, To: StateEnded, Event: EvEnded},
	{From: StateStalled, To: StateEnded, Event: EvEnded},
	{From: StateMonitoring, To: StateErrored, Event: EvError},
	{From: StateStalled, To: StateErrored, Event: EvError},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
