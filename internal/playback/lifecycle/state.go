// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lifecycle is the playback session state machine. Every legal edge
// is listed in one table; everything else is rejected.
package lifecycle

// State is the lifecycle state of a playback session.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateReady         State = "READY"
	StateMonitoring    State = "MONITORING"
	StateStalled       State = "STALLED"
	StateEnded         State = "ENDED"
	StateErrored       State = "ERRORED"
)

// States lists every state.
var States = []State{
	StateUninitialized,
	StateReady,
	StateMonitoring,
	StateStalled,
	StateEnded,
	StateErrored,
}

// IsTerminal returns true if the state is absorbing.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateErrored
}

// Initialized reports whether the player has signalled ready.
func (s State) Initialized() bool {
	return s != StateUninitialized
}
