// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

// EventKind is a lifecycle event.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvReady
	EvMonitorStarted
	EvStallBegin
	EvStallEnd
	EvEnded
	EvError
)

// Events lists every known event kind.
var Events = []EventKind{
	EvReady,
	EvMonitorStarted,
	EvStallBegin,
	EvStallEnd,
	EvEnded,
	EvError,
}

func (e EventKind) String() string {
	switch e {
	case EvReady:
		return "ready"
	case EvMonitorStarted:
		return "monitor_started"
	case EvStallBegin:
		return "stall_begin"
	case EvStallEnd:
		return "stall_end"
	case EvEnded:
		return "ended"
	case EvError:
		return "error"
	default:
		return "unknown"
	}
}
