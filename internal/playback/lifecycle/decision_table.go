// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

const (
	ForbiddenTerminalAbsorbing  = "terminal_absorbing"
	ForbiddenAlreadyInitialized = "already_initialized"
	ForbiddenOutOfOrder         = "out_of_order"
	ForbiddenRequiresReady      = "requires_ready"
	ForbiddenRequiresMonitoring = "requires_monitoring"
	ForbiddenNotStalled         = "not_stalled"
	ForbiddenAlreadyStalled     = "already_stalled"
)

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[State]map[EventKind]Decision{
	StateUninitialized: {
		EvReady:          allowed(),
		EvMonitorStarted: forbid(ForbiddenRequiresReady),
		EvStallBegin:     forbid(ForbiddenRequiresMonitoring),
		EvStallEnd:       forbid(ForbiddenRequiresMonitoring),
		EvEnded:          forbid(ForbiddenRequiresMonitoring),
		EvError:          forbid(ForbiddenRequiresMonitoring),
	},
	StateReady: {
		EvReady:          forbid(ForbiddenAlreadyInitialized),
		EvMonitorStarted: allowed(),
		EvStallBegin:     forbid(ForbiddenRequiresMonitoring),
		EvStallEnd:       forbid(ForbiddenRequiresMonitoring),
		EvEnded:          forbid(ForbiddenRequiresMonitoring),
		EvError:          forbid(ForbiddenRequiresMonitoring),
	},
	StateMonitoring: {
		EvReady:          forbid(ForbiddenAlreadyInitialized),
		EvMonitorStarted: forbid(ForbiddenOutOfOrder),
		EvStallBegin:     allowed(),
		EvStallEnd:       forbid(ForbiddenNotStalled),
		EvEnded:          allowed(),
		EvError:          allowed(),
	},
	StateStalled: {
		EvReady:          forbid(ForbiddenAlreadyInitialized),
		EvMonitorStarted: forbid(ForbiddenOutOfOrder),
		EvStallBegin:     forbid(ForbiddenAlreadyStalled),
		EvStallEnd:       allowed(),
		EvEnded:          allowed(),
		EvError:          allowed(),
	},
	StateEnded: {
		EvReady:          forbid(ForbiddenAlreadyInitialized),
		EvMonitorStarted: forbid(ForbiddenTerminalAbsorbing),
		EvStallBegin:     forbid(ForbiddenTerminalAbsorbing),
		EvStallEnd:       forbid(ForbiddenTerminalAbsorbing),
		EvEnded:          forbid(ForbiddenTerminalAbsorbing),
		EvError:          forbid(ForbiddenTerminalAbsorbing),
	},
	StateErrored: {
		EvReady:          forbid(ForbiddenAlreadyInitialized),
		EvMonitorStarted: forbid(ForbiddenTerminalAbsorbing),
		EvStallBegin:     forbid(ForbiddenTerminalAbsorbing),
		EvStallEnd:       forbid(ForbiddenTerminalAbsorbing),
		EvEnded:          forbid(ForbiddenTerminalAbsorbing),
		EvError:          forbid(ForbiddenTerminalAbsorbing),
	},
}

// DecisionFor returns the explicit decision for state×event.
func DecisionFor(from State, ev EventKind) (Decision, bool) {
	m, ok := decisionTable[from]
	if !ok {
		return Decision{}, false
	}
	d, ok := m[ev]
	return d, ok
}

// ForbiddenTransitionReason documents why a transition is disallowed.
func ForbiddenTransitionReason(from State, ev EventKind) string {
	decision, ok := DecisionFor(from, ev)
	if !ok || decision.Allowed {
		return ""
	}
	return decision.Reason
}
