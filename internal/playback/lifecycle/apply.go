// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "fmt"

// Apply resolves the transition for ev from the current state. The state is
// left untouched when the event is rejected.
func Apply(state *State, ev EventKind) (Transition, error) {
	from := *state
	decision, ok := DecisionFor(from, ev)
	if ok && !decision.Allowed && decision.Reason == ForbiddenAlreadyInitialized {
		return Transition{}, fmt.Errorf("%w: %s + %s", ErrAlreadyInitialized, from, ev)
	}
	if !ok || !decision.Allowed {
		return illegalTransition(from, ev, decision.Reason)
	}
	tr, ok := TransitionFor(from, ev)
	if !ok {
		return illegalTransition(from, ev, "missing_edge")
	}
	*state = tr.To
	return tr, nil
}
