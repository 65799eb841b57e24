// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !debug

package lifecycle

import "fmt"

func illegalTransition(from State, ev EventKind, reason string) (Transition, error) {
	if reason == "" {
		reason = "unknown_event"
	}
	return Transition{}, fmt.Errorf("%w: %s + %s (%s)", ErrIllegalTransition, from, ev, reason)
}
