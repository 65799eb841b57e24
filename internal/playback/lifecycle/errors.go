// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import "errors"

var (
	// ErrIllegalTransition is returned for any edge missing from the table.
	ErrIllegalTransition = errors.New("illegal lifecycle transition")
	// ErrAlreadyInitialized is returned for a repeated ready event. Callers
	// treat it as a no-op.
	ErrAlreadyInitialized = errors.New("session already initialized")
)
