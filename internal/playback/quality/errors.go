// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package quality

import "errors"

var (
	// ErrInvalidQualityLevel is returned for levels outside the table.
	ErrInvalidQualityLevel = errors.New("invalid quality level")
	// ErrPreferenceWrite wraps a failed preference write. The level change
	// that triggered it has already been applied.
	ErrPreferenceWrite = errors.New("quality preference write failed")
	// ErrApplyTuning wraps a player that refused the tuning.
	ErrApplyTuning = errors.New("apply tuning failed")
)
