// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stall

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrSampleUnavailable is returned by a PositionSource that has no
	// player attached yet. The tick is skipped.
	ErrSampleUnavailable = errors.New("playback sample unavailable")
	// ErrInvalidSample marks a sample whose position is not a finite,
	// non-negative number of seconds.
	ErrInvalidSample = errors.New("invalid playback sample")
)

// PlaybackSample is one reading of the player clock.
type PlaybackSample struct {
	Position  float64 // seconds
	Paused    bool
	Timestamp time.Time
}

// PositionSource yields the current playback position.
type PositionSource interface {
	Sample() (PlaybackSample, error)
}

// SourceFunc adapts a function to PositionSource.
type SourceFunc func() (PlaybackSample, error)

func (f SourceFunc) Sample() (PlaybackSample, error) { return f() }

// State is the per-session stall bookkeeping.
type State struct {
	LastPosition float64
	Stalled      bool
}

func validPosition(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0
}
