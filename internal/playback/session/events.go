// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"time"

	"github.com/ManuGH/playwatch/internal/playback/lifecycle"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/stall"
)

// EventKind names a player event.
type EventKind string

const (
	EventReady           EventKind = "ready"
	EventProgress        EventKind = "progress"
	EventEnded           EventKind = "ended"
	EventError           EventKind = "error"
	EventEnterFullscreen EventKind = "enterfullscreen"
	EventExitFullscreen  EventKind = "exitfullscreen"
)

// PlayerEvent is an event reported by the player.
type PlayerEvent struct {
	Kind EventKind
	// BufferedAhead is the buffered media ahead of the playhead in seconds (progress).
	BufferedAhead float64
	// Message is the player's error description (error).
	Message string
}

// Player is the embedded media player driven by a session.
type Player interface {
	Sample() (stall.PlaybackSample, error)
	ApplyTuning(quality.Tuning) error
}

// Default user-visible text for a playback fault.
const (
	FaultTitle  = "Error playing the video"
	FaultNotice = "Please try again or contact the administrator."
)

// PlayerFault is delivered to observers when the player reports an error.
type PlayerFault struct {
	SessionID string
	Message   string
	Title     string
	Notice    string
	At        time.Time
}

// Observer receives session notifications on the session's event loop.
// Implementations must not block and must not call Close.
type Observer interface {
	OnStallBegin(at time.Time)
	OnStallEnd(at time.Time, stalledFor time.Duration)
	OnQualityChanged(level quality.Level)
	OnFullscreenChanged(fullscreen bool)
	OnPlayerFault(fault PlayerFault)
	OnStateChanged(from, to lifecycle.State)
}

// NopObserver implements Observer with no-ops. Embed it to handle a subset
// of notifications.
type NopObserver struct{}

func (NopObserver) OnStallBegin(time.Time)                          {}
func (NopObserver) OnStallEnd(time.Time, time.Duration)             {}
func (NopObserver) OnQualityChanged(quality.Level)                  {}
func (NopObserver) OnFullscreenChanged(bool)                        {}
func (NopObserver) OnPlayerFault(PlayerFault)                       {}
func (NopObserver) OnStateChanged(lifecycle.State, lifecycle.State) {}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID            string          `json:"id"`
	ClientID      string          `json:"client_id"`
	MediaKey      string          `json:"media_key,omitempty"`
	State         lifecycle.State `json:"state"`
	Level         quality.Level   `json:"level"`
	Tuning        quality.Tuning  `json:"tuning"`
	UserOverride  bool            `json:"user_override"`
	Stalled       bool            `json:"stalled"`
	StallCount    int             `json:"stall_count"`
	BufferedAhead float64         `json:"buffered_ahead_seconds"`
	Fullscreen    bool            `json:"fullscreen"`
	CreatedAt     time.Time       `json:"created_at"`
}
