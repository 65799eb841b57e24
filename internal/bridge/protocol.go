// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

// Inbound message types sent by the player.
const (
	MsgHello           = "hello"
	MsgReady           = "ready"
	MsgTime            = "time"
	MsgProgress        = "progress"
	MsgEnded           = "ended"
	MsgError           = "error"
	MsgEnterFullscreen = "enterfullscreen"
	MsgExitFullscreen  = "exitfullscreen"
	MsgQuality         = "quality"
)

// Outbound message types sent to the player.
const (
	MsgSession    = "session"
	MsgTune       = "tune"
	MsgStall      = "stall"
	MsgNotice     = "notice"
	MsgFullscreen = "fullscreen"
	// MsgQuality and MsgError are used in both directions.
)

// Error codes carried by outbound error messages.
const (
	CodeBadMessage          = "bad_message"
	CodeHelloRequired       = "hello_required"
	CodeAlreadyAttached     = "already_attached"
	CodeInvalidClientID     = "invalid_client_id"
	CodeInvalidMediaKey     = "invalid_media_key"
	CodeInvalidQualityLevel = "invalid_quality_level"
	CodeQualityFailed       = "quality_failed"
	CodeUnavailable         = "unavailable"
)

// Inbound is a player message. Only the fields of the given type are set.
type Inbound struct {
	Type string `json:"type"`

	// hello
	ClientID string `json:"client_id,omitempty"`
	MediaKey string `json:"media_key,omitempty"`

	// time
	Position *float64 `json:"position,omitempty"`
	Paused   bool     `json:"paused,omitempty"`

	// progress
	Buffered float64 `json:"buffered,omitempty"`

	// error
	Message string `json:"message,omitempty"`

	// quality
	Level   int  `json:"level,omitempty"`
	Persist bool `json:"persist,omitempty"`
}

// Outbound is a gateway message.
type Outbound struct {
	Type string `json:"type"`

	SessionID string `json:"session_id,omitempty"`
	Level     int    `json:"level,omitempty"`
	Levels    []int  `json:"levels,omitempty"`

	Preload             string `json:"preload,omitempty"`
	TargetBufferSeconds int    `json:"target_buffer_seconds,omitempty"`

	Stalled      *bool  `json:"stalled,omitempty"`
	StalledForMS int64  `json:"stalled_for_ms,omitempty"`
	Fullscreen   *bool  `json:"fullscreen,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Title        string `json:"title,omitempty"`
	Code         string `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
