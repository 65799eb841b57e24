// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"sync"
	"time"

	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/stall"
)

// RemotePlayer is the session.Player for a player on the other end of a
// bridge connection. Sample returns the last reported clock reading.
type RemotePlayer struct {
	out *outbox
	now func() time.Time

	mu     sync.Mutex
	sample stall.PlaybackSample
	seen   bool
}

func newRemotePlayer(out *outbox, now func() time.Time) *RemotePlayer {
	if now == nil {
		now = time.Now
	}
	return &RemotePlayer{out: out, now: now}
}

// Report records a time message from the player.
func (p *RemotePlayer) Report(position float64, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sample = stall.PlaybackSample{Position: position, Paused: paused, Timestamp: p.now()}
	p.seen = true
}

// Sample implements session.Player.
func (p *RemotePlayer) Sample() (stall.PlaybackSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen {
		return stall.PlaybackSample{}, stall.ErrSampleUnavailable
	}
	return p.sample, nil
}

// ApplyTuning implements session.Player by queueing a tune message.
func (p *RemotePlayer) ApplyTuning(t quality.Tuning) error {
	return p.out.send(Outbound{
		Type:                MsgTune,
		Preload:             string(t.Preload),
		TargetBufferSeconds: t.TargetBufferSeconds,
	})
}
