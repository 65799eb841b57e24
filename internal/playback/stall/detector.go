// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stall detects playback stalls by sampling the player clock on a
// fixed cadence and comparing successive positions.
package stall

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/metrics"
	"github.com/ManuGH/playwatch/internal/playback/loop"
)

const (
	// DefaultInterval is the sampling cadence.
	DefaultInterval = 500 * time.Millisecond
	// DefaultEpsilon is the minimum advance, in seconds, between two samples
	// for playback to count as progressing.
	DefaultEpsilon = 1.0
)

// Scheduler runs periodic work. *loop.Loop satisfies it.
type Scheduler interface {
	Every(interval time.Duration, fn func()) loop.Task
	Now() time.Time
}

// Observer receives edge-triggered stall transitions. Calls are made
// synchronously from the sampling tick.
type Observer interface {
	OnStallBegin(at time.Time)
	OnStallEnd(at time.Time, stalledFor time.Duration)
}

// Options overrides detector constants. Zero values keep the defaults.
type Options struct {
	Epsilon float64
	Logger  *zerolog.Logger
}

// Detector is not safe for concurrent use; all methods must run on the
// scheduler's goroutine.
type Detector struct {
	sched   Scheduler
	epsilon float64
	logger  zerolog.Logger

	task  loop.Task
	src   PositionSource
	state *State

	primed     bool
	stallStart time.Time

	observers []*observerEntry
	warn      rate.Sometimes
}

type observerEntry struct {
	obs Observer
}

// NewDetector creates an idle detector.
func NewDetector(sched Scheduler, opts Options) *Detector {
	eps := opts.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	logger := log.WithComponent("stall")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Detector{
		sched:   sched,
		epsilon: eps,
		logger:  logger,
		warn:    rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Epsilon returns the progress tolerance in seconds.
func (d *Detector) Epsilon() float64 { return d.epsilon }

// Subscribe registers an observer and returns a func that removes it.
func (d *Detector) Subscribe(o Observer) (unsubscribe func()) {
	e := &observerEntry{obs: o}
	d.observers = append(d.observers, e)
	return func() {
		for i, x := range d.observers {
			if x == e {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// StartMonitoring begins periodic sampling of src. A non-positive interval
// selects DefaultInterval. Starting an already running detector is a no-op.
func (d *Detector) StartMonitoring(src PositionSource, interval time.Duration) {
	if d.task != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	d.src = src
	d.state = &State{}
	d.primed = false
	d.stallStart = time.Time{}
	d.task = d.sched.Every(interval, d.tick)
	d.logger.Debug().
		Str(log.FieldEvent, "stall.monitor_started").
		Dur("interval", interval).
		Float64("epsilon", d.epsilon).
		Msg("stall monitoring started")
}

// StopMonitoring halts sampling and discards the stall state. It is
// idempotent and prevents any queued tick from running.
func (d *Detector) StopMonitoring() {
	if d.task == nil {
		return
	}
	d.task.Stop()
	d.task = nil
	d.src = nil
	d.state = nil
	d.primed = false
	d.logger.Debug().Str(log.FieldEvent, "stall.monitor_stopped").Msg("stall monitoring stopped")
}

// Monitoring reports whether sampling is active.
func (d *Detector) Monitoring() bool { return d.task != nil }

// State returns a copy of the current stall state; ok is false when not
// monitoring.
func (d *Detector) State() (st State, ok bool) {
	if d.state == nil {
		return State{}, false
	}
	return *d.state, true
}

// Stalled reports the current stall signal.
func (d *Detector) Stalled() bool {
	return d.state != nil && d.state.Stalled
}

func (d *Detector) tick() {
	if d.state == nil || d.src == nil {
		return
	}

	s, err := d.src.Sample()
	if err == nil && !validPosition(s.Position) {
		err = ErrInvalidSample
	}
	if err != nil {
		d.sampleFailed(err)
		return
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = d.sched.Now()
	}

	st := d.state
	if !d.primed {
		// The first sample only establishes the baseline position.
		st.LastPosition = s.Position
		d.primed = true
		return
	}

	prev := st.LastPosition
	var began, ended bool
	var stalledFor time.Duration
	switch {
	case s.Paused:
	case !st.Stalled && s.Position < prev+d.epsilon:
		st.Stalled = true
		d.stallStart = s.Timestamp
		began = true
	case st.Stalled && s.Position > prev+d.epsilon:
		st.Stalled = false
		stalledFor = s.Timestamp.Sub(d.stallStart)
		ended = true
	}
	st.LastPosition = s.Position

	switch {
	case began:
		metrics.IncStallBegin()
		d.logger.Info().
			Str(log.FieldEvent, "stall.begin").
			Float64(log.FieldPosition, s.Position).
			Float64("previous", prev).
			Msg("playback stalled")
		for _, e := range d.snapshotObservers() {
			e.obs.OnStallBegin(s.Timestamp)
		}
	case ended:
		metrics.ObserveStallDuration(stalledFor.Seconds())
		d.logger.Info().
			Str(log.FieldEvent, "stall.end").
			Float64(log.FieldPosition, s.Position).
			Dur("stalled_for", stalledFor).
			Msg("playback resumed")
		for _, e := range d.snapshotObservers() {
			e.obs.OnStallEnd(s.Timestamp, stalledFor)
		}
	}
}

func (d *Detector) snapshotObservers() []*observerEntry {
	return append([]*observerEntry(nil), d.observers...)
}

func (d *Detector) sampleFailed(err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrSampleUnavailable):
		reason = "unavailable"
	case errors.Is(err, ErrInvalidSample):
		reason = "invalid"
	}
	metrics.IncSampleFailure(reason)
	d.warn.Do(func() {
		d.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "stall.sample_failed").
			Str("reason", reason).
			Msg("playback sample failed, skipping tick")
	})
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	Begin func(at time.Time)
	End   func(at time.Time, stalledFor time.Duration)
}

func (f ObserverFuncs) OnStallBegin(at time.Time) {
	if f.Begin != nil {
		f.Begin(at)
	}
}

func (f ObserverFuncs) OnStallEnd(at time.Time, stalledFor time.Duration) {
	if f.End != nil {
		f.End(at, stalledFor)
	}
}
