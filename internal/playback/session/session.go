// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session wires the stall detector, the quality manager and the
// lifecycle state machine of one player onto a single event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/metrics"
	"github.com/ManuGH/playwatch/internal/playback/lifecycle"
	"github.com/ManuGH/playwatch/internal/playback/loop"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/stall"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// Config describes one playback session.
type Config struct {
	// ID is generated when empty.
	ID       string
	ClientID string
	MediaKey string

	// SampleInterval and Epsilon fall back to the stall detector defaults.
	SampleInterval time.Duration
	Epsilon        float64

	// Table falls back to quality.DefaultTable.
	Table *quality.Table
}

// Option configures optional collaborators.
type Option func(*options)

type options struct {
	clock     loop.Clock
	observers []Observer
	tp        trace.TracerProvider
	mp        metric.MeterProvider
}

// WithClock replaces the wall clock of the session loop.
func WithClock(c loop.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithObserver registers an observer before the session starts.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithTelemetry overrides the global tracer and meter providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(o *options) {
		o.tp = tp
		o.mp = mp
	}
}

// Session is one monitored playback. All mutable state is owned by the
// session loop goroutine.
type Session struct {
	id        string
	clientID  string
	mediaKey  string
	createdAt time.Time
	interval  time.Duration

	logger zerolog.Logger
	loop   *loop.Loop
	player Player
	det    *stall.Detector
	qm     *quality.Manager

	// loop-owned
	state          lifecycle.State
	stallCount     int
	buffered       float64
	bufferNoticed  bool
	fullscreen     bool
	outcomeCounted bool
	observers      []Observer

	runDone   chan struct{}
	closeOnce sync.Once
}

// New creates a session and starts its event loop. prefs may be nil.
func New(cfg Config, player Player, prefs quality.PreferenceStore, opts ...Option) *Session {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := log.WithComponent("session").With().
		Str(log.FieldSessionID, id).
		Str(log.FieldClientID, cfg.ClientID).
		Str(log.FieldMediaKey, cfg.MediaKey).
		Logger()

	var loopOpts []loop.Option
	if o.clock != nil {
		loopOpts = append(loopOpts, loop.WithClock(o.clock))
	}
	l := loop.New(loopOpts...)

	s := &Session{
		id:        id,
		clientID:  cfg.ClientID,
		mediaKey:  cfg.MediaKey,
		createdAt: l.Now(),
		interval:  cfg.SampleInterval,
		logger:    logger,
		loop:      l,
		player:    player,
		state:     lifecycle.StateUninitialized,
		observers: o.observers,
		runDone:   make(chan struct{}),
	}

	detLogger := logger.With().Str(log.FieldComponent, "stall").Logger()
	s.det = stall.NewDetector(l, stall.Options{Epsilon: cfg.Epsilon, Logger: &detLogger})
	s.det.Subscribe(stall.ObserverFuncs{Begin: s.onStallBegin, End: s.onStallEnd})

	qLogger := logger.With().Str(log.FieldComponent, "quality").Logger()
	s.qm = quality.NewManager(cfg.Table, player, prefs, quality.Options{
		Logger:         &qLogger,
		TracerProvider: o.tp,
		MeterProvider:  o.mp,
	})
	s.qm.Subscribe(quality.ObserverFunc(s.onQualityChanged))

	go func() {
		defer close(s.runDone)
		_ = l.Run(context.Background())
	}()

	logger.Info().Str(log.FieldEvent, "session.created").Msg("playback session created")
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ClientID returns the client the session belongs to.
func (s *Session) ClientID() string { return s.clientID }

// MediaKey returns the media object being played.
func (s *Session) MediaKey() string { return s.mediaKey }

// Table returns the quality table the session was created with.
func (s *Session) Table() *quality.Table { return s.qm.Table() }

// Done is closed when the session loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.runDone }

// Dispatch hands a player event to the session loop. It reports false once
// the session is closed.
func (s *Session) Dispatch(ev PlayerEvent) bool {
	return s.loop.Post(func() { s.handle(ev) })
}

// SetLevel changes quality on the session loop. Observers have run when it
// returns.
func (s *Session) SetLevel(ctx context.Context, level quality.Level, opts quality.SetOptions) error {
	var err error
	if cerr := s.loop.Call(ctx, func() {
		err = s.qm.SetLevel(ctx, level, opts)
	}); cerr != nil {
		if errors.Is(cerr, loop.ErrLoopClosed) {
			return ErrSessionClosed
		}
		return cerr
	}
	return err
}

// Snapshot returns the current session view.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := s.loop.Call(ctx, func() { snap = s.snapshot() }); err != nil {
		if errors.Is(err, loop.ErrLoopClosed) {
			return Snapshot{}, ErrSessionClosed
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Close tears the session down: monitoring stops, then the loop. It is
// idempotent and must not be called from an observer.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.loop.Call(context.Background(), s.teardown)
		s.loop.Close()
		<-s.runDone
	})
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:            s.id,
		ClientID:      s.clientID,
		MediaKey:      s.mediaKey,
		State:         s.state,
		Level:         s.qm.CurrentLevel(),
		Tuning:        s.qm.Tuning(),
		UserOverride:  s.qm.UserOverride(),
		Stalled:       s.det.Stalled(),
		StallCount:    s.stallCount,
		BufferedAhead: s.buffered,
		Fullscreen:    s.fullscreen,
		CreatedAt:     s.createdAt,
	}
}

func (s *Session) handle(ev PlayerEvent) {
	switch ev.Kind {
	case EventReady:
		s.onReady()
	case EventProgress:
		s.onProgress(ev.BufferedAhead)
	case EventEnded:
		s.onEnded()
	case EventError:
		s.onError(ev.Message)
	case EventEnterFullscreen:
		s.setFullscreen(true)
	case EventExitFullscreen:
		s.setFullscreen(false)
	default:
		s.logger.Debug().Str(log.FieldEvent, "session.event_ignored").Str("kind", string(ev.Kind)).Msg("unknown player event")
	}
}

func (s *Session) onReady() {
	if s.state.Initialized() {
		s.logger.Debug().Str(log.FieldEvent, "session.ready_ignored").Str("state", string(s.state)).Msg("repeated ready event")
		return
	}
	if !s.transition(lifecycle.EvReady) {
		return
	}
	if _, err := s.qm.Init(context.Background()); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "session.tuning_failed").Msg("initial tuning not applied")
	}
	s.det.StartMonitoring(s.player, s.interval)
	s.transition(lifecycle.EvMonitorStarted)
}

func (s *Session) onProgress(bufferedAhead float64) {
	if bufferedAhead < 0 {
		return
	}
	s.buffered = bufferedAhead
	metrics.ObserveBufferedAhead(bufferedAhead)
	target := s.qm.Tuning().TargetBufferSeconds
	if !s.bufferNoticed && bufferedAhead > float64(target) {
		s.bufferNoticed = true
		s.logger.Info().
			Str(log.FieldEvent, "buffer.target_reached").
			Float64("buffered_ahead", bufferedAhead).
			Int("target_buffer_seconds", target).
			Msg("buffer target reached")
	}
}

func (s *Session) onEnded() {
	if !s.allowed(lifecycle.EvEnded) {
		return
	}
	s.det.StopMonitoring()
	if s.transition(lifecycle.EvEnded) {
		s.countOutcome("ended")
	}
}

func (s *Session) onError(message string) {
	if s.state.IsTerminal() {
		s.logger.Debug().Str(log.FieldEvent, "session.error_ignored").Str("message", message).Msg("player error after terminal state")
		return
	}
	if s.allowed(lifecycle.EvError) {
		s.det.StopMonitoring()
		if s.transition(lifecycle.EvError) {
			s.countOutcome("errored")
		}
	}

	fault := PlayerFault{
		SessionID: s.id,
		Message:   message,
		Title:     FaultTitle,
		Notice:    FaultNotice,
		At:        s.loop.Now(),
	}
	s.logger.Error().
		Str(log.FieldEvent, "session.errored").
		Str("message", message).
		Str("state", string(s.state)).
		Msg("player reported a playback error")
	for _, o := range s.observers {
		o.OnPlayerFault(fault)
	}
}

func (s *Session) setFullscreen(on bool) {
	if s.fullscreen == on {
		return
	}
	s.fullscreen = on
	for _, o := range s.observers {
		o.OnFullscreenChanged(on)
	}
}

func (s *Session) onStallBegin(at time.Time) {
	s.stallCount++
	s.transition(lifecycle.EvStallBegin)
	for _, o := range s.observers {
		o.OnStallBegin(at)
	}
}

func (s *Session) onStallEnd(at time.Time, stalledFor time.Duration) {
	s.transition(lifecycle.EvStallEnd)
	for _, o := range s.observers {
		o.OnStallEnd(at, stalledFor)
	}
}

func (s *Session) onQualityChanged(level quality.Level) {
	for _, o := range s.observers {
		o.OnQualityChanged(level)
	}
}

func (s *Session) allowed(ev lifecycle.EventKind) bool {
	d, ok := lifecycle.DecisionFor(s.state, ev)
	if ok && d.Allowed {
		return true
	}
	s.logger.Debug().
		Str(log.FieldEvent, "session.transition_skipped").
		Str("state", string(s.state)).
		Str("lifecycle_event", ev.String()).
		Str("reason", d.Reason).
		Msg("event not applicable in current state")
	return false
}

func (s *Session) transition(ev lifecycle.EventKind) bool {
	from := s.state
	if _, err := lifecycle.Apply(&s.state, ev); err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "session.illegal_transition").
			Msg("lifecycle rejected transition")
		return false
	}
	s.logger.Debug().
		Str(log.FieldEvent, "session.state_changed").
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(s.state)).
		Msg("session state changed")
	for _, o := range s.observers {
		o.OnStateChanged(from, s.state)
	}
	return true
}

func (s *Session) teardown() {
	s.det.StopMonitoring()
	s.countOutcome("closed")
	s.logger.Info().
		Str(log.FieldEvent, "session.closed").
		Str("state", string(s.state)).
		Int("stalls", s.stallCount).
		Msg("playback session closed")
}

func (s *Session) countOutcome(outcome string) {
	if s.outcomeCounted {
		return
	}
	s.outcomeCounted = true
	metrics.IncSessionOutcome(outcome)
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s client=%s)", s.id, s.clientID)
}
