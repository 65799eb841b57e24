// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package quality owns the active quality level of a playback session and
// the player tuning derived from it.
package quality

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/metrics"
	"github.com/ManuGH/playwatch/internal/telemetry"
)

// ChangeSource labels who asked for a level change.
type ChangeSource string

const (
	SourceUser    ChangeSource = "user"
	SourceSystem  ChangeSource = "system"
	SourceInitial ChangeSource = "initial"
)

// Preference is the durable per-client choice.
type Preference struct {
	Level        Level `json:"level"`
	UserOverride bool  `json:"user_override"`
}

// PreferenceStore persists the preference of one client.
type PreferenceStore interface {
	Load(ctx context.Context) (Preference, bool, error)
	Save(ctx context.Context, p Preference) error
}

// TuningApplier receives the preload hint for the active level.
type TuningApplier interface {
	ApplyTuning(Tuning) error
}

// Observer is notified after every level change.
type Observer interface {
	OnQualityChanged(level Level)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Level)

func (f ObserverFunc) OnQualityChanged(l Level) { f(l) }

// SetOptions controls a SetLevel call.
type SetOptions struct {
	Persist bool
	// Source defaults to SourceUser when Persist is set, SourceSystem otherwise.
	Source ChangeSource
}

// Options wires optional collaborators.
type Options struct {
	Logger         *zerolog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Manager is not safe for concurrent use; a session drives it from its
// event loop.
type Manager struct {
	table  *Table
	player TuningApplier
	prefs  PreferenceStore

	logger  zerolog.Logger
	tracer  trace.Tracer
	changes metric.Int64Counter

	current     Level
	override    bool
	initialized bool

	observers []*observerEntry
}

type observerEntry struct {
	obs Observer
}

// NewManager creates a manager positioned on the table default. prefs may be
// nil, in which case nothing is persisted.
func NewManager(table *Table, player TuningApplier, prefs PreferenceStore, opts Options) *Manager {
	if table == nil {
		table = DefaultTable()
	}
	logger := log.WithComponent("quality")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	changes, err := mp.Meter(telemetry.InstrumentationName).Int64Counter("playwatch.quality.changes",
		metric.WithDescription("Quality level changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "quality.meter_failed").Msg("quality change counter unavailable")
		changes, _ = metricnoop.NewMeterProvider().Meter(telemetry.InstrumentationName).Int64Counter("playwatch.quality.changes")
	}
	return &Manager{
		table:   table,
		player:  player,
		prefs:   prefs,
		logger:  logger,
		tracer:  tp.Tracer(telemetry.InstrumentationName),
		changes: changes,
		current: table.Default(),
	}
}

// Table returns the configured table.
func (m *Manager) Table() *Table { return m.table }

// CurrentLevel returns the active level.
func (m *Manager) CurrentLevel() Level { return m.current }

// Tuning returns the tuning of the active level.
func (m *Manager) Tuning() Tuning {
	t, _ := m.table.Lookup(m.current)
	return t
}

// UserOverride reports whether the active level came from a persisted user choice.
func (m *Manager) UserOverride() bool { return m.override }

// Subscribe registers an observer and returns a func that removes it.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	e := &observerEntry{obs: o}
	m.observers = append(m.observers, e)
	return func() {
		for i, x := range m.observers {
			if x == e {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Init resolves the starting level: a stored preference wins when the user
// overrode quality and the level is still configured, otherwise the table
// default. Store read failures fall back to the default. Calling Init again
// returns the active level without touching the store.
func (m *Manager) Init(ctx context.Context) (Level, error) {
	if m.initialized {
		return m.current, nil
	}
	m.initialized = true

	level := m.table.Default()
	if m.prefs != nil {
		p, found, err := m.prefs.Load(ctx)
		switch {
		case err != nil:
			m.logger.Warn().Err(err).
				Str(log.FieldEvent, "quality.preference_read_failed").
				Msg("preference read failed, using default level")
		case found && p.UserOverride && m.table.Contains(p.Level):
			level = p.Level
			m.override = true
		case found && p.UserOverride:
			m.logger.Info().
				Str(log.FieldEvent, "quality.preference_stale").
				Int(log.FieldLevel, int(p.Level)).
				Msg("stored level is no longer configured, using default level")
		}
	}

	m.current = level
	tuning := m.Tuning()
	var applyErr error
	if err := m.player.ApplyTuning(tuning); err != nil {
		applyErr = fmt.Errorf("%w: %w", ErrApplyTuning, err)
	}

	m.logger.Info().
		Str(log.FieldEvent, "quality.initialized").
		Int(log.FieldLevel, int(level)).
		Str(log.FieldPreload, string(tuning.Preload)).
		Bool("user_override", m.override).
		Msg("quality level initialized")
	m.recordChange(ctx, level, SourceInitial)
	m.notify(level)
	return level, applyErr
}

// SetLevel switches to level. Observers have run when it returns. An invalid
// level leaves the manager untouched. A failed preference write is returned
// wrapped in ErrPreferenceWrite after the change was applied and announced.
func (m *Manager) SetLevel(ctx context.Context, level Level, opts SetOptions) error {
	src := opts.Source
	if src == "" {
		src = SourceSystem
		if opts.Persist {
			src = SourceUser
		}
	}

	ctx, span := m.tracer.Start(ctx, "quality.SetLevel",
		trace.WithAttributes(telemetry.QualityAttributes(int(level), string(src), opts.Persist)...))
	defer span.End()

	tuning, ok := m.table.Lookup(level)
	if !ok {
		err := fmt.Errorf("%w: %d (configured: %v)", ErrInvalidQualityLevel, level, m.table.Levels())
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(err, "invalid_quality_level")...)
		span.SetStatus(codes.Error, "invalid quality level")
		return err
	}
	span.SetAttributes(telemetry.TuningAttributes(string(tuning.Preload), tuning.TargetBufferSeconds)...)

	if err := m.player.ApplyTuning(tuning); err != nil {
		err = fmt.Errorf("%w: %w", ErrApplyTuning, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply tuning failed")
		return err
	}

	prev := m.current
	m.current = level
	if opts.Persist {
		m.override = true
	}

	var writeErr error
	if opts.Persist && m.prefs != nil {
		if err := m.prefs.Save(ctx, Preference{Level: level, UserOverride: true}); err != nil {
			writeErr = fmt.Errorf("%w: %w", ErrPreferenceWrite, err)
			span.RecordError(writeErr)
			span.SetAttributes(telemetry.ErrorAttributes(writeErr, "preference_write")...)
			m.logger.Warn().Err(err).
				Str(log.FieldEvent, "quality.preference_write_failed").
				Int(log.FieldLevel, int(level)).
				Msg("quality preference not saved")
		}
	}

	m.logger.Info().
		Str(log.FieldEvent, "quality.changed").
		Int("previous", int(prev)).
		Int(log.FieldLevel, int(level)).
		Str(log.FieldPreload, string(tuning.Preload)).
		Int("target_buffer_seconds", tuning.TargetBufferSeconds).
		Str(log.FieldSource, string(src)).
		Bool("persist", opts.Persist).
		Msg("quality level changed")

	m.recordChange(ctx, level, src)
	m.notify(level)
	return writeErr
}

func (m *Manager) recordChange(ctx context.Context, level Level, src ChangeSource) {
	metrics.IncQualityChange(int(level), string(src))
	m.changes.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("level", int(level)),
		attribute.String("source", string(src)),
	))
}

func (m *Manager) notify(level Level) {
	for _, e := range append([]*observerEntry(nil), m.observers...) {
		e.obs.OnQualityChanged(level)
	}
}
