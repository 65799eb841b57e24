// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package quality

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakePlayer struct {
	applied []Tuning
	err     error
}

func (p *fakePlayer) ApplyTuning(t Tuning) error {
	if p.err != nil {
		return p.err
	}
	p.applied = append(p.applied, t)
	return nil
}

type memPrefs struct {
	pref    Preference
	found   bool
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func (s *memPrefs) Load(context.Context) (Preference, bool, error) {
	s.loads++
	return s.pref, s.found, s.loadErr
}

func (s *memPrefs) Save(_ context.Context, p Preference) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.pref, s.found = p, true
	return nil
}

type levelRecorder struct {
	levels []Level
}

func (r *levelRecorder) OnQualityChanged(l Level) { r.levels = append(r.levels, l) }

func newTestManager(t *testing.T, prefs PreferenceStore) (*Manager, *fakePlayer, *levelRecorder) {
	t.Helper()
	p := &fakePlayer{}
	m := NewManager(DefaultTable(), p, prefs, Options{})
	rec := &levelRecorder{}
	m.Subscribe(rec)
	return m, p, rec
}

func TestInit_DefaultWithoutPreference(t *testing.T) {
	prefs := &memPrefs{}
	m, p, rec := newTestManager(t, prefs)

	level, err := m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(720), level)
	assert.Equal(t, Level(720), m.CurrentLevel())
	assert.Equal(t, Tuning{Preload: PreloadMetadata, TargetBufferSeconds: 25}, m.Tuning())
	assert.Equal(t, []Tuning{{Preload: PreloadMetadata, TargetBufferSeconds: 25}}, p.applied)
	assert.Equal(t, []Level{720}, rec.levels)
	assert.False(t, m.UserOverride())
}

func TestInit_PersistedOverrideWins(t *testing.T) {
	prefs := &memPrefs{pref: Preference{Level: 480, UserOverride: true}, found: true}
	m, p, _ := newTestManager(t, prefs)

	level, err := m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(480), level)
	assert.Equal(t, PreloadAuto, p.applied[0].Preload)
	assert.True(t, m.UserOverride())
}

func TestInit_IgnoresPreferenceWithoutOverride(t *testing.T) {
	prefs := &memPrefs{pref: Preference{Level: 480, UserOverride: false}, found: true}
	m, _, _ := newTestManager(t, prefs)

	level, err := m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(720), level)
}

func TestInit_StaleLevelFallsBack(t *testing.T) {
	prefs := &memPrefs{pref: Preference{Level: 1440, UserOverride: true}, found: true}
	m, _, _ := newTestManager(t, prefs)

	level, err := m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(720), level)
	assert.False(t, m.UserOverride())
}

func TestInit_ReadFailureFallsBack(t *testing.T) {
	prefs := &memPrefs{loadErr: errors.New("store offline")}
	m, _, _ := newTestManager(t, prefs)

	level, err := m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(720), level)
}

func TestInit_ReadsStoreOnce(t *testing.T) {
	prefs := &memPrefs{}
	m, _, rec := newTestManager(t, prefs)

	_, err := m.Init(context.Background())
	require.NoError(t, err)
	_, err = m.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, prefs.loads)
	assert.Len(t, rec.levels, 1)
}

func TestSetLevel_InvalidLeavesStateUnchanged(t *testing.T) {
	prefs := &memPrefs{}
	m, p, rec := newTestManager(t, prefs)
	_, err := m.Init(context.Background())
	require.NoError(t, err)

	err = m.SetLevel(context.Background(), 999, SetOptions{Persist: true})
	require.ErrorIs(t, err, ErrInvalidQualityLevel)
	assert.Equal(t, Level(720), m.CurrentLevel())
	assert.Len(t, p.applied, 1)
	assert.Equal(t, []Level{720}, rec.levels)
	assert.Equal(t, 0, prefs.saves)
}

func TestSetLevel_WithoutPersistLeavesStore(t *testing.T) {
	prefs := &memPrefs{}
	m, p, rec := newTestManager(t, prefs)

	require.NoError(t, m.SetLevel(context.Background(), 1080, SetOptions{Persist: false}))
	assert.Equal(t, Level(1080), m.CurrentLevel())
	assert.Equal(t, Tuning{Preload: PreloadMetadata, TargetBufferSeconds: 30}, m.Tuning())
	assert.Equal(t, PreloadMetadata, p.applied[len(p.applied)-1].Preload)
	assert.Equal(t, []Level{1080}, rec.levels)
	assert.Equal(t, 0, prefs.saves)
	assert.False(t, prefs.found)
	assert.False(t, m.UserOverride())
}

func TestSetLevel_PersistRoundTrip(t *testing.T) {
	prefs := &memPrefs{}
	m, _, _ := newTestManager(t, prefs)
	_, err := m.Init(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.SetLevel(context.Background(), 360, SetOptions{Persist: true}))
	assert.Equal(t, Preference{Level: 360, UserOverride: true}, prefs.pref)
	assert.True(t, m.UserOverride())

	fresh, _, _ := newTestManager(t, prefs)
	level, err := fresh.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Level(360), level)
}

func TestSetLevel_ObserversRunBeforeReturn(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	var seen Level
	m.Subscribe(ObserverFunc(func(l Level) { seen = l }))

	require.NoError(t, m.SetLevel(context.Background(), 480, SetOptions{}))
	assert.Equal(t, Level(480), seen)
}

func TestSetLevel_SameLevelStillNotifies(t *testing.T) {
	m, _, rec := newTestManager(t, nil)
	require.NoError(t, m.SetLevel(context.Background(), 720, SetOptions{}))
	require.NoError(t, m.SetLevel(context.Background(), 720, SetOptions{}))
	assert.Equal(t, []Level{720, 720}, rec.levels)
}

func TestSetLevel_WriteFailureKeepsChange(t *testing.T) {
	prefs := &memPrefs{saveErr: errors.New("disk full")}
	m, _, rec := newTestManager(t, prefs)

	err := m.SetLevel(context.Background(), 1080, SetOptions{Persist: true})
	require.ErrorIs(t, err, ErrPreferenceWrite)
	assert.Equal(t, Level(1080), m.CurrentLevel())
	assert.Equal(t, []Level{1080}, rec.levels)
}

func TestSetLevel_ApplyFailureLeavesLevel(t *testing.T) {
	m, p, rec := newTestManager(t, nil)
	p.err = errors.New("player gone")

	err := m.SetLevel(context.Background(), 360, SetOptions{})
	require.ErrorIs(t, err, ErrApplyTuning)
	assert.Equal(t, Level(720), m.CurrentLevel())
	assert.Empty(t, rec.levels)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m, _, rec := newTestManager(t, nil)
	other := &levelRecorder{}
	unsub := m.Subscribe(other)

	require.NoError(t, m.SetLevel(context.Background(), 480, SetOptions{}))
	unsub()
	unsub()
	require.NoError(t, m.SetLevel(context.Background(), 360, SetOptions{}))

	assert.Equal(t, []Level{480}, other.levels)
	assert.Equal(t, []Level{480, 360}, rec.levels)
}

func TestSetLevel_Instrumentation(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	m := NewManager(DefaultTable(), &fakePlayer{}, nil, Options{TracerProvider: tp, MeterProvider: mp})
	require.NoError(t, m.SetLevel(context.Background(), 1080, SetOptions{Persist: true}))
	require.Error(t, m.SetLevel(context.Background(), 42, SetOptions{}))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "quality.SetLevel", spans[0].Name())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	var userAt1080 bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "playwatch.quality.changes" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
				lvl, _ := dp.Attributes.Value(attribute.Key("level"))
				src, _ := dp.Attributes.Value(attribute.Key("source"))
				if lvl.AsInt64() == 1080 && src.AsString() == "user" {
					userAt1080 = true
				}
			}
		}
	}
	assert.Equal(t, int64(1), total, "invalid levels are not counted")
	assert.True(t, userAt1080)
}
