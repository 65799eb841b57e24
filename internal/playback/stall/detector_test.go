// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stall

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playwatch/internal/playback/loop"
)

// fakeScheduler records the registered task so tests fire ticks by hand.
type fakeScheduler struct {
	now      time.Time
	interval time.Duration
	fn       func()
	tasks    []*fakeTask
}

type fakeTask struct{ stopped bool }

func (t *fakeTask) Stop() { t.stopped = true }

func (s *fakeScheduler) Every(interval time.Duration, fn func()) loop.Task {
	s.interval = interval
	t := &fakeTask{}
	s.tasks = append(s.tasks, t)
	s.fn = func() {
		if !t.stopped {
			fn()
		}
	}
	return t
}

func (s *fakeScheduler) Now() time.Time { return s.now }

func (s *fakeScheduler) tick() {
	s.now = s.now.Add(500 * time.Millisecond)
	if s.fn != nil {
		s.fn()
	}
}

// scriptedSource replays positions; each tick consumes one entry.
type scriptedSource struct {
	steps []step
	i     int
	calls int
}

type step struct {
	pos    float64
	paused bool
	err    error
}

func (s *scriptedSource) Sample() (PlaybackSample, error) {
	s.calls++
	if s.i >= len(s.steps) {
		return PlaybackSample{}, ErrSampleUnavailable
	}
	st := s.steps[s.i]
	s.i++
	if st.err != nil {
		return PlaybackSample{}, st.err
	}
	return PlaybackSample{Position: st.pos, Paused: st.paused}, nil
}

type recorder struct {
	begins []time.Time
	ends   []time.Duration
}

func (r *recorder) OnStallBegin(at time.Time) { r.begins = append(r.begins, at) }
func (r *recorder) OnStallEnd(_ time.Time, d time.Duration) {
	r.ends = append(r.ends, d)
}

func newTestDetector(eps float64) (*Detector, *fakeScheduler, *recorder) {
	sched := &fakeScheduler{now: time.Unix(1000, 0)}
	d := NewDetector(sched, Options{Epsilon: eps})
	rec := &recorder{}
	d.Subscribe(rec)
	return d, sched, rec
}

func run(d *Detector, sched *fakeScheduler, steps ...step) *scriptedSource {
	src := &scriptedSource{steps: steps}
	d.StartMonitoring(src, 0)
	for range steps {
		sched.tick()
	}
	return src
}

func TestDetector_DefaultsAndCadence(t *testing.T) {
	d, sched, _ := newTestDetector(0)
	assert.Equal(t, DefaultEpsilon, d.Epsilon())

	d.StartMonitoring(&scriptedSource{}, 0)
	assert.Equal(t, DefaultInterval, sched.interval)
	assert.True(t, d.Monitoring())

	// Second start is ignored.
	d.StartMonitoring(&scriptedSource{}, time.Second)
	assert.Len(t, sched.tasks, 1)
}

func TestDetector_SteadyProgressNeverStalls(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched,
		step{pos: 0}, step{pos: 1}, step{pos: 2}, step{pos: 3.5}, step{pos: 4.5}, step{pos: 10},
	)
	assert.False(t, d.Stalled())
	assert.Empty(t, rec.begins)
	assert.Empty(t, rec.ends)
}

func TestDetector_StallBeginsOnceUntilRecovery(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched,
		step{pos: 5}, step{pos: 5.2}, step{pos: 5.2}, step{pos: 5.3}, step{pos: 5.3},
	)
	assert.True(t, d.Stalled())
	require.Len(t, rec.begins, 1, "edge triggered: exactly one begin")
	assert.Equal(t, time.Unix(1001, 0), rec.begins[0], "begin fires at the first qualifying tick")
	assert.Empty(t, rec.ends)
}

func TestDetector_ScenarioFromPlayerClock(t *testing.T) {
	// t=0 pos=0, t=0.5 pos=0 -> stall; t=1.0 pos=0.6 -> resumes with epsilon 0.4.
	d, sched, rec := newTestDetector(0.4)
	src := &scriptedSource{steps: []step{{pos: 0}, {pos: 0}, {pos: 0.6}}}
	d.StartMonitoring(src, 0)

	sched.tick()
	assert.False(t, d.Stalled())
	sched.tick()
	assert.True(t, d.Stalled())
	require.Len(t, rec.begins, 1)

	sched.tick()
	assert.False(t, d.Stalled())
	require.Len(t, rec.ends, 1)
	assert.Equal(t, 500*time.Millisecond, rec.ends[0])
}

func TestDetector_PauseIsNotStall(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched,
		step{pos: 3}, step{pos: 3, paused: true}, step{pos: 3, paused: true},
	)
	assert.False(t, d.Stalled())
	assert.Empty(t, rec.begins)
}

func TestDetector_PauseWhileStalledDoesNotEnd(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched,
		step{pos: 3}, step{pos: 3}, // stall
		step{pos: 10, paused: true}, // large jump but paused
		step{pos: 10, paused: true},
	)
	assert.True(t, d.Stalled())
	assert.Len(t, rec.begins, 1)
	assert.Empty(t, rec.ends, "only resumed forward progress ends a stall")

	st, ok := d.State()
	require.True(t, ok)
	assert.Equal(t, 10.0, st.LastPosition, "position is recorded even while paused")
}

func TestDetector_ResumeRequiresProgressBeyondEpsilon(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched,
		step{pos: 0}, step{pos: 0}, // stall
		step{pos: 1}, // exactly epsilon: neither ends nor re-begins
		step{pos: 2.5},
	)
	assert.False(t, d.Stalled())
	assert.Len(t, rec.begins, 1)
	assert.Len(t, rec.ends, 1)
}

func TestDetector_SampleFailuresAreSwallowed(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	src := run(d, sched,
		step{pos: 4},
		step{err: ErrSampleUnavailable},
		step{err: errors.New("read failed")},
		step{pos: math.NaN()},
		step{pos: -1},
		step{pos: 5.5},
	)
	assert.Equal(t, 6, src.calls)
	assert.False(t, d.Stalled())
	assert.Empty(t, rec.begins)

	st, ok := d.State()
	require.True(t, ok)
	assert.Equal(t, 5.5, st.LastPosition)
}

func TestDetector_StopIsIdempotentAndDiscardsState(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	src := run(d, sched, step{pos: 1}, step{pos: 1})
	require.True(t, d.Stalled())

	d.StopMonitoring()
	d.StopMonitoring()
	assert.False(t, d.Monitoring())
	_, ok := d.State()
	assert.False(t, ok)
	assert.True(t, sched.tasks[0].stopped)

	calls := src.calls
	sched.tick()
	sched.tick()
	assert.Equal(t, calls, src.calls, "no sampling after stop")
	assert.Len(t, rec.begins, 1)
}

func TestDetector_UnsubscribeStopsDelivery(t *testing.T) {
	sched := &fakeScheduler{now: time.Unix(0, 0)}
	d := NewDetector(sched, Options{})
	rec := &recorder{}
	unsubscribe := d.Subscribe(rec)
	unsubscribe()

	run(d, sched, step{pos: 1}, step{pos: 1})
	assert.True(t, d.Stalled())
	assert.Empty(t, rec.begins)
}

func TestDetector_RestartBeginsFreshBaseline(t *testing.T) {
	d, sched, rec := newTestDetector(1.0)
	run(d, sched, step{pos: 7}, step{pos: 7})
	require.True(t, d.Stalled())
	d.StopMonitoring()

	run(d, sched, step{pos: 7}, step{pos: 9})
	assert.False(t, d.Stalled())
	assert.Len(t, rec.begins, 1)
	assert.Empty(t, rec.ends, "state was discarded, so there is no stall to end")
}
