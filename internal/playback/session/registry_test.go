// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/playwatch/internal/playback/lifecycle"
	"github.com/ManuGH/playwatch/internal/playback/quality"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r := NewRegistry()
	defer r.CloseAll()

	s, err := r.Create(Config{ClientID: "c1", MediaKey: "a.mp4"}, &fakePlayer{}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Remove(s.ID()))
	<-s.Done()
	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Remove(s.ID()), ErrSessionNotFound)
}

func TestRegistry_DuplicateID(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r := NewRegistry()
	defer r.CloseAll()

	_, err := r.Create(Config{ID: "fixed"}, &fakePlayer{}, nil)
	require.NoError(t, err)
	_, err = r.Create(Config{ID: "fixed"}, &fakePlayer{}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r := NewRegistry()
	defer r.CloseAll()

	for _, id := range []string{"b", "a"} {
		_, err := r.Create(Config{ID: id, ClientID: "client-" + id}, &fakePlayer{}, nil)
		require.NoError(t, err)
	}

	var got []Snapshot
	for _, s := range r.List() {
		snap, err := s.Snapshot(context.Background())
		require.NoError(t, err)
		got = append(got, snap)
	}

	want := []Snapshot{
		{ID: "a", ClientID: "client-a", State: lifecycle.StateUninitialized, Level: 720,
			Tuning: quality.Tuning{Preload: quality.PreloadMetadata, TargetBufferSeconds: 25}},
		{ID: "b", ClientID: "client-b", State: lifecycle.StateUninitialized, Level: 720,
			Tuning: quality.Tuning{Preload: quality.PreloadMetadata, TargetBufferSeconds: 25}},
	}
	// Creation order is wall-clock based; compare as a set.
	sortByID := cmpopts.SortSlices(func(a, b Snapshot) bool { return a.ID < b.ID })
	if diff := cmp.Diff(want, got, sortByID, cmpopts.IgnoreFields(Snapshot{}, "CreatedAt")); diff != "" {
		t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_CloseAllRejectsCreate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	r := NewRegistry()

	s, err := r.Create(Config{}, &fakePlayer{}, nil)
	require.NoError(t, err)
	r.CloseAll()
	<-s.Done()

	assert.Equal(t, 0, r.Len())
	_, err = r.Create(Config{}, &fakePlayer{}, nil)
	assert.ErrorIs(t, err, ErrSessionClosed)
}
