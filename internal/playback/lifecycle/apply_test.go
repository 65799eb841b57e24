// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_HappyPath(t *testing.T) {
	state := StateUninitialized
	steps := []struct {
		ev   EventKind
		want State
	}{
		{EvReady, StateReady},
		{EvMonitorStarted, StateMonitoring},
		{EvStallBegin, StateStalled},
		{EvStallEnd, StateMonitoring},
		{EvStallBegin, StateStalled},
		{EvEnded, StateEnded},
	}
	for _, step := range steps {
		tr, err := Apply(&state, step.ev)
		require.NoError(t, err, "event %v", step.ev)
		assert.Equal(t, step.want, tr.To)
		assert.Equal(t, step.want, state)
	}
	assert.True(t, state.IsTerminal())
}

func TestApply_SecondReadyIsAlreadyInitialized(t *testing.T) {
	for _, from := range []State{StateReady, StateMonitoring, StateStalled, StateEnded, StateErrored} {
		state := from
		_, err := Apply(&state, EvReady)
		require.ErrorIs(t, err, ErrAlreadyInitialized, "from %s", from)
		assert.NotErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, from, state, "state must not change")
	}
}

func TestApply_IllegalLeavesState(t *testing.T) {
	cases := []struct {
		from State
		ev   EventKind
	}{
		{StateUninitialized, EvEnded},
		{StateUninitialized, EvError},
		{StateReady, EvStallBegin},
		{StateMonitoring, EvStallEnd},
		{StateStalled, EvStallBegin},
		{StateErrored, EvStallEnd},
		{StateEnded, EvError},
		{StateMonitoring, EvUnknown},
	}
	for _, tc := range cases {
		state := tc.from
		_, err := Apply(&state, tc.ev)
		require.ErrorIs(t, err, ErrIllegalTransition, "%s + %v", tc.from, tc.ev)
		assert.Equal(t, tc.from, state)
	}
}

func TestApply_ErrorFromStalledIsTerminal(t *testing.T) {
	state := StateStalled
	tr, err := Apply(&state, EvError)
	require.NoError(t, err)
	assert.Equal(t, StateErrored, tr.To)

	_, err = Apply(&state, EvStallEnd)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, ForbiddenTerminalAbsorbing, ForbiddenTransitionReason(state, EvStallEnd))
}
