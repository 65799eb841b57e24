// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playwatch/internal/playback/quality"
)

type failingStore struct {
	*MemoryStore
	setErr error
	getErr error
}

func (f *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestRepository_Keys(t *testing.T) {
	r := NewRepository(NewMemoryStore(), "")
	manual, preferred := r.Keys("abc")
	assert.Equal(t, "playwatch:abc:manual_quality", manual)
	assert.Equal(t, "playwatch:abc:preferred_quality", preferred)

	r = NewRepository(NewMemoryStore(), "app/")
	manual, _ = r.Keys("abc")
	assert.Equal(t, "app/abc:manual_quality", manual)
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRepository(store, "")

	_, found, err := r.Load(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Save(ctx, "client-1", quality.Preference{Level: 1080, UserOverride: true}))
	p, found, err := r.Load(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, quality.Preference{Level: 1080, UserOverride: true}, p)

	raw, _, _ := store.Get(ctx, "playwatch:client-1:preferred_quality")
	assert.Equal(t, "1080", raw)
	raw, _, _ = store.Get(ctx, "playwatch:client-1:manual_quality")
	assert.Equal(t, "true", raw)
}

func TestRepository_GarbageIsAbsent(t *testing.T) {
	ctx := context.Background()
	cases := map[string][2]string{
		"bad flag":  {"maybe", "720"},
		"bad level": {"true", "ultra"},
		"negative":  {"true", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			r := NewRepository(store, "")
			manual, preferred := r.Keys("c")
			require.NoError(t, store.Set(ctx, manual, kv[0]))
			require.NoError(t, store.Set(ctx, preferred, kv[1]))

			_, found, err := r.Load(ctx, "c")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestRepository_LevelWithoutFlag(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRepository(store, "")
	_, preferred := r.Keys("c")
	require.NoError(t, store.Set(ctx, preferred, "480"))

	p, found, err := r.Load(ctx, "c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, p.UserOverride)
}

func TestRepository_InvalidClientID(t *testing.T) {
	r := NewRepository(NewMemoryStore(), "")
	for _, id := range []string{"", "a:b", "has space", string(make([]byte, 129))} {
		_, _, err := r.Load(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidClientID, "%q", id)
	}
}

func TestRepository_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	r := NewRepository(&failingStore{MemoryStore: NewMemoryStore(), getErr: boom, setErr: boom}, "")

	_, _, err := r.Load(ctx, "c")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.Save(ctx, "c", quality.Preference{Level: 720}), boom)
}

func TestForClient_FeedsQualityManager(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(NewMemoryStore(), "")
	prefs := r.ForClient("viewer")

	require.NoError(t, prefs.Save(ctx, quality.Preference{Level: 480, UserOverride: true}))
	p, found, err := prefs.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, quality.Level(480), p.Level)
}
