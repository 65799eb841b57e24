// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playwatch/internal/resilience"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	mr := miniredis.RunT(t)

	cfgs := map[string]Config{
		BackendMemory: {Backend: BackendMemory},
		BackendSQLite: {Backend: BackendSQLite, Path: filepath.Join(dir, "prefs.sqlite")},
		BackendBadger: {Backend: BackendBadger, Path: filepath.Join(dir, "badger")},
		BackendRedis:  {Backend: BackendRedis, RedisAddr: mr.Addr(), ConnectTimeout: time.Second},
		BackendFile:   {Backend: BackendFile, Path: filepath.Join(dir, "file", "prefs.json")},
	}
	out := make(map[string]Store, len(cfgs))
	for name, cfg := range cfgs {
		s, err := Open(ctx, cfg)
		require.NoError(t, err, name)
		t.Cleanup(func() { _ = s.Close() })
		out[name] = s
	}
	return out
}

func TestStores_Conformance(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Ping(ctx))

			_, found, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Set(ctx, "k", "v1"))
			require.NoError(t, s.Set(ctx, "k", "v2"))
			v, found, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "v2", v)
		})
	}
}

func TestOpen_UnknownBackendFailsClosed(t *testing.T) {
	s, err := Open(context.Background(), Config{Backend: "etcd"})
	require.ErrorIs(t, err, ErrUnknownBackend)
	assert.Nil(t, s)
}

func TestOpen_RequiresPath(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendBadger, BackendFile, BackendRedis} {
		_, err := Open(context.Background(), Config{Backend: backend})
		assert.Error(t, err, backend)
	}
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, Config{Backend: BackendRedis, RedisAddr: addr, ConnectTimeout: 300 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	v, found, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", v)
}

func TestFileStore_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.sqlite")

	s, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	v, found, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", v)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), ErrStoreClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrStoreClosed)
}

type failingSetStore struct {
	*MemoryStore
	err error
}

func (f *failingSetStore) Set(context.Context, string, string) error { return f.err }

func TestGuard_OpensOnRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("connection refused")
	inner := &failingSetStore{MemoryStore: NewMemoryStore(), err: backendErr}
	s := Guard(inner, resilience.NewCircuitBreaker("test-prefs", 2, time.Minute))

	require.ErrorIs(t, s.Set(ctx, "k", "v"), backendErr)
	require.ErrorIs(t, s.Set(ctx, "k", "v"), backendErr)
	require.ErrorIs(t, s.Set(ctx, "k", "v"), resilience.ErrCircuitOpen)

	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.NoError(t, s.Ping(ctx), "ping bypasses the breaker")
}
