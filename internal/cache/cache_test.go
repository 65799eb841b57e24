// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory[string](0)

	c.Set("key1", "value1", 5*time.Minute)
	val, ok := c.Get("key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, "value1", val)

	_, ok = c.Get("nonexistent")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemory_Expiration(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewMemory[int](0, WithClock(clock.Now))

	c.Set("k", 42, time.Minute)
	clock.now = clock.now.Add(59 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clock.now = clock.now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "expires exactly at ttl")
}

func TestMemory_NonPositiveTTLIsNoop(t *testing.T) {
	c := NewMemory[string](0)
	c.Set("k", "v", 0)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

func TestMemory_Delete(t *testing.T) {
	c := NewMemory[string](0)
	c.Set("k", "v", time.Minute)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemory_DeleteExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewMemory[string](0, WithClock(clock.Now))
	c.Set("short", "a", time.Second)
	c.Set("long", "b", time.Hour)

	clock.now = clock.now.Add(2 * time.Second)
	assert.Equal(t, 1, c.deleteExpired())
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemory_JanitorStops(t *testing.T) {
	c := NewMemory[string](10 * time.Millisecond)
	c.Set("k", "v", time.Millisecond)
	require.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()
}
