// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package looptest provides a manually driven clock for event loop tests.
package looptest

import (
	"sync"
	"time"

	"github.com/ManuGH/playwatch/internal/playback/loop"
)

// ManualClock implements loop.Clock. Time only moves when Advance is called
// and tickers only fire when Tick is called.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTicker(d time.Duration) loop.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ManualTicker{c: make(chan time.Time), stopped: make(chan struct{}), owner: c}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Tickers returns the number of live (not stopped) tickers.
func (c *ManualClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// Tick advances the clock by d and fires every live ticker once. It blocks
// until each ticker goroutine received the tick or the ticker was stopped.
func (c *ManualClock) Tick(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	live := append([]*ManualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range live {
		select {
		case t.c <- now:
		case <-t.stopped:
		}
	}
}

func (c *ManualClock) remove(t *ManualTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.tickers[:0]
	for _, x := range c.tickers {
		if x != t {
			out = append(out, x)
		}
	}
	c.tickers = out
}

// ManualTicker is the ticker handed out by ManualClock.
type ManualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
	owner   *ManualClock
}

func (t *ManualTicker) C() <-chan time.Time { return t.c }

func (t *ManualTicker) Stop() {
	t.once.Do(func() {
		close(t.stopped)
		t.owner.remove(t)
	})
}
