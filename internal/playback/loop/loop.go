// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loop provides the single-goroutine event loop a playback session
// runs on. Timer ticks, player events and control calls are executed one at a
// time, in order, so session state needs no locks.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/playwatch/internal/log"
)

var (
	ErrLoopClosed     = errors.New("event loop closed")
	ErrAlreadyRunning = errors.New("event loop already running")
)

const defaultQueueSize = 64

// Task is a handle to a periodic task registered with Every.
type Task interface {
	// Stop cancels the task. It is idempotent, and once it returns on the
	// loop goroutine no further tick of the task executes, including a tick
	// that is already queued.
	Stop()
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithQueueSize sets the capacity of the work queue.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// Loop executes posted work strictly sequentially on the goroutine that
// called Run.
type Loop struct {
	clock     Clock
	queueSize int
	queue     chan func()

	running   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	// tickers tracks the goroutines feeding periodic tasks.
	tickers sync.WaitGroup
}

// New creates a loop. Run must be called to start executing work.
func New(opts ...Option) *Loop {
	l := &Loop{
		clock:     realClock{},
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = make(chan func(), l.queueSize)
	return l
}

// Now returns the loop clock reading.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Run executes queued work until ctx is cancelled or Close is called. It
// waits for all periodic task goroutines to exit before returning.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.tickers.Wait()
	defer l.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case fn := <-l.queue:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger := log.WithComponent("loop")
			logger.Error().
				Str(log.FieldEvent, "loop.panic").
				Str("panic", fmt.Sprint(r)).
				Msg("recovered panic in event loop work item")
		}
	}()
	fn()
}

// Close stops the loop. Pending work is discarded. Safe to call repeatedly.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// Done is closed once the loop has been closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post enqueues fn. It reports false if the loop is closed. Post blocks while
// the queue is full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call enqueues fn and waits until it has run. It must not be called from
// the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// Every registers fn to run on the loop every interval. A single ticker
// drives the task; while one tick is still queued further ticks are dropped
// rather than stacked.
func (l *Loop) Every(interval time.Duration, fn func()) Task {
	t := &periodic{stop: make(chan struct{})}

	select {
	case <-l.done:
		t.Stop()
		return t
	default:
	}

	tk := l.clock.NewTicker(interval)
	l.tickers.Add(1)
	go func() {
		defer l.tickers.Done()
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-l.done:
				return
			case <-tk.C():
				if !t.pending.CompareAndSwap(false, true) {
					continue
				}
				run := func() {
					t.pending.Store(false)
					if t.stopped.Load() {
						return
					}
					fn()
				}
				select {
				case l.queue <- run:
				case <-t.stop:
					return
				case <-l.done:
					return
				}
			}
		}
	}()
	return t
}

type periodic struct {
	stopped atomic.Bool
	pending atomic.Bool
	stop    chan struct{}
	once    sync.Once
}

func (t *periodic) Stop() {
	t.once.Do(func() {
		t.stopped.Store(true)
		close(t.stop)
	})
}
