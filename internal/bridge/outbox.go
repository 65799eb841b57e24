// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"errors"
	"sync"

	"github.com/ManuGH/playwatch/internal/metrics"
)

var (
	// ErrConnClosed is returned when sending on a closed connection.
	ErrConnClosed = errors.New("bridge connection closed")
	// ErrQueueFull is returned when the outbound queue is saturated.
	ErrQueueFull = errors.New("bridge outbound queue full")
)

// outbox is the bounded outbound queue of one connection. send never blocks.
type outbox struct {
	mu     sync.Mutex
	ch     chan Outbound
	closed bool
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = DefaultWriteQueue
	}
	return &outbox{ch: make(chan Outbound, size)}
}

func (o *outbox) send(m Outbound) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrConnClosed
	}
	select {
	case o.ch <- m:
		metrics.IncBridgeMessage("out", m.Type)
		return nil
	default:
		metrics.IncBridgeDrop()
		return ErrQueueFull
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
