// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preference

import (
	"context"

	"github.com/ManuGH/playwatch/internal/resilience"
)

// Guard fails Get and Set fast with resilience.ErrCircuitOpen while cb is
// open. Ping bypasses the breaker so readiness reflects the real backend.
func Guard(s Store, cb *resilience.CircuitBreaker) Store {
	return &guarded{next: s, cb: cb}
}

type guarded struct {
	next Store
	cb   *resilience.CircuitBreaker
}

func (g *guarded) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = g.cb.Execute(func() error {
		var err error
		value, found, err = g.next.Get(ctx, key)
		return err
	})
	return value, found, err
}

func (g *guarded) Set(ctx context.Context, key, value string) error {
	return g.cb.Execute(func() error { return g.next.Set(ctx, key, value) })
}

func (g *guarded) Ping(ctx context.Context) error { return g.next.Ping(ctx) }

func (g *guarded) Close() error { return g.next.Close() }
