// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package preference persists per-client quality preferences in a
// key-value store.
package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/metrics"
	"github.com/ManuGH/playwatch/internal/resilience"
)

// Store is the key-value port. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

var (
	ErrUnknownBackend = errors.New("unknown preference backend")
	ErrStoreClosed    = errors.New("preference store closed")
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Path is the database file (sqlite, file) or directory (badger).
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// ConnectTimeout bounds the redis connect retries.
	ConnectTimeout time.Duration

	// BreakerThreshold consecutive failures open the store breaker for
	// BreakerReset. Zero values use the resilience defaults.
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Open creates the configured store. Unknown backends fail closed.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		s = NewMemoryStore()
	case BackendSQLite:
		s, err = OpenSQLiteStore(ctx, cfg.Path)
	case BackendBadger:
		s, err = OpenBadgerStore(cfg.Path)
	case BackendRedis:
		s, err = OpenRedisStore(ctx, RedisConfig{
			Addr:           cfg.RedisAddr,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			ConnectTimeout: cfg.ConnectTimeout,
		})
	case BackendFile:
		s, err = OpenFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q (supported: memory, sqlite, badger, redis, file)", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	backend := cfg.Backend
	if backend == "" {
		backend = BackendMemory
	}
	logger := log.WithComponent("preference")
	logger.Info().
		Str(log.FieldEvent, "preference.store_opened").
		Str(log.FieldBackend, backend).
		Str("path", cfg.Path).
		Msg("preference store opened")
	cb := resilience.NewCircuitBreaker(metrics.BreakerPreferences, cfg.BreakerThreshold, cfg.BreakerReset)
	return Guard(Instrument(s, backend), cb), nil
}

// Instrument records latency and outcome of every store call.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

type instrumented struct {
	next    Store
	backend string
}

func (i *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := i.next.Get(ctx, key)
	metrics.ObservePreferenceOp(i.backend, "get", err, time.Since(start))
	return v, ok, err
}

func (i *instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	metrics.ObservePreferenceOp(i.backend, "set", err, time.Since(start))
	return err
}

func (i *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.next.Ping(ctx)
	metrics.ObservePreferenceOp(i.backend, "ping", err, time.Since(start))
	return err
}

func (i *instrumented) Close() error { return i.next.Close() }
