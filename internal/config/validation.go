// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ManuGH/playwatch/internal/playback/quality"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	validBackends  = []string{"memory", "sqlite", "badger", "redis", "file"}
	validExporters = []string{"grpc", "http"}
	validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.ListenAddr == "" {
		add("listen_addr must be set")
	}
	if cfg.ShutdownTimeout <= 0 {
		add("shutdown_timeout must be positive")
	}
	if !slices.Contains(validLogLevels, strings.ToLower(cfg.Log.Level)) {
		add("log.level %q must be one of %v", cfg.Log.Level, validLogLevels)
	}

	if cfg.Playback.SampleInterval <= 0 {
		add("playback.sample_interval must be positive")
	}
	if cfg.Playback.Epsilon <= 0 {
		add("playback.epsilon must be positive")
	}
	if cfg.Playback.MaxSessions < 0 {
		add("playback.max_sessions must not be negative")
	}
	if _, err := QualityTable(cfg.Playback); err != nil {
		add("playback: %v", err)
	}

	p := cfg.Preferences
	if p.BreakerThreshold <= 0 || p.BreakerReset <= 0 {
		add("preferences.breaker_threshold and preferences.breaker_reset must be positive")
	}
	switch {
	case !slices.Contains(validBackends, p.Backend):
		add("preferences.backend %q must be one of %v", p.Backend, validBackends)
	case p.Backend == "redis" && p.RedisAddr == "":
		add("preferences.redis_addr is required for the redis backend")
	case (p.Backend == "sqlite" || p.Backend == "badger" || p.Backend == "file") && p.Path == "":
		add("preferences.path is required for the %s backend", p.Backend)
	}

	if o := cfg.ObjectStore; o.Endpoint != "" {
		if o.Bucket == "" {
			add("object_store.bucket is required when an endpoint is set")
		}
		if o.PresignExpiry <= 0 {
			add("object_store.presign_expiry must be positive")
		}
		if o.CacheTTL < 0 {
			add("object_store.cache_ttl must not be negative")
		}
	}

	if t := cfg.Telemetry; t.Enabled {
		if !slices.Contains(validExporters, t.Exporter) {
			add("telemetry.exporter %q must be one of %v", t.Exporter, validExporters)
		}
		if t.Endpoint == "" {
			add("telemetry.endpoint is required when telemetry is enabled")
		}
		if t.SamplingRate < 0 || t.SamplingRate > 1 {
			add("telemetry.sampling_rate must be within [0, 1]")
		}
	}

	if cfg.API.RateLimitRPM < 0 {
		add("api.rate_limit_rpm must not be negative")
	}
	if cfg.Bridge.WriteQueue <= 0 {
		add("bridge.write_queue must be positive")
	}
	if cfg.Bridge.PingInterval <= 0 {
		add("bridge.ping_interval must be positive")
	}
	if cfg.Bridge.ReadLimit <= 0 {
		add("bridge.read_limit must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// QualityTable builds the quality table for p. Without configured levels it
// is the stock table with p.DefaultLevel as default.
func QualityTable(p PlaybackConfig) (*quality.Table, error) {
	entries := quality.DefaultEntries()
	if len(p.Levels) > 0 {
		entries = make([]quality.Entry, 0, len(p.Levels))
		for _, lc := range p.Levels {
			preload, err := quality.ParsePreload(lc.Preload)
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", lc.Level, err)
			}
			entries = append(entries, quality.Entry{
				Level:  quality.Level(lc.Level),
				Tuning: quality.Tuning{Preload: preload, TargetBufferSeconds: lc.TargetBufferSeconds},
			})
		}
	}
	return quality.NewTable(entries, quality.Level(p.DefaultLevel))
}
