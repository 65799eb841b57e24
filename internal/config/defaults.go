// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/stall"
	"github.com/ManuGH/playwatch/internal/resilience"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:      ":8080",
		ShutdownTimeout: 15 * time.Second,
		Log: LogConfig{
			Level:   "info",
			Service: "playwatch",
		},
		Playback: PlaybackConfig{
			SampleInterval: stall.DefaultInterval,
			Epsilon:        stall.DefaultEpsilon,
			DefaultLevel:   int(quality.DefaultLevel),
		},
		Preferences: PreferencesConfig{
			Backend:          "memory",
			KeyPrefix:        "playwatch:",
			ConnectTimeout:   15 * time.Second,
			BreakerThreshold: resilience.DefaultThreshold,
			BreakerReset:     resilience.DefaultResetTimeout,
		},
		ObjectStore: ObjectStoreConfig{
			Region:        "us-east-1",
			UseSSL:        true,
			PresignExpiry: time.Hour,
			CacheTTL:      30 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "playwatch",
			Environment:  "production",
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		API: APIConfig{
			RateLimitRPM: 600,
		},
		Bridge: BridgeConfig{
			WriteQueue:   64,
			PingInterval: 30 * time.Second,
			ReadLimit:    4096,
		},
	}
}
