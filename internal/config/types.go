// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete gateway configuration. Field names map 1:1 to
// the YAML keys; environment overrides use PLAYWATCH_<SECTION>_<KEY>.
type AppConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Log         LogConfig         `yaml:"log"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Preferences PreferencesConfig `yaml:"preferences"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	API         APIConfig         `yaml:"api"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	TLS         TLSConfig         `yaml:"tls"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type PlaybackConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	Epsilon        float64       `yaml:"epsilon"`
	DefaultLevel   int           `yaml:"default_level"`
	// Levels replaces the stock quality table when set.
	Levels []LevelConfig `yaml:"levels"`
	// MaxSessions is a soft limit reported by the readiness probe; 0 = none.
	MaxSessions int `yaml:"max_sessions"`
}

type LevelConfig struct {
	Level               int    `yaml:"level"`
	Preload             string `yaml:"preload"`
	TargetBufferSeconds int    `yaml:"target_buffer_seconds"`
}

type PreferencesConfig struct {
	Backend        string        `yaml:"backend"`
	Path           string        `yaml:"path"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	KeyPrefix      string        `yaml:"key_prefix"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// BreakerThreshold consecutive store failures fail further calls fast
	// for BreakerReset.
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

// ObjectStoreConfig is optional; an empty Endpoint disables media resolution.
type ObjectStoreConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	UseSSL          bool          `yaml:"use_ssl"`
	PresignExpiry   time.Duration `yaml:"presign_expiry"`
	ProbeRange      bool          `yaml:"probe_range"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

type APIConfig struct {
	RateLimitRPM       int      `yaml:"rate_limit_rpm"`
	RateLimitWhitelist []string `yaml:"rate_limit_whitelist"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

type BridgeConfig struct {
	WriteQueue   int           `yaml:"write_queue"`
	PingInterval time.Duration `yaml:"ping_interval"`
	ReadLimit    int64         `yaml:"read_limit"`
}

// TLSConfig enables HTTPS. A missing certificate pair is generated
// self-signed at the configured paths.
type TLSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	CertFile string   `yaml:"cert_file"`
	KeyFile  string   `yaml:"key_file"`
	ExtraDNS []string `yaml:"extra_dns"`
}
