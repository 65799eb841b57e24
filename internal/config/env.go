// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLAYWATCH_"

// envReader applies environment overrides and remembers the first parse
// error. Every override is logged with its source; secrets are not echoed.
type envReader struct {
	lookup   func(string) (string, bool)
	logger   zerolog.Logger
	consumed map[string]struct{}
	errs     []error
}

func (e *envReader) get(key string) (string, bool) {
	key = EnvPrefix + key
	e.consumed[key] = struct{}{}
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	ev := e.logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return v, true
}

func (e *envReader) fail(key, v, kind string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: invalid %s: %w", EnvPrefix, key, v, kind, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, "integer", err)
			return
		}
		*dst = i
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, "integer", err)
			return
		}
		*dst = i
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, "float", err)
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			*dst = true
		case "false", "0", "no":
			*dst = false
		default:
			e.fail(key, v, "boolean", fmt.Errorf("want true/false"))
		}
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, "duration", err)
			return
		}
		*dst = d
	}
}

// list reads a comma separated list; blank items are dropped.
func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "secret") || strings.Contains(k, "token")
}

func (e *envReader) apply(cfg *AppConfig) {
	e.str("LISTEN_ADDR", &cfg.ListenAddr)
	e.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_SERVICE", &cfg.Log.Service)

	e.duration("PLAYBACK_SAMPLE_INTERVAL", &cfg.Playback.SampleInterval)
	e.float("PLAYBACK_EPSILON", &cfg.Playback.Epsilon)
	e.integer("PLAYBACK_DEFAULT_LEVEL", &cfg.Playback.DefaultLevel)
	e.integer("PLAYBACK_MAX_SESSIONS", &cfg.Playback.MaxSessions)

	e.str("PREFERENCES_BACKEND", &cfg.Preferences.Backend)
	e.str("PREFERENCES_PATH", &cfg.Preferences.Path)
	e.str("PREFERENCES_REDIS_ADDR", &cfg.Preferences.RedisAddr)
	e.str("PREFERENCES_REDIS_PASSWORD", &cfg.Preferences.RedisPassword)
	e.integer("PREFERENCES_REDIS_DB", &cfg.Preferences.RedisDB)
	e.str("PREFERENCES_KEY_PREFIX", &cfg.Preferences.KeyPrefix)
	e.duration("PREFERENCES_CONNECT_TIMEOUT", &cfg.Preferences.ConnectTimeout)
	e.integer("PREFERENCES_BREAKER_THRESHOLD", &cfg.Preferences.BreakerThreshold)
	e.duration("PREFERENCES_BREAKER_RESET", &cfg.Preferences.BreakerReset)

	e.str("OBJECT_STORE_ENDPOINT", &cfg.ObjectStore.Endpoint)
	e.str("OBJECT_STORE_ACCESS_KEY_ID", &cfg.ObjectStore.AccessKeyID)
	e.str("OBJECT_STORE_SECRET_ACCESS_KEY", &cfg.ObjectStore.SecretAccessKey)
	e.str("OBJECT_STORE_BUCKET", &cfg.ObjectStore.Bucket)
	e.str("OBJECT_STORE_REGION", &cfg.ObjectStore.Region)
	e.boolean("OBJECT_STORE_USE_SSL", &cfg.ObjectStore.UseSSL)
	e.duration("OBJECT_STORE_PRESIGN_EXPIRY", &cfg.ObjectStore.PresignExpiry)
	e.boolean("OBJECT_STORE_PROBE_RANGE", &cfg.ObjectStore.ProbeRange)
	e.duration("OBJECT_STORE_CACHE_TTL", &cfg.ObjectStore.CacheTTL)

	e.boolean("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	e.str("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	e.str("TELEMETRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	e.str("TELEMETRY_EXPORTER", &cfg.Telemetry.Exporter)
	e.str("TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	e.float("TELEMETRY_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)

	e.integer("API_RATE_LIMIT_RPM", &cfg.API.RateLimitRPM)
	e.list("API_RATE_LIMIT_WHITELIST", &cfg.API.RateLimitWhitelist)
	e.list("API_ALLOWED_ORIGINS", &cfg.API.AllowedOrigins)

	e.boolean("TLS_ENABLED", &cfg.TLS.Enabled)
	e.str("TLS_CERT_FILE", &cfg.TLS.CertFile)
	e.str("TLS_KEY_FILE", &cfg.TLS.KeyFile)
	e.list("TLS_EXTRA_DNS", &cfg.TLS.ExtraDNS)

	e.integer("BRIDGE_WRITE_QUEUE", &cfg.Bridge.WriteQueue)
	e.duration("BRIDGE_PING_INTERVAL", &cfg.Bridge.PingInterval)
	e.int64("BRIDGE_READ_LIMIT", &cfg.Bridge.ReadLimit)
}

// unknownEnvKeys lists PLAYWATCH_* variables that no override consumed.
func (e *envReader) unknownEnvKeys(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := e.consumed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

func osLookup(key string) (string, bool) { return os.LookupEnv(key) }
