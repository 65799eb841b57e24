// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the gateway components together and owns their
// lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playwatch/internal/api"
	"github.com/ManuGH/playwatch/internal/bridge"
	"github.com/ManuGH/playwatch/internal/config"
	"github.com/ManuGH/playwatch/internal/health"
	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/media"
	"github.com/ManuGH/playwatch/internal/playback/session"
	"github.com/ManuGH/playwatch/internal/preference"
	"github.com/ManuGH/playwatch/internal/telemetry"
	tlsutil "github.com/ManuGH/playwatch/internal/tls"
)

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Runtime is the set of components built from one configuration.
type Runtime struct {
	Config      config.AppConfig
	Registry    *session.Registry
	Store       preference.Store
	Preferences *preference.Repository
	Resolver    *media.Resolver
	Bridge      *bridge.Handler
	Health      *health.Manager
	API         *api.Server

	// TLSCertFile and TLSKeyFile are set when HTTPS is enabled.
	TLSCertFile string
	TLSKeyFile  string

	logger zerolog.Logger
	hooks  []namedHook
}

// Build constructs every component for cfg. On failure the components
// built so far are closed.
func Build(ctx context.Context, cfg config.AppConfig, version string) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.TLS.Enabled {
		rt.TLSCertFile, rt.TLSKeyFile, err = tlsutil.EnsureCertificates(tlsutil.Config{
			CertPath: cfg.TLS.CertFile,
			KeyPath:  cfg.TLS.KeyFile,
			ExtraDNS: cfg.TLS.ExtraDNS,
			Logger:   log.WithComponent("tls"),
		})
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.RegisterShutdownHook("telemetry", tp.Shutdown)

	store, err := preference.Open(ctx, preference.Config{
		Backend:        cfg.Preferences.Backend,
		Path:           cfg.Preferences.Path,
		RedisAddr:      cfg.Preferences.RedisAddr,
		RedisPassword:  cfg.Preferences.RedisPassword,
		RedisDB:        cfg.Preferences.RedisDB,
		ConnectTimeout: cfg.Preferences.ConnectTimeout,

		BreakerThreshold: cfg.Preferences.BreakerThreshold,
		BreakerReset:     cfg.Preferences.BreakerReset,
	})
	if err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}
	rt.Store = store
	rt.RegisterShutdownHook("preferences", func(context.Context) error { return store.Close() })
	rt.Preferences = preference.NewRepository(store, cfg.Preferences.KeyPrefix)

	if cfg.ObjectStore.Endpoint != "" {
		rt.Resolver, err = media.NewResolver(media.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Bucket:          cfg.ObjectStore.Bucket,
			Region:          cfg.ObjectStore.Region,
			PresignExpiry:   cfg.ObjectStore.PresignExpiry,
			CacheTTL:        cfg.ObjectStore.CacheTTL,
			ProbeRange:      cfg.ObjectStore.ProbeRange,
		})
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		rt.RegisterShutdownHook("media", func(context.Context) error {
			rt.Resolver.Close()
			return nil
		})
	}

	table, err := config.QualityTable(cfg.Playback)
	if err != nil {
		return nil, fmt.Errorf("quality table: %w", err)
	}

	rt.Registry = session.NewRegistry()
	rt.RegisterShutdownHook("sessions", func(context.Context) error {
		rt.Registry.CloseAll()
		return nil
	})

	rt.Bridge = bridge.NewHandler(rt.Registry, rt.Preferences, bridge.Config{
		WriteQueue:     cfg.Bridge.WriteQueue,
		PingInterval:   cfg.Bridge.PingInterval,
		ReadLimit:      cfg.Bridge.ReadLimit,
		AllowedOrigins: cfg.API.AllowedOrigins,
		SampleInterval: cfg.Playback.SampleInterval,
		Epsilon:        cfg.Playback.Epsilon,
		Table:          table,
	})

	rt.Health = health.NewManager(version)
	rt.Health.RegisterChecker(health.NewPingChecker("preferences", rt.Preferences.Ping))
	rt.Health.RegisterChecker(health.NewCapacityChecker("sessions", rt.Registry.Len, cfg.Playback.MaxSessions))

	deps := api.Deps{
		Registry:    rt.Registry,
		Preferences: rt.Preferences,
		Bridge:      rt.Bridge,
		Health:      rt.Health,
	}
	if rt.Resolver != nil {
		deps.Resolver = rt.Resolver
	}
	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Telemetry.ServiceName
	}
	rt.API = api.New(api.Config{
		AllowedOrigins:     cfg.API.AllowedOrigins,
		RateLimitRPM:       cfg.API.RateLimitRPM,
		RateLimitWhitelist: cfg.API.RateLimitWhitelist,
		TracingService:     tracing,
	}, deps)

	rt.logger.Info().
		Str(log.FieldEvent, "daemon.built").
		Str(log.FieldBackend, cfg.Preferences.Backend).
		Bool("object_store", rt.Resolver != nil).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Bool("tls", cfg.TLS.Enabled).
		Msg("runtime ready")
	return rt, nil
}

// RegisterShutdownHook adds a hook run by Close.
func (rt *Runtime) RegisterShutdownHook(name string, hook ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, hook: hook})
}

// Close runs the shutdown hooks in reverse order and joins their errors.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		h := rt.hooks[i]
		rt.logger.Debug().Str("hook", h.name).Msg("executing shutdown hook")
		if err := h.hook(ctx); err != nil {
			rt.logger.Warn().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	rt.hooks = nil
	return errors.Join(errs...)
}

// ApplyReload pushes reloadable settings to running components. Settings
// that need a restart are logged by the config holder.
func (rt *Runtime) ApplyReload(cfg config.AppConfig) {
	table, err := config.QualityTable(cfg.Playback)
	if err != nil {
		rt.logger.Warn().Err(err).Str(log.FieldEvent, "daemon.reload_skipped").Msg("invalid quality table")
		return
	}
	rt.Bridge.SetPlayback(bridge.Playback{
		SampleInterval: cfg.Playback.SampleInterval,
		Epsilon:        cfg.Playback.Epsilon,
		Table:          table,
	})
	rt.logger.Info().Str(log.FieldEvent, "daemon.reload_applied").Msg("playback settings apply to new sessions")
}
