// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playwatch/internal/config"
	"github.com/ManuGH/playwatch/internal/log"
)

// App runs the HTTP server, the config watcher and the reload wiring until
// its context ends, then shuts everything down.
type App struct {
	rt      *Runtime
	holder  *config.ConfigHolder
	logger  zerolog.Logger
	started atomic.Bool
	srv     *http.Server
}

// NewApp creates the orchestrator. holder may be nil (no reloads).
func NewApp(rt *Runtime, holder *config.ConfigHolder) *App {
	return &App{rt: rt, holder: holder, logger: log.WithComponent("daemon")}
}

// Run listens on the configured address.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.rt.Config.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs on ln and blocks until ctx is cancelled or the server fails.
// The runtime is closed before Serve returns.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if !a.started.CompareAndSwap(false, true) {
		_ = ln.Close()
		return ErrAlreadyStarted
	}

	srv := &http.Server{
		Handler:           a.rt.API.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	// Hijacked player sockets are not tracked by Shutdown.
	srv.RegisterOnShutdown(a.rt.Bridge.CloseAll)
	a.srv = srv

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tlsOn := a.rt.TLSCertFile != ""
		a.logger.Info().Str(log.FieldEvent, "server.listening").
			Str("addr", ln.Addr().String()).
			Bool("tls", tlsOn).
			Msg("http server listening")
		var err error
		if tlsOn {
			err = srv.ServeTLS(ln, a.rt.TLSCertFile, a.rt.TLSKeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
		}
		return nil
	})

	if a.holder != nil {
		updates := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(updates)
		g.Go(func() error {
			if err := a.holder.Watch(gctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("config watcher not running")
			}
			return nil
		})
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-updates:
					a.rt.ApplyReload(cfg)
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// shutdown stops accepting requests, then closes sessions, the preference
// store and telemetry, bounded by the shutdown timeout.
func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info().Str(log.FieldEvent, "daemon.shutdown").Msg("shutting down")
	ctx, cancel := context.WithTimeout(ctx, a.rt.Config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.rt.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("shutdown complete")
	return nil
}
