// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/playwatch/internal/log"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ConfigHolder holds the active configuration and reloads it from the
// Loader on demand, on file change, or on SIGHUP. A failed reload keeps the
// previous configuration.
type ConfigHolder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	debounce time.Duration

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewConfigHolder wraps an already loaded configuration.
func NewConfigHolder(initial AppConfig, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current:  initial,
		loader:   loader,
		logger:   log.WithComponent("config"),
		debounce: DefaultDebounce,
	}
}

// Get returns the active configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates a new configuration and swaps it in.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("keeping previous configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	if prev.Log.Level != next.Log.Level {
		if err := log.SetLevel(next.Log.Level); err != nil {
			h.logger.Warn().Err(err).Str(log.FieldEvent, "config.log_level_invalid").Msg("log level not applied")
		}
	}
	h.logChanges(prev, next)
	h.notify(next)

	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// RegisterListener receives every successfully reloaded configuration.
// Sends never block; a full channel misses the update.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notify(cfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(log.FieldEvent, "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

// Watch reloads on SIGHUP and, when a config file is used, on changes to it.
// It blocks until ctx is done.
func (h *ConfigHolder) Watch(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var events <-chan fsnotify.Event
	var errs <-chan error
	path := h.loader.Path()
	if path != "" {
		// Watch the directory so editors that replace the file by rename
		// keep triggering reloads.
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch config dir: %w", err)
		}
		events, errs = watcher.Events, watcher.Errors
		h.logger.Info().Str(log.FieldEvent, "config.watcher_started").Str("path", path).Msg("watching config file for changes")
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil
		case <-hup:
			h.logger.Info().Str(log.FieldEvent, "config.sighup").Msg("SIGHUP received")
			_ = h.Reload(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str(log.FieldEvent, "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = h.Reload(ctx)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

func (h *ConfigHolder) logChanges(prev, next AppConfig) {
	changed := func(key string, from, to any) {
		h.logger.Info().Str(log.FieldEvent, "config.changed").Str("key", key).
			Interface("old", from).Interface("new", to).Msg("config value changed")
	}
	if prev.Log.Level != next.Log.Level {
		changed("log.level", prev.Log.Level, next.Log.Level)
	}
	if prev.Playback.SampleInterval != next.Playback.SampleInterval {
		changed("playback.sample_interval", prev.Playback.SampleInterval.String(), next.Playback.SampleInterval.String())
	}
	if prev.Playback.Epsilon != next.Playback.Epsilon {
		changed("playback.epsilon", prev.Playback.Epsilon, next.Playback.Epsilon)
	}
	if prev.Playback.DefaultLevel != next.Playback.DefaultLevel {
		changed("playback.default_level", prev.Playback.DefaultLevel, next.Playback.DefaultLevel)
	}
	tlsChanged := prev.TLS.Enabled != next.TLS.Enabled || prev.TLS.CertFile != next.TLS.CertFile || prev.TLS.KeyFile != next.TLS.KeyFile
	if prev.ListenAddr != next.ListenAddr || prev.Preferences != next.Preferences || tlsChanged {
		h.logger.Warn().Str(log.FieldEvent, "config.restart_required").
			Msg("listener or preference store changed; takes effect after restart")
	}
}
