// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/session"
	"github.com/ManuGH/playwatch/internal/preference"
)

// Defaults for Config.
const (
	DefaultWriteQueue   = 64
	DefaultPingInterval = 30 * time.Second
	DefaultReadLimit    = 4096
	writeWait           = 5 * time.Second
)

// Config controls bridge connections and the sessions they create.
type Config struct {
	WriteQueue     int
	PingInterval   time.Duration
	ReadLimit      int64
	AllowedOrigins []string

	SampleInterval time.Duration
	Epsilon        float64
	Table          *quality.Table
	SessionOptions []session.Option
}

func (c Config) withDefaults() Config {
	if c.WriteQueue <= 0 {
		c.WriteQueue = DefaultWriteQueue
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}
	return c
}

// Handler upgrades player connections and runs one session per connection.
type Handler struct {
	cfg      Config
	registry *session.Registry
	prefs    *preference.Repository
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu       sync.RWMutex
	playback Playback
	conns    map[*conn]struct{}
	closing  bool
}

// Playback is the per-session tuning applied to sessions created from now on.
type Playback struct {
	SampleInterval time.Duration
	Epsilon        float64
	Table          *quality.Table
}

// NewHandler builds the bridge handler. prefs may be nil, in which case
// quality preferences are not persisted.
func NewHandler(registry *session.Registry, prefs *preference.Repository, cfg Config) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		cfg:      cfg,
		registry: registry,
		prefs:    prefs,
		logger:   log.WithComponent("bridge"),
		playback: Playback{SampleInterval: cfg.SampleInterval, Epsilon: cfg.Epsilon, Table: cfg.Table},
		conns:    make(map[*conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetPlayback replaces the playback settings for new sessions. Running
// sessions keep theirs.
func (h *Handler) SetPlayback(p Playback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playback = p
}

// CurrentPlayback returns the settings used for new sessions.
func (h *Handler) CurrentPlayback() Playback {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.playback
}

// checkOrigin accepts same-host requests, requests without an Origin header,
// and any origin in AllowedOrigins ("*" allows all).
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).
			Str(log.FieldEvent, "bridge.upgrade_failed").
			Str(log.FieldRemote, r.RemoteAddr).
			Msg("websocket upgrade failed")
		return
	}
	logger := h.logger.With().
		Str(log.FieldRemote, r.RemoteAddr).
		Str(log.FieldRequestID, log.RequestIDFromContext(r.Context())).
		Logger()
	c := newConn(h, ws, logger)
	if !h.track(c) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = ws.Close()
		return
	}
	defer h.untrack(c)
	c.run()
}

func (h *Handler) track(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

func (h *Handler) untrack(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// CloseAll drops every player connection and refuses new ones. Each
// connection then removes its session.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	h.closing = true
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	if len(conns) > 0 {
		h.logger.Info().Str(log.FieldEvent, "bridge.closed_all").Int("connections", len(conns)).Msg("player connections closed")
	}
}
