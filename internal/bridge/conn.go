// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/media"
	"github.com/ManuGH/playwatch/internal/metrics"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/session"
	"github.com/ManuGH/playwatch/internal/preference"
)

// conn is one player connection. The read loop runs on the ServeHTTP
// goroutine; writes are owned by writeLoop.
type conn struct {
	h      *Handler
	ws     *websocket.Conn
	out    *outbox
	logger zerolog.Logger // read goroutine only

	// sendLog is fixed at construction. send runs on the session loop and
	// writeLoop on its own goroutine.
	sendLog zerolog.Logger
	drops   rate.Sometimes

	player *RemotePlayer
	sess   *session.Session
}

func newConn(h *Handler, ws *websocket.Conn, logger zerolog.Logger) *conn {
	c := &conn{
		h:       h,
		ws:      ws,
		out:     newOutbox(h.cfg.WriteQueue),
		logger:  logger,
		sendLog: logger,
		drops:   rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	c.player = newRemotePlayer(c.out, nil)
	return c
}

func (c *conn) run() {
	metrics.BridgeConnections.Inc()
	defer metrics.BridgeConnections.Dec()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	err := c.readLoop()
	if err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		c.logger.Warn().Err(err).Str(log.FieldEvent, "bridge.read_failed").Msg("player connection lost")
	}

	if c.sess != nil {
		if err := c.h.registry.Remove(c.sess.ID()); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			c.logger.Warn().Err(err).Str(log.FieldEvent, "bridge.remove_failed").Msg("session removal failed")
		}
	}
	c.out.close()
	<-writerDone
	_ = c.ws.Close()
	c.logger.Debug().Str(log.FieldEvent, "bridge.closed").Msg("player connection closed")
}

func (c *conn) readLoop() error {
	pongWait := 2 * c.h.cfg.PingInterval
	c.ws.SetReadLimit(c.h.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.sendError(CodeBadMessage, "message must be a JSON object with a type")
			continue
		}
		metrics.IncBridgeMessage("in", msg.Type)
		c.handle(msg)
	}
}

// writeLoop drains the outbox until it is closed, pinging the player on
// PingInterval.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.out.ch:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.sendLog.Debug().Err(err).Str(log.FieldEvent, "bridge.write_failed").Msg("write to player failed")
				// Unblock the reader; run closes the outbox afterwards.
				_ = c.ws.Close()
				c.discard()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.ws.Close()
				c.discard()
				return
			}
		}
	}
}

// discard drains the outbox after the writer gave up so send keeps failing
// fast through ErrQueueFull instead of blocking anyone.
func (c *conn) discard() {
	go func() {
		for range c.out.ch {
		}
	}()
}

func (c *conn) handle(msg Inbound) {
	if msg.Type == MsgHello {
		c.hello(msg)
		return
	}
	if c.sess == nil {
		c.sendError(CodeHelloRequired, "send hello before "+msg.Type)
		return
	}
	switch msg.Type {
	case MsgTime:
		if msg.Position == nil || math.IsNaN(*msg.Position) || math.IsInf(*msg.Position, 0) || *msg.Position < 0 {
			c.sendError(CodeBadMessage, "time requires a non-negative position")
			return
		}
		c.player.Report(*msg.Position, msg.Paused)
	case MsgReady:
		c.dispatch(session.PlayerEvent{Kind: session.EventReady})
	case MsgProgress:
		c.dispatch(session.PlayerEvent{Kind: session.EventProgress, BufferedAhead: msg.Buffered})
	case MsgEnded:
		c.dispatch(session.PlayerEvent{Kind: session.EventEnded})
	case MsgError:
		c.dispatch(session.PlayerEvent{Kind: session.EventError, Message: msg.Message})
	case MsgEnterFullscreen:
		c.dispatch(session.PlayerEvent{Kind: session.EventEnterFullscreen})
	case MsgExitFullscreen:
		c.dispatch(session.PlayerEvent{Kind: session.EventExitFullscreen})
	case MsgQuality:
		c.setQuality(msg)
	default:
		c.sendError(CodeBadMessage, "unknown message type "+msg.Type)
	}
}

func (c *conn) hello(msg Inbound) {
	if c.sess != nil {
		c.sendError(CodeAlreadyAttached, "connection already has a session")
		return
	}
	if err := preference.ValidateClientID(msg.ClientID); err != nil {
		c.sendError(CodeInvalidClientID, err.Error())
		return
	}
	if msg.MediaKey != "" {
		if err := media.ValidateKey(msg.MediaKey); err != nil {
			c.sendError(CodeInvalidMediaKey, err.Error())
			return
		}
	}

	var prefs quality.PreferenceStore
	if c.h.prefs != nil {
		prefs = c.h.prefs.ForClient(msg.ClientID)
	}
	pb := c.h.CurrentPlayback()
	cfg := session.Config{
		ClientID:       msg.ClientID,
		MediaKey:       msg.MediaKey,
		SampleInterval: pb.SampleInterval,
		Epsilon:        pb.Epsilon,
		Table:          pb.Table,
	}
	opts := append([]session.Option{session.WithObserver(&notifier{c: c})}, c.h.cfg.SessionOptions...)
	sess, err := c.h.registry.Create(cfg, c.player, prefs, opts...)
	if err != nil {
		c.sendError(CodeUnavailable, err.Error())
		return
	}
	c.sess = sess
	c.logger = c.logger.With().
		Str(log.FieldSessionID, sess.ID()).
		Str(log.FieldClientID, msg.ClientID).
		Logger()
	c.logger.Info().Str(log.FieldEvent, "bridge.attached").Msg("player attached")

	levels := sess.Table().Levels()
	ints := make([]int, len(levels))
	for i, l := range levels {
		ints[i] = int(l)
	}
	c.send(Outbound{Type: MsgSession, SessionID: sess.ID(), Levels: ints})
}

func (c *conn) dispatch(ev session.PlayerEvent) {
	if !c.sess.Dispatch(ev) {
		c.sendError(CodeUnavailable, "session closed")
	}
}

func (c *conn) setQuality(msg Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.sess.SetLevel(ctx, quality.Level(msg.Level), quality.SetOptions{
		Persist: msg.Persist,
		Source:  quality.SourceUser,
	})
	switch {
	case err == nil:
	case errors.Is(err, quality.ErrInvalidQualityLevel):
		c.sendError(CodeInvalidQualityLevel, err.Error())
	default:
		c.logger.Warn().Err(err).Str(log.FieldEvent, "bridge.quality_failed").Msg("quality change failed")
		c.sendError(CodeQualityFailed, err.Error())
	}
}

func (c *conn) sendError(code, message string) {
	c.send(Outbound{Type: MsgError, Code: code, Message: message})
}

func (c *conn) send(m Outbound) {
	err := c.out.send(m)
	if errors.Is(err, ErrQueueFull) {
		c.drops.Do(func() {
			c.sendLog.Warn().Str(log.FieldEvent, "bridge.queue_full").Str("type", m.Type).Msg("dropping outbound message")
		})
	}
}

// notifier forwards session notifications to the player. It runs on the
// session loop and only enqueues.
type notifier struct {
	session.NopObserver
	c *conn
}

func (n *notifier) OnStallBegin(time.Time) {
	n.c.send(Outbound{Type: MsgStall, Stalled: boolPtr(true)})
}

func (n *notifier) OnStallEnd(_ time.Time, stalledFor time.Duration) {
	n.c.send(Outbound{Type: MsgStall, Stalled: boolPtr(false), StalledForMS: stalledFor.Milliseconds()})
}

func (n *notifier) OnQualityChanged(level quality.Level) {
	n.c.send(Outbound{Type: MsgQuality, Level: int(level)})
}

func (n *notifier) OnFullscreenChanged(on bool) {
	n.c.send(Outbound{Type: MsgFullscreen, Fullscreen: boolPtr(on)})
}

func (n *notifier) OnPlayerFault(f session.PlayerFault) {
	n.c.send(Outbound{Type: MsgNotice, Kind: "error", Title: f.Title, Message: f.Notice})
}
