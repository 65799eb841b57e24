// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/session"
)

const maxBodyBytes = 4 << 10

// SessionList is the body of GET /api/v1/sessions.
type SessionList struct {
	Sessions []session.Snapshot `json:"sessions"`
}

// QualityRequest is the body of PUT /api/v1/sessions/{id}/quality.
type QualityRequest struct {
	Level   int    `json:"level"`
	Persist bool   `json:"persist"`
	Source  string `json:"source,omitempty"`
}

// PreferenceResponse is the body of GET /api/v1/clients/{clientID}/preference.
type PreferenceResponse struct {
	ClientID     string `json:"client_id"`
	Found        bool   `json:"found"`
	Level        int    `json:"level,omitempty"`
	UserOverride bool   `json:"user_override"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	out := SessionList{Sessions: []session.Snapshot{}}
	for _, sess := range s.deps.Registry.List() {
		snap, err := sess.Snapshot(r.Context())
		if errors.Is(err, session.ErrSessionClosed) {
			continue
		}
		if err != nil {
			respondError(w, r, err)
			return
		}
		out.Sessions = append(out.Sessions, snap)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Registry.Remove(id); err != nil {
		respondError(w, r, err)
		return
	}
	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "session.removed").
		Str(log.FieldSessionID, id).
		Msg("session removed via api")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetQuality(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req QualityRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "body must be {\"level\": int, \"persist\": bool}")
		return
	}
	src := quality.ChangeSource(req.Source)
	switch src {
	case "", quality.SourceSystem, quality.SourceUser:
	default:
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "source must be user or system")
		return
	}

	err = sess.SetLevel(r.Context(), quality.Level(req.Level), quality.SetOptions{Persist: req.Persist, Source: src})
	if err != nil {
		respondError(w, r, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "preference store not configured")
		return
	}
	clientID := chi.URLParam(r, "clientID")
	pref, found, err := s.deps.Preferences.Load(r.Context(), clientID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := PreferenceResponse{ClientID: clientID, Found: found}
	if found {
		resp.Level = int(pref.Level)
		resp.UserOverride = pref.UserOverride
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMediaSource(w http.ResponseWriter, r *http.Request) {
	if s.deps.Resolver == nil {
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "object store not configured")
		return
	}
	src, err := s.deps.Resolver.Resolve(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}
