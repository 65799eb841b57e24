// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/media"
	"github.com/ManuGH/playwatch/internal/playback/quality"
	"github.com/ManuGH/playwatch/internal/playback/session"
	"github.com/ManuGH/playwatch/internal/preference"
)

// Error codes of the JSON error body.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeInvalidQualityLevel   = "invalid_quality_level"
	CodeInvalidClientID       = "invalid_client_id"
	CodeInvalidMediaKey       = "invalid_media_key"
	CodeSessionNotFound       = "session_not_found"
	CodeSessionClosed         = "session_closed"
	CodeMediaNotFound         = "media_not_found"
	CodePlayerUnavailable     = "player_unavailable"
	CodePreferenceWriteFailed = "preference_write_failed"
	CodeUnavailable           = "unavailable"
	CodeTimeout               = "timeout"
	CodeInternal              = "internal_error"
)

// ErrorBody is the JSON error payload.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorBody{Error: code, Detail: detail})
}

// classify maps domain errors to a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, quality.ErrInvalidQualityLevel):
		return http.StatusUnprocessableEntity, CodeInvalidQualityLevel
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict, CodeSessionClosed
	case errors.Is(err, preference.ErrInvalidClientID):
		return http.StatusBadRequest, CodeInvalidClientID
	case errors.Is(err, media.ErrInvalidKey):
		return http.StatusBadRequest, CodeInvalidMediaKey
	case errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound, CodeMediaNotFound
	case errors.Is(err, quality.ErrApplyTuning):
		return http.StatusBadGateway, CodePlayerUnavailable
	case errors.Is(err, quality.ErrPreferenceWrite):
		return http.StatusServiceUnavailable, CodePreferenceWriteFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError writes err through classify. Server errors are logged and
// their text is not exposed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.FromContext(r.Context()).Error().Err(err).
			Str(log.FieldEvent, "api.error").
			Str("code", code).
			Msg("request failed")
		if status == http.StatusInternalServerError {
			detail = ""
		}
	}
	writeError(w, status, code, detail)
}
