// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by playback spans and meters.
const (
	SessionIDKey = "playwatch.session.id"
	ClientIDKey  = "playwatch.client.id"
	MediaKeyKey  = "playwatch.media.key"

	QualityLevelKey   = "playwatch.quality.level"
	QualitySourceKey  = "playwatch.quality.source"
	QualityPersistKey = "playwatch.quality.persist"
	QualityPreloadKey = "playwatch.quality.preload"
	TargetBufferKey   = "playwatch.quality.target_buffer_seconds"

	PreferenceBackendKey = "playwatch.preference.backend"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SessionAttributes describes a playback session. Empty values are omitted.
func SessionAttributes(sessionID, clientID, mediaKey string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if clientID != "" {
		attrs = append(attrs, attribute.String(ClientIDKey, clientID))
	}
	if mediaKey != "" {
		attrs = append(attrs, attribute.String(MediaKeyKey, mediaKey))
	}
	return attrs
}

// QualityAttributes describes a requested level change.
func QualityAttributes(level int, source string, persist bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(QualityLevelKey, level),
		attribute.String(QualitySourceKey, source),
		attribute.Bool(QualityPersistKey, persist),
	}
}

// TuningAttributes describes the player tuning derived from a level.
func TuningAttributes(preload string, targetBufferSeconds int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(QualityPreloadKey, preload),
		attribute.Int(TargetBufferKey, targetBufferSeconds),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
