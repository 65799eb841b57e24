// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package preference

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/playwatch/internal/log"
	"github.com/ManuGH/playwatch/internal/playback/quality"
)

// DefaultKeyPrefix namespaces every key written by playwatch.
const DefaultKeyPrefix = "playwatch:"

const (
	keyManualQuality    = "manual_quality"
	keyPreferredQuality = "preferred_quality"
)

var ErrInvalidClientID = errors.New("invalid client id")

// Repository maps quality preferences onto two keys per client.
type Repository struct {
	store  Store
	prefix string
}

// NewRepository wraps store. An empty prefix selects DefaultKeyPrefix.
func NewRepository(store Store, prefix string) *Repository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repository{store: store, prefix: prefix}
}

// Keys returns the override flag key and the level key of a client.
func (r *Repository) Keys(clientID string) (manual, preferred string) {
	base := r.prefix + clientID + ":"
	return base + keyManualQuality, base + keyPreferredQuality
}

// Load reads a client's preference. found is false when nothing usable is
// stored; malformed values count as absent.
func (r *Repository) Load(ctx context.Context, clientID string) (quality.Preference, bool, error) {
	if err := ValidateClientID(clientID); err != nil {
		return quality.Preference{}, false, err
	}
	manualKey, preferredKey := r.Keys(clientID)

	rawManual, okManual, err := r.store.Get(ctx, manualKey)
	if err != nil {
		return quality.Preference{}, false, fmt.Errorf("load %s: %w", manualKey, err)
	}
	rawLevel, okLevel, err := r.store.Get(ctx, preferredKey)
	if err != nil {
		return quality.Preference{}, false, fmt.Errorf("load %s: %w", preferredKey, err)
	}
	if !okManual && !okLevel {
		return quality.Preference{}, false, nil
	}

	override, err := strconv.ParseBool(strings.TrimSpace(rawManual))
	if okManual && err != nil {
		r.garbage(clientID, manualKey, rawManual)
		return quality.Preference{}, false, nil
	}
	level, err := quality.ParseLevel(rawLevel)
	if !okLevel || err != nil {
		if okLevel {
			r.garbage(clientID, preferredKey, rawLevel)
		}
		return quality.Preference{}, false, nil
	}
	return quality.Preference{Level: level, UserOverride: okManual && override}, true, nil
}

// Save writes both keys, flag first.
func (r *Repository) Save(ctx context.Context, clientID string, p quality.Preference) error {
	if err := ValidateClientID(clientID); err != nil {
		return err
	}
	manualKey, preferredKey := r.Keys(clientID)
	if err := r.store.Set(ctx, manualKey, strconv.FormatBool(p.UserOverride)); err != nil {
		return fmt.Errorf("save %s: %w", manualKey, err)
	}
	if err := r.store.Set(ctx, preferredKey, strconv.Itoa(int(p.Level))); err != nil {
		return fmt.Errorf("save %s: %w", preferredKey, err)
	}
	return nil
}

// Ping checks the underlying store.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// ForClient binds the repository to one client for a quality manager.
func (r *Repository) ForClient(clientID string) quality.PreferenceStore {
	return clientStore{repo: r, clientID: clientID}
}

type clientStore struct {
	repo     *Repository
	clientID string
}

func (c clientStore) Load(ctx context.Context) (quality.Preference, bool, error) {
	return c.repo.Load(ctx, c.clientID)
}

func (c clientStore) Save(ctx context.Context, p quality.Preference) error {
	return c.repo.Save(ctx, c.clientID, p)
}

func (r *Repository) garbage(clientID, key, raw string) {
	logger := log.WithComponent("preference")
	logger.Warn().
		Str(log.FieldEvent, "preference.garbage").
		Str(log.FieldClientID, clientID).
		Str("key", key).
		Str("value", raw).
		Msg("ignoring malformed preference value")
}

// ValidateClientID checks that id is 1-128 printable ASCII characters without ":".
func ValidateClientID(id string) error {
	if id == "" || len(id) > 128 {
		return fmt.Errorf("%w: length must be 1-128", ErrInvalidClientID)
	}
	for _, r := range id {
		if r == ':' || r < 0x21 || r > 0x7e {
			return fmt.Errorf("%w: %q", ErrInvalidClientID, id)
		}
	}
	return nil
}
