// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package quality

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Level is a quality tier expressed as vertical resolution.
type Level int

// String renders the level the way players label it ("720p").
func (l Level) String() string {
	return strconv.Itoa(int(l)) + "p"
}

// ParseLevel accepts "720" and "720p".
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "p")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQualityLevel, s)
	}
	return Level(n), nil
}

// Preload is the player's preload hint.
type Preload string

const (
	PreloadMetadata Preload = "metadata"
	PreloadAuto     Preload = "auto"
)

// ParsePreload validates a configured preload strategy.
func ParsePreload(s string) (Preload, error) {
	switch p := Preload(strings.ToLower(strings.TrimSpace(s))); p {
	case PreloadMetadata, PreloadAuto:
		return p, nil
	default:
		return "", fmt.Errorf("unknown preload strategy %q (supported: metadata, auto)", s)
	}
}

// Tuning is derived from a Level and never stored on its own.
type Tuning struct {
	Preload             Preload `json:"preload"`
	TargetBufferSeconds int     `json:"target_buffer_seconds"`
}

// Entry is one row of a quality table.
type Entry struct {
	Level  Level
	Tuning Tuning
}

// Table is the immutable, ordered set of selectable levels.
type Table struct {
	levels  []Level
	tunings map[Level]Tuning
	def     Level
}

var errEmptyTable = errors.New("quality table has no levels")

// NewTable validates entries and builds a table ordered by ascending level.
func NewTable(entries []Entry, def Level) (*Table, error) {
	if len(entries) == 0 {
		return nil, errEmptyTable
	}
	t := &Table{tunings: make(map[Level]Tuning, len(entries)), def: def}
	for _, e := range entries {
		if e.Level <= 0 {
			return nil, fmt.Errorf("quality level %d must be positive", e.Level)
		}
		if _, dup := t.tunings[e.Level]; dup {
			return nil, fmt.Errorf("quality level %d listed twice", e.Level)
		}
		if _, err := ParsePreload(string(e.Tuning.Preload)); err != nil {
			return nil, fmt.Errorf("quality level %d: %w", e.Level, err)
		}
		if e.Tuning.TargetBufferSeconds <= 0 {
			return nil, fmt.Errorf("quality level %d: target buffer must be positive, got %d", e.Level, e.Tuning.TargetBufferSeconds)
		}
		t.tunings[e.Level] = e.Tuning
		t.levels = append(t.levels, e.Level)
	}
	slices.Sort(t.levels)
	if _, ok := t.tunings[def]; !ok {
		return nil, fmt.Errorf("default quality level %d is not in the table %v", def, t.levels)
	}
	return t, nil
}

// DefaultLevel is the starting level when no user override is stored.
const DefaultLevel Level = 720

// DefaultEntries is the stock tuning table.
func DefaultEntries() []Entry {
	return []Entry{
		{Level: 360, Tuning: Tuning{Preload: PreloadAuto, TargetBufferSeconds: 15}},
		{Level: 480, Tuning: Tuning{Preload: PreloadAuto, TargetBufferSeconds: 20}},
		{Level: 720, Tuning: Tuning{Preload: PreloadMetadata, TargetBufferSeconds: 25}},
		{Level: 1080, Tuning: Tuning{Preload: PreloadMetadata, TargetBufferSeconds: 30}},
	}
}

// DefaultTable returns the stock table with DefaultLevel as default.
func DefaultTable() *Table {
	t, err := NewTable(DefaultEntries(), DefaultLevel)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the tuning for a level.
func (t *Table) Lookup(l Level) (Tuning, bool) {
	tu, ok := t.tunings[l]
	return tu, ok
}

// Contains reports whether l is selectable.
func (t *Table) Contains(l Level) bool {
	_, ok := t.tunings[l]
	return ok
}

// Levels returns the levels in ascending order.
func (t *Table) Levels() []Level {
	return slices.Clone(t.levels)
}

// Default returns the default level.
func (t *Table) Default() Level { return t.def }
