// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_EnablesWAL(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "prefs.sqlite"), DefaultConfig())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	mode, err := JournalMode(ctx, db)
	if err != nil {
		t.Fatalf("JournalMode failed: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("expected WAL journal mode, got %q", mode)
	}
}

func TestVerifyIntegrity_HealthyDatabase(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "healthy.sqlite")

	db, err := Open(ctx, dbPath, Config{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := db.Exec("INSERT INTO kv (k, v) VALUES (?, ?);", strings.Repeat("k", i+1), "v"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	_ = db.Close()

	for _, mode := range []CheckMode{CheckQuick, CheckFull} {
		issues, err := VerifyIntegrity(ctx, dbPath, mode)
		if err != nil {
			t.Fatalf("%s: verification failed with system error: %v", mode, err)
		}
		if issues != nil {
			t.Fatalf("%s: unexpected integrity issues: %v", mode, issues)
		}
	}
}
