//go:build sqlite

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "armts.db")

	store, err := Open(ctx, "sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseIfSupported(store)
	})

	now := time.Date(2024, 9, 18, 13, 0, 0, 0, time.UTC)
	for _, run := range []RunRecord{
		sampleRun("old", now.Add(-time.Hour), 0.1),
		sampleRun("new", now, 0.6, 0.3),
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	loaded, ok, err := store.GetRun(ctx, "new")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || len(loaded.Rules) != 2 || loaded.BestFitness != 0.6 {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "armts.db"))
	if err := store.SaveRun(context.Background(), sampleRun("x", time.Now(), 0.1)); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestSQLiteStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "armts.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = CloseIfSupported(store)
	})

	stale := sampleRun("stale", time.Now(), 0.2)
	stale.CodecVersion = CurrentCodecVersion + 1
	if err := store.SaveRun(ctx, stale); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("stale run was stored: %+v", runs)
	}
}
