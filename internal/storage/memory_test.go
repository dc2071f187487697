package storage

import (
	"context"
	"testing"
	"time"

	"armts/internal/archive"
	"armts/internal/model"
)

func sampleRun(id string, created time.Time, fitness ...float64) RunRecord {
	entries := make([]archive.Entry, 0, len(fitness))
	for _, f := range fitness {
		entries = append(entries, archive.Entry{
			Fitness:    f,
			Antecedent: model.Rule{model.CategoricalCondition("weather", "sun")},
			Consequent: model.Rule{model.NumericalCondition("temperature", 20, 24.5)},
			Window:     model.TimeWindow(created, created.Add(time.Minute)),
		})
	}
	run := NewRunRecord(RunConfig{Dataset: "september24", Mode: model.TimeSeriesMode, Population: 10, Iterations: 5}, 50, entries)
	run.ID = id
	run.CreatedAt = created
	return run
}

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := sampleRun("run-1", time.Now().UTC(), 0.4, 0.2)
	if err := store.SaveRun(ctx, input); err != nil {
		t.Fatalf("save run: %v", err)
	}
	input.Rules[0].Fitness = 99

	output, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if len(output.Rules) != 2 || output.Rules[0].Fitness != 0.4 {
		t.Fatalf("unexpected run rules: %+v", output.Rules)
	}
	if output.BestFitness != 0.4 || output.Config.Dataset != "september24" {
		t.Fatalf("unexpected run: %+v", output)
	}

	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}
}

func TestMemoryStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	now := time.Date(2024, 9, 18, 13, 0, 0, 0, time.UTC)
	for _, run := range []RunRecord{
		sampleRun("old", now.Add(-time.Hour), 0.1),
		sampleRun("tie-first", now, 0.2),
		sampleRun("tie-second", now, 0.3, 0.1),
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	got := []string{runs[0].ID, runs[1].ID, runs[2].ID}
	want := []string{"tie-second", "tie-first", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: got=%v want=%v", got, want)
		}
	}
	if runs[0].RuleCount != 2 || runs[0].BestFitness != 0.3 {
		t.Fatalf("unexpected summary: %+v", runs[0])
	}
}

func TestMemoryStoreRejectsInvalidRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.SaveRun(ctx, sampleRun("early", time.Now(), 0.1)); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("", time.Now(), 0.1)); err != ErrMissingRunID {
		t.Fatalf("expected missing id error, got %v", err)
	}
	stale := sampleRun("stale", time.Now(), 0.1)
	stale.SchemaVersion = 0
	if err := store.SaveRun(ctx, stale); err != ErrVersionMismatch {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}
