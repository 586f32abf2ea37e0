package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kelrin/schrun/harness"
	"github.com/kelrin/schrun/schbench"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, path
}

func testReport(id, name string) *harness.Report {
	metrics := schbench.ParseOutput([]string{
		"Wakeup Latencies percentiles (usec) runtime 5 (s)",
		"	  50.0th: 11         (1000 samples)",
		"	  min=1, max=691",
		"average rps: 1414.63",
	})

	return &harness.Report{
		RunID:     id,
		Name:      name,
		StartedAt: time.Date(2026, 8, 25, 10, 0, 0, 123456789, time.UTC),
		Command:   "/usr/bin/schbench -m 1 -t 1",
		Params:    schbench.DefaultParams(),
		Host:      harness.Host{Hostname: "bench1", CPUs: 8, OS: "linux", Arch: "amd64"},
		WallMs:    5100,
		UserMs:    4000,
		SystemMs:  900,
		Metrics:   metrics,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	saved := testReport("run-1", "default")
	if err := store.SaveRun(ctx, saved); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loaded, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}

	if loaded.Name != "default" {
		t.Errorf("name = %q, want default", loaded.Name)
	}
	if loaded.Command != saved.Command {
		t.Errorf("command = %q, want %q", loaded.Command, saved.Command)
	}
	if !loaded.StartedAt.Equal(saved.StartedAt) {
		t.Errorf("started_at = %v, want %v", loaded.StartedAt, saved.StartedAt)
	}
	if loaded.WallMs != 5100 || loaded.UserMs != 4000 || loaded.SystemMs != 900 {
		t.Errorf("timings = %d/%d/%d", loaded.WallMs, loaded.UserMs, loaded.SystemMs)
	}
	if loaded.Host.Hostname != "bench1" {
		t.Errorf("hostname = %q", loaded.Host.Hostname)
	}
	if loaded.Params.CacheFootprint != 256 {
		t.Errorf("cache_footprint = %d, want 256", loaded.Params.CacheFootprint)
	}

	// Metrics round-trip through JSON as generic structures.
	if got, ok := loaded.Metrics.AverageRPS(); !ok || got != 1414.63 {
		t.Errorf("average_rps = %v (%v), want 1414.63", got, ok)
	}

	wakeup, ok := loaded.Metrics[schbench.KeyWakeupLatencies].(map[string]any)
	if !ok {
		t.Fatalf("wakeup block missing: %v", loaded.Metrics)
	}
	entries := wakeup["percentiles"].([]any)
	if len(entries) != 1 {
		t.Fatalf("percentiles = %d, want 1", len(entries))
	}
	if lat := entries[0].(map[string]any)["latency"]; lat != "11" {
		t.Errorf("latency = %v, want the string 11", lat)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store, _ := openStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, testReport("dup", "a")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveRun(ctx, testReport("dup", "b")); err == nil {
		t.Error("expected primary key violation for duplicate run id")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.SaveRun(ctx, testReport(id, "default")); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	if runs[0].RunID != "run-3" || runs[2].RunID != "run-1" {
		t.Errorf("order = %s..%s, want newest first", runs[0].RunID, runs[2].RunID)
	}
}

func TestListRunsLimit(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := store.SaveRun(ctx, testReport(id, "default")); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-3" {
		t.Errorf("first = %s, want run-3", runs[0].RunID)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.SaveRun(ctx, testReport("run-1", "default")); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" {
		t.Errorf("runs = %v, want the archived run", runs)
	}
}
