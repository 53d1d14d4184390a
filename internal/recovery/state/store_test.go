package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveAndLoadRun_IncludesNullablePreviousRunID(t *testing.T) {
	base := t.TempDir()
	store, err := NewStore(base)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	run := Run{
		RunID:        "run-123",
		SiteChecksum: "sc-abc",
		StartTime:    time.Unix(1, 2).UTC(),
		Status:       RunStatusRunning,
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "run-123", "run.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "\"previous_run_id\": null") {
		t.Fatalf("expected previous_run_id to be null; got: %s", string(data))
	}

	loaded, err := store.LoadRun("run-123")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loaded.RunID != run.RunID || loaded.SiteChecksum != run.SiteChecksum {
		t.Fatalf("loaded run mismatch: %+v", loaded)
	}
	if loaded.PreviousRunID != nil {
		t.Fatalf("expected PreviousRunID nil; got %v", *loaded.PreviousRunID)
	}
}

func TestStore_RejectsUnknownFields(t *testing.T) {
	base := t.TempDir()
	store, _ := NewStore(base)
	path := filepath.Join(base, "r1", "run.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data := `{"run_id":"r1","site_checksum":"x","start_time":"2024-01-01T00:00:00Z","retry_count":0,"status":"running","previous_run_id":null,"outdated":0,"modified":0,"extra":1}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadRun("r1"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestStore_LatestAndPrune(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	for i, id := range []string{"c", "a", "b"} {
		run := Run{RunID: id, SiteChecksum: "x", StartTime: time.Unix(int64(i+1), 0).UTC(), Status: RunStatusSucceeded}
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	latest, ok, err := store.Latest()
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if latest.RunID != "b" {
		t.Fatalf("expected latest run b, got %s", latest.RunID)
	}

	if err := store.Prune(2); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	ids, err := store.ListRunIDs()
	if err != nil {
		t.Fatalf("ListRunIDs: %v", err)
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Fatalf("expected runs a,b to survive, got %v", ids)
	}
}

func TestStore_LoadFailure_Missing(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	_, ok, err := store.LoadFailure("nope")
	if err != nil || ok {
		t.Fatalf("expected no failure, got ok=%v err=%v", ok, err)
	}
}
