package state

import (
	"errors"
	"testing"
	"time"

	"sitebuild/internal/compile"
	"sitebuild/internal/core"
)

func newRecorder(t *testing.T) *Recorder {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	tick := time.Unix(1000, 0).UTC()
	return &Recorder{Store: store, now: func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}}
}

func TestRecorder_LinksRetries(t *testing.T) {
	r := newRecorder(t)
	rep := core.NewItemRep(core.NewItem(nil, nil, core.MustIdentifier("/a.md")), "default")

	first, err := r.StartRun(Run{RunID: "r1", SiteChecksum: "s1"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if first.PreviousRunID != nil || first.RetryCount != 0 {
		t.Fatalf("unexpected first run: %+v", first)
	}
	if _, err := r.FinishRun(first, &compile.CompilationError{Rep: rep, Err: errors.New("boom")}); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	res, err := CheckResume(r.Store, "s1")
	if err != nil {
		t.Fatalf("CheckResume: %v", err)
	}
	if res == nil || res.PreviousRunID != "r1" || res.SiteChanged {
		t.Fatalf("expected resume from r1, got %+v", res)
	}
	if res.Failure.Rep == nil || *res.Failure.Rep != rep.Reference().String() {
		t.Fatalf("expected failed rep recorded, got %+v", res.Failure)
	}

	second, err := r.StartRun(Run{RunID: "r2", SiteChecksum: "s2"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if second.PreviousRunID == nil || *second.PreviousRunID != "r1" || second.RetryCount != 1 {
		t.Fatalf("expected retry of r1, got %+v", second)
	}

	// A run left in the running state was interrupted.
	res, err = CheckResume(r.Store, "s1")
	if err != nil {
		t.Fatalf("CheckResume: %v", err)
	}
	if res == nil || res.Failure.ErrorCode != "Interrupted" || !res.SiteChanged {
		t.Fatalf("expected interrupted resume, got %+v", res)
	}

	if _, err := r.FinishRun(second, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	res, err = CheckResume(r.Store, "s2")
	if err != nil || res != nil {
		t.Fatalf("expected no resume after success, got %+v err=%v", res, err)
	}
}

func TestCheckResume_NotResumable(t *testing.T) {
	r := newRecorder(t)
	run, err := r.StartRun(Run{RunID: "r1", SiteChecksum: "s"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	cycle := &compile.DependencyCycleError{}
	if _, err := r.FinishRun(run, cycle); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	res, err := CheckResume(r.Store, "s")
	if err != nil || res != nil {
		t.Fatalf("expected no resume for a cycle, got %+v err=%v", res, err)
	}
}
