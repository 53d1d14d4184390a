package compile

import (
	"context"
	"errors"
	"testing"

	"sitebuild/internal/actions"
	"sitebuild/internal/core"
)

func newReps(names ...string) map[string]*core.ItemRep {
	out := map[string]*core.ItemRep{}
	for _, n := range names {
		out[n] = core.NewItemRep(core.NewItem(nil, nil, core.MustIdentifier("/"+n)), "default")
	}
	return out
}

func TestSelector_OrderWithoutDependencies(t *testing.T) {
	reps := newReps("a", "b", "c")
	var got []string
	err := NewSelector([]*core.ItemRep{reps["a"], reps["b"], reps["c"]}).Each(context.Background(), func(_ context.Context, rep *core.ItemRep) error {
		got = append(got, rep.Item().Identifier().String())
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if want := []string{"/a", "/b", "/c"}; !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

// The callback reports an unmet dependency without a fiber, the way a
// restartable unit of work would.
func TestSelector_DeferredRepRunsAfterDependency(t *testing.T) {
	reps := newReps("a", "b", "c", "d")
	needs := map[*core.ItemRep]*core.ItemRep{reps["a"]: reps["c"], reps["c"]: reps["d"]}
	done := map[*core.ItemRep]bool{}

	var completed []string
	err := NewSelector([]*core.ItemRep{reps["a"], reps["b"], reps["c"], reps["d"]}).Each(context.Background(), func(_ context.Context, rep *core.ItemRep) error {
		if dep, ok := needs[rep]; ok && !done[dep] {
			return &CompilationError{Rep: rep, Err: &UnmetDependencyError{Rep: dep, Snapshot: core.SnapshotLast}}
		}
		done[rep] = true
		completed = append(completed, rep.Item().Identifier().String())
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if want := []string{"/d", "/c", "/a", "/b"}; !equalStrings(completed, want) {
		t.Fatalf("completed = %v, want %v", completed, want)
	}
}

func TestSelector_SelfDependencyIsCycle(t *testing.T) {
	reps := newReps("a")
	err := NewSelector([]*core.ItemRep{reps["a"]}).Each(context.Background(), func(_ context.Context, rep *core.ItemRep) error {
		return &UnmetDependencyError{Rep: rep}
	})
	var cycle *DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if len(cycle.Cycle) != 2 || cycle.Cycle[0] != reps["a"] || cycle.Cycle[1] != reps["a"] {
		t.Fatalf("cycle = %v", cycle.Cycle)
	}
}

func TestSelector_CancellationStopsBetweenReps(t *testing.T) {
	reps := newReps("a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	err := NewSelector([]*core.ItemRep{reps["a"], reps["b"], reps["c"]}).Each(ctx, func(_ context.Context, rep *core.ItemRep) error {
		got = append(got, rep.Item().Identifier().String())
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if want := []string{"/a"}; !equalStrings(got, want) {
		t.Fatalf("ran = %v, want %v", got, want)
	}
}

func TestSelector_OtherErrorsStop(t *testing.T) {
	reps := newReps("a", "b")
	boom := errors.New("boom")
	calls := 0
	err := NewSelector([]*core.ItemRep{reps["a"], reps["b"]}).Each(context.Background(), func(context.Context, *core.ItemRep) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRouter_DuplicatePath(t *testing.T) {
	reps := newReps("a.md", "b.md")
	seqs := sequences{}
	for _, rep := range reps {
		seq, err := actions.NewBuilder(rep.String(), false, nil).AddSnapshot(core.SnapshotLast, "/out.html").Build()
		if err != nil {
			t.Fatal(err)
		}
		seqs[rep.Reference()] = seq
	}
	err := (&Router{OutputDir: t.TempDir()}).Route([]*core.ItemRep{reps["a.md"], reps["b.md"]}, seqs)
	var dup *DuplicateOutputPathError
	if !errors.As(err, &dup) {
		t.Fatalf("expected duplicate path error, got %v", err)
	}
}

func TestRouter_PathsAndSnapshotDefs(t *testing.T) {
	reps := newReps("blog.md")
	rep := reps["blog.md"]
	seq, err := actions.NewBuilder(rep.String(), false, nil).
		AddSnapshot(core.SnapshotRaw, "").
		AddSnapshot(core.SnapshotLast, "/blog/index.html").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()
	r := &Router{OutputDir: out, IndexFilenames: []string{"index.html"}}
	if err := r.Route([]*core.ItemRep{rep}, sequences{rep.Reference(): seq}); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if got := rep.Path(core.SnapshotLast); got != "/blog/" {
		t.Fatalf("path = %q", got)
	}
	if got, want := rep.RawPath(core.SnapshotLast), out+"/blog/index.html"; got != want {
		t.Fatalf("raw path = %q, want %q", got, want)
	}
	if !rep.HasSnapshot(core.SnapshotRaw) || rep.HasSnapshot(core.SnapshotPre) {
		t.Fatalf("snapshot defs = %v", rep.SnapshotDefs())
	}

	bad, _ := actions.NewBuilder(rep.String(), false, nil).AddSnapshot(core.SnapshotLast, "nope.html").Build()
	other := newReps("x")["x"]
	if err := r.Route([]*core.ItemRep{other}, sequences{other.Reference(): bad}); !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("expected invalid route, got %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
