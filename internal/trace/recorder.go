package trace

import (
	"errors"
	"sync"

	"sitebuild/internal/compile"
	"sitebuild/internal/events"
	"sitebuild/internal/store"
)

// Collector is an events.Sink that turns lifecycle events into decisions.
type Collector struct {
	mu sync.Mutex

	filters   map[string][]string
	cached    map[string]bool
	written   map[string][]string
	unchanged map[string][]string
	deps      map[[2]string]bool
	failed    map[string]bool
	aborted   []string
}

var _ events.Sink = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		filters:   map[string][]string{},
		cached:    map[string]bool{},
		written:   map[string][]string{},
		unchanged: map[string][]string{},
		deps:      map[[2]string]bool{},
		failed:    map[string]bool{},
	}
}

func (c *Collector) Emit(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case events.FilteringStarted:
		c.filters[e.Rep] = append(c.filters[e.Rep], e.Subject)
	case events.CachedContentUsed:
		c.cached[e.Rep] = true
	case events.RepWriteEnded:
		if e.Modified {
			c.written[e.Rep] = append(c.written[e.Rep], e.Target)
		} else {
			c.unchanged[e.Rep] = append(c.unchanged[e.Rep], e.Target)
		}
	case events.DependencyCreated:
		c.deps[[2]string{e.Rep, e.Target}] = true
	case events.StageAborted:
		c.aborted = append(c.aborted, e.Subject)
		var ce *compile.CompilationError
		if errors.As(e.Err, &ce) {
			c.failed[ce.Rep.Reference().String()] = true
		}
	}
}

// Trace returns the canonical trace of everything collected so far.
func (c *Collector) Trace(site string) BuildTrace {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := BuildTrace{Site: site}
	for rep, fs := range c.filters {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionRepCompiled, Rep: rep, Filters: append([]string(nil), fs...)})
	}
	for rep := range c.cached {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionRepCached, Rep: rep})
	}
	for rep, paths := range c.written {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionRepWritten, Rep: rep, Paths: append([]string(nil), paths...)})
	}
	for rep, paths := range c.unchanged {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionRepUnchanged, Rep: rep, Paths: append([]string(nil), paths...)})
	}
	for edge := range c.deps {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionDependencyRecorded, Rep: edge[0], Cause: edge[1]})
	}
	for rep := range c.failed {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionRepFailed, Rep: rep})
	}
	for _, stage := range c.aborted {
		t.Decisions = append(t.Decisions, Decision{Kind: DecisionStageAborted, Cause: stage})
	}
	t.Canonicalize()
	return t
}

// WriteFile writes the canonical JSON of t to path.
func WriteFile(path string, t BuildTrace) error {
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(path, append(b, '\n'), 0o644)
}
