// Package compile turns outdated reps into compiled content.
//
// Reps are visited by a Selector. Each rep runs through a stack of phases
// (notify, mark done, write, resume, cache, recalculate); the innermost
// phase executes the rep's action sequence. Filters reading another rep's
// compiled content suspend the current rep until that rep is compiled.
package compile

import (
	"context"
	"errors"

	"sitebuild/internal/actions"
	"sitebuild/internal/content"
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
	"sitebuild/internal/events"
	"sitebuild/internal/filters"
	"sitebuild/internal/outdatedness"
)

// SequenceSource returns the action sequence of a rep or layout.
type SequenceSource interface {
	SequenceFor(obj core.Object) (*actions.Sequence, error)
}

// LayoutFilterSource returns the filter a layout is rendered with.
type LayoutFilterSource interface {
	FilterForLayout(layout *core.Layout) (name string, params map[string]any, ok bool)
}

// Env is everything a compilation run reads and writes.
type Env struct {
	Items   *core.ItemCollection
	Layouts *core.LayoutCollection
	Config  *core.Configuration
	Reps    *core.ItemRepSet

	Sequences     SequenceSource
	LayoutFilters LayoutFilterSource
	Filters       *filters.Registry

	Contents *content.Store
	Cache    *content.Cache
	Tracker  *deps.Tracker
	Outdated *outdatedness.Store

	Sink events.Sink

	// TmpDir holds binary filter output until it is written and cached.
	TmpDir string
}

func (e *Env) sink() events.Sink {
	if e.Sink == nil {
		return events.NopSink{}
	}
	return e.Sink
}

// Reps compiles reps and every rep they turn out to depend on. Reps in the
// outdated store are recompiled; others are restored from the cache when
// possible.
func Reps(ctx context.Context, env *Env, reps []*core.ItemRep) error {
	stack := newPhaseStack(env)
	defer stack.resume.abortAll()

	return NewSelector(reps).Each(ctx, func(ctx context.Context, rep *core.ItemRep) error {
		err := stack.Run(ctx, rep, env.Outdated.Include(rep))
		if err == nil {
			return nil
		}
		var ce *CompilationError
		if errors.As(err, &ce) {
			return err
		}
		return &CompilationError{Rep: rep, Err: err}
	})
}
