package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sitebuild/internal/actions"
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
	"sitebuild/internal/events"
	"sitebuild/internal/filters"
)

// executor applies the actions of one rep to its current content.
type executor struct {
	env *Env
	rep *core.ItemRep
}

func (e *executor) Run(ctx context.Context, a actions.Action) error {
	switch a := a.(type) {
	case actions.Filter:
		return e.Filter(ctx, a.Name, a.Params)
	case actions.Layout:
		return e.Layout(ctx, a.Identifier, a.Params)
	case actions.Snapshot:
		return e.Snapshot(a.Names)
	default:
		return core.Inconsistency("unknown action %T", a)
	}
}

func (e *executor) current() (core.Content, error) {
	c, ok := e.env.Contents.Current(e.rep)
	if !ok {
		return nil, core.Inconsistency("%s has no current content", e.rep)
	}
	return c, nil
}

func (e *executor) Filter(ctx context.Context, name string, params map[string]any) error {
	f, err := e.env.Filters.Get(name)
	if err != nil {
		return err
	}
	last, err := e.current()
	if err != nil {
		return err
	}
	if last.Binary() && !f.FromBinary {
		return errorf(ErrCannotUseBinaryFilter, "filter %q on %s", name, e.rep)
	}
	if !last.Binary() && f.FromBinary {
		return errorf(ErrCannotUseTextualFilter, "filter %q on %s", name, e.rep)
	}

	in := filters.Input{Binary: last.Binary(), Filename: last.Filename()}
	if !last.Binary() {
		if in.Text, err = core.ContentString(last); err != nil {
			return err
		}
	}
	fc := &viewContext{ctx: ctx, env: e.env, rep: e.rep}
	if f.ToBinary {
		if fc.outputFilename, err = e.binaryOutputFilename(); err != nil {
			return err
		}
	}

	out, err := e.runFilter(f, fc, in, params)
	if err != nil {
		return err
	}

	var next core.Content
	if f.ToBinary {
		if _, err := os.Stat(fc.outputFilename); err != nil {
			return errorf(ErrOutputNotWritten, "filter %q on %s: %s", name, e.rep, fc.outputFilename)
		}
		next = core.NewBinaryContent(fc.outputFilename)
	} else {
		next = core.NewTextualContent(out, "")
	}
	e.env.Contents.SetCurrent(e.rep, next)
	return nil
}

func (e *executor) Layout(ctx context.Context, identifier string, params map[string]any) error {
	layout, ok := e.env.Layouts.Find(identifier)
	if !ok {
		return errorf(ErrUnknownLayout, "%q (used by %s)", identifier, e.rep)
	}
	filterName, filterParams, ok := e.env.LayoutFilters.FilterForLayout(layout)
	if !ok {
		return errorf(ErrUndefinedFilterForLayout, "%s", layout)
	}
	f, err := e.env.Filters.Get(filterName)
	if err != nil {
		return err
	}

	last, err := e.current()
	if err != nil {
		return err
	}
	if last.Binary() {
		return errorf(ErrCannotLayoutBinaryItem, "%s", e.rep)
	}
	if _, ok := e.env.Contents.Get(e.rep, core.SnapshotPre); !ok {
		if err := e.Snapshot([]string{core.SnapshotPre}); err != nil {
			return err
		}
	}

	e.env.Tracker.Bounce(layout, deps.Props{RawContent: deps.Yes})
	text, err := core.ContentString(last)
	if err != nil {
		return err
	}
	src, err := core.ContentString(layout.Content())
	if err != nil {
		return err
	}

	merged := make(map[string]any, len(filterParams)+len(params))
	for k, v := range filterParams {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	fc := &viewContext{ctx: ctx, env: e.env, rep: e.rep, layoutContent: text}
	out, err := e.runFilter(f, fc, filters.Input{Text: src, Filename: layout.Content().Filename()}, merged)
	if err != nil {
		return fmt.Errorf("layout %s: %w", layout.Identifier(), err)
	}
	e.env.Contents.SetCurrent(e.rep, core.NewTextualContent(out, ""))
	return nil
}

func (e *executor) Snapshot(names []string) error {
	c, err := e.current()
	if err != nil {
		return err
	}
	for _, name := range names {
		e.env.Contents.Set(e.rep, name, c)
		events.SafeEmit(e.env.sink(), events.Event{Kind: events.SnapshotCreated, Rep: e.rep.Reference().String(), Subject: name})
	}
	return nil
}

func (e *executor) runFilter(f *filters.Filter, fc *viewContext, in filters.Input, params map[string]any) (string, error) {
	ref := e.rep.Reference().String()
	sink := e.env.sink()
	start := time.Now()
	events.SafeEmit(sink, events.Event{Kind: events.FilteringStarted, Rep: ref, Subject: f.Name})
	out, err := f.Run(fc, in, params)
	if errors.Is(err, errFiberAborted) {
		return "", err
	}
	events.SafeEmit(sink, events.Event{Kind: events.FilteringEnded, Rep: ref, Subject: f.Name, Duration: time.Since(start), Err: err})
	return out, err
}

func (e *executor) binaryOutputFilename() (string, error) {
	dir := e.env.TmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, "binary_content")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "filter-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return "", err
	}
	return name, nil
}
