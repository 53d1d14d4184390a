package compile

import (
	"context"
	"fmt"

	"sitebuild/internal/core"
	"sitebuild/internal/deps"
	"sitebuild/internal/filters"
)

// viewContext is what filters see while rep is being compiled.
type viewContext struct {
	ctx            context.Context
	env            *Env
	rep            *core.ItemRep
	layoutContent  string
	outputFilename string
}

var _ filters.Context = (*viewContext)(nil)

func (v *viewContext) Item() filters.ItemView   { return &itemView{v: v, item: v.rep.Item()} }
func (v *viewContext) Rep() filters.RepView     { return &repView{v: v, rep: v.rep} }
func (v *viewContext) Items() filters.ItemsView { return &itemsView{v: v} }
func (v *viewContext) LayoutContent() string    { return v.layoutContent }
func (v *viewContext) OutputFilename() string   { return v.outputFilename }

func (v *viewContext) Config(key string) any {
	v.env.Tracker.Bounce(v.env.Config, deps.Props{Attributes: deps.Keys(key)})
	val, _ := v.env.Config.Get(key)
	return val
}

// await suspends until the snapshot of rep can be read. Moving snapshots
// are final only once the rep is compiled; other snapshots can be read as
// soon as they exist.
func (v *viewContext) await(rep *core.ItemRep, snapshot string) error {
	for !v.available(rep, snapshot) {
		if err := suspend(v.ctx, rep, snapshot); err != nil {
			return err
		}
	}
	return nil
}

func (v *viewContext) available(rep *core.ItemRep, snapshot string) bool {
	if rep.Compiled() {
		return true
	}
	name := v.env.Contents.SnapshotName(rep, snapshot)
	if core.IsMovingSnapshot(name) {
		return false
	}
	_, ok := v.env.Contents.Get(rep, name)
	return ok
}

type itemView struct {
	v    *viewContext
	item *core.Item
}

func (i *itemView) Identifier() string { return i.item.Identifier().String() }

func (i *itemView) Attribute(key string) any {
	i.v.env.Tracker.Bounce(i.item, deps.Props{Attributes: deps.Keys(key)})
	val, _ := i.item.Attribute(key)
	return val
}

func (i *itemView) RawContent() (string, error) {
	i.v.env.Tracker.Bounce(i.item, deps.Props{RawContent: deps.Yes})
	return core.ContentString(i.item.Content())
}

func (i *itemView) Rep(name string) (filters.RepView, error) {
	rep, ok := i.v.env.Reps.Get(i.item, name)
	if !ok {
		return nil, fmt.Errorf("%s has no rep named %q", i.item, name)
	}
	return &repView{v: i.v, rep: rep}, nil
}

func (i *itemView) CompiledContent(snapshot string) (string, error) {
	rep, err := i.Rep("default")
	if err != nil {
		return "", err
	}
	return rep.CompiledContent(snapshot)
}

func (i *itemView) Path() (string, error) {
	rep, err := i.Rep("default")
	if err != nil {
		return "", err
	}
	return rep.Path("")
}

type repView struct {
	v   *viewContext
	rep *core.ItemRep
}

func (r *repView) Name() string { return r.rep.Name() }

func (r *repView) CompiledContent(snapshot string) (string, error) {
	r.v.env.Tracker.Bounce(r.rep.Item(), deps.Props{CompiledContent: deps.Yes})
	if err := r.v.await(r.rep, snapshot); err != nil {
		return "", err
	}
	return r.v.env.Contents.CompiledContent(r.rep, snapshot)
}

func (r *repView) Path(snapshot string) (string, error) {
	r.v.env.Tracker.Bounce(r.rep.Item(), deps.Props{Path: deps.Yes})
	if snapshot == "" {
		snapshot = core.SnapshotLast
	}
	return r.rep.Path(snapshot), nil
}

func (r *repView) RawPath(snapshot string) (string, error) {
	r.v.env.Tracker.Bounce(r.rep.Item(), deps.Props{CompiledContent: deps.Yes})
	if snapshot == "" {
		snapshot = core.SnapshotLast
	}
	if err := r.v.await(r.rep, snapshot); err != nil {
		return "", err
	}
	return r.rep.RawPath(snapshot), nil
}

type itemsView struct {
	v *viewContext
}

func (s *itemsView) Find(pattern string) (filters.ItemView, bool) {
	s.v.env.Tracker.Bounce(s.v.env.Items, deps.Props{RawContent: deps.Keys(pattern)})
	it, ok := s.v.env.Items.Find(pattern)
	if !ok {
		return nil, false
	}
	return &itemView{v: s.v, item: it}, true
}

func (s *itemsView) FindAll(pattern string) []filters.ItemView {
	s.v.env.Tracker.Bounce(s.v.env.Items, deps.Props{RawContent: deps.Keys(pattern)})
	var out []filters.ItemView
	for _, it := range s.v.env.Items.FindAll(pattern) {
		out = append(out, &itemView{v: s.v, item: it})
	}
	return out
}
