// Package deps records which objects depend on which, and why.
//
// An edge from A to B means "B becomes outdated when A changes", with Props
// describing which facets of A are relevant. Recording "src depends on dst"
// therefore adds the edge dst -> src.
package deps

import (
	"context"

	"sitebuild/internal/core"
	"sitebuild/internal/graph"
	"sitebuild/internal/store"
)

// StoreVersion is the persisted layout version of the dependency store.
const StoreVersion = 5

// Dependency is a reconstructed edge. From is nil when the object it
// referred to no longer exists.
type Dependency struct {
	From  core.Object
	To    core.Object
	Props Props
}

// Store is the persisted dependency graph.
type Store struct {
	file *store.File

	items   *core.ItemCollection
	layouts *core.LayoutCollection
	config  *core.Configuration

	objects    map[core.Reference]core.Object
	graph      *graph.Directed[core.Reference, *Props]
	newObjects map[core.Reference]bool
}

type persistedEdge struct {
	From  int    `msgpack:"from"`
	To    int    `msgpack:"to"`
	Props *Props `msgpack:"props"`
}

type persistedGraph struct {
	Vertices []string        `msgpack:"vertices"`
	Edges    []persistedEdge `msgpack:"edges"`
}

// NewStore returns a dependency store at path for the given site objects.
// Until Load is called every object counts as new.
func NewStore(path string, items *core.ItemCollection, layouts *core.LayoutCollection, config *core.Configuration) *Store {
	s := &Store{
		file:    store.NewFile(path, StoreVersion),
		items:   items,
		layouts: layouts,
		config:  config,
		objects: map[core.Reference]core.Object{},
	}
	var refs []core.Reference
	add := func(o core.Object) {
		s.objects[o.Reference()] = o
		refs = append(refs, o.Reference())
	}
	for _, it := range items.All() {
		add(it)
	}
	for _, l := range layouts.All() {
		add(l)
	}
	add(config)
	add(items)
	add(layouts)

	s.graph = graph.New[core.Reference, *Props](refs...)
	s.resetNewObjects(nil)
	return s
}

func (s *Store) Name() string { return s.file.Name() }

func (s *Store) resetNewObjects(previous map[core.Reference]bool) {
	s.newObjects = map[core.Reference]bool{}
	for ref := range s.objects {
		if !previous[ref] {
			s.newObjects[ref] = true
		}
	}
}

// Load replaces the graph with the persisted one and classifies objects
// that were not part of it as new.
func (s *Store) Load(ctx context.Context) error {
	var pg persistedGraph
	ok, err := s.file.Load(ctx, &pg)
	if err != nil {
		return err
	}
	if !ok {
		pg = persistedGraph{}
	}

	previous := make(map[core.Reference]bool, len(pg.Vertices))
	refs := make([]core.Reference, len(pg.Vertices))
	for i, v := range pg.Vertices {
		ref, err := core.ParseReference(v)
		if err != nil {
			continue
		}
		refs[i] = ref
		previous[ref] = true
	}

	g := graph.New[core.Reference, *Props]()
	for _, o := range s.orderedObjects() {
		g.AddVertex(o.Reference())
	}
	for _, e := range pg.Edges {
		if e.From < 0 || e.From >= len(refs) || e.To < 0 || e.To >= len(refs) {
			continue
		}
		from, to := refs[e.From], refs[e.To]
		if from.IsZero() || to.IsZero() {
			continue
		}
		g.AddEdge(from, to, e.Props)
	}
	s.graph = g
	s.resetNewObjects(previous)
	return nil
}

// Store persists the graph. Vertices that are neither current objects nor
// part of an edge are dropped.
func (s *Store) Store(ctx context.Context) error {
	edges := s.graph.Edges()
	keep := map[core.Reference]bool{}
	for ref := range s.objects {
		keep[ref] = true
	}
	for _, e := range edges {
		keep[e.From] = true
		keep[e.To] = true
	}

	var pg persistedGraph
	index := map[core.Reference]int{}
	for _, v := range s.graph.Vertices() {
		if !keep[v] {
			continue
		}
		index[v] = len(pg.Vertices)
		pg.Vertices = append(pg.Vertices, v.String())
	}
	for _, e := range edges {
		pg.Edges = append(pg.Edges, persistedEdge{From: index[e.From], To: index[e.To], Props: e.Props})
	}
	return s.file.Save(pg)
}

func (s *Store) orderedObjects() []core.Object {
	var out []core.Object
	for _, it := range s.items.All() {
		out = append(out, it)
	}
	for _, l := range s.layouts.All() {
		out = append(out, l)
	}
	return append(out, s.config, s.items, s.layouts)
}

// RecordDependency records that src depends on dst with the given props,
// merging them into any existing edge. A dependency of an object on itself
// is ignored.
func (s *Store) RecordDependency(src, dst core.Object, props Props) {
	srcRef, dstRef := src.Reference(), dst.Reference()
	if srcRef == dstRef {
		return
	}
	if existing, ok := s.graph.PropsFor(dstRef, srcRef); ok {
		if existing == nil {
			props = AllProps()
		} else {
			props = existing.Merge(props)
		}
	}
	p := props
	s.graph.AddEdge(dstRef, srcRef, &p)
}

// DependenciesCausingOutdatednessOf returns every recorded dependency of
// obj. Edges persisted without props count as depending on every facet.
func (s *Store) DependenciesCausingOutdatednessOf(obj core.Object) []Dependency {
	ref := obj.Reference()
	preds := s.graph.DirectPredecessorsOf(ref)
	out := make([]Dependency, 0, len(preds))
	for _, p := range preds {
		props := AllProps()
		if stored, ok := s.graph.PropsFor(p, ref); ok && stored != nil {
			props = *stored
		}
		out = append(out, Dependency{From: s.objects[p], To: obj, Props: props})
	}
	return out
}

// ForgetDependenciesFor removes every dependency of obj. Dependencies of
// other objects on obj are kept.
func (s *Store) ForgetDependenciesFor(obj core.Object) {
	s.graph.DeleteEdgesTo(obj.Reference())
}

// IsNew reports whether obj was absent from the persisted graph.
func (s *Store) IsNew(obj core.Object) bool { return s.newObjects[obj.Reference()] }

// NewItems returns the items absent from the persisted graph.
func (s *Store) NewItems() []*core.Item {
	var out []*core.Item
	for _, it := range s.items.All() {
		if s.newObjects[it.Reference()] {
			out = append(out, it)
		}
	}
	return out
}

// NewLayouts returns the layouts absent from the persisted graph.
func (s *Store) NewLayouts() []*core.Layout {
	var out []*core.Layout
	for _, l := range s.layouts.All() {
		if s.newObjects[l.Reference()] {
			out = append(out, l)
		}
	}
	return out
}
