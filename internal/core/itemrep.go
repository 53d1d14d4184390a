package core

import (
	"fmt"
	"sort"
)

// Well-known snapshot names.
const (
	SnapshotRaw  = "raw"
	SnapshotPre  = "pre"
	SnapshotPost = "post"
	SnapshotLast = "last"
)

// IsMovingSnapshot reports whether name refers to a snapshot whose content is
// only final once the whole rep has been compiled.
func IsMovingSnapshot(name string) bool {
	switch name {
	case SnapshotLast, SnapshotPre, SnapshotPost:
		return true
	default:
		return false
	}
}

// SnapshotDef describes a snapshot a rep's action sequence will create.
type SnapshotDef struct {
	Name   string
	Binary bool
}

// ItemRep is a named processing pipeline instance of an item.
type ItemRep struct {
	item *Item
	name string

	snapshotDefs    []SnapshotDef
	snapshotDefsSet bool

	rawPaths map[string][]string
	paths    map[string][]string

	compiled bool
	modified bool
}

// NewItemRep returns a rep of item named name.
func NewItemRep(item *Item, name string) *ItemRep {
	return &ItemRep{
		item:     item,
		name:     name,
		rawPaths: map[string][]string{},
		paths:    map[string][]string{},
	}
}

func (r *ItemRep) Item() *Item          { return r.item }
func (r *ItemRep) Name() string         { return r.name }
func (r *ItemRep) Reference() Reference { return ItemRepRef(r.item.Identifier(), r.name) }

func (r *ItemRep) String() string {
	return fmt.Sprintf("%s (rep %s)", r.item.Identifier(), r.name)
}

// SnapshotDefs returns the snapshot definitions established by routing.
func (r *ItemRep) SnapshotDefs() []SnapshotDef {
	out := make([]SnapshotDef, len(r.snapshotDefs))
	copy(out, r.snapshotDefs)
	return out
}

// SetSnapshotDefs records the snapshot definitions of the rep. They can be
// set once per run; setting different definitions afterwards is an internal
// inconsistency.
func (r *ItemRep) SetSnapshotDefs(defs []SnapshotDef) error {
	if r.snapshotDefsSet {
		if !equalSnapshotDefs(r.snapshotDefs, defs) {
			return &Error{Kind: ErrInternalInconsistency, Msg: "snapshot definitions of " + r.String() + " changed during compilation"}
		}
		return nil
	}
	r.snapshotDefs = make([]SnapshotDef, len(defs))
	copy(r.snapshotDefs, defs)
	r.snapshotDefsSet = true
	return nil
}

// SnapshotDef returns the definition of the named snapshot.
func (r *ItemRep) SnapshotDef(name string) (SnapshotDef, bool) {
	for _, d := range r.snapshotDefs {
		if d.Name == name {
			return d, true
		}
	}
	return SnapshotDef{}, false
}

// HasSnapshot reports whether the rep defines the named snapshot.
func (r *ItemRep) HasSnapshot(name string) bool {
	_, ok := r.SnapshotDef(name)
	return ok
}

// RawPaths returns the absolute output paths per snapshot name.
func (r *ItemRep) RawPaths() map[string][]string { return r.rawPaths }

// RawPath returns the first absolute output path of the snapshot, or "".
func (r *ItemRep) RawPath(snapshot string) string {
	if ps := r.rawPaths[snapshot]; len(ps) > 0 {
		return ps[0]
	}
	return ""
}

// AllRawPaths returns every output path of the rep, sorted.
func (r *ItemRep) AllRawPaths() []string {
	var out []string
	for _, ps := range r.rawPaths {
		out = append(out, ps...)
	}
	sort.Strings(out)
	return out
}

// SetRawPaths replaces the absolute output paths.
func (r *ItemRep) SetRawPaths(p map[string][]string) { r.rawPaths = p }

// Paths returns the public (site-relative) paths per snapshot name.
func (r *ItemRep) Paths() map[string][]string { return r.paths }

// Path returns the first public path of the snapshot, or "".
func (r *ItemRep) Path(snapshot string) string {
	if ps := r.paths[snapshot]; len(ps) > 0 {
		return ps[0]
	}
	return ""
}

// SetPaths replaces the public paths.
func (r *ItemRep) SetPaths(p map[string][]string) { r.paths = p }

func (r *ItemRep) Compiled() bool     { return r.compiled }
func (r *ItemRep) SetCompiled(b bool) { r.compiled = b }
func (r *ItemRep) Modified() bool     { return r.modified }
func (r *ItemRep) SetModified(b bool) { r.modified = b }

func equalSnapshotDefs(a, b []SnapshotDef) bool {
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

// ItemRepSet holds every rep of a site, indexed by item.
type ItemRepSet struct {
	all    []*ItemRep
	byItem map[Reference][]*ItemRep
	byRef  map[Reference]*ItemRep
}

// NewItemRepSet returns an empty set.
func NewItemRepSet() *ItemRepSet {
	return &ItemRepSet{byItem: map[Reference][]*ItemRep{}, byRef: map[Reference]*ItemRep{}}
}

// Add adds a rep. Adding a rep with an existing reference is an error.
func (s *ItemRepSet) Add(rep *ItemRep) error {
	ref := rep.Reference()
	if _, dup := s.byRef[ref]; dup {
		return &Error{Kind: ErrDuplicateIdentifier, Msg: "rep " + rep.String()}
	}
	s.all = append(s.all, rep)
	s.byRef[ref] = rep
	s.byItem[rep.Item().Reference()] = append(s.byItem[rep.Item().Reference()], rep)
	return nil
}

// All returns all reps in insertion order.
func (s *ItemRepSet) All() []*ItemRep {
	out := make([]*ItemRep, len(s.all))
	copy(out, s.all)
	return out
}

// ForItem returns the reps of item.
func (s *ItemRepSet) ForItem(item *Item) []*ItemRep {
	return s.byItem[item.Reference()]
}

// Get returns the rep named name of item.
func (s *ItemRepSet) Get(item *Item, name string) (*ItemRep, bool) {
	r, ok := s.byRef[ItemRepRef(item.Identifier(), name)]
	return r, ok
}

// ByReference returns the rep with the given reference.
func (s *ItemRepSet) ByReference(ref Reference) (*ItemRep, bool) {
	r, ok := s.byRef[ref]
	return r, ok
}
