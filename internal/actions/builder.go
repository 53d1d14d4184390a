package actions

import "fmt"

// DuplicateSnapshotError is returned when a sequence would create two
// snapshots with the same name.
type DuplicateSnapshotError struct {
	Rep  string
	Name string
}

func (e *DuplicateSnapshotError) Error() string {
	return fmt.Sprintf("attempted to create a snapshot with a duplicate name %q for %s", e.Name, e.Rep)
}

// FilterKinds reports whether the named filter produces binary output. It
// is consulted to track whether each snapshot will hold binary content.
type FilterKinds interface {
	ProducesBinary(name string, inputBinary bool) bool
}

// Builder accumulates actions for one rep or layout.
type Builder struct {
	rep    string
	kinds  FilterKinds
	binary bool

	actions []Action
	names   map[string]bool
	err     error
}

// NewBuilder returns a builder for the rep described by rep (used in
// errors). binary is whether the rep's input content is binary. kinds may
// be nil, in which case every filter is assumed to keep the content kind.
func NewBuilder(rep string, binary bool, kinds FilterKinds) *Builder {
	return &Builder{rep: rep, kinds: kinds, binary: binary, names: map[string]bool{}}
}

// AddFilter appends a filter action.
func (b *Builder) AddFilter(name string, params map[string]any) *Builder {
	b.actions = append(b.actions, Filter{Name: name, Params: params})
	if b.kinds != nil {
		b.binary = b.kinds.ProducesBinary(name, b.binary)
	}
	return b
}

// AddLayout appends a layout action. Layouts always produce textual
// content.
func (b *Builder) AddLayout(identifier string, params map[string]any) *Builder {
	b.actions = append(b.actions, Layout{Identifier: identifier, Params: params})
	b.binary = false
	return b
}

// AddSnapshot appends a snapshot action named name, written to path when
// path is non-empty. A second snapshot with the same name is an error,
// reported by Build.
func (b *Builder) AddSnapshot(name, path string) *Builder {
	if b.err != nil {
		return b
	}
	if b.names[name] {
		b.err = &DuplicateSnapshotError{Rep: b.rep, Name: name}
		return b
	}
	b.names[name] = true
	snap := Snapshot{Names: []string{name}, Binary: b.binary}
	if path != "" {
		snap.Paths = []string{path}
	}
	b.actions = append(b.actions, snap)
	return b
}

// Build returns the sequence, or the first construction error.
func (b *Builder) Build() (*Sequence, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewSequence(b.actions...), nil
}
