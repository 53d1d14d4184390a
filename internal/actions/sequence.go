package actions

import (
	"sitebuild/internal/core"
)

// Sequence is an immutable, ordered list of actions.
type Sequence struct {
	actions []Action
}

// NewSequence returns a sequence holding a copy of actions.
func NewSequence(actions ...Action) *Sequence {
	return &Sequence{actions: append([]Action(nil), actions...)}
}

// Actions returns the actions in order.
func (s *Sequence) Actions() []Action {
	if s == nil {
		return nil
	}
	return append([]Action(nil), s.actions...)
}

// Len returns the number of actions.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.actions)
}

// Serialize returns the canonical form of every action.
func (s *Sequence) Serialize() []Serialized {
	if s == nil {
		return nil
	}
	out := make([]Serialized, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.Serialize()
	}
	return out
}

// SnapshotDefs returns one definition per snapshot name, in order.
func (s *Sequence) SnapshotDefs() []core.SnapshotDef {
	var out []core.SnapshotDef
	for _, a := range s.Actions() {
		snap, ok := a.(Snapshot)
		if !ok {
			continue
		}
		for _, name := range snap.Names {
			out = append(out, core.SnapshotDef{Name: name, Binary: snap.Binary})
		}
	}
	return out
}

// Paths returns the output paths per snapshot name.
func (s *Sequence) Paths() map[string][]string {
	out := map[string][]string{}
	for _, a := range s.Actions() {
		snap, ok := a.(Snapshot)
		if !ok || len(snap.Paths) == 0 {
			continue
		}
		for _, name := range snap.Names {
			out[name] = append(out[name], snap.Paths...)
		}
	}
	return out
}

// LayoutIdentifiers returns the identifiers of every layout action.
func (s *Sequence) LayoutIdentifiers() []string {
	var out []string
	for _, a := range s.Actions() {
		if l, ok := a.(Layout); ok {
			out = append(out, l.Identifier)
		}
	}
	return out
}

// FilterNames returns the names of every filter action.
func (s *Sequence) FilterNames() []string {
	var out []string
	for _, a := range s.Actions() {
		if f, ok := a.(Filter); ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Equal reports whether two sequences have the same serialized form.
func (s *Sequence) Equal(other *Sequence) bool {
	return EqualSerialized(s.Serialize(), other.Serialize())
}

// EqualSerialized reports whether two serialized sequences are equal.
func EqualSerialized(a, b []Serialized) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}
