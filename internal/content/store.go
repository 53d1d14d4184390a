// Package content holds the compiled content of reps, both for the current
// run (Store) and across runs (Cache).
package content

import (
	"fmt"

	"sitebuild/internal/core"
)

// NoSuchSnapshotError is returned when compiled content is requested for a
// snapshot the rep does not define.
type NoSuchSnapshotError struct {
	Rep      string
	Snapshot string
}

func (e *NoSuchSnapshotError) Error() string {
	return fmt.Sprintf("%s does not have a snapshot named %q", e.Rep, e.Snapshot)
}

// Store holds, per rep, the content of every snapshot taken so far plus the
// content currently being worked on.
type Store struct {
	snapshots map[core.Reference]map[string]core.Content
	current   map[core.Reference]core.Content
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		snapshots: map[core.Reference]map[string]core.Content{},
		current:   map[core.Reference]core.Content{},
	}
}

// Get returns the content of the named snapshot of rep.
func (s *Store) Get(rep *core.ItemRep, snapshot string) (core.Content, bool) {
	c, ok := s.snapshots[rep.Reference()][snapshot]
	return c, ok
}

// Set records the content of the named snapshot of rep.
func (s *Store) Set(rep *core.ItemRep, snapshot string, c core.Content) {
	ref := rep.Reference()
	if s.snapshots[ref] == nil {
		s.snapshots[ref] = map[string]core.Content{}
	}
	s.snapshots[ref][snapshot] = c
}

// GetAll returns a copy of every snapshot of rep.
func (s *Store) GetAll(rep *core.ItemRep) map[string]core.Content {
	out := make(map[string]core.Content, len(s.snapshots[rep.Reference()]))
	for k, v := range s.snapshots[rep.Reference()] {
		out[k] = v
	}
	return out
}

// SetAll replaces every snapshot of rep.
func (s *Store) SetAll(rep *core.ItemRep, contents map[string]core.Content) {
	m := make(map[string]core.Content, len(contents))
	for k, v := range contents {
		m[k] = v
	}
	s.snapshots[rep.Reference()] = m
}

// Current returns the working content of rep.
func (s *Store) Current(rep *core.ItemRep) (core.Content, bool) {
	c, ok := s.current[rep.Reference()]
	return c, ok
}

// SetCurrent replaces the working content of rep.
func (s *Store) SetCurrent(rep *core.ItemRep, c core.Content) {
	s.current[rep.Reference()] = c
}

// SnapshotName resolves the snapshot to read when none is given: pre when
// the rep has one, last otherwise.
func (s *Store) SnapshotName(rep *core.ItemRep, snapshot string) string {
	if snapshot != "" {
		return snapshot
	}
	if _, ok := s.Get(rep, core.SnapshotPre); ok || rep.HasSnapshot(core.SnapshotPre) {
		return core.SnapshotPre
	}
	return core.SnapshotLast
}

// CompiledContent returns the textual compiled content of the named
// snapshot of rep (resolved by SnapshotName when empty). The caller is
// responsible for making sure the snapshot is final.
func (s *Store) CompiledContent(rep *core.ItemRep, snapshot string) (string, error) {
	name := s.SnapshotName(rep, snapshot)
	if !rep.HasSnapshot(name) {
		return "", &NoSuchSnapshotError{Rep: rep.String(), Snapshot: name}
	}
	c, ok := s.Get(rep, name)
	if !ok {
		return "", core.Inconsistency("snapshot %q of %s is defined but was never created", name, rep)
	}
	if c.Binary() {
		return "", &core.Error{Kind: core.ErrBinaryContent, Msg: "cannot get compiled content of binary " + rep.String()}
	}
	return core.ContentString(c)
}
