// Package actions models the ordered processing steps of a rep or layout
// and their canonical serialized form.
package actions

import (
	"strconv"
	"strings"

	"sitebuild/internal/checksum"
)

// Action is one processing step: a Filter, a Layout or a Snapshot.
type Action interface {
	// Serialize returns the canonical form of the action used for
	// outdatedness comparison and persistence.
	Serialize() Serialized
	String() string
}

// Filter runs the named filter over the current content.
type Filter struct {
	Name   string
	Params map[string]any
}

func (f Filter) Serialize() Serialized {
	return Serialized{"filter", f.Name, checksum.Calc(f.Params)}
}

func (f Filter) String() string { return "filter " + f.Name }

// Layout lays the current content out in the layout matching Identifier.
type Layout struct {
	Identifier string
	Params     map[string]any
}

func (l Layout) Serialize() Serialized {
	return Serialized{"layout", l.Identifier, checksum.Calc(l.Params)}
}

func (l Layout) String() string { return "layout " + l.Identifier }

// Snapshot captures the current content under one or more names, and
// optionally writes it to the given paths.
type Snapshot struct {
	Names  []string
	Paths  []string
	Binary bool
}

// Serialize prefixes the names and the paths with their counts, so no
// choice of names or paths makes two different snapshots serialize alike.
func (s Snapshot) Serialize() Serialized {
	out := make(Serialized, 0, 4+len(s.Names)+len(s.Paths))
	out = append(out, "snapshot", strconv.Itoa(len(s.Names)))
	out = append(out, s.Names...)
	out = append(out, strconv.FormatBool(s.Binary), strconv.Itoa(len(s.Paths)))
	return append(out, s.Paths...)
}

func (s Snapshot) String() string {
	return "snapshot " + strings.Join(s.Names, ",")
}

// Serialized is the canonical form of an action. Two serialized actions are
// equal iff the actions would behave identically.
type Serialized []string

func (s Serialized) equal(o Serialized) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}
