// Package trace records what a compilation run decided for every rep.
//
// A BuildTrace holds logical decisions only: which reps were compiled and
// with which filters, which were restored from the cache, which output
// files changed, which dependencies were recorded. It carries no timings,
// run IDs or error strings, so two runs that make the same decisions
// produce byte-identical canonical JSON.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// BuildTrace is the canonical record of one compilation run.
type BuildTrace struct {
	// Site identifies the compiled inputs, usually the checksum of the
	// site configuration.
	Site      string
	Decisions []Decision
}

// DecisionKind is the stable discriminator of a Decision. The string
// values are part of the canonical bytes.
type DecisionKind string

const (
	DecisionRepCompiled        DecisionKind = "RepCompiled"
	DecisionRepCached          DecisionKind = "RepCached"
	DecisionRepWritten         DecisionKind = "RepWritten"
	DecisionRepUnchanged       DecisionKind = "RepUnchanged"
	DecisionRepFailed          DecisionKind = "RepFailed"
	DecisionDependencyRecorded DecisionKind = "DependencyRecorded"
	DecisionStageAborted       DecisionKind = "StageAborted"
)

// Decision is a single logical outcome.
//
// Filters keep their application order. Paths are sorted when encoded.
type Decision struct {
	Kind DecisionKind

	// Rep is the reference of the rep (or dependent object) concerned.
	Rep string

	// Cause is the object depended upon, or the aborted stage.
	Cause string

	Filters []string
	Paths   []string
}

func isRepDecision(k DecisionKind) bool {
	return k != DecisionStageAborted
}

// Validate checks basic invariants.
func (t *BuildTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.Site == "" {
		return errors.New("site is required")
	}
	for i, d := range t.Decisions {
		if d.Kind == "" {
			return fmt.Errorf("decisions[%d].kind is required", i)
		}
		if isRepDecision(d.Kind) && d.Rep == "" {
			return fmt.Errorf("decisions[%d].rep is required for kind %s", i, d.Kind)
		}
		if d.Kind == DecisionStageAborted && d.Cause == "" {
			return fmt.Errorf("decisions[%d].cause is required for kind %s", i, d.Kind)
		}
	}
	return nil
}

// Canonicalize sorts decisions by rep, kind and cause, and normalizes
// empty slices to nil.
func (t *BuildTrace) Canonicalize() {
	for i := range t.Decisions {
		d := &t.Decisions[i]
		if len(d.Filters) == 0 {
			d.Filters = nil
		}
		if len(d.Paths) == 0 {
			d.Paths = nil
		} else {
			paths := append([]string(nil), d.Paths...)
			sort.Strings(paths)
			d.Paths = paths
		}
	}
	sort.SliceStable(t.Decisions, func(i, j int) bool {
		a, b := t.Decisions[i], t.Decisions[j]
		if a.Rep != b.Rep {
			return a.Rep < b.Rep
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Cause < b.Cause
	})
}

// CanonicalJSON returns the canonical encoding of a canonicalized copy of t.
func (t BuildTrace) CanonicalJSON() ([]byte, error) {
	c := BuildTrace{Site: t.Site, Decisions: make([]Decision, len(t.Decisions))}
	copy(c.Decisions, t.Decisions)
	c.Canonicalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&c)
}

// Hash returns the sha256 hex digest of the canonical JSON.
func (t BuildTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeHash(b), nil
}

// MarshalJSON fixes field order.
func (t BuildTrace) MarshalJSON() ([]byte, error) {
	if t.Site == "" {
		return nil, errors.New("site is required")
	}
	var buf bytes.Buffer
	buf.WriteString(`{"site":`)
	sb, _ := json.Marshal(t.Site)
	buf.Write(sb)
	buf.WriteString(`,"decisions":[`)
	for i := range t.Decisions {
		if i > 0 {
			buf.WriteByte(',')
		}
		db, err := json.Marshal(t.Decisions[i])
		if err != nil {
			return nil, err
		}
		buf.Write(db)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (d Decision) MarshalJSON() ([]byte, error) {
	if d.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, "kind", string(d.Kind), false)
	if d.Rep != "" {
		writeField(&buf, "rep", d.Rep, true)
	}
	if d.Cause != "" {
		writeField(&buf, "cause", d.Cause, true)
	}
	if len(d.Filters) > 0 {
		writeList(&buf, "filters", d.Filters)
	}
	if len(d.Paths) > 0 {
		paths := append([]string(nil), d.Paths...)
		sort.Strings(paths)
		writeList(&buf, "paths", paths)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name, value string, comma bool) {
	if comma {
		buf.WriteByte(',')
	}
	buf.WriteString(`"` + name + `":`)
	b, _ := json.Marshal(value)
	buf.Write(b)
}

func writeList(buf *bytes.Buffer, name string, values []string) {
	buf.WriteString(`,"` + name + `":[`)
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, _ := json.Marshal(v)
		buf.Write(b)
	}
	buf.WriteByte(']')
}
