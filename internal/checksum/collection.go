package checksum

import (
	"sort"

	"sitebuild/internal/core"
)

// Sums holds every checksum computed for one object.
type Sums struct {
	Checksum      string            `msgpack:"c"`
	Content       string            `msgpack:"content,omitempty"`
	EachAttribute map[string]string `msgpack:"attrs,omitempty"`
}

// Collection is the set of checksums computed during the current run.
type Collection struct {
	sums map[core.Reference]Sums
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{sums: map[core.Reference]Sums{}}
}

// Compute returns a collection holding the checksums of every object.
func Compute(objects ...core.Object) *Collection {
	c := NewCollection()
	for _, o := range objects {
		c.Add(o)
	}
	return c
}

// Add computes and records the checksums of obj.
func (c *Collection) Add(obj core.Object) {
	c.sums[obj.Reference()] = SumsFor(obj)
}

// SumsFor computes the checksums of a single object.
func SumsFor(obj core.Object) Sums {
	s := Sums{Checksum: Calc(obj)}
	switch o := obj.(type) {
	case *core.Item:
		s.Content = CalcForContentOf(&o.Document)
		s.EachAttribute = CalcForEachAttributeOf(o)
	case *core.Layout:
		s.Content = CalcForContentOf(&o.Document)
		s.EachAttribute = CalcForEachAttributeOf(o)
	case *core.Configuration:
		s.EachAttribute = CalcForEachAttributeOf(o)
	}
	return s
}

// Get returns the checksums of the object with the given reference.
func (c *Collection) Get(ref core.Reference) (Sums, bool) {
	s, ok := c.sums[ref]
	return s, ok
}

// ChecksumFor returns the full checksum of obj.
func (c *Collection) ChecksumFor(obj core.Object) (string, bool) {
	s, ok := c.sums[obj.Reference()]
	return s.Checksum, ok
}

// ContentChecksumFor returns the content checksum of obj.
func (c *Collection) ContentChecksumFor(obj core.Object) (string, bool) {
	s, ok := c.sums[obj.Reference()]
	return s.Content, ok
}

// AttributesChecksumFor returns the per-attribute checksums of obj.
func (c *Collection) AttributesChecksumFor(obj core.Object) (map[string]string, bool) {
	s, ok := c.sums[obj.Reference()]
	return s.EachAttribute, ok
}

// References returns the references in the collection, sorted by their
// string form.
func (c *Collection) References() []core.Reference {
	out := make([]core.Reference, 0, len(c.sums))
	for r := range c.sums {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
