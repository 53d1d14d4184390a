package deps

import (
	"sort"
	"strings"
)

// Facets is a bit set of dependency facets.
type Facets uint8

const (
	RawContent Facets = 1 << iota
	Attributes
	CompiledContent
	Path

	NoFacets  Facets = 0
	AllFacets        = RawContent | Attributes | CompiledContent | Path
)

var facetNames = []struct {
	f    Facets
	name string
}{
	{RawContent, "raw_content"},
	{Attributes, "attributes"},
	{CompiledContent, "compiled_content"},
	{Path, "path"},
}

// Has reports whether every facet of other is in f.
func (f Facets) Has(other Facets) bool { return f&other == other }

func (f Facets) String() string {
	var parts []string
	for _, fn := range facetNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Facet is one dimension of a dependency: not relevant (zero value),
// relevant as a whole (All) or relevant for specific keys only. Keys are
// attribute names for the attributes facet and identifier glob patterns for
// the raw content facet.
type Facet struct {
	All  bool     `msgpack:"all,omitempty"`
	Keys []string `msgpack:"keys,omitempty"`
}

// Yes is a facet that is relevant as a whole.
var Yes = Facet{All: true}

// Keys returns a facet that is relevant for the given keys.
func Keys(keys ...string) Facet {
	return Facet{Keys: normalizeKeys(keys)}
}

// Active reports whether the facet is relevant at all.
func (f Facet) Active() bool { return f.All || len(f.Keys) > 0 }

// Merge combines two facets: All absorbs everything, key sets are united,
// and an inactive facet yields the other side.
func (f Facet) Merge(other Facet) Facet {
	if f.All || other.All {
		return Yes
	}
	if len(f.Keys) == 0 {
		return Keys(other.Keys...)
	}
	if len(other.Keys) == 0 {
		return Keys(f.Keys...)
	}
	return Keys(append(append([]string(nil), f.Keys...), other.Keys...)...)
}

// Intersects reports whether the facet is relevant for any of keys.
func (f Facet) Intersects(keys []string) bool {
	if f.All {
		return true
	}
	for _, k := range f.Keys {
		for _, o := range keys {
			if k == o {
				return true
			}
		}
	}
	return false
}

func (f Facet) equal(other Facet) bool {
	if f.All != other.All || len(f.Keys) != len(other.Keys) {
		return false
	}
	for i := range f.Keys {
		if f.Keys[i] != other.Keys[i] {
			return false
		}
	}
	return true
}

func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := append([]string(nil), keys...)
	sort.Strings(out)
	j := 0
	for i := range out {
		if i > 0 && out[i] == out[j-1] {
			continue
		}
		out[j] = out[i]
		j++
	}
	return out[:j]
}

// Props describes why one object depends on another.
type Props struct {
	RawContent      Facet `msgpack:"raw_content,omitempty"`
	Attributes      Facet `msgpack:"attributes,omitempty"`
	CompiledContent Facet `msgpack:"compiled_content,omitempty"`
	Path            Facet `msgpack:"path,omitempty"`
}

// AllProps returns props with every facet relevant as a whole.
func AllProps() Props {
	return Props{RawContent: Yes, Attributes: Yes, CompiledContent: Yes, Path: Yes}
}

// Merge returns the facet-wise merge of p and other.
func (p Props) Merge(other Props) Props {
	return Props{
		RawContent:      p.RawContent.Merge(other.RawContent),
		Attributes:      p.Attributes.Merge(other.Attributes),
		CompiledContent: p.CompiledContent.Merge(other.CompiledContent),
		Path:            p.Path.Merge(other.Path),
	}
}

// Active returns the set of facets that are relevant.
func (p Props) Active() Facets {
	var f Facets
	if p.RawContent.Active() {
		f |= RawContent
	}
	if p.Attributes.Active() {
		f |= Attributes
	}
	if p.CompiledContent.Active() {
		f |= CompiledContent
	}
	if p.Path.Active() {
		f |= Path
	}
	return f
}

// Equal reports whether two props describe the same facets.
func (p Props) Equal(other Props) bool {
	return p.RawContent.equal(other.RawContent) &&
		p.Attributes.equal(other.Attributes) &&
		p.CompiledContent.equal(other.CompiledContent) &&
		p.Path.equal(other.Path)
}

// AttributeKeys returns the specific attribute keys, or nil when the
// attributes facet is inactive or relevant as a whole.
func (p Props) AttributeKeys() []string {
	if p.Attributes.All {
		return nil
	}
	return p.Attributes.Keys
}

// RawContentPatterns returns the specific identifier patterns, or nil when
// the raw content facet is inactive or relevant as a whole.
func (p Props) RawContentPatterns() []string {
	if p.RawContent.All {
		return nil
	}
	return p.RawContent.Keys
}

func (p Props) String() string { return p.Active().String() }
