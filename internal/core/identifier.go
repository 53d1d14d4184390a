package core

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Identifier uniquely identifies an item or a layout within its collection.
//
// Full identifiers look like file paths ("/about.md"). Legacy identifiers
// start and end with a slash ("/about/") and are the only hierarchical kind:
// Parent and child lookups are defined for them alone.
type Identifier struct {
	s      string
	legacy bool
}

// NewIdentifier returns a full identifier.
func NewIdentifier(s string) (Identifier, error) {
	if !strings.HasPrefix(s, "/") {
		return Identifier{}, &Error{Kind: ErrInvalidIdentifier, Msg: fmt.Sprintf("%q does not start with a slash", s)}
	}
	if len(s) > 1 && strings.HasSuffix(s, "/") {
		return Identifier{}, &Error{Kind: ErrInvalidIdentifier, Msg: fmt.Sprintf("full identifier %q ends with a slash", s)}
	}
	return Identifier{s: s}, nil
}

// MustIdentifier is like NewIdentifier but panics on invalid input. It is
// intended for tests and static tables.
func MustIdentifier(s string) Identifier {
	id, err := NewIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewLegacyIdentifier returns a legacy identifier, adding the leading and
// trailing slash when missing.
func NewLegacyIdentifier(s string) Identifier {
	s = "/" + strings.Trim(s, "/") + "/"
	if s == "//" {
		s = "/"
	}
	return Identifier{s: s, legacy: true}
}

func (i Identifier) String() string { return i.s }

// IsZero reports whether i is the zero identifier.
func (i Identifier) IsZero() bool { return i.s == "" }

// IsLegacy reports whether i is a legacy identifier.
func (i Identifier) IsLegacy() bool { return i.legacy }

// IsFull reports whether i is a full identifier.
func (i Identifier) IsFull() bool { return !i.legacy }

// Ext returns the last extension without the dot, or "" if there is none.
func (i Identifier) Ext() string {
	if i.legacy {
		return ""
	}
	return strings.TrimPrefix(path.Ext(i.s), ".")
}

// WithoutExt returns the identifier string without its last extension.
func (i Identifier) WithoutExt() string {
	if i.legacy {
		return i.s
	}
	return strings.TrimSuffix(i.s, path.Ext(i.s))
}

// Components returns the non-empty path components.
func (i Identifier) Components() []string {
	var out []string
	for _, c := range strings.Split(i.s, "/") {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the parent identifier of a legacy identifier.
func (i Identifier) Parent() (Identifier, error) {
	if !i.legacy {
		return Identifier{}, &Error{Kind: ErrNonHierarchicalIdentifier, Msg: i.s}
	}
	if i.s == "/" {
		return Identifier{}, nil
	}
	trimmed := strings.TrimSuffix(i.s, "/")
	return NewLegacyIdentifier(trimmed[:strings.LastIndex(trimmed, "/")+1]), nil
}

// IsChildOf reports whether i is a direct child of parent. Both must be
// legacy identifiers.
func (i Identifier) IsChildOf(parent Identifier) (bool, error) {
	p, err := i.Parent()
	if err != nil {
		return false, err
	}
	if !parent.legacy {
		return false, &Error{Kind: ErrNonHierarchicalIdentifier, Msg: parent.s}
	}
	return !p.IsZero() && p.s == parent.s, nil
}

// Match reports whether i matches the glob pattern. Patterns use the
// doublestar syntax ("/blog/**/*.md", "/{a,b}.md").
func (i Identifier) Match(pattern string) bool {
	ok, err := doublestar.Match(pattern, i.s)
	return err == nil && ok
}
