package core

import (
	"fmt"
	"strings"
)

// RefKind discriminates the object kinds that can appear in the dependency
// graph and in stores.
type RefKind uint8

const (
	RefItem RefKind = iota + 1
	RefLayout
	RefItemRep
	RefConfig
	RefItems
	RefLayouts
	RefCodeSnippet
)

var refKindNames = map[RefKind]string{
	RefItem:        "item",
	RefLayout:      "layout",
	RefItemRep:     "item_rep",
	RefConfig:      "configuration",
	RefItems:       "items",
	RefLayouts:     "layouts",
	RefCodeSnippet: "code_snippet",
}

func (k RefKind) String() string {
	if s, ok := refKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("RefKind(%d)", uint8(k))
}

// Reference is a stable key for an object.
//
// Singleton kinds (configuration, items, layouts) have an empty ID. Item rep
// references carry "<rep name>:<item identifier>" as ID.
type Reference struct {
	Kind RefKind
	ID   string
}

// Object is anything that can be recorded in the dependency graph.
type Object interface {
	Reference() Reference
}

// IsZero reports whether r is the zero reference.
func (r Reference) IsZero() bool { return r.Kind == 0 }

// String returns the persisted form of the reference, for example
// "item:/about.md" or "configuration".
func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	switch r.Kind {
	case RefConfig, RefItems, RefLayouts:
		return r.Kind.String()
	default:
		return r.Kind.String() + ":" + r.ID
	}
}

// ParseReference is the inverse of Reference.String.
func ParseReference(s string) (Reference, error) {
	for kind, name := range refKindNames {
		switch kind {
		case RefConfig, RefItems, RefLayouts:
			if s == name {
				return Reference{Kind: kind}, nil
			}
		default:
			if id, ok := strings.CutPrefix(s, name+":"); ok && id != "" {
				return Reference{Kind: kind, ID: id}, nil
			}
		}
	}
	return Reference{}, fmt.Errorf("invalid reference: %q", s)
}

// ItemRef returns the reference of the item with the given identifier.
func ItemRef(id Identifier) Reference { return Reference{Kind: RefItem, ID: id.String()} }

// LayoutRef returns the reference of the layout with the given identifier.
func LayoutRef(id Identifier) Reference { return Reference{Kind: RefLayout, ID: id.String()} }

// ItemRepRef returns the reference of the rep named name of the item id.
func ItemRepRef(id Identifier, name string) Reference {
	return Reference{Kind: RefItemRep, ID: name + ":" + id.String()}
}
