// Package outdatedness decides whether, and why, reps, layouts and other
// site objects must be recompiled.
package outdatedness

import (
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
)

// ReasonKind identifies a reason.
type ReasonKind string

const (
	KindCodeSnippetsModified     ReasonKind = "code_snippets_modified"
	KindContentModified          ReasonKind = "content_modified"
	KindAttributesModified       ReasonKind = "attributes_modified"
	KindNotWritten               ReasonKind = "not_written"
	KindRulesModified            ReasonKind = "rules_modified"
	KindUsesAlwaysOutdatedFilter ReasonKind = "uses_always_outdated_filter"
	KindDocumentAdded            ReasonKind = "document_added"
	KindItemCollectionExtended   ReasonKind = "item_collection_extended"
	KindLayoutCollectionExtended ReasonKind = "layout_collection_extended"
	KindDependenciesOutdated     ReasonKind = "dependencies_outdated"
)

// Reason explains why an object is outdated. Props holds the facets of the
// object that the reason makes dirty.
type Reason struct {
	Kind    ReasonKind
	Message string
	Props   deps.Props

	// Objects holds the added documents of a collection-extended reason.
	Objects []core.Object
}

func (r Reason) String() string { return string(r.Kind) }

var (
	CodeSnippetsModified = Reason{
		Kind:    KindCodeSnippetsModified,
		Message: "The code snippets have been modified since the last time the site was compiled.",
		Props:   deps.AllProps(),
	}
	ContentModified = Reason{
		Kind:    KindContentModified,
		Message: "The content of this item has been modified since the last time the site was compiled.",
		Props:   deps.Props{RawContent: deps.Yes, CompiledContent: deps.Yes},
	}
	NotWritten = Reason{
		Kind:    KindNotWritten,
		Message: "This item representation has not yet been written to the output directory (but it does have a path).",
		Props:   deps.Props{RawContent: deps.Yes, Attributes: deps.Yes, CompiledContent: deps.Yes},
	}
	RulesModified = Reason{
		Kind:    KindRulesModified,
		Message: "The rules have been modified since the last time the site was compiled.",
		Props:   deps.Props{CompiledContent: deps.Yes, Path: deps.Yes},
	}
	UsesAlwaysOutdatedFilter = Reason{
		Kind:    KindUsesAlwaysOutdatedFilter,
		Message: "This item rep uses one or more filters that are always considered outdated.",
		Props:   deps.Props{RawContent: deps.Yes, Attributes: deps.Yes, CompiledContent: deps.Yes},
	}
	DocumentAdded = Reason{
		Kind:    KindDocumentAdded,
		Message: "The item or layout is newly added to the site.",
		Props:   deps.AllProps(),
	}
	DependenciesOutdated = Reason{
		Kind:    KindDependenciesOutdated,
		Message: "This item uses content or attributes that have changed since the last time the site was compiled.",
		Props:   deps.Props{CompiledContent: deps.Yes},
	}
)

// AttributesModified returns the reason for changed attributes. A nil keys
// slice means the attributes are modified as a whole.
func AttributesModified(keys []string) Reason {
	attrs := deps.Yes
	if keys != nil {
		attrs = deps.Keys(keys...)
	}
	return Reason{
		Kind:    KindAttributesModified,
		Message: "The attributes of this item have been modified since the last time the site was compiled.",
		Props:   deps.Props{Attributes: attrs, CompiledContent: deps.Yes},
	}
}

// ItemCollectionExtended returns the reason for items added to the site.
func ItemCollectionExtended(items []*core.Item) Reason {
	objs := make([]core.Object, len(items))
	for i, it := range items {
		objs[i] = it
	}
	return Reason{
		Kind:    KindItemCollectionExtended,
		Message: "New items have been added to the site.",
		Props:   deps.Props{RawContent: deps.Yes},
		Objects: objs,
	}
}

// LayoutCollectionExtended returns the reason for layouts added to the site.
func LayoutCollectionExtended(layouts []*core.Layout) Reason {
	objs := make([]core.Object, len(layouts))
	for i, l := range layouts {
		objs[i] = l
	}
	return Reason{
		Kind:    KindLayoutCollectionExtended,
		Message: "New layouts have been added to the site.",
		Props:   deps.Props{RawContent: deps.Yes},
		Objects: objs,
	}
}

// AttributeKeys returns the changed attribute keys of an
// attributes-modified reason, or nil when the attributes changed as a
// whole.
func (r Reason) AttributeKeys() []string {
	if r.Kind != KindAttributesModified {
		return nil
	}
	return r.Props.AttributeKeys()
}

func (r Reason) isCollectionExtended() bool {
	return r.Kind == KindItemCollectionExtended || r.Kind == KindLayoutCollectionExtended
}

// Status accumulates the reasons raised for one object.
type Status struct {
	Reasons []Reason
	Props   deps.Props
}

// UsefulToApply reports whether rule could still dirty a facet that is not
// already dirty.
func (s Status) UsefulToApply(rule *Rule) bool {
	return rule.Affects()&^s.Props.Active() != 0
}

// Update returns the status with reason added.
func (s Status) Update(reason Reason) Status {
	return Status{
		Reasons: append(append([]Reason(nil), s.Reasons...), reason),
		Props:   s.Props.Merge(reason.Props),
	}
}
