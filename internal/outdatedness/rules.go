package outdatedness

import (
	"os"

	"sitebuild/internal/actions"
	"sitebuild/internal/checksum"
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
)

// Rule is one outdatedness check.
type Rule struct {
	name    string
	affects deps.Facets
	apply   func(obj core.Object, b *Basic) (*Reason, error)
}

func (r *Rule) Name() string { return r.name }

// Affects returns the facets the rule can make dirty.
func (r *Rule) Affects() deps.Facets { return r.affects }

// Apply evaluates the rule for obj. It returns nil when the rule does not
// consider obj outdated.
func (r *Rule) Apply(obj core.Object, b *Basic) (*Reason, error) {
	return r.apply(obj, b)
}

var (
	ItemAddedRule = &Rule{
		name:    "item_added",
		affects: deps.RawContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			if rep, ok := obj.(*core.ItemRep); ok && b.in.Deps.IsNew(rep.Item()) {
				return reason(DocumentAdded)
			}
			return nil, nil
		},
	}

	LayoutAddedRule = &Rule{
		name:    "layout_added",
		affects: deps.RawContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			if l, ok := obj.(*core.Layout); ok && b.in.Deps.IsNew(l) {
				return reason(DocumentAdded)
			}
			return nil, nil
		},
	}

	RulesModifiedRule = &Rule{
		name:    "rules_modified",
		affects: deps.CompiledContent | deps.Path,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			modified, err := b.rulesModified(obj)
			if err != nil || modified {
				return reasonIf(modified, RulesModified), err
			}
			// layouts used by the previous sequence may have changed rules
			for _, l := range b.layoutsTouchedBy(obj) {
				modified, err := b.rulesModified(l)
				if err != nil || modified {
					return reasonIf(modified, RulesModified), err
				}
			}
			return nil, nil
		},
	}

	ContentModifiedRule = &Rule{
		name:    "content_modified",
		affects: deps.RawContent | deps.CompiledContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			doc := documentOf(obj)
			old, _ := b.in.ChecksumStore.Get(doc.Reference())
			cur, _ := b.in.Checksums.Get(doc.Reference())
			return reasonIf(old.Content != cur.Content, ContentModified), nil
		},
	}

	AttributesModifiedRule = &Rule{
		name:    "attributes_modified",
		affects: deps.Attributes | deps.CompiledContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			doc := documentOf(obj)
			old, ok := b.in.ChecksumStore.Get(doc.Reference())
			if !ok {
				return reason(AttributesModified(nil))
			}
			cur, _ := b.in.Checksums.Get(doc.Reference())
			changed := changedKeys(old.EachAttribute, cur.EachAttribute)
			if len(changed) == 0 {
				return nil, nil
			}
			return reason(AttributesModified(changed))
		},
	}

	NotWrittenRule = &Rule{
		name:    "not_written",
		affects: deps.RawContent | deps.Attributes | deps.CompiledContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			rep, ok := obj.(*core.ItemRep)
			if !ok {
				return nil, nil
			}
			for _, p := range rep.AllRawPaths() {
				fi, err := os.Stat(p)
				if err != nil || !fi.Mode().IsRegular() {
					return reason(NotWritten)
				}
			}
			return nil, nil
		},
	}

	CodeSnippetsModifiedRule = &Rule{
		name:    "code_snippets_modified",
		affects: deps.AllFacets,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			return reasonIf(b.codeSnippetsModified(), CodeSnippetsModified), nil
		},
	}

	UsesAlwaysOutdatedFilterRule = &Rule{
		name:    "uses_always_outdated_filter",
		affects: deps.RawContent | deps.Attributes | deps.Path,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			if b.in.Filters == nil {
				return nil, nil
			}
			seq, err := b.in.Sequences.SequenceFor(obj)
			if err != nil {
				return nil, err
			}
			for _, name := range seq.FilterNames() {
				if b.in.Filters.AlwaysOutdated(name) {
					return reason(UsesAlwaysOutdatedFilter)
				}
			}
			return nil, nil
		},
	}

	ItemCollectionExtendedRule = &Rule{
		name:    "item_collection_extended",
		affects: deps.RawContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			if added := b.in.Deps.NewItems(); len(added) > 0 {
				return reason(ItemCollectionExtended(added))
			}
			return nil, nil
		},
	}

	LayoutCollectionExtendedRule = &Rule{
		name:    "layout_collection_extended",
		affects: deps.RawContent,
		apply: func(obj core.Object, b *Basic) (*Reason, error) {
			if added := b.in.Deps.NewLayouts(); len(added) > 0 {
				return reason(LayoutCollectionExtended(added))
			}
			return nil, nil
		},
	}
)

// Rule lists per object kind, in evaluation order.
var (
	RulesForItemRep = []*Rule{
		ItemAddedRule,
		RulesModifiedRule,
		ContentModifiedRule,
		AttributesModifiedRule,
		NotWrittenRule,
		CodeSnippetsModifiedRule,
		UsesAlwaysOutdatedFilterRule,
	}
	RulesForLayout = []*Rule{
		LayoutAddedRule,
		RulesModifiedRule,
		ContentModifiedRule,
		AttributesModifiedRule,
		UsesAlwaysOutdatedFilterRule,
	}
	RulesForConfig         = []*Rule{AttributesModifiedRule}
	RulesForItemCollection = []*Rule{ItemCollectionExtendedRule}
	RulesForLayouts        = []*Rule{LayoutCollectionExtendedRule}
)

func reason(r Reason) (*Reason, error) { return &r, nil }

func reasonIf(cond bool, r Reason) *Reason {
	if !cond {
		return nil
	}
	return &r
}

// documentOf maps a rep to its item; other objects map to themselves.
func documentOf(obj core.Object) core.Object {
	if rep, ok := obj.(*core.ItemRep); ok {
		return rep.Item()
	}
	return obj
}

func changedKeys(old, cur map[string]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range []map[string]string{old, cur} {
		for k := range m {
			if seen[k] {
				continue
			}
			seen[k] = true
			ov, okOld := old[k]
			nv, okNew := cur[k]
			if okOld != okNew || ov != nv {
				out = append(out, k)
			}
		}
	}
	return out
}

// rulesModified compares the stored serialized sequence of obj with the
// one computed this run.
func (b *Basic) rulesModified(obj core.Object) (bool, error) {
	seq, err := b.in.Sequences.SequenceFor(obj)
	if err != nil {
		return false, err
	}
	old, ok := b.in.Actions.Get(obj)
	if !ok {
		return true, nil
	}
	return !actions.EqualSerialized(old, seq.Serialize()), nil
}

// layoutsTouchedBy returns the layouts named by the stored sequence of obj.
func (b *Basic) layoutsTouchedBy(obj core.Object) []*core.Layout {
	old, ok := b.in.Actions.Get(obj)
	if !ok || b.in.Layouts == nil {
		return nil
	}
	var out []*core.Layout
	for _, a := range old {
		if len(a) < 2 || a[0] != "layout" {
			continue
		}
		if l, ok := b.in.Layouts.Find(a[1]); ok {
			out = append(out, l)
		}
	}
	return out
}

func (b *Basic) codeSnippetsModified() bool {
	if b.snippetsModified != nil {
		return *b.snippetsModified
	}
	modified := false
	current := map[core.Reference]bool{}
	for _, cs := range b.in.CodeSnippets {
		current[cs.Reference()] = true
		old, ok := b.in.ChecksumStore.Get(cs.Reference())
		cur, found := b.in.Checksums.Get(cs.Reference())
		if !found {
			cur = checksum.SumsFor(cs)
		}
		if !ok || old.Checksum != cur.Checksum {
			modified = true
			break
		}
	}
	if !modified {
		for _, ref := range b.in.ChecksumStore.References(core.RefCodeSnippet) {
			if !current[ref] {
				modified = true
				break
			}
		}
	}
	b.snippetsModified = &modified
	return modified
}
