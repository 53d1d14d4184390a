package site

import (
	"fmt"
	"path"
	"strings"

	"sitebuild/internal/actions"
	"sitebuild/internal/config"
	"sitebuild/internal/core"
)

// ActionProvider decides which reps an item has and which actions every rep
// and layout runs.
type ActionProvider interface {
	RepNamesFor(item *core.Item) []string
	ActionSequenceFor(obj core.Object) (*actions.Sequence, error)
	FilterForLayout(layout *core.Layout) (name string, params map[string]any, ok bool)
}

// NoMatchingRuleError is returned when no rule applies to a rep.
type NoMatchingRuleError struct {
	Rep string
}

func (e *NoMatchingRuleError) Error() string {
	return fmt.Sprintf("no compilation rule found for %s", e.Rep)
}

// Rules is the ActionProvider built from the rules of the configuration.
// The first matching rule wins.
//
// Every rep gets a raw snapshot first and a last snapshot at the end. Reps
// with a layout also get a pre snapshot before it.
type Rules struct {
	rules       []config.Rule
	layoutRules []config.LayoutRule
	kinds       actions.FilterKinds
}

var _ ActionProvider = (*Rules)(nil)

// NewRules returns the provider for rules. kinds is used to track which
// snapshots hold binary content; it may be nil.
func NewRules(rules []config.Rule, layoutRules []config.LayoutRule, kinds actions.FilterKinds) *Rules {
	return &Rules{rules: rules, layoutRules: layoutRules, kinds: kinds}
}

func matches(id core.Identifier, pattern string) bool {
	return id.String() == pattern || id.Match(pattern)
}

// RepNamesFor returns the names of the reps of item in rule order.
func (r *Rules) RepNamesFor(item *core.Item) []string {
	var out []string
	seen := map[string]bool{}
	for _, rule := range r.rules {
		if seen[rule.Rep] || !matches(item.Identifier(), rule.Pattern) {
			continue
		}
		seen[rule.Rep] = true
		out = append(out, rule.Rep)
	}
	return out
}

func (r *Rules) ActionSequenceFor(obj core.Object) (*actions.Sequence, error) {
	switch o := obj.(type) {
	case *core.ItemRep:
		return r.sequenceForRep(o)
	case *core.Layout:
		name, params, ok := r.FilterForLayout(o)
		if !ok {
			return actions.NewSequence(), nil
		}
		return actions.NewSequence(actions.Filter{Name: name, Params: params}), nil
	default:
		return nil, core.Inconsistency("no action sequence for %s", obj.Reference())
	}
}

func (r *Rules) sequenceForRep(rep *core.ItemRep) (*actions.Sequence, error) {
	item := rep.Item()
	for _, rule := range r.rules {
		if rule.Rep != rep.Name() || !matches(item.Identifier(), rule.Pattern) {
			continue
		}
		b := actions.NewBuilder(rep.String(), item.Content().Binary(), r.kinds)
		b.AddSnapshot(core.SnapshotRaw, "")
		for _, f := range rule.Filters {
			b.AddFilter(f.Name, f.Params)
		}
		if rule.Layout != "" {
			b.AddSnapshot(core.SnapshotPre, "")
			b.AddLayout(rule.Layout, nil)
		}
		b.AddSnapshot(core.SnapshotLast, route(rule.Path, rep))
		return b.Build()
	}
	return nil, &NoMatchingRuleError{Rep: rep.String()}
}

func (r *Rules) FilterForLayout(layout *core.Layout) (string, map[string]any, bool) {
	for _, rule := range r.layoutRules {
		if matches(layout.Identifier(), rule.Pattern) {
			return rule.Filter, rule.Params, true
		}
	}
	return "", nil, false
}

// route expands the placeholders of a rule path for rep.
func route(pattern string, rep *core.ItemRep) string {
	if pattern == "" {
		return ""
	}
	id := rep.Item().Identifier()
	s := strings.TrimSuffix(id.String(), "/")
	dir := path.Dir(s)
	if dir == "/" || dir == "." {
		dir = ""
	}
	base := path.Base(s)
	if base == "/" || base == "." {
		base = ""
	}
	ext := strings.TrimPrefix(path.Ext(base), ".")
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.NewReplacer(
		"{identifier}", id.String(),
		"{dir}", dir,
		"{stem}", stem,
		"{ext}", ext,
		"{rep}", rep.Name(),
	).Replace(pattern)
}
