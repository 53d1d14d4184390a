package outdatedness

import (
	"sitebuild/internal/actions"
	"sitebuild/internal/checksum"
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
)

// SequenceSource returns the action sequence computed this run for a rep
// or layout.
type SequenceSource interface {
	SequenceFor(obj core.Object) (*actions.Sequence, error)
}

// FilterInfo reports whether a filter is always considered outdated.
type FilterInfo interface {
	AlwaysOutdated(name string) bool
}

// Input is everything the rules consult.
type Input struct {
	Checksums     *checksum.Collection
	ChecksumStore *checksum.Store
	Actions       *actions.Store
	Sequences     SequenceSource
	Deps          *deps.Store
	Reps          *core.ItemRepSet
	Layouts       *core.LayoutCollection
	CodeSnippets  []*core.CodeSnippet
	Filters       FilterInfo
}

// Basic computes the outdatedness status of objects from their own
// changes, without following dependencies. Results are memoized.
type Basic struct {
	in               Input
	statuses         map[core.Reference]Status
	snippetsModified *bool
}

// NewBasic returns a basic checker over in.
func NewBasic(in Input) *Basic {
	return &Basic{in: in, statuses: map[core.Reference]Status{}}
}

// StatusFor returns the status of obj. The status of an item is folded
// over all of its reps.
func (b *Basic) StatusFor(obj core.Object) (Status, error) {
	ref := obj.Reference()
	if s, ok := b.statuses[ref]; ok {
		return s, nil
	}

	var (
		s   Status
		err error
	)
	switch o := obj.(type) {
	case *core.ItemRep:
		s, err = b.applyRules(RulesForItemRep, o, Status{})
	case *core.Item:
		for _, rep := range b.in.Reps.ForItem(o) {
			if s, err = b.applyRules(RulesForItemRep, rep, s); err != nil {
				break
			}
		}
	case *core.Layout:
		s, err = b.applyRules(RulesForLayout, o, Status{})
	case *core.Configuration:
		s, err = b.applyRules(RulesForConfig, o, Status{})
	case *core.ItemCollection:
		s, err = b.applyRules(RulesForItemCollection, o, Status{})
	case *core.LayoutCollection:
		s, err = b.applyRules(RulesForLayouts, o, Status{})
	}
	if err != nil {
		return Status{}, err
	}
	b.statuses[ref] = s
	return s, nil
}

func (b *Basic) applyRules(rules []*Rule, obj core.Object, s Status) (Status, error) {
	for _, rule := range rules {
		if !s.UsefulToApply(rule) {
			continue
		}
		r, err := rule.Apply(obj, b)
		if err != nil {
			return Status{}, err
		}
		if r != nil {
			s = s.Update(*r)
		}
	}
	return s, nil
}
