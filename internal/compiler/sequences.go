package compiler

import (
	"sitebuild/internal/actions"
	"sitebuild/internal/core"
	"sitebuild/internal/site"
)

// sequences memoizes the action sequences of one run.
type sequences struct {
	provider site.ActionProvider
	memo     map[core.Reference]*actions.Sequence
}

func newSequences(p site.ActionProvider) *sequences {
	return &sequences{provider: p, memo: map[core.Reference]*actions.Sequence{}}
}

func (s *sequences) SequenceFor(obj core.Object) (*actions.Sequence, error) {
	ref := obj.Reference()
	if seq, ok := s.memo[ref]; ok {
		return seq, nil
	}
	seq, err := s.provider.ActionSequenceFor(obj)
	if err != nil {
		return nil, err
	}
	s.memo[ref] = seq
	return seq, nil
}
