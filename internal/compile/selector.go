package compile

import (
	"context"
	"errors"

	"sitebuild/internal/core"
)

// Selector yields reps in an order that respects dependencies discovered
// while compiling them.
//
// Three queues are kept: A holds reps that must run next (most recently
// discovered first), B the reps originally requested (in order), and C reps
// that are waiting for another rep. A rep that suspends on a dependency
// moves to C and the dependency is pushed onto A; once the dependency has
// been compiled its waiters move back to A, so a suspended rep resumes
// before B is consulted again.
//
// The call stack holds the reps that are in progress. A rep asking for a
// rep that is already on the stack closes a cycle.
type Selector struct {
	a, b, c []*core.ItemRep
	stack   []*core.ItemRep
	seen    map[core.Reference]bool
	waiters map[core.Reference][]*core.ItemRep
}

// NewSelector returns a selector over reps.
func NewSelector(reps []*core.ItemRep) *Selector {
	return &Selector{
		b:       append([]*core.ItemRep(nil), reps...),
		seen:    map[core.Reference]bool{},
		waiters: map[core.Reference][]*core.ItemRep{},
	}
}

// Each calls fn for every rep until all of them completed. When fn reports
// an unmet dependency (possibly wrapped), the rep is deferred and fn is
// called again for it after the dependency completed. Any other error stops
// the iteration, as does cancellation of ctx between two calls.
func (s *Selector) Each(ctx context.Context, fn func(ctx context.Context, rep *core.ItemRep) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep := s.next()
		if rep == nil {
			return nil
		}
		err := fn(ctx, rep)
		if err == nil {
			s.markOK()
			continue
		}
		var unmet *UnmetDependencyError
		if !errors.As(err, &unmet) {
			return err
		}
		if err := s.markDeferred(rep, unmet.Rep); err != nil {
			return err
		}
	}
}

func (s *Selector) next() *core.ItemRep {
	var rep *core.ItemRep
	switch {
	case len(s.a) > 0:
		rep = s.a[len(s.a)-1]
		s.a = s.a[:len(s.a)-1]
	default:
		for len(s.b) > 0 && rep == nil {
			cand := s.b[0]
			s.b = s.b[1:]
			if !s.seen[cand.Reference()] {
				rep = cand
			}
		}
		if rep == nil && len(s.c) > 0 {
			rep = s.c[0]
			s.c = s.c[1:]
		}
	}
	if rep == nil {
		return nil
	}
	if top := s.top(); top == nil || top.Reference() != rep.Reference() {
		s.stack = append(s.stack, rep)
	}
	return rep
}

func (s *Selector) top() *core.ItemRep {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *Selector) markOK() {
	done := s.top()
	if done == nil {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.seen[done.Reference()] = true

	ref := done.Reference()
	for _, w := range s.waiters[ref] {
		s.c = removeRep(s.c, w)
		s.a = append(s.a, w)
	}
	delete(s.waiters, ref)
}

func (s *Selector) markDeferred(rep, dep *core.ItemRep) error {
	for i, r := range s.stack {
		if r.Reference() == dep.Reference() {
			cycle := append(append([]*core.ItemRep(nil), s.stack[i:]...), dep)
			return &DependencyCycleError{Cycle: cycle}
		}
	}
	s.c = append(s.c, rep)
	s.waiters[dep.Reference()] = append(s.waiters[dep.Reference()], rep)
	s.a = append(s.a, dep)
	s.seen[dep.Reference()] = true
	return nil
}

func removeRep(reps []*core.ItemRep, rep *core.ItemRep) []*core.ItemRep {
	out := reps[:0]
	for _, r := range reps {
		if r != rep {
			out = append(out, r)
		}
	}
	return out
}
