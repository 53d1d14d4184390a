package outdatedness

import (
	"sitebuild/internal/core"
	"sitebuild/internal/deps"
)

// Checker decides outdatedness including changes that reach an object
// through its recorded dependencies.
type Checker struct {
	basic *Basic
	deps  *deps.Store

	// transitive results, keyed by item/layout reference
	dependencyMemo map[core.Reference]bool
}

// NewChecker returns a checker over in.
func NewChecker(in Input) *Checker {
	return &Checker{basic: NewBasic(in), deps: in.Deps, dependencyMemo: map[core.Reference]bool{}}
}

// Basic returns the underlying basic checker.
func (c *Checker) Basic() *Basic { return c.basic }

// Outdated reports whether obj must be recompiled.
func (c *Checker) Outdated(obj core.Object) (bool, error) {
	reasons, err := c.Reasons(obj)
	return len(reasons) > 0, err
}

// Reasons returns why obj must be recompiled: its own reasons when it has
// any, DependenciesOutdated when it is only outdated through a dependency,
// and nothing otherwise.
func (c *Checker) Reasons(obj core.Object) ([]Reason, error) {
	s, err := c.basic.StatusFor(obj)
	if err != nil {
		return nil, err
	}
	if len(s.Reasons) > 0 {
		return s.Reasons, nil
	}
	outdated, err := c.outdatedDueToDependencies(obj, map[core.Reference]bool{})
	if err != nil || !outdated {
		return nil, err
	}
	return []Reason{DependenciesOutdated}, nil
}

func (c *Checker) outdatedDueToDependencies(obj core.Object, processing map[core.Reference]bool) (bool, error) {
	obj = documentOf(obj)
	ref := obj.Reference()
	if v, ok := c.dependencyMemo[ref]; ok {
		return v, nil
	}
	// Reported as false; a real cause elsewhere on the path still wins.
	if processing[ref] {
		return false, nil
	}

	outdated := false
	for _, dep := range c.deps.DependenciesCausingOutdatednessOf(obj) {
		causes, err := c.dependencyCausesOutdatedness(dep)
		if err != nil {
			return false, err
		}
		if causes {
			outdated = true
			break
		}
		if dep.Props.CompiledContent.Active() {
			next := make(map[core.Reference]bool, len(processing)+1)
			for k := range processing {
				next[k] = true
			}
			next[ref] = true
			transitive, err := c.outdatedDueToDependencies(dep.From, next)
			if err != nil {
				return false, err
			}
			if transitive {
				outdated = true
				break
			}
		}
	}
	c.dependencyMemo[ref] = outdated
	return outdated, nil
}

func (c *Checker) dependencyCausesOutdatedness(dep deps.Dependency) (bool, error) {
	if dep.From == nil {
		return true, nil
	}
	s, err := c.basic.StatusFor(dep.From)
	if err != nil {
		return false, err
	}
	active := s.Props.Active() & dep.Props.Active()
	if attributesUnaffected(s, dep) {
		active &^= deps.Attributes
	}
	if rawContentUnaffected(s, dep) {
		active &^= deps.RawContent
	}
	return active != deps.NoFacets, nil
}

// attributesUnaffected reports whether the source only changed attributes
// the dependency does not read.
func attributesUnaffected(s Status, dep deps.Dependency) bool {
	for _, r := range s.Reasons {
		if r.Kind != KindAttributesModified {
			continue
		}
		changed := r.AttributeKeys()
		wanted := dep.Props.AttributeKeys()
		if changed == nil || wanted == nil {
			return false
		}
		return !dep.Props.Attributes.Intersects(changed)
	}
	return false
}

// rawContentUnaffected reports whether the source is a collection that was
// only extended with documents the dependency's patterns do not match.
func rawContentUnaffected(s Status, dep deps.Dependency) bool {
	for _, r := range s.Reasons {
		if !r.isCollectionExtended() {
			continue
		}
		patterns := dep.Props.RawContentPatterns()
		if patterns == nil {
			return false
		}
		for _, pat := range patterns {
			for _, o := range r.Objects {
				if matchesIdentifier(o, pat) {
					return false
				}
			}
		}
		return true
	}
	return false
}

func matchesIdentifier(obj core.Object, pattern string) bool {
	switch o := obj.(type) {
	case *core.Item:
		return o.Identifier().String() == pattern || o.Identifier().Match(pattern)
	case *core.Layout:
		return o.Identifier().String() == pattern || o.Identifier().Match(pattern)
	}
	return false
}
