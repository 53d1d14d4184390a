package core

import "fmt"

type identifiable interface {
	*Item | *Layout
	Identifier() Identifier
}

type collection[T identifiable] struct {
	objects []T
	byID    map[string]T
}

func newCollection[T identifiable](objects []T) (collection[T], error) {
	c := collection[T]{objects: make([]T, 0, len(objects)), byID: make(map[string]T, len(objects))}
	for _, o := range objects {
		id := o.Identifier().String()
		if _, dup := c.byID[id]; dup {
			return collection[T]{}, &Error{Kind: ErrDuplicateIdentifier, Msg: fmt.Sprintf("%q", id)}
		}
		c.byID[id] = o
		c.objects = append(c.objects, o)
	}
	return c, nil
}

// All returns the objects in insertion order.
func (c *collection[T]) All() []T {
	out := make([]T, len(c.objects))
	copy(out, c.objects)
	return out
}

// Len returns the number of objects.
func (c *collection[T]) Len() int { return len(c.objects) }

// Get returns the object with exactly the given identifier.
func (c *collection[T]) Get(id string) (T, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// Find returns the object with the given identifier, falling back to the
// first object whose identifier matches id as a glob pattern.
func (c *collection[T]) Find(id string) (T, bool) {
	if o, ok := c.byID[id]; ok {
		return o, true
	}
	for _, o := range c.objects {
		if o.Identifier().Match(id) {
			return o, true
		}
	}
	var zero T
	return zero, false
}

// FindAll returns every object whose identifier matches the glob pattern.
func (c *collection[T]) FindAll(pattern string) []T {
	var out []T
	for _, o := range c.objects {
		if o.Identifier().Match(pattern) {
			out = append(out, o)
		}
	}
	return out
}

// ItemCollection is the set of items of a site.
type ItemCollection struct {
	collection[*Item]
}

// NewItemCollection returns a collection of items. Duplicate identifiers are
// rejected.
func NewItemCollection(items ...*Item) (*ItemCollection, error) {
	c, err := newCollection(items)
	if err != nil {
		return nil, err
	}
	return &ItemCollection{collection: c}, nil
}

func (c *ItemCollection) Reference() Reference { return Reference{Kind: RefItems} }

// ChildrenOf returns the items whose legacy identifier is a direct child of
// parent's identifier.
func (c *ItemCollection) ChildrenOf(parent *Item) ([]*Item, error) {
	if !parent.Identifier().IsLegacy() {
		return nil, &Error{Kind: ErrNonHierarchicalIdentifier, Msg: parent.Identifier().String()}
	}
	var out []*Item
	for _, it := range c.objects {
		if !it.Identifier().IsLegacy() {
			continue
		}
		ok, err := it.Identifier().IsChildOf(parent.Identifier())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// LayoutCollection is the set of layouts of a site.
type LayoutCollection struct {
	collection[*Layout]
}

// NewLayoutCollection returns a collection of layouts. Duplicate identifiers
// are rejected.
func NewLayoutCollection(layouts ...*Layout) (*LayoutCollection, error) {
	c, err := newCollection(layouts)
	if err != nil {
		return nil, err
	}
	return &LayoutCollection{collection: c}, nil
}

func (c *LayoutCollection) Reference() Reference { return Reference{Kind: RefLayouts} }
