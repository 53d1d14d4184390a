// Package filters defines the contract between the build engine and the
// content transformations it runs, plus a registry and builtin filters.
package filters

import (
	"fmt"
	"sort"
)

// Input is the content a filter runs over. Textual content is in Text;
// binary content is the file at Filename.
type Input struct {
	Text     string
	Filename string
	Binary   bool
}

// RunFunc transforms content. Filters producing textual content return it;
// filters producing binary content write it to fc.OutputFilename() and
// return "".
type RunFunc func(fc Context, in Input, params map[string]any) (string, error)

// Filter describes a transformation.
type Filter struct {
	Name       string
	FromBinary bool
	ToBinary   bool

	// AlwaysOutdated marks filters whose output cannot be tracked through
	// dependencies; reps using them are recompiled on every run.
	AlwaysOutdated bool

	Run RunFunc
}

// UnknownFilterError is returned when a filter name is not registered.
type UnknownFilterError struct {
	Name string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("the requested filter, %q, does not exist", e.Name)
}

// Registry maps filter names to filters.
type Registry struct {
	filters map[string]*Filter
}

// NewRegistry returns a registry holding filters.
func NewRegistry(filters ...*Filter) (*Registry, error) {
	r := &Registry{filters: map[string]*Filter{}}
	for _, f := range filters {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds f. Registering a name twice is an error.
func (r *Registry) Register(f *Filter) error {
	if f == nil || f.Name == "" || f.Run == nil {
		return fmt.Errorf("filter must have a name and a run function")
	}
	if _, dup := r.filters[f.Name]; dup {
		return fmt.Errorf("filter %q registered twice", f.Name)
	}
	r.filters[f.Name] = f
	return nil
}

// Get returns the named filter.
func (r *Registry) Get(name string) (*Filter, error) {
	f, ok := r.filters[name]
	if !ok {
		return nil, &UnknownFilterError{Name: name}
	}
	return f, nil
}

// AlwaysOutdated reports whether the named filter is always outdated.
// Unknown filters are not.
func (r *Registry) AlwaysOutdated(name string) bool {
	f, ok := r.filters[name]
	return ok && f.AlwaysOutdated
}

// ProducesBinary reports whether running the named filter over content of
// the given kind yields binary content. Unknown filters keep the kind.
func (r *Registry) ProducesBinary(name string, inputBinary bool) bool {
	f, ok := r.filters[name]
	if !ok {
		return inputBinary
	}
	return f.ToBinary
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.filters))
	for n := range r.filters {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
