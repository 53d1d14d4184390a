package site

import (
	"context"
	"fmt"
	"sort"

	"sitebuild/internal/config"
	"sitebuild/internal/core"
)

// DataSource supplies the documents of a site. Identifiers are relative to
// the source; the site mounts them under the configured roots.
type DataSource interface {
	Items(ctx context.Context) ([]*core.Item, error)
	Layouts(ctx context.Context) ([]*core.Layout, error)
	CodeSnippets(ctx context.Context) ([]*core.CodeSnippet, error)
}

// Factory creates a data source from its configuration.
type Factory func(cfg *config.Config, ds config.DataSource) (DataSource, error)

// UnknownDataSourceError is returned for a data source type that is not
// registered.
type UnknownDataSourceError struct {
	Type string
}

func (e *UnknownDataSourceError) Error() string {
	return fmt.Sprintf("the data source specified in the site's configuration file, %q, does not exist", e.Type)
}

// Registry maps data source type names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the filesystem and inline sources.
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("filesystem", newFilesystemSource)
	r.Register("inline", newInlineSource)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(typ string, f Factory) { r.factories[typ] = f }

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// New creates the data source described by ds.
func (r *Registry) New(cfg *config.Config, ds config.DataSource) (DataSource, error) {
	f, ok := r.factories[ds.Type]
	if !ok {
		return nil, &UnknownDataSourceError{Type: ds.Type}
	}
	return f(cfg, ds)
}

type inlineSource struct {
	ds config.DataSource
}

func newInlineSource(_ *config.Config, ds config.DataSource) (DataSource, error) {
	return &inlineSource{ds: ds}, nil
}

func (s *inlineSource) Items(context.Context) ([]*core.Item, error) {
	out := make([]*core.Item, 0, len(s.ds.Items))
	for _, d := range s.ds.Items {
		id, err := core.NewIdentifier(d.Identifier)
		if err != nil {
			return nil, err
		}
		out = append(out, core.NewItem(core.NewTextualContent(d.Content, ""), d.Attributes, id))
	}
	return out, nil
}

func (s *inlineSource) Layouts(context.Context) ([]*core.Layout, error) {
	out := make([]*core.Layout, 0, len(s.ds.Layouts))
	for _, d := range s.ds.Layouts {
		id, err := core.NewIdentifier(d.Identifier)
		if err != nil {
			return nil, err
		}
		out = append(out, core.NewLayout(core.NewTextualContent(d.Content, ""), d.Attributes, id))
	}
	return out, nil
}

func (s *inlineSource) CodeSnippets(context.Context) ([]*core.CodeSnippet, error) { return nil, nil }
