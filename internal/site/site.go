// Package site assembles the documents of a site from its data sources and
// decides, through rules, how every item is compiled.
package site

import (
	"context"
	"fmt"
	"strings"

	"sitebuild/internal/config"
	"sitebuild/internal/core"
)

// Site is the input of a compilation run.
type Site struct {
	Config       *core.Configuration
	Items        *core.ItemCollection
	Layouts      *core.LayoutCollection
	CodeSnippets []*core.CodeSnippet
}

// New returns a site holding the given documents.
func New(attrs map[string]any, items []*core.Item, layouts []*core.Layout, snippets []*core.CodeSnippet) (*Site, error) {
	itemColl, err := core.NewItemCollection(items...)
	if err != nil {
		return nil, err
	}
	layoutColl, err := core.NewLayoutCollection(layouts...)
	if err != nil {
		return nil, err
	}
	return &Site{
		Config:       core.NewConfiguration(attrs),
		Items:        itemColl,
		Layouts:      layoutColl,
		CodeSnippets: snippets,
	}, nil
}

// Load reads every configured data source.
func Load(ctx context.Context, cfg *config.Config, reg *Registry) (*Site, error) {
	var (
		items    []*core.Item
		layouts  []*core.Layout
		snippets []*core.CodeSnippet
	)
	for _, dsCfg := range cfg.DataSources {
		ds, err := reg.New(cfg, dsCfg)
		if err != nil {
			return nil, err
		}
		its, err := ds.Items(ctx)
		if err != nil {
			return nil, fmt.Errorf("data source %s: items: %w", dsCfg.Type, err)
		}
		for _, it := range its {
			id, err := mount(dsCfg.ItemsRoot, it.Identifier())
			if err != nil {
				return nil, err
			}
			items = append(items, remountItem(it, id))
		}
		ls, err := ds.Layouts(ctx)
		if err != nil {
			return nil, fmt.Errorf("data source %s: layouts: %w", dsCfg.Type, err)
		}
		for _, l := range ls {
			id, err := mount(dsCfg.LayoutsRoot, l.Identifier())
			if err != nil {
				return nil, err
			}
			layouts = append(layouts, remountLayout(l, id))
		}
		cs, err := ds.CodeSnippets(ctx)
		if err != nil {
			return nil, fmt.Errorf("data source %s: code snippets: %w", dsCfg.Type, err)
		}
		snippets = append(snippets, cs...)
	}

	attrs := make(map[string]any, len(cfg.Site)+1)
	for k, v := range cfg.Site {
		attrs[k] = v
	}
	attrs["output_dir"] = cfg.AbsOutputDir()
	return New(attrs, items, layouts, snippets)
}

func mount(root string, id core.Identifier) (core.Identifier, error) {
	if root == "" || root == "/" {
		return id, nil
	}
	return core.NewIdentifier(strings.TrimSuffix(root, "/") + id.String())
}

func remountItem(it *core.Item, id core.Identifier) *core.Item {
	if id == it.Identifier() {
		return it
	}
	out := core.NewItem(it.Content(), it.Attributes(), id)
	out.ContentChecksumData = it.ContentChecksumData
	out.AttributesChecksumData = it.AttributesChecksumData
	return out
}

func remountLayout(l *core.Layout, id core.Identifier) *core.Layout {
	if id == l.Identifier() {
		return l
	}
	return core.NewLayout(l.Content(), l.Attributes(), id)
}
