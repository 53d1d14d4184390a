package filters

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"sitebuild/internal/store"
)

// Builtins returns the filters every site gets.
func Builtins() []*Filter {
	return []*Filter{Passthrough, Markdown, Template, Copy}
}

// NewBuiltinRegistry returns a registry holding the builtin filters plus
// extra.
func NewBuiltinRegistry(extra ...*Filter) (*Registry, error) {
	return NewRegistry(append(Builtins(), extra...)...)
}

var Passthrough = &Filter{
	Name: "passthrough",
	Run: func(_ Context, in Input, _ map[string]any) (string, error) {
		return in.Text, nil
	},
}

// Markdown renders CommonMark to HTML. Params: "gfm" enables GitHub
// flavored extensions, "unsafe" keeps raw HTML.
var Markdown = &Filter{
	Name: "markdown",
	Run: func(_ Context, in Input, params map[string]any) (string, error) {
		var opts []goldmark.Option
		if boolParam(params, "gfm") {
			opts = append(opts, goldmark.WithExtensions(extension.GFM))
		}
		if boolParam(params, "unsafe") {
			opts = append(opts, goldmark.WithRendererOptions(html.WithUnsafe()))
		}
		var buf bytes.Buffer
		if err := goldmark.New(opts...).Convert([]byte(in.Text), &buf); err != nil {
			return "", fmt.Errorf("markdown: %w", err)
		}
		return buf.String(), nil
	},
}

// Template executes the content as a text/template. Inside a layout,
// {{ yield }} is the content being laid out.
var Template = &Filter{
	Name: "template",
	Run: func(fc Context, in Input, _ map[string]any) (string, error) {
		tmpl, err := template.New(fc.Item().Identifier()).
			Option("missingkey=zero").
			Funcs(templateFuncs(fc)).
			Parse(in.Text)
		if err != nil {
			return "", fmt.Errorf("template: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, fc.Item()); err != nil {
			return "", fmt.Errorf("template: %w", err)
		}
		return buf.String(), nil
	},
}

// Copy copies binary content unchanged.
var Copy = &Filter{
	Name:       "copy",
	FromBinary: true,
	ToBinary:   true,
	Run: func(fc Context, in Input, _ map[string]any) (string, error) {
		if err := store.CopyFile(in.Filename, fc.OutputFilename()); err != nil {
			return "", fmt.Errorf("copy: %w", err)
		}
		return "", nil
	},
}

func templateFuncs(fc Context) template.FuncMap {
	find := func(pattern string) (ItemView, error) {
		it, ok := fc.Items().Find(pattern)
		if !ok {
			return nil, fmt.Errorf("no item matches %q", pattern)
		}
		return it, nil
	}
	return template.FuncMap{
		"yield":  fc.LayoutContent,
		"attr":   func(key string) any { return fc.Item().Attribute(key) },
		"config": fc.Config,
		"items":  fc.Items().FindAll,
		"content": func(pattern string, snapshot ...string) (string, error) {
			it, err := find(pattern)
			if err != nil {
				return "", err
			}
			snap := ""
			if len(snapshot) > 0 {
				snap = snapshot[0]
			}
			return it.CompiledContent(snap)
		},
		"path": func(pattern string) (string, error) {
			it, err := find(pattern)
			if err != nil {
				return "", err
			}
			return it.Path()
		},
	}
}

func boolParam(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}
