package filters

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	id       string
	attrs    map[string]any
	compiled string
	path     string
}

func (i *fakeItem) Identifier() string                     { return i.id }
func (i *fakeItem) Attribute(key string) any               { return i.attrs[key] }
func (i *fakeItem) RawContent() (string, error)            { return "", nil }
func (i *fakeItem) Rep(string) (RepView, error)            { return nil, errors.New("no reps") }
func (i *fakeItem) CompiledContent(string) (string, error) { return i.compiled, nil }
func (i *fakeItem) Path() (string, error)                  { return i.path, nil }

type fakeItems []*fakeItem

func (s fakeItems) Find(pattern string) (ItemView, bool) {
	for _, it := range s {
		if it.id == pattern {
			return it, true
		}
	}
	return nil, false
}

func (s fakeItems) FindAll(pattern string) []ItemView {
	var out []ItemView
	for _, it := range s {
		if strings.HasPrefix(it.id, strings.TrimSuffix(pattern, "*")) {
			out = append(out, it)
		}
	}
	return out
}

type fakeContext struct {
	item   *fakeItem
	items  fakeItems
	layout string
	out    string
}

func (c *fakeContext) Item() ItemView         { return c.item }
func (c *fakeContext) Rep() RepView           { return nil }
func (c *fakeContext) Items() ItemsView       { return c.items }
func (c *fakeContext) Config(key string) any  { return map[string]any{"title": "Site"}[key] }
func (c *fakeContext) LayoutContent() string  { return c.layout }
func (c *fakeContext) OutputFilename() string { return c.out }

func TestRegistry(t *testing.T) {
	r, err := NewBuiltinRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"copy", "markdown", "passthrough", "template"}, r.Names())

	_, err = r.Get("erb")
	var unknown *UnknownFilterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "erb", unknown.Name)

	assert.Error(t, r.Register(&Filter{Name: "copy", Run: Copy.Run}))

	assert.True(t, r.ProducesBinary("copy", false))
	assert.False(t, r.ProducesBinary("markdown", true))
	assert.True(t, r.ProducesBinary("unknown", true))
}

func TestRegistry_AlwaysOutdated(t *testing.T) {
	r, err := NewRegistry(&Filter{Name: "now", AlwaysOutdated: true, Run: Passthrough.Run})
	require.NoError(t, err)
	assert.True(t, r.AlwaysOutdated("now"))
	assert.False(t, r.AlwaysOutdated("missing"))
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown.Run(&fakeContext{}, Input{Text: "# Hi\n\n~~x~~"}, map[string]any{"gfm": true})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Hi</h1>")
	assert.Contains(t, out, "<del>x</del>")
}

func TestTemplate_Layout(t *testing.T) {
	fc := &fakeContext{
		item:   &fakeItem{id: "/index.md", attrs: map[string]any{"title": "Home"}},
		items:  fakeItems{{id: "/nav.md", compiled: "<nav/>", path: "/nav.html"}},
		layout: "<p>body</p>",
	}
	src := `<title>{{ attr "title" }} | {{ config "title" }}</title>{{ content "/nav.md" }}<a href="{{ path "/nav.md" }}"></a>{{ yield }}`
	out, err := Template.Run(fc, Input{Text: src}, nil)
	require.NoError(t, err)
	assert.Equal(t, `<title>Home | Site</title><nav/><a href="/nav.html"></a><p>body</p>`, out)
}

func TestTemplate_MissingItem(t *testing.T) {
	fc := &fakeContext{item: &fakeItem{id: "/a.md"}}
	_, err := Template.Run(fc, Input{Text: `{{ content "/missing.md" }}`}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing.md")
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(src, []byte{0x89, 'P', 'N', 'G'}, 0o644))
	fc := &fakeContext{out: filepath.Join(dir, "out", "x.png")}

	_, err := Copy.Run(fc, Input{Filename: src, Binary: true}, nil)
	require.NoError(t, err)
	got, err := os.ReadFile(fc.out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)
}
