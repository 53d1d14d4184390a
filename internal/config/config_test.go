package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, []string{"index.html"}, cfg.IndexFilenames)
	want := []DataSource{{
		Type: "filesystem", ItemsRoot: "/", LayoutsRoot: "/",
		ContentDir: "content", LayoutsDir: "layouts", LibDir: "lib",
	}}
	if diff := cmp.Diff(want, cfg.DataSources); diff != "" {
		t.Fatalf("data sources (-want +got):\n%s", diff)
	}
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
output_dir: public
site:
  title: Example
data_sources:
  - type: inline
    items:
      - identifier: /index.md
        content: "# Hi"
        attributes: {title: Home}
rules:
  - pattern: "/**/*.md"
    filters:
      - name: markdown
        params: {gfm: true}
    layout: /default.html
    path: "{dir}/{stem}/index.html"
layout_rules:
  - pattern: "/*.html"
    filter: template
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, "Example", cfg.Site["title"])
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "default", cfg.Rules[0].Rep)
	assert.Equal(t, true, cfg.Rules[0].Filters[0].Params["gfm"])
	require.Len(t, cfg.DataSources[0].Items, 1)
	assert.Equal(t, "Home", cfg.DataSources[0].Items[0].Attributes["title"])
	assert.Equal(t, "template", cfg.LayoutRules[0].Filter)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":          "outptu_dir: x\n",
		"rule without pattern": "rules:\n  - rep: default\n",
		"relative path":        "rules:\n  - pattern: /x\n    path: x.html\n",
		"bad log level":        "log_level: loud\n",
		"layout rule":          "layout_rules:\n  - pattern: /x\n",
		"relative root":        "data_sources:\n  - type: inline\n    items_root: x\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad_ResolvesSiteDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte("output_dir: out\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.AbsOutputDir())
	assert.Equal(t, "/abs", cfg.Path("/abs"))
}
