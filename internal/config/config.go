// Package config loads the YAML site configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up in the site directory.
const DefaultFilename = "sitebuild.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

// Error describes a configuration problem.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidConfig, Msg: fmt.Sprintf(format, args...)}
}

// Config is the configuration of one site.
type Config struct {
	// Dir is the site directory. Relative paths are resolved against it.
	Dir string `yaml:"-"`

	OutputDir      string         `yaml:"output_dir"`
	IndexFilenames []string       `yaml:"index_filenames"`
	DataSources    []DataSource   `yaml:"data_sources"`
	Site           map[string]any `yaml:"site"`
	Rules          []Rule         `yaml:"rules"`
	LayoutRules    []LayoutRule   `yaml:"layout_rules"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ChecksumVerbose logs the verbose checksum input of outdated objects.
	ChecksumVerbose bool `yaml:"checksum_verbose"`
}

// DataSource configures one source of items and layouts.
type DataSource struct {
	Type        string `yaml:"type"`
	ItemsRoot   string `yaml:"items_root"`
	LayoutsRoot string `yaml:"layouts_root"`

	// filesystem sources
	ContentDir string `yaml:"content_dir"`
	LayoutsDir string `yaml:"layouts_dir"`
	LibDir     string `yaml:"lib_dir"`

	// inline sources
	Items   []Document `yaml:"items"`
	Layouts []Document `yaml:"layouts"`
}

// Document is an item or layout written directly into the configuration.
type Document struct {
	Identifier string         `yaml:"identifier"`
	Content    string         `yaml:"content"`
	Attributes map[string]any `yaml:"attributes"`
}

// Rule describes how items matching Pattern are compiled for rep Rep.
type Rule struct {
	Pattern string       `yaml:"pattern"`
	Rep     string       `yaml:"rep"`
	Filters []FilterStep `yaml:"filters"`
	Layout  string       `yaml:"layout"`

	// Path is the route of the last snapshot. It may use the placeholders
	// {dir}, {stem}, {ext}, {rep} and {identifier}; empty means not written.
	Path string `yaml:"path"`
}

// FilterStep is a filter invocation inside a rule.
type FilterStep struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// LayoutRule selects the filter layouts matching Pattern are rendered with.
type LayoutRule struct {
	Pattern string         `yaml:"pattern"`
	Filter  string         `yaml:"filter"`
	Params  map[string]any `yaml:"params"`
}

// Load reads the configuration file at path. The site directory is the
// directory containing it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Dir = abs
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, invalidf("%v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in every unset field.
func (c *Config) ApplyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if len(c.IndexFilenames) == 0 {
		c.IndexFilenames = []string{"index.html"}
	}
	if len(c.DataSources) == 0 {
		c.DataSources = []DataSource{{Type: "filesystem"}}
	}
	for i := range c.DataSources {
		ds := &c.DataSources[i]
		if ds.ItemsRoot == "" {
			ds.ItemsRoot = "/"
		}
		if ds.LayoutsRoot == "" {
			ds.LayoutsRoot = "/"
		}
		if ds.Type == "filesystem" {
			if ds.ContentDir == "" {
				ds.ContentDir = "content"
			}
			if ds.LayoutsDir == "" {
				ds.LayoutsDir = "layouts"
			}
			if ds.LibDir == "" {
				ds.LibDir = "lib"
			}
		}
	}
	if c.Site == nil {
		c.Site = map[string]any{}
	}
	for i := range c.Rules {
		if c.Rules[i].Rep == "" {
			c.Rules[i].Rep = "default"
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	for i, ds := range c.DataSources {
		if strings.TrimSpace(ds.Type) == "" {
			return invalidf("data_sources[%d]: type is required", i)
		}
		for _, root := range []string{ds.ItemsRoot, ds.LayoutsRoot} {
			if !strings.HasPrefix(root, "/") {
				return invalidf("data_sources[%d]: root %q must start with a slash", i, root)
			}
		}
	}
	for i, r := range c.Rules {
		if r.Pattern == "" {
			return invalidf("rules[%d]: pattern is required", i)
		}
		for j, f := range r.Filters {
			if f.Name == "" {
				return invalidf("rules[%d].filters[%d]: name is required", i, j)
			}
		}
		if r.Path != "" && !strings.HasPrefix(r.Path, "/") {
			return invalidf("rules[%d]: path %q must start with a slash", i, r.Path)
		}
	}
	for i, r := range c.LayoutRules {
		if r.Pattern == "" || r.Filter == "" {
			return invalidf("layout_rules[%d]: pattern and filter are required", i)
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalidf("log_level %q (expected debug|info|warn|error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalidf("log_format %q (expected text|json)", c.LogFormat)
	}
	return nil
}

// Path resolves p against the site directory.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// AbsOutputDir returns the output directory resolved against the site
// directory.
func (c *Config) AbsOutputDir() string { return c.Path(c.OutputDir) }
