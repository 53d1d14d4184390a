package core

import (
	"sort"
)

// Document is the state shared by items and layouts.
//
// Content and attributes are mutable during a run (for example by a
// preprocessing step of a data source); the identifier is not.
type Document struct {
	identifier Identifier
	content    Content
	attributes map[string]any

	// Optional pre-computed checksum inputs supplied by a data source. When
	// set they replace the content or attributes in checksum calculation.
	ContentChecksumData    []byte
	AttributesChecksumData []byte
}

func newDocument(content Content, attributes map[string]any, id Identifier) Document {
	attrs := make(map[string]any, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	if content == nil {
		content = NewTextualContent("", "")
	}
	return Document{identifier: id, content: content, attributes: attrs}
}

func (d *Document) Identifier() Identifier { return d.identifier }
func (d *Document) Content() Content       { return d.content }

// SetContent replaces the document content.
func (d *Document) SetContent(c Content) { d.content = c }

// Attributes returns the attribute map. Callers must not retain it across
// mutations of the document.
func (d *Document) Attributes() map[string]any { return d.attributes }

// Attribute returns the value of a single attribute.
func (d *Document) Attribute(key string) (any, bool) {
	v, ok := d.attributes[key]
	return v, ok
}

// SetAttribute sets a single attribute.
func (d *Document) SetAttribute(key string, value any) { d.attributes[key] = value }

// AttributeKeys returns the attribute keys in sorted order.
func (d *Document) AttributeKeys() []string {
	keys := make([]string, 0, len(d.attributes))
	for k := range d.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Item is a piece of site content that is compiled into one or more reps.
type Item struct {
	Document
}

// NewItem returns an item. The attribute map is copied.
func NewItem(content Content, attributes map[string]any, id Identifier) *Item {
	return &Item{Document: newDocument(content, attributes, id)}
}

func (i *Item) Reference() Reference { return ItemRef(i.identifier) }
func (i *Item) String() string       { return "item " + i.identifier.String() }

// Layout is a document that item content can be laid out in.
type Layout struct {
	Document
}

// NewLayout returns a layout. The attribute map is copied.
func NewLayout(content Content, attributes map[string]any, id Identifier) *Layout {
	return &Layout{Document: newDocument(content, attributes, id)}
}

func (l *Layout) Reference() Reference { return LayoutRef(l.identifier) }
func (l *Layout) String() string       { return "layout " + l.identifier.String() }

// CodeSnippet is a piece of site-level helper code. A change to any code
// snippet makes every rep and layout outdated.
type CodeSnippet struct {
	Filename string
	Data     string
}

func (c *CodeSnippet) Reference() Reference {
	return Reference{Kind: RefCodeSnippet, ID: c.Filename}
}

// Configuration holds the site configuration attributes.
type Configuration struct {
	attributes map[string]any
}

// NewConfiguration returns a configuration holding a copy of attributes.
func NewConfiguration(attributes map[string]any) *Configuration {
	attrs := make(map[string]any, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return &Configuration{attributes: attrs}
}

func (c *Configuration) Reference() Reference { return Reference{Kind: RefConfig} }

// Attributes returns the configuration attribute map.
func (c *Configuration) Attributes() map[string]any { return c.attributes }

// Get returns a single configuration attribute.
func (c *Configuration) Get(key string) (any, bool) {
	v, ok := c.attributes[key]
	return v, ok
}
