package core

import "sync"

// Content is the content of a document or of a snapshot.
//
// Content values are immutable. Whether content is binary is fixed when it
// is constructed.
type Content interface {
	// Binary reports whether the content is stored in a file rather than in
	// memory.
	Binary() bool

	// Filename is the file backing the content. It is always set for binary
	// content and optional for textual content.
	Filename() string
}

// TextualContent is in-memory string content, optionally loaded lazily.
type TextualContent struct {
	filename string

	once sync.Once
	load func() string
	str  string
}

// NewTextualContent returns textual content holding s.
func NewTextualContent(s, filename string) *TextualContent {
	c := &TextualContent{str: s, filename: filename}
	c.once.Do(func() {})
	return c
}

// NewLazyTextualContent returns textual content whose string is produced by
// load the first time it is needed.
func NewLazyTextualContent(load func() string, filename string) *TextualContent {
	return &TextualContent{load: load, filename: filename}
}

func (c *TextualContent) Binary() bool     { return false }
func (c *TextualContent) Filename() string { return c.filename }

// String returns the content, loading it if necessary.
func (c *TextualContent) String() string {
	c.once.Do(func() {
		if c.load != nil {
			c.str = c.load()
			c.load = nil
		}
	})
	return c.str
}

// BinaryContent is content stored in a file.
type BinaryContent struct {
	filename string
}

// NewBinaryContent returns binary content backed by filename.
func NewBinaryContent(filename string) *BinaryContent {
	return &BinaryContent{filename: filename}
}

func (c *BinaryContent) Binary() bool     { return true }
func (c *BinaryContent) Filename() string { return c.filename }

// ContentString returns the string of textual content. It returns
// ErrBinaryContent for binary content.
func ContentString(c Content) (string, error) {
	t, ok := c.(*TextualContent)
	if !ok {
		return "", &Error{Kind: ErrBinaryContent, Msg: c.Filename()}
	}
	return t.String(), nil
}
