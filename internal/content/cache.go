package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"

	"sitebuild/internal/core"
	"sitebuild/internal/store"
)

const (
	TextualCacheVersion = 2
	BinaryCacheVersion  = 1
)

// entry is a persisted snapshot. Textual entries carry Text; binary entries
// carry the Filename of a private copy of the content.
type entry struct {
	Binary   bool   `msgpack:"binary"`
	Text     string `msgpack:"text,omitempty"`
	Filename string `msgpack:"filename,omitempty"`
}

// repEntries is keyed by item identifier, then rep name, then snapshot.
type repEntries map[string]map[string]map[string]entry

func (r repEntries) get(rep *core.ItemRep) (map[string]entry, bool) {
	m, ok := r[rep.Item().Identifier().String()][rep.Name()]
	return m, ok
}

func (r repEntries) set(rep *core.ItemRep, m map[string]entry) {
	id := rep.Item().Identifier().String()
	if r[id] == nil {
		r[id] = map[string]map[string]entry{}
	}
	r[id][rep.Name()] = m
}

// pruned removes every item not in keep and returns the removed item
// identifiers.
func (r repEntries) prune(keep map[string]bool) []string {
	var removed []string
	for id := range r {
		if !keep[id] {
			delete(r, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// TextualCache persists the textual snapshots of reps.
type TextualCache struct {
	file    *store.File
	entries repEntries
}

// NewTextualCache returns a textual cache at path.
func NewTextualCache(path string) *TextualCache {
	return &TextualCache{file: store.NewFile(path, TextualCacheVersion), entries: repEntries{}}
}

func (c *TextualCache) Name() string { return c.file.Name() }

func (c *TextualCache) Load(ctx context.Context) error {
	entries := repEntries{}
	ok, err := c.file.Load(ctx, &entries)
	if err != nil {
		return err
	}
	if !ok {
		entries = repEntries{}
	}
	c.entries = entries
	return nil
}

func (c *TextualCache) Store(ctx context.Context) error { return c.file.Save(c.entries) }

// Get returns the cached textual snapshots of rep.
func (c *TextualCache) Get(rep *core.ItemRep) (map[string]core.Content, bool) {
	m, ok := c.entries.get(rep)
	if !ok {
		return nil, false
	}
	out := make(map[string]core.Content, len(m))
	for name, e := range m {
		if e.Binary {
			out[name] = core.NewBinaryContent(e.Filename)
			continue
		}
		out[name] = core.NewTextualContent(e.Text, "")
	}
	return out, true
}

// Set replaces the cached snapshots of rep with the textual ones in
// contents.
func (c *TextualCache) Set(rep *core.ItemRep, contents map[string]core.Content) {
	m := map[string]entry{}
	for name, content := range contents {
		if content.Binary() {
			continue
		}
		s, _ := core.ContentString(content)
		m[name] = entry{Text: s}
	}
	c.entries.set(rep, m)
}

// FullCacheAvailable reports whether rep is cached and none of its entries
// is binary.
func (c *TextualCache) FullCacheAvailable(rep *core.ItemRep) bool {
	m, ok := c.entries.get(rep)
	if !ok {
		return false
	}
	for _, e := range m {
		if e.Binary {
			return false
		}
	}
	return true
}

// Prune drops every item not in items.
func (c *TextualCache) Prune(items []*core.Item) {
	c.entries.prune(identifierSet(items))
}

// BinaryCache persists the binary snapshots of reps as private file copies
// under its directory.
type BinaryCache struct {
	file    *store.File
	dir     string
	entries repEntries
}

// NewBinaryCache returns a binary cache at path. Content copies live in
// the directory path + "_data".
func NewBinaryCache(path string) *BinaryCache {
	return &BinaryCache{file: store.NewFile(path, BinaryCacheVersion), dir: path + "_data", entries: repEntries{}}
}

func (c *BinaryCache) Name() string { return c.file.Name() }

func (c *BinaryCache) Load(ctx context.Context) error {
	entries := repEntries{}
	ok, err := c.file.Load(ctx, &entries)
	if err != nil {
		return err
	}
	if !ok {
		entries = repEntries{}
	}
	c.entries = entries
	return nil
}

func (c *BinaryCache) Store(ctx context.Context) error { return c.file.Save(c.entries) }

func (c *BinaryCache) itemDir(id string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%016x", xxhash.Sum64String(id)))
}

// Get returns the cached binary snapshots of rep.
func (c *BinaryCache) Get(rep *core.ItemRep) (map[string]core.Content, bool) {
	m, ok := c.entries.get(rep)
	if !ok {
		return nil, false
	}
	out := make(map[string]core.Content, len(m))
	for name, e := range m {
		if !e.Binary {
			out[name] = core.NewTextualContent(e.Text, "")
			continue
		}
		out[name] = core.NewBinaryContent(e.Filename)
	}
	return out, true
}

// Set copies the binary snapshots in contents into the cache directory and
// replaces the cached entries of rep with them. The copies never share an
// inode with the originals.
func (c *BinaryCache) Set(rep *core.ItemRep, contents map[string]core.Content) error {
	dir := filepath.Join(c.itemDir(rep.Item().Identifier().String()), rep.Name())
	m := map[string]entry{}
	for name, content := range contents {
		if !content.Binary() {
			continue
		}
		dst := filepath.Join(dir, fmt.Sprintf("%016x", xxhash.Sum64String(name)))
		if content.Filename() != dst {
			if err := store.CopyFile(content.Filename(), dst); err != nil {
				return fmt.Errorf("cache binary snapshot %q of %s: %w", name, rep, err)
			}
		}
		m[name] = entry{Binary: true, Filename: dst}
	}
	c.entries.set(rep, m)
	return nil
}

// FullCacheAvailable reports whether rep is cached, every entry is binary
// and every cached file still exists.
func (c *BinaryCache) FullCacheAvailable(rep *core.ItemRep) bool {
	m, ok := c.entries.get(rep)
	if !ok {
		return false
	}
	for _, e := range m {
		if !e.Binary {
			return false
		}
		if fi, err := os.Stat(e.Filename); err != nil || !fi.Mode().IsRegular() {
			return false
		}
	}
	return true
}

// Prune drops every item not in items together with its files.
func (c *BinaryCache) Prune(items []*core.Item) error {
	var err error
	for _, id := range c.entries.prune(identifierSet(items)) {
		err = multierr.Append(err, os.RemoveAll(c.itemDir(id)))
	}
	return err
}

// Cache is the cross-run compiled content cache: textual and binary
// snapshots are kept in separate sub-caches and must agree.
type Cache struct {
	Textual *TextualCache
	Binary  *BinaryCache
}

// NewCache returns a cache whose sub-caches live next to each other in dir.
func NewCache(dir string) *Cache {
	return &Cache{
		Textual: NewTextualCache(filepath.Join(dir, "compiled_content")),
		Binary:  NewBinaryCache(filepath.Join(dir, "binary_content")),
	}
}

func (c *Cache) Name() string { return "compiled_content_cache" }

// Load loads both sub-caches.
func (c *Cache) Load(ctx context.Context) error {
	return multierr.Combine(c.Textual.Load(ctx), c.Binary.Load(ctx))
}

// Store persists both sub-caches.
func (c *Cache) Store(ctx context.Context) error {
	return multierr.Combine(c.Textual.Store(ctx), c.Binary.Store(ctx))
}

// Get returns every cached snapshot of rep. When either sub-cache lacks the
// rep the cache is treated as entirely absent.
func (c *Cache) Get(rep *core.ItemRep) (map[string]core.Content, bool) {
	textual, ok := c.Textual.Get(rep)
	if !ok {
		return nil, false
	}
	binary, ok := c.Binary.Get(rep)
	if !ok {
		return nil, false
	}
	for k, v := range binary {
		textual[k] = v
	}
	return textual, true
}

// Set caches every snapshot of rep.
func (c *Cache) Set(rep *core.ItemRep, contents map[string]core.Content) error {
	c.Textual.Set(rep, contents)
	return c.Binary.Set(rep, contents)
}

// FullCacheAvailable reports whether both sub-caches hold rep with entries
// of the expected kind only.
func (c *Cache) FullCacheAvailable(rep *core.ItemRep) bool {
	return c.Textual.FullCacheAvailable(rep) && c.Binary.FullCacheAvailable(rep)
}

// Prune drops every item not in items from both sub-caches.
func (c *Cache) Prune(items []*core.Item) error {
	c.Textual.Prune(items)
	return c.Binary.Prune(items)
}

func identifierSet(items []*core.Item) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it.Identifier().String()] = true
	}
	return out
}
