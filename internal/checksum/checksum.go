// Package checksum computes stable, cycle-safe fingerprints of documents,
// configuration, content and arbitrary attribute values.
//
// Dispatch is a closed switch over the value shapes the engine knows about:
// scalars, identifiers, documents, reps, configuration, code snippets,
// content, path-backed files, collections and structs. Anything else falls
// back to its %#v rendering.
//
// A value that is reached again while it is still being traversed (a
// document whose attributes point back at itself, a map containing itself)
// is emitted as a back reference to the depth at which it was first entered,
// so checksums are total over cyclic graphs and two cycles of the same
// shape checksum identically.
package checksum

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"sitebuild/internal/core"
)

// FilePath is a path to a file on disk. It is fingerprinted by size and
// modification time, not by its bytes; a missing file fingerprints as "???".
type FilePath string

// Calc returns the compact (sha256, base64) checksum of v.
func Calc(v any) string {
	d := &compactDigest{h: sha256.New()}
	newWalker(d).walk(v)
	return d.sum()
}

// CalcVerbose returns the verbose checksum of v: the literal token stream
// that Calc hashes. It is only meant for tests and debugging.
func CalcVerbose(v any) string {
	d := &verboseDigest{}
	newWalker(d).walk(v)
	return d.sum()
}

// CalcForContentOf returns the checksum of the content of doc, or of its
// pre-computed content checksum data when the data source supplied one.
func CalcForContentOf(doc *core.Document) string {
	if doc.ContentChecksumData != nil {
		return Calc(doc.ContentChecksumData)
	}
	return Calc(doc.Content())
}

// CalcForEachAttributeOf returns one checksum per attribute key of obj.
// Objects without attributes yield an empty map.
func CalcForEachAttributeOf(obj core.Object) map[string]string {
	var attrs map[string]any
	switch o := obj.(type) {
	case *core.Item:
		attrs = o.Attributes()
	case *core.Layout:
		attrs = o.Attributes()
	case *core.Configuration:
		attrs = o.Attributes()
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = Calc(v)
	}
	return out
}

type digest interface {
	token(s string)
	sum() string
}

type compactDigest struct{ h hash.Hash }

func (d *compactDigest) token(s string) {
	n := uint64(len(s))
	d.h.Write([]byte{
		byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
		byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
	})
	d.h.Write([]byte(s))
}

func (d *compactDigest) sum() string {
	return base64.StdEncoding.EncodeToString(d.h.Sum(nil))
}

type verboseDigest struct{ b strings.Builder }

func (d *verboseDigest) token(s string) { d.b.WriteString(s) }
func (d *verboseDigest) sum() string    { return d.b.String() }

// identity keys a traversed value for cycle detection. Pointers compare by
// address; maps and slices by their backing storage.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type walker struct {
	d       digest
	visited map[identity]int
}

func newWalker(d digest) *walker {
	return &walker{d: d, visited: map[identity]int{}}
}

func (w *walker) open(shape string) { w.d.token(shape + "<") }
func (w *walker) close()            { w.d.token(">") }

func (w *walker) leaf(shape, value string) {
	w.open(shape)
	w.d.token(value)
	w.close()
}

// enter marks id as being traversed. It returns false, after emitting a
// back reference, when id is already on the traversal path.
func (w *walker) enter(id identity) bool {
	if idx, ok := w.visited[id]; ok {
		w.d.token("recur@" + strconv.Itoa(idx))
		return false
	}
	w.visited[id] = len(w.visited)
	return true
}

func (w *walker) leave(id identity) { delete(w.visited, id) }

func pointerIdentity(p any) identity {
	v := reflect.ValueOf(p)
	return identity{kind: reflect.Pointer, ptr: v.Pointer()}
}

func (w *walker) walk(v any) {
	switch x := v.(type) {
	case nil:
		w.d.token("nil")
	case string:
		w.leaf("String", x)
	case bool:
		w.leaf("Bool", strconv.FormatBool(x))
	case int:
		w.leaf("Int", strconv.FormatInt(int64(x), 10))
	case int64:
		w.leaf("Int", strconv.FormatInt(x, 10))
	case uint64:
		w.leaf("Int", strconv.FormatUint(x, 10))
	case float64:
		w.leaf("Float", strconv.FormatFloat(x, 'g', -1, 64))
	case []byte:
		w.leaf("Bytes", string(x))
	case time.Time:
		w.leaf("Time", x.UTC().Format(time.RFC3339Nano))
	case core.Identifier:
		w.leaf("Identifier", x.String())
	case core.Reference:
		w.leaf("Reference", x.String())
	case FilePath:
		w.walkFilePath(x)
	case *core.TextualContent:
		w.open("TextualContent")
		w.d.token(x.String())
		w.close()
	case *core.BinaryContent:
		w.open("BinaryContent")
		w.walkFilePath(FilePath(x.Filename()))
		w.close()
	case *core.Item:
		w.walkDocument("Item", x, &x.Document)
	case *core.Layout:
		w.walkDocument("Layout", x, &x.Document)
	case *core.ItemRep:
		id := pointerIdentity(x)
		if !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("ItemRep")
		w.walk(x.Item())
		w.leaf("Name", x.Name())
		w.close()
	case *core.Configuration:
		id := pointerIdentity(x)
		if !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("Configuration")
		w.walkStringMap(x.Attributes())
		w.close()
	case *core.CodeSnippet:
		w.open("CodeSnippet")
		w.leaf("Filename", x.Filename)
		w.leaf("Data", x.Data)
		w.close()
	case *core.ItemCollection:
		id := pointerIdentity(x)
		if !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("ItemCollection")
		for _, it := range x.All() {
			w.walk(it)
			w.d.token(",")
		}
		w.close()
	case *core.LayoutCollection:
		id := pointerIdentity(x)
		if !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("LayoutCollection")
		for _, l := range x.All() {
			w.walk(l)
			w.d.token(",")
		}
		w.close()
	case map[string]any:
		id := identity{kind: reflect.Map, ptr: reflect.ValueOf(x).Pointer()}
		if x != nil && !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("Hash")
		w.walkStringMap(x)
		w.close()
	case []any:
		id := identity{kind: reflect.Slice, ptr: reflect.ValueOf(x).Pointer(), len: len(x)}
		if len(x) > 0 && !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.open("Array")
		for _, e := range x {
			w.walk(e)
			w.d.token(",")
		}
		w.close()
	default:
		w.walkReflect(reflect.ValueOf(v))
	}
}

func (w *walker) walkDocument(shape string, self any, doc *core.Document) {
	id := pointerIdentity(self)
	if !w.enter(id) {
		return
	}
	defer w.leave(id)

	w.open(shape)
	w.open("content")
	if doc.ContentChecksumData != nil {
		w.walk(doc.ContentChecksumData)
	} else {
		w.walk(doc.Content())
	}
	w.close()
	w.open("attributes")
	if doc.AttributesChecksumData != nil {
		w.walk(doc.AttributesChecksumData)
	} else {
		w.walkStringMap(doc.Attributes())
	}
	w.close()
	w.walk(doc.Identifier())
	w.close()
}

func (w *walker) walkStringMap(m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.leaf("String", k)
		w.d.token("=")
		w.walk(m[k])
		w.d.token(",")
	}
}

func (w *walker) walkFilePath(p FilePath) {
	fi, err := os.Stat(string(p))
	if err != nil {
		w.leaf("File", "???")
		return
	}
	w.leaf("File", fmt.Sprintf("%d,%d", fi.Size(), fi.ModTime().UnixNano()))
}

// walkReflect handles the shapes not covered by the explicit switch:
// other scalar kinds, typed slices and maps, structs and pointers.
func (w *walker) walkReflect(v reflect.Value) {
	if !v.IsValid() {
		w.d.token("nil")
		return
	}
	switch v.Kind() {
	case reflect.String:
		w.leaf("String", v.String())
	case reflect.Bool:
		w.leaf("Bool", strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		w.leaf("Int", strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		w.leaf("Int", strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		w.leaf("Float", strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Interface:
		if v.IsNil() {
			w.d.token("nil")
			return
		}
		w.walkElem(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			w.d.token("nil")
			return
		}
		id := identity{kind: reflect.Pointer, ptr: v.Pointer()}
		if !w.enter(id) {
			return
		}
		defer w.leave(id)
		w.walkElem(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Len() > 0 {
			id := identity{kind: reflect.Slice, ptr: v.Pointer(), len: v.Len()}
			if !w.enter(id) {
				return
			}
			defer w.leave(id)
		}
		w.open("Array")
		for i := 0; i < v.Len(); i++ {
			w.walkElem(v.Index(i))
			w.d.token(",")
		}
		w.close()
	case reflect.Map:
		if !v.IsNil() {
			id := identity{kind: reflect.Map, ptr: v.Pointer()}
			if !w.enter(id) {
				return
			}
			defer w.leave(id)
		}
		w.walkReflectMap(v)
	case reflect.Struct:
		t := v.Type()
		w.open("Struct")
		w.d.token(t.String())
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			w.leaf("Field", t.Field(i).Name)
			w.d.token("=")
			w.walkElem(v.Field(i))
			w.d.token(",")
		}
		w.close()
	default:
		w.leaf("Object", fmt.Sprintf("%#v", v.Interface()))
	}
}

// walkElem re-enters the explicit switch when the element is one of the
// known shapes, so a typed slice of items checksums like []any of items.
func (w *walker) walkElem(v reflect.Value) {
	if v.CanInterface() {
		w.walk(v.Interface())
		return
	}
	w.walkReflect(v)
}

func (w *walker) walkReflectMap(v reflect.Value) {
	type entry struct {
		sortKey  string
		key, val reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, entry{sortKey: CalcVerbose(iter.Key().Interface()), key: iter.Key(), val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

	w.open("Hash")
	for _, e := range entries {
		w.walkElem(e.key)
		w.d.token("=")
		w.walkElem(e.val)
		w.d.token(",")
	}
	w.close()
}
