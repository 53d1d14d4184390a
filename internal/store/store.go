// Package store provides the versioned, atomically-written persistence used
// by every stateful store of the build engine.
//
// A store named <name> occupies two files:
//
//	<name>.version.db  msgpack-encoded version integer
//	<name>.data.db     snappy-compressed msgpack payload
//
// A missing or mismatched version file means "no data". A payload that
// cannot be decoded is deleted together with its version file and also
// reported as "no data"; the store is then rebuilt from empty by its owner.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"

	"sitebuild/internal/ctxlog"
)

// Persistent is implemented by every store the compiler loads at the start
// of a run and writes back at the end.
type Persistent interface {
	Name() string
	Load(ctx context.Context) error
	Store(ctx context.Context) error
}

// File is the on-disk location and version of one store.
type File struct {
	path    string
	version int
}

// NewFile returns the store file at path (without extension) with the given
// payload version.
func NewFile(path string, version int) *File {
	return &File{path: path, version: version}
}

// Name returns the logical store name (the last path element).
func (f *File) Name() string { return filepath.Base(f.path) }

// Dir returns the directory the store files live in.
func (f *File) Dir() string { return filepath.Dir(f.path) }

// Version returns the payload version.
func (f *File) Version() int { return f.version }

func (f *File) VersionFilename() string { return f.path + ".version.db" }
func (f *File) DataFilename() string    { return f.path + ".data.db" }

// Load decodes the persisted payload into dst. It reports false when there
// is nothing usable on disk, in which case dst must be treated as empty.
// Errors are returned only when a corrupt store cannot be removed.
func (f *File) Load(ctx context.Context, dst any) (bool, error) {
	log := ctxlog.FromContext(ctx).With("store", f.Name())

	raw, err := os.ReadFile(f.VersionFilename())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("unreadable store version; discarding", "error", err)
			return false, f.Delete()
		}
		return false, nil
	}
	var version int
	if err := msgpack.Unmarshal(raw, &version); err != nil {
		log.Warn("corrupt store version; discarding", "error", err)
		return false, f.Delete()
	}
	if version != f.version {
		log.Debug("store version mismatch; discarding", "found", version, "want", f.version)
		return false, f.Delete()
	}

	compressed, err := os.ReadFile(f.DataFilename())
	if err != nil {
		log.Warn("missing store data; discarding", "error", err)
		return false, f.Delete()
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		log.Warn("corrupt store data; discarding", "error", err)
		return false, f.Delete()
	}
	if err := msgpack.Unmarshal(data, dst); err != nil {
		log.Warn("undecodable store data; discarding", "error", err)
		return false, f.Delete()
	}
	return true, nil
}

// Save writes the version file and the payload, each through a temporary
// file and an atomic rename.
func (f *File) Save(v any) error {
	version, err := msgpack.Marshal(f.version)
	if err != nil {
		return fmt.Errorf("marshal store version: %w", err)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal store data: %w", err)
	}
	if err := WriteFileAtomic(f.VersionFilename(), version, 0o644); err != nil {
		return fmt.Errorf("write store version: %w", err)
	}
	if err := WriteFileAtomic(f.DataFilename(), snappy.Encode(nil, data), 0o644); err != nil {
		return fmt.Errorf("write store data: %w", err)
	}
	return nil
}

// Delete removes both store files. Missing files are not an error.
func (f *File) Delete() error {
	for _, fn := range []string{f.VersionFilename(), f.DataFilename()} {
		if err := os.Remove(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete store file: %w", err)
		}
	}
	return nil
}

// PathFor returns the location of the store named name for a site rooted at
// siteDir with the given output directory. Distinct output directories get
// distinct store directories.
func PathFor(siteDir, outputDir, name string) string {
	prefix := fmt.Sprintf("%016x", xxhash.Sum64String(outputDir))[:12]
	return filepath.Join(siteDir, "tmp", "sitebuild", prefix, name)
}
