package checksum

import (
	"context"

	"sitebuild/internal/core"
	"sitebuild/internal/store"
)

// StoreVersion is bumped whenever the persisted layout or the checksum
// algorithm changes.
const StoreVersion = 2

// Store holds the checksums of the previous run.
type Store struct {
	file    *store.File
	objects []core.Object
	sums    map[string]Sums
}

// NewStore returns a checksum store at path that tracks objects. Entries of
// objects that are not in objects are dropped on Store.
func NewStore(path string, objects []core.Object) *Store {
	return &Store{file: store.NewFile(path, StoreVersion), objects: objects, sums: map[string]Sums{}}
}

func (s *Store) Name() string { return s.file.Name() }

// Load replaces the in-memory checksums with the persisted ones.
func (s *Store) Load(ctx context.Context) error {
	sums := map[string]Sums{}
	ok, err := s.file.Load(ctx, &sums)
	if err != nil {
		return err
	}
	if !ok {
		sums = map[string]Sums{}
	}
	s.sums = sums
	return nil
}

// Store persists the checksums of the tracked objects.
func (s *Store) Store(ctx context.Context) error {
	keep := make(map[string]Sums, len(s.objects))
	for _, o := range s.objects {
		key := o.Reference().String()
		if sums, ok := s.sums[key]; ok {
			keep[key] = sums
		}
	}
	return s.file.Save(keep)
}

// Get returns the previous checksums of the object with the given reference.
func (s *Store) Get(ref core.Reference) (Sums, bool) {
	sums, ok := s.sums[ref.String()]
	return sums, ok
}

// Set records sums for ref.
func (s *Store) Set(ref core.Reference, sums Sums) { s.sums[ref.String()] = sums }

// Add computes and records the checksums of obj.
func (s *Store) Add(obj core.Object) { s.Set(obj.Reference(), SumsFor(obj)) }

// Update copies every checksum of c into the store.
func (s *Store) Update(c *Collection) {
	for ref, sums := range c.sums {
		s.Set(ref, sums)
	}
}

// References returns the stored references of the given kind.
func (s *Store) References(kind core.RefKind) []core.Reference {
	var out []core.Reference
	for key := range s.sums {
		ref, err := core.ParseReference(key)
		if err != nil || ref.Kind != kind {
			continue
		}
		out = append(out, ref)
	}
	return out
}
