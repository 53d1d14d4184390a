package actions

import (
	"context"

	"sitebuild/internal/core"
	"sitebuild/internal/store"
)

// StoreVersion is the persisted layout version of the action sequence store.
const StoreVersion = 2

// Store keeps the serialized action sequence of every rep and layout from
// the previous run.
type Store struct {
	file      *store.File
	sequences map[string][]Serialized
}

// NewStore returns an action sequence store at path.
func NewStore(path string) *Store {
	return &Store{file: store.NewFile(path, StoreVersion), sequences: map[string][]Serialized{}}
}

func (s *Store) Name() string { return s.file.Name() }

func (s *Store) Load(ctx context.Context) error {
	seqs := map[string][]Serialized{}
	ok, err := s.file.Load(ctx, &seqs)
	if err != nil {
		return err
	}
	if !ok {
		seqs = map[string][]Serialized{}
	}
	s.sequences = seqs
	return nil
}

func (s *Store) Store(ctx context.Context) error {
	return s.file.Save(s.sequences)
}

// Get returns the serialized sequence stored for obj.
func (s *Store) Get(obj core.Object) ([]Serialized, bool) {
	seq, ok := s.sequences[obj.Reference().String()]
	return seq, ok
}

// Set records the sequence of obj.
func (s *Store) Set(obj core.Object, seq *Sequence) {
	s.sequences[obj.Reference().String()] = seq.Serialize()
}

// Retain drops every entry whose object is not in objs.
func (s *Store) Retain(objs []core.Object) {
	keep := make(map[string]bool, len(objs))
	for _, o := range objs {
		keep[o.Reference().String()] = true
	}
	for k := range s.sequences {
		if !keep[k] {
			delete(s.sequences, k)
		}
	}
}
