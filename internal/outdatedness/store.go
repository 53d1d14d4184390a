package outdatedness

import (
	"context"
	"sort"

	"sitebuild/internal/core"
	"sitebuild/internal/store"
)

// StoreVersion is the persisted layout version of the outdated-set store.
const StoreVersion = 1

// Store is the persisted set of reps that were found outdated and have not
// been compiled yet. A run that aborts leaves them in the set so that the
// next run compiles them regardless of what changed since.
type Store struct {
	file *store.File
	refs map[string]bool
}

// NewStore returns an outdated-set store at path.
func NewStore(path string) *Store {
	return &Store{file: store.NewFile(path, StoreVersion), refs: map[string]bool{}}
}

func (s *Store) Name() string { return s.file.Name() }

func (s *Store) Load(ctx context.Context) error {
	var refs []string
	ok, err := s.file.Load(ctx, &refs)
	if err != nil {
		return err
	}
	s.refs = map[string]bool{}
	if ok {
		for _, r := range refs {
			s.refs[r] = true
		}
	}
	return nil
}

func (s *Store) Store(ctx context.Context) error {
	refs := make([]string, 0, len(s.refs))
	for r := range s.refs {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return s.file.Save(refs)
}

func (s *Store) Include(rep *core.ItemRep) bool { return s.refs[rep.Reference().String()] }
func (s *Store) Add(rep *core.ItemRep)          { s.refs[rep.Reference().String()] = true }
func (s *Store) Remove(rep *core.ItemRep)       { delete(s.refs, rep.Reference().String()) }
func (s *Store) Empty() bool                    { return len(s.refs) == 0 }
func (s *Store) Len() int                       { return len(s.refs) }
func (s *Store) Clear()                         { s.refs = map[string]bool{} }
