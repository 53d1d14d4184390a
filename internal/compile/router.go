package compile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"sitebuild/internal/core"
)

// DuplicateOutputPathError is returned when two reps would be written to
// the same file.
type DuplicateOutputPathError struct {
	Path string
	Reps [2]*core.ItemRep
}

func (e *DuplicateOutputPathError) Error() string {
	return fmt.Sprintf("the reps %s and %s are both routed to %s", e.Reps[0], e.Reps[1], e.Path)
}

// Router assigns output paths to reps from their action sequences.
type Router struct {
	OutputDir      string
	IndexFilenames []string
}

// Route sets the snapshot definitions, public paths and raw paths of every
// rep.
func (r *Router) Route(reps []*core.ItemRep, seqs SequenceSource) error {
	owners := map[string]*core.ItemRep{}
	for _, rep := range reps {
		seq, err := seqs.SequenceFor(rep)
		if err != nil {
			return err
		}
		if err := rep.SetSnapshotDefs(seq.SnapshotDefs()); err != nil {
			return err
		}

		routed := seq.Paths()
		names := make([]string, 0, len(routed))
		for name := range routed {
			names = append(names, name)
		}
		sort.Strings(names)

		paths := map[string][]string{}
		raw := map[string][]string{}
		for _, name := range names {
			for _, p := range routed[name] {
				if !strings.HasPrefix(p, "/") {
					return errorf(ErrInvalidRoute, "path %q of %s does not start with a slash", p, rep)
				}
				rawPath := filepath.Join(r.OutputDir, filepath.FromSlash(p))
				if owner, dup := owners[rawPath]; dup && owner != rep {
					return &DuplicateOutputPathError{Path: rawPath, Reps: [2]*core.ItemRep{owner, rep}}
				}
				owners[rawPath] = rep
				raw[name] = append(raw[name], rawPath)
				paths[name] = append(paths[name], r.publicPath(p))
			}
		}
		rep.SetRawPaths(raw)
		rep.SetPaths(paths)
	}
	return nil
}

func (r *Router) publicPath(p string) string {
	for _, index := range r.IndexFilenames {
		if strings.HasSuffix(p, "/"+index) {
			return strings.TrimSuffix(p, index)
		}
	}
	return p
}
