package compile

import (
	"bytes"
	"errors"
	"os"
	"sort"

	"sitebuild/internal/content"
	"sitebuild/internal/core"
	"sitebuild/internal/events"
	"sitebuild/internal/store"
)

// writer writes snapshots to their raw paths. Files whose content did not
// change are left alone, so their modification time is kept.
type writer struct {
	sink events.Sink
}

// WriteAll writes every snapshot of rep that has raw paths.
func (w *writer) WriteAll(rep *core.ItemRep, contents *content.Store) error {
	raw := rep.RawPaths()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, path := range raw[name] {
			if err := w.Write(rep, contents, name, path); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write writes one snapshot of rep to path and marks rep modified when the
// file changed.
func (w *writer) Write(rep *core.ItemRep, contents *content.Store, snapshot, path string) error {
	c, ok := contents.Get(rep, snapshot)
	if !ok {
		return core.Inconsistency("cannot write snapshot %q of %s: it was never created", snapshot, rep)
	}
	ref := rep.Reference().String()
	events.SafeEmit(w.sink, events.Event{Kind: events.RepWriteStarted, Rep: ref, Subject: snapshot, Target: path})

	modified, err := writeContent(c, path)
	if err != nil {
		return err
	}
	if modified {
		rep.SetModified(true)
	}
	events.SafeEmit(w.sink, events.Event{Kind: events.RepWriteEnded, Rep: ref, Subject: snapshot, Target: path, Modified: modified})
	return nil
}

func writeContent(c core.Content, path string) (bool, error) {
	var data []byte
	if c.Binary() {
		b, err := os.ReadFile(c.Filename())
		if err != nil {
			return false, err
		}
		data = b
	} else {
		s, err := core.ContentString(c)
		if err != nil {
			return false, err
		}
		data = []byte(s)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return false, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return false, err
	}

	if c.Binary() {
		return true, store.CopyFile(c.Filename(), path)
	}
	return true, store.WriteFileAtomic(path, data, 0o644)
}
