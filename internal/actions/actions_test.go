package actions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebuild/internal/core"
)

type binaryFilters map[string]bool

func (b binaryFilters) ProducesBinary(name string, in bool) bool {
	if out, ok := b[name]; ok {
		return out
	}
	return in
}

func build(t *testing.T) *Sequence {
	t.Helper()
	seq, err := NewBuilder("/a (rep default)", false, nil).
		AddSnapshot("raw", "").
		AddFilter("markdown", map[string]any{"smart": true}).
		AddSnapshot("pre", "").
		AddLayout("/default.*", nil).
		AddSnapshot("last", "/a/index.html").
		Build()
	require.NoError(t, err)
	return seq
}

func TestSequence_EqualityIsStructural(t *testing.T) {
	a, b := build(t), build(t)
	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Serialize(), b.Serialize())

	c, err := NewBuilder("/a (rep default)", false, nil).
		AddSnapshot("raw", "").
		AddFilter("markdown", map[string]any{"smart": false}).
		Build()
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestSequence_Serialize(t *testing.T) {
	seq := build(t)
	ser := seq.Serialize()
	require.Len(t, ser, 5)
	assert.Equal(t, Serialized{"snapshot", "1", "raw", "false", "0"}, ser[0])
	assert.Equal(t, "filter", ser[1][0])
	assert.Equal(t, "markdown", ser[1][1])
	assert.Equal(t, Serialized{"snapshot", "1", "last", "false", "1", "/a/index.html"}, ser[4])
}

func TestSequence_Queries(t *testing.T) {
	seq := build(t)
	assert.Equal(t, []string{"markdown"}, seq.FilterNames())
	assert.Equal(t, []string{"/default.*"}, seq.LayoutIdentifiers())
	assert.Equal(t, map[string][]string{"last": {"/a/index.html"}}, seq.Paths())
	assert.Equal(t, []core.SnapshotDef{{Name: "raw"}, {Name: "pre"}, {Name: "last"}}, seq.SnapshotDefs())
}

func TestBuilder_DuplicateSnapshot(t *testing.T) {
	_, err := NewBuilder("/a (rep default)", false, nil).
		AddSnapshot("last", "").
		AddSnapshot("last", "/x").
		Build()
	var dup *DuplicateSnapshotError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "last", dup.Name)
	assert.Contains(t, err.Error(), "/a (rep default)")
}

func TestBuilder_TracksBinarySnapshots(t *testing.T) {
	kinds := binaryFilters{"thumbnail": true, "exif_text": false}
	seq, err := NewBuilder("/img.png (rep default)", true, kinds).
		AddSnapshot("raw", "").
		AddFilter("thumbnail", nil).
		AddSnapshot("thumb", "/img-thumb.png").
		AddFilter("exif_text", nil).
		AddSnapshot("last", "/img.txt").
		Build()
	require.NoError(t, err)
	assert.Equal(t, []core.SnapshotDef{
		{Name: "raw", Binary: true},
		{Name: "thumb", Binary: true},
		{Name: "last", Binary: false},
	}, seq.SnapshotDefs())
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule_memory")
	ctx := context.Background()
	item := core.NewItem(nil, nil, core.MustIdentifier("/a"))
	rep := core.NewItemRep(item, "default")
	gone := core.NewItemRep(core.NewItem(nil, nil, core.MustIdentifier("/gone")), "default")

	s := NewStore(path)
	s.Set(rep, build(t))
	s.Set(gone, build(t))
	s.Retain([]core.Object{rep})
	require.NoError(t, s.Store(ctx))

	fresh := NewStore(path)
	require.NoError(t, fresh.Load(ctx))
	got, ok := fresh.Get(rep)
	require.True(t, ok)
	assert.True(t, EqualSerialized(build(t).Serialize(), got))
	_, ok = fresh.Get(gone)
	assert.False(t, ok)
}

func TestSnapshot_SerializeKeepsNamesAndPathsApart(t *testing.T) {
	joined := Snapshot{Names: []string{"last"}, Paths: []string{"/a,/b"}}
	split := Snapshot{Names: []string{"last"}, Paths: []string{"/a", "/b"}}
	assert.NotEqual(t, joined.Serialize(), split.Serialize())

	// A name that looks like a path count must not shift into the paths.
	shifted := Snapshot{Names: []string{"last", "false"}, Paths: nil}
	other := Snapshot{Names: []string{"last"}, Binary: false, Paths: []string{"false"}}
	assert.NotEqual(t, shifted.Serialize(), other.Serialize())

	assert.Equal(t, Serialized{"snapshot", "2", "a", "b", "true", "1", "/x"},
		Snapshot{Names: []string{"a", "b"}, Binary: true, Paths: []string{"/x"}}.Serialize())
}
