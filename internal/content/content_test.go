package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebuild/internal/core"
)

func newRep(t *testing.T, id string, defs ...string) *core.ItemRep {
	t.Helper()
	rep := core.NewItemRep(core.NewItem(nil, nil, core.MustIdentifier(id)), "default")
	var sd []core.SnapshotDef
	for _, d := range defs {
		sd = append(sd, core.SnapshotDef{Name: d})
	}
	require.NoError(t, rep.SetSnapshotDefs(sd))
	return rep
}

func text(s string) core.Content { return core.NewTextualContent(s, "") }

func TestStore_CompiledContentDefaultsToPreThenLast(t *testing.T) {
	s := NewStore()

	withPre := newRep(t, "/a", "raw", "pre", "last")
	s.Set(withPre, "pre", text("before layout"))
	s.Set(withPre, "last", text("after layout"))
	got, err := s.CompiledContent(withPre, "")
	require.NoError(t, err)
	assert.Equal(t, "before layout", got)

	withoutPre := newRep(t, "/b", "raw", "last")
	s.Set(withoutPre, "last", text("final"))
	got, err = s.CompiledContent(withoutPre, "")
	require.NoError(t, err)
	assert.Equal(t, "final", got)

	got, err = s.CompiledContent(withPre, "last")
	require.NoError(t, err)
	assert.Equal(t, "after layout", got)
}

func TestStore_CompiledContentErrors(t *testing.T) {
	s := NewStore()
	rep := newRep(t, "/a", "last")

	_, err := s.CompiledContent(rep, "nope")
	var nss *NoSuchSnapshotError
	require.True(t, errors.As(err, &nss))
	assert.Equal(t, "nope", nss.Snapshot)

	_, err = s.CompiledContent(rep, "last")
	assert.True(t, errors.Is(err, core.ErrInternalInconsistency))

	s.Set(rep, "last", core.NewBinaryContent("/tmp/x.png"))
	_, err = s.CompiledContent(rep, "last")
	assert.True(t, errors.Is(err, core.ErrBinaryContent))
}

func TestStore_CurrentAndSetAllAreIndependentCopies(t *testing.T) {
	s := NewStore()
	rep := newRep(t, "/a", "last")
	in := map[string]core.Content{"last": text("x")}
	s.SetAll(rep, in)
	in["last"] = text("mutated")

	c, ok := s.Get(rep, "last")
	require.True(t, ok)
	assert.Equal(t, "x", c.(*core.TextualContent).String())

	_, ok = s.Current(rep)
	assert.False(t, ok)
	s.SetCurrent(rep, text("working"))
	cur, ok := s.Current(rep)
	require.True(t, ok)
	assert.Equal(t, "working", cur.(*core.TextualContent).String())
}

func TestCache_RoundTripWithBinaryCopies(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	rep := newRep(t, "/img.png", "raw", "last")

	src := filepath.Join(dir, "output", "img.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("PNG"), 0o644))

	c := NewCache(filepath.Join(dir, "tmp"))
	require.NoError(t, c.Set(rep, map[string]core.Content{
		"raw":  text("caption"),
		"last": core.NewBinaryContent(src),
	}))
	require.NoError(t, c.Store(ctx))

	// overwriting live output must not affect the cache
	require.NoError(t, os.WriteFile(src, []byte("changed"), 0o644))

	fresh := NewCache(filepath.Join(dir, "tmp"))
	require.NoError(t, fresh.Load(ctx))
	require.True(t, fresh.FullCacheAvailable(rep))

	got, ok := fresh.Get(rep)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "caption", got["raw"].(*core.TextualContent).String())
	require.True(t, got["last"].Binary())
	assert.NotEqual(t, src, got["last"].Filename())
	data, err := os.ReadFile(got["last"].Filename())
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(data))
}

func TestCache_AbsentWhenEitherSubCacheLacksRep(t *testing.T) {
	dir := t.TempDir()
	rep := newRep(t, "/a", "last")
	c := NewCache(dir)

	c.Textual.Set(rep, map[string]core.Content{"last": text("x")})
	_, ok := c.Get(rep)
	assert.False(t, ok)
	assert.False(t, c.FullCacheAvailable(rep))

	require.NoError(t, c.Binary.Set(rep, map[string]core.Content{"last": text("x")}))
	got, ok := c.Get(rep)
	require.True(t, ok)
	assert.Len(t, got, 1)
	assert.True(t, c.FullCacheAvailable(rep))
}

func TestCache_MixedKindsAreNotFullyAvailable(t *testing.T) {
	dir := t.TempDir()
	rep := newRep(t, "/a", "last")
	c := NewCache(dir)
	require.NoError(t, c.Set(rep, map[string]core.Content{"last": text("x")}))
	require.True(t, c.FullCacheAvailable(rep))

	c.Textual.entries.set(rep, map[string]entry{"last": {Binary: true, Filename: "/nowhere"}})
	assert.False(t, c.FullCacheAvailable(rep))

	c.Textual.entries.set(rep, map[string]entry{})
	c.Binary.entries.set(rep, map[string]entry{"last": {Binary: true, Filename: filepath.Join(dir, "missing")}})
	assert.False(t, c.FullCacheAvailable(rep))
}

func TestCache_Prune(t *testing.T) {
	dir := t.TempDir()
	keep := newRep(t, "/keep", "last")
	drop := newRep(t, "/drop.png", "last")

	src := filepath.Join(dir, "drop.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	c := NewCache(filepath.Join(dir, "tmp"))
	require.NoError(t, c.Set(keep, map[string]core.Content{"last": text("k")}))
	require.NoError(t, c.Set(drop, map[string]core.Content{"last": core.NewBinaryContent(src)}))
	got, ok := c.Get(drop)
	require.True(t, ok)
	cached := got["last"].Filename()

	require.NoError(t, c.Prune([]*core.Item{keep.Item()}))

	_, ok = c.Get(drop)
	assert.False(t, ok)
	_, ok = c.Get(keep)
	assert.True(t, ok)
	_, err := os.Stat(cached)
	assert.True(t, os.IsNotExist(err))
}
