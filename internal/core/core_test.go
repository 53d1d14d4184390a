package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_RoundTrip(t *testing.T) {
	item := NewItem(nil, nil, MustIdentifier("/about.md"))
	rep := NewItemRep(item, "default")

	cases := []Reference{
		item.Reference(),
		NewLayout(nil, nil, MustIdentifier("/default.html")).Reference(),
		rep.Reference(),
		NewConfiguration(nil).Reference(),
		{Kind: RefItems},
		{Kind: RefLayouts},
		(&CodeSnippet{Filename: "lib/helpers.go"}).Reference(),
	}
	for _, ref := range cases {
		t.Run(ref.String(), func(t *testing.T) {
			got, err := ParseReference(ref.String())
			require.NoError(t, err)
			assert.Equal(t, ref, got)
		})
	}
}

func TestReference_DistinctKindsDoNotCollide(t *testing.T) {
	id := MustIdentifier("/x")
	assert.NotEqual(t, ItemRef(id), LayoutRef(id))
	assert.Equal(t, "item:/x", ItemRef(id).String())
	assert.Equal(t, "item_rep:default:/x", ItemRepRef(id, "default").String())
}

func TestParseReference_Invalid(t *testing.T) {
	for _, s := range []string{"", "item:", "bogus:/x", "configurations"} {
		_, err := ParseReference(s)
		assert.Error(t, err, s)
	}
}

func TestIdentifier_Validation(t *testing.T) {
	_, err := NewIdentifier("about.md")
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	_, err = NewIdentifier("/about/")
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))

	id, err := NewIdentifier("/blog/post.md")
	require.NoError(t, err)
	assert.Equal(t, "md", id.Ext())
	assert.Equal(t, "/blog/post", id.WithoutExt())
	assert.Equal(t, []string{"blog", "post.md"}, id.Components())
}

func TestIdentifier_ParentOnlyForLegacy(t *testing.T) {
	_, err := MustIdentifier("/blog/post.md").Parent()
	assert.True(t, errors.Is(err, ErrNonHierarchicalIdentifier))

	p, err := NewLegacyIdentifier("blog/post").Parent()
	require.NoError(t, err)
	assert.Equal(t, "/blog/", p.String())

	root, err := NewLegacyIdentifier("/").Parent()
	require.NoError(t, err)
	assert.True(t, root.IsZero())
}

func TestIdentifier_Match(t *testing.T) {
	id := MustIdentifier("/blog/2024/post.md")
	assert.True(t, id.Match("/blog/**/*.md"))
	assert.True(t, id.Match("/blog/*/post.{md,html}"))
	assert.False(t, id.Match("/blog/*.md"))
}

func TestItemCollection_FindAndChildren(t *testing.T) {
	parent := NewItem(nil, nil, NewLegacyIdentifier("/blog/"))
	child := NewItem(nil, nil, NewLegacyIdentifier("/blog/a/"))
	other := NewItem(nil, nil, NewLegacyIdentifier("/about/"))

	items, err := NewItemCollection(parent, child, other)
	require.NoError(t, err)

	got, ok := items.Find("/blog/a/")
	require.True(t, ok)
	assert.Same(t, child, got)

	children, err := items.ChildrenOf(parent)
	require.NoError(t, err)
	assert.Equal(t, []*Item{child}, children)

	full := NewItem(nil, nil, MustIdentifier("/x.md"))
	_, err = items.ChildrenOf(full)
	assert.True(t, errors.Is(err, ErrNonHierarchicalIdentifier))
}

func TestItemCollection_RejectsDuplicates(t *testing.T) {
	a := NewItem(nil, nil, MustIdentifier("/a"))
	b := NewItem(nil, nil, MustIdentifier("/a"))
	_, err := NewItemCollection(a, b)
	assert.True(t, errors.Is(err, ErrDuplicateIdentifier))
}

func TestTextualContent_LazyLoadsOnce(t *testing.T) {
	calls := 0
	c := NewLazyTextualContent(func() string {
		calls++
		return "hello"
	}, "content/a.md")

	assert.Equal(t, "hello", c.String())
	assert.Equal(t, "hello", c.String())
	assert.Equal(t, 1, calls)
	assert.False(t, c.Binary())
	assert.Equal(t, "content/a.md", c.Filename())
}

func TestContentString_Binary(t *testing.T) {
	_, err := ContentString(NewBinaryContent("/tmp/x.png"))
	assert.True(t, errors.Is(err, ErrBinaryContent))
}

func TestItemRep_SnapshotDefsAreFixedOnce(t *testing.T) {
	rep := NewItemRep(NewItem(nil, nil, MustIdentifier("/a")), "default")
	defs := []SnapshotDef{{Name: SnapshotRaw}, {Name: SnapshotLast}}

	require.NoError(t, rep.SetSnapshotDefs(defs))
	require.NoError(t, rep.SetSnapshotDefs(defs))

	err := rep.SetSnapshotDefs([]SnapshotDef{{Name: SnapshotLast, Binary: true}})
	assert.True(t, errors.Is(err, ErrInternalInconsistency))
	assert.True(t, rep.HasSnapshot(SnapshotRaw))
	assert.False(t, rep.HasSnapshot(SnapshotPre))
}

func TestItemRepSet(t *testing.T) {
	item := NewItem(nil, nil, MustIdentifier("/a"))
	set := NewItemRepSet()
	def := NewItemRep(item, "default")
	feed := NewItemRep(item, "feed")
	require.NoError(t, set.Add(def))
	require.NoError(t, set.Add(feed))
	assert.Error(t, set.Add(NewItemRep(item, "default")))

	assert.Equal(t, []*ItemRep{def, feed}, set.ForItem(item))
	got, ok := set.Get(item, "feed")
	require.True(t, ok)
	assert.Same(t, feed, got)
}
