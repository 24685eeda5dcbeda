package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oidOf(s string) OID {
	return HashBytes([]byte(s))
}

func TestNewTreeSortsLikeIndex(t *testing.T) {
	tree := NewTree([]TreeEntry{
		{Name: "x", Mode: ModeDir, OID: oidOf("d")},
		{Name: "x.txt", Mode: ModeBlob, OID: oidOf("b")},
		{Name: "a", Mode: ModeBlob, OID: oidOf("a")},
	})

	var names []string
	for _, e := range tree.Entries {
		names = append(names, e.Name)
	}
	// directories compare as name+"/", so x.txt sorts before the x tree
	assert.Equal(t, []string{"a", "x.txt", "x"}, names)
}

func collectDeltas(t *testing.T, oldTree, newTree *Tree) []TreeDelta {
	t.Helper()
	var out []TreeDelta
	err := TreeDiff(oldTree, newTree, func(d *TreeDelta) error {
		out = append(out, *d)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestTreeDiff(t *testing.T) {
	blobA := oidOf("aaa")
	blobB := oidOf("bbb")
	sub := oidOf("subtree")

	tests := []struct {
		name string
		old  []TreeEntry
		new  []TreeEntry
		want []TreeDelta
	}{
		{
			name: "identical trees emit nothing",
			old:  []TreeEntry{{Name: "f", Mode: ModeBlob, OID: blobA}},
			new:  []TreeEntry{{Name: "f", Mode: ModeBlob, OID: blobA}},
			want: nil,
		},
		{
			name: "content edit",
			old:  []TreeEntry{{Name: "f", Mode: ModeBlob, OID: blobA}},
			new:  []TreeEntry{{Name: "f", Mode: ModeBlob, OID: blobB}},
			want: []TreeDelta{{
				Status: DeltaModified, Path: "f",
				OldMode: ModeBlob, NewMode: ModeBlob,
				OldOID: blobA, NewOID: blobB,
			}},
		},
		{
			name: "entry only on one side",
			old:  []TreeEntry{{Name: "gone", Mode: ModeBlob, OID: blobA}},
			new:  []TreeEntry{{Name: "here", Mode: ModeBlob, OID: blobB}},
			want: []TreeDelta{
				{Status: DeltaDeleted, Path: "gone", OldMode: ModeBlob, OldOID: blobA},
				{Status: DeltaAdded, Path: "here", NewMode: ModeBlob, NewOID: blobB},
			},
		},
		{
			name: "blob became tree splits into delete and add",
			old:  []TreeEntry{{Name: "x", Mode: ModeBlob, OID: blobA}},
			new:  []TreeEntry{{Name: "x", Mode: ModeDir, OID: sub}},
			want: []TreeDelta{
				{Status: DeltaDeleted, Path: "x", OldMode: ModeBlob, OldOID: blobA},
				{Status: DeltaAdded, Path: "x", NewMode: ModeDir, NewOID: sub},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectDeltas(t, NewTree(tt.old), NewTree(tt.new))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTreeDiffNilSides(t *testing.T) {
	tree := NewTree([]TreeEntry{{Name: "f", Mode: ModeBlob, OID: oidOf("x")}})

	added := collectDeltas(t, nil, tree)
	require.Len(t, added, 1)
	assert.Equal(t, DeltaAdded, added[0].Status)

	deleted := collectDeltas(t, tree, nil)
	require.Len(t, deleted, 1)
	assert.Equal(t, DeltaDeleted, deleted[0].Status)
}

type mapSource map[OID]*Tree

func (m mapSource) Tree(oid OID) (*Tree, error) {
	return m[oid], nil
}

func TestWalkVisitsInOrder(t *testing.T) {
	subOID := oidOf("sub")
	src := mapSource{
		subOID: NewTree([]TreeEntry{
			{Name: "inner.txt", Mode: ModeBlob, OID: oidOf("i")},
		}),
	}
	top := NewTree([]TreeEntry{
		{Name: "sub", Mode: ModeDir, OID: subOID},
		{Name: "top.txt", Mode: ModeBlob, OID: oidOf("t")},
	})

	var paths []string
	err := Walk(top, src, func(root string, e *TreeEntry) error {
		paths = append(paths, root+e.Name)
		return nil
	})
	require.NoError(t, err)
	// "sub" sorts as "sub/", ahead of top.txt; its contents follow it directly
	assert.Equal(t, []string{"sub", "sub/inner.txt", "top.txt"}, paths)
}
