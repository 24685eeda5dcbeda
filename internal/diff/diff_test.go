package diff

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"drift/internal/attr"
	"drift/internal/ignore"
	"drift/internal/index"
	"drift/internal/object"

	"github.com/stretchr/testify/require"
)

var errFakeNotFound = errors.New("object not found")

// fakeRepo satisfies Repository with in-memory objects over a throwaway
// working directory.
type fakeRepo struct {
	workdir string
	trees   map[object.OID]*object.Tree
	blobs   map[object.OID]*object.Blob
	ix      *index.Index
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	return &fakeRepo{
		workdir: t.TempDir(),
		trees:   make(map[object.OID]*object.Tree),
		blobs:   make(map[object.OID]*object.Blob),
		ix:      index.New(),
	}
}

func (r *fakeRepo) Workdir() string { return r.workdir }
func (r *fakeRepo) Marker() string  { return ".drift" }

func (r *fakeRepo) Tree(oid object.OID) (*object.Tree, error) {
	if t, ok := r.trees[oid]; ok {
		return t, nil
	}
	return nil, errFakeNotFound
}

func (r *fakeRepo) Blob(oid object.OID) (*object.Blob, error) {
	if b, ok := r.blobs[oid]; ok {
		return b, nil
	}
	return nil, errFakeNotFound
}

func (r *fakeRepo) HashFile(path string) (object.OID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return object.ZeroOID, err
	}
	return object.HashBytes(data), nil
}

func (r *fakeRepo) HashSymlink(path string) (object.OID, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return object.ZeroOID, err
	}
	return object.HashBytes([]byte(target)), nil
}

func (r *fakeRepo) Index() (*index.Index, error) {
	return r.ix, nil
}

func (r *fakeRepo) Ignores(dir string) (*ignore.Context, error) {
	return ignore.NewEngine(r.workdir).ForDir(dir)
}

func (r *fakeRepo) Attr(relpath, name string) attr.Value {
	eng, err := attr.Load(r.workdir)
	if err != nil {
		return attr.Value{State: attr.Unspecified}
	}
	return eng.Get(relpath, name)
}

// addBlob registers blob content and returns its id.
func (r *fakeRepo) addBlob(content string) object.OID {
	oid := object.HashBytes([]byte(content))
	r.blobs[oid] = &object.Blob{OID: oid, Content: []byte(content)}
	return oid
}

// addTree registers a tree under a synthetic id derived from its entries.
func (r *fakeRepo) addTree(entries ...object.TreeEntry) *object.Tree {
	tree := object.NewTree(entries)
	seed := make([]byte, 0, 64)
	for _, e := range tree.Entries {
		seed = append(seed, e.Name...)
		seed = append(seed, byte(e.Mode), byte(e.Mode>>8))
		seed = append(seed, e.OID[:]...)
	}
	tree.OID = object.HashBytes(seed)
	r.trees[tree.OID] = tree
	return tree
}

// writeFile drops a file into the working directory.
func (r *fakeRepo) writeFile(t *testing.T, rel string, content string, perm os.FileMode) {
	t.Helper()
	abs := filepath.Join(r.workdir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), perm))
}

// stage records a workdir path in the fake index with a stat cache that
// matches the filesystem, so a clean file stays quiet.
func (r *fakeRepo) stage(t *testing.T, rel string, mode object.Mode) *index.Entry {
	t.Helper()
	abs := filepath.Join(r.workdir, filepath.FromSlash(rel))
	fi, err := os.Lstat(abs)
	require.NoError(t, err)

	var content []byte
	if mode.IsSymlink() {
		target, err := os.Readlink(abs)
		require.NoError(t, err)
		content = []byte(target)
	} else {
		content, err = os.ReadFile(abs)
		require.NoError(t, err)
	}
	oid := object.HashBytes(content)
	r.blobs[oid] = &object.Blob{OID: oid, Content: content}

	e := index.NewEntry(rel, fi, mode, oid)
	r.ix.Add(e)
	return e
}

// paths flattens a list for order assertions.
func paths(l *List) []string {
	var out []string
	for _, d := range l.Deltas() {
		out = append(out, d.OldPath)
	}
	return out
}
