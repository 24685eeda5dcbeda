package odb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"drift/internal/object"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable logging for tests
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(db, Options{
		Root:        t.TempDir(),
		Compression: DefaultCompressionOptions(),
	})
	require.NoError(t, err)
	return store
}

func TestBlobRoundTrip(t *testing.T) {
	store := setupStore(t)

	content := []byte("hello diff core\n")
	oid, err := store.PutBlob(content)
	require.NoError(t, err)
	assert.Equal(t, object.HashBytes(content), oid)

	blob, err := store.Blob(oid)
	require.NoError(t, err)
	assert.Equal(t, content, blob.Content)
	assert.Equal(t, oid, blob.OID)
}

func TestPutBlobIsIdempotent(t *testing.T) {
	store := setupStore(t)

	first, err := store.PutBlob([]byte("same"))
	require.NoError(t, err)
	second, err := store.PutBlob([]byte("same"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEmptyBlob(t *testing.T) {
	store := setupStore(t)

	oid, err := store.PutBlob(nil)
	require.NoError(t, err)
	blob, err := store.Blob(oid)
	require.NoError(t, err)
	assert.Empty(t, blob.Content)
}

func TestLargeBlobCompresses(t *testing.T) {
	store := setupStore(t)

	content := bytes.Repeat([]byte("compressible line of text\n"), 500)
	oid, err := store.PutBlob(content)
	require.NoError(t, err)

	meta, err := store.meta(oid)
	require.NoError(t, err)
	assert.True(t, meta.Compressed)
	assert.Equal(t, int64(len(content)), meta.Size)

	// stored file must be smaller than the original
	fi, err := os.Stat(store.objectPath(oid))
	require.NoError(t, err)
	assert.Less(t, fi.Size(), int64(len(content)))

	blob, err := store.Blob(oid)
	require.NoError(t, err)
	assert.Equal(t, content, blob.Content)
}

func TestBlobNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Blob(object.HashBytes([]byte("never stored")))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Blob(object.ZeroOID)
	assert.ErrorIs(t, err, ErrInvalidOID)
}

func TestTreeRoundTrip(t *testing.T) {
	store := setupStore(t)

	blobOID, err := store.PutBlob([]byte("content"))
	require.NoError(t, err)

	tree := object.NewTree([]object.TreeEntry{
		{Name: "b.txt", Mode: object.ModeBlob, OID: blobOID},
		{Name: "run.sh", Mode: object.ModeExec, OID: blobOID},
	})
	oid, err := store.PutTree(tree)
	require.NoError(t, err)

	loaded, err := store.Tree(oid)
	require.NoError(t, err)
	assert.Equal(t, tree.Entries, loaded.Entries)
	assert.Equal(t, oid, loaded.OID)
}

func TestTreeBlobKindsDoNotMix(t *testing.T) {
	store := setupStore(t)

	oid, err := store.PutBlob([]byte("plain content"))
	require.NoError(t, err)

	_, err = store.Tree(oid)
	assert.Error(t, err)
}

func TestHashFileMatchesPutBlob(t *testing.T) {
	store := setupStore(t)

	content := []byte("the same bytes either way\n")
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, content, 0644))

	stored, err := store.PutBlob(content)
	require.NoError(t, err)

	hashed, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, stored, hashed)
}

func TestHashSymlinkHashesTarget(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink("target/path", link))

	oid, err := HashSymlink(link)
	require.NoError(t, err)
	assert.Equal(t, object.HashBytes([]byte("target/path")), oid)
}
