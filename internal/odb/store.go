// internal/odb/store.go
package odb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"drift/internal/object"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrCorrupt    = errors.New("object data corrupt")
	ErrInvalidOID = errors.New("invalid object id")
)

// Kind distinguishes stored object types.
type Kind string

const (
	KindBlob Kind = "blob"
	KindTree Kind = "tree"
)

// ObjectMeta stores metadata about a stored object.
type ObjectMeta struct {
	OID        string    `json:"oid"`
	Kind       Kind      `json:"kind"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store provides content-addressed object storage. Object bytes live as files
// under root in a two-level fan-out; metadata lives in badger.
type Store struct {
	root  string
	db    *badger.DB
	cache *lru.Cache[object.OID, []byte]
	comp  *compressor
}

// Options configures Store behavior.
type Options struct {
	Root        string // Root directory path
	CacheSize   int    // Number of objects to cache
	Compression CompressionOptions
}

// New creates a new Store instance.
func New(db *badger.DB, opts Options) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating object directory: %w", err)
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 256
	}
	cache, err := lru.New[object.OID, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	comp, err := newCompressor(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	return &Store{
		root:  opts.Root,
		db:    db,
		cache: cache,
		comp:  comp,
	}, nil
}

// PutBlob stores blob content and returns its id. Storing the same content
// twice is a no-op.
func (s *Store) PutBlob(content []byte) (object.OID, error) {
	return s.put(KindBlob, content)
}

// Blob retrieves a blob by id.
func (s *Store) Blob(oid object.OID) (*object.Blob, error) {
	content, err := s.get(oid, KindBlob)
	if err != nil {
		return nil, err
	}
	return &object.Blob{OID: oid, Content: content}, nil
}

// PutTree serializes and stores a tree, returning its id.
func (s *Store) PutTree(t *object.Tree) (object.OID, error) {
	oid, err := s.put(KindTree, encodeTree(t))
	if err != nil {
		return object.ZeroOID, err
	}
	t.OID = oid
	return oid, nil
}

// Tree retrieves and decodes a tree by id.
func (s *Store) Tree(oid object.OID) (*object.Tree, error) {
	raw, err := s.get(oid, KindTree)
	if err != nil {
		return nil, err
	}
	t, err := decodeTree(raw)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", oid.Short(), err)
	}
	t.OID = oid
	return t, nil
}

func (s *Store) put(kind Kind, content []byte) (object.OID, error) {
	if content == nil {
		content = []byte{}
	}
	oid := object.HashBytes(content)

	if _, err := s.meta(oid); err == nil {
		return oid, nil
	} else if !errors.Is(err, ErrNotFound) {
		return object.ZeroOID, err
	}

	stored, compressed, err := s.comp.compress(content)
	if err != nil {
		return object.ZeroOID, fmt.Errorf("compressing object: %w", err)
	}

	path := s.objectPath(oid)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return object.ZeroOID, fmt.Errorf("creating object directory: %w", err)
	}
	if err := writeFileAtomic(path, stored); err != nil {
		return object.ZeroOID, fmt.Errorf("writing object file: %w", err)
	}

	meta := ObjectMeta{
		OID:        oid.String(),
		Kind:       kind,
		Size:       int64(len(content)),
		Compressed: compressed,
		CreatedAt:  time.Now(),
	}
	if err := s.storeMeta(meta); err != nil {
		os.Remove(path)
		return object.ZeroOID, fmt.Errorf("storing object metadata: %w", err)
	}

	s.cache.Add(oid, content)
	return oid, nil
}

func (s *Store) get(oid object.OID, kind Kind) ([]byte, error) {
	if oid.IsZero() {
		return nil, ErrInvalidOID
	}

	meta, err := s.meta(oid)
	if err != nil {
		return nil, err
	}
	if meta.Kind != kind {
		return nil, fmt.Errorf("object %s is a %s, not a %s", oid.Short(), meta.Kind, kind)
	}

	if content, ok := s.cache.Get(oid); ok {
		return content, nil
	}

	content, err := os.ReadFile(s.objectPath(oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading object: %w", err)
	}
	if meta.Compressed {
		content, err = s.comp.decompress(content)
		if err != nil {
			return nil, fmt.Errorf("decompressing object: %w", err)
		}
	}
	if object.HashBytes(content) != oid {
		return nil, fmt.Errorf("object %s: %w", oid.Short(), ErrCorrupt)
	}

	s.cache.Add(oid, content)
	return content, nil
}

// Exists checks whether an object is present.
func (s *Store) Exists(oid object.OID) bool {
	if s.cache.Contains(oid) {
		return true
	}
	_, err := s.meta(oid)
	return err == nil
}

func (s *Store) objectPath(oid object.OID) string {
	hex := oid.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

func (s *Store) storeMeta(meta ObjectMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("obj:"+meta.OID), data)
	})
}

func (s *Store) meta(oid object.OID) (ObjectMeta, error) {
	var meta ObjectMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("obj:" + oid.String()))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp-" + uuid.New().String()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Trees serialize one entry per line: "<octal mode> <hex oid> <name>\n".

func encodeTree(t *object.Tree) []byte {
	var b strings.Builder
	for _, e := range t.Entries {
		fmt.Fprintf(&b, "%o %s %s\n", uint32(e.Mode), e.OID.String(), e.Name)
	}
	return []byte(b.String())
}

func decodeTree(raw []byte) (*object.Tree, error) {
	var entries []object.TreeEntry
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		modeStr, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed tree entry %q: %w", line, ErrCorrupt)
		}
		oidStr, name, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, fmt.Errorf("malformed tree entry %q: %w", line, ErrCorrupt)
		}
		mode, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed tree entry mode %q: %w", modeStr, ErrCorrupt)
		}
		oid, err := object.ParseOID(oidStr)
		if err != nil {
			return nil, fmt.Errorf("malformed tree entry oid: %w", ErrCorrupt)
		}
		entries = append(entries, object.TreeEntry{
			Name: name,
			Mode: object.Mode(mode),
			OID:  oid,
		})
	}
	return object.NewTree(entries), nil
}
