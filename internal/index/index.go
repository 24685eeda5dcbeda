// internal/index/index.go
package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"drift/internal/object"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "index:"

// Entry is one staged path with the stat cache recorded at staging time.
// The stat fields let a workdir scan skip rehashing files whose on-disk
// metadata still matches.
type Entry struct {
	Path  string      `json:"path"`
	Mode  object.Mode `json:"mode"`
	OID   object.OID  `json:"oid"`
	Size  int64       `json:"size"`
	Ctime int64       `json:"ctime"`
	Mtime int64       `json:"mtime"`
	Dev   uint64      `json:"dev"`
	Ino   uint64      `json:"ino"`
	UID   uint32      `json:"uid"`
	GID   uint32      `json:"gid"`
	Flags uint16      `json:"flags"`
}

// Index is a sorted snapshot of staged entries. Entries stay in ascending
// byte order by path at all times.
type Index struct {
	entries []*Entry
}

func New() *Index {
	return &Index{}
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

// EntryAt returns the entry at position i, or nil when i is past the end.
// Synthesis cursors rely on the nil to detect exhaustion.
func (ix *Index) EntryAt(i int) *Entry {
	if i < 0 || i >= len(ix.entries) {
		return nil
	}
	return ix.entries[i]
}

// Add inserts or replaces the entry for e.Path.
func (ix *Index) Add(e *Entry) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].Path >= e.Path
	})
	if i < len(ix.entries) && ix.entries[i].Path == e.Path {
		ix.entries[i] = e
		return
	}
	ix.entries = append(ix.entries, nil)
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = e
}

// Remove drops the entry for path if present.
func (ix *Index) Remove(path string) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].Path >= path
	})
	if i < len(ix.entries) && ix.entries[i].Path == path {
		ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
	}
}

// Find returns the entry for path, or nil.
func (ix *Index) Find(path string) *Entry {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].Path >= path
	})
	if i < len(ix.entries) && ix.entries[i].Path == path {
		return ix.entries[i]
	}
	return nil
}

// HasPrefix reports whether any entry at or after position from starts with
// prefix. Used to decide whether a workdir directory is tracked.
func (ix *Index) HasPrefix(from int, prefix string) bool {
	for i := from; i < len(ix.entries); i++ {
		if strings.HasPrefix(ix.entries[i].Path, prefix) {
			return true
		}
		if ix.entries[i].Path > prefix {
			return false
		}
	}
	return false
}

// Entries returns the underlying sorted slice.
func (ix *Index) Entries() []*Entry {
	return ix.entries
}

// Load reads all persisted entries from the database.
func Load(db *badger.DB) (*Index, error) {
	ix := New()
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("decoding index entry %q: %w", item.Key(), err)
				}
				ix.entries = append(ix.entries, &e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ix.entries, func(i, j int) bool {
		return ix.entries[i].Path < ix.entries[j].Path
	})
	return ix, nil
}

// Save writes the index back, replacing any persisted entries that are gone.
func (ix *Index) Save(db *badger.DB) error {
	keep := make(map[string]bool, len(ix.entries))
	for _, e := range ix.entries {
		keep[e.Path] = true
	}

	var stale [][]byte
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if !keep[string(bytes.TrimPrefix(key, []byte(keyPrefix)))] {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, e := range ix.entries {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encoding index entry for %s: %w", e.Path, err)
			}
			if err := txn.Set([]byte(keyPrefix+e.Path), data); err != nil {
				return fmt.Errorf("storing index entry for %s: %w", e.Path, err)
			}
		}
		return nil
	})
}
