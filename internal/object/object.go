// internal/object/object.go
package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// OID is the content hash of a stored object. The zero value means "absent".
type OID [sha256.Size]byte

var ZeroOID OID

func (o OID) IsZero() bool {
	return o == ZeroOID
}

func (o OID) String() string {
	return hex.EncodeToString(o[:])
}

// Short returns the abbreviated form used in patch headers.
func (o OID) Short() string {
	return o.String()[:7]
}

// MarshalText renders the OID as hex, keeping persisted records readable.
func (o OID) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OID) UnmarshalText(text []byte) error {
	parsed, err := ParseOID(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOID decodes a full-length hex OID.
func ParseOID(s string) (OID, error) {
	var o OID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return o, fmt.Errorf("parsing oid %q: %w", s, err)
	}
	if len(raw) != len(o) {
		return o, fmt.Errorf("parsing oid %q: want %d bytes, got %d", s, len(o), len(raw))
	}
	copy(o[:], raw)
	return o, nil
}

// HashBytes computes the OID of raw content.
func HashBytes(content []byte) OID {
	return sha256.Sum256(content)
}

// Mode is a POSIX-style file mode as stored in trees and the index.
// Zero means "absent".
type Mode uint32

const (
	ModeNone    Mode = 0
	ModeBlob    Mode = 0100644
	ModeExec    Mode = 0100755
	ModeSymlink Mode = 0120000
	ModeDir     Mode = 0040000
	ModeGitlink Mode = 0160000
)

const modePermsMask Mode = 0777

// Type strips the permission bits, leaving only the object type.
func (m Mode) Type() Mode {
	return m &^ modePermsMask
}

func (m Mode) IsDir() bool     { return m.Type() == ModeDir }
func (m Mode) IsRegular() bool { return m.Type() == 0100000 }
func (m Mode) IsSymlink() bool { return m.Type() == ModeSymlink }
func (m Mode) IsGitlink() bool { return m.Type() == ModeGitlink }

// TreeEntry maps a name within a tree to a mode and object id.
type TreeEntry struct {
	Name string
	Mode Mode
	OID  OID
}

// sortKey yields the byte order trees share with the index: directory names
// compare as if suffixed with '/'.
func (e *TreeEntry) sortKey() string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// Tree is a directory-like object mapping names to (mode, oid). Entries are
// kept sorted by sortKey.
type Tree struct {
	OID     OID
	Entries []TreeEntry
}

// NewTree builds a tree from entries, sorting them into canonical order.
func NewTree(entries []TreeEntry) *Tree {
	t := &Tree{Entries: entries}
	sort.Slice(t.Entries, func(i, j int) bool {
		return t.Entries[i].sortKey() < t.Entries[j].sortKey()
	})
	return t
}

// Blob is a byte-content object.
type Blob struct {
	OID     OID
	Content []byte
}
