// internal/odb/hash.go
package odb

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"drift/internal/object"
)

// HashFile computes the blob id a file's content would have, without storing
// it. The result agrees with PutBlob on the same bytes.
func HashFile(path string) (object.OID, error) {
	f, err := os.Open(path)
	if err != nil {
		return object.ZeroOID, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return object.ZeroOID, fmt.Errorf("hashing %s: %w", path, err)
	}
	var oid object.OID
	h.Sum(oid[:0])
	return oid, nil
}

// HashSymlink computes the blob id of a symlink, hashing its target string.
func HashSymlink(path string) (object.OID, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return object.ZeroOID, fmt.Errorf("reading link %s: %w", path, err)
	}
	return object.HashBytes([]byte(target)), nil
}
