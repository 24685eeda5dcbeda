// internal/diff/list.go
package diff

import (
	"drift/internal/attr"
	"drift/internal/ignore"
	"drift/internal/index"
	"drift/internal/object"
)

// Repository is the collaborator surface the synths and the patch engine
// consume. internal/repo provides the production implementation.
type Repository interface {
	// Workdir is the absolute path of the working directory root.
	Workdir() string
	// Marker is the metadata directory name that marks a repository root
	// (and, when found inside a subdirectory, a nested repository).
	Marker() string
	Tree(oid object.OID) (*object.Tree, error)
	Blob(oid object.OID) (*object.Blob, error)
	// HashFile computes the blob id a file would store as.
	HashFile(path string) (object.OID, error)
	// HashSymlink computes the blob id of a symlink's target string.
	HashSymlink(path string) (object.OID, error)
	Index() (*index.Index, error)
	// Ignores resolves the ignore context for a root-relative directory.
	Ignores(dir string) (*ignore.Context, error)
	// Attr resolves one attribute for a root-relative path.
	Attr(relpath, name string) attr.Value
}

// List is an ordered collection of deltas produced by one synthesis call,
// ascending by old path.
type List struct {
	repo   Repository
	opts   Options
	deltas []*Delta
}

func newList(repo Repository, opts *Options) *List {
	return &List{repo: repo, opts: resolve(opts)}
}

func (l *List) Len() int {
	return len(l.deltas)
}

// Delta returns the delta at position i.
func (l *List) Delta(i int) *Delta {
	return l.deltas[i]
}

// Deltas returns the ordered underlying slice.
func (l *List) Deltas() []*Delta {
	return l.deltas
}

// Options returns the resolved options the list was built with.
func (l *List) Options() Options {
	return l.opts
}

// treeSource adapts the repository to the object.Source tree walker.
type treeSource struct {
	repo Repository
}

func (s treeSource) Tree(oid object.OID) (*object.Tree, error) {
	return s.repo.Tree(oid)
}
