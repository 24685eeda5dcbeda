// internal/repo/repo.go
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drift/internal/attr"
	"drift/internal/ignore"
	"drift/internal/index"
	"drift/internal/object"
	"drift/internal/odb"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// MarkerDir marks a repository root. Found inside a subdirectory it marks a
// nested repository instead.
const MarkerDir = ".drift"

const headKey = "ref:head"

var ErrNoHead = errors.New("no snapshot recorded")

// Repository wires the working directory to its object database, index and
// rule engines. It is the production implementation of diff.Repository.
type Repository struct {
	root    string
	db      *badger.DB
	objects *odb.Store
	ignores *ignore.Engine
	attrs   *attr.Engine
	logger  *zap.Logger
}

// Init creates the metadata directory and opens the repository.
func Init(root string, logger *zap.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Join(root, MarkerDir), 0755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}
	return Open(root, logger)
}

// Open opens an existing repository rooted at root.
func Open(root string, logger *zap.Logger) (*Repository, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	meta := filepath.Join(root, MarkerDir)
	if _, err := os.Stat(meta); err != nil {
		return nil, fmt.Errorf("not a repository (no %s): %w", MarkerDir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := badger.DefaultOptions(filepath.Join(meta, "db"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening metadata database: %w", err)
	}

	objects, err := odb.New(db, odb.Options{
		Root:        filepath.Join(meta, "objects"),
		Compression: odb.DefaultCompressionOptions(),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	attrs, err := attr.Load(root)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{
		root:    root,
		db:      db,
		objects: objects,
		ignores: ignore.NewEngine(root),
		attrs:   attrs,
		logger:  logger,
	}, nil
}

// Find searches upward from startDir for the repository root.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, MarkerDir)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("repository root not found")
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Workdir() string { return r.root }
func (r *Repository) Marker() string  { return MarkerDir }

func (r *Repository) Tree(oid object.OID) (*object.Tree, error) {
	return r.objects.Tree(oid)
}

func (r *Repository) Blob(oid object.OID) (*object.Blob, error) {
	return r.objects.Blob(oid)
}

func (r *Repository) HashFile(path string) (object.OID, error) {
	return odb.HashFile(path)
}

func (r *Repository) HashSymlink(path string) (object.OID, error) {
	return odb.HashSymlink(path)
}

func (r *Repository) Index() (*index.Index, error) {
	return index.Load(r.db)
}

func (r *Repository) Ignores(dir string) (*ignore.Context, error) {
	return r.ignores.ForDir(dir)
}

func (r *Repository) Attr(relpath, name string) attr.Value {
	return r.attrs.Get(relpath, name)
}

// Objects exposes the object database for callers that store content
// directly.
func (r *Repository) Objects() *odb.Store {
	return r.objects
}

// Stage records the given paths in the index, storing their content. A path
// that no longer exists is removed from the index. Directories are staged
// recursively, honoring ignore rules.
func (r *Repository) Stage(paths []string) error {
	ix, err := index.Load(r.db)
	if err != nil {
		return err
	}

	for _, p := range paths {
		rel, err := r.relPath(p)
		if err != nil {
			return err
		}
		abs := filepath.Join(r.root, filepath.FromSlash(rel))

		fi, err := os.Lstat(abs)
		if err != nil {
			if os.IsNotExist(err) && ix.Find(rel) != nil {
				ix.Remove(rel)
				continue
			}
			return fmt.Errorf("stat %s: %w", rel, err)
		}

		if fi.IsDir() {
			if err := r.stageDir(ix, rel); err != nil {
				return err
			}
			continue
		}
		if err := r.stageFile(ix, rel, fi); err != nil {
			return err
		}
	}

	return ix.Save(r.db)
}

func (r *Repository) stageDir(ix *index.Index, dir string) error {
	if dir == "." {
		dir = ""
	}
	ctx, err := r.ignores.ForDir(dir)
	if err != nil {
		return err
	}
	abs := filepath.Join(r.root, filepath.FromSlash(dir))
	des, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, de := range des {
		if de.Name() == MarkerDir {
			continue
		}
		rel := strings.TrimPrefix(dir+"/"+de.Name(), "/")
		probe := rel
		if de.IsDir() {
			probe += "/"
		}
		if ctx.Ignored(probe) {
			continue
		}
		if de.IsDir() {
			if err := r.stageDir(ix, rel); err != nil {
				return err
			}
			continue
		}
		fi, err := os.Lstat(filepath.Join(abs, de.Name()))
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		if err := r.stageFile(ix, rel, fi); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) stageFile(ix *index.Index, rel string, fi os.FileInfo) error {
	abs := filepath.Join(r.root, filepath.FromSlash(rel))

	var content []byte
	var mode object.Mode
	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(abs)
		if err != nil {
			return fmt.Errorf("reading link %s: %w", rel, err)
		}
		content = []byte(target)
		mode = object.ModeSymlink
	case fi.Mode().IsRegular():
		data, err := os.ReadFile(abs)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		content = data
		mode = object.ModeBlob
		if fi.Mode()&0100 != 0 {
			mode = object.ModeExec
		}
	default:
		r.logger.Warn("skipping untrackable path", zap.String("path", rel))
		return nil
	}

	oid, err := r.objects.PutBlob(content)
	if err != nil {
		return fmt.Errorf("storing content for %s: %w", rel, err)
	}

	ix.Add(index.NewEntry(rel, fi, mode, oid))
	r.logger.Debug("staged", zap.String("path", rel), zap.String("oid", oid.Short()))
	return nil
}

func (r *Repository) relPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(r.root, p)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside the repository", p)
	}
	return filepath.ToSlash(rel), nil
}

// WriteTree folds the index into stored tree objects and returns the root
// tree id.
func (r *Repository) WriteTree() (object.OID, error) {
	ix, err := index.Load(r.db)
	if err != nil {
		return object.ZeroOID, err
	}
	oid, _, err := r.writeTree(ix.Entries(), "")
	return oid, err
}

func (r *Repository) writeTree(entries []*index.Entry, prefix string) (object.OID, int, error) {
	var tes []object.TreeEntry
	i := 0
	for i < len(entries) {
		e := entries[i]
		if !strings.HasPrefix(e.Path, prefix) {
			break
		}
		rest := e.Path[len(prefix):]
		if cut := strings.IndexByte(rest, '/'); cut >= 0 {
			dir := rest[:cut]
			sub, n, err := r.writeTree(entries[i:], prefix+dir+"/")
			if err != nil {
				return object.ZeroOID, 0, err
			}
			tes = append(tes, object.TreeEntry{Name: dir, Mode: object.ModeDir, OID: sub})
			i += n
			continue
		}
		tes = append(tes, object.TreeEntry{Name: rest, Mode: e.Mode, OID: e.OID})
		i++
	}
	oid, err := r.objects.PutTree(object.NewTree(tes))
	if err != nil {
		return object.ZeroOID, 0, err
	}
	return oid, i, nil
}

// Head returns the last snapshot's root tree id.
func (r *Repository) Head() (object.OID, error) {
	var oid object.OID
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(headKey))
		if err == badger.ErrKeyNotFound {
			return ErrNoHead
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := object.ParseOID(string(val))
			if err != nil {
				return err
			}
			oid = parsed
			return nil
		})
	})
	return oid, err
}

// SetHead records the snapshot's root tree id.
func (r *Repository) SetHead(oid object.OID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(headKey), []byte(oid.String()))
	})
}
