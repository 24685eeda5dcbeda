// internal/diff/workdir.go
package diff

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"drift/internal/ignore"
	"drift/internal/index"
	"drift/internal/object"
)

// WorkdirToIndex compares the working directory (new side) against the
// staged index (old side) and returns the delta list. Untracked and ignored
// paths appear as single-sided deltas with the matching status.
func WorkdirToIndex(repo Repository, opts *Options) (*List, error) {
	l := newList(repo, opts)
	ix, err := repo.Index()
	if err != nil {
		return nil, err
	}

	s := &workdirSynth{list: l, repo: repo, ix: ix}
	if err := s.walkDir(""); err != nil {
		return nil, err
	}
	// index entries sorting after the last workdir entry are deletions
	s.drainDeleted("")
	return l, nil
}

// workdirEntry is one filesystem observation. Directory paths carry a
// trailing slash so the sort order matches the index's byte order.
type workdirEntry struct {
	path  string
	mode  object.Mode
	size  int64
	ctime int64
	mtime int64
	dev   uint64
	ino   uint64
	uid   uint32
	gid   uint32
}

type workdirSynth struct {
	list   *List
	repo   Repository
	ix     *index.Index
	cursor int
}

// walkDir enumerates one directory, sorts it, resolves its ignore context
// and merges the result against the index cursor. dir is root-relative
// ("" for the root).
func (s *workdirSynth) walkDir(dir string) error {
	abs := filepath.Join(s.repo.Workdir(), filepath.FromSlash(dir))
	des, err := os.ReadDir(abs)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", abs, err)
	}

	marker := s.repo.Marker()
	entries := make([]*workdirEntry, 0, len(des))
	for _, de := range des {
		if de.Name() == marker {
			continue
		}
		fi, err := os.Lstat(filepath.Join(abs, de.Name()))
		if err != nil {
			return fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		entries = append(entries, newWorkdirEntry(path.Join(dir, de.Name()), fi))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].path < entries[j].path
	})

	ign, err := s.repo.Ignores(dir)
	if err != nil {
		return err
	}

	for _, we := range entries {
		if err := s.visit(we, ign); err != nil {
			return err
		}
	}
	return nil
}

func newWorkdirEntry(rel string, fi os.FileInfo) *workdirEntry {
	we := &workdirEntry{
		path:  rel,
		mode:  canonicalMode(fi.Mode()),
		size:  fi.Size(),
		mtime: fi.ModTime().Unix(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		we.ctime = st.Ctim.Sec
		we.dev = uint64(st.Dev)
		we.ino = uint64(st.Ino)
		we.uid = st.Uid
		we.gid = st.Gid
	}
	if fi.IsDir() {
		we.path += "/"
	}
	return we
}

// canonicalMode normalizes a raw filesystem mode to the modes trackable in
// trees and the index. Zero means the entry type cannot be tracked.
func canonicalMode(fm os.FileMode) object.Mode {
	switch {
	case fm.IsRegular():
		if fm&0100 != 0 {
			return object.ModeExec
		}
		return object.ModeBlob
	case fm&os.ModeSymlink != 0:
		return object.ModeSymlink
	case fm.IsDir():
		return object.ModeDir
	default:
		return 0
	}
}

func (s *workdirSynth) visit(we *workdirEntry, ign *ignore.Context) error {
	// index entries preceding this workdir entry are deletions
	s.drainDeleted(we.path)

	ie := s.ix.EntryAt(s.cursor)
	if ie == nil || ie.Path > we.path {
		return s.newEntry(we, ign)
	}

	// paths match
	s.cursor++

	// symlink/regular transitions split into a delete/add pair; the
	// trailing slash rules out non-dir to dir transforms here
	if we.mode.Type() != ie.Mode.Type() {
		s.list.appendFromOne(Deleted, ie.Mode, ie.OID, ie.Path)
		s.list.appendFromOne(Added, we.mode, object.ZeroOID, we.path)
		return nil
	}

	modified := false
	newOID := object.ZeroOID

	// mode or size change means the content record is definitely stale
	if we.mode != ie.Mode {
		modified = true
	}
	sizeChanged := we.size != ie.Size
	if sizeChanged {
		modified = true
	}

	// equal sizes leave room for doubt either way: rehash when the stat
	// cache disagrees, or when only the mode moved, to pin down the oid
	if !sizeChanged && (modified || s.statSuspect(we, ie)) {
		oid, err := s.rehash(we)
		if err != nil {
			return err
		}
		newOID = oid
		if !modified {
			modified = oid != ie.OID
		}
	}

	if modified {
		s.list.appendFromRecord(&object.TreeDelta{
			Status:  object.DeltaModified,
			Path:    ie.Path,
			OldMode: ie.Mode,
			NewMode: we.mode,
			OldOID:  ie.OID,
			NewOID:  newOID,
		})
	}
	return nil
}

// newEntry handles a workdir path absent from the index.
func (s *workdirSynth) newEntry(we *workdirEntry, ign *ignore.Context) error {
	// skip file types that are not trackable
	if we.mode == 0 {
		return nil
	}

	if !we.mode.IsDir() {
		return s.freshDelta(we, ign)
	}

	nested := filepath.Join(s.repo.Workdir(), filepath.FromSlash(we.path), s.repo.Marker())
	if _, err := os.Stat(nested); err == nil {
		// TODO: deal with nested repositories as gitlink entries
		return nil
	}

	if s.ix.HasPrefix(s.cursor, we.path) {
		// tracked entries live under this directory, recurse
		return s.walkDir(strings.TrimSuffix(we.path, "/"))
	}

	// Unlike mainline git this never recurses into a directory once no
	// index entries live under it; the directory itself becomes the delta.
	return s.freshDelta(we, ign)
}

func (s *workdirSynth) freshDelta(we *workdirEntry, ign *ignore.Context) error {
	status := Untracked
	if ign.Ignored(we.path) {
		status = Ignored
	}
	s.list.appendFromOne(status, we.mode, object.ZeroOID, strings.TrimSuffix(we.path, "/"))
	return nil
}

// statSuspect reports whether any cached stat field disagrees with the
// filesystem, which calls for a rehash to confirm or clear the change.
func (s *workdirSynth) statSuspect(we *workdirEntry, ie *index.Entry) bool {
	return we.ctime != ie.Ctime ||
		we.mtime != ie.Mtime ||
		we.dev != ie.Dev ||
		we.ino != ie.Ino ||
		we.uid != ie.UID ||
		we.gid != ie.GID
}

func (s *workdirSynth) rehash(we *workdirEntry) (object.OID, error) {
	abs := filepath.Join(s.repo.Workdir(), filepath.FromSlash(we.path))
	if we.mode.IsSymlink() {
		return s.repo.HashSymlink(abs)
	}
	return s.repo.HashFile(abs)
}

// drainDeleted emits Deleted deltas for index entries before stop; an empty
// stop drains the rest.
func (s *workdirSynth) drainDeleted(stop string) {
	for {
		ie := s.ix.EntryAt(s.cursor)
		if ie == nil || (stop != "" && ie.Path >= stop) {
			return
		}
		s.list.appendFromOne(Deleted, ie.Mode, ie.OID, ie.Path)
		s.cursor++
	}
}
