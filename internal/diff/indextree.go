// internal/diff/indextree.go
package diff

import (
	"drift/internal/index"
	"drift/internal/object"
)

// IndexToTree compares the staged index (new side) against a tree object
// (old side) and returns the delta list.
func IndexToTree(repo Repository, opts *Options, oldTree *object.Tree) (*List, error) {
	l := newList(repo, opts)
	ix, err := repo.Index()
	if err != nil {
		return nil, err
	}

	s := &indexTreeSynth{list: l, ix: ix}
	if err := object.Walk(oldTree, treeSource{repo}, s.treeEntry); err != nil {
		return nil, err
	}
	// index entries sorting after the last tree entry are additions
	s.drainAdded("")
	return l, nil
}

type indexTreeSynth struct {
	list   *List
	ix     *index.Index
	cursor int
}

func (s *indexTreeSynth) treeEntry(root string, e *object.TreeEntry) error {
	if e.Mode.IsDir() {
		return nil
	}
	// TODO: submodule support for gitlink entries in trees
	if e.Mode.IsGitlink() {
		return nil
	}
	path := root + e.Name

	// index entries preceding this tree entry are additions
	s.drainAdded(path)

	ie := s.ix.EntryAt(s.cursor)
	if ie == nil || ie.Path > path {
		s.list.appendFromOne(Deleted, e.Mode, e.OID, path)
		return nil
	}

	s.cursor++
	if ie.OID != e.OID || ie.Mode != e.Mode {
		s.list.appendFromRecord(&object.TreeDelta{
			Status:  object.DeltaModified,
			Path:    ie.Path,
			OldMode: e.Mode,
			NewMode: ie.Mode,
			OldOID:  e.OID,
			NewOID:  ie.OID,
		})
	}
	return nil
}

// drainAdded emits Added deltas for index entries before stop; an empty stop
// drains the rest.
func (s *indexTreeSynth) drainAdded(stop string) {
	for {
		ie := s.ix.EntryAt(s.cursor)
		if ie == nil || (stop != "" && ie.Path >= stop) {
			return
		}
		s.list.appendFromOne(Added, ie.Mode, ie.OID, ie.Path)
		s.cursor++
	}
}
