// internal/diff/tree.go
package diff

import (
	"fmt"

	"drift/internal/object"
)

// TreeToTree compares two tree objects and returns the delta list.
func TreeToTree(repo Repository, opts *Options, oldTree, newTree *object.Tree) (*List, error) {
	l := newList(repo, opts)
	s := &treeSynth{list: l, repo: repo}
	if err := object.TreeDiff(oldTree, newTree, s.record); err != nil {
		return nil, err
	}
	return l, nil
}

type treeSynth struct {
	list *List
	repo Repository
	pfx  string
}

// record handles one shallow tree-diff entry. Tree/tree recurses, a tree on
// exactly one side is walked into single-sided deltas, and blob/blob emits
// directly. Tree-to-non-tree transitions arrive pre-split as two records.
func (s *treeSynth) record(rec *object.TreeDelta) error {
	saved := s.pfx
	s.pfx = joinPath(s.pfx, rec.Path)
	defer func() { s.pfx = saved }()

	switch {
	case rec.OldMode.IsDir() && rec.NewMode.IsDir():
		oldSub, err := s.repo.Tree(rec.OldOID)
		if err != nil {
			return fmt.Errorf("loading tree %s: %w", rec.OldOID.Short(), err)
		}
		newSub, err := s.repo.Tree(rec.NewOID)
		if err != nil {
			return fmt.Errorf("loading tree %s: %w", rec.NewOID.Short(), err)
		}
		return object.TreeDiff(oldSub, newSub, s.record)

	case rec.OldMode.IsDir() || rec.NewMode.IsDir():
		status, oid := Deleted, rec.OldOID
		if rec.NewMode.IsDir() {
			status, oid = Added, rec.NewOID
		}
		sub, err := s.repo.Tree(oid)
		if err != nil {
			return fmt.Errorf("loading tree %s: %w", oid.Short(), err)
		}
		return object.Walk(sub, treeSource{s.repo}, func(root string, e *object.TreeEntry) error {
			if e.Mode.IsDir() {
				return nil
			}
			s.list.appendFromOne(status, e.Mode, e.OID, joinPath(s.pfx, root+e.Name))
			return nil
		})

	default:
		full := *rec
		full.Path = s.pfx
		s.list.appendFromRecord(&full)
		return nil
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
