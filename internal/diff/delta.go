// internal/diff/delta.go
package diff

import (
	"drift/internal/object"
)

// Status classifies one path's transition.
type Status int

const (
	Added Status = iota
	Deleted
	Modified
	Renamed
	Copied
	Ignored
	Untracked
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	case Copied:
		return "copied"
	case Ignored:
		return "ignored"
	case Untracked:
		return "untracked"
	}
	return "unknown"
}

// BinaryState is unknown until the binary policy has run for a delta.
type BinaryState int8

const (
	BinaryUnknown BinaryState = iota
	NotBinary
	Binary
)

// Delta records one path's change. Deltas are immutable after synthesis
// except for the binary flag, which the patch engine resolves lazily.
type Delta struct {
	Status  Status
	OldMode object.Mode
	NewMode object.Mode
	OldOID  object.OID
	NewOID  object.OID
	// OldPath is set for every delta. NewPath differs only for renames and
	// copies, which the synths in this package never produce.
	OldPath string
	NewPath string
	Binary  BinaryState
	// Similarity is reserved for rename detection, 0..100.
	Similarity int
}

// newPathOrOld returns the destination path of the delta.
func (d *Delta) newPathOrOld() string {
	if d.NewPath != "" {
		return d.NewPath
	}
	return d.OldPath
}

// appendFromOne adds a single-sided delta. Added populates the new side;
// every other status (Deleted, Untracked, Ignored) populates the old side.
// Reverse flips Added and Deleted before the sides are chosen.
func (l *List) appendFromOne(status Status, mode object.Mode, oid object.OID, path string) {
	if l.opts.Flags&Reverse != 0 {
		switch status {
		case Added:
			status = Deleted
		case Deleted:
			status = Added
		}
	}

	d := &Delta{Status: status, OldPath: path}
	if status == Added {
		d.NewMode = mode
		d.NewOID = oid
	} else {
		d.OldMode = mode
		d.OldOID = oid
	}
	l.deltas = append(l.deltas, d)
}

// appendFromRecord adds a two-sided delta from a tree-diff record. Reverse
// swaps the sides and flips single-sided statuses.
func (l *List) appendFromRecord(rec *object.TreeDelta) {
	d := &Delta{OldPath: rec.Path}
	if l.opts.Flags&Reverse == 0 {
		d.Status = statusOf(rec.Status)
		d.OldMode = rec.OldMode
		d.NewMode = rec.NewMode
		d.OldOID = rec.OldOID
		d.NewOID = rec.NewOID
	} else {
		switch rec.Status {
		case object.DeltaAdded:
			d.Status = Deleted
		case object.DeltaDeleted:
			d.Status = Added
		default:
			d.Status = statusOf(rec.Status)
		}
		d.OldMode = rec.NewMode
		d.NewMode = rec.OldMode
		d.OldOID = rec.NewOID
		d.NewOID = rec.OldOID
	}
	l.deltas = append(l.deltas, d)
}

func statusOf(s object.DeltaStatus) Status {
	switch s {
	case object.DeltaAdded:
		return Added
	case object.DeltaDeleted:
		return Deleted
	default:
		return Modified
	}
}
