// internal/diff/patch.go
package diff

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"drift/internal/object"
	"drift/internal/textdiff"
)

// ErrMalformedHunk reports an unparseable hunk header from the text engine.
var ErrMalformedHunk = errors.New("malformed hunk header")

// Origin tags every emitted line with its role in the patch.
type Origin byte

const (
	OriginContext  Origin = ' '
	OriginAddition Origin = '+'
	OriginDeletion Origin = '-'
	// markers for a missing newline at the end of either file
	OriginAddEOFNL Origin = '>'
	OriginDelEOFNL Origin = '<'
	OriginFileHdr  Origin = 'F'
	OriginHunkHdr  Origin = 'H'
	OriginBinary   Origin = 'B'
)

// Range is the parsed form of a hunk header.
type Range struct {
	OldStart, OldLines int
	NewStart, NewLines int
}

// Callbacks. A non-nil return aborts the traversal and is handed back to
// the caller.
type (
	FileFunc func(d *Delta, progress float64) error
	HunkFunc func(d *Delta, r *Range, header []byte) error
	LineFunc func(d *Delta, origin Origin, content []byte) error
)

// Foreach walks the list, resolving the binary flag per delta, invoking
// fileFn for every delta and streaming hunks and lines of the textual diff
// for non-binary deltas when hunkFn or lineFn is given. Blob content is
// held only for the duration of one delta's diff.
func (l *List) Foreach(fileFn FileFunc, hunkFn HunkFunc, lineFn LineFunc) error {
	cfg := l.textConfig()
	wantText := hunkFn != nil || lineFn != nil

	for i, d := range l.deltas {
		var oldData, newData []byte
		var haveOld, haveNew bool

		if wantText {
			var err error
			if d.Status == Deleted || d.Status == Modified {
				if oldData, err = l.loadSide(d.OldOID, d.OldPath); err != nil {
					return err
				}
				haveOld = true
			}
			if d.Status == Added || d.Status == Modified {
				if newData, err = l.loadSide(d.NewOID, d.newPathOrOld()); err != nil {
					return err
				}
				haveNew = true
			}
		}

		l.resolveBinary(d)

		if fileFn != nil {
			if err := fileFn(d, float64(i)/float64(len(l.deltas))); err != nil {
				return err
			}
		}

		// no hunk or line output for binary files
		if d.Binary == Binary {
			continue
		}
		if !haveOld && !haveNew {
			continue
		}

		if err := runTextDiff(d, oldData, newData, cfg, hunkFn, lineFn); err != nil {
			return err
		}
	}
	return nil
}

// loadSide fetches one side's bytes from the object database. A zero oid
// means the synth saw the change on disk without hashing it; the bytes come
// from the working copy instead.
func (l *List) loadSide(oid object.OID, relpath string) ([]byte, error) {
	if oid.IsZero() {
		abs := filepath.Join(l.repo.Workdir(), filepath.FromSlash(relpath))
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", relpath, err)
		}
		return data, nil
	}
	blob, err := l.repo.Blob(oid)
	if err != nil {
		return nil, fmt.Errorf("loading blob for %s: %w", relpath, err)
	}
	return blob.Content, nil
}

func (l *List) textConfig() textdiff.Config {
	return textConfig(l.opts)
}

func textConfig(opts Options) textdiff.Config {
	cfg := textdiff.Config{
		ContextLines:   opts.ContextLines,
		InterhunkLines: opts.InterhunkLines,
	}
	if opts.Flags&IgnoreWhitespace != 0 {
		cfg.Flags |= textdiff.IgnoreWhitespace
	}
	if opts.Flags&IgnoreWhitespaceChange != 0 {
		cfg.Flags |= textdiff.IgnoreWhitespaceChange
	}
	if opts.Flags&IgnoreWhitespaceEol != 0 {
		cfg.Flags |= textdiff.IgnoreWhitespaceEol
	}
	return cfg
}

// runTextDiff feeds one delta's buffers through the text engine and relays
// its records to the hunk and line callbacks.
func runTextDiff(d *Delta, oldData, newData []byte, cfg textdiff.Config, hunkFn HunkFunc, lineFn LineFunc) error {
	return textdiff.Diff(oldData, newData, cfg, func(bufs ...[]byte) error {
		switch len(bufs) {
		case 1:
			if hunkFn == nil {
				return nil
			}
			if len(bufs[0]) == 0 || bufs[0][0] != '@' {
				return nil
			}
			r, err := parseHunkHeader(bufs[0])
			if err != nil {
				return err
			}
			return hunkFn(d, r, bufs[0])

		case 2, 3:
			if lineFn == nil {
				return nil
			}
			origin := OriginContext
			switch bufs[0][0] {
			case '+':
				origin = OriginAddition
			case '-':
				origin = OriginDeletion
			}
			if err := lineFn(d, origin, bufs[1]); err != nil {
				return err
			}
			if len(bufs) == 3 {
				marker := OriginDelEOFNL
				if origin == OriginAddition {
					marker = OriginAddEOFNL
				}
				return lineFn(d, marker, bufs[2])
			}
			return nil
		}
		return nil
	})
}

// parseHunkHeader reads "@@ -start[,count] +start[,count] @@". A missing
// count defaults to one line.
func parseHunkHeader(header []byte) (*Range, error) {
	r := &Range{OldLines: 1, NewLines: 1}
	rest := header
	var ok bool
	if r.OldStart, rest, ok = nextInt(rest); !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedHunk, header)
	}
	if len(rest) > 0 && rest[0] == ',' {
		if r.OldLines, rest, ok = nextInt(rest); !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHunk, header)
		}
	}
	if r.NewStart, rest, ok = nextInt(rest); !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedHunk, header)
	}
	if len(rest) > 0 && rest[0] == ',' {
		if r.NewLines, rest, ok = nextInt(rest); !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHunk, header)
		}
	}
	return r, nil
}

func nextInt(s []byte) (int, []byte, bool) {
	i := 0
	for i < len(s) && (s[i] < '0' || s[i] > '9') {
		i++
	}
	v, digits := 0, 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		v = v*10 + int(s[i]-'0')
		i++
		digits++
	}
	return v, s[i:], digits > 0
}

// Blobs diffs two blobs directly through the hunk and line callbacks,
// without building a delta list. Reverse swaps the blobs before dispatch.
// No file callbacks or print output are produced.
func Blobs(oldBlob, newBlob *object.Blob, opts *Options, hunkFn HunkFunc, lineFn LineFunc) error {
	o := resolve(opts)
	if o.Flags&Reverse != 0 {
		oldBlob, newBlob = newBlob, oldBlob
	}

	// a synthetic delta: a blob alone reveals nothing about paths or modes
	d := &Delta{
		OldMode: object.ModeBlob,
		NewMode: object.ModeBlob,
		Binary:  NotBinary,
	}
	var oldData, newData []byte
	if oldBlob != nil {
		oldData = oldBlob.Content
		d.OldOID = oldBlob.OID
	}
	if newBlob != nil {
		newData = newBlob.Content
		d.NewOID = newBlob.OID
	}
	switch {
	case oldBlob != nil && newBlob != nil:
		d.Status = Modified
	case oldBlob != nil:
		d.Status = Deleted
	case newBlob != nil:
		d.Status = Added
	default:
		d.Status = Untracked
	}

	return runTextDiff(d, oldData, newData, textConfig(o), hunkFn, lineFn)
}
