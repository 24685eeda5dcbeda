// internal/diff/print.go
package diff

import (
	"fmt"
	"strings"

	"drift/internal/object"
)

// OutputFunc receives rendered output one line (or header block) at a time.
type OutputFunc func(origin Origin, line string) error

// PrintCompact renders one name-status line per delta.
func (l *List) PrintCompact(out OutputFunc) error {
	return l.Foreach(func(d *Delta, _ float64) error {
		code := statusCode(d.Status)
		if code == 0 {
			return nil
		}

		oldSuffix := modeSuffix(d.OldMode)
		newSuffix := modeSuffix(d.NewMode)

		var line string
		switch {
		case d.NewPath != "" && d.NewPath != d.OldPath:
			line = fmt.Sprintf("%c\t%s%c -> %s%c\n", code, d.OldPath, oldSuffix, d.NewPath, newSuffix)
		case d.OldMode != d.NewMode && d.OldMode != 0 && d.NewMode != 0:
			line = fmt.Sprintf("%c\t%s%c (%o -> %o)\n", code, d.OldPath, newSuffix, uint32(d.OldMode), uint32(d.NewMode))
		case oldSuffix != ' ':
			line = fmt.Sprintf("%c\t%s%c\n", code, d.OldPath, oldSuffix)
		default:
			line = fmt.Sprintf("%c\t%s\n", code, d.OldPath)
		}
		return out(OriginFileHdr, line)
	}, nil, nil)
}

func statusCode(s Status) byte {
	switch s {
	case Added:
		return 'A'
	case Deleted:
		return 'D'
	case Modified:
		return 'M'
	case Renamed:
		return 'R'
	case Copied:
		return 'C'
	case Ignored:
		return 'I'
	case Untracked:
		return '?'
	default:
		return 0
	}
}

func modeSuffix(m object.Mode) byte {
	switch {
	case m.IsDir():
		return '/'
	case m&0100 != 0:
		// git modes are rigid: an executable bit means a 100755 entry
		return '*'
	default:
		return ' '
	}
}

// PrintPatch renders the full unified patch for every delta.
func (l *List) PrintPatch(out OutputFunc) error {
	return l.Foreach(
		func(d *Delta, _ float64) error {
			return printPatchFile(l.opts, d, out)
		},
		func(d *Delta, _ *Range, header []byte) error {
			return out(OriginHunkHdr, string(header))
		},
		func(d *Delta, origin Origin, content []byte) error {
			switch origin {
			case OriginAddition, OriginDeletion, OriginContext:
				return out(origin, string(origin)+string(content))
			default:
				if len(content) > 0 {
					return out(origin, string(content))
				}
				return nil
			}
		})
}

func printPatchFile(opts Options, d *Delta, out OutputFunc) error {
	oldPfx, newPfx := opts.SrcPrefix, opts.DstPrefix
	oldPath, newPath := d.OldPath, d.newPathOrOld()

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git %s%s %s%s\n", oldPfx, oldPath, newPfx, newPath)
	writeOIDRange(&b, d)

	if d.Status != Deleted && d.Status != Modified {
		oldPfx, oldPath = "", "/dev/null"
	}
	if d.Status != Added && d.Status != Modified {
		newPfx, newPath = "", "/dev/null"
	}

	if d.Binary != Binary {
		fmt.Fprintf(&b, "--- %s%s\n", oldPfx, oldPath)
		fmt.Fprintf(&b, "+++ %s%s\n", newPfx, newPath)
	}

	if err := out(OriginFileHdr, b.String()); err != nil {
		return err
	}
	if d.Binary != Binary {
		return nil
	}

	line := fmt.Sprintf("Binary files %s%s and %s%s differ\n", oldPfx, oldPath, newPfx, newPath)
	return out(OriginBinary, line)
}

func writeOIDRange(b *strings.Builder, d *Delta) {
	if d.OldMode == d.NewMode {
		fmt.Fprintf(b, "index %s..%s %o\n", d.OldOID.Short(), d.NewOID.Short(), uint32(d.OldMode))
		return
	}
	switch {
	case d.OldMode == 0:
		fmt.Fprintf(b, "new file mode %o\n", uint32(d.NewMode))
	case d.NewMode == 0:
		fmt.Fprintf(b, "deleted file mode %o\n", uint32(d.OldMode))
	default:
		fmt.Fprintf(b, "old mode %o\n", uint32(d.OldMode))
		fmt.Fprintf(b, "new mode %o\n", uint32(d.NewMode))
	}
	fmt.Fprintf(b, "index %s..%s\n", d.OldOID.Short(), d.NewOID.Short())
}
