// internal/diff/binary.go
package diff

import "drift/internal/attr"

// resolveBinary settles the delta's binary flag from the `diff` attribute.
// ForceText wins over everything.
func (l *List) resolveBinary(d *Delta) {
	if l.opts.Flags&ForceText != 0 {
		d.Binary = NotBinary
		return
	}

	switch l.repo.Attr(d.OldPath, "diff").State {
	case attr.True:
		d.Binary = NotBinary
	case attr.False:
		d.Binary = Binary
	default:
		// TODO: string values select a diff driver; drivers are unimplemented
		// TODO: scan the first chunk for NUL bytes when unspecified
		d.Binary = NotBinary
	}
}
