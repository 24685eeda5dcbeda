// internal/diff/options.go
package diff

import "strings"

// Flags is the option bitset.
type Flags uint32

const (
	// Reverse swaps the two sides of the comparison.
	Reverse Flags = 1 << iota
	// ForceText disables binary detection for every delta.
	ForceText
	IgnoreWhitespace
	IgnoreWhitespaceChange
	IgnoreWhitespaceEol
)

const (
	defaultContextLines   = 3
	defaultInterhunkLines = 3
	defaultSrcPrefix      = "a/"
	defaultDstPrefix      = "b/"
)

// Options are the normalized diff parameters. The zero value (or a nil
// pointer at the API boundary) means defaults.
type Options struct {
	Flags          Flags
	ContextLines   int
	InterhunkLines int
	SrcPrefix      string
	DstPrefix      string
	// Pathspec restricts participating paths. Reserved; the synths do not
	// apply it yet.
	Pathspec []string
}

// resolve fills defaults, terminates prefixes with a slash, and swaps the
// prefixes exactly once when Reverse is set.
func resolve(opts *Options) Options {
	var out Options
	if opts != nil {
		out = *opts
	}
	if out.ContextLines == 0 {
		out.ContextLines = defaultContextLines
	}
	if out.InterhunkLines == 0 {
		out.InterhunkLines = defaultInterhunkLines
	}
	out.SrcPrefix = resolvePrefix(out.SrcPrefix, defaultSrcPrefix)
	out.DstPrefix = resolvePrefix(out.DstPrefix, defaultDstPrefix)
	if out.Flags&Reverse != 0 {
		out.SrcPrefix, out.DstPrefix = out.DstPrefix, out.SrcPrefix
	}
	return out
}

func resolvePrefix(p, def string) string {
	if p == "" {
		return def
	}
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}
