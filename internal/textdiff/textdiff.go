// internal/textdiff/textdiff.go
//
// Line-based LCS diff engine. Results are not returned as a structure;
// instead the engine emits a stream of records through a callback:
//
//	1 buffer:  a hunk header, "@@ -start[,count] +start[,count] @@\n"
//	2 buffers: an origin byte (" ", "+" or "-") and one line of content
//	3 buffers: as above, plus a "no newline at end of file" marker
package textdiff

import (
	"bytes"
	"fmt"
)

// Flags alter how lines are compared.
type Flags uint32

const (
	IgnoreWhitespace Flags = 1 << iota
	IgnoreWhitespaceChange
	IgnoreWhitespaceEol
)

// Config controls hunk shaping and line comparison.
type Config struct {
	ContextLines   int
	InterhunkLines int
	Flags          Flags
}

// EmitFunc receives one record per call. A non-nil return aborts the diff
// and is propagated to the Diff caller.
type EmitFunc func(bufs ...[]byte) error

var noNewlineMarker = []byte("\n\\ No newline at end of file\n")

type opKind int8

const (
	opEq opKind = iota
	opDel
	opAdd
)

type op struct {
	kind   opKind
	oldIdx int
	newIdx int
}

// Diff computes a line diff of two byte buffers and emits the hunk and line
// records of the result.
func Diff(oldBuf, newBuf []byte, cfg Config, emit EmitFunc) error {
	oldLines := splitLines(oldBuf)
	newLines := splitLines(newBuf)

	ops := editScript(oldLines, newLines, cfg.Flags)
	hunks := shapeHunks(ops, cfg.ContextLines, cfg.InterhunkLines)

	for _, h := range hunks {
		if err := emit([]byte(h.header())); err != nil {
			return err
		}
		for _, o := range h.ops {
			var origin byte
			var line []byte
			var last bool
			switch o.kind {
			case opEq:
				origin, line = ' ', oldLines[o.oldIdx]
				last = o.oldIdx == len(oldLines)-1
			case opDel:
				origin, line = '-', oldLines[o.oldIdx]
				last = o.oldIdx == len(oldLines)-1
			case opAdd:
				origin, line = '+', newLines[o.newIdx]
				last = o.newIdx == len(newLines)-1
			}
			if last && !bytes.HasSuffix(line, []byte("\n")) {
				if err := emit([]byte{origin}, line, noNewlineMarker); err != nil {
					return err
				}
				continue
			}
			if err := emit([]byte{origin}, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitLines breaks a buffer into lines, keeping the trailing newline on
// each. An empty buffer has zero lines.
func splitLines(buf []byte) [][]byte {
	var lines [][]byte
	for len(buf) > 0 {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			lines = append(lines, buf)
			break
		}
		lines = append(lines, buf[:i+1])
		buf = buf[i+1:]
	}
	return lines
}

func normalize(line []byte, flags Flags) []byte {
	switch {
	case flags&IgnoreWhitespace != 0:
		out := make([]byte, 0, len(line))
		for _, c := range line {
			if !isSpace(c) {
				out = append(out, c)
			}
		}
		return out
	case flags&IgnoreWhitespaceChange != 0:
		out := make([]byte, 0, len(line))
		inRun := false
		for _, c := range line {
			if isSpace(c) {
				inRun = true
				continue
			}
			if inRun && len(out) > 0 {
				out = append(out, ' ')
			}
			inRun = false
			out = append(out, c)
		}
		return out
	case flags&IgnoreWhitespaceEol != 0:
		return bytes.TrimRightFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\r' || r == '\n'
		})
	default:
		return line
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func linesEqual(a, b []byte, flags Flags) bool {
	if flags == 0 {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(normalize(a, flags), normalize(b, flags))
}

// editScript computes the op sequence turning oldLines into newLines via a
// longest-common-subsequence table. Within each changed run, deletions come
// before additions.
func editScript(oldLines, newLines [][]byte, flags Flags) []op {
	n, m := len(oldLines), len(newLines)

	table := make([][]int32, n+1)
	for i := range table {
		table[i] = make([]int32, m+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if linesEqual(oldLines[i-1], newLines[j-1], flags) {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}

	ops := make([]op, 0, n+m)
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && linesEqual(oldLines[i-1], newLines[j-1], flags):
			ops = append(ops, op{kind: opEq, oldIdx: i - 1, newIdx: j - 1})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			ops = append(ops, op{kind: opAdd, newIdx: j - 1})
			j--
		default:
			ops = append(ops, op{kind: opDel, oldIdx: i - 1})
			i--
		}
	}
	reverse(ops)
	groupChanges(ops)
	return ops
}

func reverse(ops []op) {
	for a, b := 0, len(ops)-1; a < b; a, b = a+1, b-1 {
		ops[a], ops[b] = ops[b], ops[a]
	}
}

// groupChanges reorders each maximal run of non-equal ops so its deletions
// precede its additions.
func groupChanges(ops []op) {
	for start := 0; start < len(ops); {
		if ops[start].kind == opEq {
			start++
			continue
		}
		end := start
		for end < len(ops) && ops[end].kind != opEq {
			end++
		}
		run := make([]op, 0, end-start)
		for _, o := range ops[start:end] {
			if o.kind == opDel {
				run = append(run, o)
			}
		}
		for _, o := range ops[start:end] {
			if o.kind == opAdd {
				run = append(run, o)
			}
		}
		copy(ops[start:end], run)
		start = end
	}
}

type hunk struct {
	ops                []op
	oldStart, oldCount int
	newStart, newCount int
}

func (h *hunk) header() string {
	return fmt.Sprintf("@@ -%s +%s @@\n",
		sideSpec(h.oldStart, h.oldCount),
		sideSpec(h.newStart, h.newCount))
}

func sideSpec(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// shapeHunks slices the op stream into hunks with the configured context,
// merging changes separated by at most 2*context+interhunk equal lines.
func shapeHunks(ops []op, ctx, interhunk int) []*hunk {
	// positions of changed ops
	var changes []int
	for i, o := range ops {
		if o.kind != opEq {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	// old/new line counts consumed before each op
	oldBefore := make([]int, len(ops)+1)
	newBefore := make([]int, len(ops)+1)
	for i, o := range ops {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]
		if o.kind != opAdd {
			oldBefore[i+1]++
		}
		if o.kind != opDel {
			newBefore[i+1]++
		}
	}

	mergeGap := 2*ctx + interhunk
	var hunks []*hunk
	first := changes[0]
	last := changes[0]
	flush := func() {
		a := max(0, first-ctx)
		b := min(len(ops), last+ctx+1)
		h := &hunk{ops: ops[a:b]}
		h.oldCount = oldBefore[b] - oldBefore[a]
		h.newCount = newBefore[b] - newBefore[a]
		h.oldStart = oldBefore[a]
		if h.oldCount > 0 {
			h.oldStart++
		}
		h.newStart = newBefore[a]
		if h.newCount > 0 {
			h.newStart++
		}
		hunks = append(hunks, h)
	}
	for _, c := range changes[1:] {
		if c-last-1 > mergeGap {
			flush()
			first = c
		}
		last = c
	}
	flush()
	return hunks
}
