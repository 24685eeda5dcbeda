package diff

import (
	"errors"
	"strings"
	"testing"

	"drift/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	hunks []Range
	lines []string // origin byte + content
}

func (rec *recorded) hunkFn(_ *Delta, r *Range, _ []byte) error {
	rec.hunks = append(rec.hunks, *r)
	return nil
}

func (rec *recorded) lineFn(_ *Delta, origin Origin, content []byte) error {
	rec.lines = append(rec.lines, string(origin)+string(content))
	return nil
}

func TestBlobsStreamsHunksAndLines(t *testing.T) {
	oldBlob := &object.Blob{OID: object.HashBytes([]byte("a\nb\nc\n")), Content: []byte("a\nb\nc\n")}
	newBlob := &object.Blob{OID: object.HashBytes([]byte("a\nx\nc\n")), Content: []byte("a\nx\nc\n")}

	var rec recorded
	require.NoError(t, Blobs(oldBlob, newBlob, nil, rec.hunkFn, rec.lineFn))

	require.Len(t, rec.hunks, 1)
	assert.Equal(t, Range{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3}, rec.hunks[0])
	assert.Equal(t, []string{" a\n", "-b\n", "+x\n", " c\n"}, rec.lines)
}

func TestBlobsReverseSwapsSides(t *testing.T) {
	oldBlob := &object.Blob{Content: []byte("old\n")}
	newBlob := &object.Blob{Content: []byte("new\n")}

	var rec recorded
	require.NoError(t, Blobs(oldBlob, newBlob, &Options{Flags: Reverse}, rec.hunkFn, rec.lineFn))

	assert.Equal(t, []string{"-new\n", "+old\n"}, rec.lines)
}

func TestBlobsNilSides(t *testing.T) {
	blob := &object.Blob{Content: []byte("only\n")}

	var rec recorded
	require.NoError(t, Blobs(nil, blob, nil, rec.hunkFn, rec.lineFn))
	assert.Equal(t, []string{"+only\n"}, rec.lines)

	rec = recorded{}
	require.NoError(t, Blobs(blob, nil, nil, rec.hunkFn, rec.lineFn))
	assert.Equal(t, []string{"-only\n"}, rec.lines)

	rec = recorded{}
	require.NoError(t, Blobs(nil, nil, nil, rec.hunkFn, rec.lineFn))
	assert.Empty(t, rec.lines)
}

func TestBlobsEOFNLMarkers(t *testing.T) {
	oldBlob := &object.Blob{Content: []byte("a\n")}
	newBlob := &object.Blob{Content: []byte("a\nb")}

	var lines []string
	var origins []Origin
	err := Blobs(oldBlob, newBlob, nil, nil, func(_ *Delta, origin Origin, content []byte) error {
		origins = append(origins, origin)
		lines = append(lines, string(content))
		return nil
	})
	require.NoError(t, err)

	require.Len(t, origins, 3)
	assert.Equal(t, []Origin{OriginContext, OriginAddition, OriginAddEOFNL}, origins)
	assert.Equal(t, "b", lines[1])
	assert.Equal(t, "\n\\ No newline at end of file\n", lines[2])
}

func TestForeachInvokesFileCallbackWithProgress(t *testing.T) {
	r := newFakeRepo(t)
	oid := r.addBlob("x\n")

	l := newList(r, nil)
	l.appendFromOne(Added, object.ModeBlob, oid, "one.txt")
	l.appendFromOne(Added, object.ModeBlob, oid, "two.txt")

	var progress []float64
	err := l.Foreach(func(d *Delta, p float64) error {
		progress = append(progress, p)
		return nil
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5}, progress)
}

func TestForeachFileCallbackErrorAborts(t *testing.T) {
	r := newFakeRepo(t)
	oid := r.addBlob("x\n")

	l := newList(r, nil)
	l.appendFromOne(Added, object.ModeBlob, oid, "one.txt")
	l.appendFromOne(Added, object.ModeBlob, oid, "two.txt")

	boom := errors.New("stop here")
	calls := 0
	err := l.Foreach(func(d *Delta, _ float64) error {
		calls++
		return boom
	}, nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	// the list stays usable after an abort
	assert.Equal(t, 2, l.Len())
}

func TestForeachLineCallbackErrorAborts(t *testing.T) {
	r := newFakeRepo(t)
	oldOID := r.addBlob("a\nb\n")
	newOID := r.addBlob("a\nc\n")

	l := newList(r, nil)
	l.appendFromRecord(&object.TreeDelta{
		Status:  object.DeltaModified,
		Path:    "f.txt",
		OldMode: object.ModeBlob,
		NewMode: object.ModeBlob,
		OldOID:  oldOID,
		NewOID:  newOID,
	})

	boom := errors.New("enough")
	err := l.Foreach(nil, nil, func(_ *Delta, _ Origin, _ []byte) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestForeachSkipsBinaryDeltas(t *testing.T) {
	r := newFakeRepo(t)
	r.writeFile(t, ".driftattributes", "*.bin -diff\n", 0644)
	oldOID := r.addBlob("\x00old")
	newOID := r.addBlob("\x00new")

	l := newList(r, nil)
	l.appendFromRecord(&object.TreeDelta{
		Status:  object.DeltaModified,
		Path:    "data.bin",
		OldMode: object.ModeBlob,
		NewMode: object.ModeBlob,
		OldOID:  oldOID,
		NewOID:  newOID,
	})

	var rec recorded
	var seen []*Delta
	err := l.Foreach(func(d *Delta, _ float64) error {
		seen = append(seen, d)
		return nil
	}, rec.hunkFn, rec.lineFn)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, Binary, seen[0].Binary)
	assert.Empty(t, rec.hunks)
	assert.Empty(t, rec.lines)
}

func TestForeachForceTextOverridesAttribute(t *testing.T) {
	r := newFakeRepo(t)
	r.writeFile(t, ".driftattributes", "*.bin -diff\n", 0644)
	oldOID := r.addBlob("payload v1\n")
	newOID := r.addBlob("payload v2\n")

	l := newList(r, &Options{Flags: ForceText})
	l.appendFromRecord(&object.TreeDelta{
		Status:  object.DeltaModified,
		Path:    "data.bin",
		OldMode: object.ModeBlob,
		NewMode: object.ModeBlob,
		OldOID:  oldOID,
		NewOID:  newOID,
	})

	var rec recorded
	require.NoError(t, l.Foreach(nil, rec.hunkFn, rec.lineFn))
	assert.NotEmpty(t, rec.lines)
	assert.Equal(t, NotBinary, l.Delta(0).Binary)
}

// with unlimited context the +/-/space decoding reconstructs both blobs
func TestForeachRoundTripReconstruction(t *testing.T) {
	r := newFakeRepo(t)
	oldContent := "one\ntwo\nthree\nfour\nfive\n"
	newContent := "one\n2\nthree\nfive\nsix"
	oldOID := r.addBlob(oldContent)
	newOID := r.addBlob(newContent)

	l := newList(r, &Options{Flags: ForceText, ContextLines: 1000})
	l.appendFromRecord(&object.TreeDelta{
		Status:  object.DeltaModified,
		Path:    "f.txt",
		OldMode: object.ModeBlob,
		NewMode: object.ModeBlob,
		OldOID:  oldOID,
		NewOID:  newOID,
	})

	var oldOut, newOut strings.Builder
	err := l.Foreach(nil, nil, func(_ *Delta, origin Origin, content []byte) error {
		switch origin {
		case OriginContext:
			oldOut.Write(content)
			newOut.Write(content)
		case OriginDeletion:
			oldOut.Write(content)
		case OriginAddition:
			newOut.Write(content)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, oldContent, oldOut.String())
	assert.Equal(t, newContent, newOut.String())
}

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    Range
		wantErr bool
	}{
		{"@@ -1,3 +1,4 @@\n", Range{1, 3, 1, 4}, false},
		{"@@ -5 +7 @@\n", Range{5, 1, 7, 1}, false},
		{"@@ -0,0 +1,2 @@\n", Range{0, 0, 1, 2}, false},
		{"@@ nonsense @@\n", Range{}, true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.header), func(t *testing.T) {
			got, err := parseHunkHeader([]byte(tt.header))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedHunk)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestOptionsNormalization(t *testing.T) {
	tests := []struct {
		name    string
		in      *Options
		wantSrc string
		wantDst string
	}{
		{"nil options use defaults", nil, "a/", "b/"},
		{"missing slash is appended", &Options{SrcPrefix: "x", DstPrefix: "y"}, "x/", "y/"},
		{"existing slash is kept", &Options{SrcPrefix: "x/", DstPrefix: "y/"}, "x/", "y/"},
		{"reverse swaps once", &Options{Flags: Reverse}, "b/", "a/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.in)
			assert.Equal(t, tt.wantSrc, got.SrcPrefix)
			assert.Equal(t, tt.wantDst, got.DstPrefix)
			assert.Equal(t, defaultContextLines, got.ContextLines)
			assert.Equal(t, defaultInterhunkLines, got.InterhunkLines)
		})
	}
}
