// internal/odb/compression.go
package odb

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionOptions configures object compression behavior.
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level on the zstd scale, mapped by zstd.EncoderLevelFromZstd
	// (below 3 is the fastest setting, 3 the default one)
	Level int
}

// DefaultCompressionOptions provides sensible defaults.
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 1024, // 1KB
		Level:   2,    // Fastest zstd encoder setting
	}
}

// Compressed objects are framed with a one-byte marker so reads can tell raw
// from compressed without consulting metadata first.
const zstdMarker = 0x01

type compressor struct {
	opts CompressionOptions
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func newCompressor(opts CompressionOptions) (*compressor, error) {
	if opts.MinSize == 0 {
		opts.MinSize = DefaultCompressionOptions().MinSize
	}
	if opts.Level == 0 {
		opts.Level = DefaultCompressionOptions().Level
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &compressor{opts: opts, enc: enc, dec: dec}, nil
}

// compress returns the bytes to store and whether they are compressed.
// Content below the size threshold, or that does not shrink, stays raw.
func (c *compressor) compress(content []byte) ([]byte, bool, error) {
	if len(content) < c.opts.MinSize {
		return content, false, nil
	}
	out := make([]byte, 1, len(content)/2)
	out[0] = zstdMarker
	out = c.enc.EncodeAll(content, out)
	if len(out) >= len(content) {
		return content, false, nil
	}
	return out, true, nil
}

func (c *compressor) decompress(stored []byte) ([]byte, error) {
	if len(stored) == 0 || stored[0] != zstdMarker {
		return nil, fmt.Errorf("missing compression marker: %w", ErrCorrupt)
	}
	out, err := c.dec.DecodeAll(stored[1:], nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}
