package voxel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pierrec/lz4/v4"
)

const MagicNumberVoxelGrid = 0x7a6f5831

type SnapshotVersion uint32

const SnapshotVersion1_000_000 = SnapshotVersion(1_000_000)

type SnapshotCompression uint8

const (
	SnapshotCompressionNone SnapshotCompression = iota
	SnapshotCompressionLZ4Fast
	SnapshotCompressionLZ4
)

type SnapshotHeader struct {
	Check       uint32
	Version     SnapshotVersion
	Compression SnapshotCompression
	Padding     [3]uint8
	Resolution  uint32
	Min         [3]float32
	Size        float32
}

// maxSnapshotResolution bounds allocations when decoding untrusted headers.
const maxSnapshotResolution = 1024

type EncodeContext struct {
	Compression SnapshotCompression
	Writer      io.Writer
}

type EncodeOption func(ctx *EncodeContext) error

// OptCompress enables lz4 compression. Level 0 is the fast mode, 1 to 9 map
// to the lz4 levels; negative levels disable the option.
func OptCompress(level int) EncodeOption {
	levels := []lz4.CompressionLevel{lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9}
	if level < 0 {
		return nil
	}
	if level >= len(levels) {
		level = len(levels) - 1
	}

	return func(ctx *EncodeContext) error {
		if ctx.Compression != SnapshotCompressionNone {
			return errors.New("compression already configured")
		}
		lzw := lz4.NewWriter(ctx.Writer)
		if err := lzw.Apply(lz4.CompressionLevelOption(levels[level])); err != nil {
			return err
		}
		if level == 0 {
			ctx.Compression = SnapshotCompressionLZ4Fast
		} else {
			ctx.Compression = SnapshotCompressionLZ4
		}
		ctx.Writer = lzw
		return nil
	}
}

// Encode writes the grid bounds and cells.
func Encode(w io.Writer, g *Grid, options ...EncodeOption) error {
	ctx := EncodeContext{Writer: w}
	for _, opt := range options {
		if opt != nil {
			if err := opt(&ctx); err != nil {
				return err
			}
		}
	}

	header := SnapshotHeader{
		Check:       MagicNumberVoxelGrid,
		Version:     SnapshotVersion1_000_000,
		Compression: ctx.Compression,
		Resolution:  uint32(g.Resolution),
		Min:         [3]float32{g.Min.X(), g.Min.Y(), g.Min.Z()},
		Size:        g.Size,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("could not write voxel grid header: %w", err)
	}

	if _, err := ctx.Writer.Write(g.Cells); err != nil {
		return fmt.Errorf("could not write voxel cells: %w", err)
	}

	// Only the compressor is ours to close; w belongs to the caller.
	if closer, ok := ctx.Writer.(io.WriteCloser); ok && ctx.Compression != SnapshotCompressionNone {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("could not flush voxel cells: %w", err)
		}
	}
	return nil
}

// Decode reads a grid written by Encode.
func Decode(r io.Reader) (*Grid, error) {
	header := SnapshotHeader{}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("expected voxel grid header: %w", err)
	}
	if header.Check != MagicNumberVoxelGrid {
		return nil, fmt.Errorf("voxel grid header is corrupt; magic 0x%08x", header.Check)
	}
	if header.Version != SnapshotVersion1_000_000 {
		return nil, fmt.Errorf("voxel grid version %d unsupported", header.Version)
	}
	if header.Resolution < 1 || header.Resolution > maxSnapshotResolution {
		return nil, fmt.Errorf("voxel grid resolution %d out of range", header.Resolution)
	}

	cellr := r
	switch header.Compression {
	case SnapshotCompressionNone:
	case SnapshotCompressionLZ4, SnapshotCompressionLZ4Fast:
		cellr = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("voxel grid compression id %d unsupported", header.Compression)
	}

	g := NewGrid(int(header.Resolution))
	g.Min = mgl32.Vec3{header.Min[0], header.Min[1], header.Min[2]}
	g.Size = header.Size
	if _, err := io.ReadFull(cellr, g.Cells); err != nil {
		return nil, fmt.Errorf("expected %d voxel cells; %w", len(g.Cells), err)
	}
	return g, nil
}
