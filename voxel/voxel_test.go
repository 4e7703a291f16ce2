package voxel

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"testing"
	"time"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/gfx/soft"
	"github.com/gekko3d/iblshadows/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meshList []*scene.Mesh

func (l meshList) Meshes() []*scene.Mesh { return l }

func TestGrid_Cells(t *testing.T) {
	g := NewGrid(4)
	assert.Len(t, g.Cells, 64)
	assert.Equal(t, float32(0.5), g.CellSize())
	assert.Equal(t, 1+4*2+16*3, g.Index(1, 2, 3))

	x, y, z, ok := g.CellOf(mgl32.Vec3{1, 1, 1})
	require.True(t, ok)
	assert.Equal(t, [3]int{3, 3, 3}, [3]int{x, y, z}, "max face belongs to last cell")
	x, y, z, ok = g.CellOf(mgl32.Vec3{-1, -0.75, 0})
	require.True(t, ok)
	assert.Equal(t, [3]int{0, 0, 2}, [3]int{x, y, z})
	_, _, _, ok = g.CellOf(mgl32.Vec3{1.01, 0, 0})
	assert.False(t, ok)

	g.Set(1, 1, 1, Solid)
	g.Set(9, 9, 9, Solid)
	assert.Equal(t, Solid, g.At(1, 1, 1))
	assert.Equal(t, Empty, g.At(-1, 0, 0))
	assert.Equal(t, 1, g.Occupied())
	assert.Equal(t, mgl32.Vec3{-0.25, -0.25, -0.25}, g.CellCenter(1, 1, 1))

	g.Clear()
	assert.Equal(t, 0, g.Occupied())
}

func TestGrid_FitBounds(t *testing.T) {
	g := NewGrid(10)
	g.fitBounds(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{8, 2, 4}, 1)
	assert.InDelta(t, 1, g.CellSize(), 1e-6)
	assert.InDelta(t, 10, g.Size, 1e-5)
	assert.True(t, g.Min.ApproxEqualThreshold(mgl32.Vec3{-1, -4, -3}, 1e-5), "got %v", g.Min)

	g.fitBounds(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 0)
	assert.InDelta(t, 1, g.Size, 1e-6, "degenerate bounds get a unit edge")
}

func TestTriBoxOverlap(t *testing.T) {
	center := mgl32.Vec3{}
	half := mgl32.Vec3{0.5, 0.5, 0.5}
	tests := []struct {
		name    string
		a, b, c mgl32.Vec3
		want    bool
	}{
		{"through center", mgl32.Vec3{-2, -2, 0}, mgl32.Vec3{2, -2, 0}, mgl32.Vec3{0, 2, 0}, true},
		{"far away", mgl32.Vec3{5, 5, 5}, mgl32.Vec3{6, 5, 5}, mgl32.Vec3{5, 6, 5}, false},
		{"parallel plane above", mgl32.Vec3{-2, -2, 0.6}, mgl32.Vec3{2, -2, 0.6}, mgl32.Vec3{0, 2, 0.6}, false},
		{"bounds overlap only", mgl32.Vec3{2, 0, 0}, mgl32.Vec3{0, 2, 0}, mgl32.Vec3{2, 2, 0}, false},
		{"touching face", mgl32.Vec3{-2, -2, 0.5}, mgl32.Vec3{2, -2, 0.5}, mgl32.Vec3{0, 2, 0.5}, true},
		{"small inside", mgl32.Vec3{0.1, 0.1, 0.1}, mgl32.Vec3{0.2, 0.1, 0.1}, mgl32.Vec3{0.1, 0.2, 0.1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, triBoxOverlap(center, half, tt.a, tt.b, tt.c))
		})
	}
}

func newBuilder(t *testing.T, meshes meshList, resolution int, options ...BuilderOption) (*soft.Engine, *Builder) {
	t.Helper()
	e := soft.NewEngine(1, 1)
	b, err := NewBuilder(e, meshes, resolution, options...)
	require.NoError(t, err)
	t.Cleanup(b.Dispose)
	return e, b
}

func TestNewBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(soft.NewEngine(1, 1), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = NewBuilder(soft.NewEngine(1, 1, soft.WithCaps(gfx.Caps{MultipleRenderTargets: true})), nil, 8)
	assert.ErrorIs(t, err, gfx.ErrUnsupportedFormat)
}

func TestBuilder_EmptyScene(t *testing.T) {
	_, b := newBuilder(t, nil, 8)
	assert.False(t, b.IsReady(), "warming up before the first upload")

	stats, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	assert.True(t, b.IsReady())
	assert.Equal(t, 0, stats.Occupied)
	assert.Equal(t, 0, stats.Meshes)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, b.Grid().Min)
	assert.Equal(t, float32(2), b.Grid().Size)
	assert.Equal(t, 1, b.BuildCount())
}

func twoBoxes() (left, right *scene.Mesh) {
	left = scene.NewBox("left", 2)
	left.Transform.Position = mgl32.Vec3{-3, 0, 0}
	right = scene.NewBox("right", 2)
	right.Transform.Position = mgl32.Vec3{3, 0, 0}
	return left, right
}

func TestBuilder_Exclusion(t *testing.T) {
	left, right := twoBoxes()
	_, b := newBuilder(t, meshList{left, right}, 32)

	stats, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Meshes)
	assert.Equal(t, 24, stats.Triangles)
	leftMin, leftMax, _ := left.WorldAABB()
	rightMin, rightMax, _ := right.WorldAABB()
	assert.Positive(t, b.Grid().OccupiedIn(leftMin, leftMax))
	assert.Positive(t, b.Grid().OccupiedIn(rightMin, rightMax))

	stats, err = b.UpdateVoxelGrid([]int{left.UniqueID()})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Meshes)
	assert.Equal(t, 1, stats.Excluded)
	pad := mgl32.Vec3{0.5, 0.5, 0.5}
	assert.Zero(t, b.Grid().OccupiedIn(leftMin.Sub(pad), leftMax.Add(pad)))
	assert.Positive(t, b.Grid().OccupiedIn(rightMin, rightMax))
	assert.Equal(t, []int{right.UniqueID()}, b.VoxelizedMeshIDs())
}

func TestBuilder_SkipsDisabledAndEmptyMeshes(t *testing.T) {
	box := scene.NewBox("box", 2)
	box.Enabled = false
	empty := scene.NewMesh("empty", scene.Geometry{})
	_, b := newBuilder(t, meshList{box, empty}, 8)

	stats, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Meshes)
	assert.Equal(t, 0, stats.Occupied)
}

func TestBuilder_PointCloud(t *testing.T) {
	pc := scene.NewPointCloud("pc", []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}, {1, 1, 1}})
	_, b := newBuilder(t, meshList{pc}, 8, WithPadding(0))

	stats, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Points)
	assert.Equal(t, 2, stats.Occupied)
	assert.Equal(t, Solid, b.Grid().At(0, 0, 0))
	assert.Equal(t, Solid, b.Grid().At(7, 7, 7))
}

func TestBuilder_ParallelMatchesSerial(t *testing.T) {
	left, right := twoBoxes()
	ground := scene.NewGround("ground", 12, 4)
	ground.Transform.Position = mgl32.Vec3{0, -1, 0}
	sphere := scene.NewSphere("sphere", 1.5, 12)
	meshes := meshList{left, right, ground, sphere}

	_, serial := newBuilder(t, meshes, 24)
	_, parallel := newBuilder(t, meshes, 24, WithWorkers(4))

	s1, err := serial.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	s2, err := parallel.UpdateVoxelGrid(nil)
	require.NoError(t, err)

	assert.Equal(t, 1, s1.Slabs)
	assert.Equal(t, 4, s2.Slabs)
	assert.Equal(t, s1.Occupied, s2.Occupied)
	assert.Equal(t, serial.Grid().Cells, parallel.Grid().Cells)
}

func TestBuilder_UploadsGrid(t *testing.T) {
	box := scene.NewBox("box", 2)
	_, b := newBuilder(t, meshList{box}, 8)
	_, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)

	tex := b.Texture().(*soft.Texture)
	assert.Equal(t, 1, tex.Uploads())
	g := b.Grid()
	for z := 0; z < 8; z++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				assert.Equal(t, float32(g.At(x, y, z))/255, tex.Texel(x, y, z).X())
			}
		}
	}
}

func TestBuilder_SetResolution(t *testing.T) {
	e, b := newBuilder(t, nil, 8)
	_, err := b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	first := b.Texture()

	require.NoError(t, b.SetResolution(8))
	assert.True(t, b.IsReady(), "same resolution keeps the volume")

	require.NoError(t, b.SetResolution(16))
	assert.False(t, b.IsReady())
	assert.True(t, first.Released())
	assert.Equal(t, 16, b.Resolution())
	assert.Equal(t, 16, b.Texture().Descriptor().Depth)
	assert.Equal(t, 1, e.LiveTextures())
	assert.ErrorIs(t, b.SetResolution(0), ErrInvalidResolution)

	_, err = b.UpdateVoxelGrid(nil)
	require.NoError(t, err)
	assert.True(t, b.IsReady())
	assert.Equal(t, 16, b.LastStats().Resolution)
}

func TestBuilder_Dispose(t *testing.T) {
	e, b := newBuilder(t, nil, 8)
	b.Dispose()
	b.Dispose()
	assert.False(t, b.IsReady())
	assert.Equal(t, 0, e.LiveTextures())

	_, err := b.UpdateVoxelGrid(nil)
	assert.ErrorIs(t, err, gfx.ErrDisposed)
	assert.ErrorIs(t, b.SetResolution(4), gfx.ErrDisposed)
}

func TestBuilder_DisposeStopsWorkers(t *testing.T) {
	left, right := twoBoxes()
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		_, b := newBuilder(t, meshList{left, right}, 16, WithWorkers(4))
		_, err := b.UpdateVoxelGrid(nil)
		require.NoError(t, err)
		b.Dispose()
	}
	// A builder whose volume cannot be allocated must not keep its pool.
	for i := 0; i < 10; i++ {
		_, err := NewBuilder(soft.NewEngine(1, 1, soft.WithCaps(gfx.Caps{MultipleRenderTargets: true})), nil, 8, WithWorkers(4))
		require.Error(t, err)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 3*time.Second, 20*time.Millisecond, "worker goroutines outlive Dispose")
}

func TestSnapshot(t *testing.T) {
	g := NewGrid(8)
	g.Min = mgl32.Vec3{1, 2, 3}
	g.Size = 4
	for i := range g.Cells {
		if i%3 == 0 {
			g.Cells[i] = Solid
		}
	}

	for _, level := range []int{-1, 0, 9} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, g, OptCompress(level)), "level %d", level)
		got, err := Decode(&buf)
		require.NoError(t, err, "level %d", level)
		assert.Equal(t, g.Resolution, got.Resolution)
		assert.Equal(t, g.Min, got.Min)
		assert.Equal(t, g.Size, got.Size)
		assert.Equal(t, g.Cells, got.Cells)
	}
}

func TestSnapshot_DoubleCompression(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, NewGrid(2), OptCompress(1), OptCompress(2)))
}

func TestDecode_Errors(t *testing.T) {
	encodeHeader := func(h SnapshotHeader) *bytes.Buffer {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
		return &buf
	}
	valid := SnapshotHeader{Check: MagicNumberVoxelGrid, Version: SnapshotVersion1_000_000, Resolution: 2}

	_, err := Decode(bytes.NewReader(nil))
	assert.ErrorContains(t, err, "expected voxel grid header")

	bad := valid
	bad.Check = 0xdeadbeef
	_, err = Decode(encodeHeader(bad))
	assert.ErrorContains(t, err, "corrupt")

	bad = valid
	bad.Version = 2
	_, err = Decode(encodeHeader(bad))
	assert.ErrorContains(t, err, "version 2 unsupported")

	bad = valid
	bad.Compression = 7
	_, err = Decode(encodeHeader(bad))
	assert.ErrorContains(t, err, "compression id 7 unsupported")

	bad = valid
	bad.Resolution = 1 << 20
	_, err = Decode(encodeHeader(bad))
	assert.ErrorContains(t, err, "out of range")

	_, err = Decode(encodeHeader(valid))
	assert.ErrorContains(t, err, "expected 8 voxel cells")
}
