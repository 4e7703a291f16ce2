package voxel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/scene"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/slices"
)

var ErrInvalidResolution = errors.New("voxel: resolution must be at least 1")

// MeshSource supplies the meshes to voxelize.
type MeshSource interface {
	Meshes() []*scene.Mesh
}

// Stats describes one voxelization pass.
type Stats struct {
	Resolution int
	Meshes     int
	Triangles  int
	Points     int
	Occupied   int
	Excluded   int
	Slabs      int
	Duration   time.Duration
}

type BuilderOption func(*Builder)

// WithWorkers sets how many z slabs rasterize in parallel. n <= 1 rasterizes
// on the calling goroutine.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithPadding keeps the given number of empty cells around the scene bounds.
func WithPadding(cells int) BuilderOption {
	return func(b *Builder) {
		if cells >= 0 {
			b.padding = cells
		}
	}
}

// Builder owns the voxel grid and the R8 3D texture mirroring it.
type Builder struct {
	engine  gfx.Engine
	source  MeshSource
	grid    *Grid
	texture gfx.Texture

	workers int
	padding int
	pool    worker.DynamicWorkerPool
	pooled  bool
	taskID  int

	uploads   int
	builds    int
	last      Stats
	voxelized []int
	disposed  bool
}

func NewBuilder(engine gfx.Engine, source MeshSource, resolution int, options ...BuilderOption) (*Builder, error) {
	if resolution < 1 {
		return nil, ErrInvalidResolution
	}
	b := &Builder{
		engine:  engine,
		source:  source,
		workers: 1,
		padding: 1,
	}
	for _, option := range options {
		option(b)
	}
	if b.workers > 1 {
		b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
		b.pooled = true
	}
	if err := b.allocate(resolution); err != nil {
		b.stopPool()
		return nil, err
	}
	return b, nil
}

func (b *Builder) allocate(resolution int) error {
	tex, err := b.engine.CreateTexture(gfx.TextureDescriptor{
		Label:  fmt.Sprintf("voxel grid %d", resolution),
		Width:  resolution,
		Height: resolution,
		Depth:  resolution,
		Format: gfx.TextureFormatR8Unorm,
	})
	if err != nil {
		return fmt.Errorf("voxel: allocate %d^3 volume: %w", resolution, err)
	}
	if b.texture != nil {
		b.texture.Release()
	}
	b.texture = tex
	b.grid = NewGrid(resolution)
	b.uploads = 0
	b.voxelized = nil
	return nil
}

// IsReady reports whether the volume is allocated and holds at least one
// uploaded voxelization.
func (b *Builder) IsReady() bool {
	return !b.disposed && b.texture != nil && !b.texture.Released() && b.uploads > 0
}

func (b *Builder) Resolution() int {
	if b.grid == nil {
		return 0
	}
	return b.grid.Resolution
}

// SetResolution reallocates the grid and volume. Readiness resets until the
// next UpdateVoxelGrid.
func (b *Builder) SetResolution(resolution int) error {
	if b.disposed {
		return gfx.ErrDisposed
	}
	if resolution < 1 {
		return ErrInvalidResolution
	}
	if resolution == b.Resolution() {
		return nil
	}
	return b.allocate(resolution)
}

// UpdateVoxelGrid replaces the grid with a voxelization of every enabled
// mesh whose id is not in excludedMeshIDs and uploads it.
func (b *Builder) UpdateVoxelGrid(excludedMeshIDs []int) (Stats, error) {
	if b.disposed {
		return Stats{}, gfx.ErrDisposed
	}
	start := time.Now()
	stats := Stats{Resolution: b.grid.Resolution}

	var (
		tris     []triangle
		points   []mgl32.Vec3
		included []int
		minB     mgl32.Vec3
		maxB     mgl32.Vec3
		bounded  bool
	)
	for _, m := range b.meshes() {
		if slices.Contains(excludedMeshIDs, m.UniqueID()) {
			stats.Excluded++
			continue
		}
		if !m.Enabled || !m.HasGeometry() {
			continue
		}
		lo, hi, _ := m.WorldAABB()
		if !bounded {
			minB, maxB, bounded = lo, hi, true
		} else {
			for i := 0; i < 3; i++ {
				minB[i] = min(minB[i], lo[i])
				maxB[i] = max(maxB[i], hi[i])
			}
		}
		included = append(included, m.UniqueID())
		if m.IsPointCloud() {
			points = append(points, m.WorldPositions()...)
			continue
		}
		m.ForEachTriangle(func(a, bb, c mgl32.Vec3) {
			tris = append(tris, triangle{a, bb, c})
		})
	}

	g := b.grid
	g.Clear()
	if bounded {
		g.fitBounds(minB, maxB, b.padding)
	} else {
		g.Min, g.Size = mgl32.Vec3{-1, -1, -1}, 2
	}
	stats.Slabs = b.rasterize(g, tris, points)

	if err := b.engine.WriteTexture(b.texture, g.Cells); err != nil {
		return stats, fmt.Errorf("voxel: upload volume: %w", err)
	}
	b.uploads++
	b.builds++
	b.voxelized = included

	stats.Meshes = len(included)
	stats.Triangles = len(tris)
	stats.Points = len(points)
	stats.Occupied = g.Occupied()
	stats.Duration = time.Since(start)
	b.last = stats
	return stats, nil
}

func (b *Builder) meshes() []*scene.Mesh {
	if b.source == nil {
		return nil
	}
	return b.source.Meshes()
}

// rasterize splits z into slabs and fills them in parallel; slabs touch
// disjoint cells. It returns the slab count.
func (b *Builder) rasterize(g *Grid, tris []triangle, points []mgl32.Vec3) int {
	slabs := min(max(b.workers, 1), g.Resolution)
	if slabs == 1 || !b.pooled {
		rasterTriangles(g, tris, 0, g.Resolution)
		rasterPoints(g, points, 0, g.Resolution)
		return 1
	}

	step := (g.Resolution + slabs - 1) / slabs
	var wg sync.WaitGroup
	n := 0
	for z0 := 0; z0 < g.Resolution; z0 += step {
		z1 := min(z0+step, g.Resolution)
		wg.Add(1)
		id := b.taskID
		b.taskID++
		lo, hi := z0, z1
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				rasterTriangles(g, tris, lo, hi)
				rasterPoints(g, points, lo, hi)
				return nil, nil
			},
		})
		n++
	}
	wg.Wait()
	return n
}

func (b *Builder) Grid() *Grid {
	return b.grid
}

func (b *Builder) Texture() gfx.Texture {
	return b.texture
}

// BuildCount returns the number of successful voxelizations.
func (b *Builder) BuildCount() int {
	return b.builds
}

func (b *Builder) LastStats() Stats {
	return b.last
}

// VoxelizedMeshIDs returns the ids rasterized by the last pass.
func (b *Builder) VoxelizedMeshIDs() []int {
	return slices.Clone(b.voxelized)
}

func (b *Builder) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.stopPool()
	if b.texture != nil {
		b.texture.Release()
		b.texture = nil
	}
}

// stopPool ends the pool's worker goroutines; they never exit on their own.
func (b *Builder) stopPool() {
	if !b.pooled {
		return
	}
	b.pool.Stop()
	b.pooled = false
}
