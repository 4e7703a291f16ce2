package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

var uniqueIDs atomic.Int64

// NextUniqueID hands out process-wide mesh identifiers, starting at 1.
func NextUniqueID() int {
	return int(uniqueIDs.Add(1))
}

// Geometry is object space vertex data. Without indices the positions are a
// point cloud; with indices every three entries form a triangle.
type Geometry struct {
	Positions []mgl32.Vec3
	Indices   []uint32
}

type Mesh struct {
	Name      string
	Geometry  Geometry
	Transform *Transform
	Enabled   bool

	id int

	cachedMatrix mgl32.Mat4
	cachedWorld  []mgl32.Vec3
	cacheValid   bool
}

func NewMesh(name string, geom Geometry) *Mesh {
	return &Mesh{
		Name:      name,
		Geometry:  geom,
		Transform: NewTransform(),
		Enabled:   true,
		id:        NextUniqueID(),
	}
}

// UniqueID is stable for the lifetime of the mesh.
func (m *Mesh) UniqueID() int {
	return m.id
}

func (m *Mesh) HasGeometry() bool {
	return len(m.Geometry.Positions) > 0
}

// IsPointCloud reports whether the mesh has positions but no triangles.
func (m *Mesh) IsPointCloud() bool {
	return m.HasGeometry() && len(m.Geometry.Indices) < 3
}

func (m *Mesh) TriangleCount() int {
	return len(m.Geometry.Indices) / 3
}

// WorldPositions returns the positions transformed to world space. The
// result is cached until the transform matrix changes and must not be
// modified.
func (m *Mesh) WorldPositions() []mgl32.Vec3 {
	o2w := m.Transform.ObjectToWorld()
	if m.cacheValid && o2w == m.cachedMatrix && len(m.cachedWorld) == len(m.Geometry.Positions) {
		return m.cachedWorld
	}
	world := make([]mgl32.Vec3, len(m.Geometry.Positions))
	for i, p := range m.Geometry.Positions {
		world[i] = o2w.Mul4x1(p.Vec4(1)).Vec3()
	}
	m.cachedWorld = world
	m.cachedMatrix = o2w
	m.cacheValid = true
	return world
}

// Invalidate drops cached world positions after Geometry was edited in place.
func (m *Mesh) Invalidate() {
	m.cacheValid = false
}

// WorldAABB returns the world space bounds. ok is false without geometry.
func (m *Mesh) WorldAABB() (minB, maxB mgl32.Vec3, ok bool) {
	world := m.WorldPositions()
	if len(world) == 0 {
		return minB, maxB, false
	}
	minB, maxB = world[0], world[0]
	for _, p := range world[1:] {
		for i := 0; i < 3; i++ {
			minB[i] = min(minB[i], p[i])
			maxB[i] = max(maxB[i], p[i])
		}
	}
	return minB, maxB, true
}

// Triangle returns the world space corners of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	world := m.WorldPositions()
	idx := m.Geometry.Indices[i*3 : i*3+3]
	return world[idx[0]], world[idx[1]], world[idx[2]]
}

// ForEachTriangle visits every world space triangle in index order.
func (m *Mesh) ForEachTriangle(fn func(a, b, c mgl32.Vec3)) {
	world := m.WorldPositions()
	idx := m.Geometry.Indices
	for i := 0; i+2 < len(idx); i += 3 {
		fn(world[idx[i]], world[idx[i+1]], world[idx[i+2]])
	}
}
