// Package voxel rasterizes scene meshes into a cubic occupancy grid and keeps
// it resident in a 3D texture.
package voxel

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	Empty uint8 = 0
	Solid uint8 = 255
)

// Grid is a resolution^3 opacity volume, x fastest then y then z, covering
// the world space cube [Min, Min + Size].
type Grid struct {
	Resolution int
	Min        mgl32.Vec3
	Size       float32
	Cells      []uint8
}

// NewGrid allocates an empty grid over [-1, 1]^3.
func NewGrid(resolution int) *Grid {
	return &Grid{
		Resolution: resolution,
		Min:        mgl32.Vec3{-1, -1, -1},
		Size:       2,
		Cells:      make([]uint8, resolution*resolution*resolution),
	}
}

func (g *Grid) Index(x, y, z int) int {
	return (z*g.Resolution+y)*g.Resolution + x
}

func (g *Grid) Inside(x, y, z int) bool {
	r := g.Resolution
	return x >= 0 && y >= 0 && z >= 0 && x < r && y < r && z < r
}

// At returns Empty outside the grid.
func (g *Grid) At(x, y, z int) uint8 {
	if !g.Inside(x, y, z) {
		return Empty
	}
	return g.Cells[g.Index(x, y, z)]
}

func (g *Grid) Set(x, y, z int, v uint8) {
	if g.Inside(x, y, z) {
		g.Cells[g.Index(x, y, z)] = v
	}
}

func (g *Grid) CellSize() float32 {
	return g.Size / float32(g.Resolution)
}

// CellOf returns the cell containing world point p. Points on the max faces
// belong to the last cell.
func (g *Grid) CellOf(p mgl32.Vec3) (x, y, z int, ok bool) {
	cs := g.CellSize()
	local := p.Sub(g.Min)
	var c [3]int
	for i := 0; i < 3; i++ {
		if local[i] < 0 || local[i] > g.Size {
			return 0, 0, 0, false
		}
		c[i] = min(int(math32.Floor(local[i]/cs)), g.Resolution-1)
	}
	return c[0], c[1], c[2], true
}

// CellCenter returns the world space center of a cell.
func (g *Grid) CellCenter(x, y, z int) mgl32.Vec3 {
	cs := g.CellSize()
	return g.Min.Add(mgl32.Vec3{
		(float32(x) + 0.5) * cs,
		(float32(y) + 0.5) * cs,
		(float32(z) + 0.5) * cs,
	})
}

func (g *Grid) Clear() {
	clear(g.Cells)
}

// Occupied counts non-empty cells.
func (g *Grid) Occupied() int {
	n := 0
	for _, c := range g.Cells {
		if c != Empty {
			n++
		}
	}
	return n
}

// OccupiedIn counts non-empty cells whose center lies inside [minB, maxB].
func (g *Grid) OccupiedIn(minB, maxB mgl32.Vec3) int {
	n := 0
	for z := 0; z < g.Resolution; z++ {
		for y := 0; y < g.Resolution; y++ {
			for x := 0; x < g.Resolution; x++ {
				if g.Cells[g.Index(x, y, z)] == Empty {
					continue
				}
				c := g.CellCenter(x, y, z)
				if c.X() >= minB.X() && c.Y() >= minB.Y() && c.Z() >= minB.Z() &&
					c.X() <= maxB.X() && c.Y() <= maxB.Y() && c.Z() <= maxB.Z() {
					n++
				}
			}
		}
	}
	return n
}

// fitBounds makes the grid a cube around [minB, maxB] with padding empty
// cells on every side. Degenerate extents get a unit edge.
func (g *Grid) fitBounds(minB, maxB mgl32.Vec3, padding int) {
	center := minB.Add(maxB).Mul(0.5)
	extent := maxB.Sub(minB)
	edge := math32.Max(extent.X(), math32.Max(extent.Y(), extent.Z()))
	if edge < 1e-4 {
		edge = 1
	}
	inner := g.Resolution - 2*padding
	if inner < 1 {
		inner = g.Resolution
	}
	cs := edge / float32(inner)
	g.Size = cs * float32(g.Resolution)
	half := g.Size / 2
	g.Min = center.Sub(mgl32.Vec3{half, half, half})
}
