package shaders

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ShadowSamples is the number of hemisphere directions traced per pixel.
	ShadowSamples = 8
	// Ray origins are pushed off the surface by this many cells along the normal.
	surfaceOffset = 1.5
	maxTraceSteps = 512
)

// VolumeFetch returns the opacity in [0, 1] of voxel cell (x, y, z).
type VolumeFetch func(x, y, z int) float32

// Grid locates a cubic voxel volume in world space.
type Grid struct {
	Min        mgl32.Vec3
	Size       float32
	Resolution int
}

func (g Grid) cellSize() float32 {
	return g.Size / float32(g.Resolution)
}

// HemisphereDirection returns sample direction i in the tangent frame of
// normal n. Samples alternate between 30 and 60 degrees of elevation.
func HemisphereDirection(n mgl32.Vec3, i int) mgl32.Vec3 {
	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(n.Y()) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	t := up.Cross(n).Normalize()
	b := n.Cross(t)

	phi := float32(i) * 2 * math32.Pi / ShadowSamples
	elevation := math32.Pi / 6
	if i%2 == 1 {
		elevation = math32.Pi / 3
	}
	ce, se := math32.Cos(elevation), math32.Sin(elevation)
	d := t.Mul(math32.Cos(phi) * ce).Add(b.Mul(math32.Sin(phi) * ce)).Add(n.Mul(se))
	return d.Normalize()
}

// Visibility marches ShadowSamples rays from pos through the grid and
// returns 1 - opacity * hits / ShadowSamples. A zero normal or an empty grid
// returns 1.
func Visibility(fetch VolumeFetch, grid Grid, pos, normal mgl32.Vec3, opacity, maxDistance float32) float32 {
	if grid.Resolution < 1 || grid.Size <= 0 || normal.Len() == 0 {
		return 1
	}
	n := normal.Normalize()
	cell := grid.cellSize()
	if maxDistance <= 0 {
		maxDistance = grid.Size * math32.Sqrt(3)
	}
	origin := pos.Add(n.Mul(cell * surfaceOffset))

	hits := 0
	for i := 0; i < ShadowSamples; i++ {
		if march(fetch, grid, origin, HemisphereDirection(n, i), cell, maxDistance) {
			hits++
		}
	}
	return 1 - opacity*float32(hits)/ShadowSamples
}

func march(fetch VolumeFetch, grid Grid, origin, dir mgl32.Vec3, step, maxDistance float32) bool {
	for s := 1; s <= maxTraceSteps; s++ {
		t := float32(s) * step
		if t > maxDistance {
			return false
		}
		p := origin.Add(dir.Mul(t)).Sub(grid.Min)
		x := int(math32.Floor(p.X() / step))
		y := int(math32.Floor(p.Y() / step))
		z := int(math32.Floor(p.Z() / step))
		if x < 0 || y < 0 || z < 0 || x >= grid.Resolution || y >= grid.Resolution || z >= grid.Resolution {
			continue
		}
		if fetch(x, y, z) > 0.5 {
			return true
		}
	}
	return false
}
