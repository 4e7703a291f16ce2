package voxel

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type triangle struct {
	a, b, c mgl32.Vec3
}

// rasterTriangles marks every cell with z in [z0, z1) that a triangle
// overlaps. Cells outside the slab are never written.
func rasterTriangles(g *Grid, tris []triangle, z0, z1 int) {
	cs := g.CellSize()
	// Slightly enlarged boxes keep triangles lying on cell faces conservative.
	half := cs * 0.5 * (1 + 1e-4)
	halfV := mgl32.Vec3{half, half, half}
	last := g.Resolution - 1

	for _, t := range tris {
		lo, hi := triBounds(t)
		x0, y0, zMin := cellRange(g, lo, last)
		x1, y1, zMax := cellRange(g, hi, last)
		zMin = max(zMin, z0)
		zMax = min(zMax, z1-1)
		for z := zMin; z <= zMax; z++ {
			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					idx := g.Index(x, y, z)
					if g.Cells[idx] == Solid {
						continue
					}
					if triBoxOverlap(g.CellCenter(x, y, z), halfV, t.a, t.b, t.c) {
						g.Cells[idx] = Solid
					}
				}
			}
		}
	}
}

// rasterPoints marks the cell containing each point, z in [z0, z1).
func rasterPoints(g *Grid, points []mgl32.Vec3, z0, z1 int) {
	for _, p := range points {
		x, y, z, ok := g.CellOf(p)
		if !ok || z < z0 || z >= z1 {
			continue
		}
		g.Cells[g.Index(x, y, z)] = Solid
	}
}

func cellRange(g *Grid, p mgl32.Vec3, last int) (x, y, z int) {
	cs := g.CellSize()
	local := p.Sub(g.Min)
	clampCell := func(v float32) int {
		return max(0, min(int(math32.Floor(v/cs)), last))
	}
	return clampCell(local.X()), clampCell(local.Y()), clampCell(local.Z())
}

func triBounds(t triangle) (lo, hi mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		lo[i] = math32.Min(t.a[i], math32.Min(t.b[i], t.c[i]))
		hi[i] = math32.Max(t.a[i], math32.Max(t.b[i], t.c[i]))
	}
	return lo, hi
}

// triBoxOverlap is the separating axis test of Akenine-Moller: the three box
// normals, the triangle normal and the nine edge cross products.
func triBoxOverlap(center, half, a, b, c mgl32.Vec3) bool {
	v := [3]mgl32.Vec3{a.Sub(center), b.Sub(center), c.Sub(center)}

	for i := 0; i < 3; i++ {
		lo := math32.Min(v[0][i], math32.Min(v[1][i], v[2][i]))
		hi := math32.Max(v[0][i], math32.Max(v[1][i], v[2][i]))
		if lo > half[i] || hi < -half[i] {
			return false
		}
	}

	edges := [3]mgl32.Vec3{v[1].Sub(v[0]), v[2].Sub(v[1]), v[0].Sub(v[2])}
	axes := [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, e := range edges {
		for _, u := range axes {
			if !overlapOnAxis(u.Cross(e), v, half) {
				return false
			}
		}
	}

	return planeBoxOverlap(edges[0].Cross(edges[1]), v[0], half)
}

func overlapOnAxis(axis mgl32.Vec3, v [3]mgl32.Vec3, half mgl32.Vec3) bool {
	if axis.LenSqr() < 1e-20 {
		return true
	}
	p0, p1, p2 := axis.Dot(v[0]), axis.Dot(v[1]), axis.Dot(v[2])
	r := half.X()*math32.Abs(axis.X()) + half.Y()*math32.Abs(axis.Y()) + half.Z()*math32.Abs(axis.Z())
	lo := math32.Min(p0, math32.Min(p1, p2))
	hi := math32.Max(p0, math32.Max(p1, p2))
	return lo <= r && hi >= -r
}

func planeBoxOverlap(n, v0, half mgl32.Vec3) bool {
	var vmin, vmax mgl32.Vec3
	for q := 0; q < 3; q++ {
		if n[q] > 0 {
			vmin[q] = -half[q] - v0[q]
			vmax[q] = half[q] - v0[q]
		} else {
			vmin[q] = half[q] - v0[q]
			vmax[q] = -half[q] - v0[q]
		}
	}
	if n.Dot(vmin) > 0 {
		return false
	}
	return n.Dot(vmax) >= 0
}
