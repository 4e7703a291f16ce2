package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Hit is the closest triangle intersection of a ray.
type Hit struct {
	Mesh     *Mesh
	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

// Raycast intersects enabled meshes with triangle geometry. Point clouds are
// not hit.
func (s *Scene) Raycast(origin, dir mgl32.Vec3) (Hit, bool) {
	best := Hit{Distance: math32.MaxFloat32}
	found := false
	for _, m := range s.meshes {
		if !m.Enabled || m.IsPointCloud() || !m.HasGeometry() {
			continue
		}
		minB, maxB, _ := m.WorldAABB()
		if !rayAABB(origin, dir, minB, maxB, best.Distance) {
			continue
		}
		m.ForEachTriangle(func(a, b, c mgl32.Vec3) {
			t, ok := rayTriangle(origin, dir, a, b, c)
			if !ok || t >= best.Distance {
				return
			}
			n := b.Sub(a).Cross(c.Sub(a)).Normalize()
			if n.Dot(dir) > 0 {
				n = n.Mul(-1)
			}
			best = Hit{Mesh: m, Distance: t, Point: origin.Add(dir.Mul(t)), Normal: n}
			found = true
		})
	}
	return best, found
}

// rayTriangle is Moller-Trumbore, two sided.
func rayTriangle(origin, dir, a, b, c mgl32.Vec3) (float32, bool) {
	const eps = 1e-7
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	return t, t > eps
}

func rayAABB(origin, dir, minB, maxB mgl32.Vec3, maxT float32) bool {
	tmin, tmax := float32(0), maxT
	for i := 0; i < 3; i++ {
		if math32.Abs(dir[i]) < 1e-9 {
			if origin[i] < minB[i] || origin[i] > maxB[i] {
				return false
			}
			continue
		}
		inv := 1 / dir[i]
		t0 := (minB[i] - origin[i]) * inv
		t1 := (maxB[i] - origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin = math32.Max(tmin, t0)
		tmax = math32.Min(tmax, t1)
		if tmax < tmin {
			return false
		}
	}
	return true
}
