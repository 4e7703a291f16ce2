package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// NewBox builds an axis aligned box of the given edge length centered on the origin.
func NewBox(name string, size float32) *Mesh {
	h := size / 2
	positions := []mgl32.Vec3{
		{-h, -h, -h}, {h, -h, -h}, {h, h, -h}, {-h, h, -h},
		{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h},
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2, // -z
		4, 5, 6, 4, 6, 7, // +z
		0, 1, 5, 0, 5, 4, // -y
		3, 7, 6, 3, 6, 2, // +y
		0, 4, 7, 0, 7, 3, // -x
		1, 2, 6, 1, 6, 5, // +x
	}
	return NewMesh(name, Geometry{Positions: positions, Indices: indices})
}

// NewGround builds a width x depth quad in the y = 0 plane facing +y.
func NewGround(name string, width, depth float32) *Mesh {
	w, d := width/2, depth/2
	positions := []mgl32.Vec3{{-w, 0, -d}, {w, 0, -d}, {w, 0, d}, {-w, 0, d}}
	return NewMesh(name, Geometry{Positions: positions, Indices: []uint32{0, 2, 1, 0, 3, 2}})
}

// NewSphere builds a UV sphere. segments is clamped to at least 3.
func NewSphere(name string, radius float32, segments int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	rings := segments
	var positions []mgl32.Vec3
	for r := 0; r <= rings; r++ {
		theta := float32(r) * math32.Pi / float32(rings)
		st, ct := math32.Sin(theta), math32.Cos(theta)
		for s := 0; s <= segments; s++ {
			phi := float32(s) * 2 * math32.Pi / float32(segments)
			positions = append(positions, mgl32.Vec3{
				radius * st * math32.Cos(phi),
				radius * ct,
				radius * st * math32.Sin(phi),
			})
		}
	}
	var indices []uint32
	stride := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			indices = append(indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return NewMesh(name, Geometry{Positions: positions, Indices: indices})
}

// NewPointCloud wraps raw positions as an index-less mesh.
func NewPointCloud(name string, points []mgl32.Vec3) *Mesh {
	return NewMesh(name, Geometry{Positions: points})
}
