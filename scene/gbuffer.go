package scene

import (
	"github.com/gekko3d/iblshadows/prepass"

	"github.com/go-gl/mathgl/mgl32"
)

// CaptureGBuffer ray casts one sample per pixel from the active camera and
// returns channel-interleaved float texels for each requested kind. Geometry
// pixels store positions with w = 1, background pixels are zero except for
// depth, which is 1. Depth is linear distance over the camera far plane.
// The scene is static, so velocity is always zero.
func (s *Scene) CaptureGBuffer(width, height int, kinds []prepass.TextureType) map[prepass.TextureType][]float32 {
	out := make(map[prepass.TextureType][]float32, len(kinds))
	for _, kind := range kinds {
		out[kind] = make([]float32, width*height*kind.Format().Channels())
	}
	if s.camera == nil || width <= 0 || height <= 0 {
		return out
	}

	view := s.camera.ViewMatrix()
	aspect := float32(width) / float32(height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u := (float32(x) + 0.5) / float32(width)
			v := (float32(y) + 0.5) / float32(height)
			origin, dir := s.camera.Ray(u, v, aspect)
			hit, ok := s.Raycast(origin, dir)
			pixel := y*width + x
			for _, kind := range kinds {
				writeChannel(out[kind], kind, pixel, hit, ok, view, s.camera.Far)
			}
		}
	}
	return out
}

func writeChannel(dst []float32, kind prepass.TextureType, pixel int, hit Hit, ok bool, view mgl32.Mat4, far float32) {
	if kind.Format().Channels() == 1 {
		if kind == prepass.TextureDepth {
			d := float32(1)
			if ok && far > 0 {
				d = min(hit.Distance/far, 1)
			}
			dst[pixel] = d
		}
		return
	}
	if !ok {
		return
	}

	var v mgl32.Vec4
	switch kind {
	case prepass.TexturePosition:
		v = hit.Point.Vec4(1)
	case prepass.TextureLocalPosition:
		v = hit.Mesh.Transform.WorldToObject().Mul4x1(hit.Point.Vec4(1)).Vec3().Vec4(1)
	case prepass.TextureWorldNormal:
		v = hit.Normal.Vec4(0)
	case prepass.TextureNormal:
		v = view.Mul4x1(hit.Normal.Vec4(0)).Vec3().Normalize().Vec4(0)
	case prepass.TextureColor, prepass.TextureIrradiance, prepass.TextureAlbedoSqrt, prepass.TextureReflectivity:
		v = mgl32.Vec4{0.8, 0.8, 0.8, 1}
	default:
		return
	}
	copy(dst[pixel*4:pixel*4+4], v[:])
}
