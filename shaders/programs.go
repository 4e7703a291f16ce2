package shaders

import (
	"github.com/gekko3d/iblshadows/gfx/soft"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var unshadowed = mgl32.Vec4{1, 1, 1, 1}

// Programs returns the software counterparts of the WGSL fragment shaders,
// keyed like the WGSL store.
func Programs() map[string]soft.FragmentProgram {
	return map[string]soft.FragmentProgram{
		ShadowCompose: composeFragment,
		ShadowDebug:   debugFragment,
	}
}

// composeFragment writes the visibility term. G-buffer positions carry w = 1
// on geometry and w = 0 on background.
func composeFragment(ctx *soft.FragmentContext) (mgl32.Vec4, bool) {
	pos, ok := ctx.Sample(SamplerWorldPosition)
	if !ok || pos.W() == 0 {
		return unshadowed, true
	}
	normal, ok := ctx.Sample(SamplerWorldNormal)
	if !ok {
		return unshadowed, true
	}

	grid := Grid{
		Min:        ctx.Vector3(UniformVoxelGridMin),
		Size:       ctx.Float(UniformVoxelGridSize),
		Resolution: int(ctx.Int(UniformVoxelResolution)),
	}
	if size := ctx.VolumeSize(SamplerVoxelGrid); size == 0 || size != grid.Resolution {
		return unshadowed, true
	}
	fetch := func(x, y, z int) float32 {
		v, _ := ctx.FetchVolume(SamplerVoxelGrid, x, y, z)
		return v
	}
	vis := Visibility(fetch, grid, pos.Vec3(), normal.Vec3(), ctx.Float(UniformShadowOpacity), ctx.Float(UniformMaxTraceDistance))
	return mgl32.Vec4{vis, vis, vis, 1}, true
}

// debugFragment lays the six G-buffer channels out as a 3x2 mosaic.
func debugFragment(ctx *soft.FragmentContext) (mgl32.Vec4, bool) {
	cx := math32.Min(ctx.UV.X()*3, 2.999)
	cy := math32.Min(ctx.UV.Y()*2, 1.999)
	tile := int(cy)*3 + int(cx)
	local := mgl32.Vec2{cx - math32.Floor(cx), cy - math32.Floor(cy)}

	sampler := DebugSamplers[tile]
	v, ok := ctx.SampleUV(sampler, local)
	if !ok {
		return mgl32.Vec4{0, 0, 0, 1}, true
	}
	switch sampler {
	case SamplerDepth:
		d := clamp01(v.X())
		return mgl32.Vec4{d, d, d, 1}, true
	case SamplerWorldPosition, SamplerLocalPosition:
		return mgl32.Vec4{fract(v.X()), fract(v.Y()), fract(v.Z()), 1}, true
	default:
		return mgl32.Vec4{
			clamp01(v.X()*0.5 + 0.5),
			clamp01(v.Y()*0.5 + 0.5),
			clamp01(v.Z()*0.5 + 0.5),
			1,
		}, true
	}
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

func fract(v float32) float32 {
	return v - math32.Floor(v)
}
