package shaders

import "github.com/gekko3d/iblshadows/gfx"

// Sampler and uniform names shared by the WGSL sources and the software programs.
const (
	SamplerDepth         = "depthSampler"
	SamplerWorldNormal   = "worldNormalSampler"
	SamplerWorldPosition = "worldPositionSampler"
	SamplerNormal        = "normalSampler"
	SamplerLocalPosition = "localPositionSampler"
	SamplerVelocity      = "velocitySampler"
	SamplerVoxelGrid     = "voxelGridSampler"

	UniformVoxelGridMin     = "voxelGridMin"
	UniformVoxelGridSize    = "voxelGridSize"
	UniformVoxelResolution  = "voxelResolution"
	UniformShadowOpacity    = "shadowOpacity"
	UniformMaxTraceDistance = "maxTraceDistance"
)

// ComposeEffect describes the shadow compose pass. Binding order must match
// ibl_shadow_compose.wgsl.
func ComposeEffect(name string) gfx.EffectDescriptor {
	return gfx.EffectDescriptor{
		Name:           name,
		VertexShader:   Postprocess,
		FragmentShader: ShadowCompose,
		Samplers: []string{
			SamplerDepth,
			SamplerWorldNormal,
			SamplerWorldPosition,
			SamplerNormal,
			SamplerLocalPosition,
			SamplerVelocity,
		},
		VolumeSamplers: []string{SamplerVoxelGrid},
		Uniforms: []string{
			UniformVoxelGridMin,
			UniformVoxelGridSize,
			UniformVoxelResolution,
			UniformShadowOpacity,
			UniformMaxTraceDistance,
		},
		Sampling: gfx.SamplingNearest,
	}
}

// DebugSamplers is the tile order of the G-buffer debug mosaic, row major,
// three tiles per row.
var DebugSamplers = []string{
	SamplerNormal,
	SamplerWorldNormal,
	SamplerWorldPosition,
	SamplerLocalPosition,
	SamplerDepth,
	SamplerVelocity,
}

// DebugEffect describes the G-buffer debug overlay. Binding order must match
// ibl_shadow_debug.wgsl.
func DebugEffect(name string) gfx.EffectDescriptor {
	samplers := make([]string, len(DebugSamplers))
	copy(samplers, DebugSamplers)
	return gfx.EffectDescriptor{
		Name:           name,
		VertexShader:   Postprocess,
		FragmentShader: ShadowDebug,
		Samplers:       samplers,
		Sampling:       gfx.SamplingBilinear,
	}
}
