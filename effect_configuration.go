package iblshadows

import (
	"github.com/gekko3d/iblshadows/prepass"
	"github.com/gekko3d/iblshadows/shaders"
)

// EffectName is the name the renderer registers with the pre-pass.
const EffectName = "iblShadows"

// gbufferChannels pairs each required pre-pass channel with the compose
// sampler that reads it, in registration order.
var gbufferChannels = []struct {
	kind    prepass.TextureType
	sampler string
}{
	{prepass.TextureDepth, shaders.SamplerDepth},
	{prepass.TextureWorldNormal, shaders.SamplerWorldNormal},
	{prepass.TextureNormal, shaders.SamplerNormal},
	{prepass.TextureVelocity, shaders.SamplerVelocity},
	{prepass.TexturePosition, shaders.SamplerWorldPosition},
	{prepass.TextureLocalPosition, shaders.SamplerLocalPosition},
}

func newEffectConfiguration() prepass.EffectConfiguration {
	kinds := make([]prepass.TextureType, len(gbufferChannels))
	for i, ch := range gbufferChannels {
		kinds[i] = ch.kind
	}
	return prepass.NewEffectConfiguration(EffectName, true, kinds...)
}

