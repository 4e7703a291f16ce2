package iblshadows

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/prepass"
	"github.com/gekko3d/iblshadows/shaders"
)

// debugSamplerKinds maps the mosaic samplers to pre-pass channels.
var debugSamplerKinds = map[string]prepass.TextureType{
	shaders.SamplerNormal:        prepass.TextureNormal,
	shaders.SamplerWorldNormal:   prepass.TextureWorldNormal,
	shaders.SamplerWorldPosition: prepass.TexturePosition,
	shaders.SamplerLocalPosition: prepass.TextureLocalPosition,
	shaders.SamplerDepth:         prepass.TextureDepth,
	shaders.SamplerVelocity:      prepass.TextureVelocity,
}

// debugOverlay draws the raw G-buffer channels. The effect exists exactly
// while the overlay is enabled.
type debugOverlay struct {
	engine   gfx.Engine
	name     string
	effect   gfx.Effect
	renderer *gfx.EffectRenderer
}

func newDebugOverlay(engine gfx.Engine, name string) *debugOverlay {
	return &debugOverlay{engine: engine, name: name}
}

func (d *debugOverlay) enabled() bool {
	return d.effect != nil
}

func (d *debugOverlay) enable() error {
	if d.effect != nil {
		return nil
	}
	effect, err := d.engine.CreateEffect(shaders.DebugEffect(d.name))
	if err != nil {
		return fmt.Errorf("debug effect: %w", err)
	}
	d.effect = effect
	d.renderer = gfx.NewEffectRenderer(d.engine)
	return nil
}

func (d *debugOverlay) disable() {
	if d.effect == nil {
		return
	}
	d.effect.Release()
	d.effect = nil
	d.renderer.Dispose()
	d.renderer = nil
}

// draw rebinds every mosaic sampler from the current pre-pass slots and
// draws on top of the frame. Channels without a slot keep their previous
// binding.
func (d *debugOverlay) draw(pr prepass.Renderer) error {
	if d.effect == nil || pr == nil {
		return nil
	}
	rt := pr.RenderTarget()
	if rt == nil {
		return nil
	}
	textures := rt.Textures()
	for _, sampler := range shaders.DebugSamplers {
		idx := pr.GetIndex(debugSamplerKinds[sampler])
		if idx < 0 || idx >= len(textures) || textures[idx] == nil {
			continue
		}
		d.effect.SetTexture(sampler, textures[idx])
	}
	d.engine.SetAlphaMode(gfx.AlphaDisable)
	return d.renderer.Render(d.effect)
}
