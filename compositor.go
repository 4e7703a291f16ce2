package iblshadows

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/prepass"
	"github.com/gekko3d/iblshadows/shaders"
	"github.com/gekko3d/iblshadows/voxel"
)

// compositor owns the shadow compose effect and draws it over the frame.
type compositor struct {
	engine   gfx.Engine
	effect   gfx.Effect
	renderer *gfx.EffectRenderer
	output   gfx.Framebuffer

	opacity     float32
	maxDistance float32
}

func newCompositor(engine gfx.Engine, name string, opts options) (*compositor, error) {
	effect, err := engine.CreateEffect(shaders.ComposeEffect(name))
	if err != nil {
		return nil, fmt.Errorf("compose effect: %w", err)
	}
	return &compositor{
		engine:      engine,
		effect:      effect,
		renderer:    gfx.NewEffectRenderer(engine),
		output:      opts.output,
		opacity:     opts.opacity,
		maxDistance: opts.maxDistance,
	}, nil
}

// compose draws the shadow term. Without a pre-pass renderer it does nothing.
func (c *compositor) compose(pr prepass.Renderer, builder *voxel.Builder, cache *gbufferCache) error {
	if pr == nil {
		return nil
	}
	if c.output != nil {
		c.engine.BindFramebuffer(c.output)
	} else {
		c.engine.RestoreDefaultFramebuffer()
	}
	c.engine.SetAlphaMode(gfx.AlphaDisable)

	c.effect.SetTexture(shaders.SamplerVoxelGrid, builder.Texture())
	for _, ch := range gbufferChannels {
		c.effect.SetTexture(ch.sampler, cache.reference(ch.kind).Texture())
	}

	grid := builder.Grid()
	c.effect.SetVector3(shaders.UniformVoxelGridMin, grid.Min)
	c.effect.SetFloat(shaders.UniformVoxelGridSize, grid.Size)
	c.effect.SetInt(shaders.UniformVoxelResolution, int32(grid.Resolution))
	c.effect.SetFloat(shaders.UniformShadowOpacity, c.opacity)
	c.effect.SetFloat(shaders.UniformMaxTraceDistance, c.maxDistance)

	return c.renderer.Render(c.effect)
}

func (c *compositor) draws() int {
	return c.renderer.Draws()
}

func (c *compositor) dispose() {
	c.renderer.Dispose()
	if c.effect != nil {
		c.effect.Release()
		c.effect = nil
	}
}
