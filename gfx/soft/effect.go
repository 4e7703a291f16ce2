package soft

import (
	"github.com/gekko3d/iblshadows/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

type Effect struct {
	id       uint64
	desc     gfx.EffectDescriptor
	program  FragmentProgram
	engine   *Engine
	textures map[string]gfx.Texture
	uniforms map[string]mgl32.Vec4
	delay    int
	polls    int
	released bool
}

func (fx *Effect) Name() string {
	return fx.desc.Name
}

// Descriptor returns the descriptor the effect was created from.
func (fx *Effect) Descriptor() gfx.EffectDescriptor {
	return fx.desc
}

// IsReady reports false for the engine's configured compile delay, counted in polls.
func (fx *Effect) IsReady() bool {
	if fx.released {
		return false
	}
	if fx.polls < fx.delay {
		fx.polls++
		return false
	}
	return true
}

func (fx *Effect) SetTexture(sampler string, tex gfx.Texture) {
	if tex == nil {
		delete(fx.textures, sampler)
		return
	}
	fx.textures[sampler] = tex
}

// Bound returns the texture currently bound to a sampler.
func (fx *Effect) Bound(sampler string) (gfx.Texture, bool) {
	tex, ok := fx.textures[sampler]
	return tex, ok
}

func (fx *Effect) SetFloat(name string, v float32) {
	fx.uniforms[name] = mgl32.Vec4{v}
}

func (fx *Effect) SetInt(name string, v int32) {
	fx.uniforms[name] = mgl32.Vec4{float32(v)}
}

func (fx *Effect) SetVector3(name string, v mgl32.Vec3) {
	fx.uniforms[name] = v.Vec4(0)
}

func (fx *Effect) Release() {
	if fx.released {
		return
	}
	fx.released = true
	fx.textures = map[string]gfx.Texture{}
	fx.engine.untrack(fx.id)
}

// FragmentContext gives a fragment program its pixel and the effect bindings.
type FragmentContext struct {
	X, Y          int
	Width, Height int
	UV            mgl32.Vec2

	effect *Effect
}

func (c *FragmentContext) texture(name string) (*Texture, bool) {
	tex, ok := c.effect.textures[name]
	if !ok {
		return nil, false
	}
	t, ok := tex.(*Texture)
	if !ok || t.released {
		return nil, false
	}
	return t, true
}

// Sample reads a 2D sampler at the fragment's UV. The second result is
// false when nothing live is bound.
func (c *FragmentContext) Sample(name string) (mgl32.Vec4, bool) {
	return c.SampleUV(name, c.UV)
}

// SampleUV reads a 2D sampler at arbitrary normalized coordinates.
func (c *FragmentContext) SampleUV(name string, uv mgl32.Vec2) (mgl32.Vec4, bool) {
	t, ok := c.texture(name)
	if !ok || t.desc.Is3D() {
		return mgl32.Vec4{}, false
	}
	return t.sample2D(uv.X(), uv.Y(), c.effect.desc.Sampling), true
}

// FetchVolume loads the first channel of a 3D sampler at integer cell
// coordinates. Out-of-range cells read as zero.
func (c *FragmentContext) FetchVolume(name string, x, y, z int) (float32, bool) {
	t, ok := c.texture(name)
	if !ok {
		return 0, false
	}
	return t.Texel(x, y, z).X(), true
}

// VolumeSize returns the edge length in cells of a bound cubic volume.
func (c *FragmentContext) VolumeSize(name string) int {
	t, ok := c.texture(name)
	if !ok {
		return 0
	}
	return t.desc.Width
}

func (c *FragmentContext) Float(name string) float32 {
	return c.effect.uniforms[name].X()
}

func (c *FragmentContext) Int(name string) int32 {
	return int32(c.effect.uniforms[name].X())
}

func (c *FragmentContext) Vector3(name string) mgl32.Vec3 {
	return c.effect.uniforms[name].Vec3()
}

var _ gfx.Effect = (*Effect)(nil)
