package wgpugfx

import (
	"errors"
	"strings"
	"testing"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		in   gfx.TextureFormat
		want wgpu.TextureFormat
	}{
		{gfx.TextureFormatR8Unorm, wgpu.TextureFormatR8Unorm},
		{gfx.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm},
		{gfx.TextureFormatR32Float, wgpu.TextureFormatR32Float},
		{gfx.TextureFormatRGBA32Float, wgpu.TextureFormatRGBA32Float},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got, ok := textureFormat(tt.in)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	_, ok := textureFormat(gfx.TextureFormat(99))
	assert.False(t, ok)
}

func TestTextureDimension(t *testing.T) {
	dim, layers := textureDimension(gfx.TextureDescriptor{Width: 4, Height: 4})
	assert.Equal(t, wgpu.TextureDimension2D, dim)
	assert.EqualValues(t, 1, layers)

	dim, layers = textureDimension(gfx.TextureDescriptor{Width: 1, Height: 1, Depth: 1})
	assert.Equal(t, wgpu.TextureDimension3D, dim)
	assert.EqualValues(t, 1, layers)

	dim, layers = textureDimension(gfx.TextureDescriptor{Width: 16, Height: 16, Depth: 16})
	assert.Equal(t, wgpu.TextureDimension3D, dim)
	assert.EqualValues(t, 16, layers)
}

func TestTextureUsage(t *testing.T) {
	u := textureUsage(gfx.TextureDescriptor{})
	assert.NotZero(t, u&wgpu.TextureUsageTextureBinding)
	assert.Zero(t, u&wgpu.TextureUsageRenderAttachment)

	u = textureUsage(gfx.TextureDescriptor{RenderTarget: true})
	assert.NotZero(t, u&wgpu.TextureUsageRenderAttachment)
}

func TestBlendState(t *testing.T) {
	assert.Nil(t, blendState(gfx.AlphaDisable))

	combine := blendState(gfx.AlphaCombine)
	require.NotNil(t, combine)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, combine.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, combine.Color.DstFactor)

	multiply := blendState(gfx.AlphaMultiply)
	require.NotNil(t, multiply)
	assert.Equal(t, wgpu.BlendFactorDst, multiply.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorZero, multiply.Color.DstFactor)

	add := blendState(gfx.AlphaAdd)
	require.NotNil(t, add)
	assert.Equal(t, wgpu.BlendFactorOne, add.Color.DstFactor)
}

func TestLayoutEntries_Compose(t *testing.T) {
	desc := shaders.ComposeEffect("compose")
	entries := layoutEntries(desc)
	require.Len(t, entries, len(desc.Samplers)+len(desc.VolumeSamplers)+1)

	for i := range desc.Samplers {
		assert.EqualValues(t, i, entries[i].Binding)
		assert.Equal(t, wgpu.TextureViewDimension2D, entries[i].Texture.ViewDimension)
		assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[i].Texture.SampleType)
	}
	vol := entries[len(desc.Samplers)]
	assert.Equal(t, wgpu.TextureViewDimension3D, vol.Texture.ViewDimension)

	ubo := entries[len(entries)-1]
	assert.Equal(t, wgpu.BufferBindingTypeUniform, ubo.Buffer.Type)
	assert.EqualValues(t, 16*len(desc.Uniforms), ubo.Buffer.MinBindingSize)
}

func TestLayoutEntries_DebugHasNoUniforms(t *testing.T) {
	desc := shaders.DebugEffect("debug")
	entries := layoutEntries(desc)
	assert.Len(t, entries, len(desc.Samplers))
	assert.Zero(t, uniformSize(desc))
}

func TestEffectSource(t *testing.T) {
	src, err := effectSource(shaders.ComposeEffect("compose"))
	require.NoError(t, err)
	assert.Contains(t, src, shaders.VertexEntry)
	assert.Contains(t, src, shaders.FragmentEntry)
	assert.Less(t, strings.Index(src, shaders.VertexEntry), strings.Index(src, shaders.FragmentEntry))

	_, err = effectSource(gfx.EffectDescriptor{Name: "x", VertexShader: "missing", FragmentShader: shaders.ShadowCompose})
	assert.True(t, errors.Is(err, gfx.ErrUnknownShader))
}

func TestUniformPacking(t *testing.T) {
	desc := gfx.EffectDescriptor{Uniforms: []string{"a", "b"}}
	fx := &Effect{desc: desc, uniforms: make([]float32, 8), textures: map[string]gfx.Texture{}}

	fx.SetFloat("b", 0.5)
	fx.SetInt("a", 3)
	fx.SetFloat("missing", 9)
	assert.Equal(t, []float32{3, 0, 0, 0, 0.5, 0, 0, 0}, fx.uniforms)

	assert.Len(t, uniformBytes(fx.uniforms), 32)
	assert.Nil(t, uniformBytes(nil))
}

func TestEngine_DrawFullscreenAcrossFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a GPU adapter")
	}
	e, err := NewHeadless(8, 8)
	if err != nil {
		t.Skipf("no adapter: %v", err)
	}
	defer e.Release()

	fx, err := e.CreateEffect(shaders.DebugEffect("debug"))
	require.NoError(t, err)
	defer fx.Release()

	// Every pass encoder is released with its draw, so long runs stay flat.
	for i := 0; i < 64; i++ {
		require.NoError(t, e.BeginFrame())
		require.NoError(t, e.DrawFullscreen(fx))
		require.NoError(t, e.DrawFullscreen(fx))
		require.NoError(t, e.EndFrame())
	}
	assert.ErrorIs(t, e.DrawFullscreen(fx), errNoFrame)
}
