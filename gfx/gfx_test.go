package gfx_test

import (
	"testing"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/gfx/soft"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureDescriptor_ByteSize(t *testing.T) {
	assert.Equal(t, 8, gfx.TextureDescriptor{Width: 2, Height: 2, Depth: 2, Format: gfx.TextureFormatR8Unorm}.ByteSize())
	assert.Equal(t, 64, gfx.TextureDescriptor{Width: 2, Height: 2, Format: gfx.TextureFormatRGBA32Float}.ByteSize())
	assert.False(t, gfx.TextureDescriptor{Width: 2, Height: 2, Depth: 1}.Is3D())
	assert.Equal(t, "r32float", gfx.TextureFormatR32Float.String())
}

func TestThinTexture_DisposeDoesNotRelease(t *testing.T) {
	e := soft.NewEngine(1, 1)
	tex, err := e.CreateTexture(gfx.TextureDescriptor{Label: "t", Width: 1, Height: 1, Format: gfx.TextureFormatR32Float})
	require.NoError(t, err)

	thin := gfx.NewThinTexture(tex)
	assert.True(t, thin.IsReady())
	assert.Equal(t, tex.ID(), thin.ID())

	thin.Dispose()
	thin.Dispose()
	assert.Nil(t, thin.Texture())
	assert.False(t, thin.IsReady())
	assert.False(t, tex.Released())
	assert.Equal(t, 1, e.LiveTextures())

	var none *gfx.ThinTexture
	none.Dispose()
	assert.Equal(t, uint64(0), none.ID())
}

func TestEffectRenderer_Render(t *testing.T) {
	e := soft.NewEngine(1, 1, soft.WithCompileDelay(1), soft.WithProgram("p", func(*soft.FragmentContext) (mgl32.Vec4, bool) {
		return mgl32.Vec4{1, 1, 1, 1}, true
	}))
	fx, err := e.CreateEffect(gfx.EffectDescriptor{Name: "fx", FragmentShader: "p"})
	require.NoError(t, err)

	r := gfx.NewEffectRenderer(e)
	require.NoError(t, r.Render(fx), "compiling effect is skipped")
	assert.Equal(t, 0, r.Draws())
	require.NoError(t, r.Render(nil))

	require.NoError(t, r.Render(fx))
	assert.Equal(t, 1, r.Draws())
	assert.Equal(t, 1, e.Draws())

	r.Dispose()
	assert.True(t, r.Disposed())
	assert.ErrorIs(t, r.Render(fx), gfx.ErrDisposed)
}
