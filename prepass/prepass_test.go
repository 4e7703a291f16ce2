package prepass

import (
	"errors"
	"testing"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/gfx/soft"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectConfiguration_IsAValue(t *testing.T) {
	cfg := NewEffectConfiguration("fx", true, TextureDepth, TextureNormal, TextureDepth)
	assert.Equal(t, []TextureType{TextureDepth, TextureNormal}, cfg.TexturesRequired())

	req := cfg.TexturesRequired()
	req[0] = TextureColor
	assert.Equal(t, TextureDepth, cfg.TexturesRequired()[0])

	off := cfg.WithEnabled(false)
	assert.True(t, cfg.Enabled())
	assert.False(t, off.Enabled())
	assert.False(t, cfg.Equal(off))
	assert.True(t, cfg.Equal(NewEffectConfiguration("fx", true, TextureDepth, TextureNormal)))
	assert.True(t, cfg.Requires(TextureNormal))
	assert.False(t, cfg.Requires(TextureVelocity))
}

func TestTextureType_String(t *testing.T) {
	assert.Equal(t, "worldNormal", TextureWorldNormal.String())
	assert.Equal(t, "TextureType(42)", TextureType(42).String())
	assert.Equal(t, gfx.TextureFormatR32Float, TextureDepth.Format())
	assert.Equal(t, gfx.TextureFormatRGBA32Float, TextureVelocity.Format())
}

func TestNewMultiTargetRenderer_RequiresMRT(t *testing.T) {
	_, err := NewMultiTargetRenderer(soft.NewEngine(1, 1, soft.WithCaps(gfx.Caps{Texture3D: true})))
	assert.ErrorIs(t, err, ErrNoMultipleRenderTargets)
}

func TestMultiTargetRenderer_Layout(t *testing.T) {
	r, err := NewMultiTargetRenderer(soft.NewEngine(1, 1))
	require.NoError(t, err)

	a := r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureDepth, TextureNormal))
	b := r.AddEffectConfiguration(NewEffectConfiguration("b", true, TextureNormal, TextureVelocity))
	r.AddEffectConfiguration(NewEffectConfiguration("off", false, TextureColor))

	assert.True(t, a.Valid())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []TextureType{TextureDepth, TextureNormal, TextureVelocity}, r.Layout())
	assert.Equal(t, 1, r.GetIndex(TextureNormal))
	assert.Equal(t, NoIndex, r.GetIndex(TextureColor))

	again := r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureColor))
	assert.Equal(t, a.ID, again.ID)
	assert.Len(t, r.Configurations(), 3)
}

func TestMultiTargetRenderer_MaxDrawBuffers(t *testing.T) {
	r, err := NewMultiTargetRenderer(soft.NewEngine(1, 1, soft.WithCaps(gfx.Caps{MultipleRenderTargets: true, MaxDrawBuffers: 2})))
	require.NoError(t, err)
	r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureDepth, TextureNormal, TextureVelocity))
	assert.Equal(t, []TextureType{TextureDepth, TextureNormal}, r.Layout())
}

func TestMultiTargetRenderer_Allocation(t *testing.T) {
	e := soft.NewEngine(4, 4)
	r, err := NewMultiTargetRenderer(e)
	require.NoError(t, err)
	r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureDepth, TextureWorldNormal))

	assert.Nil(t, r.RenderTarget())
	assert.ErrorIs(t, r.Upload(TextureDepth, nil), ErrNotAllocated)

	require.NoError(t, r.Resize(4, 4))
	first := r.RenderTarget()
	require.NotNil(t, first)
	assert.Len(t, first.Textures(), 2)
	assert.Equal(t, 2, e.LiveTextures())

	require.NoError(t, r.Resize(4, 4))
	assert.Equal(t, first.ID(), r.RenderTarget().ID(), "same size keeps identity")

	require.NoError(t, r.Resize(8, 2))
	assert.NotEqual(t, first.ID(), r.RenderTarget().ID())
	assert.Equal(t, 2, e.LiveTextures(), "old textures released")

	r.AddEffectConfiguration(NewEffectConfiguration("b", true, TextureVelocity))
	assert.Len(t, r.RenderTarget().Textures(), 3, "layout change reallocates")

	r.Dispose()
	assert.Nil(t, r.RenderTarget())
	assert.Equal(t, 0, e.LiveTextures())
}

// flakyEngine fails texture creation while broken is set.
type flakyEngine struct {
	*soft.Engine
	broken bool
}

var errDeviceLost = errors.New("device lost")

func (e *flakyEngine) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	if e.broken {
		return nil, errDeviceLost
	}
	return e.Engine.CreateTexture(desc)
}

func TestMultiTargetRenderer_ReallocationError(t *testing.T) {
	e := &flakyEngine{Engine: soft.NewEngine(4, 4)}
	r, err := NewMultiTargetRenderer(e)
	require.NoError(t, err)
	r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureDepth))
	require.NoError(t, r.Resize(4, 4))
	assert.NoError(t, r.Err())

	e.broken = true
	r.AddEffectConfiguration(NewEffectConfiguration("b", true, TextureNormal))
	assert.ErrorIs(t, r.Err(), errDeviceLost)
	assert.Nil(t, r.RenderTarget())
	assert.Equal(t, 0, e.LiveTextures(), "partial allocation released")

	e.broken = false
	require.NoError(t, r.Resize(4, 4), "the next resize retries")
	assert.NoError(t, r.Err())
	assert.Len(t, r.RenderTarget().Textures(), 2)
}

func TestMultiTargetRenderer_Upload(t *testing.T) {
	e := soft.NewEngine(2, 1)
	r, err := NewMultiTargetRenderer(e)
	require.NoError(t, err)
	r.AddEffectConfiguration(NewEffectConfiguration("a", true, TextureDepth, TexturePosition))
	require.NoError(t, r.Allocate(2, 1))

	require.NoError(t, r.Upload(TextureDepth, []float32{0.25, 0.75}))
	require.NoError(t, r.Upload(TexturePosition, []float32{1, 2, 3, 1, 0, 0, 0, 0}))
	assert.Error(t, r.Upload(TexturePosition, []float32{1}))
	assert.ErrorIs(t, r.Upload(TextureColor, nil), ErrNotInLayout)

	depth := r.Texture(TextureDepth).(*soft.Texture)
	assert.Equal(t, float32(0.75), depth.Texel(1, 0, 0).X())
	pos := r.Texture(TexturePosition).(*soft.Texture)
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 1}, pos.Texel(0, 0, 0))
}
