// Package gfx declares the graphics-device surface the shadow renderer talks
// to. Backends live in gfx/soft (CPU reference) and gfx/wgpugfx (WebGPU).
package gfx

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrDisposed          = errors.New("gfx: resource disposed")
	ErrUnknownShader     = errors.New("gfx: shader not found in store")
	ErrUnsupportedFormat = errors.New("gfx: unsupported texture format")
)

type TextureFormat uint32

const (
	TextureFormatR8Unorm TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatR32Float
	TextureFormatRGBA32Float
)

// Channels returns the number of components stored per texel.
func (f TextureFormat) Channels() int {
	switch f {
	case TextureFormatR8Unorm, TextureFormatR32Float:
		return 1
	default:
		return 4
	}
}

// BytesPerTexel returns the upload stride of one texel.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	case TextureFormatRGBA8Unorm, TextureFormatR32Float:
		return 4
	case TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "r8unorm"
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatR32Float:
		return "r32float"
	case TextureFormatRGBA32Float:
		return "rgba32float"
	}
	return "unknown"
}

// TextureDescriptor describes a 2D texture (Depth <= 1) or a 3D volume.
type TextureDescriptor struct {
	Label        string
	Width        int
	Height       int
	Depth        int
	Format       TextureFormat
	RenderTarget bool
}

// Is3D reports whether the descriptor describes a volume texture.
func (d TextureDescriptor) Is3D() bool {
	return d.Depth > 1
}

// ByteSize returns the number of bytes a full upload of the texture takes.
func (d TextureDescriptor) ByteSize() int {
	depth := d.Depth
	if depth < 1 {
		depth = 1
	}
	return d.Width * d.Height * depth * d.Format.BytesPerTexel()
}

// Texture is a GPU resident texture owned by whoever created it.
type Texture interface {
	ID() uint64
	Descriptor() TextureDescriptor
	Released() bool
	Release()
}

// Framebuffer is a render target the engine can bind instead of the default one.
type Framebuffer interface {
	ID() uint64
	Textures() []Texture
	Width() int
	Height() int
}

type AlphaMode uint32

const (
	AlphaDisable AlphaMode = iota
	AlphaCombine
	AlphaMultiply
	AlphaAdd
)

type SamplingMode uint32

const (
	SamplingNearest SamplingMode = iota
	SamplingBilinear
)

// EffectDescriptor names the shaders of a full-screen effect and the inputs
// it reads. Binding order is Samplers, then VolumeSamplers, then the uniform
// block laid out as one vec4 per entry of Uniforms.
type EffectDescriptor struct {
	Name           string
	VertexShader   string
	FragmentShader string
	Samplers       []string
	VolumeSamplers []string
	Uniforms       []string
	Sampling       SamplingMode
}

// Effect is a compiled full-screen program with its current bindings.
type Effect interface {
	Name() string
	IsReady() bool
	SetTexture(sampler string, tex Texture)
	SetFloat(name string, v float32)
	SetInt(name string, v int32)
	SetVector3(name string, v mgl32.Vec3)
	Release()
}

type Caps struct {
	MultipleRenderTargets bool
	MaxDrawBuffers        int
	Texture3D             bool
}

// Engine is the device abstraction consumed by the renderer.
type Engine interface {
	Caps() Caps
	RenderWidth() int
	RenderHeight() int

	CreateTexture(desc TextureDescriptor) (Texture, error)
	WriteTexture(tex Texture, data []byte) error
	CreateEffect(desc EffectDescriptor) (Effect, error)

	RestoreDefaultFramebuffer()
	BindFramebuffer(fb Framebuffer)
	SetAlphaMode(mode AlphaMode)
	DrawFullscreen(effect Effect) error
}
