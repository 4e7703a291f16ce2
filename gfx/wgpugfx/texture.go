package wgpugfx

import (
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"

	"github.com/cogentcore/webgpu/wgpu"
)

type Texture struct {
	id       uint64
	desc     gfx.TextureDescriptor
	format   wgpu.TextureFormat
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	engine   *Engine
	released bool
}

func (t *Texture) ID() uint64 {
	return t.id
}

func (t *Texture) Descriptor() gfx.TextureDescriptor {
	return t.desc
}

func (t *Texture) Released() bool {
	return t.released
}

func (t *Texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.view.Release()
	t.tex.Release()
}

func textureFormat(f gfx.TextureFormat) (wgpu.TextureFormat, bool) {
	switch f {
	case gfx.TextureFormatR8Unorm:
		return wgpu.TextureFormatR8Unorm, true
	case gfx.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, true
	case gfx.TextureFormatR32Float:
		return wgpu.TextureFormatR32Float, true
	case gfx.TextureFormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, true
	}
	return wgpu.TextureFormatUndefined, false
}

// textureDimension treats any explicit depth as a volume so a resolution 1
// voxel grid still binds to a texture_3d slot.
func textureDimension(desc gfx.TextureDescriptor) (wgpu.TextureDimension, uint32) {
	if desc.Depth > 0 {
		return wgpu.TextureDimension3D, uint32(desc.Depth)
	}
	return wgpu.TextureDimension2D, 1
}

func textureUsage(desc gfx.TextureDescriptor) wgpu.TextureUsage {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderTarget {
		usage |= wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc
	}
	return usage
}

func (e *Engine) newTexture(desc gfx.TextureDescriptor) (*Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("wgpugfx: texture %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	format, ok := textureFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("wgpugfx: texture %q: %w", desc.Label, gfx.ErrUnsupportedFormat)
	}
	dim, layers := textureDimension(desc)

	tex, err := e.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     dim,
		Format:        format,
		Usage:         textureUsage(desc),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpugfx: create texture %q: %w", desc.Label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpugfx: view texture %q: %w", desc.Label, err)
	}
	return &Texture{id: e.allocID(), desc: desc, format: format, tex: tex, view: view, engine: e}, nil
}

func (e *Engine) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	t, err := e.newTexture(desc)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WriteTexture uploads tightly packed texels covering the whole texture.
func (e *Engine) WriteTexture(tex gfx.Texture, data []byte) error {
	t, ok := tex.(*Texture)
	if !ok || t.engine != e {
		return fmt.Errorf("wgpugfx: texture not created by this engine")
	}
	if t.released {
		return fmt.Errorf("wgpugfx: write %q: %w", t.desc.Label, gfx.ErrDisposed)
	}
	if want := t.desc.ByteSize(); len(data) != want {
		return fmt.Errorf("wgpugfx: write %q: got %d bytes, want %d", t.desc.Label, len(data), want)
	}
	_, layers := textureDimension(t.desc)
	e.queue.WriteTexture(t.tex.AsImageCopy(), data, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(t.desc.Width * t.desc.Format.BytesPerTexel()),
		RowsPerImage: uint32(t.desc.Height),
	}, &wgpu.Extent3D{Width: uint32(t.desc.Width), Height: uint32(t.desc.Height), DepthOrArrayLayers: layers})
	return nil
}

// Framebuffer is a single color attachment render target.
type Framebuffer struct {
	id    uint64
	color *Texture
}

// CreateFramebuffer allocates a color target that BindFramebuffer can draw into.
func (e *Engine) CreateFramebuffer(label string, width, height int, format gfx.TextureFormat) (*Framebuffer, error) {
	tex, err := e.newTexture(gfx.TextureDescriptor{
		Label:        label,
		Width:        width,
		Height:       height,
		Format:       format,
		RenderTarget: true,
	})
	if err != nil {
		return nil, err
	}
	return &Framebuffer{id: e.allocID(), color: tex}, nil
}

func (f *Framebuffer) ID() uint64 {
	return f.id
}

func (f *Framebuffer) Textures() []gfx.Texture {
	return []gfx.Texture{f.color}
}

func (f *Framebuffer) Width() int {
	return f.color.desc.Width
}

func (f *Framebuffer) Height() int {
	return f.color.desc.Height
}

func (f *Framebuffer) Release() {
	f.color.Release()
}

var (
	_ gfx.Texture     = (*Texture)(nil)
	_ gfx.Framebuffer = (*Framebuffer)(nil)
)
