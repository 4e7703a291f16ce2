package soft

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gekko3d/iblshadows/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture stores texels as float32, channel-interleaved, x fastest then y then z.
type Texture struct {
	id       uint64
	desc     gfx.TextureDescriptor
	depth    int
	data     []float32
	engine   *Engine
	tracked  bool
	released bool
	uploads  int
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
	t.data = nil
	if t.tracked {
		t.engine.untrack(t.id)
	}
}

// Uploads returns how many WriteTexture calls reached this texture.
func (t *Texture) Uploads() int {
	return t.uploads
}

func (t *Texture) index(x, y, z int) int {
	return ((z*t.desc.Height+y)*t.desc.Width + x) * t.desc.Format.Channels()
}

func (t *Texture) inside(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < t.desc.Width && y < t.desc.Height && z < t.depth
}

// Texel returns the texel at (x, y, z). Single-channel formats expand to
// (r, 0, 0, 1); reads outside the texture or after release return zero.
func (t *Texture) Texel(x, y, z int) mgl32.Vec4 {
	if t.released || !t.inside(x, y, z) {
		return mgl32.Vec4{}
	}
	i := t.index(x, y, z)
	if t.desc.Format.Channels() == 1 {
		return mgl32.Vec4{t.data[i], 0, 0, 1}
	}
	return mgl32.Vec4{t.data[i], t.data[i+1], t.data[i+2], t.data[i+3]}
}

// SetTexel writes one texel. Single-channel formats keep only the x component.
func (t *Texture) SetTexel(x, y, z int, v mgl32.Vec4) {
	if t.released || !t.inside(x, y, z) {
		return
	}
	i := t.index(x, y, z)
	if t.desc.Format.Channels() == 1 {
		t.data[i] = v.X()
		return
	}
	t.data[i], t.data[i+1], t.data[i+2], t.data[i+3] = v.X(), v.Y(), v.Z(), v.W()
}

// Fill sets every texel to v.
func (t *Texture) Fill(v mgl32.Vec4) {
	for z := 0; z < t.depth; z++ {
		for y := 0; y < t.desc.Height; y++ {
			for x := 0; x < t.desc.Width; x++ {
				t.SetTexel(x, y, z, v)
			}
		}
	}
}

func (t *Texture) upload(data []byte) error {
	if len(data) != t.desc.ByteSize() {
		return fmt.Errorf("soft: write %q: got %d bytes, want %d", t.desc.Label, len(data), t.desc.ByteSize())
	}
	switch t.desc.Format {
	case gfx.TextureFormatR8Unorm, gfx.TextureFormatRGBA8Unorm:
		for i, b := range data {
			t.data[i] = float32(b) / 255
		}
	case gfx.TextureFormatR32Float, gfx.TextureFormatRGBA32Float:
		for i := range t.data {
			t.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	default:
		return fmt.Errorf("soft: write %q: %w", t.desc.Label, gfx.ErrUnsupportedFormat)
	}
	t.uploads++
	return nil
}

// sample2D reads a 2D texture at normalized coordinates.
func (t *Texture) sample2D(u, v float32, mode gfx.SamplingMode) mgl32.Vec4 {
	w, h := float32(t.desc.Width), float32(t.desc.Height)
	if mode != gfx.SamplingBilinear {
		x := clampInt(int(u*w), 0, t.desc.Width-1)
		y := clampInt(int(v*h), 0, t.desc.Height-1)
		return t.Texel(x, y, 0)
	}

	fx := u*w - 0.5
	fy := v*h - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	ax := fx - float32(x0)
	ay := fy - float32(y0)

	at := func(x, y int) mgl32.Vec4 {
		return t.Texel(clampInt(x, 0, t.desc.Width-1), clampInt(y, 0, t.desc.Height-1), 0)
	}
	top := at(x0, y0).Mul(1 - ax).Add(at(x0+1, y0).Mul(ax))
	bottom := at(x0, y0+1).Mul(1 - ax).Add(at(x0+1, y0+1).Mul(ax))
	return top.Mul(1 - ay).Add(bottom.Mul(ay))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Framebuffer is an off-screen color target created by Engine.CreateFramebuffer.
type Framebuffer struct {
	id    uint64
	color *Texture
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

// Color returns the color attachment.
func (f *Framebuffer) Color() *Texture {
	return f.color
}

func (f *Framebuffer) Release() {
	f.color.Release()
}

var (
	_ gfx.Texture     = (*Texture)(nil)
	_ gfx.Framebuffer = (*Framebuffer)(nil)
)
