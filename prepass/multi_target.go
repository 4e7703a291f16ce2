package prepass

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gekko3d/iblshadows/gfx"

	"golang.org/x/exp/slices"
)

var (
	ErrNoMultipleRenderTargets = errors.New("prepass: device lacks multiple render targets")
	ErrNotAllocated            = errors.New("prepass: render target not allocated")
	ErrNotInLayout             = errors.New("prepass: texture type not in layout")
)

var targetIDs atomic.Uint64

type multiTarget struct {
	id       uint64
	textures []gfx.Texture
	width    int
	height   int
}

func (t *multiTarget) ID() uint64 {
	return t.id
}

func (t *multiTarget) Textures() []gfx.Texture {
	return t.textures
}

func (t *multiTarget) Width() int {
	return t.width
}

func (t *multiTarget) Height() int {
	return t.height
}

func (t *multiTarget) release() {
	for _, tex := range t.textures {
		tex.Release()
	}
	t.textures = nil
}

// MultiTargetRenderer owns one G-buffer texture per channel of its layout.
// The layout is the ordered union of the channels required by every enabled
// registered configuration, truncated to the device's draw buffer limit.
type MultiTargetRenderer struct {
	engine  gfx.Engine
	handles []Handle
	layout  []TextureType
	target  *multiTarget
	nextID  int
	maxMRT  int
	// allocErr is the last failed allocation, cleared by the next success.
	allocErr error
}

func NewMultiTargetRenderer(engine gfx.Engine) (*MultiTargetRenderer, error) {
	caps := engine.Caps()
	if !caps.MultipleRenderTargets {
		return nil, ErrNoMultipleRenderTargets
	}
	return &MultiTargetRenderer{engine: engine, maxMRT: caps.MaxDrawBuffers}, nil
}

// AddEffectConfiguration registers a copy of cfg. A configuration whose name
// is already registered returns the existing handle unchanged.
func (r *MultiTargetRenderer) AddEffectConfiguration(cfg EffectConfiguration) Handle {
	for _, h := range r.handles {
		if h.Configuration.Name() == cfg.Name() {
			return h
		}
	}
	r.nextID++
	h := Handle{ID: r.nextID, Configuration: cfg.WithEnabled(cfg.Enabled())}
	r.handles = append(r.handles, h)

	old := r.layout
	r.rebuildLayout()
	if r.target != nil && !slices.Equal(old, r.layout) {
		// A failed reallocation leaves the renderer unallocated; Err reports
		// it and the next Resize retries.
		r.Allocate(r.target.width, r.target.height)
	}
	return h
}

func (r *MultiTargetRenderer) rebuildLayout() {
	r.layout = r.layout[:0:0]
	for _, h := range r.handles {
		if !h.Configuration.Enabled() {
			continue
		}
		for _, kind := range h.Configuration.TexturesRequired() {
			if r.maxMRT > 0 && len(r.layout) >= r.maxMRT {
				return
			}
			if !slices.Contains(r.layout, kind) {
				r.layout = append(r.layout, kind)
			}
		}
	}
}

// Configurations returns the registered handles in registration order.
func (r *MultiTargetRenderer) Configurations() []Handle {
	return slices.Clone(r.handles)
}

func (r *MultiTargetRenderer) Layout() []TextureType {
	return slices.Clone(r.layout)
}

func (r *MultiTargetRenderer) GetIndex(kind TextureType) int {
	return slices.Index(r.layout, kind)
}

func (r *MultiTargetRenderer) RenderTarget() RenderTarget {
	if r.target == nil {
		return nil
	}
	return r.target
}

// Allocate (re)creates every layout texture at the given size. The target
// gets a fresh identity even when the size is unchanged.
func (r *MultiTargetRenderer) Allocate(width, height int) error {
	if r.target != nil {
		r.target.release()
		r.target = nil
	}
	if width <= 0 || height <= 0 {
		r.allocErr = fmt.Errorf("prepass: invalid target size %dx%d", width, height)
		return r.allocErr
	}
	target := &multiTarget{id: targetIDs.Add(1), width: width, height: height}
	for _, kind := range r.layout {
		tex, err := r.engine.CreateTexture(gfx.TextureDescriptor{
			Label:        "prepass " + kind.String(),
			Width:        width,
			Height:       height,
			Format:       kind.Format(),
			RenderTarget: true,
		})
		if err != nil {
			target.release()
			r.allocErr = fmt.Errorf("prepass: allocate %s: %w", kind, err)
			return r.allocErr
		}
		target.textures = append(target.textures, tex)
	}
	r.target = target
	r.allocErr = nil
	return nil
}

// Err returns the error of the last failed allocation, including the
// reallocation triggered by a layout change, or nil.
func (r *MultiTargetRenderer) Err() error {
	return r.allocErr
}

// Resize reallocates only when the size differs or nothing is allocated.
func (r *MultiTargetRenderer) Resize(width, height int) error {
	if r.target != nil && r.target.width == width && r.target.height == height {
		return nil
	}
	return r.Allocate(width, height)
}

// Texture returns the texture backing kind, or nil.
func (r *MultiTargetRenderer) Texture(kind TextureType) gfx.Texture {
	i := r.GetIndex(kind)
	if r.target == nil || i < 0 || i >= len(r.target.textures) {
		return nil
	}
	return r.target.textures[i]
}

// Upload writes float texels, channel interleaved, into the texture of kind.
func (r *MultiTargetRenderer) Upload(kind TextureType, texels []float32) error {
	if r.target == nil {
		return ErrNotAllocated
	}
	tex := r.Texture(kind)
	if tex == nil {
		return fmt.Errorf("prepass: upload %s: %w", kind, ErrNotInLayout)
	}
	want := r.target.width * r.target.height * kind.Format().Channels()
	if len(texels) != want {
		return fmt.Errorf("prepass: upload %s: got %d floats, want %d", kind, len(texels), want)
	}
	buf := make([]byte, len(texels)*4)
	for i, v := range texels {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := r.engine.WriteTexture(tex, buf); err != nil {
		return fmt.Errorf("prepass: upload %s: %w", kind, err)
	}
	return nil
}

// Dispose releases the render target. The registry survives.
func (r *MultiTargetRenderer) Dispose() {
	if r.target != nil {
		r.target.release()
		r.target = nil
	}
}

var _ Renderer = (*MultiTargetRenderer)(nil)
