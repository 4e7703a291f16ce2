// Package soft is a CPU implementation of gfx.Engine. Textures hold float32
// texels and full-screen effects run Go fragment programs, which makes every
// draw observable from tests and headless tools.
package soft

import (
	"fmt"
	"sync"

	"github.com/gekko3d/iblshadows/gfx"

	"github.com/go-gl/mathgl/mgl32"
)

// FragmentProgram shades one pixel. Returning false discards the fragment.
type FragmentProgram func(ctx *FragmentContext) (mgl32.Vec4, bool)

type EngineOption func(*Engine)

// WithCaps overrides the reported device capabilities.
func WithCaps(caps gfx.Caps) EngineOption {
	return func(e *Engine) {
		e.caps = caps
	}
}

// WithProgram registers a fragment program under a shader name.
func WithProgram(name string, program FragmentProgram) EngineOption {
	return func(e *Engine) {
		e.programs[name] = program
	}
}

// WithPrograms registers every program of the map.
func WithPrograms(programs map[string]FragmentProgram) EngineOption {
	return func(e *Engine) {
		for name, p := range programs {
			e.programs[name] = p
		}
	}
}

// WithCompileDelay makes effects report not ready for the first n IsReady
// polls, emulating asynchronous shader compilation.
func WithCompileDelay(n int) EngineOption {
	return func(e *Engine) {
		e.compileDelay = n
	}
}

type Engine struct {
	mu sync.Mutex

	caps         gfx.Caps
	width        int
	height       int
	programs     map[string]FragmentProgram
	compileDelay int

	nextID uint64
	live   map[uint64]string
	kinds  map[uint64]resourceKind

	defaultFB *Texture
	current   *Texture
	alpha     gfx.AlphaMode

	draws   int
	drawLog []string
}

type resourceKind uint8

const (
	kindTexture resourceKind = iota
	kindEffect
)

func NewEngine(width, height int, options ...EngineOption) *Engine {
	e := &Engine{
		caps: gfx.Caps{
			MultipleRenderTargets: true,
			MaxDrawBuffers:        8,
			Texture3D:             true,
		},
		width:    width,
		height:   height,
		programs: make(map[string]FragmentProgram),
		live:     make(map[uint64]string),
		kinds:    make(map[uint64]resourceKind),
	}
	for _, option := range options {
		option(e)
	}
	e.defaultFB = e.newTexture(gfx.TextureDescriptor{
		Label:        "default framebuffer",
		Width:        width,
		Height:       height,
		Format:       gfx.TextureFormatRGBA32Float,
		RenderTarget: true,
	}, false)
	e.current = e.defaultFB
	return e
}

func (e *Engine) Caps() gfx.Caps {
	return e.caps
}

func (e *Engine) RenderWidth() int {
	return e.width
}

func (e *Engine) RenderHeight() int {
	return e.height
}

// Resize recreates the default framebuffer at the new size.
func (e *Engine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.width, e.height = width, height
	rebind := e.current == e.defaultFB
	e.defaultFB = e.newTexture(gfx.TextureDescriptor{
		Label:        "default framebuffer",
		Width:        width,
		Height:       height,
		Format:       gfx.TextureFormatRGBA32Float,
		RenderTarget: true,
	}, false)
	if rebind {
		e.current = e.defaultFB
	}
}

func (e *Engine) allocID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return e.nextID
}

func (e *Engine) track(id uint64, label string, kind resourceKind) {
	e.mu.Lock()
	e.live[id] = label
	e.kinds[id] = kind
	e.mu.Unlock()
}

func (e *Engine) untrack(id uint64) {
	e.mu.Lock()
	delete(e.live, id)
	delete(e.kinds, id)
	e.mu.Unlock()
}

func (e *Engine) newTexture(desc gfx.TextureDescriptor, tracked bool) *Texture {
	depth := desc.Depth
	if depth < 1 {
		depth = 1
	}
	t := &Texture{
		id:      e.allocID(),
		desc:    desc,
		depth:   depth,
		data:    make([]float32, desc.Width*desc.Height*depth*desc.Format.Channels()),
		engine:  e,
		tracked: tracked,
	}
	if tracked {
		e.track(t.id, desc.Label, kindTexture)
	}
	return t
}

func (e *Engine) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("soft: texture %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Is3D() && !e.caps.Texture3D {
		return nil, fmt.Errorf("soft: texture %q: 3D textures unsupported: %w", desc.Label, gfx.ErrUnsupportedFormat)
	}
	if desc.Format.BytesPerTexel() == 0 {
		return nil, fmt.Errorf("soft: texture %q: %w", desc.Label, gfx.ErrUnsupportedFormat)
	}
	return e.newTexture(desc, true), nil
}

// CreateFramebuffer allocates an off-screen RGBA float color target.
func (e *Engine) CreateFramebuffer(label string, width, height int) (*Framebuffer, error) {
	tex, err := e.CreateTexture(gfx.TextureDescriptor{
		Label:        label,
		Width:        width,
		Height:       height,
		Format:       gfx.TextureFormatRGBA32Float,
		RenderTarget: true,
	})
	if err != nil {
		return nil, err
	}
	return &Framebuffer{id: e.allocID(), color: tex.(*Texture)}, nil
}

func (e *Engine) WriteTexture(tex gfx.Texture, data []byte) error {
	t, ok := tex.(*Texture)
	if !ok || t.engine != e {
		return fmt.Errorf("soft: texture not created by this engine")
	}
	if t.released {
		return fmt.Errorf("soft: write %q: %w", t.desc.Label, gfx.ErrDisposed)
	}
	return t.upload(data)
}

func (e *Engine) CreateEffect(desc gfx.EffectDescriptor) (gfx.Effect, error) {
	program, ok := e.programs[desc.FragmentShader]
	if !ok {
		return nil, fmt.Errorf("soft: effect %q fragment %q: %w", desc.Name, desc.FragmentShader, gfx.ErrUnknownShader)
	}
	fx := &Effect{
		id:       e.allocID(),
		desc:     desc,
		program:  program,
		engine:   e,
		textures: make(map[string]gfx.Texture),
		uniforms: make(map[string]mgl32.Vec4),
		delay:    e.compileDelay,
	}
	e.track(fx.id, desc.Name, kindEffect)
	return fx, nil
}

func (e *Engine) RestoreDefaultFramebuffer() {
	e.current = e.defaultFB
}

func (e *Engine) BindFramebuffer(fb gfx.Framebuffer) {
	if fb == nil {
		e.current = e.defaultFB
		return
	}
	for _, tex := range fb.Textures() {
		if t, ok := tex.(*Texture); ok && t.engine == e && !t.released {
			e.current = t
			return
		}
	}
	e.current = e.defaultFB
}

func (e *Engine) SetAlphaMode(mode gfx.AlphaMode) {
	e.alpha = mode
}

// AlphaMode returns the blend mode the next draw will use.
func (e *Engine) AlphaMode() gfx.AlphaMode {
	return e.alpha
}

func (e *Engine) DrawFullscreen(effect gfx.Effect) error {
	fx, ok := effect.(*Effect)
	if !ok || fx.engine != e {
		return fmt.Errorf("soft: effect not created by this engine")
	}
	if fx.released {
		return fmt.Errorf("soft: draw %q: %w", fx.desc.Name, gfx.ErrDisposed)
	}
	target := e.current
	if target == nil || target.released {
		target = e.defaultFB
	}

	w, h := target.desc.Width, target.desc.Height
	ctx := &FragmentContext{Width: w, Height: h, effect: fx}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ctx.X, ctx.Y = x, y
			ctx.UV = mgl32.Vec2{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)}
			src, keep := fx.program(ctx)
			if !keep {
				continue
			}
			dst := target.Texel(x, y, 0)
			target.SetTexel(x, y, 0, blend(e.alpha, src, dst))
		}
	}

	e.draws++
	e.drawLog = append(e.drawLog, fx.desc.Name)
	return nil
}

func blend(mode gfx.AlphaMode, src, dst mgl32.Vec4) mgl32.Vec4 {
	switch mode {
	case gfx.AlphaCombine:
		a := src.W()
		return mgl32.Vec4{
			src.X()*a + dst.X()*(1-a),
			src.Y()*a + dst.Y()*(1-a),
			src.Z()*a + dst.Z()*(1-a),
			a + dst.W()*(1-a),
		}
	case gfx.AlphaMultiply:
		return mgl32.Vec4{dst.X() * src.X(), dst.Y() * src.Y(), dst.Z() * src.Z(), dst.W()}
	case gfx.AlphaAdd:
		a := src.W()
		return mgl32.Vec4{dst.X() + src.X()*a, dst.Y() + src.Y()*a, dst.Z() + src.Z()*a, dst.W()}
	default:
		return src
	}
}

// DefaultFramebuffer returns the color texture the engine presents.
func (e *Engine) DefaultFramebuffer() *Texture {
	return e.defaultFB
}

// Pixel reads the default framebuffer.
func (e *Engine) Pixel(x, y int) mgl32.Vec4 {
	return e.defaultFB.Texel(x, y, 0)
}

// Clear fills the default framebuffer with a color.
func (e *Engine) Clear(color mgl32.Vec4) {
	e.defaultFB.Fill(color)
}

// Draws returns the number of full-screen draws issued.
func (e *Engine) Draws() int {
	return e.draws
}

// DrawLog returns the effect names of all draws in issue order.
func (e *Engine) DrawLog() []string {
	out := make([]string, len(e.drawLog))
	copy(out, e.drawLog)
	return out
}

// LiveResources counts textures and effects that were created but not released.
func (e *Engine) LiveResources() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// LiveEffects counts effects that were created but not released.
func (e *Engine) LiveEffects() int {
	return e.countKind(kindEffect)
}

// LiveTextures counts textures that were created but not released.
func (e *Engine) LiveTextures() int {
	return e.countKind(kindTexture)
}

func (e *Engine) countKind(kind resourceKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, k := range e.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveLabels returns the labels of all live resources.
func (e *Engine) LiveLabels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.live))
	for _, l := range e.live {
		out = append(out, l)
	}
	return out
}

var _ gfx.Engine = (*Engine)(nil)
