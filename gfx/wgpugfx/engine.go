// Package wgpugfx implements gfx.Engine on WebGPU.
//
// Frames are bracketed by BeginFrame and EndFrame; every DrawFullscreen in
// between records a render pass into the frame's command encoder.
package wgpugfx

import (
	"errors"
	"fmt"

	"github.com/gekko3d/iblshadows/gfx"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errNoFrame = errors.New("wgpugfx: draw outside BeginFrame/EndFrame")

// maxColorAttachments is the WebGPU default limit.
const maxColorAttachments = 8

type target struct {
	view   *wgpu.TextureView
	format wgpu.TextureFormat
}

type frame struct {
	surfaceTex *wgpu.Texture
	view       *wgpu.TextureView
	encoder    *wgpu.CommandEncoder
	bindGroups []*wgpu.BindGroup
}

type Engine struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	config   *wgpu.SurfaceConfiguration

	// offscreen replaces the surface in headless mode.
	offscreen *Texture

	width, height int
	nextID        uint64
	frame         *frame
	current       *target
	alpha         gfx.AlphaMode

	fallback2D *Texture
	fallback3D *Texture
}

// NewFromWindow opens a device presenting to the window's surface.
func NewFromWindow(window *glfw.Window) (*Engine, error) {
	e := &Engine{instance: wgpu.CreateInstance(nil)}
	e.surface = e.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	if err := e.open(&wgpu.RequestAdapterOptions{
		CompatibleSurface: e.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	}); err != nil {
		return nil, err
	}

	width, height := window.GetFramebufferSize()
	caps := e.surface.GetCapabilities(e.adapter)
	e.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	e.surface.Configure(e.adapter, e.device, e.config)
	e.width, e.height = width, height
	return e, e.createFallbacks()
}

// NewHeadless opens a device rendering into an RGBA8 offscreen target.
func NewHeadless(width, height int) (*Engine, error) {
	e := &Engine{instance: wgpu.CreateInstance(nil)}
	if err := e.open(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	}); err != nil {
		return nil, err
	}
	if err := e.createFallbacks(); err != nil {
		return nil, err
	}
	if err := e.Resize(width, height); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(opts *wgpu.RequestAdapterOptions) error {
	adapter, err := e.instance.RequestAdapter(opts)
	if err != nil {
		return fmt.Errorf("wgpugfx: request adapter: %w", err)
	}
	e.adapter = adapter
	e.device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("wgpugfx: request device: %w", err)
	}
	e.queue = e.device.GetQueue()
	return nil
}

// createFallbacks allocates the 1x1 textures bound to unbound samplers.
func (e *Engine) createFallbacks() error {
	var err error
	e.fallback2D, err = e.newTexture(gfx.TextureDescriptor{
		Label: "fallback 2d", Width: 1, Height: 1, Format: gfx.TextureFormatRGBA32Float,
	})
	if err != nil {
		return err
	}
	e.fallback3D, err = e.newTexture(gfx.TextureDescriptor{
		Label: "fallback 3d", Width: 1, Height: 1, Depth: 1, Format: gfx.TextureFormatR8Unorm,
	})
	return err
}

func (e *Engine) Device() *wgpu.Device {
	return e.device
}

func (e *Engine) Caps() gfx.Caps {
	return gfx.Caps{
		MultipleRenderTargets: true,
		MaxDrawBuffers:        maxColorAttachments,
		Texture3D:             true,
	}
}

func (e *Engine) RenderWidth() int {
	return e.width
}

func (e *Engine) RenderHeight() int {
	return e.height
}

// Resize reconfigures the surface, or reallocates the offscreen target in
// headless mode. Zero sizes are ignored.
func (e *Engine) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	e.width, e.height = width, height
	if e.surface != nil {
		e.config.Width = uint32(width)
		e.config.Height = uint32(height)
		e.surface.Configure(e.adapter, e.device, e.config)
		return nil
	}
	if e.offscreen != nil {
		e.offscreen.Release()
	}
	tex, err := e.newTexture(gfx.TextureDescriptor{
		Label:        "offscreen",
		Width:        width,
		Height:       height,
		Format:       gfx.TextureFormatRGBA8Unorm,
		RenderTarget: true,
	})
	if err != nil {
		return err
	}
	e.offscreen = tex
	return nil
}

// BeginFrame acquires the frame target and opens the command encoder.
func (e *Engine) BeginFrame() error {
	if e.frame != nil {
		return fmt.Errorf("wgpugfx: frame already begun")
	}
	f := &frame{}
	if e.surface != nil {
		tex, err := e.surface.GetCurrentTexture()
		if err != nil {
			return fmt.Errorf("wgpugfx: acquire surface texture: %w", err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return fmt.Errorf("wgpugfx: surface view: %w", err)
		}
		f.surfaceTex, f.view = tex, view
	} else {
		f.view = e.offscreen.view
	}

	enc, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		f.release()
		return fmt.Errorf("wgpugfx: command encoder: %w", err)
	}
	f.encoder = enc
	e.frame = f
	e.RestoreDefaultFramebuffer()
	return nil
}

// EndFrame submits the recorded passes and presents.
func (e *Engine) EndFrame() error {
	f := e.frame
	if f == nil {
		return errNoFrame
	}
	e.frame = nil
	e.current = nil
	defer f.release()

	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpugfx: finish encoder: %w", err)
	}
	e.queue.Submit(cmd)
	if e.surface != nil {
		e.surface.Present()
	}
	return nil
}

func (f *frame) release() {
	for _, bg := range f.bindGroups {
		bg.Release()
	}
	f.bindGroups = nil
	if f.encoder != nil {
		f.encoder.Release()
	}
	if f.surfaceTex != nil {
		f.view.Release()
		f.surfaceTex.Release()
	}
}

func (e *Engine) allocID() uint64 {
	e.nextID++
	return e.nextID
}

func (e *Engine) RestoreDefaultFramebuffer() {
	if e.frame == nil {
		e.current = nil
		return
	}
	format := wgpu.TextureFormatRGBA8Unorm
	if e.config != nil {
		format = e.config.Format
	}
	e.current = &target{view: e.frame.view, format: format}
}

// BindFramebuffer targets the first live color texture of fb.
func (e *Engine) BindFramebuffer(fb gfx.Framebuffer) {
	if fb == nil {
		e.RestoreDefaultFramebuffer()
		return
	}
	for _, tex := range fb.Textures() {
		t, ok := tex.(*Texture)
		if ok && t.engine == e && !t.released && t.desc.RenderTarget {
			e.current = &target{view: t.view, format: t.format}
			return
		}
	}
	e.RestoreDefaultFramebuffer()
}

func (e *Engine) SetAlphaMode(mode gfx.AlphaMode) {
	e.alpha = mode
}

// DrawFullscreen records one full-screen triangle with the effect's current
// bindings. Uniforms are uploaded at record time, so an effect drawn twice in
// one frame renders both passes with the last values.
func (e *Engine) DrawFullscreen(effect gfx.Effect) error {
	fx, ok := effect.(*Effect)
	if !ok || fx.engine != e {
		return fmt.Errorf("wgpugfx: effect not created by this engine")
	}
	if fx.released {
		return fmt.Errorf("wgpugfx: draw %q: %w", fx.desc.Name, gfx.ErrDisposed)
	}
	if e.frame == nil || e.current == nil {
		return errNoFrame
	}

	pipeline, err := fx.pipeline(e.current.format, e.alpha)
	if err != nil {
		return err
	}
	bg, err := fx.bindGroup()
	if err != nil {
		return err
	}
	e.frame.bindGroups = append(e.frame.bindGroups, bg)

	pass := e.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: fx.desc.Name,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    e.current.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer pass.Release()
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpugfx: draw %q: %w", fx.desc.Name, err)
	}
	return nil
}

// Release frees the fallbacks, the offscreen target and the device.
func (e *Engine) Release() {
	if e.frame != nil {
		e.frame.release()
		e.frame = nil
	}
	for _, t := range []*Texture{e.fallback2D, e.fallback3D, e.offscreen} {
		if t != nil {
			t.Release()
		}
	}
	if e.device != nil {
		e.device.Release()
	}
	if e.adapter != nil {
		e.adapter.Release()
	}
	if e.surface != nil {
		e.surface.Release()
	}
	if e.instance != nil {
		e.instance.Release()
	}
}

var _ gfx.Engine = (*Engine)(nil)
