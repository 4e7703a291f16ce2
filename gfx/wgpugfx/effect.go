package wgpugfx

import (
	"fmt"
	"unsafe"

	"github.com/gekko3d/iblshadows/gfx"
	"github.com/gekko3d/iblshadows/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type pipelineKey struct {
	format wgpu.TextureFormat
	alpha  gfx.AlphaMode
}

// Effect is a full-screen render pipeline. Pipelines are built lazily per
// target format and blend mode.
type Effect struct {
	id     uint64
	desc   gfx.EffectDescriptor
	engine *Engine

	module         *wgpu.ShaderModule
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[pipelineKey]*wgpu.RenderPipeline

	textures map[string]gfx.Texture
	uniforms []float32
	buffer   *wgpu.Buffer
	released bool
}

// effectSource joins the vertex and fragment WGSL into one module.
func effectSource(desc gfx.EffectDescriptor) (string, error) {
	vs, ok := shaders.WGSL(desc.VertexShader)
	if !ok {
		return "", fmt.Errorf("wgpugfx: effect %q vertex %q: %w", desc.Name, desc.VertexShader, gfx.ErrUnknownShader)
	}
	fs, ok := shaders.WGSL(desc.FragmentShader)
	if !ok {
		return "", fmt.Errorf("wgpugfx: effect %q fragment %q: %w", desc.Name, desc.FragmentShader, gfx.ErrUnknownShader)
	}
	return vs + "\n" + fs, nil
}

// layoutEntries follows the binding order of gfx.EffectDescriptor. Textures
// are read with textureLoad, so no samplers are bound.
func layoutEntries(desc gfx.EffectDescriptor) []wgpu.BindGroupLayoutEntry {
	var entries []wgpu.BindGroupLayoutEntry
	binding := uint32(0)
	for range desc.Samplers {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
		binding++
	}
	for range desc.VolumeSamplers {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension3D,
			},
		})
		binding++
	}
	if len(desc.Uniforms) > 0 {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: uniformSize(desc),
			},
		})
	}
	return entries
}

func uniformBytes(u []float32) []byte {
	if len(u) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&u[0])), len(u)*4)
}

// uniformSize is one vec4<f32> per uniform.
func uniformSize(desc gfx.EffectDescriptor) uint64 {
	return uint64(len(desc.Uniforms) * 16)
}

func (e *Engine) CreateEffect(desc gfx.EffectDescriptor) (gfx.Effect, error) {
	src, err := effectSource(desc)
	if err != nil {
		return nil, err
	}
	fx := &Effect{
		id:        e.allocID(),
		desc:      desc,
		engine:    e,
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		textures:  make(map[string]gfx.Texture),
		uniforms:  make([]float32, len(desc.Uniforms)*4),
	}

	fx.module, err = e.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpugfx: compile %q: %w", desc.Name, err)
	}
	fx.layout, err = e.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Name,
		Entries: layoutEntries(desc),
	})
	if err != nil {
		fx.Release()
		return nil, fmt.Errorf("wgpugfx: layout %q: %w", desc.Name, err)
	}
	fx.pipelineLayout, err = e.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{fx.layout},
	})
	if err != nil {
		fx.Release()
		return nil, fmt.Errorf("wgpugfx: pipeline layout %q: %w", desc.Name, err)
	}
	if len(desc.Uniforms) > 0 {
		fx.buffer, err = e.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Name + " params",
			Size:  uniformSize(desc),
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			fx.Release()
			return nil, fmt.Errorf("wgpugfx: params %q: %w", desc.Name, err)
		}
	}
	return fx, nil
}

func (fx *Effect) Name() string {
	return fx.desc.Name
}

// IsReady is true once created; wgpu compiles synchronously.
func (fx *Effect) IsReady() bool {
	return !fx.released
}

func (fx *Effect) SetTexture(sampler string, tex gfx.Texture) {
	if tex == nil {
		delete(fx.textures, sampler)
		return
	}
	fx.textures[sampler] = tex
}

func (fx *Effect) uniform(name string) []float32 {
	for i, n := range fx.desc.Uniforms {
		if n == name {
			return fx.uniforms[i*4 : i*4+4]
		}
	}
	return nil
}

func (fx *Effect) SetFloat(name string, v float32) {
	if u := fx.uniform(name); u != nil {
		u[0] = v
	}
}

func (fx *Effect) SetInt(name string, v int32) {
	fx.SetFloat(name, float32(v))
}

func (fx *Effect) SetVector3(name string, v mgl32.Vec3) {
	if u := fx.uniform(name); u != nil {
		copy(u, v[:])
	}
}

func blendState(mode gfx.AlphaMode) *wgpu.BlendState {
	switch mode {
	case gfx.AlphaCombine:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	case gfx.AlphaMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorDst, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorZero, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		}
	case gfx.AlphaAdd:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorZero, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		}
	}
	return nil
}

func (fx *Effect) pipeline(format wgpu.TextureFormat, alpha gfx.AlphaMode) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{format: format, alpha: alpha}
	if p, ok := fx.pipelines[key]; ok {
		return p, nil
	}
	p, err := fx.engine.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fx.desc.Name,
		Layout: fx.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     fx.module,
			EntryPoint: shaders.VertexEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fx.module,
			EntryPoint: shaders.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blendState(alpha),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpugfx: pipeline %q: %w", fx.desc.Name, err)
	}
	fx.pipelines[key] = p
	return p, nil
}

// view returns the bound texture view or the engine fallback.
func (fx *Effect) view(sampler string, volume bool) *wgpu.TextureView {
	if t, ok := fx.textures[sampler].(*Texture); ok && !t.released && t.engine == fx.engine {
		return t.view
	}
	if volume {
		return fx.engine.fallback3D.view
	}
	return fx.engine.fallback2D.view
}

// bindGroup uploads the uniforms and binds the current textures.
func (fx *Effect) bindGroup() (*wgpu.BindGroup, error) {
	var entries []wgpu.BindGroupEntry
	binding := uint32(0)
	for _, s := range fx.desc.Samplers {
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, TextureView: fx.view(s, false)})
		binding++
	}
	for _, s := range fx.desc.VolumeSamplers {
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, TextureView: fx.view(s, true)})
		binding++
	}
	if fx.buffer != nil {
		fx.engine.queue.WriteBuffer(fx.buffer, 0, uniformBytes(fx.uniforms))
		entries = append(entries, wgpu.BindGroupEntry{Binding: binding, Buffer: fx.buffer, Size: uniformSize(fx.desc)})
	}
	bg, err := fx.engine.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fx.desc.Name,
		Layout:  fx.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpugfx: bind %q: %w", fx.desc.Name, err)
	}
	return bg, nil
}

func (fx *Effect) Release() {
	if fx.released {
		return
	}
	fx.released = true
	for k, p := range fx.pipelines {
		p.Release()
		delete(fx.pipelines, k)
	}
	if fx.buffer != nil {
		fx.buffer.Release()
	}
	if fx.pipelineLayout != nil {
		fx.pipelineLayout.Release()
	}
	if fx.layout != nil {
		fx.layout.Release()
	}
	if fx.module != nil {
		fx.module.Release()
	}
	clear(fx.textures)
}

var _ gfx.Effect = (*Effect)(nil)
