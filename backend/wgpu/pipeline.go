package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/renderdev"
)

// maxColorAttachments bounds the attachment formats folded into a
// pipeline cache key.
const maxColorAttachments = 4

// pipelineKey identifies one render pipeline variant. Pipelines are
// immutable in WebGPU, so every distinct combination of shader, blend,
// depth/stencil, topology, cull mode, attachment formats, and bound
// texture count compiles to its own pipeline object.
type pipelineKey struct {
	shader renderdev.Handle
	blend  renderdev.Handle
	depth  renderdev.Handle

	topology renderdev.DrawMode
	cull     renderdev.CullMode

	colorCount   uint8
	colorFormats [maxColorAttachments]gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	hasDepth     bool
	sampleCount  uint32

	textureCount uint8
}

// pipelineEntry pairs a compiled pipeline with the layout it was built
// against, so both can be destroyed together.
type pipelineEntry struct {
	pipeline hal.RenderPipeline
	layout   hal.PipelineLayout
	key      pipelineKey
}

func (p *pipelineEntry) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
}

// textureGroupLayout returns the cached bind group layout for the given
// number of bound texture slots. Each slot contributes a texture view
// at binding 2i and a sampler at binding 2i+1, both fragment-visible.
func (e *Executor) textureGroupLayout(count int) (hal.BindGroupLayout, error) {
	if layout, ok := e.groupLayouts[count]; ok {
		return layout, nil
	}
	entries := make([]gputypes.BindGroupLayoutEntry, 0, count*2)
	for i := 0; i < count; i++ {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    uint32(i * 2),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    uint32(i*2 + 1),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	layout, err := e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("textures_%d", count),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture layout: %w", err)
	}
	e.groupLayouts[count] = layout
	return layout, nil
}

// buildKey derives the pipeline key for the current frame state and
// draw mode.
func (e *Executor) buildKey(mode renderdev.DrawMode) pipelineKey {
	f := &e.frame
	key := pipelineKey{
		shader:       f.shader.Handle(),
		topology:     mode,
		cull:         f.cullMode,
		sampleCount:  f.target.sampleCount,
		textureCount: uint8(len(f.boundTextures)),
	}
	if f.blend != nil {
		key.blend = f.blend.Handle()
	}
	if f.depthState != nil {
		key.depth = f.depthState.Handle()
	}
	key.colorCount = uint8(len(f.target.colorFormats))
	for i, format := range f.target.colorFormats {
		if i >= maxColorAttachments {
			break
		}
		key.colorFormats[i] = format
	}
	if f.target.hasDepth {
		key.hasDepth = true
		key.depthFormat = f.target.depthFormat
	}
	return key
}

// getPipeline returns the pipeline for the current frame state,
// compiling and caching it on first use.
func (e *Executor) getPipeline(mode renderdev.DrawMode) (*pipelineEntry, error) {
	key := e.buildKey(mode)
	if entry, ok := e.pipelines[key]; ok {
		return entry, nil
	}

	f := &e.frame
	shaderRes, ok := e.shaders[f.shader.Handle()]
	if !ok {
		return nil, fmt.Errorf("wgpu: shader %d not created", f.shader.Handle())
	}

	topology, err := convertTopology(mode)
	if err != nil {
		return nil, err
	}

	layouts := []hal.BindGroupLayout{shaderRes.constantLayout}
	if len(f.boundTextures) > 0 {
		texLayout, err := e.textureGroupLayout(len(f.boundTextures))
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, texLayout)
	}

	layout, err := e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            fmt.Sprintf("pipeline_%d", f.shader.Handle()),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	blend := convertBlendState(f.blend)
	writeMask := convertColorMask(renderdev.ColorMaskAll)
	if f.blend != nil {
		writeMask = convertColorMask(f.blend.ColorMask())
	}
	targets := make([]gputypes.ColorTargetState, len(f.target.colorFormats))
	for i, format := range f.target.colorFormats {
		targets[i] = gputypes.ColorTargetState{
			Format:    format,
			Blend:     blend,
			WriteMask: writeMask,
		}
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("pipeline_%d_%s", f.shader.Handle(), mode),
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shaderRes.vertexModule,
			EntryPoint: "vs_main",
			Buffers:    shaderRes.vertexLayout,
		},
		Fragment: &hal.FragmentState{
			Module:     shaderRes.fragmentModule,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: convertCullMode(f.cullMode),
		},
		Multisample: gputypes.MultisampleState{
			Count: f.target.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}

	if f.target.hasDepth {
		ds := &hal.DepthStencilState{
			Format:       f.target.depthFormat,
			DepthCompare: gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0xFF,
			StencilWriteMask: 0xFF,
		}
		if s := f.depthState; s != nil {
			ds.DepthWriteEnabled = s.DepthWrite()
			if s.DepthTest() {
				ds.DepthCompare = convertCompareFunction(s.Compare())
			}
			if s.StencilEnabled() {
				ds.StencilFront = convertStencilFace(s.FrontFace())
				ds.StencilBack = convertStencilFace(s.BackFace())
				read, write := s.StencilMasks()
				ds.StencilReadMask = read
				ds.StencilWriteMask = write
			}
		}
		desc.DepthStencil = ds
	}

	pipeline, err := e.device.CreateRenderPipeline(desc)
	if err != nil {
		e.device.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("wgpu: create pipeline for shader %d: %w", f.shader.Handle(), err)
	}

	entry := &pipelineEntry{pipeline: pipeline, layout: layout, key: key}
	e.pipelines[key] = entry
	return entry, nil
}

// dropPipelinesFor evicts every cached pipeline variant referencing the
// given shader handle.
func (e *Executor) dropPipelinesFor(h renderdev.Handle) {
	for key, entry := range e.pipelines {
		if key.shader != h {
			continue
		}
		if e.frame.boundPipeline == entry {
			e.frame.boundPipeline = nil
		}
		entry.destroy(e.device)
		delete(e.pipelines, key)
	}
}
