package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/renderdev"
)

// Shader location assignment is positional by attribute usage so that the
// same WGSL entry points work for every vertex layout: position is always
// location 0, normal 1, color 2, texture coordinates 3 and 4.
func attributeLocation(u renderdev.VertexAttributeUsage) uint32 {
	switch u {
	case renderdev.VertexAttributeUsageNormal:
		return 1
	case renderdev.VertexAttributeUsageColor:
		return 2
	case renderdev.VertexAttributeUsageTextureCoordinates0:
		return 3
	case renderdev.VertexAttributeUsageTextureCoordinates1:
		return 4
	default:
		return 0
	}
}

// shaderResource holds the compiled modules and the per-stage uniform
// buffers backing the shader's declared constant blocks. Vertex stage
// blocks occupy the low bind slots, fragment blocks follow.
type shaderResource struct {
	vertexModule   hal.ShaderModule
	fragmentModule hal.ShaderModule

	vertexLayout []gputypes.VertexBufferLayout

	constantLayout hal.BindGroupLayout
	constantGroup  hal.BindGroup
	vertexUniforms []hal.Buffer
	fragUniforms   []hal.Buffer
}

// compileToSPIRV compiles WGSL source to SPIR-V words. SPIR-V is
// little-endian 32-bit words.
func compileToSPIRV(source []byte) ([]uint32, error) {
	spirvBytes, err := naga.Compile(string(source))
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// createShader compiles both stages, builds the vertex layout, and
// allocates one uniform buffer per declared constant block.
func (e *Executor) createShader(s *renderdev.Shader) (*shaderResource, error) {
	vertexCode, err := compileToSPIRV(s.VertexSource())
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	fragmentCode, err := compileToSPIRV(s.FragmentSource())
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}

	res := &shaderResource{}
	res.vertexModule, err = e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("shader_%d_vs", s.Handle()),
		Source: hal.ShaderSource{SPIRV: vertexCode},
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex module: %w", err)
	}
	res.fragmentModule, err = e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("shader_%d_fs", s.Handle()),
		Source: hal.ShaderSource{SPIRV: fragmentCode},
	})
	if err != nil {
		res.destroy(e.device)
		return nil, fmt.Errorf("create fragment module: %w", err)
	}

	// Tightly packed single-buffer vertex layout in declaration order.
	attrs := make([]gputypes.VertexAttribute, 0, len(s.VertexAttributes()))
	var offset uint64
	for _, a := range s.VertexAttributes() {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         convertVertexFormat(a.Type),
			Offset:         offset,
			ShaderLocation: attributeLocation(a.Usage),
		})
		offset += uint64(a.Type.Bytes())
	}
	res.vertexLayout = []gputypes.VertexBufferLayout{{
		ArrayStride: uint64(s.VertexStride()),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}}

	// Bind group 0: uniform buffers for the declared constant blocks.
	var entries []gputypes.BindGroupLayoutEntry
	binding := uint32(0)
	for _, c := range s.VertexConstants() {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
		buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("shader_%d_%s", s.Handle(), c.Name),
			Size:  uint64(c.Size),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("create uniform %q: %w", c.Name, err)
		}
		res.vertexUniforms = append(res.vertexUniforms, buf)
		binding++
	}
	for _, c := range s.FragmentConstants() {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
		buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("shader_%d_%s", s.Handle(), c.Name),
			Size:  uint64(c.Size),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("create uniform %q: %w", c.Name, err)
		}
		res.fragUniforms = append(res.fragUniforms, buf)
		binding++
	}

	res.constantLayout, err = e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   fmt.Sprintf("shader_%d_constants", s.Handle()),
		Entries: entries,
	})
	if err != nil {
		res.destroy(e.device)
		return nil, fmt.Errorf("create constant layout: %w", err)
	}

	// The uniform buffers never change identity, so one bind group
	// serves the shader for its whole lifetime.
	groupEntries := make([]gputypes.BindGroupEntry, 0, len(entries))
	binding = 0
	for i, c := range s.VertexConstants() {
		groupEntries = append(groupEntries, gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: res.vertexUniforms[i].NativeHandle(),
				Offset: 0,
				Size:   uint64(c.Size),
			},
		})
		binding++
	}
	for i, c := range s.FragmentConstants() {
		groupEntries = append(groupEntries, gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: res.fragUniforms[i].NativeHandle(),
				Offset: 0,
				Size:   uint64(c.Size),
			},
		})
		binding++
	}
	res.constantGroup, err = e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   fmt.Sprintf("shader_%d_bind", s.Handle()),
		Layout:  res.constantLayout,
		Entries: groupEntries,
	})
	if err != nil {
		res.destroy(e.device)
		return nil, fmt.Errorf("create constant bind group: %w", err)
	}

	return res, nil
}

// writeConstants uploads one stage's constant blocks into its uniform
// buffers. Block sizes were validated by the device.
func (e *Executor) writeConstants(uniforms []hal.Buffer, blocks [][]float32) {
	for i, block := range blocks {
		if i >= len(uniforms) {
			return
		}
		data := make([]byte, len(block)*4)
		for j, v := range block {
			putFloat32LE(data[j*4:], v)
		}
		e.queue.WriteBuffer(uniforms[i], 0, data)
	}
}

func putFloat32LE(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func (r *shaderResource) destroy(device hal.Device) {
	if r.constantGroup != nil {
		device.DestroyBindGroup(r.constantGroup)
	}
	for _, b := range r.vertexUniforms {
		device.DestroyBuffer(b)
	}
	for _, b := range r.fragUniforms {
		device.DestroyBuffer(b)
	}
	if r.constantLayout != nil {
		device.DestroyBindGroupLayout(r.constantLayout)
	}
	if r.fragmentModule != nil {
		device.DestroyShaderModule(r.fragmentModule)
	}
	if r.vertexModule != nil {
		device.DestroyShaderModule(r.vertexModule)
	}
}
