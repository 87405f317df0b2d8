package wgpu

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/renderdev"
)

// submitTimeout bounds how long a submit waits for the GPU.
const submitTimeout = 5 * time.Second

// completionPollInterval is the sleep between submission index polls while
// waiting for the GPU.
const completionPollInterval = 100 * time.Microsecond

// copyPitchAlignment is the WebGPU (and DX12) row alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// clearOp is a deferred clear, applied as the load operation of the
// next render pass.
type clearOp struct {
	color   bool
	depth   bool
	stencil bool

	colorValue   renderdev.Color
	depthValue   float32
	stencilValue uint32
}

// frameState tracks the encoder, the open render pass, and the pipeline
// state accumulated between draws. WebGPU has no mutable pipeline
// state, so set-state commands only update this snapshot; the actual
// pipeline binds lazily at the next draw.
type frameState struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	target  *targetResource

	pendingClear *clearOp

	viewport       renderdev.Rect
	scissorEnabled bool
	scissor        renderdev.Rect
	stencilRef     uint32

	shader     *renderdev.Shader
	blend      *renderdev.BlendState
	depthState *renderdev.DepthStencilState
	cullMode   renderdev.CullMode

	boundTextures []*renderdev.Texture
	textureGroup  hal.BindGroup

	// Bind groups superseded during the frame, destroyed after the
	// next submit completes.
	retiredGroups []hal.BindGroup

	boundPipeline *pipelineEntry
	drawsRecorded bool
}

// endPass closes the open render pass, if any.
func (f *frameState) endPass() {
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}
	f.boundPipeline = nil
}

// discard abandons any in-flight encoding without submitting.
func (f *frameState) discard(device hal.Device) {
	f.endPass()
	if f.encoder != nil {
		f.encoder.DiscardEncoding()
		f.encoder = nil
	}
	if f.textureGroup != nil {
		device.DestroyBindGroup(f.textureGroup)
		f.textureGroup = nil
	}
	for _, g := range f.retiredGroups {
		device.DestroyBindGroup(g)
	}
	f.retiredGroups = nil
	f.drawsRecorded = false
}

// ensureEncoder opens the frame's command encoder on first use.
func (e *Executor) ensureEncoder() error {
	if e.frame.encoder != nil {
		return nil
	}
	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	e.frame.encoder = encoder
	return nil
}

// ensurePass begins a render pass against the current target,
// consuming any pending clear as the pass load operation.
func (e *Executor) ensurePass() error {
	f := &e.frame
	if f.pass != nil {
		return nil
	}
	if err := e.ensureEncoder(); err != nil {
		return err
	}

	clear := f.pendingClear
	f.pendingClear = nil

	desc := &hal.RenderPassDescriptor{Label: "frame_pass"}
	for i, view := range f.target.colorViews {
		att := hal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}
		if i < len(f.target.resolveViews) {
			att.ResolveTarget = f.target.resolveViews[i]
		}
		if clear != nil && clear.color {
			att.LoadOp = gputypes.LoadOpClear
			att.ClearValue = gputypes.Color{
				R: float64(clear.colorValue.R),
				G: float64(clear.colorValue.G),
				B: float64(clear.colorValue.B),
				A: float64(clear.colorValue.A),
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
	}
	if f.target.hasDepth {
		ds := &hal.RenderPassDepthStencilAttachment{
			View:           f.target.depthView,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if clear != nil && clear.depth {
			ds.DepthLoadOp = gputypes.LoadOpClear
			ds.DepthClearValue = clear.depthValue
		}
		if clear != nil && clear.stencil {
			ds.StencilLoadOp = gputypes.LoadOpClear
			ds.StencilClearValue = clear.stencilValue
		}
		desc.DepthStencilAttachment = ds
	}

	f.pass = f.encoder.BeginRenderPass(desc)
	e.applyViewport()
	e.applyScissor()
	f.pass.SetStencilReference(f.stencilRef)
	return nil
}

func (e *Executor) applyViewport() {
	f := &e.frame
	if f.pass == nil {
		return
	}
	v := f.viewport
	if v.Width <= 0 || v.Height <= 0 {
		v = renderdev.Rect{Width: float32(f.target.width), Height: float32(f.target.height)}
	}
	f.pass.SetViewport(v.X, v.Y, v.Width, v.Height, 0, 1)
}

func (e *Executor) applyScissor() {
	f := &e.frame
	if f.pass == nil {
		return
	}
	if f.scissorEnabled {
		f.pass.SetScissorRect(
			uint32(f.scissor.X), uint32(f.scissor.Y),
			uint32(f.scissor.Width), uint32(f.scissor.Height),
		)
	} else {
		f.pass.SetScissorRect(0, 0, f.target.width, f.target.height)
	}
}

// flushFrame submits everything encoded so far and waits for the GPU.
// The pass state survives the flush; the next draw reopens a pass with
// load operations preserving attachment contents.
func (e *Executor) flushFrame() error {
	f := &e.frame
	if f.pendingClear != nil {
		// A clear with no draws still has to reach the attachments.
		if err := e.ensurePass(); err != nil {
			return err
		}
	}
	f.endPass()
	f.drawsRecorded = false
	if f.encoder == nil {
		return nil
	}

	encoder := f.encoder
	f.encoder = nil
	if err := e.submitAndWait(encoder); err != nil {
		return err
	}

	for _, g := range f.retiredGroups {
		e.device.DestroyBindGroup(g)
	}
	f.retiredGroups = nil
	return nil
}

// SetRenderTarget switches the draw target. nil selects the internal
// backbuffer.
func (e *Executor) SetRenderTarget(rt *renderdev.RenderTarget) error {
	f := &e.frame
	next := e.backbuffer
	if rt != nil {
		res, ok := e.targets[rt.Handle()]
		if !ok {
			return fmt.Errorf("wgpu: render target %d not created", rt.Handle())
		}
		next = res
	}
	if next == f.target {
		return nil
	}
	if f.pendingClear != nil {
		if err := e.ensurePass(); err != nil {
			return err
		}
	}
	f.endPass()
	f.target = next
	return nil
}

// Clear defers clearing to the next pass begin, where it becomes the
// attachment load operation.
func (e *Executor) Clear(clearColor, clearDepth, clearStencil bool, color renderdev.Color, depth float32, stencil uint32) error {
	if !clearColor && !clearDepth && !clearStencil {
		return nil
	}
	f := &e.frame
	f.endPass()
	if f.pendingClear == nil {
		f.pendingClear = &clearOp{}
	}
	if clearColor {
		f.pendingClear.color = true
		f.pendingClear.colorValue = color
	}
	if clearDepth {
		f.pendingClear.depth = true
		f.pendingClear.depthValue = depth
	}
	if clearStencil {
		f.pendingClear.stencil = true
		f.pendingClear.stencilValue = stencil
	}
	return nil
}

// SetViewport applies to the open pass and to every pass begun later
// this frame.
func (e *Executor) SetViewport(rect renderdev.Rect) error {
	e.frame.viewport = rect
	e.applyViewport()
	return nil
}

// SetScissor enables or disables scissor testing.
func (e *Executor) SetScissor(enabled bool, rect renderdev.Rect) error {
	e.frame.scissorEnabled = enabled
	e.frame.scissor = rect
	e.applyScissor()
	return nil
}

// SetRasterizerState decodes one entry of the precomputed rasterizer
// table back into its fill, scissor, and cull axes. WebGPU has no
// wireframe fill mode, so the fill axis is ignored.
func (e *Executor) SetRasterizerState(index uint32) error {
	e.frame.cullMode = renderdev.CullMode(index % 3)
	scissorEnabled := (index%6)/3 == 1
	if scissorEnabled != e.frame.scissorEnabled {
		e.frame.scissorEnabled = scissorEnabled
		e.applyScissor()
	}
	return nil
}

// SetPipeline records the shader and blend state for the next draw.
func (e *Executor) SetPipeline(blend *renderdev.BlendState, shader *renderdev.Shader) error {
	if _, ok := e.shaders[shader.Handle()]; !ok {
		return fmt.Errorf("wgpu: shader %d not created", shader.Handle())
	}
	e.frame.shader = shader
	e.frame.blend = blend
	e.frame.boundPipeline = nil
	return nil
}

// SetDepthStencilState records the depth/stencil state for the next
// draw. state is nil for the default (no test, no stencil).
func (e *Executor) SetDepthStencilState(state *renderdev.DepthStencilState, stencilRef uint32) error {
	e.frame.depthState = state
	e.frame.boundPipeline = nil
	if e.frame.stencilRef != stencilRef {
		e.frame.stencilRef = stencilRef
		if e.frame.pass != nil {
			e.frame.pass.SetStencilReference(stencilRef)
		}
	}
	return nil
}

// SetConstants writes the constant payloads into the bound shader's
// uniform buffers. Queue writes land before submitted passes execute,
// so any draws already recorded are flushed first.
func (e *Executor) SetConstants(fragment, vertex [][]float32) error {
	f := &e.frame
	if f.shader == nil {
		return fmt.Errorf("wgpu: no shader bound")
	}
	res, ok := e.shaders[f.shader.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: shader %d not created", f.shader.Handle())
	}
	if f.drawsRecorded {
		if err := e.flushFrame(); err != nil {
			return err
		}
	}
	e.writeConstants(res.vertexUniforms, vertex)
	e.writeConstants(res.fragUniforms, fragment)
	return nil
}

// BindTextures builds the texture bind group for the given slots.
// nil entries unbind; trailing nil slots shrink the group.
func (e *Executor) BindTextures(textures []*renderdev.Texture) error {
	f := &e.frame

	for len(textures) > 0 && textures[len(textures)-1] == nil {
		textures = textures[:len(textures)-1]
	}

	if f.textureGroup != nil {
		f.retiredGroups = append(f.retiredGroups, f.textureGroup)
		f.textureGroup = nil
	}
	f.boundTextures = textures
	if len(textures) == 0 {
		return nil
	}

	layout, err := e.textureGroupLayout(len(textures))
	if err != nil {
		return err
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(textures)*2)
	for i, t := range textures {
		if t == nil {
			return fmt.Errorf("wgpu: texture slot %d is empty", i)
		}
		res, ok := e.textures[t.Handle()]
		if !ok {
			return fmt.Errorf("wgpu: texture %d not created", t.Handle())
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding: uint32(i * 2),
				Resource: gputypes.TextureViewBinding{
					TextureView: res.shaderView().NativeHandle(),
				},
			},
			gputypes.BindGroupEntry{
				Binding: uint32(i*2 + 1),
				Resource: gputypes.SamplerBinding{
					Sampler: res.sampler.NativeHandle(),
				},
			},
		)
	}
	group, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "frame_textures",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture bind group: %w", err)
	}
	f.textureGroup = group
	return nil
}

// DrawIndexed binds the pipeline variant for the accumulated state and
// records one indexed draw.
func (e *Executor) DrawIndexed(mode renderdev.DrawMode, indexSize, count, start uint32, vertexBuffer, indexBuffer *renderdev.Buffer) error {
	f := &e.frame
	if f.shader == nil {
		return fmt.Errorf("wgpu: no shader bound")
	}
	vb, ok := e.buffers[vertexBuffer.Handle()]
	if !ok || vb.buffer == nil {
		return fmt.Errorf("wgpu: vertex buffer %d has no data", vertexBuffer.Handle())
	}
	ib, ok := e.buffers[indexBuffer.Handle()]
	if !ok || ib.buffer == nil {
		return fmt.Errorf("wgpu: index buffer %d has no data", indexBuffer.Handle())
	}

	if err := e.ensurePass(); err != nil {
		return err
	}

	entry, err := e.getPipeline(mode)
	if err != nil {
		return err
	}
	if f.boundPipeline != entry {
		f.pass.SetPipeline(entry.pipeline)
		f.boundPipeline = entry
	}

	shaderRes := e.shaders[f.shader.Handle()]
	f.pass.SetBindGroup(0, shaderRes.constantGroup, nil)
	if f.textureGroup != nil {
		f.pass.SetBindGroup(1, f.textureGroup, nil)
	}

	f.pass.SetVertexBuffer(0, vb.buffer, 0)
	f.pass.SetIndexBuffer(ib.buffer, convertIndexFormat(indexSize), 0)
	f.pass.DrawIndexed(count, 1, start, 0, 0)
	f.drawsRecorded = true
	return nil
}

// Blit copies a region of one texture level into another through a
// staging buffer round trip.
func (e *Executor) Blit(src *renderdev.Texture, srcLevel uint32, srcRect renderdev.Rect, dst *renderdev.Texture, dstLevel, dstX, dstY uint32) error {
	srcRes, ok := e.textures[src.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: blit source %d not created", src.Handle())
	}
	dstRes, ok := e.textures[dst.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: blit destination %d not created", dst.Handle())
	}
	if srcRes.format != dstRes.format {
		return fmt.Errorf("%w: blit between %s and %s", renderdev.ErrUnsupportedFormat, src.PixelFormat(), dst.PixelFormat())
	}

	w := uint32(srcRect.Width)
	h := uint32(srcRect.Height)
	if w == 0 || h == 0 {
		return nil
	}

	// The source may be a render target with pending draws.
	if err := e.flushFrame(); err != nil {
		return err
	}

	bpp := src.PixelFormat().BytesPerPixel()
	data, err := e.readTexture(srcRes, srcLevel, uint32(srcRect.X), uint32(srcRect.Y), w, h, bpp)
	if err != nil {
		return fmt.Errorf("wgpu: blit read: %w", err)
	}

	err = e.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  dstRes.texture,
			MipLevel: dstLevel,
			Origin:   hal.Origin3D{X: dstX, Y: dstY},
		},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * bpp, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: blit write: %w", err)
	}
	return nil
}

// PushDebugMarker is a no-op; debug regions are not exposed by the HAL.
func (e *Executor) PushDebugMarker(string) {}

// PopDebugMarker is a no-op.
func (e *Executor) PopDebugMarker() {}

// Present flushes the frame to the GPU and waits for completion. The
// executor renders offscreen, so presenting is a submit boundary rather
// than a swapchain flip.
func (e *Executor) Present() error {
	return e.flushFrame()
}

// ReadBackbuffer copies the backbuffer into CPU memory.
func (e *Executor) ReadBackbuffer() (*image.RGBA, error) {
	if err := e.flushFrame(); err != nil {
		return nil, err
	}

	bb := e.backbuffer
	w, h := bb.width, bb.height

	data, err := e.readAttachment(bb, w, h)
	if err != nil {
		return nil, err
	}

	// Backbuffer is BGRA; swizzle into the image's RGBA order.
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for i := 0; i+3 < len(data); i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = data[i+3]
	}
	return img, nil
}

// readAttachment reads the backbuffer's readback texture, transitioning
// it through CopySrc and back so the next frame's pass stays valid.
func (e *Executor) readAttachment(target *targetResource, w, h uint32) ([]byte, error) {
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ uint32(copyPitchAlignment-1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin readback encoding: %w", err)
	}

	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer e.device.DestroyBuffer(staging)

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: target.readbackTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(target.readbackTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: target.readbackTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: target.readbackTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	if err := e.submitAndWait(encoder); err != nil {
		return nil, err
	}

	readback, err := e.readStaging(staging, stagingSize)
	if err != nil {
		return nil, err
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback, nil
	}
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := int(row) * int(alignedBytesPerRow)
		dstOff := int(row) * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, nil
}

// readTexture reads a rectangle of one texture level.
func (e *Executor) readTexture(res *textureResource, level, x, y, w, h, bpp uint32) ([]byte, error) {
	bytesPerRow := w * bpp
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ uint32(copyPitchAlignment-1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "blit_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create blit encoder: %w", err)
	}
	if err := encoder.BeginEncoding("blit"); err != nil {
		return nil, fmt.Errorf("begin blit encoding: %w", err)
	}

	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "blit_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("create blit staging: %w", err)
	}
	defer e.device.DestroyBuffer(staging)

	srcTex := res.texture
	if res.resolveTexture != nil {
		srcTex = res.resolveTexture
	}
	encoder.CopyTextureToBuffer(srcTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase: hal.ImageCopyTexture{
			Texture:  srcTex,
			MipLevel: level,
			Origin:   hal.Origin3D{X: x, Y: y},
		},
		Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	if err := e.submitAndWait(encoder); err != nil {
		return nil, err
	}

	readback, err := e.readStaging(staging, stagingSize)
	if err != nil {
		return nil, err
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback, nil
	}
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := int(row) * int(alignedBytesPerRow)
		dstOff := int(row) * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, nil
}

// submitAndWait finalizes an encoder, submits, and blocks until the queue
// reports the submission complete.
func (e *Executor) submitAndWait(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	index, err := e.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	deadline := time.Now().Add(submitTimeout)
	for e.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("wgpu: wait for GPU timed out after %s", submitTimeout)
		}
		time.Sleep(completionPollInterval)
	}
	return nil
}

// readStaging maps a readback staging buffer and copies its contents out.
// The prior submitAndWait guarantees the GPU is done writing the range.
func (e *Executor) readStaging(staging hal.Buffer, size uint64) ([]byte, error) {
	mapping, err := e.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := e.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}
	return out, nil
}
