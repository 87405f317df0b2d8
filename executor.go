package renderdev

import "image"

// Executor is the per-native-API translation layer. The render goroutine
// dispatches every command through exactly one Executor; implementations
// live under backend/ and own all native objects, keyed by resource
// handle.
//
// Every method is called from the render goroutine only. Fallible
// operations return errors; the device logs them and continues with the
// next buffer, so an executor error must leave the executor usable.
// Backends that do not support an optional feature (debug markers,
// wireframe fill) must no-op rather than fail.
type Executor interface {
	// Init prepares native device state. Called once, before any other
	// method. Failure here is fatal to the whole device.
	Init(settings Settings) error

	// Destroy releases all native state, including any resources not yet
	// individually deleted. Called once, after the render loop stops.
	Destroy()

	// Resize changes the backbuffer dimensions.
	Resize(width, height uint32) error

	// CreateBuffer creates the native object for a buffer. Data upload
	// happens separately through UploadBuffer.
	CreateBuffer(b *Buffer) error

	// UploadBuffer synchronizes the buffer's logical bytes into the
	// native object.
	UploadBuffer(b *Buffer) error

	// CreateTexture creates the native object for a texture.
	CreateTexture(t *Texture) error

	// UploadTexture synchronizes the texture's level data into the
	// native object.
	UploadTexture(t *Texture) error

	// SetTextureSampler applies the texture's current sampler parameters.
	SetTextureSampler(t *Texture) error

	// CreateShader compiles and links the shader program, binding the
	// declared constant block slots by name.
	CreateShader(s *Shader) error

	// CreateBlendState creates the native blend state object.
	CreateBlendState(b *BlendState) error

	// CreateDepthStencilState creates the native depth/stencil object.
	CreateDepthStencilState(d *DepthStencilState) error

	// CreateRenderTarget assembles a native framebuffer from the resolved
	// attachment textures. depth is nil when the target has no depth
	// attachment.
	CreateRenderTarget(rt *RenderTarget, colors []*Texture, depth *Texture) error

	// ResolveRenderTarget flushes a multisampled target into its
	// resolve textures. Called before switching away from a non-default
	// target and before present.
	ResolveRenderTarget(rt *RenderTarget) error

	// DestroyResource releases the native object for a handle. Unknown
	// handles are ignored.
	DestroyResource(h Handle)

	// SetRenderTarget selects the draw target. nil selects the default
	// (window backbuffer) target.
	SetRenderTarget(rt *RenderTarget) error

	// Clear clears the selected planes of the active target.
	Clear(clearColor, clearDepth, clearStencil bool, color Color, depth float32, stencil uint32) error

	// SetViewport sets the viewport rectangle.
	SetViewport(rect Rect) error

	// SetScissor enables or disables scissor testing.
	SetScissor(enabled bool, rect Rect) error

	// SetRasterizerState applies one entry of the 12-entry precomputed
	// rasterizer table (fill mode x scissor enable x cull mode).
	SetRasterizerState(index uint32) error

	// SetPipeline binds the shader and blend state for subsequent draws.
	// blend is nil for opaque rendering.
	SetPipeline(blend *BlendState, shader *Shader) error

	// SetDepthStencilState binds the depth/stencil state. state is nil
	// for the default (no depth test, no stencil).
	SetDepthStencilState(state *DepthStencilState, stencilRef uint32) error

	// SetConstants supplies the constant block payloads for the bound
	// shader. Sizes are validated by the device before this call.
	SetConstants(fragment, vertex [][]float32) error

	// BindTextures binds the texture slots in order. nil entries unbind.
	BindTextures(textures []*Texture) error

	// DrawIndexed issues one indexed draw with the bound pipeline state.
	DrawIndexed(mode DrawMode, indexSize, count, start uint32, vertexBuffer, indexBuffer *Buffer) error

	// Blit copies a region of one texture level into another.
	Blit(src *Texture, srcLevel uint32, srcRect Rect, dst *Texture, dstLevel, dstX, dstY uint32) error

	// PushDebugMarker opens a named region in capture tools.
	PushDebugMarker(name string)

	// PopDebugMarker closes the innermost region.
	PopDebugMarker()

	// ReadBackbuffer copies the current backbuffer contents into CPU
	// memory, used by the screenshot path at present time.
	ReadBackbuffer() (*image.RGBA, error)

	// Present swaps the frame to the platform surface.
	Present() error
}
