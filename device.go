package renderdev

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Device is a render device: it owns the resource table, the command
// queue, and the render goroutine that executes command buffers against
// one backend executor.
//
// Producer-facing methods (Init*, Set*Data, DeleteResource, Submit,
// SaveScreenshot) are enqueue-only and safe for concurrent use. All
// native backend state is owned by the render goroutine; the executor is
// never called from any other goroutine.
type Device struct {
	exec     Executor
	settings Settings

	queue      chan *CommandBuffer
	done       chan struct{}
	running    atomic.Bool
	lastHandle atomic.Uint32

	screenshotMu sync.Mutex
	screenshots  []string

	// Render goroutine state. Never touched from producer calls.
	resources      resourceTable
	currentShader  *Shader
	currentBlend   *BlendState
	currentTarget  *RenderTarget
	boundTextures  []*Texture
	fillMode       FillMode
	cullMode       CullMode
	scissorEnabled bool
}

// New creates a device over the given executor and starts its render
// goroutine. The executor is initialized on the render goroutine; an
// initialization failure is fatal and returns an error with no goroutine
// left running.
func New(exec Executor, settings Settings) (*Device, error) {
	if exec == nil {
		return nil, errors.New("renderdev: nil executor")
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}

	d := &Device{
		exec:     exec,
		settings: settings,
		queue:    make(chan *CommandBuffer, settings.QueueCapacity),
		done:     make(chan struct{}),
	}
	d.running.Store(true)

	initErr := make(chan error, 1)
	go d.renderMain(initErr)
	if err := <-initErr; err != nil {
		d.running.Store(false)
		return nil, err
	}

	Logger().Info("render device created",
		"width", settings.Width, "height", settings.Height,
		"sampleCount", settings.SampleCount)
	return d, nil
}

// Close stops the render goroutine and releases all native state. It
// submits a final lone-present buffer to unblock a goroutine parked on an
// empty queue, then joins. Buffers submitted before Close still execute.
//
// Close must not race with Submit or the resource methods; after Close
// they return ErrDeviceClosed.
func (d *Device) Close() error {
	if !d.running.CompareAndSwap(true, false) {
		return ErrDeviceClosed
	}
	buf := NewCommandBuffer(1)
	buf.Push(&PresentCommand{})
	d.queue <- buf
	<-d.done
	return nil
}

// Submit pushes a command buffer onto the queue for the render goroutine.
// The buffer belongs to the device after a successful Submit. Submit
// blocks only when the queue is at capacity (backpressure), never on
// render execution itself.
func (d *Device) Submit(buf *CommandBuffer) error {
	if buf == nil {
		return errors.New("renderdev: nil command buffer")
	}
	if !d.running.Load() {
		return ErrDeviceClosed
	}
	d.queue <- buf
	return nil
}

// submitCommand wraps a single resource command in its own buffer. The
// queue is FIFO with a single consumer, so a resource command submitted
// before a draw buffer is guaranteed to execute first.
func (d *Device) submitCommand(cmd Command) error {
	buf := NewCommandBuffer(1)
	buf.Push(cmd)
	return d.Submit(buf)
}

// allocateHandle returns the next table handle. Handles are 1-based and
// never reused within a device's lifetime.
func (d *Device) allocateHandle() Handle {
	return Handle(d.lastHandle.Add(1))
}

// InitBuffer creates an index or vertex buffer and returns its handle.
// The native object is created when the render goroutine executes the
// init command; data is uploaded lazily before the first consuming draw.
func (d *Device) InitBuffer(usage BufferUsage, flags ResourceFlags, data []byte) (Handle, error) {
	switch usage {
	case BufferUsageIndex, BufferUsageVertex:
	default:
		return NullHandle, fmt.Errorf("renderdev: invalid buffer usage %d", usage)
	}
	h := d.allocateHandle()
	if err := d.submitCommand(&InitBufferCommand{Buffer: h, Usage: usage, Flags: flags, Data: data}); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// InitTexture creates a texture from per-level data and returns its
// handle. Levels are ordered base first. With FlagMipmaps and a single
// supplied level, the remaining chain is generated on the CPU when the
// init command executes.
func (d *Device) InitTexture(levels []TextureLevel, typ TextureType, flags ResourceFlags,
	sampleCount uint32, format PixelFormat, filter SamplerFilter, maxAnisotropy uint32) (Handle, error) {
	if len(levels) == 0 {
		return NullHandle, errors.New("renderdev: texture needs at least one level")
	}
	if levels[0].Width == 0 || levels[0].Height == 0 {
		return NullHandle, errors.New("renderdev: zero texture dimensions")
	}
	if sampleCount == 0 || sampleCount&(sampleCount-1) != 0 {
		return NullHandle, fmt.Errorf("renderdev: sample count %d is not a power of two", sampleCount)
	}
	h := d.allocateHandle()
	cmd := &InitTextureCommand{
		Texture:       h,
		Levels:        levels,
		TextureType:   typ,
		Flags:         flags,
		SampleCount:   sampleCount,
		PixelFormat:   format,
		Filter:        filter,
		MaxAnisotropy: maxAnisotropy,
	}
	if err := d.submitCommand(cmd); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// InitShader creates a shader program and returns its handle. Compilation
// happens when the render goroutine executes the init command; a compile
// failure fails that frame and leaves the handle permanently unresolvable.
func (d *Device) InitShader(fragmentSource, vertexSource []byte, attributes []VertexAttribute,
	fragmentConstants, vertexConstants []ConstantInfo) (Handle, error) {
	if len(fragmentSource) == 0 || len(vertexSource) == 0 {
		return NullHandle, ErrEmptyShaderSource
	}
	h := d.allocateHandle()
	cmd := &InitShaderCommand{
		Shader:            h,
		FragmentSource:    fragmentSource,
		VertexSource:      vertexSource,
		VertexAttributes:  attributes,
		FragmentConstants: fragmentConstants,
		VertexConstants:   vertexConstants,
	}
	if err := d.submitCommand(cmd); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// InitBlendState creates a blend state object and returns its handle.
func (d *Device) InitBlendState(enabled bool,
	colorSource, colorDestination BlendFactor, colorOperation BlendOperation,
	alphaSource, alphaDestination BlendFactor, alphaOperation BlendOperation,
	colorMask ColorMask) (Handle, error) {
	h := d.allocateHandle()
	cmd := &InitBlendStateCommand{
		BlendState:       h,
		Enabled:          enabled,
		ColorSource:      colorSource,
		ColorDestination: colorDestination,
		ColorOperation:   colorOperation,
		AlphaSource:      alphaSource,
		AlphaDestination: alphaDestination,
		AlphaOperation:   alphaOperation,
		ColorMask:        colorMask,
	}
	if err := d.submitCommand(cmd); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// InitDepthStencilState creates a depth/stencil state object and returns
// its handle.
func (d *Device) InitDepthStencilState(depthTest, depthWrite bool, compare CompareFunction,
	stencilEnabled bool, readMask, writeMask uint32, front, back StencilDescriptor) (Handle, error) {
	h := d.allocateHandle()
	cmd := &InitDepthStencilStateCommand{
		State:            h,
		DepthTest:        depthTest,
		DepthWrite:       depthWrite,
		Compare:          compare,
		StencilEnabled:   stencilEnabled,
		StencilReadMask:  readMask,
		StencilWriteMask: writeMask,
		FrontFace:        front,
		BackFace:         back,
	}
	if err := d.submitCommand(cmd); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// InitRenderTarget creates a render target from previously initialized
// textures and returns its handle. depthTexture may be NullHandle.
func (d *Device) InitRenderTarget(colorTextures []Handle, depthTexture Handle) (Handle, error) {
	if len(colorTextures) == 0 && depthTexture == NullHandle {
		return NullHandle, errors.New("renderdev: render target needs at least one attachment")
	}
	for _, ct := range colorTextures {
		if ct == NullHandle {
			return NullHandle, fmt.Errorf("%w: null color attachment", ErrNullResource)
		}
	}
	h := d.allocateHandle()
	cmd := &InitRenderTargetCommand{
		RenderTarget:  h,
		ColorTextures: colorTextures,
		DepthTexture:  depthTexture,
	}
	if err := d.submitCommand(cmd); err != nil {
		return NullHandle, err
	}
	return h, nil
}

// SetBufferData replaces a buffer's contents. The upload to native state
// happens before the next draw that consumes the buffer.
func (d *Device) SetBufferData(h Handle, data []byte) error {
	if h == NullHandle {
		return fmt.Errorf("%w: buffer handle 0", ErrNullResource)
	}
	return d.submitCommand(&SetBufferDataCommand{Buffer: h, Data: data})
}

// SetTextureData replaces a texture's level data.
func (d *Device) SetTextureData(h Handle, levels []TextureLevel) error {
	if h == NullHandle {
		return fmt.Errorf("%w: texture handle 0", ErrNullResource)
	}
	return d.submitCommand(&SetTextureDataCommand{Texture: h, Levels: levels})
}

// SetTextureParameters changes a texture's sampler parameters.
func (d *Device) SetTextureParameters(h Handle, filter SamplerFilter,
	addressX, addressY, addressZ SamplerAddressMode, maxAnisotropy uint32) error {
	if h == NullHandle {
		return fmt.Errorf("%w: texture handle 0", ErrNullResource)
	}
	cmd := &SetTextureParametersCommand{
		Texture:       h,
		Filter:        filter,
		AddressX:      addressX,
		AddressY:      addressY,
		AddressZ:      addressZ,
		MaxAnisotropy: maxAnisotropy,
	}
	return d.submitCommand(cmd)
}

// DeleteResource releases a resource. The handle becomes invalid for new
// references immediately; the native teardown happens in FIFO order
// relative to pending commands that still reference it. Callers must not
// reference the handle in any buffer submitted after this call.
func (d *Device) DeleteResource(h Handle) error {
	if h == NullHandle {
		return nil
	}
	return d.submitCommand(&DeleteResourceCommand{Resource: h})
}

// SaveScreenshot queues a screenshot. The render goroutine captures the
// backbuffer at the next present and writes it as a PNG to filename.
func (d *Device) SaveScreenshot(filename string) {
	d.screenshotMu.Lock()
	d.screenshots = append(d.screenshots, filename)
	d.screenshotMu.Unlock()
}

// renderMain is the render goroutine. It initializes the executor,
// reports the result through initErr, then drains the queue until the
// device is closed. A failed frame is logged and the loop continues; no
// executor error kills the goroutine.
func (d *Device) renderMain(initErr chan<- error) {
	defer close(d.done)

	if err := d.exec.Init(d.settings); err != nil {
		initErr <- fmt.Errorf("renderdev: backend init: %w", err)
		return
	}
	initErr <- nil

	for {
		buf := <-d.queue
		if err := d.executeBuffer(buf); err != nil {
			Logger().Error("frame execution failed", "error", err)
		}
		// Close submits the final buffer after clearing running, so once
		// running is false and the queue is drained there is nothing left.
		if !d.running.Load() && len(d.queue) == 0 {
			break
		}
	}

	d.exec.Destroy()
}

// executeBuffer runs one command buffer in FIFO order. A present command
// terminates the buffer even if commands remain; any error aborts the
// remainder of this buffer only.
func (d *Device) executeBuffer(buf *CommandBuffer) error {
	for {
		cmd, ok := buf.Pop()
		if !ok {
			return nil
		}
		stop, err := d.execute(cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Type(), err)
		}
		if stop {
			return nil
		}
	}
}

// execute dispatches one command. It returns stop=true for present, which
// is always the last command honored in an iteration.
func (d *Device) execute(cmd Command) (stop bool, err error) {
	switch c := cmd.(type) {
	case *ResizeCommand:
		return false, d.exec.Resize(c.Width, c.Height)

	case *PresentCommand:
		if d.currentTarget != nil {
			if err := d.exec.ResolveRenderTarget(d.currentTarget); err != nil {
				return true, err
			}
		}
		d.generateScreenshots()
		return true, d.exec.Present()

	case *DeleteResourceCommand:
		if r := d.resources.remove(c.Resource); r != nil {
			r.free(d.exec)
		}
		return false, nil

	case *InitRenderTargetCommand:
		return false, d.executeInitRenderTarget(c)

	case *SetRenderTargetCommand:
		return false, d.executeSetRenderTarget(c)

	case *ClearRenderTargetCommand:
		return false, d.exec.Clear(c.ClearColorBuffer, c.ClearDepthBuffer, c.ClearStencilBuffer,
			c.ClearColor, c.ClearDepth, c.ClearStencil)

	case *BlitCommand:
		return false, d.executeBlit(c)

	case *SetScissorTestCommand:
		d.scissorEnabled = c.Enabled
		if err := d.applyRasterizerState(); err != nil {
			return false, err
		}
		return false, d.exec.SetScissor(c.Enabled, c.Rect)

	case *SetViewportCommand:
		return false, d.exec.SetViewport(c.Rect)

	case *InitDepthStencilStateCommand:
		ds := newDepthStencilState(c)
		if err := d.exec.CreateDepthStencilState(ds); err != nil {
			return false, err
		}
		d.resources.put(ds)
		return false, nil

	case *SetDepthStencilStateCommand:
		var ds *DepthStencilState
		if c.State != NullHandle {
			if ds, err = resolve[*DepthStencilState](d, c.State); err != nil {
				return false, err
			}
		}
		return false, d.exec.SetDepthStencilState(ds, c.StencilRef)

	case *SetPipelineStateCommand:
		return false, d.executeSetPipelineState(c)

	case *DrawCommand:
		return false, d.executeDraw(c)

	case *PushDebugMarkerCommand:
		d.exec.PushDebugMarker(c.Name)
		return false, nil

	case *PopDebugMarkerCommand:
		d.exec.PopDebugMarker()
		return false, nil

	case *InitBlendStateCommand:
		bs := newBlendState(c)
		if err := d.exec.CreateBlendState(bs); err != nil {
			return false, err
		}
		d.resources.put(bs)
		return false, nil

	case *InitBufferCommand:
		b := newBuffer(c.Buffer, c.Usage, c.Flags, c.Data)
		if err := d.exec.CreateBuffer(b); err != nil {
			return false, err
		}
		d.resources.put(b)
		return false, nil

	case *SetBufferDataCommand:
		b, err := resolve[*Buffer](d, c.Buffer)
		if err != nil {
			return false, err
		}
		b.setData(c.Data)
		return false, nil

	case *InitShaderCommand:
		s := newShader(c)
		if err := d.exec.CreateShader(s); err != nil {
			return false, err
		}
		d.resources.put(s)
		return false, nil

	case *SetShaderConstantsCommand:
		return false, d.executeSetShaderConstants(c)

	case *InitTextureCommand:
		return false, d.executeInitTexture(c)

	case *SetTextureDataCommand:
		t, err := resolve[*Texture](d, c.Texture)
		if err != nil {
			return false, err
		}
		t.setData(c.Levels)
		return false, nil

	case *SetTextureParametersCommand:
		t, err := resolve[*Texture](d, c.Texture)
		if err != nil {
			return false, err
		}
		t.setParameters(c)
		return false, nil

	case *SetTexturesCommand:
		return false, d.executeSetTextures(c)

	default:
		return false, fmt.Errorf("unhandled command type %s", cmd.Type())
	}
}

func (d *Device) executeInitRenderTarget(c *InitRenderTargetCommand) error {
	rt := newRenderTarget(c)
	colors := make([]*Texture, len(c.ColorTextures))
	for i, h := range c.ColorTextures {
		t, err := resolve[*Texture](d, h)
		if err != nil {
			return fmt.Errorf("color attachment %d: %w", i, err)
		}
		colors[i] = t
	}
	var depth *Texture
	if c.DepthTexture != NullHandle {
		t, err := resolve[*Texture](d, c.DepthTexture)
		if err != nil {
			return fmt.Errorf("depth attachment: %w", err)
		}
		depth = t
	}
	if err := d.exec.CreateRenderTarget(rt, colors, depth); err != nil {
		return err
	}
	d.resources.put(rt)
	return nil
}

func (d *Device) executeSetRenderTarget(c *SetRenderTargetCommand) error {
	// A previously active non-default target is resolved before the
	// switch so its contents are valid for sampling.
	if d.currentTarget != nil {
		if err := d.exec.ResolveRenderTarget(d.currentTarget); err != nil {
			return err
		}
	}
	if c.RenderTarget == NullHandle {
		d.currentTarget = nil
		return d.exec.SetRenderTarget(nil)
	}
	rt, err := resolve[*RenderTarget](d, c.RenderTarget)
	if err != nil {
		return err
	}
	if err := d.exec.SetRenderTarget(rt); err != nil {
		return err
	}
	d.currentTarget = rt
	return nil
}

func (d *Device) executeBlit(c *BlitCommand) error {
	src, err := resolve[*Texture](d, c.Source)
	if err != nil {
		return fmt.Errorf("blit source: %w", err)
	}
	dst, err := resolve[*Texture](d, c.Destination)
	if err != nil {
		return fmt.Errorf("blit destination: %w", err)
	}
	for _, t := range [2]*Texture{src, dst} {
		if t.Dirty() {
			if err := t.upload(d.exec); err != nil {
				return err
			}
		}
	}
	return d.exec.Blit(src, c.SourceLevel, c.SourceRect, dst, c.DestinationLevel, c.DestinationX, c.DestinationY)
}

func (d *Device) executeSetPipelineState(c *SetPipelineStateCommand) error {
	var blend *BlendState
	if c.BlendState != NullHandle {
		var err error
		if blend, err = resolve[*BlendState](d, c.BlendState); err != nil {
			return err
		}
	}
	var shader *Shader
	if c.Shader != NullHandle {
		var err error
		if shader, err = resolve[*Shader](d, c.Shader); err != nil {
			return err
		}
	}
	d.cullMode = c.CullMode
	d.fillMode = c.FillMode
	if err := d.applyRasterizerState(); err != nil {
		return err
	}
	if err := d.exec.SetPipeline(blend, shader); err != nil {
		return err
	}
	d.currentBlend = blend
	d.currentShader = shader
	return nil
}

// applyRasterizerState recombines the three tracked axes into the
// 12-entry rasterizer table index and applies it.
func (d *Device) applyRasterizerState() error {
	index, err := rasterizerStateIndex(d.fillMode, d.scissorEnabled, d.cullMode)
	if err != nil {
		return err
	}
	return d.exec.SetRasterizerState(index)
}

func (d *Device) executeSetShaderConstants(c *SetShaderConstantsCommand) error {
	if d.currentShader == nil {
		return fmt.Errorf("%w: no shader bound", ErrNullResource)
	}
	if err := validateConstants("fragment", d.currentShader.FragmentConstants(), c.FragmentConstants); err != nil {
		return err
	}
	if err := validateConstants("vertex", d.currentShader.VertexConstants(), c.VertexConstants); err != nil {
		return err
	}
	return d.exec.SetConstants(c.FragmentConstants, c.VertexConstants)
}

func (d *Device) executeInitTexture(c *InitTextureCommand) error {
	levels := c.Levels
	if c.Flags&FlagMipmaps != 0 && len(levels) == 1 && levels[0].Data != nil {
		var err error
		if levels, err = generateMipLevels(levels[0], c.PixelFormat); err != nil {
			return err
		}
		c.Levels = levels
	}
	t := newTexture(c)
	if err := d.exec.CreateTexture(t); err != nil {
		return err
	}
	d.resources.put(t)
	return nil
}

func (d *Device) executeSetTextures(c *SetTexturesCommand) error {
	textures := make([]*Texture, len(c.Textures))
	for i, h := range c.Textures {
		if h == NullHandle {
			continue
		}
		t, err := resolve[*Texture](d, h)
		if err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		textures[i] = t
	}
	if err := d.exec.BindTextures(textures); err != nil {
		return err
	}
	d.boundTextures = textures
	return nil
}

// executeDraw validates the draw preconditions, uploads every dirty
// resource the draw consumes, then issues the native draw.
func (d *Device) executeDraw(c *DrawCommand) error {
	if c.IndexSize != 2 && c.IndexSize != 4 {
		return fmt.Errorf("%w: %d", ErrInvalidIndexSize, c.IndexSize)
	}
	switch c.Mode {
	case DrawModePointList, DrawModeLineList, DrawModeLineStrip,
		DrawModeTriangleList, DrawModeTriangleStrip:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidDrawMode, c.Mode)
	}
	if d.currentShader == nil {
		return fmt.Errorf("%w: no shader bound", ErrNullResource)
	}
	vb, err := resolve[*Buffer](d, c.VertexBuffer)
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	ib, err := resolve[*Buffer](d, c.IndexBuffer)
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	if vb.Size() == 0 {
		return fmt.Errorf("%w: vertex buffer %d is empty", ErrNullResource, c.VertexBuffer)
	}
	if ib.Size() == 0 {
		return fmt.Errorf("%w: index buffer %d is empty", ErrNullResource, c.IndexBuffer)
	}

	for _, b := range [2]*Buffer{vb, ib} {
		if b.Dirty() {
			if err := b.upload(d.exec); err != nil {
				return err
			}
		}
	}
	for _, t := range d.boundTextures {
		if t != nil && t.Dirty() {
			if err := t.upload(d.exec); err != nil {
				return err
			}
		}
	}

	count := c.IndexCount
	if count == 0 {
		total := ib.Size() / c.IndexSize
		if c.StartIndex > total {
			return fmt.Errorf("renderdev: start index %d beyond %d indices", c.StartIndex, total)
		}
		count = total - c.StartIndex
	}

	return d.exec.DrawIndexed(c.Mode, c.IndexSize, count, c.StartIndex, vb, ib)
}

// generateScreenshots drains the queued screenshot filenames, reading the
// backbuffer once per entry. Failures are logged; a bad screenshot never
// fails the frame.
func (d *Device) generateScreenshots() {
	d.screenshotMu.Lock()
	pending := d.screenshots
	d.screenshots = nil
	d.screenshotMu.Unlock()

	for _, filename := range pending {
		if err := d.writeScreenshot(filename); err != nil {
			Logger().Error("screenshot failed", "filename", filename, "error", err)
		}
	}
}

// resolve looks a handle up in the resource table and asserts its kind.
func resolve[T Resource](d *Device, h Handle) (T, error) {
	var zero T
	r := d.resources.get(h)
	if r == nil {
		return zero, fmt.Errorf("%w: handle %d", ErrNullResource, h)
	}
	t, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("%w: handle %d holds %T", ErrWrongResourceType, h, r)
	}
	return t, nil
}
