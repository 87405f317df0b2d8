package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/renderdev"
	"github.com/gogpu/renderdev/backend"
)

func init() {
	backend.Register(backend.BackendWgpu, func() renderdev.Executor {
		return New()
	})
}

// Executor translates device commands into WebGPU HAL calls. All methods
// except SetDeviceProvider run on the device's render goroutine, which
// owns every native object the executor creates.
type Executor struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// Set through SetDeviceProvider before Init; when present the
	// executor skips standalone device creation and must not destroy
	// the shared device on teardown.
	providedDevice hal.Device
	providedQueue  hal.Queue
	surfaceFormat  gputypes.TextureFormat
	externalDevice bool

	settings renderdev.Settings

	buffers  map[renderdev.Handle]*bufferResource
	textures map[renderdev.Handle]*textureResource
	shaders  map[renderdev.Handle]*shaderResource
	targets  map[renderdev.Handle]*targetResource

	backbuffer *targetResource

	pipelines    map[pipelineKey]*pipelineEntry
	groupLayouts map[int]hal.BindGroupLayout

	frame frameState
}

// Interface compliance check.
var _ renderdev.Executor = (*Executor)(nil)

// New returns an executor that initializes its own Vulkan device on
// Init, unless SetDeviceProvider supplies a shared one first.
func New() *Executor {
	return &Executor{
		buffers:      make(map[renderdev.Handle]*bufferResource),
		textures:     make(map[renderdev.Handle]*textureResource),
		shaders:      make(map[renderdev.Handle]*shaderResource),
		targets:      make(map[renderdev.Handle]*targetResource),
		pipelines:    make(map[pipelineKey]*pipelineEntry),
		groupLayouts: make(map[int]hal.BindGroupLayout),
	}
}

// SetDeviceProvider switches the executor to a shared GPU device from an
// external provider, such as a windowing context. Beyond the
// gpucontext.DeviceProvider contract the provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// Must be called before the executor is handed to renderdev.New. The
// provider's surface format becomes the backbuffer format, so frames
// rendered here can be presented to the provider's surface without a
// format conversion.
func (e *Executor) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.providedDevice = device
	e.providedQueue = queue
	e.surfaceFormat = provider.SurfaceFormat()
	return nil
}

// Init acquires a device and creates the offscreen backbuffer.
func (e *Executor) Init(settings renderdev.Settings) error {
	e.settings = settings

	e.mu.Lock()
	provided, providedQueue := e.providedDevice, e.providedQueue
	e.mu.Unlock()

	if provided != nil {
		e.device = provided
		e.queue = providedQueue
		e.externalDevice = true
	} else if err := e.initDevice(); err != nil {
		return err
	}

	bb, err := e.createBackbuffer(settings.Width, settings.Height)
	if err != nil {
		e.releaseDevice()
		return err
	}
	e.backbuffer = bb
	e.frame.target = bb
	e.frame.viewport = renderdev.Rect{
		Width:  float32(settings.Width),
		Height: float32(settings.Height),
	}
	return nil
}

// initDevice creates a standalone Vulkan device. This is the fallback
// path when no external device is provided via SetDeviceProvider.
func (e *Executor) initDevice() error {
	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	e.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		e.instance = nil
		return fmt.Errorf("wgpu: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		e.instance = nil
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	e.device = openDev.Device
	e.queue = openDev.Queue
	return nil
}

// Destroy releases every native object. Shared devices are released but
// not destroyed.
func (e *Executor) Destroy() {
	e.frame.discard(e.device)

	for _, p := range e.pipelines {
		p.destroy(e.device)
	}
	e.pipelines = map[pipelineKey]*pipelineEntry{}
	for _, l := range e.groupLayouts {
		e.device.DestroyBindGroupLayout(l)
	}
	e.groupLayouts = map[int]hal.BindGroupLayout{}

	for h, r := range e.targets {
		r.destroy(e.device)
		delete(e.targets, h)
	}
	for h, r := range e.shaders {
		r.destroy(e.device)
		delete(e.shaders, h)
	}
	for h, r := range e.textures {
		r.destroy(e.device)
		delete(e.textures, h)
	}
	for h, r := range e.buffers {
		r.destroy(e.device)
		delete(e.buffers, h)
	}
	if e.backbuffer != nil {
		e.backbuffer.destroy(e.device)
		e.backbuffer = nil
	}
	e.releaseDevice()
}

func (e *Executor) releaseDevice() {
	if !e.externalDevice && e.device != nil {
		e.device.Destroy()
	}
	e.device = nil
	e.queue = nil
	if e.instance != nil {
		e.instance.Destroy()
		e.instance = nil
	}
}

// Resize recreates the backbuffer at the new dimensions.
func (e *Executor) Resize(width, height uint32) error {
	if e.frame.pass != nil || e.frame.encoder != nil {
		if err := e.flushFrame(); err != nil {
			return err
		}
	}
	bb, err := e.createBackbuffer(width, height)
	if err != nil {
		return err
	}
	if e.frame.target == e.backbuffer {
		e.frame.target = bb
	}
	e.backbuffer.destroy(e.device)
	e.backbuffer = bb
	e.settings.Width = width
	e.settings.Height = height
	e.frame.viewport = renderdev.Rect{Width: float32(width), Height: float32(height)}
	return nil
}

// bufferResource wraps a HAL buffer and its current allocation size.
// Uploads reallocate when the logical size outgrows the native one.
type bufferResource struct {
	buffer hal.Buffer
	size   uint64
	usage  gputypes.BufferUsage
}

func (r *bufferResource) destroy(device hal.Device) {
	if r.buffer != nil {
		device.DestroyBuffer(r.buffer)
		r.buffer = nil
	}
}

// CreateBuffer records the buffer; native allocation is deferred to the
// first upload since the logical size may still be zero.
func (e *Executor) CreateBuffer(b *renderdev.Buffer) error {
	usage := gputypes.BufferUsageCopyDst
	if b.Usage() == renderdev.BufferUsageIndex {
		usage |= gputypes.BufferUsageIndex
	} else {
		usage |= gputypes.BufferUsageVertex
	}
	e.buffers[b.Handle()] = &bufferResource{usage: usage}
	return nil
}

// UploadBuffer synchronizes logical bytes into the native buffer,
// reallocating when the data has grown.
func (e *Executor) UploadBuffer(b *renderdev.Buffer) error {
	res, ok := e.buffers[b.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: buffer %d not created", b.Handle())
	}
	data := b.Data()
	if len(data) == 0 {
		return nil
	}
	size := uint64(len(data))
	if res.buffer == nil || size > res.size {
		if res.buffer != nil {
			e.device.DestroyBuffer(res.buffer)
		}
		buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("buffer_%d", b.Handle()),
			Size:  size,
			Usage: res.usage,
		})
		if err != nil {
			res.buffer = nil
			return fmt.Errorf("wgpu: create buffer %d: %w", b.Handle(), err)
		}
		res.buffer = buf
		res.size = size
	}
	if err := e.queue.WriteBuffer(res.buffer, 0, data); err != nil {
		return fmt.Errorf("wgpu: write buffer %d: %w", b.Handle(), err)
	}
	return nil
}

// textureResource wraps a HAL texture, its view, and the sampler built
// from the texture's filter parameters. Multisampled render-target
// textures additionally carry a single-sample resolve texture that
// shader reads and readbacks go through.
type textureResource struct {
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler

	resolveTexture hal.Texture
	resolveView    hal.TextureView

	format      gputypes.TextureFormat
	width       uint32
	height      uint32
	sampleCount uint32
}

// shaderView returns the view shader reads should sample from.
func (r *textureResource) shaderView() hal.TextureView {
	if r.resolveView != nil {
		return r.resolveView
	}
	return r.view
}

func (r *textureResource) destroy(device hal.Device) {
	if r.sampler != nil {
		device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.resolveView != nil {
		device.DestroyTextureView(r.resolveView)
		r.resolveView = nil
	}
	if r.resolveTexture != nil {
		device.DestroyTexture(r.resolveTexture)
		r.resolveTexture = nil
	}
	if r.view != nil {
		device.DestroyTextureView(r.view)
		r.view = nil
	}
	if r.texture != nil {
		device.DestroyTexture(r.texture)
		r.texture = nil
	}
}

// CreateTexture creates the native texture, view, and sampler.
func (e *Executor) CreateTexture(t *renderdev.Texture) error {
	format, err := convertTextureFormat(t.PixelFormat())
	if err != nil {
		return err
	}

	usage := gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding
	if t.Flags()&renderdev.FlagBindRenderTarget != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
	}

	res := &textureResource{
		format:      format,
		width:       t.Width(),
		height:      t.Height(),
		sampleCount: t.SampleCount(),
	}
	res.texture, err = e.device.CreateTexture(&hal.TextureDescriptor{
		Label: fmt.Sprintf("texture_%d", t.Handle()),
		Size: hal.Extent3D{
			Width:              t.Width(),
			Height:             t.Height(),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(len(t.Levels())),
		SampleCount:   t.SampleCount(),
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture %d: %w", t.Handle(), err)
	}
	res.view, err = e.device.CreateTextureView(res.texture, &hal.TextureViewDescriptor{
		Label: fmt.Sprintf("texture_%d_view", t.Handle()),
	})
	if err != nil {
		res.destroy(e.device)
		return fmt.Errorf("wgpu: create texture view %d: %w", t.Handle(), err)
	}

	// Multisampled attachments resolve into a single-sample texture so
	// they stay sampleable and readable.
	if t.SampleCount() > 1 && t.Flags()&renderdev.FlagBindRenderTarget != 0 {
		res.resolveTexture, err = e.device.CreateTexture(&hal.TextureDescriptor{
			Label: fmt.Sprintf("texture_%d_resolve", t.Handle()),
			Size: hal.Extent3D{
				Width:              t.Width(),
				Height:             t.Height(),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         usage,
		})
		if err != nil {
			res.destroy(e.device)
			return fmt.Errorf("wgpu: create resolve texture %d: %w", t.Handle(), err)
		}
		res.resolveView, err = e.device.CreateTextureView(res.resolveTexture, &hal.TextureViewDescriptor{
			Label: fmt.Sprintf("texture_%d_resolve_view", t.Handle()),
		})
		if err != nil {
			res.destroy(e.device)
			return fmt.Errorf("wgpu: create resolve view %d: %w", t.Handle(), err)
		}
	}

	e.textures[t.Handle()] = res
	return e.SetTextureSampler(t)
}

// UploadTexture writes every mip level's pixel data.
func (e *Executor) UploadTexture(t *renderdev.Texture) error {
	res, ok := e.textures[t.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: texture %d not created", t.Handle())
	}
	bpp := t.PixelFormat().BytesPerPixel()
	for level, lv := range t.Levels() {
		if len(lv.Data) == 0 {
			continue
		}
		err := e.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  res.texture,
				MipLevel: uint32(level),
				Origin:   hal.Origin3D{},
			},
			lv.Data,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  lv.Width * bpp,
				RowsPerImage: lv.Height,
			},
			&hal.Extent3D{
				Width:              lv.Width,
				Height:             lv.Height,
				DepthOrArrayLayers: 1,
			},
		)
		if err != nil {
			return fmt.Errorf("wgpu: write texture %d level %d: %w", t.Handle(), level, err)
		}
	}
	return nil
}

// SetTextureSampler rebuilds the texture's sampler from its current
// filter and address parameters.
func (e *Executor) SetTextureSampler(t *renderdev.Texture) error {
	res, ok := e.textures[t.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: texture %d not created", t.Handle())
	}
	magMin, mip := convertFilterMode(t.Filter())
	ax, ay, az := t.AddressModes()
	sampler, err := e.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        fmt.Sprintf("texture_%d_sampler", t.Handle()),
		AddressModeU: convertAddressMode(ax),
		AddressModeV: convertAddressMode(ay),
		AddressModeW: convertAddressMode(az),
		MagFilter:    magMin,
		MinFilter:    magMin,
		MipmapFilter: mip,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create sampler for texture %d: %w", t.Handle(), err)
	}
	if res.sampler != nil {
		e.device.DestroySampler(res.sampler)
	}
	res.sampler = sampler
	return nil
}

// CreateShader compiles both stages and allocates constant uniforms.
func (e *Executor) CreateShader(s *renderdev.Shader) error {
	res, err := e.createShader(s)
	if err != nil {
		return err
	}
	e.shaders[s.Handle()] = res
	return nil
}

// CreateBlendState is a no-op; blend state folds into the pipeline
// descriptor at draw time.
func (e *Executor) CreateBlendState(*renderdev.BlendState) error { return nil }

// CreateDepthStencilState is a no-op; depth/stencil state folds into
// the pipeline descriptor at draw time.
func (e *Executor) CreateDepthStencilState(*renderdev.DepthStencilState) error { return nil }

// targetResource is the set of attachment views a render pass draws
// into, either a named render target or the internal backbuffer.
type targetResource struct {
	colorViews   []hal.TextureView
	resolveViews []hal.TextureView
	depthView    hal.TextureView

	colorFormats []gputypes.TextureFormat
	depthFormat  gputypes.TextureFormat
	hasDepth     bool
	hasStencil   bool
	sampleCount  uint32
	width        uint32
	height       uint32

	// Set for the backbuffer, whose textures the executor owns. Named
	// targets borrow views from their attachment textureResources.
	ownedTextures []hal.Texture
	ownedViews    []hal.TextureView
	readbackView  hal.TextureView
	readbackTex   hal.Texture
}

func (r *targetResource) destroy(device hal.Device) {
	for _, v := range r.ownedViews {
		device.DestroyTextureView(v)
	}
	r.ownedViews = nil
	for _, t := range r.ownedTextures {
		device.DestroyTexture(t)
	}
	r.ownedTextures = nil
	r.colorViews = nil
	r.resolveViews = nil
	r.depthView = nil
	r.readbackView = nil
	r.readbackTex = nil
}

// createBackbuffer builds the internal offscreen target the default
// render pass draws into.
func (e *Executor) createBackbuffer(width, height uint32) (*targetResource, error) {
	format := gputypes.TextureFormatBGRA8Unorm
	if e.settings.SRGB {
		format = gputypes.TextureFormatBGRA8UnormSrgb
	}
	if e.surfaceFormat != gputypes.TextureFormatUndefined {
		format = e.surfaceFormat
	}
	samples := e.settings.SampleCount
	if samples == 0 {
		samples = 1
	}

	res := &targetResource{
		colorFormats: []gputypes.TextureFormat{format},
		sampleCount:  samples,
		width:        width,
		height:       height,
	}
	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	usage := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc

	colorTex, err := e.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "backbuffer_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create backbuffer color: %w", err)
	}
	res.ownedTextures = append(res.ownedTextures, colorTex)
	colorView, err := e.device.CreateTextureView(colorTex, &hal.TextureViewDescriptor{
		Label: "backbuffer_color_view",
	})
	if err != nil {
		res.destroy(e.device)
		return nil, fmt.Errorf("wgpu: create backbuffer color view: %w", err)
	}
	res.ownedViews = append(res.ownedViews, colorView)
	res.colorViews = []hal.TextureView{colorView}
	res.readbackTex = colorTex
	res.readbackView = colorView

	if samples > 1 {
		resolveTex, err := e.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "backbuffer_resolve",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format,
			Usage:         usage,
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("wgpu: create backbuffer resolve: %w", err)
		}
		res.ownedTextures = append(res.ownedTextures, resolveTex)
		resolveView, err := e.device.CreateTextureView(resolveTex, &hal.TextureViewDescriptor{
			Label: "backbuffer_resolve_view",
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("wgpu: create backbuffer resolve view: %w", err)
		}
		res.ownedViews = append(res.ownedViews, resolveView)
		res.resolveViews = []hal.TextureView{resolveView}
		res.readbackTex = resolveTex
		res.readbackView = resolveView
	}

	if e.settings.Depth || e.settings.Stencil {
		depthFormat := gputypes.TextureFormatDepth32Float
		if e.settings.Stencil {
			depthFormat = gputypes.TextureFormatDepth24PlusStencil8
		}
		depthTex, err := e.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "backbuffer_depth",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   samples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        depthFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("wgpu: create backbuffer depth: %w", err)
		}
		res.ownedTextures = append(res.ownedTextures, depthTex)
		depthView, err := e.device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
			Label: "backbuffer_depth_view",
		})
		if err != nil {
			res.destroy(e.device)
			return nil, fmt.Errorf("wgpu: create backbuffer depth view: %w", err)
		}
		res.ownedViews = append(res.ownedViews, depthView)
		res.depthView = depthView
		res.depthFormat = depthFormat
		res.hasDepth = true
		res.hasStencil = e.settings.Stencil
	}

	return res, nil
}

// CreateRenderTarget assembles attachment views from the resolved
// textures. All attachments share dimensions and sample count.
func (e *Executor) CreateRenderTarget(rt *renderdev.RenderTarget, colors []*renderdev.Texture, depth *renderdev.Texture) error {
	res := &targetResource{sampleCount: 1}
	for _, t := range colors {
		tex, ok := e.textures[t.Handle()]
		if !ok {
			return fmt.Errorf("wgpu: render target %d: texture %d not created", rt.Handle(), t.Handle())
		}
		res.colorViews = append(res.colorViews, tex.view)
		res.colorFormats = append(res.colorFormats, tex.format)
		if tex.resolveView != nil {
			res.resolveViews = append(res.resolveViews, tex.resolveView)
		}
		res.width = tex.width
		res.height = tex.height
		if tex.sampleCount > res.sampleCount {
			res.sampleCount = tex.sampleCount
		}
	}
	if len(res.resolveViews) > 0 && len(res.resolveViews) != len(res.colorViews) {
		return fmt.Errorf("wgpu: render target %d: mixed sample counts across color attachments", rt.Handle())
	}
	if depth != nil {
		tex, ok := e.textures[depth.Handle()]
		if !ok {
			return fmt.Errorf("wgpu: render target %d: depth texture %d not created", rt.Handle(), depth.Handle())
		}
		res.depthView = tex.view
		res.depthFormat = tex.format
		res.hasDepth = true
		res.hasStencil = depth.PixelFormat() == renderdev.PixelFormatDepth24Stencil8
	}
	if len(res.colorViews) > 0 {
		res.readbackView = res.colorViews[0]
	}
	e.targets[rt.Handle()] = res
	return nil
}

// ResolveRenderTarget flushes a multisampled target into its resolve
// textures. Resolution happens when the render pass ends, so it is
// sufficient to close any pass currently drawing into the target.
func (e *Executor) ResolveRenderTarget(rt *renderdev.RenderTarget) error {
	res, ok := e.targets[rt.Handle()]
	if !ok {
		return fmt.Errorf("wgpu: render target %d not created", rt.Handle())
	}
	if e.frame.target == res {
		e.frame.endPass()
	}
	return nil
}

// DestroyResource releases the native objects for a handle. Unknown
// handles are ignored; blend and depth/stencil states have no natives.
func (e *Executor) DestroyResource(h renderdev.Handle) {
	if res, ok := e.buffers[h]; ok {
		res.destroy(e.device)
		delete(e.buffers, h)
		return
	}
	if res, ok := e.textures[h]; ok {
		res.destroy(e.device)
		delete(e.textures, h)
		return
	}
	if res, ok := e.shaders[h]; ok {
		e.dropPipelinesFor(h)
		res.destroy(e.device)
		delete(e.shaders, h)
		return
	}
	if res, ok := e.targets[h]; ok {
		if e.frame.target == res {
			e.frame.endPass()
			e.frame.target = e.backbuffer
		}
		res.destroy(e.device)
		delete(e.targets, h)
	}
}
