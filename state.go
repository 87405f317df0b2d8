package renderdev

import "fmt"

// BlendState is a fixed-function blend configuration.
type BlendState struct {
	resourceState
	enabled          bool
	colorSource      BlendFactor
	colorDestination BlendFactor
	colorOperation   BlendOperation
	alphaSource      BlendFactor
	alphaDestination BlendFactor
	alphaOperation   BlendOperation
	colorMask        ColorMask
}

func newBlendState(cmd *InitBlendStateCommand) *BlendState {
	return &BlendState{
		resourceState:    resourceState{handle: cmd.BlendState},
		enabled:          cmd.Enabled,
		colorSource:      cmd.ColorSource,
		colorDestination: cmd.ColorDestination,
		colorOperation:   cmd.ColorOperation,
		alphaSource:      cmd.AlphaSource,
		alphaDestination: cmd.AlphaDestination,
		alphaOperation:   cmd.AlphaOperation,
		colorMask:        cmd.ColorMask,
	}
}

// Enabled reports whether blending is on.
func (b *BlendState) Enabled() bool { return b.enabled }

// ColorEquation returns the color channel blend terms.
func (b *BlendState) ColorEquation() (src, dst BlendFactor, op BlendOperation) {
	return b.colorSource, b.colorDestination, b.colorOperation
}

// AlphaEquation returns the alpha channel blend terms.
func (b *BlendState) AlphaEquation() (src, dst BlendFactor, op BlendOperation) {
	return b.alphaSource, b.alphaDestination, b.alphaOperation
}

// ColorMask returns the write mask.
func (b *BlendState) ColorMask() ColorMask { return b.colorMask }

func (b *BlendState) upload(Executor) error { return nil }

// DepthStencilState is a fixed-function depth/stencil configuration.
type DepthStencilState struct {
	resourceState
	depthTest        bool
	depthWrite       bool
	compare          CompareFunction
	stencilEnabled   bool
	stencilReadMask  uint32
	stencilWriteMask uint32
	frontFace        StencilDescriptor
	backFace         StencilDescriptor
}

func newDepthStencilState(cmd *InitDepthStencilStateCommand) *DepthStencilState {
	return &DepthStencilState{
		resourceState:    resourceState{handle: cmd.State},
		depthTest:        cmd.DepthTest,
		depthWrite:       cmd.DepthWrite,
		compare:          cmd.Compare,
		stencilEnabled:   cmd.StencilEnabled,
		stencilReadMask:  cmd.StencilReadMask,
		stencilWriteMask: cmd.StencilWriteMask,
		frontFace:        cmd.FrontFace,
		backFace:         cmd.BackFace,
	}
}

// DepthTest reports whether depth testing is enabled.
func (d *DepthStencilState) DepthTest() bool { return d.depthTest }

// DepthWrite reports whether depth writes are enabled.
func (d *DepthStencilState) DepthWrite() bool { return d.depthWrite }

// Compare returns the depth comparison function.
func (d *DepthStencilState) Compare() CompareFunction { return d.compare }

// StencilEnabled reports whether stencil testing is enabled.
func (d *DepthStencilState) StencilEnabled() bool { return d.stencilEnabled }

// StencilMasks returns the stencil read and write masks.
func (d *DepthStencilState) StencilMasks() (read, write uint32) {
	return d.stencilReadMask, d.stencilWriteMask
}

// FrontFace returns the front-face stencil behavior.
func (d *DepthStencilState) FrontFace() StencilDescriptor { return d.frontFace }

// BackFace returns the back-face stencil behavior.
func (d *DepthStencilState) BackFace() StencilDescriptor { return d.backFace }

func (d *DepthStencilState) upload(Executor) error { return nil }

// RenderTarget is an offscreen target assembled from color textures and an
// optional depth texture.
type RenderTarget struct {
	resourceState
	colorTextures []Handle
	depthTexture  Handle
}

func newRenderTarget(cmd *InitRenderTargetCommand) *RenderTarget {
	return &RenderTarget{
		resourceState: resourceState{handle: cmd.RenderTarget},
		colorTextures: cmd.ColorTextures,
		depthTexture:  cmd.DepthTexture,
	}
}

// ColorTextures returns the color attachment handles.
func (rt *RenderTarget) ColorTextures() []Handle { return rt.colorTextures }

// DepthTexture returns the depth attachment handle, or NullHandle.
func (rt *RenderTarget) DepthTexture() Handle { return rt.depthTexture }

func (rt *RenderTarget) upload(Executor) error { return nil }

// rasterizerStateIndex combines the three independently-tracked rasterizer
// axes into one index in a precomputed 12-entry state table:
// 2 fill modes x 2 scissor states x 3 cull modes.
func rasterizerStateIndex(fill FillMode, scissor bool, cull CullMode) (uint32, error) {
	var fillIndex uint32
	switch fill {
	case FillModeSolid:
		fillIndex = 0
	case FillModeWireframe:
		fillIndex = 1
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidFillMode, fill)
	}
	var scissorIndex uint32
	if scissor {
		scissorIndex = 1
	}
	var cullIndex uint32
	switch cull {
	case CullModeNone:
		cullIndex = 0
	case CullModeFront:
		cullIndex = 1
	case CullModeBack:
		cullIndex = 2
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidCullMode, cull)
	}
	return fillIndex*6 + scissorIndex*3 + cullIndex, nil
}
