package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/renderdev"
)

// convertTextureFormat maps a renderdev pixel format to its WebGPU
// equivalent.
func convertTextureFormat(f renderdev.PixelFormat) (gputypes.TextureFormat, error) {
	switch f {
	case renderdev.PixelFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	case renderdev.PixelFormatRG8Unorm:
		return gputypes.TextureFormatRG8Unorm, nil
	case renderdev.PixelFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, nil
	case renderdev.PixelFormatRGBA8UnormSRGB:
		return gputypes.TextureFormatRGBA8UnormSrgb, nil
	case renderdev.PixelFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, nil
	case renderdev.PixelFormatR16Float:
		return gputypes.TextureFormatR16Float, nil
	case renderdev.PixelFormatRGBA16Float:
		return gputypes.TextureFormatRGBA16Float, nil
	case renderdev.PixelFormatR32Float:
		return gputypes.TextureFormatR32Float, nil
	case renderdev.PixelFormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float, nil
	case renderdev.PixelFormatRGBA32Uint:
		return gputypes.TextureFormatRGBA32Uint, nil
	case renderdev.PixelFormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8, nil
	case renderdev.PixelFormatDepth32Float:
		return gputypes.TextureFormatDepth32Float, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("%w: %s", renderdev.ErrUnsupportedFormat, f)
}

// convertTopology maps a draw mode to a primitive topology.
func convertTopology(m renderdev.DrawMode) (gputypes.PrimitiveTopology, error) {
	switch m {
	case renderdev.DrawModePointList:
		return gputypes.PrimitiveTopologyPointList, nil
	case renderdev.DrawModeLineList:
		return gputypes.PrimitiveTopologyLineList, nil
	case renderdev.DrawModeLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, nil
	case renderdev.DrawModeTriangleList:
		return gputypes.PrimitiveTopologyTriangleList, nil
	case renderdev.DrawModeTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	}
	return 0, fmt.Errorf("%w: %d", renderdev.ErrInvalidDrawMode, m)
}

// convertCullMode maps a cull mode axis of the rasterizer state.
func convertCullMode(m renderdev.CullMode) gputypes.CullMode {
	switch m {
	case renderdev.CullModeFront:
		return gputypes.CullModeFront
	case renderdev.CullModeBack:
		return gputypes.CullModeBack
	default:
		return gputypes.CullModeNone
	}
}

// convertBlendFactor maps a blend factor to its WebGPU equivalent.
func convertBlendFactor(f renderdev.BlendFactor) gputypes.BlendFactor {
	switch f {
	case renderdev.BlendFactorZero:
		return gputypes.BlendFactorZero
	case renderdev.BlendFactorOne:
		return gputypes.BlendFactorOne
	case renderdev.BlendFactorSrcColor:
		return gputypes.BlendFactorSrc
	case renderdev.BlendFactorInvSrcColor:
		return gputypes.BlendFactorOneMinusSrc
	case renderdev.BlendFactorSrcAlpha:
		return gputypes.BlendFactorSrcAlpha
	case renderdev.BlendFactorInvSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	case renderdev.BlendFactorDestColor:
		return gputypes.BlendFactorDst
	case renderdev.BlendFactorInvDestColor:
		return gputypes.BlendFactorOneMinusDst
	case renderdev.BlendFactorDestAlpha:
		return gputypes.BlendFactorDstAlpha
	case renderdev.BlendFactorInvDestAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha
	case renderdev.BlendFactorSrcAlphaSaturate:
		return gputypes.BlendFactorSrcAlphaSaturated
	default:
		return gputypes.BlendFactorOne
	}
}

// convertBlendOperation maps a blend operation to its WebGPU equivalent.
func convertBlendOperation(o renderdev.BlendOperation) gputypes.BlendOperation {
	switch o {
	case renderdev.BlendOperationSubtract:
		return gputypes.BlendOperationSubtract
	case renderdev.BlendOperationReverseSubtract:
		return gputypes.BlendOperationReverseSubtract
	case renderdev.BlendOperationMin:
		return gputypes.BlendOperationMin
	case renderdev.BlendOperationMax:
		return gputypes.BlendOperationMax
	default:
		return gputypes.BlendOperationAdd
	}
}

// convertBlendState builds the WebGPU blend state for a blend resource.
// Returns nil for disabled blending (opaque).
func convertBlendState(b *renderdev.BlendState) *gputypes.BlendState {
	if b == nil || !b.Enabled() {
		return nil
	}
	cs, cd, co := b.ColorEquation()
	as, ad, ao := b.AlphaEquation()
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: convertBlendFactor(cs),
			DstFactor: convertBlendFactor(cd),
			Operation: convertBlendOperation(co),
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: convertBlendFactor(as),
			DstFactor: convertBlendFactor(ad),
			Operation: convertBlendOperation(ao),
		},
	}
}

// convertColorMask maps a color write mask.
func convertColorMask(m renderdev.ColorMask) gputypes.ColorWriteMask {
	var mask gputypes.ColorWriteMask
	if m&renderdev.ColorMaskRed != 0 {
		mask |= gputypes.ColorWriteMaskRed
	}
	if m&renderdev.ColorMaskGreen != 0 {
		mask |= gputypes.ColorWriteMaskGreen
	}
	if m&renderdev.ColorMaskBlue != 0 {
		mask |= gputypes.ColorWriteMaskBlue
	}
	if m&renderdev.ColorMaskAlpha != 0 {
		mask |= gputypes.ColorWriteMaskAlpha
	}
	return mask
}

// convertCompareFunction maps a depth/stencil comparison.
func convertCompareFunction(f renderdev.CompareFunction) gputypes.CompareFunction {
	switch f {
	case renderdev.CompareFunctionNever:
		return gputypes.CompareFunctionNever
	case renderdev.CompareFunctionLess:
		return gputypes.CompareFunctionLess
	case renderdev.CompareFunctionEqual:
		return gputypes.CompareFunctionEqual
	case renderdev.CompareFunctionLessEqual:
		return gputypes.CompareFunctionLessEqual
	case renderdev.CompareFunctionGreater:
		return gputypes.CompareFunctionGreater
	case renderdev.CompareFunctionNotEqual:
		return gputypes.CompareFunctionNotEqual
	case renderdev.CompareFunctionGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

// convertStencilOperation maps a stencil operation.
func convertStencilOperation(o renderdev.StencilOperation) hal.StencilOperation {
	switch o {
	case renderdev.StencilOperationZero:
		return hal.StencilOperationZero
	case renderdev.StencilOperationReplace:
		return hal.StencilOperationReplace
	case renderdev.StencilOperationIncrementClamp:
		return hal.StencilOperationIncrementClamp
	case renderdev.StencilOperationDecrementClamp:
		return hal.StencilOperationDecrementClamp
	case renderdev.StencilOperationInvert:
		return hal.StencilOperationInvert
	case renderdev.StencilOperationIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case renderdev.StencilOperationDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

// convertStencilFace maps a per-face stencil descriptor.
func convertStencilFace(d renderdev.StencilDescriptor) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     convertCompareFunction(d.Compare),
		FailOp:      convertStencilOperation(d.FailOp),
		DepthFailOp: convertStencilOperation(d.DepthFailOp),
		PassOp:      convertStencilOperation(d.PassOp),
	}
}

// convertFilterMode maps a sampler filter to mag/min/mip filter modes.
// Point disables all filtering; linear and bilinear filter within a level;
// trilinear additionally filters between mip levels.
func convertFilterMode(f renderdev.SamplerFilter) (magMin, mip gputypes.FilterMode) {
	switch f {
	case renderdev.SamplerFilterPoint:
		return gputypes.FilterModeNearest, gputypes.FilterModeNearest
	case renderdev.SamplerFilterLinear, renderdev.SamplerFilterBilinear:
		return gputypes.FilterModeLinear, gputypes.FilterModeNearest
	default:
		return gputypes.FilterModeLinear, gputypes.FilterModeLinear
	}
}

// convertAddressMode maps a wrap mode.
func convertAddressMode(m renderdev.SamplerAddressMode) gputypes.AddressMode {
	switch m {
	case renderdev.SamplerAddressModeRepeat:
		return gputypes.AddressModeRepeat
	case renderdev.SamplerAddressModeMirrorRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

// convertVertexFormat maps a vertex attribute data type.
func convertVertexFormat(t renderdev.VertexDataType) gputypes.VertexFormat {
	switch t {
	case renderdev.VertexDataTypeFloat:
		return gputypes.VertexFormatFloat32
	case renderdev.VertexDataTypeFloatVector2:
		return gputypes.VertexFormatFloat32x2
	case renderdev.VertexDataTypeFloatVector3:
		return gputypes.VertexFormatFloat32x3
	case renderdev.VertexDataTypeFloatVector4:
		return gputypes.VertexFormatFloat32x4
	case renderdev.VertexDataTypeByteVector4Norm:
		return gputypes.VertexFormatUnorm8x4
	case renderdev.VertexDataTypeUintVector4:
		return gputypes.VertexFormatUint32x4
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// convertIndexFormat maps an index size in bytes. The size is validated
// by the device before the draw reaches the executor.
func convertIndexFormat(size uint32) gputypes.IndexFormat {
	if size == 2 {
		return gputypes.IndexFormatUint16
	}
	return gputypes.IndexFormatUint32
}
