package renderdev

// Handle identifies a resource slot in the device's resource table.
// Handles are 1-based; 0 is the null handle. A handle is allocated
// synchronously on the producer side and becomes resolvable on the render
// goroutine once the corresponding init command has executed. Handles are
// never reused within a device's lifetime.
type Handle uint32

// NullHandle is the zero handle. It never resolves to a resource; commands
// that accept it (SetRenderTargetCommand, SetDepthStencilStateCommand)
// interpret it as "restore the default".
const NullHandle Handle = 0

// BufferUsage describes what a buffer holds.
type BufferUsage uint8

const (
	BufferUsageIndex BufferUsage = iota
	BufferUsageVertex
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageIndex:
		return "Index"
	case BufferUsageVertex:
		return "Vertex"
	}
	return "Unknown"
}

// ResourceFlags modify resource creation behavior. Flags combine with
// bitwise OR.
type ResourceFlags uint32

const (
	// FlagDynamic marks a resource as frequently updated from the
	// producer side.
	FlagDynamic ResourceFlags = 1 << iota
	// FlagBindRenderTarget allows a texture to be attached to a render
	// target.
	FlagBindRenderTarget
	// FlagBindShader allows a texture to be sampled by shaders.
	FlagBindShader
	// FlagMipmaps requests a full mip chain. When only the base level is
	// supplied at init, the remaining levels are generated on the CPU.
	FlagMipmaps
)

// TextureType is the dimensionality of a texture.
type TextureType uint8

const (
	TextureType2D TextureType = iota
	TextureTypeCube
)

func (t TextureType) String() string {
	switch t {
	case TextureType2D:
		return "2D"
	case TextureTypeCube:
		return "Cube"
	}
	return "Unknown"
}

// PixelFormat is the storage format of a texture.
type PixelFormat uint8

const (
	PixelFormatR8Unorm PixelFormat = iota
	PixelFormatRG8Unorm
	PixelFormatRGBA8Unorm
	PixelFormatRGBA8UnormSRGB
	PixelFormatBGRA8Unorm
	PixelFormatR16Float
	PixelFormatRGBA16Float
	PixelFormatR32Float
	PixelFormatRGBA32Float
	PixelFormatRGBA32Uint
	PixelFormatDepth24Stencil8
	PixelFormatDepth32Float
)

// pixelFormatNames maps PixelFormat values to their string representation.
var pixelFormatNames = [...]string{
	PixelFormatR8Unorm:         "R8Unorm",
	PixelFormatRG8Unorm:        "RG8Unorm",
	PixelFormatRGBA8Unorm:      "RGBA8Unorm",
	PixelFormatRGBA8UnormSRGB:  "RGBA8UnormSRGB",
	PixelFormatBGRA8Unorm:      "BGRA8Unorm",
	PixelFormatR16Float:        "R16Float",
	PixelFormatRGBA16Float:     "RGBA16Float",
	PixelFormatR32Float:        "R32Float",
	PixelFormatRGBA32Float:     "RGBA32Float",
	PixelFormatRGBA32Uint:      "RGBA32Uint",
	PixelFormatDepth24Stencil8: "Depth24Stencil8",
	PixelFormatDepth32Float:    "Depth32Float",
}

func (f PixelFormat) String() string {
	if int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return "Unknown"
}

// BytesPerPixel returns the storage size of one pixel, or 0 for
// depth/stencil formats whose layout is backend-defined.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatR8Unorm:
		return 1
	case PixelFormatRG8Unorm, PixelFormatR16Float:
		return 2
	case PixelFormatRGBA8Unorm, PixelFormatRGBA8UnormSRGB, PixelFormatBGRA8Unorm, PixelFormatR32Float:
		return 4
	case PixelFormatRGBA16Float:
		return 8
	case PixelFormatRGBA32Float, PixelFormatRGBA32Uint:
		return 16
	}
	return 0
}

// SamplerFilter selects texture sampling quality.
type SamplerFilter uint8

const (
	SamplerFilterDefault SamplerFilter = iota
	SamplerFilterPoint
	SamplerFilterLinear
	SamplerFilterBilinear
	SamplerFilterTrilinear
)

func (f SamplerFilter) String() string {
	switch f {
	case SamplerFilterDefault:
		return "Default"
	case SamplerFilterPoint:
		return "Point"
	case SamplerFilterLinear:
		return "Linear"
	case SamplerFilterBilinear:
		return "Bilinear"
	case SamplerFilterTrilinear:
		return "Trilinear"
	}
	return "Unknown"
}

// SamplerAddressMode selects texture coordinate wrapping behavior.
type SamplerAddressMode uint8

const (
	SamplerAddressModeClamp SamplerAddressMode = iota
	SamplerAddressModeRepeat
	SamplerAddressModeMirrorRepeat
)

func (m SamplerAddressMode) String() string {
	switch m {
	case SamplerAddressModeClamp:
		return "Clamp"
	case SamplerAddressModeRepeat:
		return "Repeat"
	case SamplerAddressModeMirrorRepeat:
		return "MirrorRepeat"
	}
	return "Unknown"
}

// DrawMode is the primitive topology of a draw call.
type DrawMode uint8

const (
	DrawModePointList DrawMode = iota
	DrawModeLineList
	DrawModeLineStrip
	DrawModeTriangleList
	DrawModeTriangleStrip
)

func (m DrawMode) String() string {
	switch m {
	case DrawModePointList:
		return "PointList"
	case DrawModeLineList:
		return "LineList"
	case DrawModeLineStrip:
		return "LineStrip"
	case DrawModeTriangleList:
		return "TriangleList"
	case DrawModeTriangleStrip:
		return "TriangleStrip"
	}
	return "Unknown"
}

// CullMode selects which triangle winding is discarded.
type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

func (m CullMode) String() string {
	switch m {
	case CullModeNone:
		return "None"
	case CullModeFront:
		return "Front"
	case CullModeBack:
		return "Back"
	}
	return "Unknown"
}

// FillMode selects solid or wireframe rasterization.
type FillMode uint8

const (
	FillModeSolid FillMode = iota
	FillModeWireframe
)

func (m FillMode) String() string {
	switch m {
	case FillModeSolid:
		return "Solid"
	case FillModeWireframe:
		return "Wireframe"
	}
	return "Unknown"
}

// BlendFactor is a source or destination multiplier in the blend equation.
type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorInvSrcColor
	BlendFactorSrcAlpha
	BlendFactorInvSrcAlpha
	BlendFactorDestColor
	BlendFactorInvDestColor
	BlendFactorDestAlpha
	BlendFactorInvDestAlpha
	BlendFactorSrcAlphaSaturate
)

// blendFactorNames maps BlendFactor values to their string representation.
var blendFactorNames = [...]string{
	BlendFactorZero:             "Zero",
	BlendFactorOne:              "One",
	BlendFactorSrcColor:         "SrcColor",
	BlendFactorInvSrcColor:      "InvSrcColor",
	BlendFactorSrcAlpha:         "SrcAlpha",
	BlendFactorInvSrcAlpha:      "InvSrcAlpha",
	BlendFactorDestColor:        "DestColor",
	BlendFactorInvDestColor:     "InvDestColor",
	BlendFactorDestAlpha:        "DestAlpha",
	BlendFactorInvDestAlpha:     "InvDestAlpha",
	BlendFactorSrcAlphaSaturate: "SrcAlphaSaturate",
}

func (f BlendFactor) String() string {
	if int(f) < len(blendFactorNames) {
		return blendFactorNames[f]
	}
	return "Unknown"
}

// BlendOperation combines the weighted source and destination terms.
type BlendOperation uint8

const (
	BlendOperationAdd BlendOperation = iota
	BlendOperationSubtract
	BlendOperationReverseSubtract
	BlendOperationMin
	BlendOperationMax
)

func (o BlendOperation) String() string {
	switch o {
	case BlendOperationAdd:
		return "Add"
	case BlendOperationSubtract:
		return "Subtract"
	case BlendOperationReverseSubtract:
		return "ReverseSubtract"
	case BlendOperationMin:
		return "Min"
	case BlendOperationMax:
		return "Max"
	}
	return "Unknown"
}

// ColorMask restricts which channels a draw writes.
type ColorMask uint8

const (
	ColorMaskRed ColorMask = 1 << iota
	ColorMaskGreen
	ColorMaskBlue
	ColorMaskAlpha

	ColorMaskAll = ColorMaskRed | ColorMaskGreen | ColorMaskBlue | ColorMaskAlpha
)

// CompareFunction is a depth or stencil comparison.
type CompareFunction uint8

const (
	CompareFunctionNever CompareFunction = iota
	CompareFunctionLess
	CompareFunctionEqual
	CompareFunctionLessEqual
	CompareFunctionGreater
	CompareFunctionNotEqual
	CompareFunctionGreaterEqual
	CompareFunctionAlways
)

// compareFunctionNames maps CompareFunction values to their string
// representation.
var compareFunctionNames = [...]string{
	CompareFunctionNever:        "Never",
	CompareFunctionLess:         "Less",
	CompareFunctionEqual:        "Equal",
	CompareFunctionLessEqual:    "LessEqual",
	CompareFunctionGreater:      "Greater",
	CompareFunctionNotEqual:     "NotEqual",
	CompareFunctionGreaterEqual: "GreaterEqual",
	CompareFunctionAlways:       "Always",
}

func (f CompareFunction) String() string {
	if int(f) < len(compareFunctionNames) {
		return compareFunctionNames[f]
	}
	return "Unknown"
}

// StencilOperation updates the stencil buffer after a test.
type StencilOperation uint8

const (
	StencilOperationKeep StencilOperation = iota
	StencilOperationZero
	StencilOperationReplace
	StencilOperationIncrementClamp
	StencilOperationDecrementClamp
	StencilOperationInvert
	StencilOperationIncrementWrap
	StencilOperationDecrementWrap
)

// stencilOperationNames maps StencilOperation values to their string
// representation.
var stencilOperationNames = [...]string{
	StencilOperationKeep:           "Keep",
	StencilOperationZero:           "Zero",
	StencilOperationReplace:        "Replace",
	StencilOperationIncrementClamp: "IncrementClamp",
	StencilOperationDecrementClamp: "DecrementClamp",
	StencilOperationInvert:         "Invert",
	StencilOperationIncrementWrap:  "IncrementWrap",
	StencilOperationDecrementWrap:  "DecrementWrap",
}

func (o StencilOperation) String() string {
	if int(o) < len(stencilOperationNames) {
		return stencilOperationNames[o]
	}
	return "Unknown"
}

// StencilDescriptor is the per-face stencil behavior of a depth/stencil
// state.
type StencilDescriptor struct {
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	PassOp      StencilOperation
	Compare     CompareFunction
}

// VertexAttributeUsage names the semantic of a vertex attribute.
type VertexAttributeUsage uint8

const (
	VertexAttributeUsagePosition VertexAttributeUsage = iota
	VertexAttributeUsageNormal
	VertexAttributeUsageColor
	VertexAttributeUsageTextureCoordinates0
	VertexAttributeUsageTextureCoordinates1
)

func (u VertexAttributeUsage) String() string {
	switch u {
	case VertexAttributeUsagePosition:
		return "Position"
	case VertexAttributeUsageNormal:
		return "Normal"
	case VertexAttributeUsageColor:
		return "Color"
	case VertexAttributeUsageTextureCoordinates0:
		return "TextureCoordinates0"
	case VertexAttributeUsageTextureCoordinates1:
		return "TextureCoordinates1"
	}
	return "Unknown"
}

// VertexDataType is the component layout of a vertex attribute.
type VertexDataType uint8

const (
	VertexDataTypeFloat VertexDataType = iota
	VertexDataTypeFloatVector2
	VertexDataTypeFloatVector3
	VertexDataTypeFloatVector4
	VertexDataTypeByteVector4Norm
	VertexDataTypeUintVector4
)

// Bytes returns the storage size of one attribute of this type.
func (t VertexDataType) Bytes() uint32 {
	switch t {
	case VertexDataTypeFloat:
		return 4
	case VertexDataTypeFloatVector2:
		return 8
	case VertexDataTypeFloatVector3:
		return 12
	case VertexDataTypeFloatVector4, VertexDataTypeUintVector4:
		return 16
	case VertexDataTypeByteVector4Norm:
		return 4
	}
	return 0
}

// VertexAttribute describes one element of a shader's vertex input layout.
// Attributes are tightly packed in declaration order; offsets are implied.
type VertexAttribute struct {
	Usage VertexAttributeUsage
	Type  VertexDataType
}

// ConstantInfo declares one shader constant block: its binding name and its
// size in bytes. SetShaderConstantsCommand payloads are validated against
// the declared sizes at execution time.
type ConstantInfo struct {
	Name string
	Size uint32
}

// Rect is an axis-aligned rectangle in framebuffer coordinates.
type Rect struct {
	X, Y          float32
	Width, Height float32
}

// Color is a normalized RGBA color.
type Color struct {
	R, G, B, A float32
}

// TextureLevel is one mip level of texture data. Data may be nil for
// textures that are only ever rendered to.
type TextureLevel struct {
	Width  uint32
	Height uint32
	Data   []byte
}
