package renderdev

// CommandType identifies the type of a command.
// Each command type corresponds to one render-device operation.
type CommandType uint8

const (
	// Frame and device commands
	CmdResize  CommandType = iota // Resize the backbuffer
	CmdPresent                    // Present the frame; terminates the buffer

	// Resource lifecycle commands
	CmdDeleteResource        // Release a resource and tombstone its slot
	CmdInitRenderTarget      // Create a render target
	CmdInitDepthStencilState // Create a depth/stencil state
	CmdInitBlendState        // Create a blend state
	CmdInitBuffer            // Create an index or vertex buffer
	CmdInitShader            // Create a shader program
	CmdInitTexture           // Create a texture

	// Resource mutation commands
	CmdSetBufferData        // Replace a buffer's contents
	CmdSetTextureData       // Replace a texture's level data
	CmdSetTextureParameters // Change a texture's sampler parameters

	// State commands
	CmdSetRenderTarget      // Select the active render target
	CmdClearRenderTarget    // Clear color/depth/stencil of the active target
	CmdSetScissorTest       // Enable or disable scissor testing
	CmdSetViewport          // Set the viewport rectangle
	CmdSetDepthStencilState // Select the active depth/stencil state
	CmdSetPipelineState     // Select blend state, shader, cull and fill mode
	CmdSetShaderConstants   // Supply shader constant blocks
	CmdSetTextures          // Bind the texture slots

	// Draw and transfer commands
	CmdDraw // Indexed draw call
	CmdBlit // Copy a texture region

	// Debug commands
	CmdPushDebugMarker // Open a named capture region
	CmdPopDebugMarker  // Close the innermost capture region
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdResize:                "Resize",
	CmdPresent:               "Present",
	CmdDeleteResource:        "DeleteResource",
	CmdInitRenderTarget:      "InitRenderTarget",
	CmdInitDepthStencilState: "InitDepthStencilState",
	CmdInitBlendState:        "InitBlendState",
	CmdInitBuffer:            "InitBuffer",
	CmdInitShader:            "InitShader",
	CmdInitTexture:           "InitTexture",
	CmdSetBufferData:         "SetBufferData",
	CmdSetTextureData:        "SetTextureData",
	CmdSetTextureParameters:  "SetTextureParameters",
	CmdSetRenderTarget:       "SetRenderTarget",
	CmdClearRenderTarget:     "ClearRenderTarget",
	CmdSetScissorTest:        "SetScissorTest",
	CmdSetViewport:           "SetViewport",
	CmdSetDepthStencilState:  "SetDepthStencilState",
	CmdSetPipelineState:      "SetPipelineState",
	CmdSetShaderConstants:    "SetShaderConstants",
	CmdSetTextures:           "SetTextures",
	CmdDraw:                  "Draw",
	CmdBlit:                  "Blit",
	CmdPushDebugMarker:       "PushDebugMarker",
	CmdPopDebugMarker:        "PopDebugMarker",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
// Commands carry only primitive and handle data; handles are resolved
// against the resource table at execution time on the render goroutine.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// ResizeCommand changes the backbuffer dimensions.
type ResizeCommand struct {
	Width  uint32
	Height uint32
}

func (*ResizeCommand) Type() CommandType { return CmdResize }

// PresentCommand resolves any active non-default render target, presents
// the frame, and terminates execution of the containing buffer. Commands
// placed after a present in the same buffer are dropped; producers should
// treat present as a hard terminator.
type PresentCommand struct{}

func (*PresentCommand) Type() CommandType { return CmdPresent }

// DeleteResourceCommand releases a resource's native state and tombstones
// its table slot. The slot index is never reclaimed within a session.
type DeleteResourceCommand struct {
	Resource Handle
}

func (*DeleteResourceCommand) Type() CommandType { return CmdDeleteResource }

// InitRenderTargetCommand creates a render target from previously
// initialized textures. DepthTexture may be NullHandle.
type InitRenderTargetCommand struct {
	RenderTarget  Handle
	ColorTextures []Handle
	DepthTexture  Handle
}

func (*InitRenderTargetCommand) Type() CommandType { return CmdInitRenderTarget }

// SetRenderTargetCommand selects the active render target. NullHandle
// restores the default (window backbuffer) target; a previously active
// non-default target is resolved before the switch.
type SetRenderTargetCommand struct {
	RenderTarget Handle
}

func (*SetRenderTargetCommand) Type() CommandType { return CmdSetRenderTarget }

// ClearRenderTargetCommand clears the selected planes of the active target.
type ClearRenderTargetCommand struct {
	ClearColorBuffer   bool
	ClearDepthBuffer   bool
	ClearStencilBuffer bool
	ClearColor         Color
	ClearDepth         float32
	ClearStencil       uint32
}

func (*ClearRenderTargetCommand) Type() CommandType { return CmdClearRenderTarget }

// BlitCommand copies a region of one texture level into another.
type BlitCommand struct {
	Source           Handle
	SourceLevel      uint32
	SourceRect       Rect
	Destination      Handle
	DestinationLevel uint32
	DestinationX     uint32
	DestinationY     uint32
}

func (*BlitCommand) Type() CommandType { return CmdBlit }

// SetScissorTestCommand enables or disables scissor testing. Rect is only
// meaningful while Enabled is true.
type SetScissorTestCommand struct {
	Enabled bool
	Rect    Rect
}

func (*SetScissorTestCommand) Type() CommandType { return CmdSetScissorTest }

// SetViewportCommand sets the viewport rectangle.
type SetViewportCommand struct {
	Rect Rect
}

func (*SetViewportCommand) Type() CommandType { return CmdSetViewport }

// InitDepthStencilStateCommand creates a depth/stencil state object.
type InitDepthStencilStateCommand struct {
	State            Handle
	DepthTest        bool
	DepthWrite       bool
	Compare          CompareFunction
	StencilEnabled   bool
	StencilReadMask  uint32
	StencilWriteMask uint32
	FrontFace        StencilDescriptor
	BackFace         StencilDescriptor
}

func (*InitDepthStencilStateCommand) Type() CommandType { return CmdInitDepthStencilState }

// SetDepthStencilStateCommand selects the active depth/stencil state.
// NullHandle restores the default state (no depth test, no stencil).
type SetDepthStencilStateCommand struct {
	State      Handle
	StencilRef uint32
}

func (*SetDepthStencilStateCommand) Type() CommandType { return CmdSetDepthStencilState }

// SetPipelineStateCommand selects the blend state and shader for subsequent
// draws and updates the cull-mode and fill-mode axes of the rasterizer
// state. BlendState may be NullHandle for opaque rendering.
type SetPipelineStateCommand struct {
	BlendState Handle
	Shader     Handle
	CullMode   CullMode
	FillMode   FillMode
}

func (*SetPipelineStateCommand) Type() CommandType { return CmdSetPipelineState }

// DrawCommand issues an indexed draw. Both buffer handles must be non-null,
// initialized, and non-empty. IndexCount of zero draws from StartIndex to
// the end of the index buffer.
type DrawCommand struct {
	VertexBuffer Handle
	IndexBuffer  Handle
	IndexSize    uint32
	IndexCount   uint32
	StartIndex   uint32
	Mode         DrawMode
}

func (*DrawCommand) Type() CommandType { return CmdDraw }

// PushDebugMarkerCommand opens a named region in capture tools. Backends
// without marker support no-op.
type PushDebugMarkerCommand struct {
	Name string
}

func (*PushDebugMarkerCommand) Type() CommandType { return CmdPushDebugMarker }

// PopDebugMarkerCommand closes the innermost debug region.
type PopDebugMarkerCommand struct{}

func (*PopDebugMarkerCommand) Type() CommandType { return CmdPopDebugMarker }

// InitBlendStateCommand creates a blend state object.
type InitBlendStateCommand struct {
	BlendState       Handle
	Enabled          bool
	ColorSource      BlendFactor
	ColorDestination BlendFactor
	ColorOperation   BlendOperation
	AlphaSource      BlendFactor
	AlphaDestination BlendFactor
	AlphaOperation   BlendOperation
	ColorMask        ColorMask
}

func (*InitBlendStateCommand) Type() CommandType { return CmdInitBlendState }

// InitBufferCommand creates an index or vertex buffer. Data may be nil for
// buffers that are filled later via SetBufferDataCommand.
type InitBufferCommand struct {
	Buffer Handle
	Usage  BufferUsage
	Flags  ResourceFlags
	Data   []byte
}

func (*InitBufferCommand) Type() CommandType { return CmdInitBuffer }

// SetBufferDataCommand replaces a buffer's contents and marks it dirty;
// the upload to native state happens before the next draw that consumes it.
type SetBufferDataCommand struct {
	Buffer Handle
	Data   []byte
}

func (*SetBufferDataCommand) Type() CommandType { return CmdSetBufferData }

// InitShaderCommand creates a shader program from fragment and vertex
// source, with the vertex input layout and the per-stage constant block
// declarations.
type InitShaderCommand struct {
	Shader            Handle
	FragmentSource    []byte
	VertexSource      []byte
	VertexAttributes  []VertexAttribute
	FragmentConstants []ConstantInfo
	VertexConstants   []ConstantInfo
}

func (*InitShaderCommand) Type() CommandType { return CmdInitShader }

// SetShaderConstantsCommand supplies constant block payloads for the
// active shader. Each block's byte size must exactly match the shader's
// declaration for that stage and slot; mismatches fail the frame.
type SetShaderConstantsCommand struct {
	FragmentConstants [][]float32
	VertexConstants   [][]float32
}

func (*SetShaderConstantsCommand) Type() CommandType { return CmdSetShaderConstants }

// InitTextureCommand creates a texture from per-level data. Levels must be
// ordered base first; level dimensions halve per step.
type InitTextureCommand struct {
	Texture       Handle
	Levels        []TextureLevel
	TextureType   TextureType
	Flags         ResourceFlags
	SampleCount   uint32
	PixelFormat   PixelFormat
	Filter        SamplerFilter
	MaxAnisotropy uint32
}

func (*InitTextureCommand) Type() CommandType { return CmdInitTexture }

// SetTextureDataCommand replaces a texture's level data and marks it dirty.
type SetTextureDataCommand struct {
	Texture Handle
	Levels  []TextureLevel
}

func (*SetTextureDataCommand) Type() CommandType { return CmdSetTextureData }

// SetTextureParametersCommand changes a texture's sampler parameters.
type SetTextureParametersCommand struct {
	Texture       Handle
	Filter        SamplerFilter
	AddressX      SamplerAddressMode
	AddressY      SamplerAddressMode
	AddressZ      SamplerAddressMode
	MaxAnisotropy uint32
}

func (*SetTextureParametersCommand) Type() CommandType { return CmdSetTextureParameters }

// SetTexturesCommand binds the texture slots in order. NullHandle entries
// unbind a slot.
type SetTexturesCommand struct {
	Textures []Handle
}

func (*SetTexturesCommand) Type() CommandType { return CmdSetTextures }

// CommandBuffer is an ordered FIFO batch of commands representing one
// producer-side unit of work, normally terminated by a PresentCommand.
// A buffer is consumed atomically by the render goroutine; its commands
// are never interleaved with another buffer's.
//
// The zero value is an empty buffer ready for use. A CommandBuffer is not
// safe for concurrent use; it belongs to the producer until submitted and
// to the render goroutine afterwards.
type CommandBuffer struct {
	commands []Command
	head     int
}

// NewCommandBuffer returns an empty command buffer with capacity for n
// commands.
func NewCommandBuffer(n int) *CommandBuffer {
	return &CommandBuffer{commands: make([]Command, 0, n)}
}

// Push appends a command to the tail of the buffer.
func (b *CommandBuffer) Push(cmd Command) {
	b.commands = append(b.commands, cmd)
}

// Pop removes and returns the command at the head of the buffer.
// The second return value is false when the buffer is empty.
func (b *CommandBuffer) Pop() (Command, bool) {
	if b.head >= len(b.commands) {
		return nil, false
	}
	cmd := b.commands[b.head]
	b.commands[b.head] = nil
	b.head++
	return cmd, true
}

// Empty reports whether the buffer has no commands left to consume.
func (b *CommandBuffer) Empty() bool {
	return b.head >= len(b.commands)
}

// Len returns the number of commands left to consume.
func (b *CommandBuffer) Len() int {
	return len(b.commands) - b.head
}
