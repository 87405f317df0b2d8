package renderdev

import "errors"

// Configuration errors. These signal invalid data supplied by the caller
// and are never retried; at execution time they abort the offending
// buffer's frame.
var (
	// ErrInvalidIndexSize is returned for index sizes other than 2 or 4.
	ErrInvalidIndexSize = errors.New("renderdev: invalid index size")

	// ErrInvalidDrawMode is returned for an unrecognized primitive topology.
	ErrInvalidDrawMode = errors.New("renderdev: invalid draw mode")

	// ErrInvalidCullMode is returned for an unrecognized cull mode.
	ErrInvalidCullMode = errors.New("renderdev: invalid cull mode")

	// ErrInvalidFillMode is returned for an unrecognized fill mode.
	ErrInvalidFillMode = errors.New("renderdev: invalid fill mode")

	// ErrInvalidSettings is returned by New for out-of-range settings.
	ErrInvalidSettings = errors.New("renderdev: invalid settings")

	// ErrConstantSizeMismatch is returned when a shader constant block's
	// byte size does not match the shader's declared layout.
	ErrConstantSizeMismatch = errors.New("renderdev: shader constant size mismatch")

	// ErrUnsupportedFormat is returned for pixel formats the operation
	// cannot handle (for example CPU mip generation of non-RGBA8 data).
	ErrUnsupportedFormat = errors.New("renderdev: unsupported pixel format")

	// ErrEmptyShaderSource is returned by InitShader when either stage's
	// source is empty.
	ErrEmptyShaderSource = errors.New("renderdev: empty shader source")
)

// Caller-contract violations. Drawing through a null or never-initialized
// handle fails loudly rather than silently skipping the draw.
var (
	// ErrNullResource is returned when a command references handle 0 or a
	// tombstoned slot where a live resource is required.
	ErrNullResource = errors.New("renderdev: null resource")

	// ErrWrongResourceType is returned when a handle resolves to a
	// resource of a different kind than the command expects.
	ErrWrongResourceType = errors.New("renderdev: wrong resource type")
)

// Device lifecycle errors.
var (
	// ErrDeviceClosed is returned for operations on a closed device.
	ErrDeviceClosed = errors.New("renderdev: device closed")
)
