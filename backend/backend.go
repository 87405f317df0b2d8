package backend

import (
	"errors"
)

// Backend name constants.
const (
	// BackendWgpu is the name of the WebGPU backend (gogpu/wgpu hal).
	BackendWgpu = "wgpu"
	// BackendNoop is the name of the no-op backend used for headless
	// operation and tests.
	BackendNoop = "noop"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)
