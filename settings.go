package renderdev

import "fmt"

// Settings configures a Device at creation time.
type Settings struct {
	// Width and Height are the initial backbuffer dimensions in pixels.
	Width  uint32
	Height uint32

	// SampleCount is the MSAA sample count of the backbuffer. 1 disables
	// multisampling.
	SampleCount uint32

	// VerticalSync synchronizes presents with the display refresh.
	VerticalSync bool

	// Depth allocates a depth plane for the default target.
	Depth bool

	// Stencil allocates a stencil plane for the default target. Implies
	// a combined depth/stencil format when Depth is also set.
	Stencil bool

	// SRGB selects an sRGB backbuffer format.
	SRGB bool

	// Debug enables backend validation layers and debug markers where the
	// backend supports them.
	Debug bool

	// QueueCapacity bounds the command queue. A producer submitting to a
	// full queue blocks until the render goroutine drains a buffer.
	QueueCapacity int
}

// DefaultSettings returns settings suitable for a windowed device:
// 800x600, no multisampling, vsync on, depth on, a queue of 16 buffers.
func DefaultSettings() Settings {
	return Settings{
		Width:         800,
		Height:        600,
		SampleCount:   1,
		VerticalSync:  true,
		Depth:         true,
		QueueCapacity: 16,
	}
}

// validate rejects out-of-range settings before any backend work happens.
func (s Settings) validate() error {
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("%w: zero dimensions %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if s.SampleCount == 0 || s.SampleCount&(s.SampleCount-1) != 0 {
		return fmt.Errorf("%w: sample count %d is not a power of two", ErrInvalidSettings, s.SampleCount)
	}
	if s.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidSettings, s.QueueCapacity)
	}
	return nil
}
