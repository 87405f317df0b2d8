package renderdev

import "fmt"

// Buffer is an index or vertex buffer. It holds the latest producer-side
// bytes; the native copy is refreshed lazily before the next draw that
// consumes it.
type Buffer struct {
	resourceState
	usage BufferUsage
	flags ResourceFlags
	data  []byte
}

// newBuffer creates the logical buffer at init-command execution time.
// Buffers start dirty so the first consuming draw uploads the initial data.
func newBuffer(h Handle, usage BufferUsage, flags ResourceFlags, data []byte) *Buffer {
	b := &Buffer{
		resourceState: resourceState{handle: h},
		usage:         usage,
		flags:         flags,
		data:          data,
	}
	b.markDirty()
	return b
}

// Usage returns what the buffer holds.
func (b *Buffer) Usage() BufferUsage { return b.usage }

// Flags returns the creation flags.
func (b *Buffer) Flags() ResourceFlags { return b.flags }

// Data returns the current logical contents. Callers must not mutate the
// returned slice.
func (b *Buffer) Data() []byte { return b.data }

// Size returns the logical size in bytes.
func (b *Buffer) Size() uint32 { return uint32(len(b.data)) }

// setData replaces the logical contents and marks the buffer dirty.
// Render goroutine only, via SetBufferDataCommand.
func (b *Buffer) setData(data []byte) {
	b.data = data
	b.markDirty()
}

func (b *Buffer) upload(exec Executor) error {
	if err := exec.UploadBuffer(b); err != nil {
		return fmt.Errorf("upload buffer %d: %w", b.handle, err)
	}
	b.clearDirty()
	return nil
}
