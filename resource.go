package renderdev

import "sync/atomic"

// Resource is the lifecycle contract shared by every GPU-backed object.
// Concrete resources (Buffer, Texture, Shader, BlendState,
// DepthStencilState, RenderTarget) hold only logical state; the native
// object lives inside the executor, keyed by the resource's handle.
//
// The dirty flag is the single coordination point between producer
// mutation and render-goroutine consumption: producer-enqueued mutation
// commands set it when they execute, and only the render goroutine clears
// it after a successful upload.
type Resource interface {
	// Handle returns the resource's slot handle in the device table.
	Handle() Handle

	// Dirty reports whether native state is stale relative to the last
	// mutation. Safe to call from any goroutine.
	Dirty() bool

	// upload synchronizes logical state into the executor's native object
	// and clears the dirty flag on success. Render goroutine only.
	upload(exec Executor) error

	// free releases the native object. Idempotent. Render goroutine only.
	free(exec Executor)
}

// resourceState is the base embedded by every concrete resource.
type resourceState struct {
	handle Handle
	dirty  atomic.Bool
	freed  bool
}

func (r *resourceState) Handle() Handle { return r.handle }

func (r *resourceState) Dirty() bool { return r.dirty.Load() }

func (r *resourceState) markDirty() { r.dirty.Store(true) }

func (r *resourceState) clearDirty() { r.dirty.Store(false) }

func (r *resourceState) free(exec Executor) {
	if r.freed {
		return
	}
	r.freed = true
	exec.DestroyResource(r.handle)
}

// resourceTable maps handles to owned resources. Slot index is handle-1.
// Growth is monotonic: deleted slots are tombstoned (nil) and never
// reclaimed within a session, so a stale handle can never alias a newer
// resource. The table belongs to the render goroutine.
type resourceTable struct {
	slots []Resource
}

// put stores a resource under its handle, growing the table as needed.
func (t *resourceTable) put(r Resource) {
	idx := int(r.Handle()) - 1
	for idx >= len(t.slots) {
		t.slots = append(t.slots, nil)
	}
	t.slots[idx] = r
}

// get resolves a handle. Returns nil for the null handle, a tombstoned
// slot, or a handle past the table's end.
func (t *resourceTable) get(h Handle) Resource {
	idx := int(h) - 1
	if idx < 0 || idx >= len(t.slots) {
		return nil
	}
	return t.slots[idx]
}

// remove tombstones a slot and returns the resource that occupied it.
func (t *resourceTable) remove(h Handle) Resource {
	idx := int(h) - 1
	if idx < 0 || idx >= len(t.slots) {
		return nil
	}
	r := t.slots[idx]
	t.slots[idx] = nil
	return r
}

// len returns the number of slots ever allocated, live or tombstoned.
func (t *resourceTable) len() int { return len(t.slots) }
