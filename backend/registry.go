package backend

import (
	"fmt"
	"sync"

	"github.com/gogpu/renderdev"
)

// Factory creates a new executor instance.
type Factory func() renderdev.Executor

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// Wgpu > Noop (hardware first, noop is the headless fallback).
	backendPriority = []string{BackendWgpu, BackendNoop}
)

// Register registers an executor factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns a list of registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns an executor instance by name.
// Returns nil if the backend is not registered.
func Get(name string) renderdev.Executor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available executor based on priority.
// Priority order: wgpu > noop.
// Returns nil if no backends are registered.
func Default() renderdev.Executor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			if e := factory(); e != nil {
				return e
			}
		}
	}

	// Fallback: return first available
	for _, factory := range backends {
		if e := factory(); e != nil {
			return e
		}
	}

	return nil
}

// MustDefault returns the default executor or panics.
func MustDefault() renderdev.Executor {
	e := Default()
	if e == nil {
		panic("backend: no backend available")
	}
	return e
}

// NewDevice creates a render device over the named backend, or the best
// available backend when name is empty.
func NewDevice(name string, settings renderdev.Settings) (*renderdev.Device, error) {
	var exec renderdev.Executor
	if name == "" {
		exec = Default()
	} else {
		exec = Get(name)
	}
	if exec == nil {
		if name == "" {
			return nil, fmt.Errorf("%w: no backends registered", ErrBackendNotAvailable)
		}
		return nil, fmt.Errorf("%w: %s", ErrBackendNotAvailable, name)
	}
	return renderdev.New(exec, settings)
}
