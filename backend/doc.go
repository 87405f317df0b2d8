// Package backend provides a pluggable executor registry for renderdev.
//
// Each backend package implements the renderdev.Executor contract for one
// native graphics API and registers a factory via init(). Importing a
// backend package for its side effect makes it available:
//
//	import _ "github.com/gogpu/renderdev/backend/wgpu"
//	import _ "github.com/gogpu/renderdev/backend/noop"
//
// # Backend Selection
//
// Use Default() to get the best available executor, or Get() to request a
// specific backend by name:
//
//	exec := backend.Default()
//	if exec == nil {
//	    log.Fatal("no backend available")
//	}
//	dev, err := renderdev.New(exec, renderdev.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
// # Available Backends
//
//   - "wgpu": WebGPU hardware abstraction layer via gogpu/wgpu
//   - "noop": no-op executor for headless operation and tests
package backend
