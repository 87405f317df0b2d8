// Package wgpu implements the renderdev executor contract on the
// gogpu/wgpu hardware abstraction layer.
//
// The executor owns a hal.Device and hal.Queue, either created standalone
// over the Vulkan backend or shared from an external provider (see
// [Executor.SetDeviceProvider]). Commands are translated into WebGPU-style
// render passes: state-setting commands accumulate pass state, the render
// pass itself begins lazily at the first draw, and a present submits the
// encoded work and waits for the submission to complete.
//
// Shader sources are WGSL; they are compiled to SPIR-V through gogpu/naga
// at shader creation time.
//
// The package registers itself under the name "wgpu":
//
//	import _ "github.com/gogpu/renderdev/backend/wgpu"
package wgpu
