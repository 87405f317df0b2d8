// Package renderdev implements a render-device command pipeline: a producer
// side records backend-agnostic drawing commands into command buffers, and a
// dedicated render goroutine dequeues and executes them against one concrete
// graphics backend.
//
// The design separates three concerns:
//
//   - Commands ([Command], [CommandBuffer]) are the serializable instruction
//     set: resource creation, state changes, indexed draws, and present.
//   - The [Device] owns the resource table, the command queue, and the render
//     goroutine. Producer-facing methods only allocate handles and enqueue
//     commands; native GPU state is touched exclusively by the render
//     goroutine.
//   - The [Executor] contract is the per-native-API translation layer.
//     Implementations live under backend/ and are selected through the
//     backend registry.
//
// # Threading model
//
// Every Device runs exactly one render goroutine, created by [New] and torn
// down by [Device.Close]. Producer calls are enqueue-only and may come from
// any goroutine. The resource table and all native backend objects belong to
// the render goroutine; the only state shared between the two sides is the
// per-resource dirty flag (an atomic) and the command queue channel.
//
// # Example
//
//	exec := noop.New()
//	dev, err := renderdev.New(exec, renderdev.DefaultSettings())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	vb, _ := dev.InitBuffer(renderdev.BufferUsageVertex, renderdev.FlagDynamic, vertices)
//	ib, _ := dev.InitBuffer(renderdev.BufferUsageIndex, 0, indices)
//
//	var buf renderdev.CommandBuffer
//	buf.Push(&renderdev.SetPipelineStateCommand{Shader: shader})
//	buf.Push(&renderdev.DrawCommand{
//	    VertexBuffer: vb, IndexBuffer: ib,
//	    IndexSize: 2, Mode: renderdev.DrawModeTriangleList,
//	})
//	buf.Push(&renderdev.PresentCommand{})
//	dev.Submit(&buf)
package renderdev
