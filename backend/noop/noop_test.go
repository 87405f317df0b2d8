package noop

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/renderdev"
	"github.com/gogpu/renderdev/backend"
)

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendNoop) {
		t.Fatal("noop backend not registered")
	}
	if exec := backend.Get(backend.BackendNoop); exec == nil {
		t.Error("Get(noop) = nil")
	}
}

func TestReadBackbufferSize(t *testing.T) {
	e := New()
	settings := renderdev.DefaultSettings()
	settings.Width = 320
	settings.Height = 240
	if err := e.Init(settings); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	defer e.Destroy()

	img, err := e.ReadBackbuffer()
	if err != nil {
		t.Fatalf("ReadBackbuffer() = %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("backbuffer = %v, want 320x240", img.Bounds())
	}

	if err := e.Resize(64, 32); err != nil {
		t.Fatalf("Resize() = %v", err)
	}
	img, err = e.ReadBackbuffer()
	if err != nil {
		t.Fatalf("ReadBackbuffer() = %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Errorf("backbuffer after resize = %v, want 64x32", img.Bounds())
	}
}

func TestDeviceSmoke(t *testing.T) {
	d, err := backend.NewDevice(backend.BackendNoop, renderdev.DefaultSettings())
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}

	if _, err := d.InitBuffer(renderdev.BufferUsageVertex, renderdev.FlagDynamic, []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("InitBuffer() = %v", err)
	}
	buf := renderdev.NewCommandBuffer(1)
	buf.Push(&renderdev.PresentCommand{})
	if err := d.Submit(buf); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

// TestAllCommandTypes runs every command variant through a device backed by
// the no-op executor and checks that none of them fails the frame.
func TestAllCommandTypes(t *testing.T) {
	var logBuf bytes.Buffer
	renderdev.SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))
	defer renderdev.SetLogger(nil)

	d, err := backend.NewDevice(backend.BackendNoop, renderdev.DefaultSettings())
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}

	vb, err := d.InitBuffer(renderdev.BufferUsageVertex, renderdev.FlagDynamic, make([]byte, 36))
	if err != nil {
		t.Fatalf("InitBuffer(vertex) = %v", err)
	}
	ib, err := d.InitBuffer(renderdev.BufferUsageIndex, 0, []byte{0, 0, 1, 0, 2, 0})
	if err != nil {
		t.Fatalf("InitBuffer(index) = %v", err)
	}
	pixels := make([]byte, 2*2*4)
	tex, err := d.InitTexture(
		[]renderdev.TextureLevel{{Width: 2, Height: 2, Data: pixels}},
		renderdev.TextureType2D, renderdev.FlagBindShader, 1,
		renderdev.PixelFormatRGBA8Unorm, renderdev.SamplerFilterLinear, 1)
	if err != nil {
		t.Fatalf("InitTexture() = %v", err)
	}
	target, err := d.InitTexture(
		[]renderdev.TextureLevel{{Width: 2, Height: 2}},
		renderdev.TextureType2D, renderdev.FlagBindRenderTarget, 1,
		renderdev.PixelFormatRGBA8Unorm, renderdev.SamplerFilterPoint, 1)
	if err != nil {
		t.Fatalf("InitTexture(target) = %v", err)
	}
	shader, err := d.InitShader([]byte("fs"), []byte("vs"),
		[]renderdev.VertexAttribute{
			{Usage: renderdev.VertexAttributeUsagePosition, Type: renderdev.VertexDataTypeFloatVector3},
		},
		[]renderdev.ConstantInfo{{Name: "color", Size: 16}},
		[]renderdev.ConstantInfo{{Name: "modelViewProj", Size: 64}})
	if err != nil {
		t.Fatalf("InitShader() = %v", err)
	}
	blend, err := d.InitBlendState(true,
		renderdev.BlendFactorSrcAlpha, renderdev.BlendFactorInvSrcAlpha, renderdev.BlendOperationAdd,
		renderdev.BlendFactorOne, renderdev.BlendFactorZero, renderdev.BlendOperationAdd,
		renderdev.ColorMaskAll)
	if err != nil {
		t.Fatalf("InitBlendState() = %v", err)
	}
	depth, err := d.InitDepthStencilState(true, true, renderdev.CompareFunctionLessEqual,
		false, 0xFF, 0xFF, renderdev.StencilDescriptor{}, renderdev.StencilDescriptor{})
	if err != nil {
		t.Fatalf("InitDepthStencilState() = %v", err)
	}
	rt, err := d.InitRenderTarget([]renderdev.Handle{target}, renderdev.NullHandle)
	if err != nil {
		t.Fatalf("InitRenderTarget() = %v", err)
	}
	if err := d.SetBufferData(vb, make([]byte, 36)); err != nil {
		t.Fatalf("SetBufferData() = %v", err)
	}
	if err := d.SetTextureData(tex, []renderdev.TextureLevel{{Width: 2, Height: 2, Data: pixels}}); err != nil {
		t.Fatalf("SetTextureData() = %v", err)
	}
	if err := d.SetTextureParameters(tex, renderdev.SamplerFilterTrilinear,
		renderdev.SamplerAddressModeRepeat, renderdev.SamplerAddressModeRepeat,
		renderdev.SamplerAddressModeClamp, 4); err != nil {
		t.Fatalf("SetTextureParameters() = %v", err)
	}

	buf := renderdev.NewCommandBuffer(20)
	buf.Push(&renderdev.PushDebugMarkerCommand{Name: "frame"})
	buf.Push(&renderdev.ResizeCommand{Width: 128, Height: 128})
	buf.Push(&renderdev.SetViewportCommand{Rect: renderdev.Rect{Width: 128, Height: 128}})
	buf.Push(&renderdev.SetScissorTestCommand{Enabled: true, Rect: renderdev.Rect{Width: 64, Height: 64}})
	buf.Push(&renderdev.SetScissorTestCommand{})
	buf.Push(&renderdev.SetRenderTargetCommand{RenderTarget: rt})
	buf.Push(&renderdev.ClearRenderTargetCommand{
		ClearColorBuffer: true,
		ClearColor:       renderdev.Color{R: 1, A: 1},
	})
	buf.Push(&renderdev.SetRenderTargetCommand{RenderTarget: renderdev.NullHandle})
	buf.Push(&renderdev.SetPipelineStateCommand{
		BlendState: blend,
		Shader:     shader,
		CullMode:   renderdev.CullModeBack,
		FillMode:   renderdev.FillModeSolid,
	})
	buf.Push(&renderdev.SetDepthStencilStateCommand{State: depth})
	buf.Push(&renderdev.SetShaderConstantsCommand{
		FragmentConstants: [][]float32{{1, 0, 0, 1}},
		VertexConstants: [][]float32{{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}},
	})
	buf.Push(&renderdev.SetTexturesCommand{Textures: []renderdev.Handle{tex}})
	buf.Push(&renderdev.DrawCommand{
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexSize:    2,
		Mode:         renderdev.DrawModeTriangleList,
	})
	buf.Push(&renderdev.BlitCommand{
		Source:      tex,
		SourceRect:  renderdev.Rect{Width: 2, Height: 2},
		Destination: target,
	})
	buf.Push(&renderdev.PopDebugMarkerCommand{})
	buf.Push(&renderdev.DeleteResourceCommand{Resource: blend})
	buf.Push(&renderdev.PresentCommand{})
	if err := d.Submit(buf); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if logs := logBuf.String(); strings.Contains(logs, "frame execution failed") {
		t.Errorf("frame failed:\n%s", logs)
	}
}
