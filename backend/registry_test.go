package backend

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/renderdev"
)

// stubExecutor is a minimal executor for registry tests.
type stubExecutor struct{ name string }

func (s *stubExecutor) Init(renderdev.Settings) error                  { return nil }
func (s *stubExecutor) Destroy()                                       {}
func (s *stubExecutor) Resize(uint32, uint32) error                    { return nil }
func (s *stubExecutor) CreateBuffer(*renderdev.Buffer) error           { return nil }
func (s *stubExecutor) UploadBuffer(*renderdev.Buffer) error           { return nil }
func (s *stubExecutor) CreateTexture(*renderdev.Texture) error         { return nil }
func (s *stubExecutor) UploadTexture(*renderdev.Texture) error         { return nil }
func (s *stubExecutor) SetTextureSampler(*renderdev.Texture) error     { return nil }
func (s *stubExecutor) CreateShader(*renderdev.Shader) error           { return nil }
func (s *stubExecutor) CreateBlendState(*renderdev.BlendState) error   { return nil }
func (s *stubExecutor) CreateDepthStencilState(*renderdev.DepthStencilState) error {
	return nil
}
func (s *stubExecutor) CreateRenderTarget(*renderdev.RenderTarget, []*renderdev.Texture, *renderdev.Texture) error {
	return nil
}
func (s *stubExecutor) ResolveRenderTarget(*renderdev.RenderTarget) error { return nil }
func (s *stubExecutor) DestroyResource(renderdev.Handle)                  {}
func (s *stubExecutor) SetRenderTarget(*renderdev.RenderTarget) error     { return nil }
func (s *stubExecutor) Clear(_, _, _ bool, _ renderdev.Color, _ float32, _ uint32) error {
	return nil
}
func (s *stubExecutor) SetViewport(renderdev.Rect) error    { return nil }
func (s *stubExecutor) SetScissor(bool, renderdev.Rect) error { return nil }
func (s *stubExecutor) SetRasterizerState(uint32) error     { return nil }
func (s *stubExecutor) SetPipeline(*renderdev.BlendState, *renderdev.Shader) error { return nil }
func (s *stubExecutor) SetDepthStencilState(*renderdev.DepthStencilState, uint32) error {
	return nil
}
func (s *stubExecutor) SetConstants(_, _ [][]float32) error     { return nil }
func (s *stubExecutor) BindTextures([]*renderdev.Texture) error { return nil }
func (s *stubExecutor) DrawIndexed(_ renderdev.DrawMode, _, _, _ uint32, _, _ *renderdev.Buffer) error {
	return nil
}
func (s *stubExecutor) Blit(_ *renderdev.Texture, _ uint32, _ renderdev.Rect, _ *renderdev.Texture, _, _, _ uint32) error {
	return nil
}
func (s *stubExecutor) PushDebugMarker(string) {}
func (s *stubExecutor) PopDebugMarker()        {}
func (s *stubExecutor) ReadBackbuffer() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}
func (s *stubExecutor) Present() error { return nil }

func TestRegisterAndGet(t *testing.T) {
	Register("test-stub", func() renderdev.Executor { return &stubExecutor{name: "test-stub"} })
	defer Unregister("test-stub")

	if !IsRegistered("test-stub") {
		t.Error("IsRegistered(test-stub) = false after Register")
	}
	if exec := Get("test-stub"); exec == nil {
		t.Error("Get(test-stub) = nil")
	}
}

func TestGetUnknown(t *testing.T) {
	if exec := Get("does-not-exist"); exec != nil {
		t.Errorf("Get(does-not-exist) = %v, want nil", exec)
	}
}

func TestUnregister(t *testing.T) {
	Register("test-gone", func() renderdev.Executor { return &stubExecutor{} })
	Unregister("test-gone")
	if IsRegistered("test-gone") {
		t.Error("backend still registered after Unregister")
	}
}

func TestAvailable(t *testing.T) {
	Register("test-avail", func() renderdev.Executor { return &stubExecutor{} })
	defer Unregister("test-avail")

	found := false
	for _, name := range Available() {
		if name == "test-avail" {
			found = true
		}
	}
	if !found {
		t.Errorf("Available() = %v, missing test-avail", Available())
	}
}

func TestDefaultFallsBackToAnyRegistered(t *testing.T) {
	Register("test-fallback", func() renderdev.Executor { return &stubExecutor{} })
	defer Unregister("test-fallback")

	if exec := Default(); exec == nil {
		t.Error("Default() = nil with a registered backend")
	}
}

func TestNewDeviceUnknownBackend(t *testing.T) {
	_, err := NewDevice("does-not-exist", renderdev.DefaultSettings())
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("NewDevice(does-not-exist) = %v, want ErrBackendNotAvailable", err)
	}
}

func TestNewDeviceNamed(t *testing.T) {
	Register("test-device", func() renderdev.Executor { return &stubExecutor{} })
	defer Unregister("test-device")

	d, err := NewDevice("test-device", renderdev.DefaultSettings())
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
