// Package noop provides a no-op executor for headless operation.
//
// Every command is accepted and succeeds without touching any graphics
// API. The backbuffer is simulated as a blank image so the screenshot
// path still works. The package registers itself under the name "noop":
//
//	import _ "github.com/gogpu/renderdev/backend/noop"
package noop

import (
	"image"

	"github.com/gogpu/renderdev"
	"github.com/gogpu/renderdev/backend"
)

func init() {
	backend.Register(backend.BackendNoop, func() renderdev.Executor {
		return New()
	})
}

// Executor accepts every command and does nothing. It tracks the
// backbuffer dimensions so ReadBackbuffer returns an image of the right
// size.
type Executor struct {
	width  uint32
	height uint32
}

// Interface compliance check.
var _ renderdev.Executor = (*Executor)(nil)

// New returns a no-op executor.
func New() *Executor { return &Executor{} }

// Init records the backbuffer dimensions.
func (e *Executor) Init(settings renderdev.Settings) error {
	e.width = settings.Width
	e.height = settings.Height
	return nil
}

// Destroy does nothing.
func (e *Executor) Destroy() {}

// Resize records the new backbuffer dimensions.
func (e *Executor) Resize(width, height uint32) error {
	e.width = width
	e.height = height
	return nil
}

func (e *Executor) CreateBuffer(*renderdev.Buffer) error   { return nil }
func (e *Executor) UploadBuffer(*renderdev.Buffer) error   { return nil }
func (e *Executor) CreateTexture(*renderdev.Texture) error { return nil }
func (e *Executor) UploadTexture(*renderdev.Texture) error { return nil }

func (e *Executor) SetTextureSampler(*renderdev.Texture) error { return nil }

func (e *Executor) CreateShader(*renderdev.Shader) error                       { return nil }
func (e *Executor) CreateBlendState(*renderdev.BlendState) error               { return nil }
func (e *Executor) CreateDepthStencilState(*renderdev.DepthStencilState) error { return nil }

func (e *Executor) CreateRenderTarget(*renderdev.RenderTarget, []*renderdev.Texture, *renderdev.Texture) error {
	return nil
}

func (e *Executor) ResolveRenderTarget(*renderdev.RenderTarget) error { return nil }

func (e *Executor) DestroyResource(renderdev.Handle) {}

func (e *Executor) SetRenderTarget(*renderdev.RenderTarget) error { return nil }

func (e *Executor) Clear(_, _, _ bool, _ renderdev.Color, _ float32, _ uint32) error { return nil }

func (e *Executor) SetViewport(renderdev.Rect) error      { return nil }
func (e *Executor) SetScissor(bool, renderdev.Rect) error { return nil }
func (e *Executor) SetRasterizerState(uint32) error       { return nil }

func (e *Executor) SetPipeline(*renderdev.BlendState, *renderdev.Shader) error { return nil }

func (e *Executor) SetDepthStencilState(*renderdev.DepthStencilState, uint32) error { return nil }

func (e *Executor) SetConstants(_, _ [][]float32) error { return nil }

func (e *Executor) BindTextures([]*renderdev.Texture) error { return nil }

func (e *Executor) DrawIndexed(_ renderdev.DrawMode, _, _, _ uint32, _, _ *renderdev.Buffer) error {
	return nil
}

func (e *Executor) Blit(_ *renderdev.Texture, _ uint32, _ renderdev.Rect, _ *renderdev.Texture, _, _, _ uint32) error {
	return nil
}

func (e *Executor) PushDebugMarker(string) {}
func (e *Executor) PopDebugMarker()       {}

// ReadBackbuffer returns a blank image of the current backbuffer size.
func (e *Executor) ReadBackbuffer() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, int(e.width), int(e.height))), nil
}

// Present does nothing.
func (e *Executor) Present() error { return nil }
