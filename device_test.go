package renderdev

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// recordExecutor records every call the render goroutine makes, in
// order. Assertions run after Close, when the render goroutine has
// joined and the log is stable.
type recordExecutor struct {
	ops []string

	uploads        map[Handle]int
	textureUploads map[Handle]int
	samplerSets    map[Handle]int
	destroyed      []Handle

	draws    []drawRecord
	presents int

	failDraw   error
	failCreate error
}

type drawRecord struct {
	mode  DrawMode
	count uint32
	start uint32
}

func newRecordExecutor() *recordExecutor {
	return &recordExecutor{
		uploads:        make(map[Handle]int),
		textureUploads: make(map[Handle]int),
		samplerSets:    make(map[Handle]int),
	}
}

func (r *recordExecutor) record(format string, args ...any) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordExecutor) Init(Settings) error { r.record("Init"); return nil }
func (r *recordExecutor) Destroy()            { r.record("Destroy") }

func (r *recordExecutor) Resize(w, h uint32) error { r.record("Resize %dx%d", w, h); return nil }

func (r *recordExecutor) CreateBuffer(b *Buffer) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.record("CreateBuffer %d", b.Handle())
	return nil
}

func (r *recordExecutor) UploadBuffer(b *Buffer) error {
	r.uploads[b.Handle()]++
	r.record("UploadBuffer %d", b.Handle())
	return nil
}

func (r *recordExecutor) CreateTexture(t *Texture) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.record("CreateTexture %d levels=%d", t.Handle(), len(t.Levels()))
	return nil
}

func (r *recordExecutor) UploadTexture(t *Texture) error {
	r.textureUploads[t.Handle()]++
	r.record("UploadTexture %d", t.Handle())
	return nil
}

func (r *recordExecutor) SetTextureSampler(t *Texture) error {
	r.samplerSets[t.Handle()]++
	return nil
}

func (r *recordExecutor) CreateShader(s *Shader) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.record("CreateShader %d", s.Handle())
	return nil
}

func (r *recordExecutor) CreateBlendState(b *BlendState) error {
	r.record("CreateBlendState %d", b.Handle())
	return nil
}

func (r *recordExecutor) CreateDepthStencilState(d *DepthStencilState) error {
	r.record("CreateDepthStencilState %d", d.Handle())
	return nil
}

func (r *recordExecutor) CreateRenderTarget(rt *RenderTarget, colors []*Texture, depth *Texture) error {
	r.record("CreateRenderTarget %d colors=%d depth=%v", rt.Handle(), len(colors), depth != nil)
	return nil
}

func (r *recordExecutor) ResolveRenderTarget(rt *RenderTarget) error {
	r.record("ResolveRenderTarget %d", rt.Handle())
	return nil
}

func (r *recordExecutor) DestroyResource(h Handle) {
	r.destroyed = append(r.destroyed, h)
	r.record("DestroyResource %d", h)
}

func (r *recordExecutor) SetRenderTarget(rt *RenderTarget) error {
	if rt == nil {
		r.record("SetRenderTarget default")
	} else {
		r.record("SetRenderTarget %d", rt.Handle())
	}
	return nil
}

func (r *recordExecutor) Clear(color, depth, stencil bool, _ Color, _ float32, _ uint32) error {
	r.record("Clear color=%v depth=%v stencil=%v", color, depth, stencil)
	return nil
}

func (r *recordExecutor) SetViewport(Rect) error { r.record("SetViewport"); return nil }

func (r *recordExecutor) SetScissor(enabled bool, _ Rect) error {
	r.record("SetScissor %v", enabled)
	return nil
}

func (r *recordExecutor) SetRasterizerState(index uint32) error {
	r.record("SetRasterizerState %d", index)
	return nil
}

func (r *recordExecutor) SetPipeline(blend *BlendState, shader *Shader) error {
	r.record("SetPipeline blend=%v shader=%v", blend != nil, shader != nil)
	return nil
}

func (r *recordExecutor) SetDepthStencilState(state *DepthStencilState, ref uint32) error {
	r.record("SetDepthStencilState default=%v ref=%d", state == nil, ref)
	return nil
}

func (r *recordExecutor) SetConstants(fragment, vertex [][]float32) error {
	r.record("SetConstants fragment=%d vertex=%d", len(fragment), len(vertex))
	return nil
}

func (r *recordExecutor) BindTextures(textures []*Texture) error {
	r.record("BindTextures %d", len(textures))
	return nil
}

func (r *recordExecutor) DrawIndexed(mode DrawMode, _, count, start uint32, _, _ *Buffer) error {
	if r.failDraw != nil {
		return r.failDraw
	}
	r.draws = append(r.draws, drawRecord{mode: mode, count: count, start: start})
	r.record("DrawIndexed count=%d start=%d", count, start)
	return nil
}

func (r *recordExecutor) Blit(src *Texture, _ uint32, _ Rect, dst *Texture, _, _, _ uint32) error {
	r.record("Blit %d->%d", src.Handle(), dst.Handle())
	return nil
}

func (r *recordExecutor) PushDebugMarker(name string) { r.record("PushDebugMarker %s", name) }
func (r *recordExecutor) PopDebugMarker()             { r.record("PopDebugMarker") }

func (r *recordExecutor) ReadBackbuffer() (*image.RGBA, error) {
	r.record("ReadBackbuffer")
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (r *recordExecutor) Present() error {
	r.presents++
	r.record("Present")
	return nil
}

// opIndex returns the position of the first op containing substr, or -1.
func (r *recordExecutor) opIndex(substr string) int {
	for i, op := range r.ops {
		if strings.Contains(op, substr) {
			return i
		}
	}
	return -1
}

func newTestDevice(t *testing.T, rec *recordExecutor) *Device {
	t.Helper()
	d, err := New(rec, DefaultSettings())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return d
}

// initTestShader creates a shader with one vec4 constant block per stage
// and a position-only vertex layout.
func initTestShader(t *testing.T, d *Device) Handle {
	t.Helper()
	h, err := d.InitShader([]byte("fs"), []byte("vs"),
		[]VertexAttribute{{Usage: VertexAttributeUsagePosition, Type: VertexDataTypeFloatVector3}},
		[]ConstantInfo{{Name: "fragColor", Size: 16}},
		[]ConstantInfo{{Name: "modelViewProj", Size: 64}})
	if err != nil {
		t.Fatalf("InitShader() = %v", err)
	}
	return h
}

func TestDeviceLifecycle(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if got := rec.opIndex("Init"); got != 0 {
		t.Errorf("Init op at %d, want 0", got)
	}
	if rec.ops[len(rec.ops)-1] != "Destroy" {
		t.Errorf("last op = %q, want Destroy", rec.ops[len(rec.ops)-1])
	}
	if rec.presents != 1 {
		t.Errorf("presents = %d, want 1 (teardown present)", rec.presents)
	}
}

func TestDeviceCloseTwice(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	if err := d.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := d.Close(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("second Close() = %v, want ErrDeviceClosed", err)
	}
}

func TestDeviceNilExecutor(t *testing.T) {
	if _, err := New(nil, DefaultSettings()); err == nil {
		t.Error("New(nil, ...) should fail")
	}
}

func TestDeviceInvalidSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.Width = 0
	if _, err := New(newRecordExecutor(), settings); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("New() = %v, want ErrInvalidSettings", err)
	}
}

func TestDeviceInitFailure(t *testing.T) {
	rec := newRecordExecutor()
	boom := errors.New("no adapter")
	failing := &initFailExecutor{recordExecutor: rec, err: boom}
	if _, err := New(failing, DefaultSettings()); !errors.Is(err, boom) {
		t.Fatalf("New() = %v, want init error", err)
	}
}

type initFailExecutor struct {
	*recordExecutor
	err error
}

func (e *initFailExecutor) Init(Settings) error { return e.err }

func TestSubmitAfterClose(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	buf := NewCommandBuffer(1)
	buf.Push(&PresentCommand{})
	if err := d.Submit(buf); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Submit after Close = %v, want ErrDeviceClosed", err)
	}
	if _, err := d.InitBuffer(BufferUsageVertex, 0, nil); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("InitBuffer after Close = %v, want ErrDeviceClosed", err)
	}
}

func TestSubmitNilBuffer(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	defer d.Close()
	if err := d.Submit(nil); err == nil {
		t.Error("Submit(nil) should fail")
	}
}

func TestHandleAllocationMonotonic(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	defer d.Close()

	h1, err := d.InitBuffer(BufferUsageVertex, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := d.InitBuffer(BufferUsageIndex, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != 1 || h2 != 2 {
		t.Errorf("handles = %d, %d, want 1, 2", h1, h2)
	}

	// Deleting never frees a handle for reuse.
	if err := d.DeleteResource(h1); err != nil {
		t.Fatal(err)
	}
	h3, err := d.InitBuffer(BufferUsageVertex, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h3 != 3 {
		t.Errorf("handle after delete = %d, want 3", h3)
	}
}

func TestInitBufferInvalidUsage(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	defer d.Close()
	if _, err := d.InitBuffer(BufferUsage(99), 0, nil); err == nil {
		t.Error("InitBuffer with invalid usage should fail")
	}
}

func TestCrossBufferOrdering(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, 0, make([]byte, 6))
	shader := initTestShader(t, d)

	frame := NewCommandBuffer(3)
	frame.Push(&SetPipelineStateCommand{Shader: shader})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// Resource commands were submitted before the frame buffer, so their
	// native creation precedes the draw.
	create := rec.opIndex(fmt.Sprintf("CreateBuffer %d", vb))
	draw := rec.opIndex("DrawIndexed")
	if create == -1 || draw == -1 || create > draw {
		t.Errorf("CreateBuffer at %d, DrawIndexed at %d; create must come first", create, draw)
	}
	if len(rec.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(rec.draws))
	}
	if got := rec.draws[0]; got.count != 3 || got.start != 0 {
		t.Errorf("draw = %+v, want count=3 start=0", got)
	}
}

func TestPresentTerminatesBuffer(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	buf := NewCommandBuffer(3)
	buf.Push(&ClearRenderTargetCommand{ClearColorBuffer: true})
	buf.Push(&PresentCommand{})
	buf.Push(&SetViewportCommand{Rect: Rect{Width: 10, Height: 10}})
	if err := d.Submit(buf); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if rec.opIndex("Clear") == -1 {
		t.Error("Clear was not executed")
	}
	if rec.opIndex("SetViewport") != -1 {
		t.Error("command after present should have been dropped")
	}
	if rec.presents != 2 {
		t.Errorf("presents = %d, want 2 (frame + teardown)", rec.presents)
	}
}

func TestDirtyUploadOnce(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, FlagDynamic, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, FlagDynamic, make([]byte, 6))
	shader := initTestShader(t, d)

	frame := NewCommandBuffer(4)
	frame.Push(&SetPipelineStateCommand{Shader: shader})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}

	// New data re-dirties the buffer; the next draw re-uploads.
	if err := d.SetBufferData(vb, make([]byte, 36)); err != nil {
		t.Fatal(err)
	}
	frame2 := NewCommandBuffer(3)
	frame2.Push(&SetPipelineStateCommand{Shader: shader})
	frame2.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame2.Push(&PresentCommand{})
	if err := d.Submit(frame2); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if got := rec.uploads[vb]; got != 2 {
		t.Errorf("vertex buffer uploads = %d, want 2 (initial + after SetBufferData)", got)
	}
	if got := rec.uploads[ib]; got != 1 {
		t.Errorf("index buffer uploads = %d, want 1", got)
	}
	if len(rec.draws) != 3 {
		t.Errorf("draws = %d, want 3", len(rec.draws))
	}
}

func TestDrawWithoutShaderFailsFrame(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	var logBuf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, 0, make([]byte, 6))

	frame := NewCommandBuffer(2)
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}

	// The failed frame must not take the device down.
	next := NewCommandBuffer(2)
	next.Push(&ClearRenderTargetCommand{ClearColorBuffer: true})
	next.Push(&PresentCommand{})
	if err := d.Submit(next); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if len(rec.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(rec.draws))
	}
	if rec.opIndex("Clear") == -1 {
		t.Error("frame after the failed one did not execute")
	}
	if !strings.Contains(logBuf.String(), "frame execution failed") {
		t.Errorf("expected frame failure in log, got: %s", logBuf.String())
	}
}

func TestBufferErrorAbortsRemainder(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	frame := NewCommandBuffer(3)
	frame.Push(&DrawCommand{VertexBuffer: 99, IndexBuffer: 98, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&SetViewportCommand{Rect: Rect{Width: 1, Height: 1}})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// The invalid draw aborts the rest of its buffer, present included.
	if rec.opIndex("SetViewport") != -1 {
		t.Error("command after failing draw should not execute")
	}
	if rec.presents != 1 {
		t.Errorf("presents = %d, want 1 (teardown only)", rec.presents)
	}
}

func TestImplicitIndexCount(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, 0, make([]byte, 12)) // 6 uint16 indices
	shader := initTestShader(t, d)

	frame := NewCommandBuffer(3)
	frame.Push(&SetPipelineStateCommand{Shader: shader})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, StartIndex: 2, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if len(rec.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(rec.draws))
	}
	if got := rec.draws[0]; got.count != 4 || got.start != 2 {
		t.Errorf("draw = %+v, want count=4 start=2", got)
	}
}

func TestDrawInvalidIndexSize(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, 0, make([]byte, 12))
	shader := initTestShader(t, d)

	frame := NewCommandBuffer(3)
	frame.Push(&SetPipelineStateCommand{Shader: shader})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 3, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if len(rec.draws) != 0 {
		t.Errorf("draws = %d, want 0 for invalid index size", len(rec.draws))
	}
}

func TestDrawEmptyBuffers(t *testing.T) {
	tests := []struct {
		name       string
		vertexData []byte
		indexData  []byte
	}{
		{"empty index buffer", make([]byte, 36), nil},
		{"empty vertex buffer", nil, make([]byte, 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecordExecutor()
			d := newTestDevice(t, rec)

			vb, _ := d.InitBuffer(BufferUsageVertex, 0, tt.vertexData)
			ib, _ := d.InitBuffer(BufferUsageIndex, 0, tt.indexData)
			shader := initTestShader(t, d)

			frame := NewCommandBuffer(3)
			frame.Push(&SetPipelineStateCommand{Shader: shader})
			frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
			frame.Push(&PresentCommand{})
			if err := d.Submit(frame); err != nil {
				t.Fatal(err)
			}
			if err := d.Close(); err != nil {
				t.Fatal(err)
			}
			if len(rec.draws) != 0 {
				t.Errorf("draws = %d, want 0 for a draw through an empty buffer", len(rec.draws))
			}
		})
	}
}

func TestShaderConstantSizeMismatch(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	var logBuf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&logBuf, nil)))
	t.Cleanup(func() { SetLogger(nil) })

	shader := initTestShader(t, d)

	// Declared fragment block is 16 bytes; 3 floats are only 12.
	bad := NewCommandBuffer(3)
	bad.Push(&SetPipelineStateCommand{Shader: shader})
	bad.Push(&SetShaderConstantsCommand{FragmentConstants: [][]float32{{1, 0, 0}}})
	bad.Push(&PresentCommand{})
	if err := d.Submit(bad); err != nil {
		t.Fatal(err)
	}

	good := NewCommandBuffer(3)
	good.Push(&SetPipelineStateCommand{Shader: shader})
	good.Push(&SetShaderConstantsCommand{FragmentConstants: [][]float32{{1, 0, 0, 1}}})
	good.Push(&PresentCommand{})
	if err := d.Submit(good); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if got := rec.opIndex("SetConstants"); got == -1 {
		t.Error("matching constants were not applied")
	}
	count := 0
	for _, op := range rec.ops {
		if strings.Contains(op, "SetConstants") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("SetConstants calls = %d, want 1 (mismatch rejected)", count)
	}
	if !strings.Contains(logBuf.String(), "frame execution failed") {
		t.Error("constant mismatch should fail the frame")
	}
}

func TestSetTexturesUploadsOnDraw(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	tex, err := d.InitTexture([]TextureLevel{{Width: 2, Height: 2, Data: make([]byte, 16)}},
		TextureType2D, FlagBindShader, 1, PixelFormatRGBA8Unorm, SamplerFilterLinear, 1)
	if err != nil {
		t.Fatal(err)
	}
	vb, _ := d.InitBuffer(BufferUsageVertex, 0, make([]byte, 36))
	ib, _ := d.InitBuffer(BufferUsageIndex, 0, make([]byte, 6))
	shader := initTestShader(t, d)

	frame := NewCommandBuffer(4)
	frame.Push(&SetPipelineStateCommand{Shader: shader})
	frame.Push(&SetTexturesCommand{Textures: []Handle{tex, NullHandle}})
	frame.Push(&DrawCommand{VertexBuffer: vb, IndexBuffer: ib, IndexSize: 2, Mode: DrawModeTriangleList})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if got := rec.textureUploads[tex]; got != 1 {
		t.Errorf("texture uploads = %d, want 1 (lazy, at draw)", got)
	}
	if got := rec.samplerSets[tex]; got != 1 {
		t.Errorf("sampler sets = %d, want 1", got)
	}
	bind := rec.opIndex("BindTextures 2")
	upload := rec.opIndex(fmt.Sprintf("UploadTexture %d", tex))
	if bind == -1 || upload == -1 || upload < bind {
		t.Errorf("BindTextures at %d, UploadTexture at %d; upload happens at draw", bind, upload)
	}
}

func TestRenderTargetResolveOnPresent(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	color, err := d.InitTexture([]TextureLevel{{Width: 4, Height: 4}},
		TextureType2D, FlagBindRenderTarget|FlagBindShader, 1, PixelFormatRGBA8Unorm, SamplerFilterLinear, 1)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := d.InitRenderTarget([]Handle{color}, NullHandle)
	if err != nil {
		t.Fatal(err)
	}

	frame := NewCommandBuffer(3)
	frame.Push(&SetRenderTargetCommand{RenderTarget: rt})
	frame.Push(&ClearRenderTargetCommand{ClearColorBuffer: true})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if rec.opIndex(fmt.Sprintf("ResolveRenderTarget %d", rt)) == -1 {
		t.Error("active target was not resolved at present")
	}
}

func TestRenderTargetResolvedBeforeSwitch(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	color, _ := d.InitTexture([]TextureLevel{{Width: 4, Height: 4}},
		TextureType2D, FlagBindRenderTarget, 1, PixelFormatRGBA8Unorm, SamplerFilterLinear, 1)
	rt, _ := d.InitRenderTarget([]Handle{color}, NullHandle)

	frame := NewCommandBuffer(3)
	frame.Push(&SetRenderTargetCommand{RenderTarget: rt})
	frame.Push(&SetRenderTargetCommand{RenderTarget: NullHandle})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	resolve := rec.opIndex(fmt.Sprintf("ResolveRenderTarget %d", rt))
	restore := rec.opIndex("SetRenderTarget default")
	if resolve == -1 || restore == -1 || resolve > restore {
		t.Errorf("resolve at %d, switch at %d; resolve precedes switch", resolve, restore)
	}
}

func TestInitRenderTargetValidation(t *testing.T) {
	d := newTestDevice(t, newRecordExecutor())
	defer d.Close()

	if _, err := d.InitRenderTarget(nil, NullHandle); err == nil {
		t.Error("render target without attachments should fail")
	}
	if _, err := d.InitRenderTarget([]Handle{NullHandle}, NullHandle); !errors.Is(err, ErrNullResource) {
		t.Error("null color attachment should fail with ErrNullResource")
	}
}

func TestDeleteResourceDestroysNative(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, nil)
	if err := d.DeleteResource(vb); err != nil {
		t.Fatal(err)
	}
	// Deleting NullHandle is a no-op, not an error.
	if err := d.DeleteResource(NullHandle); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if len(rec.destroyed) != 1 || rec.destroyed[0] != vb {
		t.Errorf("destroyed = %v, want [%d]", rec.destroyed, vb)
	}
}

func TestWrongResourceType(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	vb, _ := d.InitBuffer(BufferUsageVertex, 0, nil)

	// Using a buffer handle as a render target must fail the frame.
	frame := NewCommandBuffer(2)
	frame.Push(&SetRenderTargetCommand{RenderTarget: vb})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if rec.opIndex(fmt.Sprintf("SetRenderTarget %d", vb)) != -1 {
		t.Error("wrong-typed handle must not reach the executor")
	}
}

func TestSaveScreenshotAtPresent(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	path := filepath.Join(t.TempDir(), "frame.png")
	d.SaveScreenshot(path)

	frame := NewCommandBuffer(2)
	frame.Push(&ClearRenderTargetCommand{ClearColorBuffer: true})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("screenshot was not written: %v", err)
	}
	read := rec.opIndex("ReadBackbuffer")
	present := rec.opIndex("Present")
	if read == -1 || present == -1 || read > present {
		t.Errorf("ReadBackbuffer at %d, Present at %d; capture precedes present", read, present)
	}
}

func TestDebugMarkers(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	frame := NewCommandBuffer(3)
	frame.Push(&PushDebugMarkerCommand{Name: "shadow pass"})
	frame.Push(&PopDebugMarkerCommand{})
	frame.Push(&PresentCommand{})
	if err := d.Submit(frame); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if rec.opIndex("PushDebugMarker shadow pass") == -1 || rec.opIndex("PopDebugMarker") == -1 {
		t.Error("debug marker commands did not reach the executor")
	}
}

func TestMipmapGenerationOnInit(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	base := TextureLevel{Width: 8, Height: 8, Data: make([]byte, 8*8*4)}
	tex, err := d.InitTexture([]TextureLevel{base}, TextureType2D, FlagMipmaps,
		1, PixelFormatRGBA8Unorm, SamplerFilterTrilinear, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// 8x8 expands to 8, 4, 2, 1.
	if rec.opIndex(fmt.Sprintf("CreateTexture %d levels=4", tex)) == -1 {
		t.Fatalf("mip chain was not generated, ops: %v", rec.ops)
	}
}

func TestConcurrentProducers(t *testing.T) {
	rec := newRecordExecutor()
	d := newTestDevice(t, rec)

	const producers = 4
	done := make(chan struct{})
	for i := 0; i < producers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 8; j++ {
				if _, err := d.InitBuffer(BufferUsageVertex, 0, nil); err != nil {
					t.Errorf("InitBuffer: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < producers; i++ {
		<-done
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	created := 0
	for _, op := range rec.ops {
		if strings.HasPrefix(op, "CreateBuffer") {
			created++
		}
	}
	if created != producers*8 {
		t.Errorf("created buffers = %d, want %d", created, producers*8)
	}
}
