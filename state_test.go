package renderdev

import (
	"errors"
	"testing"
)

func TestRasterizerStateIndex(t *testing.T) {
	tests := []struct {
		fill    FillMode
		scissor bool
		cull    CullMode
		want    uint32
	}{
		{FillModeSolid, false, CullModeNone, 0},
		{FillModeSolid, false, CullModeFront, 1},
		{FillModeSolid, false, CullModeBack, 2},
		{FillModeSolid, true, CullModeNone, 3},
		{FillModeSolid, true, CullModeFront, 4},
		{FillModeSolid, true, CullModeBack, 5},
		{FillModeWireframe, false, CullModeNone, 6},
		{FillModeWireframe, false, CullModeFront, 7},
		{FillModeWireframe, false, CullModeBack, 8},
		{FillModeWireframe, true, CullModeNone, 9},
		{FillModeWireframe, true, CullModeFront, 10},
		{FillModeWireframe, true, CullModeBack, 11},
	}
	seen := make(map[uint32]bool, len(tests))
	for _, tt := range tests {
		got, err := rasterizerStateIndex(tt.fill, tt.scissor, tt.cull)
		if err != nil {
			t.Fatalf("rasterizerStateIndex(%v, %v, %v) = %v", tt.fill, tt.scissor, tt.cull, err)
		}
		if got != tt.want {
			t.Errorf("rasterizerStateIndex(%v, %v, %v) = %d, want %d", tt.fill, tt.scissor, tt.cull, got, tt.want)
		}
		if seen[got] {
			t.Errorf("index %d assigned twice", got)
		}
		seen[got] = true
	}
}

func TestRasterizerStateIndexInvalid(t *testing.T) {
	if _, err := rasterizerStateIndex(FillMode(9), false, CullModeNone); !errors.Is(err, ErrInvalidFillMode) {
		t.Errorf("invalid fill mode: err = %v, want ErrInvalidFillMode", err)
	}
	if _, err := rasterizerStateIndex(FillModeSolid, false, CullMode(9)); !errors.Is(err, ErrInvalidCullMode) {
		t.Errorf("invalid cull mode: err = %v, want ErrInvalidCullMode", err)
	}
}

func TestBlendStateAccessors(t *testing.T) {
	bs := newBlendState(&InitBlendStateCommand{
		BlendState:       7,
		Enabled:          true,
		ColorSource:      BlendFactorSrcAlpha,
		ColorDestination: BlendFactorInvSrcAlpha,
		ColorOperation:   BlendOperationAdd,
		AlphaSource:      BlendFactorOne,
		AlphaDestination: BlendFactorZero,
		AlphaOperation:   BlendOperationMax,
		ColorMask:        ColorMaskRed | ColorMaskAlpha,
	})
	if bs.Handle() != 7 {
		t.Errorf("Handle() = %d, want 7", bs.Handle())
	}
	if !bs.Enabled() {
		t.Error("Enabled() = false")
	}
	src, dst, op := bs.ColorEquation()
	if src != BlendFactorSrcAlpha || dst != BlendFactorInvSrcAlpha || op != BlendOperationAdd {
		t.Errorf("ColorEquation() = %v, %v, %v", src, dst, op)
	}
	src, dst, op = bs.AlphaEquation()
	if src != BlendFactorOne || dst != BlendFactorZero || op != BlendOperationMax {
		t.Errorf("AlphaEquation() = %v, %v, %v", src, dst, op)
	}
	if bs.ColorMask() != ColorMaskRed|ColorMaskAlpha {
		t.Errorf("ColorMask() = %v", bs.ColorMask())
	}
}

func TestDepthStencilStateAccessors(t *testing.T) {
	front := StencilDescriptor{Compare: CompareFunctionEqual, PassOp: StencilOperationReplace}
	ds := newDepthStencilState(&InitDepthStencilStateCommand{
		State:            3,
		DepthTest:        true,
		DepthWrite:       true,
		Compare:          CompareFunctionLessEqual,
		StencilEnabled:   true,
		StencilReadMask:  0x0F,
		StencilWriteMask: 0xF0,
		FrontFace:        front,
	})
	if !ds.DepthTest() || !ds.DepthWrite() {
		t.Error("depth flags not carried")
	}
	if ds.Compare() != CompareFunctionLessEqual {
		t.Errorf("Compare() = %v", ds.Compare())
	}
	read, write := ds.StencilMasks()
	if read != 0x0F || write != 0xF0 {
		t.Errorf("StencilMasks() = %#x, %#x", read, write)
	}
	if ds.FrontFace() != front {
		t.Errorf("FrontFace() = %+v", ds.FrontFace())
	}
	if ds.BackFace() != (StencilDescriptor{}) {
		t.Errorf("BackFace() = %+v, want zero", ds.BackFace())
	}
}

func TestResourceTableTombstones(t *testing.T) {
	var table resourceTable
	b1 := newBuffer(1, BufferUsageVertex, 0, nil)
	b2 := newBuffer(2, BufferUsageIndex, 0, nil)
	table.put(b1)
	table.put(b2)

	if got := table.get(1); got != b1 {
		t.Errorf("get(1) = %v, want b1", got)
	}
	if got := table.get(0); got != nil {
		t.Errorf("get(0) = %v, want nil", got)
	}
	if got := table.get(99); got != nil {
		t.Errorf("get(99) = %v, want nil", got)
	}

	removed := table.remove(1)
	if removed != b1 {
		t.Errorf("remove(1) = %v, want b1", removed)
	}
	if got := table.get(1); got != nil {
		t.Error("tombstoned slot still resolves")
	}
	if removed := table.remove(1); removed != nil {
		t.Error("double remove returned a resource")
	}
	// Slot 2 is untouched by the neighbor's removal.
	if got := table.get(2); got != b2 {
		t.Errorf("get(2) = %v, want b2", got)
	}
}
