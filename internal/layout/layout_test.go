package layout

import (
	"errors"
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func newEngine(t *testing.T) (*Engine, *types.Interner, *source.Interner) {
	t.Helper()
	strs := source.NewInterner()
	tin := types.NewInterner()
	return New(X86_64LinuxGNU(), tin), tin, strs
}

func mustLayout(t *testing.T, e *Engine, id types.TypeID) TypeLayout {
	t.Helper()
	l, err := e.LayoutOf(id)
	if err != nil {
		t.Fatalf("LayoutOf: %v", err)
	}
	return l
}

func TestScalarLayouts(t *testing.T) {
	e, tin, _ := newEngine(t)
	b := tin.Builtins()

	cases := []struct {
		name  string
		id    types.TypeID
		size  int
		align int
	}{
		{"unit", b.Unit, 0, 1},
		{"bool", b.Bool, 1, 1},
		{"int", b.Int, 8, 8},
		{"float", b.Float, 8, 8},
		{"char", b.Char, 4, 4},
		{"string", b.String, 8, 8},
	}
	for _, tc := range cases {
		l := mustLayout(t, e, tc.id)
		if l.Size != tc.size || l.Align != tc.align {
			t.Errorf("%s: got size=%d align=%d, want %d/%d", tc.name, l.Size, l.Align, tc.size, tc.align)
		}
	}
}

func TestStructFieldOffsetsWithPadding(t *testing.T) {
	e, tin, strs := newEngine(t)
	b := tin.Builtins()

	point := tin.RegisterStruct(strs.Intern("Point"), source.Span{})
	tin.SetStructFields(point, []types.StructField{
		{Name: strs.Intern("x"), Type: b.Int},
		{Name: strs.Intern("flag"), Type: b.Bool},
		{Name: strs.Intern("y"), Type: b.Int},
	})

	l := mustLayout(t, e, point)
	if l.Size != 24 || l.Align != 8 {
		t.Fatalf("got size=%d align=%d, want 24/8", l.Size, l.Align)
	}
	wantOffsets := []int{0, 8, 16}
	for i, want := range wantOffsets {
		if l.FieldOffsets[i] != want {
			t.Errorf("field %d: offset %d, want %d", i, l.FieldOffsets[i], want)
		}
	}

	off, err := e.FieldOffset(point, 2)
	if err != nil || off != 16 {
		t.Fatalf("FieldOffset(2) = %d, %v", off, err)
	}
}

func TestEmptyStructIsZeroSized(t *testing.T) {
	e, tin, strs := newEngine(t)
	empty := tin.RegisterStruct(strs.Intern("Empty"), source.Span{})
	l := mustLayout(t, e, empty)
	if l.Size != 0 || l.Align != 1 {
		t.Fatalf("got size=%d align=%d, want 0/1", l.Size, l.Align)
	}
}

func TestEnumTagPlusMaxPayload(t *testing.T) {
	e, tin, strs := newEngine(t)
	b := tin.Builtins()

	shape := tin.RegisterEnum(strs.Intern("Shape"), source.Span{})
	tin.SetEnumVariants(shape, []types.EnumVariantInfo{
		{Name: strs.Intern("Dot"), Tag: 0},
		{Name: strs.Intern("Circle"), Tag: 1, Payload: []types.TypeID{b.Float}},
		{Name: strs.Intern("Rect"), Tag: 2, Payload: []types.TypeID{b.Float, b.Float}},
	})

	l := mustLayout(t, e, shape)
	if l.TagSize != 4 || l.TagAlign != 4 {
		t.Fatalf("tag: got %d/%d, want 4/4", l.TagSize, l.TagAlign)
	}
	// Rect payload is two floats (16 bytes, align 8); tag padded to offset 8.
	if l.PayloadOffset != 8 {
		t.Fatalf("payload offset %d, want 8", l.PayloadOffset)
	}
	if l.Size != 24 || l.Align != 8 {
		t.Fatalf("got size=%d align=%d, want 24/8", l.Size, l.Align)
	}
}

func TestFieldlessEnumIsTagOnly(t *testing.T) {
	e, tin, strs := newEngine(t)
	color := tin.RegisterEnum(strs.Intern("Color"), source.Span{})
	tin.SetEnumVariants(color, []types.EnumVariantInfo{
		{Name: strs.Intern("Red"), Tag: 0},
		{Name: strs.Intern("Green"), Tag: 1},
	})
	l := mustLayout(t, e, color)
	if l.Size != 4 || l.Align != 4 {
		t.Fatalf("got size=%d align=%d, want 4/4", l.Size, l.Align)
	}
}

func TestRecursiveStructReportsCycle(t *testing.T) {
	e, tin, strs := newEngine(t)

	node := tin.RegisterStruct(strs.Intern("Node"), source.Span{})
	tin.SetStructFields(node, []types.StructField{
		{Name: strs.Intern("next"), Type: node},
	})

	_, err := e.LayoutOf(node)
	if err == nil {
		t.Fatal("expected recursion error, got nil")
	}
	var lerr *LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != LayoutErrRecursive {
		t.Fatalf("expected LayoutErrRecursive, got %v", err)
	}
	if len(lerr.Cycle) < 2 {
		t.Fatalf("expected cycle of at least 2 entries, got %v", lerr.Cycle)
	}

	// Error is cached, second query reports the same failure.
	if _, err2 := e.LayoutOf(node); err2 == nil {
		t.Fatal("expected cached recursion error on second query")
	}
}

func TestMutualRecursionReportsCycle(t *testing.T) {
	e, tin, strs := newEngine(t)

	a := tin.RegisterStruct(strs.Intern("A"), source.Span{})
	b := tin.RegisterStruct(strs.Intern("B"), source.Span{})
	tin.SetStructFields(a, []types.StructField{{Name: strs.Intern("b"), Type: b}})
	tin.SetStructFields(b, []types.StructField{{Name: strs.Intern("a"), Type: a}})

	_, err := e.LayoutOf(a)
	var lerr *LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != LayoutErrRecursive {
		t.Fatalf("expected LayoutErrRecursive, got %v", err)
	}
}

func TestReferenceBreaksRecursion(t *testing.T) {
	e, tin, strs := newEngine(t)

	node := tin.RegisterStruct(strs.Intern("Node"), source.Span{})
	tin.SetStructFields(node, []types.StructField{
		{Name: strs.Intern("value"), Type: tin.Builtins().Int},
		{Name: strs.Intern("next"), Type: tin.Reference(node, false)},
	})

	l := mustLayout(t, e, node)
	if l.Size != 16 || l.Align != 8 {
		t.Fatalf("got size=%d align=%d, want 16/8", l.Size, l.Align)
	}
}
