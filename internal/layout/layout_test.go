package layout

import (
	"errors"
	"testing"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/ir/interp"
	"enumgen/internal/types"
)

func newEngine() (*LayoutEngine, *types.Interner) {
	in := types.NewInterner()
	return New(X86_64LinuxGNU(), in), in
}

func mustFixed(t *testing.T, e *LayoutEngine, id types.TypeID) FixedTypeInfo {
	t.Helper()
	f, err := e.FixedTypeInfoOf(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func TestScalarLayouts(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	cases := []struct {
		id          types.TypeID
		size, align int
		inhabitants uint32
		spare       uint64
	}{
		{b.Int8, 1, 1, 0, 0},
		{b.Int64, 8, 8, 0, 0},
		{b.Float32, 4, 4, 0, 0},
		{b.Bool, 1, 1, 254, 0xFE},
		{b.RawPointer, 8, 8, 4096, 0},
		{b.Ref, 8, 8, 512, 0xF000000000000007},
	}
	for _, tc := range cases {
		f := mustFixed(t, e, tc.id)
		if f.Size() != tc.size || f.Align() != tc.align {
			t.Fatalf("%s: expected size/align %d/%d, got %d/%d", f.Name(), tc.size, tc.align, f.Size(), f.Align())
		}
		if got := f.FixedExtraInhabitantCount(); got != tc.inhabitants {
			t.Fatalf("%s: expected %d extra inhabitants, got %d", f.Name(), tc.inhabitants, got)
		}
		if got := f.SpareBits().Lo64(); got != tc.spare {
			t.Fatalf("%s: expected spare bits %#x, got %#x", f.Name(), tc.spare, got)
		}
	}
}

func TestUnitIsEmpty(t *testing.T) {
	e, in := newEngine()
	ti, err := e.TypeInfoOf(in.Builtins().Unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsEmpty(ti) {
		t.Fatalf("expected Unit to be empty")
	}
}

func TestExtraInhabitantValues(t *testing.T) {
	e, in := newEngine()
	ref := mustFixed(t, e, in.Builtins().Ref)
	if got := ref.FixedExtraInhabitantValue(3).Lo64(); got != 24 {
		t.Fatalf("expected ref inhabitant 3 to be 24, got %d", got)
	}
	boolean := mustFixed(t, e, in.Builtins().Bool)
	if got := boolean.FixedExtraInhabitantValue(0).Lo64(); got != 2 {
		t.Fatalf("expected bool inhabitant 0 to be 2, got %d", got)
	}
}

func TestStructPaddingIsSpare(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	s := in.RegisterStruct("Pair")
	in.SetStructFields(s, []types.StructField{{Name: "a", Type: b.Int8}, {Name: "b", Type: b.Int32}})
	f := mustFixed(t, e, s)
	if f.Size() != 8 || f.Align() != 4 {
		t.Fatalf("expected 8/4, got %d/%d", f.Size(), f.Align())
	}
	if got := f.SpareBits().Lo64(); got != 0xFFFFFF00 {
		t.Fatalf("expected padding bits 8..31 spare, got %#x", got)
	}
	off, err := e.FieldOffset(s, 1)
	if err != nil || off != 4 {
		t.Fatalf("expected field offset 4, got %d (%v)", off, err)
	}
	if f.Kind() != Loadable {
		t.Fatalf("expected loadable struct, got %s", f.Kind())
	}
}

func TestStringIsLoadableStruct(t *testing.T) {
	e, in := newEngine()
	ti, err := e.TypeInfoOf(in.Builtins().String)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, ok := AsLoadable(ti)
	if !ok {
		t.Fatalf("expected String to be loadable")
	}
	schema := l.Schema()
	if len(schema) != 2 || !schema[1].Type.IsPtr() || schema[1].Offset != 8 {
		t.Fatalf("unexpected schema %+v", schema)
	}
	if l.IsPOD() {
		t.Fatalf("String owns a reference and must not be POD")
	}
	if got := l.FixedExtraInhabitantCount(); got != 512 {
		t.Fatalf("expected String to borrow the reference inhabitants, got %d", got)
	}
	if l.SinglePointer() != NotSinglePointer {
		t.Fatalf("String is not a single pointer")
	}
}

func TestSingleFieldStructIsSinglePointer(t *testing.T) {
	e, in := newEngine()
	s := in.RegisterStruct("Box")
	in.SetStructFields(s, []types.StructField{{Name: "ref", Type: in.Builtins().UnknownRef}})
	f := mustFixed(t, e, s)
	if f.SinglePointer() != SingleUnknownPointer {
		t.Fatalf("expected single unknown pointer, got %d", f.SinglePointer())
	}
}

func TestWideStructIsFixedNotLoadable(t *testing.T) {
	e, in := newEngine()
	b := in.Builtins()
	s := in.RegisterStruct("Wide")
	fields := make([]types.StructField, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		fields = append(fields, types.StructField{Name: name, Type: b.Int64})
	}
	in.SetStructFields(s, fields)
	f := mustFixed(t, e, s)
	if f.Kind() != Fixed {
		t.Fatalf("expected fixed kind, got %s", f.Kind())
	}
	if _, ok := AsLoadable(f); ok {
		t.Fatalf("wide struct must not be loadable")
	}
}

func TestArrayLayout(t *testing.T) {
	e, in := newEngine()
	arr := in.Intern(types.MakeArray(in.Builtins().Bool, 3))
	f := mustFixed(t, e, arr)
	if f.Kind() != Fixed || f.Size() != 3 {
		t.Fatalf("expected fixed 3-byte array, got %s/%d", f.Kind(), f.Size())
	}
	if got := f.SpareBits().Lo64(); got != 0xFEFEFE {
		t.Fatalf("expected spare bits %#x, got %#x", 0xFEFEFE, got)
	}
}

func TestGenericAndResilientAreOpaque(t *testing.T) {
	e, in := newEngine()
	gen := in.GenericParam("T")
	res := in.Resilient("Remote")
	for _, tc := range []struct {
		id    types.TypeID
		class SizeClass
	}{{gen, SizeDependent}, {res, SizeResilient}} {
		ti, err := e.TypeInfoOf(tc.id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ti.Kind() != Opaque || ti.SizeClass() != tc.class {
			t.Fatalf("expected opaque/%s, got %s/%s", tc.class, ti.Kind(), ti.SizeClass())
		}
	}
	s := in.RegisterStruct("Holder")
	in.SetStructFields(s, []types.StructField{{Name: "x", Type: res}, {Name: "y", Type: gen}})
	ti, err := e.TypeInfoOf(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ti.Kind() != Opaque || ti.SizeClass() != SizeDependent {
		t.Fatalf("expected dependent opaque struct, got %s/%s", ti.Kind(), ti.SizeClass())
	}
}

func TestRecursiveStructReportsCycle(t *testing.T) {
	e, in := newEngine()
	a := in.RegisterStruct("A")
	in.SetStructFields(a, []types.StructField{{Name: "self", Type: a}})
	_, err := e.TypeInfoOf(a)
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrRecursiveUnsized {
		t.Fatalf("expected recursive layout error, got %v", err)
	}
	if !le.InCycle(a) {
		t.Fatalf("expected cycle to contain A: %v", le)
	}
}

func TestEnumWithoutLoweringFails(t *testing.T) {
	e, in := newEngine()
	en := in.RegisterEnum("E")
	_, err := e.TypeInfoOf(en)
	var le *LayoutError
	if !errors.As(err, &le) || le.Kind != LayoutErrNoEnumLowering {
		t.Fatalf("expected missing enum lowering error, got %v", err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	e, in := newEngine()
	ti, err := e.TypeInfoOf(in.Builtins().String)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, _ := AsLoadable(ti)

	f := ir.NewFunc("roundtrip", ir.Int(64), ir.Ptr)
	bld := ir.NewBuilder(f)
	packed := l.PackIntoEnumPayload(bld, []*ir.Value{f.Params[0], f.Params[1]}, 136, 4)
	vals := l.UnpackFromEnumPayload(bld, packed, 4)
	bld.Ret(packed, vals[0], bld.PtrToInt(vals[1], 64))

	m := interp.New()
	res, err := m.Run(f, bitvec.FromUint64(64, 0x1234), bitvec.FromUint64(64, 0xABCD0))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := res.Values[1].Lo64(); got != 0x1234 {
		t.Fatalf("expected count 0x1234, got %#x", got)
	}
	if got := res.Values[2].Lo64(); got != 0xABCD0 {
		t.Fatalf("expected owner 0xabcd0, got %#x", got)
	}
	if got := res.Values[0].Extract(68, 64).Lo64(); got != 0xABCD0 {
		t.Fatalf("expected owner packed at bit 68, got %#x", got)
	}
}

func TestRefCopyAndDestroyCallRuntime(t *testing.T) {
	e, in := newEngine()
	ti, _ := e.TypeInfoOf(in.Builtins().Ref)

	f := ir.NewFunc("copy", ir.Ptr, ir.Ptr)
	bld := ir.NewBuilder(f)
	ti.InitializeWithCopy(bld, f.Params[0], f.Params[1])
	ti.Destroy(bld, f.Params[1])
	bld.Ret()

	m := interp.New()
	dst, src := m.Alloc(8, 8), m.Alloc(8, 8)
	if err := m.Write(src, bitvec.FromUint64(64, 0x20000).Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := m.Run(f, bitvec.FromUint64(64, dst), bitvec.FromUint64(64, src)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := len(m.CallsTo("rt_retain")); n != 1 {
		t.Fatalf("expected 1 retain, got %d", n)
	}
	if n := len(m.CallsTo("rt_release")); n != 1 {
		t.Fatalf("expected 1 release, got %d", n)
	}
	got, _ := m.Read(dst, 8)
	if bitvec.FromBytes(64, got).Lo64() != 0x20000 {
		t.Fatalf("expected copied reference, got %x", got)
	}
}

func TestClassifyTypeSize(t *testing.T) {
	_, in := newEngine()
	b := in.Builtins()
	if got := ClassifyTypeSize(in, b.String); got != SizeFixed {
		t.Fatalf("expected fixed, got %s", got)
	}
	en := in.RegisterEnum("Opt")
	in.SetEnumCases(en, []types.EnumCase{{Name: "none"}, {Name: "some", Payload: in.Resilient("R")}})
	if got := ClassifyTypeSize(in, en); got != SizeResilient {
		t.Fatalf("expected resilient, got %s", got)
	}
}
