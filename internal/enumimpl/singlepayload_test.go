package enumimpl

import (
	"fmt"
	"testing"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/ir/interp"
	"enumgen/internal/layout"
	"enumgen/internal/rtabi"
)

func optionalOf(t *testing.T, name string, payload layout.TypeInfo) Strategy {
	t.Helper()
	return mustSelect(t, enumDecl(name, payloadCase("some", payload), emptyCase("none")))
}

func TestOptionalRefUsesNullInhabitant(t *testing.T) {
	fx := newFixture()
	s := optionalOf(t, "OptRef", fx.info(t, fx.types.Builtins().Ref))
	f := s.Facts()
	if f.Size != 8 || f.ExtraTagBits != 0 || f.NumExtraInhabitantTagValues != 1 {
		t.Fatalf("expected pointer-sized layout without extra tag, got %+v", f)
	}
	if f.CopyDestroy != CopyDestroyNullableNativeRefcounted {
		t.Fatalf("expected nullable fast path, got %s", f.CopyDestroy)
	}
	none := s.BitPatternForNoPayloadElement(1)
	if v := none.Lo64(); v >= layout.X86_64LinuxGNU().LeastValidPointer {
		t.Fatalf("none pattern %#x is a valid pointer", v)
	}
	if f.ExtraInhabitantCount != 511 {
		t.Fatalf("expected 511 remaining inhabitants, got %d", f.ExtraInhabitantCount)
	}

	some := inject(t, s, 0, u64(64, 0x20000))
	if got := switchOn(t, s, some); got != 0 {
		t.Fatalf("expected some, got %d", got)
	}
	if got := switchOn(t, s, inject(t, s, 1)); got != 1 {
		t.Fatalf("expected none, got %d", got)
	}
	if got := project(t, s, 0, some)[0].Lo64(); got != 0x20000 {
		t.Fatalf("expected projected pointer 0x20000, got %#x", got)
	}
}

func TestNullableCopyAndDestroyCallRuntimeOnce(t *testing.T) {
	fx := newFixture()
	s := optionalOf(t, "OptRef", fx.info(t, fx.types.Builtins().Ref))
	ti := mustLoadable(t, s.TypeInfo())

	for _, tc := range []struct {
		name  string
		value uint64
	}{{"some", 0x20000}, {"none", 0}} {
		f := ir.NewFunc("copy."+tc.name, ir.Int(64))
		b := ir.NewBuilder(f)
		ti.Consume(b, ti.Copy(b, f.Params))
		b.Ret()
		m := interp.New()
		run(t, m, f, u64(64, tc.value))
		if n := len(m.CallsTo(rtabi.FnRetain)); n != 1 {
			t.Fatalf("%s: expected 1 retain, got %d", tc.name, n)
		}
		if n := len(m.CallsTo(rtabi.FnRelease)); n != 1 {
			t.Fatalf("%s: expected 1 release, got %d", tc.name, n)
		}
		if got := m.CallsTo(rtabi.FnRetain)[0].Args[0].Lo64(); got != tc.value {
			t.Fatalf("%s: expected retain of %#x, got %#x", tc.name, tc.value, got)
		}
	}
}

func TestSinglePayloadSpillsIntoExtraTag(t *testing.T) {
	fx := newFixture()
	i64 := fx.info(t, fx.types.Builtins().Int64)
	s := mustSelect(t, enumDecl("Count", payloadCase("some", i64), emptyCase("a"), emptyCase("b")))
	f := s.Facts()
	if f.PayloadBits != 64 || f.ExtraTagBits != 1 || f.Size != 9 || f.Align != 8 || f.Stride != 16 {
		t.Fatalf("expected 64 payload bits plus a 1-bit tag, got %+v", f)
	}
	if f.CopyDestroy != CopyDestroyPOD {
		t.Fatalf("expected POD, got %s", f.CopyDestroy)
	}
	a, b := s.BitPatternForNoPayloadElement(1), s.BitPatternForNoPayloadElement(2)
	if a.Width() != 72 || a.Extract(64, 8).Lo64() != 1 || a.Lo64() != 0 {
		t.Fatalf("unexpected pattern for a: %s", a)
	}
	if b.Extract(64, 8).Lo64() != 1 || b.Lo64() != 1 {
		t.Fatalf("unexpected pattern for b: %s", b)
	}
	if got := mustLoadable(t, s.TypeInfo()).SpareBits().Extract(64, 8).Lo64(); got != 0xFE {
		t.Fatalf("expected unused tag bits 0xfe to be spare, got %#x", got)
	}

	for c := range s.Cases() {
		var value []bitvec.Bits
		if c == 0 {
			value = inject(t, s, c, u64(64, 1))
		} else {
			value = inject(t, s, c)
		}
		if !flatten(value).Equal(patternOrPayload(s, c, value)) {
			t.Fatalf("case %d: injected value differs from its pattern", c)
		}
		if got := switchOn(t, s, value); got != c {
			t.Fatalf("expected switch to reach case %d, got %d", c, got)
		}
		for other := range s.Cases() {
			if caseTest(t, s, value, other) != (other == c) {
				t.Fatalf("case test %d on value of case %d is wrong", other, c)
			}
		}
	}
	if got := project(t, s, 0, inject(t, s, 0, u64(64, 42)))[0].Lo64(); got != 42 {
		t.Fatalf("expected projected 42, got %d", got)
	}
}

// patternOrPayload returns the pattern of an empty case and the value
// itself otherwise.
func patternOrPayload(s Strategy, c int, value []bitvec.Bits) bitvec.Bits {
	if s.Cases()[c].Payload != nil {
		return flatten(value)
	}
	return s.BitPatternForNoPayloadElement(c)
}

func TestSinglePayloadBoolUsesInhabitants(t *testing.T) {
	fx := newFixture()
	boolInfo := fx.info(t, fx.types.Builtins().Bool)
	s := mustSelect(t, enumDecl("Tri", payloadCase("known", boolInfo), emptyCase("unknown"), emptyCase("pending")))
	f := s.Facts()
	if f.Size != 1 || f.ExtraTagBits != 0 || f.NumExtraInhabitantTagValues != 2 {
		t.Fatalf("expected inhabitants to absorb both empty cases, got %+v", f)
	}
	if f.ExtraInhabitantCount != 252 {
		t.Fatalf("expected 252 remaining inhabitants, got %d", f.ExtraInhabitantCount)
	}
	ti := mustLoadable(t, s.TypeInfo())
	if got := ti.FixedExtraInhabitantValue(0).Lo64(); got != 4 {
		t.Fatalf("expected first remaining inhabitant 4, got %d", got)
	}
	for value, want := range map[uint64]int{0: 0, 1: 0, 2: 1, 3: 2} {
		if got := switchOn(t, s, []bitvec.Bits{u64(8, value)}); got != want {
			t.Fatalf("value %d: expected case %d, got %d", value, want, got)
		}
	}
	if got := project(t, s, 0, inject(t, s, 0, u64(1, 1)))[0].Lo64(); got != 1 {
		t.Fatalf("expected projected true, got %d", got)
	}
}

func TestSinglePayloadManyEmptyCases(t *testing.T) {
	fx := newFixture()
	u8 := fx.info(t, fx.types.Builtins().Uint8)
	cases := []CaseDecl{payloadCase("byte", u8)}
	for i := 0; i < 300; i++ {
		cases = append(cases, emptyCase(fmt.Sprintf("e%d", i)))
	}
	s := mustSelect(t, enumDecl("Wide", cases...))
	f := s.Facts()
	if f.ExtraTagBits != 2 || f.Size != 2 {
		t.Fatalf("expected 2 extra tag bits in 2 bytes, got %+v", f)
	}
	last := s.BitPatternForNoPayloadElement(300)
	if last.Lo64()&0xFF != 43 || last.Extract(8, 8).Lo64() != 2 {
		t.Fatalf("expected e299 as payload 43 with tag 2, got %s", last)
	}
	if got := switchOn(t, s, inject(t, s, 300)); got != 300 {
		t.Fatalf("expected switch to reach e299, got %d", got)
	}
	if got := switchOn(t, s, inject(t, s, 0, u64(8, 43))); got != 0 {
		t.Fatalf("expected payload case, got %d", got)
	}
	seen := map[string]int{}
	for c := 1; c < len(cases); c++ {
		key := s.BitPatternForNoPayloadElement(c).Hex()
		if prev, dup := seen[key]; dup {
			t.Fatalf("cases %d and %d share pattern %s", prev, c, key)
		}
		seen[key] = c
	}
}

func TestPODSinglePayloadCopyIsMemcpy(t *testing.T) {
	fx := newFixture()
	s := optionalOf(t, "OptInt", fx.info(t, fx.types.Builtins().Int64))
	ti := mustLoadable(t, s.TypeInfo())

	f := ir.NewFunc("copy", ir.Ptr, ir.Ptr)
	b := ir.NewBuilder(f)
	ti.InitializeWithCopy(b, f.Params[0], f.Params[1])
	b.Ret()

	m := interp.New()
	src, dst := m.Alloc(9, 8), m.Alloc(9, 8)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 1}
	if err := m.Write(src, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	run(t, m, f, u64(64, dst), u64(64, src))
	got, _ := m.Read(dst, 9)
	if string(got) != string(want) {
		t.Fatalf("expected byte-identical copy %v, got %v", want, got)
	}
	if len(m.Calls) != 0 {
		t.Fatalf("POD copy must not call the runtime, got %d calls", len(m.Calls))
	}
}

func TestNestedOptionalUsesInnerInhabitants(t *testing.T) {
	fx := newFixture()
	inner := optionalOf(t, "OptRef", fx.info(t, fx.types.Builtins().Ref))
	outer := optionalOf(t, "OptOptRef", inner.TypeInfo())
	f := outer.Facts()
	if f.Size != 8 || f.ExtraTagBits != 0 {
		t.Fatalf("expected nested optional to stay pointer-sized, got %+v", f)
	}
	if got := outer.BitPatternForNoPayloadElement(1).Lo64(); got != 8 {
		t.Fatalf("expected outer none at 8, got %#x", got)
	}

	innerNone := inject(t, outer, 0, inject(t, inner, 1)...)
	if got := switchOn(t, outer, innerNone); got != 0 {
		t.Fatalf("expected some(none) to be the outer payload case, got %d", got)
	}
	if got := switchOn(t, inner, project(t, outer, 0, innerNone)); got != 1 {
		t.Fatalf("expected inner none after projection, got %d", got)
	}
	if got := switchOn(t, outer, inject(t, outer, 1)); got != 1 {
		t.Fatalf("expected outer none, got %d", got)
	}
}

func TestFixedSinglePayloadTestsCaseInMemory(t *testing.T) {
	fx := newFixture()
	wide := fx.wideStruct(t)
	if wide.Kind() != layout.Fixed {
		t.Fatalf("expected fixed payload, got %s", wide.Kind())
	}
	s := optionalOf(t, "OptWide", wide)
	ti, ok := layout.AsFixed(s.TypeInfo())
	if !ok || ti.Kind() != layout.Fixed || ti.Size() != 40 {
		t.Fatalf("expected fixed 40-byte enum")
	}

	build := func(c int) *ir.Func {
		f := ir.NewFunc("destroy", ir.Ptr)
		b := ir.NewBuilder(f)
		s.StoreTag(b, c, f.Params[0])
		ti.Destroy(b, f.Params[0])
		b.Ret()
		return f
	}

	m := interp.New()
	addr := m.Alloc(40, 8)
	if err := m.Write(addr+32, u64(64, 0x20000).Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	run(t, m, build(0), u64(64, addr))
	if n := len(m.CallsTo(rtabi.FnRelease)); n != 1 {
		t.Fatalf("expected destroying some to release once, got %d", n)
	}

	m = interp.New()
	addr = m.Alloc(40, 8)
	run(t, m, build(1), u64(64, addr))
	if n := len(m.CallsTo(rtabi.FnRelease)); n != 0 {
		t.Fatalf("expected destroying none to release nothing, got %d", n)
	}
}

func TestOpaqueSinglePayloadUsesRuntime(t *testing.T) {
	fx := newFixture()
	generic := fx.info(t, fx.types.GenericParam("T"))
	s := optionalOf(t, "OptT", generic)
	if s.TypeInfo().Kind() != layout.Opaque {
		t.Fatalf("expected opaque enum, got %s", s.TypeInfo().Kind())
	}

	f := ir.NewFunc("ops", ir.Ptr, ir.Ptr)
	b := ir.NewBuilder(f)
	s.InitializeMetadata(b, b.Global("md.OptT"))
	s.StoreTag(b, 1, f.Params[0])
	s.TypeInfo().InitializeWithCopy(b, f.Params[1], f.Params[0])
	b.Ret()

	m := interp.New()
	src, dst := m.Alloc(16, 8), m.Alloc(16, 8)
	run(t, m, f, u64(64, src), u64(64, dst))

	if n := len(m.CallsTo(rtabi.FnEnumInitSinglePayload)); n != 1 {
		t.Fatalf("expected layout initialization, got %d calls", n)
	}
	tags := m.CallsTo(rtabi.FnEnumStoreTagSinglePayload)
	if len(tags) != 2 || tags[0].Args[1].Lo64() != 0 || tags[0].Args[3].Lo64() != 1 {
		t.Fatalf("expected store_tag(addr, 0, md, 1) then a copy of the tag, got %+v", tags)
	}
	// the stub runtime reports empty case 0, so nothing is copied through the payload
	if n := len(m.CallsTo(rtabi.FnVWInitializeWithCopy)); n != 0 {
		t.Fatalf("expected no payload copy for an empty case, got %d", n)
	}
}
