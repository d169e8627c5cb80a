package enumimpl

import (
	"errors"
	"testing"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/ir/interp"
)

func colorEnum(t *testing.T) Strategy {
	t.Helper()
	return mustSelect(t, enumDecl("Color", emptyCase("red"), emptyCase("green"), emptyCase("blue")))
}

func TestNoPayloadLayout(t *testing.T) {
	s := colorEnum(t)
	f := s.Facts()
	if f.TagBits != 2 || f.Size != 1 || f.Align != 1 {
		t.Fatalf("expected 2 tag bits in 1 byte, got %+v", f)
	}
	for c, want := range []uint64{0, 1, 2} {
		if got := s.BitPatternForNoPayloadElement(c).Lo64(); got != want {
			t.Fatalf("case %d: expected pattern %d, got %d", c, want, got)
		}
	}
	ti := mustLoadable(t, s.TypeInfo())
	// values 3 through 255
	if got := ti.FixedExtraInhabitantCount(); got != 253 {
		t.Fatalf("expected 253 extra inhabitants, got %d", got)
	}
	if got := ti.FixedExtraInhabitantValue(0).Lo64(); got != 3 {
		t.Fatalf("expected first inhabitant 3, got %d", got)
	}
	if got := ti.FixedExtraInhabitantValue(252).Lo64(); got != 255 {
		t.Fatalf("expected last inhabitant 255, got %d", got)
	}
	if got := ti.SpareBits().Lo64(); got != 0xFC {
		t.Fatalf("expected spare bits 0xfc, got %#x", got)
	}
	if uint64(ti.FixedExtraInhabitantCount())+3 > 1<<8 {
		t.Fatalf("inhabitants and cases exceed the storage width")
	}
}

func TestNoPayloadRoundTrip(t *testing.T) {
	s := colorEnum(t)
	for c := range s.Cases() {
		value := inject(t, s, c)
		if got := switchOn(t, s, value); got != c {
			t.Fatalf("expected switch to reach case %d, got %d", c, got)
		}
		for other := range s.Cases() {
			if caseTest(t, s, value, other) != (other == c) {
				t.Fatalf("case test %d on value of case %d is wrong", other, c)
			}
		}
	}
	if got := switchOn(t, s, []bitvec.Bits{u64(8, 7)}); got != -1 {
		t.Fatalf("expected inhabitant to reach default, got %d", got)
	}
}

func TestNoPayloadExtraInhabitantMemoryOps(t *testing.T) {
	s := colorEnum(t)
	ti := mustLoadable(t, s.TypeInfo())

	f := ir.NewFunc("inhabitant", ir.Ptr, ir.I32)
	b := ir.NewBuilder(f)
	ti.StoreExtraInhabitant(b, f.Params[1], f.Params[0])
	b.Ret(ti.ExtraInhabitantIndex(b, f.Params[0]))

	m := interp.New()
	addr := m.Alloc(1, 1)
	res := run(t, m, f, u64(64, addr), u64(32, 10))
	if got := res.Values[0].Lo64(); got != 10 {
		t.Fatalf("expected index 10 back, got %d", got)
	}
	raw, _ := m.Read(addr, 1)
	if raw[0] != 13 {
		t.Fatalf("expected stored byte 13, got %d", raw[0])
	}
}

func TestCNoPayloadRawValues(t *testing.T) {
	fx := newFixture()
	ctype := mustLoadable(t, fx.info(t, fx.types.Builtins().Int32))
	d := enumDecl("Mode",
		CaseDecl{Name: "off", RawValue: -1, HasRawValue: true},
		CaseDecl{Name: "on", RawValue: 5, HasRawValue: true},
		CaseDecl{Name: "enabled", RawValue: 5, HasRawValue: true},
	)
	d.ImportedC = true
	d.CType = ctype
	s := mustSelect(t, d)
	if s.Variant() != VariantCNoPayload {
		t.Fatalf("expected C no-payload, got %s", s.Variant())
	}
	ti := mustLoadable(t, s.TypeInfo())
	if ti.Size() != 4 || ti.FixedExtraInhabitantCount() != 0 || !ti.SpareBits().IsZero() {
		t.Fatalf("expected opaque 4-byte C storage, got size %d, %d inhabitants, spare %s",
			ti.Size(), ti.FixedExtraInhabitantCount(), ti.SpareBits())
	}
	if got := s.BitPatternForNoPayloadElement(0).Lo64(); got != 0xFFFFFFFF {
		t.Fatalf("expected -1 as 0xffffffff, got %#x", got)
	}
	// duplicate raw values dispatch to the first declared case
	if got := switchOn(t, s, inject(t, s, 2)); got != 1 {
		t.Fatalf("expected duplicate raw value to reach case 1, got %d", got)
	}

	d.Cases = append(d.Cases, CaseDecl{Name: "huge", RawValue: 1 << 40, HasRawValue: true})
	_, err := SelectStrategy(d, Options{})
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Kind != UnsupportedBadRawValue || ue.Case != "huge" {
		t.Fatalf("expected bad raw value error on huge, got %v", err)
	}
}
