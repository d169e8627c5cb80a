package enumimpl

import (
	"errors"
	"testing"

	"enumgen/internal/layout"
)

func TestSelectStrategyVariants(t *testing.T) {
	fx := newFixture()
	b := fx.types.Builtins()
	i64 := fx.info(t, b.Int64)
	unit := fx.info(t, b.Unit)

	cases := []struct {
		name string
		decl EnumDecl
		want Variant
	}{
		{"empty", enumDecl("Never"), VariantSingleton},
		{"one empty case", enumDecl("One", emptyCase("only")), VariantSingleton},
		{"one payload case", enumDecl("Box", payloadCase("box", i64)), VariantSingleton},
		{"no payloads", enumDecl("Color", emptyCase("red"), emptyCase("green")), VariantNoPayload},
		{"unit payloads count as empty", enumDecl("Flag", payloadCase("on", unit), emptyCase("off")), VariantNoPayload},
		{"one payload", enumDecl("Opt", payloadCase("some", i64), emptyCase("none")), VariantSinglePayload},
		{"two payloads", enumDecl("Either", payloadCase("left", i64), payloadCase("right", i64)), VariantMultiPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := mustSelect(t, tc.decl)
			if s.Variant() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, s.Variant())
			}
			if got := len(s.ElementsWithPayload()) + len(s.ElementsWithNoPayload()); got != len(tc.decl.Cases) {
				t.Fatalf("buckets must partition %d cases, got %d", len(tc.decl.Cases), got)
			}
			got, ok := StrategyOf(s.TypeInfo())
			if !ok || got != s {
				t.Fatalf("StrategyOf must recover the strategy")
			}
		})
	}
}

func TestRecursiveCaseIsUnsupported(t *testing.T) {
	d := enumDecl("List", emptyCase("empty"), CaseDecl{Name: "cons", Recursive: true})
	_, err := SelectStrategy(d, Options{})
	var ue *UnsupportedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if ue.Kind != UnsupportedRecursivePayload || ue.Case != "cons" {
		t.Fatalf("unexpected error %+v", ue)
	}
	if got := ue.Error(); got != "enum List: unsupported recursive payload in case cons: indirect storage for recursive cases is not implemented" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNonFixedMultiPayloadRequiresOptIn(t *testing.T) {
	fx := newFixture()
	generic := fx.info(t, fx.types.GenericParam("T"))
	i64 := fx.info(t, fx.types.Builtins().Int64)
	d := enumDecl("Result", payloadCase("ok", generic), payloadCase("err", i64), emptyCase("pending"))

	_, err := SelectStrategy(d, Options{})
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Kind != UnsupportedNonFixedMultiPayload || ue.Case != "ok" {
		t.Fatalf("expected non-fixed multi-payload error on case ok, got %v", err)
	}

	s, err := SelectStrategy(d, Options{AllowNonFixedMultiPayload: true})
	if err != nil {
		t.Fatalf("unexpected error with opt-in: %v", err)
	}
	if s.TypeInfo().Kind() != layout.Opaque {
		t.Fatalf("expected opaque enum, got %s", s.TypeInfo().Kind())
	}
	if _, ok := layout.AsFixed(s.TypeInfo()); ok {
		t.Fatalf("opaque enum must not expose fixed layout")
	}
}

func TestSingletonMatchesPayloadLayout(t *testing.T) {
	fx := newFixture()
	str := mustLoadable(t, fx.info(t, fx.types.Builtins().String))
	s := mustSelect(t, enumDecl("Wrapper", payloadCase("onlyCase", str)))
	ti := mustLoadable(t, s.TypeInfo())

	if ti.Size() != str.Size() || ti.Align() != str.Align() || ti.Stride() != str.Stride() {
		t.Fatalf("expected %d/%d/%d, got %d/%d/%d", str.Size(), str.Align(), str.Stride(), ti.Size(), ti.Align(), ti.Stride())
	}
	if ti.StorageType() != str.StorageType() {
		t.Fatalf("expected storage %s, got %s", str.StorageType(), ti.StorageType())
	}
	if !ti.SpareBits().Equal(str.SpareBits()) {
		t.Fatalf("expected spare bits %s, got %s", str.SpareBits(), ti.SpareBits())
	}
	if ti.FixedExtraInhabitantCount() != str.FixedExtraInhabitantCount() {
		t.Fatalf("expected %d extra inhabitants, got %d", str.FixedExtraInhabitantCount(), ti.FixedExtraInhabitantCount())
	}
	if len(ti.Schema()) != len(str.Schema()) {
		t.Fatalf("expected explosion of %d scalars, got %d", len(str.Schema()), len(ti.Schema()))
	}

	value := inject(t, s, 0, u64(64, 5), u64(64, 0x20000))
	if len(value) != 2 || value[0].Lo64() != 5 || value[1].Lo64() != 0x20000 {
		t.Fatalf("injection must be the identity, got %v", value)
	}
	if got := switchOn(t, s, value); got != 0 {
		t.Fatalf("expected switch to reach case 0, got %d", got)
	}
}

func TestVariantAndKindNames(t *testing.T) {
	if VariantMultiPayload.String() != "multi-payload" {
		t.Fatalf("unexpected name %q", VariantMultiPayload.String())
	}
	if CopyDestroyNullableNativeRefcounted.String() != "nullable-native-refcounted" {
		t.Fatalf("unexpected name %q", CopyDestroyNullableNativeRefcounted.String())
	}
}
