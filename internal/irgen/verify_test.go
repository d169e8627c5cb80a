package irgen

import (
	"errors"
	"testing"

	"enumgen/internal/bitvec"
	"enumgen/internal/enumimpl"
	"enumgen/internal/types"
)

// fixedPattern reports the same one-byte pattern for every empty case.
type fixedPattern struct {
	enumimpl.Strategy
	value uint64
}

func (s fixedPattern) BitPatternForNoPayloadElement(int) bitvec.Bits {
	return bitvec.FromUint64(8, s.value)
}

func TestVerifyDetectsAliasedPatterns(t *testing.T) {
	c := newTestContext(Options{})
	id := c.Types.RegisterEnum("Color")
	c.Types.SetEnumCases(id, []types.EnumCase{{Name: "red"}, {Name: "green"}, {Name: "blue"}})
	s := mustConvert(t, c, id)

	if err := Verify(s); err != nil {
		t.Fatalf("expected valid layout, got %v", err)
	}
	err := Verify(fixedPattern{s, 1})
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Check != CheckDistinctPatterns {
		t.Fatalf("expected distinct-pattern violation, got %v", err)
	}
}

func TestVerifyDetectsTagCollision(t *testing.T) {
	c := newTestContext(Options{})
	id := c.Types.RegisterEnum("MaybeBool")
	c.Types.SetEnumCases(id, []types.EnumCase{{Name: "some", Payload: c.Types.Builtins().Bool}, {Name: "none"}})
	s := mustConvert(t, c, id)

	err := Verify(fixedPattern{s, 1})
	var ie *InvariantError
	if !errors.As(err, &ie) || !ie.IsTagCollision() {
		t.Fatalf("expected tag collision, got %v", err)
	}
}

func TestVerifyDetectsSpareBitPattern(t *testing.T) {
	c := newTestContext(Options{})
	id := c.Types.RegisterEnum("Flags")
	b := c.Types.Builtins()
	c.Types.SetEnumCases(id, []types.EnumCase{
		{Name: "a", Payload: b.Bool}, {Name: "b", Payload: b.Bool}, {Name: "c"},
	})
	s := mustConvert(t, c, id)

	// 0x02 lies in the exported spare bits of Flags.
	err := Verify(fixedPattern{s, 0x82})
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Check != CheckPatternSpareBits {
		t.Fatalf("expected spare-bit violation, got %v", err)
	}
}
