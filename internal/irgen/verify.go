package irgen

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/enumimpl"
	"enumgen/internal/layout"
)

// InvariantCheck names a layout self-check.
type InvariantCheck uint8

const (
	CheckDistinctPatterns InvariantCheck = iota + 1
	CheckPatternSpareBits
	CheckTagCollision
	CheckCommonSpareBits
	CheckCapacity
)

func (c InvariantCheck) String() string {
	switch c {
	case CheckDistinctPatterns:
		return "distinct no-payload patterns"
	case CheckPatternSpareBits:
		return "no-payload pattern sets a spare bit"
	case CheckTagCollision:
		return "no-payload pattern decodes to a payload case"
	case CheckCommonSpareBits:
		return "common spare bits"
	case CheckCapacity:
		return "extra inhabitant capacity"
	default:
		return fmt.Sprintf("InvariantCheck(%d)", c)
	}
}

// InvariantError is a layout that contradicts itself. It points at a bug in
// strategy selection, never at the input.
type InvariantError struct {
	Enum   string
	Check  InvariantCheck
	Detail string
}

func (e *InvariantError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("enum %s: layout invariant violated (%s): %s", e.Enum, e.Check, e.Detail)
}

// IsTagCollision reports whether the violation is a tag collision.
func (e *InvariantError) IsTagCollision() bool {
	return e != nil && e.Check == CheckTagCollision
}

// Verify checks the computed layout of s. Runtime-completed layouts have no
// static patterns and pass trivially.
func Verify(s enumimpl.Strategy) error {
	ti := s.TypeInfo()
	fixed, ok := layout.AsFixed(ti)
	if !ok {
		return nil
	}
	name := ti.Name()
	f := s.Facts()
	fail := func(check InvariantCheck, format string, args ...any) error {
		return &InvariantError{Enum: name, Check: check, Detail: fmt.Sprintf(format, args...)}
	}

	empties := s.ElementsWithNoPayload()
	patterns := make([]bitvec.Bits, len(empties))
	for i, el := range empties {
		patterns[i] = s.BitPatternForNoPayloadElement(el.Index)
	}

	// Imported C enums may alias raw values.
	if f.Variant != enumimpl.VariantCNoPayload {
		seen := make(map[string]string, len(patterns))
		for i, p := range patterns {
			key := p.Hex()
			if prev, dup := seen[key]; dup {
				return fail(CheckDistinctPatterns, "cases %s and %s share pattern %s", prev, empties[i].Name, key)
			}
			seen[key] = empties[i].Name
		}
	}

	spare := fixed.SpareBits()
	for i, p := range patterns {
		if p.Width() != spare.Width() {
			continue
		}
		if clash := p.And(spare); !clash.IsZero() {
			return fail(CheckPatternSpareBits, "case %s pattern %s sets spare bits %s", empties[i].Name, p.Hex(), clash.Hex())
		}
	}

	switch f.Variant {
	case enumimpl.VariantSinglePayload:
		if err := verifySinglePayload(s, f, empties, patterns); err != nil {
			return fail(CheckTagCollision, "%v", err)
		}
	case enumimpl.VariantMultiPayload:
		if err := verifyCommonSpareBits(s, f); err != nil {
			return fail(CheckCommonSpareBits, "%v", err)
		}
		if err := verifyMultiPayloadTags(s, f, empties, patterns); err != nil {
			return fail(CheckTagCollision, "%v", err)
		}
	}

	width := fixed.Size() * 8
	if width < 64 {
		states := uint64(fixed.FixedExtraInhabitantCount()) + uint64(len(s.Cases()))
		if states > uint64(1)<<uint(width) { //nolint:gosec // G115: width < 64.
			return fail(CheckCapacity, "%d extra inhabitants and %d cases exceed %d bits", fixed.FixedExtraInhabitantCount(), len(s.Cases()), width)
		}
	}
	return nil
}

// A single-payload pattern without extra tag must reuse one of the first
// payload inhabitants; anything else is a valid payload value.
func verifySinglePayload(s enumimpl.Strategy, f enumimpl.Facts, empties []enumimpl.Element, patterns []bitvec.Bits) error {
	payload, ok := layout.AsFixed(s.ElementsWithPayload()[0].Payload)
	if !ok {
		return nil
	}
	avail := payload.FixedExtraInhabitantCount()
	inhabitants := make(map[string]bool)
	for i := uint32(0); i < avail && int(i) < len(empties); i++ {
		inhabitants[payload.FixedExtraInhabitantValue(i).Resize(f.PayloadBits).Hex()] = true
	}
	for i, p := range patterns {
		part := p.Extract(0, f.PayloadBits)
		if p.Width() > f.PayloadBits && !p.Extract(f.PayloadBits, p.Width()-f.PayloadBits).IsZero() {
			continue
		}
		if !inhabitants[part.Hex()] {
			return fmt.Errorf("case %s pattern %s is a valid %s value", empties[i].Name, p.Hex(), payload.Name())
		}
	}
	return nil
}

func verifyCommonSpareBits(s enumimpl.Strategy, f enumimpl.Facts) error {
	common, ptb := f.CommonSpareBits, f.PayloadTagBits
	if ptb.Width() == common.Width() && !ptb.AndNot(common).IsZero() {
		return fmt.Errorf("payload tag bits %s outside common spare bits %s", ptb.Hex(), common.Hex())
	}
	for _, el := range s.ElementsWithPayload() {
		p, ok := layout.AsFixed(el.Payload)
		if !ok {
			continue
		}
		w := p.Size() * 8
		if w > common.Width() {
			return fmt.Errorf("case %s payload is wider than the payload area", el.Name)
		}
		own := common.Trunc(w)
		allowed := bitvec.New(w)
		if p.SizeClass() == layout.SizeFixed {
			allowed = p.SpareBits()
		}
		if extra := own.AndNot(allowed); !extra.IsZero() {
			return fmt.Errorf("common spare bits %s are used by case %s (%s)", extra.Hex(), el.Name, p.Name())
		}
	}
	return nil
}

// Decodes each multi-payload pattern back to its tag: the spare-bit part
// gathered from the payload area, extended by the extra tag.
func verifyMultiPayloadTags(s enumimpl.Strategy, f enumimpl.Facts, empties []enumimpl.Element, patterns []bitvec.Bits) error {
	numPayloads := uint64(len(s.ElementsWithPayload()))
	ptb := f.PayloadTagBits
	nPTB := ptb.PopCount()
	for i, p := range patterns {
		tag := bitvec.Gather(p.Extract(0, f.PayloadBits), ptb).Lo64()
		if p.Width() > f.PayloadBits {
			extra := p.Extract(f.PayloadBits, p.Width()-f.PayloadBits).Lo64()
			if nPTB < 64 {
				tag |= extra << uint(nPTB) //nolint:gosec // G115: nPTB < 64.
			}
		}
		if tag < numPayloads {
			return fmt.Errorf("case %s pattern %s carries payload tag %d", empties[i].Name, p.Hex(), tag)
		}
	}
	return nil
}
