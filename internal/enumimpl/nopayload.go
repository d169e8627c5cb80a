package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// noPayload lays out an enum whose cases carry no data as a single integer
// discriminator. Native enums number their cases 0..n-1 and expose every
// larger value as an extra inhabitant; C-imported enums use the declared raw
// values at the width of the C storage type and expose nothing.
type noPayload struct {
	enumBase
	imported bool
	tagBits  int
	bytes    int
	align    int
	values   []bitvec.Bits
}

var _ impl = (*noPayload)(nil)

func newNoPayload(d EnumDecl, bk buckets) *noPayload {
	n := len(bk.all)
	tagBits := bitvec.Log2Ceil(uint64(n)) //nolint:gosec // G115: case counts are small and non-negative.
	bytes := bitvec.PowerOf2Ceil(max((tagBits+7)/8, 1))
	s := &noPayload{
		enumBase: newEnumBase(d, bk),
		tagBits:  tagBits,
		bytes:    bytes,
		align:    bytes,
	}
	for i := range bk.all {
		s.values = append(s.values, bitvec.FromUint64(bytes*8, uint64(i))) //nolint:gosec // G115: non-negative index.
	}
	return s
}

func newCNoPayload(d EnumDecl, bk buckets) (*noPayload, error) {
	if d.CType == nil {
		return nil, &UnsupportedError{Kind: UnsupportedInvalidCase, Enum: d.Name, Detail: "imported enum has no C storage type"}
	}
	switch d.CType.Size() {
	case 1, 2, 4, 8:
	default:
		return nil, &UnsupportedError{
			Kind:   UnsupportedInvalidCase,
			Enum:   d.Name,
			Detail: fmt.Sprintf("C storage type %s is not an integer", d.CType.Name()),
		}
	}
	width := d.CType.Size() * 8
	s := &noPayload{
		enumBase: newEnumBase(d, bk),
		imported: true,
		tagBits:  width,
		bytes:    d.CType.Size(),
		align:    d.CType.Align(),
	}
	for _, el := range bk.all {
		if el.Payload != nil {
			return nil, &UnsupportedError{Kind: UnsupportedInvalidCase, Enum: d.Name, Case: el.Name, Detail: "imported C enum cases cannot carry payloads"}
		}
		if !el.HasRawValue {
			return nil, &UnsupportedError{Kind: UnsupportedBadRawValue, Enum: d.Name, Case: el.Name, Detail: "missing raw value"}
		}
		if !fitsWidth(el.RawValue, width) {
			return nil, &UnsupportedError{
				Kind:   UnsupportedBadRawValue,
				Enum:   d.Name,
				Case:   el.Name,
				Detail: fmt.Sprintf("raw value %d does not fit %s", el.RawValue, d.CType.Name()),
			}
		}
		s.values = append(s.values, bitvec.FromInt64(width, el.RawValue))
	}
	return s, nil
}

// fitsWidth reports whether v is representable in width bits as either a
// signed or an unsigned integer.
func fitsWidth(v int64, width int) bool {
	if width >= 64 {
		return true
	}
	lo := -(int64(1) << uint(width-1)) //nolint:gosec // G115: width is 8..32.
	hi := int64(1)<<uint(width) - 1    //nolint:gosec // G115: width is 8..32.
	return v >= lo && v <= hi
}

func (s *noPayload) width() int { return s.bytes * 8 }

func (s *noPayload) Variant() Variant {
	if s.imported {
		return VariantCNoPayload
	}
	return VariantNoPayload
}

func (s *noPayload) Facts() Facts {
	return Facts{
		Variant:              s.Variant(),
		Kind:                 layout.Loadable,
		SizeClass:            layout.SizeFixed,
		CopyDestroy:          CopyDestroyPOD,
		Size:                 s.Size(),
		Align:                s.Align(),
		Stride:               s.Stride(),
		TagBits:              s.tagBits,
		ExtraInhabitantCount: s.FixedExtraInhabitantCount(),
	}
}

func (s *noPayload) TypeInfo() layout.TypeInfo                    { return wrapTypeInfo(s) }
func (s *noPayload) Kind() layout.Kind                            { return layout.Loadable }
func (s *noPayload) SizeClass() layout.SizeClass                  { return layout.SizeFixed }
func (s *noPayload) IsPOD() bool                                  { return true }
func (s *noPayload) SinglePointer() layout.PointerKind            { return layout.NotSinglePointer }
func (s *noPayload) Size() int                                    { return s.bytes }
func (s *noPayload) Align() int                                   { return s.align }
func (s *noPayload) Stride() int                                  { return s.bytes }
func (s *noPayload) StorageType() string                          { return ir.Int(s.width()).String() }
func (s *noPayload) Schema() []layout.Slot                        { return []layout.Slot{{Type: ir.Int(s.width())}} }
func (s *noPayload) Copy(_ ir.Builder, v []*ir.Value) []*ir.Value { return v }
func (s *noPayload) Consume(ir.Builder, []*ir.Value)              {}
func (s *noPayload) Destroy(ir.Builder, *ir.Value)                {}
func (s *noPayload) InitializeMetadata(ir.Builder, *ir.Value)     {}

func (s *noPayload) SpareBits() bitvec.Bits {
	if s.imported {
		return bitvec.New(s.width())
	}
	return bitvec.Range(s.width(), s.tagBits, s.width())
}

// Extra inhabitants are the values n, n+1, ... up to the storage width.

func (s *noPayload) MayHaveExtraInhabitants() bool { return s.FixedExtraInhabitantCount() > 0 }

func (s *noPayload) FixedExtraInhabitantCount() uint32 {
	if s.imported {
		return 0
	}
	n := uint64(len(s.values)) //nolint:gosec // G115: non-negative length.
	if s.width() >= 32 {
		return layout.NotAnInhabitant - 1
	}
	return uint32((uint64(1) << uint(s.width())) - n) //nolint:gosec // G115: width < 32.
}

func (s *noPayload) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	if index >= s.FixedExtraInhabitantCount() {
		panic(fmt.Sprintf("enumimpl: %s has no extra inhabitant %d", s.name, index))
	}
	return bitvec.FromUint64(s.width(), uint64(len(s.values))+uint64(index)) //nolint:gosec // G115: non-negative length.
}

func (s *noPayload) FixedExtraInhabitantMask() bitvec.Bits {
	if s.imported {
		return bitvec.New(s.width())
	}
	return bitvec.AllOnes(s.width())
}

func (s *noPayload) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	count := s.FixedExtraInhabitantCount()
	if count == 0 {
		return b.ConstInt(32, uint64(layout.NotAnInhabitant))
	}
	v := b.Load(ir.Int(s.width()), addr)
	return layout.InhabitantIndexFromValue(b, v, uint64(len(s.values)), count, 0) //nolint:gosec // G115: non-negative length.
}

func (s *noPayload) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	v := layout.ResizeInt(b, index, s.width())
	b.Store(b.Add(v, b.ConstInt(s.width(), uint64(len(s.values)))), addr) //nolint:gosec // G115: non-negative length.
}

// Explosion and address operations are bitwise.

func (s *noPayload) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return layout.LoadSlots(b, s.Schema(), addr)
}

func (s *noPayload) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return layout.LoadSlots(b, s.Schema(), addr)
}

func (s *noPayload) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.StoreSlots(b, s.Schema(), vals, addr)
}

func (s *noPayload) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.StoreSlots(b, s.Schema(), vals, addr)
}

func (s *noPayload) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) { b.MemCpy(dst, src, s.bytes) }
func (s *noPayload) InitializeWithTake(b ir.Builder, dst, src *ir.Value) { b.MemCpy(dst, src, s.bytes) }
func (s *noPayload) AssignWithCopy(b ir.Builder, dst, src *ir.Value)     { b.MemCpy(dst, src, s.bytes) }
func (s *noPayload) AssignWithTake(b ir.Builder, dst, src *ir.Value)     { b.MemCpy(dst, src, s.bytes) }

func (s *noPayload) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return packScalars(b, s.Schema(), vals, width, bitOffset)
}

func (s *noPayload) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return unpackScalars(b, s.Schema(), payload, bitOffset)
}

// Case operations.

func (s *noPayload) TagBitsForPayloads() bitvec.Bits { return bitvec.New(s.width()) }

func (s *noPayload) BitPatternForNoPayloadElement(c int) bitvec.Bits {
	s.element(c)
	return s.values[c]
}

func (s *noPayload) EmitValueInjection(b ir.Builder, c int, _ []*ir.Value) []*ir.Value {
	s.element(c)
	return []*ir.Value{b.Const(s.values[c])}
}

func (s *noPayload) EmitValueProjection(_ ir.Builder, c int, _ []*ir.Value) []*ir.Value {
	s.element(c)
	return nil
}

func (s *noPayload) EmitValueSwitch(b ir.Builder, value []*ir.Value, dests []CaseDest, def *ir.Block) {
	s.emitSwitch(b, value[0], dests, def)
}

func (s *noPayload) EmitIndirectSwitch(b ir.Builder, addr *ir.Value, dests []CaseDest, def *ir.Block) {
	s.emitSwitch(b, b.Load(ir.Int(s.width()), addr), dests, def)
}

// emitSwitch branches on the discriminator. A C enum may declare the same
// raw value twice; the first declared case wins.
func (s *noPayload) emitSwitch(b ir.Builder, tag *ir.Value, dests []CaseDest, def *ir.Block) {
	def = resolveDefault(b, def)
	m := destMap(dests)
	seen := make(map[string]struct{}, len(s.values))
	var cases []ir.SwitchCase
	for c, v := range s.values {
		key := v.Hex()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		blk, ok := m[c]
		if !ok {
			continue
		}
		cases = append(cases, ir.SwitchCase{Value: v, Dest: blk})
	}
	b.Switch(tag, def, cases...)
}

func (s *noPayload) EmitValueCaseTest(b ir.Builder, value []*ir.Value, c int) *ir.Value {
	s.element(c)
	return b.ICmp(ir.PredEQ, value[0], b.Const(s.values[c]))
}

func (s *noPayload) StoreTag(b ir.Builder, c int, addr *ir.Value) {
	s.element(c)
	b.Store(b.Const(s.values[c]), addr)
}

func (s *noPayload) ProjectDataForStore(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	s.element(c)
	return addr
}

func (s *noPayload) DestructiveProjectData(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	s.element(c)
	return addr
}
