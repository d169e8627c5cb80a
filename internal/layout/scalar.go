package layout

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
)

// scalarTypeInfo covers single-scalar payloads: integers, floats, Bool and
// RawPointer. Extra inhabitants, if any, are the contiguous storage values
// [first, first+count).
type scalarTypeInfo struct {
	FixedBase
	slot    Slot
	ptrBits int
	first   uint64
	count   uint32
}

var _ LoadableTypeInfo = (*scalarTypeInfo)(nil)

func newIntTypeInfo(name string, bytes int) *scalarTypeInfo {
	return &scalarTypeInfo{
		FixedBase: FixedBase{
			TypeName:  name,
			Bytes:     bytes,
			Alignment: bytes,
			Spare:     bitvec.New(bytes * 8),
			POD:       true,
			Storage:   ir.Int(bytes * 8).String(),
		},
		slot: Slot{Type: ir.Int(bytes * 8)},
	}
}

// newBoolTypeInfo lays Bool out as an i1 in one byte; the values 2...255
// are extra inhabitants.
func newBoolTypeInfo() *scalarTypeInfo {
	return &scalarTypeInfo{
		FixedBase: FixedBase{
			TypeName:  "Bool",
			Bytes:     1,
			Alignment: 1,
			Spare:     bitvec.FromUint64(8, 0xFE),
			POD:       true,
			Storage:   "i1",
		},
		slot:  Slot{Type: ir.I1},
		first: 2,
		count: 254,
	}
}

// newRawPointerTypeInfo has no spare bits, but every address below the
// least valid pointer is an extra inhabitant.
func newRawPointerTypeInfo(t Target) *scalarTypeInfo {
	count := t.LeastValidPointer
	if count > uint64(NotAnInhabitant) {
		count = uint64(NotAnInhabitant)
	}
	return &scalarTypeInfo{
		FixedBase: FixedBase{
			TypeName:  "RawPointer",
			Bytes:     t.PtrSize,
			Alignment: t.PtrAlign,
			Spare:     bitvec.New(t.PtrBits()),
			POD:       true,
			Storage:   "ptr",
		},
		slot:    Slot{Type: ir.Ptr},
		ptrBits: t.PtrBits(),
		count:   uint32(count), //nolint:gosec // clamped above
	}
}

func (s *scalarTypeInfo) Kind() Kind     { return Loadable }
func (s *scalarTypeInfo) Schema() []Slot { return []Slot{s.slot} }

func (s *scalarTypeInfo) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return LoadSlots(b, s.Schema(), addr)
}

func (s *scalarTypeInfo) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return LoadSlots(b, s.Schema(), addr)
}

func (s *scalarTypeInfo) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	StoreSlots(b, s.Schema(), vals, addr)
}

func (s *scalarTypeInfo) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	StoreSlots(b, s.Schema(), vals, addr)
}

func (s *scalarTypeInfo) Copy(_ ir.Builder, vals []*ir.Value) []*ir.Value { return vals }
func (s *scalarTypeInfo) Consume(ir.Builder, []*ir.Value)                 {}

func (s *scalarTypeInfo) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return PackSlots(b, s.Schema(), vals, width, bitOffset, s.ptrBits)
}

func (s *scalarTypeInfo) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return UnpackSlots(b, s.Schema(), payload, bitOffset, s.ptrBits)
}

func (s *scalarTypeInfo) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	LoadableInitializeWithCopy(b, s, dst, src)
}

func (s *scalarTypeInfo) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	LoadableInitializeWithTake(b, s, dst, src)
}

func (s *scalarTypeInfo) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	LoadableAssignWithCopy(b, s, dst, src)
}

func (s *scalarTypeInfo) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	LoadableAssignWithTake(b, s, dst, src)
}

func (s *scalarTypeInfo) Destroy(ir.Builder, *ir.Value) {}

func (s *scalarTypeInfo) MayHaveExtraInhabitants() bool     { return s.count > 0 }
func (s *scalarTypeInfo) FixedExtraInhabitantCount() uint32 { return s.count }

func (s *scalarTypeInfo) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	if index >= s.count {
		panic("layout: extra inhabitant index out of range")
	}
	return bitvec.FromUint64(s.Bytes*8, s.first+uint64(index))
}

func (s *scalarTypeInfo) FixedExtraInhabitantMask() bitvec.Bits {
	if s.count == 0 {
		return bitvec.New(s.Bytes * 8)
	}
	return bitvec.AllOnes(s.Bytes * 8)
}

func (s *scalarTypeInfo) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	if s.count == 0 {
		return b.ConstInt(32, uint64(NotAnInhabitant))
	}
	v := b.Load(ir.Int(s.Bytes*8), addr)
	return InhabitantIndexFromValue(b, v, s.first, s.count, 0)
}

func (s *scalarTypeInfo) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	w := s.Bytes * 8
	v := b.Add(ResizeInt(b, index, w), b.ConstInt(w, s.first))
	b.Store(v, addr)
}

// ResizeInt zero-extends or truncates v to bits.
func ResizeInt(b ir.Builder, v *ir.Value, bits int) *ir.Value {
	if v.Type.Bits < bits {
		return b.ZExt(v, bits)
	}
	return b.Trunc(v, bits)
}

// emptyTypeInfo is a zero-sized loadable value such as Unit.
type emptyTypeInfo struct {
	FixedBase
}

var _ LoadableTypeInfo = (*emptyTypeInfo)(nil)

func newEmptyTypeInfo(name string) *emptyTypeInfo {
	return &emptyTypeInfo{FixedBase{TypeName: name, Alignment: 1, Spare: bitvec.New(0), POD: true, Storage: "{}"}}
}

func (e *emptyTypeInfo) Kind() Kind                                            { return Loadable }
func (e *emptyTypeInfo) Schema() []Slot                                        { return nil }
func (e *emptyTypeInfo) LoadAsCopy(ir.Builder, *ir.Value) []*ir.Value          { return nil }
func (e *emptyTypeInfo) LoadAsTake(ir.Builder, *ir.Value) []*ir.Value          { return nil }
func (e *emptyTypeInfo) Initialize(ir.Builder, []*ir.Value, *ir.Value)         {}
func (e *emptyTypeInfo) Assign(ir.Builder, []*ir.Value, *ir.Value)             {}
func (e *emptyTypeInfo) Copy(ir.Builder, []*ir.Value) []*ir.Value              { return nil }
func (e *emptyTypeInfo) Consume(ir.Builder, []*ir.Value)                       {}
func (e *emptyTypeInfo) InitializeWithCopy(ir.Builder, *ir.Value, *ir.Value)   {}
func (e *emptyTypeInfo) InitializeWithTake(ir.Builder, *ir.Value, *ir.Value)   {}
func (e *emptyTypeInfo) AssignWithCopy(ir.Builder, *ir.Value, *ir.Value)       {}
func (e *emptyTypeInfo) AssignWithTake(ir.Builder, *ir.Value, *ir.Value)       {}
func (e *emptyTypeInfo) Destroy(ir.Builder, *ir.Value)                         {}
func (e *emptyTypeInfo) MayHaveExtraInhabitants() bool                         { return false }
func (e *emptyTypeInfo) FixedExtraInhabitantCount() uint32                     { return 0 }
func (e *emptyTypeInfo) FixedExtraInhabitantMask() bitvec.Bits                 { return bitvec.New(0) }
func (e *emptyTypeInfo) StoreExtraInhabitant(ir.Builder, *ir.Value, *ir.Value) {}

func (e *emptyTypeInfo) FixedExtraInhabitantValue(uint32) bitvec.Bits {
	panic("layout: empty type has no extra inhabitants")
}

func (e *emptyTypeInfo) ExtraInhabitantIndex(b ir.Builder, _ *ir.Value) *ir.Value {
	return b.ConstInt(32, uint64(NotAnInhabitant))
}

func (e *emptyTypeInfo) PackIntoEnumPayload(b ir.Builder, _ []*ir.Value, width, _ int) *ir.Value {
	return b.ConstInt(width, 0)
}

func (e *emptyTypeInfo) UnpackFromEnumPayload(ir.Builder, *ir.Value, int) []*ir.Value { return nil }

// NewEmpty returns a zero-sized loadable TypeInfo.
func NewEmpty(name string) LoadableTypeInfo {
	return newEmptyTypeInfo(name)
}
