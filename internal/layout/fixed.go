package layout

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/rtabi"
)

// FixedBase holds the layout facts shared by every fixed-size TypeInfo.
// Concrete infos embed it and add their own operations.
type FixedBase struct {
	TypeName  string
	Bytes     int
	Alignment int
	Spare     bitvec.Bits
	POD       bool
	Pointer   PointerKind
	Storage   string
	Class     SizeClass
}

func (f *FixedBase) Name() string               { return f.TypeName }
func (f *FixedBase) Size() int                  { return f.Bytes }
func (f *FixedBase) Align() int                 { return f.Alignment }
func (f *FixedBase) IsPOD() bool                { return f.POD }
func (f *FixedBase) SinglePointer() PointerKind { return f.Pointer }
func (f *FixedBase) StorageType() string        { return f.Storage }
func (f *FixedBase) SizeClass() SizeClass       { return f.Class }
func (f *FixedBase) SpareBits() bitvec.Bits     { return f.Spare }

// Stride is the size rounded up to the alignment, and never zero.
func (f *FixedBase) Stride() int {
	s := roundUp(f.Bytes, f.Alignment)
	if s == 0 {
		return 1
	}
	return s
}

// Metadata references the type's runtime metadata symbol.
func (f *FixedBase) Metadata(b ir.Builder) *ir.Value {
	return b.Global("md." + f.TypeName)
}

// Explosion helpers shared by loadable infos -----------------------------------

// LoadSlots loads each scalar of schema from addr.
func LoadSlots(b ir.Builder, schema []Slot, addr *ir.Value) []*ir.Value {
	out := make([]*ir.Value, 0, len(schema))
	for _, s := range schema {
		out = append(out, b.Load(s.Type, b.GEP(addr, s.Offset)))
	}
	return out
}

// StoreSlots stores each scalar of vals at its schema offset from addr.
func StoreSlots(b ir.Builder, schema []Slot, vals []*ir.Value, addr *ir.Value) {
	mustArity(schema, vals)
	for i, s := range schema {
		b.Store(vals[i], b.GEP(addr, s.Offset))
	}
}

// PackSlots places vals inside an integer of the given width, each scalar at
// bitOffset plus its storage offset.
func PackSlots(b ir.Builder, schema []Slot, vals []*ir.Value, width, bitOffset, ptrBits int) *ir.Value {
	mustArity(schema, vals)
	acc := b.ConstInt(width, 0)
	for i, s := range schema {
		v := vals[i]
		if s.Type.IsPtr() {
			v = b.PtrToInt(v, ptrBits)
		}
		shift := bitOffset + s.Offset*8
		if shift >= width {
			continue
		}
		if v.Type.Bits > width-shift {
			v = b.Trunc(v, width-shift)
		}
		acc = b.Or(acc, b.Shl(b.ZExt(v, width), shift))
	}
	return acc
}

// UnpackSlots is the inverse of PackSlots.
func UnpackSlots(b ir.Builder, schema []Slot, payload *ir.Value, bitOffset, ptrBits int) []*ir.Value {
	out := make([]*ir.Value, 0, len(schema))
	for _, s := range schema {
		bits := s.Type.Bits
		if s.Type.IsPtr() {
			bits = ptrBits
		}
		v := b.Trunc(b.LShr(payload, bitOffset+s.Offset*8), bits)
		if s.Type.IsPtr() {
			v = b.IntToPtr(v)
		}
		out = append(out, v)
	}
	return out
}

func mustArity(schema []Slot, vals []*ir.Value) {
	if len(schema) != len(vals) {
		panic("layout: explosion arity mismatch")
	}
}

// Address operations expressed through the explosion ---------------------------

func LoadableInitializeWithCopy(b ir.Builder, ti LoadableTypeInfo, dst, src *ir.Value) {
	ti.Initialize(b, ti.LoadAsCopy(b, src), dst)
}

func LoadableInitializeWithTake(b ir.Builder, ti LoadableTypeInfo, dst, src *ir.Value) {
	b.MemCpy(dst, src, ti.Size())
}

func LoadableAssignWithCopy(b ir.Builder, ti LoadableTypeInfo, dst, src *ir.Value) {
	ti.Assign(b, ti.LoadAsCopy(b, src), dst)
}

func LoadableAssignWithTake(b ir.Builder, ti LoadableTypeInfo, dst, src *ir.Value) {
	ti.Assign(b, ti.LoadAsTake(b, src), dst)
}

// LoadableAssign stores the new value before releasing the old one, which
// keeps assignment of a value to itself safe.
func LoadableAssign(b ir.Builder, ti LoadableTypeInfo, vals []*ir.Value, dst *ir.Value) {
	if ti.IsPOD() {
		ti.Initialize(b, vals, dst)
		return
	}
	old := ti.LoadAsTake(b, dst)
	ti.Initialize(b, vals, dst)
	ti.Consume(b, old)
}

func LoadableDestroy(b ir.Builder, ti LoadableTypeInfo, addr *ir.Value) {
	if ti.IsPOD() {
		return
	}
	ti.Consume(b, ti.LoadAsTake(b, addr))
}

// InhabitantIndexFromValue computes the i32 index of an extra inhabitant
// encoded as v in [first, first+count), or NotAnInhabitant.
func InhabitantIndexFromValue(b ir.Builder, v *ir.Value, first uint64, count uint32, shift int) *ir.Value {
	w := v.Type.Bits
	d := b.Sub(v, b.ConstInt(w, first))
	limit := uint64(count) << uint(shift) //nolint:gosec // G115: shift is an alignment exponent.
	isInhabitant := b.ICmp(ir.PredULT, d, b.ConstInt(w, limit))
	idx := b.LShr(d, shift)
	if w > 32 {
		idx = b.Trunc(idx, 32)
	} else {
		idx = b.ZExt(idx, 32)
	}
	return b.Select(isInhabitant, idx, b.ConstInt(32, uint64(NotAnInhabitant)))
}

// Value witness calls for runtime-sized values ---------------------------------

func witnessCopy(b ir.Builder, fn string, md, dst, src *ir.Value) {
	b.Call(fn, ir.Void, dst, src, md)
}

func witnessDestroy(b ir.Builder, md, addr *ir.Value) {
	b.Call(rtabi.FnVWDestroy, ir.Void, addr, md)
}
