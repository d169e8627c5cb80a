package layout

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/rtabi"
)

// refTypeInfo is a single managed reference. Its spare bits are the heap
// object spare bits of the target, and every aligned address below the least
// valid pointer is an extra inhabitant.
type refTypeInfo struct {
	FixedBase
	target  Target
	unknown bool
}

var _ LoadableTypeInfo = (*refTypeInfo)(nil)

func newRefTypeInfo(t Target, unknown bool) *refTypeInfo {
	name, pk := "Ref", SingleNativePointer
	if unknown {
		name, pk = "UnknownRef", SingleUnknownPointer
	}
	return &refTypeInfo{
		FixedBase: FixedBase{
			TypeName:  name,
			Bytes:     t.PtrSize,
			Alignment: t.PtrAlign,
			Spare:     t.HeapObjectSpareMask(),
			Pointer:   pk,
			Storage:   "ptr",
		},
		target:  t,
		unknown: unknown,
	}
}

func (r *refTypeInfo) Kind() Kind     { return Loadable }
func (r *refTypeInfo) Schema() []Slot { return []Slot{{Type: ir.Ptr}} }

func (r *refTypeInfo) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return LoadSlots(b, r.Schema(), addr)
}

func (r *refTypeInfo) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return r.Copy(b, r.LoadAsTake(b, addr))
}

func (r *refTypeInfo) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	StoreSlots(b, r.Schema(), vals, addr)
}

func (r *refTypeInfo) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	LoadableAssign(b, r, vals, addr)
}

func (r *refTypeInfo) Copy(b ir.Builder, vals []*ir.Value) []*ir.Value {
	b.Call(rtabi.Retain(r.unknown), ir.Void, vals[0])
	return vals
}

func (r *refTypeInfo) Consume(b ir.Builder, vals []*ir.Value) {
	b.Call(rtabi.Release(r.unknown), ir.Void, vals[0])
}

func (r *refTypeInfo) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return PackSlots(b, r.Schema(), vals, width, bitOffset, r.target.PtrBits())
}

func (r *refTypeInfo) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return UnpackSlots(b, r.Schema(), payload, bitOffset, r.target.PtrBits())
}

func (r *refTypeInfo) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	LoadableInitializeWithCopy(b, r, dst, src)
}

func (r *refTypeInfo) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	LoadableInitializeWithTake(b, r, dst, src)
}

func (r *refTypeInfo) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	LoadableAssignWithCopy(b, r, dst, src)
}

func (r *refTypeInfo) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	LoadableAssignWithTake(b, r, dst, src)
}

func (r *refTypeInfo) Destroy(b ir.Builder, addr *ir.Value) {
	LoadableDestroy(b, r, addr)
}

func (r *refTypeInfo) MayHaveExtraInhabitants() bool { return true }

func (r *refTypeInfo) FixedExtraInhabitantCount() uint32 {
	n := r.target.LeastValidPointer >> uint(r.target.ptrAlignShift()) //nolint:gosec // G115: small exponent.
	if n > uint64(NotAnInhabitant-1) {
		return NotAnInhabitant - 1
	}
	return uint32(n)
}

func (r *refTypeInfo) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	if index >= r.FixedExtraInhabitantCount() {
		panic("layout: extra inhabitant index out of range")
	}
	return bitvec.FromUint64(r.target.PtrBits(), uint64(index)<<uint(r.target.ptrAlignShift())) //nolint:gosec // G115: small exponent.
}

func (r *refTypeInfo) FixedExtraInhabitantMask() bitvec.Bits {
	return bitvec.AllOnes(r.target.PtrBits())
}

func (r *refTypeInfo) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	v := b.Load(ir.Int(r.target.PtrBits()), addr)
	return InhabitantIndexFromValue(b, v, 0, r.FixedExtraInhabitantCount(), r.target.ptrAlignShift())
}

func (r *refTypeInfo) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	w := r.target.PtrBits()
	b.Store(b.Shl(ResizeInt(b, index, w), r.target.ptrAlignShift()), addr)
}
