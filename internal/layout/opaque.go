package layout

import (
	"enumgen/internal/ir"
	"enumgen/internal/rtabi"
)

// opaqueTypeInfo is a value whose layout only the runtime knows. Every
// operation goes through the value witnesses of its metadata.
type opaqueTypeInfo struct {
	name  string
	class SizeClass
}

var _ TypeInfo = (*opaqueTypeInfo)(nil)

func newOpaqueTypeInfo(name string, class SizeClass) *opaqueTypeInfo {
	return &opaqueTypeInfo{name: name, class: class}
}

func (o *opaqueTypeInfo) Name() string               { return o.name }
func (o *opaqueTypeInfo) Kind() Kind                 { return Opaque }
func (o *opaqueTypeInfo) SizeClass() SizeClass       { return o.class }
func (o *opaqueTypeInfo) IsPOD() bool                { return false }
func (o *opaqueTypeInfo) SinglePointer() PointerKind { return NotSinglePointer }

func (o *opaqueTypeInfo) Metadata(b ir.Builder) *ir.Value {
	return b.Global("md." + o.name)
}

func (o *opaqueTypeInfo) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	witnessCopy(b, rtabi.FnVWInitializeWithCopy, o.Metadata(b), dst, src)
}

func (o *opaqueTypeInfo) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	witnessCopy(b, rtabi.FnVWInitializeWithTake, o.Metadata(b), dst, src)
}

func (o *opaqueTypeInfo) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	witnessCopy(b, rtabi.FnVWAssignWithCopy, o.Metadata(b), dst, src)
}

func (o *opaqueTypeInfo) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	witnessCopy(b, rtabi.FnVWAssignWithTake, o.Metadata(b), dst, src)
}

func (o *opaqueTypeInfo) Destroy(b ir.Builder, addr *ir.Value) {
	witnessDestroy(b, o.Metadata(b), addr)
}

func (o *opaqueTypeInfo) MayHaveExtraInhabitants() bool { return true }

func (o *opaqueTypeInfo) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	return b.Call(rtabi.FnVWGetExtraInhabitantIdx, ir.I32, addr, o.Metadata(b))
}

func (o *opaqueTypeInfo) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	b.Call(rtabi.FnVWStoreExtraInhabitant, ir.Void, addr, index, o.Metadata(b))
}
