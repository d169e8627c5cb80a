package enumimpl

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// singleton lays out an enum with at most one case. The representation is
// the sole payload's own, or empty.
type singleton struct {
	enumBase
	payload layout.TypeInfo
}

var _ impl = (*singleton)(nil)

func newSingleton(d EnumDecl, bk buckets) *singleton {
	s := &singleton{enumBase: newEnumBase(d, bk)}
	if len(bk.all) == 1 && bk.all[0].Payload != nil {
		s.payload = bk.all[0].Payload
	} else {
		s.payload = layout.NewEmpty(d.Name)
	}
	return s
}

func (s *singleton) fixed() layout.FixedTypeInfo {
	f, ok := layout.AsFixed(s.payload)
	if !ok {
		panic("enumimpl: fixed layout query on opaque enum " + s.name)
	}
	return f
}

func (s *singleton) loadable() layout.LoadableTypeInfo {
	l, ok := layout.AsLoadable(s.payload)
	if !ok {
		s.notLoadable("explosion")
	}
	return l
}

func (s *singleton) Variant() Variant                  { return VariantSingleton }
func (s *singleton) TypeInfo() layout.TypeInfo         { return wrapTypeInfo(s) }
func (s *singleton) Kind() layout.Kind                 { return s.payload.Kind() }
func (s *singleton) SizeClass() layout.SizeClass       { return s.payload.SizeClass() }
func (s *singleton) IsPOD() bool                       { return s.payload.IsPOD() }
func (s *singleton) SinglePointer() layout.PointerKind { return s.payload.SinglePointer() }

func (s *singleton) Metadata(b ir.Builder) *ir.Value { return s.payload.Metadata(b) }

func (s *singleton) Facts() Facts {
	f := Facts{Variant: VariantSingleton, Kind: s.Kind(), SizeClass: s.SizeClass()}
	if s.IsPOD() {
		f.CopyDestroy = CopyDestroyPOD
	} else {
		f.CopyDestroy = CopyDestroyNormal
	}
	if fi, ok := layout.AsFixed(s.payload); ok {
		f.Size, f.Align, f.Stride = fi.Size(), fi.Align(), fi.Stride()
		f.PayloadBits = fi.Size() * 8
		f.ExtraInhabitantCount = fi.FixedExtraInhabitantCount()
	}
	return f
}

// Fixed facts are the payload's.

func (s *singleton) Size() int                         { return s.fixed().Size() }
func (s *singleton) Align() int                        { return s.fixed().Align() }
func (s *singleton) Stride() int                       { return s.fixed().Stride() }
func (s *singleton) StorageType() string               { return s.fixed().StorageType() }
func (s *singleton) SpareBits() bitvec.Bits            { return s.fixed().SpareBits() }
func (s *singleton) FixedExtraInhabitantCount() uint32 { return s.fixed().FixedExtraInhabitantCount() }

func (s *singleton) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	return s.fixed().FixedExtraInhabitantValue(index)
}

func (s *singleton) FixedExtraInhabitantMask() bitvec.Bits {
	return s.fixed().FixedExtraInhabitantMask()
}

// Address operations.

func (s *singleton) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	s.payload.InitializeWithCopy(b, dst, src)
}

func (s *singleton) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	s.payload.InitializeWithTake(b, dst, src)
}

func (s *singleton) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	s.payload.AssignWithCopy(b, dst, src)
}

func (s *singleton) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	s.payload.AssignWithTake(b, dst, src)
}

func (s *singleton) Destroy(b ir.Builder, addr *ir.Value) { s.payload.Destroy(b, addr) }

func (s *singleton) MayHaveExtraInhabitants() bool { return s.payload.MayHaveExtraInhabitants() }

func (s *singleton) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	return s.payload.ExtraInhabitantIndex(b, addr)
}

func (s *singleton) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	s.payload.StoreExtraInhabitant(b, index, addr)
}

// Explosion operations.

func (s *singleton) Schema() []layout.Slot { return s.loadable().Schema() }

func (s *singleton) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return s.loadable().LoadAsCopy(b, addr)
}

func (s *singleton) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return s.loadable().LoadAsTake(b, addr)
}

func (s *singleton) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	s.loadable().Initialize(b, vals, addr)
}

func (s *singleton) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	s.loadable().Assign(b, vals, addr)
}

func (s *singleton) Copy(b ir.Builder, vals []*ir.Value) []*ir.Value {
	return s.loadable().Copy(b, vals)
}

func (s *singleton) Consume(b ir.Builder, vals []*ir.Value) { s.loadable().Consume(b, vals) }

func (s *singleton) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return s.loadable().PackIntoEnumPayload(b, vals, width, bitOffset)
}

func (s *singleton) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return s.loadable().UnpackFromEnumPayload(b, payload, bitOffset)
}

// Case operations. There is never a tag to store or test.

func (s *singleton) TagBitsForPayloads() bitvec.Bits {
	if fi, ok := layout.AsFixed(s.payload); ok {
		return bitvec.New(fi.Size() * 8)
	}
	return bitvec.New(0)
}

func (s *singleton) BitPatternForNoPayloadElement(c int) bitvec.Bits {
	s.element(c)
	return s.TagBitsForPayloads()
}

func (s *singleton) EmitValueInjection(_ ir.Builder, c int, payload []*ir.Value) []*ir.Value {
	s.element(c)
	return payload
}

func (s *singleton) EmitValueProjection(_ ir.Builder, c int, value []*ir.Value) []*ir.Value {
	s.element(c)
	return value
}

func (s *singleton) EmitValueSwitch(b ir.Builder, _ []*ir.Value, dests []CaseDest, def *ir.Block) {
	s.emitBranch(b, dests, def)
}

func (s *singleton) EmitIndirectSwitch(b ir.Builder, _ *ir.Value, dests []CaseDest, def *ir.Block) {
	s.emitBranch(b, dests, def)
}

func (s *singleton) emitBranch(b ir.Builder, dests []CaseDest, def *ir.Block) {
	m := destMap(dests)
	if len(s.bk.all) == 1 {
		if blk, ok := m[0]; ok {
			b.Br(blk)
			return
		}
	}
	b.Br(resolveDefault(b, def))
}

func (s *singleton) EmitValueCaseTest(b ir.Builder, _ []*ir.Value, c int) *ir.Value {
	s.element(c)
	return b.ConstInt(1, 1)
}

func (s *singleton) StoreTag(_ ir.Builder, c int, _ *ir.Value) { s.element(c) }

func (s *singleton) ProjectDataForStore(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	s.element(c)
	return addr
}

func (s *singleton) DestructiveProjectData(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	s.element(c)
	return addr
}

func (s *singleton) InitializeMetadata(ir.Builder, *ir.Value) {}
