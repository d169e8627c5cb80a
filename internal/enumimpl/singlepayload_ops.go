package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
	"enumgen/internal/rtabi"
)

// Explosion: [payload iN][extra tag iM], either part omitted when empty.

func (s *singlePayload) Schema() []layout.Slot {
	s.mustLoadable("Schema")
	return s.rec.schema()
}

func (s *singlePayload) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return layout.LoadSlots(b, s.Schema(), addr)
}

func (s *singlePayload) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return s.Copy(b, s.LoadAsTake(b, addr))
}

func (s *singlePayload) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.StoreSlots(b, s.Schema(), vals, addr)
}

func (s *singlePayload) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.LoadableAssign(b, s, vals, addr)
}

func (s *singlePayload) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return s.rec.pack(b, vals, width, bitOffset)
}

func (s *singlePayload) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return s.rec.unpack(b, payload, bitOffset)
}

// Copy retains the payload when the value holds the payload case.
func (s *singlePayload) Copy(b ir.Builder, vals []*ir.Value) []*ir.Value {
	s.mustLoadable("Copy")
	switch s.copyDestroy {
	case CopyDestroyPOD:
	case CopyDestroyNullableNativeRefcounted, CopyDestroyNullableUnknownRefcounted:
		b.Call(rtabi.Retain(s.copyDestroy == CopyDestroyNullableUnknownRefcounted), ir.Void, s.nullablePointer(b, vals))
	default:
		emitIf(b, s.EmitValueCaseTest(b, vals, s.payloadCase.Index), "copy.payload", func() {
			s.loadInfo.Copy(b, s.projectPayload(b, vals))
		})
	}
	return vals
}

// Consume releases the payload when the value holds the payload case.
func (s *singlePayload) Consume(b ir.Builder, vals []*ir.Value) {
	s.mustLoadable("Consume")
	switch s.copyDestroy {
	case CopyDestroyPOD:
	case CopyDestroyNullableNativeRefcounted, CopyDestroyNullableUnknownRefcounted:
		b.Call(rtabi.Release(s.copyDestroy == CopyDestroyNullableUnknownRefcounted), ir.Void, s.nullablePointer(b, vals))
	default:
		emitIf(b, s.EmitValueCaseTest(b, vals, s.payloadCase.Index), "consume.payload", func() {
			s.loadInfo.Consume(b, s.projectPayload(b, vals))
		})
	}
}

// nullablePointer reinterprets the whole payload as the reference. The empty
// case is the null inhabitant, which retain and release ignore.
func (s *singlePayload) nullablePointer(b ir.Builder, vals []*ir.Value) *ir.Value {
	payload, _ := s.rec.split(b, vals)
	return b.IntToPtr(layout.ResizeInt(b, payload, s.target.PtrBits()))
}

func (s *singlePayload) projectPayload(b ir.Builder, vals []*ir.Value) []*ir.Value {
	payload, _ := s.rec.split(b, vals)
	return s.loadInfo.UnpackFromEnumPayload(b, payload, 0)
}

// Address operations. Loadable enums go through the explosion, fixed ones
// test the case in memory and opaque ones ask the runtime.

func (s *singlePayload) isPayloadAt(b ir.Builder, addr *ir.Value) *ir.Value {
	if s.fixedInfo == nil {
		which := s.runtimeCase(b, addr)
		return b.ICmp(ir.PredEQ, which, b.ConstInt(32, uint64(layout.NotAnInhabitant)))
	}
	conds := []*ir.Value{s.rec.extraTagIs(b, s.rec.loadExtraTag(b, addr), 0)}
	if s.usedInhabitants > 0 {
		idx := s.fixedInfo.ExtraInhabitantIndex(b, addr)
		conds = append(conds, b.ICmp(ir.PredUGE, idx, b.ConstInt(32, uint64(s.usedInhabitants))))
	}
	return andAll(b, conds)
}

func (s *singlePayload) runtimeCase(b ir.Builder, addr *ir.Value) *ir.Value {
	return b.Call(rtabi.FnEnumGetCaseSinglePayload, ir.I32, addr, s.payload.Metadata(b), s.numEmptyConst(b))
}

func (s *singlePayload) storeRuntimeTag(b ir.Builder, which, addr *ir.Value) {
	b.Call(rtabi.FnEnumStoreTagSinglePayload, ir.Void, addr, which, s.payload.Metadata(b), s.numEmptyConst(b))
}

func (s *singlePayload) Destroy(b ir.Builder, addr *ir.Value) {
	switch {
	case s.IsPOD():
	case s.loadInfo != nil:
		layout.LoadableDestroy(b, s, addr)
	default:
		emitIf(b, s.isPayloadAt(b, addr), "destroy.payload", func() {
			s.payload.Destroy(b, addr)
		})
	}
}

func (s *singlePayload) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	switch {
	case s.fixedInfo != nil && s.IsPOD():
		b.MemCpy(dst, src, s.Size())
	case s.loadInfo != nil:
		layout.LoadableInitializeWithCopy(b, s, dst, src)
	default:
		s.initializeCase(b, dst, src, s.payload.InitializeWithCopy)
	}
}

func (s *singlePayload) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	if s.fixedInfo != nil {
		b.MemCpy(dst, src, s.Size())
		return
	}
	s.initializeCase(b, dst, src, s.payload.InitializeWithTake)
}

// initializeCase copies the payload with op, or the empty case bitwise (or
// by tag, when the runtime owns the layout).
func (s *singlePayload) initializeCase(b ir.Builder, dst, src *ir.Value, op func(ir.Builder, *ir.Value, *ir.Value)) {
	if s.fixedInfo != nil {
		emitIfElse(b, s.isPayloadAt(b, src), "init.payload", func() {
			op(b, dst, src)
			s.rec.storeExtraTag(b, 0, dst)
		}, func() {
			b.MemCpy(dst, src, s.Size())
		})
		return
	}
	which := s.runtimeCase(b, src)
	isPayload := b.ICmp(ir.PredEQ, which, b.ConstInt(32, uint64(layout.NotAnInhabitant)))
	emitIfElse(b, isPayload, "init.payload", func() {
		op(b, dst, src)
		s.storeRuntimeTag(b, which, dst)
	}, func() {
		s.storeRuntimeTag(b, which, dst)
	})
}

func (s *singlePayload) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	switch {
	case s.fixedInfo != nil && s.IsPOD():
		b.MemCpy(dst, src, s.Size())
	case s.loadInfo != nil:
		layout.LoadableAssignWithCopy(b, s, dst, src)
	default:
		emitUnlessSame(b, dst, src, s.target.PtrBits(), func() {
			s.Destroy(b, dst)
			s.InitializeWithCopy(b, dst, src)
		})
	}
}

func (s *singlePayload) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	switch {
	case s.fixedInfo != nil && s.IsPOD():
		b.MemCpy(dst, src, s.Size())
	case s.loadInfo != nil:
		layout.LoadableAssignWithTake(b, s, dst, src)
	default:
		emitUnlessSame(b, dst, src, s.target.PtrBits(), func() {
			s.Destroy(b, dst)
			s.InitializeWithTake(b, dst, src)
		})
	}
}

// Case operations.

func (s *singlePayload) mustEmpty(c int) int {
	e := s.emptyIndex(c)
	if e < 0 {
		panic(fmt.Sprintf("enumimpl: %s.%s carries a payload", s.name, s.element(c).Name))
	}
	return e
}

func (s *singlePayload) EmitValueInjection(b ir.Builder, c int, payload []*ir.Value) []*ir.Value {
	s.mustLoadable("EmitValueInjection")
	if c == s.payloadCase.Index {
		packed := s.loadInfo.PackIntoEnumPayload(b, payload, s.rec.payloadBits, 0)
		return s.rec.join(packed, s.rec.extraTagConst(b, 0))
	}
	bits, tag := s.emptyEncoding(s.mustEmpty(c))
	return s.rec.join(b.Const(bits), s.rec.extraTagConst(b, tag))
}

func (s *singlePayload) EmitValueProjection(b ir.Builder, c int, value []*ir.Value) []*ir.Value {
	s.mustLoadable("EmitValueProjection")
	if c != s.payloadCase.Index {
		s.mustEmpty(c)
		return nil
	}
	return s.projectPayload(b, value)
}

func (s *singlePayload) EmitValueCaseTest(b ir.Builder, value []*ir.Value, c int) *ir.Value {
	s.mustLoadable("EmitValueCaseTest")
	payload, extra := s.rec.split(b, value)
	if c == s.payloadCase.Index {
		conds := []*ir.Value{s.rec.extraTagIs(b, extra, 0)}
		if s.usedInhabitants > 0 {
			masked := b.And(payload, b.Const(s.inhabitantMask()))
			for i := uint32(0); i < s.usedInhabitants; i++ {
				v := s.fixedInfo.FixedExtraInhabitantValue(i).And(s.inhabitantMask())
				conds = append(conds, b.ICmp(ir.PredNE, masked, b.Const(v)))
			}
		}
		return andAll(b, conds)
	}
	e := s.mustEmpty(c)
	bits, tag := s.emptyEncoding(e)
	cmp := payload
	if tag == 0 {
		cmp = b.And(payload, b.Const(s.inhabitantMask()))
		bits = bits.And(s.inhabitantMask())
	}
	return b.And(s.rec.extraTagIs(b, extra, tag), b.ICmp(ir.PredEQ, cmp, b.Const(bits)))
}

func (s *singlePayload) EmitValueSwitch(b ir.Builder, value []*ir.Value, dests []CaseDest, def *ir.Block) {
	s.mustLoadable("EmitValueSwitch")
	payload, extra := s.rec.split(b, value)
	s.emitSwitch(b, payload, extra, dests, def)
}

func (s *singlePayload) EmitIndirectSwitch(b ir.Builder, addr *ir.Value, dests []CaseDest, def *ir.Block) {
	if s.fixedInfo == nil {
		def = resolveDefault(b, def)
		m := destMap(dests)
		var cases []ir.SwitchCase
		for e, el := range s.bk.noPayload {
			if blk, ok := m[el.Index]; ok {
				cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(32, uint64(e)), Dest: blk}) //nolint:gosec // G115: non-negative index.
			}
		}
		b.Switch(s.runtimeCase(b, addr), caseTarget(m, s.payloadCase.Index, def), cases...)
		return
	}
	payload := s.rec.loadPayload(b, addr)
	extra := s.rec.loadExtraTag(b, addr)
	s.emitSwitch(b, payload, extra, dests, def)
}

// emitSwitch dispatches on the extra tag first. Tag zero holds the payload
// case and the empty cases encoded as payload inhabitants; each further tag
// value holds spilled empty cases numbered by the payload bits.
func (s *singlePayload) emitSwitch(b ir.Builder, payload, extra *ir.Value, dests []CaseDest, def *ir.Block) {
	def = resolveDefault(b, def)
	m := destMap(dests)
	payloadDest := caseTarget(m, s.payloadCase.Index, def)

	zeroBlock := payloadDest
	if s.usedInhabitants > 0 {
		zeroBlock = nil
	}
	if s.rec.hasExtraTag() {
		if zeroBlock == nil {
			zeroBlock = b.NewBlock("tag.zero")
		}
		spilled := map[uint64][]ir.SwitchCase{}
		var order []uint64
		for e := int(s.usedInhabitants); e < s.numEmpty; e++ {
			bits, tag := s.emptyEncoding(e)
			if _, ok := spilled[tag]; !ok {
				order = append(order, tag)
			}
			dest := caseTarget(m, s.bk.noPayload[e].Index, def)
			spilled[tag] = append(spilled[tag], ir.SwitchCase{Value: bits, Dest: dest})
		}
		tagCases := []ir.SwitchCase{{Value: bitvec.FromUint64(s.rec.extraTagBytes()*8, 0), Dest: zeroBlock}}
		tagBlocks := make([]*ir.Block, len(order))
		for i, tag := range order {
			tagBlocks[i] = b.NewBlock(fmt.Sprintf("tag.%d", tag))
			tagCases = append(tagCases, ir.SwitchCase{Value: bitvec.FromUint64(s.rec.extraTagBytes()*8, tag), Dest: tagBlocks[i]})
		}
		b.Switch(extra, def, tagCases...)
		for i, tag := range order {
			b.SetInsertPoint(tagBlocks[i])
			b.Switch(payload, def, spilled[tag]...)
		}
		if s.usedInhabitants == 0 {
			return
		}
		b.SetInsertPoint(zeroBlock)
	}

	mask := s.inhabitantMask()
	var cases []ir.SwitchCase
	for e := 0; e < int(s.usedInhabitants); e++ {
		bits, _ := s.emptyEncoding(e)
		cases = append(cases, ir.SwitchCase{Value: bits.And(mask), Dest: caseTarget(m, s.bk.noPayload[e].Index, def)})
	}
	b.Switch(b.And(payload, b.Const(mask)), payloadDest, cases...)
}

func (s *singlePayload) StoreTag(b ir.Builder, c int, addr *ir.Value) {
	if s.fixedInfo == nil {
		which := uint64(layout.NotAnInhabitant)
		if c != s.payloadCase.Index {
			which = uint64(s.mustEmpty(c)) //nolint:gosec // G115: non-negative index.
		}
		s.storeRuntimeTag(b, b.ConstInt(32, which), addr)
		return
	}
	if c == s.payloadCase.Index {
		s.rec.storeExtraTag(b, 0, addr)
		return
	}
	bits, tag := s.emptyEncoding(s.mustEmpty(c))
	s.rec.storePayload(b, b.Const(bits), addr)
	s.rec.storeExtraTag(b, tag, addr)
}

func (s *singlePayload) ProjectDataForStore(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	if c != s.payloadCase.Index {
		s.mustEmpty(c)
	}
	return addr
}

func (s *singlePayload) DestructiveProjectData(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	if c != s.payloadCase.Index {
		s.mustEmpty(c)
	}
	return addr
}
