package enumimpl

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
	"enumgen/internal/rtabi"
)

// Explosion: [payload iN][extra tag iM], either part omitted when empty.

func (s *multiPayload) Schema() []layout.Slot {
	s.mustLoadable("Schema")
	return s.rec.schema()
}

func (s *multiPayload) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	return layout.LoadSlots(b, s.Schema(), addr)
}

func (s *multiPayload) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	return s.Copy(b, s.LoadAsTake(b, addr))
}

func (s *multiPayload) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.StoreSlots(b, s.Schema(), vals, addr)
}

func (s *multiPayload) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	layout.LoadableAssign(b, s, vals, addr)
}

func (s *multiPayload) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return s.rec.pack(b, vals, width, bitOffset)
}

func (s *multiPayload) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return s.rec.unpack(b, payload, bitOffset)
}

// emitTag reassembles the i32 case tag from the payload tag bits and the
// extra tag.
func (s *multiPayload) emitTag(b ir.Builder, payload, extra *ir.Value) *ir.Value {
	tag := emitGather(b, payload, s.payloadTagBits, 32)
	if !s.rec.hasExtraTag() {
		return tag
	}
	high := layout.ResizeInt(b, extra, 32)
	return b.Or(tag, b.Shl(high, s.numPayloadTagBits()))
}

func (s *multiPayload) tagAt(b ir.Builder, addr *ir.Value) *ir.Value {
	return s.emitTag(b, s.rec.loadPayload(b, addr), s.rec.loadExtraTag(b, addr))
}

func (s *multiPayload) stripTagBits(b ir.Builder, addr *ir.Value) {
	if s.payloadTagBits.IsZero() {
		return
	}
	v := s.rec.loadPayload(b, addr)
	s.rec.storePayload(b, b.And(v, b.Const(s.payloadTagBits.Not())), addr)
}

// plantTag marks the payload in memory as case k: bits past the payload's
// own size and any previous tag are cleared before the tag is set.
func (s *multiPayload) plantTag(b ir.Builder, k int, addr *ir.Value) {
	low, high := s.splitTag(uint64(k)) //nolint:gosec // G115: non-negative index.
	keep := bitvec.LowBits(s.rec.payloadBits, s.fixedInfo[k].Size()*8).AndNot(s.payloadTagBits)
	v := b.And(s.rec.loadPayload(b, addr), b.Const(keep))
	v = b.Or(v, b.Const(bitvec.Scatter(s.payloadTagBits, bitvec.FromUint64(64, low))))
	s.rec.storePayload(b, v, addr)
	s.rec.storeExtraTag(b, high, addr)
}

func (s *multiPayload) runtimeCase(b ir.Builder, addr *ir.Value) *ir.Value {
	return b.Call(rtabi.FnEnumGetCaseMultiPayload, ir.I32, addr, s.Metadata(b))
}

func (s *multiPayload) storeRuntimeTag(b ir.Builder, which, addr *ir.Value) {
	b.Call(rtabi.FnEnumStoreTagMultiPayload, ir.Void, addr, which, s.Metadata(b))
}

func (s *multiPayload) nonPOD(k int) bool { return !s.bk.payload[k].Payload.IsPOD() }

// emitPayloadDispatch branches on tag to one block per payload case accepted
// by want and runs body there. Other tags run fallback, when given. Both
// paths join afterwards.
func (s *multiPayload) emitPayloadDispatch(b ir.Builder, tag *ir.Value, name string, want func(int) bool, body func(int), fallback func()) {
	cont := b.NewBlock(name + ".cont")
	def := cont
	if fallback != nil {
		def = b.NewBlock(name + ".other")
	}
	var cases []ir.SwitchCase
	var picked []int
	for k, el := range s.bk.payload {
		if want != nil && !want(k) {
			continue
		}
		blk := b.NewBlock(name + "." + el.Name)
		cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(tag.Type.Bits, uint64(k)), Dest: blk}) //nolint:gosec // G115: non-negative index.
		picked = append(picked, k)
	}
	b.Switch(tag, def, cases...)
	for i, k := range picked {
		b.SetInsertPoint(cases[i].Dest)
		body(k)
		b.Br(cont)
	}
	if fallback != nil {
		b.SetInsertPoint(def)
		fallback()
		b.Br(cont)
	}
	b.SetInsertPoint(cont)
}

func (s *multiPayload) projectPayload(b ir.Builder, k int, payload *ir.Value) []*ir.Value {
	masked := b.And(payload, b.Const(s.payloadTagBits.Not()))
	return s.loadInfo[k].UnpackFromEnumPayload(b, masked, 0)
}

// taggedPointer strips the tag and reinterprets the payload as the shared
// reference type. The empty case strips to null.
func (s *multiPayload) taggedPointer(b ir.Builder, vals []*ir.Value) *ir.Value {
	payload, _ := s.rec.split(b, vals)
	masked := b.And(payload, b.Const(s.payloadTagBits.Not()))
	return b.IntToPtr(layout.ResizeInt(b, masked, s.target.PtrBits()))
}

func (s *multiPayload) Copy(b ir.Builder, vals []*ir.Value) []*ir.Value {
	s.mustLoadable("Copy")
	switch s.copyDestroy {
	case CopyDestroyPOD:
	case CopyDestroyTaggedNativeRefcounted, CopyDestroyTaggedUnknownRefcounted:
		b.Call(rtabi.Retain(s.copyDestroy == CopyDestroyTaggedUnknownRefcounted), ir.Void, s.taggedPointer(b, vals))
	default:
		payload, extra := s.rec.split(b, vals)
		s.emitPayloadDispatch(b, s.emitTag(b, payload, extra), "copy", s.nonPOD, func(k int) {
			s.loadInfo[k].Copy(b, s.projectPayload(b, k, payload))
		}, nil)
	}
	return vals
}

func (s *multiPayload) Consume(b ir.Builder, vals []*ir.Value) {
	s.mustLoadable("Consume")
	switch s.copyDestroy {
	case CopyDestroyPOD:
	case CopyDestroyTaggedNativeRefcounted, CopyDestroyTaggedUnknownRefcounted:
		b.Call(rtabi.Release(s.copyDestroy == CopyDestroyTaggedUnknownRefcounted), ir.Void, s.taggedPointer(b, vals))
	default:
		payload, extra := s.rec.split(b, vals)
		s.emitPayloadDispatch(b, s.emitTag(b, payload, extra), "consume", s.nonPOD, func(k int) {
			s.loadInfo[k].Consume(b, s.projectPayload(b, k, payload))
		}, nil)
	}
}

// Address operations. Fixed payloads may not tolerate tag bits, so the tag
// is stripped before a payload operation and planted again afterwards.

func (s *multiPayload) Destroy(b ir.Builder, addr *ir.Value) {
	switch {
	case s.IsPOD():
	case s.loadInfo != nil:
		layout.LoadableDestroy(b, s, addr)
	case s.runtime:
		s.emitPayloadDispatch(b, s.runtimeCase(b, addr), "destroy", s.nonPOD, func(k int) {
			s.bk.payload[k].Payload.Destroy(b, addr)
		}, nil)
	default:
		s.emitPayloadDispatch(b, s.tagAt(b, addr), "destroy", s.nonPOD, func(k int) {
			s.stripTagBits(b, addr)
			s.fixedInfo[k].Destroy(b, addr)
		}, nil)
	}
}

func (s *multiPayload) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	switch {
	case !s.runtime && s.IsPOD():
		b.MemCpy(dst, src, s.Size())
	case s.loadInfo != nil:
		layout.LoadableInitializeWithCopy(b, s, dst, src)
	case s.runtime:
		s.initializeRuntime(b, dst, src, func(ti layout.TypeInfo) func(ir.Builder, *ir.Value, *ir.Value) {
			return ti.InitializeWithCopy
		})
	default:
		s.emitPayloadDispatch(b, s.tagAt(b, src), "init", s.nonPOD, func(k int) {
			s.stripTagBits(b, src)
			s.fixedInfo[k].InitializeWithCopy(b, dst, src)
			s.plantTag(b, k, src)
			s.plantTag(b, k, dst)
		}, func() {
			b.MemCpy(dst, src, s.Size())
		})
	}
}

func (s *multiPayload) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	if !s.runtime {
		b.MemCpy(dst, src, s.Size())
		return
	}
	s.initializeRuntime(b, dst, src, func(ti layout.TypeInfo) func(ir.Builder, *ir.Value, *ir.Value) {
		return ti.InitializeWithTake
	})
}

func (s *multiPayload) initializeRuntime(b ir.Builder, dst, src *ir.Value, op func(layout.TypeInfo) func(ir.Builder, *ir.Value, *ir.Value)) {
	which := s.runtimeCase(b, src)
	s.emitPayloadDispatch(b, which, "init", nil, func(k int) {
		op(s.bk.payload[k].Payload)(b, dst, src)
	}, nil)
	s.storeRuntimeTag(b, which, dst)
}

func (s *multiPayload) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	switch {
	case !s.runtime && s.IsPOD():
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

func (s *multiPayload) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	switch {
	case !s.runtime && s.IsPOD():
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

func (s *multiPayload) EmitValueInjection(b ir.Builder, c int, payload []*ir.Value) []*ir.Value {
	s.mustLoadable("EmitValueInjection")
	if k := s.payloadIndex(c); k >= 0 {
		low, high := s.splitTag(uint64(k)) //nolint:gosec // G115: non-negative index.
		packed := s.loadInfo[k].PackIntoEnumPayload(b, payload, s.rec.payloadBits, 0)
		packed = b.Or(packed, b.Const(bitvec.Scatter(s.payloadTagBits, bitvec.FromUint64(64, low))))
		return s.rec.join(packed, s.rec.extraTagConst(b, high))
	}
	bits, high := s.emptyPayloadBits(s.mustEmpty(c))
	return s.rec.join(b.Const(bits), s.rec.extraTagConst(b, high))
}

func (s *multiPayload) EmitValueProjection(b ir.Builder, c int, value []*ir.Value) []*ir.Value {
	s.mustLoadable("EmitValueProjection")
	k := s.payloadIndex(c)
	if k < 0 {
		s.mustEmpty(c)
		return nil
	}
	payload, _ := s.rec.split(b, value)
	return s.projectPayload(b, k, payload)
}

func (s *multiPayload) EmitValueCaseTest(b ir.Builder, value []*ir.Value, c int) *ir.Value {
	s.mustLoadable("EmitValueCaseTest")
	payload, extra := s.rec.split(b, value)
	if k := s.payloadIndex(c); k >= 0 {
		return b.ICmp(ir.PredEQ, s.emitTag(b, payload, extra), b.ConstInt(32, uint64(k))) //nolint:gosec // G115: non-negative index.
	}
	bits, high := s.emptyPayloadBits(s.mustEmpty(c))
	return b.And(b.ICmp(ir.PredEQ, payload, b.Const(bits)), s.rec.extraTagIs(b, extra, high))
}

func (s *multiPayload) EmitValueSwitch(b ir.Builder, value []*ir.Value, dests []CaseDest, def *ir.Block) {
	s.mustLoadable("EmitValueSwitch")
	payload, extra := s.rec.split(b, value)
	s.emitSwitch(b, payload, extra, dests, def)
}

func (s *multiPayload) EmitIndirectSwitch(b ir.Builder, addr *ir.Value, dests []CaseDest, def *ir.Block) {
	if !s.runtime {
		s.emitSwitch(b, s.rec.loadPayload(b, addr), s.rec.loadExtraTag(b, addr), dests, def)
		return
	}
	def = resolveDefault(b, def)
	m := destMap(dests)
	var cases []ir.SwitchCase
	for k, el := range s.bk.payload {
		if blk, ok := m[el.Index]; ok {
			cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(32, uint64(k)), Dest: blk}) //nolint:gosec // G115: non-negative index.
		}
	}
	for e, el := range s.bk.noPayload {
		if blk, ok := m[el.Index]; ok {
			which := uint64(len(s.bk.payload) + e) //nolint:gosec // G115: non-negative index.
			cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(32, which), Dest: blk})
		}
	}
	b.Switch(s.runtimeCase(b, addr), def, cases...)
}

// emitSwitch dispatches on the tag. Payload cases are done there; each
// empty tag then switches on the occupied bits to find the empty case.
func (s *multiPayload) emitSwitch(b ir.Builder, payload, extra *ir.Value, dests []CaseDest, def *ir.Block) {
	def = resolveDefault(b, def)
	m := destMap(dests)
	var cases []ir.SwitchCase
	for k, el := range s.bk.payload {
		if blk, ok := m[el.Index]; ok {
			cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(32, uint64(k)), Dest: blk}) //nolint:gosec // G115: non-negative index.
		}
	}

	byTag := map[uint64][]int{}
	var tags []uint64
	for e := range s.bk.noPayload {
		tag, _ := s.emptyEncoding(e)
		if _, ok := byTag[tag]; !ok {
			tags = append(tags, tag)
		}
		byTag[tag] = append(byTag[tag], e)
	}
	tagBlocks := make([]*ir.Block, len(tags))
	for i, tag := range tags {
		tagBlocks[i] = b.NewBlock("empty.tag")
		cases = append(cases, ir.SwitchCase{Value: bitvec.FromUint64(32, tag), Dest: tagBlocks[i]})
	}
	b.Switch(s.emitTag(b, payload, extra), def, cases...)

	for i, tag := range tags {
		b.SetInsertPoint(tagBlocks[i])
		empties := byTag[tag]
		if s.occupiedBits == 0 {
			b.Br(caseTarget(m, s.bk.noPayload[empties[0]].Index, def))
			continue
		}
		idx := emitGather(b, payload, s.commonSpare.Not(), s.occupiedBits)
		var idxCases []ir.SwitchCase
		for _, e := range empties {
			_, n := s.emptyEncoding(e)
			dest := caseTarget(m, s.bk.noPayload[e].Index, def)
			idxCases = append(idxCases, ir.SwitchCase{Value: bitvec.FromUint64(s.occupiedBits, n), Dest: dest})
		}
		b.Switch(idx, def, idxCases...)
	}
}

func (s *multiPayload) StoreTag(b ir.Builder, c int, addr *ir.Value) {
	k := s.payloadIndex(c)
	if s.runtime {
		which := k
		if k < 0 {
			which = len(s.bk.payload) + s.mustEmpty(c)
		}
		s.storeRuntimeTag(b, b.ConstInt(32, uint64(which)), addr) //nolint:gosec // G115: non-negative index.
		return
	}
	if k >= 0 {
		s.plantTag(b, k, addr)
		return
	}
	bits, high := s.emptyPayloadBits(s.mustEmpty(c))
	s.rec.storePayload(b, b.Const(bits), addr)
	s.rec.storeExtraTag(b, high, addr)
}

// ProjectDataForStore returns where the payload of case c is written. A
// zero-sized payload has nothing to write and shares the address.
func (s *multiPayload) ProjectDataForStore(_ ir.Builder, c int, addr *ir.Value) *ir.Value {
	if s.payloadIndex(c) < 0 {
		s.mustEmpty(c)
	}
	return addr
}

// DestructiveProjectData clears the tag bits so the payload can be used in place.
func (s *multiPayload) DestructiveProjectData(b ir.Builder, c int, addr *ir.Value) *ir.Value {
	if s.payloadIndex(c) < 0 {
		s.mustEmpty(c)
		return addr
	}
	if !s.runtime {
		s.stripTagBits(b, addr)
	}
	return addr
}
