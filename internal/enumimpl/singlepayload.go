package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
	"enumgen/internal/rtabi"
)

// singlePayload lays out one payload case plus empty cases. Empty cases take
// the payload's extra inhabitants first and spill into extra tag bits only
// once those run out.
type singlePayload struct {
	enumBase
	rec         payloadRecord
	payloadCase Element
	payload     layout.TypeInfo
	fixedInfo   layout.FixedTypeInfo    // nil for a runtime-sized payload
	loadInfo    layout.LoadableTypeInfo // nil unless the payload is loadable
	numEmpty    int
	// inhabitants is the payload's extra inhabitant count; usedInhabitants
	// of them encode the first empty cases.
	inhabitants     uint32
	usedInhabitants uint32
	copyDestroy     CopyDestroyKind
}

var _ impl = (*singlePayload)(nil)

func newSinglePayload(d EnumDecl, bk buckets) *singlePayload {
	pc := bk.payload[0]
	s := &singlePayload{
		enumBase:    newEnumBase(d, bk),
		payloadCase: pc,
		payload:     pc.Payload,
		numEmpty:    len(bk.noPayload),
	}
	s.fixedInfo, _ = layout.AsFixed(pc.Payload)
	s.loadInfo, _ = layout.AsLoadable(pc.Payload)

	if s.fixedInfo != nil {
		s.inhabitants = s.fixedInfo.FixedExtraInhabitantCount()
		empty := uint64(s.numEmpty) //nolint:gosec // G115: non-negative length.
		s.usedInhabitants = uint32(minU64(empty, uint64(s.inhabitants))) //nolint:gosec // G115: bounded by inhabitants.
		payloadBits := s.fixedInfo.Size() * 8
		s.rec = payloadRecord{
			payloadBits:  payloadBits,
			extraTagBits: singlePayloadExtraTagBits(payloadBits, empty-uint64(s.usedInhabitants)),
			align:        s.fixedInfo.Align(),
		}
	}

	switch {
	case pc.Payload.IsPOD():
		s.copyDestroy = CopyDestroyPOD
	case s.loadInfo != nil && s.numEmpty == 1 && s.inhabitants >= 1 &&
		pc.Payload.SinglePointer() == layout.SingleNativePointer:
		s.copyDestroy = CopyDestroyNullableNativeRefcounted
	case s.loadInfo != nil && s.numEmpty == 1 && s.inhabitants >= 1 &&
		pc.Payload.SinglePointer() == layout.SingleUnknownPointer:
		s.copyDestroy = CopyDestroyNullableUnknownRefcounted
	default:
		s.copyDestroy = CopyDestroyNormal
	}
	return s
}

// singlePayloadExtraTagBits sizes the extra tag for the empty cases left over
// after the extra inhabitants are used. Tag value 0 is the payload case;
// each further value covers 2^payloadBits empty cases.
func singlePayloadExtraTagBits(payloadBits int, remaining uint64) int {
	if remaining == 0 {
		return 0
	}
	if payloadBits >= 32 {
		return 1
	}
	perTag := uint64(1) << uint(payloadBits) //nolint:gosec // G115: payloadBits < 32.
	tagValues := (remaining+perTag-1)/perTag + 1
	return bitvec.Log2Ceil(tagValues)
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// emptyEncoding returns the payload bits and extra tag of the e-th empty case.
func (s *singlePayload) emptyEncoding(e int) (bitvec.Bits, uint64) {
	if e < int(s.usedInhabitants) {
		return s.fixedInfo.FixedExtraInhabitantValue(uint32(e)), 0 //nolint:gosec // G115: e < usedInhabitants.
	}
	j := uint64(e) - uint64(s.usedInhabitants) //nolint:gosec // G115: e >= usedInhabitants.
	bits := s.rec.payloadBits
	if bits >= 32 {
		return bitvec.FromUint64(bits, j), 1
	}
	return bitvec.FromUint64(bits, j&(uint64(1)<<uint(bits)-1)), 1 + j>>uint(bits) //nolint:gosec // G115: bits < 32.
}

func (s *singlePayload) inhabitantMask() bitvec.Bits {
	return s.fixedInfo.FixedExtraInhabitantMask()
}

func (s *singlePayload) mustFixed() {
	if s.fixedInfo == nil {
		panic("enumimpl: fixed layout query on runtime-sized enum " + s.name)
	}
}

func (s *singlePayload) mustLoadable(op string) {
	if s.loadInfo == nil {
		s.notLoadable(op)
	}
}

func (s *singlePayload) Variant() Variant                  { return VariantSinglePayload }
func (s *singlePayload) TypeInfo() layout.TypeInfo         { return wrapTypeInfo(s) }
func (s *singlePayload) Kind() layout.Kind                 { return s.bk.kind }
func (s *singlePayload) IsPOD() bool                       { return s.copyDestroy == CopyDestroyPOD }
func (s *singlePayload) SinglePointer() layout.PointerKind { return layout.NotSinglePointer }

func (s *singlePayload) Facts() Facts {
	f := Facts{
		Variant:     VariantSinglePayload,
		Kind:        s.Kind(),
		SizeClass:   s.SizeClass(),
		CopyDestroy: s.copyDestroy,
	}
	if s.fixedInfo != nil {
		f.Size, f.Align, f.Stride = s.Size(), s.Align(), s.Stride()
		f.PayloadBits = s.rec.payloadBits
		f.ExtraTagBits = s.rec.extraTagBits
		f.NumExtraInhabitantTagValues = s.usedInhabitants
		f.ExtraInhabitantCount = s.FixedExtraInhabitantCount()
	}
	return f
}

// Fixed layout facts.

func (s *singlePayload) Size() int {
	s.mustFixed()
	return s.rec.size()
}

func (s *singlePayload) Align() int {
	s.mustFixed()
	return s.rec.align
}

func (s *singlePayload) Stride() int {
	size := s.Size()
	if r := size % s.rec.align; r != 0 {
		size += s.rec.align - r
	}
	if size == 0 {
		return 1
	}
	return size
}

func (s *singlePayload) StorageType() string {
	s.mustFixed()
	return s.rec.storageType()
}

// SpareBits exports only the unused high bits of the extra tag: spilled
// empty cases may set any payload bit.
func (s *singlePayload) SpareBits() bitvec.Bits {
	s.mustFixed()
	return s.rec.spareBits(bitvec.New(s.rec.payloadBits))
}

func (s *singlePayload) TagBitsForPayloads() bitvec.Bits {
	if s.fixedInfo == nil {
		return bitvec.New(0)
	}
	w := s.rec.size() * 8
	return bitvec.Range(w, s.rec.payloadBits, s.rec.payloadBits+s.rec.extraTagBits)
}

func (s *singlePayload) BitPatternForNoPayloadElement(c int) bitvec.Bits {
	s.mustFixed()
	e := s.emptyIndex(c)
	if e < 0 {
		panic(fmt.Sprintf("enumimpl: %s.%s carries a payload", s.name, s.element(c).Name))
	}
	payload, tag := s.emptyEncoding(e)
	return s.rec.pattern(payload, tag)
}

// Extra inhabitants are the payload inhabitants no empty case took.

func (s *singlePayload) MayHaveExtraInhabitants() bool {
	if s.fixedInfo == nil {
		return true
	}
	return s.FixedExtraInhabitantCount() > 0
}

func (s *singlePayload) FixedExtraInhabitantCount() uint32 {
	s.mustFixed()
	return s.inhabitants - s.usedInhabitants
}

func (s *singlePayload) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	if index >= s.FixedExtraInhabitantCount() {
		panic(fmt.Sprintf("enumimpl: %s has no extra inhabitant %d", s.name, index))
	}
	return s.rec.pattern(s.fixedInfo.FixedExtraInhabitantValue(s.usedInhabitants+index), 0)
}

func (s *singlePayload) FixedExtraInhabitantMask() bitvec.Bits {
	s.mustFixed()
	tagBytes := s.rec.extraTagBytes() * 8
	return s.inhabitantMask().Resize(s.rec.payloadBits).Concat(bitvec.AllOnes(tagBytes))
}

func (s *singlePayload) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	if s.fixedInfo == nil {
		return b.Call(rtabi.FnVWGetExtraInhabitantIdx, ir.I32, addr, s.Metadata(b))
	}
	notAn := b.ConstInt(32, uint64(layout.NotAnInhabitant))
	if s.FixedExtraInhabitantCount() == 0 {
		return notAn
	}
	idx := s.fixedInfo.ExtraInhabitantIndex(b, addr)
	used := b.ConstInt(32, uint64(s.usedInhabitants))
	conds := []*ir.Value{
		b.ICmp(ir.PredNE, idx, notAn),
		b.ICmp(ir.PredUGE, idx, used),
	}
	if s.rec.hasExtraTag() {
		conds = append(conds, s.rec.extraTagIs(b, s.rec.loadExtraTag(b, addr), 0))
	}
	return b.Select(andAll(b, conds), b.Sub(idx, used), notAn)
}

func (s *singlePayload) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	if s.fixedInfo == nil {
		b.Call(rtabi.FnVWStoreExtraInhabitant, ir.Void, addr, index, s.Metadata(b))
		return
	}
	s.fixedInfo.StoreExtraInhabitant(b, b.Add(index, b.ConstInt(32, uint64(s.usedInhabitants))), addr)
	s.rec.storeExtraTag(b, 0, addr)
}

func (s *singlePayload) InitializeMetadata(b ir.Builder, metadata *ir.Value) {
	if s.fixedInfo != nil {
		return
	}
	b.Call(rtabi.FnEnumInitSinglePayload, ir.Void, metadata, s.payload.Metadata(b), s.numEmptyConst(b))
}

func (s *singlePayload) numEmptyConst(b ir.Builder) *ir.Value {
	return b.ConstInt(32, uint64(s.numEmpty)) //nolint:gosec // G115: non-negative length.
}
