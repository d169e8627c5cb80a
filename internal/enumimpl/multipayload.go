package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
	"enumgen/internal/rtabi"
)

// multiPayload lays out two or more payload cases in a shared payload area.
// The case tag lives in the spare bits every payload leaves unused and
// spills into extra tag bits when those are too few. Empty cases take tag
// values above the payload cases and number themselves in the occupied
// bits.
type multiPayload struct {
	enumBase
	rec       payloadRecord
	fixedInfo []layout.FixedTypeInfo    // nil when the runtime owns the layout
	loadInfo  []layout.LoadableTypeInfo // nil unless every payload is loadable

	commonSpare    bitvec.Bits
	payloadTagBits bitvec.Bits
	occupiedBits   int
	numEmptyTags   uint64
	numTags        uint64
	copyDestroy    CopyDestroyKind
	runtime        bool
}

var _ impl = (*multiPayload)(nil)

func newMultiPayload(d EnumDecl, bk buckets, opts Options) (*multiPayload, error) {
	s := &multiPayload{enumBase: newEnumBase(d, bk)}
	numPayloads := uint64(len(bk.payload)) //nolint:gosec // G115: non-negative length.

	if bk.kind == layout.Opaque {
		if !opts.AllowNonFixedMultiPayload {
			return nil, &UnsupportedError{
				Kind:   UnsupportedNonFixedMultiPayload,
				Enum:   d.Name,
				Case:   firstOpaque(bk.payload).Name,
				Detail: "payload size is only known at runtime",
			}
		}
		s.runtime = true
		s.numTags = numPayloads + uint64(len(bk.noPayload)) //nolint:gosec // G115: non-negative length.
		s.copyDestroy = CopyDestroyNormal
		if allPOD(bk.payload) {
			s.copyDestroy = CopyDestroyPOD
		}
		return s, nil
	}

	maxBits, align := 0, 1
	for _, el := range bk.payload {
		f, _ := layout.AsFixed(el.Payload)
		s.fixedInfo = append(s.fixedInfo, f)
		if bk.kind == layout.Loadable {
			l, _ := layout.AsLoadable(el.Payload)
			s.loadInfo = append(s.loadInfo, l)
		}
		maxBits = max(maxBits, f.Size()*8)
		align = max(align, f.Align())
	}

	// A payload whose spare bits belong to another module cannot lend them.
	common := bitvec.AllOnes(maxBits)
	for _, f := range s.fixedInfo {
		w := f.Size() * 8
		spare := bitvec.New(w)
		if f.SizeClass() == layout.SizeFixed {
			spare = f.SpareBits()
		}
		common = common.And(spare.Concat(bitvec.AllOnes(maxBits - w)))
	}
	commonCount := common.PopCount()
	s.commonSpare = common
	s.occupiedBits = maxBits - commonCount

	numEmpty := uint64(len(bk.noPayload)) //nolint:gosec // G115: non-negative length.
	switch {
	case numEmpty == 0:
		s.numEmptyTags = 0
	case s.occupiedBits >= 32:
		s.numEmptyTags = 1
	default:
		perTag := uint64(1) << uint(s.occupiedBits) //nolint:gosec // G115: occupiedBits < 32.
		s.numEmptyTags = (numEmpty + perTag - 1) / perTag
	}
	s.numTags = numPayloads + s.numEmptyTags
	numTagBits := bitvec.Log2Ceil(s.numTags)

	extraTagBits := 0
	if numTagBits <= commonCount {
		s.payloadTagBits = common.KeepHighSetBits(numTagBits)
	} else {
		s.payloadTagBits = common
		extraTagBits = numTagBits - commonCount
	}
	s.rec = payloadRecord{payloadBits: maxBits, extraTagBits: extraTagBits, align: align}
	s.copyDestroy = s.selectCopyDestroy()
	return s, nil
}

func firstOpaque(els []Element) Element {
	for _, el := range els {
		if el.Payload.Kind() == layout.Opaque {
			return el
		}
	}
	return els[0]
}

func allPOD(els []Element) bool {
	for _, el := range els {
		if !el.Payload.IsPOD() {
			return false
		}
	}
	return true
}

// selectCopyDestroy picks the tagged-reference fast path when every payload
// is one reference of the same kind and at most one empty case exists.
func (s *multiPayload) selectCopyDestroy() CopyDestroyKind {
	if allPOD(s.bk.payload) {
		return CopyDestroyPOD
	}
	if s.loadInfo == nil || len(s.bk.noPayload) > 1 || s.rec.hasExtraTag() {
		return CopyDestroyNormal
	}
	kind := s.bk.payload[0].Payload.SinglePointer()
	for _, el := range s.bk.payload {
		if el.Payload.SinglePointer() != kind {
			return CopyDestroyNormal
		}
	}
	switch kind {
	case layout.SingleNativePointer:
		return CopyDestroyTaggedNativeRefcounted
	case layout.SingleUnknownPointer:
		return CopyDestroyTaggedUnknownRefcounted
	default:
		return CopyDestroyNormal
	}
}

func (s *multiPayload) numPayloadTagBits() int { return s.payloadTagBits.PopCount() }

// splitTag divides a tag value between the payload tag bits and the extra tag.
func (s *multiPayload) splitTag(tag uint64) (low, high uint64) {
	n := s.numPayloadTagBits()
	if n >= 64 {
		return tag, 0
	}
	return tag & (uint64(1)<<uint(n) - 1), tag >> uint(n) //nolint:gosec // G115: n < 64.
}

// emptyEncoding returns the tag and the occupied-bit index of the e-th empty case.
func (s *multiPayload) emptyEncoding(e int) (tag, idx uint64) {
	numPayloads := uint64(len(s.bk.payload)) //nolint:gosec // G115: non-negative length.
	ue := uint64(e)                          //nolint:gosec // G115: non-negative index.
	if s.occupiedBits >= 32 {
		return numPayloads, ue
	}
	return numPayloads + ue>>uint(s.occupiedBits), ue & (uint64(1)<<uint(s.occupiedBits) - 1) //nolint:gosec // G115: occupiedBits < 32.
}

func (s *multiPayload) emptyPayloadBits(e int) (bitvec.Bits, uint64) {
	tag, idx := s.emptyEncoding(e)
	low, high := s.splitTag(tag)
	commonCount := s.commonSpare.PopCount()
	set := bitvec.FromUint64(commonCount, low).Shl(commonCount - s.numPayloadTagBits())
	clear := bitvec.FromUint64(s.occupiedBits, idx)
	return bitvec.Interleave(s.commonSpare, set, clear), high
}

func (s *multiPayload) mustFixed() {
	if s.runtime {
		panic("enumimpl: fixed layout query on runtime-sized enum " + s.name)
	}
}

func (s *multiPayload) mustLoadable(op string) {
	if s.loadInfo == nil {
		s.notLoadable(op)
	}
}

func (s *multiPayload) Variant() Variant                  { return VariantMultiPayload }
func (s *multiPayload) TypeInfo() layout.TypeInfo         { return wrapTypeInfo(s) }
func (s *multiPayload) Kind() layout.Kind                 { return s.bk.kind }
func (s *multiPayload) IsPOD() bool                       { return s.copyDestroy == CopyDestroyPOD }
func (s *multiPayload) SinglePointer() layout.PointerKind { return layout.NotSinglePointer }

func (s *multiPayload) Facts() Facts {
	f := Facts{
		Variant:     VariantMultiPayload,
		Kind:        s.Kind(),
		SizeClass:   s.SizeClass(),
		CopyDestroy: s.copyDestroy,
	}
	if !s.runtime {
		f.Size, f.Align, f.Stride = s.Size(), s.Align(), s.Stride()
		f.PayloadBits = s.rec.payloadBits
		f.ExtraTagBits = s.rec.extraTagBits
		f.CommonSpareBits = s.commonSpare
		f.PayloadTagBits = s.payloadTagBits
		f.ExtraInhabitantCount = s.FixedExtraInhabitantCount()
	}
	return f
}

func (s *multiPayload) Size() int {
	s.mustFixed()
	return s.rec.size()
}

func (s *multiPayload) Align() int {
	s.mustFixed()
	return s.rec.align
}

func (s *multiPayload) Stride() int {
	size := s.Size()
	if r := size % s.rec.align; r != 0 {
		size += s.rec.align - r
	}
	if size == 0 {
		return 1
	}
	return size
}

func (s *multiPayload) StorageType() string {
	s.mustFixed()
	return s.rec.storageType()
}

// SpareBits are the common spare bits not taken by the tag.
func (s *multiPayload) SpareBits() bitvec.Bits {
	s.mustFixed()
	return s.rec.spareBits(s.commonSpare.AndNot(s.payloadTagBits))
}

func (s *multiPayload) TagBitsForPayloads() bitvec.Bits {
	if s.runtime {
		return bitvec.New(0)
	}
	tagBytes := s.rec.extraTagBytes() * 8
	return s.payloadTagBits.Concat(bitvec.Range(tagBytes, 0, s.rec.extraTagBits))
}

func (s *multiPayload) BitPatternForNoPayloadElement(c int) bitvec.Bits {
	s.mustFixed()
	bits, high := s.emptyPayloadBits(s.mustEmpty(c))
	return s.rec.pattern(bits, high)
}

func (s *multiPayload) mustEmpty(c int) int {
	e := s.emptyIndex(c)
	if e < 0 {
		panic(fmt.Sprintf("enumimpl: %s.%s carries a payload", s.name, s.element(c).Name))
	}
	return e
}

// Extra inhabitants are the tag values past the last used tag, available
// only while the tag fits in the payload's spare bits.

func (s *multiPayload) MayHaveExtraInhabitants() bool {
	if s.runtime {
		return true
	}
	return s.FixedExtraInhabitantCount() > 0
}

func (s *multiPayload) FixedExtraInhabitantCount() uint32 {
	s.mustFixed()
	if s.rec.hasExtraTag() {
		return 0
	}
	n := s.numPayloadTagBits()
	if n >= 32 {
		return layout.NotAnInhabitant - 1
	}
	return uint32(uint64(1)<<uint(n) - s.numTags) //nolint:gosec // G115: n < 32.
}

func (s *multiPayload) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	if index >= s.FixedExtraInhabitantCount() {
		panic(fmt.Sprintf("enumimpl: %s has no extra inhabitant %d", s.name, index))
	}
	tag := bitvec.FromUint64(64, s.numTags+uint64(index))
	return s.rec.pattern(bitvec.Scatter(s.payloadTagBits, tag), 0)
}

func (s *multiPayload) FixedExtraInhabitantMask() bitvec.Bits {
	s.mustFixed()
	return s.rec.pattern(s.payloadTagBits, 0)
}

func (s *multiPayload) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	if s.runtime {
		return b.Call(rtabi.FnVWGetExtraInhabitantIdx, ir.I32, addr, s.Metadata(b))
	}
	count := s.FixedExtraInhabitantCount()
	if count == 0 {
		return b.ConstInt(32, uint64(layout.NotAnInhabitant))
	}
	tag := emitGather(b, s.rec.loadPayload(b, addr), s.payloadTagBits, 64)
	return layout.InhabitantIndexFromValue(b, tag, s.numTags, count, 0)
}

func (s *multiPayload) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	if s.runtime {
		b.Call(rtabi.FnVWStoreExtraInhabitant, ir.Void, addr, index, s.Metadata(b))
		return
	}
	tag := b.Add(b.ZExt(index, 64), b.ConstInt(64, s.numTags))
	s.rec.storePayload(b, emitScatter(b, tag, s.payloadTagBits), addr)
}

func (s *multiPayload) InitializeMetadata(b ir.Builder, metadata *ir.Value) {
	if !s.runtime {
		return
	}
	n := b.ConstInt(32, uint64(len(s.bk.payload))) //nolint:gosec // G115: non-negative length.
	b.Call(rtabi.FnEnumInitMultiPayload, ir.Void, metadata, n, b.Global("payloads."+s.name))
}
