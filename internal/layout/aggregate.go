package layout

import (
	"strconv"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
)

// Field is a laid-out member of an aggregate.
type Field struct {
	Name   string
	Info   FixedTypeInfo
	Offset int
}

// structTypeInfo lays fields out in declaration order. Padding bytes are
// spare bits; extra inhabitants come from the field that offers the most.
type structTypeInfo struct {
	FixedBase
	kind    Kind
	fields  []Field
	ptrBits int
	best    int
}

var _ LoadableTypeInfo = (*structTypeInfo)(nil)

func newStructTypeInfo(name string, fields []Field, size, align int, kind Kind, t Target) *structTypeInfo {
	s := &structTypeInfo{
		FixedBase: FixedBase{
			TypeName:  name,
			Bytes:     size,
			Alignment: align,
			POD:       true,
			Storage:   "%" + name,
		},
		kind:    kind,
		fields:  fields,
		ptrBits: t.PtrBits(),
		best:    -1,
	}
	spare := bitvec.AllOnes(size * 8)
	var bestCount uint32
	nonEmpty := 0
	for i, f := range fields {
		spare = spare.Insert(f.Offset*8, f.Info.SpareBits())
		if !f.Info.IsPOD() {
			s.POD = false
		}
		if f.Info.Size() > 0 {
			nonEmpty++
		}
		if n := f.Info.FixedExtraInhabitantCount(); n > bestCount {
			bestCount, s.best = n, i
		}
	}
	s.Spare = spare
	if nonEmpty == 1 {
		for _, f := range fields {
			if f.Info.Size() > 0 && f.Offset == 0 && f.Info.Size() == size {
				s.Pointer = f.Info.SinglePointer()
			}
		}
	}
	return s
}

// Fields returns the laid-out members.
func (s *structTypeInfo) Fields() []Field { return s.fields }

func (s *structTypeInfo) Kind() Kind { return s.kind }

func (s *structTypeInfo) loadableField(i int) LoadableTypeInfo {
	l, ok := AsLoadable(s.fields[i].Info)
	if !ok {
		panic("layout: explosion of address-only struct " + s.TypeName)
	}
	return l
}

func (s *structTypeInfo) Schema() []Slot {
	var out []Slot
	for i, f := range s.fields {
		for _, sl := range s.loadableField(i).Schema() {
			out = append(out, Slot{Type: sl.Type, Offset: f.Offset + sl.Offset})
		}
	}
	return out
}

// split partitions a struct explosion into per-field explosions.
func (s *structTypeInfo) split(vals []*ir.Value) [][]*ir.Value {
	out := make([][]*ir.Value, len(s.fields))
	pos := 0
	for i := range s.fields {
		n := len(s.loadableField(i).Schema())
		out[i] = vals[pos : pos+n]
		pos += n
	}
	if pos != len(vals) {
		panic("layout: explosion arity mismatch")
	}
	return out
}

func (s *structTypeInfo) LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value {
	var out []*ir.Value
	for i, f := range s.fields {
		out = append(out, s.loadableField(i).LoadAsTake(b, b.GEP(addr, f.Offset))...)
	}
	return out
}

func (s *structTypeInfo) LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value {
	var out []*ir.Value
	for i, f := range s.fields {
		out = append(out, s.loadableField(i).LoadAsCopy(b, b.GEP(addr, f.Offset))...)
	}
	return out
}

func (s *structTypeInfo) Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	for i, part := range s.split(vals) {
		s.loadableField(i).Initialize(b, part, b.GEP(addr, s.fields[i].Offset))
	}
}

func (s *structTypeInfo) Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value) {
	LoadableAssign(b, s, vals, addr)
}

func (s *structTypeInfo) Copy(b ir.Builder, vals []*ir.Value) []*ir.Value {
	var out []*ir.Value
	for i, part := range s.split(vals) {
		out = append(out, s.loadableField(i).Copy(b, part)...)
	}
	return out
}

func (s *structTypeInfo) Consume(b ir.Builder, vals []*ir.Value) {
	for i, part := range s.split(vals) {
		s.loadableField(i).Consume(b, part)
	}
}

func (s *structTypeInfo) PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return PackSlots(b, s.Schema(), vals, width, bitOffset, s.ptrBits)
}

func (s *structTypeInfo) UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return UnpackSlots(b, s.Schema(), payload, bitOffset, s.ptrBits)
}

func (s *structTypeInfo) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	if s.POD {
		b.MemCpy(dst, src, s.Bytes)
		return
	}
	for _, f := range s.fields {
		f.Info.InitializeWithCopy(b, b.GEP(dst, f.Offset), b.GEP(src, f.Offset))
	}
}

func (s *structTypeInfo) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	b.MemCpy(dst, src, s.Bytes)
}

func (s *structTypeInfo) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	if s.POD {
		b.MemCpy(dst, src, s.Bytes)
		return
	}
	for _, f := range s.fields {
		f.Info.AssignWithCopy(b, b.GEP(dst, f.Offset), b.GEP(src, f.Offset))
	}
}

func (s *structTypeInfo) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	if s.POD {
		b.MemCpy(dst, src, s.Bytes)
		return
	}
	for _, f := range s.fields {
		f.Info.AssignWithTake(b, b.GEP(dst, f.Offset), b.GEP(src, f.Offset))
	}
}

func (s *structTypeInfo) Destroy(b ir.Builder, addr *ir.Value) {
	if s.POD {
		return
	}
	for _, f := range s.fields {
		if !f.Info.IsPOD() {
			f.Info.Destroy(b, b.GEP(addr, f.Offset))
		}
	}
}

func (s *structTypeInfo) MayHaveExtraInhabitants() bool { return s.best >= 0 }

func (s *structTypeInfo) FixedExtraInhabitantCount() uint32 {
	if s.best < 0 {
		return 0
	}
	return s.fields[s.best].Info.FixedExtraInhabitantCount()
}

func (s *structTypeInfo) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	f := s.fields[s.best]
	return bitvec.New(s.Bytes*8).Insert(f.Offset*8, f.Info.FixedExtraInhabitantValue(index))
}

func (s *structTypeInfo) FixedExtraInhabitantMask() bitvec.Bits {
	if s.best < 0 {
		return bitvec.New(s.Bytes * 8)
	}
	f := s.fields[s.best]
	return bitvec.New(s.Bytes*8).Insert(f.Offset*8, f.Info.FixedExtraInhabitantMask())
}

func (s *structTypeInfo) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	if s.best < 0 {
		return b.ConstInt(32, uint64(NotAnInhabitant))
	}
	f := s.fields[s.best]
	return f.Info.ExtraInhabitantIndex(b, b.GEP(addr, f.Offset))
}

func (s *structTypeInfo) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	f := s.fields[s.best]
	f.Info.StoreExtraInhabitant(b, index, b.GEP(addr, f.Offset))
}

// arrayTypeInfo is an inline fixed-length array. It always stays in memory.
type arrayTypeInfo struct {
	FixedBase
	elem  FixedTypeInfo
	count int
}

var _ FixedTypeInfo = (*arrayTypeInfo)(nil)

func newArrayTypeInfo(name string, elem FixedTypeInfo, count int) *arrayTypeInfo {
	stride := elem.Stride()
	size := stride * count
	spare := bitvec.AllOnes(size * 8)
	for i := 0; i < count; i++ {
		spare = spare.Insert(i*stride*8, elem.SpareBits())
	}
	return &arrayTypeInfo{
		FixedBase: FixedBase{
			TypeName:  name,
			Bytes:     size,
			Alignment: elem.Align(),
			Spare:     spare,
			POD:       elem.IsPOD() || count == 0,
			Storage:   "[" + strconv.Itoa(count) + " x " + elem.StorageType() + "]",
		},
		elem:  elem,
		count: count,
	}
}

func (a *arrayTypeInfo) Kind() Kind { return Fixed }

func (a *arrayTypeInfo) each(fn func(off int)) {
	for i := 0; i < a.count; i++ {
		fn(i * a.elem.Stride())
	}
}

func (a *arrayTypeInfo) InitializeWithCopy(b ir.Builder, dst, src *ir.Value) {
	if a.POD {
		b.MemCpy(dst, src, a.Bytes)
		return
	}
	a.each(func(off int) { a.elem.InitializeWithCopy(b, b.GEP(dst, off), b.GEP(src, off)) })
}

func (a *arrayTypeInfo) InitializeWithTake(b ir.Builder, dst, src *ir.Value) {
	b.MemCpy(dst, src, a.Bytes)
}

func (a *arrayTypeInfo) AssignWithCopy(b ir.Builder, dst, src *ir.Value) {
	if a.POD {
		b.MemCpy(dst, src, a.Bytes)
		return
	}
	a.each(func(off int) { a.elem.AssignWithCopy(b, b.GEP(dst, off), b.GEP(src, off)) })
}

func (a *arrayTypeInfo) AssignWithTake(b ir.Builder, dst, src *ir.Value) {
	if a.POD {
		b.MemCpy(dst, src, a.Bytes)
		return
	}
	a.each(func(off int) { a.elem.AssignWithTake(b, b.GEP(dst, off), b.GEP(src, off)) })
}

func (a *arrayTypeInfo) Destroy(b ir.Builder, addr *ir.Value) {
	if a.POD {
		return
	}
	a.each(func(off int) { a.elem.Destroy(b, b.GEP(addr, off)) })
}

func (a *arrayTypeInfo) MayHaveExtraInhabitants() bool {
	return a.count > 0 && a.elem.MayHaveExtraInhabitants()
}

func (a *arrayTypeInfo) FixedExtraInhabitantCount() uint32 {
	if a.count == 0 {
		return 0
	}
	return a.elem.FixedExtraInhabitantCount()
}

func (a *arrayTypeInfo) FixedExtraInhabitantValue(index uint32) bitvec.Bits {
	return bitvec.New(a.Bytes * 8).Insert(0, a.elem.FixedExtraInhabitantValue(index))
}

func (a *arrayTypeInfo) FixedExtraInhabitantMask() bitvec.Bits {
	if a.count == 0 {
		return bitvec.New(0)
	}
	return bitvec.New(a.Bytes * 8).Insert(0, a.elem.FixedExtraInhabitantMask())
}

func (a *arrayTypeInfo) ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value {
	if a.count == 0 {
		return b.ConstInt(32, uint64(NotAnInhabitant))
	}
	return a.elem.ExtraInhabitantIndex(b, addr)
}

func (a *arrayTypeInfo) StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value) {
	a.elem.StoreExtraInhabitant(b, index, addr)
}
