package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// payloadRecord is the physical {payload bytes}{extra tag bytes} body shared
// by the payload strategies. Either part is omitted when it has no bits.
type payloadRecord struct {
	payloadBits  int
	extraTagBits int
	align        int
}

func (r payloadRecord) payloadBytes() int  { return r.payloadBits / 8 }
func (r payloadRecord) extraTagBytes() int { return (r.extraTagBits + 7) / 8 }
func (r payloadRecord) size() int          { return r.payloadBytes() + r.extraTagBytes() }
func (r payloadRecord) hasExtraTag() bool  { return r.extraTagBits > 0 }

func (r payloadRecord) extraTagType() ir.Type { return ir.Int(r.extraTagBytes() * 8) }

func (r payloadRecord) schema() []layout.Slot {
	var out []layout.Slot
	if r.payloadBits > 0 {
		out = append(out, layout.Slot{Type: ir.Int(r.payloadBits)})
	}
	if r.hasExtraTag() {
		out = append(out, layout.Slot{Type: r.extraTagType(), Offset: r.payloadBytes()})
	}
	return out
}

func (r payloadRecord) storageType() string {
	switch {
	case r.payloadBits > 0 && r.hasExtraTag():
		return fmt.Sprintf("{ [%d x i8], [%d x i8] }", r.payloadBytes(), r.extraTagBytes())
	case r.hasExtraTag():
		return fmt.Sprintf("{ [%d x i8] }", r.extraTagBytes())
	default:
		return fmt.Sprintf("{ [%d x i8] }", r.payloadBytes())
	}
}

// split separates an explosion into its payload and extra tag scalars. An
// absent part is returned as a zero constant.
func (r payloadRecord) split(b ir.Builder, vals []*ir.Value) (payload, extra *ir.Value) {
	if len(vals) != len(r.schema()) {
		panic("enumimpl: explosion arity mismatch")
	}
	i := 0
	if r.payloadBits > 0 {
		payload = vals[0]
		i++
	}
	if r.hasExtraTag() {
		extra = vals[i]
	} else {
		extra = b.ConstInt(8, 0)
	}
	return payload, extra
}

func (r payloadRecord) join(payload, extra *ir.Value) []*ir.Value {
	var out []*ir.Value
	if r.payloadBits > 0 {
		out = append(out, payload)
	}
	if r.hasExtraTag() {
		out = append(out, extra)
	}
	return out
}

func (r payloadRecord) extraTagConst(b ir.Builder, t uint64) *ir.Value {
	if !r.hasExtraTag() {
		return b.ConstInt(8, 0)
	}
	return b.ConstInt(r.extraTagBytes()*8, t)
}

// extraTagIs compares the extra tag with t; it is constant true without tag bits.
func (r payloadRecord) extraTagIs(b ir.Builder, extra *ir.Value, t uint64) *ir.Value {
	if !r.hasExtraTag() {
		if t == 0 {
			return b.ConstInt(1, 1)
		}
		return b.ConstInt(1, 0)
	}
	return b.ICmp(ir.PredEQ, extra, r.extraTagConst(b, t))
}

func (r payloadRecord) load(b ir.Builder, addr *ir.Value) (payload, extra *ir.Value) {
	return r.split(b, layout.LoadSlots(b, r.schema(), addr))
}

func (r payloadRecord) loadPayload(b ir.Builder, addr *ir.Value) *ir.Value {
	return b.Load(ir.Int(r.payloadBits), addr)
}

func (r payloadRecord) loadExtraTag(b ir.Builder, addr *ir.Value) *ir.Value {
	if !r.hasExtraTag() {
		return b.ConstInt(8, 0)
	}
	return b.Load(r.extraTagType(), b.GEP(addr, r.payloadBytes()))
}

func (r payloadRecord) storePayload(b ir.Builder, v, addr *ir.Value) {
	b.Store(v, addr)
}

func (r payloadRecord) storeExtraTag(b ir.Builder, t uint64, addr *ir.Value) {
	if !r.hasExtraTag() {
		return
	}
	b.Store(r.extraTagConst(b, t), b.GEP(addr, r.payloadBytes()))
}

// spareBits is the record's spare mask: payloadSpare over the payload bytes
// and the unused high bits of the extra tag bytes.
func (r payloadRecord) spareBits(payloadSpare bitvec.Bits) bitvec.Bits {
	tagBytes := r.extraTagBytes() * 8
	tagSpare := bitvec.Range(tagBytes, r.extraTagBits, tagBytes)
	return payloadSpare.Concat(tagSpare)
}

// pattern assembles a full storage pattern from payload and extra tag values.
func (r payloadRecord) pattern(payload bitvec.Bits, extra uint64) bitvec.Bits {
	tagBytes := r.extraTagBytes() * 8
	return payload.Resize(r.payloadBits).Concat(bitvec.FromUint64(tagBytes, extra))
}

func (r payloadRecord) pack(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return packScalars(b, r.schema(), vals, width, bitOffset)
}

func (r payloadRecord) unpack(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value {
	return unpackScalars(b, r.schema(), payload, bitOffset)
}
