package enumimpl

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// bitRun is a maximal stretch [lo, hi) of set bits in a mask.
type bitRun struct{ lo, hi int }

func maskRuns(mask bitvec.Bits) []bitRun {
	var out []bitRun
	i := 0
	for i < mask.Width() {
		if !mask.Bit(i) {
			i++
			continue
		}
		j := i
		for j < mask.Width() && mask.Bit(j) {
			j++
		}
		out = append(out, bitRun{i, j})
		i = j
	}
	return out
}

// emitGather is the runtime counterpart of bitvec.Gather: the bits of v
// selected by mask are packed densely into the low bits of an outBits-wide
// integer.
func emitGather(b ir.Builder, v *ir.Value, mask bitvec.Bits, outBits int) *ir.Value {
	w := v.Type.Bits
	acc := b.ConstInt(w, 0)
	pos := 0
	for _, r := range maskRuns(mask) {
		n := r.hi - r.lo
		piece := b.And(b.LShr(v, r.lo), b.Const(bitvec.LowBits(w, n)))
		acc = b.Or(acc, b.Shl(piece, pos))
		pos += n
	}
	return layout.ResizeInt(b, acc, outBits)
}

// emitScatter is the runtime counterpart of bitvec.Scatter: the low bits of
// v are spread over the set positions of mask in a mask-wide integer.
func emitScatter(b ir.Builder, v *ir.Value, mask bitvec.Bits) *ir.Value {
	w := mask.Width()
	if v.Type.Bits < w {
		v = b.ZExt(v, w)
	}
	acc := b.ConstInt(w, 0)
	pos := 0
	for _, r := range maskRuns(mask) {
		n := r.hi - r.lo
		src := v
		if src.Type.Bits > w {
			src = b.Trunc(b.LShr(src, pos), w)
		} else {
			src = b.LShr(src, pos)
		}
		piece := b.And(src, b.Const(bitvec.LowBits(w, n)))
		acc = b.Or(acc, b.Shl(piece, r.lo))
		pos += n
	}
	return acc
}

// packScalars places an enum explosion at bitOffset inside a width-bit
// integer. Enum explosions hold integers only.
func packScalars(b ir.Builder, schema []layout.Slot, vals []*ir.Value, width, bitOffset int) *ir.Value {
	return layout.PackSlots(b, schema, vals, width, bitOffset, 0)
}

// unpackScalars is the inverse of packScalars.
func unpackScalars(b ir.Builder, schema []layout.Slot, payload *ir.Value, bitOffset int) []*ir.Value {
	return layout.UnpackSlots(b, schema, payload, bitOffset, 0)
}
