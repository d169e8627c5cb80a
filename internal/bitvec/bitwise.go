package bitvec

import "fmt"

func mustSameWidth(a, b Bits) {
	if a.width != b.width {
		panic(fmt.Sprintf("bitvec: width mismatch i%d vs i%d", a.width, b.width))
	}
}

// And returns the bitwise AND of b and o.
func (b Bits) And(o Bits) Bits {
	mustSameWidth(b, o)
	out := b.clone()
	for i := range out.limbs {
		out.limbs[i] &= o.limbs[i]
	}
	return out
}

// Or returns the bitwise OR of b and o.
func (b Bits) Or(o Bits) Bits {
	mustSameWidth(b, o)
	out := b.clone()
	for i := range out.limbs {
		out.limbs[i] |= o.limbs[i]
	}
	return out
}

// Xor returns the bitwise XOR of b and o.
func (b Bits) Xor(o Bits) Bits {
	mustSameWidth(b, o)
	out := b.clone()
	for i := range out.limbs {
		out.limbs[i] ^= o.limbs[i]
	}
	return out
}

// AndNot returns b & ^o.
func (b Bits) AndNot(o Bits) Bits {
	mustSameWidth(b, o)
	out := b.clone()
	for i := range out.limbs {
		out.limbs[i] &^= o.limbs[i]
	}
	return out
}

// Not returns the bitwise complement.
func (b Bits) Not() Bits {
	out := b.clone()
	for i := range out.limbs {
		out.limbs[i] = ^out.limbs[i]
	}
	out.clearUnused()
	return out
}

// Shl shifts left by n, discarding bits shifted past the width.
func (b Bits) Shl(n int) Bits {
	if n < 0 {
		panic("bitvec: negative shift")
	}
	out := New(b.width)
	if n >= b.width {
		return out
	}
	wordShift := n / 32
	bitShift := uint(n % 32)
	for i := len(b.limbs) - 1; i >= wordShift; i-- {
		v := b.limbs[i-wordShift] << bitShift
		if bitShift != 0 && i-wordShift-1 >= 0 {
			v |= b.limbs[i-wordShift-1] >> (32 - bitShift)
		}
		out.limbs[i] = v
	}
	out.clearUnused()
	return out
}

// LShr shifts right by n, filling with zeros.
func (b Bits) LShr(n int) Bits {
	if n < 0 {
		panic("bitvec: negative shift")
	}
	out := New(b.width)
	if n >= b.width {
		return out
	}
	wordShift := n / 32
	bitShift := uint(n % 32)
	for i := 0; i+wordShift < len(b.limbs); i++ {
		v := b.limbs[i+wordShift] >> bitShift
		if bitShift != 0 && i+wordShift+1 < len(b.limbs) {
			v |= b.limbs[i+wordShift+1] << (32 - bitShift)
		}
		out.limbs[i] = v
	}
	return out
}

// ZExt zero-extends to width w (w >= Width()).
func (b Bits) ZExt(w int) Bits {
	if w < b.width {
		panic(fmt.Sprintf("bitvec: zext from i%d to narrower i%d", b.width, w))
	}
	out := New(w)
	copy(out.limbs, b.limbs)
	return out
}

// Trunc truncates to width w (w <= Width()).
func (b Bits) Trunc(w int) Bits {
	if w > b.width {
		panic(fmt.Sprintf("bitvec: trunc from i%d to wider i%d", b.width, w))
	}
	out := New(w)
	copy(out.limbs, b.limbs)
	out.clearUnused()
	return out
}

// Resize zero-extends or truncates to width w.
func (b Bits) Resize(w int) Bits {
	if w >= b.width {
		return b.ZExt(w)
	}
	return b.Trunc(w)
}

// Concat returns a vector of width b.Width()+hi.Width() with b in the low bits.
func (b Bits) Concat(hi Bits) Bits {
	return b.ZExt(b.width + hi.width).Or(hi.ZExt(b.width + hi.width).Shl(b.width))
}

// Extract returns bits [lo, lo+w) as a vector of width w.
func (b Bits) Extract(lo, w int) Bits {
	if lo < 0 || lo+w > b.width {
		panic(fmt.Sprintf("bitvec: extract [%d,%d) out of i%d", lo, lo+w, b.width))
	}
	return b.LShr(lo).Trunc(w)
}

// Insert returns a copy with v placed at bit offset lo.
func (b Bits) Insert(lo int, v Bits) Bits {
	if lo < 0 || lo+v.width > b.width {
		panic(fmt.Sprintf("bitvec: insert i%d at %d out of i%d", v.width, lo, b.width))
	}
	cleared := b.AndNot(Range(b.width, lo, lo+v.width))
	return cleared.Or(v.ZExt(b.width).Shl(lo))
}

// SetBits returns the positions of all set bits in ascending order.
func (b Bits) SetBits() []int {
	out := make([]int, 0, b.PopCount())
	for i := 0; i < b.width; i++ {
		if b.Bit(i) {
			out = append(out, i)
		}
	}
	return out
}

// KeepHighSetBits returns a copy of the mask b retaining only its n most
// significant set bits.
func (b Bits) KeepHighSetBits(n int) Bits {
	out := New(b.width)
	for i := b.width - 1; i >= 0 && n > 0; i-- {
		if b.Bit(i) {
			out.limbs[i/32] |= 1 << (uint(i) % 32)
			n--
		}
	}
	return out
}

// KeepLowSetBits returns a copy of the mask b retaining only its n least
// significant set bits.
func (b Bits) KeepLowSetBits(n int) Bits {
	out := New(b.width)
	for i := 0; i < b.width && n > 0; i++ {
		if b.Bit(i) {
			out.limbs[i/32] |= 1 << (uint(i) % 32)
			n--
		}
	}
	return out
}
