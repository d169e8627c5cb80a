package bitvec

// Gather collects the bits of v selected by mask into a dense low-order
// vector of width mask.PopCount(). The lowest selected bit lands in bit 0.
func Gather(v, mask Bits) Bits {
	mustSameWidth(v, mask)
	out := New(mask.PopCount())
	j := 0
	for i := 0; i < mask.width; i++ {
		if !mask.Bit(i) {
			continue
		}
		if v.Bit(i) {
			out.limbs[j/32] |= 1 << (uint(j) % 32)
		}
		j++
	}
	return out
}

// Scatter is the inverse of Gather: the low bits of v are distributed, in
// ascending order, over the set positions of mask. Bits of v beyond
// mask.PopCount() are dropped.
func Scatter(mask, v Bits) Bits {
	out := New(mask.width)
	j := 0
	for i := 0; i < mask.width; i++ {
		if !mask.Bit(i) {
			continue
		}
		if v.Bit(j) {
			out.limbs[i/32] |= 1 << (uint(i) % 32)
		}
		j++
	}
	return out
}

// Interleave merges two bit streams through mask: successive bits of set
// fill the set positions of mask, successive bits of clear fill the clear
// positions.
func Interleave(mask, set, clear Bits) Bits {
	out := New(mask.width)
	si, ci := 0, 0
	for i := 0; i < mask.width; i++ {
		var bit bool
		if mask.Bit(i) {
			bit = set.Bit(si)
			si++
		} else {
			bit = clear.Bit(ci)
			ci++
		}
		if bit {
			out.limbs[i/32] |= 1 << (uint(i) % 32)
		}
	}
	return out
}

// Log2Ceil returns the number of bits needed to represent n distinct values.
func Log2Ceil(n uint64) int {
	if n <= 1 {
		return 0
	}
	w := 0
	for v := n - 1; v != 0; v >>= 1 {
		w++
	}
	return w
}

// PowerOf2Ceil rounds n up to the next power of two (n > 0).
func PowerOf2Ceil(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
