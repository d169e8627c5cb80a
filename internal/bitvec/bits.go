// Package bitvec implements fixed-width two's complement bit vectors.
//
// Payload representations of nested enums and structs routinely exceed a
// machine word, so every mask and constant used by the layout code is a Bits
// value of an explicit width. Bits are immutable: every operation returns a
// fresh vector and never aliases the limbs of its operands.
package bitvec

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxWidth bounds the width of a single vector (1 MiB payloads).
const MaxWidth = 1 << 23

// Bits is a fixed-width bit vector.
type Bits struct {
	width int
	// limbs are base-2^32 little-endian; bits above width are always zero.
	limbs []uint32
}

func limbCount(width int) int {
	return (width + 31) / 32
}

func checkWidth(width int) {
	if width < 0 || width > MaxWidth {
		panic(fmt.Sprintf("bitvec: invalid width %d", width))
	}
}

// New returns an all-zero vector of the given width.
func New(width int) Bits {
	checkWidth(width)
	return Bits{width: width, limbs: make([]uint32, limbCount(width))}
}

// FromUint64 builds a vector holding v truncated to width.
func FromUint64(width int, v uint64) Bits {
	out := New(width)
	if len(out.limbs) > 0 {
		out.limbs[0] = uint32(v) //nolint:gosec // G115: truncation is intentional (low limb).
	}
	if len(out.limbs) > 1 {
		out.limbs[1] = uint32(v >> 32) //nolint:gosec // G115: truncation is intentional (high limb).
	}
	out.clearUnused()
	return out
}

// FromInt64 builds a vector holding v sign-extended or truncated to width.
func FromInt64(width int, v int64) Bits {
	out := FromUint64(width, uint64(v)) //nolint:gosec // G115: two's complement reinterpretation.
	if v < 0 && width > 64 {
		for i := 64; i < width; i++ {
			out.limbs[i/32] |= 1 << (uint(i) % 32)
		}
	}
	return out
}

// AllOnes returns a vector with every bit set.
func AllOnes(width int) Bits {
	out := New(width)
	for i := range out.limbs {
		out.limbs[i] = ^uint32(0)
	}
	out.clearUnused()
	return out
}

// LowBits returns a vector with the n least significant bits set.
func LowBits(width, n int) Bits {
	return Range(width, 0, n)
}

// Range returns a vector with bits [lo, hi) set.
func Range(width, lo, hi int) Bits {
	out := New(width)
	if lo < 0 {
		lo = 0
	}
	if hi > width {
		hi = width
	}
	for i := lo; i < hi; i++ {
		out.limbs[i/32] |= 1 << (uint(i) % 32)
	}
	return out
}

// MinimalUnsigned returns v in the narrowest vector that holds it (at least one bit).
func MinimalUnsigned(v uint64) Bits {
	w := bits.Len64(v)
	if w == 0 {
		w = 1
	}
	return FromUint64(w, v)
}

// MinimalSigned returns v in the narrowest vector that holds it as a signed
// two's complement integer (at least one bit).
func MinimalSigned(v int64) Bits {
	var w int
	if v < 0 {
		w = bits.Len64(uint64(^v)) + 1 //nolint:gosec // G115: ^v is non-negative.
	} else {
		w = bits.Len64(uint64(v)) + 1
	}
	return FromInt64(w, v)
}

// FromBytes decodes little-endian bytes into a vector of the given width.
func FromBytes(width int, data []byte) Bits {
	out := New(width)
	for i, by := range data {
		if i*8 >= width {
			break
		}
		out.limbs[i/4] |= uint32(by) << (uint(i%4) * 8)
	}
	out.clearUnused()
	return out
}

// Width returns the number of bits in the vector.
func (b Bits) Width() int { return b.width }

func (b Bits) clearUnused() {
	if b.width%32 == 0 || len(b.limbs) == 0 {
		return
	}
	b.limbs[len(b.limbs)-1] &= uint32(1)<<(uint(b.width)%32) - 1
}

func (b Bits) clone() Bits {
	out := Bits{width: b.width, limbs: make([]uint32, len(b.limbs))}
	copy(out.limbs, b.limbs)
	return out
}

// Bit reports whether bit i is set.
func (b Bits) Bit(i int) bool {
	if i < 0 || i >= b.width {
		return false
	}
	return b.limbs[i/32]&(1<<(uint(i)%32)) != 0
}

// WithBit returns a copy with bit i set to v.
func (b Bits) WithBit(i int, v bool) Bits {
	if i < 0 || i >= b.width {
		panic(fmt.Sprintf("bitvec: bit %d out of range for width %d", i, b.width))
	}
	out := b.clone()
	if v {
		out.limbs[i/32] |= 1 << (uint(i) % 32)
	} else {
		out.limbs[i/32] &^= 1 << (uint(i) % 32)
	}
	return out
}

// IsZero reports whether no bit is set.
func (b Bits) IsZero() bool {
	for _, l := range b.limbs {
		if l != 0 {
			return false
		}
	}
	return true
}

// IsAllOnes reports whether every bit is set.
func (b Bits) IsAllOnes() bool {
	return b.Equal(AllOnes(b.width))
}

// Equal reports whether both vectors have the same width and bits.
func (b Bits) Equal(o Bits) bool {
	if b.width != o.width {
		return false
	}
	for i := range b.limbs {
		if b.limbs[i] != o.limbs[i] {
			return false
		}
	}
	return true
}

// PopCount returns the number of set bits.
func (b Bits) PopCount() int {
	n := 0
	for _, l := range b.limbs {
		n += bits.OnesCount32(l)
	}
	return n
}

// ActiveBits returns the index of the highest set bit plus one.
func (b Bits) ActiveBits() int {
	for i := len(b.limbs) - 1; i >= 0; i-- {
		if b.limbs[i] != 0 {
			return i*32 + 32 - bits.LeadingZeros32(b.limbs[i])
		}
	}
	return 0
}

// TrailingZeros returns the number of zero bits below the lowest set bit,
// or the width when the vector is zero.
func (b Bits) TrailingZeros() int {
	for i, l := range b.limbs {
		if l != 0 {
			return i*32 + bits.TrailingZeros32(l)
		}
	}
	return b.width
}

// Uint64 returns the value when it fits into 64 bits.
func (b Bits) Uint64() (uint64, bool) {
	if b.ActiveBits() > 64 {
		return 0, false
	}
	return b.Lo64(), true
}

// Lo64 returns the low 64 bits.
func (b Bits) Lo64() uint64 {
	var v uint64
	if len(b.limbs) > 0 {
		v = uint64(b.limbs[0])
	}
	if len(b.limbs) > 1 {
		v |= uint64(b.limbs[1]) << 32
	}
	return v
}

// Int64 returns the value sign-extended from the vector width, truncated to 64 bits.
func (b Bits) Int64() int64 {
	v := b.Lo64()
	if b.width > 0 && b.width < 64 && b.Bit(b.width-1) {
		v |= ^uint64(0) << uint(b.width)
	}
	return int64(v) //nolint:gosec // G115: two's complement reinterpretation.
}

// Bytes encodes the vector as ceil(width/8) little-endian bytes.
func (b Bits) Bytes() []byte {
	out := make([]byte, (b.width+7)/8)
	for i := range out {
		out[i] = byte(b.limbs[i/4] >> (uint(i%4) * 8))
	}
	return out
}

// Hex formats the vector as a zero-padded hexadecimal literal.
func (b Bits) Hex() string {
	digits := (b.width + 3) / 4
	if digits == 0 {
		return "0x0"
	}
	var sb strings.Builder
	sb.WriteString("0x")
	for d := digits - 1; d >= 0; d-- {
		nibble := (b.limbs[(d*4)/32] >> (uint(d*4) % 32)) & 0xf
		sb.WriteByte("0123456789abcdef"[nibble])
	}
	return sb.String()
}

// ParseHex decodes a literal produced by Hex.
func ParseHex(width int, s string) (Bits, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	out := New(width)
	pos := 0
	for i := len(s) - 1; i >= 0; i-- {
		var v uint32
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = uint32(c-'A') + 10
		case c == '_':
			continue
		default:
			return Bits{}, fmt.Errorf("bitvec: invalid hex digit %q", c)
		}
		for k := 0; k < 4; k++ {
			if v&(1<<uint(k)) == 0 {
				continue
			}
			if pos+k >= width {
				return Bits{}, fmt.Errorf("bitvec: literal %q overflows i%d", s, width)
			}
			out.limbs[(pos+k)/32] |= 1 << (uint(pos+k) % 32)
		}
		pos += 4
	}
	return out, nil
}

// String renders the vector as "iN 0x...".
func (b Bits) String() string {
	return fmt.Sprintf("i%d %s", b.width, b.Hex())
}
