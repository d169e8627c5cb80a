package layout

import (
	"fmt"

	"enumgen/internal/bitvec"
)

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes

	// HeapObjectSpareBits are the bits of a managed reference that no valid
	// object address ever sets (alignment bits and unused high bits).
	HeapObjectSpareBits uint64
	// LeastValidPointer is the lowest address an object may live at; all
	// aligned values below it are extra inhabitants of a reference.
	LeastValidPointer uint64
	// MaxLoadableScalars bounds how many scalars a value may explode into
	// before it is kept in memory instead.
	MaxLoadableScalars int
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:              "x86_64-linux-gnu",
		PtrSize:             8,
		PtrAlign:            8,
		HeapObjectSpareBits: 0xF000_0000_0000_0007,
		LeastValidPointer:   4096,
		MaxLoadableScalars:  4,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:              "aarch64-linux-gnu",
		PtrSize:             8,
		PtrAlign:            8,
		HeapObjectSpareBits: 0xF000_0000_0000_0007,
		LeastValidPointer:   4096,
		MaxLoadableScalars:  4,
	}
}

func I386LinuxGNU() Target {
	return Target{
		Triple:              "i386-linux-gnu",
		PtrSize:             4,
		PtrAlign:            4,
		HeapObjectSpareBits: 0x0000_0003,
		LeastValidPointer:   4096,
		MaxLoadableScalars:  4,
	}
}

// TargetByTriple returns the preset for a known triple.
func TargetByTriple(triple string) (Target, error) {
	switch triple {
	case "", "x86_64-linux-gnu", "x86_64":
		return X86_64LinuxGNU(), nil
	case "aarch64-linux-gnu", "arm64", "aarch64":
		return AArch64LinuxGNU(), nil
	case "i386-linux-gnu", "i386":
		return I386LinuxGNU(), nil
	default:
		return Target{}, fmt.Errorf("unsupported target %q (expected x86_64-linux-gnu|aarch64-linux-gnu|i386-linux-gnu)", triple)
	}
}

// PtrBits returns the pointer width in bits.
func (t Target) PtrBits() int { return t.PtrSize * 8 }

// HeapObjectSpareMask returns the spare bits of a reference as a vector.
func (t Target) HeapObjectSpareMask() bitvec.Bits {
	return bitvec.FromUint64(t.PtrBits(), t.HeapObjectSpareBits)
}

func (t Target) ptrAlignShift() int {
	shift := 0
	for a := t.PtrAlign; a > 1; a >>= 1 {
		shift++
	}
	return shift
}
