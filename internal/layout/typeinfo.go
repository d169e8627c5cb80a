package layout

import (
	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
)

// Kind orders how concretely a representation is known. An aggregate takes
// the minimum kind of its parts.
type Kind uint8

const (
	// Opaque values have a runtime-determined size and live behind value witnesses.
	Opaque Kind = iota
	// Fixed values have a compile-time size but must stay in memory.
	Fixed
	// Loadable values explode into a flat list of scalars.
	Loadable
)

func (k Kind) String() string {
	switch k {
	case Opaque:
		return "opaque"
	case Fixed:
		return "fixed"
	case Loadable:
		return "loadable"
	default:
		return "kind?"
	}
}

// MinKind returns the less concrete of two kinds.
func MinKind(a, b Kind) Kind {
	if a < b {
		return a
	}
	return b
}

// SizeClass is the ABI size classification of a type.
type SizeClass uint8

const (
	// SizeFixed types have a size known in this compilation unit.
	SizeFixed SizeClass = iota
	// SizeResilient types have a fixed size owned by another module.
	SizeResilient
	// SizeDependent types have a size that depends on generic substitution.
	SizeDependent
)

func (c SizeClass) String() string {
	switch c {
	case SizeFixed:
		return "fixed"
	case SizeResilient:
		return "resilient"
	case SizeDependent:
		return "dependent"
	default:
		return "sizeclass?"
	}
}

// PointerKind reports whether a type is exactly one managed reference.
type PointerKind uint8

const (
	NotSinglePointer PointerKind = iota
	SingleNativePointer
	SingleUnknownPointer
)

// NotAnInhabitant is the extra-inhabitant index reported for valid values.
const NotAnInhabitant = ^uint32(0)

// TypeInfo is the capability object the enum layer consumes for every
// payload type. Callers check Kind before asserting the richer interfaces.
type TypeInfo interface {
	Name() string
	Kind() Kind
	SizeClass() SizeClass
	IsPOD() bool
	SinglePointer() PointerKind

	// Metadata returns the runtime type metadata reference used by value
	// witness calls.
	Metadata(b ir.Builder) *ir.Value

	InitializeWithCopy(b ir.Builder, dst, src *ir.Value)
	InitializeWithTake(b ir.Builder, dst, src *ir.Value)
	AssignWithCopy(b ir.Builder, dst, src *ir.Value)
	AssignWithTake(b ir.Builder, dst, src *ir.Value)
	Destroy(b ir.Builder, addr *ir.Value)

	MayHaveExtraInhabitants() bool
	// ExtraInhabitantIndex yields an i32 index, or NotAnInhabitant for a valid value.
	ExtraInhabitantIndex(b ir.Builder, addr *ir.Value) *ir.Value
	StoreExtraInhabitant(b ir.Builder, index, addr *ir.Value)
}

// FixedTypeInfo adds compile-time layout facts. All bit vectors have width Size()*8.
type FixedTypeInfo interface {
	TypeInfo
	Size() int
	Align() int
	Stride() int
	StorageType() string
	SpareBits() bitvec.Bits
	FixedExtraInhabitantCount() uint32
	FixedExtraInhabitantValue(index uint32) bitvec.Bits
	FixedExtraInhabitantMask() bitvec.Bits
}

// Slot is one scalar of an explosion and its byte offset in storage.
type Slot struct {
	Type   ir.Type
	Offset int
}

// LoadableTypeInfo adds explosion-level operations.
type LoadableTypeInfo interface {
	FixedTypeInfo
	Schema() []Slot

	LoadAsCopy(b ir.Builder, addr *ir.Value) []*ir.Value
	LoadAsTake(b ir.Builder, addr *ir.Value) []*ir.Value
	Initialize(b ir.Builder, vals []*ir.Value, addr *ir.Value)
	Assign(b ir.Builder, vals []*ir.Value, addr *ir.Value)
	Copy(b ir.Builder, vals []*ir.Value) []*ir.Value
	Consume(b ir.Builder, vals []*ir.Value)

	// PackIntoEnumPayload places the explosion at bitOffset inside an
	// integer of width bits.
	PackIntoEnumPayload(b ir.Builder, vals []*ir.Value, width, bitOffset int) *ir.Value
	// UnpackFromEnumPayload is the inverse of PackIntoEnumPayload.
	UnpackFromEnumPayload(b ir.Builder, payload *ir.Value, bitOffset int) []*ir.Value
}

// AsFixed returns ti as a FixedTypeInfo when its kind allows.
func AsFixed(ti TypeInfo) (FixedTypeInfo, bool) {
	if ti == nil || ti.Kind() < Fixed {
		return nil, false
	}
	f, ok := ti.(FixedTypeInfo)
	return f, ok
}

// AsLoadable returns ti as a LoadableTypeInfo when its kind allows.
func AsLoadable(ti TypeInfo) (LoadableTypeInfo, bool) {
	if ti == nil || ti.Kind() < Loadable {
		return nil, false
	}
	l, ok := ti.(LoadableTypeInfo)
	return l, ok
}

// IsEmpty reports whether ti is statically known to be zero-sized.
func IsEmpty(ti TypeInfo) bool {
	f, ok := AsFixed(ti)
	return ok && f.Size() == 0
}
