package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type (a case without payload).
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindRawPointer
	KindRef
	KindString
	KindStruct
	KindArray
	KindEnum
	KindGenericParam
	KindResilient
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindUnit:         "unit",
	KindBool:         "bool",
	KindInt:          "int",
	KindUint:         "uint",
	KindFloat:        "float",
	KindRawPointer:   "rawpointer",
	KindRef:          "ref",
	KindString:       "string",
	KindStruct:       "struct",
	KindArray:        "array",
	KindEnum:         "enum",
	KindGenericParam: "generic",
	KindResilient:    "resilient",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width is the bit width of a numeric primitive.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// RefCounting tells which runtime manages a reference.
type RefCounting uint8

const (
	// RefNative references are retained with the native runtime entry points.
	RefNative RefCounting = iota
	// RefUnknown references may belong to a foreign object model.
	RefUnknown
)

func (r RefCounting) String() string {
	if r == RefUnknown {
		return "unknown"
	}
	return "native"
}

// Type is the structural descriptor the interner hashes. Nominal, generic
// and resilient types keep their metadata in side tables indexed by Payload.
type Type struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32 // for fixed arrays
	Width   Width  // for numeric primitives
	Refs    RefCounting
	Payload uint32 // slot in the struct/enum/name tables
}

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type { return Type{Kind: KindInt, Width: width} }

func MakeUint(width Width) Type { return Type{Kind: KindUint, Width: width} }

func MakeFloat(width Width) Type { return Type{Kind: KindFloat, Width: width} }

// MakeArray describes a fixed-size inline array.
func MakeArray(elem TypeID, count uint32) Type { return Type{Kind: KindArray, Elem: elem, Count: count} }

func MakeRef(refs RefCounting) Type { return Type{Kind: KindRef, Refs: refs} }
