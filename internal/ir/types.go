package ir

import "fmt"

// TypeKind distinguishes scalar machine types.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeInt
	TypePtr
)

// Type is a scalar machine type: an integer of arbitrary width or a pointer.
type Type struct {
	Kind TypeKind
	Bits int
}

var (
	// Void is the type of instructions without a result.
	Void = Type{Kind: TypeVoid}
	// Ptr is an opaque address-sized pointer.
	Ptr = Type{Kind: TypePtr}
	// I1 is the boolean produced by comparisons.
	I1 = Int(1)
	// I32 is used for case indexes and extra-inhabitant indexes.
	I32 = Int(32)
)

// Int returns the integer type of the given width.
func Int(bits int) Type {
	if bits <= 0 {
		panic(fmt.Sprintf("ir: invalid integer width %d", bits))
	}
	return Type{Kind: TypeInt, Bits: bits}
}

// IsInt reports whether t is an integer type.
func (t Type) IsInt() bool { return t.Kind == TypeInt }

// IsPtr reports whether t is the pointer type.
func (t Type) IsPtr() bool { return t.Kind == TypePtr }

func (t Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeInt:
		return fmt.Sprintf("i%d", t.Bits)
	case TypePtr:
		return "ptr"
	default:
		return fmt.Sprintf("Type(%d)", t.Kind)
	}
}

// Pred is an integer comparison predicate.
type Pred uint8

const (
	PredEQ Pred = iota + 1
	PredNE
	PredULT
	PredUGE
	PredUGT
	PredULE
)

func (p Pred) String() string {
	switch p {
	case PredEQ:
		return "eq"
	case PredNE:
		return "ne"
	case PredULT:
		return "ult"
	case PredUGE:
		return "uge"
	case PredUGT:
		return "ugt"
	case PredULE:
		return "ule"
	default:
		return "pred?"
	}
}
