package layout

import (
	"fmt"
	"slices"
	"strings"

	"enumgen/internal/types"
)

// LayoutErrorKind classifies a LayoutError.
type LayoutErrorKind uint8

const (
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	LayoutErrLengthConversion
	LayoutErrUnknownType
	LayoutErrNoEnumLowering
)

// LayoutError reports why a type has no layout.
type LayoutError struct {
	Kind LayoutErrorKind
	Type types.TypeID
	Name string
	// Cycle and Names describe the recursion path of LayoutErrRecursiveUnsized,
	// starting and ending at the same type.
	Cycle []types.TypeID
	Names []string
	// Err is the conversion failure of LayoutErrLengthConversion.
	Err error
}

func (e *LayoutError) typeName() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("type#%d", e.Type)
}

func (e *LayoutError) cyclePath() string {
	if len(e.Names) == len(e.Cycle) {
		return strings.Join(e.Names, " -> ")
	}
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = fmt.Sprintf("type#%d", id)
	}
	return strings.Join(parts, " -> ")
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.typeName()
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return "recursive value type " + name + " has infinite size"
		}
		return "recursive value type has infinite size (cycle: " + e.cyclePath() + ")"
	case LayoutErrLengthConversion:
		if e.Err == nil {
			return "array length of " + name + " does not fit"
		}
		return fmt.Sprintf("array length of %s does not fit: %v", name, e.Err)
	case LayoutErrUnknownType:
		return "unknown type " + name
	case LayoutErrNoEnumLowering:
		return "no enum lowering installed for " + name
	}
	return fmt.Sprintf("layout error %d for %s", e.Kind, name)
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InCycle reports whether id takes part in the recursion described by e.
func (e *LayoutError) InCycle(id types.TypeID) bool {
	return e != nil && e.Kind == LayoutErrRecursiveUnsized && slices.Contains(e.Cycle, id)
}
