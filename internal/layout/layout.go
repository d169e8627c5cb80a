package layout

import (
	"errors"
	"fmt"
	"slices"

	"enumgen/internal/types"
)

// EnumLowering converts enum types. The engine defers every KindEnum type to
// it and caches the result like any other TypeInfo.
type EnumLowering interface {
	LowerEnum(e *LayoutEngine, id types.TypeID) (TypeInfo, error)
}

// LayoutEngine computes TypeInfos for types. Results, errors included, are
// memoized per type.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner
	Enums  EnumLowering

	memo map[types.TypeID]memoEntry
	// active maps each type under computation to its depth in stack.
	active map[types.TypeID]int
	stack  []types.TypeID
}

type memoEntry struct {
	info TypeInfo
	err  error
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	e := &LayoutEngine{Target: target, Types: typesIn}
	e.init()
	return e
}

func (e *LayoutEngine) init() {
	if e.memo == nil {
		e.memo = make(map[types.TypeID]memoEntry, 256)
	}
	if e.active == nil {
		e.active = make(map[types.TypeID]int, 32)
	}
}

// TypeInfoOf computes and memoizes the TypeInfo of a type. A type that is
// reached again while it is still being computed yields a
// LayoutErrRecursiveUnsized error carrying the cycle.
func (e *LayoutEngine) TypeInfoOf(t types.TypeID) (TypeInfo, error) {
	if e == nil {
		return nil, errors.New("layout: nil engine")
	}
	e.init()
	if m, ok := e.memo[t]; ok {
		return m.info, m.err
	}
	if depth, ok := e.active[t]; ok {
		return nil, e.cycleError(t, depth)
	}

	e.active[t] = len(e.stack)
	e.stack = append(e.stack, t)
	info, err := e.computeTypeInfo(t)
	e.stack = e.stack[:len(e.stack)-1]
	delete(e.active, t)

	e.memo[t] = memoEntry{info: info, err: err}
	return info, err
}

func (e *LayoutEngine) cycleError(t types.TypeID, depth int) *LayoutError {
	cycle := append(slices.Clone(e.stack[depth:]), t)
	names := make([]string, len(cycle))
	for i, id := range cycle {
		names[i] = e.Types.String(id)
	}
	return &LayoutError{
		Kind:  LayoutErrRecursiveUnsized,
		Type:  t,
		Name:  e.Types.String(t),
		Cycle: cycle,
		Names: names,
	}
}

// InProgress reports whether t is currently being computed further up the stack.
func (e *LayoutEngine) InProgress(t types.TypeID) bool {
	if e == nil {
		return false
	}
	_, ok := e.active[t]
	return ok
}

// Cached returns how many types have a memoized result.
func (e *LayoutEngine) Cached() int { return len(e.memo) }

// FixedTypeInfoOf is TypeInfoOf for callers that need a compile-time layout.
func (e *LayoutEngine) FixedTypeInfoOf(t types.TypeID) (FixedTypeInfo, error) {
	ti, err := e.TypeInfoOf(t)
	if err != nil {
		return nil, err
	}
	f, ok := AsFixed(ti)
	if !ok {
		return nil, fmt.Errorf("%s has no compile-time layout (%s)", ti.Name(), ti.SizeClass())
	}
	return f, nil
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	f, err := e.FixedTypeInfoOf(t)
	if err != nil {
		return 0, err
	}
	return f.Size(), nil
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	f, err := e.FixedTypeInfoOf(t)
	if err != nil {
		return 0, err
	}
	return f.Align(), nil
}

// FieldOffset returns the byte offset of a struct field.
func (e *LayoutEngine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	ti, err := e.TypeInfoOf(structT)
	if err != nil {
		return 0, err
	}
	s, ok := ti.(*structTypeInfo)
	if !ok || fieldIdx < 0 || fieldIdx >= len(s.fields) {
		return 0, nil
	}
	return s.fields[fieldIdx].Offset, nil
}
