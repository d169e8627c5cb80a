package layout

import (
	"fortio.org/safecast"

	"enumgen/internal/types"
)

func (e *LayoutEngine) computeTypeInfo(id types.TypeID) (TypeInfo, error) {
	in := e.Types
	var tt types.Type
	ok := false
	if in != nil {
		tt, ok = in.Lookup(id)
	}
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case types.KindUnit:
		return newEmptyTypeInfo("Unit"), nil
	case types.KindBool:
		return newBoolTypeInfo(), nil
	case types.KindInt, types.KindUint, types.KindFloat:
		return newIntTypeInfo(in.String(id), int(tt.Width)/8), nil
	case types.KindRawPointer:
		return newRawPointerTypeInfo(e.Target), nil
	case types.KindRef:
		return newRefTypeInfo(e.Target, tt.Refs == types.RefUnknown), nil
	case types.KindString:
		// A string is a byte count plus a reference to its storage.
		b := in.Builtins()
		return e.structTypeInfo(id, "String", []types.StructField{
			{Name: "count", Type: b.Int64},
			{Name: "owner", Type: b.Ref},
		})
	case types.KindStruct:
		return e.structTypeInfo(id, in.Name(id), in.StructFields(id))
	case types.KindArray:
		return e.arrayTypeInfo(id, tt)
	case types.KindEnum:
		if e.Enums == nil {
			return nil, &LayoutError{Kind: LayoutErrNoEnumLowering, Type: id, Name: in.String(id)}
		}
		return e.Enums.LowerEnum(e, id)
	case types.KindGenericParam:
		return newOpaqueTypeInfo(in.Name(id), SizeDependent), nil
	case types.KindResilient:
		return newOpaqueTypeInfo(in.Name(id), SizeResilient), nil
	}
	return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
}

// roundUp rounds n up to a multiple of align.
func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func (e *LayoutEngine) structTypeInfo(id types.TypeID, name string, fields []types.StructField) (TypeInfo, error) {
	infos := make([]TypeInfo, len(fields))
	kind := Loadable
	for i, f := range fields {
		ti, err := e.TypeInfoOf(f.Type)
		if err != nil {
			return nil, err
		}
		infos[i] = ti
		kind = MinKind(kind, ti.Kind())
	}
	if kind == Opaque {
		return newOpaqueTypeInfo(name, e.ClassifyTypeSize(id)), nil
	}

	laid := make([]Field, len(fields))
	offset, align, scalars := 0, 1, 0
	for i, ti := range infos {
		fi, _ := AsFixed(ti)
		fa := max(fi.Align(), 1)
		offset = roundUp(offset, fa)
		laid[i] = Field{Name: fields[i].Name, Info: fi, Offset: offset}
		offset += fi.Size()
		align = max(align, fa)
		if l, ok := AsLoadable(ti); ok {
			scalars += len(l.Schema())
		}
	}

	// Aggregates with too many scalars are passed in memory.
	if limit := e.Target.MaxLoadableScalars; kind == Loadable && limit > 0 && scalars > limit {
		kind = Fixed
	}
	return newStructTypeInfo(name, laid, roundUp(offset, align), align, kind, e.Target), nil
}

func (e *LayoutEngine) arrayTypeInfo(id types.TypeID, tt types.Type) (TypeInfo, error) {
	elem, err := e.TypeInfoOf(tt.Elem)
	if err != nil {
		return nil, err
	}
	name := e.Types.String(id)
	fe, ok := AsFixed(elem)
	if !ok {
		return newOpaqueTypeInfo(name, e.ClassifyTypeSize(id)), nil
	}
	n, err := safecast.Conv[int](tt.Count)
	if err != nil {
		return nil, &LayoutError{Kind: LayoutErrLengthConversion, Type: id, Name: name, Err: err}
	}
	return newArrayTypeInfo(name, fe, n), nil
}
