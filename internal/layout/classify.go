package layout

import "enumgen/internal/types"

// ClassifyTypeSize reports whether id has a size fixed in this compilation
// unit, one owned by another module, or one that depends on a generic
// parameter. A generic dependency outranks resilience.
func (e *LayoutEngine) ClassifyTypeSize(id types.TypeID) SizeClass {
	return ClassifyTypeSize(e.Types, id)
}

// ClassifyTypeSize classifies id by walking its structure in typesIn.
func ClassifyTypeSize(typesIn *types.Interner, id types.TypeID) SizeClass {
	class := SizeFixed
	seen := make(map[types.TypeID]struct{}, 8)
	var walk func(types.TypeID)
	walk = func(cur types.TypeID) {
		if class == SizeDependent {
			return
		}
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}
		tt, ok := typesIn.Lookup(cur)
		if !ok {
			return
		}
		switch tt.Kind {
		case types.KindGenericParam:
			class = SizeDependent
		case types.KindResilient:
			class = SizeResilient
		case types.KindArray:
			walk(tt.Elem)
		case types.KindStruct:
			for _, f := range typesIn.StructFields(cur) {
				walk(f.Type)
			}
		case types.KindEnum:
			if info, ok := typesIn.EnumInfo(cur); ok {
				for _, c := range info.Cases {
					if c.Payload != types.NoTypeID {
						walk(c.Payload)
					}
				}
			}
		}
	}
	walk(id)
	return class
}
