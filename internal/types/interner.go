package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid    TypeID
	Unit       TypeID
	Bool       TypeID
	Int8       TypeID
	Int16      TypeID
	Int32      TypeID
	Int64      TypeID
	Uint8      TypeID
	Uint16     TypeID
	Uint32     TypeID
	Uint64     TypeID
	Float32    TypeID
	Float64    TypeID
	RawPointer TypeID
	Ref        TypeID
	UnknownRef TypeID
	String     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	enums    []EnumInfo
	names    []string
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.enums = append(in.enums, EnumInfo{})
	in.names = append(in.names, "")
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int8 = in.Intern(MakeInt(Width8))
	in.builtins.Int16 = in.Intern(MakeInt(Width16))
	in.builtins.Int32 = in.Intern(MakeInt(Width32))
	in.builtins.Int64 = in.Intern(MakeInt(Width64))
	in.builtins.Uint8 = in.Intern(MakeUint(Width8))
	in.builtins.Uint16 = in.Intern(MakeUint(Width16))
	in.builtins.Uint32 = in.Intern(MakeUint(Width32))
	in.builtins.Uint64 = in.Intern(MakeUint(Width64))
	in.builtins.Float32 = in.Intern(MakeFloat(Width32))
	in.builtins.Float64 = in.Intern(MakeFloat(Width64))
	in.builtins.RawPointer = in.Intern(Type{Kind: KindRawPointer})
	in.builtins.Ref = in.Intern(MakeRef(RefNative))
	in.builtins.UnknownRef = in.Intern(MakeRef(RefUnknown))
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := typeKey(t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Refs    RefCounting
	Payload uint32
}

// GenericParam registers an unresolved generic parameter. Its size is only
// known once the runtime instantiates it.
func (in *Interner) GenericParam(name string) TypeID {
	return in.internRaw(Type{Kind: KindGenericParam, Payload: addSlot(&in.names, name)})
}

// Resilient registers a type whose layout is owned by another module.
func (in *Interner) Resilient(name string) TypeID {
	return in.internRaw(Type{Kind: KindResilient, Payload: addSlot(&in.names, name)})
}

// Name returns the declared name of a nominal, generic or resilient type.
func (in *Interner) Name(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return ""
	}
	switch tt.Kind {
	case KindStruct:
		if info, ok := in.StructInfo(id); ok {
			return info.Name
		}
	case KindEnum:
		if info, ok := in.EnumInfo(id); ok {
			return info.Name
		}
	case KindGenericParam, KindResilient:
		if int(tt.Payload) < len(in.names) {
			return in.names[tt.Payload]
		}
	}
	return ""
}

// String renders a readable name for the type.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	switch tt.Kind {
	case KindInt:
		return fmt.Sprintf("Int%d", tt.Width)
	case KindUint:
		return fmt.Sprintf("UInt%d", tt.Width)
	case KindFloat:
		return fmt.Sprintf("Float%d", tt.Width)
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindRawPointer:
		return "RawPointer"
	case KindRef:
		if tt.Refs == RefUnknown {
			return "UnknownRef"
		}
		return "Ref"
	case KindString:
		return "String"
	case KindArray:
		return fmt.Sprintf("[%d]%s", tt.Count, in.String(tt.Elem))
	case KindResilient:
		return "resilient:" + in.Name(id)
	default:
		return in.Name(id)
	}
}

// Contains reports whether needle occurs in the structure of id, looking
// through struct fields, array elements and enum payloads.
func (in *Interner) Contains(id, needle TypeID) bool {
	seen := make(map[TypeID]struct{}, 8)
	var walk func(TypeID) bool
	walk = func(cur TypeID) bool {
		if cur == needle {
			return true
		}
		if _, ok := seen[cur]; ok {
			return false
		}
		seen[cur] = struct{}{}
		tt, ok := in.Lookup(cur)
		if !ok {
			return false
		}
		switch tt.Kind {
		case KindArray:
			return walk(tt.Elem)
		case KindStruct:
			for _, f := range in.StructFields(cur) {
				if walk(f.Type) {
					return true
				}
			}
		case KindEnum:
			if info, ok := in.EnumInfo(cur); ok {
				for _, c := range info.Cases {
					if c.Payload != NoTypeID && walk(c.Payload) {
						return true
					}
				}
			}
		}
		return false
	}
	return walk(id)
}

// Describe returns a one-line summary, used in diagnostics.
func (in *Interner) Describe(id TypeID) string {
	info, ok := in.EnumInfo(id)
	if !ok {
		return in.String(id)
	}
	parts := make([]string, 0, len(info.Cases))
	for _, c := range info.Cases {
		if c.Payload == NoTypeID {
			parts = append(parts, c.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", c.Name, in.String(c.Payload)))
	}
	return fmt.Sprintf("enum %s { %s }", info.Name, strings.Join(parts, ", "))
}
