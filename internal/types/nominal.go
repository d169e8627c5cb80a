package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// StructField is one stored field of a struct, in declaration order.
type StructField struct {
	Name string
	Type TypeID
}

type StructInfo struct {
	Name   string
	Fields []StructField
}

// EnumCase is one declared case of an enum. Declaration order is significant.
type EnumCase struct {
	Name    string
	Payload TypeID // NoTypeID for a case without associated data
	// RawValue is the literal of a case imported from C.
	RawValue    int64
	HasRawValue bool
}

// HasPayload reports whether the case declares associated data.
func (c EnumCase) HasPayload() bool { return c.Payload != NoTypeID }

type EnumInfo struct {
	Name  string
	Cases []EnumCase
	// ImportedC marks enums imported from a C header; CType is the
	// integer type their raw values are stored in.
	ImportedC bool
	CType     TypeID
}

// addSlot appends v to a side table and returns its index, which becomes
// the Payload of the nominal type. Index 0 is reserved.
func addSlot[T any](table *[]T, v T) uint32 {
	*table = append(*table, v)
	slot, err := safecast.Conv[uint32](len(*table) - 1)
	if err != nil {
		panic(fmt.Errorf("types: %T table overflow: %w", v, err))
	}
	return slot
}

// slotOf returns the side table entry of a nominal type of the given kind.
func slotOf[T any](in *Interner, id TypeID, kind Kind, table []T) *T {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != kind || tt.Payload == 0 || int(tt.Payload) >= len(table) {
		return nil
	}
	return &table[tt.Payload]
}

// RegisterStruct creates a nominal struct type without fields.
func (in *Interner) RegisterStruct(name string) TypeID {
	return in.internRaw(Type{Kind: KindStruct, Payload: addSlot(&in.structs, StructInfo{Name: name})})
}

// SetStructFields replaces the fields of a struct type.
func (in *Interner) SetStructFields(id TypeID, fields []StructField) {
	if info := slotOf(in, id, KindStruct, in.structs); info != nil {
		info.Fields = slices.Clone(fields)
	}
}

func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	info := slotOf(in, id, KindStruct, in.structs)
	return info, info != nil
}

// StructFields returns a copy of the fields of a struct type.
func (in *Interner) StructFields(id TypeID) []StructField {
	info := slotOf(in, id, KindStruct, in.structs)
	if info == nil || len(info.Fields) == 0 {
		return nil
	}
	return slices.Clone(info.Fields)
}

// RegisterEnum creates a nominal enum type without cases.
func (in *Interner) RegisterEnum(name string) TypeID {
	return in.internRaw(Type{Kind: KindEnum, Payload: addSlot(&in.enums, EnumInfo{Name: name})})
}

// SetEnumCases replaces the cases of an enum type.
func (in *Interner) SetEnumCases(id TypeID, cases []EnumCase) {
	if info := slotOf(in, id, KindEnum, in.enums); info != nil {
		info.Cases = slices.Clone(cases)
	}
}

// SetEnumImportedC marks the enum as imported from C with the given storage type.
func (in *Interner) SetEnumImportedC(id, cType TypeID) {
	if info := slotOf(in, id, KindEnum, in.enums); info != nil {
		info.ImportedC = true
		info.CType = cType
	}
}

// EnumInfo returns the metadata of an enum type.
func (in *Interner) EnumInfo(id TypeID) (*EnumInfo, bool) {
	info := slotOf(in, id, KindEnum, in.enums)
	return info, info != nil
}
