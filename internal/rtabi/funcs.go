// Package rtabi names the runtime entry points that emitted enum code calls.
package rtabi

import "enumgen/internal/ir"

// Reference counting
const (
	FnRetain         = "rt_retain"
	FnRelease        = "rt_release"
	FnUnknownRetain  = "rt_unknown_retain"
	FnUnknownRelease = "rt_unknown_release"
)

// Value witnesses for types whose layout is only known to the runtime.
// All take the type metadata as their last argument.
const (
	FnVWInitializeWithCopy    = "rt_vw_initialize_with_copy"
	FnVWInitializeWithTake    = "rt_vw_initialize_with_take"
	FnVWAssignWithCopy        = "rt_vw_assign_with_copy"
	FnVWAssignWithTake        = "rt_vw_assign_with_take"
	FnVWDestroy               = "rt_vw_destroy"
	FnVWGetExtraInhabitantIdx = "rt_vw_get_extra_inhabitant_index"
	FnVWStoreExtraInhabitant  = "rt_vw_store_extra_inhabitant"
	FnVWExtraInhabitantCount  = "rt_vw_extra_inhabitant_count"
	FnVWSize                  = "rt_vw_size"
)

// Runtime-completed enum layouts.
const (
	FnEnumInitSinglePayload     = "rt_enum_init_single_payload_layout"
	FnEnumGetCaseSinglePayload  = "rt_enum_get_case_single_payload"
	FnEnumStoreTagSinglePayload = "rt_enum_store_tag_single_payload"
	FnEnumInitMultiPayload      = "rt_enum_init_multi_payload_layout"
	FnEnumGetCaseMultiPayload   = "rt_enum_get_case_multi_payload"
	FnEnumStoreTagMultiPayload  = "rt_enum_store_tag_multi_payload"
)

// FuncSignature describes a runtime function for declaration emission.
type FuncSignature struct {
	Name       string
	ReturnType ir.Type
	ParamTypes []ir.Type
}

// RuntimeFunctions returns the signatures of every runtime entry point.
func RuntimeFunctions() []FuncSignature {
	p, i32 := ir.Ptr, ir.I32
	return []FuncSignature{
		{Name: FnRetain, ReturnType: ir.Void, ParamTypes: []ir.Type{p}},
		{Name: FnRelease, ReturnType: ir.Void, ParamTypes: []ir.Type{p}},
		{Name: FnUnknownRetain, ReturnType: ir.Void, ParamTypes: []ir.Type{p}},
		{Name: FnUnknownRelease, ReturnType: ir.Void, ParamTypes: []ir.Type{p}},

		{Name: FnVWInitializeWithCopy, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p, p}},
		{Name: FnVWInitializeWithTake, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p, p}},
		{Name: FnVWAssignWithCopy, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p, p}},
		{Name: FnVWAssignWithTake, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p, p}},
		{Name: FnVWDestroy, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p}},
		{Name: FnVWGetExtraInhabitantIdx, ReturnType: i32, ParamTypes: []ir.Type{p, p}},
		{Name: FnVWStoreExtraInhabitant, ReturnType: ir.Void, ParamTypes: []ir.Type{p, i32, p}},
		{Name: FnVWExtraInhabitantCount, ReturnType: i32, ParamTypes: []ir.Type{p}},
		{Name: FnVWSize, ReturnType: ir.Int(64), ParamTypes: []ir.Type{p}},

		{Name: FnEnumInitSinglePayload, ReturnType: ir.Void, ParamTypes: []ir.Type{p, p, i32}},
		{Name: FnEnumGetCaseSinglePayload, ReturnType: i32, ParamTypes: []ir.Type{p, p, i32}},
		{Name: FnEnumStoreTagSinglePayload, ReturnType: ir.Void, ParamTypes: []ir.Type{p, i32, p, i32}},
		{Name: FnEnumInitMultiPayload, ReturnType: ir.Void, ParamTypes: []ir.Type{p, i32, p}},
		{Name: FnEnumGetCaseMultiPayload, ReturnType: i32, ParamTypes: []ir.Type{p, p}},
		{Name: FnEnumStoreTagMultiPayload, ReturnType: ir.Void, ParamTypes: []ir.Type{p, i32, p}},
	}
}

// Retain returns the retain entry point for the given reference style.
func Retain(unknown bool) string {
	if unknown {
		return FnUnknownRetain
	}
	return FnRetain
}

// Release returns the release entry point for the given reference style.
func Release(unknown bool) string {
	if unknown {
		return FnUnknownRelease
	}
	return FnRelease
}
