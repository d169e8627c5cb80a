// Package enumimpl chooses the physical representation of enum types and
// emits the value operations that honour it.
//
// A strategy is selected once per enum by SelectStrategy and is immutable
// afterwards. It doubles as the enum's layout.TypeInfo, so an enum can be the
// payload of another enum, the field of a struct or the element of an array.
package enumimpl

import (
	"fmt"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// Variant names the layout strategy chosen for an enum.
type Variant uint8

const (
	VariantSingleton Variant = iota
	VariantNoPayload
	VariantCNoPayload
	VariantSinglePayload
	VariantMultiPayload
)

func (v Variant) String() string {
	switch v {
	case VariantSingleton:
		return "singleton"
	case VariantNoPayload:
		return "no-payload"
	case VariantCNoPayload:
		return "c-no-payload"
	case VariantSinglePayload:
		return "single-payload"
	case VariantMultiPayload:
		return "multi-payload"
	default:
		return fmt.Sprintf("Variant(%d)", v)
	}
}

// CopyDestroyKind is the value-semantics path selected for a payload enum.
type CopyDestroyKind uint8

const (
	CopyDestroyPOD CopyDestroyKind = iota
	CopyDestroyNormal
	CopyDestroyNullableNativeRefcounted
	CopyDestroyNullableUnknownRefcounted
	CopyDestroyTaggedNativeRefcounted
	CopyDestroyTaggedUnknownRefcounted
)

func (k CopyDestroyKind) String() string {
	switch k {
	case CopyDestroyPOD:
		return "pod"
	case CopyDestroyNormal:
		return "normal"
	case CopyDestroyNullableNativeRefcounted:
		return "nullable-native-refcounted"
	case CopyDestroyNullableUnknownRefcounted:
		return "nullable-unknown-refcounted"
	case CopyDestroyTaggedNativeRefcounted:
		return "tagged-native-refcounted"
	case CopyDestroyTaggedUnknownRefcounted:
		return "tagged-unknown-refcounted"
	default:
		return fmt.Sprintf("CopyDestroyKind(%d)", k)
	}
}

// Element is one case of an enum after bucketing.
type Element struct {
	Name  string
	Index int // declaration order
	// Payload is nil for a case without associated data.
	Payload     layout.TypeInfo
	RawValue    int64
	HasRawValue bool
}

// CaseDest routes one case of a switch to a block.
type CaseDest struct {
	Case  int
	Block *ir.Block
}

// Facts summarises the computed layout of an enum.
type Facts struct {
	Variant     Variant
	Kind        layout.Kind
	SizeClass   layout.SizeClass
	CopyDestroy CopyDestroyKind

	// Size, Align and Stride are zero for opaque enums.
	Size   int
	Align  int
	Stride int

	// PayloadBits is the width of the payload area; a singleton's whole
	// representation is its payload.
	PayloadBits  int
	ExtraTagBits int
	// TagBits is the discriminator width of a no-payload enum.
	TagBits int

	CommonSpareBits             bitvec.Bits
	PayloadTagBits              bitvec.Bits
	NumExtraInhabitantTagValues uint32
	ExtraInhabitantCount        uint32
}

// Strategy is the selected representation of one enum. Cases are addressed
// by their declaration index.
type Strategy interface {
	Variant() Variant
	Facts() Facts
	// TypeInfo exposes the enum as a payload-capable type. Its dynamic type
	// implements layout.FixedTypeInfo or layout.LoadableTypeInfo exactly when
	// its Kind allows.
	TypeInfo() layout.TypeInfo

	Cases() []Element
	ElementsWithPayload() []Element
	ElementsWithNoPayload() []Element

	// TagBitsForPayloads is the mask of storage bits that may hold tag
	// information; no-payload patterns never set a bit outside the storage.
	TagBitsForPayloads() bitvec.Bits
	// BitPatternForNoPayloadElement is the full storage pattern of an empty case.
	BitPatternForNoPayloadElement(c int) bitvec.Bits

	EmitValueInjection(b ir.Builder, c int, payload []*ir.Value) []*ir.Value
	EmitValueProjection(b ir.Builder, c int, value []*ir.Value) []*ir.Value
	EmitValueSwitch(b ir.Builder, value []*ir.Value, dests []CaseDest, def *ir.Block)
	EmitValueCaseTest(b ir.Builder, value []*ir.Value, c int) *ir.Value

	EmitIndirectSwitch(b ir.Builder, addr *ir.Value, dests []CaseDest, def *ir.Block)
	StoreTag(b ir.Builder, c int, addr *ir.Value)
	ProjectDataForStore(b ir.Builder, c int, addr *ir.Value) *ir.Value
	DestructiveProjectData(b ir.Builder, c int, addr *ir.Value) *ir.Value

	// InitializeMetadata completes a runtime-dependent layout; it emits
	// nothing for enums whose layout is known statically.
	InitializeMetadata(b ir.Builder, metadata *ir.Value)
}

// impl is what every concrete strategy provides: the strategy surface plus
// the full TypeInfo capability set. Wrappers narrow it by kind.
type impl interface {
	Strategy
	layout.LoadableTypeInfo
}

type opaqueEnumInfo struct{ layout.TypeInfo }
type fixedEnumInfo struct{ layout.FixedTypeInfo }
type loadableEnumInfo struct{ layout.LoadableTypeInfo }

func wrapTypeInfo(s impl) layout.TypeInfo {
	switch s.Kind() {
	case layout.Loadable:
		return loadableEnumInfo{s}
	case layout.Fixed:
		return fixedEnumInfo{s}
	default:
		return opaqueEnumInfo{s}
	}
}

// StrategyOf recovers the strategy behind an enum TypeInfo.
func StrategyOf(ti layout.TypeInfo) (Strategy, bool) {
	switch w := ti.(type) {
	case loadableEnumInfo:
		s, ok := w.LoadableTypeInfo.(Strategy)
		return s, ok
	case fixedEnumInfo:
		s, ok := w.FixedTypeInfo.(Strategy)
		return s, ok
	case opaqueEnumInfo:
		s, ok := w.TypeInfo.(Strategy)
		return s, ok
	default:
		return nil, false
	}
}
