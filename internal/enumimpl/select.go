package enumimpl

import (
	"fmt"

	"enumgen/internal/layout"
)

// CaseDecl is a declared case as handed over by the type converter.
type CaseDecl struct {
	Name string
	// Payload is nil for a case without associated data.
	Payload layout.TypeInfo
	// Recursive marks a payload whose layout is still being computed because
	// it contains the enum itself.
	Recursive   bool
	RawValue    int64
	HasRawValue bool
}

// EnumDecl is the input of SelectStrategy.
type EnumDecl struct {
	Name      string
	Cases     []CaseDecl
	ImportedC bool
	// CType is the integer storage type of a C-imported enum.
	CType  layout.FixedTypeInfo
	Target layout.Target
}

// Options tune strategy selection.
type Options struct {
	// AllowNonFixedMultiPayload lets multi-payload enums with runtime-sized
	// payloads be completed by the runtime instead of being rejected.
	AllowNonFixedMultiPayload bool
}

// buckets partitions a case list exactly.
type buckets struct {
	all       []Element
	payload   []Element
	noPayload []Element
	recursive []Element
	kind      layout.Kind
	class     layout.SizeClass
}

func bucketCases(d EnumDecl) buckets {
	bk := buckets{kind: layout.Loadable, class: layout.SizeFixed}
	for i, c := range d.Cases {
		el := Element{Name: c.Name, Index: i, Payload: c.Payload, RawValue: c.RawValue, HasRawValue: c.HasRawValue}
		bk.all = append(bk.all, el)
		switch {
		case c.Recursive:
			bk.recursive = append(bk.recursive, el)
		case c.Payload == nil || layout.IsEmpty(c.Payload):
			bk.noPayload = append(bk.noPayload, el)
		default:
			bk.payload = append(bk.payload, el)
			bk.kind = layout.MinKind(bk.kind, c.Payload.Kind())
			if cl := c.Payload.SizeClass(); cl > bk.class {
				bk.class = cl
			}
		}
	}
	return bk
}

// SelectStrategy inspects the case list of d and builds the strategy that
// lays it out. Unsupported constructs are reported as *UnsupportedError.
func SelectStrategy(d EnumDecl, opts Options) (Strategy, error) {
	bk := bucketCases(d)
	if len(bk.recursive) > 0 {
		return nil, &UnsupportedError{
			Kind:   UnsupportedRecursivePayload,
			Enum:   d.Name,
			Case:   bk.recursive[0].Name,
			Detail: "indirect storage for recursive cases is not implemented",
		}
	}
	if len(bk.all) != len(bk.payload)+len(bk.noPayload) {
		panic(fmt.Sprintf("enumimpl: %s: buckets do not partition the case list", d.Name))
	}

	var s impl
	var err error
	switch {
	case d.ImportedC:
		s, err = newCNoPayload(d, bk)
	case len(bk.all) <= 1:
		s = newSingleton(d, bk)
	case len(bk.payload) >= 2:
		s, err = newMultiPayload(d, bk, opts)
	case len(bk.payload) == 1:
		s = newSinglePayload(d, bk)
	default:
		s = newNoPayload(d, bk)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
