package driver

import (
	"fmt"
	"strings"

	"enumgen/internal/enumimpl"
	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// Op names a value operation that can be emitted for an enum.
type Op string

const (
	OpCopy         Op = "copy"
	OpDestroy      Op = "destroy"
	OpSwitch       Op = "switch"
	OpInject       Op = "inject"
	OpProject      Op = "project"
	OpPack         Op = "pack"
	OpUnpack       Op = "unpack"
	OpInitMetadata Op = "init-metadata"
)

// Ops lists every operation accepted by Emit.
var Ops = []Op{OpCopy, OpDestroy, OpSwitch, OpInject, OpProject, OpPack, OpUnpack, OpInitMetadata}

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	for _, op := range Ops {
		if string(op) == strings.ToLower(s) {
			return op, nil
		}
	}
	names := make([]string, len(Ops))
	for i, op := range Ops {
		names[i] = string(op)
	}
	return "", fmt.Errorf("unknown operation %q (expected %s)", s, strings.Join(names, "|"))
}

// EmitRequest selects the code to emit for one enum.
type EmitRequest struct {
	Op Op
	// Case names the case of inject and project; the first matching case
	// kind is used when empty.
	Case string
}

// Emit builds a function performing req over s. Memory operations take
// addresses; pack and unpack work on the explosion of a loadable enum.
func Emit(s enumimpl.Strategy, req EmitRequest) (*ir.Func, error) {
	ti := s.TypeInfo()
	name := fmt.Sprintf("%s.%s", ti.Name(), req.Op)

	var f *ir.Func
	switch req.Op {
	case OpCopy:
		f = ir.NewFunc(name, ir.Ptr, ir.Ptr)
		b := ir.NewBuilder(f)
		ti.InitializeWithCopy(b, f.Params[0], f.Params[1])
		b.Ret()

	case OpDestroy:
		f = ir.NewFunc(name, ir.Ptr)
		b := ir.NewBuilder(f)
		ti.Destroy(b, f.Params[0])
		b.Ret()

	case OpSwitch:
		f = ir.NewFunc(name, ir.Ptr)
		b := ir.NewBuilder(f)
		entry := b.InsertBlock()
		dests := make([]enumimpl.CaseDest, 0, len(s.Cases()))
		for _, el := range s.Cases() {
			blk := b.NewBlock("case." + el.Name)
			b.SetInsertPoint(blk)
			b.Ret(b.ConstInt(32, uint64(el.Index))) //nolint:gosec // G115: case indexes are non-negative.
			dests = append(dests, enumimpl.CaseDest{Case: el.Index, Block: blk})
		}
		b.SetInsertPoint(entry)
		s.EmitIndirectSwitch(b, f.Params[0], dests, nil)

	case OpInject:
		el, err := pickCase(s, req.Case, true)
		if err != nil {
			return nil, err
		}
		stored := storesPayload(el)
		if stored {
			f = ir.NewFunc(name+"."+el.Name, ir.Ptr, ir.Ptr)
		} else {
			f = ir.NewFunc(name+"."+el.Name, ir.Ptr)
		}
		b := ir.NewBuilder(f)
		if stored {
			data := s.ProjectDataForStore(b, el.Index, f.Params[0])
			el.Payload.InitializeWithTake(b, data, f.Params[1])
		}
		s.StoreTag(b, el.Index, f.Params[0])
		b.Ret()

	case OpProject:
		el, err := pickCase(s, req.Case, false)
		if err != nil {
			return nil, err
		}
		if el.Payload == nil {
			return nil, fmt.Errorf("%s.%s carries no payload to project", ti.Name(), el.Name)
		}
		f = ir.NewFunc(name+"."+el.Name, ir.Ptr)
		b := ir.NewBuilder(f)
		b.Ret(s.DestructiveProjectData(b, el.Index, f.Params[0]))

	case OpPack, OpUnpack:
		l, ok := layout.AsLoadable(ti)
		if !ok {
			return nil, fmt.Errorf("%s has a %s layout; %s needs a loadable enum", ti.Name(), ti.Kind(), req.Op)
		}
		width := l.Size() * 8
		if width == 0 {
			return nil, fmt.Errorf("%s is zero-sized; there is nothing to %s", ti.Name(), req.Op)
		}
		schema := l.Schema()
		if req.Op == OpPack {
			params := make([]ir.Type, len(schema))
			for i, slot := range schema {
				params[i] = slot.Type
			}
			f = ir.NewFunc(name, params...)
			b := ir.NewBuilder(f)
			b.Ret(l.PackIntoEnumPayload(b, f.Params, width, 0))
		} else {
			f = ir.NewFunc(name, ir.Int(width))
			b := ir.NewBuilder(f)
			b.Ret(l.UnpackFromEnumPayload(b, f.Params[0], 0)...)
		}

	case OpInitMetadata:
		f = ir.NewFunc(name, ir.Ptr)
		b := ir.NewBuilder(f)
		s.InitializeMetadata(b, f.Params[0])
		b.Ret()

	default:
		return nil, fmt.Errorf("unknown operation %q", req.Op)
	}

	if err := f.Verify(); err != nil {
		return nil, err
	}
	return f, nil
}

// storesPayload reports whether injecting el writes payload bytes. A
// zero-sized payload is laid out like a case without one.
func storesPayload(el enumimpl.Element) bool {
	return el.Payload != nil && !layout.IsEmpty(el.Payload)
}

// pickCase finds the case called name, or the first case of the enum. For
// project without a name the first payload case is preferred.
func pickCase(s enumimpl.Strategy, name string, inject bool) (enumimpl.Element, error) {
	cases := s.Cases()
	if len(cases) == 0 {
		return enumimpl.Element{}, fmt.Errorf("%s has no cases", s.TypeInfo().Name())
	}
	if name == "" {
		if !inject {
			for _, el := range cases {
				if el.Payload != nil {
					return el, nil
				}
			}
		}
		return cases[0], nil
	}
	for _, el := range cases {
		if el.Name == name {
			return el, nil
		}
	}
	return enumimpl.Element{}, fmt.Errorf("%s has no case %q", s.TypeInfo().Name(), name)
}
