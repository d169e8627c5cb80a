package enumimpl

import (
	"testing"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
	"enumgen/internal/ir/interp"
	"enumgen/internal/layout"
	"enumgen/internal/types"
)

type fixture struct {
	engine *layout.LayoutEngine
	types  *types.Interner
}

func newFixture() *fixture {
	in := types.NewInterner()
	return &fixture{engine: layout.New(layout.X86_64LinuxGNU(), in), types: in}
}

func (f *fixture) info(t *testing.T, id types.TypeID) layout.TypeInfo {
	t.Helper()
	ti, err := f.engine.TypeInfoOf(id)
	if err != nil {
		t.Fatalf("layout of %s: %v", f.types.Name(id), err)
	}
	return ti
}

// wideStruct has one more scalar than a loadable value may carry, with the
// reference last.
func (f *fixture) wideStruct(t *testing.T) layout.TypeInfo {
	t.Helper()
	b := f.types.Builtins()
	id := f.types.RegisterStruct("Wide")
	f.types.SetStructFields(id, []types.StructField{
		{Name: "a", Type: b.Int64},
		{Name: "b", Type: b.Int64},
		{Name: "c", Type: b.Int64},
		{Name: "d", Type: b.Int64},
		{Name: "owner", Type: b.Ref},
	})
	return f.info(t, id)
}

func enumDecl(name string, cases ...CaseDecl) EnumDecl {
	return EnumDecl{Name: name, Cases: cases, Target: layout.X86_64LinuxGNU()}
}

func payloadCase(name string, ti layout.TypeInfo) CaseDecl {
	return CaseDecl{Name: name, Payload: ti}
}

func emptyCase(name string) CaseDecl {
	return CaseDecl{Name: name}
}

func mustSelect(t *testing.T, d EnumDecl) Strategy {
	t.Helper()
	s, err := SelectStrategy(d, Options{})
	if err != nil {
		t.Fatalf("select %s: %v", d.Name, err)
	}
	return s
}

func mustLoadable(t *testing.T, ti layout.TypeInfo) layout.LoadableTypeInfo {
	t.Helper()
	l, ok := layout.AsLoadable(ti)
	if !ok {
		t.Fatalf("%s is not loadable (kind %s)", ti.Name(), ti.Kind())
	}
	return l
}

func schemaTypes(schema []layout.Slot) []ir.Type {
	out := make([]ir.Type, 0, len(schema))
	for _, s := range schema {
		out = append(out, s.Type)
	}
	return out
}

func run(t *testing.T, m *interp.Machine, f *ir.Func, args ...bitvec.Bits) interp.Result {
	t.Helper()
	if err := f.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
	res, err := m.Run(f, args...)
	if err != nil {
		t.Fatalf("run %s: %v", f.Name, err)
	}
	return res
}

// inject builds case c from payload and returns the enum explosion.
func inject(t *testing.T, s Strategy, c int, payload ...bitvec.Bits) []bitvec.Bits {
	t.Helper()
	var params []ir.Type
	if p := s.Cases()[c].Payload; p != nil && !layout.IsEmpty(p) {
		params = schemaTypes(mustLoadable(t, p).Schema())
	}
	f := ir.NewFunc("inject", params...)
	b := ir.NewBuilder(f)
	b.Ret(s.EmitValueInjection(b, c, f.Params)...)
	return run(t, interp.New(), f, payload...).Values
}

func enumParams(t *testing.T, s Strategy) []ir.Type {
	t.Helper()
	return schemaTypes(mustLoadable(t, s.TypeInfo()).Schema())
}

// switchOn returns the index of the case block a switch over value reaches,
// or -1 for the default block.
func switchOn(t *testing.T, s Strategy, value []bitvec.Bits) int {
	t.Helper()
	f := ir.NewFunc("switch", enumParams(t, s)...)
	b := ir.NewBuilder(f)
	def := b.NewBlock("default")
	var dests []CaseDest
	for _, el := range s.Cases() {
		dests = append(dests, CaseDest{Case: el.Index, Block: b.NewBlock("case." + el.Name)})
	}
	s.EmitValueSwitch(b, f.Params, dests, def)
	for _, d := range dests {
		b.SetInsertPoint(d.Block)
		b.Ret(b.ConstInt(32, uint64(d.Case))) //nolint:gosec // G115: test indexes.
	}
	b.SetInsertPoint(def)
	b.Ret(b.ConstInt(32, 0xFFFF))
	got := run(t, interp.New(), f, value...).Values[0].Lo64()
	if got == 0xFFFF {
		return -1
	}
	return int(got) //nolint:gosec // G115: test indexes.
}

// switchAt is switchOn for an enum held in m's memory at addr.
func switchAt(t *testing.T, m *interp.Machine, s Strategy, addr uint64) int {
	t.Helper()
	f := ir.NewFunc("switch", ir.Ptr)
	b := ir.NewBuilder(f)
	def := b.NewBlock("default")
	var dests []CaseDest
	for _, el := range s.Cases() {
		dests = append(dests, CaseDest{Case: el.Index, Block: b.NewBlock("case." + el.Name)})
	}
	s.EmitIndirectSwitch(b, f.Params[0], dests, def)
	for _, d := range dests {
		b.SetInsertPoint(d.Block)
		b.Ret(b.ConstInt(32, uint64(d.Case))) //nolint:gosec // G115: test indexes.
	}
	b.SetInsertPoint(def)
	b.Ret(b.ConstInt(32, 0xFFFF))
	got := run(t, m, f, u64(64, addr)).Values[0].Lo64()
	if got == 0xFFFF {
		return -1
	}
	return int(got) //nolint:gosec // G115: test indexes.
}

// caseTest evaluates EmitValueCaseTest for case c.
func caseTest(t *testing.T, s Strategy, value []bitvec.Bits, c int) bool {
	t.Helper()
	f := ir.NewFunc("test", enumParams(t, s)...)
	b := ir.NewBuilder(f)
	b.Ret(s.EmitValueCaseTest(b, f.Params, c))
	return run(t, interp.New(), f, value...).Values[0].Bit(0)
}

func project(t *testing.T, s Strategy, c int, value []bitvec.Bits) []bitvec.Bits {
	t.Helper()
	f := ir.NewFunc("project", enumParams(t, s)...)
	b := ir.NewBuilder(f)
	b.Ret(s.EmitValueProjection(b, c, f.Params)...)
	return run(t, interp.New(), f, value...).Values
}

// flatten concatenates an explosion into the storage bit pattern.
func flatten(vals []bitvec.Bits) bitvec.Bits {
	out := bitvec.New(0)
	for _, v := range vals {
		out = out.Concat(v)
	}
	return out
}

func u64(width int, v uint64) bitvec.Bits { return bitvec.FromUint64(width, v) }
