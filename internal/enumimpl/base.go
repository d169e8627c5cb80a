package enumimpl

import (
	"fmt"

	"enumgen/internal/ir"
	"enumgen/internal/layout"
)

// enumBase carries what every strategy knows about its declaration.
type enumBase struct {
	name   string
	target layout.Target
	bk     buckets
}

func newEnumBase(d EnumDecl, bk buckets) enumBase {
	return enumBase{name: d.Name, target: d.Target, bk: bk}
}

func (e *enumBase) Name() string                     { return e.name }
func (e *enumBase) SizeClass() layout.SizeClass      { return e.bk.class }
func (e *enumBase) Cases() []Element                 { return e.bk.all }
func (e *enumBase) ElementsWithPayload() []Element   { return e.bk.payload }
func (e *enumBase) ElementsWithNoPayload() []Element { return e.bk.noPayload }

func (e *enumBase) Metadata(b ir.Builder) *ir.Value {
	return b.Global("md." + e.name)
}

func (e *enumBase) element(c int) Element {
	if c < 0 || c >= len(e.bk.all) {
		panic(fmt.Sprintf("enumimpl: %s has no case #%d", e.name, c))
	}
	return e.bk.all[c]
}

// emptyIndex returns the position of case c among the no-payload cases.
func (e *enumBase) emptyIndex(c int) int {
	for i, el := range e.bk.noPayload {
		if el.Index == c {
			return i
		}
	}
	return -1
}

// payloadIndex returns the position of case c among the payload cases.
func (e *enumBase) payloadIndex(c int) int {
	for i, el := range e.bk.payload {
		if el.Index == c {
			return i
		}
	}
	return -1
}

func (e *enumBase) notLoadable(op string) {
	panic(fmt.Sprintf("enumimpl: %s on address-only enum %s", op, e.name))
}

func destMap(dests []CaseDest) map[int]*ir.Block {
	m := make(map[int]*ir.Block, len(dests))
	for _, d := range dests {
		if _, dup := m[d.Case]; !dup {
			m[d.Case] = d.Block
		}
	}
	return m
}

// resolveDefault returns def, or a trapping block when the switch has none.
func resolveDefault(b ir.Builder, def *ir.Block) *ir.Block {
	if def != nil {
		return def
	}
	cur := b.InsertBlock()
	blk := b.NewBlock("unreachable")
	b.SetInsertPoint(blk)
	b.Unreachable()
	b.SetInsertPoint(cur)
	return blk
}

// target of case c in dests, falling back to def.
func caseTarget(m map[int]*ir.Block, c int, def *ir.Block) *ir.Block {
	if blk, ok := m[c]; ok {
		return blk
	}
	return def
}

// andAll folds a list of i1 conditions; an empty list is true.
func andAll(b ir.Builder, conds []*ir.Value) *ir.Value {
	if len(conds) == 0 {
		return b.ConstInt(1, 1)
	}
	acc := conds[0]
	for _, c := range conds[1:] {
		acc = b.And(acc, c)
	}
	return acc
}

// emitIf runs body in a new block when cond holds and continues in a join block.
func emitIf(b ir.Builder, cond *ir.Value, name string, body func()) {
	then := b.NewBlock(name)
	cont := b.NewBlock(name + ".cont")
	b.CondBr(cond, then, cont)
	b.SetInsertPoint(then)
	body()
	b.Br(cont)
	b.SetInsertPoint(cont)
}

// emitIfElse is emitIf with an alternative branch.
func emitIfElse(b ir.Builder, cond *ir.Value, name string, then, els func()) {
	tb := b.NewBlock(name)
	eb := b.NewBlock(name + ".else")
	cont := b.NewBlock(name + ".cont")
	b.CondBr(cond, tb, eb)
	b.SetInsertPoint(tb)
	then()
	b.Br(cont)
	b.SetInsertPoint(eb)
	els()
	b.Br(cont)
	b.SetInsertPoint(cont)
}

// emitUnlessSame skips body when dst and src are the same address.
func emitUnlessSame(b ir.Builder, dst, src *ir.Value, ptrBits int, body func()) {
	distinct := b.ICmp(ir.PredNE, b.PtrToInt(dst, ptrBits), b.PtrToInt(src, ptrBits))
	emitIf(b, distinct, "assign", body)
}
