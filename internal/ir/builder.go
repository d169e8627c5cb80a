package ir

import (
	"fmt"

	"enumgen/internal/bitvec"
)

// Builder is the instruction sink used by type lowering. Implementations
// append to a current insertion block; constant operands may be folded.
type Builder interface {
	Func() *Func
	InsertBlock() *Block
	NewBlock(name string) *Block
	SetInsertPoint(b *Block)

	Const(v bitvec.Bits) *Value
	ConstInt(bits int, v uint64) *Value
	NullPtr() *Value
	Global(name string) *Value

	And(a, b *Value) *Value
	Or(a, b *Value) *Value
	Xor(a, b *Value) *Value
	Add(a, b *Value) *Value
	Sub(a, b *Value) *Value
	Shl(v *Value, n int) *Value
	LShr(v *Value, n int) *Value
	Trunc(v *Value, bits int) *Value
	ZExt(v *Value, bits int) *Value
	ICmp(p Pred, a, b *Value) *Value
	Select(c, a, b *Value) *Value
	PtrToInt(v *Value, bits int) *Value
	IntToPtr(v *Value) *Value

	Load(t Type, addr *Value) *Value
	Store(v, addr *Value)
	GEP(addr *Value, offset int) *Value
	MemCpy(dst, src *Value, size int)
	Call(callee string, ret Type, args ...*Value) *Value
	Phi(t Type, incoming ...PhiIncoming) *Value

	Br(dest *Block)
	CondBr(c *Value, ifTrue, ifFalse *Block)
	Switch(v *Value, def *Block, cases ...SwitchCase)
	Ret(vals ...*Value)
	Unreachable()
}

// FuncBuilder appends instructions to a Func.
type FuncBuilder struct {
	fn  *Func
	cur *Block
}

var _ Builder = (*FuncBuilder)(nil)

// NewBuilder returns a builder positioned at the end of f's entry block.
func NewBuilder(f *Func) *FuncBuilder {
	return &FuncBuilder{fn: f, cur: f.Entry()}
}

func (fb *FuncBuilder) Func() *Func         { return fb.fn }
func (fb *FuncBuilder) InsertBlock() *Block { return fb.cur }

func (fb *FuncBuilder) NewBlock(name string) *Block { return fb.fn.newBlock(name) }

func (fb *FuncBuilder) SetInsertPoint(b *Block) { fb.cur = b }

func (fb *FuncBuilder) emit(in *Instr) *Instr {
	if fb.cur == nil {
		panic("ir: no insertion block")
	}
	if fb.cur.Terminator() != nil {
		panic(fmt.Sprintf("ir: emitting %s into terminated block %s", in.Op, fb.cur.Name))
	}
	fb.cur.Instrs = append(fb.cur.Instrs, in)
	return in
}

func (fb *FuncBuilder) Const(v bitvec.Bits) *Value {
	return &Value{Kind: ValueConst, Type: Int(v.Width()), Const: v}
}

func (fb *FuncBuilder) ConstInt(bits int, v uint64) *Value {
	return fb.Const(bitvec.FromUint64(bits, v))
}

func (fb *FuncBuilder) NullPtr() *Value {
	return &Value{Kind: ValueConst, Type: Ptr, Const: bitvec.New(64)}
}

func (fb *FuncBuilder) Global(name string) *Value {
	return &Value{Kind: ValueGlobal, Type: Ptr, Name: name}
}

func sameIntType(op Op, a, b *Value) {
	if !a.Type.IsInt() || a.Type != b.Type {
		panic(fmt.Sprintf("ir: %s operand types %s and %s differ", op, a.Type, b.Type))
	}
}

func (fb *FuncBuilder) binary(op Op, a, b *Value, fold func(x, y bitvec.Bits) bitvec.Bits) *Value {
	sameIntType(op, a, b)
	if a.IsConst() && b.IsConst() {
		return fb.Const(fold(a.Const, b.Const))
	}
	res := fb.fn.newValue(a.Type)
	fb.emit(&Instr{Op: op, Result: res, Args: []*Value{a, b}})
	return res
}

func (fb *FuncBuilder) And(a, b *Value) *Value {
	if b.IsConst() && b.Const.IsAllOnes() {
		sameIntType(OpAnd, a, b)
		return a
	}
	return fb.binary(OpAnd, a, b, bitvec.Bits.And)
}

func (fb *FuncBuilder) Or(a, b *Value) *Value {
	if b.IsConst() && b.Const.IsZero() {
		sameIntType(OpOr, a, b)
		return a
	}
	if a.IsConst() && a.Const.IsZero() {
		sameIntType(OpOr, a, b)
		return b
	}
	return fb.binary(OpOr, a, b, bitvec.Bits.Or)
}

func (fb *FuncBuilder) Xor(a, b *Value) *Value {
	return fb.binary(OpXor, a, b, bitvec.Bits.Xor)
}

func (fb *FuncBuilder) Add(a, b *Value) *Value {
	return fb.binary(OpAdd, a, b, addBits)
}

func (fb *FuncBuilder) Sub(a, b *Value) *Value {
	return fb.binary(OpSub, a, b, func(x, y bitvec.Bits) bitvec.Bits {
		return addBits(x, negBits(y))
	})
}

func (fb *FuncBuilder) shift(op Op, v *Value, n int) *Value {
	if !v.Type.IsInt() {
		panic(fmt.Sprintf("ir: %s of non-integer %s", op, v.Type))
	}
	if n == 0 {
		return v
	}
	if v.IsConst() {
		if op == OpShl {
			return fb.Const(v.Const.Shl(n))
		}
		return fb.Const(v.Const.LShr(n))
	}
	res := fb.fn.newValue(v.Type)
	fb.emit(&Instr{Op: op, Result: res, Args: []*Value{v}, Offset: n})
	return res
}

func (fb *FuncBuilder) Shl(v *Value, n int) *Value  { return fb.shift(OpShl, v, n) }
func (fb *FuncBuilder) LShr(v *Value, n int) *Value { return fb.shift(OpLShr, v, n) }

func (fb *FuncBuilder) Trunc(v *Value, bits int) *Value {
	if !v.Type.IsInt() || v.Type.Bits < bits {
		panic(fmt.Sprintf("ir: trunc %s to i%d", v.Type, bits))
	}
	if v.Type.Bits == bits {
		return v
	}
	if v.IsConst() {
		return fb.Const(v.Const.Trunc(bits))
	}
	res := fb.fn.newValue(Int(bits))
	fb.emit(&Instr{Op: OpTrunc, Result: res, Args: []*Value{v}, Type: Int(bits)})
	return res
}

func (fb *FuncBuilder) ZExt(v *Value, bits int) *Value {
	if !v.Type.IsInt() || v.Type.Bits > bits {
		panic(fmt.Sprintf("ir: zext %s to i%d", v.Type, bits))
	}
	if v.Type.Bits == bits {
		return v
	}
	if v.IsConst() {
		return fb.Const(v.Const.ZExt(bits))
	}
	res := fb.fn.newValue(Int(bits))
	fb.emit(&Instr{Op: OpZExt, Result: res, Args: []*Value{v}, Type: Int(bits)})
	return res
}

func (fb *FuncBuilder) ICmp(p Pred, a, b *Value) *Value {
	if a.Type != b.Type {
		panic(fmt.Sprintf("ir: icmp operand types %s and %s differ", a.Type, b.Type))
	}
	res := fb.fn.newValue(I1)
	fb.emit(&Instr{Op: OpICmp, Result: res, Args: []*Value{a, b}, Pred: p})
	return res
}

func (fb *FuncBuilder) Select(c, a, b *Value) *Value {
	if c.Type != I1 || a.Type != b.Type {
		panic("ir: malformed select")
	}
	res := fb.fn.newValue(a.Type)
	fb.emit(&Instr{Op: OpSelect, Result: res, Args: []*Value{c, a, b}})
	return res
}

func (fb *FuncBuilder) PtrToInt(v *Value, bits int) *Value {
	if !v.Type.IsPtr() {
		panic(fmt.Sprintf("ir: ptrtoint of %s", v.Type))
	}
	res := fb.fn.newValue(Int(bits))
	fb.emit(&Instr{Op: OpPtrToInt, Result: res, Args: []*Value{v}, Type: Int(bits)})
	return res
}

func (fb *FuncBuilder) IntToPtr(v *Value) *Value {
	if !v.Type.IsInt() {
		panic(fmt.Sprintf("ir: inttoptr of %s", v.Type))
	}
	res := fb.fn.newValue(Ptr)
	fb.emit(&Instr{Op: OpIntToPtr, Result: res, Args: []*Value{v}, Type: Ptr})
	return res
}

func (fb *FuncBuilder) Load(t Type, addr *Value) *Value {
	if !addr.Type.IsPtr() {
		panic(fmt.Sprintf("ir: load from %s", addr.Type))
	}
	res := fb.fn.newValue(t)
	fb.emit(&Instr{Op: OpLoad, Result: res, Args: []*Value{addr}, Type: t})
	return res
}

func (fb *FuncBuilder) Store(v, addr *Value) {
	if !addr.Type.IsPtr() {
		panic(fmt.Sprintf("ir: store to %s", addr.Type))
	}
	fb.emit(&Instr{Op: OpStore, Args: []*Value{v, addr}, Type: v.Type})
}

func (fb *FuncBuilder) GEP(addr *Value, offset int) *Value {
	if offset == 0 {
		return addr
	}
	res := fb.fn.newValue(Ptr)
	fb.emit(&Instr{Op: OpGEP, Result: res, Args: []*Value{addr}, Offset: offset})
	return res
}

func (fb *FuncBuilder) MemCpy(dst, src *Value, size int) {
	if size == 0 {
		return
	}
	fb.emit(&Instr{Op: OpMemCpy, Args: []*Value{dst, src}, Offset: size})
}

func (fb *FuncBuilder) Call(callee string, ret Type, args ...*Value) *Value {
	in := &Instr{Op: OpCall, Callee: callee, Args: args, Type: ret}
	if ret.Kind != TypeVoid {
		in.Result = fb.fn.newValue(ret)
	}
	fb.emit(in)
	return in.Result
}

func (fb *FuncBuilder) Phi(t Type, incoming ...PhiIncoming) *Value {
	res := fb.fn.newValue(t)
	fb.emit(&Instr{Op: OpPhi, Result: res, Type: t, Incoming: incoming})
	return res
}

func (fb *FuncBuilder) Br(dest *Block) {
	fb.emit(&Instr{Op: OpBr, Targets: []*Block{dest}})
}

func (fb *FuncBuilder) CondBr(c *Value, ifTrue, ifFalse *Block) {
	if c.Type != I1 {
		panic(fmt.Sprintf("ir: condbr on %s", c.Type))
	}
	fb.emit(&Instr{Op: OpCondBr, Args: []*Value{c}, Targets: []*Block{ifTrue, ifFalse}})
}

func (fb *FuncBuilder) Switch(v *Value, def *Block, cases ...SwitchCase) {
	for _, c := range cases {
		if c.Value.Width() != v.Type.Bits {
			panic(fmt.Sprintf("ir: switch case i%d on %s", c.Value.Width(), v.Type))
		}
	}
	fb.emit(&Instr{Op: OpSwitch, Args: []*Value{v}, Targets: []*Block{def}, Cases: cases})
}

func (fb *FuncBuilder) Ret(vals ...*Value) {
	fb.emit(&Instr{Op: OpRet, Args: vals})
}

func (fb *FuncBuilder) Unreachable() {
	fb.emit(&Instr{Op: OpUnreachable})
}

func addBits(x, y bitvec.Bits) bitvec.Bits {
	w := x.Width()
	out := bitvec.New(w)
	carry := false
	for i := 0; i < w; i++ {
		a, b := x.Bit(i), y.Bit(i)
		sum := a != b != carry
		carry = (a && b) || (carry && (a != b))
		if sum {
			out = out.WithBit(i, true)
		}
	}
	return out
}

func negBits(x bitvec.Bits) bitvec.Bits {
	return addBits(x.Not(), bitvec.FromUint64(x.Width(), 1))
}

// AddBits returns x + y modulo 2^width.
func AddBits(x, y bitvec.Bits) bitvec.Bits { return addBits(x, y) }

// SubBits returns x - y modulo 2^width.
func SubBits(x, y bitvec.Bits) bitvec.Bits { return addBits(x, negBits(y)) }
