// Package ir is the abstract instruction stream targeted by the enum code
// generators: scalar integer and pointer values, loads and stores against
// byte addresses, runtime calls, and block-structured control flow.
package ir

import (
	"fmt"

	"enumgen/internal/bitvec"
)

// ValueKind tells where a value comes from.
type ValueKind uint8

const (
	ValueInstr ValueKind = iota
	ValueParam
	ValueConst
	ValueGlobal
)

// Value is an SSA value.
type Value struct {
	Kind  ValueKind
	ID    int
	Type  Type
	Const bitvec.Bits // ValueConst only
	Name  string      // ValueGlobal symbol or parameter name
}

// IsConst reports whether v is a compile-time constant.
func (v *Value) IsConst() bool { return v != nil && v.Kind == ValueConst }

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case ValueConst:
		if v.Type.IsPtr() {
			if v.Const.IsZero() {
				return "null"
			}
			return "inttoptr (i64 " + v.Const.Hex() + " to ptr)"
		}
		if u, ok := v.Const.Uint64(); ok {
			return fmt.Sprintf("%d", u)
		}
		return v.Const.Hex()
	case ValueGlobal:
		return "@" + v.Name
	case ValueParam:
		return "%" + v.Name
	default:
		return fmt.Sprintf("%%t%d", v.ID)
	}
}

// Op enumerates instruction opcodes.
type Op uint8

const (
	OpAnd Op = iota + 1
	OpOr
	OpXor
	OpAdd
	OpSub
	OpShl
	OpLShr
	OpTrunc
	OpZExt
	OpICmp
	OpSelect
	OpPtrToInt
	OpIntToPtr
	OpLoad
	OpStore
	OpGEP
	OpMemCpy
	OpCall
	OpPhi

	// terminators
	OpBr
	OpCondBr
	OpSwitch
	OpRet
	OpUnreachable
)

var opNames = map[Op]string{
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpAdd: "add", OpSub: "sub",
	OpShl: "shl", OpLShr: "lshr", OpTrunc: "trunc", OpZExt: "zext",
	OpICmp: "icmp", OpSelect: "select", OpPtrToInt: "ptrtoint", OpIntToPtr: "inttoptr",
	OpLoad: "load", OpStore: "store", OpGEP: "getelementptr", OpMemCpy: "memcpy",
	OpCall: "call", OpPhi: "phi", OpBr: "br", OpCondBr: "br", OpSwitch: "switch",
	OpRet: "ret", OpUnreachable: "unreachable",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", o)
}

// IsTerminator reports whether o ends a block.
func (o Op) IsTerminator() bool {
	return o >= OpBr
}

// SwitchCase is one arm of a switch terminator.
type SwitchCase struct {
	Value bitvec.Bits
	Dest  *Block
}

// PhiIncoming is one incoming edge of a phi.
type PhiIncoming struct {
	Value *Value
	From  *Block
}

// Instr is a single instruction.
type Instr struct {
	Op       Op
	Result   *Value
	Args     []*Value
	Pred     Pred
	Type     Type   // loaded type / cast target
	Offset   int    // GEP byte offset, memcpy size
	Callee   string // OpCall
	Targets  []*Block
	Cases    []SwitchCase
	Incoming []PhiIncoming
}

// Block is a basic block.
type Block struct {
	Name   string
	Instrs []*Instr
}

// Terminator returns the last instruction if it is a terminator.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Func is a unit of emitted code.
type Func struct {
	Name   string
	Params []*Value
	Blocks []*Block

	nextID    int
	blockName map[string]int
}

// NewFunc creates a function with the given parameter types and an entry block.
func NewFunc(name string, params ...Type) *Func {
	f := &Func{Name: name, blockName: make(map[string]int)}
	for i, t := range params {
		f.Params = append(f.Params, &Value{Kind: ValueParam, ID: i, Type: t, Name: fmt.Sprintf("p%d", i)})
	}
	f.newBlock("entry")
	return f
}

// Entry returns the entry block.
func (f *Func) Entry() *Block { return f.Blocks[0] }

func (f *Func) newBlock(name string) *Block {
	n := f.blockName[name]
	f.blockName[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s.%d", name, n)
	}
	b := &Block{Name: name}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Func) newValue(t Type) *Value {
	f.nextID++
	return &Value{Kind: ValueInstr, ID: f.nextID, Type: t}
}

// Verify checks that every block ends with exactly one terminator.
func (f *Func) Verify() error {
	for _, b := range f.Blocks {
		if b.Terminator() == nil {
			return fmt.Errorf("ir: block %s in %s is not terminated", b.Name, f.Name)
		}
		for i, in := range b.Instrs[:len(b.Instrs)-1] {
			if in.Op.IsTerminator() {
				return fmt.Errorf("ir: terminator %s at %s[%d] is not last", in.Op, b.Name, i)
			}
		}
	}
	return nil
}
