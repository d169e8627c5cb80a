package ir

import (
	"fmt"
	"strings"
)

func typed(v *Value) string {
	return v.Type.String() + " " + v.String()
}

// String renders the function in an LLVM-flavoured text form.
func (f *Func) String() string {
	var buf strings.Builder
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, typed(p))
	}
	fmt.Fprintf(&buf, "define @%s(%s) {\n", f.Name, strings.Join(params, ", "))
	for i, b := range f.Blocks {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s:\n", b.Name)
		for _, in := range b.Instrs {
			buf.WriteString("  ")
			writeInstr(&buf, in)
			buf.WriteString("\n")
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func writeInstr(buf *strings.Builder, in *Instr) {
	if in.Result != nil {
		fmt.Fprintf(buf, "%s = ", in.Result)
	}
	switch in.Op {
	case OpAnd, OpOr, OpXor, OpAdd, OpSub:
		fmt.Fprintf(buf, "%s %s, %s", in.Op, typed(in.Args[0]), in.Args[1])
	case OpShl, OpLShr:
		fmt.Fprintf(buf, "%s %s, %d", in.Op, typed(in.Args[0]), in.Offset)
	case OpTrunc, OpZExt, OpPtrToInt, OpIntToPtr:
		fmt.Fprintf(buf, "%s %s to %s", in.Op, typed(in.Args[0]), in.Type)
	case OpICmp:
		fmt.Fprintf(buf, "icmp %s %s, %s", in.Pred, typed(in.Args[0]), in.Args[1])
	case OpSelect:
		fmt.Fprintf(buf, "select %s, %s, %s", typed(in.Args[0]), typed(in.Args[1]), typed(in.Args[2]))
	case OpLoad:
		fmt.Fprintf(buf, "load %s, %s", in.Type, typed(in.Args[0]))
	case OpStore:
		fmt.Fprintf(buf, "store %s, %s", typed(in.Args[0]), typed(in.Args[1]))
	case OpGEP:
		fmt.Fprintf(buf, "getelementptr inbounds i8, %s, i64 %d", typed(in.Args[0]), in.Offset)
	case OpMemCpy:
		fmt.Fprintf(buf, "call void @llvm.memcpy(%s, %s, i64 %d)", typed(in.Args[0]), typed(in.Args[1]), in.Offset)
	case OpCall:
		args := make([]string, 0, len(in.Args))
		for _, a := range in.Args {
			args = append(args, typed(a))
		}
		fmt.Fprintf(buf, "call %s @%s(%s)", in.Type, in.Callee, strings.Join(args, ", "))
	case OpPhi:
		parts := make([]string, 0, len(in.Incoming))
		for _, inc := range in.Incoming {
			parts = append(parts, fmt.Sprintf("[ %s, %%%s ]", inc.Value, inc.From.Name))
		}
		fmt.Fprintf(buf, "phi %s %s", in.Type, strings.Join(parts, ", "))
	case OpBr:
		fmt.Fprintf(buf, "br label %%%s", in.Targets[0].Name)
	case OpCondBr:
		fmt.Fprintf(buf, "br %s, label %%%s, label %%%s", typed(in.Args[0]), in.Targets[0].Name, in.Targets[1].Name)
	case OpSwitch:
		fmt.Fprintf(buf, "switch %s, label %%%s [", typed(in.Args[0]), in.Targets[0].Name)
		for _, c := range in.Cases {
			lit := c.Value.Hex()
			if u, ok := c.Value.Uint64(); ok {
				lit = fmt.Sprintf("%d", u)
			}
			fmt.Fprintf(buf, "\n    %s %s, label %%%s", in.Args[0].Type, lit, c.Dest.Name)
		}
		buf.WriteString("\n  ]")
	case OpRet:
		if len(in.Args) == 0 {
			buf.WriteString("ret void")
			return
		}
		parts := make([]string, 0, len(in.Args))
		for _, a := range in.Args {
			parts = append(parts, typed(a))
		}
		fmt.Fprintf(buf, "ret %s", strings.Join(parts, ", "))
	case OpUnreachable:
		buf.WriteString("unreachable")
	default:
		fmt.Fprintf(buf, "<%s>", in.Op)
	}
}
