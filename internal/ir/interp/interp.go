// Package interp executes ir functions over concrete bit patterns. It is the
// test harness for emitted enum operations: memory is byte addressed and
// little-endian, and runtime calls are recorded and dispatched to handlers.
package interp

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"enumgen/internal/bitvec"
	"enumgen/internal/ir"
)

// ErrUnreachable is returned when execution reaches an unreachable terminator.
var ErrUnreachable = errors.New("interp: reached unreachable")

// ptrBits is the width used for pointer values inside the machine.
const ptrBits = 64

// heapBase keeps allocations clear of the null page so addresses are never
// mistaken for extra inhabitants.
const heapBase = 0x10000

// CallRecord is one executed runtime call.
type CallRecord struct {
	Callee string
	Args   []bitvec.Bits
}

// Handler implements a runtime function.
type Handler func(m *Machine, args []bitvec.Bits) bitvec.Bits

// Machine holds memory and the call log.
type Machine struct {
	mem      []byte
	globals  map[string]uint64
	Handlers map[string]Handler
	Calls    []CallRecord
	MaxSteps int
}

// New returns an empty machine.
func New() *Machine {
	return &Machine{
		mem:      make([]byte, 0, 256),
		globals:  make(map[string]uint64),
		Handlers: make(map[string]Handler),
		MaxSteps: 100000,
	}
}

// Alloc reserves size bytes aligned to align and returns the address.
func (m *Machine) Alloc(size, align int) uint64 {
	if align < 1 {
		align = 1
	}
	for len(m.mem)%align != 0 {
		m.mem = append(m.mem, 0)
	}
	addr := uint64(heapBase + len(m.mem)) //nolint:gosec // G115: arena offsets are small.
	if size == 0 {
		size = 1
	}
	m.mem = append(m.mem, make([]byte, size)...)
	return addr
}

func (m *Machine) index(addr uint64, n int) (int, error) {
	if addr < heapBase {
		return 0, fmt.Errorf("interp: access to unmapped address %#x", addr)
	}
	off, err := safecast.Conv[int](addr - heapBase)
	if err != nil {
		return 0, err
	}
	if off+n > len(m.mem) {
		return 0, fmt.Errorf("interp: access [%#x,+%d) out of bounds", addr, n)
	}
	return off, nil
}

// Write stores raw bytes at addr.
func (m *Machine) Write(addr uint64, data []byte) error {
	off, err := m.index(addr, len(data))
	if err != nil {
		return err
	}
	copy(m.mem[off:], data)
	return nil
}

// Read returns n raw bytes at addr.
func (m *Machine) Read(addr uint64, n int) ([]byte, error) {
	off, err := m.index(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, m.mem[off:off+n])
	return out, nil
}

// CallsTo returns the recorded calls to callee.
func (m *Machine) CallsTo(callee string) []CallRecord {
	var out []CallRecord
	for _, c := range m.Calls {
		if c.Callee == callee {
			out = append(out, c)
		}
	}
	return out
}

// Result is the outcome of running a function.
type Result struct {
	Values []bitvec.Bits
	// Exit is the block whose ret ended execution.
	Exit *ir.Block
}

func width(t ir.Type) int {
	if t.IsPtr() {
		return ptrBits
	}
	return t.Bits
}

type frame struct {
	vals map[*ir.Value]bitvec.Bits
	m    *Machine
}

func (fr *frame) get(v *ir.Value) (bitvec.Bits, error) {
	switch v.Kind {
	case ir.ValueConst:
		return v.Const.Resize(width(v.Type)), nil
	case ir.ValueGlobal:
		addr, ok := fr.m.globals[v.Name]
		if !ok {
			addr = fr.m.Alloc(16, 16)
			fr.m.globals[v.Name] = addr
		}
		return bitvec.FromUint64(ptrBits, addr), nil
	default:
		b, ok := fr.vals[v]
		if !ok {
			return bitvec.Bits{}, fmt.Errorf("interp: use of undefined value %s", v)
		}
		return b, nil
	}
}

// Run executes f with the given arguments.
func (m *Machine) Run(f *ir.Func, args ...bitvec.Bits) (Result, error) {
	if len(args) != len(f.Params) {
		return Result{}, fmt.Errorf("interp: %s expects %d args, got %d", f.Name, len(f.Params), len(args))
	}
	fr := &frame{vals: make(map[*ir.Value]bitvec.Bits), m: m}
	for i, p := range f.Params {
		if args[i].Width() != width(p.Type) {
			return Result{}, fmt.Errorf("interp: arg %d is i%d, want %s", i, args[i].Width(), p.Type)
		}
		fr.vals[p] = args[i]
	}
	var prev *ir.Block
	cur := f.Entry()
	steps := 0
	for {
		next, res, done, err := m.execBlock(fr, cur, prev, &steps)
		if err != nil {
			return Result{}, fmt.Errorf("%s/%s: %w", f.Name, cur.Name, err)
		}
		if done {
			res.Exit = cur
			return res, nil
		}
		prev, cur = cur, next
	}
}

func (m *Machine) execBlock(fr *frame, blk, prev *ir.Block, steps *int) (*ir.Block, Result, bool, error) {
	// phis read their inputs simultaneously
	pending := make(map[*ir.Value]bitvec.Bits)
	for _, in := range blk.Instrs {
		if in.Op != ir.OpPhi {
			break
		}
		found := false
		for _, inc := range in.Incoming {
			if inc.From == prev {
				v, err := fr.get(inc.Value)
				if err != nil {
					return nil, Result{}, false, err
				}
				pending[in.Result] = v
				found = true
				break
			}
		}
		if !found {
			return nil, Result{}, false, fmt.Errorf("interp: phi has no edge from %v", blockName(prev))
		}
	}
	for k, v := range pending {
		fr.vals[k] = v
	}

	for _, in := range blk.Instrs {
		*steps++
		if *steps > m.MaxSteps {
			return nil, Result{}, false, errors.New("interp: step limit exceeded")
		}
		switch in.Op {
		case ir.OpPhi:
			continue
		case ir.OpBr:
			return in.Targets[0], Result{}, false, nil
		case ir.OpCondBr:
			c, err := fr.get(in.Args[0])
			if err != nil {
				return nil, Result{}, false, err
			}
			if c.Bit(0) {
				return in.Targets[0], Result{}, false, nil
			}
			return in.Targets[1], Result{}, false, nil
		case ir.OpSwitch:
			v, err := fr.get(in.Args[0])
			if err != nil {
				return nil, Result{}, false, err
			}
			for _, c := range in.Cases {
				if c.Value.Equal(v) {
					return c.Dest, Result{}, false, nil
				}
			}
			return in.Targets[0], Result{}, false, nil
		case ir.OpRet:
			out := make([]bitvec.Bits, 0, len(in.Args))
			for _, a := range in.Args {
				v, err := fr.get(a)
				if err != nil {
					return nil, Result{}, false, err
				}
				out = append(out, v)
			}
			return nil, Result{Values: out}, true, nil
		case ir.OpUnreachable:
			return nil, Result{}, false, ErrUnreachable
		default:
			if err := m.exec(fr, in); err != nil {
				return nil, Result{}, false, err
			}
		}
	}
	return nil, Result{}, false, fmt.Errorf("interp: fell off the end of %s", blk.Name)
}

func blockName(b *ir.Block) string {
	if b == nil {
		return "<entry>"
	}
	return b.Name
}

func (m *Machine) exec(fr *frame, in *ir.Instr) error {
	args := make([]bitvec.Bits, len(in.Args))
	for i, a := range in.Args {
		v, err := fr.get(a)
		if err != nil {
			return err
		}
		args[i] = v
	}
	var res bitvec.Bits
	switch in.Op {
	case ir.OpAnd:
		res = args[0].And(args[1])
	case ir.OpOr:
		res = args[0].Or(args[1])
	case ir.OpXor:
		res = args[0].Xor(args[1])
	case ir.OpAdd:
		res = ir.AddBits(args[0], args[1])
	case ir.OpSub:
		res = ir.SubBits(args[0], args[1])
	case ir.OpShl:
		res = args[0].Shl(in.Offset)
	case ir.OpLShr:
		res = args[0].LShr(in.Offset)
	case ir.OpTrunc:
		res = args[0].Trunc(in.Type.Bits)
	case ir.OpZExt:
		res = args[0].ZExt(in.Type.Bits)
	case ir.OpICmp:
		res = bitvec.FromUint64(1, boolBit(compare(in.Pred, args[0], args[1])))
	case ir.OpSelect:
		if args[0].Bit(0) {
			res = args[1]
		} else {
			res = args[2]
		}
	case ir.OpPtrToInt:
		res = args[0].Resize(in.Type.Bits)
	case ir.OpIntToPtr:
		res = args[0].Resize(ptrBits)
	case ir.OpLoad:
		w := width(in.Type)
		data, err := m.Read(args[0].Lo64(), (w+7)/8)
		if err != nil {
			return err
		}
		res = bitvec.FromBytes(w, data)
	case ir.OpStore:
		w := width(in.Type)
		data := args[0].Bytes()
		if in.Type.IsPtr() {
			data = args[0].Resize(w).Bytes()
		}
		return m.Write(args[1].Lo64(), data)
	case ir.OpGEP:
		res = bitvec.FromUint64(ptrBits, args[0].Lo64()+uint64(in.Offset)) //nolint:gosec // G115: offsets are non-negative.
	case ir.OpMemCpy:
		data, err := m.Read(args[1].Lo64(), in.Offset)
		if err != nil {
			return err
		}
		return m.Write(args[0].Lo64(), data)
	case ir.OpCall:
		m.Calls = append(m.Calls, CallRecord{Callee: in.Callee, Args: args})
		if h, ok := m.Handlers[in.Callee]; ok {
			res = h(m, args)
		} else if in.Result != nil {
			res = bitvec.New(width(in.Type))
		}
		if in.Result == nil {
			return nil
		}
	default:
		return fmt.Errorf("interp: unsupported op %s", in.Op)
	}
	if in.Result != nil {
		if res.Width() != width(in.Result.Type) {
			return fmt.Errorf("interp: %s produced i%d for %s", in.Op, res.Width(), in.Result.Type)
		}
		fr.vals[in.Result] = res
	}
	return nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func cmpUnsigned(a, b bitvec.Bits) int {
	for i := a.Width() - 1; i >= 0; i-- {
		x, y := a.Bit(i), b.Bit(i)
		if x != y {
			if x {
				return 1
			}
			return -1
		}
	}
	return 0
}

func compare(p ir.Pred, a, b bitvec.Bits) bool {
	c := cmpUnsigned(a, b)
	switch p {
	case ir.PredEQ:
		return c == 0
	case ir.PredNE:
		return c != 0
	case ir.PredULT:
		return c < 0
	case ir.PredUGE:
		return c >= 0
	case ir.PredUGT:
		return c > 0
	case ir.PredULE:
		return c <= 0
	default:
		return false
	}
}
