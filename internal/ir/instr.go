package ir

import (
	"fmt"
	"slices"
)

// Opcode enumerates instruction kinds.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Binary integer operations.
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	OpICmp

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpGEP

	// Casts.
	OpSExt
	OpZExt
	OpTrunc

	OpCall

	// Terminators.
	OpBr
	OpCondBr
	OpRet
	OpUnreachable
)

var opcodeNames = [...]string{
	OpInvalid:     "invalid",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpSDiv:        "sdiv",
	OpUDiv:        "udiv",
	OpSRem:        "srem",
	OpURem:        "urem",
	OpShl:         "shl",
	OpLShr:        "lshr",
	OpAShr:        "ashr",
	OpAnd:         "and",
	OpOr:          "or",
	OpXor:         "xor",
	OpICmp:        "icmp",
	OpAlloca:      "alloca",
	OpLoad:        "load",
	OpStore:       "store",
	OpGEP:         "getelementptr",
	OpSExt:        "sext",
	OpZExt:        "zext",
	OpTrunc:       "trunc",
	OpCall:        "call",
	OpBr:          "br",
	OpCondBr:      "br",
	OpRet:         "ret",
	OpUnreachable: "unreachable",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsBinary reports whether op is a two-operand integer operation.
func (op Opcode) IsBinary() bool { return op >= OpAdd && op <= OpXor }

// IsCast reports whether op converts between integer widths.
func (op Opcode) IsCast() bool { return op == OpSExt || op == OpZExt || op == OpTrunc }

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool { return op >= OpBr && op <= OpUnreachable }

// IsCommutative reports whether swapping the operands of op preserves its result.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor:
		return true
	}
	return false
}

// Predicate is the comparison performed by OpICmp.
type Predicate uint8

const (
	PredNone Predicate = iota
	PredEQ
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
	PredULT
	PredULE
	PredUGT
	PredUGE
)

var predicateNames = [...]string{
	PredNone: "none",
	PredEQ:   "eq",
	PredNE:   "ne",
	PredSLT:  "slt",
	PredSLE:  "sle",
	PredSGT:  "sgt",
	PredSGE:  "sge",
	PredULT:  "ult",
	PredULE:  "ule",
	PredUGT:  "ugt",
	PredUGE:  "uge",
}

func (p Predicate) String() string {
	if int(p) < len(predicateNames) {
		return predicateNames[p]
	}
	return fmt.Sprintf("Predicate(%d)", p)
}

// Instr is an IR instruction. It belongs to exactly one block while live and
// keeps the list of instructions that use its result.
//
// Operand layout by opcode:
//
//	binary, icmp   [lhs, rhs]
//	alloca         []            Elem = allocated type
//	load           [ptr]
//	store          [value, ptr]
//	getelementptr  [base, idx...] Elem = source element type
//	casts          [value]
//	call           [callee, args...]
//	condbr         [cond]        Targets = [then, else]
//	br             []            Targets = [dest]
//	ret            [] or [value]
type Instr struct {
	Op   Opcode
	Pred Predicate
	Ty   TypeID
	Elem TypeID
	Name string

	block   *Block
	args    []Value
	targets []*Block
	uses    useList
	erased  bool
}

func (in *Instr) Type() TypeID { return in.Ty }
func (*Instr) valueNode()      {}

// Block returns the owning block, nil once erased or before insertion.
func (in *Instr) Block() *Block { return in.block }

// Erased reports whether the instruction was removed from its block.
func (in *Instr) Erased() bool { return in.erased }

// Args returns the operands. The slice must not be modified.
func (in *Instr) Args() []Value { return in.args }

// Arg returns operand i.
func (in *Instr) Arg(i int) Value { return in.args[i] }

func (in *Instr) NumArgs() int { return len(in.args) }

// Targets returns the successor blocks of a branch. The slice must not be modified.
func (in *Instr) Targets() []*Block { return in.targets }

// Uses returns a snapshot of the users of this instruction's result.
func (in *Instr) Uses() []Use { return slices.Clone(in.uses.uses) }

func (in *Instr) NumUses() int { return len(in.uses.uses) }

func (in *Instr) HasUses() bool { return len(in.uses.uses) != 0 }

func (in *Instr) IsTerminator() bool { return in.Op.IsTerminator() }

// HasSideEffects reports whether removing the instruction could change
// observable behavior even when its result is unused.
func (in *Instr) HasSideEffects() bool {
	switch in.Op {
	case OpStore, OpCall:
		return true
	}
	return in.Op.IsTerminator()
}

// Callee returns the called function of an OpCall.
func (in *Instr) Callee() *Func {
	if in.Op != OpCall || len(in.args) == 0 {
		return nil
	}
	fn, _ := in.args[0].(*Func)
	return fn
}

func newInstr(op Opcode, ty TypeID, args ...Value) *Instr {
	in := &Instr{Op: op, Ty: ty}
	for _, a := range args {
		in.appendArg(a)
	}
	return in
}

func (in *Instr) appendArg(v Value) {
	if v == nil {
		panic(fmt.Sprintf("ir: nil operand for %s", in.Op))
	}
	idx := len(in.args)
	in.args = append(in.args, v)
	if l := usesOf(v); l != nil {
		l.add(in, idx)
	}
}

// SetArg replaces operand i, keeping both use-lists consistent.
func (in *Instr) SetArg(i int, v Value) {
	if v == nil {
		panic(fmt.Sprintf("ir: nil operand for %s", in.Op))
	}
	old := in.args[i]
	if old == v {
		return
	}
	if l := usesOf(old); l != nil {
		l.remove(in, i)
	}
	in.args[i] = v
	if l := usesOf(v); l != nil {
		l.add(in, i)
	}
}

// SetTarget retargets successor i of a branch.
func (in *Instr) SetTarget(i int, b *Block) {
	in.targets[i] = b
}

// ReplaceAllUsesWith rewrites every user of in to use v instead.
func (in *Instr) ReplaceAllUsesWith(v Value) {
	if v == Value(in) {
		panic("ir: replacing instruction with itself")
	}
	for _, u := range slices.Clone(in.uses.uses) {
		u.User.SetArg(u.Index, v)
	}
}

// EraseFromParent unlinks the instruction from its block and drops its
// operand uses. It panics if the result still has users.
func (in *Instr) EraseFromParent() {
	if in.erased {
		panic(fmt.Sprintf("ir: %s erased twice", in.Op))
	}
	if in.HasUses() {
		panic(fmt.Sprintf("ir: erasing %s with %d remaining uses", in.Op, in.NumUses()))
	}
	if in.block != nil {
		in.block.remove(in)
	}
	for i, a := range in.args {
		if l := usesOf(a); l != nil {
			l.remove(in, i)
		}
	}
	in.args = nil
	in.targets = nil
	in.block = nil
	in.erased = true
}
