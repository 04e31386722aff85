package ir

import (
	"fmt"
	"slices"
)

// Builder creates instructions at an insertion point: the end of a block, or
// right before a given instruction.
type Builder struct {
	m      *Module
	block  *Block
	before *Instr
}

// NewBuilder returns a builder without an insertion point.
func NewBuilder(m *Module) *Builder {
	return &Builder{m: m}
}

// SetBlock moves the insertion point to the end of bb.
func (b *Builder) SetBlock(bb *Block) {
	b.block = bb
	b.before = nil
}

// SetInsertBefore moves the insertion point right before in.
func (b *Builder) SetInsertBefore(in *Instr) {
	if in.block == nil {
		panic(fmt.Sprintf("ir: insertion point %s is detached", in.Op))
	}
	b.block = in.block
	b.before = in
}

// Block returns the current insertion block.
func (b *Builder) Block() *Block { return b.block }

// Module returns the module the builder creates values for.
func (b *Builder) Module() *Module { return b.m }

func (b *Builder) insert(in *Instr) *Instr {
	if b.block == nil {
		panic(fmt.Sprintf("ir: no insertion point for %s", in.Op))
	}
	pos := len(b.block.instrs)
	if b.before != nil {
		pos = slices.Index(b.block.instrs, b.before)
		if pos < 0 {
			panic(fmt.Sprintf("ir: insertion point %s left block %s", b.before.Op, b.block.Name))
		}
	}
	b.block.insert(pos, in)
	return in
}

// Binary emits a two-operand integer operation typed like x.
func (b *Builder) Binary(op Opcode, x, y Value) *Instr {
	if !op.IsBinary() {
		panic(fmt.Sprintf("ir: %s is not a binary opcode", op))
	}
	return b.insert(newInstr(op, x.Type(), x, y))
}

// ICmp emits an integer comparison producing i1.
func (b *Builder) ICmp(pred Predicate, x, y Value) *Instr {
	in := newInstr(OpICmp, b.m.Types.Builtins().I1, x, y)
	in.Pred = pred
	return b.insert(in)
}

// Alloca emits a stack slot of type ty.
func (b *Builder) Alloca(ty TypeID, name string) *Instr {
	in := newInstr(OpAlloca, b.m.Types.Pointer(ty))
	in.Elem = ty
	in.Name = name
	return b.insert(in)
}

// Load emits a read of type ty from ptr.
func (b *Builder) Load(ty TypeID, ptr Value) *Instr {
	return b.insert(newInstr(OpLoad, ty, ptr))
}

// Store emits a write of val to ptr.
func (b *Builder) Store(val, ptr Value) *Instr {
	return b.insert(newInstr(OpStore, b.m.Types.Builtins().Void, val, ptr))
}

// GEP emits an address computation. The first index steps over whole elem
// values; each further index selects an element of an array.
func (b *Builder) GEP(elem TypeID, base Value, idx ...Value) *Instr {
	cur := elem
	for range idx[1:] {
		if !b.m.Types.IsArray(cur) {
			panic(fmt.Sprintf("ir: gep indexes into non-array %s", b.m.Types.String(cur)))
		}
		cur = b.m.Types.Elem(cur)
	}
	in := newInstr(OpGEP, b.m.Types.Pointer(cur), append([]Value{base}, idx...)...)
	in.Elem = elem
	return b.insert(in)
}

// Cast emits a width conversion.
func (b *Builder) Cast(op Opcode, v Value, to TypeID) *Instr {
	if !op.IsCast() {
		panic(fmt.Sprintf("ir: %s is not a cast opcode", op))
	}
	return b.insert(newInstr(op, to, v))
}

// IntCast converts v to the integer type to, extending per signed or
// truncating. It returns v unchanged when the widths match.
func (b *Builder) IntCast(v Value, to TypeID, signed bool) Value {
	from := b.m.Types.Bits(v.Type())
	want := b.m.Types.Bits(to)
	switch {
	case from == want:
		return v
	case from > want:
		return b.Cast(OpTrunc, v, to)
	case signed:
		return b.Cast(OpSExt, v, to)
	default:
		return b.Cast(OpZExt, v, to)
	}
}

// Call emits a direct call.
func (b *Builder) Call(fn *Func, args ...Value) *Instr {
	return b.insert(newInstr(OpCall, fn.Result(), append([]Value{fn}, args...)...))
}

// Br emits an unconditional branch.
func (b *Builder) Br(dest *Block) *Instr {
	in := newInstr(OpBr, b.m.Types.Builtins().Void)
	in.targets = []*Block{dest}
	return b.insert(in)
}

// CondBr emits a two-way branch on an i1 condition.
func (b *Builder) CondBr(cond Value, then, els *Block) *Instr {
	in := newInstr(OpCondBr, b.m.Types.Builtins().Void, cond)
	in.targets = []*Block{then, els}
	return b.insert(in)
}

// Ret emits a return; v is nil for void functions.
func (b *Builder) Ret(v Value) *Instr {
	if v == nil {
		return b.insert(newInstr(OpRet, b.m.Types.Builtins().Void))
	}
	return b.insert(newInstr(OpRet, b.m.Types.Builtins().Void, v))
}

// Unreachable marks a point control never reaches.
func (b *Builder) Unreachable() *Instr {
	return b.insert(newInstr(OpUnreachable, b.m.Types.Builtins().Void))
}
