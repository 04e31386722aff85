// Package llvmexport translates IR modules into LLVM IR using llir/llvm, so
// the output can be fed to llc or clang.
package llvmexport

import (
	"errors"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	sir "sysc/internal/ir"
)

var binaryOps = map[sir.Opcode]func(b *ir.Block, x, y value.Value) value.Value{
	sir.OpAdd:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewAdd(x, y) },
	sir.OpSub:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewSub(x, y) },
	sir.OpMul:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewMul(x, y) },
	sir.OpSDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSDiv(x, y) },
	sir.OpUDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewUDiv(x, y) },
	sir.OpSRem: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSRem(x, y) },
	sir.OpURem: func(b *ir.Block, x, y value.Value) value.Value { return b.NewURem(x, y) },
	sir.OpShl:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewShl(x, y) },
	sir.OpLShr: func(b *ir.Block, x, y value.Value) value.Value { return b.NewLShr(x, y) },
	sir.OpAShr: func(b *ir.Block, x, y value.Value) value.Value { return b.NewAShr(x, y) },
	sir.OpAnd:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewAnd(x, y) },
	sir.OpOr:   func(b *ir.Block, x, y value.Value) value.Value { return b.NewOr(x, y) },
	sir.OpXor:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewXor(x, y) },
}

var predicates = map[sir.Predicate]enum.IPred{
	sir.PredEQ:  enum.IPredEQ,
	sir.PredNE:  enum.IPredNE,
	sir.PredSLT: enum.IPredSLT,
	sir.PredSLE: enum.IPredSLE,
	sir.PredSGT: enum.IPredSGT,
	sir.PredSGE: enum.IPredSGE,
	sir.PredULT: enum.IPredULT,
	sir.PredULE: enum.IPredULE,
	sir.PredUGT: enum.IPredUGT,
	sir.PredUGE: enum.IPredUGE,
}

type exporter struct {
	src     *sir.Module
	dst     *ir.Module
	types   map[sir.TypeID]types.Type
	globals map[*sir.Global]*ir.Global
	funcs   map[*sir.Func]*ir.Func
}

// Module translates m. Constructors are listed in @llvm.global_ctors.
func Module(m *sir.Module) (*ir.Module, error) {
	if m == nil {
		return nil, errors.New("llvmexport: nil module")
	}
	x := &exporter{
		src:     m,
		dst:     ir.NewModule(),
		types:   make(map[sir.TypeID]types.Type),
		globals: make(map[*sir.Global]*ir.Global, len(m.Globals)),
		funcs:   make(map[*sir.Func]*ir.Func, len(m.Funcs)),
	}
	x.dst.SourceFilename = m.Name

	// Declare every symbol first so bodies can refer to any of them.
	for _, g := range m.Globals {
		init, err := x.constant(g.Init, g.Elem)
		if err != nil {
			return nil, fmt.Errorf("llvmexport: global %s: %w", g.Name, err)
		}
		x.globals[g] = x.dst.NewGlobalDef(g.Name, init)
	}
	for _, f := range m.Funcs {
		if err := x.declare(f); err != nil {
			return nil, fmt.Errorf("llvmexport: func %s: %w", f.Name, err)
		}
	}
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		if err := x.body(f); err != nil {
			return nil, fmt.Errorf("llvmexport: func %s: %w", f.Name, err)
		}
	}
	x.ctors()
	return x.dst, nil
}

// Write translates m and writes it as LLVM assembly.
func Write(w io.Writer, m *sir.Module) error {
	out, err := Module(m)
	if err != nil {
		return err
	}
	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("llvmexport: %w", err)
	}
	return nil
}

func (x *exporter) typ(id sir.TypeID) (types.Type, error) {
	if t, ok := x.types[id]; ok {
		return t, nil
	}
	in := x.src.Types
	var t types.Type
	switch in.KindOf(id) {
	case sir.KindVoid:
		t = types.Void
	case sir.KindInt:
		t = types.NewInt(uint64(in.Bits(id)))
	case sir.KindPointer:
		elem, err := x.typ(in.Elem(id))
		if err != nil {
			return nil, err
		}
		t = types.NewPointer(elem)
	case sir.KindArray:
		elem, err := x.typ(in.Elem(id))
		if err != nil {
			return nil, err
		}
		t = types.NewArray(in.Len(id), elem)
	case sir.KindFunc:
		info, _ := in.FuncInfo(id)
		ret, err := x.typ(info.Result)
		if err != nil {
			return nil, err
		}
		params := make([]types.Type, len(info.Params))
		for i, p := range info.Params {
			if params[i], err = x.typ(p); err != nil {
				return nil, err
			}
		}
		t = types.NewFunc(ret, params...)
	default:
		return nil, fmt.Errorf("type %s has no LLVM form", in.String(id))
	}
	x.types[id] = t
	return t, nil
}

// constant translates c as a value of type ty. A nil c is the zero value.
func (x *exporter) constant(c *sir.Const, ty sir.TypeID) (constant.Constant, error) {
	t, err := x.typ(ty)
	if err != nil {
		return nil, err
	}
	if c != nil && c.Kind == sir.ConstInt {
		it, ok := t.(*types.IntType)
		if !ok {
			return nil, fmt.Errorf("integer constant of type %s", t)
		}
		if it.BitSize == 1 {
			return constant.NewBool(c.Uint() != 0), nil
		}
		return constant.NewInt(it, c.Int), nil
	}
	switch t := t.(type) {
	case *types.PointerType:
		return constant.NewNull(t), nil
	case *types.IntType:
		return constant.NewInt(t, 0), nil
	}
	return constant.NewZeroInitializer(t), nil
}

func (x *exporter) declare(f *sir.Func) error {
	info, ok := x.src.Types.FuncInfo(f.Sig)
	if !ok {
		return fmt.Errorf("signature %s is not a function type", x.src.Types.String(f.Sig))
	}
	ret, err := x.typ(info.Result)
	if err != nil {
		return err
	}
	params := make([]*ir.Param, len(f.Params))
	for i, p := range f.Params {
		pt, err := x.typ(p.Ty)
		if err != nil {
			return err
		}
		params[i] = ir.NewParam(p.Name, pt)
	}
	fn := x.dst.NewFunc(f.Name, ret, params...)
	if f.Linkage == sir.LinkagePrivate {
		fn.Linkage = enum.LinkagePrivate
	}
	x.funcs[f] = fn
	return nil
}

// funcState holds the per-function translation maps.
type funcState struct {
	*exporter
	fn     *ir.Func
	blocks map[*sir.Block]*ir.Block
	vals   map[*sir.Instr]value.Value
	names  map[string]int
}

func (x *exporter) body(f *sir.Func) error {
	fs := &funcState{
		exporter: x,
		fn:       x.funcs[f],
		blocks:   make(map[*sir.Block]*ir.Block, len(f.Blocks)),
		vals:     make(map[*sir.Instr]value.Value),
		names:    make(map[string]int),
	}
	for _, p := range fs.fn.Params {
		fs.names[p.Name()]++
	}
	for _, b := range f.Blocks {
		fs.blocks[b] = fs.fn.NewBlock(b.Name)
	}
	// Layout order defines every value before its uses.
	for _, b := range f.Blocks {
		out := fs.blocks[b]
		for _, in := range b.Instrs() {
			v, err := fs.instr(out, in)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", b.Name, in.Op, err)
			}
			if v != nil {
				fs.vals[in] = v
			}
		}
	}
	return nil
}

// name returns a function-unique local name derived from base.
func (fs *funcState) name(base string) string {
	n := fs.names[base]
	fs.names[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s%d", base, n)
}

func (fs *funcState) operand(v sir.Value) (value.Value, error) {
	switch v := v.(type) {
	case *sir.Const:
		return fs.constant(v, v.Ty)
	case *sir.Param:
		return fs.fn.Params[v.Index], nil
	case *sir.Global:
		return fs.globals[v], nil
	case *sir.Func:
		return fs.funcs[v], nil
	case *sir.Instr:
		out, ok := fs.vals[v]
		if !ok {
			return nil, fmt.Errorf("%s used before its definition", v.Op)
		}
		return out, nil
	}
	return nil, fmt.Errorf("operand %T", v)
}

func (fs *funcState) operands(in *sir.Instr) ([]value.Value, error) {
	out := make([]value.Value, in.NumArgs())
	for i, a := range in.Args() {
		v, err := fs.operand(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fs *funcState) instr(b *ir.Block, in *sir.Instr) (value.Value, error) {
	args, err := fs.operands(in)
	if err != nil {
		return nil, err
	}
	if mk, ok := binaryOps[in.Op]; ok {
		return mk(b, args[0], args[1]), nil
	}

	switch in.Op {
	case sir.OpICmp:
		pred, ok := predicates[in.Pred]
		if !ok {
			return nil, fmt.Errorf("predicate %s", in.Pred)
		}
		return b.NewICmp(pred, args[0], args[1]), nil

	case sir.OpAlloca:
		elem, err := fs.typ(in.Elem)
		if err != nil {
			return nil, err
		}
		a := b.NewAlloca(elem)
		if in.Name != "" {
			a.SetName(fs.name(in.Name))
		}
		return a, nil

	case sir.OpLoad:
		ty, err := fs.typ(in.Ty)
		if err != nil {
			return nil, err
		}
		return b.NewLoad(ty, args[0]), nil

	case sir.OpStore:
		b.NewStore(args[0], args[1])
		return nil, nil

	case sir.OpGEP:
		elem, err := fs.typ(in.Elem)
		if err != nil {
			return nil, err
		}
		return b.NewGetElementPtr(elem, args[0], args[1:]...), nil

	case sir.OpSExt, sir.OpZExt, sir.OpTrunc:
		to, err := fs.typ(in.Ty)
		if err != nil {
			return nil, err
		}
		switch in.Op {
		case sir.OpSExt:
			return b.NewSExt(args[0], to), nil
		case sir.OpZExt:
			return b.NewZExt(args[0], to), nil
		}
		return b.NewTrunc(args[0], to), nil

	case sir.OpCall:
		call := b.NewCall(args[0], args[1:]...)
		if fs.src.Types.IsVoid(in.Ty) {
			return nil, nil
		}
		return call, nil

	case sir.OpBr:
		b.NewBr(fs.blocks[in.Targets()[0]])
		return nil, nil

	case sir.OpCondBr:
		t := in.Targets()
		b.NewCondBr(args[0], fs.blocks[t[0]], fs.blocks[t[1]])
		return nil, nil

	case sir.OpRet:
		if len(args) == 0 {
			b.NewRet(nil)
		} else {
			b.NewRet(args[0])
		}
		return nil, nil

	case sir.OpUnreachable:
		b.NewUnreachable()
		return nil, nil
	}
	return nil, fmt.Errorf("opcode %s has no LLVM form", in.Op)
}

// ctors emits the constructor table in the layout LLVM expects:
// { i32 priority, void ()* fn, i8* data }.
func (x *exporter) ctors() {
	list := x.src.SortedCtors()
	if len(list) == 0 {
		return
	}
	entry := types.NewStruct(types.I32, types.NewPointer(types.NewFunc(types.Void)), types.I8Ptr)
	elems := make([]constant.Constant, len(list))
	for i, c := range list {
		elems[i] = constant.NewStruct(entry,
			constant.NewInt(types.I32, int64(c.Priority)),
			x.funcs[c.Func],
			constant.NewNull(types.I8Ptr))
	}
	table := x.dst.NewGlobalDef("llvm.global_ctors",
		constant.NewArray(types.NewArray(uint64(len(elems)), entry), elems...))
	table.Linkage = enum.LinkageAppending
}
