package emit

import (
	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
)

// lowerExpr lowers e to an IR value. Lvalue expressions (names, subscripts)
// yield the address of their storage; the lvalue-to-rvalue cast loads.
func (l *funcLowerer) lowerExpr(e ast.Expr) (ir.Value, error) {
	switch e := e.(type) {
	case *ast.IntegerLiteral:
		ty, err := l.lowerType(e.Type)
		if err != nil {
			return nil, err
		}
		if !l.m.Types.IsInt(ty) {
			return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "integer literal of type %s", e.Type)
		}
		return l.m.ConstInt(ty, e.Value), nil
	case *ast.ParenExpr:
		return l.lowerExpr(e.Sub)
	case *ast.UnaryExpr:
		return l.lowerUnary(e)
	case *ast.BinaryExpr:
		return l.lowerBinary(e)
	case *ast.ImplicitCastExpr:
		return l.lowerCast(e)
	case *ast.DeclRefExpr:
		b, ok := l.resolve(e)
		if !ok {
			return nil, l.errorf(diag.LowUnresolvedName, ErrUnresolved, "%q", e.Name)
		}
		return b.value(), nil
	case *ast.CallExpr:
		return l.lowerCall(e)
	case nil:
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "missing expression")
	}
	return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "expression %T", e)
}

func (l *funcLowerer) lowerUnary(e *ast.UnaryExpr) (ir.Value, error) {
	x, err := l.lowerExpr(e.Sub)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.UnPos:
		return x, nil
	case ast.UnNeg:
		return l.b.Binary(ir.OpSub, l.m.ConstZero(x.Type()), x), nil
	case ast.UnNot:
		cond := l.truth(x)
		not := l.b.Binary(ir.OpXor, cond, l.m.Bool(true))
		return l.widenBool(not, e.Type)
	}
	return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "unary operator %s", e.Op)
}

var arithOps = map[ast.BinaryOp]ir.Opcode{
	ast.BinAdd: ir.OpAdd,
	ast.BinSub: ir.OpSub,
	ast.BinMul: ir.OpMul,
	ast.BinDiv: ir.OpSDiv,
	ast.BinMod: ir.OpSRem,
}

var comparePreds = map[ast.BinaryOp]ir.Predicate{
	ast.BinLt: ir.PredSLT,
	ast.BinLe: ir.PredSLE,
	ast.BinGt: ir.PredSGT,
	ast.BinGe: ir.PredSGE,
	ast.BinEq: ir.PredEQ,
	ast.BinNe: ir.PredNE,
}

func (l *funcLowerer) lowerBinary(e *ast.BinaryExpr) (ir.Value, error) {
	switch e.Op {
	case ast.BinLogicalAnd, ast.BinLogicalOr:
		v, err := l.lowerLogical(e)
		if err != nil {
			return nil, err
		}
		return l.widenBool(v, e.Type)

	case ast.BinAssign:
		val, err := l.lowerExpr(e.RHS)
		if err != nil {
			return nil, err
		}
		addr, err := l.lowerExpr(e.LHS)
		if err != nil {
			return nil, err
		}
		l.b.Store(val, addr)
		return val, nil

	case ast.BinComma:
		if _, err := l.lowerExpr(e.LHS); err != nil {
			return nil, err
		}
		return l.lowerExpr(e.RHS)

	case ast.BinIndex:
		return l.lowerIndex(e)
	}

	if e.Op.IsComparison() {
		cmp, err := l.lowerCompare(e)
		if err != nil {
			return nil, err
		}
		return l.widenBool(cmp, e.Type)
	}

	op, ok := arithOps[e.Op]
	if !ok {
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "binary operator %s", e.Op)
	}
	x, err := l.lowerExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	y, err := l.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	if !l.m.Types.IsInt(x.Type()) || x.Type() != y.Type() {
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "operands of %s: %s and %s",
			e.Op, l.m.Types.String(x.Type()), l.m.Types.String(y.Type()))
	}
	return l.b.Binary(op, x, y), nil
}

// lowerCompare emits the i1 comparison for a relational or equality operator.
func (l *funcLowerer) lowerCompare(e *ast.BinaryExpr) (ir.Value, error) {
	x, err := l.lowerExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	y, err := l.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	if x.Type() != y.Type() {
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "comparison of %s and %s",
			l.m.Types.String(x.Type()), l.m.Types.String(y.Type()))
	}
	return l.b.ICmp(comparePreds[e.Op], x, y), nil
}

// lowerLogical evaluates && and || with short-circuit branches. The result
// travels through an i1 stack slot since the IR has no phi.
func (l *funcLowerer) lowerLogical(e *ast.BinaryExpr) (ir.Value, error) {
	prefix := "land"
	if e.Op == ast.BinLogicalOr {
		prefix = "lor"
	}
	slot := l.stackSlot(l.m.Types.Builtins().I1, prefix+".tmp")

	lhs, err := l.lowerCond(e.LHS)
	if err != nil {
		return nil, err
	}
	rhsBB := l.newBlock(prefix + ".rhs")
	endBB := l.newBlock(prefix + ".end")
	l.b.Store(lhs, slot)
	if e.Op == ast.BinLogicalAnd {
		l.b.CondBr(lhs, rhsBB, endBB)
	} else {
		l.b.CondBr(lhs, endBB, rhsBB)
	}

	l.startBlock(rhsBB)
	rhs, err := l.lowerCond(e.RHS)
	if err != nil {
		return nil, err
	}
	l.b.Store(rhs, slot)
	l.b.Br(endBB)

	l.startBlock(endBB)
	return l.b.Load(l.m.Types.Builtins().I1, slot), nil
}

// lowerCond lowers e for use as a branch condition, producing an i1.
// Comparisons and logical operators feed the branch directly.
func (l *funcLowerer) lowerCond(e ast.Expr) (ir.Value, error) {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			break
		}
		e = p.Sub
	}
	if be, ok := e.(*ast.BinaryExpr); ok {
		if be.Op.IsComparison() {
			return l.lowerCompare(be)
		}
		if be.Op == ast.BinLogicalAnd || be.Op == ast.BinLogicalOr {
			return l.lowerLogical(be)
		}
	}
	v, err := l.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	return l.truth(v), nil
}

// truth converts an integer or pointer to i1 (v != 0).
func (l *funcLowerer) truth(v ir.Value) ir.Value {
	if v.Type() == l.m.Types.Builtins().I1 {
		return v
	}
	return l.b.ICmp(ir.PredNE, v, l.m.ConstZero(v.Type()))
}

// widenBool zero-extends an i1 to the integer type of the expression.
func (l *funcLowerer) widenBool(v ir.Value, t *ast.Type) (ir.Value, error) {
	ty, err := l.lowerType(t)
	if err != nil {
		return nil, err
	}
	if !l.m.Types.IsInt(ty) {
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "truth value of type %s", t)
	}
	return l.b.IntCast(v, ty, false), nil
}

// lowerIndex computes the address of base[idx]. The base has already decayed
// to a pointer; C allows the operands in either order.
func (l *funcLowerer) lowerIndex(e *ast.BinaryExpr) (ir.Value, error) {
	base, err := l.lowerExpr(e.LHS)
	if err != nil {
		return nil, err
	}
	idx, err := l.lowerExpr(e.RHS)
	if err != nil {
		return nil, err
	}
	types := l.m.Types
	if types.IsInt(base.Type()) && types.IsPointer(idx.Type()) {
		base, idx = idx, base
	}
	if !types.IsPointer(base.Type()) || !types.IsInt(idx.Type()) {
		return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "subscript of %s by %s",
			types.String(base.Type()), types.String(idx.Type()))
	}
	idx = l.b.IntCast(idx, types.Builtins().I64, true)
	return l.b.GEP(types.Elem(base.Type()), base, idx), nil
}

func (l *funcLowerer) lowerCast(e *ast.ImplicitCastExpr) (ir.Value, error) {
	sub, err := l.lowerExpr(e.Sub)
	if err != nil {
		return nil, err
	}
	types := l.m.Types
	switch e.Kind {
	case ast.CastLValueToRValue:
		ty, err := l.lowerType(e.Type)
		if err != nil {
			return nil, err
		}
		if !types.IsPointer(sub.Type()) {
			return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "load through %s", types.String(sub.Type()))
		}
		return l.b.Load(ty, sub), nil

	case ast.CastIntegral:
		ty, err := l.lowerType(e.Type)
		if err != nil {
			return nil, err
		}
		if !types.IsInt(ty) || !types.IsInt(sub.Type()) {
			return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "integral cast to %s", e.Type)
		}
		return l.b.IntCast(sub, ty, true), nil

	case ast.CastArrayToPointerDecay:
		arr := types.Elem(sub.Type())
		if !types.IsArray(arr) {
			// Array parameters are adjusted to pointers, so their slot holds
			// the pointer already. Only array-typed declarations decay.
			if isArray(e.Sub.ExprType()) && types.IsPointer(arr) {
				return l.b.Load(arr, sub), nil
			}
			return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "decay of %s", types.String(sub.Type()))
		}
		zero := l.m.ConstInt(types.Builtins().I64, 0)
		return l.b.GEP(arr, sub, zero, zero), nil

	case ast.CastFunctionToPointerDecay:
		return sub, nil
	}
	return nil, l.errorf(diag.LowUnsupportedExpr, ErrUnsupported, "cast %s", e.Kind)
}

func (l *funcLowerer) lowerCall(e *ast.CallExpr) (ir.Value, error) {
	callee, err := l.lowerExpr(e.Callee)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*ir.Func)
	if !ok {
		return nil, l.errorf(diag.LowBadCallee, ErrUnsupported, "indirect call")
	}
	info, _ := l.m.Types.FuncInfo(fn.Sig)
	if len(info.Params) != len(e.Args) {
		return nil, l.errorf(diag.LowBadCallee, ErrUnsupported, "call to %s with %d arguments, want %d",
			fn.Name, len(e.Args), len(info.Params))
	}
	args := make([]ir.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return l.b.Call(fn, args...), nil
}
