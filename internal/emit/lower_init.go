package emit

import (
	"fortio.org/safecast"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
)

// initItem is one pending store of the initializer protocol. When index is
// non-negative the destination is element index of the array at base;
// otherwise it is base itself. A nil expr zero-fills the destination.
type initItem struct {
	base   ir.Value
	baseTy ir.TypeID
	index  int
	ty     ir.TypeID
	expr   ast.Expr
}

// transInit stores the value of src into dst, which holds a ty.
//
// Braced lists are walked with an explicit stack: each level pushes its
// elements front to back and the stack pops them back to front, so stores
// within a level come out in reverse index order and nested lists are
// finished before their preceding siblings. Elements past the end of a list
// are zero-filled.
func (l *funcLowerer) transInit(dst ir.Value, ty ir.TypeID, src ast.Expr) error {
	types := l.m.Types
	i64 := types.Builtins().I64
	stack := []initItem{{base: dst, baseTy: ty, index: -1, ty: ty, expr: src}}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		addr := it.base
		if it.index >= 0 {
			idx := l.m.ConstInt(i64, int64(it.index))
			addr = l.b.GEP(it.baseTy, it.base, l.m.ConstInt(i64, 0), idx)
		}

		switch e := it.expr.(type) {
		case nil, *ast.ImplicitInitExpr:
			l.b.Store(l.m.ConstZero(it.ty), addr)

		case *ast.IntegerLiteral:
			if !types.IsInt(it.ty) {
				return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "integer initializer for %s", types.String(it.ty))
			}
			l.b.Store(l.m.ConstInt(it.ty, e.Value), addr)

		case *ast.InitListExpr:
			if !types.IsArray(it.ty) {
				// Braces around a scalar: int x = {1};
				if len(e.Elems) != 1 {
					return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "%d initializers for scalar", len(e.Elems))
				}
				stack = append(stack, initItem{base: addr, baseTy: it.ty, index: -1, ty: it.ty, expr: e.Elems[0]})
				continue
			}
			n, err := safecast.Conv[int](types.Len(it.ty))
			if err != nil {
				return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "array of %d elements", types.Len(it.ty))
			}
			if len(e.Elems) > n {
				return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "%d initializers for %d elements", len(e.Elems), n)
			}
			elem := types.Elem(it.ty)
			for i := range n {
				var sub ast.Expr
				if i < len(e.Elems) {
					sub = e.Elems[i]
				}
				stack = append(stack, initItem{base: addr, baseTy: it.ty, index: i, ty: elem, expr: sub})
			}

		case *ast.ImplicitCastExpr, *ast.UnaryExpr, *ast.BinaryExpr, *ast.ParenExpr, *ast.DeclRefExpr, *ast.CallExpr:
			v, err := l.lowerExpr(e)
			if err != nil {
				return err
			}
			if v.Type() != it.ty {
				return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "initializer of type %s for %s",
					types.String(v.Type()), types.String(it.ty))
			}
			l.b.Store(v, addr)

		default:
			return l.errorf(diag.LowUnsupportedInit, ErrUnsupported, "initializer %T", e)
		}
	}
	return nil
}
