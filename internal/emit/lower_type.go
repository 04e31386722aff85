package emit

import (
	"fmt"

	"fortio.org/safecast"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
)

// lowerType maps an AST type to its IR type. Arrays without a length become
// pointers to their element; void* becomes i8*.
func (l *lowerer) lowerType(t *ast.Type) (ir.TypeID, error) {
	if t == nil {
		return ir.NoTypeID, &Error{Code: diag.LowUnsupportedType, Msg: "missing type", Kind: ErrUnsupported}
	}
	types := l.m.Types
	bt := types.Builtins()

	if t.Expr == nil {
		switch t.Spec {
		case ast.SpecVoid:
			return bt.Void, nil
		case ast.SpecChar:
			return bt.I8, nil
		case ast.SpecInt:
			return bt.I32, nil
		case ast.SpecLongLong:
			return bt.I64, nil
		}
		return ir.NoTypeID, &Error{Code: diag.LowUnsupportedType, Msg: fmt.Sprintf("type %s", t), Kind: ErrUnsupported}
	}

	sub := t.Sub()
	switch e := t.Expr.(type) {
	case *ast.PointerType:
		elem, err := l.lowerType(sub)
		if err != nil {
			return ir.NoTypeID, err
		}
		if types.IsVoid(elem) {
			elem = bt.I8
		}
		return types.Pointer(elem), nil

	case *ast.ArrayType:
		elem, err := l.lowerType(sub)
		if err != nil {
			return ir.NoTypeID, err
		}
		if e.Unknown {
			return types.Pointer(elem), nil
		}
		n, err := safecast.Conv[uint64](e.Len)
		if err != nil {
			return ir.NoTypeID, &Error{Code: diag.LowUnsupportedType, Msg: fmt.Sprintf("array length %d", e.Len), Kind: ErrUnsupported}
		}
		return types.Array(elem, n), nil

	case *ast.FunctionType:
		result, err := l.lowerType(sub)
		if err != nil {
			return ir.NoTypeID, err
		}
		params := make([]ir.TypeID, 0, len(e.Params))
		for _, p := range e.Params {
			pt, err := l.lowerParamType(p)
			if err != nil {
				return ir.NoTypeID, err
			}
			params = append(params, pt)
		}
		return types.Func(params, result), nil
	}
	return ir.NoTypeID, &Error{Code: diag.LowUnsupportedType, Msg: fmt.Sprintf("type %s", t), Kind: ErrUnsupported}
}

// lowerParamType applies parameter adjustment: arrays of any length are
// passed as pointers to their element.
func (l *lowerer) lowerParamType(t *ast.Type) (ir.TypeID, error) {
	if isArray(t) {
		elem, err := l.lowerType(t.Sub())
		if err != nil {
			return ir.NoTypeID, err
		}
		return l.m.Types.Pointer(elem), nil
	}
	return l.lowerType(t)
}

func isArray(t *ast.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Expr.(*ast.ArrayType)
	return ok
}
