package ast

import (
	"fmt"
	"strings"
)

// TypeSpec names the base type a type-expression chain bottoms out in.
type TypeSpec uint8

const (
	SpecInvalid TypeSpec = iota
	SpecVoid
	SpecChar
	SpecInt
	SpecLongLong
)

func (s TypeSpec) String() string {
	switch s {
	case SpecVoid:
		return "void"
	case SpecChar:
		return "char"
	case SpecInt:
		return "int"
	case SpecLongLong:
		return "long long"
	default:
		return fmt.Sprintf("TypeSpec(%d)", s)
	}
}

// TypeExpr is one link of a type-expression chain. The outermost link is the
// top-level type constructor; Sub is what it is applied to.
type TypeExpr interface {
	Sub() TypeExpr
	typeExpr()
}

// PointerType is "pointer to Sub".
type PointerType struct {
	Elem TypeExpr
}

// ArrayType is "array of Len Sub". Unknown marks arrays without a length,
// such as decayed parameters (int a[]).
type ArrayType struct {
	Elem    TypeExpr
	Len     int64
	Unknown bool
}

// FunctionType is "function taking Params returning Sub".
type FunctionType struct {
	Result TypeExpr
	Params []*Type
}

func (t *PointerType) Sub() TypeExpr  { return t.Elem }
func (t *ArrayType) Sub() TypeExpr    { return t.Elem }
func (t *FunctionType) Sub() TypeExpr { return t.Result }

func (*PointerType) typeExpr()  {}
func (*ArrayType) typeExpr()    {}
func (*FunctionType) typeExpr() {}

// Type is a base specifier plus an optional type-expression chain.
// A nil Expr means the type is the base type itself.
type Type struct {
	Spec  TypeSpec
	Const bool
	Expr  TypeExpr
}

// Sub returns the type with the outermost chain link stripped.
func (t *Type) Sub() *Type {
	if t == nil || t.Expr == nil {
		return nil
	}
	return &Type{Spec: t.Spec, Const: t.Const, Expr: t.Expr.Sub()}
}

// IsVoid reports whether t is plain void.
func (t *Type) IsVoid() bool {
	return t != nil && t.Expr == nil && t.Spec == SpecVoid
}

// Function returns the outermost function link, if any.
func (t *Type) Function() (*FunctionType, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.Expr.(*FunctionType)
	return fn, ok
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if t.Const {
		sb.WriteString("const ")
	}
	sb.WriteString(t.Spec.String())
	for e := t.Expr; e != nil; e = e.Sub() {
		switch v := e.(type) {
		case *PointerType:
			sb.WriteString(" *")
		case *ArrayType:
			if v.Unknown {
				sb.WriteString(" []")
			} else {
				fmt.Fprintf(&sb, " [%d]", v.Len)
			}
		case *FunctionType:
			sb.WriteString(" (")
			for i, p := range v.Params {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(p.String())
			}
			sb.WriteString(")")
		}
	}
	return sb.String()
}

// Convenience constructors used by decoders and tests.

func Int() *Type  { return &Type{Spec: SpecInt} }
func Void() *Type { return &Type{Spec: SpecVoid} }

// PointerTo wraps t in a pointer link.
func PointerTo(t *Type) *Type {
	return &Type{Spec: t.Spec, Const: t.Const, Expr: &PointerType{Elem: t.Expr}}
}

// ArrayOf wraps t in an array link of the given length.
func ArrayOf(t *Type, n int64) *Type {
	return &Type{Spec: t.Spec, Const: t.Const, Expr: &ArrayType{Elem: t.Expr, Len: n}}
}

// ArrayOfUnknown wraps t in an array link without a length.
func ArrayOfUnknown(t *Type) *Type {
	return &Type{Spec: t.Spec, Const: t.Const, Expr: &ArrayType{Elem: t.Expr, Unknown: true}}
}

// FuncOf builds a function type returning result.
func FuncOf(result *Type, params ...*Type) *Type {
	return &Type{Spec: result.Spec, Const: result.Const, Expr: &FunctionType{Result: result.Expr, Params: params}}
}
