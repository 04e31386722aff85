package ast

import "fmt"

// Expr is any typed expression node.
type Expr interface {
	ExprType() *Type
	exprNode()
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinInvalid BinaryOp = iota
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
	BinLt
	BinLe
	BinGt
	BinGe
	BinEq
	BinNe
	BinLogicalAnd
	BinLogicalOr
	BinAssign
	BinComma
	BinIndex
)

var binaryOpNames = [...]string{
	BinInvalid:    "<invalid>",
	BinAdd:        "+",
	BinSub:        "-",
	BinMul:        "*",
	BinDiv:        "/",
	BinMod:        "%",
	BinLt:         "<",
	BinLe:         "<=",
	BinGt:         ">",
	BinGe:         ">=",
	BinEq:         "==",
	BinNe:         "!=",
	BinLogicalAnd: "&&",
	BinLogicalOr:  "||",
	BinAssign:     "=",
	BinComma:      ",",
	BinIndex:      "[]",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// IsComparison reports whether op yields a truth value from two integers.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case BinLt, BinLe, BinGt, BinGe, BinEq, BinNe:
		return true
	}
	return false
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnInvalid UnaryOp = iota
	UnPos
	UnNeg
	UnNot
)

func (op UnaryOp) String() string {
	switch op {
	case UnPos:
		return "+"
	case UnNeg:
		return "-"
	case UnNot:
		return "!"
	default:
		return fmt.Sprintf("UnaryOp(%d)", op)
	}
}

// CastKind enumerates implicit conversions inserted by semantic analysis.
type CastKind uint8

const (
	CastInvalid CastKind = iota
	CastLValueToRValue
	CastIntegral
	CastArrayToPointerDecay
	CastFunctionToPointerDecay
)

func (k CastKind) String() string {
	switch k {
	case CastLValueToRValue:
		return "LValueToRValue"
	case CastIntegral:
		return "IntegralCast"
	case CastArrayToPointerDecay:
		return "ArrayToPointerDecay"
	case CastFunctionToPointerDecay:
		return "FunctionToPointerDecay"
	default:
		return fmt.Sprintf("CastKind(%d)", k)
	}
}

type IntegerLiteral struct {
	Type  *Type
	Value int64
}

type BinaryExpr struct {
	Type *Type
	Op   BinaryOp
	LHS  Expr
	RHS  Expr
}

type UnaryExpr struct {
	Type *Type
	Op   UnaryOp
	Sub  Expr
}

type ParenExpr struct {
	Type *Type
	Sub  Expr
}

type ImplicitCastExpr struct {
	Type *Type
	Kind CastKind
	Sub  Expr
}

// DeclRefExpr names a declaration. Decl is set when the producer kept the
// binding; decoders that only carry names leave it nil.
type DeclRefExpr struct {
	Type *Type
	Name string
	Decl Decl
}

type CallExpr struct {
	Type   *Type
	Callee Expr
	Args   []Expr
}

// InitListExpr is a braced initializer for one array level.
type InitListExpr struct {
	Type  *Type
	Elems []Expr
}

// ImplicitInitExpr marks storage that must be default (zero) initialized.
type ImplicitInitExpr struct {
	Type *Type
}

func (e *IntegerLiteral) ExprType() *Type   { return e.Type }
func (e *BinaryExpr) ExprType() *Type       { return e.Type }
func (e *UnaryExpr) ExprType() *Type        { return e.Type }
func (e *ParenExpr) ExprType() *Type        { return e.Type }
func (e *ImplicitCastExpr) ExprType() *Type { return e.Type }
func (e *DeclRefExpr) ExprType() *Type      { return e.Type }
func (e *CallExpr) ExprType() *Type         { return e.Type }
func (e *InitListExpr) ExprType() *Type     { return e.Type }
func (e *ImplicitInitExpr) ExprType() *Type { return e.Type }

func (*IntegerLiteral) exprNode()   {}
func (*BinaryExpr) exprNode()       {}
func (*UnaryExpr) exprNode()        {}
func (*ParenExpr) exprNode()        {}
func (*ImplicitCastExpr) exprNode() {}
func (*DeclRefExpr) exprNode()      {}
func (*CallExpr) exprNode()         {}
func (*InitListExpr) exprNode()     {}
func (*ImplicitInitExpr) exprNode() {}
