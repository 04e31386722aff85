// Package testkit holds AST construction helpers and IR invariant checks
// shared by the package tests.
package testkit

import "sysc/internal/ast"

// Var declares a variable of type t.
func Var(name string, t *ast.Type) *ast.VarDecl {
	return &ast.VarDecl{Name: name, Type: t}
}

// VarInit declares a variable with an initializer.
func VarInit(name string, t *ast.Type, init ast.Expr) *ast.VarDecl {
	return &ast.VarDecl{Name: name, Type: t, Init: init}
}

// Lit is an int literal.
func Lit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Type: ast.Int(), Value: v}
}

// LitOf is a literal of type t.
func LitOf(t *ast.Type, v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Type: t, Value: v}
}

// Ref names d and carries the binding.
func Ref(d ast.Decl) *ast.DeclRefExpr {
	return &ast.DeclRefExpr{Type: d.DeclType(), Name: d.DeclName(), Decl: d}
}

// Name refers to an identifier without a binding.
func Name(name string, t *ast.Type) *ast.DeclRefExpr {
	return &ast.DeclRefExpr{Type: t, Name: name}
}

// RValue loads the value of an lvalue expression.
func RValue(e ast.Expr) *ast.ImplicitCastExpr {
	return &ast.ImplicitCastExpr{Type: e.ExprType(), Kind: ast.CastLValueToRValue, Sub: e}
}

// Load reads variable d.
func Load(d *ast.VarDecl) *ast.ImplicitCastExpr {
	return RValue(Ref(d))
}

// Cast converts an integer expression to t.
func Cast(t *ast.Type, e ast.Expr) *ast.ImplicitCastExpr {
	return &ast.ImplicitCastExpr{Type: t, Kind: ast.CastIntegral, Sub: e}
}

// Bin applies an int-typed binary operator.
func Bin(op ast.BinaryOp, lhs, rhs ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Type: ast.Int(), Op: op, LHS: lhs, RHS: rhs}
}

// BinOf applies a binary operator producing type t.
func BinOf(t *ast.Type, op ast.BinaryOp, lhs, rhs ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Type: t, Op: op, LHS: lhs, RHS: rhs}
}

// Not is logical negation.
func Not(e ast.Expr) *ast.UnaryExpr {
	return &ast.UnaryExpr{Type: ast.Int(), Op: ast.UnNot, Sub: e}
}

// Neg is arithmetic negation.
func Neg(e ast.Expr) *ast.UnaryExpr {
	return &ast.UnaryExpr{Type: e.ExprType(), Op: ast.UnNeg, Sub: e}
}

// Assign stores e into variable d.
func Assign(d *ast.VarDecl, e ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Type: d.Type, Op: ast.BinAssign, LHS: Ref(d), RHS: e}
}

// Elem is the lvalue arr[idx] for an array or array-parameter variable.
func Elem(arr *ast.VarDecl, idx ast.Expr) *ast.BinaryExpr {
	elem := arr.Type.Sub()
	decay := &ast.ImplicitCastExpr{Type: ast.PointerTo(elem), Kind: ast.CastArrayToPointerDecay, Sub: Ref(arr)}
	return &ast.BinaryExpr{Type: elem, Op: ast.BinIndex, LHS: decay, RHS: idx}
}

// Call calls fn directly.
func Call(fn *ast.FunctionDecl, args ...ast.Expr) *ast.CallExpr {
	result := fn.Type.Sub()
	callee := &ast.ImplicitCastExpr{Type: ast.PointerTo(fn.Type), Kind: ast.CastFunctionToPointerDecay, Sub: Ref(fn)}
	return &ast.CallExpr{Type: result, Callee: callee, Args: args}
}

// List is a braced initializer for type t.
func List(t *ast.Type, elems ...ast.Expr) *ast.InitListExpr {
	return &ast.InitListExpr{Type: t, Elems: elems}
}

// Func defines a function with the given result and parameters.
func Func(name string, result *ast.Type, params []*ast.VarDecl, body ...ast.Stmt) *ast.FunctionDecl {
	d := Proto(name, result, params...)
	d.Body = &ast.CompoundStmt{Subs: body}
	return d
}

// Proto declares a function without a body.
func Proto(name string, result *ast.Type, params ...*ast.VarDecl) *ast.FunctionDecl {
	types := make([]*ast.Type, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return &ast.FunctionDecl{Name: name, Type: ast.FuncOf(result, types...), Params: params}
}

// Params is shorthand for a parameter list.
func Params(ps ...*ast.VarDecl) []*ast.VarDecl { return ps }

func Block(subs ...ast.Stmt) *ast.CompoundStmt { return &ast.CompoundStmt{Subs: subs} }
func Return(e ast.Expr) *ast.ReturnStmt        { return &ast.ReturnStmt{Expr: e} }
func ReturnVoid() *ast.ReturnStmt              { return &ast.ReturnStmt{} }
func Expr(e ast.Expr) *ast.ExprStmt            { return &ast.ExprStmt{Expr: e} }
func Decl(ds ...ast.Decl) *ast.DeclStmt        { return &ast.DeclStmt{Decls: ds} }
func While(c ast.Expr, body ast.Stmt) *ast.WhileStmt {
	return &ast.WhileStmt{Cond: c, Body: body}
}
func Do(body ast.Stmt, c ast.Expr) *ast.DoStmt { return &ast.DoStmt{Body: body, Cond: c} }
func If(c ast.Expr, then ast.Stmt) *ast.IfStmt { return &ast.IfStmt{Cond: c, Then: then} }
func IfElse(c ast.Expr, then, els ast.Stmt) *ast.IfStmt {
	return &ast.IfStmt{Cond: c, Then: then, Else: els}
}
func Break() *ast.BreakStmt       { return &ast.BreakStmt{} }
func Continue() *ast.ContinueStmt { return &ast.ContinueStmt{} }

// Unit wraps declarations in a translation unit.
func Unit(name string, decls ...ast.Decl) *ast.TranslationUnit {
	return &ast.TranslationUnit{Name: name, Decls: decls}
}

// ClampProgram is int clamp(int n) { if (n < 0) return 0; return n; }.
func ClampProgram() *ast.TranslationUnit {
	n := Var("n", ast.Int())
	f := Func("clamp", ast.Int(), Params(n),
		If(Bin(ast.BinLt, Load(n), Lit(0)), Return(Lit(0))),
		Return(Load(n)),
	)
	return Unit("clamp.c", f)
}

// SumProgram adds 0..n-1 with a while loop, skipping 3 and never past 6
// (sum(5) == 7, sum(100) == 18):
//
//	int sum(int n) {
//	  int i = 0; int s = 0;
//	  while (i < n) {
//	    i = i + 1;
//	    if (i == 4) continue;
//	    if (i > 7) break;
//	    s = s + (i - 1);
//	  }
//	  return s;
//	}
func SumProgram() *ast.TranslationUnit {
	n := Var("n", ast.Int())
	i := VarInit("i", ast.Int(), Lit(0))
	s := VarInit("s", ast.Int(), Lit(0))
	f := Func("sum", ast.Int(), Params(n),
		Decl(i, s),
		While(Bin(ast.BinLt, Load(i), Load(n)), Block(
			Expr(Assign(i, Bin(ast.BinAdd, Load(i), Lit(1)))),
			If(Bin(ast.BinEq, Load(i), Lit(4)), Continue()),
			If(Bin(ast.BinGt, Load(i), Lit(7)), Break()),
			Expr(Assign(s, Bin(ast.BinAdd, Load(s), Bin(ast.BinSub, Load(i), Lit(1))))),
		)),
		Return(Load(s)),
	)
	return Unit("sum.c", f)
}
