package astio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"sysc/internal/ast"
)

// Encode writes tu to w.
func Encode(w io.Writer, tu *ast.TranslationUnit, enc Encoding) error {
	f, err := ToFile(tu)
	if err != nil {
		return err
	}
	switch enc {
	case JSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		err = e.Encode(f)
	default:
		err = msgpack.NewEncoder(w).Encode(f)
	}
	if err != nil {
		return fmt.Errorf("astio: encode %s: %w", enc, err)
	}
	return nil
}

type encoder struct {
	ids map[ast.Decl]int
}

// ToFile converts tu into its interchange tree.
func ToFile(tu *ast.TranslationUnit) (*File, error) {
	if tu == nil {
		return nil, fmt.Errorf("astio: nil translation unit")
	}
	e := &encoder{ids: make(map[ast.Decl]int)}
	f := &File{Format: FormatName, Version: Version, Name: tu.Name}
	for _, d := range tu.Decls {
		n, err := e.decl(d)
		if err != nil {
			return nil, err
		}
		f.Decls = append(f.Decls, n)
	}
	return f, nil
}

func (e *encoder) id(d ast.Decl) int {
	if id, ok := e.ids[d]; ok {
		return id
	}
	id := len(e.ids) + 1
	e.ids[d] = id
	return id
}

func (e *encoder) decl(d ast.Decl) (*Node, error) {
	switch d := d.(type) {
	case *ast.VarDecl:
		n := &Node{Kind: KindVarDecl, ID: e.id(d), Name: d.Name, Type: typeNode(d.Type)}
		if d.Init != nil {
			init, err := e.expr(d.Init)
			if err != nil {
				return nil, err
			}
			n.Kids = []*Node{init}
		}
		return n, nil

	case *ast.FunctionDecl:
		n := &Node{Kind: KindFunctionDecl, ID: e.id(d), Name: d.Name, Type: typeNode(d.Type)}
		// Kids are the parameters followed by the body, if any.
		for _, p := range d.Params {
			pn, err := e.decl(p)
			if err != nil {
				return nil, err
			}
			n.Kids = append(n.Kids, pn)
		}
		if d.Body != nil {
			body, err := e.stmt(d.Body)
			if err != nil {
				return nil, err
			}
			n.Kids = append(n.Kids, body)
		}
		return n, nil
	}
	return nil, fmt.Errorf("astio: unsupported declaration %T", d)
}

func (e *encoder) exprs(list []ast.Expr) ([]*Node, error) {
	out := make([]*Node, len(list))
	for i, x := range list {
		n, err := e.expr(x)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (e *encoder) expr(x ast.Expr) (*Node, error) {
	if x == nil {
		return nil, nil
	}
	var (
		n    = &Node{Type: typeNode(x.ExprType())}
		subs []ast.Expr
	)
	switch x := x.(type) {
	case *ast.IntegerLiteral:
		n.Kind, n.Value = KindIntegerLiteral, x.Value
	case *ast.BinaryExpr:
		n.Kind, n.Op = KindBinaryExpr, x.Op.String()
		subs = []ast.Expr{x.LHS, x.RHS}
	case *ast.UnaryExpr:
		n.Kind, n.Op = KindUnaryExpr, x.Op.String()
		subs = []ast.Expr{x.Sub}
	case *ast.ParenExpr:
		n.Kind = KindParenExpr
		subs = []ast.Expr{x.Sub}
	case *ast.ImplicitCastExpr:
		n.Kind, n.Op = KindImplicitCastExpr, x.Kind.String()
		subs = []ast.Expr{x.Sub}
	case *ast.DeclRefExpr:
		n.Kind, n.Name = KindDeclRefExpr, x.Name
		if x.Decl != nil {
			n.Ref = e.id(x.Decl)
		}
	case *ast.CallExpr:
		n.Kind = KindCallExpr
		subs = append([]ast.Expr{x.Callee}, x.Args...)
	case *ast.InitListExpr:
		n.Kind = KindInitListExpr
		subs = x.Elems
	case *ast.ImplicitInitExpr:
		n.Kind = KindImplicitInitExpr
	default:
		return nil, fmt.Errorf("astio: unsupported expression %T", x)
	}
	kids, err := e.exprs(subs)
	if err != nil {
		return nil, err
	}
	if len(kids) > 0 {
		n.Kids = kids
	}
	return n, nil
}

func (e *encoder) stmt(s ast.Stmt) (*Node, error) {
	if s == nil {
		return nil, nil
	}
	switch s := s.(type) {
	case *ast.CompoundStmt:
		n := &Node{Kind: KindCompoundStmt}
		for _, sub := range s.Subs {
			k, err := e.stmt(sub)
			if err != nil {
				return nil, err
			}
			n.Kids = append(n.Kids, k)
		}
		return n, nil
	case *ast.ReturnStmt:
		return e.withExprs(KindReturnStmt, s.Expr)
	case *ast.ExprStmt:
		return e.withExprs(KindExprStmt, s.Expr)
	case *ast.DeclStmt:
		n := &Node{Kind: KindDeclStmt}
		for _, d := range s.Decls {
			k, err := e.decl(d)
			if err != nil {
				return nil, err
			}
			n.Kids = append(n.Kids, k)
		}
		return n, nil
	case *ast.IfStmt:
		return e.mixed(KindIfStmt, s.Cond, s.Then, s.Else)
	case *ast.WhileStmt:
		return e.mixed(KindWhileStmt, s.Cond, s.Body)
	case *ast.DoStmt:
		// Body first, as written.
		body, err := e.stmt(s.Body)
		if err != nil {
			return nil, err
		}
		cond, err := e.expr(s.Cond)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDoStmt, Kids: []*Node{body, cond}}, nil
	case *ast.BreakStmt:
		return &Node{Kind: KindBreakStmt}, nil
	case *ast.ContinueStmt:
		return &Node{Kind: KindContinueStmt}, nil
	case *ast.NullStmt:
		return &Node{Kind: KindNullStmt}, nil
	}
	return nil, fmt.Errorf("astio: unsupported statement %T", s)
}

func (e *encoder) withExprs(kind string, x ast.Expr) (*Node, error) {
	n := &Node{Kind: kind}
	if x != nil {
		k, err := e.expr(x)
		if err != nil {
			return nil, err
		}
		n.Kids = []*Node{k}
	}
	return n, nil
}

// mixed encodes a condition followed by statements.
func (e *encoder) mixed(kind string, cond ast.Expr, stmts ...ast.Stmt) (*Node, error) {
	c, err := e.expr(cond)
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: kind, Kids: []*Node{c}}
	for _, s := range stmts {
		k, err := e.stmt(s)
		if err != nil {
			return nil, err
		}
		n.Kids = append(n.Kids, k)
	}
	return n, nil
}

func typeNode(t *ast.Type) *TypeNode {
	if t == nil {
		return nil
	}
	out := &TypeNode{Spec: t.Spec.String(), Const: t.Const}
	for x := t.Expr; x != nil; x = x.Sub() {
		switch v := x.(type) {
		case *ast.PointerType:
			out.Chain = append(out.Chain, &TypeLink{Kind: LinkPointer})
		case *ast.ArrayType:
			out.Chain = append(out.Chain, &TypeLink{Kind: LinkArray, Len: v.Len, Unknown: v.Unknown})
		case *ast.FunctionType:
			link := &TypeLink{Kind: LinkFunction}
			for _, p := range v.Params {
				link.Params = append(link.Params, typeNode(p))
			}
			out.Chain = append(out.Chain, link)
		}
	}
	return out
}
