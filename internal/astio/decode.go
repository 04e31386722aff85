package astio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"

	"sysc/internal/ast"
)

// Decode reads one translation unit from r.
func Decode(r io.Reader, enc Encoding) (*ast.TranslationUnit, error) {
	var f File
	var err error
	switch enc {
	case JSON:
		err = json.NewDecoder(r).Decode(&f)
	default:
		err = msgpack.NewDecoder(r).Decode(&f)
	}
	if err != nil {
		return nil, fmt.Errorf("astio: decode %s: %w", enc, err)
	}
	return FromFile(&f)
}

// ReadFile decodes path, picking the encoding from its extension.
func ReadFile(path string) (*ast.TranslationUnit, error) {
	enc, err := EncodingFor(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("astio: %w", err)
	}
	defer fh.Close()
	tu, err := Decode(fh, enc)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	if tu.Name == "" {
		tu.Name = path
	}
	return tu, nil
}

var (
	specs = map[string]ast.TypeSpec{
		ast.SpecVoid.String():     ast.SpecVoid,
		ast.SpecChar.String():     ast.SpecChar,
		ast.SpecInt.String():      ast.SpecInt,
		ast.SpecLongLong.String(): ast.SpecLongLong,
	}
	binaryOps = reverse(ast.BinAdd, ast.BinIndex, ast.BinaryOp.String)
	unaryOps  = reverse(ast.UnPos, ast.UnNot, ast.UnaryOp.String)
	castKinds = reverse(ast.CastLValueToRValue, ast.CastFunctionToPointerDecay, ast.CastKind.String)
)

// reverse maps the names of the enum values first..last back to values.
func reverse[T ~uint8](first, last T, name func(T) string) map[string]T {
	out := make(map[string]T, int(last-first)+1)
	for v := first; v <= last; v++ {
		out[name(v)] = v
	}
	return out
}

type decoder struct {
	decls map[int]ast.Decl
}

// FromFile validates the header of f and rebuilds the translation unit.
func FromFile(f *File) (*ast.TranslationUnit, error) {
	if err := checkHeader(f); err != nil {
		return nil, err
	}
	d := &decoder{decls: make(map[int]ast.Decl)}
	tu := &ast.TranslationUnit{Name: norm.NFC.String(f.Name)}
	for i, n := range f.Decls {
		decl, err := d.decl(n)
		if err != nil {
			return nil, fmt.Errorf("astio: decl %d: %w", i, err)
		}
		tu.Decls = append(tu.Decls, decl)
	}
	return tu, nil
}

func (d *decoder) register(n *Node, decl ast.Decl) error {
	if n.ID == 0 {
		return nil
	}
	if _, dup := d.decls[n.ID]; dup {
		return fmt.Errorf("duplicate declaration id %d", n.ID)
	}
	d.decls[n.ID] = decl
	return nil
}

func (d *decoder) decl(n *Node) (ast.Decl, error) {
	if n == nil {
		return nil, fmt.Errorf("missing declaration")
	}
	ty, err := typeOf(n.Type)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", n.Kind, n.Name, err)
	}
	name := norm.NFC.String(n.Name)
	switch n.Kind {
	case KindVarDecl:
		v := &ast.VarDecl{Name: name, Type: ty}
		if err := d.register(n, v); err != nil {
			return nil, err
		}
		if len(n.Kids) > 0 {
			if v.Init, err = d.expr(n.Kids[0]); err != nil {
				return nil, fmt.Errorf("init of %q: %w", name, err)
			}
		}
		return v, nil

	case KindFunctionDecl:
		fn := &ast.FunctionDecl{Name: name, Type: ty}
		// Registered before the body so recursive calls resolve.
		if err := d.register(n, fn); err != nil {
			return nil, err
		}
		for _, k := range n.Kids {
			switch {
			case k != nil && k.Kind == KindVarDecl:
				p, err := d.decl(k)
				if err != nil {
					return nil, fmt.Errorf("parameter of %q: %w", name, err)
				}
				fn.Params = append(fn.Params, p.(*ast.VarDecl))
			case k != nil && k.Kind == KindCompoundStmt:
				body, err := d.stmt(k)
				if err != nil {
					return nil, fmt.Errorf("body of %q: %w", name, err)
				}
				fn.Body = body.(*ast.CompoundStmt)
			default:
				return nil, fmt.Errorf("unexpected child of %q", name)
			}
		}
		return fn, nil
	}
	return nil, fmt.Errorf("%q is not a declaration kind", n.Kind)
}

func (d *decoder) exprs(nodes []*Node) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(nodes))
	for i, k := range nodes {
		x, err := d.expr(k)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (d *decoder) expr(n *Node) (ast.Expr, error) {
	if n == nil {
		return nil, nil
	}
	ty, err := typeOf(n.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Kind, err)
	}
	kids, err := d.exprs(n.Kids)
	if err != nil {
		return nil, err
	}
	arity := func(want int) error {
		if len(kids) != want {
			return fmt.Errorf("%s has %d operands, want %d", n.Kind, len(kids), want)
		}
		return nil
	}

	switch n.Kind {
	case KindIntegerLiteral:
		return &ast.IntegerLiteral{Type: ty, Value: n.Value}, nil
	case KindBinaryExpr:
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", n.Op)
		}
		if err := arity(2); err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Type: ty, Op: op, LHS: kids[0], RHS: kids[1]}, nil
	case KindUnaryExpr:
		op, ok := unaryOps[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", n.Op)
		}
		if err := arity(1); err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Type: ty, Op: op, Sub: kids[0]}, nil
	case KindParenExpr:
		if err := arity(1); err != nil {
			return nil, err
		}
		return &ast.ParenExpr{Type: ty, Sub: kids[0]}, nil
	case KindImplicitCastExpr:
		kind, ok := castKinds[n.Op]
		if !ok {
			return nil, fmt.Errorf("unknown cast kind %q", n.Op)
		}
		if err := arity(1); err != nil {
			return nil, err
		}
		return &ast.ImplicitCastExpr{Type: ty, Kind: kind, Sub: kids[0]}, nil
	case KindDeclRefExpr:
		ref := &ast.DeclRefExpr{Type: ty, Name: norm.NFC.String(n.Name)}
		if n.Ref != 0 {
			decl, ok := d.decls[n.Ref]
			if !ok {
				return nil, fmt.Errorf("reference to %q: no declaration #%d before it", n.Name, n.Ref)
			}
			ref.Decl = decl
		}
		return ref, nil
	case KindCallExpr:
		if len(kids) == 0 {
			return nil, fmt.Errorf("call without callee")
		}
		return &ast.CallExpr{Type: ty, Callee: kids[0], Args: kids[1:]}, nil
	case KindInitListExpr:
		return &ast.InitListExpr{Type: ty, Elems: kids}, nil
	case KindImplicitInitExpr:
		return &ast.ImplicitInitExpr{Type: ty}, nil
	}
	return nil, fmt.Errorf("%q is not an expression kind", n.Kind)
}

func (d *decoder) stmt(n *Node) (ast.Stmt, error) {
	if n == nil {
		return nil, nil
	}
	kid := func(i int) *Node {
		if i < len(n.Kids) {
			return n.Kids[i]
		}
		return nil
	}
	switch n.Kind {
	case KindCompoundStmt:
		c := &ast.CompoundStmt{}
		for _, k := range n.Kids {
			s, err := d.stmt(k)
			if err != nil {
				return nil, err
			}
			if s != nil {
				c.Subs = append(c.Subs, s)
			}
		}
		return c, nil
	case KindReturnStmt:
		x, err := d.expr(kid(0))
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Expr: x}, nil
	case KindExprStmt:
		x, err := d.expr(kid(0))
		if err != nil {
			return nil, err
		}
		if x == nil {
			return nil, fmt.Errorf("expression statement without expression")
		}
		return &ast.ExprStmt{Expr: x}, nil
	case KindDeclStmt:
		ds := &ast.DeclStmt{}
		for _, k := range n.Kids {
			decl, err := d.decl(k)
			if err != nil {
				return nil, err
			}
			ds.Decls = append(ds.Decls, decl)
		}
		return ds, nil
	case KindIfStmt:
		cond, err := d.expr(kid(0))
		if err != nil {
			return nil, err
		}
		then, err := d.stmt(kid(1))
		if err != nil {
			return nil, err
		}
		els, err := d.stmt(kid(2))
		if err != nil {
			return nil, err
		}
		return &ast.IfStmt{Cond: cond, Then: then, Else: els}, nil
	case KindWhileStmt:
		cond, err := d.expr(kid(0))
		if err != nil {
			return nil, err
		}
		body, err := d.stmt(kid(1))
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil
	case KindDoStmt:
		body, err := d.stmt(kid(0))
		if err != nil {
			return nil, err
		}
		cond, err := d.expr(kid(1))
		if err != nil {
			return nil, err
		}
		return &ast.DoStmt{Body: body, Cond: cond}, nil
	case KindBreakStmt:
		return &ast.BreakStmt{}, nil
	case KindContinueStmt:
		return &ast.ContinueStmt{}, nil
	case KindNullStmt:
		return &ast.NullStmt{}, nil
	}
	return nil, fmt.Errorf("%q is not a statement kind", n.Kind)
}

func typeOf(t *TypeNode) (*ast.Type, error) {
	if t == nil {
		return nil, nil
	}
	spec, ok := specs[t.Spec]
	if !ok {
		return nil, fmt.Errorf("unknown type specifier %q", t.Spec)
	}
	var expr ast.TypeExpr
	for i := len(t.Chain) - 1; i >= 0; i-- {
		link := t.Chain[i]
		if link == nil {
			return nil, fmt.Errorf("empty declarator")
		}
		switch link.Kind {
		case LinkPointer:
			expr = &ast.PointerType{Elem: expr}
		case LinkArray:
			expr = &ast.ArrayType{Elem: expr, Len: link.Len, Unknown: link.Unknown}
		case LinkFunction:
			fn := &ast.FunctionType{Result: expr}
			for _, p := range link.Params {
				pt, err := typeOf(p)
				if err != nil {
					return nil, err
				}
				fn.Params = append(fn.Params, pt)
			}
			expr = fn
		default:
			return nil, fmt.Errorf("unknown declarator %q", link.Kind)
		}
	}
	return &ast.Type{Spec: spec, Const: t.Const, Expr: expr}, nil
}
