package emit

import (
	"fmt"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
	"sysc/internal/trace"
)

// declareFunction returns the IR function for d, reusing an earlier
// prototype of the same name.
func (l *lowerer) declareFunction(d *ast.FunctionDecl) (*ir.Func, error) {
	if _, ok := d.Type.Function(); !ok {
		return nil, &Error{Code: diag.LowUnsupportedDecl, Where: diag.Location{Func: d.Name},
			Msg: fmt.Sprintf("function %q has type %s", d.Name, d.Type), Kind: ErrUnsupported}
	}
	sig, err := l.lowerType(d.Type)
	if err != nil {
		return nil, err
	}
	if fn := l.m.Func(d.Name); fn != nil {
		if fn.Sig != sig {
			return nil, &Error{Code: diag.LowUnsupportedDecl, Where: diag.Location{Func: d.Name},
				Msg: fmt.Sprintf("conflicting types for %q", d.Name), Kind: ErrUnsupported}
		}
		l.bindings[d] = binding{fn: fn}
		return fn, nil
	}
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	fn := l.m.NewFunc(d.Name, sig, names...)
	l.bindings[d] = binding{fn: fn}
	return fn, nil
}

func (l *lowerer) lowerFunction(d *ast.FunctionDecl) error {
	fn, err := l.declareFunction(d)
	if err != nil {
		return err
	}
	if d.Body == nil {
		return nil
	}
	if !fn.IsDeclaration() {
		return &Error{Code: diag.LowUnsupportedDecl, Where: diag.Location{Func: d.Name},
			Msg: fmt.Sprintf("redefinition of %q", d.Name), Kind: ErrUnsupported}
	}
	if len(d.Params) != len(fn.Params) {
		return &Error{Code: diag.LowUnsupportedDecl, Where: diag.Location{Func: d.Name},
			Msg: fmt.Sprintf("%d parameter declarations for %d parameters", len(d.Params), len(fn.Params)), Kind: ErrUnsupported}
	}

	span := trace.Begin(l.tracer, trace.ScopeFunc, "func:"+d.Name, l.spanID)
	fl := l.newFuncLowerer(fn)
	fl.funcSpan = span.ID()
	fl.startBlock(fn.NewBlock("entry"))
	fl.pushScope()

	for i, p := range d.Params {
		param := fn.Params[i]
		param.Name = p.Name
		slot := fl.stackSlot(param.Ty, p.Name+".addr")
		fl.b.Store(param, slot)
		fl.declare(p, binding{addr: slot, ty: param.Ty})
	}

	if err := fl.lowerStmt(d.Body); err != nil {
		span.End("failed")
		return err
	}
	fl.popScope()
	fl.finish()
	span.WithExtra("blocks", fmt.Sprint(len(fn.Blocks))).End("")
	return nil
}

func (l *funcLowerer) lowerLocalDecl(d ast.Decl) error {
	switch d := d.(type) {
	case *ast.VarDecl:
		ty, err := l.lowerType(d.Type)
		if err != nil {
			return err
		}
		slot := l.stackSlot(ty, d.Name)
		l.declare(d, binding{addr: slot, ty: ty})
		if d.Init == nil {
			return nil
		}
		return l.transInit(slot, ty, d.Init)
	case *ast.FunctionDecl:
		if d.Body != nil {
			return l.errorf(diag.LowUnsupportedDecl, ErrUnsupported, "nested function %q", d.Name)
		}
		fn, err := l.declareFunction(d)
		if err != nil {
			return err
		}
		l.declare(d, binding{fn: fn})
		return nil
	}
	return l.errorf(diag.LowUnsupportedDecl, ErrUnsupported, "declaration %T", d)
}

// lowerGlobal creates zero-initialized storage of the declared type. An
// initializer runs in a private constructor registered with the default
// priority.
func (l *lowerer) lowerGlobal(d *ast.VarDecl) error {
	ty, err := l.lowerType(d.Type)
	if err != nil {
		return err
	}
	if l.m.Types.IsVoid(ty) {
		return &Error{Code: diag.LowUnsupportedDecl, Msg: fmt.Sprintf("global %q of type void", d.Name), Kind: ErrUnsupported}
	}
	g := l.m.Global(d.Name)
	switch {
	case g == nil:
		g = l.m.NewGlobal(d.Name, ty)
	case g.Elem != ty:
		return &Error{Code: diag.LowUnsupportedDecl, Msg: fmt.Sprintf("conflicting types for %q", d.Name), Kind: ErrUnsupported}
	}
	l.bindings[d] = binding{addr: g, ty: ty}
	if d.Init == nil {
		return nil
	}

	ctorName := "__init_" + d.Name
	if l.m.Func(ctorName) != nil {
		return &Error{Code: diag.LowUnsupportedDecl, Msg: fmt.Sprintf("global %q initialized twice", d.Name), Kind: ErrUnsupported}
	}
	bt := l.m.Types.Builtins()
	ctor := l.m.NewFunc(ctorName, l.m.Types.Func(nil, bt.Void))
	ctor.Linkage = ir.LinkagePrivate
	l.m.AddCtor(ctor, ir.DefaultCtorPriority)

	span := trace.Begin(l.tracer, trace.ScopeFunc, "func:"+ctorName, l.spanID)
	fl := l.newFuncLowerer(ctor)
	fl.funcSpan = span.ID()
	fl.startBlock(ctor.NewBlock("entry"))
	if err := fl.transInit(g, ty, d.Init); err != nil {
		span.End("failed")
		return err
	}
	fl.finish()
	span.End("")
	return nil
}
