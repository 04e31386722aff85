// Package emit lowers a typed AST into the basic-block IR.
//
// Lowering is all-or-nothing: an unsupported construct or an unresolved
// identifier stops it and no module is returned. Stack slots for locals and
// parameters are placed at the start of the entry block. Loops push a
// break/continue target pair on a stack and compound statements push a
// lexical scope, so jumps and name lookup never depend on block order.
package emit

import (
	"context"
	"errors"
	"fmt"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
	"sysc/internal/trace"
)

var (
	// ErrUnsupported classifies constructs the lowering does not handle.
	ErrUnsupported = errors.New("unsupported construct")
	// ErrUnresolved classifies identifier references that name nothing.
	ErrUnresolved = errors.New("unresolved identifier")
)

// Error reports where and why lowering stopped. It unwraps to
// ErrUnsupported or ErrUnresolved.
type Error struct {
	Code  diag.Code
	Where diag.Location
	Msg   string
	Kind  error
}

func (e *Error) Error() string {
	if e.Where.Func != "" {
		return fmt.Sprintf("emit: %s: %s: %v", e.Where.Func, e.Msg, e.Kind)
	}
	return fmt.Sprintf("emit: %s: %v", e.Msg, e.Kind)
}

func (e *Error) Unwrap() error { return e.Kind }

// Options configures a lowering run.
type Options struct {
	// Reporter receives the error diagnostic when lowering fails. Nil drops it.
	Reporter diag.Reporter
	// File names the input in diagnostics.
	File string
}

// Lower converts a translation unit into a new IR module.
func Lower(tu *ast.TranslationUnit) (*ir.Module, error) {
	return LowerContext(context.Background(), tu, Options{})
}

// LowerContext is Lower with tracing taken from ctx and diagnostics sent to
// opts.Reporter.
func LowerContext(ctx context.Context, tu *ast.TranslationUnit, opts Options) (*ir.Module, error) {
	if tu == nil {
		return nil, errors.New("emit: nil translation unit")
	}
	name := tu.Name
	if name == "" {
		name = opts.File
	}
	span, ctx := trace.Start(ctx, trace.ScopePass, "lower")

	l := &lowerer{
		ctx:      ctx,
		tracer:   trace.FromContext(ctx),
		spanID:   trace.CurrentSpan(ctx).SpanID,
		file:     opts.File,
		m:        ir.NewModule(name),
		bindings: make(map[ast.Decl]binding),
	}
	if err := l.lowerUnit(tu); err != nil {
		span.Fail(err)
		var le *Error
		if errors.As(err, &le) && opts.Reporter != nil {
			le.Where.File = opts.File
			diag.ReportError(opts.Reporter, le.Code, le.Where, fmt.Sprintf("%s: %v", le.Msg, le.Kind)).Emit()
		}
		return nil, err
	}
	span.Count("funcs", len(l.m.Funcs)).Count("globals", len(l.m.Globals)).End("")
	return l.m, nil
}

// binding is what a declaration lowered to: the address of its storage for
// variables, the function for functions.
type binding struct {
	addr ir.Value
	ty   ir.TypeID // element type stored at addr
	fn   *ir.Func
}

func (b binding) value() ir.Value {
	if b.fn != nil {
		return b.fn
	}
	return b.addr
}

type lowerer struct {
	ctx    context.Context
	tracer trace.Tracer
	spanID uint64
	file   string

	m        *ir.Module
	bindings map[ast.Decl]binding
}

func (l *lowerer) lowerUnit(tu *ast.TranslationUnit) error {
	for _, d := range tu.Decls {
		if err := l.ctx.Err(); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
		switch d := d.(type) {
		case *ast.FunctionDecl:
			if err := l.lowerFunction(d); err != nil {
				return err
			}
		case *ast.VarDecl:
			if err := l.lowerGlobal(d); err != nil {
				return err
			}
		default:
			return &Error{Code: diag.LowUnsupportedDecl, Msg: fmt.Sprintf("declaration %T", d), Kind: ErrUnsupported}
		}
	}
	return nil
}

type loopCtx struct {
	breakTarget    *ir.Block
	continueTarget *ir.Block
}

type funcLowerer struct {
	*lowerer

	f        *ir.Func
	b        *ir.Builder
	slots    *ir.Builder
	cur      *ir.Block
	funcSpan uint64

	loopStack []loopCtx
	scopes    []map[string]binding
}

func (l *lowerer) newFuncLowerer(f *ir.Func) *funcLowerer {
	return &funcLowerer{
		lowerer: l,
		f:       f,
		b:       ir.NewBuilder(l.m),
		slots:   ir.NewBuilder(l.m),
	}
}

func (l *funcLowerer) newBlock(name string) *ir.Block {
	return l.f.NewBlock(name)
}

func (l *funcLowerer) startBlock(bb *ir.Block) {
	l.cur = bb
	l.b.SetBlock(bb)
}

// openContinuation starts a fresh block after a jump so that statements
// following it still land in an unterminated block.
func (l *funcLowerer) openContinuation(name string) {
	l.startBlock(l.newBlock(name))
}

func (l *funcLowerer) terminated() bool {
	return l.cur == nil || l.cur.Terminated()
}

// stackSlot allocates storage for ty at the start of the entry block.
func (l *funcLowerer) stackSlot(ty ir.TypeID, name string) *ir.Instr {
	entry := l.f.Entry()
	var first *ir.Instr
	for _, in := range entry.Instrs() {
		if in.Op != ir.OpAlloca {
			first = in
			break
		}
	}
	if first != nil {
		l.slots.SetInsertBefore(first)
	} else {
		l.slots.SetBlock(entry)
	}
	return l.slots.Alloca(ty, name)
}

func (l *funcLowerer) pushScope() {
	l.scopes = append(l.scopes, make(map[string]binding))
}

func (l *funcLowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *funcLowerer) declare(d ast.Decl, b binding) {
	l.bindings[d] = b
	if len(l.scopes) > 0 {
		l.scopes[len(l.scopes)-1][d.DeclName()] = b
	}
}

// resolve finds what a name refers to: the declaration's own binding when
// the reference carries it, then the innermost lexical scope outward, then
// module globals, then module functions.
func (l *funcLowerer) resolve(ref *ast.DeclRefExpr) (binding, bool) {
	if ref.Decl != nil {
		if b, ok := l.bindings[ref.Decl]; ok {
			return b, true
		}
	}
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][ref.Name]; ok {
			return b, true
		}
	}
	if g := l.m.Global(ref.Name); g != nil {
		return binding{addr: g, ty: g.Elem}, true
	}
	if fn := l.m.Func(ref.Name); fn != nil {
		return binding{fn: fn}, true
	}
	return binding{}, false
}

func (l *funcLowerer) errorf(code diag.Code, kind error, format string, args ...any) error {
	where := diag.Location{Func: l.f.Name}
	if l.cur != nil {
		where.Block = l.cur.Name
	}
	return &Error{Code: code, Where: where, Msg: fmt.Sprintf(format, args...), Kind: kind}
}

// finish closes every block still open: the fall-through block with a return
// for void functions, everything else with unreachable.
func (l *funcLowerer) finish() {
	if !l.terminated() {
		if l.m.Types.IsVoid(l.f.Result()) {
			l.b.Ret(nil)
		} else {
			l.b.Unreachable()
		}
	}
	for _, bb := range l.f.Blocks {
		if !bb.Terminated() {
			l.b.SetBlock(bb)
			l.b.Unreachable()
		}
	}
}
