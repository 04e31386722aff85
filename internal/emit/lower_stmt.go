package emit

import (
	"fmt"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/ir"
	"sysc/internal/trace"
)

func (l *funcLowerer) lowerStmt(st ast.Stmt) error {
	if l.tracer.Level() >= trace.LevelDebug {
		span := trace.Begin(l.tracer, trace.ScopeNode, fmt.Sprintf("stmt:%T", st), l.funcSpan)
		defer func() { span.End(l.cur.Name) }()
	}

	switch st := st.(type) {
	case *ast.CompoundStmt:
		l.pushScope()
		defer l.popScope()
		for _, sub := range st.Subs {
			if err := l.lowerStmt(sub); err != nil {
				return err
			}
		}
		return nil

	case *ast.ExprStmt:
		_, err := l.lowerExpr(st.Expr)
		return err

	case *ast.DeclStmt:
		for _, d := range st.Decls {
			if err := l.lowerLocalDecl(d); err != nil {
				return err
			}
		}
		return nil

	case *ast.ReturnStmt:
		if st.Expr == nil {
			l.b.Ret(nil)
		} else {
			v, err := l.lowerExpr(st.Expr)
			if err != nil {
				return err
			}
			l.b.Ret(v)
		}
		l.openContinuation("ret.cont")
		return nil

	case *ast.IfStmt:
		return l.lowerIf(st)

	case *ast.WhileStmt:
		return l.lowerWhile(st)

	case *ast.DoStmt:
		return l.lowerDo(st)

	case *ast.BreakStmt:
		if len(l.loopStack) == 0 {
			return l.errorf(diag.LowJumpOutsideLoop, ErrUnsupported, "break outside a loop")
		}
		l.b.Br(l.loopStack[len(l.loopStack)-1].breakTarget)
		l.openContinuation("break.cont")
		return nil

	case *ast.ContinueStmt:
		if len(l.loopStack) == 0 {
			return l.errorf(diag.LowJumpOutsideLoop, ErrUnsupported, "continue outside a loop")
		}
		l.b.Br(l.loopStack[len(l.loopStack)-1].continueTarget)
		l.openContinuation("continue.cont")
		return nil

	case *ast.NullStmt:
		return nil
	}
	return l.errorf(diag.LowUnsupportedStmt, ErrUnsupported, "statement %T", st)
}

func (l *funcLowerer) lowerIf(st *ast.IfStmt) error {
	cond, err := l.lowerCond(st.Cond)
	if err != nil {
		return err
	}
	thenBB := l.newBlock("if.then")
	var elseBB *ir.Block
	if st.Else != nil {
		elseBB = l.newBlock("if.else")
	}
	exitBB := l.newBlock("if.exit")
	if elseBB != nil {
		l.b.CondBr(cond, thenBB, elseBB)
	} else {
		l.b.CondBr(cond, thenBB, exitBB)
	}

	l.startBlock(thenBB)
	if err := l.lowerStmt(st.Then); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.Br(exitBB)
	}

	if elseBB != nil {
		l.startBlock(elseBB)
		if err := l.lowerStmt(st.Else); err != nil {
			return err
		}
		if !l.terminated() {
			l.b.Br(exitBB)
		}
	}

	l.startBlock(exitBB)
	return nil
}

func (l *funcLowerer) lowerWhile(st *ast.WhileStmt) error {
	condBB := l.newBlock("while.cond")
	bodyBB := l.newBlock("while.body")
	exitBB := l.newBlock("while.exit")
	l.b.Br(condBB)

	l.startBlock(condBB)
	cond, err := l.lowerCond(st.Cond)
	if err != nil {
		return err
	}
	l.b.CondBr(cond, bodyBB, exitBB)

	l.loopStack = append(l.loopStack, loopCtx{breakTarget: exitBB, continueTarget: condBB})
	l.startBlock(bodyBB)
	if err := l.lowerStmt(st.Body); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.Br(condBB)
	}
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.startBlock(exitBB)
	return nil
}

func (l *funcLowerer) lowerDo(st *ast.DoStmt) error {
	bodyBB := l.newBlock("do.body")
	condBB := l.newBlock("do.cond")
	exitBB := l.newBlock("do.exit")
	l.b.Br(bodyBB)

	l.loopStack = append(l.loopStack, loopCtx{breakTarget: exitBB, continueTarget: condBB})
	l.startBlock(bodyBB)
	if err := l.lowerStmt(st.Body); err != nil {
		return err
	}
	if !l.terminated() {
		l.b.Br(condBB)
	}
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.startBlock(condBB)
	cond, err := l.lowerCond(st.Cond)
	if err != nil {
		return err
	}
	l.b.CondBr(cond, bodyBB, exitBB)

	l.startBlock(exitBB)
	return nil
}
