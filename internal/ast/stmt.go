package ast

// Stmt is any statement node.
type Stmt interface {
	stmtNode()
}

type CompoundStmt struct {
	Subs []Stmt
}

type ReturnStmt struct {
	Expr Expr // nil for a bare return
}

type ExprStmt struct {
	Expr Expr
}

type DeclStmt struct {
	Decls []Decl
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

type WhileStmt struct {
	Cond Expr
	Body Stmt
}

type DoStmt struct {
	Body Stmt
	Cond Expr
}

type BreakStmt struct{}

type ContinueStmt struct{}

type NullStmt struct{}

func (*CompoundStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
func (*DeclStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*DoStmt) stmtNode()       {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*NullStmt) stmtNode()     {}
