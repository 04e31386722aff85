// Package ast defines the typed abstract syntax tree consumed by the lowering.
//
// Trees are produced upstream (parser and semantic analysis) and are treated
// as read-only: lowering never writes back into nodes. Every expression
// carries its checked type; declarations carry a name and a type.
package ast

// Decl is a function or variable declaration.
type Decl interface {
	DeclName() string
	DeclType() *Type
	declNode()
}

type VarDecl struct {
	Name string
	Type *Type
	Init Expr // nil when uninitialized
}

// FunctionDecl is a prototype when Body is nil.
type FunctionDecl struct {
	Name   string
	Type   *Type
	Params []*VarDecl
	Body   *CompoundStmt
}

func (d *VarDecl) DeclName() string      { return d.Name }
func (d *FunctionDecl) DeclName() string { return d.Name }
func (d *VarDecl) DeclType() *Type       { return d.Type }
func (d *FunctionDecl) DeclType() *Type  { return d.Type }

func (*VarDecl) declNode()      {}
func (*FunctionDecl) declNode() {}

// TranslationUnit is the root of one source file.
type TranslationUnit struct {
	Name  string
	Decls []Decl
}
