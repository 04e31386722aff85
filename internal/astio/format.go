// Package astio reads and writes translation units in the AST interchange
// format produced by the frontend.
//
// A file is a header (format name and semantic version) followed by the
// translation unit as a tree of generic nodes. Two encodings carry the same
// tree: msgpack for .astpack files and JSON for .json files. Declarations
// are numbered in document order and references point at those numbers, so
// a decoded DeclRefExpr shares its Decl with the declaration node.
package astio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// FormatName identifies interchange files.
	FormatName = "sysc-ast"
	// Version is written into every encoded file.
	Version = "1.0.0"
	// Accepts is the version constraint a file must satisfy to be decoded.
	Accepts = "^1.0"
)

// Encoding selects the wire format.
type Encoding uint8

const (
	Msgpack Encoding = iota
	JSON
)

func (e Encoding) String() string {
	if e == JSON {
		return "json"
	}
	return "msgpack"
}

// ErrFormat marks input that is not a supported interchange file.
var ErrFormat = errors.New("not a sysc-ast file")

// EncodingFor picks the encoding from a file extension.
func EncodingFor(path string) (Encoding, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".astpack", ".msgpack":
		return Msgpack, nil
	case ".json":
		return JSON, nil
	}
	return 0, fmt.Errorf("astio: %s: unknown extension (want .astpack or .json)", path)
}

// File is the top-level document.
type File struct {
	Format  string  `msgpack:"format" json:"format"`
	Version string  `msgpack:"version" json:"version"`
	Name    string  `msgpack:"name,omitempty" json:"name,omitempty"`
	Decls   []*Node `msgpack:"decls" json:"decls"`
}

// Node is one AST node. Kind selects which fields are meaningful; Kids
// holds operands and sub-statements positionally, with nil for absent
// optional children.
type Node struct {
	Kind  string    `msgpack:"kind" json:"kind"`
	ID    int       `msgpack:"id,omitempty" json:"id,omitempty"`
	Ref   int       `msgpack:"ref,omitempty" json:"ref,omitempty"`
	Name  string    `msgpack:"name,omitempty" json:"name,omitempty"`
	Type  *TypeNode `msgpack:"type,omitempty" json:"type,omitempty"`
	Op    string    `msgpack:"op,omitempty" json:"op,omitempty"`
	Value int64     `msgpack:"value,omitempty" json:"value,omitempty"`
	Kids  []*Node   `msgpack:"kids,omitempty" json:"kids,omitempty"`
}

// TypeNode is a base type with its declarator chain, outermost link first.
type TypeNode struct {
	Spec  string      `msgpack:"spec" json:"spec"`
	Const bool        `msgpack:"const,omitempty" json:"const,omitempty"`
	Chain []*TypeLink `msgpack:"chain,omitempty" json:"chain,omitempty"`
}

// TypeLink is one pointer, array or function declarator.
type TypeLink struct {
	Kind    string      `msgpack:"kind" json:"kind"`
	Len     int64       `msgpack:"len,omitempty" json:"len,omitempty"`
	Unknown bool        `msgpack:"unknown,omitempty" json:"unknown,omitempty"`
	Params  []*TypeNode `msgpack:"params,omitempty" json:"params,omitempty"`
}

// Node kinds.
const (
	KindVarDecl      = "VarDecl"
	KindFunctionDecl = "FunctionDecl"

	KindIntegerLiteral   = "IntegerLiteral"
	KindBinaryExpr       = "BinaryOperator"
	KindUnaryExpr        = "UnaryOperator"
	KindParenExpr        = "ParenExpr"
	KindImplicitCastExpr = "ImplicitCastExpr"
	KindDeclRefExpr      = "DeclRefExpr"
	KindCallExpr         = "CallExpr"
	KindInitListExpr     = "InitListExpr"
	KindImplicitInitExpr = "ImplicitValueInitExpr"

	KindCompoundStmt = "CompoundStmt"
	KindReturnStmt   = "ReturnStmt"
	KindExprStmt     = "ExprStmt"
	KindDeclStmt     = "DeclStmt"
	KindIfStmt       = "IfStmt"
	KindWhileStmt    = "WhileStmt"
	KindDoStmt       = "DoStmt"
	KindBreakStmt    = "BreakStmt"
	KindContinueStmt = "ContinueStmt"
	KindNullStmt     = "NullStmt"
)

// Type link kinds.
const (
	LinkPointer  = "pointer"
	LinkArray    = "array"
	LinkFunction = "function"
)

// checkHeader validates the format name and version of f.
func checkHeader(f *File) error {
	if f.Format != FormatName {
		return fmt.Errorf("astio: format %q: %w", f.Format, ErrFormat)
	}
	v, err := semver.NewVersion(f.Version)
	if err != nil {
		return fmt.Errorf("astio: version %q: %w", f.Version, err)
	}
	c, err := semver.NewConstraint(Accepts)
	if err != nil {
		return fmt.Errorf("astio: constraint %q: %w", Accepts, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("astio: version %s does not satisfy %s: %w", v, Accepts, ErrFormat)
	}
	return nil
}
