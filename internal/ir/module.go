// Package ir is the target-independent, basic-block structured intermediate
// representation produced by lowering and rewritten by the optimization
// passes.
//
// Functions hold blocks; blocks hold instructions and end in exactly one
// terminator. Instructions, parameters, globals and functions keep use-lists
// so that passes can replace all uses of a value before erasing it.
// Constants are uniqued per module and carry no use-list.
package ir

import (
	"fmt"
	"slices"
)

// DefaultCtorPriority runs after any higher-priority system constructors.
const DefaultCtorPriority = 65535

// Ctor is a function run before the program's entry point. Lower priority
// values run earlier.
type Ctor struct {
	Priority int
	Func     *Func
}

type constKey struct {
	kind ConstKind
	ty   TypeID
	val  int64
}

// Module is an ordered collection of globals and functions. Names are unique
// per kind.
type Module struct {
	Name    string
	Types   *Types
	Globals []*Global
	Funcs   []*Func
	Ctors   []Ctor

	consts       map[constKey]*Const
	globalByName map[string]*Global
	funcByName   map[string]*Func
}

// NewModule creates an empty module with a fresh type interner.
func NewModule(name string) *Module {
	return &Module{
		Name:         name,
		Types:        NewTypes(),
		consts:       make(map[constKey]*Const),
		globalByName: make(map[string]*Global),
		funcByName:   make(map[string]*Func),
	}
}

// NewGlobal adds zero-initialized storage of type elem.
func (m *Module) NewGlobal(name string, elem TypeID) *Global {
	if _, dup := m.globalByName[name]; dup {
		panic(fmt.Sprintf("ir: duplicate global %q", name))
	}
	g := &Global{
		Name:  name,
		Elem:  elem,
		Init:  m.ConstZero(elem),
		ptrTy: m.Types.Pointer(elem),
	}
	m.Globals = append(m.Globals, g)
	m.globalByName[name] = g
	return g
}

// NewFunc adds a function with signature sig and one parameter per
// signature parameter. The function has no blocks until NewBlock is called.
func (m *Module) NewFunc(name string, sig TypeID, paramNames ...string) *Func {
	if _, dup := m.funcByName[name]; dup {
		panic(fmt.Sprintf("ir: duplicate function %q", name))
	}
	info, ok := m.Types.FuncInfo(sig)
	if !ok {
		panic(fmt.Sprintf("ir: %s is not a function type", m.Types.String(sig)))
	}
	f := &Func{
		Name:   name,
		Sig:    sig,
		Module: m,
		ptrTy:  m.Types.Pointer(sig),
	}
	for i, pt := range info.Params {
		p := &Param{Ty: pt, Index: i, Parent: f}
		if i < len(paramNames) {
			p.Name = paramNames[i]
		}
		f.Params = append(f.Params, p)
	}
	m.Funcs = append(m.Funcs, f)
	m.funcByName[name] = f
	return f
}

// Global returns the global named name, if any.
func (m *Module) Global(name string) *Global { return m.globalByName[name] }

// Func returns the function named name, if any.
func (m *Module) Func(name string) *Func { return m.funcByName[name] }

// AddCtor registers fn to run before the entry point.
func (m *Module) AddCtor(fn *Func, priority int) {
	m.Ctors = append(m.Ctors, Ctor{Priority: priority, Func: fn})
}

// SortedCtors returns constructors in execution order. Equal priorities keep
// registration order.
func (m *Module) SortedCtors() []Ctor {
	out := slices.Clone(m.Ctors)
	slices.SortStableFunc(out, func(a, b Ctor) int { return a.Priority - b.Priority })
	return out
}

// ConstInt returns the uniqued integer constant v of type ty.
func (m *Module) ConstInt(ty TypeID, v int64) *Const {
	bits := m.Types.Bits(ty)
	if bits == 0 {
		panic(fmt.Sprintf("ir: integer constant of type %s", m.Types.String(ty)))
	}
	v = SignExtend(v, bits)
	key := constKey{kind: ConstInt, ty: ty, val: v}
	if c, ok := m.consts[key]; ok {
		return c
	}
	c := &Const{Kind: ConstInt, Ty: ty, Bits: bits, Int: v}
	m.consts[key] = c
	return c
}

// ConstZero returns the zero value of ty. For integers this is the same
// constant as ConstInt(ty, 0).
func (m *Module) ConstZero(ty TypeID) *Const {
	if m.Types.IsInt(ty) {
		return m.ConstInt(ty, 0)
	}
	key := constKey{kind: ConstZero, ty: ty}
	if c, ok := m.consts[key]; ok {
		return c
	}
	c := &Const{Kind: ConstZero, Ty: ty}
	m.consts[key] = c
	return c
}

// Bool returns the i1 constant for v.
func (m *Module) Bool(v bool) *Const {
	if v {
		return m.ConstInt(m.Types.Builtins().I1, 1)
	}
	return m.ConstInt(m.Types.Builtins().I1, 0)
}
