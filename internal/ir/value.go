package ir

import "slices"

// Value is anything an instruction can take as an operand: constants,
// parameters, globals, functions and instructions.
type Value interface {
	Type() TypeID
	valueNode()
}

// Use records that User references a value at operand position Index.
type Use struct {
	User  *Instr
	Index int
}

type useList struct {
	uses []Use
}

func (l *useList) add(user *Instr, idx int) {
	l.uses = append(l.uses, Use{User: user, Index: idx})
}

func (l *useList) remove(user *Instr, idx int) {
	i := slices.Index(l.uses, Use{User: user, Index: idx})
	if i < 0 {
		panic("ir: removing unregistered use")
	}
	l.uses = slices.Delete(l.uses, i, i+1)
}

// usesOf returns the use-list of v, or nil for values that do not track
// uses (constants).
func usesOf(v Value) *useList {
	switch v := v.(type) {
	case *Instr:
		return &v.uses
	case *Param:
		return &v.uses
	case *Global:
		return &v.uses
	case *Func:
		return &v.uses
	}
	return nil
}

// UsesOf returns a snapshot of the users of v. Constants have none.
func UsesOf(v Value) []Use {
	l := usesOf(v)
	if l == nil {
		return nil
	}
	return slices.Clone(l.uses)
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstInt is an integer immediate.
	ConstInt ConstKind = iota
	// ConstZero is the all-zero value of any type.
	ConstZero
)

// Const is an immediate value. Constants are uniqued per module, so two
// equal constants are the same pointer.
type Const struct {
	Kind ConstKind
	Ty   TypeID
	Bits uint8
	// Int holds the value sign-extended from Bits.
	Int int64
}

func (c *Const) Type() TypeID { return c.Ty }
func (*Const) valueNode()     {}

// Uint returns the value truncated to its width.
func (c *Const) Uint() uint64 {
	if c.Bits == 0 || c.Bits >= 64 {
		return uint64(c.Int)
	}
	return uint64(c.Int) & (1<<c.Bits - 1)
}

// IsZero reports whether c is zero.
func (c *Const) IsZero() bool {
	return c.Kind == ConstZero || c.Int == 0
}

// IsOne reports whether c is the integer one (true for i1).
func (c *Const) IsOne() bool {
	return c.Kind == ConstInt && c.Uint() == 1
}

// Equals reports whether c is the integer v.
func (c *Const) Equals(v int64) bool {
	return c.Kind == ConstInt && c.Int == SignExtend(v, c.Bits)
}

// SignExtend truncates v to bits and sign-extends it back to 64 bits.
func SignExtend(v int64, bits uint8) int64 {
	if bits == 0 || bits >= 64 {
		return v
	}
	shift := 64 - bits
	return v << shift >> shift
}

// Param is an incoming function argument.
type Param struct {
	Name   string
	Ty     TypeID
	Index  int
	Parent *Func
	uses   useList
}

func (p *Param) Type() TypeID { return p.Ty }
func (*Param) valueNode()     {}

func (p *Param) Uses() []Use  { return slices.Clone(p.uses.uses) }
func (p *Param) NumUses() int { return len(p.uses.uses) }

// Global is module-level storage. Its value is the address of the storage.
type Global struct {
	Name  string
	Elem  TypeID
	Init  *Const
	ptrTy TypeID
	uses  useList
}

func (g *Global) Type() TypeID { return g.ptrTy }
func (*Global) valueNode()     {}

func (g *Global) Uses() []Use  { return slices.Clone(g.uses.uses) }
func (g *Global) NumUses() int { return len(g.uses.uses) }
