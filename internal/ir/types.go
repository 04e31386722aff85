package ir

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// TypeID uniquely identifies a type inside a Types interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates IR type kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindPointer
	KindArray
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindFunc:
		return "func"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for an IR type.
type Type struct {
	Kind    Kind
	Bits    uint8  // for ints
	Elem    TypeID // for pointers and arrays
	Len     uint64 // for arrays
	Payload uint32 // index into the function info table
}

// FuncInfo stores metadata for function types.
type FuncInfo struct {
	Params []TypeID
	Result TypeID
}

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Void TypeID
	I1   TypeID
	I8   TypeID
	I32  TypeID
	I64  TypeID
}

type typeKey struct {
	Kind Kind
	Bits uint8
	Elem TypeID
	Len  uint64
}

// Types provides stable TypeIDs by hashing structural descriptors.
type Types struct {
	types    []Type
	index    map[typeKey]TypeID
	fns      []FuncInfo
	builtins Builtins
}

// NewTypes constructs an interner seeded with the primitive types.
func NewTypes() *Types {
	in := &Types{index: make(map[typeKey]TypeID, 32)}
	in.internRaw(Type{Kind: KindInvalid}) // reserve 0 as NoTypeID
	in.builtins.Void = in.intern(Type{Kind: KindVoid})
	in.builtins.I1 = in.Int(1)
	in.builtins.I8 = in.Int(8)
	in.builtins.I32 = in.Int(32)
	in.builtins.I64 = in.Int(64)
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Types) Builtins() Builtins {
	return in.builtins
}

func (in *Types) intern(t Type) TypeID {
	key := typeKey{Kind: t.Kind, Bits: t.Bits, Elem: t.Elem, Len: t.Len}
	if id, ok := in.index[key]; ok {
		return id
	}
	id := in.internRaw(t)
	in.index[key] = id
	return id
}

func (in *Types) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("ir: len(types) overflow: %w", err))
	}
	in.types = append(in.types, t)
	return TypeID(n)
}

// Int returns the integer type of the given width.
func (in *Types) Int(bits uint8) TypeID {
	return in.intern(Type{Kind: KindInt, Bits: bits})
}

// Pointer returns the pointer-to-elem type.
func (in *Types) Pointer(elem TypeID) TypeID {
	return in.intern(Type{Kind: KindPointer, Elem: elem})
}

// Array returns the fixed-length array type.
func (in *Types) Array(elem TypeID, n uint64) TypeID {
	return in.intern(Type{Kind: KindArray, Elem: elem, Len: n})
}

// Func creates or finds a function type.
func (in *Types) Func(params []TypeID, result TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindFunc {
			continue
		}
		info := in.fns[tt.Payload]
		if info.Result == result && slices.Equal(info.Params, params) {
			return id
		}
	}
	slot, err := safecast.Conv[uint32](len(in.fns))
	if err != nil {
		panic(fmt.Errorf("ir: fn info overflow: %w", err))
	}
	in.fns = append(in.fns, FuncInfo{Params: slices.Clone(params), Result: result})
	return in.internRaw(Type{Kind: KindFunc, Payload: slot})
}

// Lookup returns the descriptor for a TypeID.
func (in *Types) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Types) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("ir: invalid TypeID %d", id))
	}
	return tt
}

// FuncInfo retrieves function type metadata by TypeID.
func (in *Types) FuncInfo(id TypeID) (*FuncInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFunc {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

func (in *Types) KindOf(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

func (in *Types) IsInt(id TypeID) bool     { return in.KindOf(id) == KindInt }
func (in *Types) IsVoid(id TypeID) bool    { return in.KindOf(id) == KindVoid }
func (in *Types) IsPointer(id TypeID) bool { return in.KindOf(id) == KindPointer }
func (in *Types) IsArray(id TypeID) bool   { return in.KindOf(id) == KindArray }

// Bits returns the width of an integer type, 0 otherwise.
func (in *Types) Bits(id TypeID) uint8 {
	tt, _ := in.Lookup(id)
	if tt.Kind != KindInt {
		return 0
	}
	return tt.Bits
}

// Elem returns the element type of a pointer or array type.
func (in *Types) Elem(id TypeID) TypeID {
	tt, _ := in.Lookup(id)
	switch tt.Kind {
	case KindPointer, KindArray:
		return tt.Elem
	}
	return NoTypeID
}

// Len returns the length of an array type.
func (in *Types) Len(id TypeID) uint64 {
	tt, _ := in.Lookup(id)
	if tt.Kind != KindArray {
		return 0
	}
	return tt.Len
}

// String renders a type in LLVM-like syntax.
func (in *Types) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("i%d", tt.Bits)
	case KindPointer:
		return in.String(tt.Elem) + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", tt.Len, in.String(tt.Elem))
	case KindFunc:
		info := in.fns[tt.Payload]
		params := make([]string, len(info.Params))
		for i, p := range info.Params {
			params[i] = in.String(p)
		}
		return fmt.Sprintf("%s (%s)", in.String(info.Result), strings.Join(params, ", "))
	}
	return tt.Kind.String()
}
