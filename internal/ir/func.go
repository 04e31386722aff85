package ir

import (
	"fmt"
	"slices"
)

// Linkage controls symbol visibility outside the module.
type Linkage uint8

const (
	LinkageExternal Linkage = iota
	LinkagePrivate
)

func (l Linkage) String() string {
	if l == LinkagePrivate {
		return "private"
	}
	return "external"
}

// Func is a function definition or, when it has no blocks, a declaration.
// Its value is the function's address.
type Func struct {
	Name    string
	Sig     TypeID
	Params  []*Param
	Blocks  []*Block
	Linkage Linkage
	Module  *Module

	ptrTy      TypeID
	uses       useList
	blockNames map[string]int
}

func (f *Func) Type() TypeID { return f.ptrTy }
func (*Func) valueNode()     {}

func (f *Func) Uses() []Use  { return slices.Clone(f.uses.uses) }
func (f *Func) NumUses() int { return len(f.uses.uses) }

// Result returns the declared return type.
func (f *Func) Result() TypeID {
	info, ok := f.Module.Types.FuncInfo(f.Sig)
	if !ok {
		return NoTypeID
	}
	return info.Result
}

// IsDeclaration reports whether f has no body.
func (f *Func) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Entry returns the entry block, nil for declarations.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a block. Names are made unique within the function by
// suffixing a counter.
func (f *Func) NewBlock(name string) *Block {
	if f.blockNames == nil {
		f.blockNames = make(map[string]int)
	}
	unique := name
	if n, seen := f.blockNames[name]; seen {
		unique = fmt.Sprintf("%s%d", name, n)
	}
	f.blockNames[name]++
	b := &Block{Name: unique, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NumInstrs counts live instructions in all blocks.
func (f *Func) NumInstrs() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.instrs)
	}
	return n
}

// RemoveBlocks deletes the given blocks and their instructions. Values
// defined in the removed blocks must only be used inside them; RemoveBlocks
// panics otherwise, and also when asked to remove the entry block.
func (f *Func) RemoveBlocks(dead []*Block) {
	if len(dead) == 0 {
		return
	}
	gone := make(map[*Block]bool, len(dead))
	for _, b := range dead {
		if b.Parent != f {
			panic(fmt.Sprintf("ir: block %s is not in %s", b.Name, f.Name))
		}
		if b == f.Entry() {
			panic(fmt.Sprintf("ir: removing entry block of %s", f.Name))
		}
		gone[b] = true
	}
	for _, b := range dead {
		for _, in := range b.instrs {
			for _, u := range in.uses.uses {
				if !gone[u.User.block] {
					panic(fmt.Sprintf("ir: %s in %s is used outside removed blocks", in.Op, b.Name))
				}
			}
		}
	}
	// Drop operands first so that cross-block uses among the removed
	// instructions disappear before anything is erased.
	for _, b := range dead {
		for _, in := range b.instrs {
			for i, a := range in.args {
				if l := usesOf(a); l != nil {
					l.remove(in, i)
				}
			}
			in.args = nil
		}
	}
	for _, b := range dead {
		for _, in := range slices.Clone(b.instrs) {
			in.EraseFromParent()
		}
		b.Parent = nil
	}
	f.Blocks = slices.DeleteFunc(f.Blocks, func(b *Block) bool { return gone[b] })
}
