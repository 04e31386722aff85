package ir

import (
	"fmt"
	"slices"
)

// Block is a basic block: straight-line instructions ending in exactly one
// terminator.
type Block struct {
	Name   string
	Parent *Func
	instrs []*Instr
}

// Instrs returns the instructions in order. The slice must not be modified;
// take a copy before erasing while iterating.
func (b *Block) Instrs() []*Instr { return b.instrs }

// Terminator returns the final instruction when it is a terminator.
func (b *Block) Terminator() *Instr {
	if b == nil || len(b.instrs) == 0 {
		return nil
	}
	last := b.instrs[len(b.instrs)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	return b.Terminator() != nil
}

// Successors returns the blocks control may transfer to.
func (b *Block) Successors() []*Block {
	t := b.Terminator()
	if t == nil {
		return nil
	}
	return t.targets
}

// Predecessors returns the blocks of the parent function that branch to b,
// in block order, each once.
func (b *Block) Predecessors() []*Block {
	if b.Parent == nil {
		return nil
	}
	var preds []*Block
	for _, p := range b.Parent.Blocks {
		if slices.Contains(p.Successors(), b) {
			preds = append(preds, p)
		}
	}
	return preds
}

// Index returns the position of b in its function, -1 if detached.
func (b *Block) Index() int {
	if b.Parent == nil {
		return -1
	}
	return slices.Index(b.Parent.Blocks, b)
}

func (b *Block) insert(pos int, in *Instr) {
	if in.block != nil || in.erased {
		panic(fmt.Sprintf("ir: %s already placed", in.Op))
	}
	if pos == len(b.instrs) && b.Terminated() {
		panic(fmt.Sprintf("ir: appending %s to terminated block %s", in.Op, b.Name))
	}
	if in.IsTerminator() && pos != len(b.instrs) {
		panic(fmt.Sprintf("ir: terminator %s inserted mid-block in %s", in.Op, b.Name))
	}
	in.block = b
	b.instrs = slices.Insert(b.instrs, pos, in)
}

func (b *Block) remove(in *Instr) {
	i := slices.Index(b.instrs, in)
	if i < 0 {
		panic(fmt.Sprintf("ir: %s not in block %s", in.Op, b.Name))
	}
	b.instrs = slices.Delete(b.instrs, i, i+1)
}
