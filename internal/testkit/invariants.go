package testkit

import (
	"errors"
	"fmt"

	"sysc/internal/ir"
)

// CheckModuleInvariants runs the verifier and a few structural checks the
// lowering promises on top of it:
// 1) every block object appears once in its function
// 2) stack slots live in the entry block only
// 3) each use recorded on a value points back at an operand holding it
func CheckModuleInvariants(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	errs := []error{ir.Verify(m)}
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		seen := make(map[*ir.Block]bool, len(f.Blocks))
		for _, b := range f.Blocks {
			if seen[b] {
				errs = append(errs, fmt.Errorf("%s: block %s listed twice", f.Name, b.Name))
			}
			seen[b] = true
			for _, in := range b.Instrs() {
				if in.Op == ir.OpAlloca && b != f.Entry() {
					errs = append(errs, fmt.Errorf("%s: alloca in %s, want entry", f.Name, b.Name))
				}
				for _, u := range in.Uses() {
					if u.Index >= u.User.NumArgs() || u.User.Arg(u.Index) != ir.Value(in) {
						errs = append(errs, fmt.Errorf("%s: stale use of %s in %s", f.Name, in.Op, b.Name))
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Ops lists the opcodes of b in order.
func Ops(b *ir.Block) []ir.Opcode {
	ops := make([]ir.Opcode, 0, len(b.Instrs()))
	for _, in := range b.Instrs() {
		ops = append(ops, in.Op)
	}
	return ops
}

// BlockNames lists the block names of f in order.
func BlockNames(f *ir.Func) []string {
	names := make([]string, 0, len(f.Blocks))
	for _, b := range f.Blocks {
		names = append(names, b.Name)
	}
	return names
}

// CountOp counts live instructions with opcode op across f.
func CountOp(f *ir.Func, op ir.Opcode) int {
	n := 0
	for _, b := range f.Blocks {
		for _, in := range b.Instrs() {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}
