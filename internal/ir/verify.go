package ir

import (
	"errors"
	"fmt"
	"slices"
)

// Verify checks module invariants and returns every violation found.
func Verify(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if err := VerifyFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	for _, c := range m.Ctors {
		if c.Func == nil || m.Func(c.Func.Name) != c.Func {
			errs = append(errs, errors.New("constructor refers to a function outside the module"))
		}
	}
	return errors.Join(errs...)
}

// VerifyFunc checks a single function.
func VerifyFunc(f *Func) error {
	if f == nil || f.IsDeclaration() {
		return nil
	}
	var errs []error
	if err := verifyBlockNames(f); err != nil {
		errs = append(errs, err)
	}
	if err := verifyTerminators(f); err != nil {
		errs = append(errs, err)
	}
	if err := verifyTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := verifyOperands(f); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func verifyBlockNames(f *Func) error {
	var errs []error
	seen := make(map[string]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		if seen[b.Name] {
			errs = append(errs, fmt.Errorf("duplicate block name %q", b.Name))
		}
		seen[b.Name] = true
		if b.Parent != f {
			errs = append(errs, fmt.Errorf("%s: parent mismatch", b.Name))
		}
	}
	return errors.Join(errs...)
}

// verifyTerminators checks that every block ends in exactly one terminator.
func verifyTerminators(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Name))
		}
		for i, in := range b.instrs {
			if in.IsTerminator() && i != len(b.instrs)-1 {
				errs = append(errs, fmt.Errorf("%s: %s in the middle of the block", b.Name, in.Op))
			}
		}
	}
	return errors.Join(errs...)
}

func verifyTargets(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		t := b.Terminator()
		if t == nil {
			continue
		}
		want := 0
		switch t.Op {
		case OpBr:
			want = 1
		case OpCondBr:
			want = 2
		}
		if len(t.targets) != want {
			errs = append(errs, fmt.Errorf("%s: %s has %d targets, want %d", b.Name, t.Op, len(t.targets), want))
		}
		for _, s := range t.targets {
			if s == nil || s.Parent != f || !slices.Contains(f.Blocks, s) {
				errs = append(errs, fmt.Errorf("%s: branch to a block outside the function", b.Name))
			}
		}
		if t.Op == OpRet {
			if err := verifyReturn(f, t); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

func verifyReturn(f *Func, ret *Instr) error {
	void := f.Module.Types.IsVoid(f.Result())
	switch {
	case void && len(ret.args) != 0:
		return errors.New("value returned from void function")
	case !void && len(ret.args) != 1:
		return errors.New("missing return value")
	case !void && ret.args[0].Type() != f.Result():
		return fmt.Errorf("return type %s, want %s",
			f.Module.Types.String(ret.args[0].Type()), f.Module.Types.String(f.Result()))
	}
	return nil
}

// verifyOperands checks instruction ownership, operand liveness and that
// every operand edge is mirrored in the operand's use-list.
func verifyOperands(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		for _, in := range b.instrs {
			if in.block != b {
				errs = append(errs, fmt.Errorf("%s: %s owned by another block", b.Name, in.Op))
			}
			if in.erased {
				errs = append(errs, fmt.Errorf("%s: erased %s still listed", b.Name, in.Op))
			}
			for i, a := range in.args {
				if err := verifyOperand(f, in, i, a); err != nil {
					errs = append(errs, fmt.Errorf("%s: %s operand %d: %w", b.Name, in.Op, i, err))
				}
			}
			for _, u := range in.uses.uses {
				if u.User.erased || u.Index >= len(u.User.args) || u.User.args[u.Index] != Value(in) {
					errs = append(errs, fmt.Errorf("%s: stale use of %s", b.Name, in.Op))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func verifyOperand(f *Func, user *Instr, idx int, v Value) error {
	switch v := v.(type) {
	case *Instr:
		if v.erased || v.block == nil {
			return errors.New("refers to an erased instruction")
		}
		if v.block.Parent != f {
			return errors.New("refers to an instruction of another function")
		}
	case *Param:
		if v.Parent != f {
			return errors.New("refers to a parameter of another function")
		}
	}
	if l := usesOf(v); l != nil && !slices.Contains(l.uses, Use{User: user, Index: idx}) {
		return errors.New("missing from the operand's use-list")
	}
	return nil
}
