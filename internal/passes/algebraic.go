package passes

import (
	"sysc/internal/diag"
	"sysc/internal/ir"
)

// AlgebraicIdentity folds binary operations with an identity or absorbing
// constant operand: x+0, x*1, x*0, x%1 and friends. Identities with the
// constant on the right are tried first; the left-constant forms only apply
// when no right-constant identity did.
type AlgebraicIdentity struct{}

func (AlgebraicIdentity) Name() string { return "AlgebraicIdentity" }

func (p AlgebraicIdentity) Run(m *ir.Module, r diag.Reporter) Result {
	var reps []replacement
	seen := make(resolver)
	for _, f := range bodies(m) {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				if !in.Op.IsBinary() {
					continue
				}
				// Operands see earlier folds so one run reaches the fixed point.
				lhs, rhs := seen.resolve(in.Arg(0)), seen.resolve(in.Arg(1))
				v, ok := rightIdentity(m, in, lhs, rhs)
				if !ok {
					v, ok = leftIdentity(m, in, lhs, rhs)
				}
				if ok {
					seen[in] = v
					reps = append(reps, replacement{victim: in, with: v})
				}
			}
		}
	}
	replaceAll(reps)
	report(r, diag.OptAlgebraicIdentity, p.Name(), len(reps), "identities simplified")
	return Result{Rewrites: len(reps)}
}

func rightIdentity(m *ir.Module, in *ir.Instr, lhs, rhs ir.Value) (ir.Value, bool) {
	c, ok := constOf(rhs)
	if !ok {
		return nil, false
	}
	zero := m.ConstZero(in.Ty)
	switch {
	case c.IsZero():
		switch in.Op {
		case ir.OpAdd, ir.OpSub, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
			return lhs, true
		case ir.OpMul, ir.OpAnd:
			return zero, true
		}
	case c.IsOne():
		switch in.Op {
		case ir.OpMul, ir.OpSDiv, ir.OpUDiv:
			return lhs, true
		case ir.OpSRem, ir.OpURem:
			return zero, true
		}
	}
	return nil, false
}

func leftIdentity(m *ir.Module, in *ir.Instr, lhs, rhs ir.Value) (ir.Value, bool) {
	c, ok := constOf(lhs)
	if !ok {
		return nil, false
	}
	switch {
	case c.IsZero():
		switch in.Op {
		case ir.OpAdd, ir.OpOr, ir.OpXor:
			return rhs, true
		case ir.OpMul, ir.OpAnd, ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpSDiv, ir.OpUDiv:
			return m.ConstZero(in.Ty), true
		}
	case c.IsOne():
		if in.Op == ir.OpMul {
			return rhs, true
		}
	}
	return nil, false
}
