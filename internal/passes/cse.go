package passes

import (
	"sysc/internal/diag"
	"sysc/internal/ir"
)

type exprKey struct {
	op       ir.Opcode
	pred     ir.Predicate
	lhs, rhs ir.Value
}

// CommonSubexpression reuses the first of several identical binary or
// compare instructions within a block. Two instructions match when opcode,
// predicate and both operands agree.
type CommonSubexpression struct{}

func (CommonSubexpression) Name() string { return "CommonSubexpression" }

func (p CommonSubexpression) Run(m *ir.Module, r diag.Reporter) Result {
	var reps []replacement
	seen := make(resolver)
	for _, f := range bodies(m) {
		for _, b := range f.Blocks {
			avail := make(map[exprKey]*ir.Instr)
			for _, in := range b.Instrs() {
				if !in.Op.IsBinary() && in.Op != ir.OpICmp {
					continue
				}
				key := exprKey{
					op:   in.Op,
					pred: in.Pred,
					lhs:  seen.resolve(in.Arg(0)),
					rhs:  seen.resolve(in.Arg(1)),
				}
				if prev, ok := avail[key]; ok {
					seen[in] = prev
					reps = append(reps, replacement{victim: in, with: prev})
					continue
				}
				avail[key] = in
			}
		}
	}
	replaceAll(reps)
	report(r, diag.OptCommonSubexpression, p.Name(), len(reps), "subexpressions eliminated")
	return Result{Rewrites: len(reps)}
}
