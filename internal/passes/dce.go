package passes

import (
	"slices"

	"sysc/internal/diag"
	"sysc/internal/ir"
)

// removable reports whether in may be deleted once nothing reads its result.
func removable(in *ir.Instr) bool {
	switch in.Op {
	case ir.OpICmp, ir.OpLoad, ir.OpGEP, ir.OpAlloca:
		return true
	}
	return in.Op.IsBinary() || in.Op.IsCast()
}

// onlyUsedBy reports whether every user of in is in the dead set.
func onlyUsedBy(in *ir.Instr, dead map[*ir.Instr]bool) bool {
	for _, u := range in.Uses() {
		if !dead[u.User] {
			return false
		}
	}
	return true
}

func eraseAll(victims []*ir.Instr) {
	for _, in := range victims {
		in.EraseFromParent()
	}
}

// DeadInstruction removes side-effect-free instructions whose result is
// never used. Each block is swept once from the bottom up, so an operand
// whose only readers are removed in the same sweep goes too. Stores, calls
// and terminators are always kept.
type DeadInstruction struct{}

func (DeadInstruction) Name() string { return "DeadInstruction" }

func (p DeadInstruction) Run(m *ir.Module, r diag.Reporter) Result {
	n := 0
	for _, f := range bodies(m) {
		for _, b := range f.Blocks {
			dead := make(map[*ir.Instr]bool)
			var victims []*ir.Instr
			instrs := b.Instrs()
			for i := len(instrs) - 1; i >= 0; i-- {
				in := instrs[i]
				if removable(in) && onlyUsedBy(in, dead) {
					dead[in] = true
					victims = append(victims, in)
				}
			}
			// Bottom-up order erases users before their operands.
			eraseAll(victims)
			n += len(victims)
		}
	}
	report(r, diag.OptDeadInstruction, p.Name(), n, "dead instructions removed")
	return Result{Rewrites: n}
}

// DeadStore removes stack slots nobody reads. A slot whose only uses are
// stores into it is deleted together with those stores and with every
// side-effect-free instruction that existed only to compute the stored
// values. Slots without any use are deleted as well. Globals are never
// touched: their contents are visible outside the function.
type DeadStore struct{}

func (DeadStore) Name() string { return "DeadStore" }

func (p DeadStore) Run(m *ir.Module, r diag.Reporter) Result {
	n := 0
	for _, f := range bodies(m) {
		var victims []*ir.Instr
		dead := make(map[*ir.Instr]bool)
		kill := func(in *ir.Instr) {
			dead[in] = true
			victims = append(victims, in)
		}

		for _, slot := range f.Entry().Instrs() {
			if slot.Op != ir.OpAlloca || !writeOnly(slot) {
				continue
			}
			var queue []ir.Value
			for _, u := range slot.Uses() {
				kill(u.User)
				queue = append(queue, u.User.Arg(0))
			}
			// Breadth-first over the def-use chain feeding the stores.
			for len(queue) > 0 {
				v := queue[0]
				queue = queue[1:]
				in, ok := v.(*ir.Instr)
				if !ok || dead[in] || !removable(in) || in.Op == ir.OpAlloca || !onlyUsedBy(in, dead) {
					continue
				}
				kill(in)
				queue = append(queue, in.Args()...)
			}
			kill(slot)
		}
		eraseAll(victims)
		n += len(victims)
	}
	report(r, diag.OptDeadStore, p.Name(), n, "dead stores removed")
	return Result{Rewrites: n}
}

// writeOnly reports whether every use of slot is a store into it.
func writeOnly(slot *ir.Instr) bool {
	return !slices.ContainsFunc(slot.Uses(), func(u ir.Use) bool {
		return u.User.Op != ir.OpStore || u.Index != 1
	})
}
