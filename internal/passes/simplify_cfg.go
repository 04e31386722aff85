package passes

import (
	"sysc/internal/diag"
	"sysc/internal/ir"
)

// SimplifyCFG cleans up the block graph of every function.
// Transformations:
// 1. Branches into trivial br blocks (a lone unconditional branch) jump
// straight to the final target of the chain
// 2. Blocks unreachable from the entry are removed
//
// Lowering leaves behind continuation blocks after return, break and
// continue; this pass is what deletes them.
type SimplifyCFG struct{}

func (SimplifyCFG) Name() string { return "SimplifyCFG" }

func (p SimplifyCFG) Run(m *ir.Module, r diag.Reporter) Result {
	retargeted, removed := 0, 0
	for _, f := range bodies(m) {
		// Phase 1: build the redirect map for trivial br blocks
		redirects := buildRedirectMap(f)
		// Phase 2: apply redirects to all terminators
		retargeted += applyRedirects(f, redirects)
		// Phase 3: drop blocks the entry cannot reach
		reachable := computeReachability(f)
		var dead []*ir.Block
		for _, b := range f.Blocks {
			if !reachable[b] {
				dead = append(dead, b)
			}
		}
		f.RemoveBlocks(dead)
		removed += len(dead)
	}
	report(r, diag.OptSimplifyCFG, p.Name(), removed, "unreachable blocks removed")
	return Result{Rewrites: retargeted + removed}
}

func isTrivialBr(f *ir.Func, b *ir.Block) bool {
	instrs := b.Instrs()
	return b != f.Entry() && len(instrs) == 1 && instrs[0].Op == ir.OpBr
}

// buildRedirectMap maps every trivial br block to the end of its chain.
func buildRedirectMap(f *ir.Func) map[*ir.Block]*ir.Block {
	redirects := make(map[*ir.Block]*ir.Block)
	for _, b := range f.Blocks {
		if !isTrivialBr(f, b) {
			continue
		}
		target := b.Terminator().Targets()[0]
		visited := map[*ir.Block]bool{b: true}
		for !visited[target] {
			visited[target] = true
			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialBr(f, target) {
				target = target.Terminator().Targets()[0]
				continue
			}
			break
		}
		if visited[target] && isTrivialBr(f, target) {
			// A cycle of empty blocks: leave it alone.
			continue
		}
		redirects[b] = target
	}
	return redirects
}

func applyRedirects(f *ir.Func, redirects map[*ir.Block]*ir.Block) int {
	if len(redirects) == 0 {
		return 0
	}
	n := 0
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for i, t := range term.Targets() {
			if to, ok := redirects[t]; ok && to != t {
				term.SetTarget(i, to)
				n++
			}
		}
	}
	return n
}

func computeReachability(f *ir.Func) map[*ir.Block]bool {
	seen := make(map[*ir.Block]bool, len(f.Blocks))
	stack := []*ir.Block{f.Entry()}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[b] {
			continue
		}
		seen[b] = true
		stack = append(stack, b.Successors()...)
	}
	return seen
}
