// Package analysis holds read-only analyses over IR functions.
package analysis

import (
	"fmt"
	"slices"

	"sysc/internal/diag"
	"sysc/internal/ir"
)

type blockSet map[*ir.Block]struct{}

func (s blockSet) add(b *ir.Block) { s[b] = struct{}{} }

func (s blockSet) has(b *ir.Block) bool {
	_, ok := s[b]
	return ok
}

func cloneSet(s blockSet) blockSet {
	out := make(blockSet, len(s))
	for b := range s {
		out.add(b)
	}
	return out
}

// intersectSet keeps the members of dst that are also in src.
func intersectSet(dst, src blockSet) {
	for b := range dst {
		if !src.has(b) {
			delete(dst, b)
		}
	}
}

func setEqual(a, b blockSet) bool {
	if len(a) != len(b) {
		return false
	}
	for x := range a {
		if !b.has(x) {
			return false
		}
	}
	return true
}

// PostDomResult maps every block of a function to the blocks that
// post-dominate it. A block post-dominates itself.
type PostDomResult struct {
	Func *ir.Func
	// Iterations is the number of sweeps the fixed point took, including
	// the final one that changed nothing.
	Iterations int

	sets  map[*ir.Block]blockSet
	order map[*ir.Block]int
}

// PostDominators computes post-dominator sets for f. Exit blocks start with
// only themselves, every other block with the full block set; each sweep
// recomputes set(b) = {b} ∪ ⋂ set(s) over the successors s of b until no
// set changes. Blocks that cannot reach an exit keep the full set.
func PostDominators(f *ir.Func, r diag.Reporter) *PostDomResult {
	res := &PostDomResult{
		Func:  f,
		sets:  make(map[*ir.Block]blockSet, len(f.Blocks)),
		order: make(map[*ir.Block]int, len(f.Blocks)),
	}
	all := make(blockSet, len(f.Blocks))
	for i, b := range f.Blocks {
		res.order[b] = i
		all.add(b)
	}
	succs := make(map[*ir.Block][]*ir.Block, len(f.Blocks))
	for _, b := range f.Blocks {
		succs[b] = b.Successors()
		if len(succs[b]) == 0 {
			res.sets[b] = blockSet{b: {}}
		} else {
			res.sets[b] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		res.Iterations++
		// Exits are at the bottom, so sweeping backwards converges faster.
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			b := f.Blocks[i]
			if len(succs[b]) == 0 {
				continue
			}
			next := cloneSet(res.sets[succs[b][0]])
			for _, s := range succs[b][1:] {
				intersectSet(next, res.sets[s])
			}
			next.add(b)
			if !setEqual(next, res.sets[b]) {
				res.sets[b] = next
				changed = true
			}
		}
	}

	if r != nil {
		diag.ReportInfo(r, diag.AnaPostDominators, diag.Location{Func: f.Name},
			fmt.Sprintf("PostDominatorTree: %d blocks, %d iterations", len(f.Blocks), res.Iterations)).Emit()
	}
	return res
}

// Set returns the post-dominators of b in function block order, or nil when
// b is not a block of the analyzed function.
func (r *PostDomResult) Set(b *ir.Block) []*ir.Block {
	s, ok := r.sets[b]
	if !ok {
		return nil
	}
	out := make([]*ir.Block, 0, len(s))
	for x := range s {
		out = append(out, x)
	}
	slices.SortFunc(out, func(x, y *ir.Block) int { return r.order[x] - r.order[y] })
	return out
}

// PostDominates reports whether every path from b to an exit passes
// through a.
func (r *PostDomResult) PostDominates(a, b *ir.Block) bool {
	return r.sets[b].has(a)
}

// Immediate returns the closest strict post-dominator of b: the one that
// every other strict post-dominator of b also post-dominates. It is nil for
// exit blocks and for blocks that cannot reach an exit.
func (r *PostDomResult) Immediate(b *ir.Block) *ir.Block {
	s, ok := r.sets[b]
	if !ok {
		return nil
	}
	strict := cloneSet(s)
	delete(strict, b)
	for c := range strict {
		if setEqual(r.sets[c], strict) {
			return c
		}
	}
	return nil
}

// Tree returns the immediate post-dominator of every block that has one.
func (r *PostDomResult) Tree() map[*ir.Block]*ir.Block {
	out := make(map[*ir.Block]*ir.Block, len(r.sets))
	for b := range r.sets {
		if p := r.Immediate(b); p != nil {
			out[b] = p
		}
	}
	return out
}

// Functions runs PostDominators over every defined function of m, in
// module order.
func Functions(m *ir.Module, r diag.Reporter) []*PostDomResult {
	var out []*PostDomResult
	for _, f := range m.Funcs {
		if f.IsDeclaration() {
			continue
		}
		out = append(out, PostDominators(f, r))
	}
	return out
}
