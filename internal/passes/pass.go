// Package passes implements the IR optimization passes and the pipeline that
// runs them.
//
// Every pass scans first and mutates after: victims are collected while
// walking the IR, then each is replaced (all uses rewritten) and erased.
// Passes never leave a block without its terminator and can run any number
// of times in any order over a verified module.
package passes

import (
	"fmt"
	"slices"

	"sysc/internal/diag"
	"sysc/internal/ir"
)

// Result summarizes one pass run.
type Result struct {
	// Rewrites counts instructions replaced, removed or rewritten.
	Rewrites int
}

// Pass is a module transformation.
type Pass interface {
	Name() string
	Run(m *ir.Module, r diag.Reporter) Result
}

var registry = map[string]func() Pass{
	"algebraic":   func() Pass { return AlgebraicIdentity{} },
	"cse":         func() Pass { return CommonSubexpression{} },
	"dce":         func() Pass { return DeadInstruction{} },
	"dse":         func() Pass { return DeadStore{} },
	"strength":    func() Pass { return StrengthReduction{} },
	"simplifycfg": func() Pass { return SimplifyCFG{} },
}

// DefaultOrder is the pass list used when no configuration names one.
var DefaultOrder = []string{"algebraic", "strength", "cse", "dse", "dce", "simplifycfg"}

// Lookup returns a fresh pass registered under name.
func Lookup(name string) (Pass, bool) {
	mk, ok := registry[name]
	if !ok {
		return nil, false
	}
	return mk(), true
}

// Names lists the registered pass names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// report sends the "<pass>: N <what>" line every pass produces.
func report(r diag.Reporter, code diag.Code, pass string, n int, what string) {
	if r == nil {
		return
	}
	diag.ReportInfo(r, code, diag.Location{}, fmt.Sprintf("%s: %d %s", pass, n, what)).Emit()
}

// replacement records that victim computes the same value as with.
type replacement struct {
	victim *ir.Instr
	with   ir.Value
}

// resolver maps victims to their stand-ins.
type resolver map[*ir.Instr]ir.Value

// resolve follows v through the map to a value that is not a victim.
func (rs resolver) resolve(v ir.Value) ir.Value {
	for {
		in, ok := v.(*ir.Instr)
		if !ok {
			return v
		}
		next, ok := rs[in]
		if !ok {
			return v
		}
		v = next
	}
}

// replaceAll applies collected replacements in order. A replacement value
// that is itself a victim is followed to its final stand-in.
func replaceAll(reps []replacement) {
	final := make(resolver, len(reps))
	for _, rep := range reps {
		final[rep.victim] = rep.with
	}
	for _, rep := range reps {
		rep.victim.ReplaceAllUsesWith(final.resolve(rep.with))
	}
	for _, rep := range reps {
		rep.victim.EraseFromParent()
	}
}

// bodies yields the defined functions of m.
func bodies(m *ir.Module) []*ir.Func {
	out := make([]*ir.Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if !f.IsDeclaration() {
			out = append(out, f)
		}
	}
	return out
}

func constOf(v ir.Value) (*ir.Const, bool) {
	c, ok := v.(*ir.Const)
	return c, ok && c.Kind == ir.ConstInt
}
