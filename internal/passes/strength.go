package passes

import (
	"math/bits"

	"sysc/internal/diag"
	"sysc/internal/ir"
)

// StrengthReduction replaces multiplication and division by a power of two
// with shifts. Signed division adds a bias to negative dividends first so
// the result still rounds toward zero:
//
//	x sdiv 2   =>  t = lshr x, bits-1; u = add x, t; ashr u, 1
//	x sdiv 2^k =>  s = ashr x, bits-1; t = lshr s, bits-k; u = add x, t; ashr u, k
type StrengthReduction struct{}

func (StrengthReduction) Name() string { return "StrengthReduction" }

type reduction struct {
	in    *ir.Instr
	x     ir.Value
	shift uint
}

func (p StrengthReduction) Run(m *ir.Module, r diag.Reporter) Result {
	var todo []reduction
	for _, f := range bodies(m) {
		for _, b := range f.Blocks {
			for _, in := range b.Instrs() {
				if red, ok := reducible(m, in); ok {
					todo = append(todo, red)
				}
			}
		}
	}

	b := ir.NewBuilder(m)
	reps := make([]replacement, 0, len(todo))
	for _, red := range todo {
		in := red.in
		b.SetInsertBefore(in)
		ty := in.Ty
		width := uint(m.Types.Bits(ty))
		k := m.ConstInt(ty, int64(red.shift))
		var out ir.Value
		switch in.Op {
		case ir.OpMul:
			out = b.Binary(ir.OpShl, red.x, k)
		case ir.OpUDiv:
			out = b.Binary(ir.OpLShr, red.x, k)
		case ir.OpSDiv:
			var bias ir.Value
			if red.shift == 1 {
				bias = b.Binary(ir.OpLShr, red.x, m.ConstInt(ty, int64(width-1)))
			} else {
				sign := b.Binary(ir.OpAShr, red.x, m.ConstInt(ty, int64(width-1)))
				bias = b.Binary(ir.OpLShr, sign, m.ConstInt(ty, int64(width-red.shift)))
			}
			sum := b.Binary(ir.OpAdd, red.x, bias)
			out = b.Binary(ir.OpAShr, sum, k)
		}
		reps = append(reps, replacement{victim: in, with: out})
	}
	replaceAll(reps)
	report(r, diag.OptStrengthReduction, p.Name(), len(reps), "strength reductions applied")
	return Result{Rewrites: len(reps)}
}

// reducible matches mul by 2^k on either side and udiv/sdiv by 2^k on the
// right, k >= 1, with a positive divisor for sdiv.
func reducible(m *ir.Module, in *ir.Instr) (reduction, bool) {
	width := uint(m.Types.Bits(in.Ty))
	switch in.Op {
	case ir.OpMul:
		if k, ok := log2(in.Arg(1), width); ok {
			return reduction{in: in, x: in.Arg(0), shift: k}, true
		}
		if k, ok := log2(in.Arg(0), width); ok {
			return reduction{in: in, x: in.Arg(1), shift: k}, true
		}
	case ir.OpUDiv, ir.OpSDiv:
		// The sign bit alone is a negative divisor for sdiv.
		if c, ok := constOf(in.Arg(1)); ok && in.Op == ir.OpSDiv && c.Int < 0 {
			return reduction{}, false
		}
		if k, ok := log2(in.Arg(1), width); ok {
			return reduction{in: in, x: in.Arg(0), shift: k}, true
		}
	}
	return reduction{}, false
}

// log2 returns k when v is the constant 2^k with 1 <= k < width.
func log2(v ir.Value, width uint) (uint, bool) {
	c, ok := constOf(v)
	if !ok || width < 2 {
		return 0, false
	}
	u := c.Uint()
	if u < 2 || u&(u-1) != 0 {
		return 0, false
	}
	k := uint(bits.TrailingZeros64(u))
	if k >= width {
		return 0, false
	}
	return k, true
}
