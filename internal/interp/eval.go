package interp

import (
	"fortio.org/safecast"

	"sysc/internal/ir"
)

// step executes the next instruction of the top frame. finished reports
// that the frame at depth base returned, with ret as its result.
func (vm *Machine) step(base int) (ret value, finished bool, err error) {
	fr := vm.stack[len(vm.stack)-1]
	instrs := fr.block.Instrs()
	if fr.ip >= len(instrs) {
		return value{}, false, vm.trap(TrapUnimplemented, "fell off the end of %s", fr.block.Name)
	}
	in := instrs[fr.ip]
	vm.steps++

	switch {
	case in.Op.IsBinary():
		x, y, err := vm.operands2(fr, in)
		if err != nil {
			return value{}, false, err
		}
		r, err := vm.binary(in, x.i, y.i)
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = value{i: r}

	case in.Op.IsCast():
		x, err := vm.operand(fr, in.Arg(0))
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = value{i: vm.cast(in, x.i)}

	case in.Op.IsTerminator():
		return vm.terminate(fr, in, base)
	}

	switch in.Op {
	case ir.OpICmp:
		x, y, err := vm.operands2(fr, in)
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = value{i: vm.compare(in, x, y)}

	case ir.OpAlloca:
		p, err := vm.alloc(fr.fn.Name+"."+in.Name, in.Elem)
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = p

	case ir.OpLoad:
		p, err := vm.operand(fr, in.Arg(0))
		if err != nil {
			return value{}, false, err
		}
		v, err := vm.load(in.Ty, p)
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = v

	case ir.OpStore:
		p, err := vm.operand(fr, in.Arg(1))
		if err != nil {
			return value{}, false, err
		}
		src := in.Arg(0)
		if c, ok := src.(*ir.Const); ok && c.Kind == ir.ConstZero {
			if err := vm.store(c.Ty, value{}, p, true); err != nil {
				return value{}, false, err
			}
			break
		}
		v, err := vm.operand(fr, src)
		if err != nil {
			return value{}, false, err
		}
		if err := vm.store(src.Type(), v, p, false); err != nil {
			return value{}, false, err
		}

	case ir.OpGEP:
		p, err := vm.gep(fr, in)
		if err != nil {
			return value{}, false, err
		}
		fr.vals[in] = p

	case ir.OpCall:
		args := make([]value, 0, in.NumArgs()-1)
		for _, a := range in.Args()[1:] {
			v, err := vm.operand(fr, a)
			if err != nil {
				return value{}, false, err
			}
			args = append(args, v)
		}
		fn := in.Callee()
		if fn == nil {
			return value{}, false, vm.trap(TrapBadCall, "indirect call")
		}
		if len(args) != len(fn.Params) {
			return value{}, false, vm.trap(TrapBadCall, "%s called with %d arguments", fn.Name, len(args))
		}
		fr.result = in
		r, done, err := vm.enter(fn, args)
		if err != nil {
			return value{}, false, err
		}
		if !done {
			// The callee frame runs next; ret resumes this one.
			return value{}, false, nil
		}
		fr.result = nil
		fr.vals[in] = r
	}
	fr.ip++
	return value{}, false, nil
}

func (vm *Machine) terminate(fr *frame, in *ir.Instr, base int) (value, bool, error) {
	switch in.Op {
	case ir.OpBr:
		fr.block, fr.ip = in.Targets()[0], 0
		return value{}, false, nil

	case ir.OpCondBr:
		c, err := vm.operand(fr, in.Arg(0))
		if err != nil {
			return value{}, false, err
		}
		next := in.Targets()[1]
		if c.i != 0 {
			next = in.Targets()[0]
		}
		fr.block, fr.ip = next, 0
		return value{}, false, nil

	case ir.OpRet:
		var r value
		if in.NumArgs() == 1 {
			v, err := vm.operand(fr, in.Arg(0))
			if err != nil {
				return value{}, false, err
			}
			r = v
		}
		vm.stack = vm.stack[:len(vm.stack)-1]
		if len(vm.stack) == base {
			return r, true, nil
		}
		caller := vm.stack[len(vm.stack)-1]
		caller.vals[caller.result] = r
		caller.result = nil
		caller.ip++
		return value{}, false, nil
	}
	return value{}, false, vm.trap(TrapUnreachable, "unreachable executed")
}

func (vm *Machine) operand(fr *frame, v ir.Value) (value, error) {
	switch v := v.(type) {
	case *ir.Const:
		if v.Kind == ir.ConstZero && !vm.m.Types.IsInt(v.Ty) && !vm.m.Types.IsPointer(v.Ty) {
			return value{}, vm.trap(TrapUnimplemented, "aggregate constant used as a value")
		}
		return value{i: v.Int}, nil
	case *ir.Param:
		if v.Index >= len(fr.params) {
			return value{}, vm.trap(TrapBadCall, "missing argument %d", v.Index)
		}
		return fr.params[v.Index], nil
	case *ir.Global:
		return vm.globals[v], nil
	case *ir.Instr:
		r, ok := fr.vals[v]
		if !ok {
			return value{}, vm.trap(TrapUnimplemented, "%s used before it was computed", v.Op)
		}
		return r, nil
	}
	return value{}, vm.trap(TrapUnimplemented, "operand %T", v)
}

func (vm *Machine) operands2(fr *frame, in *ir.Instr) (value, value, error) {
	x, err := vm.operand(fr, in.Arg(0))
	if err != nil {
		return value{}, value{}, err
	}
	y, err := vm.operand(fr, in.Arg(1))
	if err != nil {
		return value{}, value{}, err
	}
	return x, y, nil
}

// binary computes an integer operation at the width of in.
func (vm *Machine) binary(in *ir.Instr, x, y int64) (int64, error) {
	width := vm.m.Types.Bits(in.Ty)
	ux, uy := mask(x, width), mask(y, width)
	var r int64
	switch in.Op {
	case ir.OpAdd:
		r = x + y
	case ir.OpSub:
		r = x - y
	case ir.OpMul:
		r = x * y
	case ir.OpSDiv, ir.OpSRem:
		if y == 0 {
			return 0, vm.trap(TrapDivideByZero, "%s by zero", in.Op)
		}
		if in.Op == ir.OpSDiv {
			r = x / y
		} else {
			r = x % y
		}
	case ir.OpUDiv, ir.OpURem:
		if uy == 0 {
			return 0, vm.trap(TrapDivideByZero, "%s by zero", in.Op)
		}
		if in.Op == ir.OpUDiv {
			r = int64(ux / uy)
		} else {
			r = int64(ux % uy)
		}
	case ir.OpShl:
		r = x << uy
	case ir.OpLShr:
		r = int64(ux >> uy)
	case ir.OpAShr:
		r = x >> uy
	case ir.OpAnd:
		r = x & y
	case ir.OpOr:
		r = x | y
	case ir.OpXor:
		r = x ^ y
	}
	return ir.SignExtend(r, width), nil
}

func (vm *Machine) compare(in *ir.Instr, x, y value) int64 {
	width := vm.m.Types.Bits(in.Arg(0).Type())
	if x.isPointer() || y.isPointer() {
		// Pointers compare by object, then by offset.
		x, y = value{i: int64(x.obj)<<32 | x.off}, value{i: int64(y.obj)<<32 | y.off}
		width = 64
	}
	ux, uy := mask(x.i, width), mask(y.i, width)
	var ok bool
	switch in.Pred {
	case ir.PredEQ:
		ok = x.i == y.i
	case ir.PredNE:
		ok = x.i != y.i
	case ir.PredSLT:
		ok = x.i < y.i
	case ir.PredSLE:
		ok = x.i <= y.i
	case ir.PredSGT:
		ok = x.i > y.i
	case ir.PredSGE:
		ok = x.i >= y.i
	case ir.PredULT:
		ok = ux < uy
	case ir.PredULE:
		ok = ux <= uy
	case ir.PredUGT:
		ok = ux > uy
	case ir.PredUGE:
		ok = ux >= uy
	}
	if ok {
		return 1
	}
	return 0
}

func (vm *Machine) cast(in *ir.Instr, x int64) int64 {
	from := vm.m.Types.Bits(in.Arg(0).Type())
	to := vm.m.Types.Bits(in.Ty)
	switch in.Op {
	case ir.OpZExt:
		return int64(mask(x, from))
	case ir.OpTrunc:
		return ir.SignExtend(x, to)
	}
	// Values are already held sign-extended.
	return x
}

// gep offsets the base pointer: the first index steps over whole Elem
// values, each later one over elements of the array it selects into.
func (vm *Machine) gep(fr *frame, in *ir.Instr) (value, error) {
	p, err := vm.operand(fr, in.Arg(0))
	if err != nil {
		return value{}, err
	}
	cur := in.Elem
	for i, a := range in.Args()[1:] {
		if i > 0 {
			cur = vm.m.Types.Elem(cur)
		}
		idx, err := vm.operand(fr, a)
		if err != nil {
			return value{}, err
		}
		size, err := vm.cells(cur)
		if err != nil {
			return value{}, err
		}
		p.off += idx.i * size
	}
	if _, err := safecast.Conv[int](p.off); err != nil {
		return value{}, vm.trap(TrapOutOfBounds, "offset %d", p.off)
	}
	return p, nil
}

// mask returns the low width bits of v as an unsigned number.
func mask(v int64, width uint8) uint64 {
	if width == 0 || width >= 64 {
		return uint64(v)
	}
	return uint64(v) & (1<<width - 1)
}
