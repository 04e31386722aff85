// Package interp is a reference evaluator for IR modules.
//
// It executes functions instruction by instruction on an explicit frame
// stack, with globals and stack slots modelled as arrays of scalar cells.
// Tests use it to check that optimization preserves behavior, and the CLI
// uses it to run a lowered program.
package interp

import (
	"context"
	"errors"
	"fmt"

	"sysc/internal/ir"
	"sysc/internal/trace"
)

// Extern implements a function the module only declares.
type Extern func(args []int64) int64

// Options configures a Machine.
type Options struct {
	// StepLimit caps executed instructions per Call. Zero means DefaultStepLimit.
	StepLimit int64
	// MaxDepth caps nested calls. Zero means DefaultMaxDepth.
	MaxDepth int
	// Externs supplies bodies for declarations, by function name.
	Externs map[string]Extern
}

const (
	DefaultStepLimit = 10_000_000
	DefaultMaxDepth  = 1024
)

// Machine executes one module. It is not safe for concurrent use.
type Machine struct {
	m       *ir.Module
	opts    Options
	objects []object
	globals map[*ir.Global]value
	stack   []*frame
	steps   int64
	inited  bool
}

// frame is one activation: the function, the position of the next
// instruction and the values computed so far.
type frame struct {
	fn     *ir.Func
	block  *ir.Block
	ip     int
	params []value
	vals   map[*ir.Instr]value
	// result receives the callee's return value when this frame is waiting
	// on a call.
	result *ir.Instr
}

// New prepares a machine with zeroed globals. Constructors have not run yet.
func New(m *ir.Module, opts Options) (*Machine, error) {
	if m == nil {
		return nil, errors.New("interp: nil module")
	}
	if opts.StepLimit <= 0 {
		opts.StepLimit = DefaultStepLimit
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	vm := &Machine{
		m:       m,
		opts:    opts,
		objects: []object{{name: "null"}},
		globals: make(map[*ir.Global]value, len(m.Globals)),
	}
	for _, g := range m.Globals {
		p, err := vm.alloc("@"+g.Name, g.Elem)
		if err != nil {
			return nil, fmt.Errorf("interp: global %s: %w", g.Name, err)
		}
		if g.Init != nil && g.Init.Kind == ir.ConstInt {
			vm.objects[p.obj].cells[0] = value{i: g.Init.Int}
		}
		vm.globals[g] = p
	}
	return vm, nil
}

// Init runs the module constructors in priority order. It runs them once;
// later calls do nothing.
func (vm *Machine) Init(ctx context.Context) error {
	if vm.inited {
		return nil
	}
	vm.inited = true
	for _, c := range vm.m.SortedCtors() {
		if _, err := vm.call(ctx, c.Func, nil); err != nil {
			return fmt.Errorf("interp: constructor %s: %w", c.Func.Name, err)
		}
	}
	return nil
}

// Call runs the named function with integer arguments and returns its
// result, zero for void functions. Constructors run first if Init was not
// called yet.
func (vm *Machine) Call(ctx context.Context, name string, args ...int64) (int64, error) {
	if err := vm.Init(ctx); err != nil {
		return 0, err
	}
	fn := vm.m.Func(name)
	if fn == nil {
		return 0, fmt.Errorf("interp: no function %q", name)
	}
	if len(args) != len(fn.Params) {
		return 0, fmt.Errorf("interp: %s takes %d arguments, got %d", name, len(fn.Params), len(args))
	}
	vals := make([]value, len(args))
	for i, a := range args {
		pt := fn.Params[i].Ty
		if !vm.m.Types.IsInt(pt) {
			return 0, fmt.Errorf("interp: %s parameter %d has type %s", name, i, vm.m.Types.String(pt))
		}
		vals[i] = value{i: ir.SignExtend(a, vm.m.Types.Bits(pt))}
	}

	span, ctx := trace.Start(ctx, trace.ScopeFunc, "run:"+name)
	start := vm.steps
	v, err := vm.call(ctx, fn, vals)
	span.Count("steps", int(vm.steps-start)).Fail(err)
	if err != nil {
		return 0, err
	}
	return v.i, nil
}

// Global returns the cells of the named global.
func (vm *Machine) Global(name string) ([]int64, error) {
	g := vm.m.Global(name)
	if g == nil {
		return nil, fmt.Errorf("interp: no global %q", name)
	}
	cells := vm.objects[vm.globals[g].obj].cells
	out := make([]int64, len(cells))
	for i, c := range cells {
		out[i] = c.i
	}
	return out, nil
}

// Steps reports how many instructions have executed so far.
func (vm *Machine) Steps() int64 { return vm.steps }

// Run is New, Init and Call in one step.
func Run(ctx context.Context, m *ir.Module, entry string, args ...int64) (int64, error) {
	vm, err := New(m, Options{})
	if err != nil {
		return 0, err
	}
	return vm.Call(ctx, entry, args...)
}

// call runs fn to completion on top of the current stack.
func (vm *Machine) call(ctx context.Context, fn *ir.Func, args []value) (value, error) {
	base := len(vm.stack)
	if ret, done, err := vm.enter(fn, args); err != nil || done {
		return ret, err
	}
	limit := vm.steps + vm.opts.StepLimit
	for {
		if vm.steps&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				vm.stack = vm.stack[:base]
				return value{}, fmt.Errorf("interp: %w", err)
			}
		}
		if vm.steps >= limit {
			t := vm.trap(TrapStepLimit, "more than %d steps", vm.opts.StepLimit)
			vm.stack = vm.stack[:base]
			return value{}, t
		}
		ret, finished, err := vm.step(base)
		if err != nil {
			vm.stack = vm.stack[:base]
			return value{}, err
		}
		if finished {
			return ret, nil
		}
	}
}

// enter pushes a frame for fn, or evaluates an extern directly. done is true
// when the call already completed.
func (vm *Machine) enter(fn *ir.Func, args []value) (ret value, done bool, err error) {
	if fn.IsDeclaration() {
		ext, ok := vm.opts.Externs[fn.Name]
		if !ok {
			return value{}, true, vm.trap(TrapUndefinedFunc, "call to undefined %s", fn.Name)
		}
		raw := make([]int64, len(args))
		for i, a := range args {
			if a.isPointer() {
				return value{}, true, vm.trap(TrapBadCall, "pointer argument to extern %s", fn.Name)
			}
			raw[i] = a.i
		}
		r := ext(raw)
		if bits := vm.m.Types.Bits(fn.Result()); bits != 0 {
			r = ir.SignExtend(r, bits)
		}
		return value{i: r}, true, nil
	}
	if len(vm.stack) >= vm.opts.MaxDepth {
		return value{}, true, vm.trap(TrapStackOverflow, "call depth %d", len(vm.stack))
	}
	vm.stack = append(vm.stack, &frame{
		fn:     fn,
		block:  fn.Entry(),
		params: args,
		vals:   make(map[*ir.Instr]value),
	})
	return value{}, false, nil
}
