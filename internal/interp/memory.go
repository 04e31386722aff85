package interp

import (
	"fortio.org/safecast"

	"sysc/internal/ir"
)

// value is a runtime scalar. Integers are kept sign-extended from their
// width. A non-zero obj makes the value a pointer to cell off of that object.
type value struct {
	i   int64
	obj int
	off int64
}

func (v value) isPointer() bool { return v.obj != 0 }

// object is one allocation: a global or a stack slot. Aggregates are
// flattened into scalar cells.
type object struct {
	name  string
	cells []value
}

// cells returns how many scalar cells a value of type ty occupies.
func (vm *Machine) cells(ty ir.TypeID) (int64, error) {
	types := vm.m.Types
	switch types.KindOf(ty) {
	case ir.KindInt, ir.KindPointer:
		return 1, nil
	case ir.KindArray:
		elem, err := vm.cells(types.Elem(ty))
		if err != nil {
			return 0, err
		}
		n, err := safecast.Conv[int64](types.Len(ty))
		if err != nil {
			return 0, vm.trap(TrapUnimplemented, "array of %d elements", types.Len(ty))
		}
		return n * elem, nil
	case ir.KindVoid:
		return 0, nil
	}
	return 0, vm.trap(TrapUnimplemented, "storage of type %s", types.String(ty))
}

func (vm *Machine) alloc(name string, ty ir.TypeID) (value, error) {
	n, err := vm.cells(ty)
	if err != nil {
		return value{}, err
	}
	size, err := safecast.Conv[int](n)
	if err != nil {
		return value{}, vm.trap(TrapUnimplemented, "allocation of %d cells", n)
	}
	vm.objects = append(vm.objects, object{name: name, cells: make([]value, size)})
	return value{obj: len(vm.objects) - 1}, nil
}

// span resolves n cells starting at p.
func (vm *Machine) span(p value, n int64) ([]value, error) {
	if !p.isPointer() {
		return nil, vm.trap(TrapNullDereference, "access through non-pointer %d", p.i)
	}
	obj := &vm.objects[p.obj]
	end := p.off + n
	if p.off < 0 || end > int64(len(obj.cells)) {
		return nil, vm.trap(TrapOutOfBounds, "cells [%d, %d) of %s (size %d)", p.off, end, obj.name, len(obj.cells))
	}
	return obj.cells[p.off:end], nil
}

func (vm *Machine) load(ty ir.TypeID, p value) (value, error) {
	if vm.m.Types.IsArray(ty) {
		return value{}, vm.trap(TrapUnimplemented, "aggregate load of %s", vm.m.Types.String(ty))
	}
	cells, err := vm.span(p, 1)
	if err != nil {
		return value{}, err
	}
	return cells[0], nil
}

func (vm *Machine) store(ty ir.TypeID, v value, p value, zero bool) error {
	n := int64(1)
	if zero {
		var err error
		if n, err = vm.cells(ty); err != nil {
			return err
		}
	}
	cells, err := vm.span(p, n)
	if err != nil {
		return err
	}
	if zero {
		clear(cells)
		return nil
	}
	cells[0] = v
	return nil
}
