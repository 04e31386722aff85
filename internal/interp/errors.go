package interp

import (
	"fmt"
	"strings"
)

// TrapCode identifies why execution stopped.
type TrapCode int

// Stable trap codes - do not change values.
const (
	TrapDivideByZero    TrapCode = 1001 // INT1001: integer division or remainder by zero
	TrapUnreachable     TrapCode = 1002 // INT1002: executed unreachable
	TrapStepLimit       TrapCode = 1003 // INT1003: step budget exhausted
	TrapOutOfBounds     TrapCode = 1004 // INT1004: memory access outside its object
	TrapUndefinedFunc   TrapCode = 1005 // INT1005: call to a declaration with no extern
	TrapBadCall         TrapCode = 1006 // INT1006: wrong argument count or kind
	TrapStackOverflow   TrapCode = 1007 // INT1007: call depth limit exceeded
	TrapNullDereference TrapCode = 1008 // INT1008: load or store through null
	TrapUnimplemented   TrapCode = 1999 // INT1999: value or operation the machine cannot model
)

// String returns the code as "INT1001".
func (c TrapCode) String() string {
	return fmt.Sprintf("INT%d", c)
}

// Trap is a runtime failure inside the evaluated program.
type Trap struct {
	Code    TrapCode
	Message string
	// Backtrace lists "func:block" from the innermost frame outward.
	Backtrace []string
}

func (t *Trap) Error() string {
	if len(t.Backtrace) == 0 {
		return fmt.Sprintf("trap %s: %s", t.Code, t.Message)
	}
	return fmt.Sprintf("trap %s: %s (at %s)", t.Code, t.Message, strings.Join(t.Backtrace, " <- "))
}

func (vm *Machine) trap(code TrapCode, format string, args ...any) *Trap {
	t := &Trap{Code: code, Message: fmt.Sprintf(format, args...)}
	for i := len(vm.stack) - 1; i >= 0; i-- {
		fr := vm.stack[i]
		t.Backtrace = append(t.Backtrace, fr.fn.Name+":"+fr.block.Name)
	}
	return t
}
