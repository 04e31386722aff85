package ir_test

import (
	"strings"
	"testing"

	"sysc/internal/ir"
)

// buildAdd creates `i32 add(i32 a, i32 b) { return a + b; }`.
func buildAdd(t *testing.T) (*ir.Module, *ir.Func) {
	t.Helper()
	m := ir.NewModule("test")
	i32 := m.Types.Builtins().I32
	f := m.NewFunc("add", m.Types.Func([]ir.TypeID{i32, i32}, i32), "a", "b")
	b := ir.NewBuilder(m)
	b.SetBlock(f.NewBlock("entry"))
	sum := b.Binary(ir.OpAdd, f.Params[0], f.Params[1])
	b.Ret(sum)
	return m, f
}

func TestTypes_Interning(t *testing.T) {
	types := ir.NewTypes()
	i32 := types.Builtins().I32
	if types.Pointer(i32) != types.Pointer(i32) {
		t.Fatalf("pointer types are not interned")
	}
	arr := types.Array(i32, 4)
	if got := types.String(arr); got != "[4 x i32]" {
		t.Errorf("array string = %q", got)
	}
	if got := types.String(types.Pointer(arr)); got != "[4 x i32]*" {
		t.Errorf("pointer string = %q", got)
	}
	fn := types.Func([]ir.TypeID{i32}, types.Builtins().Void)
	if fn != types.Func([]ir.TypeID{i32}, types.Builtins().Void) {
		t.Fatalf("function types are not interned")
	}
	if got := types.String(fn); got != "void (i32)" {
		t.Errorf("func string = %q", got)
	}
}

func TestConst_Uniqued(t *testing.T) {
	m := ir.NewModule("c")
	i8 := m.Types.Builtins().I8
	if m.ConstInt(i8, 255) != m.ConstInt(i8, -1) {
		t.Fatalf("255 and -1 must be the same i8 constant")
	}
	c := m.ConstInt(i8, 200)
	if c.Int != -56 || c.Uint() != 200 {
		t.Errorf("i8 200: Int=%d Uint=%d", c.Int, c.Uint())
	}
	if !m.Bool(true).IsOne() || !m.Bool(false).IsZero() {
		t.Errorf("bool constants wrong")
	}
}

func TestUses_TrackedThroughRAUW(t *testing.T) {
	m, f := buildAdd(t)
	a := f.Params[0]
	if a.NumUses() != 1 {
		t.Fatalf("a uses = %d, want 1", a.NumUses())
	}
	sum := f.Entry().Instrs()[0]
	ret := f.Entry().Terminator()
	if sum.NumUses() != 1 || sum.Uses()[0].User != ret {
		t.Fatalf("sum uses = %v", sum.Uses())
	}

	sum.ReplaceAllUsesWith(a)
	if sum.HasUses() {
		t.Fatalf("sum still used after RAUW")
	}
	if ret.Arg(0) != ir.Value(a) {
		t.Fatalf("ret operand not rewritten")
	}
	sum.EraseFromParent()
	if !sum.Erased() || sum.Block() != nil {
		t.Fatalf("erased instruction still attached")
	}
	if a.NumUses() != 1 {
		t.Fatalf("a uses after erase = %d, want 1 (ret)", a.NumUses())
	}
	if err := ir.Verify(m); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestErase_PanicsWithUses(t *testing.T) {
	_, f := buildAdd(t)
	sum := f.Entry().Instrs()[0]
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic erasing a used instruction")
		}
	}()
	sum.EraseFromParent()
}

func TestBuilder_InsertBefore(t *testing.T) {
	m, f := buildAdd(t)
	b := ir.NewBuilder(m)
	b.SetInsertBefore(f.Entry().Instrs()[0])
	slot := b.Alloca(m.Types.Builtins().I32, "x")
	if f.Entry().Instrs()[0] != slot {
		t.Fatalf("alloca not placed first")
	}
	if got := m.Types.String(slot.Type()); got != "i32*" {
		t.Errorf("alloca type = %s", got)
	}
}

func TestBuilder_GEPResultType(t *testing.T) {
	m := ir.NewModule("gep")
	i32 := m.Types.Builtins().I32
	i64 := m.Types.Builtins().I64
	arr := m.Types.Array(i32, 4)
	f := m.NewFunc("f", m.Types.Func(nil, m.Types.Builtins().Void))
	b := ir.NewBuilder(m)
	b.SetBlock(f.NewBlock("entry"))
	slot := b.Alloca(arr, "a")
	elem := b.GEP(arr, slot, m.ConstInt(i64, 0), m.ConstInt(i64, 2))
	if elem.Type() != m.Types.Pointer(i32) {
		t.Fatalf("gep type = %s, want i32*", m.Types.String(elem.Type()))
	}
	whole := b.GEP(arr, slot, m.ConstInt(i64, 1))
	if whole.Type() != m.Types.Pointer(arr) {
		t.Fatalf("gep type = %s, want [4 x i32]*", m.Types.String(whole.Type()))
	}
	b.Ret(nil)
	if err := ir.Verify(m); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestBlock_UniqueNames(t *testing.T) {
	m := ir.NewModule("names")
	f := m.NewFunc("f", m.Types.Func(nil, m.Types.Builtins().Void))
	names := []string{f.NewBlock("then").Name, f.NewBlock("then").Name, f.NewBlock("then").Name}
	want := []string{"then", "then1", "then2"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestVerify_Unterminated(t *testing.T) {
	m := ir.NewModule("bad")
	f := m.NewFunc("f", m.Types.Func(nil, m.Types.Builtins().Void))
	f.NewBlock("entry")
	err := ir.Verify(m)
	if err == nil || !strings.Contains(err.Error(), "unterminated") {
		t.Fatalf("expected unterminated error, got %v", err)
	}
}

func TestVerify_ReturnMismatch(t *testing.T) {
	m := ir.NewModule("bad")
	i32 := m.Types.Builtins().I32
	f := m.NewFunc("f", m.Types.Func(nil, i32))
	b := ir.NewBuilder(m)
	b.SetBlock(f.NewBlock("entry"))
	b.Ret(nil)
	err := ir.Verify(m)
	if err == nil || !strings.Contains(err.Error(), "missing return value") {
		t.Fatalf("expected return error, got %v", err)
	}
}

func TestBuilder_AppendAfterTerminatorPanics(t *testing.T) {
	m := ir.NewModule("p")
	f := m.NewFunc("f", m.Types.Func(nil, m.Types.Builtins().Void))
	b := ir.NewBuilder(m)
	b.SetBlock(f.NewBlock("entry"))
	b.Ret(nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	b.Unreachable()
}

func TestDump(t *testing.T) {
	m, _ := buildAdd(t)
	m.NewGlobal("counter", m.Types.Builtins().I32)
	var sb strings.Builder
	if err := ir.Dump(&sb, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := sb.String()
	for _, want := range []string{
		"@counter = global i32 0",
		"define i32 @add(i32 %a, i32 %b) {",
		"entry:",
		"%0 = add i32 %a, %b",
		"ret i32 %0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
