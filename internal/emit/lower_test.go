package emit_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"sysc/internal/ast"
	"sysc/internal/diag"
	"sysc/internal/emit"
	"sysc/internal/ir"
	tk "sysc/internal/testkit"
	"sysc/internal/trace"
)

func lower(t *testing.T, tu *ast.TranslationUnit) *ir.Module {
	t.Helper()
	m, err := emit.Lower(tu)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if err := tk.CheckModuleInvariants(m); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	return m
}

func TestLower_ClampStructure(t *testing.T) {
	m := lower(t, tk.ClampProgram())
	f := m.Func("clamp")
	if f == nil {
		t.Fatalf("clamp not lowered")
	}
	wantBlocks := []string{"entry", "if.then", "if.exit", "ret.cont", "ret.cont1"}
	if got := tk.BlockNames(f); !slices.Equal(got, wantBlocks) {
		t.Fatalf("blocks = %v, want %v", got, wantBlocks)
	}

	cases := []struct {
		block string
		ops   []ir.Opcode
	}{
		{"entry", []ir.Opcode{ir.OpAlloca, ir.OpStore, ir.OpLoad, ir.OpICmp, ir.OpCondBr}},
		{"if.then", []ir.Opcode{ir.OpRet}},
		{"if.exit", []ir.Opcode{ir.OpLoad, ir.OpRet}},
		{"ret.cont", []ir.Opcode{ir.OpBr}},
		{"ret.cont1", []ir.Opcode{ir.OpUnreachable}},
	}
	for _, tc := range cases {
		b := f.Blocks[slices.Index(wantBlocks, tc.block)]
		if got := tk.Ops(b); !slices.Equal(got, tc.ops) {
			t.Errorf("%s ops = %v, want %v", tc.block, got, tc.ops)
		}
	}

	entry := f.Entry()
	cmp := entry.Instrs()[3]
	if cmp.Pred != ir.PredSLT {
		t.Errorf("predicate = %s, want slt", cmp.Pred)
	}
	br := entry.Terminator()
	if br.Targets()[0].Name != "if.then" || br.Targets()[1].Name != "if.exit" {
		t.Errorf("condbr targets = %s, %s", br.Targets()[0].Name, br.Targets()[1].Name)
	}
	if slot := entry.Instrs()[0]; slot.Name != "n.addr" {
		t.Errorf("param slot name = %q", slot.Name)
	}
}

func TestLower_ArrayInitBackToFront(t *testing.T) {
	arrT := ast.ArrayOf(ast.Int(), 4)
	a := tk.VarInit("a", arrT, tk.List(arrT, tk.Lit(1), tk.Lit(2)))
	tu := tk.Unit("arr.c", tk.Func("g", ast.Void(), nil, tk.Decl(a)))
	m := lower(t, tu)
	f := m.Func("g")

	var idx, vals []int64
	for _, in := range f.Entry().Instrs() {
		if in.Op != ir.OpStore {
			continue
		}
		gep, ok := in.Arg(1).(*ir.Instr)
		if !ok || gep.Op != ir.OpGEP {
			t.Fatalf("store destination is not a gep")
		}
		idx = append(idx, gep.Arg(2).(*ir.Const).Int)
		vals = append(vals, in.Arg(0).(*ir.Const).Int)
	}
	if want := []int64{3, 2, 1, 0}; !slices.Equal(idx, want) {
		t.Errorf("store indices = %v, want %v", idx, want)
	}
	if want := []int64{0, 0, 2, 1}; !slices.Equal(vals, want) {
		t.Errorf("stored values = %v, want %v", vals, want)
	}
}

func TestLower_NestedArrayInit(t *testing.T) {
	rowT := ast.ArrayOf(ast.Int(), 2)
	gridT := ast.ArrayOf(rowT, 2)
	g := tk.VarInit("grid", gridT, tk.List(gridT, tk.List(rowT, tk.Lit(1), tk.Lit(2))))
	tu := tk.Unit("grid.c", tk.Func("h", ast.Void(), nil, tk.Decl(g)))
	m := lower(t, tu)

	var stored []string
	for _, in := range m.Func("h").Entry().Instrs() {
		if in.Op == ir.OpStore {
			c := in.Arg(0).(*ir.Const)
			if c.Kind == ir.ConstZero && m.Types.IsArray(c.Ty) {
				stored = append(stored, "row0")
			} else {
				stored = append(stored, m.Types.String(c.Ty))
			}
		}
	}
	// Row 1 is zero-filled as a whole and comes first; row 0 then stores
	// its two elements back to front.
	if want := []string{"row0", "i32", "i32"}; !slices.Equal(stored, want) {
		t.Errorf("stores = %v, want %v", stored, want)
	}
}

func TestLower_UninitializedLocalHasNoStore(t *testing.T) {
	x := tk.Var("x", ast.Int())
	tu := tk.Unit("u.c", tk.Func("u", ast.Void(), nil, tk.Decl(x)))
	m := lower(t, tu)
	if n := tk.CountOp(m.Func("u"), ir.OpStore); n != 0 {
		t.Errorf("stores = %d, want 0", n)
	}
}

func TestLower_GlobalInitializerCtor(t *testing.T) {
	plain := tk.Var("plain", ast.ArrayOf(ast.Int(), 3))
	g := tk.VarInit("g", ast.Int(), tk.Lit(5))
	m := lower(t, tk.Unit("glob.c", plain, g))

	pg := m.Global("plain")
	if pg == nil || m.Types.String(pg.Elem) != "[3 x i32]" || pg.Init.Kind != ir.ConstZero {
		t.Fatalf("plain global = %+v", pg)
	}
	if gv := m.Global("g"); gv == nil || !gv.Init.IsZero() {
		t.Fatalf("g must be zero-initialized storage")
	}
	ctor := m.Func("__init_g")
	if ctor == nil || ctor.Linkage != ir.LinkagePrivate {
		t.Fatalf("missing private ctor")
	}
	if len(m.Ctors) != 1 || m.Ctors[0].Func != ctor || m.Ctors[0].Priority != ir.DefaultCtorPriority {
		t.Fatalf("ctors = %+v", m.Ctors)
	}
	if got := tk.Ops(ctor.Entry()); !slices.Equal(got, []ir.Opcode{ir.OpStore, ir.OpRet}) {
		t.Errorf("ctor ops = %v", got)
	}

	var sb strings.Builder
	if err := ir.Dump(&sb, m); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"@plain = global [3 x i32] zeroinitializer",
		"@g = global i32 0",
		"; ctors: { 65535, @__init_g }",
		"define private void @__init_g()",
		"store i32 5, i32* @g",
	} {
		if !strings.Contains(sb.String(), want) {
			t.Errorf("dump missing %q:\n%s", want, sb.String())
		}
	}
}

func TestLower_ShortCircuit(t *testing.T) {
	side := tk.Proto("side", ast.Int())
	a := tk.Var("a", ast.Int())
	f := tk.Func("and", ast.Int(), tk.Params(a),
		tk.Return(tk.Bin(ast.BinLogicalAnd, tk.Load(a), tk.Call(side))),
	)
	m := lower(t, tk.Unit("sc.c", side, f))
	fn := m.Func("and")

	names := tk.BlockNames(fn)
	if !slices.Contains(names, "land.rhs") || !slices.Contains(names, "land.end") {
		t.Fatalf("blocks = %v", names)
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs() {
			if in.Op == ir.OpCall && b.Name != "land.rhs" {
				t.Errorf("call emitted in %s, want land.rhs", b.Name)
			}
		}
	}
	entryBr := fn.Entry().Terminator()
	if entryBr.Op != ir.OpCondBr || entryBr.Targets()[0].Name != "land.rhs" || entryBr.Targets()[1].Name != "land.end" {
		t.Errorf("entry branch does not short-circuit")
	}
	var tmp *ir.Instr
	for _, in := range fn.Entry().Instrs() {
		if in.Op == ir.OpAlloca && in.Name == "land.tmp" {
			tmp = in
		}
	}
	if tmp == nil || tmp.Elem != m.Types.Builtins().I1 {
		t.Errorf("missing i1 land.tmp slot")
	}
}

func TestLower_LoopsBreakContinue(t *testing.T) {
	m := lower(t, tk.SumProgram())
	f := m.Func("sum")
	byName := map[string]*ir.Block{}
	for _, b := range f.Blocks {
		byName[b.Name] = b
	}
	for _, name := range []string{"while.cond", "while.body", "while.exit", "continue.cont", "break.cont"} {
		if byName[name] == nil {
			t.Fatalf("missing block %s in %v", name, tk.BlockNames(f))
		}
	}
	// The first if.then holds the continue, the second the break.
	if got := byName["if.then"].Terminator().Targets()[0]; got != byName["while.cond"] {
		t.Errorf("continue jumps to %s", got.Name)
	}
	if got := byName["if.then1"].Terminator().Targets()[0]; got != byName["while.exit"] {
		t.Errorf("break jumps to %s", got.Name)
	}
}

func TestLower_DoWhile(t *testing.T) {
	f := tk.Func("d", ast.Void(), nil, tk.Do(tk.Block(), tk.Lit(0)))
	m := lower(t, tk.Unit("do.c", f))
	fn := m.Func("d")
	want := []string{"entry", "do.body", "do.cond", "do.exit"}
	if got := tk.BlockNames(fn); !slices.Equal(got, want) {
		t.Fatalf("blocks = %v, want %v", got, want)
	}
	br := fn.Blocks[2].Terminator()
	if br.Op != ir.OpCondBr || br.Targets()[0] != fn.Blocks[1] || br.Targets()[1] != fn.Blocks[3] {
		t.Errorf("do.cond branch wrong")
	}
	if fn.Blocks[3].Terminator().Op != ir.OpRet {
		t.Errorf("void function must fall through to ret")
	}
}

func TestLower_ComparisonAndNotAsValues(t *testing.T) {
	a := tk.Var("a", ast.Int())
	lt := tk.Func("lt", ast.Int(), tk.Params(a), tk.Return(tk.Bin(ast.BinLt, tk.Load(a), tk.Lit(1))))
	b := tk.Var("b", ast.Int())
	not := tk.Func("not", ast.Int(), tk.Params(b), tk.Return(tk.Not(tk.Load(b))))
	m := lower(t, tk.Unit("v.c", lt, not))

	ops := tk.Ops(m.Func("lt").Entry())
	if !slices.Equal(ops[len(ops)-3:], []ir.Opcode{ir.OpICmp, ir.OpZExt, ir.OpRet}) {
		t.Errorf("lt ops = %v", ops)
	}
	ops = tk.Ops(m.Func("not").Entry())
	if !slices.Equal(ops[len(ops)-4:], []ir.Opcode{ir.OpICmp, ir.OpXor, ir.OpZExt, ir.OpRet}) {
		t.Errorf("not ops = %v", ops)
	}
}

func TestLower_IndexArrayParam(t *testing.T) {
	arr := tk.Var("a", ast.ArrayOfUnknown(ast.Int()))
	i := tk.Var("i", ast.Int())
	f := tk.Func("at", ast.Int(), tk.Params(arr, i), tk.Return(tk.RValue(tk.Elem(arr, tk.Load(i)))))
	m := lower(t, tk.Unit("idx.c", f))
	fn := m.Func("at")

	bt := m.Types.Builtins()
	if fn.Params[0].Ty != m.Types.Pointer(bt.I32) {
		t.Fatalf("array param lowered to %s", m.Types.String(fn.Params[0].Ty))
	}
	var gep *ir.Instr
	for _, in := range fn.Entry().Instrs() {
		if in.Op == ir.OpGEP {
			gep = in
		}
	}
	if gep == nil || gep.Elem != bt.I32 || gep.NumArgs() != 2 {
		t.Fatalf("gep = %+v", gep)
	}
	if idx, ok := gep.Arg(1).(*ir.Instr); !ok || idx.Op != ir.OpSExt || idx.Ty != bt.I64 {
		t.Errorf("index not sign-extended to i64")
	}
	// The decay reads the pointer out of the parameter's slot.
	base, ok := gep.Arg(0).(*ir.Instr)
	if !ok || base.Op != ir.OpLoad || base.Ty != m.Types.Pointer(bt.I32) {
		t.Fatalf("gep base = %+v, want a load of i32*", gep.Arg(0))
	}
	if slot, ok := base.Arg(0).(*ir.Instr); !ok || slot.Op != ir.OpAlloca {
		t.Errorf("pointer not loaded from the parameter slot")
	}
}

func TestLower_LocalArrayDecay(t *testing.T) {
	a := tk.Var("a", ast.ArrayOf(ast.Int(), 2))
	f := tk.Func("set", ast.Void(), nil,
		tk.Decl(a),
		tk.Expr(&ast.BinaryExpr{Type: ast.Int(), Op: ast.BinAssign, LHS: tk.Elem(a, tk.Lit(1)), RHS: tk.Lit(3)}),
	)
	m := lower(t, tk.Unit("set.c", f))
	var geps []*ir.Instr
	for _, in := range m.Func("set").Entry().Instrs() {
		if in.Op == ir.OpGEP {
			geps = append(geps, in)
		}
	}
	if len(geps) != 2 {
		t.Fatalf("geps = %d, want decay + index", len(geps))
	}
	if m.Types.String(geps[0].Elem) != "[2 x i32]" || geps[0].NumArgs() != 3 {
		t.Errorf("decay gep wrong: %s", m.Types.String(geps[0].Elem))
	}
}

func TestLower_ScopeShadowing(t *testing.T) {
	global := tk.Var("x", ast.Int())
	inner := tk.VarInit("x", ast.Int(), tk.Lit(1))
	f := tk.Func("s", ast.Int(), nil,
		tk.Block(tk.Decl(inner), tk.Expr(tk.Assign(inner, tk.Lit(2)))),
		tk.Return(tk.RValue(tk.Name("x", ast.Int()))),
	)
	m := lower(t, tk.Unit("shadow.c", global, f))
	ret := m.Func("s").Blocks[0].Terminator()
	load, ok := ret.Arg(0).(*ir.Instr)
	if !ok || load.Op != ir.OpLoad {
		t.Fatalf("return operand is not a load")
	}
	if load.Arg(0) != ir.Value(m.Global("x")) {
		t.Errorf("x after the block must resolve to the global")
	}
}

func TestLower_PrototypeReuse(t *testing.T) {
	proto := tk.Proto("p", ast.Int(), tk.Var("a", ast.Int()))
	a := tk.Var("a", ast.Int())
	def := tk.Func("p", ast.Int(), tk.Params(a), tk.Return(tk.Load(a)))
	m := lower(t, tk.Unit("proto.c", proto, def))
	if len(m.Funcs) != 1 {
		t.Fatalf("funcs = %d, want 1", len(m.Funcs))
	}
	if m.Func("p").IsDeclaration() {
		t.Errorf("definition did not attach to the prototype")
	}
}

func TestLower_Errors(t *testing.T) {
	loopless := tk.Func("b", ast.Void(), nil, tk.Break())
	ghost := tk.Func("r", ast.Int(), nil, tk.Return(tk.RValue(tk.Name("ghost", ast.Int()))))
	badType := tk.Var("bad", &ast.Type{Spec: ast.SpecInvalid})
	tooMany := tk.VarInit("t", ast.ArrayOf(ast.Int(), 1), tk.List(ast.ArrayOf(ast.Int(), 1), tk.Lit(1), tk.Lit(2)))
	p := tk.Var("p", ast.PointerTo(ast.Int()))
	ptrDecay := tk.Func("d", ast.Int(), tk.Params(p), tk.Return(tk.RValue(tk.Elem(p, tk.Lit(0)))))

	cases := []struct {
		name string
		tu   *ast.TranslationUnit
		kind error
		code diag.Code
	}{
		{"break outside loop", tk.Unit("e.c", loopless), emit.ErrUnsupported, diag.LowJumpOutsideLoop},
		{"unresolved", tk.Unit("e.c", ghost), emit.ErrUnresolved, diag.LowUnresolvedName},
		{"bad type", tk.Unit("e.c", badType), emit.ErrUnsupported, diag.LowUnsupportedType},
		{"too many initializers", tk.Unit("e.c", tooMany), emit.ErrUnsupported, diag.LowUnsupportedInit},
		{"pointer decay", tk.Unit("e.c", ptrDecay), emit.ErrUnsupported, diag.LowUnsupportedExpr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bag := diag.NewBag(10)
			m, err := emit.LowerContext(context.Background(), tc.tu, emit.Options{Reporter: diag.BagReporter{Bag: bag}, File: "e.c"})
			if m != nil {
				t.Fatalf("module returned on failure")
			}
			if !errors.Is(err, tc.kind) {
				t.Fatalf("err = %v, want %v", err, tc.kind)
			}
			var le *emit.Error
			if !errors.As(err, &le) || le.Code != tc.code {
				t.Fatalf("err = %#v, want code %s", err, tc.code)
			}
			if got := bag.Filter(tc.code); len(got) != 1 || got[0].Primary.File != "e.c" {
				t.Errorf("reported = %v", bag.Items())
			}
		})
	}
}

func TestLower_TracesFunctionSpans(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := emit.LowerContext(ctx, tk.ClampProgram(), emit.Options{}); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin {
			names = append(names, ev.Name)
		}
	}
	if !slices.Equal(names, []string{"lower", "func:clamp"}) {
		t.Errorf("spans = %v", names)
	}
}

func TestLower_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := emit.LowerContext(ctx, tk.ClampProgram(), emit.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
