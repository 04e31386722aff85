package analysis_test

import (
	"slices"
	"testing"

	"sysc/internal/analysis"
	"sysc/internal/diag"
	"sysc/internal/emit"
	"sysc/internal/ir"
	"sysc/internal/passes"
	tk "sysc/internal/testkit"
)

type cfg struct {
	m *ir.Module
	f *ir.Func
	b *ir.Builder
}

func newCFG(names ...string) (*cfg, []*ir.Block) {
	m := ir.NewModule("cfg")
	bt := m.Types.Builtins()
	f := m.NewFunc("f", m.Types.Func([]ir.TypeID{bt.I1}, bt.Void), "c")
	blocks := make([]*ir.Block, len(names))
	for i, n := range names {
		blocks[i] = f.NewBlock(n)
	}
	return &cfg{m: m, f: f, b: ir.NewBuilder(m)}, blocks
}

func (c *cfg) br(from, to *ir.Block) {
	c.b.SetBlock(from)
	c.b.Br(to)
}

func (c *cfg) cond(from, then, els *ir.Block) {
	c.b.SetBlock(from)
	c.b.CondBr(c.f.Params[0], then, els)
}

func (c *cfg) ret(from *ir.Block) {
	c.b.SetBlock(from)
	c.b.Ret(nil)
}

func names(bs []*ir.Block) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

func TestPostDominators_Diamond(t *testing.T) {
	c, bs := newCFG("entry", "then", "else", "join")
	entry, then, els, join := bs[0], bs[1], bs[2], bs[3]
	c.cond(entry, then, els)
	c.br(then, join)
	c.br(els, join)
	c.ret(join)

	bag := diag.NewBag(4)
	res := analysis.PostDominators(c.f, diag.BagReporter{Bag: bag})

	want := map[*ir.Block][]string{
		entry: {"entry", "join"},
		then:  {"then", "join"},
		els:   {"else", "join"},
		join:  {"join"},
	}
	for b, w := range want {
		if got := names(res.Set(b)); !slices.Equal(got, w) {
			t.Errorf("set(%s) = %v, want %v", b.Name, got, w)
		}
	}
	if res.PostDominates(then, entry) {
		t.Errorf("then must not post-dominate entry")
	}
	if !res.PostDominates(join, entry) || !res.PostDominates(entry, entry) {
		t.Errorf("join and entry post-dominate entry")
	}
	for _, b := range []*ir.Block{entry, then, els} {
		if got := res.Immediate(b); got != join {
			t.Errorf("ipdom(%s) = %v, want join", b.Name, got)
		}
	}
	if res.Immediate(join) != nil {
		t.Errorf("exit has an immediate post-dominator")
	}
	if got := bag.Messages(); len(got) != 1 || got[0] != "PostDominatorTree: 4 blocks, 2 iterations" {
		t.Errorf("messages = %v", got)
	}
}

func TestPostDominators_Loop(t *testing.T) {
	c, bs := newCFG("entry", "cond", "body", "exit")
	entry, cond, body, exit := bs[0], bs[1], bs[2], bs[3]
	c.br(entry, cond)
	c.cond(cond, body, exit)
	c.br(body, cond)
	c.ret(exit)

	res := analysis.PostDominators(c.f, nil)
	if got := names(res.Set(body)); !slices.Equal(got, []string{"cond", "body", "exit"}) {
		t.Errorf("set(body) = %v", got)
	}
	if got := names(res.Set(cond)); !slices.Equal(got, []string{"cond", "exit"}) {
		t.Errorf("set(cond) = %v", got)
	}
	if res.PostDominates(body, entry) {
		t.Errorf("the loop body is skippable")
	}
	if res.Immediate(body) != cond || res.Immediate(entry) != cond || res.Immediate(cond) != exit {
		t.Errorf("tree = %v", res.Tree())
	}
	if res.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations)
	}
	if len(res.Tree()) != 3 {
		t.Errorf("tree has %d edges", len(res.Tree()))
	}
}

func TestPostDominators_NoExit(t *testing.T) {
	c, bs := newCFG("entry", "spin")
	c.br(bs[0], bs[1])
	c.br(bs[1], bs[1])

	res := analysis.PostDominators(c.f, nil)
	if got := len(res.Set(bs[0])); got != 2 {
		t.Errorf("set(entry) has %d blocks, want the full set", got)
	}
	if res.Immediate(bs[0]) != nil || res.Immediate(bs[1]) != nil {
		t.Errorf("blocks without an exit have no immediate post-dominator")
	}
}

func TestPostDominators_LoweredFunctions(t *testing.T) {
	m, err := emit.Lower(tk.ClampProgram())
	if err != nil {
		t.Fatal(err)
	}
	passes.SimplifyCFG{}.Run(m, nil)
	f := m.Func("clamp")
	res := analysis.PostDominators(f, nil)
	// Two returns: nothing but entry itself lies on every path.
	if got := names(res.Set(f.Entry())); !slices.Equal(got, []string{"entry"}) {
		t.Errorf("set(entry) = %v", got)
	}

	sum, err := emit.Lower(tk.SumProgram())
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(8)
	all := analysis.Functions(sum, diag.BagReporter{Bag: bag})
	if len(all) != 1 || all[0].Func.Name != "sum" {
		t.Fatalf("results = %d", len(all))
	}
	sf := all[0].Func
	var exit *ir.Block
	for _, b := range sf.Blocks {
		if b.Terminated() && b.Terminator().Op == ir.OpRet && len(b.Predecessors()) > 0 {
			exit = b
			break
		}
	}
	if exit == nil {
		t.Fatal("no reachable return block")
	}
	if !all[0].PostDominates(exit, sf.Entry()) {
		t.Errorf("%s does not post-dominate entry", exit.Name)
	}
	if len(bag.Filter(diag.AnaPostDominators)) != 1 {
		t.Errorf("messages = %v", bag.Messages())
	}
}
