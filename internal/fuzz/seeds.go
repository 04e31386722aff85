package fuzztests

import (
	"bytes"
	"testing"

	"sysc/internal/ast"
	"sysc/internal/astio"
	tk "sysc/internal/testkit"
)

const (
	maxFuzzInput = 64 << 10
)

func seedUnits() []*ast.TranslationUnit {
	n := tk.Var("n", ast.Int())
	k := tk.VarInit("k", ast.Int(), tk.Lit(1))
	loop := tk.Func("loop", ast.Int(), tk.Params(n),
		tk.Decl(k),
		tk.Do(tk.Block(tk.Expr(tk.Assign(k, tk.Bin(ast.BinMul, tk.Load(k), tk.Lit(2))))),
			tk.Bin(ast.BinLt, tk.Load(k), tk.Load(n))),
		tk.Return(tk.Bin(ast.BinDiv, tk.Load(k), tk.Lit(4))),
	)
	return []*ast.TranslationUnit{tk.ClampProgram(), tk.SumProgram(), tk.Unit("loop.c", loop)}
}

func addCorpusSeeds(f *testing.F, enc astio.Encoding) {
	for _, tu := range seedUnits() {
		var buf bytes.Buffer
		if err := astio.Encode(&buf, tu, enc); err != nil {
			f.Fatalf("seed %s: %v", tu.Name, err)
		}
		f.Add(buf.Bytes())
	}
	// Truncated and empty documents exercise the decoder's error paths.
	f.Add([]byte{})
	f.Add([]byte(`{"format": "sysc-ast", "version": "1.0.0"`))
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
