package astio_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sysc/internal/ast"
	"sysc/internal/astio"
	"sysc/internal/emit"
	"sysc/internal/ir"
	tk "sysc/internal/testkit"
)

func dump(t *testing.T, tu *ast.TranslationUnit) string {
	t.Helper()
	m, err := emit.Lower(tu)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var sb strings.Builder
	if err := ir.Dump(&sb, m); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

// richProgram touches every node kind the interchange format carries.
func richProgram() *ast.TranslationUnit {
	arrT := ast.ArrayOf(ast.Int(), 3)
	tab := tk.VarInit("tab", arrT, tk.List(arrT, tk.Lit(1), &ast.ImplicitInitExpr{Type: ast.Int()}))
	side := tk.Proto("side", ast.Int())
	n := tk.Var("n", ast.Int())
	k := tk.VarInit("k", ast.Int(), tk.Lit(0))
	f := tk.Func("f", ast.Int(), tk.Params(n),
		tk.Decl(k),
		tk.Do(tk.Block(
			tk.Expr(tk.Assign(k, tk.Bin(ast.BinAdd, tk.Load(k), tk.RValue(tk.Elem(tab, tk.Lit(1)))))),
			&ast.NullStmt{},
		), tk.Bin(ast.BinLt, tk.Load(k), tk.Load(n))),
		tk.IfElse(tk.Bin(ast.BinLogicalOr, tk.Not(tk.Load(n)), tk.Call(side)),
			tk.Return(tk.Neg(tk.Load(k))),
			tk.Return(&ast.ParenExpr{Type: ast.Int(), Sub: tk.Load(k)})),
	)
	u := tk.Unit("rich.c", tab, side, f)
	return u
}

func TestRoundTrip(t *testing.T) {
	for _, enc := range []astio.Encoding{astio.Msgpack, astio.JSON} {
		t.Run(enc.String(), func(t *testing.T) {
			for _, tu := range []*ast.TranslationUnit{tk.ClampProgram(), tk.SumProgram(), richProgram()} {
				var buf bytes.Buffer
				if err := astio.Encode(&buf, tu, enc); err != nil {
					t.Fatalf("Encode: %v", err)
				}
				back, err := astio.Decode(&buf, enc)
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if back.Name != tu.Name {
					t.Errorf("name = %q, want %q", back.Name, tu.Name)
				}
				if got, want := dump(t, back), dump(t, tu); got != want {
					t.Errorf("%s: dump differs after round trip:\n%s\nwant:\n%s", tu.Name, got, want)
				}
			}
		})
	}
}

func TestDecode_SharesDecls(t *testing.T) {
	f, err := astio.ToFile(tk.ClampProgram())
	if err != nil {
		t.Fatal(err)
	}
	tu, err := astio.FromFile(f)
	if err != nil {
		t.Fatal(err)
	}
	fn := tu.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Subs[1].(*ast.ReturnStmt)
	load := ret.Expr.(*ast.ImplicitCastExpr)
	ref := load.Sub.(*ast.DeclRefExpr)
	if ref.Decl != ast.Decl(fn.Params[0]) {
		t.Errorf("reference does not point at the parameter")
	}
}

func TestDecode_Header(t *testing.T) {
	cases := []struct {
		format, version string
		ok              bool
	}{
		{astio.FormatName, "1.0.0", true},
		{astio.FormatName, "1.4.2", true},
		{astio.FormatName, "2.0.0", false},
		{astio.FormatName, "0.9.0", false},
		{"clang-json", "1.0.0", false},
	}
	for _, tc := range cases {
		f := &astio.File{Format: tc.format, Version: tc.version}
		_, err := astio.FromFile(f)
		if tc.ok && err != nil {
			t.Errorf("%s %s: %v", tc.format, tc.version, err)
		}
		if !tc.ok && !errors.Is(err, astio.ErrFormat) {
			t.Errorf("%s %s: err = %v, want ErrFormat", tc.format, tc.version, err)
		}
	}
	if _, err := astio.FromFile(&astio.File{Format: astio.FormatName, Version: "one"}); err == nil {
		t.Errorf("malformed version accepted")
	}
}

func TestDecode_JSONDocument(t *testing.T) {
	// int café(void) { return 7; } with the name in decomposed form.
	doc := `{
	  "format": "sysc-ast", "version": "1.2.0", "name": "doc.c",
	  "decls": [{
	    "kind": "FunctionDecl", "id": 1, "name": "cafe\u0301",
	    "type": {"spec": "int", "chain": [{"kind": "function"}]},
	    "kids": [{"kind": "CompoundStmt", "kids": [
	      {"kind": "ReturnStmt", "kids": [{"kind": "IntegerLiteral", "value": 7, "type": {"spec": "int"}}]}
	    ]}]
	  }]
	}`
	tu, err := astio.Decode(strings.NewReader(doc), astio.JSON)
	if err != nil {
		t.Fatal(err)
	}
	fn := tu.Decls[0].(*ast.FunctionDecl)
	if fn.Name != "caf\u00e9" {
		t.Errorf("name = %q, want NFC form", fn.Name)
	}
	if _, ok := fn.Type.Function(); !ok {
		t.Errorf("type = %s", fn.Type)
	}
	if out := dump(t, tu); !strings.Contains(out, "ret i32 7") {
		t.Errorf("dump:\n%s", out)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]string{
		"dangling ref": `{"kind": "FunctionDecl", "id": 1, "name": "f", "type": {"spec": "int", "chain": [{"kind": "function"}]},
			"kids": [{"kind": "CompoundStmt", "kids": [{"kind": "ReturnStmt", "kids": [{"kind": "DeclRefExpr", "ref": 9, "name": "x"}]}]}]}`,
		"bad operator": `{"kind": "VarDecl", "id": 1, "name": "x", "type": {"spec": "int"},
			"kids": [{"kind": "BinaryOperator", "op": "**", "kids": [null, null]}]}`,
		"bad spec":       `{"kind": "VarDecl", "id": 1, "name": "x", "type": {"spec": "float"}}`,
		"not a decl":     `{"kind": "ReturnStmt"}`,
		"duplicate id":   `{"kind": "FunctionDecl", "id": 1, "name": "f", "type": {"spec": "int", "chain": [{"kind": "function", "params": [{"spec": "int"}]}]}, "kids": [{"kind": "VarDecl", "id": 1, "name": "p", "type": {"spec": "int"}}]}`,
		"bad declarator": `{"kind": "VarDecl", "id": 1, "name": "x", "type": {"spec": "int", "chain": [{"kind": "vector"}]}}`,
	}
	for name, decl := range cases {
		doc := `{"format": "sysc-ast", "version": "1.0.0", "decls": [` + decl + `]}`
		if _, err := astio.Decode(strings.NewReader(doc), astio.JSON); err == nil {
			t.Errorf("%s: decoded without error", name)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sum.astpack")
	var buf bytes.Buffer
	if err := astio.Encode(&buf, tk.SumProgram(), astio.Msgpack); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	tu, err := astio.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tu.Name != "sum.c" {
		t.Errorf("name = %q", tu.Name)
	}
	if _, err := astio.ReadFile(filepath.Join(dir, "sum.txt")); err == nil {
		t.Errorf("unknown extension accepted")
	}
	if _, err := astio.EncodingFor("x.JSON"); err != nil {
		t.Errorf("upper-case extension: %v", err)
	}
}
