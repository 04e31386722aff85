package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes an LLVM-like textual listing of m.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "@%s = global %s %s\n", g.Name, m.Types.String(g.Elem), constString(g.Init))
	}
	if len(m.Ctors) > 0 {
		parts := make([]string, 0, len(m.Ctors))
		for _, c := range m.SortedCtors() {
			parts = append(parts, fmt.Sprintf("{ %d, @%s }", c.Priority, c.Func.Name))
		}
		fmt.Fprintf(&sb, "; ctors: %s\n", strings.Join(parts, ", "))
	}
	for _, f := range m.Funcs {
		sb.WriteByte('\n')
		DumpFunc(&sb, f)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// DumpFunc appends the listing of a single function to sb.
func DumpFunc(sb *strings.Builder, f *Func) {
	names := newNamer(f)
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = f.Module.Types.String(p.Ty) + " " + names.of(p)
	}
	head := "define"
	if f.IsDeclaration() {
		head = "declare"
	}
	if f.Linkage == LinkagePrivate {
		head += " private"
	}
	fmt.Fprintf(sb, "%s %s @%s(%s)", head, f.Module.Types.String(f.Result()), f.Name, strings.Join(params, ", "))
	if f.IsDeclaration() {
		sb.WriteByte('\n')
		return
	}
	sb.WriteString(" {\n")
	for i, b := range f.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(sb, "%s:\n", b.Name)
		for _, in := range b.instrs {
			sb.WriteString("  ")
			writeInstr(sb, f.Module.Types, names, in)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
}

func writeInstr(sb *strings.Builder, types *Types, names *namer, in *Instr) {
	typed := func(v Value) string {
		return types.String(v.Type()) + " " + names.of(v)
	}
	if !types.IsVoid(in.Ty) && in.Op != OpStore {
		sb.WriteString(names.of(in))
		sb.WriteString(" = ")
	}
	switch {
	case in.Op.IsBinary():
		fmt.Fprintf(sb, "%s %s %s, %s", in.Op, types.String(in.Ty), names.of(in.args[0]), names.of(in.args[1]))
	case in.Op.IsCast():
		fmt.Fprintf(sb, "%s %s to %s", in.Op, typed(in.args[0]), types.String(in.Ty))
	}
	switch in.Op {
	case OpICmp:
		fmt.Fprintf(sb, "icmp %s %s %s, %s", in.Pred, types.String(in.args[0].Type()), names.of(in.args[0]), names.of(in.args[1]))
	case OpAlloca:
		fmt.Fprintf(sb, "alloca %s", types.String(in.Elem))
	case OpLoad:
		fmt.Fprintf(sb, "load %s, %s", types.String(in.Ty), typed(in.args[0]))
	case OpStore:
		fmt.Fprintf(sb, "store %s, %s", typed(in.args[0]), typed(in.args[1]))
	case OpGEP:
		parts := make([]string, 0, len(in.args))
		for _, a := range in.args {
			parts = append(parts, typed(a))
		}
		fmt.Fprintf(sb, "getelementptr %s, %s", types.String(in.Elem), strings.Join(parts, ", "))
	case OpCall:
		args := make([]string, 0, len(in.args)-1)
		for _, a := range in.args[1:] {
			args = append(args, typed(a))
		}
		fmt.Fprintf(sb, "call %s %s(%s)", types.String(in.Ty), names.of(in.args[0]), strings.Join(args, ", "))
	case OpBr:
		fmt.Fprintf(sb, "br label %%%s", in.targets[0].Name)
	case OpCondBr:
		fmt.Fprintf(sb, "br %s, label %%%s, label %%%s", typed(in.args[0]), in.targets[0].Name, in.targets[1].Name)
	case OpRet:
		if len(in.args) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(sb, "ret %s", typed(in.args[0]))
		}
	case OpUnreachable:
		sb.WriteString("unreachable")
	}
}

func constString(c *Const) string {
	if c == nil {
		return "undef"
	}
	if c.Kind == ConstZero {
		return "zeroinitializer"
	}
	if c.Bits == 1 {
		if c.Int != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(c.Int, 10)
}

// namer assigns function-local names: source names where present, made
// unique with a counter, and sequential numbers otherwise.
type namer struct {
	local map[Value]string
	used  map[string]int
	next  int
}

func newNamer(f *Func) *namer {
	n := &namer{local: make(map[Value]string), used: make(map[string]int)}
	for _, p := range f.Params {
		n.assign(p, p.Name)
	}
	for _, b := range f.Blocks {
		for _, in := range b.instrs {
			if !f.Module.Types.IsVoid(in.Ty) {
				n.assign(in, in.Name)
			}
		}
	}
	return n
}

func (n *namer) assign(v Value, name string) {
	if name == "" {
		n.local[v] = "%" + strconv.Itoa(n.next)
		n.next++
		return
	}
	unique := name
	if k, seen := n.used[name]; seen {
		unique = name + "." + strconv.Itoa(k)
	}
	n.used[name]++
	n.local[v] = "%" + unique
}

func (n *namer) of(v Value) string {
	switch v := v.(type) {
	case *Const:
		return constString(v)
	case *Global:
		return "@" + v.Name
	case *Func:
		return "@" + v.Name
	}
	if s, ok := n.local[v]; ok {
		return s
	}
	return "<?>"
}
