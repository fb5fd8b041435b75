package mir

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// DumpModule writes a human-readable representation of a MIR module.
func DumpModule(w io.Writer, m *Module, tin *types.Interner, strs *source.Interner) error {
	if w == nil || m == nil {
		return nil
	}

	funcs := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil {
			funcs = append(funcs, f)
		}
	}
	slices.SortStableFunc(funcs, func(a, b *Func) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		return int(a.ID) - int(b.ID)
	})

	fmt.Fprintf(w, "funcs=%d\n", len(funcs))
	for _, f := range funcs {
		dumpFunc(w, f, tin, strs)
	}
	return nil
}

func dumpFunc(w io.Writer, f *Func, tin *types.Interner, strs *source.Interner) {
	fmt.Fprintf(w, "\nfn %s:\n", f.Name)

	fmt.Fprintf(w, "  locals:\n")
	for i := range f.Locals {
		l := f.Locals[i]
		name := l.Name
		if name == "" {
			name = "_"
		}
		flags := formatLocalFlags(l.Flags)
		if flags != "" {
			fmt.Fprintf(w, "    L%d: %s %s name=%s\n", i, typeStr(tin, strs, l.Type), flags, name)
		} else {
			fmt.Fprintf(w, "    L%d: %s name=%s\n", i, typeStr(tin, strs, l.Type), name)
		}
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			fmt.Fprintf(w, "    %s\n", formatInstr(tin, strs, &bb.Instrs[j]))
		}
		fmt.Fprintf(w, "    %s\n", formatTerm(&bb.Term))
	}
}

func formatLocalFlags(f LocalFlags) string {
	if f == 0 {
		return ""
	}
	var parts []string
	if f&LocalFlagCopy != 0 {
		parts = append(parts, "copy")
	}
	if f&LocalFlagOwn != 0 {
		parts = append(parts, "own")
	}
	if f&LocalFlagRef != 0 {
		parts = append(parts, "ref")
	}
	if f&LocalFlagRefMut != 0 {
		parts = append(parts, "refmut")
	}
	if f&LocalFlagTemp != 0 {
		parts = append(parts, "tmp")
	}
	return strings.Join(parts, ",")
}

func typeStr(tin *types.Interner, strs *source.Interner, id types.TypeID) string {
	if tin == nil || id == types.NoTypeID {
		return "?"
	}
	return tin.Format(id, strs)
}

func formatInstr(tin *types.Interner, strs *source.Interner, ins *Instr) string {
	if ins == nil {
		return "<instr?>"
	}
	switch ins.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s", formatPlace(ins.Assign.Dst), formatRValue(tin, strs, &ins.Assign.Src))
	case InstrCall:
		dst := ""
		if ins.Call.HasDst {
			dst = formatPlace(ins.Call.Dst) + " = "
		}
		return fmt.Sprintf("%scall %s(%s)", dst, ins.Call.Callee.Name, formatOperands(ins.Call.Args))
	case InstrRelease:
		name := ins.Release.Name
		if name == "" {
			name = "_"
		}
		return fmt.Sprintf("release %s name=%s", formatPlace(ins.Release.Place), name)
	case InstrPhi:
		parts := make([]string, 0, len(ins.Phi.Incomings))
		for i := range ins.Phi.Incomings {
			in := &ins.Phi.Incomings[i]
			parts = append(parts, fmt.Sprintf("[%s, bb%d]", formatOperand(&in.Value), in.From))
		}
		return fmt.Sprintf("%s = phi %s", formatPlace(ins.Phi.Dst), strings.Join(parts, " "))
	default:
		return "<instr?>"
	}
}

func formatTerm(term *Terminator) string {
	if term == nil {
		return "unreachable"
	}
	switch term.Kind {
	case TermReturn:
		if !term.Return.HasValue {
			return "return"
		}
		return fmt.Sprintf("return %s", formatOperand(&term.Return.Value))
	case TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", formatOperand(&term.If.Cond), term.If.Then, term.If.Else)
	case TermSwitch:
		out := fmt.Sprintf("switch %s {", formatOperand(&term.Switch.Value))
		for _, c := range term.Switch.Cases {
			out += fmt.Sprintf(" %d -> bb%d;", c.Value, c.Target)
		}
		out += fmt.Sprintf(" default -> bb%d; }", term.Switch.Default)
		return out
	default:
		return "unreachable"
	}
}

func formatPlace(p Place) string {
	out := fmt.Sprintf("L%d", p.Local)
	for _, proj := range p.Proj {
		switch proj.Kind {
		case PlaceProjDeref:
			out = "(*" + out + ")"
		case PlaceProjField:
			out += "." + proj.FieldName
		}
	}
	return out
}

func formatOperand(op *Operand) string {
	if op == nil {
		return "<op?>"
	}
	switch op.Kind {
	case OperandConst:
		return formatConst(&op.Const)
	case OperandCopy:
		return "copy " + formatPlace(op.Place)
	case OperandMove:
		return "move " + formatPlace(op.Place)
	case OperandAddrOf:
		return "&" + formatPlace(op.Place)
	case OperandAddrOfMut:
		return "&mut " + formatPlace(op.Place)
	default:
		return "<op?>"
	}
}

func formatOperands(ops []Operand) string {
	parts := make([]string, 0, len(ops))
	for i := range ops {
		parts = append(parts, formatOperand(&ops[i]))
	}
	return strings.Join(parts, ", ")
}

func formatConst(c *Const) string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.IntValue, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.FloatValue, 'g', -1, 64)
	case ConstBool:
		return strconv.FormatBool(c.BoolValue)
	case ConstChar:
		return strconv.QuoteRune(c.CharValue)
	case ConstString:
		return strconv.Quote(c.StringValue)
	case ConstUnit:
		return "unit"
	default:
		return "<const?>"
	}
}

func formatRValue(tin *types.Interner, strs *source.Interner, rv *RValue) string {
	if rv == nil {
		return "<rvalue?>"
	}
	switch rv.Kind {
	case RValueUse:
		return formatOperand(&rv.Use)
	case RValueUnaryOp:
		return fmt.Sprintf("%s %s", rv.Unary.Op, formatOperand(&rv.Unary.Operand))
	case RValueBinaryOp:
		return fmt.Sprintf("%s %s %s", formatOperand(&rv.Binary.Left), rv.Binary.Op, formatOperand(&rv.Binary.Right))
	case RValueStructLit:
		out := fmt.Sprintf("struct_lit %s {", typeStr(tin, strs, rv.StructLit.Type))
		for i := range rv.StructLit.Fields {
			f := &rv.StructLit.Fields[i]
			out += fmt.Sprintf(" %s: %s;", f.Name, formatOperand(&f.Value))
		}
		return out + " }"
	case RValueMakeVariant:
		out := fmt.Sprintf("make_variant %s::%s(", typeStr(tin, strs, rv.MakeVariant.Enum), rv.MakeVariant.Variant)
		return out + formatOperands(rv.MakeVariant.Args) + ")"
	case RValueEnumTag:
		return fmt.Sprintf("tag %s", formatPlace(rv.EnumTag.Value))
	case RValueEnumPayload:
		return fmt.Sprintf("payload %s tag=%d idx=%d", formatPlace(rv.EnumPayload.Value), rv.EnumPayload.Tag, rv.EnumPayload.Index)
	default:
		return "<rvalue?>"
	}
}
