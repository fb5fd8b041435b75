package mir

import (
	"errors"
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Validate checks MIR module invariants and joins every violation.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func) error {
	var errs []error
	if err := validateBlocksTerminated(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}
	if err := validateLocals(f); err != nil {
		errs = append(errs, err)
	}
	if err := validatePhis(f); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validateBlocksTerminated(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		if f.Blocks[i].Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
	}
	return errors.Join(errs...)
}

func validateBlockTargets(f *Func) error {
	var errs []error
	check := func(bb int, target BlockID, what string) {
		if int(target) < 0 || int(target) >= len(f.Blocks) {
			errs = append(errs, fmt.Errorf("bb%d: %s targets nonexistent bb%d", bb, what, target))
		}
	}
	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			check(i, term.Goto.Target, "goto")
		case TermIf:
			check(i, term.If.Then, "if-then")
			check(i, term.If.Else, "if-else")
		case TermSwitch:
			for _, c := range term.Switch.Cases {
				check(i, c.Target, fmt.Sprintf("switch case %d", c.Value))
			}
			check(i, term.Switch.Default, "switch default")
		}
	}
	if int(f.Entry) < 0 || int(f.Entry) >= len(f.Blocks) {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}
	return errors.Join(errs...)
}

func validateLocals(f *Func) error {
	var errs []error
	checkLocal := func(bb, instr int, id LocalID, what string) {
		if int(id) < 0 || int(id) >= len(f.Locals) {
			errs = append(errs, fmt.Errorf("bb%d instr %d: %s references nonexistent L%d", bb, instr, what, id))
		}
	}
	checkPlace := func(bb, instr int, p Place, what string) {
		checkLocal(bb, instr, p.Local, what)
	}
	checkOperand := func(bb, instr int, op *Operand, what string) {
		if op.Kind != OperandConst {
			checkPlace(bb, instr, op.Place, what)
		}
	}
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			switch ins.Kind {
			case InstrAssign:
				checkPlace(bi, ii, ins.Assign.Dst, "assign dst")
				checkRValueLocals(bi, ii, &ins.Assign.Src, checkPlace, checkOperand)
			case InstrCall:
				if ins.Call.HasDst {
					checkPlace(bi, ii, ins.Call.Dst, "call dst")
				}
				for ai := range ins.Call.Args {
					checkOperand(bi, ii, &ins.Call.Args[ai], "call arg")
				}
			case InstrRelease:
				checkPlace(bi, ii, ins.Release.Place, "release")
			case InstrPhi:
				checkPlace(bi, ii, ins.Phi.Dst, "phi dst")
				for pi := range ins.Phi.Incomings {
					checkOperand(bi, ii, &ins.Phi.Incomings[pi].Value, "phi incoming")
				}
			}
		}
	}
	// Locals never carry an unresolved type.
	for i := range f.Locals {
		if f.Locals[i].Type == types.NoTypeID {
			errs = append(errs, fmt.Errorf("L%d (%s): missing type", i, f.Locals[i].Name))
		}
	}
	return errors.Join(errs...)
}

func checkRValueLocals(bb, instr int, rv *RValue, checkPlace func(int, int, Place, string), checkOperand func(int, int, *Operand, string)) {
	switch rv.Kind {
	case RValueUse:
		checkOperand(bb, instr, &rv.Use, "use")
	case RValueUnaryOp:
		checkOperand(bb, instr, &rv.Unary.Operand, "unary operand")
	case RValueBinaryOp:
		checkOperand(bb, instr, &rv.Binary.Left, "binary lhs")
		checkOperand(bb, instr, &rv.Binary.Right, "binary rhs")
	case RValueStructLit:
		for i := range rv.StructLit.Fields {
			checkOperand(bb, instr, &rv.StructLit.Fields[i].Value, "struct field")
		}
	case RValueMakeVariant:
		for i := range rv.MakeVariant.Args {
			checkOperand(bb, instr, &rv.MakeVariant.Args[i], "variant arg")
		}
	case RValueEnumTag:
		checkPlace(bb, instr, rv.EnumTag.Value, "tag source")
	case RValueEnumPayload:
		checkPlace(bb, instr, rv.EnumPayload.Value, "payload source")
	}
}

// validatePhis checks that every phi incoming names an existing block.
func validatePhis(f *Func) error {
	var errs []error
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind != InstrPhi {
				continue
			}
			if len(ins.Phi.Incomings) == 0 {
				errs = append(errs, fmt.Errorf("bb%d instr %d: phi without incomings", bi, ii))
			}
			for _, in := range ins.Phi.Incomings {
				if int(in.From) < 0 || int(in.From) >= len(f.Blocks) {
					errs = append(errs, fmt.Errorf("bb%d instr %d: phi incoming from nonexistent bb%d", bi, ii, in.From))
				}
			}
		}
	}
	return errors.Join(errs...)
}
