package mir

import (
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/match"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// lowerMatchExpr lowers a match per its compiled plan. valueNeeded is
// false in statement position, where arm values are discarded.
func (l *funcLowerer) lowerMatchExpr(e *ast.Expr, valueNeeded bool) (Operand, error) {
	data, ok := e.Data.(ast.MatchData)
	if !ok {
		return Operand{}, fmt.Errorf("mir: match: unexpected payload %T", e.Data)
	}
	plan := l.sema.MatchPlans[e]
	if plan == nil {
		return Operand{}, fmt.Errorf("mir: match at %v has no compiled plan", e.Span)
	}

	scrutTy := l.exprType(data.Scrutinee)
	scrut, err := l.lowerExpr(data.Scrutinee, false)
	if err != nil {
		return Operand{}, err
	}
	scrutPlace := l.spillToPlace(scrut, "scrut", data.Scrutinee.Span)

	resultTy := l.substType(plan.Result)
	hasResult := valueNeeded && !l.isUnitType(resultTy)

	m := &matchLowering{
		l:          l,
		arms:       data.Arms,
		plan:       plan,
		scrutPlace: scrutPlace,
		scrutTy:    scrutTy,
		hasResult:  hasResult,
		join:       l.newBlock(),
	}

	switch plan.Strategy {
	case match.DenseSwitch:
		err = m.lowerDense()
	default:
		err = m.lowerSequential()
	}
	if err != nil {
		return Operand{}, err
	}

	l.startBlock(m.join)
	if !hasResult {
		if len(m.incomings) == 0 {
			l.setTerm(&Terminator{Kind: TermUnreachable})
		}
		return l.constUnit(), nil
	}
	dst := l.newTemp(resultTy, "match", e.Span)
	if len(m.incomings) == 0 {
		l.setTerm(&Terminator{Kind: TermUnreachable})
	} else {
		l.emit(&Instr{
			Kind: InstrPhi,
			Phi:  PhiInstr{Dst: Place{Local: dst}, Type: resultTy, Incomings: m.incomings},
		})
	}
	return l.placeOperand(Place{Local: dst}, resultTy, false), nil
}

type matchLowering struct {
	l          *funcLowerer
	arms       []ast.MatchArm
	plan       *match.Plan
	scrutPlace Place
	scrutTy    types.TypeID
	hasResult  bool
	join       BlockID
	incomings  []PhiIncoming
}

// lowerDense emits one switch over the discriminant. Guards never reach
// this strategy; every referenced arm pattern is fully caught.
func (m *matchLowering) lowerDense() error {
	l := m.l

	value := l.placeOperand(m.scrutPlace, m.scrutTy, false)
	if tt, ok := l.tin.Lookup(m.scrutTy); ok && tt.Kind == types.KindEnum {
		tag := l.newTemp(l.tin.Builtins().Int, "tag", m.plan.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: tag},
				Src: RValue{Kind: RValueEnumTag, EnumTag: EnumTag{Value: m.scrutPlace}},
			},
		})
		value = l.placeOperand(Place{Local: tag}, l.tin.Builtins().Int, false)
	}

	armBlocks := make(map[int]BlockID)
	blockFor := func(arm int) BlockID {
		if bb, ok := armBlocks[arm]; ok {
			return bb
		}
		bb := l.newBlock()
		armBlocks[arm] = bb
		return bb
	}

	cases := make([]SwitchCase, 0, len(m.plan.Cases))
	for _, c := range m.plan.Cases {
		cases = append(cases, SwitchCase{Value: c.Value, Target: blockFor(c.Arm)})
	}
	dispatchBB := l.cur
	var defaultBB BlockID
	if m.plan.Default >= 0 {
		defaultBB = blockFor(m.plan.Default)
	} else {
		// The cases alone cover the scrutinee; the switch still needs a
		// total dispatch target.
		defaultBB = l.newBlock()
		l.startBlock(defaultBB)
		l.setTerm(&Terminator{Kind: TermUnreachable})
		l.startBlock(dispatchBB)
	}
	l.setTerm(&Terminator{Kind: TermSwitch, Switch: SwitchTerm{Value: value, Cases: cases, Default: defaultBB}})

	for arm := range m.arms {
		bb, ok := armBlocks[arm]
		if !ok {
			continue
		}
		l.startBlock(bb)
		if err := m.bindPattern(m.arms[arm].Pattern, m.scrutPlace, m.scrutTy); err != nil {
			return err
		}
		if err := m.finishArm(arm); err != nil {
			return err
		}
	}
	return nil
}

// lowerSequential chains per-arm test blocks, first match wins.
func (m *matchLowering) lowerSequential() error {
	l := m.l

	lowered := make([]int, 0, len(m.arms))
	shadowed := make(map[int]bool, len(m.plan.Unreachable))
	for _, idx := range m.plan.Unreachable {
		shadowed[idx] = true
	}
	for i := range m.arms {
		if !shadowed[i] {
			lowered = append(lowered, i)
		}
	}

	entries := make([]BlockID, len(lowered))
	for i := range lowered {
		entries[i] = l.newBlock()
	}
	fallback := l.newBlock()

	first := fallback
	if len(entries) > 0 {
		first = entries[0]
	}
	l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: first}})

	for k, arm := range lowered {
		failTo := fallback
		if k+1 < len(entries) {
			failTo = entries[k+1]
		}
		l.startBlock(entries[k])
		if err := m.testPattern(m.arms[arm].Pattern, m.scrutPlace, m.scrutTy, failTo); err != nil {
			return err
		}
		if guard := m.arms[arm].Guard; guard != nil {
			cond, err := l.lowerExpr(guard, false)
			if err != nil {
				return err
			}
			bodyBB := l.newBlock()
			l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: bodyBB, Else: failTo}})
			l.startBlock(bodyBB)
		}
		if err := m.finishArm(arm); err != nil {
			return err
		}
	}

	// Coverage was proven before lowering; the chain cannot fall through.
	l.startBlock(fallback)
	l.setTerm(&Terminator{Kind: TermUnreachable})
	return nil
}

// finishArm lowers the arm body, discharges the arm's binding obligations
// and routes the value to the join block.
func (m *matchLowering) finishArm(arm int) error {
	l := m.l
	op, err := l.lowerExpr(m.arms[arm].Body, m.hasResult)
	if err != nil {
		return err
	}
	for _, ob := range l.sema.ArmReleases[&m.arms[arm]] {
		l.emitRelease(ob)
	}
	if l.curBlock().Terminated() {
		// The body returned; nothing flows to the join.
		return nil
	}
	if m.hasResult {
		m.incomings = append(m.incomings, PhiIncoming{Value: op, From: l.cur})
	} else {
		m.incomings = append(m.incomings, PhiIncoming{From: l.cur})
	}
	l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: m.join}})
	return nil
}

// bindPattern materializes pattern bindings for an arm whose pattern is
// already known to match.
func (m *matchLowering) bindPattern(pat *ast.Pattern, place Place, ty types.TypeID) error {
	l := m.l
	switch pat.Kind {
	case ast.PatWildcard, ast.PatLiteral:
		return nil

	case ast.PatBinding:
		data := pat.Data.(ast.BindingData)
		m.bindLocal(pat, data.Name, place, ty)
		return nil

	case ast.PatEnum:
		data := pat.Data.(ast.EnumPatData)
		variant, tag, err := m.variantOf(ty, data.Variant, pat.Span)
		if err != nil {
			return err
		}
		for i, elem := range data.Elems {
			if i >= len(variant.Payload) {
				break
			}
			elemTy := l.substType(variant.Payload[i])
			elemPlace, err := m.extractPayload(place, tag, i, elemTy, pat.Span)
			if err != nil {
				return err
			}
			if err := m.bindPattern(elem, elemPlace, elemTy); err != nil {
				return err
			}
		}
		return nil

	case ast.PatStruct:
		return m.eachStructField(pat, place, ty, m.bindPattern)

	default:
		return fmt.Errorf("mir: unexpected pattern kind %v", pat.Kind)
	}
}

// testPattern emits the runtime checks for one pattern, branching to
// failTo on mismatch, and binds along the way.
func (m *matchLowering) testPattern(pat *ast.Pattern, place Place, ty types.TypeID, failTo BlockID) error {
	l := m.l
	switch pat.Kind {
	case ast.PatWildcard:
		return nil

	case ast.PatBinding:
		data := pat.Data.(ast.BindingData)
		m.bindLocal(pat, data.Name, place, ty)
		return nil

	case ast.PatLiteral:
		data := pat.Data.(ast.LiteralPatData)
		lit := l.lowerLiteral(ty, data.Lit)
		cmp := l.newTemp(l.tin.Builtins().Bool, "cmp", pat.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: cmp},
				Src: RValue{Kind: RValueBinaryOp, Binary: BinaryOp{
					Op:    ast.BinEq,
					Left:  l.placeOperand(place, ty, false),
					Right: lit,
				}},
			},
		})
		m.branchOn(cmp, failTo)
		return nil

	case ast.PatEnum:
		data := pat.Data.(ast.EnumPatData)
		variant, tag, err := m.variantOf(ty, data.Variant, pat.Span)
		if err != nil {
			return err
		}
		intTy := l.tin.Builtins().Int
		tagTmp := l.newTemp(intTy, "tag", pat.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: tagTmp},
				Src: RValue{Kind: RValueEnumTag, EnumTag: EnumTag{Value: place}},
			},
		})
		cmp := l.newTemp(l.tin.Builtins().Bool, "cmp", pat.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: cmp},
				Src: RValue{Kind: RValueBinaryOp, Binary: BinaryOp{
					Op:    ast.BinEq,
					Left:  l.placeOperand(Place{Local: tagTmp}, intTy, false),
					Right: Operand{Kind: OperandConst, Type: intTy, Const: Const{Kind: ConstInt, Type: intTy, IntValue: tag}},
				}},
			},
		})
		m.branchOn(cmp, failTo)
		for i, elem := range data.Elems {
			if i >= len(variant.Payload) {
				break
			}
			elemTy := l.substType(variant.Payload[i])
			elemPlace, err := m.extractPayload(place, tag, i, elemTy, pat.Span)
			if err != nil {
				return err
			}
			if err := m.testPattern(elem, elemPlace, elemTy, failTo); err != nil {
				return err
			}
		}
		return nil

	case ast.PatStruct:
		return m.eachStructField(pat, place, ty, func(sub *ast.Pattern, fp Place, ft types.TypeID) error {
			return m.testPattern(sub, fp, ft, failTo)
		})

	default:
		return fmt.Errorf("mir: unexpected pattern kind %v", pat.Kind)
	}
}

// branchOn continues lowering in a fresh block reached only when cond holds.
func (m *matchLowering) branchOn(cond LocalID, failTo BlockID) {
	l := m.l
	contBB := l.newBlock()
	l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{
		Cond: l.placeOperand(Place{Local: cond}, l.tin.Builtins().Bool, false),
		Then: contBB,
		Else: failTo,
	}})
	l.startBlock(contBB)
}

func (m *matchLowering) bindLocal(pat *ast.Pattern, name string, place Place, ty types.TypeID) {
	l := m.l
	sym := l.sema.PatSyms[pat]
	local := l.ensureLocal(sym, name, ty, pat.Span)
	if local == NoLocalID {
		return
	}
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: local},
			Src: RValue{Kind: RValueUse, Use: l.placeOperand(place, ty, false)},
		},
	})
}

func (m *matchLowering) variantOf(ty types.TypeID, name string, at source.Span) (types.EnumVariantInfo, int64, error) {
	l := m.l
	info, ok := l.tin.EnumInfo(ty)
	if !ok {
		return types.EnumVariantInfo{}, 0, fmt.Errorf("mir: enum pattern at %v over a non-enum scrutinee", at)
	}
	idx := info.VariantIndex(l.syms.Table.Strings.Intern(name))
	if idx < 0 {
		return types.EnumVariantInfo{}, 0, fmt.Errorf("mir: variant %q at %v survived checking unresolved", name, at)
	}
	return info.Variants[idx], info.Variants[idx].Tag, nil
}

func (m *matchLowering) extractPayload(place Place, tag int64, index int, elemTy types.TypeID, at source.Span) (Place, error) {
	l := m.l
	tmp := l.newTemp(elemTy, "payload", at)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueEnumPayload, EnumPayload: EnumPayload{Value: place, Tag: tag, Index: index}},
		},
	})
	return Place{Local: tmp}, nil
}

func (m *matchLowering) eachStructField(pat *ast.Pattern, place Place, ty types.TypeID, visit func(*ast.Pattern, Place, types.TypeID) error) error {
	l := m.l
	data := pat.Data.(ast.StructPatData)
	info, ok := l.tin.StructInfo(ty)
	if !ok {
		return fmt.Errorf("mir: struct pattern at %v over a non-struct scrutinee", pat.Span)
	}
	for i := range data.Fields {
		f := &data.Fields[i]
		idx := info.FieldIndex(l.syms.Table.Strings.Intern(f.Name))
		if idx < 0 {
			return fmt.Errorf("mir: field %q at %v survived checking unresolved", f.Name, f.Span)
		}
		fieldPlace := Place{Local: place.Local, Proj: append(append([]PlaceProj(nil), place.Proj...), PlaceProj{
			Kind:      PlaceProjField,
			FieldName: f.Name,
			FieldIdx:  idx,
		})}
		if err := visit(f.Pat, fieldPlace, l.substType(info.Fields[idx].Type)); err != nil {
			return err
		}
	}
	return nil
}
