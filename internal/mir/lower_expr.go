package mir

import (
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func (l *funcLowerer) lowerExpr(e *ast.Expr, consume bool) (Operand, error) {
	if e == nil {
		return l.constUnit(), nil
	}
	switch e.Kind {
	case ast.ExprLiteral:
		data, ok := e.Data.(ast.LiteralData)
		if !ok {
			return Operand{}, fmt.Errorf("mir: literal: unexpected payload %T", e.Data)
		}
		return l.lowerLiteral(l.exprType(e), data), nil

	case ast.ExprIdent:
		return l.lowerIdent(e, consume)

	case ast.ExprBinary:
		data, ok := e.Data.(ast.BinaryData)
		if !ok {
			return Operand{}, fmt.Errorf("mir: binary: unexpected payload %T", e.Data)
		}
		if data.Op == ast.BinAnd || data.Op == ast.BinOr {
			return l.lowerShortCircuit(e, data)
		}
		return l.lowerBinary(e, data, consume)

	case ast.ExprUnary:
		data, ok := e.Data.(ast.UnaryData)
		if !ok {
			return Operand{}, fmt.Errorf("mir: unary: unexpected payload %T", e.Data)
		}
		return l.lowerUnary(e, data, consume)

	case ast.ExprCall:
		return l.lowerCall(e, consume)

	case ast.ExprFieldAccess:
		place, ty, err := l.lowerPlace(e)
		if err != nil {
			return Operand{}, err
		}
		return l.placeOperand(place, ty, consume), nil

	case ast.ExprStructLit:
		return l.lowerStructLit(e, consume)

	case ast.ExprMatch:
		return l.lowerMatchExpr(e, true)

	default:
		return Operand{}, fmt.Errorf("mir: unexpected expression kind %v", e.Kind)
	}
}

func (l *funcLowerer) lowerLiteral(ty types.TypeID, lit ast.LiteralData) Operand {
	out := Operand{Kind: OperandConst, Type: ty}
	out.Const.Type = ty
	switch lit.Kind {
	case ast.LitInt:
		out.Const.Kind = ConstInt
		out.Const.IntValue = lit.Int
		// Int literals flow into float positions after widening.
		if tt, ok := l.tin.Lookup(ty); ok && tt.Kind == types.KindFloat {
			out.Const.Kind = ConstFloat
			out.Const.FloatValue = float64(lit.Int)
		}
	case ast.LitFloat:
		out.Const.Kind = ConstFloat
		out.Const.FloatValue = lit.Float
	case ast.LitBool:
		out.Const.Kind = ConstBool
		out.Const.BoolValue = lit.Bool
	case ast.LitChar:
		out.Const.Kind = ConstChar
		for _, r := range lit.Str {
			out.Const.CharValue = r
			break
		}
	case ast.LitString:
		out.Const.Kind = ConstString
		out.Const.StringValue = lit.Str
	case ast.LitUnit:
		out.Const.Kind = ConstUnit
	}
	return out
}

func (l *funcLowerer) lowerIdent(e *ast.Expr, consume bool) (Operand, error) {
	// Qualified Enum::Variant in value position builds a payload-free
	// enum value.
	if ct, ok := l.sema.CallTargets[e]; ok && ct.Kind == sema.CallVariant {
		return l.makeVariant(e, ct, nil, consume)
	}
	sym := l.sema.ExprSyms[e]
	local, ok := l.symToLocal[sym]
	if !ok {
		return Operand{}, fmt.Errorf("mir: identifier at %v has no local", e.Span)
	}
	return l.placeOperand(Place{Local: local}, l.exprType(e), consume), nil
}

func (l *funcLowerer) lowerShortCircuit(e *ast.Expr, data ast.BinaryData) (Operand, error) {
	ty := l.exprType(e)
	left, err := l.lowerExpr(data.Left, false)
	if err != nil {
		return Operand{}, err
	}
	result := l.newTemp(ty, "sc", e.Span)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: result},
			Src: RValue{Kind: RValueUse, Use: left},
		},
	})

	rightBB := l.newBlock()
	joinBB := l.newBlock()
	if data.Op == ast.BinAnd {
		l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{Cond: left, Then: rightBB, Else: joinBB}})
	} else {
		l.setTerm(&Terminator{Kind: TermIf, If: IfTerm{Cond: left, Then: joinBB, Else: rightBB}})
	}

	l.startBlock(rightBB)
	right, err := l.lowerExpr(data.Right, false)
	if err != nil {
		return Operand{}, err
	}
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: result},
			Src: RValue{Kind: RValueUse, Use: right},
		},
	})
	l.setTerm(&Terminator{Kind: TermGoto, Goto: GotoTerm{Target: joinBB}})

	l.startBlock(joinBB)
	return l.placeOperand(Place{Local: result}, ty, false), nil
}

func (l *funcLowerer) lowerBinary(e *ast.Expr, data ast.BinaryData, consume bool) (Operand, error) {
	left, err := l.lowerExpr(data.Left, false)
	if err != nil {
		return Operand{}, err
	}
	right, err := l.lowerExpr(data.Right, false)
	if err != nil {
		return Operand{}, err
	}
	ty := l.exprType(e)
	dst := l.newTemp(ty, "bin", e.Span)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: dst},
			Src: RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: data.Op, Left: left, Right: right}},
		},
	})
	return l.placeOperand(Place{Local: dst}, ty, consume), nil
}

func (l *funcLowerer) lowerUnary(e *ast.Expr, data ast.UnaryData, consume bool) (Operand, error) {
	switch data.Op {
	case ast.UnRef, ast.UnRefMut:
		place, _, err := l.lowerPlace(data.Operand)
		if err != nil {
			return Operand{}, err
		}
		kind := OperandAddrOf
		if data.Op == ast.UnRefMut {
			kind = OperandAddrOfMut
		}
		return Operand{Kind: kind, Type: l.exprType(e), Place: place}, nil

	case ast.UnDeref:
		place, ty, err := l.lowerPlace(e)
		if err != nil {
			return Operand{}, err
		}
		return l.placeOperand(place, ty, consume), nil

	default:
		op, err := l.lowerExpr(data.Operand, false)
		if err != nil {
			return Operand{}, err
		}
		ty := l.exprType(e)
		dst := l.newTemp(ty, "un", e.Span)
		l.emit(&Instr{
			Kind: InstrAssign,
			Assign: AssignInstr{
				Dst: Place{Local: dst},
				Src: RValue{Kind: RValueUnaryOp, Unary: UnaryOp{Op: data.Op, Operand: op}},
			},
		})
		return l.placeOperand(Place{Local: dst}, ty, consume), nil
	}
}

func (l *funcLowerer) lowerCall(e *ast.Expr, consume bool) (Operand, error) {
	data, ok := e.Data.(ast.CallData)
	if !ok {
		return Operand{}, fmt.Errorf("mir: call: unexpected payload %T", e.Data)
	}
	ct, ok := l.sema.CallTargets[e]
	if !ok {
		return Operand{}, fmt.Errorf("mir: call at %v has no resolved target", e.Span)
	}

	switch ct.Kind {
	case sema.CallVariant:
		return l.makeVariant(e, ct, data.Args, consume)

	case sema.CallFunc:
		args := make([]Operand, 0, len(data.Args))
		for _, arg := range data.Args {
			op, err := l.lowerExpr(arg, true)
			if err != nil {
				return Operand{}, err
			}
			// Owning aggregates travel by address.
			if l.tin.IsOwning(op.Type) {
				op = Operand{
					Kind:  OperandAddrOf,
					Type:  op.Type,
					Place: l.spillToPlace(op, "arg", arg.Span),
				}
			}
			args = append(args, op)
		}

		callee, err := l.resolveCallee(ct, e.Span)
		if err != nil {
			return Operand{}, err
		}

		resultTy := l.exprType(e)
		ins := Instr{Kind: InstrCall, Call: CallInstr{Callee: callee, Args: args}}
		if !l.isUnitType(resultTy) {
			dst := l.newTemp(resultTy, "call", e.Span)
			ins.Call.HasDst = true
			ins.Call.Dst = Place{Local: dst}
			l.emit(&ins)
			return l.placeOperand(Place{Local: dst}, resultTy, consume), nil
		}
		l.emit(&ins)
		return l.constUnit(), nil

	default:
		return Operand{}, fmt.Errorf("mir: call at %v has an invalid target", e.Span)
	}
}

// resolveCallee picks the mangled instance name for specialized calls.
func (l *funcLowerer) resolveCallee(ct sema.CallTarget, at source.Span) (Callee, error) {
	if len(ct.TypeArgs) == 0 {
		return Callee{Sym: ct.Sym, Name: l.syms.Table.SymbolName(ct.Sym)}, nil
	}
	concrete := make([]types.TypeID, len(ct.TypeArgs))
	for i, arg := range ct.TypeArgs {
		concrete[i] = l.substType(arg)
	}
	if l.insts != nil {
		if inst, ok := l.insts.Lookup(ct.Sym, concrete); ok {
			return Callee{Sym: ct.Sym, Name: inst.Name}, nil
		}
	}
	return Callee{}, fmt.Errorf("mir: call at %v targets an uninstantiated specialization", at)
}

func (l *funcLowerer) makeVariant(e *ast.Expr, ct sema.CallTarget, argExprs []*ast.Expr, consume bool) (Operand, error) {
	enumTy := l.substType(ct.Enum)
	info, ok := l.tin.EnumInfo(enumTy)
	if !ok || ct.Variant < 0 || ct.Variant >= len(info.Variants) {
		return Operand{}, fmt.Errorf("mir: variant constructor at %v has no enum metadata", e.Span)
	}
	variant := info.Variants[ct.Variant]

	args := make([]Operand, 0, len(argExprs))
	for _, arg := range argExprs {
		op, err := l.lowerExpr(arg, true)
		if err != nil {
			return Operand{}, err
		}
		args = append(args, op)
	}

	name := ""
	if s, found := l.syms.Table.Strings.Lookup(variant.Name); found {
		name = s
	}
	dst := l.newTemp(enumTy, "variant", e.Span)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: dst},
			Src: RValue{Kind: RValueMakeVariant, MakeVariant: MakeVariant{
				Enum:    enumTy,
				Tag:     variant.Tag,
				Variant: name,
				Args:    args,
			}},
		},
	})
	return l.placeOperand(Place{Local: dst}, enumTy, consume), nil
}

func (l *funcLowerer) lowerStructLit(e *ast.Expr, consume bool) (Operand, error) {
	data, ok := e.Data.(ast.StructLitData)
	if !ok {
		return Operand{}, fmt.Errorf("mir: struct literal: unexpected payload %T", e.Data)
	}
	ty := l.exprType(e)
	info, ok := l.tin.StructInfo(ty)
	if !ok {
		return Operand{}, fmt.Errorf("mir: struct literal at %v has no struct metadata", e.Span)
	}

	fields := make([]StructLitField, 0, len(data.Fields))
	for i := range data.Fields {
		f := &data.Fields[i]
		op, err := l.lowerExpr(f.Value, true)
		if err != nil {
			return Operand{}, err
		}
		idx := -1
		for fi := range info.Fields {
			if s, found := l.syms.Table.Strings.Lookup(info.Fields[fi].Name); found && s == f.Name {
				idx = fi
				break
			}
		}
		fields = append(fields, StructLitField{Name: f.Name, FieldIdx: idx, Value: op})
	}

	dst := l.newTemp(ty, "lit", e.Span)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: dst},
			Src: RValue{Kind: RValueStructLit, StructLit: StructLit{Type: ty, Fields: fields}},
		},
	})
	return l.placeOperand(Place{Local: dst}, ty, consume), nil
}

// lowerPlace evaluates an expression to an addressable location.
// Non-place expressions spill into a fresh temp.
func (l *funcLowerer) lowerPlace(e *ast.Expr) (Place, types.TypeID, error) {
	switch e.Kind {
	case ast.ExprIdent:
		if _, isVariant := l.sema.CallTargets[e]; !isVariant {
			sym := l.sema.ExprSyms[e]
			if local, ok := l.symToLocal[sym]; ok {
				return Place{Local: local}, l.exprType(e), nil
			}
		}

	case ast.ExprFieldAccess:
		data, ok := e.Data.(ast.FieldAccessData)
		if !ok {
			return Place{}, types.NoTypeID, fmt.Errorf("mir: field access: unexpected payload %T", e.Data)
		}
		place, objTy, err := l.lowerPlace(data.Object)
		if err != nil {
			return Place{}, types.NoTypeID, err
		}
		// One level of auto-deref through references.
		if tt, found := l.tin.Lookup(objTy); found && tt.Kind == types.KindReference {
			place.Proj = append(place.Proj, PlaceProj{Kind: PlaceProjDeref})
			objTy = tt.Elem
		}
		idx := -1
		if info, found := l.tin.StructInfo(objTy); found {
			idx = info.FieldIndex(l.syms.Table.Strings.Intern(data.Field))
		}
		if idx < 0 {
			return Place{}, types.NoTypeID, fmt.Errorf("mir: field %q at %v survived checking unresolved", data.Field, e.Span)
		}
		place.Proj = append(place.Proj, PlaceProj{Kind: PlaceProjField, FieldName: data.Field, FieldIdx: idx})
		return place, l.exprType(e), nil

	case ast.ExprUnary:
		data, ok := e.Data.(ast.UnaryData)
		if ok && data.Op == ast.UnDeref {
			place, _, err := l.lowerPlace(data.Operand)
			if err != nil {
				return Place{}, types.NoTypeID, err
			}
			place.Proj = append(place.Proj, PlaceProj{Kind: PlaceProjDeref})
			return place, l.exprType(e), nil
		}
	}

	op, err := l.lowerExpr(e, true)
	if err != nil {
		return Place{}, types.NoTypeID, err
	}
	return l.spillToPlace(op, "place", e.Span), op.Type, nil
}

// spillToPlace materializes an operand in an addressable local.
func (l *funcLowerer) spillToPlace(op Operand, hint string, span source.Span) Place {
	if (op.Kind == OperandCopy || op.Kind == OperandMove) && len(op.Place.Proj) == 0 {
		return op.Place
	}
	tmp := l.newTemp(op.Type, hint, span)
	l.emit(&Instr{
		Kind: InstrAssign,
		Assign: AssignInstr{
			Dst: Place{Local: tmp},
			Src: RValue{Kind: RValueUse, Use: op},
		},
	})
	return Place{Local: tmp}
}
