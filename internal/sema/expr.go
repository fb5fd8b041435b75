package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// exprValue types an expression in value position: reading an owning
// binding here transfers the value, so the binding is marked moved.
func (tc *checker) exprValue(e *ast.Expr) types.TypeID {
	return tc.typeExpr(e, true)
}

// exprRead types an expression without consuming it (match scrutinees,
// field-access bases, borrow operands).
func (tc *checker) exprRead(e *ast.Expr) types.TypeID {
	return tc.typeExpr(e, false)
}

func (tc *checker) setType(e *ast.Expr, id types.TypeID) types.TypeID {
	if id == types.NoTypeID {
		tc.failed = true
	}
	tc.res.ExprTypes[e] = id
	return id
}

func (tc *checker) typeExpr(e *ast.Expr, move bool) types.TypeID {
	if e == nil {
		return types.NoTypeID
	}
	switch data := e.Data.(type) {
	case ast.LiteralData:
		return tc.setType(e, tc.literalType(data))
	case ast.IdentData:
		return tc.setType(e, tc.checkIdent(e, data, move))
	case ast.BinaryData:
		return tc.setType(e, tc.checkBinary(e, data))
	case ast.UnaryData:
		return tc.setType(e, tc.checkUnary(e, data))
	case ast.CallData:
		return tc.setType(e, tc.checkCall(e, data))
	case ast.FieldAccessData:
		return tc.setType(e, tc.checkFieldAccess(e, data))
	case ast.StructLitData:
		return tc.setType(e, tc.checkStructLit(e, data))
	case ast.MatchData:
		return tc.checkMatchExpr(e, false)
	default:
		return types.NoTypeID
	}
}

func (tc *checker) literalType(data ast.LiteralData) types.TypeID {
	bi := tc.tin.Builtins()
	switch data.Kind {
	case ast.LitInt:
		return bi.Int
	case ast.LitFloat:
		return bi.Float
	case ast.LitBool:
		return bi.Bool
	case ast.LitChar:
		return bi.Char
	case ast.LitString:
		return bi.String
	case ast.LitUnit:
		return bi.Unit
	default:
		return types.NoTypeID
	}
}

func (tc *checker) checkIdent(e *ast.Expr, data ast.IdentData, move bool) types.TypeID {
	if data.Qualifier != "" {
		return tc.checkVariantValue(e, data)
	}
	name := tc.syms.Table.Strings.Intern(data.Name)
	symID, found := tc.syms.Table.Lookup(tc.scope, name)
	if !found {
		tc.errorf(diag.SemaUndefinedSymbol, e.Span, "'%s' is not defined", data.Name)
		return types.NoTypeID
	}
	sym := tc.syms.Table.Symbols.Get(symID)
	switch sym.Kind {
	case symbols.SymbolLet, symbols.SymbolParam:
	case symbols.SymbolFunction:
		tc.errorf(diag.SemaTypeMismatch, e.Span, "function '%s' can only be called", data.Name)
		return types.NoTypeID
	default:
		tc.errorf(diag.SemaUndefinedSymbol, e.Span, "'%s' is not a value", data.Name)
		return types.NoTypeID
	}
	tc.res.ExprSyms[e] = symID

	if move {
		tc.reportIssue(tc.own.MarkMoved(symID, e.Span), symID, e.Span)
	} else {
		tc.reportIssue(tc.own.CheckRead(symID), symID, e.Span)
	}
	return sym.Type
}

// checkVariantValue types a bare Enum::Variant path: unit variants are
// values, payload variants must be called.
func (tc *checker) checkVariantValue(e *ast.Expr, data ast.IdentData) types.TypeID {
	enumType, info, vi := tc.lookupVariant(data.Qualifier, data.Name, e.Span)
	if vi < 0 {
		return types.NoTypeID
	}
	if len(info.Variants[vi].Payload) > 0 {
		tc.errorf(diag.SemaArityMismatch, e.Span,
			"variant %s::%s carries a payload and must be called", data.Qualifier, data.Name)
		return types.NoTypeID
	}
	tc.res.CallTargets[e] = CallTarget{Kind: CallVariant, Enum: enumType, Variant: vi}
	return enumType
}

// lookupVariant resolves Enum::Variant, reporting on failure. Returns the
// variant index or -1.
func (tc *checker) lookupVariant(enumName, variant string, sp source.Span) (types.TypeID, *types.EnumInfo, int) {
	nameID := tc.syms.Table.Strings.Intern(enumName)
	symID, found := tc.syms.Table.Lookup(tc.scope, nameID)
	if !found {
		tc.errorf(diag.SemaUndefinedType, sp, "type '%s' is not defined", enumName)
		return types.NoTypeID, nil, -1
	}
	sym := tc.syms.Table.Symbols.Get(symID)
	if sym == nil || sym.Kind != symbols.SymbolType {
		tc.errorf(diag.SemaUndefinedType, sp, "'%s' is not a type", enumName)
		return types.NoTypeID, nil, -1
	}
	info, isEnum := tc.tin.EnumInfo(sym.Type)
	if !isEnum {
		tc.errorf(diag.SemaUndefinedSymbol, sp, "'%s' is not an enum", enumName)
		return types.NoTypeID, nil, -1
	}
	vi := info.VariantIndex(tc.syms.Table.Strings.Intern(variant))
	if vi < 0 {
		tc.errorf(diag.SemaUndefinedSymbol, sp, "enum %s has no variant %s", enumName, variant)
		return types.NoTypeID, nil, -1
	}
	return sym.Type, info, vi
}

func (tc *checker) reportIssue(issue Issue, symID symbols.SymbolID, sp source.Span) {
	if issue == IssueNone {
		return
	}
	name := tc.syms.Table.SymbolName(symID)
	switch issue {
	case IssueMoved:
		d := diag.NewError(diag.SemaUseAfterMove, sp, "use of moved value '"+name+"'")
		if at, moved := tc.own.MovedAt(symID); moved {
			d = d.WithNote(at, "value moved here")
		}
		tc.failed = true
		if tc.reporter != nil {
			tc.reporter.Report(d)
		}
	case IssueConflictShared:
		tc.errorf(diag.SemaConflictingBorrow, sp,
			"cannot mutably use '%s' while it is borrowed", name)
	case IssueConflictMut:
		tc.errorf(diag.SemaConflictingBorrow, sp,
			"cannot use '%s' while it is mutably borrowed", name)
	case IssueImmutable:
		tc.errorf(diag.SemaBorrowMutImmutable, sp,
			"cannot borrow '%s' as mutable: binding is not declared mutable", name)
	}
}

func (tc *checker) checkBinary(e *ast.Expr, data ast.BinaryData) types.TypeID {
	lt := tc.exprValue(data.Left)
	rt := tc.exprValue(data.Right)
	if lt == types.NoTypeID || rt == types.NoTypeID {
		return types.NoTypeID
	}
	bi := tc.tin.Builtins()
	switch data.Op {
	case ast.BinAnd, ast.BinOr:
		if lt != bi.Bool || rt != bi.Bool {
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"operator %s expects bool operands, got %s and %s",
				data.Op, tc.formatType(lt), tc.formatType(rt))
			return types.NoTypeID
		}
		return bi.Bool
	case ast.BinMod:
		if lt != bi.Int || rt != bi.Int {
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"operator %% expects int operands, got %s and %s",
				tc.formatType(lt), tc.formatType(rt))
			return types.NoTypeID
		}
		return bi.Int
	}

	if data.Op.IsComparison() {
		if data.Op == ast.BinEq || data.Op == ast.BinNe {
			if lt == rt || tc.numericPair(lt, rt) {
				return bi.Bool
			}
		} else if tc.numericPair(lt, rt) || (lt == rt && (lt == bi.Char || lt == bi.String)) {
			return bi.Bool
		}
		tc.errorf(diag.SemaTypeMismatch, e.Span,
			"cannot compare %s with %s", tc.formatType(lt), tc.formatType(rt))
		return types.NoTypeID
	}

	// Арифметика: int/float с расширением.
	if !tc.numericPair(lt, rt) {
		tc.errorf(diag.SemaTypeMismatch, e.Span,
			"operator %s expects numeric operands, got %s and %s",
			data.Op, tc.formatType(lt), tc.formatType(rt))
		return types.NoTypeID
	}
	if lt == bi.Float || rt == bi.Float {
		return bi.Float
	}
	return bi.Int
}

func (tc *checker) numericPair(lt, rt types.TypeID) bool {
	bi := tc.tin.Builtins()
	isNum := func(id types.TypeID) bool { return id == bi.Int || id == bi.Float }
	return isNum(lt) && isNum(rt)
}

func (tc *checker) checkUnary(e *ast.Expr, data ast.UnaryData) types.TypeID {
	bi := tc.tin.Builtins()
	switch data.Op {
	case ast.UnNeg:
		ot := tc.exprValue(data.Operand)
		if ot != bi.Int && ot != bi.Float && ot != types.NoTypeID {
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"operator - expects a numeric operand, got %s", tc.formatType(ot))
			return types.NoTypeID
		}
		return ot
	case ast.UnNot:
		ot := tc.exprValue(data.Operand)
		if ot != bi.Bool && ot != types.NoTypeID {
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"operator ! expects a bool operand, got %s", tc.formatType(ot))
			return types.NoTypeID
		}
		return bi.Bool
	case ast.UnRef, ast.UnRefMut:
		return tc.checkBorrow(e, data)
	case ast.UnDeref:
		ot := tc.exprValue(data.Operand)
		tt, ok := tc.tin.Lookup(ot)
		if !ok || tt.Kind != types.KindReference {
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"cannot dereference value of type %s", tc.formatType(ot))
			return types.NoTypeID
		}
		return tt.Elem
	default:
		return types.NoTypeID
	}
}

// checkBorrow handles &x and &mut x: the operand must be a place rooted
// in a named binding, and the borrow registers against that root.
func (tc *checker) checkBorrow(e *ast.Expr, data ast.UnaryData) types.TypeID {
	ot := tc.exprRead(data.Operand)
	root := placeRoot(data.Operand)
	if root == nil {
		tc.errorf(diag.SemaTypeMismatch, e.Span, "cannot borrow a temporary value")
		return types.NoTypeID
	}
	symID, tracked := tc.res.ExprSyms[root]
	if !tracked {
		return types.NoTypeID
	}
	kind := BorrowShared
	if data.Op == ast.UnRefMut {
		kind = BorrowMut
	}
	tc.reportIssue(tc.own.AddBorrow(symID, kind, e.Span), symID, e.Span)
	if ot == types.NoTypeID {
		return types.NoTypeID
	}
	return tc.tin.Reference(ot, kind == BorrowMut)
}

// placeRoot walks an lvalue chain (idents, field accesses, derefs) down
// to the identifier its storage is rooted in.
func placeRoot(e *ast.Expr) *ast.Expr {
	for e != nil {
		switch data := e.Data.(type) {
		case ast.IdentData:
			if data.Qualifier != "" {
				return nil
			}
			return e
		case ast.FieldAccessData:
			e = data.Object
		case ast.UnaryData:
			if data.Op != ast.UnDeref {
				return nil
			}
			e = data.Operand
		default:
			return nil
		}
	}
	return nil
}

func (tc *checker) checkFieldAccess(e *ast.Expr, data ast.FieldAccessData) types.TypeID {
	base := tc.exprRead(data.Object)
	if base == types.NoTypeID {
		return types.NoTypeID
	}
	// Один уровень авторазыменования: p.x работает и для &Point.
	if tt, ok := tc.tin.Lookup(base); ok && tt.Kind == types.KindReference {
		base = tt.Elem
	}
	info, isStruct := tc.tin.StructInfo(base)
	if !isStruct {
		tc.errorf(diag.SemaTypeMismatch, e.Span,
			"type %s has no fields", tc.formatType(base))
		return types.NoTypeID
	}
	fi := info.FieldIndex(tc.syms.Table.Strings.Intern(data.Field))
	if fi < 0 {
		structName, _ := tc.syms.Table.Strings.Lookup(info.Name)
		tc.errorf(diag.SemaUndefinedField, e.Span,
			"struct %s has no field %s", structName, data.Field)
		return types.NoTypeID
	}
	return info.Fields[fi].Type
}

func (tc *checker) checkStructLit(e *ast.Expr, data ast.StructLitData) types.TypeID {
	nameID := tc.syms.Table.Strings.Intern(data.Name)
	symID, found := tc.syms.Table.Lookup(tc.scope, nameID)
	if !found {
		tc.errorf(diag.SemaUndefinedType, e.Span, "type '%s' is not defined", data.Name)
		return types.NoTypeID
	}
	sym := tc.syms.Table.Symbols.Get(symID)
	if sym == nil || sym.Kind != symbols.SymbolType {
		tc.errorf(diag.SemaUndefinedType, e.Span, "'%s' is not a type", data.Name)
		return types.NoTypeID
	}
	if sym.Flags&symbols.SymbolFlagGeneric != 0 {
		tc.errorf(diag.SemaArityMismatch, e.Span,
			"generic struct '%s' needs type arguments; bind the literal through an annotated let", data.Name)
		return types.NoTypeID
	}
	info, isStruct := tc.tin.StructInfo(sym.Type)
	if !isStruct {
		tc.errorf(diag.SemaTypeMismatch, e.Span, "'%s' is not a struct", data.Name)
		return types.NoTypeID
	}

	seen := make(map[string]bool, len(data.Fields))
	for i := range data.Fields {
		f := &data.Fields[i]
		vt := tc.exprValue(f.Value)
		fi := info.FieldIndex(tc.syms.Table.Strings.Intern(f.Name))
		if fi < 0 {
			tc.errorf(diag.SemaUndefinedField, f.Span,
				"struct %s has no field %s", data.Name, f.Name)
			continue
		}
		if seen[f.Name] {
			tc.errorf(diag.SemaRedefinition, f.Span, "field %s is initialized twice", f.Name)
			continue
		}
		seen[f.Name] = true
		want := info.Fields[fi].Type
		if vt != types.NoTypeID && !tc.assignable(vt, want) {
			tc.errorf(diag.SemaTypeMismatch, f.Span,
				"field %s has type %s, got %s", f.Name, tc.formatType(want), tc.formatType(vt))
		}
	}
	// Пропущенное поле — ошибка, значение никогда не подставляется.
	for _, f := range info.Fields {
		fname, _ := tc.syms.Table.Strings.Lookup(f.Name)
		if !seen[fname] {
			tc.errorf(diag.SemaMissingField, e.Span,
				"struct literal %s misses field %s", data.Name, fname)
		}
	}
	return sym.Type
}
