package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func (tc *checker) checkCall(e *ast.Expr, data ast.CallData) types.TypeID {
	callee, ok := data.Callee.Data.(ast.IdentData)
	if !ok {
		tc.errorf(diag.SemaTypeMismatch, data.Callee.Span, "expression is not callable")
		return types.NoTypeID
	}

	if callee.Qualifier != "" {
		// Enum::Variant конструктор имеет приоритет перед Type::method.
		if tc.isEnumName(callee.Qualifier) {
			return tc.checkVariantCall(e, callee, data)
		}
		return tc.checkFuncCall(e, callee.Qualifier+"::"+callee.Name, data)
	}
	return tc.checkFuncCall(e, callee.Name, data)
}

func (tc *checker) isEnumName(name string) bool {
	symID, found := tc.syms.Table.Lookup(tc.scope, tc.syms.Table.Strings.Intern(name))
	if !found {
		return false
	}
	sym := tc.syms.Table.Symbols.Get(symID)
	if sym == nil || sym.Kind != symbols.SymbolType {
		return false
	}
	_, isEnum := tc.tin.EnumInfo(sym.Type)
	return isEnum
}

func (tc *checker) checkVariantCall(e *ast.Expr, callee ast.IdentData, data ast.CallData) types.TypeID {
	enumType, info, vi := tc.lookupVariant(callee.Qualifier, callee.Name, e.Span)
	if vi < 0 {
		return types.NoTypeID
	}
	payload := info.Variants[vi].Payload
	if len(data.Args) != len(payload) {
		tc.errorf(diag.SemaArityMismatch, e.Span,
			"variant %s::%s takes %d argument(s), %d given",
			callee.Qualifier, callee.Name, len(payload), len(data.Args))
		return types.NoTypeID
	}
	for i, arg := range data.Args {
		at := tc.exprValue(arg)
		if at != types.NoTypeID && !tc.assignable(at, payload[i]) {
			tc.errorf(diag.SemaTypeMismatch, arg.Span,
				"argument %d has type %s, variant expects %s",
				i+1, tc.formatType(at), tc.formatType(payload[i]))
		}
	}
	tc.res.CallTargets[e] = CallTarget{Kind: CallVariant, Enum: enumType, Variant: vi}
	return enumType
}

func (tc *checker) checkFuncCall(e *ast.Expr, name string, data ast.CallData) types.TypeID {
	nameID := tc.syms.Table.Strings.Intern(name)
	symID, found := tc.syms.Table.Lookup(tc.scope, nameID)
	if !found {
		tc.errorf(diag.SemaUndefinedSymbol, e.Span, "function '%s' is not defined", name)
		return types.NoTypeID
	}
	sym := tc.syms.Table.Symbols.Get(symID)
	if sym == nil || sym.Kind != symbols.SymbolFunction || sym.Sig == nil {
		tc.errorf(diag.SemaUndefinedSymbol, e.Span, "'%s' is not a function", name)
		return types.NoTypeID
	}
	sig := sym.Sig

	if len(data.Args) != len(sig.Params) {
		tc.errorf(diag.SemaArityMismatch, e.Span,
			"function '%s' takes %d argument(s), %d given",
			name, len(sig.Params), len(data.Args))
		return types.NoTypeID
	}

	argTypes := make([]types.TypeID, len(data.Args))
	for i, arg := range data.Args {
		argTypes[i] = tc.exprValue(arg)
	}

	if !sig.IsGeneric() {
		if len(data.TypeArgs) > 0 {
			tc.errorf(diag.SemaArityMismatch, e.Span,
				"function '%s' takes no type arguments, %d given", name, len(data.TypeArgs))
			return types.NoTypeID
		}
		for i, at := range argTypes {
			if at != types.NoTypeID && !tc.assignable(at, sig.Params[i].Type) {
				tc.errorf(diag.SemaTypeMismatch, data.Args[i].Span,
					"argument %d has type %s, parameter has type %s",
					i+1, tc.formatType(at), tc.formatType(sig.Params[i].Type))
			}
		}
		tc.res.CallTargets[e] = CallTarget{Kind: CallFunc, Sym: symID}
		return sig.Result
	}
	return tc.checkGenericCall(e, name, symID, sig, data, argTypes)
}

func (tc *checker) checkGenericCall(e *ast.Expr, name string, symID symbols.SymbolID, sig *symbols.FuncSig, data ast.CallData, argTypes []types.TypeID) types.TypeID {
	subst := make(map[types.TypeID]types.TypeID, len(sig.Generics))

	if len(data.TypeArgs) > 0 {
		if len(data.TypeArgs) != len(sig.Generics) {
			tc.errorf(diag.SemaArityMismatch, e.Span,
				"function '%s' takes %d type argument(s), %d given",
				name, len(sig.Generics), len(data.TypeArgs))
			return types.NoTypeID
		}
		for i, ta := range data.TypeArgs {
			id := tc.syms.ResolveType(tc.scope, ta)
			if id == types.NoTypeID {
				tc.failed = true
				return types.NoTypeID
			}
			subst[sig.Generics[i].Type] = id
		}
	} else {
		// Вывод аргументов: структурная унификация типов параметров
		// с типами фактических аргументов.
		for i, at := range argTypes {
			if at == types.NoTypeID {
				return types.NoTypeID
			}
			tc.unify(sig.Params[i].Type, at, subst)
		}
	}

	typeArgs := make([]types.TypeID, len(sig.Generics))
	for i, g := range sig.Generics {
		bound, ok := subst[g.Type]
		if !ok {
			gname, _ := tc.syms.Table.Strings.Lookup(g.Name)
			tc.errorf(diag.SemaTypeMismatch, e.Span,
				"cannot infer type argument %s for '%s'; spell it explicitly", gname, name)
			return types.NoTypeID
		}
		typeArgs[i] = bound
	}

	for i, at := range argTypes {
		want := tc.syms.Substitute(sig.Params[i].Type, subst)
		if at != types.NoTypeID && !tc.assignable(at, want) {
			tc.errorf(diag.SemaTypeMismatch, data.Args[i].Span,
				"argument %d has type %s, parameter has type %s",
				i+1, tc.formatType(at), tc.formatType(want))
		}
	}

	tc.res.CallTargets[e] = CallTarget{Kind: CallFunc, Sym: symID, TypeArgs: typeArgs}
	tc.res.Instantiations = append(tc.res.Instantiations, Instantiation{
		Sym:  symID,
		Args: typeArgs,
		In:   tc.fn.Item,
		Span: e.Span,
	})
	return tc.syms.Substitute(sig.Result, subst)
}

// unify binds Param placeholders inside want to the structure of got.
// Mismatches are left for the post-substitution argument check, which
// produces the better message.
func (tc *checker) unify(want, got types.TypeID, subst map[types.TypeID]types.TypeID) {
	if want == types.NoTypeID || got == types.NoTypeID || want == got {
		return
	}
	wt, ok := tc.tin.Lookup(want)
	if !ok {
		return
	}
	switch wt.Kind {
	case types.KindParam:
		if _, bound := subst[want]; !bound {
			subst[want] = got
		}
	case types.KindReference:
		gt, ok := tc.tin.Lookup(got)
		if !ok || gt.Kind != types.KindReference {
			return
		}
		tc.unify(wt.Elem, gt.Elem, subst)
	case types.KindStruct:
		wantInst, okW := tc.syms.StructInstance(want)
		gotInst, okG := tc.syms.StructInstance(got)
		if !okW || !okG || wantInst.Base != gotInst.Base || len(wantInst.Args) != len(gotInst.Args) {
			return
		}
		for i := range wantInst.Args {
			tc.unify(wantInst.Args[i], gotInst.Args[i], subst)
		}
	}
}
