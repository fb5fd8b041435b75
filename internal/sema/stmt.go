package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// checkBlock analyzes a nested block in its own scope and records the
// obligations its closing brace discharges.
func (tc *checker) checkBlock(b *ast.Block, parent symbols.ScopeID) {
	if b == nil {
		return
	}
	scope := tc.syms.Table.Scopes.New(symbols.ScopeBlock, parent, b.Span)
	tc.own.Push()
	prev := tc.scope
	tc.scope = scope
	for _, st := range b.Stmts {
		tc.checkStmt(st)
	}
	tc.scope = prev
	tc.res.BlockReleases[b] = tc.own.Pop()
}

func (tc *checker) checkStmt(st *ast.Stmt) {
	if st == nil {
		return
	}
	switch data := st.Data.(type) {
	case ast.LetData:
		tc.checkLet(st, data)
	case ast.ExprStmtData:
		tc.exprValue(data.Expr)
	case ast.ReturnData:
		tc.checkReturn(st, data)
	case ast.IfData:
		tc.checkIf(data)
	case ast.WhileData:
		tc.checkWhile(data)
	case ast.MatchStmtData:
		tc.checkMatchExpr(data.Match, true)
	case ast.BreakData, ast.ContinueData:
		if tc.loopDepth == 0 {
			tc.errorf(diag.SemaOutsideLoop, st.Span, "'%s' outside of a loop", st.Kind)
		}
	}
}

func (tc *checker) checkLet(st *ast.Stmt, data ast.LetData) {
	valueType := types.NoTypeID
	if data.Value != nil {
		valueType = tc.exprValue(data.Value)
	}

	declType := valueType
	if data.Type != nil {
		declType = tc.syms.ResolveType(tc.scope, data.Type)
		if declType == types.NoTypeID {
			tc.failed = true
		} else if data.Value != nil && !tc.assignable(valueType, declType) {
			tc.errorf(diag.SemaTypeMismatch, data.Value.Span,
				"cannot initialize %s binding with value of type %s",
				tc.formatType(declType), tc.formatType(valueType))
		}
	}
	if declType == types.NoTypeID {
		tc.failed = true
		return
	}

	name := tc.syms.Table.Strings.Intern(data.Name)
	var flags symbols.SymbolFlags
	if data.Mutable {
		flags = symbols.SymbolFlagMutable
	}
	id, declared := tc.syms.Table.Declare(tc.scope, &symbols.Symbol{
		Name:  name,
		Kind:  symbols.SymbolLet,
		Span:  st.Span,
		Type:  declType,
		Flags: flags,
	})
	if !declared {
		tc.errorf(diag.SemaRedefinition, st.Span, "'%s' is already defined in this scope", data.Name)
		return
	}
	tc.own.Declare(id, name, declType, data.Mutable, st.Span)
	tc.res.LetSyms[st] = id
}

func (tc *checker) checkReturn(st *ast.Stmt, data ast.ReturnData) {
	got := tc.tin.Builtins().Unit
	if data.Value != nil {
		got = tc.exprValue(data.Value)
	}
	if got != types.NoTypeID && !tc.assignable(got, tc.sig.Result) {
		tc.errorf(diag.SemaTypeMismatch, st.Span,
			"return value has type %s, function returns %s",
			tc.formatType(got), tc.formatType(tc.sig.Result))
	}
	// Ранний выход освобождает всё живое во всех открытых скоупах.
	tc.res.ReturnReleases[st] = tc.own.Live()
}

func (tc *checker) checkIf(data ast.IfData) {
	tc.requireBool(data.Cond)

	before := tc.own.SnapshotMoved()
	tc.checkBlock(data.Then, tc.scope)
	thenMoved := tc.own.SnapshotMoved()

	tc.own.RestoreMoved(before)
	if data.Else != nil {
		tc.checkBlock(data.Else, tc.scope)
	}
	// Перемещение хотя бы в одной ветке считается перемещением после if.
	tc.own.MergeMoved(thenMoved)
}

func (tc *checker) checkWhile(data ast.WhileData) {
	tc.requireBool(data.Cond)
	before := tc.own.SnapshotMoved()
	tc.loopDepth++
	tc.checkBlock(data.Body, tc.scope)
	tc.loopDepth--
	// Тело может выполниться ноль раз: стартовое состояние сливается.
	bodyMoved := tc.own.SnapshotMoved()
	tc.own.RestoreMoved(before)
	tc.own.MergeMoved(bodyMoved)
}

func (tc *checker) requireBool(cond *ast.Expr) {
	ct := tc.exprValue(cond)
	if ct != types.NoTypeID && ct != tc.tin.Builtins().Bool {
		tc.errorf(diag.SemaTypeMismatch, cond.Span,
			"condition has type %s, expected bool", tc.formatType(ct))
	}
}

// assignable reports whether a value of type got may flow into want.
// Int widens to float; everything else requires exact identity.
func (tc *checker) assignable(got, want types.TypeID) bool {
	if got == want {
		return true
	}
	bi := tc.tin.Builtins()
	return got == bi.Int && want == bi.Float
}
