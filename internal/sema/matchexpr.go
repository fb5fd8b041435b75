package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/match"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// sinkReporter forwards diagnostics from the match compiler while marking
// the current function failed on errors.
type sinkReporter struct{ tc *checker }

func (s sinkReporter) Report(d diag.Diagnostic) {
	if d.Severity >= diag.SevError {
		s.tc.failed = true
	}
	if s.tc.reporter != nil {
		s.tc.reporter.Report(d)
	}
}

// checkMatchExpr analyzes a match in expression or statement position:
// patterns against the scrutinee type, guards, arm bodies with their
// bindings in scope, then the compiled plan.
func (tc *checker) checkMatchExpr(e *ast.Expr, stmt bool) types.TypeID {
	data, ok := e.Data.(ast.MatchData)
	if !ok {
		return types.NoTypeID
	}
	scrut := tc.exprRead(data.Scrutinee)
	if scrut == types.NoTypeID {
		return tc.setType(e, types.NoTypeID)
	}
	sink := sinkReporter{tc: tc}

	armTypes := make([]types.TypeID, len(data.Arms))
	before := tc.own.SnapshotMoved()
	armMoved := make([]map[symbols.SymbolID]source.Span, len(data.Arms))

	for i := range data.Arms {
		arm := &data.Arms[i]
		tc.own.RestoreMoved(before)

		armScope := tc.syms.Table.Scopes.New(symbols.ScopeBlock, tc.scope, arm.Span)
		tc.own.Push()
		match.CheckPattern(tc.tin, tc.syms.Table.Strings, sink, arm.Pattern, scrut,
			func(pat *ast.Pattern, name string, ty types.TypeID) {
				nameID := tc.syms.Table.Strings.Intern(name)
				id, declared := tc.syms.Table.Declare(armScope, &symbols.Symbol{
					Name: nameID,
					Kind: symbols.SymbolLet,
					Span: pat.Span,
					Type: ty,
				})
				if !declared {
					tc.errorf(diag.SemaRedefinition, pat.Span,
						"'%s' is bound twice in this pattern", name)
					return
				}
				tc.own.Declare(id, nameID, ty, false, pat.Span)
				tc.res.PatSyms[pat] = id
			})

		prev := tc.scope
		tc.scope = armScope
		if arm.Guard != nil {
			tc.requireBool(arm.Guard)
		}
		armTypes[i] = tc.exprValue(arm.Body)
		tc.scope = prev

		// Привязки по значению владеют вынутым payload; что не ушло
		// дальше — освобождается на выходе из рукава.
		tc.res.ArmReleases[arm] = tc.own.Pop()
		armMoved[i] = tc.own.SnapshotMoved()
	}

	tc.own.RestoreMoved(before)
	for _, moved := range armMoved {
		tc.own.MergeMoved(moved)
	}

	plan := match.Build(tc.tin, tc.syms.Table.Strings, sink, match.Input{
		Scrutinee: scrut,
		Arms:      data.Arms,
		ArmTypes:  armTypes,
		Stmt:      stmt,
		Span:      e.Span,
	})
	tc.res.MatchPlans[e] = plan

	if stmt {
		return tc.setType(e, tc.tin.Builtins().Unit)
	}
	return tc.setType(e, plan.Result)
}
