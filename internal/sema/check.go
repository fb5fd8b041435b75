// Package sema walks resolved functions in declaration order, typing every
// expression, enforcing move/borrow discipline and recording the release
// obligations the code generator discharges at scope exits.
package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/match"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// CallKind discriminates what a call expression targets.
type CallKind uint8

const (
	CallInvalid CallKind = iota
	// CallFunc targets a (possibly specialized) function symbol.
	CallFunc
	// CallVariant constructs an enum variant value.
	CallVariant
)

// CallTarget records the resolution of one call expression for the code
// generator: the function symbol plus concrete type arguments, or the
// enum variant tag.
type CallTarget struct {
	Kind     CallKind
	Sym      symbols.SymbolID
	TypeArgs []types.TypeID
	Enum     types.TypeID
	Variant  int
}

// Instantiation is one observed (generic function, type args) pair. Args
// may still contain Param placeholders when the call site sits inside a
// generic body; the instantiator substitutes them transitively.
type Instantiation struct {
	Sym  symbols.SymbolID
	Args []types.TypeID
	// In is the function item enclosing the call site.
	In   *ast.Item
	Span source.Span
}

// Result stores semantic artefacts consumed by the instantiator and the
// code generator.
type Result struct {
	Symbols *symbols.Result
	Types   *types.Interner

	ExprTypes map[*ast.Expr]types.TypeID
	ExprSyms  map[*ast.Expr]symbols.SymbolID
	PatSyms   map[*ast.Pattern]symbols.SymbolID
	LetSyms   map[*ast.Stmt]symbols.SymbolID
	ParamSyms map[*ast.Item][]symbols.SymbolID

	CallTargets map[*ast.Expr]CallTarget
	MatchPlans  map[*ast.Expr]*match.Plan

	// BlockReleases hands scope-exit obligations to the code generator,
	// keyed by the AST block whose closing brace discharges them.
	BlockReleases map[*ast.Block][]Obligation
	// ReturnReleases snapshots every live obligation at an early return.
	ReturnReleases map[*ast.Stmt][]Obligation
	// FuncReleases lists owning parameters still live at the function's
	// closing brace; the fallthrough exit discharges them.
	FuncReleases map[*ast.Item][]Obligation
	// ArmReleases lists obligations of pattern bindings per match arm.
	ArmReleases map[*ast.MatchArm][]Obligation

	Instantiations []Instantiation

	// Broken marks functions whose analysis failed; no IR is generated
	// for them. Includes items the resolver already rejected.
	Broken map[*ast.Item]bool
}

// Check runs semantic analysis over every resolved function.
func Check(res *symbols.Result, reporter diag.Reporter) *Result {
	out := &Result{
		Symbols:        res,
		Types:          res.Types,
		ExprTypes:      make(map[*ast.Expr]types.TypeID),
		ExprSyms:       make(map[*ast.Expr]symbols.SymbolID),
		PatSyms:        make(map[*ast.Pattern]symbols.SymbolID),
		LetSyms:        make(map[*ast.Stmt]symbols.SymbolID),
		ParamSyms:      make(map[*ast.Item][]symbols.SymbolID),
		CallTargets:    make(map[*ast.Expr]CallTarget),
		MatchPlans:     make(map[*ast.Expr]*match.Plan),
		BlockReleases:  make(map[*ast.Block][]Obligation),
		ReturnReleases: make(map[*ast.Stmt][]Obligation),
		FuncReleases:   make(map[*ast.Item][]Obligation),
		ArmReleases:    make(map[*ast.MatchArm][]Obligation),
		Broken:         make(map[*ast.Item]bool),
	}
	for item, broken := range res.Broken {
		if broken {
			out.Broken[item] = true
		}
	}
	for _, fn := range res.Funcs {
		if out.Broken[fn.Item] {
			continue
		}
		tc := &checker{
			res:      out,
			syms:     res,
			tin:      res.Types,
			reporter: reporter,
			fn:       fn,
		}
		if !tc.run() {
			out.Broken[fn.Item] = true
		}
	}
	return out
}

// checker analyzes one function body. Ошибки внутри функции помечают её
// broken, но не останавливают остальные.
type checker struct {
	res      *Result
	syms     *symbols.Result
	tin      *types.Interner
	reporter diag.Reporter

	fn     symbols.FuncDecl
	sig    *symbols.FuncSig
	own    *Ownership
	scope  symbols.ScopeID
	failed bool

	loopDepth int
}

func (tc *checker) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	tc.failed = true
	diag.Errorf(tc.reporter, code, sp, format, args...)
}

func (tc *checker) formatType(id types.TypeID) string {
	return tc.tin.Format(id, tc.syms.Table.Strings)
}

func (tc *checker) run() bool {
	sym := tc.syms.Table.Symbols.Get(tc.fn.Sym)
	if sym == nil || sym.Sig == nil {
		return false
	}
	tc.sig = sym.Sig
	data, ok := tc.fn.Item.Data.(ast.FuncData)
	if !ok || data.Body == nil {
		return false
	}
	// Генерик-функции проверяются по плейсхолдерам; инстанциатор потом
	// подставит конкретные типы в уже проверенное тело.
	tc.own = NewOwnership(tc.tin)
	tc.scope = tc.syms.Table.Scopes.New(symbols.ScopeBlock, tc.fn.Scope, tc.fn.Item.Span)

	params := make([]symbols.SymbolID, 0, len(tc.sig.Params))
	for _, p := range tc.sig.Params {
		var flags symbols.SymbolFlags
		if p.Mutable {
			flags = symbols.SymbolFlagMutable
		}
		id, declared := tc.syms.Table.Declare(tc.scope, &symbols.Symbol{
			Name:  p.Name,
			Kind:  symbols.SymbolParam,
			Span:  p.Span,
			Type:  p.Type,
			Flags: flags,
		})
		if !declared {
			name, _ := tc.syms.Table.Strings.Lookup(p.Name)
			tc.errorf(diag.SemaRedefinition, p.Span, "parameter '%s' is already defined", name)
			continue
		}
		// Параметры владеют своими значениями как let-привязки.
		tc.own.Declare(id, p.Name, p.Type, p.Mutable, p.Span)
		params = append(params, id)
	}
	tc.res.ParamSyms[tc.fn.Item] = params

	tc.checkBlock(data.Body, tc.scope)

	// Корневой scope держит параметры; его обязательства гасятся на
	// неявном выходе из функции.
	tc.res.FuncReleases[tc.fn.Item] = tc.own.Pop()

	if tc.sig.Result != tc.tin.Builtins().Unit && !blockGuaranteesReturn(data.Body) {
		tc.errorf(diag.SemaTypeMismatch, tc.fn.Item.Span,
			"function must return %s on every path", tc.formatType(tc.sig.Result))
	}
	return !tc.failed
}

// blockGuaranteesReturn reports whether every path through the block hits
// a return. Loops never count: a while condition may be false on entry.
func blockGuaranteesReturn(b *ast.Block) bool {
	if b == nil {
		return false
	}
	for _, st := range b.Stmts {
		if stmtGuaranteesReturn(st) {
			return true
		}
	}
	return false
}

func stmtGuaranteesReturn(st *ast.Stmt) bool {
	if st == nil {
		return false
	}
	switch data := st.Data.(type) {
	case ast.ReturnData:
		return true
	case ast.IfData:
		return data.Else != nil && blockGuaranteesReturn(data.Then) && blockGuaranteesReturn(data.Else)
	default:
		return false
	}
}
