package mono

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Monomorphize specializes every generic function reachable from
// non-generic code. Requests recorded inside generic bodies still carry
// Param placeholders; they are substituted through the requesting
// instance, worklist-style, until the set closes.
func Monomorphize(sem *sema.Result, reporter diag.Reporter) *InstantiationMap {
	m := &monomorphizer{
		out:      NewInstantiationMap(),
		sem:      sem,
		syms:     sem.Symbols,
		tin:      sem.Types,
		reporter: reporter,
		byFunc:   make(map[*ast.Item][]sema.Instantiation),
	}
	for _, inst := range sem.Instantiations {
		m.byFunc[inst.In] = append(m.byFunc[inst.In], inst)
	}

	// Затравка: вызовы из неженерик-функций уже конкретны.
	for _, inst := range sem.Instantiations {
		if m.concrete(inst.Args) {
			m.request(inst.Sym, inst.Args, inst.Span)
		}
	}
	for len(m.worklist) > 0 {
		next := m.worklist[0]
		m.worklist = m.worklist[1:]
		m.expand(next)
	}
	return m.out
}

type monomorphizer struct {
	out      *InstantiationMap
	sem      *sema.Result
	syms     *symbols.Result
	tin      *types.Interner
	reporter diag.Reporter

	byFunc   map[*ast.Item][]sema.Instantiation
	worklist []*Instance
}

func (m *monomorphizer) concrete(args []types.TypeID) bool {
	for _, a := range args {
		if m.tin.ContainsParam(a) {
			return false
		}
	}
	return true
}

// request produces (or returns) the instance for one concrete tuple.
// Идемпотентность: повторный запрос с теми же аргументами отдаёт кэш.
func (m *monomorphizer) request(sym symbols.SymbolID, args []types.TypeID, at source.Span) *Instance {
	key := InstantiationKey{Sym: sym, ArgsKey: typeArgsKey(args)}
	if inst, ok := m.out.Entries[key]; ok {
		inst.UseSites = append(inst.UseSites, at)
		return inst
	}
	symbol := m.syms.Table.Symbols.Get(sym)
	if symbol == nil || symbol.Sig == nil {
		return nil
	}
	sig := symbol.Sig
	if len(args) != len(sig.Generics) {
		return nil
	}

	subst := make(map[types.TypeID]types.TypeID, len(args))
	for i, g := range sig.Generics {
		subst[g.Type] = args[i]
	}
	m.checkBounds(sig, args, at)

	params := make([]types.TypeID, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = m.syms.Substitute(p.Type, subst)
	}
	inst := &Instance{
		Key:      key,
		Name:     m.mangle(m.syms.Table.SymbolName(sym), args),
		Fn:       m.funcDecl(sym, sig),
		TypeArgs: args,
		Subst:    subst,
		Params:   params,
		Result:   m.syms.Substitute(sig.Result, subst),
	}
	inst.UseSites = append(inst.UseSites, at)
	m.out.Entries[key] = inst
	m.out.Order = append(m.out.Order, inst)
	m.worklist = append(m.worklist, inst)
	return inst
}

// expand walks the instantiation requests recorded inside the instance's
// body and re-issues them with placeholders substituted.
func (m *monomorphizer) expand(inst *Instance) {
	for _, req := range m.byFunc[inst.Fn.Item] {
		args := make([]types.TypeID, len(req.Args))
		for i, a := range req.Args {
			args[i] = m.syms.Substitute(a, inst.Subst)
		}
		if !m.concrete(args) {
			// Осталась несвязанная переменная: запрос придёт от
			// инстанса более внешнего дженерика.
			continue
		}
		m.request(req.Sym, args, req.Span)
	}
}

// checkBounds verifies every substituted argument implements the traits
// its parameter requires.
func (m *monomorphizer) checkBounds(sig *symbols.FuncSig, args []types.TypeID, at source.Span) {
	for i, g := range sig.Generics {
		for _, bound := range g.Bounds {
			traitID, found := m.tin.FindTrait(bound)
			if !found {
				continue // резолвер уже сообщил об этом
			}
			if m.tin.HasImpl(traitID, args[i]) {
				continue
			}
			gname, _ := m.syms.Table.Strings.Lookup(g.Name)
			tname, _ := m.syms.Table.Strings.Lookup(bound)
			diag.Errorf(m.reporter, diag.SemaTraitBoundNotSatisfied, at,
				"type %s does not satisfy bound %s required by parameter %s",
				m.tin.Format(args[i], m.syms.Table.Strings), tname, gname)
		}
	}
}

func (m *monomorphizer) funcDecl(sym symbols.SymbolID, sig *symbols.FuncSig) symbols.FuncDecl {
	for _, fn := range m.syms.Funcs {
		if fn.Sym == sym {
			return fn
		}
	}
	return symbols.FuncDecl{Sym: sym, Item: sig.Decl}
}

// mangle builds the specialized name: "id" + [int] -> "id$int".
func (m *monomorphizer) mangle(base string, args []types.TypeID) string {
	out := base
	for _, a := range args {
		out += "$" + m.tin.Format(a, m.syms.Table.Strings)
	}
	return out
}
