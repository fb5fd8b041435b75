package mir

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/mono"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// LowerModule converts every analyzed function to MIR: non-generic
// functions as-is, generic templates once per specialized instance.
func LowerModule(sem *sema.Result, insts *mono.InstantiationMap) (*Module, error) {
	out := &Module{
		Funcs:      make(map[FuncID]*Func),
		FuncBySym:  make(map[symbols.SymbolID]FuncID),
		FuncByName: make(map[string]FuncID),
	}
	if sem == nil {
		return out, nil
	}

	nextID := FuncID(1)
	for _, fn := range sem.Symbols.Funcs {
		if sem.Broken[fn.Item] {
			continue
		}
		sym := sem.Symbols.Table.Symbols.Get(fn.Sym)
		if sym == nil || sym.Sig == nil || sym.Sig.IsGeneric() {
			continue
		}
		id := nextID
		nextID++
		fl := newFuncLowerer(out, sem, insts, nil)
		f, err := fl.lowerFunc(id, fn, sem.Symbols.Table.SymbolName(fn.Sym), sym.Sig.Result)
		if err != nil {
			return nil, err
		}
		out.Funcs[id] = f
		out.FuncBySym[fn.Sym] = id
		out.FuncByName[f.Name] = id
	}

	if insts != nil {
		for _, inst := range insts.Order {
			if sem.Broken[inst.Fn.Item] {
				continue
			}
			id := nextID
			nextID++
			fl := newFuncLowerer(out, sem, insts, inst.Subst)
			f, err := fl.lowerFunc(id, inst.Fn, inst.Name, inst.Result)
			if err != nil {
				return nil, err
			}
			out.Funcs[id] = f
			out.FuncByName[f.Name] = id
		}
	}

	return out, nil
}

type loopCtx struct {
	breakTarget    BlockID
	continueTarget BlockID
	// blockDepth marks the scope stack height at loop body entry, so
	// break/continue know which scopes they are jumping out of.
	blockDepth int
}

type funcLowerer struct {
	out   *Module
	sema  *sema.Result
	syms  *symbols.Result
	tin   *types.Interner
	insts *mono.InstantiationMap

	// subst carries the type-argument bindings of the instance being
	// lowered; nil for non-generic functions.
	subst map[types.TypeID]types.TypeID

	f   *Func
	cur BlockID

	symToLocal map[symbols.SymbolID]LocalID
	nextTemp   uint32

	loopStack  []loopCtx
	blockStack []*ast.Block
}

func newFuncLowerer(out *Module, sem *sema.Result, insts *mono.InstantiationMap, subst map[types.TypeID]types.TypeID) *funcLowerer {
	return &funcLowerer{
		out:        out,
		sema:       sem,
		syms:       sem.Symbols,
		tin:        sem.Types,
		insts:      insts,
		subst:      subst,
		symToLocal: make(map[symbols.SymbolID]LocalID),
		nextTemp:   1,
	}
}

func (l *funcLowerer) lowerFunc(id FuncID, fn symbols.FuncDecl, name string, result types.TypeID) (*Func, error) {
	data, ok := fn.Item.Data.(ast.FuncData)
	if !ok {
		return nil, fmt.Errorf("mir: item for %q is not a function", name)
	}

	l.f = &Func{
		ID:     id,
		Sym:    fn.Sym,
		Name:   name,
		Span:   fn.Item.Span,
		Result: l.substType(result),
	}

	// Locals: function parameters first, in declaration order.
	params := l.sema.ParamSyms[fn.Item]
	l.f.ParamCount = len(params)
	for i, psym := range params {
		pname := ""
		if i < len(data.Params) {
			pname = data.Params[i].Name
		}
		pty := types.NoTypeID
		if s := l.syms.Table.Symbols.Get(psym); s != nil {
			pty = l.substType(s.Type)
		}
		span := source.Span{}
		if i < len(data.Params) {
			span = data.Params[i].Span
		}
		l.ensureLocal(psym, pname, pty, span)
	}

	entry := l.newBlock()
	l.f.Entry = entry
	l.cur = entry

	if data.Body != nil {
		if err := l.lowerBlock(data.Body); err != nil {
			return nil, err
		}
	}

	// Implicit fallthrough. Owning parameters live to the closing brace
	// and are released here; early returns already covered them.
	if !l.curBlock().Terminated() {
		if l.isUnitType(l.f.Result) {
			for _, ob := range l.sema.FuncReleases[fn.Item] {
				l.emitRelease(ob)
			}
			l.setTerm(&Terminator{Kind: TermReturn})
		} else {
			l.setTerm(&Terminator{Kind: TermUnreachable})
		}
	}

	for i := range l.f.Blocks {
		if l.f.Blocks[i].Term.Kind == TermNone {
			l.f.Blocks[i].Term.Kind = TermUnreachable
		}
	}

	return l.f, nil
}

func (l *funcLowerer) substType(id types.TypeID) types.TypeID {
	if len(l.subst) == 0 || id == types.NoTypeID {
		return id
	}
	return l.syms.Substitute(id, l.subst)
}

func (l *funcLowerer) exprType(e *ast.Expr) types.TypeID {
	return l.substType(l.sema.ExprTypes[e])
}

func (l *funcLowerer) isUnitType(id types.TypeID) bool {
	return id == types.NoTypeID || id == l.tin.Builtins().Unit
}

func (l *funcLowerer) curBlock() *Block {
	if l.f == nil {
		return nil
	}
	idx := int(l.cur)
	if idx < 0 || idx >= len(l.f.Blocks) {
		return nil
	}
	return &l.f.Blocks[idx]
}

func (l *funcLowerer) newBlock() BlockID {
	raw, err := safecast.Conv[int32](len(l.f.Blocks))
	if err != nil {
		panic(fmt.Errorf("mir: block id overflow: %w", err))
	}
	id := BlockID(raw)
	l.f.Blocks = append(l.f.Blocks, Block{ID: id, Term: Terminator{Kind: TermNone}})
	return id
}

func (l *funcLowerer) startBlock(id BlockID) {
	l.cur = id
}

func (l *funcLowerer) setTerm(t *Terminator) {
	b := l.curBlock()
	if b == nil || b.Terminated() || t == nil {
		return
	}
	b.Term = *t
}

func (l *funcLowerer) emit(ins *Instr) {
	b := l.curBlock()
	if b == nil || b.Terminated() || ins == nil {
		return
	}
	b.Instrs = append(b.Instrs, *ins)
}

func (l *funcLowerer) ensureLocal(sym symbols.SymbolID, name string, ty types.TypeID, span source.Span) LocalID {
	if !sym.IsValid() {
		return NoLocalID
	}
	if existing, ok := l.symToLocal[sym]; ok {
		return existing
	}
	raw, err := safecast.Conv[int32](len(l.f.Locals))
	if err != nil {
		panic(fmt.Errorf("mir: local id overflow: %w", err))
	}
	id := LocalID(raw)
	l.symToLocal[sym] = id
	l.f.Locals = append(l.f.Locals, Local{
		Sym:   sym,
		Type:  ty,
		Flags: l.localFlags(ty),
		Name:  name,
		Span:  span,
	})
	return id
}

func (l *funcLowerer) newTemp(ty types.TypeID, hint string, span source.Span) LocalID {
	raw, err := safecast.Conv[int32](len(l.f.Locals))
	if err != nil {
		panic(fmt.Errorf("mir: local id overflow: %w", err))
	}
	id := LocalID(raw)
	name := fmt.Sprintf("tmp_%s%d", hint, l.nextTemp)
	l.nextTemp++
	l.f.Locals = append(l.f.Locals, Local{
		Sym:   symbols.NoSymbolID,
		Type:  ty,
		Flags: l.localFlags(ty) | LocalFlagTemp,
		Name:  name,
		Span:  span,
	})
	return id
}

func (l *funcLowerer) localFlags(ty types.TypeID) LocalFlags {
	var out LocalFlags
	if ty == types.NoTypeID {
		return out
	}
	if l.tin.IsCopy(ty) {
		out |= LocalFlagCopy
	}
	if l.tin.IsOwning(ty) {
		out |= LocalFlagOwn
	}
	tt, ok := l.tin.Lookup(ty)
	if ok && tt.Kind == types.KindReference {
		if tt.Mutable {
			out |= LocalFlagRefMut
		} else {
			out |= LocalFlagRef
		}
	}
	return out
}

func (l *funcLowerer) placeOperand(place Place, ty types.TypeID, consume bool) Operand {
	kind := OperandCopy
	if consume && !l.tin.IsCopy(ty) {
		kind = OperandMove
	}
	return Operand{Kind: kind, Type: ty, Place: place}
}

func (l *funcLowerer) constUnit() Operand {
	unit := l.tin.Builtins().Unit
	return Operand{Kind: OperandConst, Type: unit, Const: Const{Kind: ConstUnit, Type: unit}}
}

// emitRelease discharges one obligation handed back by the checker.
func (l *funcLowerer) emitRelease(ob sema.Obligation) {
	local, ok := l.symToLocal[ob.Sym]
	if !ok {
		// The binding was never materialized on this path.
		return
	}
	name := ""
	if s, found := l.syms.Table.Strings.Lookup(ob.Name); found {
		name = s
	}
	l.emit(&Instr{
		Kind: InstrRelease,
		Release: ReleaseInstr{
			Place: Place{Local: local},
			Sym:   ob.Sym,
			Name:  name,
			Type:  l.substType(ob.Type),
		},
	})
}
