package sema

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// BorrowKind differentiates shared vs mutable borrows.
type BorrowKind uint8

const (
	BorrowShared BorrowKind = iota
	BorrowMut
)

func (k BorrowKind) String() string {
	if k == BorrowMut {
		return "mutable"
	}
	return "shared"
}

// Obligation is a pending automatic release owed by a scope for a live
// owning value. The code generator emits one Release per obligation handed
// back at scope exit.
type Obligation struct {
	Sym   symbols.SymbolID
	Name  source.StringID
	Type  types.TypeID
	Depth int
	Span  source.Span
}

// Issue enumerates reasons an ownership action is rejected. The checker
// turns issues into diagnostics; the tracker itself never reports.
type Issue uint8

const (
	IssueNone Issue = iota
	// IssueMoved: the binding's value was already moved out.
	IssueMoved
	// IssueConflictShared: a shared borrow blocks the mutable borrow.
	IssueConflictShared
	// IssueConflictMut: an active mutable borrow blocks any other borrow.
	IssueConflictMut
	// IssueImmutable: &mut of a binding not declared mutable.
	IssueImmutable
)

type borrowEntry struct {
	Kind  BorrowKind
	Depth int
	Span  source.Span
}

type ownRecord struct {
	name    source.StringID
	typ     types.TypeID
	mutable bool
	depth   int
	movedAt source.Span
	moved   bool
	borrows []borrowEntry
}

type ownScope struct {
	depth       int
	declared    []symbols.SymbolID // declaration order, obligations follow it
	obligations map[symbols.SymbolID]Obligation
}

// Ownership tracks per-binding move state, active borrows and destroy
// obligations across a stack of lexical scopes. One tracker serves one
// function body.
type Ownership struct {
	tin     *types.Interner
	scopes  []*ownScope
	records map[symbols.SymbolID]*ownRecord
}

// NewOwnership builds a tracker positioned at the function's root scope.
func NewOwnership(tin *types.Interner) *Ownership {
	o := &Ownership{
		tin:     tin,
		records: make(map[symbols.SymbolID]*ownRecord),
	}
	o.Push()
	return o
}

// Depth reports the current scope depth, 0 for the function root.
func (o *Ownership) Depth() int {
	return len(o.scopes) - 1
}

// Push enters a nested lexical scope.
func (o *Ownership) Push() {
	o.scopes = append(o.scopes, &ownScope{
		depth:       len(o.scopes),
		obligations: make(map[symbols.SymbolID]Obligation),
	})
}

// Pop leaves the current scope: expires its borrows and returns the
// obligations of bindings that were never moved, in declaration order.
// Этот список — контракт между проверкой владения и кодогенератором.
func (o *Ownership) Pop() []Obligation {
	if len(o.scopes) == 0 {
		return nil
	}
	sc := o.scopes[len(o.scopes)-1]
	o.scopes = o.scopes[:len(o.scopes)-1]

	for _, rec := range o.records {
		n := 0
		for _, b := range rec.borrows {
			if b.Depth < sc.depth {
				rec.borrows[n] = b
				n++
			}
		}
		rec.borrows = rec.borrows[:n]
	}

	var out []Obligation
	for _, sym := range sc.declared {
		ob, live := sc.obligations[sym]
		if !live {
			continue
		}
		if rec := o.records[sym]; rec != nil && rec.moved {
			continue
		}
		out = append(out, ob)
	}
	return out
}

// Live returns every obligation still pending in the whole scope stack,
// innermost scope first, declaration order inside each. Early returns
// release exactly this list.
func (o *Ownership) Live() []Obligation {
	var out []Obligation
	for i := len(o.scopes) - 1; i >= 0; i-- {
		sc := o.scopes[i]
		for _, sym := range sc.declared {
			ob, live := sc.obligations[sym]
			if !live {
				continue
			}
			if rec := o.records[sym]; rec != nil && rec.moved {
				continue
			}
			out = append(out, ob)
		}
	}
	return out
}

// Declare registers a binding in the current scope. Owning types record a
// destroy obligation; copy types never do.
func (o *Ownership) Declare(sym symbols.SymbolID, name source.StringID, ty types.TypeID, mutable bool, sp source.Span) {
	if len(o.scopes) == 0 || !sym.IsValid() {
		return
	}
	sc := o.scopes[len(o.scopes)-1]
	o.records[sym] = &ownRecord{
		name:    name,
		typ:     ty,
		mutable: mutable,
		depth:   sc.depth,
	}
	sc.declared = append(sc.declared, sym)
	if o.tin != nil && o.tin.IsOwning(ty) {
		sc.obligations[sym] = Obligation{
			Sym:   sym,
			Name:  name,
			Type:  ty,
			Depth: sc.depth,
			Span:  sp,
		}
	}
}

// MarkMoved transfers the binding's value out. Clears the obligation (the
// destination owns the resource now); moved is monotonic until the scope
// ends. Copy types pass through untouched.
func (o *Ownership) MarkMoved(sym symbols.SymbolID, sp source.Span) Issue {
	rec := o.records[sym]
	if rec == nil {
		return IssueNone
	}
	if o.tin != nil && o.tin.IsCopy(rec.typ) {
		return IssueNone
	}
	if rec.moved {
		return IssueMoved
	}
	if issue := o.borrowBlock(rec, BorrowMut); issue != IssueNone {
		return issue
	}
	rec.moved = true
	rec.movedAt = sp
	return IssueNone
}

// AddBorrow registers &x / &mut x against the binding, scoped to the
// current depth. Reader/writer exclusion: one writer or any readers.
func (o *Ownership) AddBorrow(sym symbols.SymbolID, kind BorrowKind, sp source.Span) Issue {
	rec := o.records[sym]
	if rec == nil {
		return IssueNone
	}
	if rec.moved {
		return IssueMoved
	}
	if kind == BorrowMut && !rec.mutable {
		return IssueImmutable
	}
	if issue := o.borrowBlock(rec, kind); issue != IssueNone {
		return issue
	}
	rec.borrows = append(rec.borrows, borrowEntry{Kind: kind, Depth: o.Depth(), Span: sp})
	return IssueNone
}

func (o *Ownership) borrowBlock(rec *ownRecord, kind BorrowKind) Issue {
	for _, b := range rec.borrows {
		if b.Kind == BorrowMut {
			return IssueConflictMut
		}
		if kind == BorrowMut {
			return IssueConflictShared
		}
	}
	return IssueNone
}

// CheckRead rejects reads of moved bindings. A plain read borrows nothing.
func (o *Ownership) CheckRead(sym symbols.SymbolID) Issue {
	rec := o.records[sym]
	if rec == nil {
		return IssueNone
	}
	if rec.moved {
		return IssueMoved
	}
	return IssueNone
}

// MovedAt returns where the binding was moved, for diagnostics notes.
func (o *Ownership) MovedAt(sym symbols.SymbolID) (source.Span, bool) {
	rec := o.records[sym]
	if rec == nil || !rec.moved {
		return source.Span{}, false
	}
	return rec.movedAt, true
}

// SnapshotMoved captures the moved set before a branch.
func (o *Ownership) SnapshotMoved() map[symbols.SymbolID]source.Span {
	out := make(map[symbols.SymbolID]source.Span)
	for sym, rec := range o.records {
		if rec.moved {
			out[sym] = rec.movedAt
		}
	}
	return out
}

// RestoreMoved resets the moved set to a snapshot before checking the
// other branch.
func (o *Ownership) RestoreMoved(snapshot map[symbols.SymbolID]source.Span) {
	for sym, rec := range o.records {
		if at, moved := snapshot[sym]; moved {
			rec.moved = true
			rec.movedAt = at
			continue
		}
		rec.moved = false
	}
}

// MergeMoved folds a branch's moved set back in: a value moved on any
// path counts as moved afterwards, so no release is emitted for it and
// later reads are rejected conservatively.
func (o *Ownership) MergeMoved(branch map[symbols.SymbolID]source.Span) {
	for sym, at := range branch {
		rec := o.records[sym]
		if rec == nil || rec.moved {
			continue
		}
		rec.moved = true
		rec.movedAt = at
	}
}
