package sema

import (
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func ownerFixture(t *testing.T) (*Ownership, types.TypeID) {
	t.Helper()
	tin := types.NewInterner()
	strs := source.NewInterner()
	box := tin.RegisterStruct(strs.Intern("Box"), source.Span{})
	tin.SetStructFields(box, []types.StructField{{Name: strs.Intern("v"), Type: tin.Builtins().Int}})
	return NewOwnership(tin), box
}

func TestMoveOnce(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, false, source.Span{})

	if issue := own.MarkMoved(sym, source.Span{}); issue != IssueNone {
		t.Fatalf("first move: issue %d", issue)
	}
	if issue := own.MarkMoved(sym, source.Span{}); issue != IssueMoved {
		t.Fatalf("second move: issue %d, want IssueMoved", issue)
	}
	if issue := own.CheckRead(sym); issue != IssueMoved {
		t.Fatalf("read after move: issue %d, want IssueMoved", issue)
	}
}

func TestBorrowExclusion(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, true, source.Span{})

	if issue := own.AddBorrow(sym, BorrowShared, source.Span{}); issue != IssueNone {
		t.Fatalf("first shared borrow: issue %d", issue)
	}
	if issue := own.AddBorrow(sym, BorrowShared, source.Span{}); issue != IssueNone {
		t.Fatalf("second shared borrow: issue %d", issue)
	}
	if issue := own.AddBorrow(sym, BorrowMut, source.Span{}); issue != IssueConflictShared {
		t.Fatalf("mut while shared: issue %d, want IssueConflictShared", issue)
	}
}

func TestMutBorrowExcludesEverything(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, true, source.Span{})

	if issue := own.AddBorrow(sym, BorrowMut, source.Span{}); issue != IssueNone {
		t.Fatalf("mut borrow: issue %d", issue)
	}
	if issue := own.AddBorrow(sym, BorrowShared, source.Span{}); issue != IssueConflictMut {
		t.Fatalf("shared while mut: issue %d, want IssueConflictMut", issue)
	}
	if issue := own.AddBorrow(sym, BorrowMut, source.Span{}); issue != IssueConflictMut {
		t.Fatalf("second mut: issue %d, want IssueConflictMut", issue)
	}
}

func TestMutBorrowOfImmutableBinding(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, false, source.Span{})
	if issue := own.AddBorrow(sym, BorrowMut, source.Span{}); issue != IssueImmutable {
		t.Fatalf("mut of immutable: issue %d, want IssueImmutable", issue)
	}
}

func TestBorrowExpiresWithScope(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, true, source.Span{})

	own.Push()
	if issue := own.AddBorrow(sym, BorrowShared, source.Span{}); issue != IssueNone {
		t.Fatalf("shared borrow: issue %d", issue)
	}
	own.Pop()
	if issue := own.AddBorrow(sym, BorrowMut, source.Span{}); issue != IssueNone {
		t.Fatalf("mut after scope exit: issue %d, want none", issue)
	}
}

func TestPopReturnsUnmovedObligations(t *testing.T) {
	own, box := ownerFixture(t)
	kept := symbols.SymbolID(1)
	moved := symbols.SymbolID(2)
	prim := symbols.SymbolID(3)

	own.Push()
	own.Declare(kept, 1, box, false, source.Span{})
	own.Declare(moved, 2, box, false, source.Span{})
	own.Declare(prim, 3, own.tin.Builtins().Int, false, source.Span{})
	own.MarkMoved(moved, source.Span{})

	obs := own.Pop()
	if len(obs) != 1 || obs[0].Sym != kept {
		t.Fatalf("obligations = %v, want only the un-moved box", obs)
	}
}

func TestLiveCollectsAllDepthsInnermostFirst(t *testing.T) {
	own, box := ownerFixture(t)
	outer := symbols.SymbolID(1)
	inner := symbols.SymbolID(2)

	own.Declare(outer, 1, box, false, source.Span{})
	own.Push()
	own.Declare(inner, 2, box, false, source.Span{})

	live := own.Live()
	if len(live) != 2 {
		t.Fatalf("live = %v, want 2 obligations", live)
	}
	if live[0].Sym != inner || live[1].Sym != outer {
		t.Fatalf("order = [%d %d], want innermost first", live[0].Sym, live[1].Sym)
	}
}

func TestBranchMoveMerges(t *testing.T) {
	own, box := ownerFixture(t)
	sym := symbols.SymbolID(1)
	own.Declare(sym, 1, box, false, source.Span{})

	before := own.SnapshotMoved()
	own.MarkMoved(sym, source.Span{}) // then-ветка
	thenMoved := own.SnapshotMoved()

	own.RestoreMoved(before)
	if issue := own.CheckRead(sym); issue != IssueNone {
		t.Fatalf("read in else branch: issue %d", issue)
	}

	own.MergeMoved(thenMoved)
	if issue := own.CheckRead(sym); issue != IssueMoved {
		t.Fatalf("read after merge: issue %d, want IssueMoved", issue)
	}
	if obs := own.Pop(); len(obs) != 0 {
		t.Fatalf("obligations after partial move = %v, want none", obs)
	}
}
