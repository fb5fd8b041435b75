package mir

import (
	"strings"
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/mono"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func intLit(v int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, Data: ast.LiteralData{Kind: ast.LitInt, Int: v}}
}

func boolLit(v bool) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, Data: ast.LiteralData{Kind: ast.LitBool, Bool: v}}
}

func identExpr(name string) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIdent, Data: ast.IdentData{Name: name}}
}

func letStmt(name string, value *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtLet, Data: ast.LetData{Name: name, Value: value}}
}

func retStmt(value *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: value}}
}

func fnItem(name string, result *ast.TypeExpr, stmts ...*ast.Stmt) *ast.Item {
	return &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:   name,
		Result: result,
		Body:   &ast.Block{Stmts: stmts},
	}}
}

func pointStruct() *ast.Item {
	return &ast.Item{Kind: ast.ItemStruct, Data: ast.StructData{
		Name: "Point",
		Fields: []ast.FieldDef{
			{Name: "x", Type: &ast.TypeExpr{Name: "int"}},
			{Name: "y", Type: &ast.TypeExpr{Name: "int"}},
		},
	}}
}

func pointLit(x, y int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprStructLit, Data: ast.StructLitData{
		Name: "Point",
		Fields: []ast.StructLitField{
			{Name: "x", Value: intLit(x)},
			{Name: "y", Value: intLit(y)},
		},
	}}
}

func optionEnum() *ast.Item {
	return &ast.Item{Kind: ast.ItemEnum, Data: ast.EnumData{
		Name: "Option",
		Variants: []ast.VariantDef{
			{Name: "None"},
			{Name: "Some", Payload: []*ast.TypeExpr{{Name: "int"}}},
		},
	}}
}

func lower(t *testing.T, items ...*ast.Item) *Module {
	t.Helper()
	bag := diag.NewBag(64)
	mod := &ast.Module{Name: "main", Items: items}
	rres := symbols.Resolve(mod, diag.BagReporter{Bag: bag}, nil)
	sres := sema.Check(rres, diag.BagReporter{Bag: bag})
	insts := mono.Monomorphize(sres, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors before lowering: %v", bag.Items())
	}
	m, err := LowerModule(sres, insts)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	if err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m
}

func funcByName(t *testing.T, m *Module, name string) *Func {
	t.Helper()
	id, ok := m.FuncByName[name]
	if !ok {
		t.Fatalf("function %q not lowered; have %v", name, m.FuncByName)
	}
	return m.Funcs[id]
}

func countInstrs(f *Func, kind InstrKind) int {
	n := 0
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			if f.Blocks[bi].Instrs[ii].Kind == kind {
				n++
			}
		}
	}
	return n
}

func findTerm(f *Func, kind TermKind) *Terminator {
	for bi := range f.Blocks {
		if f.Blocks[bi].Term.Kind == kind {
			return &f.Blocks[bi].Term
		}
	}
	return nil
}

func TestLowerReturnOfSum(t *testing.T) {
	sum := &ast.Expr{Kind: ast.ExprBinary, Data: ast.BinaryData{
		Op: ast.BinAdd, Left: identExpr("x"), Right: intLit(2),
	}}
	m := lower(t, fnItem("main", &ast.TypeExpr{Name: "int"},
		letStmt("x", intLit(1)),
		retStmt(sum),
	))
	f := funcByName(t, m, "main")

	ret := findTerm(f, TermReturn)
	if ret == nil || !ret.Return.HasValue {
		t.Fatal("expected a value-carrying return terminator")
	}
	if countInstrs(f, InstrRelease) != 0 {
		t.Fatal("int bindings must not produce releases")
	}
	found := false
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind == InstrAssign && ins.Assign.Src.Kind == RValueBinaryOp && ins.Assign.Src.Binary.Op == ast.BinAdd {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected the sum to lower into a binary-op assign")
	}
}

func TestStructBindingReleasedOnFallthrough(t *testing.T) {
	m := lower(t, pointStruct(), fnItem("main", nil,
		letStmt("p", pointLit(1, 2)),
	))
	f := funcByName(t, m, "main")

	if got := countInstrs(f, InstrRelease); got != 1 {
		t.Fatalf("releases = %d, want exactly one for p", got)
	}
	// The release precedes the function's return.
	last := &f.Blocks[len(f.Blocks)-1]
	if last.Term.Kind != TermReturn {
		t.Fatalf("fallthrough block ends with %v, want return", last.Term.Kind)
	}
}

func TestOwningParamReleasedOnFallthrough(t *testing.T) {
	consume := &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:   "consume",
		Params: []ast.Param{{Name: "p", Type: &ast.TypeExpr{Name: "Point"}}},
		Body:   &ast.Block{},
	}}
	m := lower(t, pointStruct(), consume)
	f := funcByName(t, m, "consume")

	// Владеющий параметр живёт до закрывающей скобки: ровно один
	// release на неявном выходе.
	if got := countInstrs(f, InstrRelease); got != 1 {
		t.Fatalf("releases = %d, want exactly one for the owning parameter p", got)
	}
	entry := &f.Blocks[f.Entry]
	if entry.Term.Kind != TermReturn {
		t.Fatalf("fallthrough terminator = %v, want return", entry.Term.Kind)
	}
	if len(entry.Instrs) == 0 || entry.Instrs[len(entry.Instrs)-1].Kind != InstrRelease {
		t.Fatal("the parameter release must directly precede the implicit return")
	}
}

func TestMovedParamNotReleasedOnFallthrough(t *testing.T) {
	consume := &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:   "consume",
		Params: []ast.Param{{Name: "p", Type: &ast.TypeExpr{Name: "Point"}}},
		Body:   &ast.Block{Stmts: []*ast.Stmt{letStmt("q", identExpr("p"))}},
	}}
	m := lower(t, pointStruct(), consume)
	f := funcByName(t, m, "consume")

	// p перемещён в q; гасится только q, двойного destroy нет.
	if got := countInstrs(f, InstrRelease); got != 1 {
		t.Fatalf("releases = %d, want exactly one for q after the move", got)
	}
}

func TestEarlyReturnReleasesBeforeTerminator(t *testing.T) {
	m := lower(t, pointStruct(), fnItem("main", &ast.TypeExpr{Name: "int"},
		letStmt("p", pointLit(1, 2)),
		retStmt(intLit(7)),
	))
	f := funcByName(t, m, "main")

	entry := &f.Blocks[f.Entry]
	if entry.Term.Kind != TermReturn {
		t.Fatalf("entry terminator = %v, want return", entry.Term.Kind)
	}
	if len(entry.Instrs) == 0 || entry.Instrs[len(entry.Instrs)-1].Kind != InstrRelease {
		t.Fatal("the release for p must be the last instruction before the return")
	}
}

func TestDenseIntMatchLowersToSwitchAndPhi(t *testing.T) {
	matchExpr := &ast.Expr{Kind: ast.ExprMatch, Data: ast.MatchData{
		Scrutinee: intLit(2),
		Arms: []ast.MatchArm{
			{Pattern: &ast.Pattern{Kind: ast.PatLiteral, Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitInt, Int: 1}}}, Body: intLit(100)},
			{Pattern: &ast.Pattern{Kind: ast.PatLiteral, Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitInt, Int: 2}}}, Body: intLit(200)},
			{Pattern: &ast.Pattern{Kind: ast.PatWildcard, Data: ast.WildcardData{}}, Body: intLit(0)},
		},
	}}
	m := lower(t, fnItem("main", &ast.TypeExpr{Name: "int"},
		letStmt("r", matchExpr),
		retStmt(identExpr("r")),
	))
	f := funcByName(t, m, "main")

	sw := findTerm(f, TermSwitch)
	if sw == nil {
		t.Fatal("expected a switch terminator")
	}
	if len(sw.Switch.Cases) != 2 {
		t.Fatalf("switch cases = %d, want 2", len(sw.Switch.Cases))
	}
	values := map[int64]bool{}
	for _, c := range sw.Switch.Cases {
		values[c.Value] = true
	}
	if !values[1] || !values[2] {
		t.Fatalf("switch covers %v, want literals 1 and 2", values)
	}

	var phi *PhiInstr
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			if f.Blocks[bi].Instrs[ii].Kind == InstrPhi {
				phi = &f.Blocks[bi].Instrs[ii].Phi
			}
		}
	}
	if phi == nil {
		t.Fatal("expected a phi merging the arm values")
	}
	if len(phi.Incomings) != 3 {
		t.Fatalf("phi incomings = %d, want one per arm", len(phi.Incomings))
	}
}

func TestDenseMatchArmAfterCatchAllGetsNoCase(t *testing.T) {
	matchExpr := &ast.Expr{Kind: ast.ExprMatch, Data: ast.MatchData{
		Scrutinee: intLit(1),
		Arms: []ast.MatchArm{
			{Pattern: &ast.Pattern{Kind: ast.PatWildcard, Data: ast.WildcardData{}}, Body: intLit(0)},
			{Pattern: &ast.Pattern{Kind: ast.PatLiteral, Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitInt, Int: 1}}}, Body: intLit(100)},
		},
	}}
	m := lower(t, fnItem("main", &ast.TypeExpr{Name: "int"},
		letStmt("r", matchExpr),
		retStmt(identExpr("r")),
	))
	f := funcByName(t, m, "main")

	sw := findTerm(f, TermSwitch)
	if sw == nil {
		t.Fatal("expected a switch terminator")
	}
	// Первое совпадение выигрывает: литеральный рукав за catch-all
	// затенён, диспетчеризация не должна вести к нему.
	if len(sw.Switch.Cases) != 0 {
		t.Fatalf("switch cases = %v, want every value in the default", sw.Switch.Cases)
	}
	var phi *PhiInstr
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			if f.Blocks[bi].Instrs[ii].Kind == InstrPhi {
				phi = &f.Blocks[bi].Instrs[ii].Phi
			}
		}
	}
	if phi == nil {
		t.Fatal("expected a phi for the match result")
	}
	if len(phi.Incomings) != 1 {
		t.Fatalf("phi incomings = %d, want only the catch-all arm", len(phi.Incomings))
	}
	in := phi.Incomings[0]
	if in.Value.Kind != OperandConst || in.Value.Const.IntValue != 0 {
		t.Fatalf("match result = %+v, want constant 0 from the catch-all", in.Value)
	}
	if in.From != sw.Switch.Default {
		t.Fatalf("result flows from bb%d, want the default block bb%d", in.From, sw.Switch.Default)
	}
}

func TestEnumMatchBindsPayload(t *testing.T) {
	some := &ast.Expr{Kind: ast.ExprCall, Data: ast.CallData{
		Callee: &ast.Expr{Kind: ast.ExprIdent, Data: ast.IdentData{Qualifier: "Option", Name: "Some"}},
		Args:   []*ast.Expr{intLit(5)},
	}}
	matchExpr := &ast.Expr{Kind: ast.ExprMatch, Data: ast.MatchData{
		Scrutinee: identExpr("o"),
		Arms: []ast.MatchArm{
			{
				Pattern: &ast.Pattern{Kind: ast.PatEnum, Data: ast.EnumPatData{
					Enum: "Option", Variant: "Some",
					Elems: []*ast.Pattern{{Kind: ast.PatBinding, Data: ast.BindingData{Name: "x"}}},
				}},
				Body: identExpr("x"),
			},
			{
				Pattern: &ast.Pattern{Kind: ast.PatEnum, Data: ast.EnumPatData{Enum: "Option", Variant: "None"}},
				Body:    intLit(0),
			},
		},
	}}
	m := lower(t, optionEnum(), fnItem("main", &ast.TypeExpr{Name: "int"},
		letStmt("o", some),
		retStmt(matchExpr),
	))
	f := funcByName(t, m, "main")

	if findTerm(f, TermSwitch) == nil {
		t.Fatal("full-coverage enum match must lower to a switch on the tag")
	}
	hasMakeVariant := false
	hasTagRead := false
	hasPayload := false
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind != InstrAssign {
				continue
			}
			switch ins.Assign.Src.Kind {
			case RValueMakeVariant:
				hasMakeVariant = true
			case RValueEnumTag:
				hasTagRead = true
			case RValueEnumPayload:
				hasPayload = true
			}
		}
	}
	if !hasMakeVariant {
		t.Fatal("Option::Some(5) must lower to make_variant")
	}
	if !hasTagRead {
		t.Fatal("the switch scrutinee must come from a tag read")
	}
	if !hasPayload {
		t.Fatal("binding x must extract the Some payload")
	}
	// The binding for o is still live at the return and must be released.
	if countInstrs(f, InstrRelease) != 1 {
		t.Fatal("expected exactly one release, for the matched enum value")
	}
}

func TestGenericCallTargetsMangledInstance(t *testing.T) {
	id := &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:     "id",
		Generics: []ast.TypeParam{{Name: "T"}},
		Params:   []ast.Param{{Name: "v", Type: &ast.TypeExpr{Name: "T"}}},
		Result:   &ast.TypeExpr{Name: "T"},
		Body: &ast.Block{Stmts: []*ast.Stmt{
			retStmt(identExpr("v")),
		}},
	}}
	call := &ast.Expr{Kind: ast.ExprCall, Data: ast.CallData{
		Callee: identExpr("id"),
		Args:   []*ast.Expr{intLit(41)},
	}}
	m := lower(t, id, fnItem("main", &ast.TypeExpr{Name: "int"},
		retStmt(call),
	))

	inst := funcByName(t, m, "id$int")
	if inst.ParamCount != 1 {
		t.Fatalf("instance param count = %d, want 1", inst.ParamCount)
	}

	f := funcByName(t, m, "main")
	var callee string
	for bi := range f.Blocks {
		for ii := range f.Blocks[bi].Instrs {
			ins := &f.Blocks[bi].Instrs[ii]
			if ins.Kind == InstrCall {
				callee = ins.Call.Callee.Name
			}
		}
	}
	if callee != "id$int" {
		t.Fatalf("call targets %q, want the mangled instance id$int", callee)
	}
}

func TestWhileBreakLowersToLoopShape(t *testing.T) {
	m := lower(t, fnItem("main", nil,
		&ast.Stmt{Kind: ast.StmtWhile, Data: ast.WhileData{
			Cond: boolLit(true),
			Body: &ast.Block{Stmts: []*ast.Stmt{
				{Kind: ast.StmtBreak, Data: ast.BreakData{}},
			}},
		}},
	))
	f := funcByName(t, m, "main")

	header := findTerm(f, TermIf)
	if header == nil {
		t.Fatal("loop header must branch on the condition")
	}
	// The break jumps straight to the exit block.
	body := &f.Blocks[header.If.Then]
	if body.Term.Kind != TermGoto || body.Term.Goto.Target != header.If.Else {
		t.Fatalf("break must jump to the loop exit, got %+v", body.Term)
	}
}

func TestDumpModuleRendersFunc(t *testing.T) {
	bag := diag.NewBag(64)
	mod := &ast.Module{Name: "main", Items: []*ast.Item{
		fnItem("main", &ast.TypeExpr{Name: "int"}, retStmt(intLit(3))),
	}}
	rres := symbols.Resolve(mod, diag.BagReporter{Bag: bag}, nil)
	sres := sema.Check(rres, diag.BagReporter{Bag: bag})
	insts := mono.Monomorphize(sres, diag.BagReporter{Bag: bag})
	m, err := LowerModule(sres, insts)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}

	var sb strings.Builder
	if err := DumpModule(&sb, m, sres.Types, rres.Table.Strings); err != nil {
		t.Fatalf("DumpModule: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "fn main:") {
		t.Fatalf("dump misses the function header:\n%s", out)
	}
	if !strings.Contains(out, "return 3") {
		t.Fatalf("dump misses the return terminator:\n%s", out)
	}
}

func TestValidateRejectsUnterminatedBlock(t *testing.T) {
	f := &Func{
		Name:   "broken",
		Result: types.NoTypeID,
		Blocks: []Block{{ID: 0, Term: Terminator{Kind: TermNone}}},
	}
	m := &Module{Funcs: map[FuncID]*Func{1: f}}
	err := Validate(m)
	if err == nil || !strings.Contains(err.Error(), "unterminated") {
		t.Fatalf("Validate = %v, want an unterminated-block violation", err)
	}
}
