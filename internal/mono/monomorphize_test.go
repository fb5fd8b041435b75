package mono

import (
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/sema"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
)

func intLit(v int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, Data: ast.LiteralData{Kind: ast.LitInt, Int: v}}
}

func identExpr(name string) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIdent, Data: ast.IdentData{Name: name}}
}

func callExpr(name string, args ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprCall, Data: ast.CallData{Callee: identExpr(name), Args: args}}
}

func returning(value *ast.Expr) *ast.Block {
	return &ast.Block{Stmts: []*ast.Stmt{
		{Kind: ast.StmtReturn, Data: ast.ReturnData{Value: value}},
	}}
}

// genericFn builds fn name<T: bounds...>(v: T) -> T { return <body> }.
func genericFn(name string, body *ast.Block, bounds ...string) *ast.Item {
	return &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name:     name,
		Generics: []ast.TypeParam{{Name: "T", Bounds: bounds}},
		Params:   []ast.Param{{Name: "v", Type: &ast.TypeExpr{Name: "T"}}},
		Result:   &ast.TypeExpr{Name: "T"},
		Body:     body,
	}}
}

func mainFn(stmts ...*ast.Stmt) *ast.Item {
	return &ast.Item{Kind: ast.ItemFunction, Data: ast.FuncData{
		Name: "main",
		Body: &ast.Block{Stmts: stmts},
	}}
}

func letStmt(name string, value *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtLet, Data: ast.LetData{Name: name, Value: value}}
}

func run(t *testing.T, items ...*ast.Item) (*InstantiationMap, *diag.Bag, *sema.Result) {
	t.Helper()
	bag := diag.NewBag(64)
	mod := &ast.Module{Name: "main", Items: items}
	rres := symbols.Resolve(mod, diag.BagReporter{Bag: bag}, nil)
	sres := sema.Check(rres, diag.BagReporter{Bag: bag})
	return Monomorphize(sres, diag.BagReporter{Bag: bag}), bag, sres
}

func TestIdenticalInstantiationsDedup(t *testing.T) {
	id := genericFn("id", returning(identExpr("v")))
	m, bag, _ := run(t, id, mainFn(
		letStmt("a", callExpr("id", intLit(1))),
		letStmt("b", callExpr("id", intLit(2))),
	))
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(m.Order) != 1 {
		t.Fatalf("instances = %d, want one cached specialization", len(m.Order))
	}
	inst := m.Order[0]
	if inst.Name != "id$int" {
		t.Fatalf("mangled name = %q, want id$int", inst.Name)
	}
	if len(inst.UseSites) != 2 {
		t.Fatalf("use sites = %d, want both call sites recorded", len(inst.UseSites))
	}
}

func TestTransitiveInstantiation(t *testing.T) {
	id := genericFn("id", returning(identExpr("v")))
	wrap := genericFn("wrap", returning(callExpr("id", identExpr("v"))))
	m, bag, sres := run(t, id, wrap, mainFn(
		letStmt("a", callExpr("wrap", intLit(7))),
	))
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(m.Order) != 2 {
		t.Fatalf("instances = %d, want wrap$int and id$int", len(m.Order))
	}
	names := map[string]bool{}
	for _, inst := range m.Order {
		names[inst.Name] = true
		if inst.Result != sres.Types.Builtins().Int {
			t.Fatalf("%s result = %v, want int", inst.Name, inst.Result)
		}
	}
	if !names["wrap$int"] || !names["id$int"] {
		t.Fatalf("instances = %v", names)
	}
}

func TestTraitBoundNotSatisfied(t *testing.T) {
	display := &ast.Item{Kind: ast.ItemTrait, Data: ast.TraitData{
		Name: "Display",
		Methods: []ast.TraitMethod{{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: &ast.TypeExpr{Name: "int"}}},
		}},
	}}
	show := genericFn("show", returning(identExpr("v")), "Display")
	_, bag, _ := run(t, display, show, mainFn(
		letStmt("a", callExpr("show", intLit(3))),
	))
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaTraitBoundNotSatisfied {
			found = true
		}
	}
	if !found {
		t.Fatalf("want TraitBoundNotSatisfied, got %v", bag.Items())
	}
}

func TestTraitBoundSatisfiedByImpl(t *testing.T) {
	display := &ast.Item{Kind: ast.ItemTrait, Data: ast.TraitData{
		Name: "Display",
		Methods: []ast.TraitMethod{{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: &ast.TypeExpr{Name: "int"}}},
		}},
	}}
	impl := &ast.Item{Kind: ast.ItemImpl, Data: ast.ImplData{
		Trait:  "Display",
		Target: &ast.TypeExpr{Name: "int"},
		Methods: []*ast.Item{{Kind: ast.ItemFunction, Data: ast.FuncData{
			Name:   "show",
			Params: []ast.Param{{Name: "self", Type: &ast.TypeExpr{Name: "int"}}},
			Body:   &ast.Block{},
		}}},
	}}
	show := genericFn("show2", returning(identExpr("v")), "Display")
	m, bag, _ := run(t, display, impl, show, mainFn(
		letStmt("a", callExpr("show2", intLit(3))),
	))
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if len(m.Order) != 1 || m.Order[0].Name != "show2$int" {
		t.Fatalf("instances = %v", m.Order)
	}
}
