package match

import (
	"reflect"
	"testing"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

func testEnums(t *testing.T) (*types.Interner, *source.Interner, types.TypeID) {
	t.Helper()
	strs := source.NewInterner()
	tin := types.NewInterner()
	color := tin.RegisterEnum(strs.Intern("Color"), source.Span{})
	tin.SetEnumVariants(color, []types.EnumVariantInfo{
		{Name: strs.Intern("Red"), Tag: 0},
		{Name: strs.Intern("Green"), Tag: 1},
		{Name: strs.Intern("Blue"), Tag: 2},
	})
	return tin, strs, color
}

func wildcardArm(body *ast.Expr) ast.MatchArm {
	return ast.MatchArm{
		Pattern: &ast.Pattern{Kind: ast.PatWildcard, Data: ast.WildcardData{}},
		Body:    body,
	}
}

func boolArm(v bool) ast.MatchArm {
	return ast.MatchArm{
		Pattern: &ast.Pattern{
			Kind: ast.PatLiteral,
			Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitBool, Bool: v}},
		},
	}
}

func variantArm(enum, variant string, elems ...*ast.Pattern) ast.MatchArm {
	return ast.MatchArm{
		Pattern: &ast.Pattern{
			Kind: ast.PatEnum,
			Data: ast.EnumPatData{Enum: enum, Variant: variant, Elems: elems},
		},
	}
}

func TestBuildBoolMissingFalse(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: tin.Builtins().Bool,
		Arms:      []ast.MatchArm{boolArm(true)},
		Stmt:      true,
	})
	if plan.Exhaustive {
		t.Fatal("match over lone true arm reported exhaustive")
	}
	if !reflect.DeepEqual(plan.Missing, []string{"false"}) {
		t.Fatalf("missing = %v, want [false]", plan.Missing)
	}
	if !bag.HasErrors() {
		t.Fatal("expected a non-exhaustive error")
	}
}

func TestBuildEnumMissingVariant(t *testing.T) {
	tin, strs, color := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: color,
		Arms: []ast.MatchArm{
			variantArm("Color", "Red"),
			variantArm("Color", "Green"),
		},
		Stmt: true,
	})
	if plan.Exhaustive {
		t.Fatal("two of three variants reported exhaustive")
	}
	if !reflect.DeepEqual(plan.Missing, []string{"Color::Blue"}) {
		t.Fatalf("missing = %v, want [Color::Blue]", plan.Missing)
	}
}

func TestBuildEnumDenseSwitch(t *testing.T) {
	tin, strs, color := testEnums(t)
	plan := Build(tin, strs, diag.NopReporter{}, Input{
		Scrutinee: color,
		Arms: []ast.MatchArm{
			variantArm("Color", "Red"),
			variantArm("Color", "Green"),
			variantArm("Color", "Blue"),
		},
		Stmt: true,
	})
	if !plan.Exhaustive {
		t.Fatal("all variants covered, want exhaustive")
	}
	if plan.Strategy != DenseSwitch {
		t.Fatalf("strategy = %v, want dense switch", plan.Strategy)
	}
	want := []Case{{Value: 0, Arm: 0}, {Value: 1, Arm: 1}, {Value: 2, Arm: 2}}
	if !reflect.DeepEqual(plan.Cases, want) {
		t.Fatalf("cases = %v, want %v", plan.Cases, want)
	}
	if plan.Default != -1 {
		t.Fatalf("default = %d, want -1", plan.Default)
	}
}

func TestBuildGuardForcesSequential(t *testing.T) {
	tin, strs, color := testEnums(t)
	guard := variantArm("Color", "Red")
	guard.Guard = &ast.Expr{Kind: ast.ExprLiteral, Data: ast.LiteralData{Kind: ast.LitBool, Bool: true}}
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: color,
		Arms: []ast.MatchArm{
			guard,
			variantArm("Color", "Green"),
			variantArm("Color", "Blue"),
		},
		Stmt: true,
	})
	if plan.Strategy != SequentialTest {
		t.Fatalf("strategy = %v, want sequential", plan.Strategy)
	}
	// Red покрыт только под охраной, значит не покрыт вовсе.
	if plan.Exhaustive {
		t.Fatal("guarded arm must not count as coverage")
	}
	if !reflect.DeepEqual(plan.Missing, []string{"Color::Red"}) {
		t.Fatalf("missing = %v, want [Color::Red]", plan.Missing)
	}
}

func TestBuildIntWidensToFloat(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bi := tin.Builtins()
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: bi.Bool,
		Arms:      []ast.MatchArm{boolArm(true), wildcardArm(nil)},
		ArmTypes:  []types.TypeID{bi.Int, bi.Float},
	})
	if plan.Result != bi.Float {
		t.Fatalf("result = %v, want float", plan.Result)
	}
	if bag.HasErrors() {
		t.Fatalf("widening reported errors: %v", bag.Items())
	}
}

func TestBuildArmTypeMismatch(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bi := tin.Builtins()
	bag := diag.NewBag(16)
	Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: bi.Bool,
		Arms:      []ast.MatchArm{boolArm(true), wildcardArm(nil)},
		ArmTypes:  []types.TypeID{bi.Int, bi.String},
	})
	if !bag.HasErrors() {
		t.Fatal("int vs string arms must not unify")
	}
}

func TestBuildUnreachableAfterCatchAll(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: tin.Builtins().Int,
		Arms:      []ast.MatchArm{wildcardArm(nil), boolArm(true)},
		Stmt:      true,
	})
	if !reflect.DeepEqual(plan.Unreachable, []int{1}) {
		t.Fatalf("unreachable = %v, want [1]", plan.Unreachable)
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SemaUnreachableArm && d.Severity == diag.SevWarning {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an unreachable-arm warning")
	}
	if bag.HasErrors() {
		t.Fatal("unreachable arm must stay a warning")
	}
}

func TestBuildDenseCasesStopAtCatchAll(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: tin.Builtins().Int,
		Arms: []ast.MatchArm{
			wildcardArm(nil),
			{Pattern: &ast.Pattern{
				Kind: ast.PatLiteral,
				Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitInt, Int: 1}},
			}},
		},
		Stmt: true,
	})
	if plan.Strategy != DenseSwitch {
		t.Fatalf("strategy = %v, want DenseSwitch", plan.Strategy)
	}
	// Первое совпадение выигрывает: рукав за catch-all не должен
	// получить собственный кейс.
	if len(plan.Cases) != 0 {
		t.Fatalf("cases = %v, want none past the catch-all", plan.Cases)
	}
	if plan.Default != 0 {
		t.Fatalf("default arm = %d, want 0", plan.Default)
	}
}

func TestBuildDenseEnumCasesStopAtCatchAll(t *testing.T) {
	tin, strs, color := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: color,
		Arms:      []ast.MatchArm{wildcardArm(nil), variantArm("Color", "Red")},
		Stmt:      true,
	})
	if plan.Strategy != DenseSwitch {
		t.Fatalf("strategy = %v, want DenseSwitch", plan.Strategy)
	}
	if len(plan.Cases) != 0 {
		t.Fatalf("cases = %v, want none past the catch-all", plan.Cases)
	}
	if plan.Default != 0 {
		t.Fatalf("default arm = %d, want 0", plan.Default)
	}
}

func TestBuildInfiniteTypeNeedsCatchAll(t *testing.T) {
	tin, strs, _ := testEnums(t)
	bag := diag.NewBag(16)
	plan := Build(tin, strs, diag.BagReporter{Bag: bag}, Input{
		Scrutinee: tin.Builtins().Int,
		Arms: []ast.MatchArm{
			{Pattern: &ast.Pattern{
				Kind: ast.PatLiteral,
				Data: ast.LiteralPatData{Lit: ast.LiteralData{Kind: ast.LitInt, Int: 1}},
			}},
		},
		Stmt: true,
	})
	if plan.Exhaustive {
		t.Fatal("int match without catch-all reported exhaustive")
	}
	if !reflect.DeepEqual(plan.Missing, []string{"_"}) {
		t.Fatalf("missing = %v, want [_]", plan.Missing)
	}
}

func TestCheckPatternEnumArity(t *testing.T) {
	strs := source.NewInterner()
	tin := types.NewInterner()
	opt := tin.RegisterEnum(strs.Intern("Option"), source.Span{})
	tin.SetEnumVariants(opt, []types.EnumVariantInfo{
		{Name: strs.Intern("None"), Tag: 0},
		{Name: strs.Intern("Some"), Tag: 1, Payload: []types.TypeID{tin.Builtins().Int}},
	})

	bag := diag.NewBag(16)
	pat := &ast.Pattern{Kind: ast.PatEnum, Data: ast.EnumPatData{Enum: "Option", Variant: "Some"}}
	if CheckPattern(tin, strs, diag.BagReporter{Bag: bag}, pat, opt, nil) {
		t.Fatal("Some without payload binding must be rejected")
	}
	if !bag.HasErrors() {
		t.Fatal("expected an arity error")
	}

	var boundName string
	var boundType types.TypeID
	pat = &ast.Pattern{Kind: ast.PatEnum, Data: ast.EnumPatData{
		Enum: "Option", Variant: "Some",
		Elems: []*ast.Pattern{{Kind: ast.PatBinding, Data: ast.BindingData{Name: "x"}}},
	}}
	ok := CheckPattern(tin, strs, diag.NopReporter{}, pat, opt, func(_ *ast.Pattern, name string, ty types.TypeID) {
		boundName, boundType = name, ty
	})
	if !ok {
		t.Fatal("Some(x) must check")
	}
	if boundName != "x" || boundType != tin.Builtins().Int {
		t.Fatalf("binding = (%q, %v), want (x, int)", boundName, boundType)
	}
}
