package match

import (
	"fmt"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Input carries everything Build needs. Arm bodies are typed by the caller
// (bindings live in the caller's scopes), so only the result types arrive
// here; patterns and guards are inspected structurally.
type Input struct {
	Scrutinee types.TypeID
	Arms      []ast.MatchArm

	// ArmTypes holds the type of each arm body, index-aligned with Arms.
	// Ignored when Stmt is set.
	ArmTypes []types.TypeID

	// Stmt marks statement position: arms keep their own types and no
	// unified result is produced.
	Stmt bool

	Span source.Span
}

// Bind receives one binding pattern together with the type it captures.
type Bind func(pat *ast.Pattern, name string, ty types.TypeID)

// CheckPattern validates a pattern against the scrutinee type and reports
// every binding it introduces. The caller declares the bindings in the arm
// scope before typing the arm body. Returns false when the pattern cannot
// match values of the given type.
func CheckPattern(tin *types.Interner, strs *source.Interner, r diag.Reporter, pat *ast.Pattern, scrut types.TypeID, bind Bind) bool {
	if pat == nil {
		return false
	}
	switch pat.Kind {
	case ast.PatWildcard:
		return true
	case ast.PatBinding:
		data := pat.Data.(ast.BindingData)
		if bind != nil {
			bind(pat, data.Name, scrut)
		}
		return true
	case ast.PatLiteral:
		return checkLiteralPattern(tin, strs, r, pat, scrut)
	case ast.PatEnum:
		return checkEnumPattern(tin, strs, r, pat, scrut, bind)
	case ast.PatStruct:
		return checkStructPattern(tin, strs, r, pat, scrut, bind)
	default:
		return false
	}
}

func checkLiteralPattern(tin *types.Interner, strs *source.Interner, r diag.Reporter, pat *ast.Pattern, scrut types.TypeID) bool {
	data := pat.Data.(ast.LiteralPatData)
	bi := tin.Builtins()
	want := bi.Invalid
	switch data.Lit.Kind {
	case ast.LitInt:
		want = bi.Int
	case ast.LitFloat:
		want = bi.Float
	case ast.LitBool:
		want = bi.Bool
	case ast.LitChar:
		want = bi.Char
	case ast.LitString:
		want = bi.String
	case ast.LitUnit:
		want = bi.Unit
	}
	if want == scrut {
		return true
	}
	// Целочисленный литерал расширяется до float по месту.
	if data.Lit.Kind == ast.LitInt && scrut == bi.Float {
		return true
	}
	diag.Errorf(r, diag.SemaTypeMismatch, pat.Span,
		"pattern of type %s cannot match value of type %s",
		tin.Format(want, strs), tin.Format(scrut, strs))
	return false
}

func checkEnumPattern(tin *types.Interner, strs *source.Interner, r diag.Reporter, pat *ast.Pattern, scrut types.TypeID, bind Bind) bool {
	data := pat.Data.(ast.EnumPatData)
	info, ok := tin.EnumInfo(scrut)
	if !ok {
		diag.Errorf(r, diag.SemaTypeMismatch, pat.Span,
			"enum pattern %s::%s cannot match value of type %s",
			data.Enum, data.Variant, tin.Format(scrut, strs))
		return false
	}
	if data.Enum != "" {
		if name, _ := strs.Lookup(info.Name); name != data.Enum {
			diag.Errorf(r, diag.SemaTypeMismatch, pat.Span,
				"pattern names enum %s, scrutinee has type %s", data.Enum, name)
			return false
		}
	}
	vi := info.VariantIndex(strs.Intern(data.Variant))
	if vi < 0 {
		enumName, _ := strs.Lookup(info.Name)
		diag.Errorf(r, diag.SemaUndefinedSymbol, pat.Span,
			"enum %s has no variant %s", enumName, data.Variant)
		return false
	}
	variant := info.Variants[vi]
	if len(data.Elems) != len(variant.Payload) {
		diag.Errorf(r, diag.SemaArityMismatch, pat.Span,
			"variant %s carries %d value(s), pattern binds %d",
			data.Variant, len(variant.Payload), len(data.Elems))
		return false
	}
	ok = true
	for i, elem := range data.Elems {
		if !CheckPattern(tin, strs, r, elem, variant.Payload[i], bind) {
			ok = false
		}
	}
	return ok
}

func checkStructPattern(tin *types.Interner, strs *source.Interner, r diag.Reporter, pat *ast.Pattern, scrut types.TypeID, bind Bind) bool {
	data := pat.Data.(ast.StructPatData)
	info, ok := tin.StructInfo(scrut)
	if !ok {
		diag.Errorf(r, diag.SemaTypeMismatch, pat.Span,
			"struct pattern %s cannot match value of type %s",
			data.Name, tin.Format(scrut, strs))
		return false
	}
	ok = true
	for _, field := range data.Fields {
		fi := info.FieldIndex(strs.Intern(field.Name))
		if fi < 0 {
			structName, _ := strs.Lookup(info.Name)
			diag.Errorf(r, diag.SemaUndefinedField, field.Span,
				"struct %s has no field %s", structName, field.Name)
			ok = false
			continue
		}
		if !CheckPattern(tin, strs, r, field.Pat, info.Fields[fi].Type, bind) {
			ok = false
		}
	}
	return ok
}

// Build compiles a match against an already-checked set of patterns:
// exhaustiveness, shadowed arms, result unification, lowering strategy.
// Diagnostics go through r; the returned plan is always usable by the
// code generator even when errors were reported.
func Build(tin *types.Interner, strs *source.Interner, r diag.Reporter, in Input) *Plan {
	b := &builder{tin: tin, strs: strs, r: r, in: in}
	plan := &Plan{Default: -1, Result: types.NoTypeID, Span: in.Span}
	b.plan = plan

	b.checkReachability()
	b.checkExhaustiveness()
	if !in.Stmt {
		plan.Result = b.unifyArms()
	}
	b.chooseStrategy()
	return plan
}

type builder struct {
	tin  *types.Interner
	strs *source.Interner
	r    diag.Reporter
	in   Input
	plan *Plan
}

// catchAllIndex returns the first arm whose pattern matches everything
// unconditionally, or -1. Guarded arms never count: a guard can fail.
func (b *builder) catchAllIndex() int {
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		if arm.Guard == nil && arm.Pattern.IsCatchAll() {
			return i
		}
	}
	return -1
}

func (b *builder) checkReachability() {
	ca := b.catchAllIndex()
	if ca < 0 || ca == len(b.in.Arms)-1 {
		return
	}
	for i := ca + 1; i < len(b.in.Arms); i++ {
		arm := &b.in.Arms[i]
		b.plan.Unreachable = append(b.plan.Unreachable, i)
		diag.Warnf(b.r, diag.SemaUnreachableArm, arm.Span,
			"arm is unreachable: a preceding arm matches every value")
	}
}

func (b *builder) checkExhaustiveness() {
	if b.catchAllIndex() >= 0 {
		b.plan.Exhaustive = true
		return
	}
	tt, ok := b.tin.Lookup(b.in.Scrutinee)
	if !ok {
		return
	}
	var missing []string
	switch tt.Kind {
	case types.KindBool:
		missing = b.missingBools()
	case types.KindEnum:
		missing = b.missingVariants()
	case types.KindUnit:
		if b.coversUnit() {
			b.plan.Exhaustive = true
			return
		}
		missing = []string{"()"}
	default:
		// Бесконечные типы без catch-all не покрыть перечислением.
		missing = []string{"_"}
	}
	if len(missing) == 0 {
		b.plan.Exhaustive = true
		return
	}
	b.plan.Missing = missing
	d := diag.NewError(diag.SemaNonExhaustiveMatch, b.in.Span,
		fmt.Sprintf("match on %s is not exhaustive", b.tin.Format(b.in.Scrutinee, b.strs)))
	b.report(d.WithMissing(missing))
}

func (b *builder) report(d diag.Diagnostic) {
	if b.r == nil {
		return
	}
	b.r.Report(d)
}

func (b *builder) missingBools() []string {
	haveTrue, haveFalse := false, false
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		if arm.Guard != nil {
			continue
		}
		lit, ok := boolPattern(arm.Pattern)
		if !ok {
			continue
		}
		if lit {
			haveTrue = true
		} else {
			haveFalse = true
		}
	}
	var missing []string
	if !haveTrue {
		missing = append(missing, "true")
	}
	if !haveFalse {
		missing = append(missing, "false")
	}
	return missing
}

func (b *builder) missingVariants() []string {
	info, ok := b.tin.EnumInfo(b.in.Scrutinee)
	if !ok {
		return nil
	}
	covered := make([]bool, len(info.Variants))
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		if arm.Guard != nil {
			continue
		}
		vi, full := b.variantCoverage(arm.Pattern, info)
		if vi >= 0 && full {
			covered[vi] = true
		}
	}
	enumName, _ := b.strs.Lookup(info.Name)
	var missing []string
	for i, c := range covered {
		if c {
			continue
		}
		vname, _ := b.strs.Lookup(info.Variants[i].Name)
		missing = append(missing, enumName+"::"+vname)
	}
	return missing
}

// variantCoverage returns the variant index an enum pattern targets and
// whether it covers the whole variant (every payload element is a
// catch-all). Non-enum patterns return (-1, false).
func (b *builder) variantCoverage(pat *ast.Pattern, info *types.EnumInfo) (int, bool) {
	if pat == nil || pat.Kind != ast.PatEnum {
		return -1, false
	}
	data := pat.Data.(ast.EnumPatData)
	vi := info.VariantIndex(b.strs.Intern(data.Variant))
	if vi < 0 {
		return -1, false
	}
	for _, elem := range data.Elems {
		if !elem.IsCatchAll() {
			return vi, false
		}
	}
	return vi, true
}

func (b *builder) coversUnit() bool {
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		if arm.Guard != nil || arm.Pattern == nil || arm.Pattern.Kind != ast.PatLiteral {
			continue
		}
		if arm.Pattern.Data.(ast.LiteralPatData).Lit.Kind == ast.LitUnit {
			return true
		}
	}
	return false
}

// unifyArms folds arm body types into one result type. Int widens to
// float; any other divergence is a type error, and the first seen type
// stands so downstream phases keep going.
func (b *builder) unifyArms() types.TypeID {
	bi := b.tin.Builtins()
	result := types.NoTypeID
	for i := range b.in.Arms {
		if i >= len(b.in.ArmTypes) {
			break
		}
		at := b.in.ArmTypes[i]
		if at == types.NoTypeID {
			continue
		}
		switch {
		case result == types.NoTypeID:
			result = at
		case result == at:
		case result == bi.Int && at == bi.Float:
			result = bi.Float
		case result == bi.Float && at == bi.Int:
		default:
			diag.Errorf(b.r, diag.SemaTypeMismatch, b.in.Arms[i].Span,
				"arm has type %s, previous arms have type %s",
				b.tin.Format(at, b.strs), b.tin.Format(result, b.strs))
		}
	}
	return result
}

func (b *builder) chooseStrategy() {
	b.plan.Strategy = SequentialTest
	tt, ok := b.tin.Lookup(b.in.Scrutinee)
	if !ok {
		return
	}
	switch tt.Kind {
	case types.KindBool, types.KindInt:
		b.tryDenseDiscrete()
	case types.KindEnum:
		b.tryDenseEnum()
	}
}

// tryDenseDiscrete switches over bool/int literal arms: every arm must be
// an unguarded literal or catch-all, duplicates keep the earlier arm.
func (b *builder) tryDenseDiscrete() {
	var cases []Case
	def := -1
	seen := make(map[int64]bool)
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		// Всё после catch-all затенено; кейсы на такие рукава нарушили
		// бы порядок "первое совпадение выигрывает".
		if def >= 0 {
			continue
		}
		if arm.Guard != nil {
			return
		}
		if arm.Pattern.IsCatchAll() {
			def = i
			continue
		}
		if arm.Pattern.Kind != ast.PatLiteral {
			return
		}
		lit := arm.Pattern.Data.(ast.LiteralPatData).Lit
		var val int64
		switch lit.Kind {
		case ast.LitInt:
			val = lit.Int
		case ast.LitBool:
			if lit.Bool {
				val = 1
			}
		default:
			return
		}
		if seen[val] {
			continue
		}
		seen[val] = true
		cases = append(cases, Case{Value: val, Arm: i})
	}
	b.plan.Strategy = DenseSwitch
	b.plan.Cases = cases
	b.plan.Default = def
}

// tryDenseEnum switches over the variant tag when every arm tests a bare
// variant (payload fully caught) and the enum is small enough.
func (b *builder) tryDenseEnum() {
	info, ok := b.tin.EnumInfo(b.in.Scrutinee)
	if !ok || len(info.Variants) > EnumVariantLimit {
		return
	}
	var cases []Case
	def := -1
	seen := make(map[int64]bool)
	for i := range b.in.Arms {
		arm := &b.in.Arms[i]
		// Затенённые catch-all'ом рукава в диспетчеризацию не попадают.
		if def >= 0 {
			continue
		}
		if arm.Guard != nil {
			return
		}
		if arm.Pattern.IsCatchAll() {
			def = i
			continue
		}
		vi, full := b.variantCoverage(arm.Pattern, info)
		if vi < 0 || !full {
			return
		}
		tag := info.Variants[vi].Tag
		if seen[tag] {
			continue
		}
		seen[tag] = true
		cases = append(cases, Case{Value: tag, Arm: i})
	}
	b.plan.Strategy = DenseSwitch
	b.plan.Cases = cases
	b.plan.Default = def
}

func boolPattern(pat *ast.Pattern) (value, ok bool) {
	if pat == nil || pat.Kind != ast.PatLiteral {
		return false, false
	}
	lit := pat.Data.(ast.LiteralPatData).Lit
	if lit.Kind != ast.LitBool {
		return false, false
	}
	return lit.Bool, true
}
