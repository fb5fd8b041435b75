package symbols

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// FuncDecl pairs a resolved function symbol with its AST item and the
// function scope holding its generic parameters.
type FuncDecl struct {
	Sym   SymbolID
	Item  *ast.Item
	Scope ScopeID
}

// Result stores resolver artefacts consumed by later pipeline stages.
type Result struct {
	Table  *Table
	Types  *types.Interner
	Module *ast.Module
	Root   ScopeID

	// Funcs lists every function (top-level and impl methods) in
	// declaration order — the order later phases analyze them in.
	Funcs []FuncDecl

	// Broken marks items whose resolution failed; later phases skip them.
	Broken map[*ast.Item]bool

	resolver *Resolver
}

// ResolveType resolves a syntactic type reference against a scope chain.
// Returns NoTypeID after reporting when resolution fails.
func (res *Result) ResolveType(scope ScopeID, te *ast.TypeExpr) types.TypeID {
	if res == nil || res.resolver == nil {
		return types.NoTypeID
	}
	return res.resolver.ResolveTypeExpr(scope, te)
}

// StructInstance reports the generic origin of an instantiated struct
// type. Non-instantiated types return false.
func (res *Result) StructInstance(id types.TypeID) (InstInfo, bool) {
	if res == nil || res.resolver == nil {
		return InstInfo{}, false
	}
	info, ok := res.resolver.instMeta[id]
	return info, ok
}

// Instantiate specializes a generic struct for concrete arguments. The
// instantiator calls this while rewriting generic function bodies.
func (res *Result) Instantiate(base source.StringID, args []types.TypeID, at source.Span) types.TypeID {
	if res == nil || res.resolver == nil {
		return types.NoTypeID
	}
	return res.resolver.InstantiateStruct(base, args, at)
}

// Resolver builds the symbol table and canonical types for one module.
type Resolver struct {
	Table    *Table
	Types    *types.Interner
	reporter diag.Reporter

	moduleName  string
	structDecls map[source.StringID]structDecl
	instCache   map[instKey]types.TypeID
	instMeta    map[types.TypeID]InstInfo
}

// InstInfo records which generic struct and argument tuple produced an
// instantiated type. Type inference unifies through it.
type InstInfo struct {
	Base source.StringID
	Args []types.TypeID
}

type structDecl struct {
	data  *ast.StructData
	scope ScopeID // module scope the declaration lives in
}

type instKey struct {
	name source.StringID
	args string
}

// NewResolver constructs a resolver over fresh arenas.
func NewResolver(reporter diag.Reporter, typesIn *types.Interner) *Resolver {
	if typesIn == nil {
		typesIn = types.NewInterner()
	}
	return &Resolver{
		Table:       NewTable(Hints{Scopes: 64, Symbols: 256}, nil),
		Types:       typesIn,
		reporter:    reporter,
		structDecls: make(map[source.StringID]structDecl),
		instCache:   make(map[instKey]types.TypeID),
		instMeta:    make(map[types.TypeID]InstInfo),
	}
}

// Resolve processes a module: declares every top-level item in declaration
// order and resolves all signature-level type references. Item-local
// failures mark the item broken without stopping the pass.
func Resolve(m *ast.Module, reporter diag.Reporter, typesIn *types.Interner) *Result {
	r := NewResolver(reporter, typesIn)
	return r.ResolveModule(m)
}

// ResolveModule runs the resolver over one module.
func (r *Resolver) ResolveModule(m *ast.Module) *Result {
	res := &Result{
		Table:    r.Table,
		Types:    r.Types,
		Module:   m,
		Broken:   make(map[*ast.Item]bool),
		resolver: r,
	}
	if m == nil {
		return res
	}
	r.moduleName = m.Name
	root := r.Table.ModuleRoot(m.Span)
	res.Root = root

	for _, item := range m.Items {
		if item == nil {
			continue
		}
		ok := true
		switch data := item.Data.(type) {
		case ast.StructData:
			ok = r.resolveStruct(root, item, data)
		case ast.EnumData:
			ok = r.resolveEnum(root, item, data)
		case ast.TraitData:
			ok = r.resolveTrait(root, item, data)
		case ast.FuncData:
			ok = r.resolveFunc(root, item, data, "", res)
		case ast.ImplData:
			ok = r.resolveImpl(root, item, data, res)
		}
		if !ok {
			res.Broken[item] = true
		}
	}
	return res
}

func (r *Resolver) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.Errorf(r.reporter, code, span, format, args...)
}

func (r *Resolver) resolveStruct(root ScopeID, item *ast.Item, data ast.StructData) bool {
	name := r.Table.Strings.Intern(data.Name)
	typeID := r.Types.RegisterStruct(name, item.Span)
	sym := &Symbol{Name: name, Kind: SymbolType, Span: item.Span, Type: typeID}
	if len(data.Generics) > 0 {
		sym.Flags |= SymbolFlagGeneric
	}
	if _, ok := r.Table.Declare(root, sym); !ok {
		r.errorf(diag.SemaRedefinition, item.Span, "'%s' is already defined in this scope", data.Name)
		return false
	}

	paramScope, _ := r.declareGenerics(root, name, data.Generics)
	if len(data.Generics) > 0 {
		// Поля генерик-структуры резолвятся при инстанцировании.
		r.structDecls[name] = structDecl{data: &data, scope: paramScope}
		return true
	}

	fields := make([]types.StructField, 0, len(data.Fields))
	ok := true
	for _, f := range data.Fields {
		ft := r.ResolveTypeExpr(paramScope, f.Type)
		if ft == types.NoTypeID {
			ok = false
			continue
		}
		fields = append(fields, types.StructField{
			Name: r.Table.Strings.Intern(f.Name),
			Type: ft,
		})
	}
	r.Types.SetStructFields(typeID, fields)
	return ok
}

func (r *Resolver) resolveEnum(root ScopeID, item *ast.Item, data ast.EnumData) bool {
	name := r.Table.Strings.Intern(data.Name)
	typeID := r.Types.RegisterEnum(name, item.Span)
	sym := &Symbol{Name: name, Kind: SymbolType, Span: item.Span, Type: typeID}
	if _, ok := r.Table.Declare(root, sym); !ok {
		r.errorf(diag.SemaRedefinition, item.Span, "'%s' is already defined in this scope", data.Name)
		return false
	}

	variants := make([]types.EnumVariantInfo, 0, len(data.Variants))
	ok := true
	for i, v := range data.Variants {
		payload := make([]types.TypeID, 0, len(v.Payload))
		for _, pt := range v.Payload {
			id := r.ResolveTypeExpr(root, pt)
			if id == types.NoTypeID {
				ok = false
				continue
			}
			payload = append(payload, id)
		}
		variants = append(variants, types.EnumVariantInfo{
			Name:    r.Table.Strings.Intern(v.Name),
			Tag:     int64(i),
			Payload: payload,
			Span:    v.Span,
		})
	}
	r.Types.SetEnumVariants(typeID, variants)
	return ok
}

func (r *Resolver) resolveTrait(root ScopeID, item *ast.Item, data ast.TraitData) bool {
	name := r.Table.Strings.Intern(data.Name)
	methods := make([]types.MethodSig, 0, len(data.Methods))
	ok := true
	for _, m := range data.Methods {
		params := make([]types.TypeID, 0, len(m.Params))
		for _, p := range m.Params {
			id := r.ResolveTypeExpr(root, p.Type)
			if id == types.NoTypeID {
				ok = false
			}
			params = append(params, id)
		}
		result := r.Types.Builtins().Unit
		if m.Result != nil {
			result = r.ResolveTypeExpr(root, m.Result)
			if result == types.NoTypeID {
				ok = false
			}
		}
		methods = append(methods, types.MethodSig{
			Name:       r.Table.Strings.Intern(m.Name),
			Params:     params,
			Result:     result,
			HasDefault: m.Default != nil,
			Span:       m.Span,
		})
	}
	traitID := r.Types.RegisterTrait(types.TraitInfo{Name: name, Decl: item.Span, Methods: methods})
	sym := &Symbol{Name: name, Kind: SymbolTrait, Span: item.Span, Trait: traitID}
	if _, declared := r.Table.Declare(root, sym); !declared {
		r.errorf(diag.SemaRedefinition, item.Span, "'%s' is already defined in this scope", data.Name)
		return false
	}
	return ok
}

// declareGenerics opens a child scope holding one type symbol per generic
// parameter, each bound to a fresh Param placeholder.
func (r *Resolver) declareGenerics(parent ScopeID, owner source.StringID, generics []ast.TypeParam) (ScopeID, []GenericParam) {
	if len(generics) == 0 {
		return parent, nil
	}
	scope := r.Table.Scopes.New(ScopeFunction, parent, source.Span{})
	out := make([]GenericParam, 0, len(generics))
	for _, g := range generics {
		gname := r.Table.Strings.Intern(g.Name)
		bounds := make([]source.StringID, 0, len(g.Bounds))
		for _, b := range g.Bounds {
			bounds = append(bounds, r.Table.Strings.Intern(b))
		}
		placeholder := r.Types.RegisterParam(types.ParamInfo{
			Name:   gname,
			Owner:  owner,
			Bounds: bounds,
			Decl:   g.Span,
		})
		if _, ok := r.Table.Declare(scope, &Symbol{
			Name: gname,
			Kind: SymbolType,
			Span: g.Span,
			Type: placeholder,
		}); !ok {
			r.errorf(diag.SemaRedefinition, g.Span, "generic parameter '%s' is already defined", g.Name)
			continue
		}
		out = append(out, GenericParam{Name: gname, Bounds: bounds, Type: placeholder})
	}
	return scope, out
}

func (r *Resolver) resolveFunc(parent ScopeID, item *ast.Item, data ast.FuncData, qualifier string, res *Result) bool {
	fnName := data.Name
	if qualifier != "" {
		fnName = qualifier + "::" + data.Name
	}
	name := r.Table.Strings.Intern(fnName)
	owner := name
	scope, generics := r.declareGenerics(parent, owner, data.Generics)

	params := make([]ParamSig, 0, len(data.Params))
	ok := true
	for _, p := range data.Params {
		pt := r.ResolveTypeExpr(scope, p.Type)
		if pt == types.NoTypeID {
			ok = false
		}
		params = append(params, ParamSig{
			Name:    r.Table.Strings.Intern(p.Name),
			Type:    pt,
			Mutable: p.Mutable,
			Span:    p.Span,
		})
	}
	result := r.Types.Builtins().Unit
	if data.Result != nil {
		result = r.ResolveTypeExpr(scope, data.Result)
		if result == types.NoTypeID {
			ok = false
		}
	}

	sig := &FuncSig{Generics: generics, Params: params, Result: result, Decl: item}
	sym := &Symbol{Name: name, Kind: SymbolFunction, Span: item.Span, Sig: sig}
	if sig.IsGeneric() {
		sym.Flags |= SymbolFlagGeneric
	}
	symID, declared := r.Table.Declare(parent, sym)
	if !declared {
		r.errorf(diag.SemaRedefinition, item.Span, "'%s' is already defined in this scope", fnName)
		return false
	}

	fnScope := scope
	if fnScope == parent {
		fnScope = r.Table.Scopes.New(ScopeFunction, parent, item.Span)
	}
	res.Funcs = append(res.Funcs, FuncDecl{Sym: symID, Item: item, Scope: fnScope})
	return ok
}

func (r *Resolver) resolveImpl(root ScopeID, item *ast.Item, data ast.ImplData, res *Result) bool {
	target := r.ResolveTypeExpr(root, data.Target)
	if target == types.NoTypeID {
		return false
	}

	traitID := types.NoTraitID
	if data.Trait != "" {
		traitName := r.Table.Strings.Intern(data.Trait)
		id, found := r.Types.FindTrait(traitName)
		if !found {
			r.errorf(diag.SemaUndefinedType, item.Span, "trait '%s' is not defined", data.Trait)
			return false
		}
		traitID = id
	}

	methods := make([]types.MethodSig, 0, len(data.Methods))
	ok := true
	for _, m := range data.Methods {
		fn, isFn := m.Data.(ast.FuncData)
		if !isFn {
			continue
		}
		if !r.resolveFunc(root, m, fn, data.Target.Name, res) {
			res.Broken[m] = true
			ok = false
		}
		methods = append(methods, types.MethodSig{
			Name: r.Table.Strings.Intern(fn.Name),
			Span: m.Span,
		})
	}

	if _, fresh := r.Types.RegisterImpl(types.ImplInfo{
		Trait:   traitID,
		Type:    target,
		Decl:    item.Span,
		Methods: methods,
	}); !fresh {
		prev, _ := r.Types.ImplDecl(traitID, target)
		d := diag.NewError(diag.SemaRedefinition, item.Span,
			"duplicate implementation for this trait/type pair").
			WithNote(prev, "previous implementation here")
		if r.reporter != nil {
			r.reporter.Report(d)
		}
		return false
	}
	if traitID != types.NoTraitID {
		ok = r.checkTraitCoverage(traitID, item, methods) && ok
	}
	return ok
}

// checkTraitCoverage verifies that every required method without a default
// body is provided by the impl.
func (r *Resolver) checkTraitCoverage(traitID types.TraitID, item *ast.Item, provided []types.MethodSig) bool {
	info, found := r.Types.TraitInfo(traitID)
	if !found {
		return true
	}
	ok := true
	for _, need := range info.Methods {
		if need.HasDefault {
			continue
		}
		have := false
		for _, m := range provided {
			if m.Name == need.Name {
				have = true
				break
			}
		}
		if !have {
			methodName, _ := r.Table.Strings.Lookup(need.Name)
			r.errorf(diag.SemaMissingMethod, item.Span,
				"implementation misses required method '%s'", methodName)
			ok = false
		}
	}
	return ok
}
