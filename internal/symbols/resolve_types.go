package symbols

import (
	"fmt"
	"strings"

	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/diag"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// ResolveTypeExpr turns a syntactic type reference into a canonical TypeID.
// Failures are reported through the resolver's reporter and yield NoTypeID.
func (r *Resolver) ResolveTypeExpr(scope ScopeID, te *ast.TypeExpr) types.TypeID {
	if te == nil {
		return r.Types.Builtins().Unit
	}
	if te.Ref != ast.RefNone {
		inner := r.resolveNamed(scope, te)
		if inner == types.NoTypeID {
			return types.NoTypeID
		}
		return r.Types.Reference(inner, te.Ref == ast.RefMut)
	}
	return r.resolveNamed(scope, te)
}

func (r *Resolver) resolveNamed(scope ScopeID, te *ast.TypeExpr) types.TypeID {
	name := te.Name
	// Квалифицированный путь: module::Name.
	if qual, rest, found := strings.Cut(name, "::"); found {
		if qual != r.moduleName {
			r.errorf(diag.SemaUndefinedType, te.Span, "unknown namespace '%s'", qual)
			return types.NoTypeID
		}
		name = rest
	}

	if prim, ok := r.primitive(name); ok {
		if len(te.Args) > 0 {
			r.errorf(diag.SemaArityMismatch, te.Span,
				"type '%s' takes no type arguments, %d given", name, len(te.Args))
			return types.NoTypeID
		}
		return prim
	}

	nameID := r.Table.Strings.Intern(name)
	symID, found := r.Table.Lookup(scope, nameID)
	if !found {
		r.errorf(diag.SemaUndefinedType, te.Span, "type '%s' is not defined", name)
		return types.NoTypeID
	}
	sym := r.Table.Symbols.Get(symID)
	if sym == nil || sym.Kind != SymbolType {
		r.errorf(diag.SemaUndefinedType, te.Span, "'%s' is not a type", name)
		return types.NoTypeID
	}

	decl, generic := r.structDecls[nameID]
	if !generic {
		if len(te.Args) > 0 {
			r.errorf(diag.SemaArityMismatch, te.Span,
				"type '%s' takes no type arguments, %d given", name, len(te.Args))
			return types.NoTypeID
		}
		return sym.Type
	}

	want := len(decl.data.Generics)
	if len(te.Args) != want {
		r.errorf(diag.SemaArityMismatch, te.Span,
			"type '%s' takes %d type argument(s), %d given", name, want, len(te.Args))
		return types.NoTypeID
	}
	args := make([]types.TypeID, 0, want)
	for _, a := range te.Args {
		id := r.ResolveTypeExpr(scope, a)
		if id == types.NoTypeID {
			return types.NoTypeID
		}
		args = append(args, id)
	}
	return r.InstantiateStruct(nameID, args, te.Span)
}

func (r *Resolver) primitive(name string) (types.TypeID, bool) {
	b := r.Types.Builtins()
	switch name {
	case "int":
		return b.Int, true
	case "float":
		return b.Float, true
	case "bool":
		return b.Bool, true
	case "char":
		return b.Char, true
	case "string":
		return b.String, true
	case "unit":
		return b.Unit, true
	}
	return types.NoTypeID, false
}

// InstantiateStruct produces (and caches) the specialized struct type for
// one concrete type-argument tuple. The specialized name mangles the base
// name with its arguments so the backend sees a unique layout per instance.
func (r *Resolver) InstantiateStruct(name source.StringID, args []types.TypeID, at source.Span) types.TypeID {
	decl, ok := r.structDecls[name]
	if !ok {
		return types.NoTypeID
	}
	key := instKey{name: name, args: typeArgsKey(args)}
	if id, hit := r.instCache[key]; hit {
		return id
	}

	base, _ := r.Table.Strings.Lookup(name)
	mangled := r.Table.Strings.Intern(r.MangleName(base, args))
	inst := r.Types.RegisterStruct(mangled, at)
	// Кэшируем до резолва полей: рекурсивные ссылки попадают сюда же.
	r.instCache[key] = inst
	r.instMeta[inst] = InstInfo{Base: name, Args: append([]types.TypeID(nil), args...)}

	// Synthetic scope mapping each generic name to its concrete argument.
	scope := r.Table.Scopes.New(ScopeFunction, decl.scope, at)
	for i, g := range decl.data.Generics {
		gname := r.Table.Strings.Intern(g.Name)
		sc := r.Table.Scopes.Get(scope)
		sc.NameIndex[gname] = r.Table.Symbols.New(&Symbol{
			Name:  gname,
			Kind:  SymbolType,
			Scope: scope,
			Type:  args[i],
		})
	}

	fields := make([]types.StructField, 0, len(decl.data.Fields))
	for _, f := range decl.data.Fields {
		ft := r.ResolveTypeExpr(scope, f.Type)
		if ft == types.NoTypeID {
			continue
		}
		fields = append(fields, types.StructField{
			Name: r.Table.Strings.Intern(f.Name),
			Type: ft,
		})
	}
	r.Types.SetStructFields(inst, fields)
	return inst
}

func typeArgsKey(args []types.TypeID) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", a)
	}
	return sb.String()
}

// Substitute rewrites a type, replacing Param placeholders per subst.
// References recurse through the element; instantiated generic structs are
// re-instantiated with substituted arguments. Unmapped types pass through.
func (res *Result) Substitute(id types.TypeID, subst map[types.TypeID]types.TypeID) types.TypeID {
	if res == nil || res.resolver == nil || id == types.NoTypeID {
		return id
	}
	if to, ok := subst[id]; ok {
		return to
	}
	tt, ok := res.Types.Lookup(id)
	if !ok {
		return id
	}
	switch tt.Kind {
	case types.KindReference:
		elem := res.Substitute(tt.Elem, subst)
		if elem == tt.Elem {
			return id
		}
		return res.Types.Reference(elem, tt.Mutable)
	case types.KindStruct:
		info, inst := res.StructInstance(id)
		if !inst {
			return id
		}
		args := make([]types.TypeID, len(info.Args))
		changed := false
		for i, a := range info.Args {
			args[i] = res.Substitute(a, subst)
			if args[i] != a {
				changed = true
			}
		}
		if !changed {
			return id
		}
		return res.resolver.InstantiateStruct(info.Base, args, source.Span{})
	default:
		return id
	}
}

// MangleName combines a base name with its concrete type arguments:
// "Box" + [int] -> "Box$int". The instantiator uses the same scheme for
// specialized functions.
func (r *Resolver) MangleName(base string, args []types.TypeID) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, a := range args {
		sb.WriteByte('$')
		sb.WriteString(r.Types.Format(a, r.Table.Strings))
	}
	return sb.String()
}
