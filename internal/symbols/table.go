package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// Hints provide optional capacity suggestions for the symbol table arenas.
type Hints struct{ Scopes, Symbols uint }

// Table aggregates symbol-related arenas and shared resources.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	Strings *source.Interner
	root    ScopeID
}

// NewTable builds a fresh table with optional capacity hints.
// If strings is nil, a fresh interner is allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	symCap, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Table{
		Scopes:  NewScopes(scopeCap),
		Symbols: NewSymbols(symCap),
		Strings: strings,
	}
}

// ModuleRoot returns (and creates if needed) the module-level scope.
func (t *Table) ModuleRoot(span source.Span) ScopeID {
	if t.root.IsValid() {
		return t.root
	}
	t.root = t.Scopes.New(ScopeModule, NoScopeID, span)
	return t.root
}

// Declare binds a symbol inside the given scope. The second result is
// false when the name is already taken in that same scope (the caller
// reports Redefinition; shadowing in a child scope is allowed).
func (t *Table) Declare(scope ScopeID, sym *Symbol) (SymbolID, bool) {
	sc := t.Scopes.Get(scope)
	if sc == nil || sym == nil {
		return NoSymbolID, false
	}
	if _, exists := sc.NameIndex[sym.Name]; exists {
		return NoSymbolID, false
	}
	sym.Scope = scope
	id := t.Symbols.New(sym)
	sc.NameIndex[sym.Name] = id
	sc.Symbols = append(sc.Symbols, id)
	return id, true
}

// Lookup walks the scope chain from scope outwards looking for name.
func (t *Table) Lookup(scope ScopeID, name source.StringID) (SymbolID, bool) {
	for scope.IsValid() {
		sc := t.Scopes.Get(scope)
		if sc == nil {
			break
		}
		if id, ok := sc.NameIndex[name]; ok {
			return id, true
		}
		scope = sc.Parent
	}
	return NoSymbolID, false
}

// LookupLocal checks only the given scope, without walking parents.
func (t *Table) LookupLocal(scope ScopeID, name source.StringID) (SymbolID, bool) {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID, false
	}
	id, ok := sc.NameIndex[name]
	return id, ok
}

// SymbolName renders a symbol's name for diagnostics.
func (t *Table) SymbolName(id SymbolID) string {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return "_"
	}
	if s, ok := t.Strings.Lookup(sym.Name); ok && s != "" {
		return s
	}
	return "_"
}
