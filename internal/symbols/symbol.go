package symbols

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolLet
	SymbolParam
	SymbolType
	SymbolTrait
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolLet:
		return "let"
	case SymbolParam:
		return "param"
	case SymbolType:
		return "type"
	case SymbolTrait:
		return "trait"
	default:
		return "invalid"
	}
}

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	SymbolFlagMutable SymbolFlags = 1 << iota
	SymbolFlagGeneric
)

// GenericParam is one declared generic parameter on a function or struct.
type GenericParam struct {
	Name   source.StringID
	Bounds []source.StringID
	// Type is the interned Param placeholder standing in for this
	// parameter inside the declaration's body.
	Type types.TypeID
}

// ParamSig is one resolved function parameter.
type ParamSig struct {
	Name    source.StringID
	Type    types.TypeID
	Mutable bool
	Span    source.Span
}

// FuncSig is the resolved signature of a function symbol. Decl keeps the
// AST item alive for the instantiator and the code generator.
type FuncSig struct {
	Generics []GenericParam
	Params   []ParamSig
	Result   types.TypeID
	Decl     *ast.Item
}

// IsGeneric reports whether the function still carries free parameters.
func (s *FuncSig) IsGeneric() bool {
	return s != nil && len(s.Generics) > 0
}

// Symbol describes a named entity available in a scope.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Scope ScopeID
	Span  source.Span
	Flags SymbolFlags
	Type  types.TypeID
	Trait types.TraitID
	Sig   *FuncSig
}

// IsMutable reports let/param bindings declared mutable.
func (s *Symbol) IsMutable() bool {
	return s != nil && s.Flags&SymbolFlagMutable != 0
}
