package ast

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
)

// PatternKind enumerates pattern kinds.
type PatternKind uint8

const (
	// PatWildcard matches anything without binding (_).
	PatWildcard PatternKind = iota
	// PatLiteral matches one literal value.
	PatLiteral
	// PatBinding matches anything and binds it to a name.
	PatBinding
	// PatEnum matches one Enum::Variant, binding payload elements.
	PatEnum
	// PatStruct matches a struct, destructuring named fields.
	PatStruct
)

func (k PatternKind) String() string {
	switch k {
	case PatWildcard:
		return "Wildcard"
	case PatLiteral:
		return "Literal"
	case PatBinding:
		return "Binding"
	case PatEnum:
		return "Enum"
	case PatStruct:
		return "Struct"
	default:
		return "Unknown"
	}
}

// Pattern represents a match pattern.
type Pattern struct {
	Kind PatternKind
	Span source.Span
	Data PatternData // Kind-specific payload
}

// PatternData is the interface for pattern-specific data.
type PatternData interface {
	patternData()
}

// WildcardData holds data for PatWildcard.
type WildcardData struct{}

func (WildcardData) patternData() {}

// LiteralPatData holds data for PatLiteral.
type LiteralPatData struct {
	Lit LiteralData
}

func (LiteralPatData) patternData() {}

// BindingData holds data for PatBinding.
type BindingData struct {
	Name string
}

func (BindingData) patternData() {}

// EnumPatData holds data for PatEnum: Enum::Variant(sub-patterns).
type EnumPatData struct {
	Enum    string
	Variant string
	Elems   []*Pattern
}

func (EnumPatData) patternData() {}

// StructPatField is one destructured field inside a struct pattern.
type StructPatField struct {
	Name string
	Pat  *Pattern
	Span source.Span
}

// StructPatData holds data for PatStruct.
type StructPatData struct {
	Name   string
	Fields []StructPatField
}

func (StructPatData) patternData() {}

// IsCatchAll reports patterns that match every value of the scrutinee type.
func (p *Pattern) IsCatchAll() bool {
	if p == nil {
		return false
	}
	return p.Kind == PatWildcard || p.Kind == PatBinding
}
