package ast

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
)

// ItemKind enumerates top-level item kinds.
type ItemKind uint8

const (
	ItemFunction ItemKind = iota
	ItemStruct
	ItemEnum
	ItemTrait
	ItemImpl
)

func (k ItemKind) String() string {
	switch k {
	case ItemFunction:
		return "Function"
	case ItemStruct:
		return "Struct"
	case ItemEnum:
		return "Enum"
	case ItemTrait:
		return "Trait"
	case ItemImpl:
		return "Impl"
	default:
		return "Unknown"
	}
}

// Item represents a top-level declaration.
type Item struct {
	Kind ItemKind
	Span source.Span
	Data ItemData // Kind-specific payload
}

// ItemData is the interface for item-specific data.
type ItemData interface {
	itemData()
}

// TypeParam declares one generic parameter with its trait bounds.
type TypeParam struct {
	Name   string
	Bounds []string
	Span   source.Span
}

// Param is a function parameter.
type Param struct {
	Name    string
	Type    *TypeExpr
	Mutable bool
	Span    source.Span
}

// FuncData holds data for ItemFunction.
type FuncData struct {
	Name     string
	Generics []TypeParam
	Params   []Param
	Result   *TypeExpr // nil: unit
	Body     *Block
}

func (FuncData) itemData() {}

// FieldDef is one declared struct field.
type FieldDef struct {
	Name string
	Type *TypeExpr
	Span source.Span
}

// StructData holds data for ItemStruct.
type StructData struct {
	Name     string
	Generics []TypeParam
	Fields   []FieldDef
}

func (StructData) itemData() {}

// VariantDef is one declared enum variant, optionally carrying payloads.
type VariantDef struct {
	Name    string
	Payload []*TypeExpr
	Span    source.Span
}

// EnumData holds data for ItemEnum.
type EnumData struct {
	Name     string
	Variants []VariantDef
}

func (EnumData) itemData() {}

// TraitMethod is a required method signature, optionally with a default body.
type TraitMethod struct {
	Name    string
	Params  []Param
	Result  *TypeExpr
	Default *Block // nil when the implementer must provide the body
	Span    source.Span
}

// TraitData holds data for ItemTrait.
type TraitData struct {
	Name    string
	Methods []TraitMethod
}

func (TraitData) itemData() {}

// ImplData holds data for ItemImpl. Trait is empty for inherent impls.
type ImplData struct {
	Trait   string
	Target  *TypeExpr
	Methods []*Item // ItemFunction entries only
}

func (ImplData) itemData() {}
