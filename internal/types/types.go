package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindFloat
	KindChar
	KindString
	KindStruct
	KindEnum
	KindReference
	KindParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindReference:
		return "reference"
	case KindParam:
		return "param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
// Struct/Enum/Param descriptors carry a Payload slot into the interner's
// side tables; two TypeIDs are equal iff they denote the same type after
// full generic substitution.
type Type struct {
	Kind    Kind
	Elem    TypeID // for references
	Mutable bool   // for references: &mut T
	Payload uint32 // side-table slot for struct/enum/param
}

// MakeReference describes &T or &mut T depending on the mutable flag.
func MakeReference(elem TypeID, mutable bool) Type {
	return Type{Kind: KindReference, Elem: elem, Mutable: mutable}
}

// IsPrimitive reports value types that copy freely and never own a resource.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindUnit, KindBool, KindInt, KindFloat, KindChar, KindString:
		return true
	default:
		return false
	}
}

// IsAggregate reports nominal aggregate types (struct or enum).
func (t Type) IsAggregate() bool {
	return t.Kind == KindStruct || t.Kind == KindEnum
}
