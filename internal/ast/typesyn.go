package ast

import (
	"strings"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// RefKind distinguishes plain types from reference types.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefShared
	RefMut
)

// TypeExpr is a syntactic type reference: a (possibly qualified) name with
// optional generic arguments, optionally wrapped in & / &mut. The resolver
// turns it into a types.TypeID.
type TypeExpr struct {
	Ref  RefKind
	Name string // "int", "Point", "module::Name"
	Args []*TypeExpr
	Span source.Span
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "unit"
	}
	var sb strings.Builder
	switch t.Ref {
	case RefShared:
		sb.WriteByte('&')
	case RefMut:
		sb.WriteString("&mut ")
	}
	sb.WriteString(t.Name)
	if len(t.Args) > 0 {
		sb.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}
