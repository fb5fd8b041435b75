package types

import (
	"fmt"
	"strings"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// Format renders a type for diagnostics: "int", "&mut Point", "Color".
func (in *Interner) Format(id TypeID, strs *source.Interner) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
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
	case KindReference:
		var sb strings.Builder
		sb.WriteByte('&')
		if tt.Mutable {
			sb.WriteString("mut ")
		}
		sb.WriteString(in.Format(tt.Elem, strs))
		return sb.String()
	case KindStruct:
		if info := in.structInfo(id); info != nil {
			return lookupName(strs, info.Name)
		}
	case KindEnum:
		if info := in.enumInfo(id); info != nil {
			return lookupName(strs, info.Name)
		}
	case KindParam:
		if info, ok := in.ParamInfo(id); ok {
			return lookupName(strs, info.Name)
		}
	}
	return fmt.Sprintf("<%s>", tt.Kind)
}

func lookupName(strs *source.Interner, name source.StringID) string {
	if strs == nil {
		return "_"
	}
	if s, ok := strs.Lookup(name); ok && s != "" {
		return s
	}
	return "_"
}
