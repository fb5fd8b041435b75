package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// ParamInfo stores metadata for an unresolved generic parameter.
// Bounds lists required trait names; the instantiator checks them against
// registered impls before substituting.
type ParamInfo struct {
	Name   source.StringID
	Owner  source.StringID // declaring function or struct
	Bounds []source.StringID
	Decl   source.Span
}

// RegisterParam allocates a placeholder type for one generic parameter
// occurrence. Distinct declarations get distinct TypeIDs even when the
// parameter names collide across owners.
func (in *Interner) RegisterParam(info ParamInfo) TypeID {
	in.params = append(in.params, ParamInfo{
		Name:   info.Name,
		Owner:  info.Owner,
		Bounds: slices.Clone(info.Bounds),
		Decl:   info.Decl,
	})
	slot, err := safecast.Conv[uint32](len(in.params) - 1)
	if err != nil {
		panic(fmt.Errorf("param info overflow: %w", err))
	}
	return in.internRaw(Type{Kind: KindParam, Payload: slot})
}

// ParamInfo returns metadata for the provided param TypeID.
func (in *Interner) ParamInfo(typeID TypeID) (*ParamInfo, bool) {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindParam {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.params) {
		return nil, false
	}
	return &in.params[tt.Payload], true
}

// ContainsParam reports whether the type still mentions an unsubstituted
// generic parameter. Monomorphized IR must never contain one.
func (in *Interner) ContainsParam(id TypeID) bool {
	return in.containsParam(id, make(map[TypeID]struct{}, 4))
}

func (in *Interner) containsParam(id TypeID, seen map[TypeID]struct{}) bool {
	if _, ok := seen[id]; ok {
		return false
	}
	seen[id] = struct{}{}
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindParam:
		return true
	case KindReference:
		return in.containsParam(tt.Elem, seen)
	case KindStruct:
		if info := in.structInfo(id); info != nil {
			for _, f := range info.Fields {
				if in.containsParam(f.Type, seen) {
					return true
				}
			}
		}
	case KindEnum:
		if info := in.enumInfo(id); info != nil {
			for _, v := range info.Variants {
				for _, p := range v.Payload {
					if in.containsParam(p, seen) {
						return true
					}
				}
			}
		}
	}
	return false
}
