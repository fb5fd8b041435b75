package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// EnumVariantInfo stores metadata for a single enum variant. Tag values
// follow declaration order; Payload lists the carried types, empty for
// unit variants.
type EnumVariantInfo struct {
	Name    source.StringID
	Tag     int64
	Payload []TypeID
	Span    source.Span
}

// EnumInfo stores metadata for an enum type.
type EnumInfo struct {
	Name     source.StringID
	Decl     source.Span
	Variants []EnumVariantInfo
}

// VariantIndex returns the declaration position of a variant, or -1.
func (ei *EnumInfo) VariantIndex(name source.StringID) int {
	if ei == nil {
		return -1
	}
	for i := range ei.Variants {
		if ei.Variants[i].Name == name {
			return i
		}
	}
	return -1
}

// RegisterEnum allocates a nominal enum type slot and returns its TypeID.
func (in *Interner) RegisterEnum(name source.StringID, decl source.Span) TypeID {
	slot := in.appendEnumInfo(EnumInfo{Name: name, Decl: decl})
	return in.internRaw(Type{Kind: KindEnum, Payload: slot})
}

// SetEnumVariants stores the resolved variants for the enum type.
func (in *Interner) SetEnumVariants(typeID TypeID, variants []EnumVariantInfo) {
	info := in.enumInfo(typeID)
	if info == nil {
		return
	}
	info.Variants = cloneEnumVariants(variants)
}

// EnumInfo returns metadata for the provided enum TypeID.
func (in *Interner) EnumInfo(typeID TypeID) (*EnumInfo, bool) {
	info := in.enumInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

func (in *Interner) enumInfo(typeID TypeID) *EnumInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindEnum {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return nil
	}
	return &in.enums[tt.Payload]
}

func (in *Interner) appendEnumInfo(info EnumInfo) uint32 {
	in.enums = append(in.enums, EnumInfo{
		Name:     info.Name,
		Decl:     info.Decl,
		Variants: cloneEnumVariants(info.Variants),
	})
	slot, err := safecast.Conv[uint32](len(in.enums) - 1)
	if err != nil {
		panic(fmt.Errorf("enum info overflow: %w", err))
	}
	return slot
}

func cloneEnumVariants(variants []EnumVariantInfo) []EnumVariantInfo {
	if len(variants) == 0 {
		return nil
	}
	return slices.Clone(variants)
}
