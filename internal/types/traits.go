package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"github.com/mubtakir/bayan-sub000/internal/source"
)

// TraitID identifies a registered trait.
type TraitID uint32

// NoTraitID marks the absence of a trait reference.
const NoTraitID TraitID = 0

// ImplID identifies a registered implementation.
type ImplID uint32

// NoImplID marks the absence of an impl reference.
const NoImplID ImplID = 0

// MethodSig is one required (or provided) method of a trait.
type MethodSig struct {
	Name       source.StringID
	Params     []TypeID
	Result     TypeID
	HasDefault bool
	Span       source.Span
}

// TraitInfo is a named set of required method signatures.
type TraitInfo struct {
	Name    source.StringID
	Decl    source.Span
	Methods []MethodSig
}

// ImplInfo records that a type satisfies a trait, or provides inherent
// methods when Trait is NoTraitID. At most one impl may exist per
// (trait, type) pair.
type ImplInfo struct {
	Trait   TraitID
	Type    TypeID
	Decl    source.Span
	Methods []MethodSig
}

type implKey struct {
	Trait TraitID
	Type  TypeID
}

// RegisterTrait records a trait declaration and returns its ID.
func (in *Interner) RegisterTrait(info TraitInfo) TraitID {
	in.traits = append(in.traits, TraitInfo{
		Name:    info.Name,
		Decl:    info.Decl,
		Methods: slices.Clone(info.Methods),
	})
	slot, err := safecast.Conv[uint32](len(in.traits) - 1)
	if err != nil {
		panic(fmt.Errorf("trait info overflow: %w", err))
	}
	return TraitID(slot)
}

// TraitInfo returns metadata for the provided TraitID.
func (in *Interner) TraitInfo(id TraitID) (*TraitInfo, bool) {
	if id == NoTraitID || int(id) >= len(in.traits) {
		return nil, false
	}
	return &in.traits[id], true
}

// FindTrait looks a trait up by name.
func (in *Interner) FindTrait(name source.StringID) (TraitID, bool) {
	for i := 1; i < len(in.traits); i++ {
		if in.traits[i].Name == name {
			return TraitID(i), true
		}
	}
	return NoTraitID, false
}

// RegisterImpl records an implementation. The second result is false when
// an impl for the same (trait, type) pair already exists; the duplicate is
// not stored.
func (in *Interner) RegisterImpl(info ImplInfo) (ImplID, bool) {
	key := implKey{Trait: info.Trait, Type: info.Type}
	if prev, ok := in.implKeys[key]; ok {
		return prev, false
	}
	in.impls = append(in.impls, ImplInfo{
		Trait:   info.Trait,
		Type:    info.Type,
		Decl:    info.Decl,
		Methods: slices.Clone(info.Methods),
	})
	slot, err := safecast.Conv[uint32](len(in.impls) - 1)
	if err != nil {
		panic(fmt.Errorf("impl info overflow: %w", err))
	}
	id := ImplID(slot)
	in.implKeys[key] = id
	return id, true
}

// ImplInfo returns metadata for the provided ImplID.
func (in *Interner) ImplInfo(id ImplID) (*ImplInfo, bool) {
	if id == NoImplID || int(id) >= len(in.impls) {
		return nil, false
	}
	return &in.impls[id], true
}

// HasImpl reports whether the (trait, type) pair is implemented.
func (in *Interner) HasImpl(trait TraitID, typ TypeID) bool {
	_, ok := in.implKeys[implKey{Trait: trait, Type: typ}]
	return ok
}

// ImplDecl returns the span of the existing impl for diagnostics.
func (in *Interner) ImplDecl(trait TraitID, typ TypeID) (source.Span, bool) {
	id, ok := in.implKeys[implKey{Trait: trait, Type: typ}]
	if !ok {
		return source.Span{}, false
	}
	return in.impls[id].Decl, true
}
