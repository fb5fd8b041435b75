package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Int     TypeID
	Float   TypeID
	Char    TypeID
	String  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	structs  []StructInfo
	enums    []EnumInfo
	params   []ParamInfo
	traits   []TraitInfo
	impls    []ImplInfo
	implKeys map[implKey]ImplID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[typeKey]TypeID, 64),
		implKeys: make(map[implKey]ImplID),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.enums = append(in.enums, EnumInfo{})
	in.params = append(in.params, ParamInfo{})
	in.traits = append(in.traits, TraitInfo{})
	in.impls = append(in.impls, ImplInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Reference interns &T / &mut T over the given element type.
func (in *Interner) Reference(elem TypeID, mutable bool) TypeID {
	return in.Intern(MakeReference(elem, mutable))
}

// IsOwning reports whether values of the type carry a destroy obligation.
// Only nominal aggregates do; primitives, references and unresolved params
// never register obligations.
func (in *Interner) IsOwning(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	return tt.IsAggregate()
}

// IsCopy reports value-semantics types: reads and assignments never move.
func (in *Interner) IsCopy(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	return tt.IsPrimitive() || tt.Kind == KindReference
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Mutable bool
	Payload uint32
}
