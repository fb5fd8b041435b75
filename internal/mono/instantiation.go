// Package mono monomorphizes generic functions: every distinct tuple of
// concrete type arguments observed by sema becomes one specialized
// instance with a mangled name, deduplicated by a normalized key.
package mono

import (
	"strconv"
	"strings"

	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// InstantiationKey is a comparable dedup key.
//
// Go maps cannot use slices as keys, so the normalized args are folded
// into a stable ArgsKey string; the slice itself lives on the Instance.
type InstantiationKey struct {
	Sym     symbols.SymbolID
	ArgsKey string
}

// Instance is one specialized copy of a generic function. The body is
// shared with the template; Subst carries the placeholder bindings the
// code generator applies when it re-queries expression types.
type Instance struct {
	Key  InstantiationKey
	Name string
	Fn   symbols.FuncDecl

	TypeArgs []types.TypeID
	Subst    map[types.TypeID]types.TypeID

	// Params and Result are the signature after substitution.
	Params []types.TypeID
	Result types.TypeID

	// UseSites lists where the instantiation was requested, for
	// diagnostics on bound failures.
	UseSites []source.Span
}

// InstantiationMap holds every produced instance, in a deterministic
// first-requested order.
type InstantiationMap struct {
	Entries map[InstantiationKey]*Instance
	Order   []*Instance
}

// NewInstantiationMap creates an empty map.
func NewInstantiationMap() *InstantiationMap {
	return &InstantiationMap{Entries: make(map[InstantiationKey]*Instance)}
}

// Lookup returns the instance for a (symbol, args) pair, if produced.
func (m *InstantiationMap) Lookup(sym symbols.SymbolID, args []types.TypeID) (*Instance, bool) {
	inst, ok := m.Entries[InstantiationKey{Sym: sym, ArgsKey: typeArgsKey(args)}]
	return inst, ok
}

func typeArgsKey(args []types.TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(arg), 10))
	}
	return b.String()
}
