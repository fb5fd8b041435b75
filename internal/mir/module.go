package mir

import "github.com/mubtakir/bayan-sub000/internal/symbols"

type Module struct {
	Funcs map[FuncID]*Func

	// FuncBySym maps non-generic function symbols; specialized generic
	// instances are reachable through FuncByName with their mangled name.
	FuncBySym  map[symbols.SymbolID]FuncID
	FuncByName map[string]FuncID
}
