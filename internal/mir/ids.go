package mir

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

type LocalFlags uint8

const (
	LocalFlagCopy LocalFlags = 1 << iota
	LocalFlagOwn
	LocalFlagRef
	LocalFlagRefMut
	LocalFlagTemp
)

type Local struct {
	Sym   symbols.SymbolID
	Type  types.TypeID
	Flags LocalFlags
	Name  string
	Span  source.Span
}
