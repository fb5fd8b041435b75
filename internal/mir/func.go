package mir

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

type Func struct {
	ID   FuncID
	Sym  symbols.SymbolID
	Name string
	Span source.Span

	Result types.TypeID

	ParamCount int
	Locals     []Local
	Blocks     []Block
	Entry      BlockID
}
