// Package ast models the syntax tree handed over by the external parser.
//
// The tree is already syntactically valid; this package only describes its
// shape and the msgpack hand-off codec. All semantic knowledge (types,
// symbols, ownership) lives in later pipeline stages.
package ast

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
)

// Module is one compilation unit: an ordered list of top-level items.
// Items are analyzed strictly in declaration order.
type Module struct {
	Name  string
	Items []*Item
	Span  source.Span
}

// Block is a braced statement sequence opening a lexical scope.
type Block struct {
	Stmts []*Stmt
	Span  source.Span
}

// IsEmpty returns true if the block has no statements.
func (b *Block) IsEmpty() bool {
	return b == nil || len(b.Stmts) == 0
}
