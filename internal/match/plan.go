// Package match compiles match constructs: it validates exhaustiveness
// against the scrutinee's resolved type, unifies the arm result types and
// picks the lowering strategy the code generator executes.
package match

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// Strategy selects how the code generator lowers the match.
type Strategy uint8

const (
	// DenseSwitch lowers to a switch terminator over discrete values.
	DenseSwitch Strategy = iota
	// SequentialTest lowers to a cascading conditional chain, testing
	// arms in source order.
	SequentialTest
)

func (s Strategy) String() string {
	switch s {
	case DenseSwitch:
		return "dense_switch"
	case SequentialTest:
		return "sequential_test"
	default:
		return "?"
	}
}

// Case pairs one discrete switch value with the arm that handles it.
// Value is the literal for bool/int scrutinees (bool encoded 0/1) and the
// variant tag for enums.
type Case struct {
	Value int64
	Arm   int
}

// Plan is the compiled decision for one match expression. It is derived
// on demand and never stored beyond the compilation of its function.
type Plan struct {
	Strategy Strategy

	// Cases is populated for DenseSwitch, in source arm order with
	// duplicates dropped (first match wins).
	Cases []Case

	// Default is the arm index backing the switch default, -1 when the
	// match is covered purely by explicit cases.
	Default int

	// Exhaustive reports the coverage verdict; Missing lists uncovered
	// alternatives (e.g. "false", "Color::Blue") when it is false.
	Exhaustive bool
	Missing    []string

	// Result is the unified type of all arm bodies, NoTypeID when the
	// match is used in statement position.
	Result types.TypeID

	// Unreachable lists arm indexes shadowed by an earlier catch-all.
	Unreachable []int

	Span source.Span
}

// EnumVariantLimit bounds how many variants still lower to a dense switch.
// Larger enums fall back to sequential tag tests.
const EnumVariantLimit = 16
