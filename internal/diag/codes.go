package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Резолвер (символы и типы)
	SemaInfo            Code = 3000
	SemaRedefinition    Code = 3001
	SemaUndefinedType   Code = 3002
	SemaUndefinedSymbol Code = 3003
	SemaUndefinedField  Code = 3004
	SemaArityMismatch   Code = 3005
	SemaTypeMismatch    Code = 3006
	SemaMissingField    Code = 3007
	SemaRecursiveType   Code = 3008
	SemaOutsideLoop     Code = 3009

	// Владение и заимствования
	SemaUseAfterMove       Code = 3100
	SemaConflictingBorrow  Code = 3101
	SemaBorrowMutImmutable Code = 3102

	// Pattern matching
	SemaNonExhaustiveMatch Code = 3200
	SemaUnreachableArm     Code = 3201

	// Генерики и трейты
	SemaTraitBoundNotSatisfied Code = 3300
	SemaMissingMethod          Code = 3301

	// Драйвер и ввод/вывод
	IOError       Code = 4000
	IODecodeError Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown error",

	SemaInfo:            "semantic info",
	SemaRedefinition:    "name redefined in the same scope",
	SemaUndefinedType:   "undefined type",
	SemaUndefinedSymbol: "undefined symbol",
	SemaUndefinedField:  "undefined field",
	SemaArityMismatch:   "wrong number of type arguments",
	SemaTypeMismatch:    "type mismatch",
	SemaMissingField:    "struct literal misses a declared field",
	SemaRecursiveType:   "type definition is recursive without indirection",
	SemaOutsideLoop:     "break or continue outside of a loop",

	SemaUseAfterMove:       "use of moved value",
	SemaConflictingBorrow:  "conflicting borrow",
	SemaBorrowMutImmutable: "mutable borrow of immutable binding",

	SemaNonExhaustiveMatch: "match is not exhaustive",
	SemaUnreachableArm:     "match arm is unreachable",

	SemaTraitBoundNotSatisfied: "trait bound not satisfied",
	SemaMissingMethod:          "implementation misses a required method",

	IOError:       "input/output error",
	IODecodeError: "cannot decode serialized syntax tree",
}

// ID returns the stable textual identifier, e.g. "SEM3100".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
