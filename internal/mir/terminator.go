package mir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermSwitch
	TermUnreachable
)

type Terminator struct {
	Kind TermKind

	Return      ReturnTerm
	Goto        GotoTerm
	If          IfTerm
	Switch      SwitchTerm
	Unreachable struct{}
}

type ReturnTerm struct {
	HasValue bool
	Value    Operand
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

type SwitchCase struct {
	Value  int64
	Target BlockID
}

// SwitchTerm dispatches on an integer discriminant. Default is always a
// valid block; lowering synthesizes an unreachable otherwise block when
// the cases alone cover the scrutinee.
type SwitchTerm struct {
	Value   Operand
	Cases   []SwitchCase
	Default BlockID
}
