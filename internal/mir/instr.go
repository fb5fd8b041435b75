package mir

import (
	"github.com/mubtakir/bayan-sub000/internal/ast"
	"github.com/mubtakir/bayan-sub000/internal/symbols"
	"github.com/mubtakir/bayan-sub000/internal/types"
)

// PlaceProjKind enumerates place projections.
type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
)

type PlaceProj struct {
	Kind PlaceProjKind

	FieldName string
	FieldIdx  int
}

// Place is an addressable location: a local plus a projection chain.
type Place struct {
	Local LocalID
	Proj  []PlaceProj
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID
}

// OperandKind distinguishes operand flavors.
type OperandKind uint8

const (
	// OperandConst is an immediate constant.
	OperandConst OperandKind = iota
	// OperandCopy reads a place non-destructively.
	OperandCopy
	// OperandMove consumes an owning place.
	OperandMove
	// OperandAddrOf passes the address of a place.
	OperandAddrOf
	// OperandAddrOfMut passes the mutable address of a place.
	OperandAddrOfMut
)

// Operand is an instruction input.
type Operand struct {
	Kind OperandKind
	Type types.TypeID

	Const Const
	Place Place
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstChar
	ConstString
	ConstUnit
)

// Const is an immediate value.
type Const struct {
	Kind ConstKind
	Type types.TypeID

	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	CharValue   rune
	StringValue string
}

// RValueKind distinguishes right-hand value kinds.
type RValueKind uint8

const (
	// RValueUse forwards an operand unchanged.
	RValueUse RValueKind = iota
	// RValueUnaryOp applies a unary operator.
	RValueUnaryOp
	// RValueBinaryOp applies a binary operator.
	RValueBinaryOp
	// RValueStructLit builds a struct from field operands.
	RValueStructLit
	// RValueMakeVariant builds an enum value from a tag and payload.
	RValueMakeVariant
	// RValueEnumTag reads the discriminant of an enum place.
	RValueEnumTag
	// RValueEnumPayload extracts one payload element of a known variant.
	RValueEnumPayload
)

// RValue is the right-hand side of an assignment.
type RValue struct {
	Kind RValueKind

	Use         Operand
	Unary       UnaryOp
	Binary      BinaryOp
	StructLit   StructLit
	MakeVariant MakeVariant
	EnumTag     EnumTag
	EnumPayload EnumPayload
}

type UnaryOp struct {
	Op      ast.UnOp
	Operand Operand
}

type BinaryOp struct {
	Op    ast.BinOp
	Left  Operand
	Right Operand
}

type StructLitField struct {
	Name     string
	FieldIdx int
	Value    Operand
}

// StructLit fields are ordered by declaration index.
type StructLit struct {
	Type   types.TypeID
	Fields []StructLitField
}

type MakeVariant struct {
	Enum    types.TypeID
	Tag     int64
	Variant string
	Args    []Operand
}

type EnumTag struct {
	Value Place
}

type EnumPayload struct {
	Value Place
	Tag   int64
	Index int
}

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrAssign stores an rvalue into a place.
	InstrAssign InstrKind = iota
	// InstrCall invokes a function.
	InstrCall
	// InstrRelease discharges one destroy obligation.
	InstrRelease
	// InstrPhi merges per-predecessor values at a join block.
	InstrPhi
)

// Instr is one MIR instruction.
type Instr struct {
	Kind InstrKind

	Assign  AssignInstr
	Call    CallInstr
	Release ReleaseInstr
	Phi     PhiInstr
}

type AssignInstr struct {
	Dst Place
	Src RValue
}

// Callee names a call target. Name carries the mangled instance name for
// specialized generics; Sym is the template symbol.
type Callee struct {
	Sym  symbols.SymbolID
	Name string
}

type CallInstr struct {
	HasDst bool
	Dst    Place
	Callee Callee
	Args   []Operand
}

// ReleaseInstr destroys the owning value held by a binding at scope exit.
type ReleaseInstr struct {
	Place Place
	Sym   symbols.SymbolID
	Name  string
	Type  types.TypeID
}

type PhiIncoming struct {
	Value Operand
	From  BlockID
}

type PhiInstr struct {
	Dst       Place
	Type      types.TypeID
	Incomings []PhiIncoming
}
