package ast

import (
	"github.com/mubtakir/bayan-sub000/internal/source"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprLiteral represents literals (int, float, bool, char, string).
	ExprLiteral ExprKind = iota
	// ExprIdent represents an identifier or a qualified Enum::Variant path.
	ExprIdent
	// ExprBinary represents binary operators (+, -, *, /, ==, <, &&, ...).
	ExprBinary
	// ExprUnary represents unary operators (-, !, &, &mut, *).
	ExprUnary
	// ExprCall represents function and enum-constructor calls.
	ExprCall
	// ExprFieldAccess represents field access (expr.field).
	ExprFieldAccess
	// ExprStructLit represents struct literals (Point { x: 1, y: 2 }).
	ExprStructLit
	// ExprMatch represents a match used in expression position.
	ExprMatch
)

func (k ExprKind) String() string {
	switch k {
	case ExprLiteral:
		return "Literal"
	case ExprIdent:
		return "Ident"
	case ExprBinary:
		return "Binary"
	case ExprUnary:
		return "Unary"
	case ExprCall:
		return "Call"
	case ExprFieldAccess:
		return "FieldAccess"
	case ExprStructLit:
		return "StructLit"
	case ExprMatch:
		return "Match"
	default:
		return "Unknown"
	}
}

// Expr represents an expression.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// LitKind enumerates literal kinds.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitChar
	LitString
	LitUnit
)

// LiteralData holds data for ExprLiteral.
type LiteralData struct {
	Kind  LitKind
	Int   int64
	Float float64
	Bool  bool
	Str   string // char and string literals
}

func (LiteralData) exprData() {}

// IdentData holds data for ExprIdent. Qualifier is non-empty for
// Enum::Variant paths.
type IdentData struct {
	Qualifier string
	Name      string
}

func (IdentData) exprData() {}

// BinOp enumerates binary operators.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinSub:
		return "-"
	case BinMul:
		return "*"
	case BinDiv:
		return "/"
	case BinMod:
		return "%"
	case BinEq:
		return "=="
	case BinNe:
		return "!="
	case BinLt:
		return "<"
	case BinLe:
		return "<="
	case BinGt:
		return ">"
	case BinGe:
		return ">="
	case BinAnd:
		return "&&"
	case BinOr:
		return "||"
	default:
		return "?"
	}
}

// IsComparison reports operators yielding bool regardless of operand type.
func (op BinOp) IsComparison() bool {
	switch op {
	case BinEq, BinNe, BinLt, BinLe, BinGt, BinGe:
		return true
	default:
		return false
	}
}

// BinaryData holds data for ExprBinary.
type BinaryData struct {
	Op    BinOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

// UnOp enumerates unary operators.
type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
	// UnRef takes an immutable reference (&x).
	UnRef
	// UnRefMut takes a mutable reference (&mut x).
	UnRefMut
	// UnDeref dereferences a reference (*x).
	UnDeref
)

func (op UnOp) String() string {
	switch op {
	case UnNeg:
		return "-"
	case UnNot:
		return "!"
	case UnRef:
		return "&"
	case UnRefMut:
		return "&mut"
	case UnDeref:
		return "*"
	default:
		return "?"
	}
}

// UnaryData holds data for ExprUnary.
type UnaryData struct {
	Op      UnOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// CallData holds data for ExprCall. TypeArgs carries explicit generic
// arguments when the call site spells them out.
type CallData struct {
	Callee   *Expr
	TypeArgs []*TypeExpr
	Args     []*Expr
}

func (CallData) exprData() {}

// FieldAccessData holds data for ExprFieldAccess.
type FieldAccessData struct {
	Object *Expr
	Field  string
}

func (FieldAccessData) exprData() {}

// StructLitField is one field initializer inside a struct literal.
type StructLitField struct {
	Name  string
	Value *Expr
	Span  source.Span
}

// StructLitData holds data for ExprStructLit.
type StructLitData struct {
	Name   string
	Fields []StructLitField
}

func (StructLitData) exprData() {}

// MatchArm is one arm of a match: pattern, optional guard, body expression.
type MatchArm struct {
	Pattern *Pattern
	Guard   *Expr // nil when absent
	Body    *Expr
	Span    source.Span
}

// MatchData holds data for ExprMatch.
type MatchData struct {
	Scrutinee *Expr
	Arms      []MatchArm
}

func (MatchData) exprData() {}
