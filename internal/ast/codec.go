package ast

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// The external parser serializes its tree with msgpack. Nodes that carry a
// kind-discriminated payload need explicit codecs; everything else encodes
// through reflection.

var (
	_ msgpack.CustomEncoder = (*Item)(nil)
	_ msgpack.CustomDecoder = (*Item)(nil)
	_ msgpack.CustomEncoder = (*Stmt)(nil)
	_ msgpack.CustomDecoder = (*Stmt)(nil)
	_ msgpack.CustomEncoder = (*Expr)(nil)
	_ msgpack.CustomDecoder = (*Expr)(nil)
	_ msgpack.CustomEncoder = (*Pattern)(nil)
	_ msgpack.CustomDecoder = (*Pattern)(nil)
)

// EncodeModule serializes a module into the parser hand-off format.
func EncodeModule(m *Module) ([]byte, error) {
	return msgpack.Marshal(m)
}

// DecodeModule deserializes a module from the parser hand-off format.
func DecodeModule(data []byte) (*Module, error) {
	var m Module
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding module: %w", err)
	}
	return &m, nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (it *Item) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint8(uint8(it.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(it.Span); err != nil {
		return err
	}
	return enc.Encode(it.Data)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (it *Item) DecodeMsgpack(dec *msgpack.Decoder) error {
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	it.Kind = ItemKind(kind)
	if err := dec.Decode(&it.Span); err != nil {
		return err
	}
	switch it.Kind {
	case ItemFunction:
		var d FuncData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		it.Data = d
	case ItemStruct:
		var d StructData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		it.Data = d
	case ItemEnum:
		var d EnumData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		it.Data = d
	case ItemTrait:
		var d TraitData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		it.Data = d
	case ItemImpl:
		var d ImplData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		it.Data = d
	default:
		return fmt.Errorf("unknown item kind %d", kind)
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (s *Stmt) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint8(uint8(s.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(s.Span); err != nil {
		return err
	}
	return enc.Encode(s.Data)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (s *Stmt) DecodeMsgpack(dec *msgpack.Decoder) error {
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	s.Kind = StmtKind(kind)
	if err := dec.Decode(&s.Span); err != nil {
		return err
	}
	switch s.Kind {
	case StmtLet:
		var d LetData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtExpr:
		var d ExprStmtData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtReturn:
		var d ReturnData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtIf:
		var d IfData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtWhile:
		var d WhileData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtMatch:
		var d MatchStmtData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtBreak:
		var d BreakData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	case StmtContinue:
		var d ContinueData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		s.Data = d
	default:
		return fmt.Errorf("unknown statement kind %d", kind)
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (e *Expr) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint8(uint8(e.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(e.Span); err != nil {
		return err
	}
	return enc.Encode(e.Data)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (e *Expr) DecodeMsgpack(dec *msgpack.Decoder) error {
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	e.Kind = ExprKind(kind)
	if err := dec.Decode(&e.Span); err != nil {
		return err
	}
	switch e.Kind {
	case ExprLiteral:
		var d LiteralData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprIdent:
		var d IdentData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprBinary:
		var d BinaryData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprUnary:
		var d UnaryData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprCall:
		var d CallData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprFieldAccess:
		var d FieldAccessData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprStructLit:
		var d StructLitData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	case ExprMatch:
		var d MatchData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		e.Data = d
	default:
		return fmt.Errorf("unknown expression kind %d", kind)
	}
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (p *Pattern) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeUint8(uint8(p.Kind)); err != nil {
		return err
	}
	if err := enc.Encode(p.Span); err != nil {
		return err
	}
	return enc.Encode(p.Data)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (p *Pattern) DecodeMsgpack(dec *msgpack.Decoder) error {
	kind, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	p.Kind = PatternKind(kind)
	if err := dec.Decode(&p.Span); err != nil {
		return err
	}
	switch p.Kind {
	case PatWildcard:
		var d WildcardData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		p.Data = d
	case PatLiteral:
		var d LiteralPatData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		p.Data = d
	case PatBinding:
		var d BindingData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		p.Data = d
	case PatEnum:
		var d EnumPatData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		p.Data = d
	case PatStruct:
		var d StructPatData
		if err := dec.Decode(&d); err != nil {
			return err
		}
		p.Data = d
	default:
		return fmt.Errorf("unknown pattern kind %d", kind)
	}
	return nil
}
