package types

import (
	"github.com/mna/sxcc/lang/sexpr"
	"github.com/mna/sxcc/lang/token"
)

// Validate checks a parsed type expression and returns its canonical Type.
// A type expression is either a bare scalar atom ("void", "int", "byte") or
// a parenthesized list whose elements are zero or more "ptr" prefixes
// followed by exactly one scalar atom — `(ptr int)`, `(ptr ptr byte)`, and
// so on; `ptr` may never prefix `void`.
func Validate(n sexpr.Node) (Type, *token.Error) {
	switch v := n.(type) {
	case *sexpr.Atom:
		return ValidateParts([]sexpr.Node{v}, v.Pos())
	case *sexpr.List:
		return ValidateParts(v.Elems, v.Pos())
	default:
		return Type{}, &token.Error{Pos: n.Pos(), Kind: token.Type, Msg: "unknown type"}
	}
}

// ValidateParts validates a flat sequence of type-expression parts — used
// both for a standalone `(ptr ... T)` list's elements and for the tail of a
// function/argument signature such as `(name ptr int)`, which shares the
// exact same flat shape once the leading name is split off.
func ValidateParts(parts []sexpr.Node, pos token.Position) (Type, *token.Error) {
	if len(parts) == 0 {
		return Type{}, &token.Error{Pos: pos, Kind: token.Shape, Msg: "type missing"}
	}
	head, ok := parts[0].(*sexpr.Atom)
	if !ok {
		return Type{}, &token.Error{Pos: parts[0].Pos(), Kind: token.Type, Msg: "unknown type"}
	}
	rest := parts[1:]
	if head.Name == "ptr" {
		elem, err := ValidateParts(rest, pos)
		if err != nil {
			return Type{}, err
		}
		if elem.IsVoid() {
			return Type{}, &token.Error{Pos: pos, Kind: token.Type, Msg: "bad pointer element"}
		}
		return PtrTo(elem), nil
	}
	if len(rest) != 0 {
		return Type{}, &token.Error{Pos: pos, Kind: token.Type, Msg: "bad scalar type"}
	}
	switch head.Name {
	case "void":
		return VoidType, nil
	case "int":
		return IntType, nil
	case "byte":
		return ByteType, nil
	default:
		return Type{}, &token.Error{Pos: head.Pos(), Kind: token.Type, Msg: "unknown type"}
	}
}
