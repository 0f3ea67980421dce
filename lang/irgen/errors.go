package irgen

import (
	"github.com/mna/sxcc/lang/sexpr"
	"github.com/mna/sxcc/lang/token"
)

func errAt(n sexpr.Node, kind token.Kind, msg string) *token.Error {
	return &token.Error{Pos: n.Pos(), Kind: kind, Msg: msg}
}
