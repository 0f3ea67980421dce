// Package sexpr implements the surface syntax: a minimal S-expression
// reader producing a tagged-union Node tree. It is deliberately small — the
// interesting work of this module lives downstream in lang/irgen and
// lang/codegen — but a working front end is kept here so the command-line
// tool has something real to feed it.
package sexpr

import (
	"fmt"
	"strconv"

	"github.com/mna/sxcc/lang/token"
)

// Node is any parsed form: an Atom (bare name), a literal (Int, Byte, Str)
// or a List of child Nodes.
type Node interface {
	Pos() token.Position
	fmt.Stringer
	isNode()
}

type base struct {
	P token.Position
}

func (b base) Pos() token.Position { return b.P }

// Atom is a bare identifier, e.g. a variable or form name.
type Atom struct {
	base
	Name string
}

func (a *Atom) String() string { return a.Name }
func (*Atom) isNode()          {}

// Int is a `val` literal: a signed 64-bit integer.
type Int struct {
	base
	Value int64
}

func (n *Int) String() string { return strconv.FormatInt(n.Value, 10) }
func (*Int) isNode()          {}

// Byte is a `val8` literal: an unsigned 8-bit integer.
type Byte struct {
	base
	Value uint8
}

func (n *Byte) String() string { return strconv.FormatUint(uint64(n.Value), 10) + "u8" }
func (*Byte) isNode()          {}

// Str is a `str` literal: a UTF-8 string.
type Str struct {
	base
	Value string
}

func (n *Str) String() string { return strconv.Quote(n.Value) }
func (*Str) isNode()          {}

// List is a parenthesized sequence of child forms; the head (List[0], if
// present and an Atom) usually selects the dispatch handler in lang/irgen.
type List struct {
	base
	Elems []Node
}

func (n *List) String() string {
	s := "("
	for i, e := range n.Elems {
		if i > 0 {
			s += " "
		}
		s += e.String()
	}
	return s + ")"
}
func (*List) isNode() {}

// Head returns the list's first element as an Atom name, or "" if the list
// is empty or does not start with an Atom.
func (n *List) Head() string {
	if len(n.Elems) == 0 {
		return ""
	}
	a, ok := n.Elems[0].(*Atom)
	if !ok {
		return ""
	}
	return a.Name
}
