// Package types implements the canonical type system: void, int, byte, and
// pointers to any non-void type. Types are small values; structural equality
// is Type.Equal, since a pointer type's element is held by pointer.
package types

import "fmt"

// Head identifies a type's shape.
type Head int

const (
	Void Head = iota
	Int
	Byte
	Ptr
)

func (h Head) String() string {
	switch h {
	case Void:
		return "void"
	case Int:
		return "int"
	case Byte:
		return "byte"
	case Ptr:
		return "ptr"
	default:
		return "?"
	}
}

// Type is a canonical type value. Elem is non-nil only when Head == Ptr.
// Two Types describe the same type iff Equal reports true; == compares Elem
// by pointer, and PtrTo allocates a fresh Elem on every call, so two
// separately built pointer types are Equal but not ==.
type Type struct {
	Head Head
	Elem *Type
}

var (
	VoidType = Type{Head: Void}
	IntType  = Type{Head: Int}
	ByteType = Type{Head: Byte}
)

// PtrTo builds the canonical `ptr T` type. Elem must not be void.
func PtrTo(elem Type) Type {
	e := elem
	return Type{Head: Ptr, Elem: &e}
}

// Equal reports structural equality, recursing through pointer element
// types (Type.== alone is insufficient since Elem is a pointer).
func (t Type) Equal(o Type) bool {
	if t.Head != o.Head {
		return false
	}
	if t.Head != Ptr {
		return true
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == o.Elem
	}
	return t.Elem.Equal(*o.Elem)
}

func (t Type) String() string {
	if t.Head == Ptr {
		return fmt.Sprintf("ptr %s", t.Elem.String())
	}
	return t.Head.String()
}

// IsVoid reports whether t is the void type.
func (t Type) IsVoid() bool { return t.Head == Void }

// Numeric reports whether t is int or byte.
func (t Type) Numeric() bool { return t.Head == Int || t.Head == Byte }
