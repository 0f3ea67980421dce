package token

// Kind classifies a compile-time diagnostic.
type Kind int

const (
	// Syntax covers unbalanced parentheses, trailing garbage, bad char or
	// string literals.
	Syntax Kind = iota
	// Value covers integers out of range and bad u8 literals.
	Value
	// Name covers undefined identifiers, duplicate variables or functions,
	// and names starting with a digit.
	Name
	// Type covers binop/unop mismatches, bad casts, bad return/body types,
	// bad pointer elements, comparison of mismatched pointer types.
	Type
	// Scope covers break/continue outside a loop and var outside a scope
	// position.
	Scope
	// Shape covers empty programs, empty lists, wrong arity, and unknown
	// expression heads.
	Shape
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Value:
		return "value"
	case Name:
		return "name"
	case Type:
		return "type"
	case Scope:
		return "scope"
	case Shape:
		return "shape"
	default:
		return "unknown"
	}
}

// Error is a single compile-time diagnostic: one line, one kind, one
// position. Per this compiler's error-handling design there is no recovery
// or multi-error reporting — a compilation fails on its first Error.
type Error struct {
	Pos  Position
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.Unknown() {
		return e.Kind.String() + ": " + e.Msg
	}
	return e.Pos.String() + ": " + e.Kind.String() + ": " + e.Msg
}
