// Package scope implements the lexical scope chain used while generating
// IR: a singly-linked list of Scope nodes, one variable name map and one
// function-overload-key map per node, and inherited loop labels.
package scope

import "github.com/mna/sxcc/lang/types"

// Var is a variable binding: its type and its stack slot.
type Var struct {
	Type types.Type
	Slot int
}

// FuncKey identifies a function overload by name and argument types, so
// two functions may share a name as long as their argument types differ.
type FuncKey struct {
	Name string
	Args string // argument types joined by the caller, used as a map key
}

// Func is a function binding: its return type and its index in the
// program-wide function vector.
type Func struct {
	RType types.Type
	Index int
}

// Scope is one lexical block. Prev is nil for a function's outermost
// scope. Save records the data-stack height on entry, so leaving the scope
// can revert it; NLocal counts the locals declared directly in this scope,
// so leaving it can roll back the owning function's nvar.
type Scope struct {
	Prev   *Scope
	Save   int
	NLocal int

	Vars  map[string]Var
	Funcs map[FuncKey]Func

	// LoopStart/LoopEnd are inherited from Prev and overwritten by `loop`;
	// -1 means "not inside a loop".
	LoopStart int
	LoopEnd   int
}

// New creates a new Scope nested inside prev (nil for a function's root
// scope), inheriting prev's loop labels.
func New(prev *Scope, stackHeight int) *Scope {
	s := &Scope{
		Prev:      prev,
		Save:      stackHeight,
		Vars:      map[string]Var{},
		Funcs:     map[FuncKey]Func{},
		LoopStart: -1,
		LoopEnd:   -1,
	}
	if prev != nil {
		s.LoopStart = prev.LoopStart
		s.LoopEnd = prev.LoopEnd
	}
	return s
}

// LookupVar walks the scope chain for name, returning ok=false if absent.
func (s *Scope) LookupVar(name string) (Var, bool) {
	for sc := s; sc != nil; sc = sc.Prev {
		if v, ok := sc.Vars[name]; ok {
			return v, true
		}
	}
	return Var{}, false
}

// LookupFunc walks the scope chain for key, returning ok=false if absent.
func (s *Scope) LookupFunc(key FuncKey) (Func, bool) {
	for sc := s; sc != nil; sc = sc.Prev {
		if f, ok := sc.Funcs[key]; ok {
			return f, true
		}
	}
	return Func{}, false
}

// Bind declares a new variable in s, the innermost scope. The caller must
// have already checked for duplicates (Declared).
func (s *Scope) Bind(name string, v Var) {
	s.Vars[name] = v
	s.NLocal++
}

// Declared reports whether name is already bound directly in s (not an
// ancestor) — duplicate declarations within the same scope are rejected.
func (s *Scope) Declared(name string) bool {
	_, ok := s.Vars[name]
	return ok
}

// BindFunc declares a function overload in s.
func (s *Scope) BindFunc(key FuncKey, f Func) {
	s.Funcs[key] = f
}

// DeclaredFunc reports whether key is already bound directly in s.
func (s *Scope) DeclaredFunc(key FuncKey) bool {
	_, ok := s.Funcs[key]
	return ok
}
