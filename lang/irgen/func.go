// Package irgen implements the type checker and IR generator: the
// per-function virtual stack model (Func), the program-wide function
// vector (Program), and the expression/statement dispatch that lowers
// parsed S-expressions to lang/ir instructions.
package irgen

import (
	"github.com/mna/sxcc/lang/ir"
	"github.com/mna/sxcc/lang/scope"
	"github.com/mna/sxcc/lang/types"
)

// Func is one function's compiler context: its lexical nesting level, its
// virtual stack (current height `Stack` versus live-locals count `NVar`),
// its scope chain, and the IR it is accumulating.
//
// Nested function contexts are values owned by a single Program-wide
// vector (Program.Funcs); ParentIdx (an index into that vector, -1 for the
// top-level function) replaces a raw parent pointer so that non-local
// variable lookups can walk the true lexical chain — two sibling functions
// can share a Level but have different parents, so Level alone cannot
// stand in for the link.
type Func struct {
	Index     int
	Level     int
	RType     types.Type
	ParentIdx int

	Scope *scope.Scope
	Code  *ir.Funcode

	NVar  int
	Stack int

	// argNames/argTypes are recorded by scanFuncDef and consumed by
	// compileFuncDef to bind the function's parameters as its first locals.
	argNames []string
	argTypes []types.Type
}

// ScopeEnter pushes a new lexical scope.
func (f *Func) ScopeEnter() {
	f.Scope = scope.New(f.Scope, f.Stack)
}

// ScopeLeave pops the current lexical scope, reverting the virtual stack to
// its height on entry and retiring the locals it declared.
func (f *Func) ScopeLeave() {
	f.Stack = f.Scope.Save
	f.NVar -= f.Scope.NLocal
	f.Scope = f.Scope.Prev
}

// AddVar allocates a new local variable in the current scope. The caller
// must have already checked for duplicate names.
func (f *Func) AddVar(name string, tp types.Type) int {
	if f.Stack != f.NVar {
		panic("internal error: stack/nvar mismatch before variable declaration")
	}
	dst := f.Stack
	f.Scope.Bind(name, scope.Var{Type: tp, Slot: dst})
	f.Stack++
	f.NVar++
	return dst
}

// Tmp allocates a temporary on top of the virtual stack.
func (f *Func) Tmp() int {
	dst := f.Stack
	f.Stack++
	return dst
}

// NewLabel/SetLabel/Emit delegate to the underlying Funcode.
func (f *Func) NewLabel() int              { return f.Code.NewLabel() }
func (f *Func) SetLabel(l int)             { f.Code.SetLabel(l) }
func (f *Func) Emit(in ir.Instruction) int { return f.Code.Emit(in) }

// Program owns every Func in a compilation, indexed identically to the
// emitted CALL instructions' FuncIdx operand. Index 0 is always the entry
// point ("main").
type Program struct {
	Funcs []*Func
}

// NewFunc creates and registers a new Func as a child of parentIdx (-1 for
// the top-level function).
func (p *Program) NewFunc(parentIdx, level int, rtype types.Type, name string) *Func {
	f := &Func{
		Level:     level,
		RType:     rtype,
		ParentIdx: parentIdx,
		Scope:     scope.New(nil, 0),
		Code:      &ir.Funcode{Name: name, Level: level},
	}
	p.Funcs = append(p.Funcs, f)
	f.Index = len(p.Funcs) - 1
	return f
}

// IR collects every function's compiled code into a lang/ir.Program.
func (p *Program) IR() *ir.Program {
	out := &ir.Program{}
	for _, f := range p.Funcs {
		out.Funcs = append(out.Funcs, f.Code)
	}
	return out
}

// resolvedVar is the result of a variable lookup: which lexical level owns
// it, its type, and its slot in that level's frame.
type resolvedVar struct {
	Level int
	Type  types.Type
	Slot  int
}

// getVar walks f's scope chain, then f's lexical ancestors (via ParentIdx),
// looking for name: scope chains are local to a function, but the search
// continues into the enclosing function on a miss.
func getVar(p *Program, f *Func, name string) (resolvedVar, bool) {
	if v, ok := f.Scope.LookupVar(name); ok {
		return resolvedVar{Level: f.Level, Type: v.Type, Slot: v.Slot}, true
	}
	if f.ParentIdx < 0 {
		return resolvedVar{}, false
	}
	return getVar(p, p.Funcs[f.ParentIdx], name)
}

// resolvedFunc is the result of a function-overload lookup.
type resolvedFunc struct {
	Level int
	RType types.Type
	Index int
}

func getFunc(p *Program, f *Func, key scope.FuncKey) (resolvedFunc, bool) {
	if fn, ok := f.Scope.LookupFunc(key); ok {
		return resolvedFunc{Level: f.Level, RType: fn.RType, Index: fn.Index}, true
	}
	if f.ParentIdx < 0 {
		return resolvedFunc{}, false
	}
	return getFunc(p, p.Funcs[f.ParentIdx], key)
}
