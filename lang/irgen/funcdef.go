package irgen

import (
	"github.com/mna/sxcc/lang/ir"
	"github.com/mna/sxcc/lang/scope"
	"github.com/mna/sxcc/lang/sexpr"
	"github.com/mna/sxcc/lang/token"
	"github.com/mna/sxcc/lang/types"
)

// scanFuncDef registers a `(def (name rtype...) ((arg type...) ...) body)`
// definition in parent's scope (nil parent means this is the top-level
// main) before any of the group's bodies are compiled, so sibling
// functions in the same scope group can call each other regardless of
// textual order.
func scanFuncDef(prog *Program, parent *Func, lst *sexpr.List) (*Func, *token.Error) {
	sig, ok := lst.Elems[1].(*sexpr.List)
	if !ok || len(sig.Elems) == 0 {
		return nil, errAt(lst, token.Shape, "bad function signature")
	}
	name, ok := sig.Elems[0].(*sexpr.Atom)
	if !ok {
		return nil, errAt(sig, token.Name, "bad name")
	}
	rtype, terr := types.ValidateParts(sig.Elems[1:], sig.Pos())
	if terr != nil {
		return nil, terr
	}

	argList, ok := lst.Elems[2].(*sexpr.List)
	if !ok {
		return nil, errAt(lst, token.Shape, "bad argument list")
	}
	argTypes := make([]types.Type, len(argList.Elems))
	argNames := make([]string, len(argList.Elems))
	for i, a := range argList.Elems {
		as, ok := a.(*sexpr.List)
		if !ok || len(as.Elems) == 0 {
			return nil, errAt(a, token.Shape, "bad argument")
		}
		an, ok := as.Elems[0].(*sexpr.Atom)
		if !ok {
			return nil, errAt(as, token.Name, "bad name")
		}
		at, terr := types.ValidateParts(as.Elems[1:], as.Pos())
		if terr != nil {
			return nil, terr
		}
		if at.IsVoid() {
			return nil, errAt(as, token.Type, "bad argument type")
		}
		argNames[i] = an.Name
		argTypes[i] = at
	}

	key := scope.FuncKey{Name: name.Name, Args: encodeArgTypes(argTypes)}

	parentIdx := -1
	level := 1
	var parentScope *scope.Scope
	if parent != nil {
		parentIdx = parent.Index
		level = parent.Level + 1
		parentScope = parent.Scope
	}
	if parentScope != nil && parentScope.DeclaredFunc(key) {
		return nil, errAt(name, token.Name, "duplicated function")
	}

	f := prog.NewFunc(parentIdx, level, rtype, name.Name)
	f.argNames = argNames
	f.argTypes = argTypes
	if parentScope == nil {
		// top-level main has no enclosing scope; bind it in its own root
		// scope so the name still resolves from within the function.
		parentScope = f.Scope
	}
	parentScope.BindFunc(key, scope.Func{RType: rtype, Index: f.Index})
	return f, nil
}

// compileFuncDef binds f's arguments as locals and compiles its body,
// checking the body's resulting type against f's declared return type and
// emitting the implicit trailing return.
func compileFuncDef(prog *Program, f *Func, lst *sexpr.List) *token.Error {
	for i, name := range f.argNames {
		if f.Scope.Declared(name) {
			return errAt(lst, token.Name, "duplicated name")
		}
		dst := f.AddVar(name, f.argTypes[i])
		if dst != i {
			panic("internal error: argument slot mismatch")
		}
	}

	body := lst.Elems[3]
	tp, v, err := CompileStmt(prog, f, body, false)
	if err != nil {
		return err
	}
	if !f.RType.IsVoid() && !tp.Equal(f.RType) {
		return errAt(body, token.Type, "bad body type")
	}
	if f.RType.IsVoid() {
		v = -1 // the body's result, if any, is discarded
	}
	f.Emit(ir.Instruction{Op: ir.RET, A1: v})
	return nil
}
