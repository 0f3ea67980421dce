package irgen

import (
	"strings"

	"github.com/mna/sxcc/lang/ir"
	"github.com/mna/sxcc/lang/scope"
	"github.com/mna/sxcc/lang/sexpr"
	"github.com/mna/sxcc/lang/token"
	"github.com/mna/sxcc/lang/types"
)

func compileBinop(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	op := lst.Head()
	save := f.Stack
	t1, a1, err := compileExprTmp(prog, f, lst.Elems[1], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	t2, a2, err := compileExprTmp(prog, f, lst.Elems[2], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	f.Stack = save

	// pointer arithmetic: rewrite `offset + ptr` into `ptr + offset`.
	if op == "+" && t1.Head == types.Int && t2.Head == types.Ptr {
		t1, a1, t2, a2 = t2, a2, t1, a1
	}
	if (op == "+" || op == "-") && t1.Head == types.Ptr && t2.Head == types.Int {
		scale := 8
		if t1.Elem != nil && t1.Elem.Head == types.Byte {
			scale = 1
		}
		if op == "-" {
			scale = -scale
		}
		dst := f.Tmp()
		f.Emit(ir.Instruction{Op: ir.LEA, A1: a1, A2: a2, Scale: scale, Dst: dst})
		return t1, dst, nil
	}
	if op == "-" && t1.Head == types.Ptr && t2.Head == types.Ptr {
		if !t1.Equal(t2) {
			return types.Type{}, -1, errAt(lst, token.Type, "comparison of different pointer types")
		}
		if t1.Elem == nil || t1.Elem.Head != types.Byte {
			return types.Type{}, -1, errAt(lst, token.Type, "bad binop types")
		}
		dst := f.Tmp()
		f.Emit(ir.Instruction{Op: ir.BINOP, BinOp: "-", A1: a1, A2: a2, Dst: dst})
		return types.IntType, dst, nil
	}

	cmpOps := map[string]bool{"eq": true, "ge": true, "gt": true, "le": true, "lt": true, "ne": true}
	ints := t1.Equal(t2) && (t1.Head == types.Int || t1.Head == types.Byte)
	ptrCmp := t1.Equal(t2) && t1.Head == types.Ptr && cmpOps[op]
	if !(ints || ptrCmp) {
		return types.Type{}, -1, errAt(lst, token.Type, "bad binop types")
	}
	rtype := t1
	if cmpOps[op] {
		rtype = types.IntType
	}
	// Byte operands are always widened to a 64-bit binop; binop8 is a
	// reserved opcode the generator never emits (see lang/ir.Opcode docs).
	dst := f.Tmp()
	f.Emit(ir.Instruction{Op: ir.BINOP, BinOp: op, A1: a1, A2: a2, Dst: dst})
	return rtype, dst, nil
}

func compileUnop(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	op := lst.Head()
	t1, a1, err := CompileStmt(prog, f, lst.Elems[1], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	rtype := t1
	switch op {
	case "-":
		if !t1.Numeric() {
			return types.Type{}, -1, errAt(lst, token.Type, "bad unop types")
		}
	case "not":
		if !(t1.Numeric() || t1.Head == types.Ptr) {
			return types.Type{}, -1, errAt(lst, token.Type, "bad unop types")
		}
		rtype = types.IntType
	}
	dst := f.Tmp()
	f.Emit(ir.Instruction{Op: ir.UNOP, BinOp: op, A1: a1, Dst: dst})
	return rtype, dst, nil
}

func compileScope(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	f.ScopeEnter()
	tp, v := types.VoidType, -1

	var groups [][]sexpr.Node
	groups = append(groups, nil)
	for _, kid := range lst.Elems[1:] {
		groups[len(groups)-1] = append(groups[len(groups)-1], kid)
		if isVarDecl(kid) {
			groups = append(groups, nil)
		}
	}

	for _, g := range groups {
		var funcs []*Func
		for _, kid := range g {
			if isFuncDef(kid) {
				fd, ferr := scanFuncDef(prog, f, kid.(*sexpr.List))
				if ferr != nil {
					f.ScopeLeave()
					return types.Type{}, -1, ferr
				}
				funcs = append(funcs, fd)
			}
		}
		for _, kid := range g {
			var err *token.Error
			if isFuncDef(kid) {
				target := funcs[0]
				funcs = funcs[1:]
				tp, v, err = types.VoidType, -1, nil
				if cerr := compileFuncDef(prog, target, kid.(*sexpr.List)); cerr != nil {
					err = cerr
				}
			} else {
				tp, v, err = CompileStmt(prog, f, kid, true)
			}
			if err != nil {
				f.ScopeLeave()
				return types.Type{}, -1, err
			}
		}
	}

	f.ScopeLeave()
	if v >= f.Stack {
		v = moveTo(f, v, f.Tmp())
	}
	return tp, v, nil
}

func isVarDecl(n sexpr.Node) bool {
	lst, ok := n.(*sexpr.List)
	return ok && lst.Head() == "var"
}

func isFuncDef(n sexpr.Node) bool {
	lst, ok := n.(*sexpr.List)
	return ok && lst.Head() == "def" && len(lst.Elems) == 4
}

func compileNewVar(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	name, ok := lst.Elems[1].(*sexpr.Atom)
	if !ok {
		return types.Type{}, -1, errAt(lst, token.Name, "bad name")
	}
	tp, v, err := CompileStmt(prog, f, lst.Elems[2], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	if v < 0 {
		return types.Type{}, -1, errAt(lst, token.Type, "bad variable init type")
	}
	if f.Scope.Declared(name.Name) {
		return types.Type{}, -1, errAt(name, token.Name, "duplicated name")
	}
	dst := f.AddVar(name.Name, tp)
	return tp, moveTo(f, v, dst), nil
}

func compileSetVar(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	name, ok := lst.Elems[1].(*sexpr.Atom)
	if !ok {
		return types.Type{}, -1, errAt(lst, token.Name, "bad name")
	}
	rv, ok := getVar(prog, f, name.Name)
	if !ok {
		return types.Type{}, -1, errAt(name, token.Name, "undefined name")
	}
	tp, v, err := CompileStmt(prog, f, lst.Elems[2], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	if !rv.Type.Equal(tp) {
		return types.Type{}, -1, errAt(lst, token.Type, "bad variable set type")
	}
	if rv.Level == f.Level {
		return rv.Type, moveTo(f, v, rv.Slot), nil
	}
	f.Emit(ir.Instruction{Op: ir.SET_ENV, LevelVar: rv.Level, Var: rv.Slot, Src: v})
	return rv.Type, moveTo(f, v, f.Tmp()), nil
}

func compileCond(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	cond, yes := lst.Elems[1], lst.Elems[2]
	var no []sexpr.Node
	if len(lst.Elems) == 4 {
		no = []sexpr.Node{lst.Elems[3]}
	}

	endLabel := f.NewLabel()
	elseLabel := f.NewLabel()
	f.ScopeEnter()

	tp, v, err := CompileStmt(prog, f, cond, true)
	if err != nil {
		return types.Type{}, -1, err
	}
	if tp.IsVoid() {
		return types.Type{}, -1, errAt(cond, token.Type, "expect boolean condition")
	}
	f.Emit(ir.Instruction{Op: ir.JMPF, A1: v, Label: elseLabel})

	t1, a1, err := CompileStmt(prog, f, yes, false)
	if err != nil {
		return types.Type{}, -1, err
	}
	if a1 >= 0 {
		moveTo(f, a1, f.Stack)
	}

	t2, a2 := types.VoidType, -1
	if len(no) > 0 {
		f.Emit(ir.Instruction{Op: ir.JMP, Label: endLabel})
	}
	f.SetLabel(elseLabel)
	if len(no) > 0 {
		t2, a2, err = CompileStmt(prog, f, no[0], false)
		if err != nil {
			return types.Type{}, -1, err
		}
		if a2 >= 0 {
			moveTo(f, a2, f.Stack)
		}
	}
	f.SetLabel(endLabel)
	f.ScopeLeave()

	if a1 < 0 || a2 < 0 || !t1.Equal(t2) {
		return types.VoidType, -1, nil
	}
	return t1, f.Tmp(), nil
}

func compileLoop(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	cond, body := lst.Elems[1], lst.Elems[2]
	f.Scope.LoopStart = f.NewLabel()
	f.Scope.LoopEnd = f.NewLabel()

	f.ScopeEnter()
	f.SetLabel(f.Scope.LoopStart)
	_, v, err := CompileStmt(prog, f, cond, true)
	if err != nil {
		return types.Type{}, -1, err
	}
	if v < 0 {
		return types.Type{}, -1, errAt(cond, token.Type, "bad condition type")
	}
	f.Emit(ir.Instruction{Op: ir.JMPF, A1: v, Label: f.Scope.LoopEnd})
	if _, _, err := CompileStmt(prog, f, body, false); err != nil {
		return types.Type{}, -1, err
	}
	f.Emit(ir.Instruction{Op: ir.JMP, Label: f.Scope.LoopStart})
	f.SetLabel(f.Scope.LoopEnd)
	f.ScopeLeave()
	return types.VoidType, -1, nil
}

func compileCall(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	name, ok := lst.Elems[1].(*sexpr.Atom)
	if !ok {
		return types.Type{}, -1, errAt(lst, token.Shape, "unknown expression")
	}
	args := lst.Elems[2:]

	var argTypes []types.Type
	for _, kid := range args {
		tp, v, err := CompileStmt(prog, f, kid, false)
		if err != nil {
			return types.Type{}, -1, err
		}
		argTypes = append(argTypes, tp)
		moveTo(f, v, f.Tmp())
	}
	f.Stack -= len(args)

	key := scope.FuncKey{Name: name.Name, Args: encodeArgTypes(argTypes)}
	rv, ok := getFunc(prog, f, key)
	if !ok {
		return types.Type{}, -1, errAt(name, token.Name, "undefined name")
	}
	target := prog.Funcs[rv.Index]
	f.Emit(ir.Instruction{Op: ir.CALL, FuncIdx: rv.Index, ArgStart: f.Stack, LevelCur: f.Level, LevelNew: target.Level})
	dst := -1
	if !target.RType.IsVoid() {
		dst = f.Tmp()
	}
	return target.RType, dst, nil
}

func encodeArgTypes(types_ []types.Type) string {
	parts := make([]string, len(types_))
	for i, t := range types_ {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func compileSyscall(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	numNode, ok := lst.Elems[1].(*sexpr.Int)
	if !ok || numNode.Value < 0 {
		return types.Type{}, -1, errAt(lst, token.Value, "bad syscall number")
	}
	args := lst.Elems[2:]

	save := f.Stack
	var sysVars []int
	for _, kid := range args {
		argTp, v, err := compileExprTmp(prog, f, kid, false)
		if err != nil {
			return types.Type{}, -1, err
		}
		if argTp.IsVoid() {
			return types.Type{}, -1, errAt(kid, token.Type, "bad syscall argument type")
		}
		sysVars = append(sysVars, v)
	}
	f.Stack = save

	dstSlot := f.Stack
	f.Emit(ir.Instruction{Op: ir.SYSCALL, Dst: dstSlot, SyscallNum: int(numNode.Value), SyscallArgs: sysVars})
	dst := f.Tmp()
	return types.IntType, dst, nil
}

func compileReturn(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	tp, v := types.VoidType, -1
	if len(lst.Elems) == 2 {
		var err *token.Error
		tp, v, err = compileExprTmp(prog, f, lst.Elems[1], false)
		if err != nil {
			return types.Type{}, -1, err
		}
	}
	if !tp.Equal(f.RType) {
		return types.Type{}, -1, errAt(lst, token.Type, "bad return type")
	}
	f.Emit(ir.Instruction{Op: ir.RET, A1: v})
	return tp, v, nil
}

func compileCast(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	tp, terr := types.Validate(lst.Elems[1])
	if terr != nil {
		return types.Type{}, -1, terr
	}
	valTp, v, err := compileExprTmp(prog, f, lst.Elems[2], false)
	if err != nil {
		return types.Type{}, -1, err
	}

	free := tp.Head == types.Int && valTp.Head == types.Ptr ||
		tp.Head == types.Ptr && valTp.Head == types.Int ||
		tp.Head == types.Ptr && valTp.Head == types.Ptr ||
		tp.Head == types.Int && valTp.Head == types.Byte ||
		tp.Head == types.Int && valTp.Head == types.Int ||
		tp.Head == types.Byte && valTp.Head == types.Byte
	if free {
		return tp, v, nil
	}
	if tp.Head == types.Byte && valTp.Head == types.Int {
		f.Emit(ir.Instruction{Op: ir.CAST8, Var: v})
		return tp, v, nil
	}
	return types.Type{}, -1, errAt(lst, token.Type, "bad cast")
}

func compilePeek(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	tp, v, err := CompileStmt(prog, f, lst.Elems[1], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	if tp.Head != types.Ptr {
		return types.Type{}, -1, errAt(lst, token.Type, "not a pointer")
	}
	op := ir.PEEK
	if tp.Elem.Head == types.Byte {
		op = ir.PEEK8
	}
	dstSlot := f.Stack
	f.Emit(ir.Instruction{Op: op, Ptr: v, Dst: dstSlot})
	dst := f.Tmp()
	return *tp.Elem, dst, nil
}

func compilePoke(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	save := f.Stack
	t2, vVal, err := compileExprTmp(prog, f, lst.Elems[2], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	t1, vPtr, err := compileExprTmp(prog, f, lst.Elems[1], false)
	if err != nil {
		return types.Type{}, -1, err
	}
	if t1.Head != types.Ptr || t1.Elem == nil || !t1.Elem.Equal(t2) {
		return types.Type{}, -1, errAt(lst, token.Type, "pointer type mismatch")
	}
	f.Stack = save

	op := ir.POKE
	if t2.Head == types.Byte {
		op = ir.POKE8
	}
	f.Emit(ir.Instruction{Op: op, Ptr: vPtr, Var: vVal})
	return t2, moveTo(f, vVal, f.Tmp()), nil
}

func compileRef(prog *Program, f *Func, lst *sexpr.List) (types.Type, int, *token.Error) {
	name, ok := lst.Elems[1].(*sexpr.Atom)
	if !ok {
		return types.Type{}, -1, errAt(lst, token.Name, "bad name")
	}
	rv, ok := getVar(prog, f, name.Name)
	if !ok {
		return types.Type{}, -1, errAt(name, token.Name, "undefined name")
	}
	dst := f.Tmp()
	if rv.Level == f.Level {
		f.Emit(ir.Instruction{Op: ir.REF_VAR, Var: rv.Slot, Dst: dst})
	} else {
		f.Emit(ir.Instruction{Op: ir.REF_ENV, LevelVar: rv.Level, Var: rv.Slot, Dst: dst})
	}
	return types.PtrTo(rv.Type), dst, nil
}
