package irgen

import (
	"github.com/mna/sxcc/lang/ir"
	"github.com/mna/sxcc/lang/sexpr"
	"github.com/mna/sxcc/lang/token"
	"github.com/mna/sxcc/lang/types"
)

// CompileMain parses and compiles a full program, returning the emitted IR.
// src is wrapped as the body of an implicit `main` (see sexpr.ParseMain).
func CompileMain(src string) (*ir.Program, error) {
	node, err := sexpr.ParseMain(src)
	if err != nil {
		return nil, err
	}
	prog := &Program{}
	if cerr := compileMainDef(prog, node); cerr != nil {
		return nil, cerr
	}
	return prog.IR(), nil
}

func compileMainDef(prog *Program, node sexpr.Node) *token.Error {
	lst, ok := node.(*sexpr.List)
	if !ok || lst.Head() != "def" || len(lst.Elems) != 4 {
		return errAt(node, token.Shape, "expected main definition")
	}
	f, err := scanFuncDef(prog, nil, lst)
	if err != nil {
		return err
	}
	return compileFuncDef(prog, f, lst)
}

// CompileStmt is the statement-level wrapper around compileExprTmp: at a
// statement boundary (allowVar), it requires Stack == NVar on entry, and
// always restores that invariant — or reverts to the pre-call stack height
// when allowVar is false — after discarding any temporaries the inner
// compilation introduced.
func CompileStmt(prog *Program, f *Func, n sexpr.Node, allowVar bool) (types.Type, int, *token.Error) {
	if allowVar && f.Stack != f.NVar {
		panic("internal error: stack/nvar mismatch at statement boundary")
	}
	save := f.Stack

	tp, dst, err := compileExprTmp(prog, f, n, allowVar)
	if err != nil {
		return types.Type{}, -1, err
	}
	if dst >= f.Stack {
		panic("internal error: result slot beyond stack top")
	}

	if allowVar {
		f.Stack = f.NVar
	} else {
		f.Stack = save
	}
	if dst > f.Stack {
		panic("internal error: result slot beyond reverted stack")
	}
	return tp, dst, nil
}

// moveTo emits a mov only if var and dst differ, matching move_to.
func moveTo(f *Func, v, dst int) int {
	if v != dst {
		f.Emit(ir.Instruction{Op: ir.MOV, Src: v, Dst: dst})
	}
	return dst
}
