package irgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSrc(t *testing.T, src string) string {
	t.Helper()
	prog, err := CompileMain(src)
	require.NoError(t, err)
	return prog.DumpText()
}

func TestCompileConstant(t *testing.T) {
	got := compileSrc(t, "1")
	assert.Equal(t, "func0:\n    const 1 0\n    ret 0\n", got)
}

func TestCompileBinopChain(t *testing.T) {
	got := compileSrc(t, "(+ (- 1 2) 3)")
	want := "func0:\n" +
		"    const 1 0\n" +
		"    const 2 1\n" +
		"    binop - 0 1 0\n" +
		"    const 3 1\n" +
		"    binop + 0 1 0\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileIfElse(t *testing.T) {
	got := compileSrc(t, "(if 1 2 3)")
	want := "func0:\n" +
		"    const 1 0\n" +
		"    jmpf 0 L1\n" +
		"    const 2 0\n" +
		"    jmp L0\n" +
		"L1:\n" +
		"    const 3 0\n" +
		"L0:\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileUndefinedName(t *testing.T) {
	_, err := CompileMain("nope")
	require.Error(t, err)
}

func TestCompileDuplicateVar(t *testing.T) {
	_, err := CompileMain("(do (var x 1) (var x 2) 0)")
	require.Error(t, err)
}

func TestCompileBreakOutsideLoop(t *testing.T) {
	_, err := CompileMain("(do (break) 0)")
	require.Error(t, err)
}

func TestCompileLocalCall(t *testing.T) {
	got := compileSrc(t, "(do (def (inc int) ((n int)) (+ n 1)) (call inc 41))")
	assert.Contains(t, got, "func0:")
	assert.Contains(t, got, "func1:")
	assert.Contains(t, got, "call 1")
}

func TestCompileClosureReadsOuterVar(t *testing.T) {
	src := "(do (var x 41) (def (bump int) () (+ x 1)) (call bump))"
	got := compileSrc(t, src)
	assert.Contains(t, got, "get_env")
}

func TestCompilePeekPokeRoundTrip(t *testing.T) {
	src := "(do (var p (ptr int)) (poke p 7) (peek p))"
	got := compileSrc(t, src)
	assert.Contains(t, got, "poke")
	assert.Contains(t, got, "peek")
}

func TestCompileCastByteToInt(t *testing.T) {
	src := "(cast int (cast byte 300))"
	got := compileSrc(t, src)
	assert.Contains(t, got, "cast8")
}

func TestCompileExplicitReturnKeepsImplicitOne(t *testing.T) {
	got := compileSrc(t, "(return 1)")
	want := "func0:\n" +
		"    const 1 0\n" +
		"    ret 0\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileIfWithoutElseBindsBothLabelsTogether(t *testing.T) {
	got := compileSrc(t, "(if 1 (return 2)) 0")
	want := "func0:\n" +
		"    const 1 0\n" +
		"    jmpf 0 L1\n" +
		"    const 2 0\n" +
		"    ret 0\n" +
		"L0:\n" +
		"L1:\n" +
		"    const 0 0\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileScopeResultCopiedOutOfDyingSlot(t *testing.T) {
	got := compileSrc(t, "(var a 1) (set a (+ 3 a)) (var b 2) (- b a)")
	want := "func0:\n" +
		"    const 1 0\n" +
		"    const 3 1\n" +
		"    binop + 1 0 1\n" +
		"    mov 1 0\n" +
		"    const 2 1\n" +
		"    binop - 1 0 2\n" +
		"    mov 2 0\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileLoopBreakContinue(t *testing.T) {
	src := `
		(loop (var a 1) (do
			(var b a)
			(if (gt a 11)
				(break))
			(var c (set a (+ 2 b)))
			(if (lt c 100)
				(continue))
			(set b 5)
		))
		0`
	got := compileSrc(t, src)
	want := "func0:\n" +
		"L0:\n" +
		"    const 1 0\n" +
		"    jmpf 0 L1\n" +
		"    mov 0 1\n" +
		"    const 11 2\n" +
		"    binop gt 0 2 2\n" +
		"    jmpf 2 L3\n" +
		"    jmp L1\n" +
		"L2:\n" +
		"L3:\n" +
		"    const 2 2\n" +
		"    binop + 2 1 2\n" +
		"    mov 2 0\n" +
		"    mov 0 2\n" +
		"    const 100 3\n" +
		"    binop lt 2 3 3\n" +
		"    jmpf 3 L5\n" +
		"    jmp L0\n" +
		"L4:\n" +
		"L5:\n" +
		"    const 5 3\n" +
		"    mov 3 1\n" +
		"    jmp L0\n" +
		"L1:\n" +
		"    const 0 0\n" +
		"    ret 0\n"
	assert.Equal(t, want, got)
}

func TestCompileVoidFunctionReturnsNoValue(t *testing.T) {
	got := compileSrc(t, "(do (def (noop void) () 7) (call noop) 0)")
	assert.Contains(t, got, "ret -1")
}

func TestCompileRejectsVoidArgumentType(t *testing.T) {
	_, err := CompileMain("(do (def (f int) ((a void)) 1) 0)")
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad argument type")
}

func TestCompileRejectsDuplicatedFunction(t *testing.T) {
	_, err := CompileMain("(do (def (f int) () 1) (def (f int) () 2) 0)")
	require.Error(t, err)
	assert.ErrorContains(t, err, "duplicated function")
}

func TestCompileRejectsDuplicatedArgumentName(t *testing.T) {
	_, err := CompileMain("(do (def (f int) ((a int) (a int)) 1) 0)")
	require.Error(t, err)
	assert.ErrorContains(t, err, "duplicated name")
}

func TestCompileRejectsBadBodyType(t *testing.T) {
	_, err := CompileMain("(do (def (f int) () (var x 1)) 0)")
	require.Error(t, err)
}

func TestCompileMutualRecursionWithinGroup(t *testing.T) {
	src := `
		(do
			(def (even int) ((n int)) (if (eq n 0) 1 (call odd (- n 1))))
			(def (odd int) ((n int)) (if (eq n 0) 0 (call even (- n 1))))
			(call even 4))`
	got := compileSrc(t, src)
	assert.Contains(t, got, "func1:")
	assert.Contains(t, got, "func2:")
}

func TestCompileFunctionOverloadByArgTypes(t *testing.T) {
	src := `
		(do
			(def (id int) ((n int)) n)
			(def (id byte) ((n byte)) n)
			(call id 255u8)
			(call id 7))`
	got := compileSrc(t, src)
	assert.Contains(t, got, "func1:")
	assert.Contains(t, got, "func2:")
	assert.Contains(t, got, "call 2")
}
