package memrun

import (
	"testing"

	"github.com/mna/sxcc/lang/irgen"
	"github.com/stretchr/testify/require"
)

func compileAndRun(t *testing.T, src string) int64 {
	t.Helper()
	prog, err := irgen.CompileMain(src)
	require.NoError(t, err)
	code := Compile(prog, 16)
	p, err := Load(code)
	require.NoError(t, err)
	defer p.Close()
	return p.Run()
}

func TestRunReturnsConstant(t *testing.T) {
	require.EqualValues(t, 1, compileAndRun(t, "1"))
}

func TestRunArithmetic(t *testing.T) {
	require.EqualValues(t, 2, compileAndRun(t, "(+ (- 1 2) 3)"))
}

func TestRunRecursiveFunction(t *testing.T) {
	src := `
		(def (fib int) ((n int)) (if (le n 1) n (+ (call fib (- n 1)) (call fib (- n 2)))))
		(call fib 10)
	`
	require.EqualValues(t, 55, compileAndRun(t, src))
}
