// Package selftest runs the small set of end-to-end compile-and-execute
// scenarios used to sanity-check a build: each case is compiled from source
// down to native code and run in-process via lang/memrun. The CLI falls
// back to these when it is given no arguments.
package selftest

import (
	"fmt"
	"io"

	"github.com/mna/sxcc/lang/irgen"
	"github.com/mna/sxcc/lang/memrun"
)

// Case is one scenario: source text plus the exit value main must produce.
type Case struct {
	Name string
	Src  string
	Want int64
}

// Cases are run both by `go test` and by the CLI's no-argument fallback.
var Cases = []Case{
	{
		Name: "constant",
		Src:  "1",
		Want: 1,
	},
	{
		Name: "arithmetic",
		Src:  "(+ (- 1 2) 3)",
		Want: 2,
	},
	{
		Name: "conditional",
		Src:  "(if 1 2 3)",
		Want: 2,
	},
	{
		Name: "recursive-call",
		Src: `
			(def (fib int) ((n int)) (if (le n 0) 0 (call fib (- n 1))))
			(call fib 5)
		`,
		Want: 0,
	},
	{
		// Inner function g closes over both its grandparent's variable b and
		// its parent's variable a, exercising multi-level get_env/set_env.
		Name: "nested-closure",
		Src: `
			(var b 456)
			(def (f void) ()
			  (do
			    (var a 123)
			    (def (g void) () (set a (+ b a)))
			    (call g)))
			(call f)
			0
		`,
		Want: 0,
	},
	{
		// Casting a (ptr int) down to (ptr byte) is a free coercion:
		// peek/poke through the byte view touch the same memory as the int
		// view, with no conversion instruction emitted for the cast itself.
		Name: "pointer-coercion",
		Src: `
			(var x 0)
			(var p (ref x))
			(poke (cast (ptr byte) p) 124u8)
			(peek (cast (ptr byte) p))
			(poke p 123)
			0
		`,
		Want: 0,
	},
}

// Run compiles and executes every Case, writing one PASS/FAIL line per case
// to w. It returns an error naming every case that failed, or nil if all
// passed.
func Run(w io.Writer) error {
	var failed []string
	for _, c := range Cases {
		got, err := execCase(c)
		if err != nil {
			fmt.Fprintf(w, "FAIL %s: %v\n", c.Name, err)
			failed = append(failed, c.Name)
			continue
		}
		if got != c.Want {
			fmt.Fprintf(w, "FAIL %s: got %d, want %d\n", c.Name, got, c.Want)
			failed = append(failed, c.Name)
			continue
		}
		fmt.Fprintf(w, "PASS %s\n", c.Name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("self-test failures: %v", failed)
	}
	return nil
}

func execCase(c Case) (int64, error) {
	prog, err := irgen.CompileMain(c.Src)
	if err != nil {
		return 0, fmt.Errorf("compile: %w", err)
	}
	code := memrun.Compile(prog, 16)
	p, err := memrun.Load(code)
	if err != nil {
		return 0, fmt.Errorf("load: %w", err)
	}
	defer p.Close()
	return p.Run(), nil
}
