package selftest

import (
	"bytes"
	"testing"

	"github.com/mna/sxcc/lang/irgen"
	"github.com/stretchr/testify/require"
)

func TestCasesPass(t *testing.T) {
	for _, c := range Cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			got, err := execCase(c)
			require.NoError(t, err)
			require.EqualValues(t, c.Want, got)
		})
	}
}

// TestCasesLabelsBound checks the IR-level half of the label-binding
// property directly, independent of whether the case also executes
// cleanly: every label a case's compiler allocates must end up bound.
func TestCasesLabelsBound(t *testing.T) {
	for _, c := range Cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			prog, err := irgen.CompileMain(c.Src)
			require.NoError(t, err)
			for i, fn := range prog.Funcs {
				require.Truef(t, fn.AllLabelsBound(), "func%d (%s) has an unbound label", i, fn.Name)
			}
		})
	}
}

func TestRunReportsPass(t *testing.T) {
	var buf bytes.Buffer
	err := Run(&buf)
	require.NoError(t, err)
	for _, c := range Cases {
		require.Contains(t, buf.String(), "PASS "+c.Name)
	}
}
