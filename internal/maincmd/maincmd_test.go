package maincmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (stdout, stderr string, code mainer.ExitCode) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	c := &Cmd{BuildVersion: "0.0.0", BuildDate: "2026-01-01"}
	code = c.Main(append([]string{"sxcc"}, args...), mainer.Stdio{Stdout: &outBuf, Stderr: &errBuf})
	return outBuf.String(), errBuf.String(), code
}

func TestNoArgsRunsSelfTests(t *testing.T) {
	stdout, _, code := run(t)
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout, "PASS constant")
}

func TestPrintIR(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.sx")
	require.NoError(t, os.WriteFile(src, []byte("(+ 1 2)"), 0o644))

	stdout, _, code := run(t, "--print-ir", src)
	require.Equal(t, mainer.Success, code)
	require.Contains(t, stdout, "func0:")
	require.Contains(t, stdout, "binop")
}

func TestExecReturnsProgramExitValue(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.sx")
	require.NoError(t, os.WriteFile(src, []byte("(+ 1 2)"), 0o644))

	_, _, code := run(t, "--exec", src)
	require.Equal(t, mainer.ExitCode(3), code)
}

func TestOutputWritesELF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.sx")
	out := filepath.Join(dir, "prog")
	require.NoError(t, os.WriteFile(src, []byte("1"), 0o644))

	_, _, code := run(t, "-o", out, src)
	require.Equal(t, mainer.Success, code)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7f, 'E', 'L', 'F'}, data[:4])
}

func TestMissingFileWithExecIsInvalid(t *testing.T) {
	_, stderr, code := run(t, "--exec")
	require.NotEqual(t, mainer.Success, code)
	require.NotEmpty(t, stderr)
}
