package irgen

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/sxcc/internal/filetest"
	"github.com/stretchr/testify/require"
)

var testUpdateGoldenTests = flag.Bool("test.update-golden-tests", false, "If set, replace expected IR dump golden files with actual results.")

// TestCompileGolden exercises every source fixture under testdata/in
// against its recorded IR dump in testdata/out.
func TestCompileGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")
	for _, fi := range filetest.SourceFiles(t, srcDir, ".sx") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			prog, cerr := CompileMain(string(src))
			require.NoError(t, cerr)

			filetest.DiffOutput(t, fi, prog.DumpText(), resultDir, testUpdateGoldenTests)
		})
	}
}
