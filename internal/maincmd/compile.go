package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/sxcc/lang/elfwriter"
	"github.com/mna/sxcc/lang/irgen"
	"github.com/mna/sxcc/lang/memrun"
)

// Compile reads c.file, compiles it, and performs whichever of --print-ir,
// --output and --exec were requested. It returns a non-nil exit value only
// when --exec ran the program, in which case that is the value the process
// should exit with.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio) (*int64, error) {
	src, err := os.ReadFile(c.file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.file, err)
	}

	prog, cerr := irgen.CompileMain(string(src))
	if cerr != nil {
		return nil, cerr
	}

	if c.PrintIR {
		fmt.Fprint(stdio.Stdout, prog.DumpText())
	}

	if c.Output != "" {
		image := elfwriter.Write(prog, c.Alignment)
		if err := os.WriteFile(c.Output, image, 0o755); err != nil {
			return nil, fmt.Errorf("write %s: %w", c.Output, err)
		}
	}

	if c.Exec {
		code := memrun.Compile(prog, c.Alignment)
		p, err := memrun.Load(code)
		if err != nil {
			return nil, fmt.Errorf("load compiled program: %w", err)
		}
		defer p.Close()

		done := make(chan int64, 1)
		go func() { done <- p.Run() }()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case v := <-done:
			return &v, nil
		}
	}

	return nil, nil
}
