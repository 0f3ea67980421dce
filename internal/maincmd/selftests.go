package maincmd

import (
	"context"

	"github.com/mna/mainer"
	"github.com/mna/sxcc/internal/selftest"
)

// RunSelfTests is the CLI's no-argument fallback: it compiles and runs the
// built-in end-to-end scenarios in-process and reports one PASS/FAIL line
// per scenario.
func (c *Cmd) RunSelfTests(_ context.Context, stdio mainer.Stdio) error {
	return selftest.Run(stdio.Stdout)
}
