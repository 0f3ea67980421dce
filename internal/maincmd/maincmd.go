package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "sxcc"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<file>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<file>]
       %[1]s -h|--help
       %[1]s -v|--version

Ahead-of-time compiler for the sxcc systems language: parses an
S-expression source file, type-checks and lowers it to a small
three-address IR, then emits native x86-64 code either as a
standalone ELF executable or as an in-process callable function.

If <file> is omitted, %[1]s runs its built-in self-tests instead of
compiling anything.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --exec                    Compile <file> and run it in-process,
                                 exiting with its return value.
       -o --output PATH          Compile <file> to an ELF executable
                                 written at PATH.
       --print-ir                Dump the compiled IR in textual form
                                 to stdout.
       --alignment N             Function code padding alignment, in
                                 bytes (default 16).

More information on the sxcc repository:
       https://github.com/mna/sxcc
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Exec      bool   `flag:"exec"`
	Output    string `flag:"o,output"`
	PrintIR   bool   `flag:"print-ir"`
	Alignment int    `flag:"alignment"`

	args []string
	file string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if c.Alignment == 0 {
		c.Alignment = 16
	}
	if c.Alignment < 0 || c.Alignment&(c.Alignment-1) != 0 {
		return fmt.Errorf("--alignment must be a positive power of two, got %d", c.Alignment)
	}

	switch len(c.args) {
	case 0:
		if c.Exec || c.Output != "" || c.PrintIR {
			return errors.New("a source file is required with --exec, --output or --print-ir")
		}
	case 1:
		c.file = c.args[0]
	default:
		return errors.New("at most one source file may be given")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if c.file == "" {
		if err := c.RunSelfTests(ctx, stdio); err != nil {
			return mainer.Failure
		}
		return mainer.Success
	}

	exitVal, err := c.Compile(ctx, stdio)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	if exitVal != nil {
		return mainer.ExitCode(uint8(*exitVal))
	}
	return mainer.Success
}
