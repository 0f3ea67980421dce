// Package memrun implements the in-memory runner: it lowers a compiled
// program to raw x86-64 bytes the same way lang/elfwriter does for the ELF
// target, but instead of wrapping them in an executable file it maps them
// directly into the host process as executable memory and calls into them
// as a native function.
package memrun

import (
	"fmt"
	"runtime"

	"github.com/mna/sxcc/lang/codegen"
	"github.com/mna/sxcc/lang/ir"
)

const (
	stackSize = 0x800000 // 8 MiB data stack, same as lang/elfwriter
	guardSize = 0x1000
)

// Compile lowers prog to machine code for direct native invocation: a small
// entry stub followed by every function's body. The stub reads the
// caller-supplied
// data-stack base from whichever register the host platform's calling
// convention places a function's first argument in — rdi on the System V
// ABI (Linux, macOS, ...), rcx on the Windows x64 ABI — so the mapped
// function is callable by any native caller following that convention, not
// only by this package's own Run.
func Compile(prog *ir.Program, alignment int) []byte {
	enc := codegen.NewEncoder()
	if alignment > 0 {
		enc.Alignment = alignment
	}
	memEntry(enc)
	for _, fn := range prog.Funcs {
		enc.Func(fn)
	}
	enc.CodeEnd()
	return enc.Buf
}

// memEntry emits: push rbx; mov rbx, <arg>; call main; mov rax, [rbx];
// pop rbx; ret — the native entry point's whole body.
func memEntry(enc *codegen.Encoder) {
	enc.Buf = append(enc.Buf, 0x53) // push rbx
	if runtime.GOOS == "windows" {
		enc.Buf = append(enc.Buf, 0x48, 0x89, 0xcb) // mov rbx, rcx
	} else {
		enc.Buf = append(enc.Buf, 0x48, 0x89, 0xfb) // mov rbx, rdi
	}
	enc.Buf = append(enc.Buf, 0xe8) // call rel32 (function 0, "main")
	enc.AddCallPatch(0, len(enc.Buf))
	enc.Buf = append(enc.Buf, 0, 0, 0, 0)
	enc.Buf = append(enc.Buf, 0x48, 0x8b, 0x03) // mov rax, [rbx]
	enc.Buf = append(enc.Buf, 0x5b)             // pop rbx
	enc.Buf = append(enc.Buf, 0xc3)             // ret
}

// Program is a compiled function mapped into the host process, ready to be
// invoked as a native `int64_t (*)(void *data_stack_base)` call.
type Program struct {
	code  []byte // RX (was RW during the copy), holds the machine code
	stack []byte // RW, the 8 MiB data stack plus its trailing guard page
}

// Load maps code into executable memory and allocates its 8 MiB data stack
// with a guard page immediately past the usable region — mirroring
// lang/elfwriter's bootstrap stub's own mmap+mprotect sequence, but
// performed here by the host process instead of by emitted instructions.
func Load(code []byte) (*Program, error) {
	codePage, err := allocRW(len(code))
	if err != nil {
		return nil, fmt.Errorf("memrun: map code: %w", err)
	}
	copy(codePage, code)
	if err := protectRX(codePage); err != nil {
		release(codePage)
		return nil, fmt.Errorf("memrun: mark code executable: %w", err)
	}

	stack, err := allocRW(stackSize + guardSize)
	if err != nil {
		release(codePage)
		return nil, fmt.Errorf("memrun: map data stack: %w", err)
	}
	if err := protectNone(stack[stackSize:]); err != nil {
		release(codePage)
		release(stack)
		return nil, fmt.Errorf("memrun: guard data stack: %w", err)
	}

	return &Program{code: codePage, stack: stack}, nil
}

// Run invokes the mapped entry point and returns slot 0 of the data stack
// after the compiled `main` returns.
func (p *Program) Run() int64 {
	return invoke(p.code, p.stack)
}

// Close releases the mapped code and data-stack regions. Safe to call more
// than once; the host must call it on every exit path, including after the
// invoked program terminates abnormally (e.g. a guard-page fault).
func (p *Program) Close() error {
	var err error
	if p.code != nil {
		if e := release(p.code); e != nil {
			err = e
		}
		p.code = nil
	}
	if p.stack != nil {
		if e := release(p.stack); e != nil {
			err = e
		}
		p.stack = nil
	}
	return err
}
