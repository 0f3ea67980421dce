package memrun

import "unsafe"

// trampoline is implemented in trampoline_amd64.s: it loads stackAddr into
// both the System V (rdi) and Windows x64 (rcx) first-argument registers —
// harmless since the compiled entry (memEntry) only ever reads the one
// matching the host it was built for — then calls into codeAddr and
// returns its rax.
//
//go:noescape
func trampoline(codeAddr, stackAddr uintptr) int64

// invoke calls into the mapped entry point in code, handing it the base
// address of stack as its data-stack-base argument.
func invoke(code, stack []byte) int64 {
	return trampoline(uintptr(unsafe.Pointer(&code[0])), uintptr(unsafe.Pointer(&stack[0])))
}
