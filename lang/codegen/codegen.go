// Package codegen lowers lang/ir instructions one to one into x86-64 machine
// code under a custom calling convention: the current function's data stack
// lives in rbx (slot k at [rbx+8k]), and a shadow stack of outer-frame
// pointers is pushed onto the machine rsp stack across calls so a nested
// function can reach its lexical ancestors' frames without heap-boxed
// closures. Forward jump targets, call targets and string-literal
// displacements are recorded in patch tables and backfilled once the
// affected byte offsets are final.
package codegen

import (
	"encoding/binary"
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/sxcc/lang/ir"
)

// register encodings, x86-64 ModRM/REX numbering.
const (
	regA  = 0
	regC  = 1
	regD  = 2
	regB  = 3
	regSP = 4
	regBP = 5
	regSI = 6
	regDI = 7
)

// Encoder accumulates machine code for a whole program: every function's
// body, patch tables for forward label/call references, and deduplicated
// string-literal storage.
type Encoder struct {
	Buf []byte

	// Alignment is the byte boundary each function (and the string pool) is
	// padded to with int3 filler. Zero means the default of 16.
	Alignment int

	jmps    *swiss.Map[int, []int]    // label id -> patch offsets
	calls   *swiss.Map[int, []int]    // function index -> patch offsets
	strings *swiss.Map[string, []int] // string literal -> patch offsets

	func2off []int // function index -> code offset
}

// NewEncoder returns an empty Encoder with the default 16-byte alignment.
func NewEncoder() *Encoder {
	return &Encoder{
		Alignment: 16,
		jmps:      swiss.NewMap[int, []int](8),
		calls:     swiss.NewMap[int, []int](8),
		strings:   swiss.NewMap[string, []int](8),
	}
}

// AddCallPatch records a CALL-instruction patch site for funcIdx at buffer
// offset off, for callers (e.g. the ELF bootstrap stub) that emit a call
// outside of the normal per-instruction Func lowering.
func (e *Encoder) AddCallPatch(funcIdx, off int) {
	addPatch(e.calls, funcIdx, off)
}

func addPatch[K comparable](m *swiss.Map[K, []int], key K, off int) {
	list, _ := m.Get(key)
	list = append(list, off)
	m.Put(key, list)
}

func (e *Encoder) i8(i int8)   { e.Buf = append(e.Buf, byte(i)) }
func (e *Encoder) i32(i int32) { e.Buf = binary.LittleEndian.AppendUint32(e.Buf, uint32(i)) }
func (e *Encoder) i64(i int64) { e.Buf = binary.LittleEndian.AppendUint64(e.Buf, uint64(i)) }

// asmDisp emits `lead` (an optional REX prefix plus opcode byte(s)) followed
// by a ModRM byte and displacement encoding `reg, [rm + disp]` or its
// store-direction counterpart. rm must never be the stack-pointer register
// (RSP addressing needs a SIB byte this encoder never emits).
func (e *Encoder) asmDisp(lead []byte, reg, rm int, disp int32) {
	if reg >= 16 || rm >= 16 || rm == regSP {
		panic("internal error: bad asmDisp operand")
	}
	lead = append([]byte(nil), lead...)
	if reg >= 8 || rm >= 8 {
		if lead[0]>>4 != 0b0100 {
			panic("internal error: asmDisp extended register without REX prefix")
		}
		lead[0] |= byte(reg>>3) << 2
		lead[0] |= byte(rm >> 3)
		reg &= 0b111
		rm &= 0b111
	}
	e.Buf = append(e.Buf, lead...)

	var mod byte
	switch {
	case disp == 0:
		mod = 0
	case disp >= -128 && disp < 128:
		mod = 1
	default:
		mod = 2
	}
	e.Buf = append(e.Buf, (mod<<6)|(byte(reg)<<3)|byte(rm))
	switch mod {
	case 1:
		e.i8(int8(disp))
	case 2:
		e.i32(disp)
	}
}

// asmLoad emits `mov reg, [rm + disp]`.
func (e *Encoder) asmLoad(reg, rm int, disp int32) {
	e.asmDisp([]byte{0x48, 0x8b}, reg, rm, disp)
}

// asmStore emits `mov [rm + disp], reg`.
func (e *Encoder) asmStore(rm int, disp int32, reg int) {
	e.asmDisp([]byte{0x48, 0x89}, reg, rm, disp)
}

func (e *Encoder) storeRax(dst int) { e.asmStore(regB, int32(dst)*8, regA) }
func (e *Encoder) loadRax(src int)  { e.asmLoad(regA, regB, int32(src)*8) }

func (e *Encoder) constInt(val int64, dst int) {
	switch {
	case val == 0:
		e.Buf = append(e.Buf, 0x31, 0xc0) // xor eax, eax
	case val == -1:
		e.Buf = append(e.Buf, 0x48, 0x83, 0xc8, 0xff) // or rax, -1
	case val>>31 == 0:
		e.Buf = append(e.Buf, 0xb8) // mov eax, imm32
		e.i32(int32(val))
	case val>>31 == -1:
		e.Buf = append(e.Buf, 0x48, 0xc7, 0xc0) // mov rax, imm32 (sign-extended)
		e.i32(int32(val))
	default:
		e.Buf = append(e.Buf, 0x48, 0xb8) // mov rax, imm64
		e.i64(val)
	}
	e.storeRax(dst)
}

func (e *Encoder) constStr(s string, dst int) {
	e.Buf = append(e.Buf, 0x48, 0x8d, 0x05) // lea rax, [rip + disp32]
	addPatch(e.strings, s, len(e.Buf))
	e.Buf = append(e.Buf, 0, 0, 0, 0)
	e.storeRax(dst)
}

func (e *Encoder) mov(src, dst int) {
	if src == dst {
		return
	}
	e.loadRax(src)
	e.storeRax(dst)
}

func (e *Encoder) binop(op string, a1, a2, dst int) {
	e.loadRax(a1)
	switch op {
	case "+":
		e.asmDisp([]byte{0x48, 0x03}, regA, regB, int32(a2)*8)
	case "-":
		e.asmDisp([]byte{0x48, 0x2b}, regA, regB, int32(a2)*8)
	case "*":
		e.asmDisp([]byte{0x48, 0x0f, 0xaf}, regA, regB, int32(a2)*8)
	case "/", "%":
		e.Buf = append(e.Buf, 0x31, 0xd2) // xor edx, edx
		e.Buf = append(e.Buf, 0x48, 0xf7, 0xbb)
		e.i32(int32(a2) * 8)
		if op == "%" {
			e.Buf = append(e.Buf, 0x48, 0x89, 0xd0) // mov rax, rdx
		}
	case "eq", "ne", "ge", "gt", "le", "lt":
		e.asmDisp([]byte{0x48, 0x3b}, regA, regB, int32(a2)*8) // cmp rax, [rbx+a2*8]
		e.Buf = append(e.Buf, cmpSetcc[op]...)
		e.Buf = append(e.Buf, 0x0f, 0xb6, 0xc0) // movzx eax, al
	case "and":
		e.Buf = append(e.Buf, 0x48, 0x85, 0xc0, 0x0f, 0x95, 0xc0) // test rax,rax; setne al
		e.asmLoad(regD, regB, int32(a2)*8)
		e.Buf = append(e.Buf, 0x48, 0x85, 0xd2, 0x0f, 0x95, 0xc2, 0x21, 0xd0, 0x0f, 0xb6, 0xc0)
	case "or":
		e.asmDisp([]byte{0x48, 0x0b}, regA, regB, int32(a2)*8)
		e.Buf = append(e.Buf, 0x0f, 0x95, 0xc0, 0x0f, 0xb6, 0xc0)
	default:
		panic(fmt.Sprintf("internal error: unhandled binop %q", op))
	}
	e.storeRax(dst)
}

var cmpSetcc = map[string][]byte{
	"eq": {0x0f, 0x94, 0xc0},
	"ne": {0x0f, 0x95, 0xc0},
	"ge": {0x0f, 0x9d, 0xc0},
	"gt": {0x0f, 0x9f, 0xc0},
	"le": {0x0f, 0x9e, 0xc0},
	"lt": {0x0f, 0x9c, 0xc0},
}

func (e *Encoder) unop(op string, a1, dst int) {
	e.loadRax(a1)
	switch op {
	case "-":
		e.Buf = append(e.Buf, 0x48, 0xf7, 0xd8) // neg rax
	case "not":
		e.Buf = append(e.Buf, 0x48, 0x85, 0xc0, 0x0f, 0x94, 0xc0, 0x0f, 0xb6, 0xc0)
	default:
		panic(fmt.Sprintf("internal error: unhandled unop %q", op))
	}
	e.storeRax(dst)
}

func (e *Encoder) jmpf(a1, label int) {
	e.loadRax(a1)
	e.Buf = append(e.Buf, 0x48, 0x85, 0xc0, 0x0f, 0x84) // test rax,rax; je rel32
	addPatch(e.jmps, label, len(e.Buf))
	e.Buf = append(e.Buf, 0, 0, 0, 0)
}

func (e *Encoder) jmp(label int) {
	e.Buf = append(e.Buf, 0xe9) // jmp rel32
	addPatch(e.jmps, label, len(e.Buf))
	e.Buf = append(e.Buf, 0, 0, 0, 0)
}

func (e *Encoder) asmCall(funcIdx int) {
	e.Buf = append(e.Buf, 0xe8) // call rel32
	addPatch(e.calls, funcIdx, len(e.Buf))
	e.Buf = append(e.Buf, 0, 0, 0, 0)
}

func (e *Encoder) call(funcIdx, argStart, levelCur, levelNew int) {
	if levelCur < 1 || levelNew < 1 || levelNew > levelCur+1 {
		panic("internal error: bad call levels")
	}
	if levelNew > levelCur {
		e.Buf = append(e.Buf, 0x53) // push rbx
	}
	for i := 0; i < min(levelNew, levelCur)-1; i++ {
		e.Buf = append(e.Buf, 0xff, 0xb4, 0x24) // push [rsp + (levelNew-1)*8]
		e.i32(int32(levelNew-1) * 8)
	}
	if argStart != 0 {
		e.Buf = append(e.Buf, 0x48, 0x81, 0xc3) // add rbx, argStart*8
		e.i32(int32(argStart) * 8)
	}
	e.asmCall(funcIdx)
	if argStart != 0 {
		e.Buf = append(e.Buf, 0x48, 0x81, 0xc3) // add rbx, -argStart*8
		e.i32(int32(-argStart) * 8)
	}
	e.Buf = append(e.Buf, 0x48, 0x81, 0xc4) // add rsp, (levelNew-1)*8
	e.i32(int32(levelNew-1) * 8)
}

func (e *Encoder) ret(a1 int) {
	if a1 > 0 {
		e.loadRax(a1)
		e.storeRax(0)
	}
	e.Buf = append(e.Buf, 0xc3)
}

func (e *Encoder) loadEnvAddr(levelVar int) {
	e.Buf = append(e.Buf, 0x48, 0x8b, 0x84, 0x24) // mov rax, [rsp + levelVar*8]
	e.i32(int32(levelVar) * 8)
}

func (e *Encoder) getEnv(levelVar, v, dst int) {
	e.loadEnvAddr(levelVar)
	e.asmLoad(regA, regA, int32(v)*8)
	e.storeRax(dst)
}

func (e *Encoder) setEnv(levelVar, v, src int) {
	e.loadEnvAddr(levelVar)
	e.asmLoad(regD, regB, int32(src)*8)
	e.asmStore(regA, int32(v)*8, regD)
}

func (e *Encoder) lea(a1, a2, scale, dst int) {
	e.loadRax(a1)
	e.asmLoad(regD, regB, int32(a2)*8)
	if scale < 0 {
		e.Buf = append(e.Buf, 0x48, 0xf7, 0xda) // neg rdx
	}
	switch abs(scale) {
	case 1:
		e.Buf = append(e.Buf, 0x48, 0x8d, 0x04, 0x10)
	case 2:
		e.Buf = append(e.Buf, 0x48, 0x8d, 0x04, 0x50)
	case 4:
		e.Buf = append(e.Buf, 0x48, 0x8d, 0x04, 0x90)
	case 8:
		e.Buf = append(e.Buf, 0x48, 0x8d, 0x04, 0xd0)
	default:
		panic("internal error: bad lea scale")
	}
	e.storeRax(dst)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func (e *Encoder) peek(v, dst int) {
	e.loadRax(v)
	e.asmLoad(regA, regA, 0)
	e.storeRax(dst)
}

func (e *Encoder) peek8(v, dst int) {
	e.loadRax(v)
	e.Buf = append(e.Buf, 0x0f, 0xb6, 0x00) // movzx eax, byte ptr [rax]
	e.storeRax(dst)
}

func (e *Encoder) poke(ptr, val int) {
	e.loadRax(val)
	e.asmLoad(regD, regB, int32(ptr)*8)
	e.asmStore(regD, 0, regA)
}

func (e *Encoder) poke8(ptr, val int) {
	e.loadRax(val)
	e.asmLoad(regD, regB, int32(ptr)*8)
	e.Buf = append(e.Buf, 0x88, 0x02) // mov [rdx], al
}

func (e *Encoder) refVar(v, dst int) {
	e.Buf = append(e.Buf, 0x48, 0x8d, 0x83) // lea rax, [rbx + v*8]
	e.i32(int32(v) * 8)
	e.storeRax(dst)
}

func (e *Encoder) refEnv(levelVar, v, dst int) {
	e.loadEnvAddr(levelVar)
	e.Buf = append(e.Buf, 0x48, 0x05) // add rax, v*8
	e.i32(int32(v) * 8)
	e.storeRax(dst)
}

func (e *Encoder) cast8(v int) {
	e.asmDisp([]byte{0x48, 0x81}, 4, regB, int32(v)*8) // and qword [rbx+v*8], 0xff
	e.i32(0xff)
}

var syscallArgRegs = []int{regDI, regSI, regD, 10, 8, 9}

func (e *Encoder) syscall(dst, num int, args []int) {
	if len(args) > len(syscallArgRegs) {
		panic("internal error: too many syscall arguments")
	}
	e.Buf = append(e.Buf, 0xb8) // mov eax, imm32
	e.i32(int32(num))
	for i, a := range args {
		e.asmLoad(syscallArgRegs[i], regB, int32(a)*8)
	}
	e.Buf = append(e.Buf, 0x0f, 0x05) // syscall
	e.storeRax(dst)
}

func (e *Encoder) debug() {
	e.Buf = append(e.Buf, 0xcc) // int3
}

// Func lowers one function's instructions and records its start offset for
// later CALL patching.
func (e *Encoder) Func(fn *ir.Funcode) {
	e.Padding()
	e.func2off = append(e.func2off, len(e.Buf))
	pos2off := make([]int, len(fn.Code))

	for i, in := range fn.Code {
		pos2off[i] = len(e.Buf)
		e.emit(in)
	}

	e.jmps.Iter(func(label int, offs []int) bool {
		dstOff := pos2off[fn.Labels[label]]
		for _, patchOff := range offs {
			e.patchAddr(patchOff, dstOff)
		}
		return false
	})
	e.jmps.Clear()
}

func (e *Encoder) emit(in ir.Instruction) {
	switch in.Op {
	case ir.CONST:
		if in.IsStrConst {
			e.constStr(in.ConstStr, in.Dst)
		} else {
			e.constInt(in.ConstInt, in.Dst)
		}
	case ir.MOV:
		e.mov(in.Src, in.Dst)
	case ir.BINOP:
		e.binop(in.BinOp, in.A1, in.A2, in.Dst)
	case ir.UNOP:
		e.unop(in.BinOp, in.A1, in.Dst)
	case ir.JMPF:
		e.jmpf(in.A1, in.Label)
	case ir.JMP:
		e.jmp(in.Label)
	case ir.RET:
		e.ret(in.A1)
	case ir.CALL:
		e.call(in.FuncIdx, in.ArgStart, in.LevelCur, in.LevelNew)
	case ir.GET_ENV:
		e.getEnv(in.LevelVar, in.Var, in.Dst)
	case ir.SET_ENV:
		e.setEnv(in.LevelVar, in.Var, in.Src)
	case ir.REF_VAR:
		e.refVar(in.Var, in.Dst)
	case ir.REF_ENV:
		e.refEnv(in.LevelVar, in.Var, in.Dst)
	case ir.LEA:
		e.lea(in.A1, in.A2, in.Scale, in.Dst)
	case ir.PEEK:
		e.peek(in.Ptr, in.Dst)
	case ir.PEEK8:
		e.peek8(in.Ptr, in.Dst)
	case ir.POKE:
		e.poke(in.Ptr, in.Var)
	case ir.POKE8:
		e.poke8(in.Ptr, in.Var)
	case ir.CAST8:
		e.cast8(in.Var)
	case ir.SYSCALL:
		e.syscall(in.Dst, in.SyscallNum, in.SyscallArgs)
	case ir.DEBUG:
		e.debug()
	case ir.BINOP8, ir.UNOP8:
		panic("internal error: binop8/unop8 reserved, never emitted")
	default:
		panic(fmt.Sprintf("internal error: unhandled opcode %v", in.Op))
	}
}

// patchAddr backfills a 4-byte rip-relative displacement at patchOff so it
// points at dstOff.
func (e *Encoder) patchAddr(patchOff, dstOff int) {
	srcOff := patchOff + 4
	rel := int32(dstOff - srcOff)
	binary.LittleEndian.PutUint32(e.Buf[patchOff:patchOff+4], uint32(rel))
}

// Padding writes an int3 marker followed by zero or more int3 filler bytes
// up to the next alignment-byte boundary, so function starts are easy to
// spot in a disassembly.
func (e *Encoder) Padding() {
	alignment := e.Alignment
	if alignment <= 0 {
		alignment = 16
	}
	e.Buf = append(e.Buf, 0xcc)
	for len(e.Buf)%alignment != 0 {
		e.Buf = append(e.Buf, 0xcc)
	}
}

// CodeEnd backfills every CALL target and appends deduplicated string
// literal bytes, patching their lea references to point at the appended
// copy. Must run once, after every function has been lowered.
func (e *Encoder) CodeEnd() {
	e.calls.Iter(func(funcIdx int, offs []int) bool {
		dstOff := e.func2off[funcIdx]
		for _, patchOff := range offs {
			e.patchAddr(patchOff, dstOff)
		}
		return false
	})
	e.calls.Clear()

	e.Padding()
	e.strings.Iter(func(s string, offs []int) bool {
		dstOff := len(e.Buf)
		for _, patchOff := range offs {
			e.patchAddr(patchOff, dstOff)
		}
		e.Buf = append(e.Buf, []byte(s)...)
		e.Buf = append(e.Buf, 0)
		return false
	})
	e.strings.Clear()
}

// FuncOffset returns the code offset of function idx, valid only after its
// Func call has run.
func (e *Encoder) FuncOffset(idx int) int { return e.func2off[idx] }
