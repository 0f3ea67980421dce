package codegen

import (
	"testing"

	"github.com/mna/sxcc/lang/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstZeroEncoding(t *testing.T) {
	e := NewEncoder()
	e.constInt(0, 0)
	assert.Equal(t, []byte{0x31, 0xc0, 0x48, 0x89, 0x03}, e.Buf)
}

func TestConstSmallPositiveEncoding(t *testing.T) {
	e := NewEncoder()
	e.constInt(5, 0)
	assert.Equal(t, byte(0xb8), e.Buf[0], "mov eax, imm32 opcode")
}

func TestMovSkipsNoop(t *testing.T) {
	e := NewEncoder()
	e.mov(2, 2)
	assert.Empty(t, e.Buf)
}

func TestJmpPatchedToFuncEnd(t *testing.T) {
	fn := &ir.Funcode{}
	l0 := fn.NewLabel()
	fn.Emit(ir.Instruction{Op: ir.CONST, ConstInt: 1, Dst: 0})
	fn.Emit(ir.Instruction{Op: ir.JMP, Label: l0})
	fn.SetLabel(l0)
	fn.Emit(ir.Instruction{Op: ir.RET, A1: 0})

	e := NewEncoder()
	e.Func(fn)
	e.CodeEnd()

	require.True(t, len(e.Buf) > 0)
	// the jmp operand (rel32, 4 bytes after the 0xe9 opcode) must be patched
	// to a displacement pointing at the ret that follows it; the label is
	// bound to the very next instruction, so that displacement is 0.
	jmpOpIdx := -1
	for i, b := range e.Buf {
		if b == 0xe9 {
			jmpOpIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, jmpOpIdx, 0)
	disp := int32(e.Buf[jmpOpIdx+1]) | int32(e.Buf[jmpOpIdx+2])<<8 | int32(e.Buf[jmpOpIdx+3])<<16 | int32(e.Buf[jmpOpIdx+4])<<24
	assert.Equal(t, byte(0xc3), e.Buf[jmpOpIdx+5+int(disp)], "jmp target must be the ret")
}

func TestCallPatchedToFuncOffset(t *testing.T) {
	callee := &ir.Funcode{Level: 1}
	callee.Emit(ir.Instruction{Op: ir.CONST, ConstInt: 7, Dst: 0})
	callee.Emit(ir.Instruction{Op: ir.RET, A1: 0})

	caller := &ir.Funcode{Level: 1}
	caller.Emit(ir.Instruction{Op: ir.CALL, FuncIdx: 1, ArgStart: 0, LevelCur: 1, LevelNew: 1})
	caller.Emit(ir.Instruction{Op: ir.RET, A1: -1})

	e := NewEncoder()
	e.Func(caller)
	e.Func(callee)
	e.CodeEnd()

	callOpIdx := -1
	for i, b := range e.Buf {
		if b == 0xe8 {
			callOpIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, callOpIdx, 0)
	disp := int32(e.Buf[callOpIdx+1]) | int32(e.Buf[callOpIdx+2])<<8 | int32(e.Buf[callOpIdx+3])<<16 | int32(e.Buf[callOpIdx+4])<<24
	want := int32(e.FuncOffset(1) - (callOpIdx + 5))
	assert.Equal(t, want, disp)
}

func TestStringLiteralDeduplicated(t *testing.T) {
	fn := &ir.Funcode{}
	fn.Emit(ir.Instruction{Op: ir.CONST, ConstStr: "hi", IsStrConst: true, Dst: 0})
	fn.Emit(ir.Instruction{Op: ir.CONST, ConstStr: "hi", IsStrConst: true, Dst: 1})
	fn.Emit(ir.Instruction{Op: ir.RET, A1: -1})

	e := NewEncoder()
	e.Func(fn)
	e.CodeEnd()

	count := 0
	for i := 0; i+1 < len(e.Buf); i++ {
		if e.Buf[i] == 'h' && e.Buf[i+1] == 'i' {
			count++
		}
	}
	assert.Equal(t, 1, count, "the string literal must be stored exactly once")
}
