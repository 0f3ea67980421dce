package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelBindingProperty(t *testing.T) {
	fn := &Funcode{}
	l0 := fn.NewLabel()
	fn.Emit(Instruction{Op: CONST, ConstInt: 1, Dst: 0})
	fn.Emit(Instruction{Op: JMPF, A1: 0, Label: l0})
	assert.False(t, fn.AllLabelsBound(), "label not yet bound")
	fn.SetLabel(l0)
	assert.True(t, fn.AllLabelsBound())
}

func TestDumpTextConst(t *testing.T) {
	fn := &Funcode{}
	fn.Emit(Instruction{Op: CONST, ConstInt: 1, Dst: 0})
	fn.Emit(Instruction{Op: RET, A1: 0})
	p := &Program{Funcs: []*Funcode{fn}}
	want := "func0:\n    const 1 0\n    ret 0\n"
	assert.Equal(t, want, p.DumpText())
}

func TestDumpTextIfElse(t *testing.T) {
	fn := &Funcode{}
	lEnd := fn.NewLabel()
	lElse := fn.NewLabel()
	fn.Emit(Instruction{Op: CONST, ConstInt: 1, Dst: 0})
	fn.Emit(Instruction{Op: JMPF, A1: 0, Label: lElse})
	fn.Emit(Instruction{Op: CONST, ConstInt: 2, Dst: 0})
	fn.Emit(Instruction{Op: JMP, Label: lEnd})
	fn.SetLabel(lElse)
	fn.Emit(Instruction{Op: CONST, ConstInt: 3, Dst: 0})
	fn.SetLabel(lEnd)
	fn.Emit(Instruction{Op: RET, A1: 0})
	p := &Program{Funcs: []*Funcode{fn}}
	want := "func0:\n" +
		"    const 1 0\n" +
		"    jmpf 0 L1\n" +
		"    const 2 0\n" +
		"    jmp L0\n" +
		"L1:\n" +
		"    const 3 0\n" +
		"L0:\n" +
		"    ret 0\n"
	assert.Equal(t, want, p.DumpText())
}
