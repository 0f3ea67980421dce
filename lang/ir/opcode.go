// Package ir defines the three-address intermediate representation that
// sits between type checking and x86-64 code generation: one Opcode enum,
// one Instruction struct wide enough to hold any opcode's operands, and a
// per-function Funcode/Program pair that mirrors the source's Func.code and
// Func.funcs list.
package ir

// Opcode identifies the operation an Instruction performs. The set matches
// the three-address IR's op table one for one; see Instruction for operand
// layout.
type Opcode uint8

const (
	CONST Opcode = iota
	MOV
	BINOP
	BINOP8 // reserved, never emitted by the generator
	UNOP
	UNOP8 // reserved, never emitted by the generator
	JMPF
	JMP
	RET
	CALL
	GET_ENV
	SET_ENV
	REF_VAR
	REF_ENV
	LEA
	PEEK
	PEEK8
	POKE
	POKE8
	CAST8
	SYSCALL
	DEBUG
)

var opcodeNames = [...]string{
	CONST:   "const",
	MOV:     "mov",
	BINOP:   "binop",
	BINOP8:  "binop8",
	UNOP:    "unop",
	UNOP8:   "unop8",
	JMPF:    "jmpf",
	JMP:     "jmp",
	RET:     "ret",
	CALL:    "call",
	GET_ENV: "get_env",
	SET_ENV: "set_env",
	REF_VAR: "ref_var",
	REF_ENV: "ref_env",
	LEA:     "lea",
	PEEK:    "peek",
	PEEK8:   "peek8",
	POKE:    "poke",
	POKE8:   "poke8",
	CAST8:   "cast8",
	SYSCALL: "syscall",
	DEBUG:   "debug",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "?"
}
