package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Instruction is a single three-address IR instruction. Only the fields
// relevant to Op are meaningful; the rest keep their zero value. A struct
// (rather than a packed byte stream) is used because this IR is never
// serialized — it is built, walked, and lowered to machine code entirely in
// memory.
type Instruction struct {
	Op Opcode

	// BINOP/BINOP8/UNOP/UNOP8 operator token: "+", "-", "*", "/", "%", "eq",
	// "ne", "ge", "gt", "le", "lt", "and", "or", "not".
	BinOp string

	A1, A2, Dst int // operand / destination slots; RET's A1 is -1 for a void return
	Src         int // MOV/SET_ENV source slot
	Var         int // GET_ENV/SET_ENV/REF_VAR/REF_ENV variable slot, CAST8 operand, POKE* value slot
	Ptr         int // POKE*/PEEK* pointer slot

	Label int // JMP/JMPF target label id
	Scale int // LEA scale, signed

	FuncIdx  int // CALL target function index
	ArgStart int // CALL argument frame offset
	LevelCur int // CALL current lexical level
	LevelNew int // CALL callee lexical level
	LevelVar int // GET_ENV/SET_ENV/REF_ENV enclosing level

	ConstInt   int64  // CONST integer/byte value
	ConstStr   string // CONST string value
	IsStrConst bool

	SyscallNum  int
	SyscallArgs []int
}

// operandStrings renders the instruction's operands in the order they are
// documented for each opcode, so golden-file tests can compare directly
// against hand-transcribed expected output.
func (in Instruction) operandStrings() []string {
	switch in.Op {
	case CONST:
		if in.IsStrConst {
			quoted, _ := json.Marshal(in.ConstStr)
			return []string{string(quoted), strconv.Itoa(in.Dst)}
		}
		return []string{strconv.FormatInt(in.ConstInt, 10), strconv.Itoa(in.Dst)}
	case MOV:
		return []string{strconv.Itoa(in.Src), strconv.Itoa(in.Dst)}
	case BINOP, BINOP8:
		return []string{in.BinOp, strconv.Itoa(in.A1), strconv.Itoa(in.A2), strconv.Itoa(in.Dst)}
	case UNOP, UNOP8:
		return []string{in.BinOp, strconv.Itoa(in.A1), strconv.Itoa(in.Dst)}
	case JMPF:
		return []string{strconv.Itoa(in.A1), fmt.Sprintf("L%d", in.Label)}
	case JMP:
		return []string{fmt.Sprintf("L%d", in.Label)}
	case RET:
		return []string{strconv.Itoa(in.A1)}
	case CALL:
		return []string{strconv.Itoa(in.FuncIdx), strconv.Itoa(in.ArgStart), strconv.Itoa(in.LevelCur), strconv.Itoa(in.LevelNew)}
	case GET_ENV:
		return []string{strconv.Itoa(in.LevelVar), strconv.Itoa(in.Var), strconv.Itoa(in.Dst)}
	case SET_ENV:
		return []string{strconv.Itoa(in.LevelVar), strconv.Itoa(in.Var), strconv.Itoa(in.Src)}
	case REF_VAR:
		return []string{strconv.Itoa(in.Var), strconv.Itoa(in.Dst)}
	case REF_ENV:
		return []string{strconv.Itoa(in.LevelVar), strconv.Itoa(in.Var), strconv.Itoa(in.Dst)}
	case LEA:
		return []string{strconv.Itoa(in.A1), strconv.Itoa(in.A2), strconv.Itoa(in.Scale), strconv.Itoa(in.Dst)}
	case PEEK, PEEK8:
		return []string{strconv.Itoa(in.Ptr), strconv.Itoa(in.Dst)}
	case POKE, POKE8:
		return []string{strconv.Itoa(in.Ptr), strconv.Itoa(in.Var)}
	case CAST8:
		return []string{strconv.Itoa(in.Var)}
	case SYSCALL:
		out := []string{strconv.Itoa(in.Dst), strconv.Itoa(in.SyscallNum)}
		for _, a := range in.SyscallArgs {
			out = append(out, strconv.Itoa(a))
		}
		return out
	case DEBUG:
		return nil
	default:
		return nil
	}
}

func (in Instruction) String() string {
	parts := append([]string{in.Op.String()}, in.operandStrings()...)
	return strings.Join(parts, " ")
}
