package cpu

import (
	"fmt"
	"iter"
)

// CodeOp is a decoded operation.
type CodeOp int

const (
	OP_INVALID   = CodeOp(0)  // .word
	OP_RET       = CodeOp(1)  // ret
	OP_JP        = CodeOp(2)  // jp
	OP_CALL      = CodeOp(3)  // call
	OP_SE_IMM    = CodeOp(4)  // se
	OP_SNE_IMM   = CodeOp(5)  // sne
	OP_SE_REG    = CodeOp(6)  // se
	OP_LD_IMM    = CodeOp(7)  // ld
	OP_ADD_IMM   = CodeOp(8)  // add
	OP_LD_REG    = CodeOp(9)  // ld
	OP_OR        = CodeOp(10) // or
	OP_AND       = CodeOp(11) // and
	OP_XOR       = CodeOp(12) // xor
	OP_ADD_REG   = CodeOp(13) // add
	OP_SUB       = CodeOp(14) // sub
	OP_SHR       = CodeOp(15) // shr
	OP_SUBN      = CodeOp(16) // subn
	OP_SHL       = CodeOp(17) // shl
	OP_LD_I      = CodeOp(18) // ld
	OP_JP_V0     = CodeOp(19) // jp
	OP_RND       = CodeOp(20) // rnd
	OP_LD_VX_DT  = CodeOp(21) // ld
	OP_LD_DT_VX  = CodeOp(22) // ld
	OP_LD_ST_VX  = CodeOp(23) // ld
	OP_ADD_I     = CodeOp(24) // add
	OP_LD_B      = CodeOp(25) // ld
	OP_LD_MEM_VX = CodeOp(26) // ld
	OP_LD_VX_MEM = CodeOp(27) // ld
)

// CodeShape is the operand layout of an instruction.
type CodeShape int

const (
	SHAPE_NONE    = CodeShape(0) // no operands
	SHAPE_ADDR    = CodeShape(1) // nnn
	SHAPE_REG_IMM = CodeShape(2) // x, kk
	SHAPE_REG_REG = CodeShape(3) // x, y
	SHAPE_REG     = CodeShape(4) // x
)

type opInfo struct {
	name  string
	shape CodeShape
	base  uint16
}

var opTable = [...]opInfo{
	OP_INVALID:   {".word", SHAPE_NONE, 0x0000},
	OP_RET:       {"ret", SHAPE_NONE, 0x00ee},
	OP_JP:        {"jp", SHAPE_ADDR, 0x1000},
	OP_CALL:      {"call", SHAPE_ADDR, 0x2000},
	OP_SE_IMM:    {"se", SHAPE_REG_IMM, 0x3000},
	OP_SNE_IMM:   {"sne", SHAPE_REG_IMM, 0x4000},
	OP_SE_REG:    {"se", SHAPE_REG_REG, 0x5000},
	OP_LD_IMM:    {"ld", SHAPE_REG_IMM, 0x6000},
	OP_ADD_IMM:   {"add", SHAPE_REG_IMM, 0x7000},
	OP_LD_REG:    {"ld", SHAPE_REG_REG, 0x8000},
	OP_OR:        {"or", SHAPE_REG_REG, 0x8001},
	OP_AND:       {"and", SHAPE_REG_REG, 0x8002},
	OP_XOR:       {"xor", SHAPE_REG_REG, 0x8003},
	OP_ADD_REG:   {"add", SHAPE_REG_REG, 0x8004},
	OP_SUB:       {"sub", SHAPE_REG_REG, 0x8005},
	OP_SHR:       {"shr", SHAPE_REG, 0x8006},
	OP_SUBN:      {"subn", SHAPE_REG_REG, 0x8007},
	OP_SHL:       {"shl", SHAPE_REG, 0x800e},
	OP_LD_I:      {"ld", SHAPE_ADDR, 0xa000},
	OP_JP_V0:     {"jp", SHAPE_ADDR, 0xb000},
	OP_RND:       {"rnd", SHAPE_REG_IMM, 0xc000},
	OP_LD_VX_DT:  {"ld", SHAPE_REG, 0xf007},
	OP_LD_DT_VX:  {"ld", SHAPE_REG, 0xf015},
	OP_LD_ST_VX:  {"ld", SHAPE_REG, 0xf018},
	OP_ADD_I:     {"add", SHAPE_REG, 0xf01e},
	OP_LD_B:      {"ld", SHAPE_REG, 0xf033},
	OP_LD_MEM_VX: {"ld", SHAPE_REG, 0xf055},
	OP_LD_VX_MEM: {"ld", SHAPE_REG, 0xf065},
}

func (op CodeOp) info() opInfo {
	if op < 0 || int(op) >= len(opTable) {
		return opTable[OP_INVALID]
	}
	return opTable[op]
}

// String returns the assembler mnemonic.
func (op CodeOp) String() string {
	return op.info().name
}

// Shape returns the operand layout of the operation.
func (op CodeOp) Shape() CodeShape {
	return op.info().shape
}

// Code is a single 16-bit instruction word.
type Code uint16

// Class returns the operation class (top nibble).
func (code Code) Class() uint8 {
	return uint8((code >> 12) & 0xf)
}

// X returns the first register index (second nibble).
func (code Code) X() uint8 {
	return uint8((code >> 8) & 0xf)
}

// Y returns the second register index (third nibble).
func (code Code) Y() uint8 {
	return uint8((code >> 4) & 0xf)
}

// N returns the sub-operation selector (bottom nibble).
func (code Code) N() uint8 {
	return uint8(code & 0xf)
}

// KK returns the 8-bit immediate (low byte).
func (code Code) KK() uint8 {
	return uint8(code & 0xff)
}

// NNN returns the 12-bit address.
func (code Code) NNN() uint16 {
	return uint16(code & 0xfff)
}

// Instruction is a decoded instruction word. Only the fields selected by
// Op.Shape() carry meaning, except that shr and shl keep their unused Y.
type Instruction struct {
	Op   CodeOp
	X    uint8
	Y    uint8
	KK   uint8
	Addr uint16
}

// Decode splits the instruction word into its operation and operands.
// Words that name no operation return ok == false.
func (code Code) Decode() (inst Instruction, ok bool) {
	op := OP_INVALID

	switch code.Class() {
	case 0x0:
		if code == 0x00ee {
			op = OP_RET
		}
	case 0x1:
		op = OP_JP
	case 0x2:
		op = OP_CALL
	case 0x3:
		op = OP_SE_IMM
	case 0x4:
		op = OP_SNE_IMM
	case 0x5:
		// Only 5xy0; other low nibbles are unrecognized.
		if code.N() == 0x0 {
			op = OP_SE_REG
		}
	case 0x6:
		op = OP_LD_IMM
	case 0x7:
		op = OP_ADD_IMM
	case 0x8:
		switch code.N() {
		case 0x0:
			op = OP_LD_REG
		case 0x1:
			op = OP_OR
		case 0x2:
			op = OP_AND
		case 0x3:
			op = OP_XOR
		case 0x4:
			op = OP_ADD_REG
		case 0x5:
			op = OP_SUB
		case 0x6:
			op = OP_SHR
		case 0x7:
			op = OP_SUBN
		case 0xe:
			op = OP_SHL
		}
	case 0xa:
		op = OP_LD_I
	case 0xb:
		op = OP_JP_V0
	case 0xc:
		op = OP_RND
	case 0xf:
		switch code.KK() {
		case 0x07:
			op = OP_LD_VX_DT
		case 0x15:
			op = OP_LD_DT_VX
		case 0x18:
			op = OP_LD_ST_VX
		case 0x1e:
			op = OP_ADD_I
		case 0x33:
			op = OP_LD_B
		case 0x55:
			op = OP_LD_MEM_VX
		case 0x65:
			op = OP_LD_VX_MEM
		}
	}

	if op == OP_INVALID {
		return
	}

	inst.Op = op
	switch op.Shape() {
	case SHAPE_ADDR:
		inst.Addr = code.NNN()
	case SHAPE_REG_IMM:
		inst.X = code.X()
		inst.KK = code.KK()
	case SHAPE_REG_REG:
		inst.X = code.X()
		inst.Y = code.Y()
	case SHAPE_REG:
		inst.X = code.X()
		if code.Class() == 0x8 {
			inst.Y = code.Y()
		}
	}

	return inst, true
}

// Code encodes the instruction back into a word.
func (inst Instruction) Code() Code {
	info := inst.Op.info()
	word := info.base

	switch info.shape {
	case SHAPE_ADDR:
		word |= inst.Addr & 0xfff
	case SHAPE_REG_IMM:
		word |= uint16(inst.X&0xf)<<8 | uint16(inst.KK)
	case SHAPE_REG_REG:
		word |= uint16(inst.X&0xf)<<8 | uint16(inst.Y&0xf)<<4
	case SHAPE_REG:
		word |= uint16(inst.X&0xf)<<8 | uint16(inst.Y&0xf)<<4
	}

	return Code(word)
}

// MakeCode encodes an operation without operands.
func MakeCode(op CodeOp) Code {
	return Instruction{Op: op}.Code()
}

// MakeCodeAddr encodes an operation on a 12-bit address.
func MakeCodeAddr(op CodeOp, addr uint16) Code {
	return Instruction{Op: op, Addr: addr}.Code()
}

// MakeCodeRegImm encodes an operation on a register and an 8-bit immediate.
func MakeCodeRegImm(op CodeOp, x uint8, kk uint8) Code {
	return Instruction{Op: op, X: x, KK: kk}.Code()
}

// MakeCodeRegReg encodes an operation on two registers.
func MakeCodeRegReg(op CodeOp, x uint8, y uint8) Code {
	return Instruction{Op: op, X: x, Y: y}.Code()
}

// MakeCodeReg encodes an operation on a single register.
func MakeCodeReg(op CodeOp, x uint8) Code {
	return Instruction{Op: op, X: x}.Code()
}

// String returns the assembly language representation of the instruction.
func (inst Instruction) String() (out string) {
	name := inst.Op.String()

	switch inst.Op {
	case OP_INVALID:
		out = fmt.Sprintf("%v 0x%04x", name, uint16(inst.Code()))
	case OP_RET:
		out = name
	case OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03x", name, inst.Addr)
	case OP_JP_V0:
		out = fmt.Sprintf("%v v0, 0x%03x", name, inst.Addr)
	case OP_LD_I:
		out = fmt.Sprintf("%v i, 0x%03x", name, inst.Addr)
	case OP_SE_IMM, OP_SNE_IMM, OP_LD_IMM, OP_ADD_IMM, OP_RND:
		out = fmt.Sprintf("%v v%x, 0x%02x", name, inst.X, inst.KK)
	case OP_SHR, OP_SHL:
		if inst.Y == 0 {
			out = fmt.Sprintf("%v v%x", name, inst.X)
		} else {
			out = fmt.Sprintf("%v v%x, v%x", name, inst.X, inst.Y)
		}
	case OP_LD_VX_DT:
		out = fmt.Sprintf("%v v%x, dt", name, inst.X)
	case OP_LD_DT_VX:
		out = fmt.Sprintf("%v dt, v%x", name, inst.X)
	case OP_LD_ST_VX:
		out = fmt.Sprintf("%v st, v%x", name, inst.X)
	case OP_ADD_I:
		out = fmt.Sprintf("%v i, v%x", name, inst.X)
	case OP_LD_B:
		out = fmt.Sprintf("%v b, v%x", name, inst.X)
	case OP_LD_MEM_VX:
		out = fmt.Sprintf("%v [i], v%x", name, inst.X)
	case OP_LD_VX_MEM:
		out = fmt.Sprintf("%v v%x, [i]", name, inst.X)
	default:
		out = fmt.Sprintf("%v v%x, v%x", name, inst.X, inst.Y)
	}

	return
}

// String returns the disassembly of the word. Unrecognized words are
// rendered as a .word data directive.
func (code Code) String() string {
	inst, ok := code.Decode()
	if !ok {
		return fmt.Sprintf(".word 0x%04x", uint16(code))
	}
	return inst.String()
}

// Disassemble iterates over the big-endian instruction words in data,
// labelled with their addresses starting at origin. A trailing odd byte
// is returned as the high byte of a final word.
func Disassemble(data []uint8, origin uint16) iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for n := 0; n < len(data); n += 2 {
			word := uint16(data[n]) << 8
			if n+1 < len(data) {
				word |= uint16(data[n+1])
			}
			if !yield(origin+uint16(n), Code(word)) {
				return
			}
		}
	}
}
