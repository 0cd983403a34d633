package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Words: []string{"ld", "v0", "0x10"},
				Codes: []Code{MakeCodeRegImm(OP_LD_IMM, 0, 0x10)}},
			{LineNo: 2, Addr: 0x202, Words: []string{"ld", "v1", "0x20"},
				Codes: []Code{MakeCodeRegImm(OP_LD_IMM, 1, 0x20)}},
			{LineNo: 3, Addr: 0x204, Words: []string{"add", "v0", "v1"},
				Codes: []Code{MakeCodeRegReg(OP_ADD_REG, 0, 1)}},
		},
	}

	dbg := prog.Debug(0x200)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x202)
	assert.NotNil(dbg.Opcode)
	assert.Equal(2, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x204)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Words: []string{"ld", "v0", "0x10"},
				Codes: []Code{MakeCodeRegImm(OP_LD_IMM, 0, 0x10)}},
		},
	}

	dbg := prog.Debug(0x202)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x100)
	assert.Nil(dbg.Opcode)
}

func TestProgram_Debug_MultipleCodesPerOpcode(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Words: []string{"PAIR"},
				Codes: []Code{MakeCodeRegImm(OP_LD_IMM, 0, 1), MakeCodeRegImm(OP_LD_IMM, 1, 2)}},
			{LineNo: 2, Addr: 0x204, Words: []string{"ret"},
				Codes: []Code{MakeCode(OP_RET)}},
		},
	}

	dbg := prog.Debug(0x200)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x202)
	assert.Equal(1, dbg.Opcode.LineNo)
	assert.Equal(1, dbg.Index)

	dbg = prog.Debug(0x204)
	assert.Equal(2, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Codes: []Code{0x6010}},
			{LineNo: 2, Addr: 0x202, Data: []uint8{0xaa, 0xbb, 0xcc}},
			{LineNo: 3, Addr: 0x205, Codes: []Code{0x00ee}},
		},
	}

	assert.Equal([]uint8{0x60, 0x10, 0xaa, 0xbb, 0xcc, 0x00, 0xee}, prog.Binary())
}

func TestProgram_Binary_Empty(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{}
	assert.Empty(prog.Binary())
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Codes: []Code{0x6010, 0x6120}},
			{LineNo: 2, Addr: 0x204, Data: []uint8{0x12, 0x34}},
			{LineNo: 3, Addr: 0x206, Codes: []Code{0x00ee}},
		},
	}

	addrs := []uint16{}
	codes := []Code{}
	for addr, code := range prog.Codes() {
		addrs = append(addrs, addr)
		codes = append(codes, code)
	}

	assert.Equal([]uint16{0x200, 0x202, 0x206}, addrs)
	assert.Equal([]Code{0x6010, 0x6120, 0x00ee}, codes)
}

func TestProgram_Codes_EarlyReturn(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Addr: 0x200, Codes: []Code{0x6010, 0x6120}},
			{LineNo: 2, Addr: 0x204, Codes: []Code{0x00ee}},
		},
	}

	count := 0
	for range prog.Codes() {
		count++
		if count == 2 {
			break
		}
	}

	assert.Equal(2, count)
}

func TestProgram_Integration_ParseAndDebug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := strings.Join([]string{
		"; setup",
		"ld v0, 0x10",
		"",
		"ld v1, 0x20",
		"add v0, v1",
	}, "\n")

	prog, err := asm.Parse(strings.NewReader(program))
	assert.NoError(err)

	assert.Equal([]uint8{0x60, 0x10, 0x61, 0x20, 0x80, 0x14}, prog.Binary())

	dbg := prog.Debug(0x200)
	assert.Equal(2, dbg.Opcode.LineNo)

	dbg = prog.Debug(0x202)
	assert.Equal(4, dbg.Opcode.LineNo)

	dbg = prog.Debug(0x204)
	assert.Equal(5, dbg.Opcode.LineNo)
	assert.Equal([]string{"add", "v0", "v1"}, dbg.Opcode.Words)
}
