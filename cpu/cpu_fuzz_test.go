package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/memory"
)

func FuzzCpu(f *testing.F) {
	for rv := range 0x10 {
		f.Add(uint16(rv<<12), uint16(0x200), uint16(0x300), uint8(0), uint8(rv))
		f.Add(uint16(rv<<12)|0x0fff, uint16(0xffe), uint16(0xff0), uint8(15), uint8(0xff))
	}
	f.Add(uint16(0x00ee), uint16(0x200), uint16(0), uint8(1), uint8(0))
	f.Add(uint16(0xf033), uint16(0x200), uint16(0xffe), uint8(0), uint8(154))
	f.Add(uint16(0xff55), uint16(0x200), uint16(0xff1), uint8(0), uint8(0))

	f.Fuzz(func(t *testing.T, opcode uint16, pc uint16, i uint16, sp uint8, value uint8) {
		assert := assert.New(t)

		code := Code(opcode)

		cpu := NewCpu(RandomSequence(0x5a))
		cpu.Pc = pc % memory.MEMORY_SIZE
		cpu.I = i
		cpu.Stack.Pointer = sp % STACK_LIMIT
		for n := range cpu.Stack.Data {
			cpu.Stack.Data[n] = uint16(0x200 + n*0x10)
		}
		for n := range cpu.Register {
			cpu.Register[n] = value + uint8(n)
		}
		for n := range cpu.Memory.Data {
			cpu.Memory.Data[n] = uint8(n)
		}

		before := *cpu

		err := cpu.Execute(code)

		inst, ok := code.Decode()
		if !ok {
			assert.ErrorIs(err, ErrUnrecognizedInstruction)
		}

		if err != nil {
			assert.ErrorIs(err, ErrOpcode{})
			var eo ErrOpcode
			assert.True(errors.As(err, &eo))
			assert.Equal(code, eo.Code)
			assert.Equal(before.Pc, eo.Addr)
			assert.True(errors.Is(err, ErrUnrecognizedInstruction) ||
				errors.Is(err, ErrStackOverflow) ||
				errors.Is(err, ErrStackUnderflow) ||
				errors.Is(err, ErrAddressOutOfRange), err.Error())
			assert.Equal(before, *cpu)
			return
		}

		assert.Less(int(cpu.Pc), memory.MEMORY_SIZE)
		assert.Less(int(cpu.Stack.Pointer), STACK_LIMIT)
		assert.Equal(before.Ticks, cpu.Ticks)

		switch inst.Op {
		case OP_RET:
			assert.Equal(before.Stack.Data[before.Stack.Pointer], cpu.Pc)
			assert.Equal(before.Stack.Pointer-1, cpu.Stack.Pointer)
		case OP_CALL:
			assert.Equal(inst.Addr, cpu.Pc)
			assert.Equal(before.Stack.Pointer+1, cpu.Stack.Pointer)
			assert.Equal(before.Pc, cpu.Stack.Data[cpu.Stack.Pointer])
		case OP_JP:
			assert.Equal(inst.Addr, cpu.Pc)
		case OP_JP_V0:
			assert.Equal(inst.Addr+uint16(before.Register[0]), cpu.Pc)
		case OP_SE_IMM, OP_SNE_IMM, OP_SE_REG:
			assert.Contains([]uint16{before.Pc + 2, before.Pc + 4}, cpu.Pc)
			assert.Equal(before.Register, cpu.Register)
		case OP_RND:
			assert.Equal(uint8(0x5a)&inst.KK, cpu.Register[inst.X])
			assert.Equal(before.Pc+2, cpu.Pc)
		default:
			assert.Equal(before.Pc+2, cpu.Pc)
			assert.Equal(before.Stack, cpu.Stack)
		}

		switch inst.Op {
		case OP_LD_B, OP_LD_MEM_VX:
		default:
			assert.Equal(before.Memory, cpu.Memory)
		}
	})
}
