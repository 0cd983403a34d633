package cpu

import (
	"iter"

	"github.com/ezrec/chip8/memory"
)

// Opcode represents a line of assembled code with its source location and
// generated instructions or data.
type Opcode struct {
	LineNo    int
	Addr      uint16
	Words     []string
	Codes     []Code
	Data      []uint8
	LinkLabel string
}

// Size returns the number of bytes the line occupies in memory.
func (op *Opcode) Size() int {
	return len(op.Codes)*2 + len(op.Data)
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the source line of the instruction at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if len(op.Codes) == 0 {
			continue
		}
		if addr >= op.Addr && int(addr) < int(op.Addr)+len(op.Codes)*2 {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr-op.Addr) / 2,
			}
			break
		}
	}

	return
}

// Binary returns the memory image of the program, starting at
// memory.PROGRAM_START.
func (prog *Program) Binary() (bins []uint8) {
	for _, op := range prog.Opcodes {
		offset := int(op.Addr) - memory.PROGRAM_START
		if offset < 0 {
			continue
		}
		if need := offset + op.Size(); need > len(bins) {
			bins = append(bins, make([]uint8, need-len(bins))...)
		}
		for n, code := range op.Codes {
			bins[offset+n*2] = uint8(code >> 8)
			bins[offset+n*2+1] = uint8(code & 0xff)
		}
		copy(bins[offset+len(op.Codes)*2:], op.Data)
	}

	return
}

// Codes iterates over every assembled instruction with its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Addr+uint16(n*2), code) {
					return
				}
			}
		}
	}
}
