// Package memory implements the 4KiB memory image of the virtual CPU.
//
// The low PROGRAM_START bytes are reserved. Programs are loaded at
// PROGRAM_START and may extend to the end of memory.
package memory

const (
	MEMORY_SIZE   = 0x1000                      // Size of the memory image.
	PROGRAM_START = 0x200                       // First address past the reserved region.
	PROGRAM_SIZE  = MEMORY_SIZE - PROGRAM_START // Largest loadable program.
)

// Memory is a fixed size byte addressable image.
type Memory struct {
	Data [MEMORY_SIZE]uint8
}

// Reset zeros the memory image.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
}

// Check verifies that count bytes starting at addr are within the image.
func (mem *Memory) Check(addr int, count int) (err error) {
	switch {
	case addr < 0:
		err = ErrAddress(uint32(addr))
	case addr+count > len(mem.Data):
		last := max(addr, len(mem.Data))
		err = ErrAddress(uint32(last))
	}
	return
}

// Read a byte.
func (mem *Memory) Read(addr uint16) (value uint8, err error) {
	err = mem.Check(int(addr), 1)
	if err != nil {
		return
	}

	value = mem.Data[addr]
	return
}

// Write a byte.
func (mem *Memory) Write(addr uint16, value uint8) (err error) {
	err = mem.Check(int(addr), 1)
	if err != nil {
		return
	}

	mem.Data[addr] = value
	return
}

// ReadInstruction reads the big-endian instruction word at addr.
func (mem *Memory) ReadInstruction(addr uint16) (word uint16, err error) {
	err = mem.Check(int(addr), 2)
	if err != nil {
		return
	}

	word = uint16(mem.Data[addr])<<8 | uint16(mem.Data[int(addr)+1])
	return
}

// WriteInstruction stores an instruction word, most significant byte first.
func (mem *Memory) WriteInstruction(addr uint16, word uint16) (err error) {
	err = mem.Check(int(addr), 2)
	if err != nil {
		return
	}

	mem.Data[addr] = uint8(word >> 8)
	mem.Data[int(addr)+1] = uint8(word & 0xff)
	return
}

// Load copies a program image to PROGRAM_START.
// Oversized images are rejected before any byte is copied.
func (mem *Memory) Load(program []uint8) (err error) {
	if len(program) > PROGRAM_SIZE {
		err = ErrProgramSize(len(program))
		return
	}

	copy(mem.Data[PROGRAM_START:], program)
	return
}
