package rom

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"iter"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/memory"
)

// Rom is a raw program image, loaded at memory.PROGRAM_START.
type Rom struct {
	Data []uint8
}

// Read reads a program image. Images that do not fit between
// memory.PROGRAM_START and the end of memory fail with
// cpu.ErrProgramTooLarge.
func Read(r io.Reader) (rom *Rom, err error) {
	data, err := io.ReadAll(io.LimitReader(r, memory.PROGRAM_SIZE+1))
	if err != nil {
		return
	}

	if len(data) > memory.PROGRAM_SIZE {
		err = memory.ErrProgramSize(len(data))
		return
	}

	rom = &Rom{Data: data}
	return
}

// Open reads the program image name from a file system.
func Open(filesys fs.FS, name string) (rom *Rom, err error) {
	inf, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, inf.Close())
	}()

	rom, err = Read(inf)
	return
}

// WriteTo writes the program image.
func (rom *Rom) WriteTo(w io.Writer) (n int64, err error) {
	return bytes.NewReader(rom.Data).WriteTo(w)
}

// Save writes the program image to a new file in filesys.
func (rom *Rom) Save(filesys CreateFS, name string) (err error) {
	ouf, err := filesys.Create(name)
	if err != nil {
		return
	}
	defer func() {
		err = errors.Join(err, ouf.Close())
	}()

	_, err = rom.WriteTo(ouf)
	return
}

// Codes iterates over the image as instruction words, labelled with their
// load addresses.
func (rom *Rom) Codes() iter.Seq2[uint16, cpu.Code] {
	return cpu.Disassemble(rom.Data, memory.PROGRAM_START)
}

// Program wraps the image as a listing with no source lines, so that it can
// be run by the emulator.
func (rom *Rom) Program() *cpu.Program {
	return &cpu.Program{
		Opcodes: []cpu.Opcode{
			{Addr: memory.PROGRAM_START, Data: rom.Data},
		},
	}
}
