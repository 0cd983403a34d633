package memory

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	ErrAddressOutOfRange = errors.New(f("address out of range"))
	ErrProgramTooLarge   = errors.New(f("program too large"))
)

// ErrAddress reports the first address outside of the memory image.
type ErrAddress uint32

func (ea ErrAddress) Error() string {
	return f("address 0x%04x out of range", uint32(ea))
}

func (ea ErrAddress) Is(err error) bool {
	return err == ErrAddressOutOfRange
}

// ErrProgramSize reports the size of a rejected program image.
type ErrProgramSize int

func (es ErrProgramSize) Error() string {
	return f("program of %v bytes exceeds %v bytes", int(es), PROGRAM_SIZE)
}

func (es ErrProgramSize) Is(err error) bool {
	return err == ErrProgramTooLarge
}
