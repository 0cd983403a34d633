// Package cpu implements the virtual CPU and its assembler.
//
// The CPU consists of a program counter, sixteen 8-bit general-purpose
// registers (v0-vf, with vf receiving carry, borrow and shift-out flags), a
// 16-bit address register (i), a sixteen slot return stack, and delay and
// sound timers, operating on a 4KiB memory image.
//
// Each 16-bit instruction word is decoded once into an Instruction, then
// checked and committed: a faulting instruction leaves the CPU untouched.
//
// The assembler provides a small assembly language for the instruction set,
// supporting macros, labels, equates, data directives, and compile-time
// expression evaluation.
package cpu
