package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8/memory"
)

const (
	REGISTER_COUNT = 16  // Number of general purpose registers.
	REG_FLAG       = 0xf // Register receiving carry, borrow and shift-out flags.
)

var _cpu_defines = map[string]string{
	"STACK_LIMIT":    fmt.Sprintf("%d", STACK_LIMIT),
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
	"REG_FLAG":       fmt.Sprintf("%d", REG_FLAG),
}

// Cpu is the simulation context for the virtual CPU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   memory.Memory         // Memory image.
	Register [REGISTER_COUNT]uint8 // V0 through VF.
	I        uint16                // Address register.
	Pc       uint16                // Address of the next instruction.
	Stack    Stack                 // Subroutine return addresses.
	Delay    uint8                 // Delay timer.
	Sound    uint8                 // Sound timer.

	Random Random // Source for the masked random opcode.

	Ticks int // Instructions executed since reset.
}

// NewCpu creates a new CPU. A nil random source is replaced by a generator
// seeded from the current time.
func NewCpu(random Random) (cpu *Cpu) {
	if random == nil {
		random = NewRandom(uint64(time.Now().UnixNano()))
	}

	cpu = &Cpu{
		Random: random,
	}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %03X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("% 5s: %03X\n", "i", cpu.I)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %02X\n", fmt.Sprintf("v%X", n), val)
	}
	top, ok := cpu.Stack.Peek()
	if ok {
		text += fmt.Sprintf("% 5s: %03X (%d)\n", "stack", top, cpu.Stack.Pointer)
	} else {
		text += fmt.Sprintf("% 5s: --- (%d)\n", "stack", cpu.Stack.Pointer)
	}
	text += fmt.Sprintf("% 5s: %02X\n", "dt", cpu.Delay)
	text += fmt.Sprintf("% 5s: %02X\n", "st", cpu.Sound)

	return
}

// Reset the CPU state.
// - Clears the registers, memory, stack and timers.
// - Zeros the instruction counter.
// - Sets the program counter to the program load address.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Memory.Reset()
	cpu.Stack.Reset()
	cpu.I = 0
	cpu.Delay = 0
	cpu.Sound = 0
	cpu.Ticks = 0
	cpu.Pc = memory.PROGRAM_START
}

// Load copies a program image to the program load address.
func (cpu *Cpu) Load(program []uint8) (err error) {
	err = cpu.Memory.Load(program)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes at 0x%03x", len(program), memory.PROGRAM_START)
	}

	return
}

// TickTimers counts both timers down by one, stopping at zero.
func (cpu *Cpu) TickTimers() {
	if cpu.Delay > 0 {
		cpu.Delay--
	}
	if cpu.Sound > 0 {
		cpu.Sound--
	}
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	word, err := cpu.Memory.ReadInstruction(cpu.Pc)
	if err != nil {
		return
	}

	code = Code(word)
	return
}

// Step executes a single instruction.
func (cpu *Cpu) Step() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single instruction word as if fetched from the
// program counter. On error no state is modified.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Addr: cpu.Pc, Code: code}, err)
		}
	}()

	inst, ok := code.Decode()
	if !ok {
		err = ErrUnrecognizedInstruction
		return
	}

	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc, inst)
	}

	next_pc, err := cpu.nextPc(inst)
	if err != nil {
		return
	}

	err = cpu.Memory.Check(int(next_pc), 1)
	if err != nil {
		return
	}

	err = cpu.checkMemory(inst)
	if err != nil {
		return
	}

	cpu.commit(inst)
	cpu.Pc = next_pc

	return
}

// nextPc determines where execution continues after the instruction,
// and verifies the stack can satisfy a call or return.
func (cpu *Cpu) nextPc(inst Instruction) (next_pc uint16, err error) {
	v := &cpu.Register

	next_pc = cpu.Pc + 2

	skip := func(cond bool) {
		if cond {
			next_pc = cpu.Pc + 4
		}
	}

	switch inst.Op {
	case OP_RET:
		if int(cpu.Stack.Pointer) >= STACK_LIMIT {
			err = ErrStackOverflow
			return
		}
		var ok bool
		next_pc, ok = cpu.Stack.Peek()
		if !ok {
			err = ErrStackUnderflow
			return
		}
	case OP_JP:
		next_pc = inst.Addr
	case OP_CALL:
		if cpu.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		next_pc = inst.Addr
	case OP_JP_V0:
		next_pc = uint16(v[0]) + inst.Addr
	case OP_SE_IMM:
		skip(v[inst.X] == inst.KK)
	case OP_SNE_IMM:
		skip(v[inst.X] != inst.KK)
	case OP_SE_REG:
		skip(v[inst.X] == v[inst.Y])
	}

	return
}

// checkMemory verifies the memory range touched through I.
func (cpu *Cpu) checkMemory(inst Instruction) (err error) {
	switch inst.Op {
	case OP_LD_B:
		err = cpu.Memory.Check(int(cpu.I), 3)
	case OP_LD_MEM_VX, OP_LD_VX_MEM:
		err = cpu.Memory.Check(int(cpu.I), int(inst.X)+1)
	}

	return
}

// commit applies the register, stack and memory effects of an instruction
// that has passed nextPc and checkMemory.
func (cpu *Cpu) commit(inst Instruction) {
	v := &cpu.Register
	mem := &cpu.Memory.Data
	x := inst.X
	y := inst.Y

	switch inst.Op {
	case OP_RET:
		cpu.Stack.Pop()
	case OP_CALL:
		cpu.Stack.Push(cpu.Pc)
	case OP_JP, OP_JP_V0, OP_SE_IMM, OP_SNE_IMM, OP_SE_REG:
		// Control flow only.
	case OP_LD_IMM:
		v[x] = inst.KK
	case OP_ADD_IMM:
		v[x] = uint8((uint16(v[x]) + uint16(inst.KK)) & 0xff)
	case OP_LD_REG:
		v[x] = v[y]
	case OP_OR:
		v[x] |= v[y]
	case OP_AND:
		v[x] &= v[y]
	case OP_XOR:
		v[x] ^= v[y]
	case OP_ADD_REG:
		sum := uint16(v[x]) + uint16(v[y])
		v[x] = uint8(sum & 0xff)
		v[REG_FLAG] = flag(sum > 0xff)
	// The flag is written before Vx; with x or y == REG_FLAG the result
	// is computed from the freshly written flag.
	case OP_SUB:
		v[REG_FLAG] = flag(v[x] > v[y])
		v[x] = uint8((uint16(v[x]) + 0x100 - uint16(v[y])) & 0xff)
	case OP_SHR:
		v[REG_FLAG] = v[x] & 1
		v[x] = v[x] >> 1
	case OP_SUBN:
		v[REG_FLAG] = flag(v[y] > v[x])
		v[x] = uint8((uint16(v[y]) + 0x100 - uint16(v[x])) & 0xff)
	case OP_SHL:
		v[REG_FLAG] = (v[x] >> 7) & 1
		v[x] = uint8((uint16(v[x]) << 1) & 0xff)
	case OP_LD_I:
		cpu.I = inst.Addr
	case OP_RND:
		v[x] = cpu.Random.Byte() & inst.KK
	case OP_LD_VX_DT:
		v[x] = cpu.Delay
	case OP_LD_DT_VX:
		cpu.Delay = v[x]
	case OP_LD_ST_VX:
		cpu.Sound = v[x]
	case OP_ADD_I:
		cpu.I += uint16(v[x])
	case OP_LD_B:
		value := v[x]
		mem[cpu.I] = value / 100
		mem[cpu.I+1] = (value / 10) % 10
		mem[cpu.I+2] = value % 10
	case OP_LD_MEM_VX:
		for k := range int(x) + 1 {
			mem[int(cpu.I)+k] = v[k]
		}
	case OP_LD_VX_MEM:
		for k := range int(x) + 1 {
			v[k] = mem[int(cpu.I)+k]
		}
	default:
		panic("unknown op")
	}
}

func flag(cond bool) uint8 {
	if cond {
		return 1
	}
	return 0
}
