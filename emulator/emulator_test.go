package emulator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/cpu"
)

type buzzLog struct {
	states []bool
	err    error
}

func (bl *buzzLog) Buzz(active bool) error {
	bl.states = append(bl.states, active)
	return bl.err
}

type watchLog struct {
	states []State
}

func (wl *watchLog) Watch(state State) {
	wl.states = append(wl.states, state)
}

func assemble(emu *Emulator, program []string, t *testing.T) {
	asm := &cpu.Assembler{}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	emu.Program = prog

	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(DEFAULT_RATE, emu.Rate)
	assert.Equal(DEFAULT_TIMER_RATE, emu.TimerRate)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("700", defines["DEFAULT_RATE"])
	assert.Equal("15", defines["REG_FLAG"])
	assert.Equal("16", defines["STACK_LIMIT"])
}

func TestEmulator_Single(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(cpu.RandomSequence(0xff))
	program := []string{
		"ld v0, 0xf0",
		"ld v1, $(REG_FLAG)",
		"add v0, v1",
		"rnd v2, 0x0f",
		"halt",
	}
	assemble(emu, program, t)

	for _, op := range emu.Program.Opcodes[:4] {
		assert.Equal(op.LineNo, emu.LineNo())
		assert.Equal(op.Codes[0], emu.Code())
		done, err := emu.Tick()
		assert.NoError(err, program[op.LineNo-1])
		assert.False(done, program[op.LineNo-1])
	}

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(5, emu.LineNo())

	// Halting does not execute.
	assert.Equal(4, emu.Cpu.Ticks)
	assert.Equal(uint8(0xff), emu.Register[0])
	assert.Equal(uint8(0x0f), emu.Register[1])
	assert.Equal(uint8(0x0f), emu.Register[2])
}

func TestEmulator_Branch(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	program := []string{
		"ld v0, 0",
		"ld v1, 0",
		"loop:",
		"add v0, 3",
		"add v1, 1",
		"sne v1, 5",
		"jp done",
		"jp loop",
		"done:",
		"ld i, 0x400",
		"ld b, v0",
		"ld v2, [i]",
		"halt",
	}
	assemble(emu, program, t)

	var done bool
	var err error
	for !done {
		done, err = emu.Tick()
		if err != nil {
			t.Fatal(err)
		}
	}

	// v0 = 15 was stored as BCD and reloaded into v0..v2.
	assert.Equal([]uint8{0, 1, 5}, emu.Memory.Data[0x400:0x403])
	assert.Equal(uint8(0), emu.Register[0])
	assert.Equal(uint8(1), emu.Register[1])
	assert.Equal(uint8(5), emu.Register[2])
	assert.Equal(13, emu.LineNo())
}

func TestEmulator_ErrRuntime(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	program := []string{
		"ld v0, 1",
		"; underflow",
		"ret",
	}
	assemble(emu, program, t)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	done, err = emu.Tick()
	assert.False(done)

	var re *ErrRuntime
	assert.True(errors.As(err, &re))
	assert.Equal(3, re.LineNo)
	assert.Equal(uint16(0x202), re.Addr)
	assert.ErrorIs(err, cpu.ErrStackUnderflow)
	assert.ErrorIs(err, cpu.ErrOpcode{})
	assert.Contains(err.Error(), "line 3")

	// Execution without a listing reports only the address.
	emu.Program = &cpu.Program{}
	_, err = emu.Tick()
	assert.True(errors.As(err, &re))
	assert.Equal(0, re.LineNo)
	assert.NotContains(err.Error(), "line")
}

func TestEmulator_Unrecognized(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	assemble(emu, []string{".word 0x00e0"}, t)

	_, err := emu.Tick()
	assert.ErrorIs(err, cpu.ErrUnrecognizedInstruction)

	var eo cpu.ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(cpu.Code(0x00e0), eo.Code)
	assert.Equal(uint16(0x200), eo.Addr)
}

func TestEmulator_Timer(t *testing.T) {
	assert := assert.New(t)

	buzz := &buzzLog{}
	watch := &watchLog{}

	emu := NewEmulator(nil)
	emu.Buzzer = buzz
	emu.Watcher = watch
	assemble(emu, []string{
		"ld v0, 2",
		"ld st, v0",
		"ld dt, v0",
		"halt",
	}, t)

	for range 3 {
		_, err := emu.Tick()
		assert.NoError(err)
	}

	for range 3 {
		assert.NoError(emu.Timer())
	}

	assert.Equal([]bool{true, true, false}, buzz.states)
	assert.Equal(3, len(watch.states))
	assert.Equal(uint8(1), watch.states[0].Delay)
	assert.Equal(uint8(0), watch.states[2].Sound)
	assert.Equal(uint16(0x206), watch.states[2].Pc)
	assert.Equal(cpu.Code(0x1206), watch.states[2].Code)
	assert.Equal(4, watch.states[2].LineNo)

	buzz.err = errors.New("device gone")
	assert.ErrorIs(emu.Timer(), buzz.err)
}

func TestEmulator_Run(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	emu.Rate = 100000
	assemble(emu, []string{
		"ld v0, 0",
		"loop: add v0, 1",
		"se v0, 50",
		"jp loop",
		"halt",
	}, t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := emu.Run(ctx)
	assert.NoError(err)
	assert.Equal(uint8(50), emu.Register[0])
}

func TestEmulator_RunLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	emu.Rate = 100000
	emu.Limit = 20
	assemble(emu, []string{
		"loop: add v0, 1",
		"jp loop",
	}, t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, ErrInstructionLimit)
	assert.Equal(20, emu.Cpu.Ticks)
	assert.Equal(uint8(10), emu.Register[0])
}

func TestEmulator_RunCancel(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	assemble(emu, []string{
		"loop: add v0, 1",
		"jp loop",
	}, t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
}

func TestEmulator_RunFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil)
	emu.Rate = 100000
	assemble(emu, []string{
		"call 0x200",
	}, t)

	err := emu.Run(context.Background())
	assert.ErrorIs(err, cpu.ErrStackOverflow)
	assert.Equal(cpu.STACK_LIMIT-1, int(emu.Cpu.Stack.Pointer))
}
