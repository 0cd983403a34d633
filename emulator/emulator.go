// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
)

const (
	DEFAULT_RATE       = 700 // Instructions per second.
	DEFAULT_TIMER_RATE = 60  // Timer ticks per second.
)

var _emulator_defines = map[string]string{
	"DEFAULT_RATE":       fmt.Sprintf("%v", DEFAULT_RATE),
	"DEFAULT_TIMER_RATE": fmt.Sprintf("%v", DEFAULT_TIMER_RATE),
}

// Buzzer is told, once per timer tick, whether the sound timer is running.
type Buzzer interface {
	Buzz(active bool) error
}

// Watcher receives a snapshot of the machine once per timer tick.
type Watcher interface {
	Watch(state State)
}

// State is a copy of the visible machine state.
type State struct {
	Pc       uint16
	I        uint16
	Register [cpu.REGISTER_COUNT]uint8
	Stack    cpu.Stack
	Delay    uint8
	Sound    uint8
	Ticks    int
	Code     cpu.Code
	LineNo   int
}

// Emulator state. CPU + program listing + timer driven outputs.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Buzzer  Buzzer  // Optional sound timer sink.
	Watcher Watcher // Optional state observer.

	Rate      int // Instructions per second for Run.
	TimerRate int // Timer ticks per second for Run.
	Limit     int // If non-zero, Run stops after this many instructions.
}

// NewEmulator creates a new emulator. A nil random source is seeded from
// the current time.
func NewEmulator(random cpu.Random) (emu *Emulator) {
	emu = &Emulator{
		Cpu:       cpu.NewCpu(random),
		Program:   &cpu.Program{},
		Rate:      DEFAULT_RATE,
		TimerRate: DEFAULT_TIMER_RATE,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the machine and load the program image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Program.Binary())
	if err != nil {
		return
	}

	return
}

// Code returns the instruction word at the program counter.
func (emu *Emulator) Code() cpu.Code {
	code, err := emu.Cpu.FetchCode()
	if err != nil {
		return 0
	}

	return code
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.Opcode.LineNo
}

// State returns a snapshot of the machine.
func (emu *Emulator) State() State {
	return State{
		Pc:       emu.Cpu.Pc,
		I:        emu.Cpu.I,
		Register: emu.Cpu.Register,
		Stack:    emu.Cpu.Stack,
		Delay:    emu.Cpu.Delay,
		Sound:    emu.Cpu.Sound,
		Ticks:    emu.Cpu.Ticks,
		Code:     emu.Code(),
		LineNo:   emu.LineNo(),
	}
}

// Tick performs a single instruction. A jump to its own address halts the
// program and is reported as done without being executed.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrRuntime{Addr: pc, LineNo: emu.LineNo(), Err: err}
		}
	}()

	code, err := emu.Cpu.FetchCode()
	if err != nil {
		return
	}

	if inst, ok := code.Decode(); ok && inst.Op == cpu.OP_JP && inst.Addr == pc {
		if emu.Verbose {
			log.Printf("emulator: halt at 0x%03x after %d instructions", pc, emu.Cpu.Ticks)
		}
		done = true
		return
	}

	err = emu.Cpu.Step()
	return
}

// Timer performs a single timer tick, and reports the sound state to the
// buzzer and the machine state to the watcher.
func (emu *Emulator) Timer() (err error) {
	active := emu.Cpu.Sound > 0

	emu.Cpu.TickTimers()

	if emu.Buzzer != nil {
		err = emu.Buzzer.Buzz(active)
		if err != nil {
			return
		}
	}

	if emu.Watcher != nil {
		emu.Watcher.Watch(emu.State())
	}

	return
}

func period(rate int, fallback int) time.Duration {
	if rate <= 0 {
		rate = fallback
	}
	return max(time.Second/time.Duration(rate), time.Nanosecond)
}

// Run executes the program until it halts, faults, reaches Limit, or ctx
// is cancelled. Instructions are paced at Rate and timers at TimerRate.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	step := time.NewTicker(period(emu.Rate, DEFAULT_RATE))
	defer step.Stop()

	timer := time.NewTicker(period(emu.TimerRate, DEFAULT_TIMER_RATE))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-timer.C:
			err = emu.Timer()
			if err != nil {
				return
			}
		case <-step.C:
			var done bool
			done, err = emu.Tick()
			if err != nil || done {
				return
			}
			if emu.Limit > 0 && emu.Cpu.Ticks >= emu.Limit {
				err = ErrInstructionLimit
				return
			}
		}
	}
}
