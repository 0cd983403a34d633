// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ezrec/chip8/buzzer"
	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/monitor"
	"github.com/ezrec/chip8/rom"
)

func main() {
	var compile string
	var image string
	var output string
	var disassemble bool
	var verbose bool
	var rate int
	var timerRate int
	var seed uint64
	var limit int
	var wavFile string
	var useMonitor bool

	flag.StringVar(&compile, "c", "", ".8s file to assemble")
	flag.StringVar(&image, "r", "", ".ch8 ROM image to run")
	flag.StringVar(&output, "o", "", "Write the program image, do not execute")
	flag.BoolVar(&disassemble, "d", false, "Disassemble the program, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&rate, "ips", emulator.DEFAULT_RATE, "Instructions per second")
	flag.IntVar(&timerRate, "hz", emulator.DEFAULT_TIMER_RATE, "Timer ticks per second")
	flag.Uint64Var(&seed, "seed", 0, "Random seed (0 is time based)")
	flag.IntVar(&limit, "max", 0, "Stop after this many instructions (0 is unlimited)")
	flag.StringVar(&wavFile, "wav", "", "Record the buzzer to a .wav file")
	flag.BoolVar(&useMonitor, "monitor", false, "Show the machine state in the terminal")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 && len(image) == 0 {
		log.Fatalf("%v: One of -c or -r is required", os.Args[0])
	}

	var random cpu.Random
	if seed != 0 {
		random = cpu.NewRandom(seed)
	}

	emu := emulator.NewEmulator(random)
	emu.Verbose = verbose
	emu.Rate = rate
	emu.TimerRate = timerRate
	emu.Limit = limit

	// Assemble a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else {
		dir, name := filepath.Split(image)
		if len(dir) == 0 {
			dir = "."
		}
		img, err := rom.Open(os.DirFS(dir), name)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
		emu.Program = img.Program()
	}

	if len(output) != 0 {
		img := &rom.Rom{Data: emu.Program.Binary()}
		dir, name := filepath.Split(output)
		err := img.Save(rom.DirFS(dir), name)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	if disassemble {
		img := &rom.Rom{Data: emu.Program.Binary()}
		for addr, code := range img.Codes() {
			fmt.Printf("%03x: %04x  %v\n", addr, uint16(code), code)
		}
		return
	}

	err := run(emu, wavFile, useMonitor)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}

// run executes the program until it halts, faults, or is interrupted.
// The buzzer recording is finalised before returning.
func run(emu *emulator.Emulator, wavFile string, useMonitor bool) (err error) {
	if len(wavFile) != 0 {
		var ouf *os.File
		ouf, err = os.Create(wavFile)
		if err != nil {
			return
		}
		defer ouf.Close()

		wav := buzzer.NewWav(ouf, 0)
		wav.TickRate = emu.TimerRate
		defer func() {
			err = errors.Join(err, wav.Close())
		}()
		emu.Buzzer = wav
	}

	err = emu.Reset()
	if err != nil {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if useMonitor {
		err = runMonitor(ctx, emu)
	} else {
		err = emu.Run(ctx)
	}

	if emu.Verbose {
		log.Printf("%v", emu.Cpu)
	}

	if errors.Is(err, context.Canceled) {
		err = nil
	}

	return
}

// runMonitor runs the emulator under a terminal monitor, until the program
// ends and the user quits.
func runMonitor(ctx context.Context, emu *emulator.Emulator) (err error) {
	mon, err := monitor.New()
	if err != nil {
		return
	}
	defer mon.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emu.Watcher = mon

	result := make(chan error, 1)
	go func() {
		err := emu.Run(ctx)
		mon.Watch(emu.State())
		if err != nil {
			mon.Printf("%v", err)
		} else {
			mon.Printf("halted after %d instructions, press q to quit", emu.Cpu.Ticks)
		}
		result <- err
	}()

	err = mon.MainLoop()
	cancel()

	err = errors.Join(err, <-result)
	return
}
