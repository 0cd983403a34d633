// Package monitor is a terminal view of a running emulator.
package monitor

import (
	"fmt"
	"io"
	"log"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/chip8/emulator"
)

const (
	VIEW_REGISTERS = "registers"
	VIEW_STATUS    = "status"

	registerHeight = 8 // Lines used by Render, plus the frame.
)

// Monitor shows the machine state in a terminal, and a status log below it.
type Monitor struct {
	Verbose bool

	g *gocui.Gui
}

var _ emulator.Watcher = (*Monitor)(nil)

// New takes over the terminal.
func New() (mon *Monitor, err error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return
	}

	g.SetManagerFunc(layout)

	for _, key := range []any{gocui.KeyCtrlC, 'q'} {
		err = g.SetKeybinding("", key, gocui.ModNone, quit)
		if err != nil {
			g.Close()
			return
		}
	}

	mon = &Monitor{g: g}
	return
}

// Close releases the terminal.
func (mon *Monitor) Close() {
	mon.g.Close()
}

// MainLoop runs the terminal until the user quits.
func (mon *Monitor) MainLoop() (err error) {
	err = mon.g.MainLoop()
	if err == gocui.ErrQuit {
		err = nil
	}
	return
}

// Watch redraws the register view with a snapshot of the machine.
func (mon *Monitor) Watch(state emulator.State) {
	mon.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(VIEW_REGISTERS)
		if err != nil {
			return err
		}
		v.Clear()
		Render(v, state)
		return nil
	})
}

// Printf appends a line to the status view.
func (mon *Monitor) Printf(format string, args ...any) {
	if mon.Verbose {
		log.Printf(format, args...)
	}

	text := fmt.Sprintf(format, args...)
	mon.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(VIEW_STATUS)
		if err != nil {
			return err
		}
		fmt.Fprintln(v, text)
		return nil
	})
}

// Render writes a snapshot of the machine as text.
func Render(w io.Writer, state emulator.State) {
	fmt.Fprintf(w, " pc %03X   i %03X   dt %02X   st %02X   ticks %d\n",
		state.Pc, state.I, state.Delay, state.Sound, state.Ticks)

	for row := range 2 {
		for col := range 8 {
			n := row*8 + col
			fmt.Fprintf(w, " v%X %02X", n, state.Register[n])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, " stack (%d):", state.Stack.Pointer)
	for n := 1; n <= int(state.Stack.Pointer) && n < len(state.Stack.Data); n++ {
		fmt.Fprintf(w, " %03X", state.Stack.Data[n])
	}
	fmt.Fprintln(w)

	if state.LineNo > 0 {
		fmt.Fprintf(w, " line %d: %v\n", state.LineNo, state.Code)
	} else {
		fmt.Fprintf(w, " %03X: %v\n", state.Pc, state.Code)
	}
}

func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(VIEW_REGISTERS, 0, 0, maxX-1, registerHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}

	if v, err := g.SetView(VIEW_STATUS, 0, registerHeight+1, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Autoscroll = true
		v.Wrap = true
	}

	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
