package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

func TestRender(t *testing.T) {
	assert := assert.New(t)

	state := emulator.State{
		Pc:     0x20c,
		I:      0x400,
		Delay:  0x3c,
		Sound:  0x01,
		Ticks:  42,
		Code:   0x8124,
		LineNo: 7,
	}
	state.Register[0xa] = 0x5c
	state.Stack.Push(0x208)
	state.Stack.Push(0x2f0)

	text := &strings.Builder{}
	Render(text, state)

	lines := strings.Split(text.String(), "\n")
	assert.Equal(6, len(lines))
	assert.Equal(" pc 20C   i 400   dt 3C   st 01   ticks 42", lines[0])
	assert.Equal(" v0 00 v1 00 v2 00 v3 00 v4 00 v5 00 v6 00 v7 00", lines[1])
	assert.Equal(" v8 00 v9 00 vA 5C vB 00 vC 00 vD 00 vE 00 vF 00", lines[2])
	assert.Equal(" stack (2): 208 2F0", lines[3])
	assert.Equal(" line 7: add v1, v2", lines[4])
	assert.Equal("", lines[5])
}

func TestRender_NoListing(t *testing.T) {
	assert := assert.New(t)

	state := emulator.State{
		Pc:   0x200,
		Code: cpu.Code(0x00e0),
	}

	text := &strings.Builder{}
	Render(text, state)

	assert.Contains(text.String(), " stack (0):\n")
	assert.Contains(text.String(), " 200: .word 0x00e0\n")
}
