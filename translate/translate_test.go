package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	SetLanguage()

	assert.Equal("stack empty", From("stack empty"))
	assert.Equal("bad opcode 0x00e0 at 0x200", From("bad opcode 0x%04x at 0x%03x", 0xe0, 0x200))
}

func TestSetLanguage(t *testing.T) {
	assert := assert.New(t)

	SetLanguage("de-DE", "en-US")
	defer SetLanguage()

	assert.Contains(From("word 0x%04x", 0x8124), "8124")
	assert.Equal("stack full", From("stack full"))
}
