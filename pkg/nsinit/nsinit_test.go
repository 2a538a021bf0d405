package nsinit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinCommand(t *testing.T) {
	assert.Equal(t, "echo hello world", joinCommand([]string{"echo", "hello", "world"}))
	assert.Equal(t, "ls", joinCommand([]string{"ls"}))
	assert.Equal(t, "", joinCommand(nil))
}

func TestCharDevicesMatchKnownMajorMinor(t *testing.T) {
	want := map[string][2]uint32{
		"null":    {1, 3},
		"zero":    {1, 5},
		"random":  {1, 8},
		"urandom": {1, 9},
		"console": {136, 1},
		"tty":     {5, 0},
		"full":    {1, 7},
	}
	assert.Len(t, charDevices, len(want))
	for _, d := range charDevices {
		pair, ok := want[d.name]
		if assert.True(t, ok, "unexpected device %s", d.name) {
			assert.Equal(t, pair[0], d.major)
			assert.Equal(t, pair[1], d.min)
		}
	}
}

func TestRunCommandNoopOnEmptyCommand(t *testing.T) {
	assert.Equal(t, 0, runCommand(nil))
}
