package childproc

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAttachNonTerminalFallback exercises the plain-stdio path: test
// binaries' stdin is never a terminal, so Attach should behave like a
// bare cmd.Run() here.
func TestAttachNonTerminalFallback(t *testing.T) {
	cmd := exec.Command("true")
	err := Attach(cmd)
	assert.NoError(t, err)
}

func TestAttachPropagatesNonZeroExit(t *testing.T) {
	cmd := exec.Command("false")
	err := Attach(cmd)
	assert.Error(t, err)
}
