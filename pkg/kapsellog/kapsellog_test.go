package kapsellog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureNoopWhenDisabled(t *testing.T) {
	require.NoError(t, Configure("", false))
}

func TestConfigureWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, Configure(path, true))

	Printf("hello %s", "world")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hello world")
}
