package cgroup

import (
	"os"
	"testing"

	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRoot(t *testing.T) {
	t.Helper()
	if os.Getuid() != 0 {
		t.Skip("cgroup leaves require root")
	}
}

func TestNewCreatesLeafDirectories(t *testing.T) {
	requireRoot(t)

	limits := types.ResourceLimits{ProcessNumber: "10", CPUShare: 256, Memory: "64m", SwapMemory: "128m"}
	g, err := New("test-cgroup-new", limits)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Destroy() })

	for _, path := range []string{g.pids.path, g.memory.path, g.cpu.path} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestApplyAndDestroy(t *testing.T) {
	requireRoot(t)

	limits := types.ResourceLimits{ProcessNumber: "5", CPUShare: 128, Memory: "32m", SwapMemory: "64m"}
	g, err := New("test-cgroup-apply", limits)
	require.NoError(t, err)

	require.NoError(t, g.Apply(os.Getpid()))
	require.NoError(t, g.Destroy())
}

func TestDestroyToleratesMissingDirs(t *testing.T) {
	requireRoot(t)

	limits := types.ResourceLimits{ProcessNumber: "1", CPUShare: 1, Memory: "1m", SwapMemory: "1m"}
	g, err := New("test-cgroup-missing", limits)
	require.NoError(t, err)

	require.NoError(t, g.Destroy())
	// second call: directories are already gone, still not an error.
	assert.NoError(t, g.Destroy())
}
