package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRoot(t *testing.T) {
	t.Helper()
	if os.Getuid() != 0 {
		t.Skip("mount operations require root")
	}
}

func TestProvisionCreatesDirectoryTrio(t *testing.T) {
	root := t.TempDir()
	c := types.Container{Id: "provtest0001", RootDir: root}

	require.NoError(t, Provision(c))

	for _, dir := range []string{c.UpperDir(), c.WorkDir(), c.RootfsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestMakeRootPrivateRequiresRoot(t *testing.T) {
	requireRoot(t)
	assert.NoError(t, MakeRootPrivate())
}

func TestMountMergedAndTeardown(t *testing.T) {
	requireRoot(t)

	root := t.TempDir()
	c := types.Container{Id: "overlaytest01", RootDir: root, LowerDir: filepath.Join(root, "lower")}
	require.NoError(t, os.MkdirAll(c.LowerDir, 0o755))
	require.NoError(t, Provision(c))

	require.NoError(t, MountMerged(c.LowerDir, c.UpperDir(), c.WorkDir(), c.RootfsDir()))
	require.NoError(t, Teardown(c))
}
