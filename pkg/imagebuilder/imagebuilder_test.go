package imagebuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducesTarball(t *testing.T) {
	root := t.TempDir()
	rootfs := filepath.Join(root, "rootfs")
	require.NoError(t, os.MkdirAll(rootfs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootfs, "hello.txt"), []byte("hi"), 0o644))

	require.NoError(t, Build(root, "buildtest001", rootfs))

	info, err := os.Stat(filepath.Join(root, "images", "buildtest001.tar.gz"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestBuildFailsOnMissingRootfs(t *testing.T) {
	root := t.TempDir()
	err := Build(root, "buildtest002", filepath.Join(root, "does-not-exist"))
	assert.Error(t, err)
}
