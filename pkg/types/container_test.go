package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerDirLayout(t *testing.T) {
	c := Container{Id: "abc123def456", RootDir: "/var/lib/kapsel"}
	assert.Equal(t, "/var/lib/kapsel/containers/abc123def456", c.ContainerDir())
	assert.Equal(t, "/var/lib/kapsel/containers/abc123def456/rootfs", c.RootfsDir())
	assert.Equal(t, "/var/lib/kapsel/containers/abc123def456/copy-on-write", c.UpperDir())
	assert.Equal(t, "/var/lib/kapsel/containers/abc123def456/work", c.WorkDir())
}
