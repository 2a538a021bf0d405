package netfabric

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOffset(t *testing.T) {
	ip := net.ParseIP("107.17.0.1")
	out, err := addOffset(ip, 2)
	require.NoError(t, err)
	assert.Equal(t, "107.17.0.3", out.String())
}

func TestAddOffsetWraps(t *testing.T) {
	ip := net.ParseIP("107.17.0.254")
	out, err := addOffset(ip, 2)
	require.NoError(t, err)
	assert.Equal(t, "107.17.1.0", out.String())
}

func TestAddOffsetRejectsIPv6(t *testing.T) {
	ip := net.ParseIP("::1")
	_, err := addOffset(ip, 1)
	assert.Error(t, err)
}

func TestWithPrefix(t *testing.T) {
	assert.Equal(t, "107.17.0.5/24", withPrefix(net.ParseIP("107.17.0.5"), 24))
}
