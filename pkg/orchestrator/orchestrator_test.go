package orchestrator

import (
	"testing"

	"github.com/kapsel-run/kapsel/pkg/config"
	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssignsIdWhenAbsent(t *testing.T) {
	defaults, err := config.Load(t.TempDir())
	require.NoError(t, err)

	o := New(types.RunOptions{Distro: types.Ubuntu, Command: []string{"true"}}, defaults)
	assert.Len(t, o.Container.Id, 12)
	assert.Equal(t, Created, o.State())
	assert.Equal(t, "kapsel0", o.Bridge.BridgeName)
}

func TestNewKeepsExplicitValidId(t *testing.T) {
	defaults, err := config.Load(t.TempDir())
	require.NoError(t, err)

	o := New(types.RunOptions{ContainerId: "fixedid00001", Command: []string{"true"}}, defaults)
	assert.Equal(t, "fixedid00001", o.Container.Id)
}

func TestNewFallsBackOnInvalidExplicitId(t *testing.T) {
	defaults, err := config.Load(t.TempDir())
	require.NoError(t, err)

	o := New(types.RunOptions{ContainerId: "not valid!", Command: []string{"true"}}, defaults)
	assert.NotEqual(t, "not valid!", o.Container.Id)
	assert.Len(t, o.Container.Id, 12)
}

func TestEncodeDecodeContainerRoundTrips(t *testing.T) {
	c := types.Container{
		Id:      "roundtrip001",
		Distro:  types.Alpine,
		Command: []string{"sh", "-c", "echo hi"},
	}
	payload, err := encodeContainer(c)
	require.NoError(t, err)

	got, err := DecodeContainer(payload)
	require.NoError(t, err)
	assert.Equal(t, c.Id, got.Id)
	assert.Equal(t, c.Distro, got.Distro)
	assert.Equal(t, c.Command, got.Command)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "cleaned-up", CleanedUp.String())
}
