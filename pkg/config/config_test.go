package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenAbsent(t *testing.T) {
	d, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "kapsel0", d.Bridge.Name)
	assert.Equal(t, "20", d.Limits.ProcessNumber)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	want := Defaults{
		Distro: types.Alpine,
		Limits: types.ResourceLimits{ProcessNumber: "30", CPUShare: 768, Memory: "512m", SwapMemory: "1g"},
		Bridge: BridgeDefaults{Name: "br0", IP: "10.0.0.1", Prefix: 16, Nameserver: "1.1.1.1"},
	}
	require.NoError(t, Save(dir, want))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEnsureLayoutCreatesSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureLayout(dir))
	for _, sub := range []string{"cache", "containers", "images", "logs"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
