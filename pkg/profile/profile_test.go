package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kapsel-run/kapsel/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSchemaProducesValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, WriteSchema(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "properties")
}

func TestValidateAcceptsWellFormedProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	limits := types.ResourceLimits{ProcessNumber: "20", CPUShare: 512, Memory: "256m", SwapMemory: "512m"}
	raw, err := json.Marshal(limits)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	violations, err := Validate(path)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestLoadDecodesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	limits := types.ResourceLimits{ProcessNumber: "10", CPUShare: 256, Memory: "128m", SwapMemory: "256m"}
	raw, err := json.Marshal(limits)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, limits, got)
}
