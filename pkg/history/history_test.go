package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestStartThenFinishRoundTrips(t *testing.T) {
	l := openTestLedger(t)

	run, err := l.Start("abc123def456", "ubuntu", "echo hi", false)
	require.NoError(t, err)
	require.NotZero(t, run.ID)

	require.NoError(t, l.Finish(run.ID, 0, true))

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "abc123def456", all[0].ContainerId)
	assert.True(t, all[0].CleanedUp)
	assert.Equal(t, 0, all[0].ExitCode)
}

func TestLeakedReturnsOnlyUncleanedRuns(t *testing.T) {
	l := openTestLedger(t)

	clean, err := l.Start("clean000001", "ubuntu", "true", false)
	require.NoError(t, err)
	require.NoError(t, l.Finish(clean.ID, 0, true))

	leaked, err := l.Start("leaked000001", "alpine", "sleep 100", false)
	require.NoError(t, err)
	require.NoError(t, l.Finish(leaked.ID, 137, false))

	rows, err := l.Leaked()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "leaked000001", rows[0].ContainerId)
}
