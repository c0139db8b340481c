package lock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledAlwaysGrants(t *testing.T) {
	l := New(false, nil)
	granted, err := l.Acquire("src", l.Snapshot())
	require.NoError(t, err)
	require.True(t, granted)

	granted2, err := l.Acquire("src", l.Snapshot())
	require.NoError(t, err)
	require.True(t, granted2, "still always granted when disabled")
}

func TestEnabledRefusesSecondAcquire(t *testing.T) {
	l := New(true, nil)
	snap := l.Snapshot()

	granted, err := l.Acquire("src", snap)
	require.NoError(t, err)
	require.True(t, granted)

	granted2, err := l.Acquire("src", l.Snapshot())
	require.NoError(t, err)
	require.False(t, granted2)

	require.NoError(t, l.Release("src"))

	granted3, err := l.Acquire("src", l.Snapshot())
	require.NoError(t, err)
	require.True(t, granted3)
}

func TestSnapshotRefusesEvenBeforeBackendRoundtrip(t *testing.T) {
	l := New(true, nil)
	l.Acquire("src", l.Snapshot())
	staleSnapshot := l.Snapshot()

	granted, err := l.Acquire("src", staleSnapshot)
	require.NoError(t, err)
	require.False(t, granted)
}
