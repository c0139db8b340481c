package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSetExclusiveAcquire(t *testing.T) {
	l := NewLockSet()

	require.True(t, l.Acquire("a"))
	require.False(t, l.Acquire("a"), "second acquire of the same source must be refused")

	l.Release("a")
	require.True(t, l.Acquire("a"), "acquire after release must succeed")
}

func TestLockSetSnapshotIsIndependentCopy(t *testing.T) {
	l := NewLockSet()
	l.Acquire("a")

	snap := l.Snapshot()
	l.Acquire("b")

	_, hasB := snap["b"]
	require.False(t, hasB, "snapshot must not reflect acquisitions made after it was taken")
}
