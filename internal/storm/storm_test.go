package storm

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return logrus.NewEntry(l)
}

func TestStormSilencing(t *testing.T) {
	g := New(3600, 5, 60, testLogger())
	var emitted int
	g.OnSilenced = func(source string, seconds int64) { emitted++ }

	now := int64(1000)
	g.Tick(now, false)

	var decisions []Decision
	for i := 0; i < 10; i++ {
		decisions = append(decisions, g.Evaluate("1.2.3.4", now))
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, Admit, decisions[i], "trap %d should be admitted", i+1)
	}
	for i := 5; i < 10; i++ {
		require.Equal(t, DropSilenced, decisions[i], "trap %d should be dropped", i+1)
	}
	require.Equal(t, 1, emitted, "exactly one silencing event")

	require.Equal(t, DropSilenced, g.Evaluate("1.2.3.4", now+30))
	require.Equal(t, Admit, g.Evaluate("1.2.3.4", now+61))
}

func TestWindowResetClearsStats(t *testing.T) {
	g := New(10, 2, 0, testLogger())
	g.Tick(1000, false)
	g.Evaluate("src", 1000)
	g.Evaluate("src", 1000)
	require.Equal(t, DropSilenced, g.Evaluate("src", 1000))

	g.Tick(1011, false)
	require.Equal(t, Admit, g.Evaluate("src", 1011))
}

func TestThresholdDisabledAdmitsEverything(t *testing.T) {
	g := New(60, 0, 0, testLogger())
	g.Tick(1000, false)
	for i := 0; i < 100; i++ {
		require.Equal(t, Admit, g.Evaluate("src", 1000))
	}
}

func TestLockModeResetsEveryTick(t *testing.T) {
	g := New(3600, 1, 0, testLogger())
	g.Tick(1000, true)
	require.Equal(t, Admit, g.Evaluate("src", 1000))
	g.Tick(1000, true)
	require.Equal(t, Admit, g.Evaluate("src", 1000))
}
