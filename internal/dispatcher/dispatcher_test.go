package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"snmptrapd-core/internal/filter"
	"snmptrapd-core/internal/lock"
	"snmptrapd-core/internal/persist"
	"snmptrapd-core/internal/storm"
	"snmptrapd-core/internal/tailer"
	"snmptrapd-core/internal/trapparser"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return logrus.NewEntry(l)
}

func TestCheapSource(t *testing.T) {
	require.Equal(t, "1.2.3.4", cheapSource("SNMPv1[**]date[**]time[**]1.2.3.4[**]rest"))
	require.Equal(t, "", cheapSource("too short"))
}

func TestProduceAdmitsAndDefersOnLockRefusal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	content := "SNMPv1[**]2024-01-15[**]10:20:30[**]1.1.1.1[**].1.2.3[**]6[**]x[**]v[**]data\n" +
		"SNMPv1[**]2024-01-15[**]10:20:31[**]1.1.1.1[**].1.2.4[**]6[**]x[**]v[**]data2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	primary, err := tailer.New(path, testLogger())
	require.NoError(t, err)
	defer primary.Close()

	guard := storm.New(3600, 0, 60, testLogger())
	locker := lock.New(true, nil)
	parser := trapparser.New(false)
	filters := filter.Compile(nil, testLogger())
	var store *persist.Persister

	d := New(Config{TickPeriod: time.Second, Workers: 2}, primary, nil, guard, locker, parser, filters, nil, store, false, nil, testLogger())

	now := time.Now().Unix()
	guard.Tick(now, false)
	snapshot := locker.Snapshot()

	tasks := d.produce(now, snapshot)

	require.Len(t, tasks, 1, "second trap from the same source should be deferred, not enqueued")
	require.Equal(t, "1.1.1.1", tasks[0].source)
	require.Len(t, d.carryOver, 1, "refused line carried over to next tick")
}

func TestConsumeRunsAllTasksAndReleasesLocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	require.NoError(t, os.WriteFile(path, []byte("SNMPv1[**]2024-01-15[**]10:20:30[**]9.9.9.9[**].1.2.3[**]6[**]x[**]v[**]data\n"), 0o644))

	primary, err := tailer.New(path, testLogger())
	require.NoError(t, err)
	defer primary.Close()

	guard := storm.New(3600, 0, 60, testLogger())
	locker := lock.New(true, nil)
	parser := trapparser.New(false)
	filters := filter.Compile(nil, testLogger())

	d := New(Config{TickPeriod: time.Second, Workers: 2}, primary, nil, guard, locker, parser, filters, nil, nil, false, nil, testLogger())

	acquired, _ := locker.Acquire("9.9.9.9", locker.Snapshot())
	require.True(t, acquired)
	require.NoError(t, locker.Release("9.9.9.9"))

	tasks := []task{{line: "SNMPv1[**]2024-01-15[**]10:20:30[**]9.9.9.9[**].1.2.3[**]6[**]x[**]v[**]data", source: "9.9.9.9"}}
	d.consume(context.Background(), tasks)

	granted, err := locker.Acquire("9.9.9.9", locker.Snapshot())
	require.NoError(t, err)
	require.True(t, granted, "lock should be released after worker completes")
}
