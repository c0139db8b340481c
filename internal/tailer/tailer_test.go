package tailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return logrus.NewEntry(l)
}

func TestNextReadsSingleLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	require.NoError(t, os.WriteFile(path, []byte("SNMPv1[**]a[**]b\n"), 0o644))

	tl, err := New(path, testLogger())
	require.NoError(t, err)
	defer tl.Close()

	line, ok, err := tl.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "SNMPv1[**]a[**]b", line)
}

func TestMultiLineReassembly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	content := "SNMPv2[**]x\ncont1\ncont2\ncont3\nSNMPv2[**]y\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tl, err := New(path, testLogger())
	require.NoError(t, err)
	defer tl.Close()

	line, ok, err := tl.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "SNMPv2[**]xcont1cont2cont3", line)

	line2, ok2, err := tl.Next()
	require.NoError(t, err)
	require.True(t, ok2)
	require.Equal(t, "SNMPv2[**]y", line2)
}

func TestRotationRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	require.NoError(t, os.WriteFile(path, []byte("SNMPv1[**]a[**]long-line-here\n"), 0o644))

	tl, err := New(path, testLogger())
	require.NoError(t, err)
	defer tl.Close()

	_, _, err = tl.Next()
	require.NoError(t, err)
	require.NoError(t, tl.Checkpoint())

	require.NoError(t, os.WriteFile(path, []byte("SNMPv1[**]b\n"), 0o644))
	require.NoError(t, tl.CheckRotation())

	line, ok, err := tl.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "SNMPv1[**]b", line)
}

func TestStartupSkipAhead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trap.log")
	require.NoError(t, os.WriteFile(path, []byte("SNMPv1[**]a\nSNMPv1[**]b\nSNMPv1[**]c\n"), 0o644))

	tl, err := New(path, testLogger())
	require.NoError(t, err)
	_, _, err = tl.Next()
	require.NoError(t, err)
	require.NoError(t, tl.Checkpoint())
	require.NoError(t, tl.Close())

	tl2, err := New(path, testLogger())
	require.NoError(t, err)
	defer tl2.Close()

	line, ok, err := tl2.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "SNMPv1[**]b", line)
}

