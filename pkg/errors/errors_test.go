package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	appErr := New(CodeTrapMalformed, "trapparser", "Parse", "bad line").Wrap(cause)

	require.Equal(t, cause, appErr.Unwrap())
	require.ErrorIs(t, appErr, cause)
}

func TestCriticalIsNotRecoverable(t *testing.T) {
	appErr := NewCritical(CodeLogUnopenable, "tailer", "open", "cannot open")
	require.True(t, appErr.IsCritical())
	require.False(t, appErr.IsRecoverable())
}

func TestLowSeverityIsRecoverable(t *testing.T) {
	appErr := NewWithSeverity(SeverityLow, CodeTrapMalformed, "trapparser", "Parse", "bad line")
	require.True(t, appErr.IsRecoverable())
}

func TestToMapIncludesMetadata(t *testing.T) {
	appErr := New(CodePersistFailed, "persist", "insert", "db error").WithMetadata("source", "1.2.3.4")
	m := appErr.ToMap()
	require.Equal(t, "1.2.3.4", m["error_meta_source"])
	require.Equal(t, CodePersistFailed, m["error_code"])
}

func TestAsAppError(t *testing.T) {
	var err error = New(CodeForwardFailed, "forward", "Forward", "exec failed")
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	require.Equal(t, CodeForwardFailed, appErr.Code)
}
