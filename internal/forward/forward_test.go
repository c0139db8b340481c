package forward

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslateVarbinds(t *testing.T) {
	got := translateVarbinds(".1.3.6.1.2.1.1.3.0 = TIMETICKS: 12345")
	require.Equal(t, []string{".1.3.6.1.2.1.1.3.0", "t", "12345"}, got)
}

func TestTranslateVarbindsStripsNonDigitsFromInteger(t *testing.T) {
	got := translateVarbinds(".1.2.3 = INTEGER: -42abc")
	require.Equal(t, []string{".1.2.3", "i", "-42"}, got)
}

func TestTranslateVarbindsMultiple(t *testing.T) {
	got := translateVarbinds(".1.2.3 = STRING: hello\t.4.5.6 = OBJID: .1.2.3.4")
	require.Equal(t, []string{".1.2.3", "s", "hello", ".4.5.6", "o", ".1.2.3.4"}, got)
}
