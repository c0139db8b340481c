package filter

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"snmptrapd-core/pkg/types"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	return logrus.NewEntry(l)
}

func groupsFixture() []types.FilterGroup {
	return []types.FilterGroup{
		{GroupID: 1, Patterns: []string{"foo", "bar"}},
		{GroupID: 2, Patterns: []string{"baz"}},
	}
}

func TestFilterMatchingAcrossGroups(t *testing.T) {
	e := Compile(groupsFixture(), testLogger())

	require.True(t, e.Matches("foo baz"), "matches via group 2")
	require.False(t, e.Matches("foo"), "foo alone does not match")
	require.True(t, e.Matches("foo bar x"), "matches via group 1")
}

func TestInvalidPatternFailsClosedNotFatal(t *testing.T) {
	groups := []types.FilterGroup{
		{GroupID: 1, Patterns: []string{"("}},
	}
	e := Compile(groups, testLogger())
	require.False(t, e.Matches("anything"))
}

func TestEmptyGroupsNeverMatch(t *testing.T) {
	e := Compile(nil, testLogger())
	require.False(t, e.Matches("anything"))
}

func TestGroupWithOneInvalidPatternNeverMatches(t *testing.T) {
	groups := []types.FilterGroup{
		{GroupID: 1, Patterns: []string{"foo", "("}},
	}
	e := Compile(groups, testLogger())
	require.False(t, e.Matches("foo"), "a broken pattern must not shrink the AND chain to the surviving pattern")
	require.False(t, e.Matches("foo bar baz"), "group stays broken regardless of input")
}
