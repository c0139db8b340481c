// Package filter evaluates grouped regular-expression filters against
// a trap's raw tail: AND within a group, OR across groups.
package filter

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"snmptrapd-core/pkg/types"
)

type compiledGroup struct {
	groupID  int
	patterns []*regexp.Regexp
	broken   bool
}

// Engine evaluates a trap's raw tail against a set of compiled filter
// groups. The groups are fixed when Compile builds the Engine; an
// Engine has no reload.
type Engine struct {
	groups []compiledGroup
	log    *logrus.Entry
}

// Compile builds an Engine from raw filter groups, loaded from the
// external FilterStore. A group is AND-across-patterns per spec.md
// §4.5, so a pattern that fails to compile must not shrink that AND
// chain — it would only make the group easier to satisfy. Instead the
// whole group is marked broken and never matches.
func Compile(raw []types.FilterGroup, log *logrus.Entry) *Engine {
	entry := log.WithField("component", "filter")
	groups := make([]compiledGroup, 0, len(raw))

	for _, g := range raw {
		compiled := make([]*regexp.Regexp, 0, len(g.Patterns))
		broken := false
		for _, pattern := range g.Patterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				entry.WithError(err).WithField("pattern", pattern).
					Warn("filter pattern failed to compile, group will never match")
				broken = true
				continue
			}
			compiled = append(compiled, re)
		}
		groups = append(groups, compiledGroup{groupID: g.GroupID, patterns: compiled, broken: broken})
	}

	return &Engine{groups: groups, log: entry}
}

// Matches reports whether rawTail matches at least one group (every
// pattern in that group matches). A panic during match is recovered
// and treated as non-matching for that pattern (fail-closed).
func (e *Engine) Matches(rawTail string) bool {
	for _, g := range e.groups {
		if e.groupMatches(g, rawTail) {
			return true
		}
	}
	return false
}

func (e *Engine) groupMatches(g compiledGroup, rawTail string) bool {
	if g.broken {
		return false
	}
	for _, re := range g.patterns {
		if !e.safeMatch(re, rawTail) {
			return false
		}
	}
	return len(g.patterns) > 0
}

func (e *Engine) safeMatch(re *regexp.Regexp, rawTail string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("pattern", re.String()).WithField("panic", r).
				Warn("filter match panicked, treating as non-matching")
			matched = false
		}
	}()
	return re.MatchString(rawTail)
}
