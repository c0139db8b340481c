// Package storm implements per-source storm protection: a sliding
// rate-limiting window with silencing and recovery.
package storm

import (
	"github.com/sirupsen/logrus"

	"snmptrapd-core/pkg/types"
)

// Decision is the outcome of evaluating a trap from a given source.
type Decision int

const (
	// Admit means the trap should proceed to SourceLocker/the worker.
	Admit Decision = iota
	// Drop means the trap should be discarded silently.
	Drop
	// DropSilenced means the trap triggered (or continued) a silencing
	// transition; a system event has been emitted exactly once.
	DropSilenced
)

// Guard implements spec.md §4.3. It is accessed only by the single
// producer thread; no internal synchronization is required.
type Guard struct {
	windowSeconds  int64
	threshold      int
	silenceSeconds int64

	log *logrus.Entry

	stormRef int64
	stats    map[string]*types.SourceStat
	silences map[string]*types.SilenceEntry

	// OnSilenced is invoked exactly once per silencing transition with
	// the source and the silence duration in seconds, so the caller can
	// emit the single "too many traps" system event.
	OnSilenced func(source string, silenceSeconds int64)
}

// New builds a Guard. threshold <= 0 disables storm protection
// entirely (every trap is admitted).
func New(windowSeconds, threshold, silenceSeconds int, log *logrus.Entry) *Guard {
	return &Guard{
		windowSeconds:  int64(windowSeconds),
		threshold:      threshold,
		silenceSeconds: int64(silenceSeconds),
		log:            log.WithField("component", "storm"),
		stats:          make(map[string]*types.SourceStat),
		silences:       make(map[string]*types.SilenceEntry),
	}
}

// Tick resets the window if the configured period has elapsed, or
// unconditionally if lockMode is true (per spec.md §4.3, lock mode
// makes the window effectively per-tick).
func (g *Guard) Tick(now int64, lockMode bool) {
	if g.stormRef == 0 {
		g.stormRef = now
	}
	if lockMode || now > g.stormRef+g.windowSeconds {
		g.stormRef = now
		g.stats = make(map[string]*types.SourceStat)
	}
}

// Evaluate applies the per-trap decision of spec.md §4.3 for source S
// at time now.
func (g *Guard) Evaluate(source string, now int64) Decision {
	stat, ok := g.stats[source]
	if !ok {
		stat = &types.SourceStat{}
		g.stats[source] = stat
	}
	stat.Count++

	if entry, silenced := g.silences[source]; silenced {
		if now < entry.SilenceUntil {
			return DropSilenced
		}
		// Silence expired: the source state machine transitions back to
		// Normal (spec.md §4.9), so its count restarts rather than
		// immediately re-tripping the threshold it was silenced at.
		delete(g.silences, source)
		stat.Count = 1
		stat.EventEmitted = false
	}

	if g.threshold > 0 && stat.Count > g.threshold {
		if !stat.EventEmitted {
			duration := g.silenceSeconds
			if duration <= 0 {
				duration = g.windowSeconds
			}
			g.silences[source] = &types.SilenceEntry{SilenceUntil: now + duration}
			stat.EventEmitted = true
			if g.OnSilenced != nil {
				g.OnSilenced(source, duration)
			}
			g.log.WithField("source", source).WithField("silence_seconds", duration).
				Warn("too many traps; source silenced")
		}
		return DropSilenced
	}

	return Admit
}
