package types

// SourceStat tracks a source's trap count within the current storm
// window and whether the silencing event for this transition has
// already been emitted.
type SourceStat struct {
	Count        int
	EventEmitted bool
}

// SilenceEntry records the unix time until which a source is
// silenced after exceeding the storm threshold.
type SilenceEntry struct {
	SilenceUntil int64
}
