package types

import "context"

// Store is the relational persistence collaborator consumed by the
// Persister (spec.md §6 external interface "the relational database").
type Store interface {
	InsertTrap(ctx context.Context, row *Row) (int64, error)
	Close() error
}

// AlertEvaluator is invoked after a successful insert, per spec.md
// §4.7.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, id int64, source, oid string, genericType int, value, customPayload string) error
}

// FilterGroup is an ordered list of regular-expression patterns; a
// trap matches a group iff every pattern in it matches.
type FilterGroup struct {
	GroupID  int
	Patterns []string
}

// FilterStore is the external filter-compilation store consumed by
// FilterEngine.
type FilterStore interface {
	Groups(ctx context.Context) ([]FilterGroup, error)
}
