// Package persist implements the Persister: a single-row relational
// insert plus alert-evaluation handoff, grounded on
// tokyoyoyo-baize-monitor's sqlx-based Postgres client.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	apperrors "snmptrapd-core/pkg/errors"
	"snmptrapd-core/pkg/types"
)

// Persister is the sole writer of trap rows; inserts are independent,
// no multi-row transactions are required (spec.md §4.7).
type Persister struct {
	db        *sqlx.DB
	evaluator types.AlertEvaluator
	log       *logrus.Entry
}

// Open connects to the relational store described by dsn and tunes
// the pool per the teacher's postgres client.
func Open(dsn string, maxOpen, maxIdle, connMaxLifetimeMinutes int, evaluator types.AlertEvaluator, log *logrus.Entry) (*Persister, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewCritical(apperrors.CodePersistFailed, "persist", "Open",
			"cannot connect to trap store").Wrap(err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeMinutes) * time.Minute)

	return &Persister{db: db, evaluator: evaluator, log: log.WithField("component", "persist")}, nil
}

const insertSQL = `
INSERT INTO ttrap (timestamp, source, oid, type, value, oid_custom, value_custom, type_custom, utimestamp)
VALUES (:timestamp, :source, :oid, :type, :value, :oid_custom, :value_custom, :type_custom, :utimestamp)
RETURNING id_trap`

// Persist inserts trap as a Row, then hands off to the alert
// evaluator. DB insert failure is logged and the trap is dropped (no
// retry — the tailer's index has already advanced, spec.md §7).
func (p *Persister) Persist(ctx context.Context, trap *types.Trap) {
	row := &types.Row{
		Timestamp:   trap.ReceivedAt,
		Source:      trap.Source,
		OID:         trap.OID,
		GenericType: trap.GenericType,
		Value:       trap.Value,
		CustomOID:   trap.CustomPayload,
		CustomValue: "",
		CustomType:  "",
		UnixTime:    time.Now().Unix(),
	}

	id, err := p.insert(ctx, row)
	if err != nil {
		p.log.WithError(err).WithField("source", trap.Source).WithField("oid", trap.OID).
			Warn("trap insert failed, trap lost")
		return
	}

	if p.evaluator == nil {
		return
	}
	if err := p.evaluator.Evaluate(ctx, id, trap.Source, trap.OID, trap.GenericType, trap.Value, trap.CustomPayload); err != nil {
		p.log.WithError(err).WithField("trap_id", id).Warn("alert evaluation failed")
	}
}

func (p *Persister) insert(ctx context.Context, row *types.Row) (int64, error) {
	params := map[string]interface{}{
		"timestamp":    row.Timestamp,
		"source":       row.Source,
		"oid":          row.OID,
		"type":         row.GenericType,
		"value":        row.Value,
		"oid_custom":   row.CustomOID,
		"value_custom": row.CustomValue,
		"type_custom":  row.CustomType,
		"utimestamp":   row.UnixTime,
	}

	rows, err := p.db.NamedQueryContext(ctx, insertSQL, params)
	if err != nil {
		return 0, fmt.Errorf("insert trap row: %w", err)
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan generated id: %w", err)
		}
	}
	return id, nil
}

// InsertTrap implements types.Store directly for callers that want
// the generated id without going through the alert-eval handoff.
func (p *Persister) InsertTrap(ctx context.Context, row *types.Row) (int64, error) {
	return p.insert(ctx, row)
}

// Close releases the underlying connection pool.
func (p *Persister) Close() error {
	return p.db.Close()
}
