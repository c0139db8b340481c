// Package dispatcher implements the Dispatcher: a producer/consumer
// loop that runs one producer pass per tick, applying StormGuard and
// SourceLocker, and drains a bounded worker pool per spec.md §4.8.
package dispatcher

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"snmptrapd-core/internal/filter"
	"snmptrapd-core/internal/forward"
	"snmptrapd-core/internal/lock"
	"snmptrapd-core/internal/metrics"
	"snmptrapd-core/internal/persist"
	"snmptrapd-core/internal/storm"
	"snmptrapd-core/internal/tailer"
	"snmptrapd-core/internal/trapparser"
)

var leadingTrapPattern = regexp.MustCompile(`^SNMPv[12]\[\*\*\]`)

// Config configures the per-tick cadence and worker pool.
type Config struct {
	TickPeriod        time.Duration
	Workers           int
	DelayAfterPersist time.Duration
}

// task is one line queued for a worker after the producer pass admits
// it.
type task struct {
	line   string
	source string
}

// Dispatcher wires LogTailer(s), StormGuard, SourceLocker, TrapParser,
// FilterEngine, Forwarder, and Persister into the producer/worker-pool
// control flow of spec.md §4.8.
type Dispatcher struct {
	cfg Config

	primary   *tailer.LogTailer
	secondary *tailer.LogTailer

	guard   *storm.Guard
	locker  *lock.SourceLocker
	parser  *trapparser.Parser
	filters *filter.Engine
	fwd     *forward.Forwarder
	store   *persist.Persister

	lockModeEnabled bool

	metrics *metrics.Metrics
	log     *logrus.Entry

	carryOver []string
	wg        sync.WaitGroup
	stopped   chan struct{}
}

// New builds a Dispatcher. secondary may be nil (snmp_extlog unset).
func New(
	cfg Config,
	primary, secondary *tailer.LogTailer,
	guard *storm.Guard,
	locker *lock.SourceLocker,
	parser *trapparser.Parser,
	filters *filter.Engine,
	fwd *forward.Forwarder,
	store *persist.Persister,
	lockModeEnabled bool,
	m *metrics.Metrics,
	log *logrus.Entry,
) *Dispatcher {
	return &Dispatcher{
		cfg:             cfg,
		primary:         primary,
		secondary:       secondary,
		guard:           guard,
		locker:          locker,
		parser:          parser,
		filters:         filters,
		fwd:             fwd,
		store:           store,
		lockModeEnabled: lockModeEnabled,
		metrics:         m,
		log:             log.WithField("component", "dispatcher"),
		stopped:         make(chan struct{}),
	}
}

// Run blocks, running one producer tick every cfg.TickPeriod, until
// ctx is canceled. On return, in-flight workers have drained and
// cursors are flushed.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher shutting down, draining in-flight workers")
			d.wg.Wait()
			d.flushCursors()
			close(d.stopped)
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// Stopped is closed once Run has fully drained and flushed after
// context cancellation.
func (d *Dispatcher) Stopped() <-chan struct{} {
	return d.stopped
}

func (d *Dispatcher) tick(ctx context.Context) {
	start := time.Now()
	now := start.Unix()

	d.guard.Tick(now, d.lockModeEnabled)

	snapshot := d.locker.Snapshot()
	tasks := d.produce(now, snapshot)

	if d.metrics != nil {
		d.metrics.QueueDepth.Set(float64(len(tasks)))
	}

	d.consume(ctx, tasks)

	if d.metrics != nil {
		d.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
}

// produce implements spec.md §4.8's per-tick producer algorithm:
// carry-over buffer, then primary tailer, then secondary tailer; for
// each admitted line, attempt SourceLocker.acquire against the
// snapshot, deferring refusals to the next tick's carry-over buffer.
func (d *Dispatcher) produce(now int64, snapshot map[string]struct{}) []task {
	var tasks []task
	var nextCarryOver []string

	lines := d.carryOver
	d.carryOver = nil

	for _, src := range []*tailer.LogTailer{d.primary, d.secondary} {
		if src == nil {
			continue
		}
		if err := src.CheckRotation(); err != nil {
			d.log.WithError(err).Warn("rotation check failed")
		}
		for {
			line, ok, err := src.Next()
			if err != nil {
				d.log.WithError(err).Warn("tailer read failed")
				break
			}
			if !ok {
				break
			}
			lines = append(lines, line)
			if err := src.Checkpoint(); err != nil {
				d.log.WithError(err).Warn("checkpoint write failed")
			}
		}
	}

	for _, line := range lines {
		if !leadingTrapPattern.MatchString(line) {
			continue
		}

		source := cheapSource(line)

		decision := d.guard.Evaluate(source, now)
		if decision != storm.Admit {
			if d.metrics != nil {
				d.metrics.TrapsDropped.WithLabelValues(source, "storm").Inc()
			}
			continue
		}

		granted, err := d.locker.Acquire(source, snapshot)
		if err != nil {
			d.log.WithError(err).WithField("source", source).Warn("lock acquire failed")
			continue
		}
		if !granted {
			nextCarryOver = append(nextCarryOver, line)
			continue
		}

		tasks = append(tasks, task{line: line, source: source})
		snapshot[source] = struct{}{}
	}

	d.carryOver = nextCarryOver
	return tasks
}

// cheapSource extracts the source field without a full parse, per
// spec.md §4.8 step 3 ("Extract source (cheap parse; full parse
// happens in worker)"). The source is always field index 3.
func cheapSource(line string) string {
	fields := strings.Split(line, "[**]")
	if len(fields) < 4 {
		return ""
	}
	return fields[3]
}

// consume submits tasks to a bounded worker pool and waits for all of
// them to complete before returning, per spec.md §4.8 step 5.
func (d *Dispatcher) consume(ctx context.Context, tasks []task) {
	if len(tasks) == 0 {
		return
	}

	sem := make(chan struct{}, d.cfg.Workers)
	var wg sync.WaitGroup

	for _, t := range tasks {
		sem <- struct{}{}
		wg.Add(1)
		d.wg.Add(1)
		go func(t task) {
			defer func() {
				<-sem
				wg.Done()
				d.wg.Done()
			}()
			d.work(ctx, t)
		}(t)
	}

	wg.Wait()
}

// work runs Parse -> Filter -> (Forward) -> Persist -> release lock
// for one task, recovering from worker panics so a single bad record
// cannot take down the pool (spec.md §7).
func (d *Dispatcher) work(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("panic", r).WithField("source", t.source).Error("worker panic recovered")
		}
		if err := d.locker.Release(t.source); err != nil {
			d.log.WithError(err).WithField("source", t.source).Warn("lock release failed")
		}
	}()

	trap, err := d.parser.Parse(t.line)
	if err != nil {
		d.log.WithError(err).Warn("trap dropped: malformed line")
		if d.metrics != nil {
			d.metrics.TrapsDropped.WithLabelValues(t.source, "malformed").Inc()
		}
		return
	}

	if d.metrics != nil {
		d.metrics.TrapsIngested.WithLabelValues(trap.Source).Inc()
	}

	if d.filters != nil && d.filters.Matches(trap.RawTail) {
		if d.metrics != nil {
			d.metrics.TrapsDropped.WithLabelValues(trap.Source, "filtered").Inc()
		}
		return
	}

	if d.fwd != nil {
		d.fwd.Forward(ctx, trap)
	}

	if d.store != nil {
		d.store.Persist(ctx, trap)
	}

	if d.cfg.DelayAfterPersist > 0 {
		time.Sleep(d.cfg.DelayAfterPersist)
	}
}

func (d *Dispatcher) flushCursors() {
	for _, tl := range []*tailer.LogTailer{d.primary, d.secondary} {
		if tl == nil {
			continue
		}
		if err := tl.Checkpoint(); err != nil {
			d.log.WithError(err).Warn("final checkpoint failed")
		}
	}
}
