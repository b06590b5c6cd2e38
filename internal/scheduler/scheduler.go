// Package scheduler drives the evaluation tick: load one snapshot, rebuild
// the full rule set, and push every rule through the dispatch guard. Many
// replicas run this loop concurrently on the same cadence; the guard's lock
// store is what keeps the fleet from duplicating work.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/outriggerhq/outrigger/internal/dispatch"
	"github.com/outriggerhq/outrigger/internal/metrics"
	"github.com/outriggerhq/outrigger/internal/schedule"
)

// SnapshotSource loads the tick's entity snapshot. This is the single
// allowed suspension point of a tick.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*schedule.Snapshot, error)
}

// Submitter hands one rule to the executor, returning
// dispatch.ErrAlreadyRunning on cross-node contention.
type Submitter interface {
	Submit(ctx context.Context, rule schedule.Rule) error
}

// Beacon records replica liveness somewhere observable.
type Beacon interface {
	Beat(ctx context.Context)
}

// Options configures a Scheduler.
type Options struct {
	Mode     schedule.Mode
	Cloud    bool
	Interval time.Duration
	Beacon   Beacon
}

// Scheduler runs the periodic evaluation tick.
type Scheduler struct {
	source  SnapshotSource
	builder *schedule.Builder
	guard   Submitter
	beacon  Beacon

	mode     schedule.Mode
	cloud    bool
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once

	// now is the tick clock, overridable in tests.
	now func() time.Time

	mu        sync.RWMutex
	lastRules []schedule.Rule
}

// New creates a Scheduler. Interval defaults to one minute.
func New(source SnapshotSource, builder *schedule.Builder, guard Submitter, opts Options) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	mode := opts.Mode
	if mode == "" {
		mode = schedule.ModeProduction
	}
	return &Scheduler{
		source:   source,
		builder:  builder,
		guard:    guard,
		beacon:   opts.Beacon,
		mode:     mode,
		cloud:    opts.Cloud,
		interval: interval,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the tick loop in the background.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the tick loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if err := s.RunTick(ctx); err != nil {
		slog.Error("tick aborted", "error", err)
	}
}

// RunTick performs one evaluation pass. Snapshot load failure aborts the
// whole tick; everything after that is contained per rule — an invalid
// expression or a contended lock never affects the other rules. A rule is
// submitted only when its trigger fires within the window ending at this
// tick, so a daily rule reaches the executor on one tick per day, not on
// every tick.
func (s *Scheduler) RunTick(ctx context.Context) error {
	metrics.TicksTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	if s.beacon != nil {
		s.beacon.Beat(ctx)
	}

	snap, err := s.source.LoadSnapshot(ctx)
	if err != nil {
		metrics.TickFailures.Inc()
		return fmt.Errorf("load snapshot: %w", err)
	}

	rules := s.builder.Build(ctx, s.mode, s.cloud, snap)
	metrics.RulesBuilt.Set(float64(len(rules)))
	s.setLastRules(rules)

	now := s.now()
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}

		due, err := schedule.TriggerDue(rule.TriggerExpr, rule.Timezone, now, s.interval)
		if err != nil {
			metrics.InvalidTriggers.Inc()
			slog.Error("invalid trigger expression, rule skipped",
				"job", rule.JobIdentity, "expression", rule.TriggerExpr, "error", err)
			continue
		}
		if !due {
			continue
		}

		switch err := s.guard.Submit(ctx, rule); {
		case errors.Is(err, dispatch.ErrAlreadyRunning):
			metrics.LockContention.Inc()
			slog.Debug("job held by another node, skipping", "job", rule.JobIdentity)
		case err != nil:
			slog.Error("submit rule", "job", rule.JobIdentity, "error", err)
		default:
			metrics.RulesSubmitted.WithLabelValues(rule.Payload.Kind).Inc()
		}
	}

	slog.Info("tick complete", "rules", len(rules), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// LastRules returns a copy of the rule set built by the most recent tick.
func (s *Scheduler) LastRules() []schedule.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.Rule, len(s.lastRules))
	copy(out, s.lastRules)
	return out
}

func (s *Scheduler) setLastRules(rules []schedule.Rule) {
	s.mu.Lock()
	s.lastRules = rules
	s.mu.Unlock()
}
