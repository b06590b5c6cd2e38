// Package dispatch guards job submission with a distributed single-flight
// policy: at most one scheduler replica enqueues a given job identity per
// trigger window, however many replicas evaluate the same tick.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/outriggerhq/outrigger/internal/schedule"
)

// ErrAlreadyRunning reports that another node holds the lock for a job
// identity. Expected under concurrent replicas; callers skip the rule for
// this tick and try again next tick.
var ErrAlreadyRunning = errors.New("dispatch: job already held by another node")

// Locker is the shared cross-node lock store. Acquire must be an atomic
// test-and-set returning false (not an error) on contention.
type Locker interface {
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Executor runs a rule's job body asynchronously. The guard is its only
// caller.
type Executor interface {
	Enqueue(ctx context.Context, rule schedule.Rule) error
}

// Lock TTL bounds. The TTL follows the trigger's minimum period so a
// crashed holder blocks at most one window, clamped so degenerate
// expressions can't produce sub-second or multi-day locks.
const (
	minLockTTL     = 10 * time.Second
	maxLockTTL     = time.Hour
	defaultLockTTL = 5 * time.Minute
)

// Guard wraps an Executor with the single-flight lock.
type Guard struct {
	locks  Locker
	exec   Executor
	holder string
}

// New creates a Guard acquiring locks on behalf of holder (the scheduler
// replica's node ID).
func New(locks Locker, exec Executor, holder string) *Guard {
	return &Guard{locks: locks, exec: exec, holder: holder}
}

// Submit enqueues the rule unless another node already holds its lock.
// Returns ErrAlreadyRunning on contention. On success the lock is left in
// place as the exclusion window: it expires by TTL, never early, so a
// replica whose tick lags behind the submitting node's still sees the
// identity as held. Only a failed enqueue releases the lock here, freeing
// the window for a retry on the next tick.
func (g *Guard) Submit(ctx context.Context, rule schedule.Rule) error {
	ok, err := g.locks.Acquire(ctx, rule.JobIdentity, g.holder, lockTTL(rule))
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", rule.JobIdentity, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if err := g.exec.Enqueue(ctx, rule); err != nil {
		if relErr := g.locks.Release(ctx, rule.JobIdentity); relErr != nil {
			return errors.Join(fmt.Errorf("enqueue %s: %w", rule.JobIdentity, err), relErr)
		}
		return fmt.Errorf("enqueue %s: %w", rule.JobIdentity, err)
	}
	return nil
}

func lockTTL(rule schedule.Rule) time.Duration {
	period, err := schedule.MinimumPeriod(rule.TriggerExpr, rule.Timezone, time.Now())
	if err != nil {
		return defaultLockTTL
	}
	if period < minLockTTL {
		return minLockTTL
	}
	if period > maxLockTTL {
		return maxLockTTL
	}
	return period
}
