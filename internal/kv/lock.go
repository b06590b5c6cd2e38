package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// lockKV is the slice of Store the lock store needs. Narrowed to an
// interface so the reap interleavings can be exercised without a live
// JetStream server.
type lockKV interface {
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	GetJSON(ctx context.Context, key string, v any) (uint64, error)
	DeleteRevision(ctx context.Context, key string, rev uint64) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// LockStore implements distributed single-flight locks on a NATS KV
// bucket. KV Create is the atomic test-and-set primitive: it succeeds for
// exactly one caller per key. Expiry travels inside the entry so a crashed
// holder's lock is reaped by the next contender instead of blocking the key
// forever.
type LockStore struct {
	store lockKV
}

// NewLockStore wraps a NATS KV bucket as a lock store.
func NewLockStore(kv jetstream.KeyValue) *LockStore {
	return &LockStore{store: NewStore(kv)}
}

type lockEntry struct {
	Holder    string    `json:"holder"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e *lockEntry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Acquire attempts to take the lock for key on behalf of holder. It returns
// false with a nil error when another live holder has the lock — that is
// the expected outcome under concurrent scheduler replicas, not a failure.
func (l *LockStore) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	entry := lockEntry{Holder: holder, ExpiresAt: time.Now().Add(ttl)}
	data, err := json.Marshal(&entry)
	if err != nil {
		return false, err
	}

	_, err = l.store.Create(ctx, key, data)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		return false, err
	}

	// Key exists: reap it if the previous holder's TTL has elapsed. The
	// delete is guarded by the revision we inspected, so only one of N
	// concurrent reapers can clear the stale entry — the rest would
	// otherwise clobber the winner's fresh lock.
	var existing lockEntry
	rev, getErr := l.store.GetJSON(ctx, key, &existing)
	if getErr != nil {
		// Deleted between Create and Get — treat as contended this tick.
		return false, nil
	}
	if !existing.expired(time.Now()) {
		return false, nil
	}
	if delErr := l.store.DeleteRevision(ctx, key, rev); delErr != nil {
		// Another contender reaped and re-acquired first.
		return false, nil
	}
	if _, err := l.store.Create(ctx, key, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release drops the lock for key before its TTL elapses. Only the
// dispatcher calls this, when enqueueing fails after a successful acquire;
// a delivered job's lock is left to expire so the exclusion window holds
// across replicas with skewed tick phases.
func (l *LockStore) Release(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

// Held lists the job identities currently locked across the fleet.
func (l *LockStore) Held(ctx context.Context) ([]string, error) {
	return l.store.Keys(ctx)
}
