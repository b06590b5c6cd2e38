package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// memKV is an in-memory lockKV with NATS-like revision semantics: Create
// fails on an existing key, DeleteRevision fails unless the stored revision
// matches.
type memKV struct {
	mu      sync.Mutex
	entries map[string]memEntry
	nextRev uint64
}

type memEntry struct {
	data []byte
	rev  uint64
}

func newMemKV() *memKV {
	return &memKV{entries: map[string]memEntry{}}
}

func (m *memKV) Create(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return 0, jetstream.ErrKeyExists
	}
	m.nextRev++
	m.entries[key] = memEntry{data: append([]byte(nil), value...), rev: m.nextRev}
	return m.nextRev, nil
}

func (m *memKV) GetJSON(_ context.Context, key string, v any) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, jetstream.ErrKeyNotFound
	}
	if err := json.Unmarshal(e.data, v); err != nil {
		return 0, err
	}
	return e.rev, nil
}

func (m *memKV) DeleteRevision(_ context.Context, key string, rev uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.rev != rev {
		return fmt.Errorf("wrong last sequence for key %q", key)
	}
	delete(m.entries, key)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memKV) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// staleReadKV serves a fixed, outdated entry from GetJSON while every other
// operation goes to the live store. It models a contender that inspected a
// crashed holder's lock before a faster contender reaped it.
type staleReadKV struct {
	*memKV
	rev   uint64
	entry lockEntry
}

func (s *staleReadKV) GetJSON(_ context.Context, _ string, v any) (uint64, error) {
	data, err := json.Marshal(&s.entry)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return 0, err
	}
	return s.rev, nil
}

func seedLock(t *testing.T, m *memKV, key, holder string, expiresAt time.Time) uint64 {
	t.Helper()
	data, err := json.Marshal(&lockEntry{Holder: holder, ExpiresAt: expiresAt})
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	rev, err := m.Create(context.Background(), key, data)
	if err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	return rev
}

func TestAcquire_FreshKey(t *testing.T) {
	l := &LockStore{store: newMemKV()}

	ok, err := l.Acquire(context.Background(), "docker-cleanup:1", "node-a", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("acquire on a fresh key must succeed")
	}
}

func TestAcquire_HeldByLiveHolder(t *testing.T) {
	m := newMemKV()
	seedLock(t, m, "docker-cleanup:1", "node-a", time.Now().Add(time.Hour))
	l := &LockStore{store: m}

	ok, err := l.Acquire(context.Background(), "docker-cleanup:1", "node-b", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("a live holder's lock must not be taken over")
	}

	var current lockEntry
	if _, err := m.GetJSON(context.Background(), "docker-cleanup:1", &current); err != nil {
		t.Fatalf("original lock should survive: %v", err)
	}
	if current.Holder != "node-a" {
		t.Errorf("holder = %q, want node-a", current.Holder)
	}
}

func TestAcquire_ReapsExpiredLock(t *testing.T) {
	m := newMemKV()
	seedLock(t, m, "docker-cleanup:1", "node-crashed", time.Now().Add(-time.Minute))
	l := &LockStore{store: m}

	ok, err := l.Acquire(context.Background(), "docker-cleanup:1", "node-a", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("an expired lock must be reaped and re-acquired")
	}

	var current lockEntry
	if _, err := m.GetJSON(context.Background(), "docker-cleanup:1", &current); err != nil {
		t.Fatalf("fresh lock should exist: %v", err)
	}
	if current.Holder != "node-a" {
		t.Errorf("holder = %q, want node-a", current.Holder)
	}
}

func TestAcquire_StaleReapDoesNotClobberFreshLock(t *testing.T) {
	m := newMemKV()
	staleRev := seedLock(t, m, "docker-cleanup:1", "node-crashed", time.Now().Add(-time.Minute))

	winner := &LockStore{store: m}
	ok, err := winner.Acquire(context.Background(), "docker-cleanup:1", "node-a", time.Hour)
	if err != nil || !ok {
		t.Fatalf("winner acquire = %v, %v; want true, nil", ok, err)
	}

	// The loser read the crashed holder's entry before the winner reaped
	// it, so its guarded delete carries the old revision and must fail
	// instead of clearing the winner's fresh lock.
	loser := &LockStore{store: &staleReadKV{
		memKV: m,
		rev:   staleRev,
		entry: lockEntry{Holder: "node-crashed", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	ok, err = loser.Acquire(context.Background(), "docker-cleanup:1", "node-b", time.Hour)
	if err != nil {
		t.Fatalf("loser acquire: %v", err)
	}
	if ok {
		t.Fatal("loser must not acquire over the winner's fresh lock")
	}

	var current lockEntry
	if _, err := m.GetJSON(context.Background(), "docker-cleanup:1", &current); err != nil {
		t.Fatalf("winner's lock should survive the stale reap attempt: %v", err)
	}
	if current.Holder != "node-a" {
		t.Errorf("holder = %q, want the winner node-a", current.Holder)
	}
}

func TestRelease_AllowsReacquire(t *testing.T) {
	l := &LockStore{store: newMemKV()}
	ctx := context.Background()

	if ok, err := l.Acquire(ctx, "database-backup:1", "node-a", time.Hour); err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}
	if err := l.Release(ctx, "database-backup:1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, err := l.Acquire(ctx, "database-backup:1", "node-b", time.Hour); err != nil || !ok {
		t.Fatalf("acquire after release = %v, %v; want true, nil", ok, err)
	}
}

func TestHeld_ListsLockedIdentities(t *testing.T) {
	l := &LockStore{store: newMemKV()}
	ctx := context.Background()

	for _, key := range []string{"database-backup:1", "docker-cleanup:2"} {
		if ok, err := l.Acquire(ctx, key, "node-a", time.Hour); err != nil || !ok {
			t.Fatalf("acquire %s = %v, %v", key, ok, err)
		}
	}

	held, err := l.Held(ctx)
	if err != nil {
		t.Fatalf("Held: %v", err)
	}
	if len(held) != 2 || held[0] != "database-backup:1" || held[1] != "docker-cleanup:2" {
		t.Errorf("held = %v", held)
	}
}

func TestLockEntryExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := lockEntry{Holder: "node-a", ExpiresAt: now.Add(time.Minute)}

	if entry.expired(now) {
		t.Error("entry should not be expired before its TTL elapses")
	}
	if !entry.expired(now.Add(2 * time.Minute)) {
		t.Error("entry should be expired after its TTL elapses")
	}
}

func TestLockEntryRoundTrip(t *testing.T) {
	entry := lockEntry{Holder: "node-a", ExpiresAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	data, err := json.Marshal(&entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got lockEntry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Holder != entry.Holder || !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("round trip = %+v, want %+v", got, entry)
	}
}
