package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/outriggerhq/outrigger/internal/schedule"
)

// memLocker is an in-process stand-in for the shared KV lock store.
type memLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]time.Time)}
}

func (m *memLocker) Acquire(_ context.Context, key, _ string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, ok := m.held[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	m.held[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *memLocker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

type countingExecutor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *countingExecutor) Enqueue(_ context.Context, _ schedule.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.err
}

func testRule() schedule.Rule {
	return schedule.Rule{
		JobIdentity: "docker-cleanup:42",
		TriggerExpr: "*/10 * * * *",
		Timezone:    "UTC",
		Payload:     schedule.Payload{Kind: schedule.KindDockerCleanup, EntityID: 42},
	}
}

func TestSubmit_SingleFlight(t *testing.T) {
	locks := newMemLocker()
	exec := &countingExecutor{}
	guard := New(locks, exec, "node-a")

	if err := guard.Submit(context.Background(), testRule()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := guard.Submit(context.Background(), testRule()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second submit error = %v, want ErrAlreadyRunning", err)
	}
	if exec.calls != 1 {
		t.Errorf("executor invoked %d times, want 1", exec.calls)
	}
}

func TestSubmit_ConcurrentSameIdentity(t *testing.T) {
	locks := newMemLocker()
	exec := &countingExecutor{}

	const nodes = 10
	var wg sync.WaitGroup
	var contended, submitted int
	var mu sync.Mutex

	for i := 0; i < nodes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard := New(locks, exec, "node")
			err := guard.Submit(context.Background(), testRule())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				submitted++
			case errors.Is(err, ErrAlreadyRunning):
				contended++
			default:
				t.Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if submitted != 1 {
		t.Errorf("submitted = %d, want exactly 1", submitted)
	}
	if contended != nodes-1 {
		t.Errorf("contended = %d, want %d", contended, nodes-1)
	}
	if exec.calls != 1 {
		t.Errorf("executor invoked %d times, want 1", exec.calls)
	}
}

func TestSubmit_DifferentIdentitiesDoNotContend(t *testing.T) {
	locks := newMemLocker()
	exec := &countingExecutor{}
	guard := New(locks, exec, "node-a")

	first := testRule()
	second := testRule()
	second.JobIdentity = "docker-cleanup:43"
	second.Payload.EntityID = 43

	if err := guard.Submit(context.Background(), first); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := guard.Submit(context.Background(), second); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if exec.calls != 2 {
		t.Errorf("executor invoked %d times, want 2", exec.calls)
	}
}

func TestSubmit_ReleasesLockWhenEnqueueFails(t *testing.T) {
	locks := newMemLocker()
	failing := &countingExecutor{err: errors.New("stream unavailable")}
	guard := New(locks, failing, "node-a")

	if err := guard.Submit(context.Background(), testRule()); err == nil {
		t.Fatal("expected enqueue failure to propagate")
	}

	// Lock must be free again so the next tick can retry.
	working := &countingExecutor{}
	retry := New(locks, working, "node-a")
	if err := retry.Submit(context.Background(), testRule()); err != nil {
		t.Fatalf("retry after failed enqueue: %v", err)
	}
}

func TestLockTTL(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want time.Duration
	}{
		{"follows trigger period", "*/10 * * * *", 10 * time.Minute},
		{"every minute", "* * * * *", time.Minute},
		{"daily clamps to the max", "0 0 * * *", maxLockTTL},
		{"unparseable falls back to default", "bogus", defaultLockTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := testRule()
			rule.TriggerExpr = tt.expr
			if got := lockTTL(rule); got != tt.want {
				t.Errorf("lockTTL(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}
