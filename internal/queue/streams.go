package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// SetupJetStream creates the dispatch stream and the scheduler KV buckets.
func SetupJetStream(ctx context.Context, js jetstream.JetStream) error {
	// One stream carries every job envelope; workers filter by subject.
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{JobsAllSubject()},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    24 * time.Hour, // Envelopes older than 24h are purged
		Discard:   jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("creating stream %s: %w", StreamName, err)
	}

	buckets := []struct {
		name string
		ttl  time.Duration
	}{
		{BucketLocks, 0}, // expiry carried per entry, reaped on contention
		{BucketNodes, 5 * time.Minute},
	}

	for _, b := range buckets {
		cfg := jetstream.KeyValueConfig{
			Bucket:  b.name,
			Storage: jetstream.FileStorage,
		}
		if b.ttl > 0 {
			cfg.TTL = b.ttl
		}
		if _, err := js.CreateOrUpdateKeyValue(ctx, cfg); err != nil {
			return fmt.Errorf("creating KV bucket %s: %w", b.name, err)
		}
	}

	return nil
}
