package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/outriggerhq/outrigger/internal/schedule"
)

// Envelope is the wire format handed to the worker fleet. It carries entity
// identifiers only; workers re-resolve entities at execution time so a
// stale snapshot can never leak into a job body.
type Envelope struct {
	JobIdentity string           `json:"job_identity"`
	Payload     schedule.Payload `json:"payload"`
	EnqueuedAt  time.Time        `json:"enqueued_at"`
	NodeID      string           `json:"node_id"`
}

// Publisher publishes job envelopes to JetStream. It is the executor behind
// the dispatch guard; the guard is its only caller.
type Publisher struct {
	js     jetstream.JetStream
	nodeID string
}

// NewPublisher creates a Publisher stamping envelopes with this replica's
// node ID.
func NewPublisher(js jetstream.JetStream, nodeID string) *Publisher {
	return &Publisher{js: js, nodeID: nodeID}
}

// Enqueue publishes one rule's envelope on its kind subject.
func (p *Publisher) Enqueue(ctx context.Context, rule schedule.Rule) error {
	env := Envelope{
		JobIdentity: rule.JobIdentity,
		Payload:     rule.Payload,
		EnqueuedAt:  time.Now(),
		NodeID:      p.nodeID,
	}
	data, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", rule.JobIdentity, err)
	}
	subject := JobSubject(rule.Payload.Kind)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s to %s: %w", rule.JobIdentity, subject, err)
	}
	return nil
}
