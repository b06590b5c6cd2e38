package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/outriggerhq/outrigger/internal/kv"
)

// NodeBeacon records scheduler replica liveness in the nodes bucket. The
// bucket TTL ages out replicas that stop beating, so operators can list
// live schedulers without a membership protocol.
type NodeBeacon struct {
	store  *kv.Store
	nodeID string
}

// NewNodeBeacon wraps the nodes KV bucket for one replica.
func NewNodeBeacon(bucket jetstream.KeyValue, nodeID string) *NodeBeacon {
	return &NodeBeacon{store: kv.NewStore(bucket), nodeID: nodeID}
}

type nodeRecord struct {
	NodeID string    `json:"node_id"`
	SeenAt time.Time `json:"seen_at"`
}

// Beat refreshes this replica's liveness record. Failures are logged, not
// propagated: a missed heartbeat must never abort a tick.
func (n *NodeBeacon) Beat(ctx context.Context) {
	record := nodeRecord{NodeID: n.nodeID, SeenAt: time.Now()}
	if _, err := n.store.PutJSON(ctx, NodeKey(n.nodeID), &record); err != nil {
		slog.Warn("node heartbeat failed", "node_id", n.nodeID, "error", err)
	}
}
