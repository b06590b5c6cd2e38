package queue

import "fmt"

// Subject hierarchy for scheduler-to-worker dispatch.
//
//	outrigger.jobs.{kind}   -- job envelopes, one subject per job kind
const (
	StreamName    = "OUTRIGGER"
	SubjectPrefix = "outrigger"

	// KV bucket names
	BucketLocks = "outrigger-locks"
	BucketNodes = "outrigger-nodes"
)

// JobSubject returns the subject a job kind is published on.
// Example: outrigger.jobs.database-backup
func JobSubject(kind string) string {
	return fmt.Sprintf("%s.jobs.%s", SubjectPrefix, kind)
}

// JobsAllSubject returns the wildcard subject for all job envelopes.
// Used for the stream subject filter.
func JobsAllSubject() string {
	return fmt.Sprintf("%s.jobs.>", SubjectPrefix)
}

// NodeKey returns the KV key a scheduler replica heartbeats under.
func NodeKey(nodeID string) string {
	return fmt.Sprintf("node.%s", nodeID)
}
