// Package ingestion defines the request types and Kafka event schemas that
// carry alias changes to the indexer and snapshot announcements to searchers.
package ingestion

import "time"

// Op is the kind of change an AliasEvent applies.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Alias pairs a lookup key with the identifier it resolves to.
type Alias struct {
	Alias string `json:"alias"`
	Value string `json:"value"`
}

// AliasRequest is the JSON body accepted by the alias ingestion endpoint.
// An empty Op means upsert.
type AliasRequest struct {
	Op      Op      `json:"op"`
	Aliases []Alias `json:"aliases"`
}

// AliasResponse is returned once a request has been persisted and published.
type AliasResponse struct {
	Accepted  int    `json:"accepted"`
	Published bool   `json:"published"`
	Status    string `json:"status"`
}

// AliasEvent is the Kafka payload consumed by the indexer.
type AliasEvent struct {
	Op         Op        `json:"op"`
	Alias      string    `json:"alias"`
	Value      string    `json:"value"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SnapshotEvent announces a newly written dictionary snapshot.
type SnapshotEvent struct {
	Version     uint64    `json:"version"`
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	Keys        int       `json:"keys"`
	Vocabulary  int       `json:"vocabulary"`
	BuiltAt     time.Time `json:"built_at"`
}
