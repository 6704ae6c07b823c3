// Package analytics tracks lookups served by the search service: it keeps
// running aggregates in memory and optionally forwards every event to Kafka.
package analytics

import "time"

type LookupEvent struct {
	Query        string    `json:"query"`
	MinScore     float64   `json:"min_score"`
	TotalMatches int       `json:"total_matches"`
	Returned     int       `json:"returned"`
	Candidates   int       `json:"candidates"`
	LatencyMs    float64   `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Snapshot     string    `json:"snapshot"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}
