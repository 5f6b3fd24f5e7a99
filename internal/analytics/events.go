// Package analytics tracks concordance queries and ingestion runs. Events
// are published to Kafka by a Collector, or recorded in-process, and summed
// up by an Aggregator that serves them over HTTP.
package analytics

import "time"

type EventType string

const (
	EventQuery EventType = "query"
	EventIndex EventType = "index"
)

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event any)
}

// QueryEvent describes one protocol request.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Verb      string    `json:"verb"`
	Corpus    int       `json:"corpus"`
	Query     string    `json:"query"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Failed    bool      `json:"failed"`
	TimedOut  bool      `json:"timed_out"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexEvent describes one finished ingestion.
type IndexEvent struct {
	Type      EventType `json:"type"`
	Corpus    string    `json:"corpus"`
	Chunks    int       `json:"chunks"`
	Sentences int       `json:"sentences"`
	Skipped   int       `json:"skipped"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

func (e QueryEvent) key() string { return "query" }
func (e IndexEvent) key() string { return "index:" + e.Corpus }

// Discard drops every event.
type Discard struct{}

func (Discard) Track(any) {}
