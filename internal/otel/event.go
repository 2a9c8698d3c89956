// Package otel provides structured run events for pythia.
//
// Events are typed structs serialized as JSONL lines, one per collector
// outcome, fetch failure, store failure and scoring result. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional Recent buffer keeps the tail of a run in memory for the
// end-of-run summary.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Collection
	KindGuardReject     EventKind = "guard.reject"
	KindCollectStart    EventKind = "collect.start"
	KindCollectComplete EventKind = "collect.complete"
	KindCollectSkip     EventKind = "collect.skip"
	KindCollectError    EventKind = "collect.error"

	// Network
	KindFetchError EventKind = "fetch.error"
	KindNewsIngest EventKind = "news.ingest"

	// Store
	KindStoreError EventKind = "store.error"

	// Scoring
	KindScoreComplete EventKind = "score.complete"
	KindScoreError    EventKind = "score.error"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal run record. Every field except Kind and Time is
// optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "forum", "blog", "scoring", "main"
	SessionID string         `json:"session_id,omitempty"` // same for an entire process run
	EntityID  int64          `json:"entity,omitempty"`
	Source    string         `json:"source,omitempty"` // snippet source type
	Dur       time.Duration  `json:"-"`                // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`  // snippets saved, articles ingested
	Skipped   int            `json:"skipped,omitempty"`
	Reason    string         `json:"reason,omitempty"` // skip or reject reason
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
