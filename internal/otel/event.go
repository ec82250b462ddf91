// Package otel provides the structured event log for tenderwatch.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine,
// so the Bubble Tea update loop never blocks on disk.
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

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Panel lifecycle
	KindPanelOpen     EventKind = "panel.open"
	KindPanelReady    EventKind = "panel.ready"
	KindPanelNotFound EventKind = "panel.not_found"
	KindPanelStale    EventKind = "panel.stale"

	// Summary
	KindSummaryStart    EventKind = "summary.start"
	KindSummaryComplete EventKind = "summary.complete"
	KindSummaryError    EventKind = "summary.error"

	// Document analysis
	KindAnalysisStart    EventKind = "analysis.start"
	KindAnalysisComplete EventKind = "analysis.complete"
	KindAnalysisError    EventKind = "analysis.error"
	KindAnalysisDropped  EventKind = "analysis.dropped"

	// Acquisition
	KindUpload   EventKind = "acquire.upload"
	KindDownload EventKind = "acquire.download"
	KindDiscover EventKind = "acquire.discover"

	// Question answering
	KindAsk      EventKind = "qa.ask"
	KindAnswer   EventKind = "qa.answer"
	KindAskError EventKind = "qa.error"

	// Transport
	KindAPIRequest EventKind = "api.request"
	KindAPIError   EventKind = "api.error"

	// Inbox polling
	KindFeedComplete EventKind = "feed.complete"
	KindFeedError    EventKind = "feed.error"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // component: "panel", "api", "coord", "main"
	SessionID string         `json:"session_id,omitempty"`
	Notice    string         `json:"notice,omitempty"`
	Document  string         `json:"doc,omitempty"`
	Epoch     uint64         `json:"epoch,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
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
