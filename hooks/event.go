package hooks

import (
	"time"

	moderation "github.com/heibot/moderation"
)

// ModeratedEvent is emitted for every completed moderation.
type ModeratedEvent struct {
	// Content the result belongs to. Zero for ad-hoc Moderate calls.
	Ref moderation.ContentRef `json:"ref"`

	Request moderation.Request `json:"request"`
	Result  moderation.Result  `json:"result"`

	// Screener reading that drove the decision
	Verdict moderation.ScreenerVerdict `json:"verdict"`

	// Set when a persisted record was written
	RecordID string `json:"record_id,omitempty"`
	Revision int    `json:"revision,omitempty"`

	// Previous approval, nil on first moderation
	Change *DecisionChange `json:"change,omitempty"`

	// Cached is true when the result came from the dedup cache.
	Cached bool `json:"cached"`

	Duration  time.Duration `json:"duration"`
	TraceID   string        `json:"trace_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// RejectedEvent is emitted when content is not approved.
type RejectedEvent struct {
	Ref     moderation.ContentRef `json:"ref"`
	Result  moderation.Result     `json:"result"`
	TraceID string                `json:"trace_id"`

	Timestamp time.Time `json:"timestamp"`
}

// EscalatedEvent is emitted when the screener hands content to the
// safety judge.
type EscalatedEvent struct {
	Ref     moderation.ContentRef      `json:"ref"`
	Verdict moderation.ScreenerVerdict `json:"verdict"`

	// Judgment returned by the judge, sentinel values included
	Judgment moderation.SafetyJudgment `json:"judgment"`

	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionChange represents a change in approval between revisions.
type DecisionChange struct {
	From bool `json:"from"`
	To   bool `json:"to"`
}

// IsRevocation returns true if previously approved content is now hidden.
func (dc DecisionChange) IsRevocation() bool {
	return dc.From && !dc.To
}

// IsRestoration returns true if previously rejected content is now visible.
func (dc DecisionChange) IsRestoration() bool {
	return !dc.From && dc.To
}
