package moderation

import (
	"time"
)

// UserContext carries optional per-user data supplied by the caller.
type UserContext struct {
	UserID      string `json:"user_id"`      // Submitting user
	DisplayName string `json:"display_name"` // Possibly anonymous display name
	Language    string `json:"language"`     // Preferred UI language (en, ta, hi, ...)
}

// Request is the input to a single moderation call.
type Request struct {
	Text        string       `json:"text"`         // Content to evaluate
	ContentType ContentType  `json:"content_type"` // post/comment/question/image-caption
	Topic       string       `json:"topic"`        // Forum topic, drives fact-checking
	User        *UserContext `json:"user,omitempty"`
}

// ScreenerVerdict is the screener's output normalized to a single shape.
type ScreenerVerdict struct {
	RiskLevel      RiskLevel `json:"risk_level"`
	DominantSignal string    `json:"dominant_signal"` // Top category or sentiment label
	RawScore       float64   `json:"raw_score"`       // Confidence of the dominant signal
	TriggeredFlags []string  `json:"triggered_flags"` // Categories above the high threshold
	Sentiment      Sentiment `json:"sentiment"`
}

// Unavailable reports whether this verdict is the screener's fail-open sentinel.
func (v ScreenerVerdict) Unavailable() bool {
	return v.DominantSignal == SignalScreenerUnavailable
}

// UnavailableVerdict returns the sentinel verdict used when the screener fails.
func UnavailableVerdict() ScreenerVerdict {
	return ScreenerVerdict{
		RiskLevel:      RiskNone,
		DominantSignal: SignalScreenerUnavailable,
		RawScore:       0.5,
		Sentiment:      SentimentNeutral,
	}
}

// SafetyJudgment is the LLM safety judge's decision.
type SafetyJudgment struct {
	Approved      bool     `json:"approved"`
	SafetyScore   int      `json:"safetyScore"`
	Flags         []string `json:"flags"`
	Reason        string   `json:"reason"`
	SuggestedEdit *string  `json:"suggestedEdit"`
}

// FactCheck is the advisory annotation attached to remedy posts.
type FactCheck struct {
	Verdict  FactVerdict `json:"verdict"`
	Evidence string      `json:"evidence"`
	Advice   string      `json:"advice"`
}

// UnavailableFactCheck returns the advisory sentinel used when fact-checking fails.
func UnavailableFactCheck() FactCheck {
	return FactCheck{
		Verdict:  VerdictUncertain,
		Evidence: EvidenceUnavailable,
		Advice:   AdviceConsultProfessional,
	}
}

// Result is the final, immutable output of the moderation pipeline.
type Result struct {
	Approved        bool       `json:"approved"`          // Gates public visibility
	Sentiment       Sentiment  `json:"sentiment"`         // positive/negative/neutral
	SafetyScore     int        `json:"safety_score"`      // 0-100
	Flags           []string   `json:"flags"`             // Labels explaining the decision
	Reason          string     `json:"reason"`            // Human-readable reason
	SuggestedEdit   *string    `json:"suggested_edit"`    // Cleaner version, if any
	UsedSafetyJudge bool       `json:"used_safety_judge"` // Whether the LLM path ran
	FactCheck       *FactCheck `json:"fact_check"`        // Remedy annotation, if any
	ModeratedAt     time.Time  `json:"moderated_at"`
}

// Clone returns a deep copy so callers cannot mutate a shared result.
func (r Result) Clone() Result {
	out := r
	if r.Flags != nil {
		out.Flags = append([]string(nil), r.Flags...)
	}
	if r.SuggestedEdit != nil {
		edit := *r.SuggestedEdit
		out.SuggestedEdit = &edit
	}
	if r.FactCheck != nil {
		fc := *r.FactCheck
		out.FactCheck = &fc
	}
	return out
}

// HasFlag checks if the result carries the given flag.
func (r Result) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Degraded reports whether the result was produced by a fallback path
// rather than a real classification.
func (r Result) Degraded() bool {
	return r.HasFlag(FlagJudgeUnavailable) || r.HasFlag(FlagModerationError) ||
		r.HasFlag(FlagParseError) || r.HasFlag(FlagContentBlocked) ||
		r.HasFlag(SignalScreenerUnavailable)
}

// ContentRef identifies the forum record a result belongs to.
type ContentRef struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"` // Post or comment ID
	ParentID    string      `json:"parent_id"`  // Post ID for comments
	AuthorID    string      `json:"author_id"`
}

// Record is a persisted moderation result for a piece of content.
type Record struct {
	ID          string      `json:"id" db:"id"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	ContentID   string      `json:"content_id" db:"content_id"`
	ParentID    string      `json:"parent_id" db:"parent_id"`
	AuthorID    string      `json:"author_id" db:"author_id"`
	Approved    bool        `json:"approved" db:"approved"`
	SafetyScore int         `json:"safety_score" db:"safety_score"`
	Revision    int         `json:"revision" db:"revision"`
	Result      Result      `json:"result" db:"result_json"`
	CreatedAt   int64       `json:"created_at" db:"created_at"`
}
