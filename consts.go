// Package moderation provides a staged content moderation pipeline for
// community forums: a cheap screener (toxicity or sentiment classifier),
// an LLM safety judge for ambiguous content, and an advisory fact-check
// annotator for home-remedy posts.
package moderation

// ContentType represents the kind of user content being moderated.
type ContentType string

const (
	ContentPost         ContentType = "post"
	ContentComment      ContentType = "comment"
	ContentQuestion     ContentType = "question"
	ContentImageCaption ContentType = "image-caption"
)

// Valid reports whether the content type is one of the known kinds.
func (c ContentType) Valid() bool {
	switch c {
	case ContentPost, ContentComment, ContentQuestion, ContentImageCaption:
		return true
	}
	return false
}

// RiskLevel represents the screener's normalized risk reading.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskModerate
	RiskHigh
)

// String returns the string representation of RiskLevel.
func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskModerate:
		return "moderate"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText encodes the risk level as its name.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a risk level name.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*r = RiskNone
	case "low":
		*r = RiskLow
	case "moderate":
		*r = RiskModerate
	case "high":
		*r = RiskHigh
	default:
		return NewValidationError("risk_level", "unknown value "+string(text))
	}
	return nil
}

// Sentiment is the coarse tone attached to a result.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// FactVerdict is the fact-check judgement on a remedy claim.
type FactVerdict string

const (
	VerdictSupported    FactVerdict = "supported"
	VerdictNotSupported FactVerdict = "not_supported"
	VerdictUncertain    FactVerdict = "uncertain"
)

// Valid reports whether the verdict is one of the known values.
func (v FactVerdict) Valid() bool {
	switch v {
	case VerdictSupported, VerdictNotSupported, VerdictUncertain:
		return true
	}
	return false
}

// Flags attached to results by the pipeline itself.
const (
	FlagTooShort         = "too_short"
	FlagSafe             = "safe"
	FlagJudgeUnavailable = "judge_unavailable"
	FlagParseError       = "parse_error"
	FlagModerationError  = "moderation_error"
	FlagJudgeRejected    = "judge_rejected"
	FlagContentBlocked   = "content_blocked"
)

// SignalScreenerUnavailable is the dominant signal of the screener's
// fail-open sentinel verdict.
const SignalScreenerUnavailable = "screener_unavailable"

// Screener thresholds.
const (
	CategoryHighThreshold     = 0.6
	CategoryModerateThreshold = 0.4
	CategoryLowThreshold      = 0.2

	SentimentHighThreshold     = 0.7
	SentimentModerateThreshold = 0.4
)

// Auto-approve safety scores by risk level.
const (
	ScoreAutoApproveNone = 92
	ScoreAutoApproveLow  = 75
	ScoreJudgeFallback   = 50
)

// Default configuration values
const (
	DefaultMinTextLength = 5
	DefaultRemedyTopic   = "Home Remedies"
	DefaultCallTimeout   = 8 // seconds
)

// Canned reasons and advice.
const (
	ReasonTooShort            = "Too short"
	ReasonAutoApproved        = "Auto-approved by sentiment analysis"
	ReasonJudgeUnavailable    = "AI check unavailable"
	ReasonParseError          = "Could not verify content safety"
	ReasonModerationError     = "Moderation failed"
	ReasonContentBlocked      = "Content could not be evaluated"
	EvidenceUnavailable       = "Fact-checking unavailable."
	AdviceConsultProfessional = "Always consult a healthcare professional before trying new remedies."
)
