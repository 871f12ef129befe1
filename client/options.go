// Package client provides the moderation client: the orchestrator that
// runs the screener, the safety judge and the fact-checker for each
// piece of content.
package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/cache"
	"github.com/heibot/moderation/hooks"
	"github.com/heibot/moderation/store"
)

// Screener is the first-pass classifier. Implementations never fail;
// outages are reported through the sentinel verdict.
type Screener interface {
	Screen(ctx context.Context, text string) moderation.ScreenerVerdict
}

// Judge is the LLM safety judge consulted for ambiguous content.
type Judge interface {
	Judge(ctx context.Context, text string) moderation.SafetyJudgment
}

// FactChecker annotates remedy posts.
type FactChecker interface {
	FactCheck(ctx context.Context, text string) moderation.FactCheck
}

// Options configures the moderation client.
type Options struct {
	// Screener is the first-pass classifier (required).
	Screener Screener

	// Judge handles escalations (required).
	Judge Judge

	// FactChecker annotates remedy posts. Nil disables fact-checking.
	FactChecker FactChecker

	// Hooks receives notifications for every decision.
	Hooks hooks.Hooks

	// Store persists results for Submit. Optional for Moderate.
	Store store.Store

	// Cache deduplicates identical requests. Optional.
	Cache cache.Cache

	// Logger receives decision and degraded-path logs.
	Logger *zap.Logger

	// Policy holds the decision knobs. A zero Policy means DefaultPolicy().
	Policy Policy

	// Now stamps results. Defaults to time.Now.
	Now func() time.Time
}

// Policy configures the orchestrator's decision rules.
type Policy struct {
	// MinTextLength is the minimum rune count of the trimmed text.
	MinTextLength int

	// RemedyTopic is the forum topic whose posts are fact-checked.
	RemedyTopic string

	// AutoApproveOnScreenerUnavailable approves content when the screener
	// is down instead of sending it to the judge. The zero value escalates.
	AutoApproveOnScreenerUnavailable bool
}

// DefaultPolicy returns the default decision rules.
func DefaultPolicy() Policy {
	return Policy{
		MinTextLength: moderation.DefaultMinTextLength,
		RemedyTopic:   moderation.DefaultRemedyTopic,
	}
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		Hooks:  hooks.NopHooks{},
		Logger: zap.NewNop(),
		Policy: DefaultPolicy(),
		Now:    time.Now,
	}
}

// SubmitInput is the input for moderating and persisting content.
type SubmitInput struct {
	// Ref identifies the content record. ContentID is required.
	Ref moderation.ContentRef

	// Request is the content to moderate. An empty ContentType is taken
	// from Ref.
	Request moderation.Request
}

// SubmitResult is the result of Submit.
type SubmitResult struct {
	// Record is the persisted revision.
	Record moderation.Record

	// Change is set when approval differs from the previous revision.
	Change *hooks.DecisionChange

	// Cached is true when the result came from the dedup cache.
	Cached bool
}
