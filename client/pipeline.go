package client

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/cache"
	"github.com/heibot/moderation/hooks"
)

// outcome is one pipeline run plus the detail hooks and logs need.
type outcome struct {
	result   moderation.Result
	verdict  moderation.ScreenerVerdict
	screened bool
	cached   bool
	traceID  string
	duration time.Duration
}

// run executes the moderation state machine for one request. It never
// panics: a panic in the screener or judge becomes the moderation_error
// result.
func (c *Client) run(ctx context.Context, ref moderation.ContentRef, req moderation.Request) (out outcome) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "moderation.moderate")
	defer span.End()

	span.SetAttributes(
		attribute.String("moderation.content_type", string(req.ContentType)),
		attribute.String("moderation.topic", req.Topic),
	)
	if sc := span.SpanContext(); sc.HasTraceID() {
		out.traceID = sc.TraceID().String()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("moderation panicked",
				zap.Any("panic", r),
				zap.String("content_type", string(req.ContentType)),
				zap.Stack("stack"))
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "moderation panicked")

			out.result = errorResult()
			out.result.ModeratedAt = c.now()
			out.cached = false
		}
		out.duration = time.Since(start)
		span.SetAttributes(
			attribute.Bool("moderation.approved", out.result.Approved),
			attribute.Int("moderation.safety_score", out.result.SafetyScore),
			attribute.Bool("moderation.used_safety_judge", out.result.UsedSafetyJudge),
		)
	}()

	text := strings.TrimSpace(req.Text)
	if utf8.RuneCountInString(text) < c.policy.MinTextLength {
		out.result = tooShortResult()
		out.result.ModeratedAt = c.now()
		return out
	}

	var key string
	if c.cache != nil {
		key = cache.Key(req)
		if res, ok := c.cacheGet(ctx, key); ok {
			res.ModeratedAt = c.now()
			out.result = res
			out.cached = true
			span.SetAttributes(attribute.Bool("moderation.cached", true))
			return out
		}
	}

	// The fact-check is independent of the screen/judge chain.
	var (
		g  errgroup.Group
		fc *moderation.FactCheck
	)
	if c.shouldFactCheck(req) {
		g.Go(func() error {
			v := c.factCheck(ctx, text)
			fc = &v
			return nil
		})
	}

	out.verdict = c.screen(ctx, text)
	out.screened = true
	out.result = c.decide(ctx, ref, text, out.verdict, out.traceID)

	_ = g.Wait()
	out.result.FactCheck = fc
	out.result.ModeratedAt = c.now()

	if key != "" && !out.result.Degraded() && !out.verdict.Unavailable() {
		c.cacheSet(ctx, key, out.result)
	}
	return out
}

// decide maps a screener verdict onto a result, consulting the judge for
// the ambiguous band.
func (c *Client) decide(ctx context.Context, ref moderation.ContentRef, text string, v moderation.ScreenerVerdict, traceID string) moderation.Result {
	if v.Unavailable() {
		if !c.policy.AutoApproveOnScreenerUnavailable {
			c.logger.Warn("screener unavailable, escalating to judge")
			return c.escalate(ctx, ref, text, v, traceID)
		}
		c.logger.Warn("screener unavailable, auto-approving")
		return moderation.Result{
			Approved:    true,
			Sentiment:   moderation.SentimentNeutral,
			SafetyScore: moderation.ScoreAutoApproveNone,
			Flags:       []string{moderation.FlagSafe, moderation.SignalScreenerUnavailable},
			Reason:      moderation.ReasonAutoApproved,
		}
	}

	switch v.RiskLevel {
	case moderation.RiskHigh:
		return rejectedResult(v)
	case moderation.RiskModerate:
		return c.escalate(ctx, ref, text, v, traceID)
	case moderation.RiskLow:
		return approvedResult(v, moderation.ScoreAutoApproveLow)
	default:
		return approvedResult(v, moderation.ScoreAutoApproveNone)
	}
}

func (c *Client) escalate(ctx context.Context, ref moderation.ContentRef, text string, v moderation.ScreenerVerdict, traceID string) moderation.Result {
	ctx, span := c.tracer.Start(ctx, "moderation.judge")
	j := c.judge.Judge(ctx, text)
	span.SetAttributes(attribute.Bool("moderation.judge.approved", j.Approved))
	span.End()

	c.fireEscalated(ctx, hooks.EscalatedEvent{
		Ref:       ref,
		Verdict:   v,
		Judgment:  j,
		TraceID:   traceID,
		Timestamp: c.now(),
	})

	res := moderation.Result{
		Approved:        j.Approved,
		Sentiment:       v.Sentiment,
		SafetyScore:     j.SafetyScore,
		Flags:           append([]string(nil), j.Flags...),
		Reason:          j.Reason,
		UsedSafetyJudge: true,
	}
	if res.Sentiment == "" {
		res.Sentiment = moderation.SentimentNeutral
	}
	if res.Flags == nil {
		res.Flags = []string{}
	}
	if j.SuggestedEdit != nil {
		edit := *j.SuggestedEdit
		res.SuggestedEdit = &edit
	}
	return res
}

func (c *Client) screen(ctx context.Context, text string) moderation.ScreenerVerdict {
	ctx, span := c.tracer.Start(ctx, "moderation.screen")
	defer span.End()

	v := c.screener.Screen(ctx, text)
	span.SetAttributes(
		attribute.String("moderation.risk_level", v.RiskLevel.String()),
		attribute.String("moderation.dominant_signal", v.DominantSignal),
		attribute.Float64("moderation.raw_score", v.RawScore),
	)
	return v
}

// factCheck runs the annotator. A panic degrades to the advisory
// sentinel like any other fact-check failure.
func (c *Client) factCheck(ctx context.Context, text string) (fc moderation.FactCheck) {
	ctx, span := c.tracer.Start(ctx, "moderation.factcheck")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fact-check panicked", zap.Any("panic", r))
			span.SetStatus(codes.Error, "fact-check panicked")
			fc = moderation.UnavailableFactCheck()
		}
	}()
	return c.factChecker.FactCheck(ctx, text)
}

func (c *Client) shouldFactCheck(req moderation.Request) bool {
	return c.factChecker != nil &&
		req.Topic == c.policy.RemedyTopic &&
		req.ContentType != moderation.ContentComment
}

func (c *Client) cacheGet(ctx context.Context, key string) (moderation.Result, bool) {
	res, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", zap.Error(err))
		return moderation.Result{}, false
	}
	return res, ok
}

func (c *Client) cacheSet(ctx context.Context, key string, res moderation.Result) {
	if err := c.cache.Set(ctx, key, res); err != nil {
		c.logger.Warn("cache set failed", zap.Error(err))
	}
}

func tooShortResult() moderation.Result {
	return moderation.Result{
		Approved:    false,
		Sentiment:   moderation.SentimentNeutral,
		SafetyScore: 0,
		Flags:       []string{moderation.FlagTooShort},
		Reason:      moderation.ReasonTooShort,
	}
}

func errorResult() moderation.Result {
	return moderation.Result{
		Approved:    false,
		Sentiment:   moderation.SentimentNeutral,
		SafetyScore: 0,
		Flags:       []string{moderation.FlagModerationError},
		Reason:      moderation.ReasonModerationError,
	}
}

func rejectedResult(v moderation.ScreenerVerdict) moderation.Result {
	flags := append([]string(nil), v.TriggeredFlags...)
	if len(flags) == 0 {
		flags = []string{v.DominantSignal}
	}
	return moderation.Result{
		Approved:    false,
		Sentiment:   moderation.SentimentNegative,
		SafetyScore: int(math.Round((1 - v.RawScore) * 100)),
		Flags:       flags,
		Reason:      "Content flagged as " + strings.Join(flags, ", "),
	}
}

func approvedResult(v moderation.ScreenerVerdict, score int) moderation.Result {
	sentiment := v.Sentiment
	if sentiment == "" {
		sentiment = moderation.SentimentNeutral
	}
	return moderation.Result{
		Approved:    true,
		Sentiment:   sentiment,
		SafetyScore: score,
		Flags:       []string{moderation.FlagSafe},
		Reason:      moderation.ReasonAutoApproved,
	}
}
