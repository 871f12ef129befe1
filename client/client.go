package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/cache"
	"github.com/heibot/moderation/hooks"
	"github.com/heibot/moderation/store"
	"github.com/heibot/moderation/utils"
)

const tracerName = "github.com/heibot/moderation/client"

// Client is the main moderation client. It is safe for concurrent use.
type Client struct {
	screener    Screener
	judge       Judge
	factChecker FactChecker
	hooks       hooks.Hooks
	store       store.Store
	cache       cache.Cache
	logger      *zap.Logger
	policy      Policy
	now         func() time.Time
	tracer      trace.Tracer
}

// New creates a new moderation client.
func New(opts Options) (*Client, error) {
	if opts.Screener == nil {
		return nil, moderation.NewValidationError("screener", "required")
	}
	if opts.Judge == nil {
		return nil, moderation.NewValidationError("judge", "required")
	}

	if opts.Hooks == nil {
		opts.Hooks = hooks.NopHooks{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Policy.MinTextLength <= 0 {
		opts.Policy.MinTextLength = moderation.DefaultMinTextLength
	}
	if opts.Policy.RemedyTopic == "" {
		opts.Policy.RemedyTopic = moderation.DefaultRemedyTopic
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Client{
		screener:    opts.Screener,
		judge:       opts.Judge,
		factChecker: opts.FactChecker,
		hooks:       opts.Hooks,
		store:       opts.Store,
		cache:       opts.Cache,
		logger:      opts.Logger.With(zap.String("module", "client")),
		policy:      opts.Policy,
		now:         opts.Now,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Moderate runs the moderation pipeline for one request. It always
// returns a result; failures surface as flags on the result.
func (c *Client) Moderate(ctx context.Context, req moderation.Request) moderation.Result {
	req = normalizeRequest(req)
	out := c.run(ctx, moderation.ContentRef{}, req)
	c.logDecision(req, out)
	c.fireModerated(ctx, hooks.ModeratedEvent{
		Request:   req,
		Result:    out.result.Clone(),
		Verdict:   out.verdict,
		Cached:    out.cached,
		Duration:  out.duration,
		TraceID:   out.traceID,
		Timestamp: c.now(),
	}, moderation.ContentRef{})
	return out.result
}

// ModerateText is shorthand for Moderate. An empty contentType means post.
func (c *Client) ModerateText(ctx context.Context, text string, contentType moderation.ContentType, topic string) moderation.Result {
	return c.Moderate(ctx, moderation.Request{Text: text, ContentType: contentType, Topic: topic})
}

// Submit moderates content and persists the result as a new revision of
// the content's record. Only persistence failures are returned as errors.
func (c *Client) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if c.store == nil {
		return nil, moderation.ErrStoreNotConfigured
	}
	if input.Ref.ContentID == "" {
		return nil, moderation.NewValidationError("content_id", "required")
	}
	if input.Request.ContentType == "" {
		input.Request.ContentType = input.Ref.ContentType
	}
	req := normalizeRequest(input.Request)
	if input.Ref.ContentType == "" {
		input.Ref.ContentType = req.ContentType
	}
	if input.Ref.AuthorID == "" && req.User != nil {
		input.Ref.AuthorID = req.User.UserID
	}

	prev, err := c.store.GetRecord(ctx, input.Ref.ContentType, input.Ref.ContentID)
	if err != nil && !errors.Is(err, moderation.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	out := c.run(ctx, input.Ref, req)
	c.logDecision(req, out)

	rec, err := c.store.SaveRecord(ctx, moderation.Record{
		ContentType: input.Ref.ContentType,
		ContentID:   input.Ref.ContentID,
		ParentID:    input.Ref.ParentID,
		AuthorID:    input.Ref.AuthorID,
		Result:      out.result,
	})
	if err != nil {
		c.logger.Error("failed to save record",
			zap.String("content_id", input.Ref.ContentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	result := &SubmitResult{Record: rec, Cached: out.cached}
	if prev != nil && prev.Approved != rec.Approved {
		result.Change = &hooks.DecisionChange{From: prev.Approved, To: rec.Approved}
	}

	c.fireModerated(ctx, hooks.ModeratedEvent{
		Ref:       input.Ref,
		Request:   req,
		Result:    out.result.Clone(),
		Verdict:   out.verdict,
		RecordID:  rec.ID,
		Revision:  rec.Revision,
		Change:    result.Change,
		Cached:    out.cached,
		Duration:  out.duration,
		TraceID:   out.traceID,
		Timestamp: c.now(),
	}, input.Ref)

	return result, nil
}

// GetRecord returns the current persisted record for a piece of content.
func (c *Client) GetRecord(ctx context.Context, contentType moderation.ContentType, contentID string) (*moderation.Record, error) {
	if c.store == nil {
		return nil, moderation.ErrStoreNotConfigured
	}
	return c.store.GetRecord(ctx, contentType, contentID)
}

// GetHistory returns past revisions for a piece of content, newest first.
func (c *Client) GetHistory(ctx context.Context, contentType moderation.ContentType, contentID string, limit int) ([]moderation.Record, error) {
	if c.store == nil {
		return nil, moderation.ErrStoreNotConfigured
	}
	return c.store.ListHistory(ctx, contentType, contentID, limit)
}

// Policy returns the client's decision rules.
func (c *Client) Policy() Policy {
	return c.policy
}

func normalizeRequest(req moderation.Request) moderation.Request {
	if req.ContentType == "" {
		req.ContentType = moderation.ContentPost
	}
	req.Topic = strings.TrimSpace(req.Topic)
	return req
}

func (c *Client) logDecision(req moderation.Request, out outcome) {
	fields := []zap.Field{
		zap.String("content_type", string(req.ContentType)),
		zap.String("content_hash", utils.ShortFingerprint(strings.TrimSpace(req.Text), 12)),
		zap.Bool("approved", out.result.Approved),
		zap.Int("safety_score", out.result.SafetyScore),
		zap.Strings("flags", out.result.Flags),
		zap.Bool("used_safety_judge", out.result.UsedSafetyJudge),
		zap.Bool("fact_checked", out.result.FactCheck != nil),
		zap.Bool("cached", out.cached),
		zap.Duration("duration", out.duration),
	}
	if out.screened {
		fields = append(fields,
			zap.String("risk_level", out.verdict.RiskLevel.String()),
			zap.String("dominant_signal", out.verdict.DominantSignal))
	}
	if out.traceID != "" {
		fields = append(fields, zap.String("trace_id", out.traceID))
	}

	if out.result.Degraded() {
		c.logger.Warn("content moderated on a degraded path", fields...)
		return
	}
	c.logger.Info("content moderated", fields...)
}

func (c *Client) fireModerated(ctx context.Context, e hooks.ModeratedEvent, ref moderation.ContentRef) {
	c.callHook("OnModerated", func() error { return c.hooks.OnModerated(ctx, e) })
	if e.Result.Approved {
		return
	}
	c.callHook("OnRejected", func() error {
		return c.hooks.OnRejected(ctx, hooks.RejectedEvent{
			Ref:       ref,
			Result:    e.Result,
			TraceID:   e.TraceID,
			Timestamp: e.Timestamp,
		})
	})
}

func (c *Client) fireEscalated(ctx context.Context, e hooks.EscalatedEvent) {
	c.callHook("OnEscalated", func() error { return c.hooks.OnEscalated(ctx, e) })
}

// callHook runs one hook. Errors and panics are logged and go no further.
func (c *Client) callHook(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(name+" hook panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn(name+" hook failed", zap.Error(err))
	}
}
