package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/hooks"
)

func TestHooks_OnModerated(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	approved := hooks.ModeratedEvent{
		Request:  moderation.Request{ContentType: moderation.ContentPost},
		Result:   moderation.Result{Approved: true, SafetyScore: 92, Flags: []string{"safe"}},
		Duration: 30 * time.Millisecond,
	}
	judged := hooks.ModeratedEvent{
		Request: moderation.Request{ContentType: moderation.ContentPost},
		Result: moderation.Result{
			Approved: true, SafetyScore: 50, UsedSafetyJudge: true,
			Flags: []string{moderation.FlagJudgeUnavailable},
		},
	}

	for _, e := range []hooks.ModeratedEvent{approved, approved, judged} {
		if err := h.OnModerated(ctx, e); err != nil {
			t.Fatalf("OnModerated() error = %v", err)
		}
	}

	if got := testutil.ToFloat64(h.decisions.WithLabelValues("post", "true", "false", "false")); got != 2 {
		t.Errorf("auto-approved decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.decisions.WithLabelValues("post", "true", "true", "false")); got != 1 {
		t.Errorf("judged decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.degraded.WithLabelValues(moderation.FlagJudgeUnavailable)); got != 1 {
		t.Errorf("degraded judge_unavailable = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(h.scores); got != 1 {
		t.Errorf("score series = %d, want 1", got)
	}
}

func TestHooks_OnRejectedAndEscalated(t *testing.T) {
	h := New(prometheus.NewRegistry())
	ctx := context.Background()

	_ = h.OnRejected(ctx, hooks.RejectedEvent{Result: moderation.Result{Flags: []string{"toxic", "insult"}}})
	_ = h.OnRejected(ctx, hooks.RejectedEvent{Result: moderation.Result{Flags: []string{"toxic"}}})

	if got := testutil.ToFloat64(h.rejections.WithLabelValues("toxic")); got != 2 {
		t.Errorf("toxic rejections = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.rejections.WithLabelValues("insult")); got != 1 {
		t.Errorf("insult rejections = %v, want 1", got)
	}

	_ = h.OnEscalated(ctx, hooks.EscalatedEvent{Verdict: moderation.ScreenerVerdict{RiskLevel: moderation.RiskModerate}})
	_ = h.OnEscalated(ctx, hooks.EscalatedEvent{Verdict: moderation.UnavailableVerdict()})

	if got := testutil.ToFloat64(h.escalations.WithLabelValues("moderate")); got != 1 {
		t.Errorf("moderate escalations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.escalations.WithLabelValues(moderation.SignalScreenerUnavailable)); got != 1 {
		t.Errorf("unavailable escalations = %v, want 1", got)
	}
}

func TestNew_DuplicateRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("second New() on the same registry should panic")
		}
	}()
	New(reg)
}
