// Package metrics exports moderation events as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/hooks"
)

const namespace = "moderation"

// Hooks records moderation events. It implements hooks.Hooks.
type Hooks struct {
	decisions   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	escalations *prometheus.CounterVec
	degraded    *prometheus.CounterVec
	scores      *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
}

var _ hooks.Hooks = (*Hooks)(nil)

// New registers the moderation collectors with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Hooks {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Hooks{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Moderation decisions by content type, outcome and path",
			},
			[]string{"content_type", "approved", "judge", "cached"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Rejections by flag",
			},
			[]string{"flag"},
		),
		escalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "escalations_total",
				Help:      "Judge escalations by screener risk level",
			},
			[]string{"risk_level"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_total",
				Help:      "Results produced by a fallback path",
			},
			[]string{"flag"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "safety_score",
				Help:      "Distribution of safety scores",
				Buckets:   []float64{10, 25, 40, 50, 60, 75, 90, 100},
			},
			[]string{"content_type"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duration_seconds",
				Help:      "Moderation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"judge"},
		),
	}
}

var degradedFlags = []string{
	moderation.SignalScreenerUnavailable,
	moderation.FlagJudgeUnavailable,
	moderation.FlagParseError,
	moderation.FlagContentBlocked,
	moderation.FlagModerationError,
}

// OnModerated counts the decision and observes its score and latency.
func (h *Hooks) OnModerated(ctx context.Context, e hooks.ModeratedEvent) error {
	ct := string(e.Request.ContentType)
	judge := strconv.FormatBool(e.Result.UsedSafetyJudge)

	h.decisions.WithLabelValues(ct, strconv.FormatBool(e.Result.Approved), judge, strconv.FormatBool(e.Cached)).Inc()
	h.scores.WithLabelValues(ct).Observe(float64(e.Result.SafetyScore))
	if !e.Cached {
		h.duration.WithLabelValues(judge).Observe(e.Duration.Seconds())
	}
	for _, f := range degradedFlags {
		if e.Result.HasFlag(f) {
			h.degraded.WithLabelValues(f).Inc()
		}
	}
	return nil
}

// OnRejected counts each flag on the rejected result.
func (h *Hooks) OnRejected(ctx context.Context, e hooks.RejectedEvent) error {
	for _, f := range e.Result.Flags {
		h.rejections.WithLabelValues(f).Inc()
	}
	return nil
}

// OnEscalated counts judge escalations.
func (h *Hooks) OnEscalated(ctx context.Context, e hooks.EscalatedEvent) error {
	level := e.Verdict.RiskLevel.String()
	if e.Verdict.Unavailable() {
		level = moderation.SignalScreenerUnavailable
	}
	h.escalations.WithLabelValues(level).Inc()
	return nil
}
