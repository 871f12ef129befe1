// Package judge implements the LLM safety judge consulted when the
// screener's reading is ambiguous.
package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

const promptTemplate = `You are reviewing a post from a women's health support community.

Post: %q

Respond ONLY with a JSON object in exactly this format:
{
  "approved": true or false,
  "safetyScore": a number from 0 to 100,
  "flags": ["flag1", "flag2"],
  "reason": "one sentence",
  "suggestedEdit": null or "a cleaner version of the post"
}

APPROVE personal experiences, health questions, emotional support, symptom discussion and cultural remedies.
REJECT dangerous medical advice, self-harm content, body shaming, misinformation about medications and spam.
Be culturally sensitive to Indian women's health discussions.
Menstrual health, PCOS and anemia discussions are always appropriate.`

// Config configures a Judge.
type Config struct {
	// Timeout bounds the generator call. Defaults to DefaultCallTimeout.
	Timeout time.Duration

	// Logger receives degraded-path warnings.
	Logger *zap.Logger
}

// Judge asks a generative model for a structured safety judgment.
type Judge struct {
	generator providers.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a judge over the given generator.
func New(generator providers.Generator, cfg Config) *Judge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = moderation.DefaultCallTimeout * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Judge{
		generator: generator,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger.With(zap.String("module", "judge"), zap.String("provider", generator.Name())),
	}
}

// Prompt returns the prompt sent for text.
func Prompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// Judge returns the model's judgment. It never fails: an unreachable
// model yields the fail-open sentinel, while an unparseable reply or a
// refusal to evaluate yields a fail-closed one.
func (j *Judge) Judge(ctx context.Context, text string) moderation.SafetyJudgment {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	raw, err := j.generator.Generate(ctx, Prompt(text))
	if errors.Is(err, moderation.ErrContentBlocked) {
		j.logger.Warn("model refused to judge content, failing closed", zap.Error(err))
		return Blocked()
	}
	if err != nil {
		j.logger.Warn("judge unavailable, failing open",
			zap.String("category", string(moderation.GetErrorCategory(err))),
			zap.Error(err))
		return Unavailable()
	}

	judgment, err := Parse(raw)
	if err != nil {
		j.logger.Warn("judge reply unparseable, failing closed", zap.Error(err), zap.Int("reply_len", len(raw)))
		return ParseFailure()
	}
	return judgment
}

// Unavailable is the sentinel returned when the model cannot be reached.
func Unavailable() moderation.SafetyJudgment {
	return moderation.SafetyJudgment{
		Approved:    true,
		SafetyScore: moderation.ScoreJudgeFallback,
		Flags:       []string{moderation.FlagJudgeUnavailable},
		Reason:      moderation.ReasonJudgeUnavailable,
	}
}

// ParseFailure is the sentinel returned when the model's reply is not a
// valid judgment.
func ParseFailure() moderation.SafetyJudgment {
	return moderation.SafetyJudgment{
		Approved:    false,
		SafetyScore: 0,
		Flags:       []string{moderation.FlagParseError},
		Reason:      moderation.ReasonParseError,
	}
}

// Blocked is the sentinel returned when the model's safety filter
// refused to evaluate the content.
func Blocked() moderation.SafetyJudgment {
	return moderation.SafetyJudgment{
		Approved:    false,
		SafetyScore: 0,
		Flags:       []string{moderation.FlagContentBlocked},
		Reason:      moderation.ReasonContentBlocked,
	}
}

type rawJudgment struct {
	Approved      *bool    `json:"approved"`
	SafetyScore   *float64 `json:"safetyScore"`
	Flags         []string `json:"flags"`
	Reason        string   `json:"reason"`
	SuggestedEdit *string  `json:"suggestedEdit"`
}

// Parse extracts and validates a judgment from a model reply. The reply
// may wrap the JSON in prose or code fences. approved and safetyScore
// are required; the score is rounded and clamped to [0,100].
func Parse(raw string) (moderation.SafetyJudgment, error) {
	var r rawJudgment
	if err := providers.DecodeJSON(raw, &r); err != nil {
		return moderation.SafetyJudgment{}, err
	}
	if r.Approved == nil {
		return moderation.SafetyJudgment{}, fmt.Errorf("%w: missing approved", moderation.ErrMalformedResponse)
	}
	if r.SafetyScore == nil || math.IsNaN(*r.SafetyScore) {
		return moderation.SafetyJudgment{}, fmt.Errorf("%w: missing safetyScore", moderation.ErrMalformedResponse)
	}

	score := int(math.Round(*r.SafetyScore))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	judgment := moderation.SafetyJudgment{
		Approved:    *r.Approved,
		SafetyScore: score,
		Flags:       normalizeFlags(r.Flags),
		Reason:      strings.TrimSpace(r.Reason),
	}
	if r.SuggestedEdit != nil {
		if edit := strings.TrimSpace(*r.SuggestedEdit); edit != "" && edit != "null" {
			judgment.SuggestedEdit = &edit
		}
	}

	// A rejection must always say why.
	if !judgment.Approved && len(judgment.Flags) == 0 {
		judgment.Flags = []string{moderation.FlagJudgeRejected}
	}
	if judgment.Flags == nil {
		judgment.Flags = []string{}
	}
	return judgment, nil
}

func normalizeFlags(flags []string) []string {
	var out []string
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		f = strings.ReplaceAll(f, " ", "_")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
