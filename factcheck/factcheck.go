// Package factcheck annotates home-remedy posts with an advisory
// evidence summary. Annotations never affect approval.
package factcheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

const promptTemplate = `Fact-check the following home remedy mentioned in a women's health forum.

Remedy: %q

Respond ONLY with a JSON object in exactly this format:
{
  "verdict": "supported" or "not_supported" or "uncertain",
  "evidence": "a short summary of what the evidence says",
  "advice": "one gentle, culturally sensitive sentence"
}

If there is no strong evidence, say so. If the remedy is generally safe but unproven, say so.
If it is risky, warn gently. Do not give medical advice.`

// Config configures an Annotator.
type Config struct {
	// Timeout bounds the generator call. Defaults to DefaultCallTimeout.
	Timeout time.Duration

	Logger *zap.Logger
}

// Annotator fact-checks remedy claims with a generative model.
type Annotator struct {
	generator providers.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates an annotator over the given generator.
func New(generator providers.Generator, cfg Config) *Annotator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = moderation.DefaultCallTimeout * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Annotator{
		generator: generator,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger.With(zap.String("module", "factcheck"), zap.String("provider", generator.Name())),
	}
}

// Prompt returns the prompt sent for a remedy claim.
func Prompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// FactCheck returns the annotation for text, or the advisory sentinel
// when the model is unreachable or its reply is unusable.
func (a *Annotator) FactCheck(ctx context.Context, text string) moderation.FactCheck {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.generator.Generate(ctx, Prompt(text))
	if err != nil {
		a.logger.Warn("fact-check unavailable", zap.Error(err))
		return moderation.UnavailableFactCheck()
	}

	fc, err := Parse(raw)
	if err != nil {
		a.logger.Warn("fact-check reply unusable", zap.Error(err), zap.Int("reply_len", len(raw)))
		return moderation.UnavailableFactCheck()
	}
	return fc
}

// Parse extracts a fact-check from a model reply. The verdict must be one
// of the known values and evidence must be present; a missing advice
// sentence falls back to the standard consult-a-professional line.
func Parse(raw string) (moderation.FactCheck, error) {
	var fc moderation.FactCheck
	if err := providers.DecodeJSON(raw, &fc); err != nil {
		return moderation.FactCheck{}, err
	}

	fc.Verdict = moderation.FactVerdict(strings.ToLower(strings.TrimSpace(string(fc.Verdict))))
	if !fc.Verdict.Valid() {
		return moderation.FactCheck{}, fmt.Errorf("%w: unknown verdict %q", moderation.ErrMalformedResponse, fc.Verdict)
	}
	fc.Evidence = strings.TrimSpace(fc.Evidence)
	if fc.Evidence == "" {
		return moderation.FactCheck{}, fmt.Errorf("%w: missing evidence", moderation.ErrMalformedResponse)
	}
	fc.Advice = strings.TrimSpace(fc.Advice)
	if fc.Advice == "" {
		fc.Advice = moderation.AdviceConsultProfessional
	}
	return fc, nil
}
