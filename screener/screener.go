// Package screener implements the first, cheap moderation stage: one
// call to a text classifier whose output is normalized to a
// moderation.ScreenerVerdict.
package screener

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

// Config configures a Screener.
type Config struct {
	// Timeout bounds the classifier call. Defaults to DefaultCallTimeout seconds.
	Timeout time.Duration

	// Translator maps provider category labels to unified flag names.
	// When nil, category names are used as returned.
	Translator violation.Translator

	// Logger receives degraded-path warnings.
	Logger *zap.Logger
}

// Screener wraps a classifier. Screen never fails: any error becomes the
// fail-open sentinel verdict.
type Screener struct {
	classifier providers.Classifier
	translator violation.Translator
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a screener over the given classifier.
func New(classifier providers.Classifier, cfg Config) *Screener {
	if cfg.Timeout <= 0 {
		cfg.Timeout = moderation.DefaultCallTimeout * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Screener{
		classifier: classifier,
		translator: cfg.Translator,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger.With(zap.String("module", "screener"), zap.String("provider", classifier.Name())),
	}
}

// Screen classifies text and returns the normalized verdict.
func (s *Screener) Screen(ctx context.Context, text string) moderation.ScreenerVerdict {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sig, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.logger.Warn("screener unavailable, failing open",
			zap.String("category", string(moderation.GetErrorCategory(err))),
			zap.Error(err))
		return moderation.UnavailableVerdict()
	}

	if scores, ok := sig.(providers.CategoryScores); ok && s.translator != nil {
		sig = providers.CategoryScores(s.translator.Translate(scores).Scores())
	}

	verdict, err := Normalize(sig)
	if err != nil {
		s.logger.Warn("screener response not understood, failing open", zap.Error(err))
		return moderation.UnavailableVerdict()
	}
	return verdict
}

// Normalize converts either classifier response shape into a verdict.
//
// Category scores: high when any score exceeds 0.6 (those categories are
// the triggered flags), moderate when the top score is in (0.4, 0.6],
// low in (0.2, 0.4], none otherwise.
//
// Sentiment: high for NEGATIVE above 0.7, moderate for NEGATIVE in
// (0.4, 0.7], none for everything else.
func Normalize(sig providers.Signal) (moderation.ScreenerVerdict, error) {
	switch s := sig.(type) {
	case providers.CategoryScores:
		return normalizeCategories(s)
	case providers.SentimentLabel:
		return normalizeSentiment(s)
	default:
		return moderation.ScreenerVerdict{}, fmt.Errorf("%w: signal %T", moderation.ErrUnsupportedShape, sig)
	}
}

func normalizeCategories(scores providers.CategoryScores) (moderation.ScreenerVerdict, error) {
	for name, score := range scores {
		if !validScore(score) {
			return moderation.ScreenerVerdict{}, fmt.Errorf("%w: category %q score %v", moderation.ErrMalformedResponse, name, score)
		}
	}

	name, top := scores.Top()
	verdict := moderation.ScreenerVerdict{
		DominantSignal: name,
		RawScore:       top,
		Sentiment:      moderation.SentimentNeutral,
	}

	for _, n := range scores.Names() {
		if scores[n] > moderation.CategoryHighThreshold {
			verdict.TriggeredFlags = append(verdict.TriggeredFlags, n)
		}
	}
	sort.SliceStable(verdict.TriggeredFlags, func(i, j int) bool {
		return scores[verdict.TriggeredFlags[i]] > scores[verdict.TriggeredFlags[j]]
	})

	switch {
	case len(verdict.TriggeredFlags) > 0:
		verdict.RiskLevel = moderation.RiskHigh
		verdict.Sentiment = moderation.SentimentNegative
	case top > moderation.CategoryModerateThreshold:
		verdict.RiskLevel = moderation.RiskModerate
	case top > moderation.CategoryLowThreshold:
		verdict.RiskLevel = moderation.RiskLow
	default:
		verdict.RiskLevel = moderation.RiskNone
	}
	return verdict, nil
}

func normalizeSentiment(label providers.SentimentLabel) (moderation.ScreenerVerdict, error) {
	if !validScore(label.Score) {
		return moderation.ScreenerVerdict{}, fmt.Errorf("%w: sentiment score %v", moderation.ErrMalformedResponse, label.Score)
	}

	norm := label.Normalized()
	verdict := moderation.ScreenerVerdict{
		RiskLevel:      moderation.RiskNone,
		DominantSignal: strings.ToLower(norm),
		RawScore:       label.Score,
		Sentiment:      moderation.Sentiment(strings.ToLower(norm)),
	}

	if norm == providers.LabelNegative {
		switch {
		case label.Score > moderation.SentimentHighThreshold:
			verdict.RiskLevel = moderation.RiskHigh
		case label.Score > moderation.SentimentModerateThreshold:
			verdict.RiskLevel = moderation.RiskModerate
		}
	}
	return verdict, nil
}

func validScore(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
