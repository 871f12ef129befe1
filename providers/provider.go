// Package providers defines the adapter interfaces for the external
// services the moderation pipeline calls: text classifiers (screener
// backends) and generative text models (safety judge and fact-check
// backends).
package providers

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Signal is the raw classifier output. It is either CategoryScores
// (toxicity mode) or SentimentLabel (sentiment mode).
type Signal interface {
	isSignal()
}

// CategoryScores maps a moderation category to its confidence in [0,1].
type CategoryScores map[string]float64

func (CategoryScores) isSignal() {}

// Top returns the highest scoring category. Ties resolve alphabetically.
func (cs CategoryScores) Top() (string, float64) {
	var (
		name string
		best float64
	)
	for _, k := range cs.Names() {
		if cs[k] > best || name == "" {
			name, best = k, cs[k]
		}
	}
	return name, best
}

// Names returns the category names in sorted order.
func (cs CategoryScores) Names() []string {
	names := make([]string, 0, len(cs))
	for k := range cs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Sentiment labels.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

// SentimentLabel is a single sentiment classification.
type SentimentLabel struct {
	Label string  `json:"label"` // POSITIVE, NEGATIVE or NEUTRAL
	Score float64 `json:"score"` // Confidence in [0,1]
}

func (SentimentLabel) isSignal() {}

// Normalized returns the label upper-cased with common model aliases resolved.
func (s SentimentLabel) Normalized() string {
	switch strings.ToUpper(strings.TrimSpace(s.Label)) {
	case "NEGATIVE", "NEG", "LABEL_0":
		return LabelNegative
	case "POSITIVE", "POS", "LABEL_2":
		return LabelPositive
	default:
		return LabelNeutral
	}
}

// Classifier is a screener backend: one external text-analysis endpoint.
type Classifier interface {
	// Name returns the provider name (e.g., "googlenl", "huggingface", "tencent").
	Name() string

	// Classify sends the text to the provider and returns its raw signal.
	Classify(ctx context.Context, text string) (Signal, error)
}

// Generator is a generative text backend used by the judge and the fact-checker.
type Generator interface {
	// Name returns the provider name (e.g., "gemini", "ollama").
	Name() string

	// Generate sends a prompt and returns the model's raw text reply.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderConfig is the base configuration for providers.
type ProviderConfig struct {
	APIKey          string
	AccessKeyID     string
	AccessKeySecret string
	Region          string
	Endpoint        string
	Model           string
	Timeout         time.Duration
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, text string) (Signal, error)
}

// Name returns the provider name.
func (f ClassifierFunc) Name() string { return f.ProviderName }

// Classify calls the wrapped function.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Signal, error) {
	return f.Fn(ctx, text)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, prompt string) (string, error)
}

// Name returns the provider name.
func (f GeneratorFunc) Name() string { return f.ProviderName }

// Generate calls the wrapped function.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f.Fn(ctx, prompt)
}
