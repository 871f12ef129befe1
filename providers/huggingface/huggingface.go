// Package huggingface provides a screener backend over the Hugging Face
// hosted inference API, for either a sentiment or a toxicity model.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

const providerName = "huggingface"

// Mode selects how classifier labels are interpreted.
type Mode string

const (
	// ModeSentiment reads the top label as POSITIVE/NEGATIVE/NEUTRAL.
	ModeSentiment Mode = "sentiment"
	// ModeToxicity reads every label as a moderation category.
	ModeToxicity Mode = "toxicity"
)

// Default models per mode.
const (
	DefaultSentimentModel = "distilbert/distilbert-base-uncased-finetuned-sst-2-english"
	DefaultToxicityModel  = "unitary/toxic-bert"
)

// Config holds the configuration for the Hugging Face provider.
type Config struct {
	providers.ProviderConfig

	Mode Mode
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Endpoint: "https://api-inference.huggingface.co/models",
			Model:    DefaultSentimentModel,
			Timeout:  10 * time.Second,
		},
		Mode: ModeSentiment,
	}
}

// Provider implements providers.Classifier over a hosted text classifier.
type Provider struct {
	config     Config
	httpClient *http.Client
	translator violation.Translator
}

// New creates a new Hugging Face provider.
func New(cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSentiment
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSentimentModel
		if cfg.Mode == ModeToxicity {
			cfg.Model = DefaultToxicityModel
		}
	}
	return &Provider{
		config:     cfg,
		httpClient: providers.NewHTTPClient(cfg.Timeout),
		translator: newTranslator(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Classify sends the text to the model and decodes whichever response
// shape it returns.
func (p *Provider) Classify(ctx context.Context, text string) (providers.Signal, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}

	endpoint := strings.TrimRight(p.config.Endpoint, "/") + "/" + p.config.Model
	headers := map[string]string{"Authorization": "Bearer " + p.config.APIKey}
	body := map[string]any{
		"inputs":  text,
		"options": map[string]bool{"wait_for_model": true},
	}

	var raw json.RawMessage
	if err := providers.PostJSON(ctx, p.httpClient, providerName, endpoint, headers, body, &raw); err != nil {
		return nil, err
	}
	return DecodeSignal(raw, p.config.Mode)
}

// Translator returns the violation translator.
func (p *Provider) Translator() violation.Translator {
	return p.translator
}

// DecodeSignal turns an inference response into a Signal. Accepted
// shapes are a single {label,score} object, a list of them, or a list
// of such lists (one per input). The mode decides how labels are read
// whatever the shape.
func DecodeSignal(raw []byte, mode Mode) (providers.Signal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, providerName)
	}

	var labels []providers.SentimentLabel
	switch raw[0] {
	case '{':
		var single providers.SentimentLabel
		if err := json.Unmarshal(raw, &single); err != nil || single.Label == "" {
			return nil, fmt.Errorf("%w: %s object without label", moderation.ErrUnsupportedShape, providerName)
		}
		labels = append(labels, single)
	case '[':
		var nested [][]providers.SentimentLabel
		if err := json.Unmarshal(raw, &nested); err == nil {
			for _, inner := range nested {
				labels = append(labels, inner...)
			}
		} else if err := json.Unmarshal(raw, &labels); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", moderation.ErrUnsupportedShape, providerName, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", moderation.ErrUnsupportedShape, providerName)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %s returned no labels", moderation.ErrUnsupportedShape, providerName)
	}

	if mode == ModeToxicity {
		scores := make(providers.CategoryScores, len(labels))
		for _, l := range labels {
			if cur, ok := scores[l.Label]; !ok || l.Score > cur {
				scores[l.Label] = l.Score
			}
		}
		return scores, nil
	}

	top := labels[0]
	for _, l := range labels[1:] {
		if l.Score > top.Score {
			top = l
		}
	}
	return providers.SentimentLabel{Label: top.Normalized(), Score: top.Score}, nil
}
