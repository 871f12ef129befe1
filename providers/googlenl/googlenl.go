// Package googlenl provides the Google Cloud Natural Language
// moderateText screener backend.
package googlenl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

const providerName = "googlenl"

// Config holds the configuration for the Natural Language provider.
type Config struct {
	providers.ProviderConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Endpoint: "https://language.googleapis.com/v1",
			Timeout:  10 * time.Second,
		},
	}
}

// Provider implements providers.Classifier over documents:moderateText.
type Provider struct {
	config     Config
	httpClient *http.Client
	translator violation.Translator
}

// New creates a new Natural Language provider.
func New(cfg Config) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
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

type document struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type moderateRequest struct {
	Document     document `json:"document"`
	EncodingType string   `json:"encodingType"`
}

type moderateResponse struct {
	ModerationCategories []struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"moderationCategories"`
}

// Classify returns the moderation categories as CategoryScores.
// A response without categories is a valid, empty result.
func (p *Provider) Classify(ctx context.Context, text string) (providers.Signal, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}

	endpoint := fmt.Sprintf("%s/documents:moderateText?key=%s", p.config.Endpoint, url.QueryEscape(p.config.APIKey))
	req := moderateRequest{
		Document:     document{Type: "PLAIN_TEXT", Content: text},
		EncodingType: "UTF8",
	}

	var resp moderateResponse
	if err := providers.PostJSON(ctx, p.httpClient, providerName, endpoint, nil, req, &resp); err != nil {
		return nil, err
	}

	scores := make(providers.CategoryScores, len(resp.ModerationCategories))
	for _, c := range resp.ModerationCategories {
		scores[c.Name] = c.Confidence
	}
	return scores, nil
}

// Translator returns the violation translator.
func (p *Provider) Translator() violation.Translator {
	return p.translator
}
