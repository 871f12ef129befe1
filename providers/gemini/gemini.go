// Package gemini provides the Gemini generateContent backend used by the
// safety judge and the fact-checker.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

const providerName = "gemini"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Config holds the configuration for the Gemini provider.
type Config struct {
	providers.ProviderConfig

	// Temperature is sent as generationConfig.temperature when set.
	Temperature *float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    DefaultModel,
			Timeout:  20 * time.Second,
		},
	}
}

// Provider implements providers.Generator.
type Provider struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Gemini provider.
func New(cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	return &Provider{
		config:     cfg,
		httpClient: providers.NewHTTPClient(cfg.Timeout),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Finish reasons meaning the model refused the content rather than failed.
var safetyFinish = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// Generate sends a single-turn prompt and returns the first candidate's text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.config.APIKey == "" {
		return "", fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.config.Endpoint, "/"), p.config.Model, url.QueryEscape(p.config.APIKey))

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if p.config.Temperature != nil {
		req.GenerationConfig = &generationConfig{Temperature: p.config.Temperature}
	}

	var resp generateResponse
	if err := providers.PostJSON(ctx, p.httpClient, providerName, endpoint, nil, req, &resp); err != nil {
		return "", err
	}

	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return "", fmt.Errorf("%w: %s blocked the prompt (%s)", moderation.ErrContentBlocked, providerName, reason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: %s returned no candidates", moderation.ErrEmptyResponse, providerName)
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, pt := range cand.Content.Parts {
		b.WriteString(pt.Text)
	}
	if b.Len() == 0 {
		if safetyFinish[cand.FinishReason] {
			return "", fmt.Errorf("%w: %s stopped with %s", moderation.ErrContentBlocked, providerName, cand.FinishReason)
		}
		return "", fmt.Errorf("%w: %s candidate has no text", moderation.ErrEmptyResponse, providerName)
	}
	return b.String(), nil
}
