// Package ollama provides a generative backend over a locally hosted
// Ollama model, for deployments that keep moderation traffic on-premises.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

const providerName = "ollama"

// Config holds the configuration for the Ollama provider.
type Config struct {
	providers.ProviderConfig

	// JSONFormat asks the server to constrain the reply to JSON.
	JSONFormat bool

	// Options are passed through as model options (temperature, num_ctx, ...).
	Options map[string]any
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Endpoint: "http://127.0.0.1:11434",
			Model:    "llama3.1",
			Timeout:  60 * time.Second,
		},
		JSONFormat: true,
	}
}

// Provider implements providers.Generator.
type Provider struct {
	config Config
	client *api.Client
}

// New creates a new Ollama provider.
func New(cfg Config) (*Provider, error) {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: ollama model", moderation.ErrMissingConfig)
	}

	base, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama endpoint: %v", moderation.ErrInvalidConfig, err)
	}

	return &Provider{
		config: cfg,
		client: api.NewClient(base, providers.NewHTTPClient(cfg.Timeout)),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Generate runs a non-streaming completion and returns the reply text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   p.config.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: p.config.Options,
	}
	if p.config.JSONFormat {
		req.Format = json.RawMessage(`"json"`)
	}

	var b strings.Builder
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		b.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", p.mapError(err)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, providerName)
	}
	return b.String(), nil
}

func (p *Provider) mapError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		return moderation.NewProviderError(providerName, se.Status, se.ErrorMessage).
			WithStatusCode(se.StatusCode).
			WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", moderation.ErrTimeout, providerName, err)
	}
	return moderation.WrapNetworkError(fmt.Errorf("%s request failed: %w", providerName, err))
}
