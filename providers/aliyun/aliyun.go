package aliyun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	green "github.com/alibabacloud-go/green-20220302/v2/client"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

const providerName = "aliyun"

// Provider implements providers.Classifier over Green TextModeration.
type Provider struct {
	config     Config
	client     *green.Client
	translator violation.Translator
}

// New creates a new Aliyun provider.
func New(cfg Config) (*Provider, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Service == "" {
		cfg.Service = def.Service
	}

	client, err := green.NewClient(&openapi.Config{
		AccessKeyId:     tea.String(cfg.AccessKeyID),
		AccessKeySecret: tea.String(cfg.AccessKeySecret),
		RegionId:        tea.String(cfg.Region),
		Endpoint:        tea.String(cfg.Endpoint),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init aliyun client: %w", err)
	}

	return &Provider{
		config:     cfg,
		client:     client,
		translator: newTranslator(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Classify moderates the text and returns per-label scores.
func (p *Provider) Classify(ctx context.Context, text string) (providers.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal service params: %w", err)
	}

	req := &green.TextModerationRequest{
		Service:           tea.String(p.config.Service),
		ServiceParameters: tea.String(string(params)),
	}

	runtime := &util.RuntimeOptions{}
	if p.config.Timeout > 0 {
		ms := int(p.config.Timeout.Milliseconds())
		runtime.ReadTimeout = tea.Int(ms)
		runtime.ConnectTimeout = tea.Int(ms)
	}

	resp, err := p.client.TextModerationWithOptions(req, runtime)
	if err != nil {
		return nil, mapError(err)
	}
	if resp == nil || resp.Body == nil || resp.Body.Code == nil {
		return nil, fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, providerName)
	}
	return parseTextResponse(resp.Body)
}

// Translator returns the violation translator.
func (p *Provider) Translator() violation.Translator {
	return p.translator
}

// parseTextResponse spreads the reported risk level over each returned label.
func parseTextResponse(body *green.TextModerationResponseBody) (providers.Signal, error) {
	if code := tea.Int32Value(body.Code); code != 200 {
		return nil, moderation.NewProviderError(providerName, fmt.Sprint(code), tea.StringValue(body.Message)).
			WithStatusCode(int(code))
	}

	scores := make(providers.CategoryScores)
	if body.Data == nil {
		return scores, nil
	}

	score := defaultLabelScore
	if reason := tea.StringValue(body.Data.Reason); reason != "" {
		var detail struct {
			RiskLevel string `json:"riskLevel"`
		}
		if err := json.Unmarshal([]byte(reason), &detail); err == nil {
			if s, ok := riskLevelScores[strings.ToLower(detail.RiskLevel)]; ok {
				score = s
			}
		}
	}

	for _, label := range strings.Split(tea.StringValue(body.Data.Labels), ",") {
		label = strings.TrimSpace(label)
		if label == "" || label == "normal" || label == "nonLabel" {
			continue
		}
		scores[label] = score
	}
	return scores, nil
}

func mapError(err error) error {
	var sdkErr *tea.SDKError
	if !errors.As(err, &sdkErr) {
		return moderation.WrapNetworkError(fmt.Errorf("text moderation failed: %w", err))
	}
	pe := moderation.NewProviderError(providerName, tea.StringValue(sdkErr.Code), tea.StringValue(sdkErr.Message)).
		WithCause(err)
	if status := tea.IntValue(sdkErr.StatusCode); status > 0 {
		pe.WithStatusCode(status)
	}
	return pe
}
