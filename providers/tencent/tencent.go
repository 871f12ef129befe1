// Package tencent provides the Tencent Cloud TMS text moderation
// screener backend.
package tencent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	sdkerrors "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tms/v20201229"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

const providerName = "tencent"

// Config holds the configuration for Tencent provider.
type Config struct {
	providers.ProviderConfig

	// BizType selects a policy configured in the TMS console.
	BizType string
}

// DefaultConfig returns the default Tencent configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Region:   "ap-guangzhou",
			Endpoint: "tms.tencentcloudapi.com",
			Timeout:  10 * time.Second,
		},
	}
}

// Provider implements providers.Classifier over TMS TextModeration.
type Provider struct {
	config     Config
	tmsClient  *tms.Client
	translator violation.Translator
}

// New creates a new Tencent provider.
func New(cfg Config) (*Provider, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultConfig().Endpoint
	}

	credential := common.NewCredential(cfg.AccessKeyID, cfg.AccessKeySecret)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = cfg.Endpoint
	if cfg.Timeout > 0 {
		cpf.HttpProfile.ReqTimeout = int(cfg.Timeout.Seconds())
	}

	client, err := tms.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("failed to create tms client: %w", err)
	}

	return &Provider{
		config:     cfg,
		tmsClient:  client,
		translator: newTranslator(),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Classify moderates the text and returns per-label scores.
func (p *Provider) Classify(ctx context.Context, text string) (providers.Signal, error) {
	req := tms.NewTextModerationRequest()
	content := base64.StdEncoding.EncodeToString([]byte(text))
	req.Content = &content
	if p.config.BizType != "" {
		req.BizType = &p.config.BizType
	}

	resp, err := p.tmsClient.TextModerationWithContext(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}
	return parseTextResponse(resp)
}

// Translator returns the violation translator.
func (p *Provider) Translator() violation.Translator {
	return p.translator
}

// parseTextResponse converts the TMS verdict to category scores. Scores
// arrive as integers in [0,100]. Detail results carry one score per
// label; the top-level label is used when no details are present.
func parseTextResponse(resp *tms.TextModerationResponse) (providers.Signal, error) {
	if resp == nil || resp.Response == nil {
		return nil, fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, providerName)
	}
	r := resp.Response

	scores := make(providers.CategoryScores)
	for _, detail := range r.DetailResults {
		if detail == nil || detail.Label == nil || detail.Score == nil {
			continue
		}
		if isPassLabel(*detail.Label) {
			continue
		}
		score := float64(*detail.Score) / 100.0
		if score > scores[*detail.Label] {
			scores[*detail.Label] = score
		}
	}

	if len(scores) == 0 && r.Label != nil && !isPassLabel(*r.Label) && r.Score != nil {
		scores[*r.Label] = float64(*r.Score) / 100.0
	}

	return scores, nil
}

func isPassLabel(label string) bool {
	return strings.EqualFold(label, "Normal") || strings.EqualFold(label, "Pass")
}

func mapError(err error) error {
	var sdkErr *sdkerrors.TencentCloudSDKError
	if !errors.As(err, &sdkErr) {
		return moderation.WrapNetworkError(fmt.Errorf("text moderation failed: %w", err))
	}

	pe := moderation.NewProviderError(providerName, sdkErr.GetCode(), sdkErr.GetMessage()).
		WithRaw(sdkErr.GetRequestId()).
		WithCause(err)

	code := sdkErr.GetCode()
	switch {
	case strings.HasPrefix(code, "AuthFailure"), strings.HasPrefix(code, "UnauthorizedOperation"):
		pe.WithCategory(moderation.ErrorCategoryAuth)
	case strings.HasPrefix(code, "RequestLimitExceeded"):
		pe.WithCategory(moderation.ErrorCategoryRateLimit)
	case strings.HasPrefix(code, "InternalError"):
		pe.WithCategory(moderation.ErrorCategoryInternal)
		pe.Retryable = true
	case strings.HasPrefix(code, "ClientError.NetworkError"):
		pe.WithCategory(moderation.ErrorCategoryNetwork)
	}
	return pe
}
