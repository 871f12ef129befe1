// Package huawei provides the Huawei Cloud Moderation v3 text
// screener backend.
package huawei

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/sdkerr"
	hwmoderation "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/moderation/v3"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/moderation/v3/model"
	region "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/moderation/v3/region"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/violation"
)

const providerName = "huawei"

// Config holds the configuration for Huawei provider.
type Config struct {
	providers.ProviderConfig

	ProjectID string

	// EventType selects the detection policy ("comment", "article", "chat", ...).
	EventType string
}

// DefaultConfig returns the default Huawei configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Region:  "cn-north-4",
			Timeout: 10 * time.Second,
		},
		EventType: "comment",
	}
}

// Provider implements providers.Classifier over RunTextModeration.
type Provider struct {
	config     Config
	client     *hwmoderation.ModerationClient
	translator violation.Translator
}

// New creates a new Huawei provider.
func New(cfg Config) (*Provider, error) {
	if cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" {
		return nil, fmt.Errorf("%w: %s", moderation.ErrMissingCredentials, providerName)
	}
	if cfg.EventType == "" {
		cfg.EventType = DefaultConfig().EventType
	}

	auth := basic.NewCredentialsBuilder().
		WithAk(cfg.AccessKeyID).
		WithSk(cfg.AccessKeySecret).
		WithProjectId(cfg.ProjectID).
		Build()

	reg, err := region.SafeValueOf(cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("%w: huawei region: %v", moderation.ErrInvalidConfig, err)
	}

	client := hwmoderation.NewModerationClient(
		hwmoderation.ModerationClientBuilder().
			WithRegion(reg).
			WithCredential(auth).
			Build())

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

// Classify moderates the text and returns per-label confidences.
func (p *Provider) Classify(ctx context.Context, text string) (providers.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eventType := p.config.EventType
	req := &model.RunTextModerationRequest{
		Body: &model.TextDetectionReq{
			EventType: &eventType,
			Data: &model.TextDetectionDataReq{
				Text: text,
			},
		},
	}

	resp, err := p.client.RunTextModeration(req)
	if err != nil {
		return nil, mapError(err)
	}
	return parseTextResponse(resp)
}

// Translator returns the violation translator.
func (p *Provider) Translator() violation.Translator {
	return p.translator
}

func parseTextResponse(resp *model.RunTextModerationResponse) (providers.Signal, error) {
	if resp == nil || resp.Result == nil {
		return nil, fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, providerName)
	}
	r := resp.Result

	scores := make(providers.CategoryScores)
	if r.Details != nil {
		for _, detail := range *r.Details {
			if detail.Label == nil || *detail.Label == "normal" {
				continue
			}
			conf := 0.0
			if detail.Confidence != nil {
				conf = float64(*detail.Confidence)
			}
			if cur, ok := scores[*detail.Label]; !ok || conf > cur {
				scores[*detail.Label] = conf
			}
		}
	}

	if len(scores) == 0 && r.Label != nil && *r.Label != "normal" {
		scores[*r.Label] = defaultLabelScore
	}
	return scores, nil
}

// defaultLabelScore is used for a top-level label reported without details.
const defaultLabelScore = 0.5

func mapError(err error) error {
	var respErr *sdkerr.ServiceResponseError
	if errors.As(err, &respErr) {
		return moderation.NewProviderError(providerName, respErr.ErrorCode, respErr.ErrorMessage).
			WithStatusCode(respErr.StatusCode).
			WithRaw(respErr.RequestId).
			WithCause(err)
	}
	return moderation.WrapNetworkError(fmt.Errorf("text moderation failed: %w", err))
}
