// Package aliyun provides the Alibaba Cloud Green text moderation
// screener backend.
package aliyun

import (
	"time"

	"github.com/heibot/moderation/providers"
)

// Config holds the configuration for Aliyun provider.
type Config struct {
	providers.ProviderConfig

	// Service is the Green text service (e.g., "comment_detection",
	// "chat_detection", "nickname_detection").
	Service string
}

// DefaultConfig returns the default Aliyun configuration.
func DefaultConfig() Config {
	return Config{
		ProviderConfig: providers.ProviderConfig{
			Region:   "cn-shanghai",
			Endpoint: "green-cip.cn-shanghai.aliyuncs.com",
			Timeout:  10 * time.Second,
		},
		Service: "comment_detection",
	}
}

// Confidence assigned to each label by the reported risk level.
// Green reports a level rather than a per-label probability.
var riskLevelScores = map[string]float64{
	"high":   0.95,
	"medium": 0.5,
	"low":    0.3,
	"none":   0,
}

// defaultLabelScore is used when labels arrive without a risk level.
const defaultLabelScore = 0.5
