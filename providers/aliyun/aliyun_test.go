package aliyun

import (
	"errors"
	"testing"

	green "github.com/alibabacloud-go/green-20220302/v2/client"
	"github.com/alibabacloud-go/tea/tea"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

func TestParseTextResponse(t *testing.T) {
	tests := []struct {
		name string
		body *green.TextModerationResponseBody
		want providers.CategoryScores
	}{
		{
			name: "high risk labels",
			body: &green.TextModerationResponseBody{
				Code: tea.Int32(200),
				Data: &green.TextModerationResponseBodyData{
					Labels: tea.String("profanity,abuse"),
					Reason: tea.String(`{"riskLevel":"high","riskTips":"abuse"}`),
				},
			},
			want: providers.CategoryScores{"profanity": 0.95, "abuse": 0.95},
		},
		{
			name: "medium risk",
			body: &green.TextModerationResponseBody{
				Code: tea.Int32(200),
				Data: &green.TextModerationResponseBodyData{
					Labels: tea.String("ad"),
					Reason: tea.String(`{"riskLevel":"medium"}`),
				},
			},
			want: providers.CategoryScores{"ad": 0.5},
		},
		{
			name: "labels without reason",
			body: &green.TextModerationResponseBody{
				Code: tea.Int32(200),
				Data: &green.TextModerationResponseBodyData{Labels: tea.String("contraband")},
			},
			want: providers.CategoryScores{"contraband": defaultLabelScore},
		},
		{
			name: "clean",
			body: &green.TextModerationResponseBody{
				Code: tea.Int32(200),
				Data: &green.TextModerationResponseBodyData{Labels: tea.String("")},
			},
			want: providers.CategoryScores{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := parseTextResponse(tt.body)
			if err != nil {
				t.Fatalf("parseTextResponse() error = %v", err)
			}
			got := sig.(providers.CategoryScores)
			if len(got) != len(tt.want) {
				t.Fatalf("scores = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("scores[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseTextResponse_ErrorCode(t *testing.T) {
	_, err := parseTextResponse(&green.TextModerationResponseBody{
		Code:    tea.Int32(429),
		Message: tea.String("throttled"),
	})
	if !moderation.IsRateLimitError(err) {
		t.Errorf("parseTextResponse() error = %v, want rate limit", err)
	}
}

func TestMapError(t *testing.T) {
	sdkErr := tea.NewSDKError(map[string]interface{}{
		"code":       "InvalidAccessKeyId.NotFound",
		"message":    "Specified access key is not found.",
		"statusCode": 401,
	})

	err := mapError(sdkErr)
	if !moderation.IsAuthError(err) {
		t.Errorf("mapError() = %v, want auth error", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(DefaultConfig())
	if !errors.Is(err, moderation.ErrMissingCredentials) {
		t.Errorf("New() error = %v, want ErrMissingCredentials", err)
	}
}

func TestTranslator(t *testing.T) {
	list := newTranslator().Translate(map[string]float64{"abuse": 0.95, "religion_b": 0.95})
	if flags := list.Flags(); len(flags) != 1 || flags[0] != "insult" {
		t.Errorf("Flags() = %v, want [insult]", flags)
	}
}
