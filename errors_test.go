package moderation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
)

func TestProviderError_StatusCategory(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  ErrorCategory
		retryable bool
	}{
		{"unauthorized", 401, ErrorCategoryAuth, false},
		{"forbidden", 403, ErrorCategoryAuth, false},
		{"rate limited", 429, ErrorCategoryRateLimit, true},
		{"gateway timeout", 504, ErrorCategoryTimeout, true},
		{"server error", 500, ErrorCategoryInternal, true},
		{"bad request", 400, ErrorCategoryProvider, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError("gemini", "HTTP", "boom").WithStatusCode(tt.status)
			if err.Category != tt.category {
				t.Errorf("Category = %v, want %v", err.Category, tt.category)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestProviderError_MatchesCategorySentinel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"401 is auth failure", NewProviderError("gemini", "HTTP", "bad key").WithStatusCode(401), ErrAuthFailed, true},
		{"403 with cause is auth failure", NewProviderError("tencent", "AuthFailure", "denied").WithStatusCode(403).WithCause(errors.New("sdk")), ErrAuthFailed, true},
		{"wrapped auth category", fmt.Errorf("judge: %w", NewProviderError("aliyun", "Forbidden", "no").WithCategory(ErrorCategoryAuth)), ErrAuthFailed, true},
		{"429 is rate limited", NewProviderError("huggingface", "HTTP", "slow down").WithStatusCode(429), ErrRateLimited, true},
		{"504 is timeout", NewProviderError("ollama", "HTTP", "late").WithStatusCode(504), ErrTimeout, true},
		{"400 is not auth", NewProviderError("gemini", "HTTP", "bad").WithStatusCode(400), ErrAuthFailed, false},
		{"500 is not rate limited", NewProviderError("gemini", "HTTP", "oops").WithStatusCode(500), ErrRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", ErrTimeout, true},
		{"wrapped rate limit", fmt.Errorf("call: %w", ErrRateLimited), true},
		{"missing credentials", ErrMissingCredentials, false},
		{"malformed", ErrMalformedResponse, false},
		{"content blocked", ErrContentBlocked, false},
		{"network pattern", errors.New("dial tcp 10.0.0.1:443: connection refused"), true},
		{"plain", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"missing credentials", ErrMissingCredentials, ErrorCategoryAuth},
		{"invalid config", ErrInvalidConfig, ErrorCategoryConfig},
		{"timeout", ErrTimeout, ErrorCategoryTimeout},
		{"validation", NewValidationError("text", "empty"), ErrorCategoryValidation},
		{"provider", NewProviderError("tencent", "X", "y").WithCategory(ErrorCategoryRateLimit), ErrorCategoryRateLimit},
		{"deadline", fmt.Errorf("classify: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"malformed", fmt.Errorf("%w: no JSON", ErrMalformedResponse), ErrorCategoryResponse},
		{"empty", ErrEmptyResponse, ErrorCategoryResponse},
		{"content blocked", fmt.Errorf("%w: SAFETY", ErrContentBlocked), ErrorCategoryResponse},
		{"unknown backend", ErrProviderNotFound, ErrorCategoryConfig},
		{"unknown", context.Canceled, ErrorCategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCategory(tt.err); got != tt.want {
				t.Errorf("GetErrorCategory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapNetworkError(t *testing.T) {
	err := WrapNetworkError(errors.New("read tcp: i/o timeout"))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("WrapNetworkError() = %v, want ErrTimeout", err)
	}

	err = WrapNetworkError(errors.New("lookup api.example: no such host"))
	if !errors.Is(err, ErrDNSResolution) {
		t.Errorf("WrapNetworkError() = %v, want ErrDNSResolution", err)
	}

	err = WrapNetworkError(fmt.Errorf("post: %w", &net.DNSError{Err: "server misbehaving", Name: "language.googleapis.com"}))
	if !errors.Is(err, ErrDNSResolution) {
		t.Errorf("WrapNetworkError() = %v, want ErrDNSResolution", err)
	}

	err = WrapNetworkError(fmt.Errorf("post: %w", context.DeadlineExceeded))
	if !errors.Is(err, ErrTimeout) || !IsRetryable(err) {
		t.Errorf("WrapNetworkError() = %v, want retryable ErrTimeout", err)
	}

	if WrapNetworkError(nil) != nil {
		t.Error("WrapNetworkError(nil) should be nil")
	}
}

func TestIsMalformedResponse(t *testing.T) {
	if !IsMalformedResponse(fmt.Errorf("decode: %w", ErrMalformedResponse)) {
		t.Error("wrapped ErrMalformedResponse should be malformed")
	}
	if !IsMalformedResponse(ErrUnsupportedShape) {
		t.Error("ErrUnsupportedShape should be malformed")
	}
	if IsMalformedResponse(ErrTimeout) {
		t.Error("ErrTimeout should not be malformed")
	}
}

func TestRiskLevel_Text(t *testing.T) {
	for _, level := range []RiskLevel{RiskNone, RiskLow, RiskModerate, RiskHigh} {
		text, err := level.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var back RiskLevel
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error = %v", text, err)
		}
		if back != level {
			t.Errorf("round trip %v -> %s -> %v", level, text, back)
		}
	}

	var r RiskLevel
	if err := r.UnmarshalText([]byte("extreme")); !IsValidationError(err) {
		t.Errorf("UnmarshalText(extreme) error = %v, want validation error", err)
	}
}

func TestResult_Clone(t *testing.T) {
	edit := "kinder wording"
	orig := Result{
		Flags:         []string{"a"},
		SuggestedEdit: &edit,
		FactCheck:     &FactCheck{Verdict: VerdictSupported},
	}

	cp := orig.Clone()
	cp.Flags[0] = "b"
	*cp.SuggestedEdit = "changed"
	cp.FactCheck.Verdict = VerdictUncertain

	if orig.Flags[0] != "a" || *orig.SuggestedEdit != "kinder wording" || orig.FactCheck.Verdict != VerdictSupported {
		t.Error("Clone() shares state with the original")
	}
}

func TestResult_Degraded(t *testing.T) {
	tests := []struct {
		flags []string
		want  bool
	}{
		{[]string{FlagSafe}, false},
		{[]string{FlagJudgeUnavailable}, true},
		{[]string{FlagParseError}, true},
		{[]string{FlagModerationError}, true},
		{[]string{FlagSafe, SignalScreenerUnavailable}, true},
		{nil, false},
	}

	for _, tt := range tests {
		if got := (Result{Flags: tt.flags}).Degraded(); got != tt.want {
			t.Errorf("Degraded(%v) = %v, want %v", tt.flags, got, tt.want)
		}
	}
}

func TestContentType_Valid(t *testing.T) {
	for _, ct := range []ContentType{ContentPost, ContentComment, ContentQuestion, ContentImageCaption} {
		if !ct.Valid() {
			t.Errorf("%s should be valid", ct)
		}
	}
	if ContentType("video").Valid() {
		t.Error("video should not be valid")
	}
}
