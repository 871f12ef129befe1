package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/judge"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "g-key"
	return New(cfg)
}

func TestProvider_Generate(t *testing.T) {
	var got generateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/"+DefaultModel+":generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"approved\": true,"},{"text":" \"safetyScore\": 88}"}]}}]}`))
	})

	out, err := p.Generate(context.Background(), "review this")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"approved": true, "safetyScore": 88}` {
		t.Errorf("Generate() = %q", out)
	}
	if len(got.Contents) != 1 || got.Contents[0].Parts[0].Text != "review this" {
		t.Errorf("request = %+v", got)
	}
	if got.GenerationConfig != nil {
		t.Errorf("generationConfig = %+v, want omitted", got.GenerationConfig)
	}
}

func TestProvider_Generate_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := New(DefaultConfig()).Generate(context.Background(), "x")
		if !errors.Is(err, moderation.ErrMissingCredentials) {
			t.Errorf("Generate() error = %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		})
		_, err := p.Generate(context.Background(), "x")
		if !errors.Is(err, moderation.ErrEmptyResponse) {
			t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("prompt blocked", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
		})
		_, err := p.Generate(context.Background(), "x")
		if !errors.Is(err, moderation.ErrContentBlocked) {
			t.Errorf("Generate() error = %v, want ErrContentBlocked", err)
		}
		if moderation.IsRetryable(err) {
			t.Error("blocked prompt should not be retried")
		}
	})

	t.Run("candidate stopped for safety", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
		})
		_, err := p.Generate(context.Background(), "x")
		if !errors.Is(err, moderation.ErrContentBlocked) {
			t.Errorf("Generate() error = %v, want ErrContentBlocked", err)
		}
	})

	t.Run("candidate without text", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`))
		})
		_, err := p.Generate(context.Background(), "x")
		if !errors.Is(err, moderation.ErrEmptyResponse) {
			t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad key", http.StatusForbidden)
		})
		_, err := p.Generate(context.Background(), "x")
		if !moderation.IsAuthError(err) {
			t.Errorf("Generate() error = %v, want auth error", err)
		}
	})
}

func TestJudge_RefusedPromptFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"prompt feedback", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"finish reason", `{"candidates":[{"content":{"parts":[]},"finishReason":"PROHIBITED_CONTENT"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			got := judge.New(p, judge.Config{}).Judge(context.Background(), "some borderline post")

			if got.Approved || got.SafetyScore != 0 {
				t.Errorf("Judge() = %+v, want rejection at 0", got)
			}
			if len(got.Flags) != 1 || got.Flags[0] != moderation.FlagContentBlocked {
				t.Errorf("Flags = %v, want [%s]", got.Flags, moderation.FlagContentBlocked)
			}
		})
	}
}
