package googlenl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/providers"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.APIKey = "test-key"
	return New(cfg)
}

func TestProvider_Classify(t *testing.T) {
	var gotReq moderateRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/documents:moderateText" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"moderationCategories":[{"name":"Toxic","confidence":0.82},{"name":"Insult","confidence":0.41}]}`))
	})

	sig, err := p.Classify(context.Background(), "you are awful")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	scores, ok := sig.(providers.CategoryScores)
	if !ok {
		t.Fatalf("Classify() signal = %T, want CategoryScores", sig)
	}
	if scores["Toxic"] != 0.82 || scores["Insult"] != 0.41 {
		t.Errorf("scores = %v", scores)
	}
	if gotReq.Document.Type != "PLAIN_TEXT" || gotReq.Document.Content != "you are awful" || gotReq.EncodingType != "UTF8" {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestProvider_Classify_NoCategories(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	sig, err := p.Classify(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if scores := sig.(providers.CategoryScores); len(scores) != 0 {
		t.Errorf("scores = %v, want empty", scores)
	}
}

func TestProvider_Classify_Errors(t *testing.T) {
	t.Run("missing key makes no call", func(t *testing.T) {
		called := false
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) { called = true })
		p.config.APIKey = ""

		_, err := p.Classify(context.Background(), "hello there")
		if !errors.Is(err, moderation.ErrMissingCredentials) {
			t.Errorf("Classify() error = %v, want ErrMissingCredentials", err)
		}
		if called {
			t.Error("server should not be called without credentials")
		}
	})

	t.Run("http status", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
		})

		_, err := p.Classify(context.Background(), "hello there")
		var pe *moderation.ProviderError
		if !errors.As(err, &pe) || pe.StatusCode != 429 || !pe.Retryable {
			t.Errorf("Classify() error = %v, want retryable 429 ProviderError", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})

		_, err := p.Classify(context.Background(), "hello there")
		if !errors.Is(err, moderation.ErrMalformedResponse) {
			t.Errorf("Classify() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestTranslator(t *testing.T) {
	tr := New(DefaultConfig()).Translator()

	list := tr.Translate(map[string]float64{"Toxic": 0.7, "Health": 0.99, "Derogatory": 0.3})
	got := list.Flags()
	if len(got) != 2 || got[0] != "toxicity" || got[1] != "hate_speech" {
		t.Errorf("Flags() = %v, want [toxicity hate_speech]", got)
	}
}
